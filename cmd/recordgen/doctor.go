package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BC-Softworks/record-generator/internal/doctor"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check geometry, inputs and settings before engraving",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			result := doctor.Run(doctor.Config{
				Params:       cfg.Geometry.Params(),
				InputFile:    cfg.Paths.Input,
				BlankFile:    cfg.Paths.Blank,
				OutputFile:   cfg.Paths.Output,
				Workers:      cfg.Generator.Workers,
				LogLevel:     cfg.Log.Level,
				AllowOverlap: cfg.Generator.AllowOverlap,
			}, out)

			if result.Failed() {
				for _, f := range result.Failures() {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "FAIL: %s\n", f)
				}

				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintf(out, "doctor checks passed (%d warnings)\n", len(result.Warnings()))

			return nil
		},
	}

	return cmd
}
