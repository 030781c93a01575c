package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BC-Softworks/record-generator/internal/bench"
	"github.com/BC-Softworks/record-generator/internal/geometry"
)

func newBenchCmd() *cobra.Command {
	var (
		samples   int
		cycles    float64
		runs      int
		format    string
		threshold time.Duration
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark groove generation on a synthetic waveform",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if samples < 1 {
				return fmt.Errorf("--samples must be at least 1")
			}
			if runs < 1 {
				return fmt.Errorf("--runs must be at least 1")
			}
			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be 'table' or 'json'")
			}

			geo, err := geometry.Derive(cfg.Geometry.Params())
			if err != nil {
				return err
			}

			results, err := bench.Run(cmd.Context(), geo, bench.Options{
				Runs:    runs,
				Samples: bench.SineWaveform(samples, cycles, geo.Precision),
				Workers: cfg.Generator.Workers,
				Logger:  zap.L(),
			})
			if err != nil {
				return err
			}

			stats := bench.ComputeStats(bench.Durations(results))

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				if err := bench.FormatJSON(results, stats, out); err != nil {
					return err
				}
			default:
				bench.FormatTable(results, stats, out)
			}

			return bench.CheckMeanThreshold(stats.Mean, threshold)
		},
	}

	cmd.Flags().IntVar(&samples, "samples", 200000, "Length of the synthetic waveform")
	cmd.Flags().Float64Var(&cycles, "cycles", 1000, "Sine periods across the waveform")
	cmd.Flags().IntVar(&runs, "runs", 5, "Number of generator runs")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")
	cmd.Flags().DurationVar(&threshold, "max-mean", 0, "Exit non-zero if the mean run time exceeds this duration (0 = disabled)")

	return cmd
}
