package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BC-Softworks/record-generator/internal/audio"
	"github.com/BC-Softworks/record-generator/internal/geometry"
	"github.com/BC-Softworks/record-generator/internal/waveform"
)

func newCSVCmd() *cobra.Command {
	var (
		input   string
		out     string
		preview string
	)

	cmd := &cobra.Command{
		Use:   "csv",
		Short: "Decode an audio file to the one-record waveform CSV engrave reads",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			if input == "" {
				input = cfg.Paths.Input
			}
			if input == "" {
				return errNoInput
			}

			geo, err := geometry.Derive(cfg.Geometry.Params())
			if err != nil {
				return err
			}

			clip, err := audio.Decode(input)
			if err != nil {
				return err
			}
			samples, rate, err := audio.Condition(clip, conditioning(cfg, geo))
			if err != nil {
				return fmt.Errorf("condition %s: %w", input, err)
			}

			if err := writeCSV(out, cmd.OutOrStdout(), samples); err != nil {
				return err
			}
			zap.L().Info("waveform written",
				zap.String("input", input),
				zap.String("out", out),
				zap.Int("samples", len(samples)),
				zap.Int("rate", rate))

			if preview != "" {
				wav, err := audio.EncodeWAV(samples, rate)
				if err != nil {
					return fmt.Errorf("encode preview: %w", err)
				}
				if err := os.WriteFile(preview, wav, 0o644); err != nil {
					return fmt.Errorf("write preview: %w", err)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Audio file (wav|aiff|mp3|ogg|flac)")
	cmd.Flags().StringVar(&out, "out", "", "Output CSV path (default: stdout)")
	cmd.Flags().StringVar(&preview, "preview", "", "Also write the conditioned signal as a 16-bit WAV")

	return cmd
}

func writeCSV(path string, stdout io.Writer, samples []float32) (err error) {
	if path == "" {
		return waveform.WriteCSV(stdout, samples)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	bw := bufio.NewWriter(f)
	if err := waveform.WriteCSV(bw, samples); err != nil {
		return err
	}
	return bw.Flush()
}
