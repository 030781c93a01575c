package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BC-Softworks/record-generator/internal/audio"
	"github.com/BC-Softworks/record-generator/internal/blank"
	"github.com/BC-Softworks/record-generator/internal/config"
	"github.com/BC-Softworks/record-generator/internal/geometry"
	"github.com/BC-Softworks/record-generator/internal/groove"
	"github.com/BC-Softworks/record-generator/internal/mesh"
	"github.com/BC-Softworks/record-generator/internal/stl"
	"github.com/BC-Softworks/record-generator/internal/waveform"
)

var (
	errNoInput       = errors.New("no input: set --input or paths.input")
	errBlankMismatch = errors.New("blank does not match the configured geometry")
)

func newEngraveCmd() *cobra.Command {
	var (
		input    string
		out      string
		blankSTL string
		noBlank  bool
		ascii    bool
		progress bool
	)

	cmd := &cobra.Command{
		Use:   "engrave",
		Short: "Cut a waveform CSV or audio file into a record and write it as STL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if input != "" {
				cfg.Paths.Input = input
			}
			if out != "" {
				cfg.Paths.Output = out
			}
			if blankSTL != "" {
				cfg.Paths.Blank = blankSTL
			}
			if ascii {
				cfg.Generator.ASCII = true
			}
			if noBlank && cfg.Paths.Blank != "" {
				return errors.New("--no-blank and --blank are mutually exclusive")
			}

			opts := engraveOptions{NoBlank: noBlank}
			if progress {
				opts.Progress = cmd.ErrOrStderr()
			}

			res, err := runEngrave(cmd.Context(), cfg, opts, zap.L())
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d revolutions, %d faces, final radius %g\n",
				cfg.Paths.Output, res.Revolutions, res.Faces, res.FinalRadius)

			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Waveform CSV or audio file (overrides paths.input)")
	cmd.Flags().StringVar(&out, "out", "", "Output STL path (overrides paths.output)")
	cmd.Flags().StringVar(&blankSTL, "blank", "", "Pre-built blank STL (overrides paths.blank)")
	cmd.Flags().BoolVar(&noBlank, "no-blank", false, "Write the groove surface only, without the record body")
	cmd.Flags().BoolVar(&ascii, "ascii", false, "Write ASCII STL")
	cmd.Flags().BoolVar(&progress, "progress", false, "Print per-revolution progress to stderr")

	return cmd
}

type engraveOptions struct {
	NoBlank bool
	// Progress receives one line per revolution when set.
	Progress io.Writer
}

type engraveSummary struct {
	Revolutions int
	Faces       int
	Vertices    int
	FinalRadius float64
	Degenerate  bool
	Elapsed     time.Duration
}

// runEngrave is the full pipeline: read and normalize the waveform, seed the
// store with the blank, cut the groove and export the mesh.
func runEngrave(ctx context.Context, cfg config.Config, opts engraveOptions, log *zap.Logger) (engraveSummary, error) {
	start := time.Now()

	geo, err := geometry.Derive(cfg.Geometry.Params())
	if err != nil {
		return engraveSummary{}, err
	}

	raw, err := loadWaveform(cfg, geo, log)
	if err != nil {
		return engraveSummary{}, err
	}
	samples := waveform.Normalize(raw, geo.Precision)

	store := mesh.NewStore(mesh.WithPrecision(cfg.Generator.StorePrecision))
	switch {
	case opts.NoBlank:
	case cfg.Paths.Blank != "":
		if err := blank.Load(cfg.Paths.Blank, store); err != nil {
			return engraveSummary{}, err
		}
		if !blank.Matches(geo, store) {
			return engraveSummary{}, fmt.Errorf("%w: %s (export it with `recordgen blank` using the same settings)", errBlankMismatch, cfg.Paths.Blank)
		}
		log.Info("blank loaded", zap.String("path", cfg.Paths.Blank), zap.Int("faces", store.FaceCount()))
	default:
		if err := blank.Build(geo, store); err != nil {
			return engraveSummary{}, fmt.Errorf("build blank: %w", err)
		}
	}

	genOpts := []groove.Option{
		groove.WithLogger(log),
		groove.WithWorkers(cfg.Generator.Workers),
		groove.AllowOverlappingTurns(cfg.Generator.AllowOverlap),
	}
	if opts.Progress != nil {
		w := opts.Progress
		genOpts = append(genOpts, groove.WithProgress(func(p groove.Progress) {
			_, _ = fmt.Fprintf(w, "revolution %d/%d radius %.4f\n", p.Revolution, p.Planned, p.Radius)
		}))
	}

	res, err := groove.NewGenerator(geo, genOpts...).Generate(ctx, store, samples)
	if err != nil {
		return engraveSummary{}, err
	}

	format := stl.Binary
	if cfg.Generator.ASCII {
		format = stl.ASCII
	}
	if err := stl.WriteFile(cfg.Paths.Output, store, format); err != nil {
		return engraveSummary{}, fmt.Errorf("write %s: %w", cfg.Paths.Output, err)
	}

	sum := engraveSummary{
		Revolutions: res.Revolutions,
		Faces:       store.FaceCount(),
		Vertices:    store.VertexCount(),
		FinalRadius: res.FinalRadius,
		Degenerate:  res.Degenerate,
		Elapsed:     time.Since(start),
	}
	log.Info("record written",
		zap.String("path", cfg.Paths.Output),
		zap.Stringer("format", format),
		zap.Int("faces", sum.Faces),
		zap.Int("vertices", sum.Vertices),
		zap.Duration("elapsed", sum.Elapsed))

	return sum, nil
}

// loadWaveform reads cfg.Paths.Input. Audio files are decoded, mixed to mono
// and conditioned; anything else is parsed as a one-record CSV and used as
// is.
func loadWaveform(cfg config.Config, geo geometry.Config, log *zap.Logger) ([]float64, error) {
	path := cfg.Paths.Input
	if path == "" {
		return nil, errNoInput
	}

	if !audio.IsAudioFile(path) {
		samples, err := waveform.ReadCSVFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		log.Info("waveform loaded", zap.String("path", path), zap.Int("samples", len(samples)))
		return samples, nil
	}

	clip, err := audio.Decode(path)
	if err != nil {
		return nil, err
	}
	if clip.SampleRate != geo.SamplingRate {
		log.Info("resampling audio to the geometry sampling rate",
			zap.Int("audio_rate", clip.SampleRate),
			zap.Int("geometry_rate", geo.SamplingRate))
	}

	samples, rate, err := audio.Condition(clip, conditioning(cfg, geo))
	if err != nil {
		return nil, fmt.Errorf("condition %s: %w", path, err)
	}
	log.Info("audio decoded",
		zap.String("path", path),
		zap.Int("channels", clip.Channels),
		zap.Int("frames", clip.Frames()),
		zap.Int("samples", len(samples)),
		zap.Int("rate", rate))

	return waveform.Float64s(samples), nil
}

// conditioning delivers audio at the geometry sampling rate. The groove
// sampler steps through it RateDivisor frames at a time, so the clip is not
// decimated here.
func conditioning(cfg config.Config, geo geometry.Config) audio.Conditioning {
	return audio.Conditioning{
		DCBlock:       cfg.Audio.DCBlock,
		PeakNormalize: cfg.Audio.PeakNormalize,
		FadeMS:        cfg.Audio.FadeMS,
		SampleRate:    geo.SamplingRate,
	}
}
