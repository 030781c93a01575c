// Package bench provides benchmarking primitives for the recordgen bench
// command.
package bench

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BC-Softworks/record-generator/internal/blank"
	"github.com/BC-Softworks/record-generator/internal/geometry"
	"github.com/BC-Softworks/record-generator/internal/groove"
	"github.com/BC-Softworks/record-generator/internal/mesh"
	"github.com/BC-Softworks/record-generator/internal/waveform"
)

// ---------------------------------------------------------------------------
// Run result and stats
// ---------------------------------------------------------------------------

// RunResult holds the timing and mesh size of a single generator run.
type RunResult struct {
	Index       int
	Cold        bool // true for the first run (cold-start)
	Duration    time.Duration
	Revolutions int
	Faces       int
	Throughput  float64 // faces per second
}

// Stats holds aggregate timing statistics across all runs.
type Stats struct {
	Min  time.Duration
	Max  time.Duration
	Mean time.Duration
}

// ComputeStats calculates min, max and mean over a slice of durations.
// The slice must be non-empty.
func ComputeStats(durations []time.Duration) Stats {
	if len(durations) == 0 {
		return Stats{}
	}
	mn, mx := durations[0], durations[0]
	var sum time.Duration
	for _, d := range durations {
		if d < mn {
			mn = d
		}
		if d > mx {
			mx = d
		}
		sum += d
	}
	return Stats{
		Min:  mn,
		Max:  mx,
		Mean: sum / time.Duration(len(durations)),
	}
}

// Durations returns the duration of each run.
func Durations(runs []RunResult) []time.Duration {
	out := make([]time.Duration, len(runs))
	for i, r := range runs {
		out[i] = r.Duration
	}
	return out
}

// CalcThroughput returns faces generated per second.
// Returns 0 if d is zero to avoid division by zero.
func CalcThroughput(faces int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(faces) / d.Seconds()
}

// CheckMeanThreshold returns an error if the mean run time exceeds
// threshold. A threshold of 0 disables the gate.
func CheckMeanThreshold(mean, threshold time.Duration) error {
	if threshold <= 0 {
		return nil
	}
	if mean > threshold {
		return fmt.Errorf("mean run time %v exceeds threshold %v", mean, threshold)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Synthetic input and runner
// ---------------------------------------------------------------------------

// SineWaveform returns n normalized samples of a sine wave offset into
// [0, 1], completing cycles periods.
func SineWaveform(n int, cycles float64, precision int) []float64 {
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	for i := range out {
		out[i] = 0.5 + 0.5*math.Sin(2*math.Pi*cycles*float64(i)/float64(n))
	}
	return waveform.Normalize(out, precision)
}

// Options configure Run.
type Options struct {
	Runs    int
	Samples []float64
	Workers int
	Logger  *zap.Logger
}

// Run cuts the groove for opts.Samples opts.Runs times into a fresh blank
// and times each Generate call. Building the blank is not timed.
func Run(ctx context.Context, cfg geometry.Config, opts Options) ([]RunResult, error) {
	if opts.Runs < 1 {
		return nil, fmt.Errorf("runs must be at least 1, got %d", opts.Runs)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	// The mesh is discarded, so turns stacked by a vanishing radial
	// increment are timed like any other.
	gen := groove.NewGenerator(cfg, groove.WithWorkers(opts.Workers), groove.AllowOverlappingTurns(true))
	runs := make([]RunResult, 0, opts.Runs)
	for i := range opts.Runs {
		store := mesh.NewStore()
		if err := blank.Build(cfg, store); err != nil {
			return nil, fmt.Errorf("build blank: %w", err)
		}

		start := time.Now()
		res, err := gen.Generate(ctx, store, opts.Samples)
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", i+1, err)
		}
		d := time.Since(start)

		r := RunResult{
			Index:       i,
			Cold:        i == 0,
			Duration:    d,
			Revolutions: res.Revolutions,
			Faces:       res.FacesAdded,
			Throughput:  CalcThroughput(res.FacesAdded, d),
		}
		log.Debug("bench run",
			zap.Int("run", i+1),
			zap.Duration("duration", d),
			zap.Int("faces", r.Faces))
		runs = append(runs, r)
	}

	return runs, nil
}

// ---------------------------------------------------------------------------
// Output formatters
// ---------------------------------------------------------------------------

// FormatTable writes a human-readable ASCII table of bench results to w.
func FormatTable(runs []RunResult, stats Stats, w io.Writer) {
	sb := &strings.Builder{}

	fmt.Fprintf(sb, "%-5s  %-5s  %10s  %6s  %10s  %12s\n", "Run", "Cold", "MS", "Revs", "Faces", "Faces/s")
	fmt.Fprintln(sb, strings.Repeat("-", 58))

	for _, r := range runs {
		cold := ""
		if r.Cold {
			cold = "yes"
		}
		fmt.Fprintf(sb, "%-5d  %-5s  %10.1f  %6d  %10d  %12.0f\n",
			r.Index+1,
			cold,
			ms(r.Duration),
			r.Revolutions,
			r.Faces,
			r.Throughput,
		)
	}

	fmt.Fprintln(sb, strings.Repeat("-", 58))
	fmt.Fprintf(sb, "%-5s  %-5s  %10.1f  (min)\n", "", "", ms(stats.Min))
	fmt.Fprintf(sb, "%-5s  %-5s  %10.1f  (mean)\n", "", "", ms(stats.Mean))
	fmt.Fprintf(sb, "%-5s  %-5s  %10.1f  (max)\n", "", "", ms(stats.Max))

	fmt.Fprint(w, sb.String())
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// jsonReport is the top-level JSON structure emitted by FormatJSON.
type jsonReport struct {
	Runs  []jsonRun `json:"runs"`
	Stats jsonStats `json:"stats"`
}

type jsonRun struct {
	Index       int     `json:"index"`
	Cold        bool    `json:"cold"`
	DurationMS  float64 `json:"duration_ms"`
	Revolutions int     `json:"revolutions"`
	Faces       int     `json:"faces"`
	FacesPerSec float64 `json:"faces_per_sec"`
}

type jsonStats struct {
	MinMS  float64 `json:"min_ms"`
	MeanMS float64 `json:"mean_ms"`
	MaxMS  float64 `json:"max_ms"`
}

// FormatJSON writes a JSON report of bench results to w.
func FormatJSON(runs []RunResult, stats Stats, w io.Writer) error {
	jr := jsonReport{
		Runs: make([]jsonRun, len(runs)),
		Stats: jsonStats{
			MinMS:  ms(stats.Min),
			MeanMS: ms(stats.Mean),
			MaxMS:  ms(stats.Max),
		},
	}
	for i, r := range runs {
		jr.Runs[i] = jsonRun{
			Index:       r.Index,
			Cold:        r.Cold,
			DurationMS:  ms(r.Duration),
			Revolutions: r.Revolutions,
			Faces:       r.Faces,
			FacesPerSec: r.Throughput,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jr)
}
