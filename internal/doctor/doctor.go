// Package doctor provides preflight checks for recordgen: geometry, inputs
// and runtime settings are checked before any groove is cut.
package doctor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BC-Softworks/record-generator/internal/audio"
	"github.com/BC-Softworks/record-generator/internal/geometry"
	"github.com/BC-Softworks/record-generator/internal/groove"
	"github.com/BC-Softworks/record-generator/internal/logger"
	"github.com/BC-Softworks/record-generator/internal/waveform"
)

// PassMark, WarnMark and FailMark are the prefix symbols printed for each
// check result.
const (
	PassMark = "✓"
	WarnMark = "!"
	FailMark = "✗"
)

// StatFunc reports file information, like os.Stat.
type StatFunc func(path string) (os.FileInfo, error)

// Config holds the settings to check and injectable dependencies.
type Config struct {
	Params geometry.Params
	// InputFile is a waveform CSV or an audio file. Empty skips the check.
	InputFile string
	// BlankFile is a pre-built blank STL. Empty skips the check.
	BlankFile  string
	OutputFile string
	Workers    int
	LogLevel   string
	// AllowOverlap accepts inputs whose turns stack on one radius.
	AllowOverlap bool
	// Stat defaults to os.Stat.
	Stat StatFunc
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
	warnings []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// Warnings returns the list of warning messages.
func (r *Result) Warnings() []string { return append([]string(nil), r.warnings...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(w io.Writer, check string, err error) {
	r.failures = append(r.failures, fmt.Sprintf("%s: %v", check, err))
	fmt.Fprintf(w, "%s %s: %v\n", FailMark, check, err)
}

func (r *Result) warn(w io.Writer, check, msg string) {
	r.warnings = append(r.warnings, fmt.Sprintf("%s: %s", check, msg))
	fmt.Fprintf(w, "%s %s: %s\n", WarnMark, check, msg)
}

func pass(w io.Writer, check, msg string) {
	fmt.Fprintf(w, "%s %s: %s\n", PassMark, check, msg)
}

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark, WarnMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result
	stat := cfg.Stat
	if stat == nil {
		stat = os.Stat
	}

	// ---- geometry ---------------------------------------------------------
	geo, err := geometry.Derive(cfg.Params)
	if err != nil {
		res.fail(w, "geometry", err)
	} else {
		pass(w, "geometry", fmt.Sprintf("radius %g, grooves from %g to %g", geo.Radius, geo.OuterRad, geo.InnerRad))
		checkSteps(&res, w, geo)
	}

	// ---- input ------------------------------------------------------------
	if cfg.InputFile == "" {
		pass(w, "input", "skipped")
	} else if err := checkInput(cfg.InputFile, stat); err != nil {
		res.fail(w, "input", err)
	} else if geo.IncrNum > 0 && !audio.IsAudioFile(cfg.InputFile) {
		checkWaveform(&res, w, geo, cfg.InputFile, cfg.AllowOverlap)
	} else {
		pass(w, "input", cfg.InputFile)
	}

	// ---- blank ------------------------------------------------------------
	if cfg.BlankFile == "" {
		pass(w, "blank", "built at run time")
	} else if _, err := stat(cfg.BlankFile); err != nil {
		res.fail(w, "blank", err)
	} else {
		pass(w, "blank", cfg.BlankFile)
	}

	// ---- output -----------------------------------------------------------
	if cfg.OutputFile != "" {
		dir := filepath.Dir(cfg.OutputFile)
		if fi, err := stat(dir); err != nil {
			res.fail(w, "output directory", err)
		} else if !fi.IsDir() {
			res.fail(w, "output directory", fmt.Errorf("%s is not a directory", dir))
		} else {
			pass(w, "output directory", dir)
		}
	}

	// ---- runtime ----------------------------------------------------------
	if cfg.Workers < 1 {
		res.fail(w, "workers", fmt.Errorf("need at least 1, got %d", cfg.Workers))
	} else {
		pass(w, "workers", fmt.Sprint(cfg.Workers))
	}

	if _, err := logger.ParseLevel(cfg.LogLevel); err != nil {
		res.fail(w, "log level", err)
	} else {
		pass(w, "log level", cfg.LogLevel)
	}

	return res
}

// checkSteps reports how the truncated constants shape one revolution.
func checkSteps(res *Result, w io.Writer, geo geometry.Config) {
	steps := geo.StepsPerRevolution()
	if steps < 2 {
		res.fail(w, "steps per revolution", fmt.Errorf("%d steps cannot form a groove", steps))
		return
	}
	if float64(steps) != geo.ThetaIter {
		res.warn(w, "steps per revolution",
			fmt.Sprintf("%d steps, nominal %g (angular increment truncated to %g)", steps, geo.ThetaIter, geo.IncrNum))
	} else {
		pass(w, "steps per revolution", fmt.Sprint(steps))
	}

	if geo.RadialIncrementVanishes() {
		res.warn(w, "radial increment",
			fmt.Sprintf("truncates to zero at precision %d; turns after the first overlap", geo.Precision))
	} else {
		pass(w, "radial increment", fmt.Sprint(geo.RadIncr))
	}
}

func checkInput(path string, stat StatFunc) error {
	fi, err := stat(path)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".csv" || audio.IsAudioFile(path) {
		return nil
	}
	_, err = audio.FormatOf(path)
	return err
}

// checkWaveform parses a CSV input and reports how much of the record it
// fills.
func checkWaveform(res *Result, w io.Writer, geo geometry.Config, path string, allowOverlap bool) {
	samples, err := waveform.ReadCSVFile(path)
	if err != nil {
		res.fail(w, "input", err)
		return
	}
	if err := waveform.Validate(samples); err != nil {
		res.fail(w, "input", err)
		return
	}

	revs := groove.NewGenerator(geo).Plan(samples)
	if revs == 0 {
		res.warn(w, "input", fmt.Sprintf("%d samples do not fill one revolution; only the flat top is drawn", len(samples)))
		return
	}
	if revs > 1 && geo.RadialIncrementVanishes() {
		if !allowOverlap {
			res.fail(w, "input", fmt.Errorf("%w: %d revolutions at precision %d (raise geometry.precision or set generator.allow_overlap)",
				groove.ErrOverlappingTurns, revs, geo.Precision))
			return
		}
		res.warn(w, "input", fmt.Sprintf("%d samples, %d overlapping revolutions", len(samples), revs))
		return
	}
	pass(w, "input", fmt.Sprintf("%d samples, %d revolutions", len(samples), revs))
}
