// Package waveform reads, writes and normalizes the sample arrays the groove
// generator consumes. On disk a waveform is a single comma-separated record
// of floats.
package waveform

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/BC-Softworks/record-generator/internal/geometry"
)

var (
	// ErrEmptyRecord is returned when the input holds no record at all.
	ErrEmptyRecord = errors.New("waveform: no record in input")
	// ErrMalformedWaveform is returned for samples that are NaN or infinite.
	ErrMalformedWaveform = errors.New("waveform: malformed sample")
)

// ReadCSV parses the first record of r. Empty fields are skipped.
func ReadCSV(r io.Reader) ([]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	record, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyRecord
	}
	if err != nil {
		return nil, fmt.Errorf("waveform: read record: %w", err)
	}

	out := make([]float64, 0, len(record))
	for i, field := range record {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		f, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("waveform: field %d: %w", i, err)
		}
		out = append(out, f)
	}

	return out, nil
}

// ReadCSVFile opens path and parses it with ReadCSV.
func ReadCSVFile(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadCSV(f)
}

// WriteCSV writes samples as one comma-separated record.
func WriteCSV(w io.Writer, samples []float32) error {
	record := make([]string, len(samples))
	for i, s := range samples {
		record[i] = strconv.FormatFloat(float64(s), 'g', -1, 32)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(record); err != nil {
		return fmt.Errorf("waveform: write record: %w", err)
	}
	cw.Flush()

	return cw.Error()
}

// Normalize divides every sample by the square of the largest sample and
// truncates the result to precision decimals. The square keeps the sign of
// every sample, so an all-negative waveform stays negative. Only a zero
// maximum normalizes to silence.
func Normalize(samples []float64, precision int) []float64 {
	out := make([]float64, len(samples))
	if len(samples) == 0 {
		return out
	}

	peak := floats.Max(samples)
	if peak == 0 {
		return out
	}

	copy(out, samples)
	floats.Scale(1/(peak*peak), out)
	for i, s := range out {
		out[i] = geometry.Truncate(s, precision)
	}

	return out
}

// Validate returns ErrMalformedWaveform for the first NaN or infinite sample.
func Validate(samples []float64) error {
	for i, s := range samples {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return fmt.Errorf("%w: index %d is %v", ErrMalformedWaveform, i, s)
		}
	}
	return nil
}

// Float64s widens float32 samples.
func Float64s(samples []float32) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s)
	}
	return out
}
