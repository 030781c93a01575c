package doctor

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BC-Softworks/record-generator/internal/audio"
	"github.com/BC-Softworks/record-generator/internal/geometry"
)

func TestCheckInput(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"wave.csv", "wave.CSV", "song.wav", "song.aiff", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("0"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	tests := []struct {
		name    string
		file    string
		wantErr error
	}{
		{"csv", "wave.csv", nil},
		{"upper-case csv", "wave.CSV", nil},
		{"wav", "song.wav", nil},
		{"aiff", "song.aiff", nil},
		{"text", "notes.txt", audio.ErrUnsupportedFormat},
		{"missing", "gone.csv", os.ErrNotExist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkInput(filepath.Join(dir, tt.file), os.Stat)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("checkInput(%q) error: %v", tt.file, err)
				}

				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("checkInput(%q) = %v; want %v", tt.file, err, tt.wantErr)
			}
		})
	}
}

func TestCheckSteps(t *testing.T) {
	tests := []struct {
		name      string
		cfg       geometry.Config
		wantFail  bool
		wantWarns int
	}{
		{
			name:      "exact step count",
			cfg:       geometry.Config{Tau: 6, IncrNum: 1, ThetaIter: 6, RadIncr: 0.1},
			wantWarns: 0,
		},
		{
			name:      "truncated increment adds a step",
			cfg:       geometry.Config{Tau: 6.2831, IncrNum: 0.7853, ThetaIter: 8, RadIncr: 0.1},
			wantWarns: 1,
		},
		{
			name:      "vanishing radial increment",
			cfg:       geometry.Config{Tau: 6, IncrNum: 1, ThetaIter: 6, RadIncr: 0},
			wantWarns: 1,
		},
		{
			name:     "single step",
			cfg:      geometry.Config{Tau: 6, IncrNum: 6, ThetaIter: 1},
			wantFail: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				res Result
				out strings.Builder
			)
			checkSteps(&res, &out, tt.cfg)

			if res.Failed() != tt.wantFail {
				t.Errorf("Failed() = %v; want %v (%v)", res.Failed(), tt.wantFail, res.Failures())
			}

			if got := len(res.Warnings()); got != tt.wantWarns {
				t.Errorf("warnings = %v; want %d", res.Warnings(), tt.wantWarns)
			}
		})
	}
}
