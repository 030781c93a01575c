// Package testutil provides shared fixtures and assertions for tests.
//
// SmallParams describes a toy record with nine angular steps per revolution
// and a radial increment of 0.1, small enough that a full mesh can be
// generated and checked edge by edge in a unit test.
//
// Typical usage:
//
//	func TestMyMesh(t *testing.T) {
//	    cfg := testutil.SmallConfig(t)
//	    store := mesh.NewStore()
//	    ...
//	    testutil.AssertClosedMesh(t, store)
//	}
package testutil

import (
	"os"
	"testing"

	"github.com/BC-Softworks/record-generator/internal/geometry"
)

// SmallStepsPerRevolution is the number of angular steps SmallParams yields.
const SmallStepsPerRevolution = 9

// SmallParams returns a toy record: 8 Hz sampling at 60 RPM gives
// ThetaIter 8, IncrNum 0.7853 and nine steps per revolution.
func SmallParams() geometry.Params {
	return geometry.Params{
		SamplingRate:    8,
		RPM:             60,
		Downsampling:    1,
		Precision:       4,
		Diameter:        10,
		InnerHole:       2,
		InnerRadius:     3,
		OuterRadius:     9,
		RecordHeight:    4,
		MicronsPerLayer: 1000,
		AmplitudeLayers: 0.3,
		DepthLayers:     0.1,
		Bevel:           0.5,
		GrooveWidth:     0.5,
		RateDivisor:     1,
		FloorOffset:     0.25,
	}
}

// SmallConfig derives SmallParams and fails the test on error.
func SmallConfig(tb testing.TB) geometry.Config {
	tb.Helper()

	cfg, err := geometry.Derive(SmallParams())
	if err != nil {
		tb.Fatalf("derive small params: %v", err)
	}
	return cfg
}

// ConstantWaveform returns n copies of v.
func ConstantWaveform(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// RequireFile skips the test if path does not exist. Use it for optional
// fixtures such as sample audio files that are not committed.
func RequireFile(tb testing.TB, path string) {
	tb.Helper()

	if _, err := os.Stat(path); err != nil {
		tb.Skipf("fixture %q not available: %v", path, err)
	}
}
