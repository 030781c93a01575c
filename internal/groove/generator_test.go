package groove

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/BC-Softworks/record-generator/internal/blank"
	"github.com/BC-Softworks/record-generator/internal/geometry"
	"github.com/BC-Softworks/record-generator/internal/mesh"
	"github.com/BC-Softworks/record-generator/internal/testutil"
	"github.com/BC-Softworks/record-generator/internal/waveform"
)

func generate(t *testing.T, cfg geometry.Config, samples []float64, opts ...Option) (*mesh.Store, Result) {
	t.Helper()

	store := mesh.NewStore()
	if err := blank.Build(cfg, store); err != nil {
		t.Fatalf("blank.Build: %v", err)
	}
	res, err := NewGenerator(cfg, opts...).Generate(context.Background(), store, samples)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return store, res
}

// --- Plan ---

func TestPlan(t *testing.T) {
	cfg := testutil.SmallConfig(t)
	g := NewGenerator(cfg)

	tests := []struct {
		name    string
		samples int
		want    int
	}{
		{"empty", 0, 0},
		{"short of one revolution", 8, 0},
		{"one revolution", 9, 1},
		{"three revolutions", 27, 3},
		{"capped by inner radius", 500, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.Plan(make([]float64, tt.samples)); got != tt.want {
				t.Errorf("Plan(%d samples) = %d, want %d", tt.samples, got, tt.want)
			}
		})
	}
}

// --- Generate: closed solid ---

func TestGenerate_ClosedSolid(t *testing.T) {
	cfg := testutil.SmallConfig(t)

	tests := []struct {
		name      string
		samples   []float64
		revs      int
		wantFaces int
	}{
		{"one revolution", testutil.ConstantWaveform(9, 0.05), 1, 144},
		{"three revolutions", testutil.ConstantWaveform(27, 0.05), 3, 252},
		{"silent", testutil.ConstantWaveform(27, 0), 3, 252},
		{"inner radius reached", testutil.ConstantWaveform(500, 0.05), 6, 414},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, res := generate(t, cfg, tt.samples)

			if res.Revolutions != tt.revs {
				t.Fatalf("Revolutions = %d, want %d", res.Revolutions, tt.revs)
			}
			if res.Degenerate {
				t.Error("Degenerate set for a non-empty groove")
			}
			if res.StepsPerRev != testutil.SmallStepsPerRevolution {
				t.Errorf("StepsPerRev = %d", res.StepsPerRev)
			}
			if res.SampleCursor != tt.revs*testutil.SmallStepsPerRevolution {
				t.Errorf("SampleCursor = %d", res.SampleCursor)
			}
			if store.FaceCount() != tt.wantFaces {
				t.Errorf("FaceCount = %d, want %d", store.FaceCount(), tt.wantFaces)
			}

			r := testutil.AssertClosedMesh(t, store)
			if chi := r.EulerCharacteristic(); chi != 0 {
				t.Errorf("Euler characteristic = %d, want 0 (ring-shaped solid)", chi)
			}
			if r.UnusedVertices != 0 {
				t.Errorf("%d unused vertices", r.UnusedVertices)
			}
		})
	}
}

func TestGenerate_Degenerate(t *testing.T) {
	cfg := testutil.SmallConfig(t)

	for _, samples := range [][]float64{nil, testutil.ConstantWaveform(8, 0.5)} {
		store, res := generate(t, cfg, samples)

		if !res.Degenerate || res.Revolutions != 0 {
			t.Fatalf("len %d: Degenerate=%v Revolutions=%d", len(samples), res.Degenerate, res.Revolutions)
		}
		if res.FacesAdded != 2*testutil.SmallStepsPerRevolution {
			t.Errorf("len %d: FacesAdded = %d, want flat top of %d", len(samples), res.FacesAdded, 2*testutil.SmallStepsPerRevolution)
		}
		if res.VerticesAdded != 0 {
			t.Errorf("len %d: VerticesAdded = %d, blank already holds the top rings", len(samples), res.VerticesAdded)
		}
		testutil.AssertClosedMesh(t, store)
	}
}

func TestGenerate_ResultCounts(t *testing.T) {
	cfg := testutil.SmallConfig(t)
	store := mesh.NewStore()

	res, err := NewGenerator(cfg).Generate(context.Background(), store, testutil.ConstantWaveform(27, 0.05))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// Rim and hole rings, the first outer-upper ring and three rings per
	// revolution.
	n := testutil.SmallStepsPerRevolution
	wantVerts := 2*n + n + 3*3*n
	if res.VerticesAdded != wantVerts || store.VertexCount() != wantVerts {
		t.Errorf("VerticesAdded = %d, store = %d, want %d", res.VerticesAdded, store.VertexCount(), wantVerts)
	}
	if res.FacesAdded != store.FaceCount() {
		t.Errorf("FacesAdded = %d, store = %d", res.FacesAdded, store.FaceCount())
	}
	if math.Abs(res.FinalRadius-(cfg.OuterRad-float64(3*n)*cfg.RadIncr)) > 1e-9 {
		t.Errorf("FinalRadius = %v", res.FinalRadius)
	}
}

func TestGenerate_Flat(t *testing.T) {
	cfg := testutil.SmallConfig(t)
	store, _ := generate(t, cfg, testutil.ConstantWaveform(27, 0))

	// A silent waveform produces no horizontal modulation: every groove
	// vertex sits exactly on its nominal circle.
	for _, f := range store.Faces() {
		for _, v := range store.Triangle(f) {
			if v[2] != 0 && v[2] != cfg.RH && v[2] != cfg.RH-cfg.FloorOffset {
				t.Fatalf("vertex %v at unexpected height", v)
			}
		}
	}
}

// --- Generate: concurrency and cancellation ---

func TestGenerate_WorkersMatchSequential(t *testing.T) {
	cfg := testutil.SmallConfig(t)
	samples := make([]float64, 80)
	for i := range samples {
		samples[i] = 0.05 * float64(i%5) / 4
	}

	seq, _ := generate(t, cfg, samples)
	for _, workers := range []int{2, 3, 8} {
		par, _ := generate(t, cfg, samples, WithWorkers(workers))
		if !slices.Equal(seq.Vertices(), par.Vertices()) {
			t.Errorf("workers=%d: vertices differ from sequential run", workers)
		}
		if !slices.Equal(seq.Faces(), par.Faces()) {
			t.Errorf("workers=%d: faces differ from sequential run", workers)
		}
	}
}

func TestGenerate_Progress(t *testing.T) {
	cfg := testutil.SmallConfig(t)

	var got []Progress
	generate(t, cfg, testutil.ConstantWaveform(27, 0.05), WithProgress(func(p Progress) {
		got = append(got, p)
	}))

	if len(got) != 3 {
		t.Fatalf("progress called %d times, want 3", len(got))
	}
	for i, p := range got {
		if p.Revolution != i+1 || p.Planned != 3 {
			t.Errorf("progress[%d] = %+v", i, p)
		}
		if i > 0 && p.Radius >= got[i-1].Radius {
			t.Errorf("radius did not decrease: %v then %v", got[i-1].Radius, p.Radius)
		}
	}
}

func TestGenerate_Cancelled(t *testing.T) {
	cfg := testutil.SmallConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGenerator(cfg).Generate(ctx, mesh.NewStore(), testutil.ConstantWaveform(27, 0.05))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

// --- Generate: errors ---

func TestGenerate_MalformedWaveform(t *testing.T) {
	cfg := testutil.SmallConfig(t)
	samples := testutil.ConstantWaveform(27, 0.05)
	samples[4] = math.NaN()

	store := mesh.NewStore()
	_, err := NewGenerator(cfg).Generate(context.Background(), store, samples)
	if !errors.Is(err, waveform.ErrMalformedWaveform) {
		t.Fatalf("err = %v, want ErrMalformedWaveform", err)
	}
	if store.VertexCount() != 0 {
		t.Errorf("store modified on error: %d vertices", store.VertexCount())
	}
}

func TestGenerate_TooFewSteps(t *testing.T) {
	cfg := testutil.SmallConfig(t)
	cfg.IncrNum = cfg.Tau

	_, err := NewGenerator(cfg).Generate(context.Background(), mesh.NewStore(), nil)
	if !errors.Is(err, ErrTooFewSteps) {
		t.Fatalf("err = %v, want ErrTooFewSteps", err)
	}
}

// --- Generate: default record ---

func TestGenerate_DefaultRecord(t *testing.T) {
	if testing.Short() {
		t.Skip("full-size revolution skipped in short mode")
	}

	cfg, err := geometry.Derive(geometry.DefaultParams())
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}

	pattern := []float64{0.5, 1.0, 0.25}
	samples := make([]float64, 70000)
	for i := range samples {
		samples[i] = pattern[i%len(pattern)]
	}

	core, logs := observer.New(zap.DebugLevel)
	store := mesh.NewStore()
	res, err := NewGenerator(cfg, WithLogger(zap.New(core)), WithWorkers(2)).
		Generate(context.Background(), store, samples)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if res.Revolutions != 1 {
		t.Errorf("Revolutions = %d, want 1", res.Revolutions)
	}
	if store.VertexCount() == 0 || store.FaceCount() == 0 {
		t.Fatalf("empty mesh: %d vertices, %d faces", store.VertexCount(), store.FaceCount())
	}
	if logs.FilterMessage("groove cut").Len() != 1 {
		t.Error("missing summary log entry")
	}
}

func TestGenerate_OverlappingTurns(t *testing.T) {
	cfg := testutil.SmallConfig(t)
	cfg.RadIncr = 0

	tests := []struct {
		name    string
		samples []float64
		allow   bool
		wantErr bool
	}{
		{"several turns rejected", testutil.ConstantWaveform(27, 0), false, true},
		{"several turns allowed", testutil.ConstantWaveform(27, 0), true, false},
		{"single turn never overlaps", testutil.ConstantWaveform(9, 0), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)
			store := mesh.NewStore()
			_, err := NewGenerator(cfg, WithLogger(zap.New(core)), AllowOverlappingTurns(tt.allow)).
				Generate(context.Background(), store, tt.samples)

			if tt.wantErr {
				if !errors.Is(err, ErrOverlappingTurns) {
					t.Fatalf("err = %v, want ErrOverlappingTurns", err)
				}
				if store.FaceCount() != 0 {
					t.Errorf("store has %d faces after rejection", store.FaceCount())
				}
				return
			}
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if tt.allow && logs.Len() == 0 {
				t.Error("expected a warning for overlapping turns")
			}
		})
	}
}
