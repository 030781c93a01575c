package blank

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/BC-Softworks/record-generator/internal/mesh"
	"github.com/BC-Softworks/record-generator/internal/stl"
	"github.com/BC-Softworks/record-generator/internal/testutil"
)

func TestCircumference(t *testing.T) {
	cfg := testutil.SmallConfig(t)
	ring := Circumference(cfg, 5, 1.5)

	if len(ring) != testutil.SmallStepsPerRevolution {
		t.Fatalf("len = %d, want %d", len(ring), testutil.SmallStepsPerRevolution)
	}
	for j, v := range ring {
		if r := math.Hypot(v[0], v[1]); math.Abs(r-5) > 1e-9 {
			t.Errorf("ring[%d] radius = %v", j, r)
		}
		if v[2] != 1.5 {
			t.Errorf("ring[%d] z = %v", j, v[2])
		}
		if got := math.Atan2(v[1], v[0]); math.Abs(math.Remainder(got-cfg.Angle(j), 2*math.Pi)) > 1e-9 {
			t.Errorf("ring[%d] angle = %v, want %v", j, got, cfg.Angle(j))
		}
	}
}

func TestClosed(t *testing.T) {
	if Closed(nil) != nil {
		t.Error("Closed(nil) should be nil")
	}

	ring := []mesh.Vertex{{1, 0, 0}, {0, 1, 0}}
	got := Closed(ring)
	if len(got) != 3 || got[2] != ring[0] {
		t.Errorf("Closed = %v", got)
	}
	if len(ring) != 2 {
		t.Error("input ring modified")
	}
}

func TestBuild_OpenTop(t *testing.T) {
	cfg := testutil.SmallConfig(t)
	s := mesh.NewStore()
	if err := Build(cfg, s); err != nil {
		t.Fatalf("Build: %v", err)
	}

	n := testutil.SmallStepsPerRevolution
	if s.VertexCount() != 4*n {
		t.Errorf("vertices = %d, want %d", s.VertexCount(), 4*n)
	}
	if s.FaceCount() != 3*2*n {
		t.Errorf("faces = %d, want %d", s.FaceCount(), 3*2*n)
	}

	r := mesh.Analyze(s)
	if r.BoundaryEdges != 2*n {
		t.Errorf("boundary edges = %d, want %d (rim and hole top rings)", r.BoundaryEdges, 2*n)
	}
	if !r.Oriented() {
		t.Errorf("%d orientation conflicts", r.OrientationConflicts)
	}

	b := s.Bounds()
	if b.Min[2] != 0 || b.Max[2] != cfg.RH {
		t.Errorf("z bounds = [%v, %v], want [0, %v]", b.Min[2], b.Max[2], cfg.RH)
	}
}

func TestBuild_FlatTopClosesSolid(t *testing.T) {
	cfg := testutil.SmallConfig(t)
	s := mesh.NewStore()
	if err := Build(cfg, s); err != nil {
		t.Fatalf("Build: %v", err)
	}

	r := RingsFor(cfg)
	if _, err := s.Tristrip(Closed(r.RimTop), Closed(r.HoleTop)); err != nil {
		t.Fatal(err)
	}

	rep := testutil.AssertClosedMesh(t, s)
	if rep.EulerCharacteristic() != 0 {
		t.Errorf("Euler characteristic = %d, want 0", rep.EulerCharacteristic())
	}

	// Prism over the polygonal annulus.
	area := func(ring []mesh.Vertex) float64 {
		a := 0.0
		c := Closed(ring)
		for i := range ring {
			a += c[i][0]*c[i+1][1] - c[i+1][0]*c[i][1]
		}
		return a / 2
	}
	want := (area(r.RimTop) - area(r.HoleTop)) * cfg.RH
	if got := mesh.SignedVolume(s); math.Abs(got-want) > 1e-9*want {
		t.Errorf("volume = %v, want about %v", got, want)
	}
}

func TestBuild_TooFewSteps(t *testing.T) {
	cfg := testutil.SmallConfig(t)
	cfg.IncrNum = cfg.Tau

	if err := Build(cfg, mesh.NewStore()); err == nil {
		t.Error("expected error for a single-step revolution")
	}
}

func TestLoad(t *testing.T) {
	cfg := testutil.SmallConfig(t)
	built := mesh.NewStore()
	if err := Build(cfg, built); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "blank.stl")
	if err := stl.WriteFile(path, built, stl.ASCII); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	loaded := mesh.NewStore()
	if err := Load(path, loaded); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.FaceCount() != built.FaceCount() || loaded.VertexCount() != built.VertexCount() {
		t.Errorf("loaded %d faces / %d vertices, want %d / %d",
			loaded.FaceCount(), loaded.VertexCount(), built.FaceCount(), built.VertexCount())
	}
	if !Matches(cfg, loaded) {
		t.Error("loaded blank does not match its own geometry")
	}

	otherCfg := testutil.SmallConfig(t)
	otherCfg.Radius = 9.5
	if Matches(otherCfg, loaded) {
		t.Error("blank matched a different record radius")
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	if err := Load(filepath.Join(dir, "missing.stl"), mesh.NewStore()); err == nil {
		t.Error("expected error for missing file")
	}

	empty := filepath.Join(dir, "empty.stl")
	if err := os.WriteFile(empty, []byte("solid e\nendsolid e\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Load(empty, mesh.NewStore()); err == nil {
		t.Error("expected error for a blank without faces")
	}
}
