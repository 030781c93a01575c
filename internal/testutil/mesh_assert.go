package testutil

import (
	"encoding/binary"
	"testing"

	"github.com/BC-Softworks/record-generator/internal/mesh"
)

const (
	stlHeaderSize   = 80
	stlTriangleSize = 50
)

// AssertClosedMesh checks that every edge of s is shared by exactly two
// consistently wound faces, that no face is degenerate and that the enclosed
// volume is positive (normals face outward).
func AssertClosedMesh(tb testing.TB, s *mesh.Store) mesh.Report {
	tb.Helper()

	r := mesh.Analyze(s)
	if r.Faces == 0 {
		tb.Fatal("mesh has no faces")
	}
	if !r.Watertight() {
		tb.Fatalf("mesh not watertight: %d boundary edges, %d non-manifold edges",
			r.BoundaryEdges, r.NonManifoldEdges)
	}
	if !r.Oriented() {
		tb.Fatalf("mesh has %d orientation conflicts", r.OrientationConflicts)
	}
	if r.DegenerateFaces != 0 {
		tb.Fatalf("mesh has %d degenerate faces", r.DegenerateFaces)
	}
	if v := mesh.SignedVolume(s); v <= 0 {
		tb.Fatalf("signed volume %g, want > 0", v)
	}

	return r
}

// AssertValidBinarySTL checks the framing of a binary STL file: an 80-byte
// header, a little-endian triangle count and 50 bytes per triangle. It
// returns the triangle count.
func AssertValidBinarySTL(tb testing.TB, data []byte) int {
	tb.Helper()

	if len(data) < stlHeaderSize+4 {
		tb.Fatalf("STL data too short: %d bytes", len(data))
	}

	count := binary.LittleEndian.Uint32(data[stlHeaderSize : stlHeaderSize+4])
	want := stlHeaderSize + 4 + int(count)*stlTriangleSize
	if len(data) != want {
		tb.Fatalf("STL: %d triangles need %d bytes, got %d", count, want, len(data))
	}

	return int(count)
}
