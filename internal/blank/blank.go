// Package blank builds the ungrooved body of a record: the outer rim wall,
// the flat underside and the wall of the centre hole. Its top rings are the
// same vertices the groove generator stitches its lands to, so a blank plus
// a generated groove forms one closed solid.
package blank

import (
	"fmt"
	"math"

	"github.com/BC-Softworks/record-generator/internal/geometry"
	"github.com/BC-Softworks/record-generator/internal/mesh"
	"github.com/BC-Softworks/record-generator/internal/stl"
)

// Circumference returns one vertex per angular step of cfg on a circle of
// the given radius at height z. Step j sits at cfg.Angle(j), so rings built
// here line up index for index with the groove rings.
func Circumference(cfg geometry.Config, radius, z float64) []mesh.Vertex {
	n := cfg.StepsPerRevolution()
	ring := make([]mesh.Vertex, n)
	for j := range ring {
		theta := cfg.Angle(j)
		ring[j] = mesh.Vertex{radius * math.Cos(theta), radius * math.Sin(theta), z}
	}
	return ring
}

// Closed returns ring with its first vertex repeated at the end.
func Closed(ring []mesh.Vertex) []mesh.Vertex {
	if len(ring) == 0 {
		return nil
	}
	out := make([]mesh.Vertex, 0, len(ring)+1)
	out = append(out, ring...)
	return append(out, ring[0])
}

// Rings are the four circles of the blank.
type Rings struct {
	RimTop, RimBottom, HoleTop, HoleBottom []mesh.Vertex
}

// RingsFor computes the blank's circles for cfg.
func RingsFor(cfg geometry.Config) Rings {
	return Rings{
		RimTop:     Circumference(cfg, cfg.Radius, cfg.RH),
		RimBottom:  Circumference(cfg, cfg.Radius, 0),
		HoleTop:    Circumference(cfg, cfg.HoleRadius, cfg.RH),
		HoleBottom: Circumference(cfg, cfg.HoleRadius, 0),
	}
}

// Build adds the rim wall, underside and hole wall to store, wound so their
// normals face out of the solid. The top face is left open for the groove
// generator.
func Build(cfg geometry.Config, store *mesh.Store) error {
	r := RingsFor(cfg)
	if len(r.RimTop) < 2 {
		return fmt.Errorf("blank: %d angular steps per revolution is too few", len(r.RimTop))
	}

	store.AddVertices(r.RimTop)
	store.AddVertices(r.RimBottom)
	store.AddVertices(r.HoleTop)
	store.AddVertices(r.HoleBottom)

	strips := []struct {
		name string
		a, b []mesh.Vertex
	}{
		{"rim wall", r.RimBottom, r.RimTop},
		{"underside", r.HoleBottom, r.RimBottom},
		{"hole wall", r.HoleTop, r.HoleBottom},
	}
	for _, s := range strips {
		if _, err := store.Tristrip(Closed(s.a), Closed(s.b)); err != nil {
			return fmt.Errorf("blank %s: %w", s.name, err)
		}
	}

	return nil
}

// Load reads a previously exported blank from an STL file into store. The
// groove generator only stitches to it correctly if it was built for the
// same geometry.
func Load(path string, store *mesh.Store) error {
	faces, err := stl.ReadFile(path, store)
	if err != nil {
		return fmt.Errorf("load blank %s: %w", path, err)
	}
	if faces == 0 {
		return fmt.Errorf("load blank %s: %w: no faces", path, stl.ErrInvalidSTL)
	}
	return nil
}

// Matches reports whether store holds every vertex of the blank's top rings
// for cfg, which is what the groove generator stitches its lands to.
func Matches(cfg geometry.Config, store *mesh.Store) bool {
	r := RingsFor(cfg)
	for _, ring := range [][]mesh.Vertex{r.RimTop, r.HoleTop} {
		for _, v := range ring {
			if _, ok := store.Lookup(v); !ok {
				return false
			}
		}
	}
	return true
}
