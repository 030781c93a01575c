// Package mesh holds the canonical triangle mesh: a de-duplicating vertex
// registry and an ordered face list.
package mesh

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	// ErrMalformedVertex is returned when a vertex is built from anything
	// other than three coordinates.
	ErrMalformedVertex = errors.New("malformed vertex")
	// ErrUnregisteredVertex is returned when a face references a vertex that
	// was never added to the store.
	ErrUnregisteredVertex = errors.New("unregistered vertex")
)

// DefaultPrecision is the number of decimals used to build vertex keys.
const DefaultPrecision = 6

// Vertex is a point in model space. Two vertices are the same vertex when
// their coordinates agree at the store's key precision.
type Vertex = mgl64.Vec3

// Index identifies a vertex. Indices are assigned in first-insertion order
// and never change.
type Index int

// Face is one triangle. Winding follows the order of the indices.
type Face [3]Index

// Added is the result of AddVertex. New is false when the vertex was already
// present, in which case Index is the index it was first given.
type Added struct {
	Index Index
	New   bool
}

// NewVertex builds a Vertex from exactly three coordinates.
func NewVertex(coords ...float64) (Vertex, error) {
	if len(coords) != 3 {
		return Vertex{}, fmt.Errorf("%w: %d coordinates", ErrMalformedVertex, len(coords))
	}
	return Vertex{coords[0], coords[1], coords[2]}, nil
}

type key [3]int64

// Store is a mutable mesh. It is not safe for concurrent use; the generator
// owns it exclusively while it runs.
type Store struct {
	scale    float64
	vertices []Vertex
	index    map[key]Index
	faces    []Face
}

// Option configures a Store.
type Option func(*Store)

// WithPrecision sets the number of decimals coordinates are rounded to when
// looking vertices up. Stored coordinates are not rounded.
func WithPrecision(decimals int) Option {
	return func(s *Store) {
		s.scale = math.Pow(10, float64(decimals))
	}
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		scale: math.Pow(10, DefaultPrecision),
		index: make(map[key]Index),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) keyOf(v Vertex) key {
	return key{
		int64(math.Round(v[0] * s.scale)),
		int64(math.Round(v[1] * s.scale)),
		int64(math.Round(v[2] * s.scale)),
	}
}

// AddVertex registers v unless an equal vertex already exists.
func (s *Store) AddVertex(v Vertex) Added {
	k := s.keyOf(v)
	if i, ok := s.index[k]; ok {
		return Added{Index: i}
	}
	i := Index(len(s.vertices))
	s.vertices = append(s.vertices, v)
	s.index[k] = i
	return Added{Index: i, New: true}
}

// AddVertices registers each vertex in order and returns how many were new.
func (s *Store) AddVertices(vs []Vertex) int {
	n := 0
	for _, v := range vs {
		if s.AddVertex(v).New {
			n++
		}
	}
	return n
}

// Lookup returns the index of v.
func (s *Store) Lookup(v Vertex) (Index, bool) {
	i, ok := s.index[s.keyOf(v)]
	return i, ok
}

// AddFace appends the triangle (a, b, c). All three vertices must already be
// registered; otherwise nothing is appended.
func (s *Store) AddFace(a, b, c Vertex) error {
	var f Face
	for n, v := range [3]Vertex{a, b, c} {
		i, ok := s.Lookup(v)
		if !ok {
			return fmt.Errorf("%w: (%g, %g, %g)", ErrUnregisteredVertex, v[0], v[1], v[2])
		}
		f[n] = i
	}
	s.faces = append(s.faces, f)
	return nil
}

// AddFaceIndices appends a triangle by index.
func (s *Store) AddFaceIndices(a, b, c Index) error {
	n := Index(len(s.vertices))
	for _, i := range [3]Index{a, b, c} {
		if i < 0 || i >= n {
			return fmt.Errorf("%w: index %d of %d", ErrUnregisteredVertex, i, n)
		}
	}
	s.faces = append(s.faces, Face{a, b, c})
	return nil
}

// Tristrip zips two parallel rings into a band of triangles. For each i it
// emits (a[i], a[i+1], b[i]) and (b[i], a[i+1], b[i+1]), so each quad is
// split along the a[i+1]-b[i] diagonal and both halves share a winding.
// Rings shorter than two vertices produce nothing.
func (s *Store) Tristrip(a, b []Vertex) (int, error) {
	n := min(len(a), len(b))
	emitted := 0
	for i := 0; i < n-1; i++ {
		if err := s.AddFace(a[i], a[i+1], b[i]); err != nil {
			return emitted, err
		}
		emitted++
		if err := s.AddFace(b[i], a[i+1], b[i+1]); err != nil {
			return emitted, err
		}
		emitted++
	}
	return emitted, nil
}

// VertexCount returns the number of distinct vertices.
func (s *Store) VertexCount() int { return len(s.vertices) }

// FaceCount returns the number of faces.
func (s *Store) FaceCount() int { return len(s.faces) }

// Vertex returns the vertex at index i.
func (s *Store) Vertex(i Index) Vertex { return s.vertices[i] }

// Vertices returns a copy of all vertices ordered by index.
func (s *Store) Vertices() []Vertex {
	return append([]Vertex(nil), s.vertices...)
}

// Faces returns a copy of all faces in insertion order.
func (s *Store) Faces() []Face {
	return append([]Face(nil), s.faces...)
}

// Triangle returns the three corners of face f.
func (s *Store) Triangle(f Face) [3]Vertex {
	return [3]Vertex{s.vertices[f[0]], s.vertices[f[1]], s.vertices[f[2]]}
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min, Max Vertex
}

// Size returns the extent along each axis.
func (b Bounds) Size() Vertex { return b.Max.Sub(b.Min) }

// Bounds returns the bounding box of all vertices. An empty store yields a
// zero box.
func (s *Store) Bounds() Bounds {
	if len(s.vertices) == 0 {
		return Bounds{}
	}
	b := Bounds{Min: s.vertices[0], Max: s.vertices[0]}
	for _, v := range s.vertices[1:] {
		for k := range 3 {
			b.Min[k] = math.Min(b.Min[k], v[k])
			b.Max[k] = math.Max(b.Max[k], v[k])
		}
	}
	return b
}
