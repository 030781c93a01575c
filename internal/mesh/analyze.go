package mesh

// Report summarises the edge structure of a mesh.
type Report struct {
	Vertices int
	Faces    int
	Edges    int

	// BoundaryEdges are used by exactly one face.
	BoundaryEdges int
	// NonManifoldEdges are used by more than two faces.
	NonManifoldEdges int
	// OrientationConflicts counts directed edges that appear in more than one
	// face, i.e. neighbouring faces that disagree on winding.
	OrientationConflicts int
	// DegenerateFaces repeat a vertex index.
	DegenerateFaces int
	// UnusedVertices are referenced by no face.
	UnusedVertices int
}

// Watertight reports whether every edge is shared by exactly two faces.
func (r Report) Watertight() bool {
	return r.Faces > 0 && r.BoundaryEdges == 0 && r.NonManifoldEdges == 0
}

// Oriented reports whether all neighbouring faces agree on winding.
func (r Report) Oriented() bool {
	return r.OrientationConflicts == 0
}

// EulerCharacteristic is V - E + F over the referenced vertices. A closed
// orientable surface of genus g has characteristic 2 - 2g.
func (r Report) EulerCharacteristic() int {
	return (r.Vertices - r.UnusedVertices) - r.Edges + r.Faces
}

type edge [2]Index

func undirected(a, b Index) edge {
	if a > b {
		a, b = b, a
	}
	return edge{a, b}
}

// Analyze walks every face of s and counts edge usage.
func Analyze(s *Store) Report {
	r := Report{Vertices: s.VertexCount(), Faces: s.FaceCount()}

	uses := make(map[edge]int, len(s.faces)*3/2)
	directed := make(map[edge]int, len(s.faces)*3)
	used := make([]bool, len(s.vertices))

	for _, f := range s.faces {
		if f[0] == f[1] || f[1] == f[2] || f[0] == f[2] {
			r.DegenerateFaces++
		}
		for k := range 3 {
			a, b := f[k], f[(k+1)%3]
			used[a] = true
			uses[undirected(a, b)]++
			directed[edge{a, b}]++
		}
	}

	r.Edges = len(uses)
	for _, n := range uses {
		switch {
		case n == 1:
			r.BoundaryEdges++
		case n > 2:
			r.NonManifoldEdges++
		}
	}
	for _, n := range directed {
		if n > 1 {
			r.OrientationConflicts++
		}
	}
	for _, u := range used {
		if !u {
			r.UnusedVertices++
		}
	}

	return r
}

// SignedVolume returns the volume enclosed by the mesh using the divergence
// theorem. It is only meaningful for a closed, consistently oriented mesh;
// outward-facing winding yields a positive value.
func SignedVolume(s *Store) float64 {
	var vol float64
	for _, f := range s.faces {
		t := s.Triangle(f)
		vol += t[0].Dot(t[1].Cross(t[2]))
	}
	return vol / 6
}

// SurfaceArea returns the summed area of all faces.
func SurfaceArea(s *Store) float64 {
	var area float64
	for _, f := range s.faces {
		t := s.Triangle(f)
		area += t[1].Sub(t[0]).Cross(t[2].Sub(t[0])).Len() / 2
	}
	return area
}
