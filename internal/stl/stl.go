// Package stl writes and reads stereolithography meshes.
//
// The binary layout is an 80-byte header, a little-endian uint32 triangle
// count and 50 bytes per triangle: a float32 normal, three float32 vertices
// and a uint16 attribute word. It is encoded and decoded by
// github.com/hschendel/stl. The ASCII form is the usual solid/facet/outer
// loop text, written and parsed here at full float64 precision so a blank
// exported as ASCII lines up exactly with freshly generated rings.
package stl

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	hstl "github.com/hschendel/stl"

	"github.com/BC-Softworks/record-generator/internal/mesh"
)

var (
	// ErrTruncated is returned when a binary STL ends before its declared
	// triangle count.
	ErrTruncated = errors.New("stl: truncated file")
	// ErrInvalidSTL is returned for input that is neither ASCII nor binary STL.
	ErrInvalidSTL = errors.New("stl: invalid file")
)

const (
	headerSize   = 80
	triangleSize = 50
)

// Format selects the STL encoding.
type Format int

const (
	Binary Format = iota
	ASCII
)

func (f Format) String() string {
	switch f {
	case Binary:
		return "binary"
	case ASCII:
		return "ascii"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Normal returns the unit normal of the triangle (a, b, c) following the
// right-hand rule, or the zero vector for a degenerate triangle.
func Normal(a, b, c mesh.Vertex) mgl64.Vec3 {
	n := b.Sub(a).Cross(c.Sub(a))
	if n.Len() == 0 {
		return mgl64.Vec3{}
	}
	return n.Normalize()
}

func vec32(v mgl64.Vec3) hstl.Vec3 {
	return hstl.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
}

// WriteBinary writes every face of store as a binary STL. header is
// truncated or zero-padded to 80 bytes.
func WriteBinary(w io.Writer, store *mesh.Store, header string) error {
	hdr := make([]byte, headerSize)
	copy(hdr, header)

	solid := &hstl.Solid{
		BinaryHeader: hdr,
		Triangles:    make([]hstl.Triangle, 0, store.FaceCount()),
	}
	for _, f := range store.Faces() {
		tri := store.Triangle(f)
		t := hstl.Triangle{Normal: vec32(Normal(tri[0], tri[1], tri[2]))}
		for k, v := range tri {
			t.Vertices[k] = vec32(v)
		}
		solid.AppendTriangle(t)
	}

	if err := solid.WriteAll(w); err != nil {
		return fmt.Errorf("stl: write binary: %w", err)
	}
	return nil
}

// WriteASCII writes every face of store as an ASCII STL solid called name.
func WriteASCII(w io.Writer, store *mesh.Store, name string) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "solid %s\n", name)
	for _, f := range store.Faces() {
		tri := store.Triangle(f)
		n := Normal(tri[0], tri[1], tri[2])
		fmt.Fprintf(bw, "  facet normal %g %g %g\n", n[0], n[1], n[2])
		fmt.Fprintln(bw, "    outer loop")
		for _, v := range tri {
			fmt.Fprintf(bw, "      vertex %g %g %g\n", v[0], v[1], v[2])
		}
		fmt.Fprintln(bw, "    endloop")
		fmt.Fprintln(bw, "  endfacet")
	}
	fmt.Fprintf(bw, "endsolid %s\n", name)

	return bw.Flush()
}

// WriteFile writes store to path in the given format.
func WriteFile(path string, store *mesh.Store, format Format) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	bw := bufio.NewWriter(f)
	switch format {
	case Binary:
		err = WriteBinary(bw, store, "record-generator")
	case ASCII:
		err = WriteASCII(bw, store, "record")
	default:
		return fmt.Errorf("stl: unknown format %v", format)
	}
	if err != nil {
		return err
	}

	return bw.Flush()
}

// Read parses an ASCII or binary STL from r and adds its triangles to store.
// Shared vertices are merged by the store. It returns the number of faces
// added.
func Read(r io.Reader, store *mesh.Store) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("stl: read: %w", err)
	}

	if isBinary(data) {
		return readBinary(data, store)
	}
	if isASCII(data) {
		return readASCII(data, store)
	}
	if len(data) >= headerSize+4 {
		count := uint64(binary.LittleEndian.Uint32(data[headerSize:]))
		if uint64(len(data)) < headerSize+4+count*triangleSize {
			return 0, ErrTruncated
		}
	}

	return 0, ErrInvalidSTL
}

// ReadFile opens path and parses it with Read.
func ReadFile(path string, store *mesh.Store) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	return Read(bufio.NewReader(f), store)
}

func isBinary(data []byte) bool {
	if len(data) < headerSize+4 {
		return false
	}
	count := binary.LittleEndian.Uint32(data[headerSize:])
	return uint64(len(data)) == headerSize+4+uint64(count)*triangleSize
}

func isASCII(data []byte) bool {
	head := strings.TrimSpace(string(data[:min(len(data), 512)]))
	return strings.HasPrefix(head, "solid") && strings.Contains(string(data), "endsolid")
}

// storeWriter receives decoded binary triangles and merges their corners
// into a store.
type storeWriter struct {
	store *mesh.Store
	faces int
	err   error
}

func (w *storeWriter) SetName(string)          {}
func (w *storeWriter) SetBinaryHeader([]byte)  {}
func (w *storeWriter) SetASCII(bool)           {}
func (w *storeWriter) SetTriangleCount(uint32) {}

func (w *storeWriter) AppendTriangle(t hstl.Triangle) {
	if w.err != nil {
		return
	}
	var f mesh.Face
	for k, v := range t.Vertices {
		f[k] = w.store.AddVertex(mesh.Vertex{float64(v[0]), float64(v[1]), float64(v[2])}).Index
	}
	if err := w.store.AddFaceIndices(f[0], f[1], f[2]); err != nil {
		w.err = err
		return
	}
	w.faces++
}

func readBinary(data []byte, store *mesh.Store) (int, error) {
	sw := &storeWriter{store: store}
	if err := hstl.CopyAll(bytes.NewReader(data), sw); err != nil {
		return sw.faces, fmt.Errorf("%w: %v", ErrInvalidSTL, err)
	}
	return sw.faces, sw.err
}

func readASCII(data []byte, store *mesh.Store) (int, error) {
	sc := bufio.NewScanner(strings.NewReader(string(data)))

	var (
		loop  []mesh.Vertex
		faces int
		line  int
	)
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "outer":
			loop = loop[:0]
		case "vertex":
			if len(fields) != 4 {
				return faces, fmt.Errorf("%w: line %d: vertex needs 3 coordinates", ErrInvalidSTL, line)
			}
			var v mesh.Vertex
			for i := range v {
				if _, err := fmt.Sscan(fields[i+1], &v[i]); err != nil {
					return faces, fmt.Errorf("%w: line %d: %v", ErrInvalidSTL, line, err)
				}
			}
			loop = append(loop, v)
		case "endloop":
			if len(loop) != 3 {
				return faces, fmt.Errorf("%w: line %d: facet has %d vertices", ErrInvalidSTL, line, len(loop))
			}
			var f mesh.Face
			for k, v := range loop {
				f[k] = store.AddVertex(v).Index
			}
			if err := store.AddFaceIndices(f[0], f[1], f[2]); err != nil {
				return faces, err
			}
			faces++
		}
	}
	if err := sc.Err(); err != nil {
		return faces, fmt.Errorf("stl: scan: %w", err)
	}

	return faces, nil
}
