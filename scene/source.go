package scene

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/udhos/gwob"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/neuromesh/model"
)

// ReadOBJ parses the vertex and face records of a Wavefront OBJ stream.
// Triangles and quads are accepted; quads are split along their v0-v2
// diagonal. Vertices are numbered in the order faces first reference them
// and unreferenced vertices are dropped. Texture and normal references,
// groups and materials are ignored. Malformed records are errors; unknown
// statements are skipped.
func ReadOBJ(r io.Reader) (model.SourceMesh, error) {
	var m model.SourceMesh
	var bad []string
	opts := &gwob.ObjParserOptions{
		IgnoreNormals: true,
		Logger: func(msg string) {
			if strings.HasSuffix(msg, ": unexpected") {
				return
			}
			if strings.HasPrefix(msg, "readLines: ") || strings.HasPrefix(msg, "scanLines: ") {
				bad = append(bad, msg)
			}
		},
	}
	o, err := gwob.NewObjFromReader("obj", r, opts)
	if err != nil {
		return m, fmt.Errorf("read obj: %w", err)
	}
	if len(bad) > 0 {
		return m, fmt.Errorf("obj: %s", bad[0])
	}

	n := o.NumberOfElements()
	m.Positions = make([]r3.Vec, n)
	for i := range n {
		x, y, z := o.VertexCoordinates(i)
		m.Positions[i] = r3.Vec{X: float64(x), Y: float64(y), Z: float64(z)}
	}
	m.Faces = make([][3]int, 0, len(o.Indices)/3)
	for i := 0; i+2 < len(o.Indices); i += 3 {
		m.Faces = append(m.Faces, [3]int{o.Indices[i], o.Indices[i+1], o.Indices[i+2]})
	}
	if err := m.Validate(); err != nil {
		return m, fmt.Errorf("obj: %w", err)
	}
	return m, nil
}

// LoadOBJ reads an OBJ file.
func LoadOBJ(path string) (model.SourceMesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.SourceMesh{}, err
	}
	defer f.Close()
	m, err := ReadOBJ(f)
	if err != nil {
		return m, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Icosphere returns a unit icosahedron subdivided the given number of times,
// with every new vertex pushed out onto the sphere.
func Icosphere(subdivisions int) model.SourceMesh {
	const (
		x = .525731112119133606
		z = .850650808352039932
	)
	verts := []r3.Vec{
		{X: -x, Z: z}, {X: x, Z: z}, {X: -x, Z: -z}, {X: x, Z: -z},
		{Y: z, Z: x}, {Y: z, Z: -x}, {Y: -z, Z: x}, {Y: -z, Z: -x},
		{X: z, Y: x}, {X: -z, Y: x}, {X: z, Y: -x}, {X: -z, Y: -x},
	}
	faces := [][3]int{
		{0, 1, 4}, {0, 4, 9}, {9, 4, 5}, {4, 8, 5},
		{4, 1, 8}, {8, 1, 10}, {8, 10, 3}, {5, 8, 3},
		{5, 3, 2}, {2, 3, 7}, {7, 3, 10}, {7, 10, 6},
		{7, 6, 11}, {11, 6, 0}, {0, 6, 1}, {6, 10, 1},
		{9, 11, 0}, {9, 2, 11}, {9, 5, 2}, {7, 11, 2},
	}
	for i := 0; i < subdivisions; i++ {
		verts, faces = subdivide(verts, faces)
	}
	return model.SourceMesh{Positions: verts, Faces: faces}
}

func subdivide(verts []r3.Vec, faces [][3]int) ([]r3.Vec, [][3]int) {
	mids := make(map[[2]int]int)
	mid := func(a, b int) int {
		key := [2]int{a, b}
		if a > b {
			key = [2]int{b, a}
		}
		if i, ok := mids[key]; ok {
			return i
		}
		verts = append(verts, r3.Unit(r3.Add(verts[a], verts[b])))
		mids[key] = len(verts) - 1
		return len(verts) - 1
	}

	out := make([][3]int, 0, 4*len(faces))
	for _, f := range faces {
		ab, bc, ca := mid(f[0], f[1]), mid(f[1], f[2]), mid(f[2], f[0])
		out = append(out,
			[3]int{f[0], ab, ca},
			[3]int{f[1], bc, ab},
			[3]int{f[2], ca, bc},
			[3]int{ab, bc, ca},
		)
	}
	return verts, out
}
