package scene

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/udhos/gwob"
	"gonum.org/v1/gonum/spatial/r3"
)

// WriteOBJ writes every surface as a separate OBJ group named by its
// handle, translated into scene space, and references its current material
// by name. mtllib is written as a mtllib statement when non-empty. Vertex
// normals are written only when every surface carries one per vertex.
func WriteOBJ(w io.Writer, surfaces []*HeadlessSurface, mtllib string) error {
	withNormals := true
	for _, s := range surfaces {
		if m := s.Renderable.Mesh; m != nil && len(m.Normals) != len(m.Positions) {
			withNormals = false
		}
	}

	o := &gwob.Obj{Mtllib: mtllib, StrideSize: 3 * 4}
	if withNormals {
		o.NormCoordFound = true
		o.StrideOffsetNormal = o.StrideSize
		o.StrideSize += 3 * 4
	}

	base := 0
	for _, s := range surfaces {
		m := s.Renderable.Mesh
		if m == nil {
			continue
		}
		for i, p := range m.Positions {
			p = r3.Add(p, s.Renderable.Translation)
			o.Coord = append(o.Coord, float32(p.X), float32(p.Y), float32(p.Z))
			if withNormals {
				n := m.Normals[i]
				o.Coord = append(o.Coord, float32(n.X), float32(n.Y), float32(n.Z))
			}
		}
		g := &gwob.Group{Name: s.Renderable.Handle.String(), IndexBegin: len(o.Indices)}
		if mat, ok := s.Material(); ok {
			g.Usemtl = mat.Name
		}
		for _, idx := range m.Indices {
			o.Indices = append(o.Indices, idx+base)
		}
		g.IndexCount = len(o.Indices) - g.IndexBegin
		o.Groups = append(o.Groups, g)
		base += len(m.Positions)
	}

	ew := &errWriter{w: bufio.NewWriter(w)}
	if err := o.ToWriter(ew); err != nil {
		return err
	}
	if ew.err != nil {
		return ew.err
	}
	return ew.w.Flush()
}

// errWriter keeps the first write error; gwob does not check them.
type errWriter struct {
	w   *bufio.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}

// WriteMTL writes a material library holding every material of t.
func WriteMTL(w io.Writer, t *MaterialTable) error {
	mats := t.Materials()
	sort.SliceStable(mats, func(i, j int) bool { return mats[i].Name < mats[j].Name })

	bw := bufio.NewWriter(w)
	for _, m := range mats {
		r, g, b := m.Color.Clamped().RGB255()
		fmt.Fprintf(bw, "newmtl %s\nKd %.4f %.4f %.4f\nKe %.4f %.4f %.4f\n\n",
			m.Name,
			float64(r)/255, float64(g)/255, float64(b)/255,
			float64(r)/255, float64(g)/255, float64(b)/255,
		)
	}
	return bw.Flush()
}
