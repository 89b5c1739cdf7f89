package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Render groups. A renderer assigns one material per group.
const (
	GroupTorso  = 0
	GroupTop    = 1
	GroupBottom = 2
)

// Group is a contiguous run of Indices drawn with one material.
type Group struct {
	Start         int
	Count         int
	MaterialIndex int
}

// Mesh is an indexed triangle surface.
type Mesh struct {
	Positions []r3.Vec
	Normals   []r3.Vec
	UVs       [][2]float64
	// Indices holds three entries per triangle.
	Indices []int
	Groups  []Group

	// Centerline is the resampled spine the torso rings are placed on.
	// Tubes only.
	Centerline []r3.Vec

	tube *tubeLayout
}

// tubeLayout remembers what Morph needs to re-bend a tube.
type tubeLayout struct {
	radial, vertical      int
	hasTop, flatTop       bool
	hasBottom, flatBottom bool
	closed                bool
	rings                 [][]planar
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int { return len(m.Positions) }

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int { return len(m.Indices) / 3 }

// Triangle returns the corners of triangle i.
func (m *Mesh) Triangle(i int) r3.Triangle {
	return r3.Triangle{
		m.Positions[m.Indices[3*i]],
		m.Positions[m.Indices[3*i+1]],
		m.Positions[m.Indices[3*i+2]],
	}
}

// TorsoVertex returns the index of the torso vertex on ring i at column j,
// or -1 when m is not a tube or the ring or column is out of range.
func (m *Mesh) TorsoVertex(i, j int) int {
	l := m.tube
	if l == nil || i < 0 || i > l.vertical || j < 0 || j > l.radial {
		return -1
	}
	return (l.radial+1)*i + j
}

// topBase and bottomBase are the indices of the cap centers; each is followed
// by its ring of radial+1 vertices.
func (l *tubeLayout) topBase() int { return (l.radial + 1) * (l.vertical + 1) }

func (l *tubeLayout) bottomBase() int {
	if l.hasTop {
		return l.topBase() + l.radial + 2
	}
	return l.topBase()
}

func (l *tubeLayout) vertexCount() int {
	n := (l.radial + 1) * (l.vertical + 1)
	if l.hasTop {
		n += l.radial + 2
	}
	if l.hasBottom {
		n += l.radial + 2
	}
	return n
}

// newTemplate lays out indices, groups and UVs for a tube. Positions are
// filled in by Morph.
func newTemplate(l *tubeLayout, symmetric bool) *Mesh {
	m := &Mesh{tube: l}
	n := l.vertexCount()
	m.Positions = make([]r3.Vec, n)
	m.Normals = make([]r3.Vec, n)
	m.UVs = make([][2]float64, 0, n)

	half := float64(l.radial) / 2
	for y := 0; y <= l.vertical; y++ {
		v := 1 - float64(y)/float64(l.vertical)
		for x := 0; x <= l.radial; x++ {
			u := float64(x) / float64(l.radial)
			if symmetric {
				// Each half of the ring carries the whole texture, mirrored.
				if float64(x) <= half {
					u = float64(x) / half
				} else {
					u = float64(l.radial-x) / half
				}
			}
			m.UVs = append(m.UVs, [2]float64{u, v})
		}
	}

	count := 0
	for i := 0; i < l.radial; i++ {
		for j := 0; j < l.vertical; j++ {
			a := (l.radial+1)*j + i
			b := (l.radial+1)*(j+1) + i
			c := b + 1
			d := a + 1
			m.Indices = append(m.Indices, a, b, d, b, c, d)
			count += 6
		}
	}
	m.Groups = append(m.Groups, Group{Start: 0, Count: count, MaterialIndex: GroupTorso})

	if l.hasTop {
		m.addCap(l.topBase(), true)
	}
	if l.hasBottom {
		m.addCap(l.bottomBase(), false)
	}
	return m
}

func (m *Mesh) addCap(center int, top bool) {
	start := len(m.Indices)
	m.UVs = append(m.UVs, [2]float64{0.5, 0.5})
	for x := 0; x <= m.tube.radial; x++ {
		m.UVs = append(m.UVs, [2]float64{})
	}
	for x := 1; x <= m.tube.radial; x++ {
		i := center + x
		if top {
			m.Indices = append(m.Indices, i, i+1, center)
		} else {
			m.Indices = append(m.Indices, i+1, i, center)
		}
	}
	group := GroupBottom
	if top {
		group = GroupTop
	}
	m.Groups = append(m.Groups, Group{Start: start, Count: len(m.Indices) - start, MaterialIndex: group})
}

// capUVs projects a cap ring onto the unit square using the extents of its
// cross-section.
func (m *Mesh) capUVs(center int, rp []planar, top bool) {
	var xMax, zMax float64
	for _, p := range rp {
		xMax = math.Max(xMax, math.Abs(p.x))
		zMax = math.Max(zMax, math.Abs(p.z))
	}
	if xMax == 0 {
		xMax = 1
	}
	if zMax == 0 {
		zMax = 1
	}
	sign := 1.0
	if top {
		sign = -1
	}
	for j, p := range rp {
		m.UVs[center+1+j] = [2]float64{0.5 + sign*p.z/zMax/2, 0.5 - p.x/xMax/2}
	}
}

// Morph places every ring along centers, which must hold one point per
// ring, then recomputes normals and repairs seams.
func (m *Mesh) Morph(centers []r3.Vec) error {
	l := m.tube
	if l == nil {
		return fmt.Errorf("morph: %w: mesh is not a tube", ErrMalformedDesign)
	}
	if len(centers) != l.vertical+1 {
		return fmt.Errorf("morph: %w: %d centers for %d rings", ErrMalformedDesign, len(centers), l.vertical+1)
	}
	for i := 1; i < len(centers); i++ {
		if centers[i] == centers[i-1] {
			return fmt.Errorf("morph: %w: rings %d and %d share a center", ErrMalformedDesign, i-1, i)
		}
	}

	normal := r3.Vec{Z: -1}
	for i := 0; i <= l.vertical; i++ {
		var tangent r3.Vec
		switch {
		case i == 0:
			tangent = r3.Sub(centers[1], centers[0])
		case i == l.vertical:
			tangent = r3.Sub(centers[i], centers[i-1])
		default:
			tangent = r3.Sub(centers[i+1], centers[i-1])
		}

		binormal := r3.Cross(normal, tangent)
		if r3.Norm(binormal) < 1e-12*r3.Norm(tangent) {
			binormal = r3.Cross(perpendicularSeed(tangent), tangent)
		}
		normal = r3.Unit(r3.Cross(tangent, binormal))
		binormal = r3.Unit(binormal)

		for j, p := range l.rings[i] {
			off := r3.Add(r3.Scale(p.x, binormal), r3.Scale(p.z, normal))
			m.Positions[m.TorsoVertex(i, j)] = r3.Add(centers[i], off)
		}
	}

	if l.hasTop {
		base := l.topBase()
		m.Positions[base] = centers[0]
		for j := 0; j <= l.radial; j++ {
			m.Positions[base+1+j] = m.Positions[m.TorsoVertex(0, j)]
		}
	}
	if l.hasBottom {
		base := l.bottomBase()
		m.Positions[base] = centers[l.vertical]
		for j := 0; j <= l.radial; j++ {
			m.Positions[base+1+j] = m.Positions[m.TorsoVertex(l.vertical, j)]
		}
	}

	m.Centerline = append(m.Centerline[:0], centers...)
	m.ComputeNormals()
	m.repairSeams()
	return nil
}

// perpendicularSeed returns the coordinate axis least aligned with v.
func perpendicularSeed(v r3.Vec) r3.Vec {
	ax, ay, az := math.Abs(v.X), math.Abs(v.Y), math.Abs(v.Z)
	switch {
	case ax <= ay && ax <= az:
		return r3.Vec{X: 1}
	case ay <= az:
		return r3.Vec{Y: 1}
	default:
		return r3.Vec{Z: 1}
	}
}

// ComputeNormals sets every vertex normal to the area-weighted average of
// the normals of the triangles sharing it.
func (m *Mesh) ComputeNormals() {
	for i := range m.Normals {
		m.Normals[i] = r3.Vec{}
	}
	for t := 0; t < m.TriangleCount(); t++ {
		n := m.Triangle(t).Normal()
		for k := 0; k < 3; k++ {
			idx := m.Indices[3*t+k]
			m.Normals[idx] = r3.Add(m.Normals[idx], n)
		}
	}
	for i, n := range m.Normals {
		if l := r3.Norm(n); l > 0 {
			m.Normals[i] = r3.Scale(1/l, n)
		}
	}
}

// repairSeams blends normals where the surface is continuous but the
// vertices are not shared: the ring seam of closed sections and the rim of
// rounded caps.
func (m *Mesh) repairSeams() {
	l := m.tube
	if l.closed {
		for i := 0; i <= l.vertical; i++ {
			m.blendNormals(m.TorsoVertex(i, 0), m.TorsoVertex(i, l.radial))
		}
	}
	if l.hasTop && !l.flatTop {
		base := l.topBase()
		for j := 0; j <= l.radial; j++ {
			m.blendNormals(base+1+j, m.TorsoVertex(0, j))
		}
	}
	if l.hasBottom && !l.flatBottom {
		base := l.bottomBase()
		for j := 0; j <= l.radial; j++ {
			m.blendNormals(m.TorsoVertex(l.vertical, j), base+1+j)
		}
	}
}

func (m *Mesh) blendNormals(a, b int) {
	n := r3.Add(m.Normals[a], m.Normals[b])
	if l := r3.Norm(n); l > 0 {
		n = r3.Scale(1/l, n)
	}
	m.Normals[a] = n
	m.Normals[b] = n
}
