package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func uniformDesign(caps string, r float64, centers ...r3.Vec) Design {
	d := Design{Header: Header{
		VerticalSegments: 1,
		AngularSegments:  4,
		Caps:             caps,
		Angles:           []float64{0, 90, 180, 270},
		Sweep:            360,
	}}
	for _, c := range centers {
		d.Sections = append(d.Sections, Section{Center: c, Radii: []float64{r, r, r, r}})
	}
	return d
}

func synapseHeader() Header {
	return Header{
		VerticalSegments: 18,
		AngularSegments:  8,
		Caps:             "ffc",
		Angles:           []float64{0, 60, 120, 180, 240, 300},
	}
}

func TestBuild_UniformRadiusRoundTrip(t *testing.T) {
	const r = 0.7
	cases := map[string][2]r3.Vec{
		"along z":  {{}, {Z: 5}},
		"diagonal": {{X: 1, Y: -2, Z: 0.5}, {X: 4, Y: 2, Z: -1}},
		"along x":  {{}, {X: 3}},
	}
	for name, ends := range cases {
		t.Run(name, func(t *testing.T) {
			m, err := Build(uniformDesign("xxc", r, ends[0], ends[1]))
			require.NoError(t, err)
			require.Len(t, m.Centerline, 2)

			for i := 0; i <= 1; i++ {
				for j := 0; j <= 4; j++ {
					p := m.Positions[m.TorsoVertex(i, j)]
					assert.InDelta(t, r, r3.Norm(r3.Sub(p, m.Centerline[i])), 1e-9, "ring %d column %d", i, j)
				}
			}
			assert.InDelta(t, 0, r3.Norm(r3.Sub(m.Centerline[0], ends[0])), 1e-9)
			assert.InDelta(t, 0, r3.Norm(r3.Sub(m.Centerline[1], ends[1])), 1e-9)
		})
	}
}

func TestBuild_RingsArePerpendicularToSpine(t *testing.T) {
	m, err := Build(uniformDesign("ffc", 1, r3.Vec{}, r3.Vec{X: 2, Y: 2, Z: 1}))
	require.NoError(t, err)
	tangent := r3.Unit(r3.Sub(m.Centerline[1], m.Centerline[0]))
	for i := 0; i <= 1; i++ {
		for j := 0; j <= 4; j++ {
			off := r3.Sub(m.Positions[m.TorsoVertex(i, j)], m.Centerline[i])
			assert.InDelta(t, 0, r3.Dot(off, tangent), 1e-9)
		}
	}
}

func TestBuild_Topology(t *testing.T) {
	d := Design{Header: synapseHeader()}
	for i := 0; i <= 6; i++ {
		d.Sections = append(d.Sections, Section{
			Center: r3.Vec{X: float64(i), Y: math.Sin(float64(i))},
			Radii:  []float64{0.08, 0.08, 0.08, 0.08, 0.08, 0.08},
		})
	}
	m, err := Build(d)
	require.NoError(t, err)

	// 19 rings of 9, plus two caps of a center and 9 ring vertices.
	assert.Equal(t, 19*9+2*10, m.VertexCount())
	assert.Equal(t, 2*8*18+2*8, m.TriangleCount())
	assert.Len(t, m.Normals, m.VertexCount())
	assert.Len(t, m.UVs, m.VertexCount())

	require.Len(t, m.Groups, 3)
	assert.Equal(t, Group{Start: 0, Count: 6 * 8 * 18, MaterialIndex: GroupTorso}, m.Groups[0])
	assert.Equal(t, Group{Start: 6 * 8 * 18, Count: 24, MaterialIndex: GroupTop}, m.Groups[1])
	assert.Equal(t, Group{Start: 6*8*18 + 24, Count: 24, MaterialIndex: GroupBottom}, m.Groups[2])

	for _, idx := range m.Indices {
		require.True(t, idx >= 0 && idx < m.VertexCount(), "index %d out of range", idx)
	}
	for i, n := range m.Normals {
		assert.InDelta(t, 1, r3.Norm(n), 1e-9, "normal %d", i)
	}
}

func TestBuild_CentersAndCapsFollowSpine(t *testing.T) {
	d := Design{Header: synapseHeader()}
	centers := []r3.Vec{{}, {X: 1, Y: 1}, {X: 2}}
	for _, c := range centers {
		d.Sections = append(d.Sections, Section{Center: c, Radii: []float64{0.1, 0.1, 0.1, 0.1, 0.1, 0.1}})
	}
	m, err := Build(d)
	require.NoError(t, err)
	require.Len(t, m.Centerline, 19)

	assert.InDelta(t, 0, r3.Norm(r3.Sub(m.Centerline[0], centers[0])), 1e-9)
	assert.InDelta(t, 0, r3.Norm(r3.Sub(m.Centerline[18], centers[2])), 1e-6)

	// Equal arc-length steps: chords are close to uniform.
	first := r3.Norm(r3.Sub(m.Centerline[1], m.Centerline[0]))
	for i := 1; i < 18; i++ {
		step := r3.Norm(r3.Sub(m.Centerline[i+1], m.Centerline[i]))
		assert.InEpsilon(t, first, step, 0.02, "step %d", i)
	}

	top := m.tube.topBase()
	bottom := m.tube.bottomBase()
	assert.Equal(t, m.Centerline[0], m.Positions[top])
	assert.Equal(t, m.Centerline[18], m.Positions[bottom])
	for j := 0; j <= 8; j++ {
		assert.Equal(t, m.Positions[m.TorsoVertex(0, j)], m.Positions[top+1+j])
		assert.Equal(t, m.Positions[m.TorsoVertex(18, j)], m.Positions[bottom+1+j])
	}
}

func TestBuild_ClosedSeamNormalsMatch(t *testing.T) {
	m, err := Build(uniformDesign("xxc", 1, r3.Vec{}, r3.Vec{Y: 3}))
	require.NoError(t, err)
	for i := 0; i <= 1; i++ {
		assert.Equal(t, m.Positions[m.TorsoVertex(i, 0)], m.Positions[m.TorsoVertex(i, 4)])
		assert.Equal(t, m.Normals[m.TorsoVertex(i, 0)], m.Normals[m.TorsoVertex(i, 4)])
	}
}

func TestBuild_RoundedCapsBlendNormals(t *testing.T) {
	m, err := Build(uniformDesign("rrc", 1, r3.Vec{}, r3.Vec{Y: 3}))
	require.NoError(t, err)
	top, bottom := m.tube.topBase(), m.tube.bottomBase()
	for j := 0; j <= 4; j++ {
		assert.Equal(t, m.Normals[m.TorsoVertex(0, j)], m.Normals[top+1+j])
		assert.Equal(t, m.Normals[m.TorsoVertex(1, j)], m.Normals[bottom+1+j])
	}

	flat, err := Build(uniformDesign("ffc", 1, r3.Vec{}, r3.Vec{Y: 3}))
	require.NoError(t, err)
	ftop := flat.tube.topBase()
	assert.NotEqual(t, flat.Normals[flat.TorsoVertex(0, 1)], flat.Normals[ftop+2])
}

func TestBuild_Symmetric(t *testing.T) {
	d := Design{Header: Header{
		VerticalSegments: 2,
		AngularSegments:  8,
		Caps:             "xxs",
		Angles:           []float64{0, 90, 180},
	}}
	for _, c := range []r3.Vec{{}, {Z: 2}, {Z: 4, X: 0.5}} {
		d.Sections = append(d.Sections, Section{Center: c, Radii: []float64{1, 2, 1.5}})
	}
	m, err := Build(d)
	require.NoError(t, err)

	for i := 0; i <= 2; i++ {
		for j := 0; j <= 8; j++ {
			left := r3.Norm(r3.Sub(m.Positions[m.TorsoVertex(i, j)], m.Centerline[i]))
			right := r3.Norm(r3.Sub(m.Positions[m.TorsoVertex(i, 8-j)], m.Centerline[i]))
			assert.InDelta(t, left, right, 1e-9, "ring %d column %d", i, j)
			assert.InDelta(t, m.UVs[m.TorsoVertex(i, j)][0], m.UVs[m.TorsoVertex(i, 8-j)][0], 1e-12)
		}
		// Knots at 0, 90 and 180 degrees sit on columns 0, 2 and 4.
		assert.InDelta(t, 1, r3.Norm(r3.Sub(m.Positions[m.TorsoVertex(i, 0)], m.Centerline[i])), 1e-9)
		assert.InDelta(t, 2, r3.Norm(r3.Sub(m.Positions[m.TorsoVertex(i, 2)], m.Centerline[i])), 1e-9)
		assert.InDelta(t, 1.5, r3.Norm(r3.Sub(m.Positions[m.TorsoVertex(i, 4)], m.Centerline[i])), 1e-9)
	}
}

func TestBuild_OpenSection(t *testing.T) {
	d := Design{Header: Header{
		VerticalSegments: 1,
		AngularSegments:  4,
		Caps:             "xxx",
		Angles:           []float64{0, 180},
	}}
	d.Sections = []Section{
		{Center: r3.Vec{}, Radii: []float64{1, 1}},
		{Center: r3.Vec{Y: 1}, Radii: []float64{1, 1}},
	}
	m, err := Build(d)
	require.NoError(t, err)
	assert.Equal(t, 2*5, m.VertexCount())
	require.Len(t, m.Groups, 1)

	// Half a turn: the first and last columns sit on opposite sides.
	a := m.Positions[m.TorsoVertex(0, 0)]
	b := m.Positions[m.TorsoVertex(0, 4)]
	assert.InDelta(t, 2, r3.Norm(r3.Sub(a, b)), 1e-9)
}

func TestBuild_Malformed(t *testing.T) {
	base := func() Design { return uniformDesign("ffc", 1, r3.Vec{}, r3.Vec{Z: 1}) }
	cases := map[string]func(d *Design){
		"snap failure":       func(d *Design) { d.Header.Angles = []float64{0, 45, 180, 270} },
		"angle beyond sweep": func(d *Design) { d.Header.Angles = []float64{0, 90, 180, 400} },
		"angles collide":     func(d *Design) { d.Header.Angles = []float64{0, 10, 180, 270} },
		"radius count":       func(d *Design) { d.Sections[1].Radii = []float64{1, 1, 1} },
		"single section":     func(d *Design) { d.Sections = d.Sections[:1] },
		"shared center":      func(d *Design) { d.Sections[1].Center = d.Sections[0].Center },
		"caps":               func(d *Design) { d.Header.Caps = "ff" },
		"no rings":           func(d *Design) { d.Header.VerticalSegments = 0 },
		"odd symmetric": func(d *Design) {
			d.Header.Caps = "ffs"
			d.Header.AngularSegments = 5
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			d := base()
			mutate(&d)
			_, err := Build(d)
			require.ErrorIs(t, err, ErrMalformedDesign)
			assert.Panics(t, func() { MustBuild(d) })
		})
	}
}

func TestMesh_MorphRejectsWrongCenterCount(t *testing.T) {
	m := MustBuild(uniformDesign("ffc", 1, r3.Vec{}, r3.Vec{Z: 1}))
	require.ErrorIs(t, m.Morph([]r3.Vec{{}}), ErrMalformedDesign)
	require.ErrorIs(t, Sphere(1, 8, 8).Morph(nil), ErrMalformedDesign)

	require.NoError(t, m.Morph([]r3.Vec{{X: 5}, {X: 5, Y: 2}}))
	assert.InDelta(t, 1, r3.Norm(r3.Sub(m.Positions[m.TorsoVertex(1, 2)], r3.Vec{X: 5, Y: 2})), 1e-9)
}

func TestMesh_TorsoVertexOutsideTube(t *testing.T) {
	assert.Equal(t, -1, Sphere(1, 8, 8).TorsoVertex(0, 0))
	assert.Equal(t, -1, (&Mesh{}).TorsoVertex(1, 1))

	m := MustBuild(uniformDesign("ffc", 1, r3.Vec{}, r3.Vec{Z: 1}))
	assert.Equal(t, 6, m.TorsoVertex(1, 1))
	for _, ij := range [][2]int{{-1, 0}, {2, 0}, {0, -1}, {0, 5}} {
		assert.Equal(t, -1, m.TorsoVertex(ij[0], ij[1]), "ring %d column %d", ij[0], ij[1])
	}
}

func TestSphere(t *testing.T) {
	m := Sphere(0.11, 8, 8)
	assert.Equal(t, 9*9, m.VertexCount())
	assert.Equal(t, 2*8*7, m.TriangleCount())
	for i, p := range m.Positions {
		assert.InDelta(t, 0.11, r3.Norm(p), 1e-12, "vertex %d", i)
		assert.InDelta(t, 1, r3.Norm(m.Normals[i]), 1e-12)
	}
	for i := 0; i < m.TriangleCount(); i++ {
		assert.False(t, m.Triangle(i).IsDegenerate(1e-9), "triangle %d", i)
	}
}
