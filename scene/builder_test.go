package scene

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/neuromesh/core"
	"github.com/signalsfoundry/neuromesh/geometry"
	"github.com/signalsfoundry/neuromesh/noise"
)

type countingRecorder struct {
	mu     sync.Mutex
	counts map[core.EntityKind]int
}

func (c *countingRecorder) ObserveGeometryBuild(kind core.EntityKind, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[core.EntityKind]int)
	}
	c.counts[kind]++
}

// pathNetwork is three neurons joined a-b-c.
func pathNetwork(t *testing.T) *core.Network {
	t.Helper()
	nw := core.NewNetwork(core.DefaultNeuronParams(), core.DefaultSynapseParams())
	a := nw.AddNeuron(r3.Vec{})
	b := nw.AddNeuron(r3.Vec{X: 1})
	c := nw.AddNeuron(r3.Vec{X: 1, Y: 1})
	_, err := nw.Connect(a, b)
	require.NoError(t, err)
	_, err = nw.Connect(b, c)
	require.NoError(t, err)
	return nw
}

func TestBuilder_Neuron(t *testing.T) {
	nw := pathNetwork(t)
	b := NewBuilder(nw, nil, DefaultParams())

	r0, err := b.Neuron(0)
	require.NoError(t, err)
	r2, err := b.Neuron(2)
	require.NoError(t, err)

	assert.Equal(t, core.NeuronHandle(2), r2.Handle)
	assert.Equal(t, r3.Vec{X: 20, Y: 20}, r2.Translation)
	assert.Same(t, r0.Mesh, r2.Mesh, "neurons share one sphere")
	assert.Equal(t, 81, r0.Mesh.VertexCount())

	_, err = b.Neuron(9)
	assert.ErrorIs(t, err, core.ErrNeuronNotFound)
}

func TestBuilder_Synapse(t *testing.T) {
	nw := pathNetwork(t)
	b := NewBuilder(nw, nil, DefaultParams())

	r, err := b.Synapse(1)
	require.NoError(t, err)
	assert.Equal(t, core.SynapseHandle(1), r.Handle)
	assert.Equal(t, r3.Vec{}, r.Translation)

	spine := r.Mesh.Centerline
	require.NotEmpty(t, spine)
	assert.InDelta(t, 0, r3.Norm(r3.Sub(spine[0], r3.Vec{X: 20})), 1e-9)
	assert.InDelta(t, 0, r3.Norm(r3.Sub(spine[len(spine)-1], r3.Vec{X: 20, Y: 20})), 1e-9)

	_, err = b.Synapse(5)
	assert.ErrorIs(t, err, core.ErrSynapseNotFound)
}

func TestBuilder_All(t *testing.T) {
	nw := pathNetwork(t)
	f, err := noise.New(noise.DefaultConfig())
	require.NoError(t, err)
	rec := &countingRecorder{}
	b := NewBuilder(nw, f, DefaultParams(), WithWorkers(2), WithGeometryRecorder(rec))

	rs, err := b.All(context.Background())
	require.NoError(t, err)
	require.Len(t, rs, 5)

	want := []core.Handle{
		core.NeuronHandle(0), core.NeuronHandle(1), core.NeuronHandle(2),
		core.SynapseHandle(0), core.SynapseHandle(1),
	}
	for i, r := range rs {
		assert.Equal(t, want[i], r.Handle)
		assert.NotNil(t, r.Mesh)
	}
	assert.Equal(t, 1, rec.counts[core.KindNeuron])
	assert.Equal(t, 2, rec.counts[core.KindSynapse])
}

func TestBuilder_AllMalformedTube(t *testing.T) {
	nw := core.NewNetwork(core.DefaultNeuronParams(), core.DefaultSynapseParams())
	a := nw.AddNeuron(r3.Vec{X: 0.5})
	b := nw.AddNeuron(r3.Vec{X: 0.5})
	_, err := nw.Connect(a, b)
	require.NoError(t, err)

	_, err = NewBuilder(nw, nil, DefaultParams()).All(context.Background())
	assert.ErrorIs(t, err, geometry.ErrMalformedDesign)
}

func TestBuilder_Populate(t *testing.T) {
	nw := pathNetwork(t)
	sc := NewHeadlessScene()
	reg := NewRegistry(sc, nil)

	require.NoError(t, NewBuilder(nw, nil, DefaultParams()).Populate(context.Background(), reg))
	assert.Equal(t, 5, reg.Len())
	assert.Len(t, sc.Surfaces(), 5)

	r, ok := reg.Renderable(core.SynapseHandle(0))
	require.True(t, ok)
	assert.Equal(t, core.SynapseHandle(0), r.Handle)
}

func TestWriteOBJ_RoundTrip(t *testing.T) {
	nw := pathNetwork(t)
	sc := NewHeadlessScene()
	reg := NewRegistry(sc, nil)
	require.NoError(t, NewBuilder(nw, nil, DefaultParams()).Populate(context.Background(), reg))
	require.NoError(t, reg.ApplyMaterials(nw, false))

	var buf bytes.Buffer
	require.NoError(t, WriteOBJ(&buf, sc.Surfaces(), "scene.mtl"))
	assert.Contains(t, buf.String(), "\nmtllib scene.mtl\n")
	assert.Contains(t, buf.String(), "usemtl neuron-recent\n")
	assert.Contains(t, buf.String(), "g synapse/1\n")

	src, err := ReadOBJ(&buf)
	require.NoError(t, err)

	verts, tris := 0, 0
	for _, s := range sc.Surfaces() {
		verts += s.Renderable.Mesh.VertexCount()
		tris += s.Renderable.Mesh.TriangleCount()
	}
	assert.LessOrEqual(t, len(src.Positions), verts)
	assert.Len(t, src.Faces, tris)
	// The third neuron's sphere is translated into scene space.
	want := r3.Add(sc.Surfaces()[2].Renderable.Mesh.Positions[0], r3.Vec{X: 20, Y: 20})
	found := false
	for _, p := range src.Positions {
		if r3.Norm(r3.Sub(p, want)) < 1e-5 {
			found = true
			break
		}
	}
	assert.True(t, found, "no vertex near %v", want)
}
