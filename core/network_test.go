package core

import (
	"context"
	"errors"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/neuromesh/model"
)

func newPair(t *testing.T) (*Network, NeuronID, NeuronID, SynapseID) {
	t.Helper()
	nw := NewNetwork(DefaultNeuronParams(), DefaultSynapseParams())
	a := nw.AddNeuron(r3.Vec{})
	b := nw.AddNeuron(r3.Vec{X: 1})
	s, err := nw.Connect(a, b)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return nw, a, b, s
}

func tick(nw *Network, rng Rand) CommitStats {
	nw.Propagate()
	return nw.Commit(rng)
}

func TestNetwork_ConnectRegistersBothEndpoints(t *testing.T) {
	nw, a, b, s := newPair(t)
	if got := nw.Neuron(a).Synapses; len(got) != 1 || got[0] != s {
		t.Fatalf("neuron a synapses = %v, want [%d]", got, s)
	}
	if got := nw.Neuron(b).Synapses; len(got) != 1 || got[0] != s {
		t.Fatalf("neuron b synapses = %v, want [%d]", got, s)
	}
	syn := nw.Synapse(s)
	if syn.A != a || syn.B != b || syn.ActivatedFrom != NoNeuron {
		t.Fatalf("synapse = %+v", syn)
	}
}

func TestNetwork_ConnectErrors(t *testing.T) {
	nw, a, _, _ := newPair(t)
	if _, err := nw.Connect(a, a); !errors.Is(err, ErrSelfSynapse) {
		t.Fatalf("Connect(a, a) err = %v, want ErrSelfSynapse", err)
	}
	if _, err := nw.Connect(a, 9); !errors.Is(err, ErrNeuronNotFound) {
		t.Fatalf("Connect(a, 9) err = %v, want ErrNeuronNotFound", err)
	}
	if _, err := nw.Connect(-2, a); !errors.Is(err, ErrNeuronNotFound) {
		t.Fatalf("Connect(-2, a) err = %v, want ErrNeuronNotFound", err)
	}
	if nw.NumSynapses() != 1 {
		t.Fatalf("NumSynapses() = %d, want 1", nw.NumSynapses())
	}
}

func TestNetwork_ThreeTickPropagation(t *testing.T) {
	nw, a, b, s := newPair(t)
	rng := constRand(0.5)

	if err := nw.Activate(NeuronHandle(a), 1.0); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	tick(nw, rng)
	if !nw.Neuron(a).Active {
		t.Fatalf("tick 1: A should fire")
	}
	if nw.Synapse(s).Activated || nw.Synapse(s).Active {
		t.Fatalf("tick 1: synapse should not see A's firing yet")
	}
	if nb := nw.Neuron(b); nb.Active || nb.Potential != 0 {
		t.Fatalf("tick 1: B should be untouched, got %+v", nb)
	}

	tick(nw, rng)
	if !nw.Synapse(s).Active || nw.Synapse(s).ActivatedFrom != a {
		t.Fatalf("tick 2: synapse should fire from A, got %+v", nw.Synapse(s))
	}
	if nw.Neuron(b).Active {
		t.Fatalf("tick 2: B should not fire yet")
	}

	tick(nw, rng)
	if !nw.Neuron(b).Active {
		t.Fatalf("tick 3: B should fire from the synapse, got %+v", nw.Neuron(b))
	}
	if nw.Neuron(a).Active {
		t.Fatalf("tick 3: A should be back at rest")
	}

	// B firing back cannot re-arm the cooling synapse.
	tick(nw, rng)
	if nw.Synapse(s).Active || nw.Synapse(s).ActivatedFrom != a {
		t.Fatalf("tick 4: synapse re-armed during cooldown: %+v", nw.Synapse(s))
	}
}

func TestNetwork_PropagationDirection(t *testing.T) {
	nw, a, b, s := newPair(t)
	syn := nw.Synapse(s)

	syn.Active = true
	syn.ActivatedFrom = b
	nw.PropagateSynapse(s)
	if !nw.Neuron(a).Activated || nw.Neuron(b).Activated {
		t.Fatalf("synapse from B should excite only A")
	}
}

func TestNetwork_SimultaneousSourcesLowerIDWins(t *testing.T) {
	nw, a, b, s := newPair(t)
	nw.Neuron(a).Active = true
	nw.Neuron(b).Active = true

	nw.PropagateNeuron(b)
	nw.PropagateNeuron(a)
	if got := nw.Synapse(s).ActivatedFrom; got != a {
		t.Fatalf("ActivatedFrom = %d, want %d", got, a)
	}
}

func TestNetwork_ActivateSynapse(t *testing.T) {
	nw, _, b, s := newPair(t)
	rng := constRand(0.5)
	if err := nw.Activate(SynapseHandle(s), 0); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	tick(nw, rng)
	if !nw.Synapse(s).Active {
		t.Fatalf("forced synapse should fire on the next commit")
	}
	tick(nw, rng)
	if !nw.Neuron(b).Active {
		t.Fatalf("unsourced synapse should excite B")
	}
}

func TestNetwork_ActivateErrors(t *testing.T) {
	nw, _, _, _ := newPair(t)
	if err := nw.Activate(NeuronHandle(5), 1); !errors.Is(err, ErrNeuronNotFound) {
		t.Fatalf("err = %v, want ErrNeuronNotFound", err)
	}
	if err := nw.Activate(SynapseHandle(5), 1); !errors.Is(err, ErrSynapseNotFound) {
		t.Fatalf("err = %v, want ErrSynapseNotFound", err)
	}
	if err := nw.Activate(Handle{}, 1); !errors.Is(err, ErrUnknownHandle) {
		t.Fatalf("err = %v, want ErrUnknownHandle", err)
	}
}

func TestNetwork_Band(t *testing.T) {
	nw, a, _, s := newPair(t)

	band, suppressed, err := nw.Band(NeuronHandle(a))
	if err != nil || band != BandRecent || suppressed {
		t.Fatalf("Band(neuron) = %v, %v, %v", band, suppressed, err)
	}
	// A fresh synapse has never fired: its elapsed time is a full period.
	band, suppressed, err = nw.Band(SynapseHandle(s))
	if err != nil || band != BandDormant || !suppressed {
		t.Fatalf("Band(synapse) = %v, %v, %v", band, suppressed, err)
	}
	if _, _, err := nw.Band(SynapseHandle(3)); !errors.Is(err, ErrSynapseNotFound) {
		t.Fatalf("err = %v, want ErrSynapseNotFound", err)
	}
}

func TestNetwork_CommitStats(t *testing.T) {
	nw, a, b, _ := newPair(t)
	nw.Neuron(a).ReceiveExcitation(1)
	nw.Neuron(b).ReceiveExcitation(1)
	st := tick(nw, constRand(0.5))
	if st.FiredNeurons != 2 || st.ActiveNeurons != 2 || st.FiredSynapses != 0 {
		t.Fatalf("CommitStats = %+v", st)
	}
}

// quad is two coplanar triangles sharing a diagonal, with the shared
// vertices duplicated per face as exported meshes usually do.
func quad() model.SourceMesh {
	return model.SourceMesh{
		Positions: []r3.Vec{
			{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1},
			{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1},
		},
		Faces: [][3]int{{0, 1, 2}, {3, 4, 5}},
	}
}

func TestFeatureEdges_CoplanarDiagonalDropped(t *testing.T) {
	edges := FeatureEdges(quad(), 1)
	if len(edges) != 4 {
		t.Fatalf("len(FeatureEdges) = %d, want 4 boundary edges", len(edges))
	}
	diag := r3.Vec{X: 1, Y: 1}
	for _, e := range edges {
		if (e.From == r3.Vec{} && e.To == diag) || (e.From == diag && e.To == r3.Vec{}) {
			t.Fatalf("coplanar diagonal reported as feature edge")
		}
	}
}

func TestFeatureEdges_FoldKept(t *testing.T) {
	m := quad()
	m.Positions[5] = r3.Vec{X: 0, Y: 1, Z: 1}
	if got := len(FeatureEdges(m, 1)); got != 5 {
		t.Fatalf("len(FeatureEdges) = %d, want 5", got)
	}
}

func TestFeatureEdges_DegenerateFaceSkipped(t *testing.T) {
	m := model.SourceMesh{
		Positions: []r3.Vec{{}, {X: 1}, {X: 1}},
		Faces:     [][3]int{{0, 1, 2}},
	}
	if got := FeatureEdges(m, 1); len(got) != 0 {
		t.Fatalf("FeatureEdges = %v, want none", got)
	}
}

func TestBuildNetwork_Quad(t *testing.T) {
	nw, sum, err := BuildNetwork(context.Background(), quad(), DefaultBuildOptions())
	if err != nil {
		t.Fatalf("BuildNetwork: %v", err)
	}
	if sum.Vertices != 6 || sum.Neurons != 4 {
		t.Fatalf("summary = %+v, want 6 vertices deduplicated to 4 neurons", sum)
	}
	if sum.Synapses != 4 || sum.DroppedEdges != 0 || nw.NumSynapses() != 4 {
		t.Fatalf("summary = %+v, want 4 synapses", sum)
	}
	for i := 0; i < nw.NumNeurons(); i++ {
		if got := len(nw.Neuron(NeuronID(i)).Synapses); got != 2 {
			t.Fatalf("neuron %d has %d synapses, want 2", i, got)
		}
	}
}

func TestBuildNetwork_DropsUnresolvedEdges(t *testing.T) {
	m := quad()
	// Within dedup tolerance of vertex 0 but far outside match tolerance.
	m.Positions[3] = r3.Vec{X: 0.005}

	_, sum, err := BuildNetwork(context.Background(), m, DefaultBuildOptions())
	if err != nil {
		t.Fatalf("BuildNetwork: %v", err)
	}
	if sum.Neurons != 4 {
		t.Fatalf("Neurons = %d, want 4", sum.Neurons)
	}
	if sum.DroppedEdges == 0 {
		t.Fatalf("summary = %+v, want dropped edges", sum)
	}
	if sum.Synapses+sum.DroppedEdges != sum.FeatureEdges {
		t.Fatalf("summary = %+v, synapses and drops must cover every feature edge", sum)
	}
}

func TestBuildNetwork_InvalidMesh(t *testing.T) {
	m := model.SourceMesh{Positions: []r3.Vec{{}}, Faces: [][3]int{{0, 1, 2}}}
	if _, _, err := BuildNetwork(context.Background(), m, DefaultBuildOptions()); err == nil {
		t.Fatalf("expected error for out-of-range face index")
	}
}
