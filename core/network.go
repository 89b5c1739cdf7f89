package core

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

var (
	ErrNeuronNotFound  = errors.New("neuron not found")
	ErrSynapseNotFound = errors.New("synapse not found")
	ErrSelfSynapse     = errors.New("synapse endpoints must differ")
	ErrUnknownHandle   = errors.New("unknown entity handle")
)

// Network is the arena holding every neuron and synapse of a session.
// Entities reference each other by index only.
//
// A Network is not safe for concurrent use. All mutation happens on the
// goroutine that drives ticks and pointer input.
type Network struct {
	neurons  []Neuron
	synapses []Synapse

	neuronParams  NeuronParams
	synapseParams SynapseParams
}

// NewNetwork returns an empty network using the given tuning.
func NewNetwork(np NeuronParams, sp SynapseParams) *Network {
	return &Network{
		neuronParams:  np,
		synapseParams: sp,
	}
}

// NeuronParams returns the neuron tuning of the network.
func (nw *Network) NeuronParams() NeuronParams { return nw.neuronParams }

// SynapseParams returns the synapse tuning of the network.
func (nw *Network) SynapseParams() SynapseParams { return nw.synapseParams }

// NumNeurons returns the neuron count.
func (nw *Network) NumNeurons() int { return len(nw.neurons) }

// NumSynapses returns the synapse count.
func (nw *Network) NumSynapses() int { return len(nw.synapses) }

// AddNeuron appends a resting neuron at pos.
func (nw *Network) AddNeuron(pos r3.Vec) NeuronID {
	nw.neurons = append(nw.neurons, NewNeuron(pos, nw.neuronParams))
	return NeuronID(len(nw.neurons) - 1)
}

// Connect creates a synapse between a and b and registers it with both
// endpoints.
func (nw *Network) Connect(a, b NeuronID) (SynapseID, error) {
	if !nw.validNeuron(a) {
		return 0, fmt.Errorf("connect %d-%d: %w: %d", a, b, ErrNeuronNotFound, a)
	}
	if !nw.validNeuron(b) {
		return 0, fmt.Errorf("connect %d-%d: %w: %d", a, b, ErrNeuronNotFound, b)
	}
	if a == b {
		return 0, fmt.Errorf("connect %d-%d: %w", a, b, ErrSelfSynapse)
	}
	nw.synapses = append(nw.synapses, NewSynapse(a, b))
	id := SynapseID(len(nw.synapses) - 1)
	nw.neurons[a].Synapses = append(nw.neurons[a].Synapses, id)
	nw.neurons[b].Synapses = append(nw.neurons[b].Synapses, id)
	return id, nil
}

// Neuron returns neuron id, or nil if it does not exist.
func (nw *Network) Neuron(id NeuronID) *Neuron {
	if !nw.validNeuron(id) {
		return nil
	}
	return &nw.neurons[id]
}

// Synapse returns synapse id, or nil if it does not exist.
func (nw *Network) Synapse(id SynapseID) *Synapse {
	if id < 0 || int(id) >= len(nw.synapses) {
		return nil
	}
	return &nw.synapses[id]
}

func (nw *Network) validNeuron(id NeuronID) bool {
	return id >= 0 && int(id) < len(nw.neurons)
}

// PropagateNeuron runs pass one for a single neuron: a firing neuron
// excites all of its synapses, which decide the direction themselves.
func (nw *Network) PropagateNeuron(id NeuronID) {
	n := &nw.neurons[id]
	if !n.Active {
		return
	}
	for _, sid := range n.Synapses {
		s := &nw.synapses[sid]
		if s.Activated && !s.IsActivatable() {
			// Already armed since the last commit. When both endpoints fire
			// in the same tick the lower ID is recorded so the outcome does
			// not depend on traversal order.
			if id < s.ActivatedFrom {
				s.ActivatedFrom = id
			}
			continue
		}
		s.ReceiveExcitation(id, nw.synapseParams.CooldownTicks)
	}
}

// PropagateSynapse runs pass one for a single synapse: a firing synapse
// excites the endpoint opposite its source.
func (nw *Network) PropagateSynapse(id SynapseID) {
	s := &nw.synapses[id]
	if !s.Active {
		return
	}
	nw.neurons[s.Target()].ReceiveExcitation(nw.synapseParams.Strength)
}

// Propagate runs pass one over the whole population: every neuron, then
// every synapse. It reads only pre-tick firing state.
func (nw *Network) Propagate() {
	for i := range nw.neurons {
		nw.PropagateNeuron(NeuronID(i))
	}
	for i := range nw.synapses {
		nw.PropagateSynapse(SynapseID(i))
	}
}

// CommitStats summarises pass two.
type CommitStats struct {
	FiredNeurons       int
	SpontaneousFirings int
	FiredSynapses      int
	ActiveNeurons      int
	ActiveSynapses     int
}

// Commit runs pass two over the whole population: every neuron, then every
// synapse. It must follow a complete Propagate.
func (nw *Network) Commit(rng Rand) CommitStats {
	var st CommitStats
	for i := range nw.neurons {
		n := &nw.neurons[i]
		res := n.CommitState(nw.neuronParams, rng)
		if res.Fired {
			st.FiredNeurons++
		}
		if res.Spontaneous {
			st.SpontaneousFirings++
		}
		if n.Active {
			st.ActiveNeurons++
		}
	}
	for i := range nw.synapses {
		s := &nw.synapses[i]
		if s.CommitState() {
			st.FiredSynapses++
		}
		if s.Active {
			st.ActiveSynapses++
		}
	}
	return st
}

// Activate forces the entity behind h to fire, bypassing its refractory
// lock. Neurons receive strength; synapses are armed without a source.
func (nw *Network) Activate(h Handle, strength float64) error {
	switch h.Kind {
	case KindNeuron:
		n := nw.Neuron(NeuronID(h.Index))
		if n == nil {
			return fmt.Errorf("activate %s: %w", h, ErrNeuronNotFound)
		}
		n.ForceActivate(strength)
	case KindSynapse:
		s := nw.Synapse(SynapseID(h.Index))
		if s == nil {
			return fmt.Errorf("activate %s: %w", h, ErrSynapseNotFound)
		}
		s.ForceActivate(nw.synapseParams.CooldownTicks)
	default:
		return fmt.Errorf("activate %s: %w", h, ErrUnknownHandle)
	}
	return nil
}

// Band returns the visual band and glow suppression of the entity behind h.
func (nw *Network) Band(h Handle) (Band, bool, error) {
	switch h.Kind {
	case KindNeuron:
		n := nw.Neuron(NeuronID(h.Index))
		if n == nil {
			return 0, false, fmt.Errorf("band %s: %w", h, ErrNeuronNotFound)
		}
		return n.VisualBand(), n.GlowSuppressed(), nil
	case KindSynapse:
		s := nw.Synapse(SynapseID(h.Index))
		if s == nil {
			return 0, false, fmt.Errorf("band %s: %w", h, ErrSynapseNotFound)
		}
		period := nw.synapseParams.CooldownTicks
		return s.VisualBand(period), s.GlowSuppressed(period), nil
	default:
		return 0, false, fmt.Errorf("band %s: %w", h, ErrUnknownHandle)
	}
}
