package core

import "fmt"

// EntityKind distinguishes the two entity arenas.
type EntityKind int

const (
	// KindNeuron addresses Network neurons.
	KindNeuron EntityKind = iota + 1
	// KindSynapse addresses Network synapses.
	KindSynapse
)

func (k EntityKind) String() string {
	switch k {
	case KindNeuron:
		return "neuron"
	case KindSynapse:
		return "synapse"
	default:
		return "unknown"
	}
}

// Handle is the back-reference a renderable carries to its owning entity.
// It is a plain arena lookup and never implies ownership.
type Handle struct {
	Kind  EntityKind
	Index int
}

// NeuronHandle returns the handle of neuron id.
func NeuronHandle(id NeuronID) Handle { return Handle{Kind: KindNeuron, Index: int(id)} }

// SynapseHandle returns the handle of synapse id.
func SynapseHandle(id SynapseID) Handle { return Handle{Kind: KindSynapse, Index: int(id)} }

func (h Handle) String() string {
	return fmt.Sprintf("%s/%d", h.Kind, h.Index)
}
