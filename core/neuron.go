package core

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// NeuronID is the arena index of a neuron.
type NeuronID int

// NoNeuron marks the absence of a neuron, e.g. an unsourced synapse.
const NoNeuron NeuronID = -1

// Neuron is a single excitable unit.
//
// A neuron is resting while it has no potential, charging while potential
// accumulates below threshold, firing for exactly one tick, and refractory
// while ActivationCooldown > 0.
type Neuron struct {
	// Position is fixed at creation.
	Position r3.Vec

	Threshold           float64
	Potential           float64
	ActivationPotential float64

	// Activated means the neuron was excited this tick and is pending
	// commit. Active means it is in the firing state.
	Activated bool
	Active    bool

	// ActivationCooldown counts down every commit and may go negative.
	// Only the > 0 check matters.
	ActivationCooldown int

	// Inactive is the number of consecutive commits spent not firing.
	Inactive int

	// Synapses lists incident synapses. The neuron does not own them.
	Synapses []SynapseID
}

// NewNeuron returns a resting neuron at pos.
func NewNeuron(pos r3.Vec, p NeuronParams) Neuron {
	return Neuron{
		Position:  pos,
		Threshold: p.BaseThreshold,
	}
}

// ReceiveExcitation adds strength to the potential and arms the neuron.
// It is a no-op while the neuron is refractory. Firing is decided at commit.
func (n *Neuron) ReceiveExcitation(strength float64) {
	if n.ActivationCooldown > 0 {
		return
	}
	n.Activated = true
	n.Potential += strength
}

// ForceActivate clears the refractory lock and excites the neuron. It is the
// pointer/touch path and the only way to bypass the lock.
func (n *Neuron) ForceActivate(strength float64) {
	n.ActivationCooldown = 0
	n.ReceiveExcitation(strength)
}

// CommitResult reports the transition taken by a neuron commit.
type CommitResult struct {
	Fired       bool
	Spontaneous bool
}

// CommitState applies the pending transition. It must only be called after
// every neuron and synapse has propagated for the current tick.
func (n *Neuron) CommitState(p NeuronParams, rng Rand) CommitResult {
	var res CommitResult

	if rng.Float64() < p.SpontaneousProbability {
		n.Potential += p.SpontaneousBoost
		n.Activated = true
		res.Spontaneous = true
	}

	n.ActivationCooldown--

	switch {
	case n.Potential >= n.Threshold && n.Activated:
		n.Threshold += rng.Float64() * p.ThresholdJumpMax
		n.Active = true
		n.ActivationPotential = n.Potential
		n.Potential = 0
		n.Inactive = 0
		n.ActivationCooldown = p.RefractoryTicks
		res.Fired = true
	case n.Active:
		n.Active = false
		n.ActivationPotential = 0
	default:
		n.Inactive++
		if n.Inactive > p.DecayAfterInactive {
			n.Threshold -= rng.Float64() * p.ThresholdDecayMax
		}
	}

	n.Activated = false
	return res
}

// VisualBand derives the colour band from the firing state and the inactive
// streak.
func (n *Neuron) VisualBand() Band {
	return bandFor(n.Active, n.Inactive)
}

// GlowSuppressed reports whether the neuron renders as non-emissive during
// the glow pass.
func (n *Neuron) GlowSuppressed() bool {
	return n.Inactive >= GlowSuppressAfter
}

// DistanceTo returns the distance between the neuron and p.
func (n *Neuron) DistanceTo(p r3.Vec) float64 {
	return r3.Norm(r3.Sub(p, n.Position))
}
