package core

// SynapseID is the arena index of a synapse.
type SynapseID int

// Synapse connects two neurons. It is idle, pending (armed for the next
// commit), active for one tick, and then cools down for a fixed period
// during which it cannot be re-armed.
type Synapse struct {
	A, B NeuronID

	Active    bool
	Activated bool

	// Cooldown counts down every commit and may go negative.
	Cooldown int

	// ActivatedFrom is the neuron that armed the synapse, or NoNeuron when
	// it was forced without a source.
	ActivatedFrom NeuronID
}

// NewSynapse returns an idle synapse between a and b.
func NewSynapse(a, b NeuronID) Synapse {
	return Synapse{A: a, B: b, ActivatedFrom: NoNeuron}
}

// IsActivatable reports whether the synapse can be armed.
func (s *Synapse) IsActivatable() bool {
	return s.Cooldown <= 0
}

// ReceiveExcitation arms the synapse from source and starts its cooldown.
// It is a no-op while cooling down, so the first source wins.
func (s *Synapse) ReceiveExcitation(source NeuronID, period int) {
	if s.Cooldown > 0 {
		return
	}
	s.Activated = true
	s.ActivatedFrom = source
	s.Cooldown = period
}

// ForceActivate clears the cooldown and arms the synapse without a source.
// An unsourced synapse propagates towards B.
func (s *Synapse) ForceActivate(period int) {
	s.Cooldown = 0
	s.ReceiveExcitation(NoNeuron, period)
}

// Target returns the endpoint a firing synapse excites: the one opposite
// ActivatedFrom, or B when there is no source.
func (s *Synapse) Target() NeuronID {
	if s.ActivatedFrom == s.B {
		return s.A
	}
	return s.B
}

// CommitState applies the pending transition and reports whether the
// synapse started firing.
func (s *Synapse) CommitState() bool {
	s.Cooldown--
	if s.Activated {
		s.Active = true
		s.Activated = false
		return true
	}
	if s.Active {
		s.Active = false
	}
	return false
}

// Elapsed returns the number of ticks since the synapse was last armed,
// measured against its cooldown period.
func (s *Synapse) Elapsed(period int) int {
	return period - s.Cooldown
}

// VisualBand derives the colour band from the firing state and the time
// since arming.
func (s *Synapse) VisualBand(period int) Band {
	return bandFor(s.Active, s.Elapsed(period))
}

// GlowSuppressed reports whether the synapse renders as non-emissive during
// the glow pass.
func (s *Synapse) GlowSuppressed(period int) bool {
	return s.Elapsed(period) >= GlowSuppressAfter
}
