package core

// NeuronParams holds the tunable constants of the neuron state machine.
// The defaults reproduce the behaviour the visualisation was tuned with.
type NeuronParams struct {
	// BaseThreshold is the firing threshold a fresh neuron starts with.
	BaseThreshold float64

	// RefractoryTicks is how long a neuron ignores excitation after firing.
	RefractoryTicks int

	// ThresholdJumpMax bounds the uniform random threshold increase applied
	// on every firing: threshold += U[0, ThresholdJumpMax).
	ThresholdJumpMax float64

	// ThresholdDecayMax bounds the uniform random threshold relaxation
	// applied on every silent tick past DecayAfterInactive.
	ThresholdDecayMax float64

	// DecayAfterInactive is the inactive streak length after which the
	// threshold starts to relax.
	DecayAfterInactive int

	// SpontaneousProbability is the per-tick chance of background firing.
	SpontaneousProbability float64

	// SpontaneousBoost is the potential injected by a spontaneous firing.
	SpontaneousBoost float64
}

// DefaultNeuronParams returns the stock neuron tuning.
func DefaultNeuronParams() NeuronParams {
	return NeuronParams{
		BaseThreshold:          1.0,
		RefractoryTicks:        4,
		ThresholdJumpMax:       8.0,
		ThresholdDecayMax:      1.0 / 16.0,
		DecayAfterInactive:     3,
		SpontaneousProbability: 0.00005,
		SpontaneousBoost:       5.0,
	}
}

// SynapseParams holds the tunable constants of the synapse state machine.
type SynapseParams struct {
	// CooldownTicks is the fixed period a synapse refuses re-arming after
	// it has been excited. It also anchors the synapse colour bands.
	CooldownTicks int

	// Strength is the excitation a firing synapse delivers to its target.
	Strength float64
}

// DefaultSynapseParams returns the stock synapse tuning.
func DefaultSynapseParams() SynapseParams {
	return SynapseParams{
		CooldownTicks: 32,
		Strength:      1.0,
	}
}

// Rand is the randomness source consumed by commit. *rand.Rand from
// math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
}
