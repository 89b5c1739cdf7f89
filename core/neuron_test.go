package core

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// constRand returns the same draw every time, which keeps threshold drift
// predictable and spontaneous firing off for any realistic probability.
type constRand float64

func (c constRand) Float64() float64 { return float64(c) }

// seqRand replays draws in order and then repeats the last one.
type seqRand struct {
	vals []float64
	i    int
}

func (s *seqRand) Float64() float64 {
	v := s.vals[s.i]
	if s.i < len(s.vals)-1 {
		s.i++
	}
	return v
}

func newTestNeuron() Neuron {
	return NewNeuron(r3.Vec{X: 1, Y: 2, Z: 3}, DefaultNeuronParams())
}

func TestNeuron_ThresholdScenario(t *testing.T) {
	p := DefaultNeuronParams()
	for _, draw := range []float64{0.1, 0.5, 0.999} {
		n := newTestNeuron()
		if n.Threshold != 1.0 {
			t.Fatalf("Threshold = %v, want 1.0", n.Threshold)
		}
		n.ReceiveExcitation(1.0)
		res := n.CommitState(p, constRand(draw))

		if !res.Fired || !n.Active {
			t.Fatalf("draw %v: neuron did not fire: %+v", draw, n)
		}
		if n.Potential != 0 {
			t.Fatalf("draw %v: Potential = %v, want 0", draw, n.Potential)
		}
		if n.ActivationPotential != 1.0 {
			t.Fatalf("draw %v: ActivationPotential = %v, want 1", draw, n.ActivationPotential)
		}
		if n.Threshold < 1.0 || n.Threshold >= 9.0 {
			t.Fatalf("draw %v: Threshold = %v, want in [1, 9)", draw, n.Threshold)
		}
	}
}

func TestNeuron_FiringPostConditions(t *testing.T) {
	p := DefaultNeuronParams()
	n := newTestNeuron()
	n.ActivationCooldown = -7
	n.Inactive = 12
	n.ReceiveExcitation(3)
	n.CommitState(p, constRand(0.5))

	if n.ActivationCooldown != p.RefractoryTicks {
		t.Fatalf("ActivationCooldown = %d, want %d", n.ActivationCooldown, p.RefractoryTicks)
	}
	if n.Inactive != 0 {
		t.Fatalf("Inactive = %d, want 0", n.Inactive)
	}
	if n.Activated {
		t.Fatalf("Activated should be cleared after a firing commit")
	}
	if got := n.VisualBand(); got != BandActive {
		t.Fatalf("VisualBand() = %v, want %v", got, BandActive)
	}
}

func TestNeuron_RefractoryLock(t *testing.T) {
	n := newTestNeuron()
	n.ActivationCooldown = 2
	n.Potential = 0.25

	n.ReceiveExcitation(5)
	if n.Potential != 0.25 || n.Activated {
		t.Fatalf("refractory neuron accepted excitation: potential=%v activated=%v", n.Potential, n.Activated)
	}

	n.ForceActivate(5)
	if n.Potential != 5.25 || !n.Activated {
		t.Fatalf("ForceActivate should bypass the lock: potential=%v activated=%v", n.Potential, n.Activated)
	}
	if n.ActivationCooldown != 0 {
		t.Fatalf("ActivationCooldown = %d, want 0", n.ActivationCooldown)
	}
}

func TestNeuron_CommitAlwaysClearsActivated(t *testing.T) {
	p := DefaultNeuronParams()
	cases := map[string]func(n *Neuron){
		"fires":            func(n *Neuron) { n.ReceiveExcitation(2) },
		"below threshold":  func(n *Neuron) { n.ReceiveExcitation(0.5) },
		"deactivates":      func(n *Neuron) { n.Active = true; n.ReceiveExcitation(0.1) },
		"idle":             func(n *Neuron) {},
		"refractory touch": func(n *Neuron) { n.ActivationCooldown = 3; n.ReceiveExcitation(9) },
	}
	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			n := newTestNeuron()
			setup(&n)
			n.CommitState(p, constRand(0.5))
			if n.Activated {
				t.Fatalf("Activated = true after commit")
			}
		})
	}
}

func TestNeuron_ChargingDoesNotFire(t *testing.T) {
	p := DefaultNeuronParams()
	n := newTestNeuron()
	n.ReceiveExcitation(0.4)
	n.CommitState(p, constRand(0.5))
	if n.Active {
		t.Fatalf("neuron fired below threshold")
	}
	n.ReceiveExcitation(0.4)
	n.CommitState(p, constRand(0.5))
	if n.Active {
		t.Fatalf("neuron fired below threshold")
	}
	n.ReceiveExcitation(0.4)
	n.CommitState(p, constRand(0.5))
	if !n.Active {
		t.Fatalf("accumulated potential %v did not fire", n.ActivationPotential)
	}
}

func TestNeuron_Deactivates(t *testing.T) {
	p := DefaultNeuronParams()
	n := newTestNeuron()
	n.ReceiveExcitation(1)
	n.CommitState(p, constRand(0.5))
	n.CommitState(p, constRand(0.5))
	if n.Active {
		t.Fatalf("neuron stayed active for a second tick")
	}
	if n.ActivationPotential != 0 {
		t.Fatalf("ActivationPotential = %v, want 0", n.ActivationPotential)
	}
	if n.Inactive != 0 {
		t.Fatalf("Inactive = %d, want 0 on the deactivating tick", n.Inactive)
	}
}

func TestNeuron_ThresholdDecaysAfterSilence(t *testing.T) {
	p := DefaultNeuronParams()
	n := newTestNeuron()
	n.Threshold = 4

	for i := 1; i <= p.DecayAfterInactive; i++ {
		n.CommitState(p, constRand(0.5))
		if n.Threshold != 4 {
			t.Fatalf("tick %d: Threshold = %v, want no decay yet", i, n.Threshold)
		}
	}
	n.CommitState(p, constRand(0.5))
	want := 4 - 0.5*p.ThresholdDecayMax
	if n.Threshold != want {
		t.Fatalf("Threshold = %v, want %v", n.Threshold, want)
	}
	if n.Inactive != p.DecayAfterInactive+1 {
		t.Fatalf("Inactive = %d, want %d", n.Inactive, p.DecayAfterInactive+1)
	}
}

func TestNeuron_SpontaneousFiring(t *testing.T) {
	p := DefaultNeuronParams()
	n := newTestNeuron()
	// First draw triggers the spontaneous branch, second is the threshold jump.
	res := n.CommitState(p, &seqRand{vals: []float64{0, 0.25}})
	if !res.Spontaneous || !res.Fired {
		t.Fatalf("CommitState() = %+v, want spontaneous firing", res)
	}
	if n.ActivationPotential != p.SpontaneousBoost {
		t.Fatalf("ActivationPotential = %v, want %v", n.ActivationPotential, p.SpontaneousBoost)
	}
	if want := 1 + 0.25*p.ThresholdJumpMax; n.Threshold != want {
		t.Fatalf("Threshold = %v, want %v", n.Threshold, want)
	}
}

func TestNeuron_VisualBands(t *testing.T) {
	cases := []struct {
		inactive   int
		want       Band
		suppressed bool
	}{
		{0, BandRecent, false},
		{2, BandRecent, false},
		{3, BandFading, false},
		{4, BandFading, false},
		{5, BandDim, false},
		{7, BandDim, false},
		{8, BandDormant, true},
		{40, BandDormant, true},
	}
	for _, tc := range cases {
		n := newTestNeuron()
		n.Inactive = tc.inactive
		if got := n.VisualBand(); got != tc.want {
			t.Fatalf("Inactive=%d: VisualBand() = %v, want %v", tc.inactive, got, tc.want)
		}
		if got := n.GlowSuppressed(); got != tc.suppressed {
			t.Fatalf("Inactive=%d: GlowSuppressed() = %v, want %v", tc.inactive, got, tc.suppressed)
		}
	}

	n := newTestNeuron()
	n.Active = true
	n.Inactive = 20
	if got := n.VisualBand(); got != BandActive {
		t.Fatalf("VisualBand() = %v, want %v", got, BandActive)
	}
}

func TestNeuron_DistanceTo(t *testing.T) {
	n := NewNeuron(r3.Vec{}, DefaultNeuronParams())
	if got := n.DistanceTo(r3.Vec{X: 3, Y: 4}); got != 5 {
		t.Fatalf("DistanceTo() = %v, want 5", got)
	}
}
