package core

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestPointIndex_Nearest(t *testing.T) {
	pi := newPointIndex()
	pi.insert(0, r3.Vec{})
	pi.insert(1, r3.Vec{X: 0.05})
	pi.insert(2, r3.Vec{X: -0.12})

	cases := []struct {
		name string
		p    r3.Vec
		tol  float64
		want NeuronID
		ok   bool
	}{
		{"exact", r3.Vec{}, 0.01, 0, true},
		{"closest of two", r3.Vec{X: 0.04}, 0.1, 1, true},
		{"negative side", r3.Vec{X: -0.099}, 0.05, 2, true},
		{"outside tolerance", r3.Vec{Y: 0.5}, 0.1, NoNeuron, false},
		{"tolerance is strict", r3.Vec{Y: 0.0625}, 0.0625, NoNeuron, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := pi.nearest(c.p, c.tol)
			if got != c.want || ok != c.ok {
				t.Fatalf("nearest(%v, %v) = (%d, %v), want (%d, %v)", c.p, c.tol, got, ok, c.want, c.ok)
			}
		})
	}
}

func TestPointIndex_Empty(t *testing.T) {
	if got, ok := newPointIndex().nearest(r3.Vec{}, 1); ok || got != NoNeuron {
		t.Fatalf("nearest on empty index = (%d, %v), want (%d, false)", got, ok, NoNeuron)
	}
}

func TestPointIndex_TiesGoToLowerID(t *testing.T) {
	pi := newPointIndex()
	pi.insert(3, r3.Vec{X: 0.5})
	pi.insert(1, r3.Vec{X: -0.5})
	pi.insert(2, r3.Vec{Y: 0.5})

	if got, ok := pi.nearest(r3.Vec{}, 1); !ok || got != 1 {
		t.Fatalf("nearest = (%d, %v), want (1, true)", got, ok)
	}
}

func TestPointIndex_MatchesLinearScan(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	pi := newPointIndex()
	var pts []r3.Vec
	for i := 0; i < 300; i++ {
		p := r3.Vec{X: rng.Float64(), Y: rng.Float64(), Z: rng.Float64()}
		pi.insert(NeuronID(i), p)
		pts = append(pts, p)
	}

	for i := 0; i < 200; i++ {
		q := r3.Vec{X: rng.Float64(), Y: rng.Float64(), Z: rng.Float64()}
		const tol = 0.08
		want, wantDist := NoNeuron, math.Inf(1)
		for id, p := range pts {
			if d := r3.Norm(r3.Sub(p, q)); d < tol && d < wantDist {
				want, wantDist = NeuronID(id), d
			}
		}
		got, ok := pi.nearest(q, tol)
		if got != want || ok != (want != NoNeuron) {
			t.Fatalf("query %d: nearest = (%d, %v), linear scan = %d", i, got, ok, want)
		}
	}
}
