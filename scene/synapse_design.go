package scene

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/neuromesh/geometry"
)

// Params sizes the renderables built for a network.
type Params struct {
	// WorldScale maps source mesh coordinates into the scene.
	WorldScale float64 `yaml:"world_scale" validate:"gt=0"`

	NeuronRadius   float64 `yaml:"neuron_radius" validate:"gt=0"`
	NeuronSegments int     `yaml:"neuron_segments" validate:"gte=3"`

	// SynapseSamples is the number of spine segments between the two
	// endpoints. Interior samples are displaced by noise.
	SynapseSamples int `yaml:"synapse_samples" validate:"gte=2"`

	// Width at sample i is NeuronRadius + SynapseWidthPad - SynapseInset
	// - SynapseTaper * (n/2 - |i - n/2|), so tubes narrow towards the middle.
	SynapseWidthPad float64 `yaml:"synapse_width_pad"`
	SynapseTaper    float64 `yaml:"synapse_taper" validate:"gte=0"`
	SynapseInset    float64 `yaml:"synapse_inset"`

	// NoiseOffset decorrelates the second displacement axis.
	NoiseOffset r3.Vec `yaml:"-"`

	SynapseHeader geometry.Header `yaml:"synapse_header"`
}

// DefaultParams returns the sizes the scene was tuned with.
func DefaultParams() Params {
	return Params{
		WorldScale:      20,
		NeuronRadius:    0.11,
		NeuronSegments:  8,
		SynapseSamples:  6,
		SynapseWidthPad: 0.01,
		SynapseTaper:    0.0185,
		SynapseInset:    0.04,
		NoiseOffset:     r3.Vec{X: 25, Y: -25},
		SynapseHeader: geometry.Header{
			VerticalSegments: 18,
			AngularSegments:  8,
			Caps:             "ffc",
			Angles:           []float64{0, 60, 120, 180, 240, 300},
		},
	}
}

// SynapseWidth returns the tube radius at spine sample i.
func (p Params) SynapseWidth(i int) float64 {
	half := float64(p.SynapseSamples) / 2
	return p.NeuronRadius + p.SynapseWidthPad - p.SynapseTaper*(half-math.Abs(float64(i)-half)) - p.SynapseInset
}

// SynapseDesign lays a tube between neuron positions a and b. The straight
// segment is sampled SynapseSamples times; interior samples are pushed
// along two axes perpendicular to it by noise and its offset copy. A nil
// sampler leaves the tube straight.
func SynapseDesign(a, b r3.Vec, n geometry.NoiseSampler, p Params) geometry.Design {
	start := r3.Scale(p.WorldScale, a)
	end := r3.Scale(p.WorldScale, b)
	v := r3.Sub(end, start)

	cross1 := r3.Cross(v, r3.Vec{Z: 1})
	if r3.Norm(cross1) == 0 {
		// Spine parallel to z.
		cross1 = r3.Vec{Y: 1}
	}
	cross1 = r3.Unit(cross1)
	cross2 := r3.Cross(v, cross1)
	if l := r3.Norm(cross2); l > 0 {
		cross2 = r3.Scale(1/l, cross2)
	}

	h := p.SynapseHeader
	h.Angles = append([]float64(nil), h.Angles...)
	d := geometry.Design{Header: h}

	segs := p.SynapseSamples
	for i := 0; i <= segs; i++ {
		t := float64(i) / float64(segs)
		point := r3.Add(start, r3.Scale(t, v))
		if n != nil && i != 0 && i != segs {
			n1 := n.Sample(point)
			n2 := n.Sample(r3.Add(point, p.NoiseOffset))
			point = r3.Add(point, r3.Add(r3.Scale(n1, cross1), r3.Scale(n2, cross2)))
		}
		w := p.SynapseWidth(i)
		radii := make([]float64, len(h.Angles))
		for j := range radii {
			radii[j] = w
		}
		d.Sections = append(d.Sections, geometry.Section{Center: point, Radii: radii})
	}
	return d
}
