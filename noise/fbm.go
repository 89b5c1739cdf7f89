// Package noise provides the coherent noise used to bend synapse tubes.
package noise

import (
	"fmt"
	"math"

	perlin "github.com/aquilax/go-perlin"
	"gonum.org/v1/gonum/spatial/r3"
)

// latticePeriod is the period of the Perlin gradient lattice along every
// axis.
const latticePeriod = 256

// Config describes a fractal Brownian motion field.
type Config struct {
	Seed int64 `yaml:"seed"`

	// Scale multiplies input coordinates before the first octave.
	Scale float64 `yaml:"scale" validate:"gt=0"`

	Octaves int `yaml:"octaves" validate:"gte=1,lte=16"`

	// Persistence is the amplitude ratio between successive octaves.
	Persistence float64 `yaml:"persistence" validate:"gt=0"`

	// Lacunarity is the frequency ratio between successive octaves.
	Lacunarity float64 `yaml:"lacunarity" validate:"gt=0"`

	// Redistribution raises the normalised sum to this power, keeping its
	// sign. 1 leaves the field untouched.
	Redistribution float64 `yaml:"redistribution" validate:"gt=0"`
}

// DefaultConfig returns the field the synapse tubes were tuned with.
func DefaultConfig() Config {
	return Config{
		Scale:          0.06,
		Octaves:        8,
		Persistence:    0.9,
		Lacunarity:     2,
		Redistribution: 1,
	}
}

// FBM sums octaves of Perlin noise. Values are normalised by the total
// octave amplitude. It is safe for concurrent use once constructed.
type FBM struct {
	cfg Config
	p   *perlin.Perlin
	sum float64
}

// New returns a field seeded with cfg.Seed.
func New(cfg Config) (*FBM, error) {
	if cfg.Octaves < 1 {
		return nil, fmt.Errorf("noise: octaves %d < 1", cfg.Octaves)
	}
	if cfg.Scale <= 0 || cfg.Persistence <= 0 || cfg.Lacunarity <= 0 || cfg.Redistribution <= 0 {
		return nil, fmt.Errorf("noise: scale, persistence, lacunarity and redistribution must be positive")
	}
	f := &FBM{
		cfg: cfg,
		// Octaves are summed here, so the generator runs a single one.
		p: perlin.NewPerlin(2, 2, 1, cfg.Seed),
	}
	amp := 1.0
	for i := 0; i < cfg.Octaves; i++ {
		f.sum += amp
		amp *= cfg.Persistence
	}
	return f, nil
}

// Config returns the configuration the field was built with.
func (f *FBM) Config() Config { return f.cfg }

// Sample returns the field value at p.
func (f *FBM) Sample(p r3.Vec) float64 {
	freq := f.cfg.Scale
	amp := 1.0
	var total float64
	for i := 0; i < f.cfg.Octaves; i++ {
		total += amp * f.octave(r3.Scale(freq, p))
		amp *= f.cfg.Persistence
		freq *= f.cfg.Lacunarity
	}
	v := total / f.sum
	if f.cfg.Redistribution != 1 {
		v = math.Copysign(math.Pow(math.Abs(v), f.cfg.Redistribution), v)
	}
	return v
}

// octave samples a single octave. The generator falls back to 2D noise for
// negative z and loses precision far from the origin, so every coordinate
// is wrapped into the first lattice period.
func (f *FBM) octave(p r3.Vec) float64 {
	return f.p.Noise3D(wrap(p.X), wrap(p.Y), wrap(p.Z))
}

func wrap(v float64) float64 {
	v = math.Mod(v, latticePeriod)
	if v < 0 {
		v += latticePeriod
	}
	return v
}

// Offset shifts the input of a sampler, giving a decorrelated second field
// from the same generator.
type Offset struct {
	Sampler interface{ Sample(r3.Vec) float64 }
	By      r3.Vec
}

// Sample returns the wrapped sampler's value at p+By.
func (o Offset) Sample(p r3.Vec) float64 {
	return o.Sampler.Sample(r3.Add(p, o.By))
}
