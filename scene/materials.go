package scene

import (
	"fmt"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/signalsfoundry/neuromesh/core"
)

// Material is the flat colour a surface is drawn with.
type Material struct {
	Name  string
	Color colorful.Color
}

// Hex returns the colour as #rrggbb.
func (m Material) Hex() string { return m.Color.Hex() }

// Palette holds one material per visual band.
type Palette [core.NumBands]Material

// MaterialTable maps entity state onto materials. The glow pass draws
// suppressed entities with Suppressed so that only recent activity blooms.
type MaterialTable struct {
	Neuron     Palette
	Synapse    Palette
	Suppressed Material
}

var (
	defaultNeuronColors  = [core.NumBands]string{"#ECA400", "#B88100", "#7A5600", "#291D00", "#1B44DA"}
	defaultSynapseColors = [core.NumBands]string{"#DA3F07", "#9F2D04", "#631C03", "#280B01", "#101B7E"}
)

// DefaultMaterials returns amber neurons, red synapses and blue dormant
// entities.
func DefaultMaterials() *MaterialTable {
	neuron, err := NewPalette("neuron", defaultNeuronColors[:])
	if err != nil {
		panic(err)
	}
	synapse, err := NewPalette("synapse", defaultSynapseColors[:])
	if err != nil {
		panic(err)
	}
	return &MaterialTable{
		Neuron:     neuron,
		Synapse:    synapse,
		Suppressed: Material{Name: "suppressed", Color: colorful.Color{}},
	}
}

// NewPalette parses one hex colour per band, active first.
func NewPalette(name string, hex []string) (Palette, error) {
	var p Palette
	if len(hex) != core.NumBands {
		return p, fmt.Errorf("palette %s: %d colours, want %d", name, len(hex), core.NumBands)
	}
	for i, h := range hex {
		c, err := colorful.Hex(h)
		if err != nil {
			return p, fmt.Errorf("palette %s band %s: %w", name, core.Band(i), err)
		}
		p[i] = Material{Name: name + "-" + core.Band(i).String(), Color: c}
	}
	return p, nil
}

// Resolve picks the material for an entity of kind in band. During the
// glow pass a suppressed entity resolves to the Suppressed material.
func (t *MaterialTable) Resolve(kind core.EntityKind, band core.Band, suppressed, glowPass bool) Material {
	if glowPass && suppressed {
		return t.Suppressed
	}
	if band < 0 || int(band) >= core.NumBands {
		band = core.BandDormant
	}
	if kind == core.KindSynapse {
		return t.Synapse[band]
	}
	return t.Neuron[band]
}

// Materials returns every distinct material of the table, neurons first.
func (t *MaterialTable) Materials() []Material {
	out := make([]Material, 0, 2*core.NumBands+1)
	out = append(out, t.Neuron[:]...)
	out = append(out, t.Synapse[:]...)
	return append(out, t.Suppressed)
}
