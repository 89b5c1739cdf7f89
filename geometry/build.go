// Package geometry builds tube meshes from sparse cross-section designs.
//
// A design lists a handful of section centers with a radius per angle. The
// builder fits a smooth spine through the centers, resamples it at equal
// arc-length steps, interpolates every radius column along the spine and
// around each ring, and wraps the rings in a frame that follows the spine.
package geometry

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// NoiseSampler returns a scalar noise value for a point in space.
type NoiseSampler interface {
	Sample(p r3.Vec) float64
}

// Build turns d into a mesh. Every error wraps ErrMalformedDesign.
func Build(d Design) (*Mesh, error) {
	p, err := newPlan(d)
	if err != nil {
		return nil, fmt.Errorf("build geometry: %w", err)
	}

	cl, err := newCenterline(p.centers)
	if err != nil {
		return nil, fmt.Errorf("build geometry: %w", err)
	}
	spine, arc := cl.spaced(p.vertical)
	radii, err := radiusProfiles(cl.knotS, p.radii, arc)
	if err != nil {
		return nil, fmt.Errorf("build geometry: %w", err)
	}

	layout := &tubeLayout{
		radial:     p.radial,
		vertical:   p.vertical,
		hasTop:     p.hasTop,
		flatTop:    p.flatTop,
		hasBottom:  p.hasBottom,
		flatBottom: p.flatBottom,
		closed:     p.closed,
		rings:      make([][]planar, p.vertical+1),
	}
	for i := range layout.rings {
		pol, err := newPolar(p.phi, radii[i], p.closed)
		if err != nil {
			return nil, fmt.Errorf("build geometry: ring %d: %w", i, err)
		}
		layout.rings[i] = ring(pol, p.radial, p.sweep, p.closed)
	}

	m := newTemplate(layout, p.symmetric)
	if layout.hasTop {
		m.capUVs(layout.topBase(), layout.rings[0], true)
	}
	if layout.hasBottom {
		m.capUVs(layout.bottomBase(), layout.rings[p.vertical], false)
	}
	if err := m.Morph(spine); err != nil {
		return nil, fmt.Errorf("build geometry: %w", err)
	}
	return m, nil
}

// MustBuild is like Build but panics on a malformed design.
func MustBuild(d Design) *Mesh {
	m, err := Build(d)
	if err != nil {
		panic(err)
	}
	return m
}
