package model

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// SourceMesh is the triangle mesh a network is grown from. Every
// deduplicated vertex becomes a neuron and every feature edge a synapse.
//
// Positions are in model units; the scene scales them into world space.
type SourceMesh struct {
	Positions []r3.Vec
	Faces     [][3]int
}

// Validate checks that every face references an existing vertex.
func (m SourceMesh) Validate() error {
	n := len(m.Positions)
	for i, f := range m.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= n {
				return fmt.Errorf("face %d references vertex %d, mesh has %d vertices", i, idx, n)
			}
		}
	}
	return nil
}

// Triangle returns the corner positions of face i.
func (m SourceMesh) Triangle(i int) r3.Triangle {
	f := m.Faces[i]
	return r3.Triangle{m.Positions[f[0]], m.Positions[f[1]], m.Positions[f[2]]}
}
