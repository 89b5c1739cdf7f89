package model

import "gonum.org/v1/gonum/spatial/r3"

// EdgeSegment is a line segment between two mesh positions. Segments carry
// positions rather than vertex indices because source meshes frequently
// duplicate vertices per face.
type EdgeSegment struct {
	From r3.Vec
	To   r3.Vec
}
