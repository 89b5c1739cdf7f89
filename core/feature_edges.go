package core

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/neuromesh/model"
)

// edgeKeyPrecision is the grid positions are rounded to when matching the
// shared edges of adjacent faces.
const edgeKeyPrecision = 1e-4

type vertexKey [3]int64

type edgeKey struct{ a, b vertexKey }

type halfEdge struct {
	from, to r3.Vec
	normal   r3.Vec
}

func keyOf(p r3.Vec) vertexKey {
	return vertexKey{
		int64(math.Round(p.X / edgeKeyPrecision)),
		int64(math.Round(p.Y / edgeKeyPrecision)),
		int64(math.Round(p.Z / edgeKeyPrecision)),
	}
}

// FeatureEdges returns the edges of src that outline its shape: boundary
// edges and edges whose two adjacent faces meet at an angle of at least
// thresholdDeg degrees. Degenerate faces are ignored. The result is ordered
// by first appearance in src.Faces.
func FeatureEdges(src model.SourceMesh, thresholdDeg float64) []model.EdgeSegment {
	thresholdDot := math.Cos(thresholdDeg * math.Pi / 180)

	pending := make(map[edgeKey]int)
	var open []*halfEdge
	var out []model.EdgeSegment

	for i := range src.Faces {
		tri := src.Triangle(i)
		verts := [3]r3.Vec{tri[0], tri[1], tri[2]}
		keys := [3]vertexKey{keyOf(verts[0]), keyOf(verts[1]), keyOf(verts[2])}
		if keys[0] == keys[1] || keys[1] == keys[2] || keys[2] == keys[0] {
			continue
		}
		normal := tri.Normal()
		if l := r3.Norm(normal); l > 0 {
			normal = r3.Scale(1/l, normal)
		}

		for j := 0; j < 3; j++ {
			next := (j + 1) % 3
			fwd := edgeKey{keys[j], keys[next]}
			rev := edgeKey{keys[next], keys[j]}

			if idx, ok := pending[rev]; ok {
				other := open[idx]
				if r3.Dot(normal, other.normal) <= thresholdDot {
					out = append(out, model.EdgeSegment{From: other.from, To: other.to})
				}
				open[idx] = nil
				delete(pending, rev)
				continue
			}
			if _, ok := pending[fwd]; ok {
				continue
			}
			pending[fwd] = len(open)
			open = append(open, &halfEdge{from: verts[j], to: verts[next], normal: normal})
		}
	}

	for _, he := range open {
		if he != nil {
			out = append(out, model.EdgeSegment{From: he.from, To: he.to})
		}
	}
	return out
}
