package core

import (
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// indexedPoint is a neuron position stored in a k-d tree.
type indexedPoint struct {
	id  NeuronID
	pos r3.Vec
}

func (p indexedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(indexedPoint)
	switch d {
	case 0:
		return p.pos.X - q.pos.X
	case 1:
		return p.pos.Y - q.pos.Y
	default:
		return p.pos.Z - q.pos.Z
	}
}

func (indexedPoint) Dims() int { return 3 }

// Distance is squared, as kdtree expects.
func (p indexedPoint) Distance(c kdtree.Comparable) float64 {
	d := r3.Sub(p.pos, c.(indexedPoint).pos)
	return r3.Dot(d, d)
}

// pointIndex answers exact radius queries over neuron positions. Points are
// inserted as neurons are created; the tree is not rebalanced.
type pointIndex struct {
	tree kdtree.Tree
}

func newPointIndex() *pointIndex { return &pointIndex{} }

func (pi *pointIndex) insert(id NeuronID, p r3.Vec) {
	pi.tree.Insert(indexedPoint{id: id, pos: p}, false)
}

// nearest returns the closest indexed point strictly within tol of p. Equal
// distances resolve to the lower ID.
func (pi *pointIndex) nearest(p r3.Vec, tol float64) (NeuronID, bool) {
	keep := kdtree.NewDistKeeper(tol * tol)
	pi.tree.NearestSet(keep, indexedPoint{id: NoNeuron, pos: p})

	best, bestDist := NoNeuron, tol*tol
	for _, c := range keep.Heap {
		if c.Comparable == nil || c.Dist >= tol*tol {
			continue
		}
		id := c.Comparable.(indexedPoint).id
		if best == NoNeuron || c.Dist < bestDist || (c.Dist == bestDist && id < best) {
			best, bestDist = id, c.Dist
		}
	}
	return best, best != NoNeuron
}
