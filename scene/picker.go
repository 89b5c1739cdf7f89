package scene

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/neuromesh/core"
	"github.com/signalsfoundry/neuromesh/geometry"
)

// Camera is a perspective camera looking from Position at Target.
type Camera struct {
	Position r3.Vec
	Target   r3.Vec
	Up       r3.Vec
	// FovY is the vertical field of view in degrees.
	FovY   float64
	Aspect float64
}

// DefaultCamera returns the orbit camera the scene starts with.
func DefaultCamera(aspect float64) Camera {
	return Camera{
		Position: r3.Vec{Y: 25, Z: 40},
		Up:       r3.Vec{Y: 1},
		FovY:     75,
		Aspect:   aspect,
	}
}

// Ray returns the origin and unit direction of the ray through the given
// normalised device coordinates.
func (c Camera) Ray(ndcX, ndcY float64) (origin, dir r3.Vec) {
	forward := r3.Unit(r3.Sub(c.Target, c.Position))
	right := r3.Unit(r3.Cross(forward, c.Up))
	up := r3.Cross(right, forward)

	tanHalf := math.Tan(c.FovY * math.Pi / 360)
	dir = r3.Add(forward, r3.Add(
		r3.Scale(ndcX*tanHalf*c.Aspect, right),
		r3.Scale(ndcY*tanHalf, up),
	))
	return c.Position, r3.Unit(dir)
}

// RenderableSource lists what can be picked. *Registry satisfies it.
type RenderableSource interface {
	Renderables() []Renderable
}

// RayPicker hit-tests the renderables of a source against a camera ray and
// reports the nearest hit.
type RayPicker struct {
	Camera Camera
	Source RenderableSource

	mu     sync.Mutex
	bounds map[*geometry.Mesh]sphereBound
}

type sphereBound struct {
	center r3.Vec
	radius float64
}

// NewRayPicker returns a picker over src.
func NewRayPicker(cam Camera, src RenderableSource) *RayPicker {
	return &RayPicker{Camera: cam, Source: src}
}

// Pick returns the handle of the nearest renderable under the pointer.
func (p *RayPicker) Pick(ndcX, ndcY float64) (core.Handle, bool) {
	origin, dir := p.Camera.Ray(ndcX, ndcY)

	best := math.Inf(1)
	var hit core.Handle
	found := false
	for _, r := range p.Source.Renderables() {
		if r.Mesh == nil {
			continue
		}
		// Work in mesh space.
		o := r3.Sub(origin, r.Translation)
		b := p.bound(r.Mesh)
		if !raySphere(o, dir, b, best) {
			continue
		}
		for i := 0; i < r.Mesh.TriangleCount(); i++ {
			if t, ok := rayTriangle(o, dir, r.Mesh.Triangle(i)); ok && t < best {
				best, hit, found = t, r.Handle, true
			}
		}
	}
	return hit, found
}

func (p *RayPicker) bound(m *geometry.Mesh) sphereBound {
	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.bounds[m]; ok {
		return b
	}
	if p.bounds == nil {
		p.bounds = make(map[*geometry.Mesh]sphereBound)
	}

	var b sphereBound
	if len(m.Positions) > 0 {
		lo, hi := m.Positions[0], m.Positions[0]
		for _, v := range m.Positions[1:] {
			lo = r3.Vec{X: math.Min(lo.X, v.X), Y: math.Min(lo.Y, v.Y), Z: math.Min(lo.Z, v.Z)}
			hi = r3.Vec{X: math.Max(hi.X, v.X), Y: math.Max(hi.Y, v.Y), Z: math.Max(hi.Z, v.Z)}
		}
		b.center = r3.Scale(0.5, r3.Add(lo, hi))
		for _, v := range m.Positions {
			b.radius = math.Max(b.radius, r3.Norm(r3.Sub(v, b.center)))
		}
	}
	p.bounds[m] = b
	return b
}

// raySphere reports whether the ray can hit the bound closer than maxT.
func raySphere(o, dir r3.Vec, b sphereBound, maxT float64) bool {
	oc := r3.Sub(b.center, o)
	tc := r3.Dot(oc, dir)
	d2 := r3.Dot(oc, oc) - tc*tc
	r2 := b.radius * b.radius
	if d2 > r2 {
		return false
	}
	half := math.Sqrt(r2 - d2)
	return tc+half >= 0 && tc-half < maxT
}

// rayTriangle intersects a ray with a two-sided triangle using the
// Möller-Trumbore method and returns the ray parameter of the hit.
func rayTriangle(o, dir r3.Vec, tri r3.Triangle) (float64, bool) {
	const eps = 1e-12
	e1 := r3.Sub(tri[1], tri[0])
	e2 := r3.Sub(tri[2], tri[0])
	pv := r3.Cross(dir, e2)
	det := r3.Dot(e1, pv)
	if math.Abs(det) < eps {
		return 0, false
	}
	inv := 1 / det
	tv := r3.Sub(o, tri[0])
	u := r3.Dot(tv, pv) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	qv := r3.Cross(tv, e1)
	v := r3.Dot(dir, qv) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := r3.Dot(e2, qv) * inv
	if t <= eps {
		return 0, false
	}
	return t, true
}
