package geometry

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/spatial/r3"
)

// samplesPerSpan is how finely each span between two section centers is
// walked when measuring arc length.
const samplesPerSpan = 64

// centerline is a smooth curve through the section centers, parametrised by
// cumulative chord length and measured by arc length.
type centerline struct {
	x, y, z interp.AkimaSpline

	// t and s are a dense table of curve parameter against arc length.
	t, s []float64
	// knotS is the arc length at each section center.
	knotS []float64
}

func newCenterline(centers []r3.Vec) (*centerline, error) {
	n := len(centers)
	ts := make([]float64, n)
	xs, ys, zs := make([]float64, n), make([]float64, n), make([]float64, n)
	for i, c := range centers {
		if i > 0 {
			ts[i] = ts[i-1] + r3.Norm(r3.Sub(c, centers[i-1]))
		}
		xs[i], ys[i], zs[i] = c.X, c.Y, c.Z
	}

	cl := &centerline{}
	for _, f := range []struct {
		sp *interp.AkimaSpline
		ys []float64
	}{{&cl.x, xs}, {&cl.y, ys}, {&cl.z, zs}} {
		if err := fitAkima(f.sp, ts, f.ys); err != nil {
			return nil, fmt.Errorf("centerline: %w", err)
		}
	}

	cl.t = append(cl.t, 0)
	cl.s = append(cl.s, 0)
	cl.knotS = append(cl.knotS, 0)
	prev := centers[0]
	for k := 1; k < n; k++ {
		t0, t1 := ts[k-1], ts[k]
		for m := 1; m <= samplesPerSpan; m++ {
			t := t0 + (t1-t0)*float64(m)/samplesPerSpan
			if m == samplesPerSpan {
				t = t1
			}
			p := cl.at(t)
			cl.t = append(cl.t, t)
			cl.s = append(cl.s, cl.s[len(cl.s)-1]+r3.Norm(r3.Sub(p, prev)))
			prev = p
		}
		cl.knotS = append(cl.knotS, cl.s[len(cl.s)-1])
	}
	return cl, nil
}

// fitAkima fits sp through the knots. interp panics on too few or
// unordered knots, so those are reported as malformed first.
func fitAkima(sp *interp.AkimaSpline, xs, ys []float64) error {
	if len(xs) < 2 || len(ys) != len(xs) {
		return malformed("spline needs at least 2 knots with one value each, got %d and %d", len(xs), len(ys))
	}
	for i := 1; i < len(xs); i++ {
		if !(xs[i] > xs[i-1]) {
			return malformed("spline knot %d at %g does not follow %g", i, xs[i], xs[i-1])
		}
	}
	if err := sp.Fit(xs, ys); err != nil {
		return malformed("fit spline: %v", err)
	}
	return nil
}

func (cl *centerline) at(t float64) r3.Vec {
	return r3.Vec{X: cl.x.Predict(t), Y: cl.y.Predict(t), Z: cl.z.Predict(t)}
}

// length returns the total arc length.
func (cl *centerline) length() float64 { return cl.s[len(cl.s)-1] }

// paramAt inverts the arc-length table.
func (cl *centerline) paramAt(s float64) float64 {
	i := sort.SearchFloat64s(cl.s, s)
	switch {
	case i <= 0:
		return cl.t[0]
	case i >= len(cl.s):
		return cl.t[len(cl.t)-1]
	}
	s0, s1 := cl.s[i-1], cl.s[i]
	if s1 == s0 {
		return cl.t[i]
	}
	f := (s - s0) / (s1 - s0)
	return cl.t[i-1] + f*(cl.t[i]-cl.t[i-1])
}

// spaced returns n+1 points at equal arc-length steps, and the arc length
// of each.
func (cl *centerline) spaced(n int) ([]r3.Vec, []float64) {
	pts := make([]r3.Vec, n+1)
	arc := make([]float64, n+1)
	l := cl.length()
	for i := 0; i <= n; i++ {
		s := l * float64(i) / float64(n)
		arc[i] = s
		pts[i] = cl.at(cl.paramAt(s))
	}
	return pts, arc
}

// radiusProfiles resamples every radius column along the tube. knotS is
// the arc length of each section center, radii[k][j] the radius of section
// k at knot j, and arc the arc length of every ring. It returns rows[i][j].
func radiusProfiles(knotS []float64, radii [][]float64, arc []float64) ([][]float64, error) {
	cols := len(radii[0])
	rows := make([][]float64, len(arc))
	for i := range rows {
		rows[i] = make([]float64, cols)
	}
	ys := make([]float64, len(knotS))
	for j := 0; j < cols; j++ {
		for k := range knotS {
			ys[k] = radii[k][j]
		}
		var sp interp.AkimaSpline
		if err := fitAkima(&sp, knotS, ys); err != nil {
			return nil, fmt.Errorf("radius column %d: %w", j, err)
		}
		for i, s := range arc {
			rows[i][j] = sp.Predict(s)
		}
	}
	return rows, nil
}

// polar interpolates a radius over angle through the knots of one ring.
type polar struct {
	constant float64
	single   bool
	periodic bool
	sp       interp.AkimaSpline
}

func newPolar(phi, r []float64, periodic bool) (*polar, error) {
	if len(phi) == 1 && len(r) == 1 {
		return &polar{constant: r[0], single: true}, nil
	}
	p := &polar{periodic: periodic}
	if !periodic {
		if err := fitAkima(&p.sp, phi, r); err != nil {
			return nil, fmt.Errorf("ring: %w", err)
		}
		return p, nil
	}
	// Three copies of the knots keep the slopes continuous across the seam.
	n := len(phi)
	xs := make([]float64, 0, 3*n)
	ys := make([]float64, 0, 3*n)
	for _, off := range []float64{-2 * math.Pi, 0, 2 * math.Pi} {
		for j := range phi {
			xs = append(xs, phi[j]+off)
			ys = append(ys, r[j])
		}
	}
	if err := fitAkima(&p.sp, xs, ys); err != nil {
		return nil, fmt.Errorf("closed ring: %w", err)
	}
	return p, nil
}

func (p *polar) at(theta float64) float64 {
	if p.single {
		return p.constant
	}
	if p.periodic {
		theta = math.Mod(theta, 2*math.Pi)
		if theta < 0 {
			theta += 2 * math.Pi
		}
	}
	return p.sp.Predict(theta)
}

// planar is a cross-section offset: x along the binormal, z along the
// normal of the centerline frame.
type planar struct{ x, z float64 }

// ring samples radial+1 offsets over sweep. Closed rings end where they
// start.
func ring(p *polar, radial int, sweep float64, closed bool) []planar {
	out := make([]planar, radial+1)
	for j := 0; j <= radial; j++ {
		if closed && j == radial {
			out[j] = out[0]
			continue
		}
		theta := sweep * float64(j) / float64(radial)
		r := p.at(theta)
		out[j] = planar{x: -math.Cos(theta) * r, z: math.Sin(theta) * r}
	}
	return out
}
