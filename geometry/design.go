package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrMalformedDesign is returned for any design the builder cannot honour.
var ErrMalformedDesign = errors.New("malformed geometry design")

// Cap styles, one per end of the tube.
const (
	capNone = 'x'
	capFlat = 'f'
)

// Cross-section modes.
const (
	sectionOpen      = 'x'
	sectionSymmetric = 's'
)

// Header carries the metadata of a design.
type Header struct {
	// VerticalSegments is the number of rings along the tube minus one.
	VerticalSegments int `yaml:"vertical_segments"`

	// AngularSegments is the number of quads around each ring. Symmetric
	// designs need an even count.
	AngularSegments int `yaml:"angular_segments"`

	// Caps holds three flag characters: top cap, bottom cap, cross-section
	// mode. A cap is 'x' (none), 'f' (flat) or anything else (rounded,
	// normals blended with the torso). The mode is 'x' (open), 's'
	// (symmetric, closed) or anything else (closed).
	Caps string `yaml:"caps"`

	// Angles lists, in degrees, where the radius columns of every section
	// sit around the ring. Symmetric designs give the half profile from
	// 0 to 180.
	Angles []float64 `yaml:"angles"`

	// Sweep is the angular extent, in degrees, of the snapping grid. Zero
	// means the last angle.
	Sweep float64 `yaml:"sweep,omitempty"`
}

// Section is one sparse cross-section of the tube.
type Section struct {
	Center r3.Vec
	// Radii has one entry per header angle.
	Radii []float64
}

// Design is the sparse description the builder turns into a tube.
type Design struct {
	Header   Header
	Sections []Section
}

func (h Header) flag(i int) byte {
	if i < len(h.Caps) {
		return h.Caps[i]
	}
	return 0
}

func (h Header) hasTop() bool     { return h.flag(0) != capNone }
func (h Header) flatTop() bool    { return h.flag(0) == capFlat }
func (h Header) hasBottom() bool  { return h.flag(1) != capNone }
func (h Header) flatBottom() bool { return h.flag(1) == capFlat }
func (h Header) closed() bool     { return h.flag(2) != sectionOpen }
func (h Header) symmetric() bool  { return h.flag(2) == sectionSymmetric }

// plan is a validated design with the symmetric profile expanded and every
// angle snapped onto the ring grid.
type plan struct {
	vertical, radial int

	hasTop, flatTop       bool
	hasBottom, flatBottom bool
	closed, symmetric     bool

	// sweep in radians; a full turn for closed sections.
	sweep float64
	// phi are the snapped knot angles in radians, strictly increasing.
	phi []float64

	centers []r3.Vec
	// radii[k][j] is the radius of section k at knot j.
	radii [][]float64
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedDesign, fmt.Sprintf(format, args...))
}

// Validate reports whether d can be built.
func (d Design) Validate() error {
	_, err := newPlan(d)
	return err
}

func newPlan(d Design) (*plan, error) {
	h := d.Header
	if h.VerticalSegments < 1 {
		return nil, malformed("vertical segments %d < 1", h.VerticalSegments)
	}
	if h.AngularSegments < 1 {
		return nil, malformed("angular segments %d < 1", h.AngularSegments)
	}
	if len(h.Caps) != 3 {
		return nil, malformed("caps %q must hold 3 flags", h.Caps)
	}
	if len(h.Angles) == 0 {
		return nil, malformed("no angles")
	}
	if len(d.Sections) < 2 {
		return nil, malformed("%d sections, need at least 2", len(d.Sections))
	}
	for k, s := range d.Sections {
		if len(s.Radii) != len(h.Angles) {
			return nil, malformed("section %d has %d radii for %d angles", k, len(s.Radii), len(h.Angles))
		}
		if k > 0 && s.Center == d.Sections[k-1].Center {
			return nil, malformed("sections %d and %d share a center", k-1, k)
		}
	}

	p := &plan{
		vertical:   h.VerticalSegments,
		radial:     h.AngularSegments,
		hasTop:     h.hasTop(),
		flatTop:    h.flatTop(),
		hasBottom:  h.hasBottom(),
		flatBottom: h.flatBottom(),
		closed:     h.closed(),
		symmetric:  h.symmetric(),
	}

	angles := append([]float64(nil), h.Angles...)
	p.radii = make([][]float64, len(d.Sections))
	for k, s := range d.Sections {
		p.radii[k] = append([]float64(nil), s.Radii...)
		p.centers = append(p.centers, s.Center)
	}

	sweep := h.Sweep
	if p.symmetric {
		if p.radial%2 != 0 {
			return nil, malformed("symmetric design needs an even angular segment count, got %d", p.radial)
		}
		if len(angles) < 2 {
			return nil, malformed("symmetric design needs at least the 0 and 180 degree angles")
		}
		angles, p.radii = mirror(angles, p.radii)
		sweep = 360
	}
	if sweep == 0 {
		sweep = angles[len(angles)-1]
	}
	if sweep <= 0 || sweep > 360 {
		return nil, malformed("sweep %v outside (0, 360]", sweep)
	}

	phi, err := snapAngles(angles, sweep, p.radial)
	if err != nil {
		return nil, err
	}

	if p.closed {
		// A knot a full turn after the first is the same knot.
		if len(phi) > 1 && phi[len(phi)-1]-phi[0] >= 2*math.Pi-1e-9 {
			phi = phi[:len(phi)-1]
			for k := range p.radii {
				p.radii[k] = p.radii[k][:len(phi)]
			}
		}
		p.sweep = 2 * math.Pi
	} else {
		p.sweep = sweep * math.Pi / 180
	}
	p.phi = phi
	return p, nil
}

// mirror expands a half profile 0..180 into a full ring. The first and last
// angles are pinned to 0 and 180, the interior angles are reflected to
// 360-a in reverse order, and every section's radii follow.
func mirror(angles []float64, radii [][]float64) ([]float64, [][]float64) {
	n := len(angles)
	full := make([]float64, 0, 2*n-2)
	full = append(full, angles...)
	full[0] = 0
	full[n-1] = 180
	for j := n - 2; j >= 1; j-- {
		full = append(full, 360-angles[j])
	}

	out := make([][]float64, len(radii))
	for k, r := range radii {
		row := make([]float64, 0, 2*n-2)
		row = append(row, r...)
		for j := n - 2; j >= 1; j-- {
			row = append(row, r[j])
		}
		out[k] = row
	}
	return full, out
}

// snapAngles moves every angle onto the nearest of the radial+1 grid angles
// spanning sweep, and returns them in radians. An angle with no grid point
// within half a step, or two angles landing on the same grid point, make
// the design malformed.
func snapAngles(angles []float64, sweep float64, radial int) ([]float64, error) {
	step := sweep / float64(radial)
	out := make([]float64, len(angles))
	prev := -1
	for i, a := range angles {
		if a < 0 || a > sweep {
			return nil, malformed("angle %v outside [0, %v]", a, sweep)
		}
		j := int(math.Round(a / step))
		if j > radial {
			j = radial
		}
		if math.Abs(a-float64(j)*step) >= step/2 {
			return nil, malformed("angle %v does not snap to the %v degree grid", a, step)
		}
		if j <= prev {
			return nil, malformed("angle %v snaps onto or before angle %v", a, angles[i-1])
		}
		prev = j
		out[i] = float64(j) * step * math.Pi / 180
	}
	return out, nil
}
