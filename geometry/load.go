package geometry

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

// designFile is the YAML form of a Design:
//
//	header:
//	  vertical_segments: 18
//	  angular_segments: 8
//	  caps: ffc
//	  angles: [0, 60, 120, 180, 240, 300]
//	sections:
//	  - center: [0, 0, 0]
//	    radii: [1, 1, 1, 1, 1, 1]
type designFile struct {
	Header   Header        `yaml:"header"`
	Sections []sectionFile `yaml:"sections"`
}

type sectionFile struct {
	Center [3]float64 `yaml:"center"`
	Radii  []float64  `yaml:"radii"`
}

// LoadDesign reads a YAML design from path.
func LoadDesign(path string) (Design, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Design{}, fmt.Errorf("read design %s: %w", path, err)
	}
	d, err := ParseDesign(bytes.NewReader(data))
	if err != nil {
		return Design{}, fmt.Errorf("design %s: %w", path, err)
	}
	return d, nil
}

// ParseDesign decodes a YAML design from r and validates it.
func ParseDesign(r io.Reader) (Design, error) {
	var f designFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return Design{}, fmt.Errorf("decode design: %w", err)
	}

	d := Design{Header: f.Header}
	for _, s := range f.Sections {
		d.Sections = append(d.Sections, Section{
			Center: r3.Vec{X: s.Center[0], Y: s.Center[1], Z: s.Center[2]},
			Radii:  s.Radii,
		})
	}
	if err := d.Validate(); err != nil {
		return Design{}, err
	}
	return d, nil
}
