package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Sphere returns a UV sphere centred on the origin with widthSegments
// columns and heightSegments rows. The seam column is duplicated for
// texturing and pole rows skip their degenerate triangles.
func Sphere(radius float64, widthSegments, heightSegments int) *Mesh {
	widthSegments = max(3, widthSegments)
	heightSegments = max(2, heightSegments)

	m := &Mesh{}
	grid := make([][]int, heightSegments+1)
	index := 0
	for iy := 0; iy <= heightSegments; iy++ {
		v := float64(iy) / float64(heightSegments)

		uOffset := 0.0
		switch iy {
		case 0:
			uOffset = 0.5 / float64(widthSegments)
		case heightSegments:
			uOffset = -0.5 / float64(widthSegments)
		}

		row := make([]int, widthSegments+1)
		for ix := 0; ix <= widthSegments; ix++ {
			u := float64(ix) / float64(widthSegments)
			phi := u * 2 * math.Pi
			theta := v * math.Pi
			p := r3.Vec{
				X: -radius * math.Cos(phi) * math.Sin(theta),
				Y: radius * math.Cos(theta),
				Z: radius * math.Sin(phi) * math.Sin(theta),
			}
			m.Positions = append(m.Positions, p)
			n := r3.Vec{Y: 1}
			if l := r3.Norm(p); l > 0 {
				n = r3.Scale(1/l, p)
			}
			m.Normals = append(m.Normals, n)
			m.UVs = append(m.UVs, [2]float64{u + uOffset, 1 - v})
			row[ix] = index
			index++
		}
		grid[iy] = row
	}

	for iy := 0; iy < heightSegments; iy++ {
		for ix := 0; ix < widthSegments; ix++ {
			a := grid[iy][ix+1]
			b := grid[iy][ix]
			c := grid[iy+1][ix]
			d := grid[iy+1][ix+1]
			if iy != 0 {
				m.Indices = append(m.Indices, a, b, d)
			}
			if iy != heightSegments-1 {
				m.Indices = append(m.Indices, b, c, d)
			}
		}
	}
	m.Groups = []Group{{Start: 0, Count: len(m.Indices), MaterialIndex: GroupTorso}}
	return m
}
