package mesh

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gridglue/geometry"
)

// Box is an axis aligned bounding box
type Box struct {
	Min, Max []float64
}

func UnitBox(dim int) Box {
	b := Box{Min: make([]float64, dim), Max: make([]float64, dim)}
	for d := range b.Max {
		b.Max[d] = 1
	}
	return b
}

// NewLineMesh builds a 1D mesh of Line elements through the given nodes
func NewLineMesh(xs ...float64) *Mesh {
	m := NewMesh()
	for _, x := range xs {
		m.AddVertex(x)
	}
	for i := 0; i+1 < len(xs); i++ {
		m.AddElement(geometry.Line, 0, i, i+1)
	}
	m.BuildConnectivity()
	return m
}

// NewRectMesh builds an nx by ny structured mesh of the box, with Quad or
// Triangle elements. Triangles split each cell along the diagonal from
// (xmax,ymin) to (xmin,ymax), or along the other diagonal when flip is set.
func NewRectMesh(nx, ny int, box Box, et geometry.Type, flip bool) *Mesh {
	m := NewMesh()
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			m.AddVertex(
				lerp(box.Min[0], box.Max[0], i, nx),
				lerp(box.Min[1], box.Max[1], j, ny),
			)
		}
	}
	vid := func(i, j int) int { return i + (nx+1)*j }
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			v00, v10, v01, v11 := vid(i, j), vid(i+1, j), vid(i, j+1), vid(i+1, j+1)
			switch et {
			case geometry.Quad:
				m.AddElement(geometry.Quad, 0, v00, v10, v01, v11)
			case geometry.Triangle:
				if flip {
					m.AddElement(geometry.Triangle, 0, v00, v10, v11)
					m.AddElement(geometry.Triangle, 0, v00, v11, v01)
				} else {
					m.AddElement(geometry.Triangle, 0, v00, v10, v01)
					m.AddElement(geometry.Triangle, 0, v11, v01, v10)
				}
			default:
				panic(fmt.Sprintf("mesh: rectangle of %s elements", et))
			}
		}
	}
	m.BuildConnectivity()
	return m
}

// kuhnPaths are the axis orders of the six tets of a Kuhn split of a cube
var kuhnPaths = [6][3]int{
	{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
}

// NewBoxMesh builds an nx by ny by nz structured mesh of the box, with Hex
// elements or six positively oriented Tet elements per cell
func NewBoxMesh(nx, ny, nz int, box Box, et geometry.Type) *Mesh {
	m := NewMesh()
	for k := 0; k <= nz; k++ {
		for j := 0; j <= ny; j++ {
			for i := 0; i <= nx; i++ {
				m.AddVertex(
					lerp(box.Min[0], box.Max[0], i, nx),
					lerp(box.Min[1], box.Max[1], j, ny),
					lerp(box.Min[2], box.Max[2], k, nz),
				)
			}
		}
	}
	vid := func(i, j, k int) int { return i + (nx+1)*(j+(ny+1)*k) }
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				// lexicographic cell corners
				var cell [8]int
				for c := range cell {
					cell[c] = vid(i+c&1, j+(c>>1)&1, k+(c>>2)&1)
				}
				switch et {
				case geometry.Hex:
					m.AddElement(geometry.Hex, 0, cell[:]...)
				case geometry.Tet:
					for _, path := range kuhnPaths {
						c := 0
						tet := []int{cell[0]}
						for _, axis := range path {
							c |= 1 << axis
							tet = append(tet, cell[c])
						}
						m.AddElement(geometry.Tet, 0, m.orient(tet)...)
					}
				default:
					panic(fmt.Sprintf("mesh: box of %s elements", et))
				}
			}
		}
	}
	m.BuildConnectivity()
	return m
}

// orient swaps the last two corners of a simplex with a negative Jacobian
func (m *Mesh) orient(verts []int) []int {
	var (
		dim = len(verts) - 1
		jac = mat.NewDense(dim, dim, nil)
		t   = make([]float64, dim)
	)
	for j := 0; j < dim; j++ {
		floats.SubTo(t, m.Vertices[verts[j+1]], m.Vertices[verts[0]])
		jac.SetCol(j, t)
	}
	if mat.Det(jac) < 0 {
		verts[dim-1], verts[dim] = verts[dim], verts[dim-1]
	}
	return verts
}

func lerp(a, b float64, i, n int) float64 {
	if i == n {
		return b
	}
	return a + (b-a)*float64(i)/float64(n)
}
