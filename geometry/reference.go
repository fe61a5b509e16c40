package geometry

import (
	"fmt"
	"strings"
)

// Type identifies a reference element shape
type Type uint8

const (
	Point Type = iota
	Line
	Triangle
	Quad
	Tet
	Hex
	Prism
	Pyramid
)

func (t Type) String() string {
	if int(t) < len(refElements) {
		return refElements[t].name
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// ParseType looks a Type up by name, ignoring case
func ParseType(name string) (Type, error) {
	for t := range refElements {
		if strings.EqualFold(refElements[t].name, name) {
			return Type(t), nil
		}
	}
	return 0, fmt.Errorf("geometry: unknown element type %q", name)
}

type refElement struct {
	name    string
	dim     int
	simplex bool
	corners [][]float64
	// Facet corner lists. Edges of 2D elements run counterclockwise, 3D
	// facets are ordered so that (c1-c0)x(c2-c0) points out of the element.
	// Quad facets are lexicographic: corner 3 is opposite corner 0.
	facets [][]int
}

// Corner numbering of Quad, Hex and the Pyramid base is lexicographic:
// corner i of a Hex sits at (i&1, (i>>1)&1, (i>>2)&1).
var refElements = [...]refElement{
	Point: {name: "Point", dim: 0, simplex: true,
		corners: [][]float64{{}},
	},
	Line: {name: "Line", dim: 1, simplex: true,
		corners: [][]float64{{0}, {1}},
		facets:  [][]int{{0}, {1}},
	},
	Triangle: {name: "Triangle", dim: 2, simplex: true,
		corners: [][]float64{{0, 0}, {1, 0}, {0, 1}},
		facets:  [][]int{{0, 1}, {1, 2}, {2, 0}},
	},
	Quad: {name: "Quad", dim: 2,
		corners: [][]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}},
		facets:  [][]int{{0, 1}, {1, 3}, {3, 2}, {2, 0}},
	},
	Tet: {name: "Tet", dim: 3, simplex: true,
		corners: [][]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		facets:  [][]int{{0, 2, 1}, {0, 1, 3}, {1, 2, 3}, {0, 3, 2}},
	},
	Hex: {name: "Hex", dim: 3,
		corners: [][]float64{
			{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0},
			{0, 0, 1}, {1, 0, 1}, {0, 1, 1}, {1, 1, 1},
		},
		facets: [][]int{
			{0, 4, 2, 6}, // x=0
			{1, 3, 5, 7}, // x=1
			{0, 1, 4, 5}, // y=0
			{2, 6, 3, 7}, // y=1
			{0, 2, 1, 3}, // z=0
			{4, 5, 6, 7}, // z=1
		},
	},
	Prism: {name: "Prism", dim: 3,
		corners: [][]float64{
			{0, 0, 0}, {1, 0, 0}, {0, 1, 0},
			{0, 0, 1}, {1, 0, 1}, {0, 1, 1},
		},
		facets: [][]int{
			{0, 2, 1},    // bottom
			{3, 4, 5},    // top
			{0, 1, 3, 4}, // y=0
			{1, 2, 4, 5}, // x+y=1
			{0, 3, 2, 5}, // x=0
		},
	},
	Pyramid: {name: "Pyramid", dim: 3,
		corners: [][]float64{
			{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}, {0, 0, 1},
		},
		facets: [][]int{
			{0, 2, 1, 3}, // base
			{0, 1, 4},
			{1, 3, 4},
			{3, 2, 4},
			{2, 0, 4},
		},
	},
}

func (t Type) ref() *refElement {
	if int(t) >= len(refElements) {
		panic(fmt.Sprintf("geometry: unknown element type %d", uint8(t)))
	}
	return &refElements[t]
}

// Dim is the topological dimension of the reference element
func (t Type) Dim() int { return t.ref().dim }

func (t Type) IsSimplex() bool { return t.ref().simplex }

func (t Type) NumCorners() int { return len(t.ref().corners) }

func (t Type) NumFacets() int { return len(t.ref().facets) }

// ReferenceCorners returns a fresh copy of the reference corner coordinates
func (t Type) ReferenceCorners() [][]float64 {
	src := t.ref().corners
	out := make([][]float64, len(src))
	for i, c := range src {
		out[i] = append([]float64{}, c...)
	}
	return out
}

// FacetCorners returns the element-local corner numbers of facet f, in
// outward orientation.
func (t Type) FacetCorners(f int) []int {
	fc := t.ref().facets
	if f < 0 || f >= len(fc) {
		panic(fmt.Sprintf("geometry: %s has no facet %d", t, f))
	}
	return append([]int{}, fc[f]...)
}

// FacetType returns the reference shape of facet f
func (t Type) FacetType(f int) Type {
	n := len(t.FacetCorners(f))
	switch {
	case n == 1:
		return Point
	case n == 2:
		return Line
	case n == 3:
		return Triangle
	default:
		return Quad
	}
}

// SimplexType returns the simplex of the given dimension
func SimplexType(dim int) Type {
	switch dim {
	case 0:
		return Point
	case 1:
		return Line
	case 2:
		return Triangle
	case 3:
		return Tet
	}
	panic(fmt.Sprintf("geometry: no simplex of dimension %d", dim))
}

// Center returns the mean of the reference corners
func (t Type) Center() []float64 {
	var (
		corners = t.ref().corners
		c       = make([]float64, t.Dim())
	)
	for _, x := range corners {
		for d := range c {
			c[d] += x[d]
		}
	}
	for d := range c {
		c[d] /= float64(len(corners))
	}
	return c
}

// ShapeFunctions evaluates the corner weights of the reference map at a local
// coordinate. Simplices are affine, Quad and Hex multilinear, Prism is the
// tensor of a triangle with a line, and Pyramid uses the collapsed-hex
// rational map.
func (t Type) ShapeFunctions(x []float64) []float64 {
	switch t {
	case Point:
		return []float64{1}
	case Line:
		return []float64{1 - x[0], x[0]}
	case Triangle:
		return []float64{1 - x[0] - x[1], x[0], x[1]}
	case Tet:
		return []float64{1 - x[0] - x[1] - x[2], x[0], x[1], x[2]}
	case Quad:
		return []float64{
			(1 - x[0]) * (1 - x[1]), x[0] * (1 - x[1]),
			(1 - x[0]) * x[1], x[0] * x[1],
		}
	case Hex:
		n := make([]float64, 8)
		for i := range n {
			n[i] = lerpWeight(x[0], i&1) * lerpWeight(x[1], (i>>1)&1) *
				lerpWeight(x[2], (i>>2)&1)
		}
		return n
	case Prism:
		tri := []float64{1 - x[0] - x[1], x[0], x[1]}
		n := make([]float64, 6)
		for i := 0; i < 3; i++ {
			n[i] = tri[i] * (1 - x[2])
			n[i+3] = tri[i] * x[2]
		}
		return n
	case Pyramid:
		h := 1 - x[2]
		if h < 1e-14 {
			return []float64{0, 0, 0, 0, 1}
		}
		u, v := x[0]/h, x[1]/h
		return []float64{
			(1 - u) * (1 - v) * h, u * (1 - v) * h,
			(1 - u) * v * h, u * v * h,
			x[2],
		}
	}
	panic(fmt.Sprintf("geometry: no shape functions for %s", t))
}

func lerpWeight(s float64, bit int) float64 {
	if bit == 1 {
		return s
	}
	return 1 - s
}

// Global maps a local coordinate through the reference map defined by the
// element corners.
func (t Type) Global(corners [][]float64, x []float64) []float64 {
	if len(corners) != t.NumCorners() {
		panic(fmt.Sprintf("geometry: %s needs %d corners, got %d",
			t, t.NumCorners(), len(corners)))
	}
	var (
		n   = t.ShapeFunctions(x)
		out = make([]float64, len(corners[0]))
	)
	for i, c := range corners {
		for d := range out {
			out[d] += n[i] * c[d]
		}
	}
	return out
}
