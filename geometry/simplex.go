package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Simplex is an affine map from a reference simplex into a space of equal or
// higher dimension. Corner i of the reference simplex maps to Corners()[i].
type Simplex struct {
	corners [][]float64
	jac     *mat.Dense // worldDim x dim, column j is corner[j+1]-corner[0]
	intEl   float64
}

// NewSimplex copies the corners and builds the map. All corners must share
// one dimension and there must be at most worldDim+1 of them.
func NewSimplex(corners [][]float64) *Simplex {
	if len(corners) == 0 {
		panic("geometry: simplex needs at least one corner")
	}
	var (
		wd  = len(corners[0])
		dim = len(corners) - 1
		s   = &Simplex{corners: make([][]float64, len(corners))}
	)
	if dim > wd && wd > 0 {
		panic(fmt.Sprintf("geometry: %d corners cannot span a simplex in R^%d",
			len(corners), wd))
	}
	for i, c := range corners {
		if len(c) != wd {
			panic(fmt.Sprintf("geometry: corner %d has dimension %d, want %d",
				i, len(c), wd))
		}
		s.corners[i] = append([]float64{}, c...)
	}
	if dim == 0 {
		s.intEl = 1
		return s
	}
	s.jac = mat.NewDense(wd, dim, nil)
	for j := 0; j < dim; j++ {
		for d := 0; d < wd; d++ {
			s.jac.Set(d, j, corners[j+1][d]-corners[0][d])
		}
	}
	s.intEl = s.integrationElement()
	return s
}

func (s *Simplex) integrationElement() float64 {
	dim, wd := s.Dim(), s.WorldDim()
	switch {
	case dim == 1:
		return floats.Norm(s.tangent(0), 2)
	case dim == wd:
		return math.Abs(mat.Det(s.jac))
	case dim == 2 && wd == 3:
		return floats.Norm(Cross(s.tangent(0), s.tangent(1)), 2)
	}
	var jtj mat.Dense
	jtj.Mul(s.jac.T(), s.jac)
	return math.Sqrt(math.Max(mat.Det(&jtj), 0))
}

func (s *Simplex) Dim() int { return len(s.corners) - 1 }

func (s *Simplex) WorldDim() int { return len(s.corners[0]) }

func (s *Simplex) Type() Type { return SimplexType(s.Dim()) }

// Corners returns a copy of the world corners
func (s *Simplex) Corners() [][]float64 {
	out := make([][]float64, len(s.corners))
	for i, c := range s.corners {
		out[i] = append([]float64{}, c...)
	}
	return out
}

func (s *Simplex) Corner(i int) []float64 {
	return append([]float64{}, s.corners[i]...)
}

// Global maps a reference coordinate to world coordinates
func (s *Simplex) Global(local []float64) []float64 {
	out := append([]float64{}, s.corners[0]...)
	for j := 0; j < s.Dim(); j++ {
		floats.AddScaled(out, local[j], s.tangent(j))
	}
	return out
}

func (s *Simplex) tangent(j int) []float64 {
	t := make([]float64, s.WorldDim())
	floats.SubTo(t, s.corners[j+1], s.corners[0])
	return t
}

// Local returns the reference coordinate whose image is closest to x. For a
// point in the affine hull this is the exact preimage.
func (s *Simplex) Local(x []float64) []float64 {
	dim := s.Dim()
	if dim == 0 {
		return []float64{}
	}
	if s.Degenerate() {
		panic("geometry: Local on a degenerate simplex")
	}
	rhs := make([]float64, s.WorldDim())
	floats.SubTo(rhs, x, s.corners[0])
	var sol mat.VecDense
	if err := sol.SolveVec(s.jac, mat.NewVecDense(len(rhs), rhs)); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			panic(fmt.Sprintf("geometry: local solve failed: %v", err))
		}
	}
	out := make([]float64, dim)
	for j := range out {
		out[j] = sol.AtVec(j)
	}
	return out
}

// Residual is the distance from x to the affine hull of the simplex
func (s *Simplex) Residual(x []float64) float64 {
	return floats.Distance(s.Global(s.Local(x)), x, 2)
}

// Jacobian returns a copy of the worldDim x dim Jacobian
func (s *Simplex) Jacobian() *mat.Dense {
	if s.jac == nil {
		return nil
	}
	return mat.DenseCopyOf(s.jac)
}

// IntegrationElement is sqrt(det(J^T J)), constant over the simplex
func (s *Simplex) IntegrationElement() float64 { return s.intEl }

// Volume is the dim-dimensional measure of the simplex
func (s *Simplex) Volume() float64 {
	v := s.intEl
	for k := 2; k <= s.Dim(); k++ {
		v /= float64(k)
	}
	return v
}

// Degenerate reports an integration element that vanishes relative to the
// simplex size
func (s *Simplex) Degenerate() bool {
	if s.Dim() == 0 {
		return false
	}
	return s.intEl <= 1e-12*math.Pow(s.Diameter(), float64(s.Dim()))
}

func (s *Simplex) Center() []float64 {
	c := make([]float64, s.WorldDim())
	for _, x := range s.corners {
		floats.Add(c, x)
	}
	floats.Scale(1/float64(len(s.corners)), c)
	return c
}

// Diameter is the longest edge length
func (s *Simplex) Diameter() float64 {
	var dmax float64
	for i := range s.corners {
		for j := i + 1; j < len(s.corners); j++ {
			dmax = math.Max(dmax, floats.Distance(s.corners[i], s.corners[j], 2))
		}
	}
	return dmax
}

// Normal returns the normal of a codimension-one simplex. Its length equals
// the integration element. Edges a->b in the plane give (ty, -tx), triangles
// in space give (b-a)x(c-a).
func (s *Simplex) Normal() []float64 {
	if s.Dim() != s.WorldDim()-1 {
		panic(fmt.Sprintf("geometry: normal of a %d-simplex in R^%d",
			s.Dim(), s.WorldDim()))
	}
	tangents := make([][]float64, s.Dim())
	for j := range tangents {
		tangents[j] = s.tangent(j)
	}
	return Normal(tangents)
}

// Normal is the generalized cross product of w-1 tangents in R^w
func Normal(tangents [][]float64) []float64 {
	switch len(tangents) {
	case 0:
		return []float64{1}
	case 1:
		t := tangents[0]
		return []float64{t[1], -t[0]}
	case 2:
		a, b := tangents[0], tangents[1]
		return Cross(a, b)
	}
	panic(fmt.Sprintf("geometry: no normal for %d tangents", len(tangents)))
}

func Cross(a, b []float64) []float64 {
	return []float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// Barycentric converts reference coordinates to barycentric weights,
// weight 0 belonging to corner 0.
func Barycentric(local []float64) []float64 {
	b := make([]float64, len(local)+1)
	b[0] = 1 - floats.Sum(local)
	copy(b[1:], local)
	return b
}

func FromBarycentric(b []float64) []float64 {
	return append([]float64{}, b[1:]...)
}
