package extract

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gridglue/geometry"
)

// Codim0Extractor extracts selected elements, split into simplices
type Codim0Extractor struct {
	base
	contains ElementPredicate
}

func NewCodim0Extractor(view GridView, contains ElementPredicate) *Codim0Extractor {
	x := &Codim0Extractor{base: base{view: view}, contains: contains}
	x.reset()
	return x
}

func (x *Codim0Extractor) Codim() int { return 0 }

func (x *Codim0Extractor) Dim() int { return x.view.Dim() }

// Update rebuilds the patch from the view. On error the patch is left empty.
func (x *Codim0Extractor) Update() error {
	x.reset()
	for e := 0; e < x.view.NumElements(); e++ {
		if !x.contains(e) {
			continue
		}
		et := x.view.ElementType(e)
		split, ok := simplexSplits[et]
		if !ok {
			x.reset()
			return fmt.Errorf("%w: element %d is a %s", ErrUnsupportedFacet, e, et)
		}
		first := len(x.subEntities)
		for _, corners := range split {
			x.addSubEntity(e, -1, corners)
		}
		x.addElement(e, first)
	}
	return nil
}

// Elements selects every element
func Elements(e int) bool { return true }

// simplexSplits lists positively oriented simplices covering each reference
// element, in reference corner numbers
var simplexSplits = map[geometry.Type][][]int{
	geometry.Line:     {{0, 1}},
	geometry.Triangle: {{0, 1, 2}},
	geometry.Quad:     {{0, 1, 2}, {3, 2, 1}},
	geometry.Tet:      {{0, 1, 2, 3}},
	geometry.Prism:    orientAll(geometry.Prism, [][]int{{0, 1, 2, 3}, {1, 2, 3, 4}, {2, 3, 4, 5}}),
	geometry.Pyramid:  orientAll(geometry.Pyramid, [][]int{{0, 1, 3, 4}, {0, 3, 2, 4}}),
	geometry.Hex:      orientAll(geometry.Hex, kuhnTets()),
}

// kuhnTets splits the cube along its 0-7 diagonal
func kuhnTets() [][]int {
	paths := [6][3]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	tets := make([][]int, 0, 6)
	for _, path := range paths {
		c := 0
		tet := []int{0}
		for _, axis := range path {
			c |= 1 << axis
			tet = append(tet, c)
		}
		tets = append(tets, tet)
	}
	return tets
}

func orientAll(et geometry.Type, tets [][]int) [][]int {
	ref := et.ReferenceCorners()
	for _, tet := range tets {
		jac := mat.NewDense(3, 3, nil)
		for j := 0; j < 3; j++ {
			for d := 0; d < 3; d++ {
				jac.Set(d, j, ref[tet[j+1]][d]-ref[tet[0]][d])
			}
		}
		if mat.Det(jac) < 0 {
			tet[2], tet[3] = tet[3], tet[2]
		}
	}
	return tets
}
