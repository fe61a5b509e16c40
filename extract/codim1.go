package extract

import (
	"fmt"
)

// Codim1Extractor extracts selected boundary facets of a mesh view.
// Quadrilateral facets [a,b,c,d] become the triangles [a,b,c] and [d,c,b].
type Codim1Extractor struct {
	base
	contains FacetPredicate
}

func NewCodim1Extractor(view GridView, contains FacetPredicate) *Codim1Extractor {
	x := &Codim1Extractor{base: base{view: view}, contains: contains}
	x.reset()
	return x
}

func (x *Codim1Extractor) Codim() int { return 1 }

func (x *Codim1Extractor) Dim() int { return x.view.Dim() - 1 }

// Update rebuilds the patch from the view. On error the patch is left empty.
func (x *Codim1Extractor) Update() error {
	x.reset()
	for e := 0; e < x.view.NumElements(); e++ {
		var (
			et    = x.view.ElementType(e)
			first = len(x.subEntities)
		)
		for f := 0; f < et.NumFacets(); f++ {
			if !x.view.Boundary(e, f) || !x.contains(e, f) {
				continue
			}
			switch fc := et.FacetCorners(f); len(fc) {
			case 2, 3:
				x.addSubEntity(e, f, fc)
			case 4:
				x.addSubEntity(e, f, []int{fc[0], fc[1], fc[2]})
				x.addSubEntity(e, f, []int{fc[3], fc[2], fc[1]})
			default:
				x.reset()
				return fmt.Errorf("%w: element %d (%s) facet %d has %d corners",
					ErrUnsupportedFacet, e, et, f, len(fc))
			}
		}
		if len(x.subEntities) > first {
			x.addElement(e, first)
		}
	}
	return nil
}

// All selects every boundary facet
func All(e, f int) bool { return true }
