package glue

import (
	"fmt"
	"iter"

	"gonum.org/v1/gonum/floats"

	"github.com/notargets/gridglue/extract"
	"github.com/notargets/gridglue/geometry"
	"github.com/notargets/gridglue/merging"
)

// Intersection is a view of one record with one side designated inside.
// It stays valid until the next Build.
type Intersection struct {
	st     *state
	rec    *Record
	inside merging.Side
}

func (is Intersection) Index() int { return is.rec.Index }

func (is Intersection) ID() GlobalID { return is.rec.ID }

func (is Intersection) Type() geometry.Type { return geometry.SimplexType(is.st.dim) }

// InsideSide is the side currently designated inside
func (is Intersection) InsideSide() merging.Side { return is.inside }

// Self reports whether the inside parent is owned by this rank
func (is Intersection) Self() bool { return is.rec.sides[is.inside].present }

// Neighbor reports whether the outside parent is owned by this rank
func (is Intersection) Neighbor() bool { return is.rec.sides[is.inside.Other()].present }

func (is Intersection) side(s merging.Side, op string) *sideRecord {
	sr := &is.rec.sides[s]
	if !sr.present {
		panic(fmt.Sprintf("glue: %s of intersection %d: %s parent is not local",
			op, is.rec.Index, s))
	}
	return sr
}

// Inside is the view element of the inside parent
func (is Intersection) Inside() int { return is.side(is.inside, "Inside").element }

func (is Intersection) Outside() int { return is.side(is.inside.Other(), "Outside").element }

func (is Intersection) InsideView() extract.GridView {
	return is.st.patches[is.inside].Extractor.View()
}

func (is Intersection) OutsideView() extract.GridView {
	return is.st.patches[is.inside.Other()].Extractor.View()
}

// GeometryInInside maps the intersection into the reference element of the
// inside parent
func (is Intersection) GeometryInInside() *geometry.Simplex {
	return geometry.NewSimplex(is.side(is.inside, "GeometryInInside").local)
}

func (is Intersection) GeometryInOutside() *geometry.Simplex {
	return geometry.NewSimplex(is.side(is.inside.Other(), "GeometryInOutside").local)
}

// Geometry maps the intersection into world coordinates through the inside
// parent
func (is Intersection) Geometry() *geometry.Simplex {
	return geometry.NewSimplex(is.side(is.inside, "Geometry").global)
}

func (is Intersection) GeometryOutside() *geometry.Simplex {
	return geometry.NewSimplex(is.side(is.inside.Other(), "GeometryOutside").global)
}

// IndexInInside is the facet of the inside parent holding the intersection,
// -1 for a volume patch
func (is Intersection) IndexInInside() int { return is.side(is.inside, "IndexInInside").face }

func (is Intersection) IndexInOutside() int {
	return is.side(is.inside.Other(), "IndexInOutside").face
}

func (is Intersection) normalSide(op string) *sideRecord {
	sr := is.side(is.inside, op)
	if x := is.st.patches[is.inside].Extractor; x.Codim() != 1 || is.st.dim != is.st.worldDim-1 {
		panic(fmt.Sprintf("glue: %s of a %d-dimensional intersection of a codim %d patch in R^%d",
			op, is.st.dim, x.Codim(), is.st.worldDim))
	}
	return sr
}

// OuterNormal points out of the inside parent. Intersections are affine so
// the normal does not depend on local; its length is the integration
// element.
func (is Intersection) OuterNormal(local []float64) []float64 {
	sr := is.normalSide("OuterNormal")
	n := geometry.NewSimplex(sr.global).Normal()
	floats.Scale(sr.sign, n)
	return n
}

func (is Intersection) UnitOuterNormal(local []float64) []float64 {
	n := is.OuterNormal(local)
	floats.Scale(1/floats.Norm(n, 2), n)
	return n
}

// IntegrationOuterNormal is the unit outer normal scaled by the integration
// element
func (is Intersection) IntegrationOuterNormal(local []float64) []float64 {
	n := is.UnitOuterNormal(local)
	floats.Scale(is.Geometry().IntegrationElement(), n)
	return n
}

func (is Intersection) CenterUnitOuterNormal() []float64 {
	return is.UnitOuterNormal(is.Type().Center())
}

// Flip swaps inside and outside
func (is Intersection) Flip() Intersection {
	is.inside = is.inside.Other()
	return is
}

// Iterator is a cursor over all intersections of one build
type Iterator struct {
	st     *state
	inside merging.Side
	pos    int
}

// Begin returns a cursor at intersection 0, viewing every record with the
// given side inside:
//
//	for it := g.Begin(merging.Side0); it.Valid(); it.Next() {
//		is := it.Intersection()
//	}
func (g *GridGlue) Begin(inside merging.Side) *Iterator {
	return &Iterator{st: g.state.Load(), inside: inside}
}

func (it *Iterator) Valid() bool { return it.pos < len(it.st.records) }

func (it *Iterator) Next() { it.pos++ }

func (it *Iterator) Intersection() Intersection {
	return Intersection{st: it.st, rec: it.st.record(it.pos), inside: it.inside}
}

// Intersections ranges over all intersections in index order
func (g *GridGlue) Intersections(inside merging.Side) iter.Seq[Intersection] {
	st := g.state.Load()
	return func(yield func(Intersection) bool) {
		for i := range st.records {
			if !yield(Intersection{st: st, rec: &st.records[i], inside: inside}) {
				return
			}
		}
	}
}
