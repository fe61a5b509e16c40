package glue

import (
	"github.com/james-bowman/sparse"

	"github.com/notargets/gridglue/geometry"
	"github.com/notargets/gridglue/merging"
)

// OverlapMatrix returns the mass of the overlap between the simplices of the
// two local patches: entry (i,j) is the world measure shared by side 0
// simplex i and side 1 simplex j. Only intersections with both parents on
// this rank contribute. The shape is that of the patches at the last
// successful Build.
func OverlapMatrix(g *GridGlue) *sparse.CSR {
	var (
		st     = g.state.Load()
		n0, n1 = st.faces[merging.Side0], st.faces[merging.Side1]
	)
	if n0 == 0 || n1 == 0 {
		return sparse.NewCSR(n0, n1, make([]int, n0+1), nil, nil)
	}
	dok := sparse.NewDOK(n0, n1)
	for i := range st.records {
		rec := &st.records[i]
		if !rec.Present(merging.Side0) || !rec.Present(merging.Side1) {
			continue
		}
		var (
			r   = rec.sides[merging.Side0].parent
			c   = rec.sides[merging.Side1].parent
			vol = geometry.NewSimplex(rec.sides[merging.Side0].global).Volume()
		)
		dok.Set(r, c, dok.At(r, c)+vol)
	}
	return dok.ToCSR()
}
