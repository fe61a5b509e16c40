package glue

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gridglue/comm"
	"github.com/notargets/gridglue/extract"
	"github.com/notargets/gridglue/geometry"
	"github.com/notargets/gridglue/merging"
	"github.com/notargets/gridglue/mesh"
)

// onPlane selects facets whose corners all satisfy x[axis] == val
func onPlane(v extract.GridView, axis int, val float64) extract.FacetPredicate {
	return func(e, f int) bool {
		verts := v.ElementVertices(e)
		for _, c := range v.ElementType(e).FacetCorners(f) {
			if math.Abs(v.VertexCoords(verts[c])[axis]-val) > 1e-9 {
				return false
			}
		}
		return true
	}
}

func facetPatch(v extract.GridView, axis int, val float64) *Patch {
	return &Patch{Extractor: extract.NewCodim1Extractor(v, onPlane(v, axis, val))}
}

func box(lo []float64, hi ...float64) mesh.Box { return mesh.Box{Min: lo, Max: hi} }

func newCubeCoupling(t *testing.T, domain, target geometry.Type, n0, n1 int) *GridGlue {
	var (
		v0 = mesh.NewBoxMesh(n0, n0, n0, mesh.UnitBox(3), domain).View()
		v1 = mesh.NewBoxMesh(n1, n1, n1, box([]float64{1, 0, 0}, 2, 1, 1), target).View()
		g  = New(facetPatch(v0, 0, 1), facetPatch(v1, 0, 1), merging.NewOverlappingMerge(0))
	)
	require.NoError(t, g.Build())
	return g
}

func totalMeasure(g *GridGlue, inside merging.Side) (sum float64) {
	for is := range g.Intersections(inside) {
		sum += is.Geometry().Volume()
	}
	return
}

func panics(f func()) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = true
		}
	}()
	f()
	return false
}

func TestCoupling1D(t *testing.T) {
	var (
		v0 = mesh.NewLineMesh(0, 2, 5).View()
		v1 = mesh.NewLineMesh(0, 3, 5).View()
		g  = New(
			&Patch{Extractor: extract.NewCodim0Extractor(v0, extract.Elements)},
			&Patch{Extractor: extract.NewCodim0Extractor(v1, extract.Elements)},
			merging.NewOverlappingMerge(0),
		)
	)
	assert.Equal(t, 0, g.Size())
	require.NoError(t, g.Build())
	require.Equal(t, 3, g.Size())
	assert.Equal(t, 1, g.Dim())

	var (
		parents   [][2]int
		intervals [][2]float64
	)
	for i := 0; i < g.Size(); i++ {
		is := g.Intersection(i)
		assert.Equal(t, i, is.Index())
		assert.Equal(t, GlobalID{0, 0, i}, is.ID())
		assert.Equal(t, geometry.Line, is.Type())
		assert.True(t, is.Self())
		assert.True(t, is.Neighbor())
		assert.Equal(t, -1, is.IndexInInside())
		parents = append(parents, [2]int{is.Inside(), is.Outside()})
		a, b := is.Geometry().Corner(0)[0], is.Geometry().Corner(1)[0]
		assert.InDelta(t, a, is.GeometryOutside().Corner(0)[0], 1e-12)
		intervals = append(intervals, [2]float64{math.Min(a, b), math.Max(a, b)})
		assert.Panics(t, func() { is.OuterNormal(nil) })
	}
	assert.Equal(t, [][2]int{{0, 0}, {1, 0}, {1, 1}}, parents)

	// exact cover of [0,5]
	slices.SortFunc(intervals, func(a, b [2]float64) int { return int(math.Copysign(1, a[0]-b[0])) })
	x := 0.
	for _, iv := range intervals {
		assert.InDelta(t, x, iv[0], 1e-12)
		x = iv[1]
	}
	assert.InDelta(t, 5., x, 1e-12)
	assert.InDelta(t, 5., totalMeasure(g, merging.Side0), 1e-12)
	assert.InDelta(t, 5., totalMeasure(g, merging.Side1), 1e-12)

	// local geometry of intersection 1 in element 1 = [2,5]
	local := g.Intersection(1).GeometryInInside()
	assert.InDelta(t, 0., local.Corner(0)[0], 1e-12)
	assert.InDelta(t, 1./3, local.Corner(1)[0], 1e-12)
}

func TestIndexDensity(t *testing.T) {
	g := newCubeCoupling(t, geometry.Hex, geometry.Hex, 1, 1)
	require.Equal(t, 2, g.Size())
	assert.NotPanics(t, func() { g.Intersection(g.Size() - 1) })
	assert.Panics(t, func() { g.Intersection(g.Size()) })
	assert.Panics(t, func() { g.Intersection(-1) })

	var n int
	for it := g.Begin(merging.Side1); it.Valid(); it.Next() {
		is := it.Intersection()
		assert.Equal(t, n, is.Index())
		assert.Equal(t, merging.Side1, is.InsideSide())
		n++
	}
	assert.Equal(t, g.Size(), n)

	i, ok := g.IndexOf(GlobalID{0, 0, 1})
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	_, ok = g.IndexOf(GlobalID{0, 1, 0})
	assert.False(t, ok)
}

func TestCubeInterfaces(t *testing.T) {
	var testCases = []struct {
		name           string
		domain, target geometry.Type
		n0, n1         int
	}{
		{"matching hex", geometry.Hex, geometry.Hex, 2, 2},
		{"matching tet", geometry.Tet, geometry.Tet, 2, 2},
		{"hex to tet", geometry.Hex, geometry.Tet, 2, 3},
		{"tet to hex", geometry.Tet, geometry.Hex, 3, 2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g := newCubeCoupling(t, tc.domain, tc.target, tc.n0, tc.n1)
			require.Greater(t, g.Size(), 0)
			assert.InDelta(t, 1., totalMeasure(g, merging.Side0), 1e-10)
			assert.InDelta(t, 1., totalMeasure(g, merging.Side1), 1e-10)

			for is := range g.Intersections(merging.Side0) {
				n0 := is.CenterUnitOuterNormal()
				n1 := is.Flip().CenterUnitOuterNormal()
				for d, want := range []float64{1, 0, 0} {
					assert.InDelta(t, want, n0[d], 1e-12)
					assert.InDelta(t, -want, n1[d], 1e-12)
				}
				assert.InDeltaSlice(t,
					is.IntegrationOuterNormal(nil), is.OuterNormal(nil), 1e-12)
				for c := 0; c < 3; c++ {
					assert.InDeltaSlice(t, is.Geometry().Corner(c), is.GeometryOutside().Corner(c), 1e-12)
				}
				if tc.domain == geometry.Hex {
					assert.Equal(t, 1, is.IndexInInside())
				}
			}
		})
	}
}

func TestGeometryInInsideMapsToGeometry(t *testing.T) {
	g := newCubeCoupling(t, geometry.Hex, geometry.Tet, 2, 3)
	for _, side := range merging.Sides {
		for is := range g.Intersections(side) {
			var (
				view    = is.InsideView()
				et      = view.ElementType(is.Inside())
				corners = extract.ElementCorners(view, is.Inside())
				local   = is.GeometryInInside()
			)
			assert.Equal(t, is.Flip().GeometryInOutside().Corners(), local.Corners())
			for c := 0; c < 3; c++ {
				assert.InDeltaSlice(t, is.Geometry().Corner(c), et.Global(corners, local.Corner(c)), 1e-12)
			}
		}
	}
}

func TestShiftedCoupling(t *testing.T) {
	var (
		v0 = mesh.NewRectMesh(2, 2, mesh.UnitBox(2), geometry.Triangle, false).View()
		v1 = mesh.NewRectMesh(3, 3, box([]float64{3, 0}, 4, 1), geometry.Quad, false).View()
		p1 = facetPatch(v1, 0, 3)
	)
	p1.Transform = Shift(-2, 0)
	g := New(facetPatch(v0, 0, 1), p1, merging.NewOverlappingMerge(0))
	require.NoError(t, g.Build())
	assert.Equal(t, 4, g.Size())
	assert.InDelta(t, 1., totalMeasure(g, merging.Side0), 1e-12)
	for is := range g.Intersections(merging.Side0) {
		for c := 0; c < 2; c++ {
			x0, x1 := is.Geometry().Corner(c), is.GeometryOutside().Corner(c)
			assert.InDelta(t, 1., x0[0], 1e-12)
			assert.InDelta(t, 3., x1[0], 1e-12)
			assert.InDelta(t, x0[1], x1[1], 1e-12)
		}
		assert.InDeltaSlice(t, []float64{1, 0}, is.CenterUnitOuterNormal(), 1e-12)
		assert.InDeltaSlice(t, []float64{-1, 0}, is.Flip().CenterUnitOuterNormal(), 1e-12)
	}

	// without the shift the patches are disjoint
	g = New(facetPatch(v0, 0, 1), facetPatch(v1, 0, 3), merging.NewOverlappingMerge(0))
	require.NoError(t, g.Build())
	assert.Equal(t, 0, g.Size())
}

func TestRebuild(t *testing.T) {
	g := newCubeCoupling(t, geometry.Hex, geometry.Tet, 2, 3)
	var (
		n      = g.Size()
		first  = g.Intersection(n - 1).Geometry().Corners()
		before = totalMeasure(g, merging.Side0)
	)
	require.NoError(t, g.Build())
	assert.Equal(t, n, g.Size())
	assert.Equal(t, first, g.Intersection(n-1).Geometry().Corners())
	assert.Equal(t, before, totalMeasure(g, merging.Side0))
}

type flakyExtractor struct {
	extract.Extractor
	fail bool
}

func (x *flakyExtractor) Update() error {
	if x.fail {
		return errors.New("update failed")
	}
	return x.Extractor.Update()
}

func TestBuildErrors(t *testing.T) {
	var (
		v0 = mesh.NewRectMesh(2, 2, mesh.UnitBox(2), geometry.Triangle, false).View()
		v1 = mesh.NewRectMesh(2, 2, box([]float64{1, 0}, 2, 1), geometry.Quad, false).View()
		m  = merging.NewOverlappingMerge(0)
	)
	err := New(nil, facetPatch(v1, 0, 1), m).Build()
	assert.ErrorIs(t, err, ErrMissingPatch)
	err = New(facetPatch(v0, 0, 1), &Patch{}, m).Build()
	assert.ErrorIs(t, err, ErrMissingPatch)
	err = New(facetPatch(v0, 0, 1), facetPatch(v1, 0, 1), nil).Build()
	assert.ErrorIs(t, err, ErrMissingMerger)

	lines := mesh.NewLineMesh(0, 1).View()
	err = New(&Patch{Extractor: extract.NewCodim1Extractor(lines, extract.All)},
		facetPatch(v1, 0, 1), m).Build()
	assert.ErrorIs(t, err, extract.ErrUnsupportedFacet)

	// a failed rebuild keeps the previous intersections
	flaky := &flakyExtractor{Extractor: extract.NewCodim1Extractor(v0, onPlane(v0, 0, 1))}
	g := New(&Patch{Extractor: flaky}, facetPatch(v1, 0, 1), m)
	require.NoError(t, g.Build())
	n := g.Size()
	require.Equal(t, 2, n)
	flaky.fail = true
	assert.Error(t, g.Build())
	assert.Equal(t, n, g.Size())
}

func TestMixedDimensionUnsupported(t *testing.T) {
	var (
		v0 = mesh.NewBoxMesh(1, 1, 1, mesh.UnitBox(3), geometry.Tet).View()
		g  = New(
			&Patch{Extractor: extract.NewCodim0Extractor(v0, extract.Elements)},
			&Patch{Extractor: extract.NewCodim0Extractor(v0, extract.Elements)},
			merging.NewOverlappingMerge(0),
		)
	)
	assert.ErrorIs(t, g.Build(), merging.ErrNotImplemented)
	assert.Equal(t, 0, g.Size())
}

func TestBoundaryAgainstElements(t *testing.T) {
	for _, tc := range []struct {
		name     string
		boundary *mesh.Mesh
		volume   *mesh.Mesh
		want     float64
	}{
		{"quads in flipped triangles",
			mesh.NewRectMesh(2, 2, mesh.UnitBox(2), geometry.Quad, false),
			mesh.NewRectMesh(3, 3, mesh.UnitBox(2), geometry.Triangle, true), 4},
		{"hexes in tets n=1",
			mesh.NewBoxMesh(2, 2, 2, mesh.UnitBox(3), geometry.Hex),
			mesh.NewBoxMesh(1, 1, 1, mesh.UnitBox(3), geometry.Tet), 6},
		{"hexes in tets n=3",
			mesh.NewBoxMesh(2, 2, 2, mesh.UnitBox(3), geometry.Hex),
			mesh.NewBoxMesh(3, 3, 3, mesh.UnitBox(3), geometry.Tet), 6},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var (
				vb = tc.boundary.View()
				vv = tc.volume.View()
				g  = New(
					&Patch{Extractor: extract.NewCodim1Extractor(vb, extract.All)},
					&Patch{Extractor: extract.NewCodim0Extractor(vv, extract.Elements)},
					merging.NewOverlappingMerge(0),
				)
			)
			require.NoError(t, g.Build())
			assert.InDelta(t, tc.want, totalMeasure(g, merging.Side0), 1e-10)

			// every boundary facet is covered in full
			var (
				x      = g.Patch(merging.Side0).Extractor
				mm     = OverlapMatrix(g)
				nr, nc = mm.Dims()
			)
			require.Equal(t, x.NumFaces(), nr)
			for i := 0; i < nr; i++ {
				var sum float64
				for j := 0; j < nc; j++ {
					sum += mm.At(i, j)
				}
				assert.InDelta(t, x.Geometry(i).Volume(), sum, 1e-10, "facet %d", i)
			}
		})
	}
}

func TestOverlapMatrix(t *testing.T) {
	g := newCubeCoupling(t, geometry.Hex, geometry.Tet, 2, 3)
	var (
		x0     = g.Patch(merging.Side0).Extractor
		x1     = g.Patch(merging.Side1).Extractor
		mm     = OverlapMatrix(g)
		nr, nc = mm.Dims()
	)
	require.Equal(t, x0.NumFaces(), nr)
	require.Equal(t, x1.NumFaces(), nc)
	for i := 0; i < nr; i++ {
		var sum float64
		for j := 0; j < nc; j++ {
			sum += mm.At(i, j)
		}
		assert.InDelta(t, x0.Geometry(i).Volume(), sum, 1e-12)
	}
	for j := 0; j < nc; j++ {
		var sum float64
		for i := 0; i < nr; i++ {
			sum += mm.At(i, j)
		}
		assert.InDelta(t, x1.Geometry(j).Volume(), sum, 1e-12)
	}
}

func TestOverlapMatrixAfterFailedBuild(t *testing.T) {
	var (
		v0       = mesh.NewRectMesh(2, 2, mesh.UnitBox(2), geometry.Triangle, false).View()
		v1       = mesh.NewRectMesh(3, 3, box([]float64{1, 0}, 2, 1), geometry.Quad, false).View()
		selected = true
		onFace   = onPlane(v0, 0, 1)
		x0       = extract.NewCodim1Extractor(v0, func(e, f int) bool { return selected && onFace(e, f) })
		flaky    = &flakyExtractor{Extractor: extract.NewCodim1Extractor(v1, onPlane(v1, 0, 1))}
		g        = New(&Patch{Extractor: x0}, &Patch{Extractor: flaky}, merging.NewOverlappingMerge(0))
	)
	require.NoError(t, g.Build())
	var (
		n      = g.Size()
		before = OverlapMatrix(g)
		nr, nc = before.Dims()
	)
	require.Equal(t, 2, nr)
	require.Equal(t, 3, nc)

	// side 0 re-extracts to nothing, then side 1 fails
	selected, flaky.fail = false, true
	require.Error(t, g.Build())
	require.Equal(t, 0, x0.NumFaces())
	assert.Equal(t, n, g.Size())
	after := OverlapMatrix(g)
	r, c := after.Dims()
	require.Equal(t, nr, r)
	require.Equal(t, nc, c)
	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			assert.Equal(t, before.At(i, j), after.At(i, j), "entry %d,%d", i, j)
		}
	}
}

// elementHandle sends the inside element index, repeated a variable number
// of times
type elementHandle struct {
	got map[int][]int64
}

func (h *elementHandle) Size(is Intersection) int { return is.Index() % 3 }

func (h *elementHandle) Gather(buf *Buffer[int64], element int, is Intersection) {
	for i := 0; i < h.Size(is); i++ {
		buf.Write(int64(element))
	}
}

func (h *elementHandle) Scatter(buf *Buffer[int64], element int, is Intersection, n int) {
	for i := 0; i < n; i++ {
		h.got[is.Index()] = append(h.got[is.Index()], buf.Read())
	}
}

func TestCommunicateLocal(t *testing.T) {
	g := newCubeCoupling(t, geometry.Hex, geometry.Tet, 2, 3)
	fwd := &elementHandle{got: make(map[int][]int64)}
	require.NoError(t, Communicate[int64](g, fwd, Forward))
	bwd := &elementHandle{got: make(map[int][]int64)}
	require.NoError(t, Communicate[int64](g, bwd, Backward))

	for is := range g.Intersections(merging.Side0) {
		var wantF, wantB []int64
		for i := 0; i < is.Index()%3; i++ {
			wantF = append(wantF, int64(is.Inside()))
			wantB = append(wantB, int64(is.Outside()))
		}
		assert.Equal(t, wantF, fwd.got[is.Index()], "forward %d", is.Index())
		assert.Equal(t, wantB, bwd.got[is.Index()], "backward %d", is.Index())
	}
}

type badHandle struct{ elementHandle }

func (h *badHandle) Size(is Intersection) int { return 1 }

func (h *badHandle) Gather(buf *Buffer[int64], element int, is Intersection) {
	buf.Write(1, 2)
}

func TestCommunicateSizeMismatch(t *testing.T) {
	g := newCubeCoupling(t, geometry.Hex, geometry.Hex, 1, 1)
	err := Communicate[int64](g, &badHandle{}, Forward)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func centerKey(s *geometry.Simplex) string {
	c := s.Center()
	return fmt.Sprintf("%.6f,%.6f", c[0], c[1])
}

// meshElementHandle sends the mesh element of the inside parent and files
// it under the world position of the intersection
type meshElementHandle struct {
	got map[string]int
}

func (h *meshElementHandle) Size(is Intersection) int { return 1 }

func (h *meshElementHandle) Gather(buf *Buffer[int64], element int, is Intersection) {
	buf.Write(int64(is.InsideView().(*mesh.View).MeshElement(element)))
}

func (h *meshElementHandle) Scatter(buf *Buffer[int64], element int, is Intersection, n int) {
	h.got[centerKey(is.Geometry())] = int(buf.Read())
}

func TestCommunicateDistributed(t *testing.T) {
	var (
		m0 = mesh.NewRectMesh(2, 4, mesh.UnitBox(2), geometry.Triangle, false)
		m1 = mesh.NewRectMesh(3, 5, box([]float64{1, 0}, 2, 1), geometry.Quad, false)
	)
	ref := New(facetPatch(m0.View(), 0, 1), facetPatch(m1.View(), 0, 1),
		merging.NewOverlappingMerge(0))
	require.NoError(t, ref.Build())
	want := make(map[string][2]int)
	for is := range ref.Intersections(merging.Side0) {
		want[centerKey(is.Geometry())] = [2]int{is.Inside(), is.Outside()}
	}
	require.Len(t, want, ref.Size())

	for _, np := range []int{1, 2, 3} {
		t.Run(fmt.Sprintf("%d ranks", np), func(t *testing.T) {
			m0.PartitionStrips(np, 1)
			m1.PartitionStrips(np, 1)
			var (
				group  = comm.NewGroup(np)
				views0 = make([]*mesh.View, np)
				views1 = make([]*mesh.View, np)
				fwd    = make([]map[string]int, np)
				bwd    = make([]map[string]int, np)
				cross  = make([]int, np)
			)
			for r := 0; r < np; r++ {
				views0[r], views1[r] = m0.PartitionView(r), m1.PartitionView(r)
			}
			err := group.Run(func(c comm.Communicator) error {
				r := c.Rank()
				g := New(facetPatch(views0[r], 0, 1), facetPatch(views1[r], 0, 1),
					merging.NewOverlappingMerge(0), WithCommunicator(c))
				if err := g.Build(); err != nil {
					return err
				}
				for is := range g.Intersections(merging.Side0) {
					if is.Self() && is.Neighbor() {
						continue
					}
					cross[r]++
					if !is.Self() && !panics(func() { is.Inside() }) {
						return fmt.Errorf("Inside of remote intersection %s", is.ID())
					}
					if !is.Neighbor() && !panics(func() { is.Outside() }) {
						return fmt.Errorf("Outside of remote intersection %s", is.ID())
					}
				}
				f := &meshElementHandle{got: make(map[string]int)}
				if err := Communicate[int64](g, f, Forward); err != nil {
					return err
				}
				b := &meshElementHandle{got: make(map[string]int)}
				if err := Communicate[int64](g, b, Backward); err != nil {
					return err
				}
				fwd[r], bwd[r] = f.got, b.got
				return nil
			})
			require.NoError(t, err)
			if np > 1 {
				assert.Greater(t, cross[0]+cross[np-1], 0)
			}

			gotF, gotB := make(map[string]int), make(map[string]int)
			for r := 0; r < np; r++ {
				for k, v := range fwd[r] {
					gotF[k] = v
				}
				for k, v := range bwd[r] {
					gotB[k] = v
				}
			}
			require.Len(t, gotF, len(want))
			require.Len(t, gotB, len(want))
			for k, w := range want {
				assert.Equal(t, w[0], gotF[k], "forward at %s", k)
				assert.Equal(t, w[1], gotB[k], "backward at %s", k)
			}
		})
	}
}

func TestCommunicateLocalFailureReachesPeers(t *testing.T) {
	var (
		m0    = mesh.NewRectMesh(1, 2, mesh.UnitBox(2), geometry.Quad, false)
		m1    = mesh.NewRectMesh(1, 2, box([]float64{1, 0}, 2, 1), geometry.Quad, false)
		group = comm.NewGroup(2)
		errs  = make([]error, 2)
		done  = make(chan error, 1)
	)
	m0.PartitionStrips(2, 1)
	m1.PartitionStrips(2, 1)
	views := [2][2]*mesh.View{
		{m0.PartitionView(0), m1.PartitionView(0)},
		{m0.PartitionView(1), m1.PartitionView(1)},
	}
	// ranks report through errs and never fail, so the group stays open and
	// only the exchange itself can release rank 1
	go func() {
		done <- group.Run(func(c comm.Communicator) error {
			v := views[c.Rank()]
			g := New(facetPatch(v[0], 0, 1), facetPatch(v[1], 0, 1),
				merging.NewOverlappingMerge(0), WithCommunicator(c))
			if err := g.Build(); err != nil {
				return err
			}
			var h DataHandle[int64] = &meshElementHandle{got: make(map[string]int)}
			if c.Rank() == 0 {
				h = &badHandle{}
			}
			errs[c.Rank()] = Communicate[int64](g, h, Forward)
			return nil
		})
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("exchange blocked after a local failure")
	}
	assert.ErrorIs(t, errs[0], ErrSizeMismatch)
	assert.ErrorIs(t, errs[1], ErrPeerAborted)
}

func TestCommunicateNeedsFixedSizePayload(t *testing.T) {
	var (
		m0    = mesh.NewRectMesh(1, 2, mesh.UnitBox(2), geometry.Quad, false)
		m1    = mesh.NewRectMesh(1, 2, box([]float64{1, 0}, 2, 1), geometry.Quad, false)
		group = comm.NewGroup(2)
	)
	m0.PartitionStrips(2, 1)
	m1.PartitionStrips(2, 1)
	views := [2][2]*mesh.View{
		{m0.PartitionView(0), m1.PartitionView(0)},
		{m0.PartitionView(1), m1.PartitionView(1)},
	}
	err := group.Run(func(c comm.Communicator) error {
		v := views[c.Rank()]
		g := New(facetPatch(v[0], 0, 1), facetPatch(v[1], 0, 1),
			merging.NewOverlappingMerge(0), WithCommunicator(c))
		if err := g.Build(); err != nil {
			return err
		}
		return Communicate[string](g, stringHandle{}, Forward)
	})
	assert.ErrorContains(t, err, "no fixed size")
}

type stringHandle struct{}

func (stringHandle) Size(is Intersection) int { return 1 }

func (stringHandle) Gather(buf *Buffer[string], element int, is Intersection) { buf.Write("x") }

func (stringHandle) Scatter(buf *Buffer[string], element int, is Intersection, n int) { buf.Read() }

func TestDecodeShortMessage(t *testing.T) {
	p := merging.Patch{
		Coords: [][]float64{{0, 0}, {1, 0}},
		Faces:  [][]int{{0, 1}},
		Types:  []geometry.Type{geometry.Line},
	}
	msg := encodePatches([2]merging.Patch{p, {}})
	got, err := decodePatches(msg)
	require.NoError(t, err)
	assert.Equal(t, p, got[0])
	_, err = decodePatches(msg[:len(msg)-3])
	assert.ErrorIs(t, err, errShortMessage)
}
