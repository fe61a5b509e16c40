package merging

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gridglue/geometry"
)

func linePatch(xs ...float64) Patch {
	p := Patch{}
	for i, x := range xs {
		p.Coords = append(p.Coords, []float64{x})
		if i > 0 {
			p.Faces = append(p.Faces, []int{i - 1, i})
			p.Types = append(p.Types, geometry.Line)
		}
	}
	return p
}

// unitSquare splits the unit square along one of its diagonals
func unitSquare(flip bool) Patch {
	p := Patch{
		Coords: [][]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}},
		Faces:  [][]int{{0, 1, 2}, {3, 2, 1}},
		Types:  []geometry.Type{geometry.Triangle, geometry.Triangle},
	}
	if flip {
		p.Faces = [][]int{{0, 1, 3}, {0, 3, 2}}
	}
	return p
}

// checkConsistent verifies both local descriptions of every intersection
// land on the same world points, and returns the total measure
func checkConsistent(t *testing.T, m Merger, p0, p1 Patch) (measure float64) {
	for i := 0; i < m.NSimplices(); i++ {
		var (
			g0    = p0.Simplex(m.Parent(Side0, i))
			g1    = p1.Simplex(m.Parent(Side1, i))
			world [][]float64
		)
		for c := 0; c <= min(g0.Dim(), g1.Dim()); c++ {
			x0 := g0.Global(m.ParentLocal(Side0, i, c))
			x1 := g1.Global(m.ParentLocal(Side1, i, c))
			assert.InDeltaSlice(t, x0, x1, 1e-12, "intersection %d corner %d", i, c)
			world = append(world, x0)
		}
		measure += geometry.NewSimplex(world).Volume()
	}
	return
}

func TestMerge1D(t *testing.T) {
	var (
		p0 = linePatch(0, 2, 5)
		p1 = linePatch(0, 3, 5)
		m  = NewOverlappingMerge(0)
	)
	// a reused merger gives the same answer
	for pass := 0; pass < 2; pass++ {
		require.NoError(t, m.Build(p0, p1))
		require.Equal(t, 3, m.NSimplices())
		assert.InDelta(t, 5., checkConsistent(t, m, p0, p1), 1e-12)

		assert.Equal(t, [3][2]int{{0, 0}, {1, 0}, {1, 1}}, [3][2]int{
			{m.Parent(Side0, 0), m.Parent(Side1, 0)},
			{m.Parent(Side0, 1), m.Parent(Side1, 1)},
			{m.Parent(Side0, 2), m.Parent(Side1, 2)},
		})
		// [2,3] sits in [2,5] at [0,1/3] and in [0,3] at [2/3,1]
		assert.InDeltaSlice(t, []float64{0}, m.ParentLocal(Side0, 1, 0), 1e-14)
		assert.InDeltaSlice(t, []float64{1. / 3}, m.ParentLocal(Side0, 1, 1), 1e-14)
		assert.InDeltaSlice(t, []float64{2. / 3}, m.ParentLocal(Side1, 1, 0), 1e-14)
		assert.InDeltaSlice(t, []float64{1}, m.ParentLocal(Side1, 1, 1), 1e-14)
		m.Clear()
		assert.Equal(t, 0, m.NSimplices())
	}
}

func TestMergeUnitSquare(t *testing.T) {
	var (
		p0 = unitSquare(false)
		p1 = unitSquare(true)
		m  = NewOverlappingMerge(0)
	)
	require.NoError(t, m.Build(p0, p1))
	assert.Equal(t, 4, m.NSimplices())
	assert.InDelta(t, 1., checkConsistent(t, m, p0, p1), 1e-12)
	first := make([][]float64, 3)
	for c := range first {
		first[c] = m.ParentLocal(Side0, 0, c)
	}
	// positively oriented in side 0
	assert.Greater(t, orientation(first), 0.)

	// identical inputs, fresh merger, same output
	m2 := NewOverlappingMerge(0)
	require.NoError(t, m2.Build(p0, p1))
	for i := 0; i < m.NSimplices(); i++ {
		for _, side := range Sides {
			assert.Equal(t, m.Parent(side, i), m2.Parent(side, i))
			for c := 0; c < 3; c++ {
				assert.Equal(t, m.ParentLocal(side, i, c), m2.ParentLocal(side, i, c))
			}
		}
	}
}

func TestMergeCoplanarFacesIn3D(t *testing.T) {
	// the plane x=1 seen from the left, in two triangles
	p0 := Patch{
		Coords: [][]float64{{1, 0, 0}, {1, 1, 0}, {1, 0, 1}, {1, 1, 1}},
		Faces:  [][]int{{0, 1, 2}, {3, 2, 1}},
		Types:  []geometry.Type{geometry.Triangle, geometry.Triangle},
	}
	// the same square seen from the right, opposite winding, four triangles
	p1 := Patch{
		Coords: [][]float64{{1, 0, 0}, {1, 1, 0}, {1, 0, 1}, {1, 1, 1}, {1, .5, .5}},
		Faces:  [][]int{{0, 4, 1}, {1, 4, 3}, {3, 4, 2}, {2, 4, 0}},
		Types:  []geometry.Type{geometry.Triangle, geometry.Triangle, geometry.Triangle, geometry.Triangle},
	}
	m := NewOverlappingMerge(0)
	require.NoError(t, m.Build(p0, p1))
	assert.InDelta(t, 1., checkConsistent(t, m, p0, p1), 1e-12)
	for i := 0; i < m.NSimplices(); i++ {
		corners := make([][]float64, 3)
		for c := range corners {
			corners[c] = m.ParentLocal(Side0, i, c)
		}
		assert.Greater(t, orientation(corners), 0.)
	}

	// a parallel plane does not touch
	shifted := Patch{Faces: p1.Faces, Types: p1.Types}
	for _, x := range p1.Coords {
		shifted.Coords = append(shifted.Coords, []float64{x[0] + 0.1, x[1], x[2]})
	}
	require.NoError(t, m.Build(p0, shifted))
	assert.Equal(t, 0, m.NSimplices())
}

func TestMergeSegmentTriangle(t *testing.T) {
	seg := Patch{
		Coords: [][]float64{{-1, .25}, {2, .25}},
		Faces:  [][]int{{0, 1}},
		Types:  []geometry.Type{geometry.Line},
	}
	tri := Patch{
		Coords: [][]float64{{0, 0}, {1, 0}, {0, 1}},
		Faces:  [][]int{{0, 1, 2}},
		Types:  []geometry.Type{geometry.Triangle},
	}
	m := NewOverlappingMerge(0)
	for _, order := range [][2]Patch{{seg, tri}, {tri, seg}} {
		require.NoError(t, m.Build(order[0], order[1]))
		require.Equal(t, 1, m.NSimplices())
		assert.InDelta(t, .75, checkConsistent(t, m, order[0], order[1]), 1e-12)
	}
	// orientation follows the segment
	lineSide := Side1
	a, b := m.ParentLocal(lineSide, 0, 0), m.ParentLocal(lineSide, 0, 1)
	assert.Less(t, a[0], b[0])
	assert.InDeltaSlice(t, []float64{0, .25}, m.ParentLocal(Side0, 0, 0), 1e-14)
	assert.InDeltaSlice(t, []float64{.75, .25}, m.ParentLocal(Side0, 0, 1), 1e-14)
}

func TestMergeSegmentOnTriangleEdge(t *testing.T) {
	// both endpoints lie on the hypotenuse x+y = 2/3, which rounds to
	// slightly outside the triangle
	seg := Patch{
		Coords: [][]float64{{5. / 9, 1. / 9}, {4. / 9, 2. / 9}},
		Faces:  [][]int{{0, 1}},
		Types:  []geometry.Type{geometry.Line},
	}
	tri := Patch{
		Coords: [][]float64{{1. / 3, 0}, {2. / 3, 0}, {1. / 3, 1. / 3}},
		Faces:  [][]int{{0, 1, 2}},
		Types:  []geometry.Type{geometry.Triangle},
	}
	m := NewOverlappingMerge(0)
	for _, order := range [][2]Patch{{seg, tri}, {tri, seg}} {
		require.NoError(t, m.Build(order[0], order[1]))
		require.Equal(t, 1, m.NSimplices())
		assert.InDelta(t, math.Sqrt2/9, checkConsistent(t, m, order[0], order[1]), 1e-12)
	}

	// the legs of the triangle, through the same edge on the other side
	leg := Patch{
		Coords: [][]float64{{1. / 3, 0}, {2. / 3, 0}, {1. / 3, 1. / 3}},
		Faces:  [][]int{{0, 1}, {2, 0}},
		Types:  []geometry.Type{geometry.Line, geometry.Line},
	}
	require.NoError(t, m.Build(leg, tri))
	require.Equal(t, 2, m.NSimplices())
	assert.InDelta(t, 2./3, checkConsistent(t, m, leg, tri), 1e-12)
}

func TestMergeTriangleOnTetFace(t *testing.T) {
	// a triangle on the slanted face x+y+z = 1/3 of a scaled tet
	tri := Patch{
		Coords: [][]float64{{1. / 3, 0, 0}, {0, 1. / 3, 0}, {0, 0, 1. / 3}},
		Faces:  [][]int{{0, 1, 2}},
		Types:  []geometry.Type{geometry.Triangle},
	}
	tet := Patch{
		Coords: [][]float64{{0, 0, 0}, {1. / 3, 0, 0}, {0, 1. / 3, 0}, {0, 0, 1. / 3}},
		Faces:  [][]int{{0, 1, 2, 3}},
		Types:  []geometry.Type{geometry.Tet},
	}
	m := NewOverlappingMerge(0)
	require.NoError(t, m.Build(tri, tet))
	require.Equal(t, 1, m.NSimplices())
	// equilateral with side sqrt(2)/3
	assert.InDelta(t, math.Sqrt(3)/4*2./9, checkConsistent(t, m, tri, tet), 1e-12)
}

func TestMergeTriangleInTet(t *testing.T) {
	tri := Patch{
		Coords: [][]float64{{0, 0, .5}, {1, 0, .5}, {0, 1, .5}},
		Faces:  [][]int{{0, 1, 2}},
		Types:  []geometry.Type{geometry.Triangle},
	}
	tet := Patch{
		Coords: geometry.Tet.ReferenceCorners(),
		Faces:  [][]int{{0, 1, 2, 3}},
		Types:  []geometry.Type{geometry.Tet},
	}
	m := NewOverlappingMerge(0)
	require.NoError(t, m.Build(tri, tet))
	// the section of the tet at z=1/2 is a right triangle with legs 1/2
	assert.InDelta(t, .125, checkConsistent(t, m, tri, tet), 1e-12)
}

func TestMergeErrors(t *testing.T) {
	tet := Patch{
		Coords: geometry.Tet.ReferenceCorners(),
		Faces:  [][]int{{0, 1, 2, 3}},
		Types:  []geometry.Type{geometry.Tet},
	}
	m := NewOverlappingMerge(0)
	err := m.Build(tet, tet)
	assert.True(t, errors.Is(err, ErrNotImplemented))

	err = m.Build(linePatch(0, 1), unitSquare(false))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotImplemented))

	bad := linePatch(0, 1)
	bad.Faces[0] = []int{0, 7}
	assert.Error(t, m.Build(bad, linePatch(0, 1)))

	quad := Patch{
		Coords: [][]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}},
		Faces:  [][]int{{0, 1, 2, 3}},
		Types:  []geometry.Type{geometry.Quad},
	}
	assert.True(t, errors.Is(m.Build(quad, unitSquare(false)), ErrNotImplemented))

	// an empty side is a disjoint coupling, not an error
	require.NoError(t, m.Build(Patch{}, unitSquare(false)))
	assert.Equal(t, 0, m.NSimplices())
	assert.Panics(t, func() { m.Parent(Side0, 0) })
}

func TestClipPolygon(t *testing.T) {
	// a square straddling the reference triangle
	poly := [][]float64{{-.5, -.5}, {.5, -.5}, {.5, .5}, {-.5, .5}}
	out := dedupe(clipPolygon(poly, 2, 0), 1e-12)
	require.Len(t, out, 4)
	assert.Greater(t, orientation(out[:3]), 0.)

	p, q, ok := clipSegment([]float64{-1}, []float64{3}, 1, 0)
	require.True(t, ok)
	assert.Equal(t, []float64{0}, p)
	assert.Equal(t, []float64{1}, q)
	_, _, ok = clipSegment([]float64{2}, []float64{3}, 1, 0)
	assert.False(t, ok)

	// a segment on the x=0 edge, rounded just outside
	a, b := []float64{-1e-17, .25}, []float64{-1e-17, .75}
	_, _, ok = clipSegment(a, b, 2, 0)
	assert.False(t, ok)
	p, q, ok = clipSegment(a, b, 2, 1e-12)
	require.True(t, ok)
	assert.Equal(t, []float64{0, .25}, p)
	assert.Equal(t, []float64{0, .75}, q)
	out = clipPolygon([][]float64{{-1e-17, .25}, {.25, .25}, {-1e-17, .75}}, 2, 1e-12)
	require.Len(t, out, 3)
	assert.Equal(t, 0., out[0][0])
	assert.Equal(t, "Side1", Side0.Other().String())
}
