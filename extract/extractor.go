// Package extract reduces a parent mesh to a flat simplicial patch: deduped
// vertex coordinates, simplex corner lists and simplex types, plus the maps
// back to the parent elements that own every simplex.
package extract

import (
	"errors"
	"fmt"

	"github.com/notargets/gridglue/geometry"
)

// ErrUnsupportedFacet is returned when a selected facet has a corner count
// other than 2, 3 or 4
var ErrUnsupportedFacet = errors.New("extract: unsupported facet shape")

// GridView is the parent mesh as seen by one process
type GridView interface {
	Dim() int
	WorldDim() int
	NumElements() int
	ElementType(e int) geometry.Type
	// ElementVertices lists vertex indices in reference corner order
	ElementVertices(e int) []int
	VertexCoords(v int) []float64
	// VertexID is a global vertex index, stable across processes
	VertexID(v int) int64
	// Boundary reports a facet with no neighbouring element
	Boundary(e, f int) bool
}

// FacetPredicate selects facet f of element e
type FacetPredicate func(e, f int) bool

// ElementPredicate selects element e
type ElementPredicate func(e int) bool

// Vertex is one corner of the extracted patch
type Vertex struct {
	Idx    int       // position in Coords
	Parent int       // vertex index in the view
	ID     int64     // global vertex index
	Coord  []float64 // world coordinates
}

// SubEntity is one simplex of the extracted patch
type SubEntity struct {
	Idx     int
	Corners []int // patch vertex indices
	Type    geometry.Type
	Element int // view element owning the simplex
	Face    int // local facet number in Element, -1 for whole elements
	// Local holds the simplex corners in Element's reference coordinates
	Local [][]float64
}

// ElementInfo records what an element contributed to the patch
type ElementInfo struct {
	Idx       int // position among contributing elements
	Element   int
	First     int // index of the first simplex
	FaceCount int // number of simplices
}

// Extractor is the patch surface shared by codim 0 and codim 1 extraction
type Extractor interface {
	View() GridView
	Codim() int
	// Dim is the intrinsic dimension of the patch simplices
	Dim() int
	WorldDim() int
	Update() error

	Coords() [][]float64
	Faces() [][]int
	Types() []geometry.Type
	NumFaces() int

	Element(i int) int
	IndexInInside(i int) int
	GeometryLocal(i int) *geometry.Simplex
	Geometry(i int) *geometry.Simplex
}

type base struct {
	view        GridView
	vertices    []Vertex
	vertexByID  map[int64]int
	subEntities []SubEntity
	elements    []ElementInfo
	elementIdx  map[int]int
}

func (b *base) reset() {
	b.vertices = nil
	b.vertexByID = make(map[int64]int)
	b.subEntities = nil
	b.elements = nil
	b.elementIdx = make(map[int]int)
}

func (b *base) View() GridView { return b.view }

func (b *base) WorldDim() int { return b.view.WorldDim() }

// addVertex returns the patch index of view vertex v, inserting it on first
// encounter
func (b *base) addVertex(v int) int {
	id := b.view.VertexID(v)
	if idx, ok := b.vertexByID[id]; ok {
		return idx
	}
	idx := len(b.vertices)
	b.vertices = append(b.vertices, Vertex{
		Idx:    idx,
		Parent: v,
		ID:     id,
		Coord:  append([]float64{}, b.view.VertexCoords(v)...),
	})
	b.vertexByID[id] = idx
	return idx
}

// addSubEntity appends the simplex spanned by the given reference corners of
// element e
func (b *base) addSubEntity(e, face int, refCorners []int) {
	var (
		et    = b.view.ElementType(e)
		verts = b.view.ElementVertices(e)
		ref   = et.ReferenceCorners()
		se    = SubEntity{
			Idx:     len(b.subEntities),
			Type:    geometry.SimplexType(len(refCorners) - 1),
			Element: e,
			Face:    face,
			Corners: make([]int, len(refCorners)),
			Local:   make([][]float64, len(refCorners)),
		}
	)
	for i, c := range refCorners {
		se.Corners[i] = b.addVertex(verts[c])
		se.Local[i] = ref[c]
	}
	b.subEntities = append(b.subEntities, se)
}

func (b *base) addElement(e, first int) {
	b.elementIdx[e] = len(b.elements)
	b.elements = append(b.elements, ElementInfo{
		Idx:       len(b.elements),
		Element:   e,
		First:     first,
		FaceCount: len(b.subEntities) - first,
	})
}

func (b *base) Coords() [][]float64 {
	coords := make([][]float64, len(b.vertices))
	for i, v := range b.vertices {
		coords[i] = append([]float64{}, v.Coord...)
	}
	return coords
}

func (b *base) Faces() [][]int {
	faces := make([][]int, len(b.subEntities))
	for i, se := range b.subEntities {
		faces[i] = append([]int{}, se.Corners...)
	}
	return faces
}

func (b *base) Types() []geometry.Type {
	types := make([]geometry.Type, len(b.subEntities))
	for i, se := range b.subEntities {
		types[i] = se.Type
	}
	return types
}

func (b *base) NumFaces() int { return len(b.subEntities) }

func (b *base) Vertices() []Vertex { return b.vertices }

func (b *base) SubEntities() []SubEntity { return b.subEntities }

func (b *base) subEntity(i int) *SubEntity {
	if i < 0 || i >= len(b.subEntities) {
		panic(fmt.Sprintf("extract: simplex %d out of range [0,%d)", i, len(b.subEntities)))
	}
	return &b.subEntities[i]
}

// Element is the view element owning simplex i
func (b *base) Element(i int) int { return b.subEntity(i).Element }

// IndexInInside is the local facet number of simplex i in its element
func (b *base) IndexInInside(i int) int { return b.subEntity(i).Face }

// GeometryLocal maps the reference simplex of simplex i into the reference
// element of its owner
func (b *base) GeometryLocal(i int) *geometry.Simplex {
	return geometry.NewSimplex(b.subEntity(i).Local)
}

// Geometry maps the reference simplex of simplex i into world coordinates
func (b *base) Geometry(i int) *geometry.Simplex {
	se := b.subEntity(i)
	corners := make([][]float64, len(se.Corners))
	for k, c := range se.Corners {
		corners[k] = b.vertices[c].Coord
	}
	return geometry.NewSimplex(corners)
}

// ElementInfo returns what element e contributed; ok is false for elements
// with no selected simplices
func (b *base) ElementInfo(e int) (info ElementInfo, ok bool) {
	idx, ok := b.elementIdx[e]
	if !ok {
		return ElementInfo{Idx: -1, Element: e}, false
	}
	return b.elements[idx], true
}

func (b *base) Contains(e int) bool {
	_, ok := b.elementIdx[e]
	return ok
}

func (b *base) NumElements() int { return len(b.elements) }

// ElementCorners returns the world corners of view element e
func ElementCorners(v GridView, e int) [][]float64 {
	verts := v.ElementVertices(e)
	corners := make([][]float64, len(verts))
	for i, vtx := range verts {
		corners[i] = v.VertexCoords(vtx)
	}
	return corners
}
