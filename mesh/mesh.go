package mesh

import (
	"fmt"
	"sort"

	"github.com/notargets/gridglue/geometry"
)

// Face represents a face of an element
type Face struct {
	Vertices []int // Sorted vertex indices
	Element  int   // Parent element
	LocalID  int   // Local face ID within element
}

// Mesh is an unstructured mixed element mesh with face connectivity
type Mesh struct {
	// Geometry
	Vertices  [][]float64 // Vertex coordinates [nvertices][worldDim]
	VertexIDs []int64     // Stable global vertex index, defaults to position

	// Element data
	Elements     [][]int         // Element to vertex connectivity, lexicographic corner order
	ElementTypes []geometry.Type // Element type for each element
	ElementTags  []int           // Physical group for each element

	// Connectivity (built by BuildConnectivity)
	EToE [][]int // Element to element connectivity [nelems][nfaces_per_elem]
	EToF [][]int // Element to face connectivity [nelems][nfaces_per_elem]
	EToP []int   // Element to partition mapping (set after partitioning)

	// Face data
	Faces   []Face
	FaceMap map[string]int // Map from sorted vertex string to face ID

	// Lower dimensional elements read from file, keyed like FaceMap
	FaceTags     map[string]int
	BoundaryTags map[int]string // Physical tag names

	NumElements int
	NumVertices int
	NumFaces    int
}

func NewMesh() *Mesh {
	return &Mesh{
		FaceMap:      make(map[string]int),
		FaceTags:     make(map[string]int),
		BoundaryTags: make(map[int]string),
	}
}

// AddVertex appends a vertex and returns its index
func (m *Mesh) AddVertex(x ...float64) int {
	m.Vertices = append(m.Vertices, append([]float64{}, x...))
	m.VertexIDs = append(m.VertexIDs, int64(m.NumVertices))
	m.NumVertices++
	return m.NumVertices - 1
}

// AddElement appends an element given its corners in lexicographic order
func (m *Mesh) AddElement(et geometry.Type, tag int, verts ...int) int {
	if len(verts) != et.NumCorners() {
		panic(fmt.Sprintf("mesh: %s needs %d vertices, got %d",
			et, et.NumCorners(), len(verts)))
	}
	m.Elements = append(m.Elements, append([]int{}, verts...))
	m.ElementTypes = append(m.ElementTypes, et)
	m.ElementTags = append(m.ElementTags, tag)
	m.NumElements++
	// connectivity is stale
	m.EToE, m.EToF = nil, nil
	return m.NumElements - 1
}

// Dim is the largest element dimension
func (m *Mesh) Dim() int {
	dim := 0
	for _, et := range m.ElementTypes {
		dim = max(dim, et.Dim())
	}
	return dim
}

func (m *Mesh) WorldDim() int {
	if m.NumVertices == 0 {
		return 0
	}
	return len(m.Vertices[0])
}

func faceKey(verts []int) string {
	sorted := make([]int, len(verts))
	copy(sorted, verts)
	sort.Ints(sorted)
	return fmt.Sprintf("%v", sorted)
}

// BuildConnectivity builds element-to-element and face connectivity
func (m *Mesh) BuildConnectivity() {
	m.EToE = make([][]int, m.NumElements)
	m.EToF = make([][]int, m.NumElements)
	m.Faces = m.Faces[:0]
	m.FaceMap = make(map[string]int)

	for elemID := 0; elemID < m.NumElements; elemID++ {
		faceVertices := GetElementFaces(m.ElementTypes[elemID], m.Elements[elemID])

		m.EToE[elemID] = make([]int, len(faceVertices))
		m.EToF[elemID] = make([]int, len(faceVertices))
		for i := range m.EToE[elemID] {
			m.EToE[elemID][i] = -1
			m.EToF[elemID][i] = -1
		}

		for localFaceID, faceVerts := range faceVertices {
			key := faceKey(faceVerts)
			if faceID, exists := m.FaceMap[key]; exists {
				face := &m.Faces[faceID]
				m.EToE[elemID][localFaceID] = face.Element
				m.EToE[face.Element][face.LocalID] = elemID
				m.EToF[elemID][localFaceID] = faceID
			} else {
				sorted := make([]int, len(faceVerts))
				copy(sorted, faceVerts)
				sort.Ints(sorted)
				faceID = len(m.Faces)
				m.Faces = append(m.Faces, Face{
					Vertices: sorted,
					Element:  elemID,
					LocalID:  localFaceID,
				})
				m.FaceMap[key] = faceID
				m.EToF[elemID][localFaceID] = faceID
			}
		}
	}
	m.NumFaces = len(m.Faces)
}

// GetElementFaces returns the vertices of every face of an element, in the
// outward orientation of the reference element
func GetElementFaces(et geometry.Type, vertices []int) [][]int {
	faces := make([][]int, et.NumFacets())
	for f := range faces {
		local := et.FacetCorners(f)
		faces[f] = make([]int, len(local))
		for i, c := range local {
			faces[f][i] = vertices[c]
		}
	}
	return faces
}

// FaceTag returns the physical tag of face f of element e, if the face was
// tagged by a lower dimensional element in the source file
func (m *Mesh) FaceTag(e, f int) (tag int, ok bool) {
	verts := GetElementFaces(m.ElementTypes[e], m.Elements[e])[f]
	tag, ok = m.FaceTags[faceKey(verts)]
	return
}

// TagFace records a physical tag for the face spanned by verts
func (m *Mesh) TagFace(tag int, verts ...int) {
	m.FaceTags[faceKey(verts)] = tag
}

// ElementCorners returns the world coordinates of the element corners
func (m *Mesh) ElementCorners(e int) [][]float64 {
	corners := make([][]float64, len(m.Elements[e]))
	for i, v := range m.Elements[e] {
		corners[i] = m.Vertices[v]
	}
	return corners
}

func (m *Mesh) ElementCenter(e int) []float64 {
	et := m.ElementTypes[e]
	return et.Global(m.ElementCorners(e), et.Center())
}

// BoundaryFaces lists (element, local face) pairs with no neighbour
func (m *Mesh) BoundaryFaces() (faces [][2]int) {
	if m.EToE == nil {
		m.BuildConnectivity()
	}
	for e := 0; e < m.NumElements; e++ {
		for f, nbr := range m.EToE[e] {
			if nbr < 0 {
				faces = append(faces, [2]int{e, f})
			}
		}
	}
	return
}

// PrintStatistics prints mesh statistics
func (m *Mesh) PrintStatistics() {
	fmt.Printf("Mesh Statistics:\n")
	fmt.Printf("  Vertices: %d\n", m.NumVertices)
	fmt.Printf("  Elements: %d\n", m.NumElements)
	fmt.Printf("  Faces: %d\n", m.NumFaces)

	typeCounts := make(map[geometry.Type]int)
	for _, t := range m.ElementTypes {
		typeCounts[t]++
	}
	types := make([]geometry.Type, 0, len(typeCounts))
	for t := range typeCounts {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	fmt.Printf("  Element types:\n")
	for _, t := range types {
		fmt.Printf("    %s: %d\n", t, typeCounts[t])
	}
	fmt.Printf("  Boundary faces: %d\n", len(m.BoundaryFaces()))
}
