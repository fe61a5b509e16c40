package mesh

import (
	"fmt"

	"github.com/notargets/gridglue/geometry"
)

// View is the element set seen by one process: either the whole mesh or the
// elements of one partition. Vertex indices are mesh indices. Element
// indices are dense positions within the view.
type View struct {
	mesh     *Mesh
	rank     int
	elements []int
}

// View returns a view over every element of the mesh
func (m *Mesh) View() *View {
	m.ensureConnectivity()
	v := &View{mesh: m, rank: -1, elements: make([]int, m.NumElements)}
	for e := range v.elements {
		v.elements[e] = e
	}
	return v
}

// PartitionView returns the view of the elements assigned to partition rank
func (m *Mesh) PartitionView(rank int) *View {
	if m.EToP == nil {
		panic("mesh: PartitionView called on an unpartitioned mesh")
	}
	m.ensureConnectivity()
	v := &View{mesh: m, rank: rank}
	for e, p := range m.EToP {
		if p == rank {
			v.elements = append(v.elements, e)
		}
	}
	return v
}

func (m *Mesh) ensureConnectivity() {
	if m.EToE == nil || len(m.EToE) != m.NumElements {
		m.BuildConnectivity()
	}
}

func (v *View) Mesh() *Mesh { return v.mesh }

// Rank is the partition shown by the view, -1 for the whole mesh
func (v *View) Rank() int { return v.rank }

func (v *View) Dim() int { return v.mesh.Dim() }

func (v *View) WorldDim() int { return v.mesh.WorldDim() }

func (v *View) NumElements() int { return len(v.elements) }

// MeshElement maps a view element index to the mesh element index
func (v *View) MeshElement(e int) int {
	if e < 0 || e >= len(v.elements) {
		panic(fmt.Sprintf("mesh: element %d outside view of %d", e, len(v.elements)))
	}
	return v.elements[e]
}

func (v *View) ElementType(e int) geometry.Type {
	return v.mesh.ElementTypes[v.MeshElement(e)]
}

func (v *View) ElementVertices(e int) []int {
	return v.mesh.Elements[v.MeshElement(e)]
}

func (v *View) ElementTag(e int) int {
	return v.mesh.ElementTags[v.MeshElement(e)]
}

func (v *View) VertexCoords(vtx int) []float64 { return v.mesh.Vertices[vtx] }

func (v *View) VertexID(vtx int) int64 { return v.mesh.VertexIDs[vtx] }

// Boundary reports a face on the physical boundary of the mesh. Faces shared
// with another partition are not boundary faces.
func (v *View) Boundary(e, f int) bool {
	return v.mesh.EToE[v.MeshElement(e)][f] < 0
}

// FaceTag is the physical tag of a boundary face, see Mesh.FaceTag
func (v *View) FaceTag(e, f int) (int, bool) {
	return v.mesh.FaceTag(v.MeshElement(e), f)
}
