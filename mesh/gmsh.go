package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/notargets/gridglue/geometry"
)

// ReadMeshFile reads a mesh file based on extension
func ReadMeshFile(filename string) (*Mesh, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".msh":
		return ReadGmsh22(filename)
	default:
		return nil, fmt.Errorf("unsupported mesh format: %s", ext)
	}
}

// gmsh element type number -> reference type and the permutation taking gmsh
// node order to lexicographic corner order
var gmshElementType22 = map[int]struct {
	et   geometry.Type
	perm []int
}{
	1: {geometry.Line, []int{0, 1}},
	2: {geometry.Triangle, []int{0, 1, 2}},
	3: {geometry.Quad, []int{0, 1, 3, 2}},
	4: {geometry.Tet, []int{0, 1, 2, 3}},
	5: {geometry.Hex, []int{0, 1, 3, 2, 4, 5, 7, 6}},
	6: {geometry.Prism, []int{0, 1, 2, 3, 4, 5}},
	7: {geometry.Pyramid, []int{0, 1, 3, 2, 4}},
}

// ReadGmsh22 reads an ASCII Gmsh MSH file in format version 2.2
func ReadGmsh22(filename string) (*Mesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ParseGmsh22(file)
}

type gmshElement struct {
	et    geometry.Type
	tag   int
	nodes []int // gmsh node ids, lexicographic order
}

// ParseGmsh22 reads the MSH 2.2 sections from r. Elements of lower dimension
// than the mesh become face tags.
func ParseGmsh22(r io.Reader) (*Mesh, error) {
	var (
		scanner  = bufio.NewScanner(r)
		msh      = NewMesh()
		nodeIdx  = make(map[int]int)
		elements []gmshElement
	)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var err error
		switch line {
		case "$MeshFormat":
			err = readMeshFormat22(scanner)
		case "$PhysicalNames":
			err = readPhysicalNames22(scanner, msh)
		case "$Nodes":
			err = readNodes22(scanner, msh, nodeIdx)
		case "$Elements":
			elements, err = readElements22(scanner)
		default:
			if strings.HasPrefix(line, "$") && !strings.HasPrefix(line, "$End") {
				err = skipSection(scanner, "$End"+line[1:])
			}
		}
		if err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}

	dim := 0
	for _, el := range elements {
		dim = max(dim, el.et.Dim())
	}
	for _, el := range elements {
		verts := make([]int, len(el.nodes))
		for i, id := range el.nodes {
			idx, ok := nodeIdx[id]
			if !ok {
				return nil, fmt.Errorf("element references unknown node %d", id)
			}
			verts[i] = idx
		}
		if el.et.Dim() < dim {
			msh.TagFace(el.tag, verts...)
			continue
		}
		msh.AddElement(el.et, el.tag, verts...)
	}
	msh.trimCoordinates(dim)
	msh.BuildConnectivity()
	return msh, nil
}

func readMeshFormat22(scanner *bufio.Scanner) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in MeshFormat")
	}
	parts := strings.Fields(scanner.Text())
	if len(parts) < 3 {
		return fmt.Errorf("invalid MeshFormat line")
	}
	if !strings.HasPrefix(parts[0], "2.") {
		return fmt.Errorf("unsupported gmsh version %s, want 2.2", parts[0])
	}
	if parts[1] != "0" {
		return fmt.Errorf("binary gmsh files are not supported")
	}
	return skipSection(scanner, "$EndMeshFormat")
}

func readPhysicalNames22(scanner *bufio.Scanner, msh *Mesh) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in PhysicalNames")
	}
	numNames, _ := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	for i := 0; i < numNames; i++ {
		if !scanner.Scan() {
			return fmt.Errorf("unexpected EOF reading physical names")
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) < 3 {
			return fmt.Errorf("invalid physical name line: %s", scanner.Text())
		}
		tag, _ := strconv.Atoi(parts[1])
		name := strings.Trim(strings.Join(parts[2:], " "), "\"")
		msh.BoundaryTags[tag] = name
	}
	return skipSection(scanner, "$EndPhysicalNames")
}

func readNodes22(scanner *bufio.Scanner, msh *Mesh, nodeIdx map[int]int) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in Nodes")
	}
	numNodes, _ := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	for i := 0; i < numNodes; i++ {
		if !scanner.Scan() {
			return fmt.Errorf("unexpected EOF reading nodes")
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) < 4 {
			return fmt.Errorf("invalid node line: %s", scanner.Text())
		}
		nodeID, err := strconv.Atoi(parts[0])
		if err != nil {
			return fmt.Errorf("invalid node id %q: %w", parts[0], err)
		}
		x := make([]float64, 3)
		for d := range x {
			if x[d], err = strconv.ParseFloat(parts[1+d], 64); err != nil {
				return fmt.Errorf("node %d: %w", nodeID, err)
			}
		}
		nodeIdx[nodeID] = msh.AddVertex(x...)
		msh.VertexIDs[nodeIdx[nodeID]] = int64(nodeID)
	}
	return skipSection(scanner, "$EndNodes")
}

func readElements22(scanner *bufio.Scanner) ([]gmshElement, error) {
	if !scanner.Scan() {
		return nil, fmt.Errorf("unexpected EOF in Elements")
	}
	var (
		numElements, _ = strconv.Atoi(strings.TrimSpace(scanner.Text()))
		elements       = make([]gmshElement, 0, numElements)
	)
	for i := 0; i < numElements; i++ {
		if !scanner.Scan() {
			return nil, fmt.Errorf("unexpected EOF reading elements")
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) < 4 {
			return nil, fmt.Errorf("invalid element line: %s", scanner.Text())
		}
		elemID, _ := strconv.Atoi(parts[0])
		elemType, _ := strconv.Atoi(parts[1])
		numTags, _ := strconv.Atoi(parts[2])
		info, ok := gmshElementType22[elemType]
		if !ok {
			// points and high order elements
			continue
		}
		nodeStart := 3 + numTags
		if len(parts) < nodeStart+len(info.perm) {
			return nil, fmt.Errorf("element %d: expected %d nodes, got %d",
				elemID, len(info.perm), len(parts)-nodeStart)
		}
		el := gmshElement{et: info.et, nodes: make([]int, len(info.perm))}
		if numTags > 0 {
			el.tag, _ = strconv.Atoi(parts[3])
		}
		for j, p := range info.perm {
			el.nodes[j], _ = strconv.Atoi(parts[nodeStart+p])
		}
		elements = append(elements, el)
	}
	return elements, skipSection(scanner, "$EndElements")
}

func skipSection(scanner *bufio.Scanner, endMarker string) error {
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == endMarker {
			return nil
		}
	}
	return fmt.Errorf("unexpected EOF looking for %s", endMarker)
}

// trimCoordinates drops trailing coordinates that are zero everywhere, so a
// planar mesh lives in R^dim
func (m *Mesh) trimCoordinates(dim int) {
	if dim == 0 || m.WorldDim() <= dim {
		return
	}
	for _, x := range m.Vertices {
		for d := dim; d < len(x); d++ {
			if x[d] != 0 {
				return
			}
		}
	}
	for i := range m.Vertices {
		m.Vertices[i] = m.Vertices[i][:dim]
	}
}
