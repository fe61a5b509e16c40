package InputParameters

import (
	"fmt"
	"strings"

	"github.com/ghodss/yaml"
)

// MeshParameters describe one parent mesh: a Gmsh file or a structured
// generator (line, rect or box)
type MeshParameters struct {
	File      string    `json:"File,omitempty"`
	Generator string    `json:"Generator,omitempty"`
	Element   string    `json:"Element,omitempty"`
	Cells     []int     `json:"Cells,omitempty"`  // cells per axis
	Min       []float64 `json:"Min,omitempty"`    // box corner, defaults to the origin
	Max       []float64 `json:"Max,omitempty"`    // box corner, defaults to ones
	Flip      bool      `json:"Flip,omitempty"`   // alternate triangle diagonal
	Points    []float64 `json:"Points,omitempty"` // line mesh nodes
}

// PlaneParameters select facets lying on the plane x[Axis] == Value
type PlaneParameters struct {
	Axis  int     `json:"Axis"`
	Value float64 `json:"Value"`
}

// SideParameters describe one coupled side
type SideParameters struct {
	Mesh  MeshParameters   `json:"Mesh"`
	Codim int              `json:"Codim"`
	Plane *PlaneParameters `json:"Plane,omitempty"`
	Tag   string           `json:"Tag,omitempty"` // physical name or number of tagged facets
	Shift []float64        `json:"Shift,omitempty"`
}

// CouplingParameters obtained from the YAML input file
type CouplingParameters struct {
	Title         string         `json:"Title"`
	Ranks         int            `json:"Ranks"`
	Partitioner   string         `json:"Partitioner"` // Strips or Metis
	PartitionAxis int            `json:"PartitionAxis"`
	Tolerance     float64        `json:"Tolerance"`
	Domain        SideParameters `json:"Domain"`
	Target        SideParameters `json:"Target"`
}

func (cp *CouplingParameters) Parse(data []byte) error {
	if err := yaml.Unmarshal(data, cp); err != nil {
		return err
	}
	if cp.Ranks == 0 {
		cp.Ranks = 1
	}
	if cp.Partitioner == "" {
		cp.Partitioner = "Strips"
	}
	return cp.Validate()
}

func (cp *CouplingParameters) Validate() error {
	if cp.Ranks < 1 {
		return fmt.Errorf("Ranks must be positive, got %d", cp.Ranks)
	}
	switch strings.ToLower(cp.Partitioner) {
	case "strips", "metis":
	default:
		return fmt.Errorf("unknown Partitioner %q, use Strips or Metis", cp.Partitioner)
	}
	for _, side := range []struct {
		name string
		sp   *SideParameters
	}{{"Domain", &cp.Domain}, {"Target", &cp.Target}} {
		if err := side.sp.validate(); err != nil {
			return fmt.Errorf("%s: %w", side.name, err)
		}
	}
	return nil
}

func (sp *SideParameters) validate() error {
	mp := sp.Mesh
	switch {
	case mp.File == "" && mp.Generator == "":
		return fmt.Errorf("Mesh needs a File or a Generator")
	case mp.File != "" && mp.Generator != "":
		return fmt.Errorf("Mesh File and Generator are exclusive")
	}
	switch strings.ToLower(mp.Generator) {
	case "", "line":
	case "rect", "box":
		if len(mp.Cells) == 0 {
			return fmt.Errorf("%s generator needs Cells", mp.Generator)
		}
	default:
		return fmt.Errorf("unknown Generator %q", mp.Generator)
	}
	if sp.Codim != 0 && sp.Codim != 1 {
		return fmt.Errorf("Codim must be 0 or 1, got %d", sp.Codim)
	}
	if sp.Plane != nil && sp.Tag != "" {
		return fmt.Errorf("Plane and Tag are exclusive")
	}
	return nil
}

func (cp *CouplingParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", cp.Title)
	fmt.Printf("[%d]\t\t\t\t= Ranks\n", cp.Ranks)
	fmt.Printf("[%s]\t\t\t= Partitioner\n", cp.Partitioner)
	fmt.Printf("%8.2e\t\t= Tolerance\n", cp.Tolerance)
	cp.Domain.print("Domain")
	cp.Target.print("Target")
}

func (sp *SideParameters) print(name string) {
	mesh := sp.Mesh.File
	if mesh == "" {
		mesh = fmt.Sprintf("%s %s %v", sp.Mesh.Generator, sp.Mesh.Element, sp.Mesh.Cells)
	}
	fmt.Printf("%s: [%s] codim %d", name, mesh, sp.Codim)
	switch {
	case sp.Plane != nil:
		fmt.Printf(", plane x[%d] = %g", sp.Plane.Axis, sp.Plane.Value)
	case sp.Tag != "":
		fmt.Printf(", tag %s", sp.Tag)
	}
	if len(sp.Shift) > 0 {
		fmt.Printf(", shift %v", sp.Shift)
	}
	fmt.Println()
}
