/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/notargets/gridglue/InputParameters"
	"github.com/notargets/gridglue/extract"
	"github.com/notargets/gridglue/geometry"
	"github.com/notargets/gridglue/mesh"
	"github.com/notargets/gridglue/mesh/partition"
)

// BuildMesh reads or generates the parent mesh of one side
func BuildMesh(mp InputParameters.MeshParameters) (m *mesh.Mesh, err error) {
	if mp.File != "" {
		return mesh.ReadMeshFile(mp.File)
	}
	var (
		gen  = strings.ToLower(mp.Generator)
		dim  = map[string]int{"line": 1, "rect": 2, "box": 3}[gen]
		n    = func(axis int) int { return mp.Cells[min(axis, len(mp.Cells)-1)] }
		et   geometry.Type
		bbox = mesh.UnitBox(dim)
	)
	if (gen == "rect" || gen == "box") && len(mp.Cells) == 0 {
		return nil, fmt.Errorf("%s generator needs Cells", mp.Generator)
	}
	if len(mp.Min) > 0 {
		if len(mp.Min) != dim {
			return nil, fmt.Errorf("Min has %d coordinates for a %s mesh", len(mp.Min), gen)
		}
		bbox.Min = mp.Min
	}
	if len(mp.Max) > 0 {
		if len(mp.Max) != dim {
			return nil, fmt.Errorf("Max has %d coordinates for a %s mesh", len(mp.Max), gen)
		}
		bbox.Max = mp.Max
	}
	if mp.Element != "" {
		if et, err = geometry.ParseType(mp.Element); err != nil {
			return nil, err
		}
	}
	switch gen {
	case "line":
		points := mp.Points
		if len(points) == 0 {
			if len(mp.Cells) == 0 {
				return nil, fmt.Errorf("line generator needs Points or Cells")
			}
			for i := 0; i <= n(0); i++ {
				points = append(points, bbox.Min[0]+(bbox.Max[0]-bbox.Min[0])*float64(i)/float64(n(0)))
			}
		}
		return mesh.NewLineMesh(points...), nil
	case "rect":
		if mp.Element == "" {
			et = geometry.Triangle
		}
		if et != geometry.Triangle && et != geometry.Quad {
			return nil, fmt.Errorf("rect generator makes Triangle or Quad elements, not %s", et)
		}
		return mesh.NewRectMesh(n(0), n(1), bbox, et, mp.Flip), nil
	case "box":
		if mp.Element == "" {
			et = geometry.Hex
		}
		if et != geometry.Hex && et != geometry.Tet {
			return nil, fmt.Errorf("box generator makes Hex or Tet elements, not %s", et)
		}
		return mesh.NewBoxMesh(n(0), n(1), n(2), bbox, et), nil
	}
	return nil, fmt.Errorf("unknown generator %q", mp.Generator)
}

// resolveTag accepts a physical tag number or name
func resolveTag(m *mesh.Mesh, tag string) (int, error) {
	if n, err := strconv.Atoi(tag); err == nil {
		return n, nil
	}
	for n, name := range m.BoundaryTags {
		if name == tag {
			return n, nil
		}
	}
	return 0, fmt.Errorf("no physical group named %q", tag)
}

// OnPlane selects facets whose corners all lie on x[axis] == value
func OnPlane(v extract.GridView, axis int, value float64) extract.FacetPredicate {
	var (
		wd  = v.WorldDim()
		tol = 1e-9 * (1 + math.Abs(value))
	)
	if axis < 0 || axis >= wd {
		panic(fmt.Sprintf("plane axis %d in R^%d", axis, wd))
	}
	return func(e, f int) bool {
		verts := v.ElementVertices(e)
		for _, c := range v.ElementType(e).FacetCorners(f) {
			if math.Abs(v.VertexCoords(verts[c])[axis]-value) > tol {
				return false
			}
		}
		return true
	}
}

func facetPredicate(v *mesh.View, sp *InputParameters.SideParameters) (extract.FacetPredicate, error) {
	switch {
	case sp.Plane != nil:
		if sp.Plane.Axis < 0 || sp.Plane.Axis >= v.WorldDim() {
			return nil, fmt.Errorf("plane axis %d in R^%d", sp.Plane.Axis, v.WorldDim())
		}
		return OnPlane(v, sp.Plane.Axis, sp.Plane.Value), nil
	case sp.Tag != "":
		tag, err := resolveTag(v.Mesh(), sp.Tag)
		if err != nil {
			return nil, err
		}
		return func(e, f int) bool {
			t, ok := v.FaceTag(e, f)
			return ok && t == tag
		}, nil
	}
	return extract.All, nil
}

func elementPredicate(v *mesh.View, sp *InputParameters.SideParameters) (extract.ElementPredicate, error) {
	if sp.Tag == "" {
		return extract.Elements, nil
	}
	tag, err := resolveTag(v.Mesh(), sp.Tag)
	if err != nil {
		return nil, err
	}
	return func(e int) bool { return v.ElementTag(e) == tag }, nil
}

// NewExtractor builds the extractor a side describes on one view
func NewExtractor(v *mesh.View, sp *InputParameters.SideParameters) (extract.Extractor, error) {
	if sp.Codim == 0 {
		pred, err := elementPredicate(v, sp)
		if err != nil {
			return nil, err
		}
		return extract.NewCodim0Extractor(v, pred), nil
	}
	pred, err := facetPredicate(v, sp)
	if err != nil {
		return nil, err
	}
	return extract.NewCodim1Extractor(v, pred), nil
}

// PartitionMesh splits a side's mesh over the ranks
func PartitionMesh(m *mesh.Mesh, sp *InputParameters.SideParameters, cp *InputParameters.CouplingParameters) error {
	if cp.Ranks == 1 {
		m.EToP = make([]int, m.NumElements)
		return nil
	}
	switch strings.ToLower(cp.Partitioner) {
	case "metis":
		p := partition.New(m, partition.DefaultConfig(int32(cp.Ranks)))
		if sp.Codim == 1 {
			pred, err := facetPredicate(m.View(), sp)
			if err != nil {
				return err
			}
			p.CouplingFaces = pred
		}
		return p.Partition()
	default:
		if cp.PartitionAxis < 0 || cp.PartitionAxis >= m.WorldDim() {
			return fmt.Errorf("partition axis %d in R^%d", cp.PartitionAxis, m.WorldDim())
		}
		m.PartitionStrips(cp.Ranks, cp.PartitionAxis)
	}
	return nil
}
