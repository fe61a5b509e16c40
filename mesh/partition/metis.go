// Package partition splits a mesh across processes with METIS, weighting
// elements by the boundary facets they contribute to a coupling.
package partition

import (
	"fmt"

	metis "github.com/notargets/go-metis"
	"go.uber.org/zap"

	"github.com/notargets/gridglue/geometry"
	"github.com/notargets/gridglue/logger"
	"github.com/notargets/gridglue/mesh"
)

// Config holds configuration for mesh partitioning
type Config struct {
	NumPartitions    int32
	ImbalanceFactor  float32 // e.g., 1.05 for 5% imbalance
	UseEdgeWeights   bool
	UseVertexWeights bool
	Objective        string // "cut" or "vol"
}

func DefaultConfig(nparts int32) *Config {
	return &Config{
		NumPartitions:    nparts,
		ImbalanceFactor:  1.05,
		UseEdgeWeights:   true,
		UseVertexWeights: true,
		Objective:        "vol",
	}
}

// Partitioner assigns mesh elements to partitions
type Partitioner struct {
	mesh   *mesh.Mesh
	config *Config

	// CouplingFaces, when set, marks the boundary faces that take part in a
	// coupling. Elements owning them are weighted up so the extraction and
	// merge work is spread evenly.
	CouplingFaces func(e, f int) bool

	computeCostModel func(et geometry.Type, couplingFaces int) int32
	commCostModel    func(faceVertices int) int32
}

func New(m *mesh.Mesh, config *Config) *Partitioner {
	p := &Partitioner{mesh: m, config: config}
	p.computeCostModel = func(et geometry.Type, couplingFaces int) int32 {
		return int32(1 + 4*couplingFaces)
	}
	p.commCostModel = func(faceVertices int) int32 {
		return int32(faceVertices)
	}
	return p
}

// Partition runs METIS and stores the result in the mesh's EToP
func (p *Partitioner) Partition() error {
	if p.config.NumPartitions < 2 {
		p.mesh.EToP = make([]int, p.mesh.NumElements)
		return nil
	}
	if p.mesh.EToE == nil {
		p.mesh.BuildConnectivity()
	}
	xadj, adjncy, vwgt, adjwgt := p.buildMetisGraph()

	opts := make([]int32, metis.NoOptions)
	if err := metis.SetDefaultOptions(opts); err != nil {
		return fmt.Errorf("failed to set METIS options: %w", err)
	}
	if p.config.Objective == "vol" {
		opts[metis.OptionObjType] = metis.ObjTypeVol
	} else {
		opts[metis.OptionObjType] = metis.ObjTypeCut
	}
	ubvec := []float32{p.config.ImbalanceFactor}

	var vwgtPtr, adjwgtPtr []int32
	if p.config.UseVertexWeights {
		vwgtPtr = vwgt
	}
	if p.config.UseEdgeWeights {
		adjwgtPtr = adjwgt
	}
	part, objval, err := metis.PartGraphKwayWeighted(
		xadj, adjncy, vwgtPtr, adjwgtPtr,
		p.config.NumPartitions, nil, ubvec, opts,
	)
	if err != nil {
		return fmt.Errorf("METIS partitioning failed: %w", err)
	}
	p.mesh.EToP = make([]int, p.mesh.NumElements)
	for i := range p.mesh.EToP {
		p.mesh.EToP[i] = int(part[i])
	}
	logger.Named("partition").Info("partitioned mesh",
		zap.Int("elements", p.mesh.NumElements),
		zap.Int32("parts", p.config.NumPartitions),
		zap.Int32("objective", objval),
		zap.Any("sizes", p.mesh.PartitionSizes()),
	)
	return nil
}

// buildMetisGraph converts the element dual graph to CSR form
func (p *Partitioner) buildMetisGraph() (xadj, adjncy, vwgt, adjwgt []int32) {
	ne := p.mesh.NumElements
	if p.config.UseVertexWeights {
		vwgt = make([]int32, ne)
		for e := 0; e < ne; e++ {
			var nc int
			if p.CouplingFaces != nil {
				for f, nbr := range p.mesh.EToE[e] {
					if nbr < 0 && p.CouplingFaces(e, f) {
						nc++
					}
				}
			}
			vwgt[e] = p.computeCostModel(p.mesh.ElementTypes[e], nc)
		}
	}

	xadj = make([]int32, ne+1)
	for e := 0; e < ne; e++ {
		for f, nbr := range p.mesh.EToE[e] {
			if nbr < 0 || nbr == e {
				continue
			}
			adjncy = append(adjncy, int32(nbr))
			if p.config.UseEdgeWeights {
				face := p.mesh.Faces[p.mesh.EToF[e][f]]
				adjwgt = append(adjwgt, p.commCostModel(len(face.Vertices)))
			}
		}
		xadj[e+1] = int32(len(adjncy))
	}
	return
}
