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
	"os"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/gridglue/InputParameters"
	"github.com/notargets/gridglue/comm"
	"github.com/notargets/gridglue/glue"
	"github.com/notargets/gridglue/logger"
	"github.com/notargets/gridglue/merging"
	"github.com/notargets/gridglue/mesh"
	"github.com/notargets/gridglue/vtk"
)

type Coupling struct {
	InputFile string
	VTKPrefix string
	Plot      bool
	Profile   bool
}

// CoupleCmd represents the couple command
var CoupleCmd = &cobra.Command{
	Use:   "couple",
	Short: "Couple the two meshes described in a YAML input file",
	Long: `
Builds both meshes, partitions them over the requested number of ranks,
extracts the coupled patches, merges them and reports the intersections,
their total measure, the normal orientation and a data exchange check.

gridglue couple -I coupling.yaml [--vtk out] [--plot] [--profile]`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := &Coupling{}
		c.InputFile, _ = cmd.Flags().GetString("inputFile")
		c.VTKPrefix, _ = cmd.Flags().GetString("vtk")
		c.Plot, _ = cmd.Flags().GetBool("plot")
		c.Profile, _ = cmd.Flags().GetBool("profile")
		cp, err := readInput(c.InputFile)
		if err != nil {
			return err
		}
		cp.Print()
		if c.Profile {
			defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
		}
		report, err := RunCoupling(cp)
		if err != nil {
			return err
		}
		report.Print()
		if c.VTKPrefix != "" {
			if err = report.WriteVTK(c.VTKPrefix); err != nil {
				return err
			}
		}
		if c.Plot {
			PlotReport(report)
		}
		return nil
	},
}

const exampleInput = `
########################################
Title: "Plane interface"
Ranks: 2
Partitioner: Strips # or Metis
PartitionAxis: 1
Domain:
  Mesh: {Generator: rect, Element: Triangle, Cells: [4, 4]}
  Codim: 1
  Plane: {Axis: 0, Value: 1}
Target:
  Mesh: {Generator: rect, Element: Quad, Cells: [3, 5], Min: [1, 0], Max: [2, 1]}
  Codim: 1
  Plane: {Axis: 0, Value: 1}
########################################
`

func readInput(filename string) (*InputParameters.CouplingParameters, error) {
	if filename == "" {
		fmt.Printf("Example File:%s\n", exampleInput)
		return nil, fmt.Errorf("must supply an input parameters file (-I, --inputFile)")
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	cp := &InputParameters.CouplingParameters{}
	if err = cp.Parse(data); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return cp, nil
}

func init() {
	rootCmd.AddCommand(CoupleCmd)
	CoupleCmd.Flags().StringP("inputFile", "I", "", "YAML file describing both sides of the coupling")
	CoupleCmd.Flags().String("vtk", "", "write patches and intersections of every rank as <prefix>_rank<N>_*.vtk")
	CoupleCmd.Flags().BoolP("plot", "g", false, "plot a 2D coupling")
	CoupleCmd.Flags().Bool("profile", false, "write a CPU profile to the current directory")
}

// RankReport summarizes the coupling seen by one rank
type RankReport struct {
	Rank          int
	Intersections int     // records known to the rank
	Owned         int     // records whose domain parent is local
	Measure       float64 // total measure of the owned records
	Checked       int     // local pairs with both normals defined
	Opposed       int     // of those, pairs with opposing normals
	Exchanged     int     // payloads received by the target side
	Mismatched    int     // received measures differing from the local one
	Glue          *glue.GridGlue
}

type Report struct {
	Title string
	Ranks []*RankReport
}

func (r *Report) Intersections() (n int) {
	for _, rr := range r.Ranks {
		n += rr.Owned
	}
	return
}

func (r *Report) Measure() (sum float64) {
	for _, rr := range r.Ranks {
		sum += rr.Measure
	}
	return
}

func (r *Report) Print() {
	fmt.Printf("%s\n", r.Title)
	var checked, opposed, exchanged, mismatched int
	for _, rr := range r.Ranks {
		fmt.Printf("rank %d: %d intersections, %d owned, measure %.6g\n",
			rr.Rank, rr.Intersections, rr.Owned, rr.Measure)
		checked += rr.Checked
		opposed += rr.Opposed
		exchanged += rr.Exchanged
		mismatched += rr.Mismatched
	}
	fmt.Printf("%d\t\t\t= Intersections\n", r.Intersections())
	fmt.Printf("%.12g\t\t= Total measure\n", r.Measure())
	if checked > 0 {
		fmt.Printf("%d/%d\t\t\t= Opposed normals\n", opposed, checked)
	}
	fmt.Printf("%d/%d\t\t\t= Exchanged measures matching\n", exchanged-mismatched, exchanged)
}

func (r *Report) WriteVTK(prefix string) error {
	for _, rr := range r.Ranks {
		var (
			g    = rr.Glue
			name = func(what string) string { return fmt.Sprintf("%s_rank%d_%s.vtk", prefix, rr.Rank, what) }
		)
		if err := vtk.WriteFile(name("domain"), vtk.PatchGrid(g.Patch(merging.Side0).Extractor)); err != nil {
			return err
		}
		if err := vtk.WriteFile(name("target"), vtk.PatchGrid(g.Patch(merging.Side1).Extractor)); err != nil {
			return err
		}
		if err := vtk.WriteFile(name("intersections"), vtk.IntersectionGrid(g, merging.Side0)); err != nil {
			return err
		}
	}
	return nil
}

// RunCoupling builds the meshes and runs the coupling on cp.Ranks in-process
// ranks
func RunCoupling(cp *InputParameters.CouplingParameters) (*Report, error) {
	var (
		sides  = [2]*InputParameters.SideParameters{&cp.Domain, &cp.Target}
		meshes [2]*mesh.Mesh
		err    error
	)
	for s, sp := range sides {
		if meshes[s], err = BuildMesh(sp.Mesh); err != nil {
			return nil, fmt.Errorf("%s mesh: %w", merging.Side(s), err)
		}
		if err = PartitionMesh(meshes[s], sp, cp); err != nil {
			return nil, fmt.Errorf("%s partition: %w", merging.Side(s), err)
		}
	}
	views := make([][2]*mesh.View, cp.Ranks)
	for r := range views {
		for s := range meshes {
			views[r][s] = meshes[s].PartitionView(r)
		}
	}

	var (
		report = &Report{Title: cp.Title, Ranks: make([]*RankReport, cp.Ranks)}
		group  = comm.NewGroup(cp.Ranks)
	)
	err = group.Run(func(c comm.Communicator) error {
		rr, err := runRank(c, cp, sides, views[c.Rank()])
		report.Ranks[c.Rank()] = rr
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Info("coupled",
		zap.Int("ranks", cp.Ranks),
		zap.Int("intersections", report.Intersections()),
		zap.Float64("measure", report.Measure()),
	)
	return report, nil
}

func runRank(c comm.Communicator, cp *InputParameters.CouplingParameters,
	sides [2]*InputParameters.SideParameters, views [2]*mesh.View) (*RankReport, error) {
	var patches [2]*glue.Patch
	for s, sp := range sides {
		x, err := NewExtractor(views[s], sp)
		if err != nil {
			return nil, err
		}
		patches[s] = &glue.Patch{Extractor: x}
		if len(sp.Shift) > 0 {
			if len(sp.Shift) != views[s].WorldDim() {
				return nil, fmt.Errorf("shift %v in R^%d", sp.Shift, views[s].WorldDim())
			}
			patches[s].Transform = glue.Shift(sp.Shift...)
		}
	}
	g := glue.New(patches[0], patches[1], merging.NewOverlappingMerge(cp.Tolerance),
		glue.WithCommunicator(c),
		glue.WithLogger(logger.Named("glue").With(zap.Int("rank", c.Rank()))),
	)
	if err := g.Build(); err != nil {
		return nil, err
	}

	var (
		rr      = &RankReport{Rank: c.Rank(), Intersections: g.Size(), Glue: g}
		normals = sides[0].Codim == 1 && sides[1].Codim == 1 &&
			g.Dim() == views[0].WorldDim()-1
	)
	for is := range g.Intersections(merging.Side0) {
		if !is.Self() {
			continue
		}
		rr.Owned++
		rr.Measure += is.Geometry().Volume()
		if normals && is.Neighbor() {
			rr.Checked++
			if floats.Dot(is.CenterUnitOuterNormal(), is.Flip().CenterUnitOuterNormal()) < 0 {
				rr.Opposed++
			}
		}
	}

	h := &measureHandle{}
	if err := glue.Communicate[float64](g, h, glue.Forward); err != nil {
		return rr, err
	}
	rr.Exchanged, rr.Mismatched = h.received, h.mismatched
	return rr, nil
}

// measureHandle sends the world measure of each intersection as computed on
// the domain side, the target compares it with its own
type measureHandle struct {
	received, mismatched int
}

func (h *measureHandle) Size(is glue.Intersection) int { return 1 }

func (h *measureHandle) Gather(buf *glue.Buffer[float64], element int, is glue.Intersection) {
	buf.Write(is.Geometry().Volume())
}

func (h *measureHandle) Scatter(buf *glue.Buffer[float64], element int, is glue.Intersection, n int) {
	var (
		sent  = buf.Read()
		local = is.Geometry().Volume()
	)
	h.received++
	if math.Abs(sent-local) > 1e-10*math.Max(1, local) {
		h.mismatched++
	}
}
