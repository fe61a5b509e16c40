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
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/notargets/gridglue/InputParameters"
	"github.com/notargets/gridglue/logger"
	"github.com/notargets/gridglue/vtk"
)

// ExtractCmd represents the extract command
var ExtractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Write the extracted patch of one side to a VTK file",
	Long: `
Builds the mesh of one side of a coupling input file, extracts its patch on
a single process and writes the patch simplices with their parent element
and facet numbers as legacy VTK.

gridglue extract -I coupling.yaml --side target -o target.vtk`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			inputFile, _ = cmd.Flags().GetString("inputFile")
			side, _      = cmd.Flags().GetString("side")
			output, _    = cmd.Flags().GetString("output")
		)
		cp, err := readInput(inputFile)
		if err != nil {
			return err
		}
		var sp *InputParameters.SideParameters
		switch strings.ToLower(side) {
		case "domain", "0":
			sp = &cp.Domain
		case "target", "1":
			sp = &cp.Target
		default:
			return fmt.Errorf("side must be domain or target, not %q", side)
		}
		if output == "" {
			output = strings.ToLower(side) + ".vtk"
		}
		return ExtractPatch(sp, output)
	},
}

func init() {
	rootCmd.AddCommand(ExtractCmd)
	ExtractCmd.Flags().StringP("inputFile", "I", "", "YAML file describing both sides of the coupling")
	ExtractCmd.Flags().String("side", "domain", "side to extract: domain or target")
	ExtractCmd.Flags().StringP("output", "o", "", "VTK file to write (default <side>.vtk)")
}

// ExtractPatch extracts a side on the whole mesh and writes it as VTK
func ExtractPatch(sp *InputParameters.SideParameters, filename string) error {
	m, err := BuildMesh(sp.Mesh)
	if err != nil {
		return err
	}
	m.EToP = make([]int, m.NumElements)
	x, err := NewExtractor(m.View(), sp)
	if err != nil {
		return err
	}
	if err = x.Update(); err != nil {
		return err
	}
	logger.Info("extracted patch",
		zap.Int("codim", x.Codim()),
		zap.Int("simplices", x.NumFaces()),
		zap.Int("vertices", len(x.Coords())),
		zap.String("file", filename),
	)
	return vtk.WriteFile(filename, vtk.PatchGrid(x))
}
