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
	"image/color"
	"math"

	"github.com/notargets/avs/chart2d"
	utils2 "github.com/notargets/avs/utils"

	"github.com/notargets/gridglue/extract"
	"github.com/notargets/gridglue/geometry"
	"github.com/notargets/gridglue/merging"
)

// PlotReport draws the patches and intersections of every rank of a 2D
// coupling. It does not return.
func PlotReport(r *Report) {
	lines := make(map[color.RGBA][]float32)
	for _, rr := range r.Ranks {
		g := rr.Glue
		if g.Patch(merging.Side0).Extractor.WorldDim() != 2 {
			continue
		}
		addPatch(g.Patch(merging.Side0).Extractor, utils2.BLUE, lines)
		addPatch(g.Patch(merging.Side1).Extractor, utils2.GREEN, lines)
		for is := range g.Intersections(merging.Side0) {
			if !is.Self() {
				continue
			}
			s := is.Geometry()
			addSimplex(s, utils2.RED, lines)
			if g.Dim() == 1 && g.Patch(merging.Side0).Extractor.Codim() == 1 {
				var (
					c = s.Center()
					n = is.CenterUnitOuterNormal()
					h = 0.25 * s.Diameter()
				)
				AddLine(c[0], c[1], c[0]+h*n[0], c[1]+h*n[1], utils2.WHITE, lines)
			}
		}
	}
	if len(lines) == 0 {
		return
	}
	PlotLines(lines)
}

func addPatch(x extract.Extractor, col color.RGBA, lines map[color.RGBA][]float32) {
	for i := 0; i < x.NumFaces(); i++ {
		addSimplex(x.Geometry(i), col, lines)
	}
}

// addSimplex draws the edges of a segment or triangle
func addSimplex(s *geometry.Simplex, col color.RGBA, lines map[color.RGBA][]float32) {
	c := s.Corners()
	if len(c) == 2 {
		AddLine(c[0][0], c[0][1], c[1][0], c[1][1], col, lines)
		return
	}
	for k := range c {
		a, b := c[k], c[(k+1)%len(c)]
		AddLine(a[0], a[1], b[0], b[1], col, lines)
	}
}

func AddLine(x1, y1, x2, y2 float64, col color.RGBA,
	lines map[color.RGBA][]float32) {
	lines[col] = append(lines[col],
		float32(x1), float32(y1),
		float32(x2), float32(y2),
	)
}

func PlotLines(lines map[color.RGBA][]float32) {
	var (
		xMin, xMax = float32(math.MaxFloat32), -float32(math.MaxFloat32)
		yMin, yMax = float32(math.MaxFloat32), -float32(math.MaxFloat32)
	)
	for _, line := range lines {
		xMin, xMax, yMin, yMax = getMinMax(line, xMin, xMax, yMin, yMax)
	}
	ch := chart2d.NewChart2D(xMin, xMax, yMin, yMax,
		1024, 1024, utils2.WHITE, utils2.BLACK)
	for col, line := range lines {
		ch.AddLine(line, col)
	}
	for {
	}
}

func getMinMax(XY []float32, xi, xa, yi, ya float32) (xMin, xMax, yMin, yMax float32) {
	xMin, xMax, yMin, yMax = xi, xa, yi, ya
	for i := 0; i < len(XY)/2; i++ {
		x, y := XY[i*2+0], XY[i*2+1]
		xMin = min(xMin, x)
		xMax = max(xMax, x)
		yMin = min(yMin, y)
		yMax = max(yMax, y)
	}
	return
}
