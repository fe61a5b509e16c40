// Package vtk writes patches and intersections as legacy ASCII VTK
// unstructured grids for inspection in ParaView or VisIt.
package vtk

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/notargets/gridglue/extract"
	"github.com/notargets/gridglue/geometry"
	"github.com/notargets/gridglue/glue"
	"github.com/notargets/gridglue/merging"
)

// VTK cell type codes
const (
	cellVertex   = 1
	cellLine     = 3
	cellTriangle = 5
	cellTet      = 10
)

func cellType(t geometry.Type) int {
	switch t {
	case geometry.Point:
		return cellVertex
	case geometry.Line:
		return cellLine
	case geometry.Triangle:
		return cellTriangle
	case geometry.Tet:
		return cellTet
	}
	panic(fmt.Sprintf("vtk: no cell type for %s", t))
}

// Grid is a simplicial point and cell set with integer cell fields
type Grid struct {
	Title  string
	Points [][]float64
	Cells  [][]int
	Types  []geometry.Type
	Fields map[string][]int
	order  []string
}

// AddField attaches one integer per cell, fields are written in the order
// they were added
func (g *Grid) AddField(name string, values []int) {
	if len(values) != len(g.Cells) {
		panic(fmt.Sprintf("vtk: field %s has %d values for %d cells", name, len(values), len(g.Cells)))
	}
	if g.Fields == nil {
		g.Fields = make(map[string][]int)
	}
	if _, ok := g.Fields[name]; !ok {
		g.order = append(g.order, name)
	}
	g.Fields[name] = values
}

func (g *Grid) WriteTo(w io.Writer) (int64, error) {
	var (
		bw = bufio.NewWriter(w)
		cw = &countWriter{w: bw}
	)
	fmt.Fprintf(cw, "# vtk DataFile Version 2.0\n%s\nASCII\nDATASET UNSTRUCTURED_GRID\n", g.Title)
	fmt.Fprintf(cw, "POINTS %d double\n", len(g.Points))
	for _, x := range g.Points {
		var p [3]float64
		copy(p[:], x)
		fmt.Fprintf(cw, "%.17g %.17g %.17g\n", p[0], p[1], p[2])
	}
	size := 0
	for _, c := range g.Cells {
		size += len(c) + 1
	}
	fmt.Fprintf(cw, "CELLS %d %d\n", len(g.Cells), size)
	for _, c := range g.Cells {
		fmt.Fprintf(cw, "%d", len(c))
		for _, v := range c {
			fmt.Fprintf(cw, " %d", v)
		}
		fmt.Fprintln(cw)
	}
	fmt.Fprintf(cw, "CELL_TYPES %d\n", len(g.Cells))
	for _, t := range g.Types {
		fmt.Fprintf(cw, "%d\n", cellType(t))
	}
	if len(g.order) > 0 {
		fmt.Fprintf(cw, "CELL_DATA %d\n", len(g.Cells))
		for _, name := range g.order {
			fmt.Fprintf(cw, "SCALARS %s int 1\nLOOKUP_TABLE default\n", name)
			for _, v := range g.Fields[name] {
				fmt.Fprintf(cw, "%d\n", v)
			}
		}
	}
	if cw.err != nil {
		return cw.n, cw.err
	}
	return cw.n, bw.Flush()
}

type countWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}

// PatchGrid converts an extracted patch, tagging each simplex with its
// parent element and facet
func PatchGrid(x extract.Extractor) *Grid {
	g := &Grid{
		Title:  fmt.Sprintf("codim %d patch", x.Codim()),
		Points: x.Coords(),
		Cells:  x.Faces(),
		Types:  x.Types(),
	}
	var (
		elements = make([]int, x.NumFaces())
		facets   = make([]int, x.NumFaces())
	)
	for i := range elements {
		elements[i] = x.Element(i)
		facets[i] = x.IndexInInside(i)
	}
	g.AddField("element", elements)
	g.AddField("facet", facets)
	return g
}

// IntersectionGrid converts the intersections whose inside parent is local,
// tagging each with its index and both parents
func IntersectionGrid(gg *glue.GridGlue, inside merging.Side) *Grid {
	var index, ins, outs []int
	g := &Grid{Title: fmt.Sprintf("intersections, %s inside", inside)}
	for is := range gg.Intersections(inside) {
		if !is.Self() {
			continue
		}
		cell := make([]int, 0, is.Type().NumCorners())
		for _, x := range is.Geometry().Corners() {
			cell = append(cell, len(g.Points))
			g.Points = append(g.Points, x)
		}
		g.Cells = append(g.Cells, cell)
		g.Types = append(g.Types, is.Type())
		index = append(index, is.Index())
		ins = append(ins, is.Inside())
		out := -1
		if is.Neighbor() {
			out = is.Outside()
		}
		outs = append(outs, out)
	}
	g.AddField("index", index)
	g.AddField("inside", ins)
	g.AddField("outside", outs)
	return g
}

func WritePatch(w io.Writer, x extract.Extractor) error {
	_, err := PatchGrid(x).WriteTo(w)
	return err
}

func WriteIntersections(w io.Writer, gg *glue.GridGlue, inside merging.Side) error {
	_, err := IntersectionGrid(gg, inside).WriteTo(w)
	return err
}

// WriteFile writes a grid to a new file
func WriteFile(filename string, g *Grid) (err error) {
	var file *os.File
	if file, err = os.Create(filename); err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = g.WriteTo(file)
	return err
}
