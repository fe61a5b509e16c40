// Package merging computes the overlap of two flat simplicial patches as a
// list of intersection simplices, each tagged with its parent simplex and
// local coordinates on both sides.
package merging

import (
	"errors"
	"fmt"

	"github.com/notargets/gridglue/geometry"
)

// ErrNotImplemented is returned for patch dimension combinations a merger
// does not handle, so missing support is never mistaken for a disjoint
// coupling
var ErrNotImplemented = errors.New("merging: not implemented")

// Side selects one of the two coupled patches
type Side int

const (
	Side0 Side = iota
	Side1
)

func (s Side) Other() Side { return 1 - s }

func (s Side) String() string {
	switch s {
	case Side0:
		return "Side0"
	case Side1:
		return "Side1"
	}
	return fmt.Sprintf("Side(%d)", int(s))
}

// Sides lists both sides in order
var Sides = [2]Side{Side0, Side1}

// Patch is a flat simplicial mesh: coordinates, simplex corner lists and
// simplex types
type Patch struct {
	Coords [][]float64
	Faces  [][]int
	Types  []geometry.Type
}

func (p Patch) Len() int { return len(p.Faces) }

// WorldDim is the coordinate dimension, 0 for a patch without vertices
func (p Patch) WorldDim() int {
	if len(p.Coords) == 0 {
		return 0
	}
	return len(p.Coords[0])
}

// Simplex returns the world geometry of simplex i
func (p Patch) Simplex(i int) *geometry.Simplex {
	corners := make([][]float64, len(p.Faces[i]))
	for k, c := range p.Faces[i] {
		corners[k] = p.Coords[c]
	}
	return geometry.NewSimplex(corners)
}

// Validate checks the patch is internally consistent
func (p Patch) Validate() error {
	if len(p.Types) != len(p.Faces) {
		return fmt.Errorf("merging: %d types for %d faces", len(p.Types), len(p.Faces))
	}
	wd := p.WorldDim()
	for i, x := range p.Coords {
		if len(x) != wd {
			return fmt.Errorf("merging: vertex %d has dimension %d, want %d", i, len(x), wd)
		}
	}
	for i, f := range p.Faces {
		if !p.Types[i].IsSimplex() {
			return fmt.Errorf("%w: face %d is a %s", ErrNotImplemented, i, p.Types[i])
		}
		if len(f) != p.Types[i].NumCorners() {
			return fmt.Errorf("merging: face %d has %d corners for a %s", i, len(f), p.Types[i])
		}
		for _, c := range f {
			if c < 0 || c >= len(p.Coords) {
				return fmt.Errorf("merging: face %d references vertex %d of %d", i, c, len(p.Coords))
			}
		}
	}
	return nil
}

// Merger computes the intersections of two patches. Build may be called any
// number of times; Clear returns the merger to its initial state.
type Merger interface {
	Build(p0, p1 Patch) error
	// NSimplices is the number of intersections of the last Build
	NSimplices() int
	// Parent is the simplex of the given side containing intersection i
	Parent(side Side, i int) int
	// ParentLocal is the position of corner c of intersection i in the
	// reference coordinates of its parent simplex on the given side
	ParentLocal(side Side, i, corner int) []float64
	Clear()
}
