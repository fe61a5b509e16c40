// Package glue couples two extracted patches. A GridGlue extracts both
// sides, merges them and keeps the resulting intersections as an indexed,
// immutable set of records that can be iterated from either side and used
// to move data between the sides.
package glue

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/gridglue/comm"
	"github.com/notargets/gridglue/extract"
	"github.com/notargets/gridglue/geometry"
	"github.com/notargets/gridglue/logger"
	"github.com/notargets/gridglue/merging"
)

var (
	ErrMissingPatch  = errors.New("glue: missing patch")
	ErrMissingMerger = errors.New("glue: missing merger")
)

// Transformation moves the vertices of a patch before merging. Geometries
// reported by intersections always use the untransformed coordinates.
type Transformation interface {
	Apply(x []float64) []float64
}

type TransformFunc func(x []float64) []float64

func (f TransformFunc) Apply(x []float64) []float64 { return f(x) }

// Shift translates by v
func Shift(v ...float64) Transformation {
	return TransformFunc(func(x []float64) []float64 {
		y := append([]float64{}, x...)
		floats.Add(y, v)
		return y
	})
}

// Patch is one side of a coupling
type Patch struct {
	Extractor extract.Extractor
	Transform Transformation
}

func (p *Patch) flatten() merging.Patch {
	coords := p.Extractor.Coords()
	if p.Transform != nil {
		for i, x := range coords {
			coords[i] = p.Transform.Apply(x)
		}
	}
	return merging.Patch{
		Coords: coords,
		Faces:  p.Extractor.Faces(),
		Types:  p.Extractor.Types(),
	}
}

type Option func(g *GridGlue)

// WithCommunicator runs the coupling across the ranks of c. Every rank must
// construct its own GridGlue with its local patches and call Build and
// Communicate collectively.
func WithCommunicator(c comm.Communicator) Option {
	return func(g *GridGlue) { g.comm = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(g *GridGlue) { g.log = l }
}

type GridGlue struct {
	patches [2]*Patch
	merger  merging.Merger
	comm    comm.Communicator
	log     *zap.Logger

	mu    sync.Mutex // serializes Build
	state atomic.Pointer[state]
}

// New couples domain (side 0) to target (side 1). Nothing is computed until
// Build is called.
func New(domain, target *Patch, m merging.Merger, opts ...Option) *GridGlue {
	g := &GridGlue{
		patches: [2]*Patch{domain, target},
		merger:  m,
		comm:    comm.Self(),
		log:     logger.Named("glue"),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.state.Store(&state{patches: g.patches})
	return g
}

func (g *GridGlue) Communicator() comm.Communicator { return g.comm }

// Patch returns the patch of one side
func (g *GridGlue) Patch(side merging.Side) *Patch { return g.patches[side] }

// Build extracts both patches, merges every rank pair involving this rank
// and publishes the new intersection set. On error the previous set stays
// in place.
func (g *GridGlue) Build() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, s := range merging.Sides {
		if g.patches[s] == nil || g.patches[s].Extractor == nil {
			return fmt.Errorf("%w: %s", ErrMissingPatch, s)
		}
	}
	if g.merger == nil {
		return ErrMissingMerger
	}

	var local [2]merging.Patch
	for _, s := range merging.Sides {
		if err := g.patches[s].Extractor.Update(); err != nil {
			return fmt.Errorf("glue: extracting %s: %w", s, err)
		}
		local[s] = g.patches[s].flatten()
	}
	g.log.Debug("extracted patches",
		zap.Int("rank", g.comm.Rank()),
		zap.Int("faces0", local[merging.Side0].Len()),
		zap.Int("faces1", local[merging.Side1].Len()),
	)

	all, err := g.gatherPatches(local)
	if err != nil {
		return err
	}

	var (
		me = g.comm.Rank()
		st = &state{
			patches:  g.patches,
			faces:    [2]int{local[merging.Side0].Len(), local[merging.Side1].Len()},
			dim:      min(g.patches[0].Extractor.Dim(), g.patches[1].Extractor.Dim()),
			worldDim: g.patches[0].Extractor.WorldDim(),
			index:    make(map[GlobalID]int),
		}
	)
	for p := range all {
		for q := range all {
			if p != me && q != me {
				continue
			}
			g.merger.Clear()
			if err = g.merger.Build(all[p][merging.Side0], all[q][merging.Side1]); err != nil {
				return fmt.Errorf("glue: merging ranks %d and %d: %w", p, q, err)
			}
			for k := 0; k < g.merger.NSimplices(); k++ {
				st.add(g.newRecord(st, GlobalID{Rank0: p, Rank1: q, K: k}, [2]bool{p == me, q == me}))
			}
		}
	}
	g.merger.Clear()
	g.state.Store(st)
	g.log.Info("built coupling",
		zap.Int("rank", me),
		zap.Int("intersections", len(st.records)),
		zap.Int("owned", lo.CountBy(st.records, func(r Record) bool { return r.Present(merging.Side0) })),
	)
	return nil
}

// gatherPatches returns the patches of every rank, indexed by rank
func (g *GridGlue) gatherPatches(local [2]merging.Patch) ([][2]merging.Patch, error) {
	if g.comm.Size() == 1 {
		return [][2]merging.Patch{local}, nil
	}
	msgs, err := g.comm.AllGather(comm.TagPatches, encodePatches(local))
	if err != nil {
		return nil, fmt.Errorf("glue: gathering patches: %w", err)
	}
	all := make([][2]merging.Patch, len(msgs))
	for r, msg := range msgs {
		if all[r], err = decodePatches(msg); err != nil {
			return nil, fmt.Errorf("glue: patches of rank %d: %w", r, err)
		}
	}
	return all, nil
}

// newRecord materializes intersection id.K of the merger. Geometries are
// only filled in for the sides owned by this rank.
func (g *GridGlue) newRecord(st *state, id GlobalID, present [2]bool) Record {
	var (
		rec = Record{ID: id}
		nc  = st.dim + 1
	)
	for _, s := range merging.Sides {
		sr := &rec.sides[s]
		sr.present = present[s]
		sr.parent = g.merger.Parent(s, id.K)
		if !sr.present {
			continue
		}
		var (
			x       = g.patches[s].Extractor
			view    = x.View()
			gl      = x.GeometryLocal(sr.parent)
			element = x.Element(sr.parent)
			et      = view.ElementType(element)
			corners = extract.ElementCorners(view, element)
		)
		sr.element = element
		sr.face = x.IndexInInside(sr.parent)
		sr.local = make([][]float64, nc)
		sr.global = make([][]float64, nc)
		for c := 0; c < nc; c++ {
			sr.local[c] = gl.Global(g.merger.ParentLocal(s, id.K, c))
			sr.global[c] = et.Global(corners, sr.local[c])
		}
		sr.sign = 1
		if x.Codim() == 1 && st.dim == st.worldDim-1 {
			var (
				is  = geometry.NewSimplex(sr.global)
				out = is.Center()
			)
			floats.Sub(out, et.Global(corners, et.Center()))
			if floats.Dot(is.Normal(), out) < 0 {
				sr.sign = -1
			}
		}
	}
	return rec
}

// Size is the number of intersections known to this rank
func (g *GridGlue) Size() int { return len(g.state.Load().records) }

// Dim is the dimension of the intersection simplices
func (g *GridGlue) Dim() int { return g.state.Load().dim }

// Intersection returns intersection i viewed from side 0. It panics unless
// 0 <= i < Size().
func (g *GridGlue) Intersection(i int) Intersection {
	st := g.state.Load()
	return Intersection{st: st, rec: st.record(i), inside: merging.Side0}
}

// IndexOf finds the local index of a global intersection id
func (g *GridGlue) IndexOf(id GlobalID) (int, bool) {
	i, ok := g.state.Load().index[id]
	return i, ok
}
