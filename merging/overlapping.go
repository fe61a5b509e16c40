package merging

import (
	"fmt"
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"go.uber.org/zap"

	"github.com/notargets/gridglue/geometry"
	"github.com/notargets/gridglue/logger"
)

const DefaultTolerance = 1e-8

// OverlappingMerge intersects simplices that share an affine hull: segments
// on a common line, triangles in a common plane, or a lower dimensional
// simplex lying inside the hull of a higher dimensional one. Candidate pairs
// come from an R-tree of side 1 bounding boxes. Supported dimension pairs
// are (1,1), (2,2), (1,2), (1,3), (2,3) and their mirrors.
type OverlappingMerge struct {
	// Tolerance is relative to the diameter of the simplices compared
	Tolerance float64
	Log       *zap.Logger

	intersections []intersection
	candidates    int
}

type intersection struct {
	parents [2]int
	local   [2][][]float64
}

func NewOverlappingMerge(tolerance float64) *OverlappingMerge {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &OverlappingMerge{Tolerance: tolerance}
}

func (m *OverlappingMerge) log() *zap.Logger {
	if m.Log != nil {
		return m.Log
	}
	return logger.Named("merge")
}

func (m *OverlappingMerge) Clear() {
	m.intersections = nil
	m.candidates = 0
}

func (m *OverlappingMerge) NSimplices() int { return len(m.intersections) }

// Candidates is the number of bounding box hits examined by the last Build
func (m *OverlappingMerge) Candidates() int { return m.candidates }

func (m *OverlappingMerge) at(i int) *intersection {
	if i < 0 || i >= len(m.intersections) {
		panic(fmt.Sprintf("merging: intersection %d out of range [0,%d)", i, len(m.intersections)))
	}
	return &m.intersections[i]
}

func (m *OverlappingMerge) Parent(side Side, i int) int {
	return m.at(i).parents[side]
}

func (m *OverlappingMerge) ParentLocal(side Side, i, corner int) []float64 {
	return append([]float64{}, m.at(i).local[side][corner]...)
}

func supported(d0, d1 int) bool {
	lo, hi := min(d0, d1), max(d0, d1)
	return lo >= 1 && lo <= 2 && hi <= 3 && !(lo == 3 && hi == 3)
}

// Build computes all intersections of p0 and p1
func (m *OverlappingMerge) Build(p0, p1 Patch) error {
	m.Clear()
	for _, p := range []Patch{p0, p1} {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	if p0.Len() == 0 || p1.Len() == 0 {
		return nil
	}
	wd := p0.WorldDim()
	if wd != p1.WorldDim() {
		return fmt.Errorf("merging: world dimensions %d and %d differ", wd, p1.WorldDim())
	}
	for _, t0 := range distinct(p0.Types) {
		for _, t1 := range distinct(p1.Types) {
			if !supported(t0.Dim(), t1.Dim()) {
				return fmt.Errorf("%w: overlap of %s and %s", ErrNotImplemented, t0, t1)
			}
		}
	}

	var (
		s0, s1 = simplices(p0), simplices(p1)
		scale  = math.Max(maxDiameter(s0), maxDiameter(s1))
		pad    = m.Tolerance * (1 + scale)
		tree   = rtreego.NewTree(wd, 25, 50)
	)
	for j, s := range s1 {
		tree.Insert(&boxed{idx: j, rect: boundingRect(s, pad)})
	}
	for i, si := range s0 {
		hits := tree.SearchIntersect(boundingRect(si, pad))
		cands := make([]int, len(hits))
		for k, h := range hits {
			cands[k] = h.(*boxed).idx
		}
		sort.Ints(cands)
		m.candidates += len(cands)
		for _, j := range cands {
			for _, local := range m.intersect(si, s1[j]) {
				m.intersections = append(m.intersections, intersection{
					parents: [2]int{i, j},
					local:   local,
				})
			}
		}
	}
	m.log().Debug("merged patches",
		zap.Int("simplices0", len(s0)),
		zap.Int("simplices1", len(s1)),
		zap.Int("candidates", m.candidates),
		zap.Int("intersections", len(m.intersections)),
	)
	return nil
}

// intersect returns the overlap pieces of two simplices as corner lists in
// the local coordinates of each side. The lower dimensional simplex is
// clipped against the other; on a tie side 1 is clipped against side 0.
func (m *OverlappingMerge) intersect(a, b *geometry.Simplex) (pieces [][2][][]float64) {
	var (
		s        = [2]*geometry.Simplex{a, b}
		sub, cl  = Side1, Side0
		scale    = math.Max(a.Diameter(), b.Diameter())
		eps      = m.Tolerance * scale
		localEps = m.Tolerance
	)
	if a.Dim() < b.Dim() {
		sub, cl = Side0, Side1
	}
	if s[0].Degenerate() || s[1].Degenerate() {
		return nil
	}
	var (
		subject = s[sub]
		clip    = s[cl]
		dim     = subject.Dim()
		pts     = make([][]float64, dim+1)
	)
	for k, x := range subject.Corners() {
		if clip.Residual(x) > eps {
			return nil
		}
		pts[k] = clip.Local(x)
	}

	var polys [][][]float64
	switch dim {
	case 1:
		if p, q, ok := clipSegment(pts[0], pts[1], clip.Dim(), localEps); ok {
			polys = append(polys, [][]float64{p, q})
		}
	case 2:
		poly := dedupe(clipPolygon(pts, clip.Dim(), localEps), localEps)
		for k := 1; k+1 < len(poly); k++ {
			polys = append(polys, [][]float64{poly[0], poly[k], poly[k+1]})
		}
	default:
		return nil
	}

	// orientation follows side 0 when it has the intersection dimension
	ref := Side0
	if s[0].Dim() != dim {
		ref = Side1
	}
	threshold := m.Tolerance * math.Pow(scale, float64(dim))
	for _, poly := range polys {
		var (
			world = make([][]float64, len(poly))
			local [2][][]float64
		)
		local[cl] = poly
		local[sub] = make([][]float64, len(poly))
		for k, p := range poly {
			world[k] = clip.Global(p)
			local[sub][k] = subject.Local(world[k])
		}
		if geometry.NewSimplex(world).Volume() <= threshold {
			continue
		}
		if orientation(local[ref]) < 0 {
			n := len(poly)
			for _, side := range Sides {
				local[side][n-2], local[side][n-1] = local[side][n-1], local[side][n-2]
			}
		}
		pieces = append(pieces, local)
	}
	return pieces
}

// orientation is the signed measure of a simplex given in coordinates of its
// own dimension
func orientation(corners [][]float64) float64 {
	switch len(corners) {
	case 2:
		return corners[1][0] - corners[0][0]
	case 3:
		a, b, c := corners[0], corners[1], corners[2]
		return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
	}
	return 1
}

type boxed struct {
	idx  int
	rect rtreego.Rect
}

func (b *boxed) Bounds() rtreego.Rect { return b.rect }

func boundingRect(s *geometry.Simplex, pad float64) rtreego.Rect {
	var (
		corners = s.Corners()
		lo      = append([]float64{}, corners[0]...)
		lengths = make([]float64, len(lo))
	)
	hi := append([]float64{}, corners[0]...)
	for _, c := range corners[1:] {
		for d := range c {
			lo[d] = math.Min(lo[d], c[d])
			hi[d] = math.Max(hi[d], c[d])
		}
	}
	for d := range lo {
		lo[d] -= pad
		lengths[d] = hi[d] - lo[d] + pad
	}
	r, err := rtreego.NewRect(rtreego.Point(lo), lengths)
	if err != nil {
		panic(fmt.Sprintf("merging: bounding box: %v", err))
	}
	return r
}

func simplices(p Patch) []*geometry.Simplex {
	s := make([]*geometry.Simplex, p.Len())
	for i := range s {
		s[i] = p.Simplex(i)
	}
	return s
}

func maxDiameter(s []*geometry.Simplex) (d float64) {
	for _, x := range s {
		d = math.Max(d, x.Diameter())
	}
	return
}

func distinct(types []geometry.Type) (out []geometry.Type) {
	seen := make(map[geometry.Type]bool)
	for _, t := range types {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return
}
