package glue

import (
	"cmp"
	"fmt"

	"github.com/notargets/gridglue/merging"
)

// GlobalID names an intersection identically on every rank: the ranks that
// own its side 0 and side 1 parents, and its position in the merge of that
// rank pair.
type GlobalID struct {
	Rank0, Rank1 int
	K            int
}

// Rank is the rank owning the given side
func (id GlobalID) Rank(s merging.Side) int {
	if s == merging.Side1 {
		return id.Rank1
	}
	return id.Rank0
}

func (id GlobalID) Compare(o GlobalID) int {
	if c := cmp.Compare(id.Rank0, o.Rank0); c != 0 {
		return c
	}
	if c := cmp.Compare(id.Rank1, o.Rank1); c != 0 {
		return c
	}
	return cmp.Compare(id.K, o.K)
}

func (id GlobalID) String() string {
	return fmt.Sprintf("(%d,%d):%d", id.Rank0, id.Rank1, id.K)
}

type sideRecord struct {
	present bool
	parent  int // simplex index in the patch of the owning rank
	element int // view element
	face    int
	local   [][]float64 // corners in element reference coordinates
	global  [][]float64 // corners in world coordinates
	sign    float64     // orientation of the outer normal
}

// Record is one intersection. It never changes after Build publishes it.
type Record struct {
	Index int
	ID    GlobalID
	sides [2]sideRecord
}

// Present reports whether the parent on side s is owned by this rank
func (r *Record) Present(s merging.Side) bool { return r.sides[s].present }

type state struct {
	patches  [2]*Patch
	faces    [2]int // local simplex count of each patch at build time
	dim      int
	worldDim int
	records  []Record
	index    map[GlobalID]int
}

func (st *state) add(rec Record) {
	rec.Index = len(st.records)
	st.index[rec.ID] = rec.Index
	st.records = append(st.records, rec)
}

func (st *state) record(i int) *Record {
	if i < 0 || i >= len(st.records) {
		panic(fmt.Sprintf("glue: intersection %d out of range [0,%d)", i, len(st.records)))
	}
	return &st.records[i]
}
