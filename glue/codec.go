package glue

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/notargets/gridglue/geometry"
	"github.com/notargets/gridglue/merging"
)

var errShortMessage = errors.New("short message")

// encodePatches flattens both patches of a rank into little endian words:
// per side the world dimension, vertex count, coordinates, face count and
// per face its type, corner count and corners.
func encodePatches(p [2]merging.Patch) []byte {
	var buf []byte
	put := func(v int) { buf = binary.LittleEndian.AppendUint64(buf, uint64(int64(v))) }
	for _, s := range merging.Sides {
		wd := p[s].WorldDim()
		put(wd)
		put(len(p[s].Coords))
		for _, x := range p[s].Coords {
			for _, v := range x {
				buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
			}
		}
		put(len(p[s].Faces))
		for i, f := range p[s].Faces {
			put(int(p[s].Types[i]))
			put(len(f))
			for _, c := range f {
				put(c)
			}
		}
	}
	return buf
}

type reader struct {
	buf []byte
	err error
}

func (r *reader) word() uint64 {
	if r.err != nil {
		return 0
	}
	if len(r.buf) < 8 {
		r.err = errShortMessage
		return 0
	}
	v := binary.LittleEndian.Uint64(r.buf)
	r.buf = r.buf[8:]
	return v
}

func (r *reader) int() int { return int(int64(r.word())) }

// count reads a length and checks the remaining message could hold it
func (r *reader) count(wordsEach int) int {
	n := r.int()
	if r.err == nil && (n < 0 || n*max(wordsEach, 1) > len(r.buf)/8) {
		r.err = fmt.Errorf("%w: count %d", errShortMessage, n)
	}
	if r.err != nil {
		return 0
	}
	return n
}

func decodePatches(msg []byte) (p [2]merging.Patch, err error) {
	r := &reader{buf: msg}
	for _, s := range merging.Sides {
		wd := r.count(0)
		nv := r.count(wd)
		p[s].Coords = make([][]float64, nv)
		for i := range p[s].Coords {
			x := make([]float64, wd)
			for d := range x {
				x[d] = math.Float64frombits(r.word())
			}
			p[s].Coords[i] = x
		}
		nf := r.count(2)
		p[s].Faces = make([][]int, nf)
		p[s].Types = make([]geometry.Type, nf)
		for i := 0; i < nf; i++ {
			p[s].Types[i] = geometry.Type(r.int())
			f := make([]int, r.count(1))
			for k := range f {
				f[k] = r.int()
			}
			p[s].Faces[i] = f
		}
	}
	if r.err == nil && len(r.buf) != 0 {
		r.err = fmt.Errorf("%d trailing bytes", len(r.buf))
	}
	return p, r.err
}
