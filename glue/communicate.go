package glue

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/notargets/gridglue/comm"
	"github.com/notargets/gridglue/merging"
)

var (
	ErrSizeMismatch = errors.New("glue: payload size mismatch")
	// ErrPeerAborted is reported for a peer that failed before sending
	ErrPeerAborted = errors.New("glue: peer aborted the exchange")
)

// Direction of a data exchange
type Direction int

const (
	Forward  Direction = iota // domain to target
	Backward                  // target to domain
)

func (d Direction) source() merging.Side {
	if d == Backward {
		return merging.Side1
	}
	return merging.Side0
}

func (d Direction) String() string {
	if d == Backward {
		return "Backward"
	}
	return "Forward"
}

// Buffer carries the payload of one exchange. Gather writes, Scatter reads.
type Buffer[T any] struct {
	data []T
	pos  int
}

func (b *Buffer[T]) Write(v ...T) { b.data = append(b.data, v...) }

func (b *Buffer[T]) Read() T {
	if b.pos >= len(b.data) {
		panic(fmt.Sprintf("glue: read past the end of a %d item buffer", len(b.data)))
	}
	v := b.data[b.pos]
	b.pos++
	return v
}

func (b *Buffer[T]) Len() int { return len(b.data) }

// DataHandle packs and unpacks the payload of each intersection. Gather sees
// the intersection with the source side inside and must write exactly
// Size(is) items. Scatter sees it with the destination side inside and may
// read n items.
type DataHandle[T any] interface {
	Size(is Intersection) int
	Gather(buf *Buffer[T], element int, is Intersection)
	Scatter(buf *Buffer[T], element int, is Intersection, n int)
}

// Communicate moves payloads from the source side to the destination side
// of every intersection. It is collective: on several ranks every rank must
// call it, and it blocks until all its peers have answered.
func Communicate[T any](g *GridGlue, h DataHandle[T], dir Direction) error {
	var (
		st    = g.state.Load()
		src   = dir.source()
		dst   = src.Other()
		me    = g.comm.Rank()
		np    = g.comm.Size()
		sends = make([][]*Record, np)
		recvs = make([][]*Record, np)
	)
	for i := range st.records {
		rec := &st.records[i]
		if rec.sides[src].present {
			peer := rec.ID.Rank(dst)
			sends[peer] = append(sends[peer], rec)
		}
		if rec.sides[dst].present {
			peer := rec.ID.Rank(src)
			recvs[peer] = append(recvs[peer], rec)
		}
	}
	byID := func(a, b *Record) int { return a.ID.Compare(b.ID) }
	for peer := range sends {
		slices.SortFunc(sends[peer], byID)
		slices.SortFunc(recvs[peer], byID)
	}

	err := exchangeLocal(st, h, src, sends[me], recvs[me])
	if np > 1 {
		err = multierr.Append(err, exchangeRemote(g.comm, st, h, src, sends, recvs, err != nil))
	}
	if err != nil {
		g.log.Error("exchange failed",
			zap.Int("rank", me),
			zap.Stringer("direction", dir),
			zap.Error(err),
		)
	}
	return err
}

func (st *state) view(rec *Record, inside merging.Side) Intersection {
	return Intersection{st: st, rec: rec, inside: inside}
}

// gather packs the payloads of recs, returning the item count of each
func gather[T any](st *state, h DataHandle[T], src merging.Side, recs []*Record) (*Buffer[T], []int, error) {
	var (
		sizes = make([]int, len(recs))
		total int
	)
	for i, rec := range recs {
		sizes[i] = h.Size(st.view(rec, src))
		total += sizes[i]
	}
	buf := &Buffer[T]{data: make([]T, 0, total)}
	for i, rec := range recs {
		if sizes[i] == 0 {
			continue
		}
		var (
			is    = st.view(rec, src)
			start = buf.Len()
		)
		h.Gather(buf, is.Inside(), is)
		if n := buf.Len() - start; n != sizes[i] {
			return nil, nil, fmt.Errorf("%w: intersection %s gathered %d items, size %d",
				ErrSizeMismatch, rec.ID, n, sizes[i])
		}
	}
	return buf, sizes, nil
}

// scatter unpacks data into recs, counts[i] items each
func scatter[T any](st *state, h DataHandle[T], dst merging.Side, recs []*Record, counts []int, data []T) {
	var (
		buf    = &Buffer[T]{data: data}
		offset int
	)
	for i, rec := range recs {
		if counts[i] == 0 {
			continue
		}
		is := st.view(rec, dst)
		buf.pos = offset
		h.Scatter(buf, is.Inside(), is, counts[i])
		offset += counts[i]
	}
}

func exchangeLocal[T any](st *state, h DataHandle[T], src merging.Side, sends, recvs []*Record) error {
	if len(sends) != len(recvs) {
		return fmt.Errorf("%w: %d local sources for %d local destinations",
			ErrSizeMismatch, len(sends), len(recvs))
	}
	buf, sizes, err := gather(st, h, src, sends)
	if err != nil {
		return err
	}
	scatter(st, h, src.Other(), recvs, sizes, slices.Clone(buf.data))
	return nil
}

// abortMessage is a record count of -1
var abortMessage = binary.LittleEndian.AppendUint64(nil, ^uint64(0))

// exchangeRemote sends to every peer first, then drains every peer. A
// message is the record count, one int64 item count per record and the
// little endian payload. A rank that cannot pack, or whose local exchange
// already failed (abort), sends a count of -1 so its peers fail instead of
// waiting, and still drains its peers without scattering.
func exchangeRemote[T any](c comm.Communicator, st *state, h DataHandle[T], src merging.Side,
	sends, recvs [][]*Record, abort bool) error {
	var (
		zero     T
		itemSize = binary.Size(zero)
		errs     error
	)
	if itemSize < 0 {
		errs = fmt.Errorf("glue: payload type %T has no fixed size", zero)
		abort = true
	}
	for peer := range sends {
		if peer == c.Rank() {
			continue
		}
		msg := abortMessage
		if !abort {
			var err error
			if msg, err = pack(st, h, src, sends[peer]); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("packing for rank %d: %w", peer, err))
				msg = abortMessage
			}
		}
		if err := c.Send(peer, comm.TagExchange, msg); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("sending to rank %d: %w", peer, err))
		}
	}
	for peer := range recvs {
		if peer == c.Rank() {
			continue
		}
		msg, err := c.Recv(peer, comm.TagExchange)
		if err == nil && !abort {
			err = unpack(st, h, src.Other(), recvs[peer], msg, itemSize)
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("receiving from rank %d: %w", peer, err))
		}
	}
	return errs
}

func pack[T any](st *state, h DataHandle[T], src merging.Side, recs []*Record) ([]byte, error) {
	buf, sizes, err := gather(st, h, src, recs)
	if err != nil {
		return nil, err
	}
	msg := binary.LittleEndian.AppendUint64(nil, uint64(len(recs)))
	for _, n := range sizes {
		msg = binary.LittleEndian.AppendUint64(msg, uint64(n))
	}
	return binary.Append(msg, binary.LittleEndian, buf.data)
}

func unpack[T any](st *state, h DataHandle[T], dst merging.Side, recs []*Record, msg []byte, itemSize int) error {
	r := &reader{buf: msg}
	nrec := r.int()
	switch {
	case r.err != nil:
		return r.err
	case nrec < 0:
		return ErrPeerAborted
	case nrec != len(recs):
		return fmt.Errorf("%w: %d records sent, %d expected", ErrSizeMismatch, nrec, len(recs))
	}
	var (
		counts = make([]int, nrec)
		total  int
	)
	for i := range counts {
		if counts[i] = r.int(); counts[i] < 0 {
			return fmt.Errorf("%w: negative item count", ErrSizeMismatch)
		}
		total += counts[i]
	}
	if r.err != nil {
		return r.err
	}
	if len(r.buf) != total*itemSize {
		return fmt.Errorf("%w: %d payload bytes for %d items of %d bytes",
			ErrSizeMismatch, len(r.buf), total, itemSize)
	}
	data := make([]T, total)
	if total > 0 {
		if _, err := binary.Decode(r.buf, binary.LittleEndian, data); err != nil {
			return err
		}
	}
	scatter(st, h, dst, recs, counts, data)
	return nil
}
