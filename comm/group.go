package comm

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
)

type message struct {
	tag  Tag
	data []byte
}

// queue is an unbounded FIFO from one rank to another
type queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	msgs   []message
	closed bool
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *queue) post(m message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	q.msgs = append(q.msgs, m)
	q.cond.Signal()
	return nil
}

// take waits for the head message and removes it if it carries tag. A head
// with another tag stays queued and is returned with ErrTagMismatch.
func (q *queue) take(tag Tag) (message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.msgs) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.msgs) == 0 {
		return message{}, ErrClosed
	}
	m := q.msgs[0]
	if m.tag != tag {
		return m, ErrTagMismatch
	}
	q.msgs = q.msgs[1:]
	return m, nil
}

func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Group is a set of ranks living in one process, one goroutine per rank
type Group struct {
	np     int
	queues [][]*queue // [src][dest]
}

func NewGroup(np int) *Group {
	if np < 1 {
		panic(fmt.Sprintf("comm: group of %d ranks", np))
	}
	g := &Group{np: np, queues: make([][]*queue, np)}
	for src := range g.queues {
		g.queues[src] = make([]*queue, np)
		for dest := range g.queues[src] {
			g.queues[src][dest] = newQueue()
		}
	}
	return g
}

func (g *Group) Size() int { return g.np }

// Comm returns the communicator of one rank
func (g *Group) Comm(rank int) Communicator {
	if rank < 0 || rank >= g.np {
		panic(fmt.Sprintf("comm: rank %d outside group of %d", rank, g.np))
	}
	return &endpoint{rank: rank, g: g}
}

// Close wakes every blocked receiver with ErrClosed
func (g *Group) Close() {
	for _, row := range g.queues {
		for _, q := range row {
			q.close()
		}
	}
}

// Run calls fn once per rank, each on its own goroutine, and returns the
// combined errors. A failing rank closes the group so peers blocked on it
// return instead of hanging.
func (g *Group) Run(fn func(c Communicator) error) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	for rank := 0; rank < g.np; rank++ {
		wg.Add(1)
		go func(c Communicator) {
			defer wg.Done()
			if err := fn(c); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("rank %d: %w", c.Rank(), err))
				mu.Unlock()
				g.Close()
			}
		}(g.Comm(rank))
	}
	wg.Wait()
	return errs
}

type endpoint struct {
	rank int
	g    *Group
}

func (e *endpoint) Rank() int { return e.rank }

func (e *endpoint) Size() int { return e.g.np }

func (e *endpoint) checkRank(r int) error {
	if r < 0 || r >= e.g.np {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrRank, r, e.g.np)
	}
	return nil
}

func (e *endpoint) Send(dest int, tag Tag, msg []byte) error {
	if err := e.checkRank(dest); err != nil {
		return err
	}
	return e.g.queues[e.rank][dest].post(message{
		tag:  tag,
		data: append([]byte{}, msg...),
	})
}

func (e *endpoint) Recv(src int, tag Tag) ([]byte, error) {
	if err := e.checkRank(src); err != nil {
		return nil, err
	}
	m, err := e.g.queues[src][e.rank].take(tag)
	switch {
	case errors.Is(err, ErrTagMismatch):
		return nil, fmt.Errorf("%w: rank %d got tag %d from %d, want %d",
			err, e.rank, m.tag, src, tag)
	case err != nil:
		return nil, err
	}
	return m.data, nil
}

func (e *endpoint) AllGather(tag Tag, msg []byte) ([][]byte, error) {
	var (
		out  = make([][]byte, e.g.np)
		errs error
	)
	for dest := 0; dest < e.g.np; dest++ {
		if dest != e.rank {
			errs = multierr.Append(errs, e.Send(dest, tag, msg))
		}
	}
	if errs != nil {
		return nil, errs
	}
	out[e.rank] = append([]byte{}, msg...)
	for src := 0; src < e.g.np; src++ {
		if src == e.rank {
			continue
		}
		data, err := e.Recv(src, tag)
		if err != nil {
			return nil, err
		}
		out[src] = data
	}
	return out, nil
}
