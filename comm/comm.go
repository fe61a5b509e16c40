// Package comm is the point-to-point and collective transport used to
// exchange patches and payloads between the processes of a coupling.
package comm

import (
	"errors"
)

// Tag separates message streams between the same pair of ranks
type Tag int

const (
	TagPatches Tag = iota + 1
	TagExchange
	TagUser
)

var (
	ErrTagMismatch = errors.New("comm: tag mismatch")
	ErrClosed      = errors.New("comm: group closed")
	ErrRank        = errors.New("comm: rank out of range")
)

// Communicator connects one rank to the other ranks of a group. Send never
// blocks. Recv blocks until a message from src arrives. Messages between a
// pair of ranks are delivered in order. A Recv whose tag does not match the
// next message fails with ErrTagMismatch and leaves that message queued.
type Communicator interface {
	Rank() int
	Size() int
	Send(dest int, tag Tag, msg []byte) error
	Recv(src int, tag Tag) ([]byte, error)
	// AllGather returns every rank's msg, indexed by rank
	AllGather(tag Tag, msg []byte) ([][]byte, error)
}

// Self is the communicator of a single process
func Self() Communicator {
	return NewGroup(1).Comm(0)
}
