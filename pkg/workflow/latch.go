package workflow

import (
	"errors"
	"sync/atomic"
)

var (
	// ErrOperationInFlight rejects a duplicate mutating call while one
	// is already running (double click, overlapping navigation).
	ErrOperationInFlight = errors.New("session operation already in flight")

	// ErrNoActiveSession means the operation needs an active session.
	ErrNoActiveSession = errors.New("no active session")

	// ErrSessionConflict means an explicit start hit an unresolved
	// active session; the caller must resume or replace.
	ErrSessionConflict = errors.New("an active session exists; resume it or replace it")
)

// opLatch serializes one operation class. Create/replace/end share the
// mutation latch; chat sends have their own, keyed implicitly by the
// single active session. Status derivation never touches a latch so
// reads stay available while a mutation is pending.
type opLatch struct {
	busy atomic.Bool
}

func (l *opLatch) tryAcquire() bool {
	return l.busy.CompareAndSwap(false, true)
}

func (l *opLatch) release() {
	l.busy.Store(false)
}
