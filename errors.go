package loopz

import "errors"

// Sentinel errors surfaced by the scheduler and its syscalls.
var (
	// ErrTimeout is delivered as an exception to the caller of a
	// Wait-with-timeout when the timer expires before the I/O event.
	ErrTimeout = errors.New("loopz: wait timed out")

	// ErrCanceled is the cancellation sentinel. Close delivers it to the
	// task being torn down and to its finalizer. Tasks may observe it for
	// cleanup but should let it propagate.
	ErrCanceled = errors.New("loopz: task canceled")

	// ErrQueueFull is returned by Schedule when the bounded timed queue is
	// at capacity. An overflow on an internal reschedule (a wait timeout, a
	// race finish, a channel wakeup) is fatal and ends Run with this error.
	ErrQueueFull = errors.New("loopz: timed queue full")

	// ErrBadYield is fatal: a task suspended without a syscall. This is a
	// programming error in the task, not a runtime condition.
	ErrBadYield = errors.New("loopz: task yielded without a syscall")
)
