package loopz

import "time"

// timeoutMark is the resume value the Wait schedules for itself; seeing it
// back distinguishes the timer wakeup from an I/O wakeup.
type timeoutMark struct{}

// Wait pauses the calling task until a message arrives on an interface, or
// until an optional timeout elapses, whichever comes first. The resumption
// value is whatever the driver supplied for the interface; expiry delivers
// ErrTimeout as an exception instead.
//
// Wait also implements the task contract. Two wakeup sources exist while a
// timeout is set, and whichever fires must cancel the other before the
// caller sees a result — so Handle parks the Wait itself in the paused set
// and the timed queue, not the caller. When the scheduler resumes the Wait,
// it discards the losing wakeup source, steps the real caller with the
// resolved value, and yields NoReschedule so the scheduler never enqueues
// the Wait again.
//
// A Wait is single-shot: create a fresh one for every await.
type Wait struct {
	callback   Task
	s          *Scheduler
	iface      Iface
	timeout    time.Duration
	hasTimeout bool
}

// NewWait creates a wait syscall with no timeout.
func NewWait(iface Iface) *Wait {
	return &Wait{iface: iface}
}

// NewWaitTimeout creates a wait syscall that fails with ErrTimeout if the
// interface stays quiet for the given duration.
func NewWaitTimeout(iface Iface, timeout time.Duration) *Wait {
	return &Wait{iface: iface, timeout: timeout, hasTimeout: true}
}

// Handle implements Syscall. The callback is installed before any table
// insertion, so a resumption can never find it missing.
func (w *Wait) Handle(s *Scheduler, task Task) {
	w.s = s
	w.callback = task
	s.Pause(w, w.iface)
	if w.hasTimeout {
		s.mustScheduleAt(w, timeoutMark{}, TicksAdd(s.Now(), durationTicks(w.timeout)))
	}
}

// Resume implements Task: the scheduler woke the Wait, either from the
// paused set (value is the I/O event) or from the timed queue (value is the
// timeout mark). Clean up the other wakeup source, then hand control to the
// caller.
func (w *Wait) Resume(s *Scheduler, value any) Step {
	if _, expired := value.(timeoutMark); expired {
		s.discardPaused(w, w.iface)
		return w.finish(s, ErrTimeout)
	}
	if w.hasTimeout {
		s.queue.Discard(w)
	}
	return w.finish(s, value)
}

// ResumeErr implements Task. An exception can only reach the Wait from the
// driver or from an external close; either way both wakeup sources are torn
// down and the exception flows to the caller.
func (w *Wait) ResumeErr(s *Scheduler, err error) Step {
	w.cancel(s)
	return w.finish(s, err)
}

func (w *Wait) finish(s *Scheduler, value any) Step {
	s.step(w.callback, value)
	return Yielded(NoReschedule)
}

// Close implements Task. The scheduler's Close already removed the Wait
// from both tables before calling it; nothing is held beyond them.
func (w *Wait) Close() {}

// cancel removes the Wait's entries from both tables. Runs when the caller
// is closed while suspended on this Wait.
func (w *Wait) cancel(s *Scheduler) {
	s.queue.Discard(w)
	s.discardPaused(w, w.iface)
}
