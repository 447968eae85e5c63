package loopz

import "github.com/zoobzio/capitan"

// Race schedules its children in parallel and completes when the first of
// them does, resuming the caller with that child's result. Every other
// child is closed, which cancels its pending schedules and runs its cleanup
// before the caller sees the winner. A child that faults "wins" too: the
// caller is resumed with the fault as an exception.
//
// Children must satisfy the task contract; wrap a bare syscall with Once:
//
//	result, err := aw.Await(loopz.NewRace(
//	    waitForTouch,
//	    loopz.Once(loopz.NewSleep(animationFrame)),
//	))
//
// A timeout over any task is the canonical composition:
//
//	loopz.NewRace(task, loopz.Once(loopz.NewSleep(limit)))
//
// A Race is single-shot: create a fresh one for every await.
type Race struct {
	callback  Task
	s         *Scheduler
	children  []Task
	scheduled []Task
	finished  bool
}

// NewRace creates a race over the given children.
func NewRace(children ...Task) *Race {
	return &Race{children: children}
}

// Handle implements Syscall: schedule every child with the shared finish
// finalizer and remember the caller.
func (r *Race) Handle(s *Scheduler, task Task) {
	r.s = s
	r.callback = task
	r.scheduled = r.scheduled[:0]
	r.finished = false

	for _, child := range r.children {
		r.scheduled = append(r.scheduled, child)
		if err := s.ScheduleFinalized(child, nil, r.finish); err != nil {
			s.fail(err)
			return
		}
	}
}

// finish is the finalizer shared by all children. The first child through
// wins; the guard makes the cascade of finalizers from exit harmless.
func (r *Race) finish(child Task, result any) {
	if r.finished {
		return
	}
	r.finished = true
	r.exit(child)
	capitan.Info(r.s.ctx, SignalRaceWon, FieldTask.Field(taskLabel(child)))
	// result is an error when the child faulted or was closed, which
	// resumes the caller with an exception and unwinds it cleanly.
	r.s.mustSchedule(r.callback, result)
}

// exit closes every scheduled child except the given one.
func (r *Race) exit(except Task) {
	for _, task := range r.scheduled {
		if task != except {
			r.s.Close(task)
		}
	}
}

// cancel runs when the caller is closed while suspended on this race: every
// child is torn down, and the race is marked finished first so the cascade
// of child finalizers cannot reschedule the caller being closed.
func (r *Race) cancel(*Scheduler) {
	r.finished = true
	r.exit(nil)
}
