package loopz

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Observability constants for the scheduler.
const (
	// Metrics.
	LoopScheduledTotal = metricz.Key("loop.scheduled.total")
	LoopStepsTotal     = metricz.Key("loop.steps.total")
	LoopFinishedTotal  = metricz.Key("loop.finished.total")
	LoopFaultedTotal   = metricz.Key("loop.faulted.total")
	LoopClosedTotal    = metricz.Key("loop.closed.total")
	LoopQueueDepth     = metricz.Key("loop.queue.depth")
	LoopPausedTasks    = metricz.Key("loop.paused.tasks")

	// Spans.
	LoopRunSpan  = tracez.Key("loop.run")
	LoopStepSpan = tracez.Key("loop.step")

	// Tags.
	LoopTagTask    = tracez.Tag("loop.task")
	LoopTagOutcome = tracez.Tag("loop.outcome")

	// Hook event keys.
	LoopEventTaskFinished = hookz.Key("loop.task.finished")
	LoopEventTaskFaulted  = hookz.Key("loop.task.faulted")
	LoopEventTaskClosed   = hookz.Key("loop.task.closed")
)

// TaskEvent describes a task leaving the scheduler. Emitted via hookz when
// a task terminates, faults, or is closed.
type TaskEvent struct {
	Timestamp time.Time
	Result    any
	Err       error
	Task      string
}

// defaultQueueCap bounds the timed queue the way the original firmware
// bounds it. Raise with WithQueueCap when a workload legitimately keeps
// more timed entries in flight.
const defaultQueueCap = 64

// maxPollDelay caps a poll when no deadline bounds it.
const maxPollDelay = time.Second

// Scheduler multiplexes tasks onto one thread of execution, interleaving
// them with I/O events and timed wakeups. It owns the three task tables:
// the timed queue, the paused table, and the finalizer table. All methods
// must be called from the loop thread; the scheduler takes no locks because
// cooperative single-threaded execution makes every table mutation atomic.
type Scheduler struct {
	clock      clockz.Clock
	poller     Poller
	ctx        context.Context
	epoch      time.Time
	queue      *timedQueue
	paused     map[Iface][]Task
	finalizers map[Task]Finalizer
	synthetic  []Event
	afterStep  func()
	fatal      error
	metrics    *metricz.Registry
	tracer     *tracez.Tracer
	hooks      *hookz.Hooks[TaskEvent]
}

// New creates a scheduler with an empty task set, the real clock, and a
// driverless poller that only waits out deadlines.
func New() *Scheduler {
	metrics := metricz.New()
	metrics.Counter(LoopScheduledTotal)
	metrics.Counter(LoopStepsTotal)
	metrics.Counter(LoopFinishedTotal)
	metrics.Counter(LoopFaultedTotal)
	metrics.Counter(LoopClosedTotal)
	metrics.Gauge(LoopQueueDepth)
	metrics.Gauge(LoopPausedTasks)

	s := &Scheduler{
		ctx:        context.Background(),
		queue:      newTimedQueue(defaultQueueCap),
		paused:     make(map[Iface][]Task),
		finalizers: make(map[Task]Finalizer),
		metrics:    metrics,
		tracer:     tracez.New(),
		hooks:      hookz.New[TaskEvent](),
	}
	s.epoch = s.getClock().Now()
	s.poller = &clockPoller{s: s}
	return s
}

// WithClock sets a custom clock. The tick epoch restarts at the new clock's
// current reading.
func (s *Scheduler) WithClock(clock clockz.Clock) *Scheduler {
	s.clock = clock
	s.epoch = clock.Now()
	return s
}

// WithPoller sets the I/O driver seam.
func (s *Scheduler) WithPoller(p Poller) *Scheduler {
	s.poller = p
	return s
}

// WithQueueCap resizes the timed queue bound. Entries already queued are
// kept.
func (s *Scheduler) WithQueueCap(capacity int) *Scheduler {
	if capacity < 1 {
		capacity = 1
	}
	s.queue.cap = capacity
	return s
}

func (s *Scheduler) getClock() clockz.Clock {
	if s.clock == nil {
		return clockz.RealClock
	}
	return s.clock
}

// Now reads the scheduler's monotonic microsecond clock.
func (s *Scheduler) Now() Ticks {
	return Ticks(uint32(s.getClock().Now().Sub(s.epoch).Microseconds()))
}

// Schedule queues task for resumption with value as soon as the loop gets
// to it. Does not run the loop; see Run.
func (s *Scheduler) Schedule(task Task, value any) error {
	return s.ScheduleAt(task, value, s.Now())
}

// ScheduleAt queues task for resumption with value once deadline passes.
// Reports ErrQueueFull when the timed queue is at capacity; the entry is
// not recorded in that case.
func (s *Scheduler) ScheduleAt(task Task, value any, deadline Ticks) error {
	if err := s.queue.Push(task, value, deadline); err != nil {
		capitan.Error(s.ctx, SignalQueueOverflow,
			FieldTask.Field(taskLabel(task)),
			FieldQueueDepth.Field(s.queue.Len()),
		)
		return err
	}
	s.metrics.Counter(LoopScheduledTotal).Inc()
	s.metrics.Gauge(LoopQueueDepth).Set(float64(s.queue.Len()))
	capitan.Info(s.ctx, SignalTaskScheduled,
		FieldTask.Field(taskLabel(task)),
		FieldDeadline.Field(int(deadline)),
	)
	return nil
}

// ScheduleFinalized is Schedule plus a finalizer, recorded under the task's
// identity and overwriting any prior finalizer for it. The finalizer runs
// exactly once, when the task terminates, faults, or is closed.
func (s *Scheduler) ScheduleFinalized(task Task, value any, fin Finalizer) error {
	if fin != nil {
		s.finalizers[task] = fin
	}
	return s.Schedule(task, value)
}

// mustScheduleAt is for reschedules issued from inside the loop, where no
// caller can observe an error return. Overflow there is fatal.
func (s *Scheduler) mustScheduleAt(task Task, value any, deadline Ticks) {
	if err := s.ScheduleAt(task, value, deadline); err != nil {
		s.fail(err)
	}
}

func (s *Scheduler) mustSchedule(task Task, value any) {
	s.mustScheduleAt(task, value, s.Now())
}

func (s *Scheduler) fail(err error) {
	if s.fatal == nil {
		s.fatal = err
	}
}

// Pause blocks task on iface until the interface fires. Idempotent per
// (task, iface). User code should go through Wait; Pause is the low-level
// table operation syscalls build on.
func (s *Scheduler) Pause(task Task, iface Iface) {
	tasks := s.paused[iface]
	for _, t := range tasks {
		if t == task {
			return
		}
	}
	s.paused[iface] = append(tasks, task)
	s.metrics.Gauge(LoopPausedTasks).Set(float64(s.pausedCount()))
}

// discardPaused removes task from iface's paused set, pruning the entry
// when the set empties so an interface nobody waits on cannot keep Run
// alive.
func (s *Scheduler) discardPaused(task Task, iface Iface) {
	tasks := s.paused[iface]
	for i, t := range tasks {
		if t == task {
			tasks = append(tasks[:i], tasks[i+1:]...)
			break
		}
	}
	if len(tasks) == 0 {
		delete(s.paused, iface)
	} else {
		s.paused[iface] = tasks
	}
	s.metrics.Gauge(LoopPausedTasks).Set(float64(s.pausedCount()))
}

func (s *Scheduler) pausedCount() int {
	n := 0
	for _, tasks := range s.paused {
		n += len(tasks)
	}
	return n
}

// Close unschedules and unblocks task, closes it so it releases its
// resources, and calls its finalizer with ErrCanceled. This is the sole
// cancellation primitive; closing a task that has already left the
// scheduler is a no-op apart from the (finalizer-free) Finalize call.
func (s *Scheduler) Close(task Task) {
	for iface := range s.paused {
		s.discardPaused(task, iface)
	}
	s.queue.Discard(task)
	s.metrics.Gauge(LoopQueueDepth).Set(float64(s.queue.Len()))
	task.Close()
	capitan.Info(s.ctx, SignalTaskClosed, FieldTask.Field(taskLabel(task)))
	s.metrics.Counter(LoopClosedTotal).Inc()
	_ = s.hooks.Emit(s.ctx, LoopEventTaskClosed, TaskEvent{ //nolint:errcheck
		Task:      taskLabel(task),
		Err:       ErrCanceled,
		Timestamp: s.getClock().Now(),
	})
	s.Finalize(task, ErrCanceled)
}

// Finalize pops the finalizer registered for task, if any, and calls it
// with result. Single-shot: a second Finalize for the same task finds
// nothing to run.
func (s *Scheduler) Finalize(task Task, result any) {
	fin, ok := s.finalizers[task]
	if !ok {
		return
	}
	delete(s.finalizers, task)
	fin(task, result)
}

// AfterStep installs fn to run after every task step. Single slot;
// registering overwrites, nil uninstalls.
func (s *Scheduler) AfterStep(fn func()) {
	s.afterStep = fn
}

// InjectEvent appends a synthetic (iface, value) pair that the run loop
// consumes before polling the real driver, exactly as if the driver had
// delivered it. Test seam.
func (s *Scheduler) InjectEvent(iface Iface, value any) {
	s.synthetic = append(s.synthetic, Event{Iface: iface, Value: value})
}

// Run steps through scheduled tasks and awaits I/O in between, until every
// table is empty. Returns nil on a drained scheduler, ctx.Err() on context
// cancellation, and the fatal error when the loop cannot continue (bad
// yield, internal queue overflow, driver failure).
func (s *Scheduler) Run(ctx context.Context) error {
	ctx, span := s.tracer.StartSpan(ctx, LoopRunSpan)
	defer span.Finish()
	s.ctx = ctx
	defer func() { s.ctx = context.Background() }()

	for s.queue.Len() > 0 || len(s.paused) > 0 {
		if s.fatal != nil {
			return s.fatal
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		// The longest we may sleep is up to the next deadline.
		delay := maxPollDelay
		if s.queue.Len() > 0 {
			d := TicksDiff(s.queue.PeekDeadline(), s.Now())
			if d < 0 {
				d = 0
			}
			delay = time.Duration(d) * time.Microsecond
		}

		if s.wakeSynthetic() {
			continue
		}

		ev, fired, err := s.poller.Poll(ctx, s.watched(), delay)
		if err != nil {
			return err
		}
		if fired {
			s.wake(ev)
		} else if s.queue.Len() > 0 {
			entry := s.queue.Pop()
			s.metrics.Gauge(LoopQueueDepth).Set(float64(s.queue.Len()))
			s.step(entry.task, entry.value)
		}
	}
	return s.fatal
}

// wakeSynthetic delivers the head synthetic event if any task is paused on
// its interface. An event nobody waits on stays queued.
func (s *Scheduler) wakeSynthetic() bool {
	if len(s.synthetic) == 0 {
		return false
	}
	ev := s.synthetic[0]
	if len(s.paused[ev.Iface]) == 0 {
		return false
	}
	s.synthetic = s.synthetic[1:]
	s.wake(ev)
	return true
}

// wake resumes every task paused on the event's interface with the event
// value and clears the interface's entry.
func (s *Scheduler) wake(ev Event) {
	tasks := s.paused[ev.Iface]
	delete(s.paused, ev.Iface)
	s.metrics.Gauge(LoopPausedTasks).Set(float64(s.pausedCount()))
	capitan.Info(s.ctx, SignalEventDelivered,
		FieldIface.Field(int(ev.Iface)),
		FieldPaused.Field(len(tasks)),
	)
	for _, task := range tasks {
		s.step(task, ev.Value)
	}
}

// watched lists the interfaces the driver should listen on.
func (s *Scheduler) watched() []Iface {
	ifaces := make([]Iface, 0, len(s.paused))
	for iface := range s.paused {
		ifaces = append(ifaces, iface)
	}
	return ifaces
}

// step resumes task with value and interprets the outcome. An error value
// is delivered as an exception. Termination and faults finalize the task;
// a yielded syscall is handled; a yield without a syscall is fatal.
func (s *Scheduler) step(task Task, value any) {
	_, span := s.tracer.StartSpan(s.ctx, LoopStepSpan)
	span.SetTag(LoopTagTask, taskLabel(task))
	s.metrics.Counter(LoopStepsTotal).Inc()

	var st Step
	if err, ok := value.(error); ok {
		st = task.ResumeErr(s, err)
	} else {
		st = task.Resume(s, value)
	}

	switch st.kind {
	case stepReturn:
		span.SetTag(LoopTagOutcome, "finished")
		capitan.Info(s.ctx, SignalTaskFinished, FieldTask.Field(taskLabel(task)))
		s.metrics.Counter(LoopFinishedTotal).Inc()
		_ = s.hooks.Emit(s.ctx, LoopEventTaskFinished, TaskEvent{ //nolint:errcheck
			Task:      taskLabel(task),
			Result:    st.value,
			Timestamp: s.getClock().Now(),
		})
		s.Finalize(task, st.value)
	case stepFault:
		span.SetTag(LoopTagOutcome, "faulted")
		capitan.Error(s.ctx, SignalTaskFaulted,
			FieldTask.Field(taskLabel(task)),
			FieldError.Field(st.err.Error()),
		)
		s.metrics.Counter(LoopFaultedTotal).Inc()
		_ = s.hooks.Emit(s.ctx, LoopEventTaskFaulted, TaskEvent{ //nolint:errcheck
			Task:      taskLabel(task),
			Err:       st.err,
			Timestamp: s.getClock().Now(),
		})
		s.Finalize(task, st.err)
	case stepYield:
		if st.syscall == nil {
			span.SetTag(LoopTagOutcome, "bad-yield")
			capitan.Error(s.ctx, SignalBadYield, FieldTask.Field(taskLabel(task)))
			s.fail(ErrBadYield)
			break
		}
		span.SetTag(LoopTagOutcome, "yielded")
		st.syscall.Handle(s, task)
	}
	span.Finish()

	if s.afterStep != nil {
		s.afterStep()
	}
}

// Clear forgets all queue state: scheduled tasks, paused tasks, finalizers,
// and pending synthetic events. No finalizer runs. Test teardown only.
func (s *Scheduler) Clear() {
	s.queue.Clear()
	s.paused = make(map[Iface][]Task)
	s.finalizers = make(map[Task]Finalizer)
	s.synthetic = nil
	s.fatal = nil
	s.metrics.Gauge(LoopQueueDepth).Set(0)
	s.metrics.Gauge(LoopPausedTasks).Set(0)
}

// Metrics returns the metrics registry for this scheduler.
func (s *Scheduler) Metrics() *metricz.Registry {
	return s.metrics
}

// Tracer returns the tracer for this scheduler.
func (s *Scheduler) Tracer() *tracez.Tracer {
	return s.tracer
}

// OnTaskFinished registers a handler for clean task terminations.
func (s *Scheduler) OnTaskFinished(handler func(context.Context, TaskEvent) error) error {
	_, err := s.hooks.Hook(LoopEventTaskFinished, handler)
	return err
}

// OnTaskFaulted registers a handler for task faults.
func (s *Scheduler) OnTaskFaulted(handler func(context.Context, TaskEvent) error) error {
	_, err := s.hooks.Hook(LoopEventTaskFaulted, handler)
	return err
}

// OnTaskClosed registers a handler for externally closed tasks.
func (s *Scheduler) OnTaskClosed(handler func(context.Context, TaskEvent) error) error {
	_, err := s.hooks.Hook(LoopEventTaskClosed, handler)
	return err
}

// Shutdown releases observability resources. The scheduler itself holds no
// other resources; a drained scheduler needs no shutdown to be collected.
func (s *Scheduler) Shutdown() error {
	if s.tracer != nil {
		s.tracer.Close()
	}
	s.hooks.Close()
	return nil
}
