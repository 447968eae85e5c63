// Package loopz implements a cooperative single-threaded event loop for
// embedded-style workloads: many logical tasks multiplexed onto one thread
// of execution, interleaved with hardware I/O events and timed wakeups.
//
// # Overview
//
// Tasks are resumable computations. A task communicates with the scheduler
// exclusively by suspending on a Syscall; the scheduler interprets the
// syscall, parks the task in the appropriate table, and later resumes it
// with a value or an exception. The loop converts every external edge — a
// deadline elapsing, an I/O event on an interface — into exactly one task
// resumption.
//
// # Core Concepts
//
//   - Task: the three-method contract Resume / ResumeErr / Close. Fiber is
//     the stock implementation, running a function on its own goroutine and
//     suspending it at every Await.
//   - Syscall: a request to the scheduler. Sleep resumes after a delay,
//     Wait resumes on an I/O event (optionally bounded by a timeout), Race
//     resumes with the first of several children to finish, and Chan's Put
//     and Take rendezvous two tasks around a value.
//   - Scheduler: owns the timed queue, the paused table, and the finalizer
//     table. Run drives everything until both wait tables drain.
//
// # Usage Example
//
//	sched := loopz.New()
//
//	button := loopz.NewFiber("button", func(aw *loopz.Await) (any, error) {
//	    evt, err := aw.Await(loopz.NewWaitTimeout(loopz.Iface(7), time.Second))
//	    if err != nil {
//	        return nil, err // loopz.ErrTimeout when nothing was pressed
//	    }
//	    return evt, nil
//	})
//
//	sched.Schedule(button, nil)
//	err := sched.Run(context.Background())
//
// # Concurrency Model
//
// Strictly cooperative: exactly one of the scheduler and the current task
// executes at any instant, so table mutations need no locks. A task
// suspends only at an Await; syscall handlers never block. Cancellation is
// Close, which removes the task from every table, runs its in-task cleanup,
// and fires its finalizer with ErrCanceled — cascading through combinators
// such as Race, which closes its losing children.
//
// # Observability
//
// The scheduler carries the standard zoobzio surface: a metricz registry
// (step, finish, fault, close counters; queue and paused-table gauges), a
// tracez tracer (run and per-step spans), hookz events for task lifecycle,
// and capitan signals for structured logging. A synchronous single-slot
// AfterStep hook runs after every step for deterministic instrumentation.
package loopz
