package loopz

import "github.com/zoobzio/capitan"

// Signal constants for scheduler events.
// Signals follow the pattern: loop.<subject>.<event>.
const (
	SignalTaskScheduled  capitan.Signal = "loop.task.scheduled"
	SignalTaskFinished   capitan.Signal = "loop.task.finished"
	SignalTaskFaulted    capitan.Signal = "loop.task.faulted"
	SignalTaskClosed     capitan.Signal = "loop.task.closed"
	SignalRaceWon        capitan.Signal = "loop.race.won"
	SignalEventDelivered capitan.Signal = "loop.event.delivered"
	SignalQueueOverflow  capitan.Signal = "loop.queue.overflow"
	SignalBadYield       capitan.Signal = "loop.task.bad-yield"
)

// Field keys using capitan primitive types.
var (
	FieldTask       = capitan.NewStringKey("task")      // Task label
	FieldError      = capitan.NewStringKey("error")     // Error message
	FieldIface      = capitan.NewIntKey("iface")        // I/O interface id
	FieldDeadline   = capitan.NewIntKey("deadline")     // Deadline in ticks
	FieldQueueDepth = capitan.NewIntKey("queue_depth")  // Timed queue depth
	FieldPaused     = capitan.NewIntKey("paused_tasks") // Tasks blocked on I/O
)
