package loopz

// Chan is a two-ended rendezvous channel between tasks. The receiving end
// pauses until a value is available. The sending end either waits until the
// value is received (Put) or hands the value off without waiting (Publish).
//
//	// consumer task
//	v, err := aw.Await(signal.Take())
//
//	// producer task
//	signal.Publish(sched, "no waiting")
//	_, err := aw.Await(signal.Put("delivered before Put returns"))
//
// Internally two FIFO queues hold whichever side arrived first; at most one
// of them is ever non-empty.
type Chan struct {
	putters []putEntry
	takers  []Task
}

// putEntry is a parked value. task is nil when the value came from Publish
// and there is no sender to wake.
type putEntry struct {
	task  Task
	value any
}

// NewChan creates an empty channel.
func NewChan() *Chan {
	return &Chan{}
}

// Put returns a syscall that delivers value to the channel and suspends the
// caller until a taker has received it.
func (c *Chan) Put(value any) Syscall {
	return &chanPut{ch: c, value: value}
}

// Take returns a syscall that suspends the caller until a value is
// available and resumes it with that value.
func (c *Chan) Take() Syscall {
	return &chanTake{ch: c}
}

// Publish hands value to a waiting taker, or parks it for the next taker if
// none is waiting. Never blocks; the value is delivered to exactly one
// future Take.
func (c *Chan) Publish(s *Scheduler, value any) {
	if len(c.takers) > 0 {
		taker := c.takers[0]
		c.takers = c.takers[1:]
		s.mustSchedule(taker, value)
		return
	}
	c.putters = append(c.putters, putEntry{value: value})
}

func (c *Chan) schedulePut(s *Scheduler, putter Task, value any) {
	if len(c.takers) > 0 {
		taker := c.takers[0]
		c.takers = c.takers[1:]
		s.mustSchedule(taker, value)
		s.mustSchedule(putter, nil)
		return
	}
	c.putters = append(c.putters, putEntry{task: putter, value: value})
}

func (c *Chan) scheduleTake(s *Scheduler, taker Task) {
	if len(c.putters) > 0 {
		entry := c.putters[0]
		c.putters = c.putters[1:]
		s.mustSchedule(taker, entry.value)
		if entry.task != nil {
			s.mustSchedule(entry.task, nil)
		}
		return
	}
	c.takers = append(c.takers, taker)
}

// discardPutter drops a parked put when its sender is closed.
func (c *Chan) discardPutter(task Task) {
	for i, entry := range c.putters {
		if entry.task == task {
			c.putters = append(c.putters[:i], c.putters[i+1:]...)
			return
		}
	}
}

// discardTaker drops a parked take when its receiver is closed.
func (c *Chan) discardTaker(task Task) {
	for i, t := range c.takers {
		if t == task {
			c.takers = append(c.takers[:i], c.takers[i+1:]...)
			return
		}
	}
}

type chanPut struct {
	ch    *Chan
	task  Task
	value any
}

func (p *chanPut) Handle(s *Scheduler, task Task) {
	p.task = task
	p.ch.schedulePut(s, task, p.value)
}

func (p *chanPut) cancel(*Scheduler) {
	p.ch.discardPutter(p.task)
}

type chanTake struct {
	ch   *Chan
	task Task
}

func (t *chanTake) Handle(s *Scheduler, task Task) {
	t.task = task
	t.ch.scheduleTake(s, task)
}

func (t *chanTake) cancel(*Scheduler) {
	t.ch.discardTaker(t.task)
}
