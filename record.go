package loopz

// Recorder captures a stream of injected events so a device interaction can
// be snapshotted once and replayed deterministically in tests.
type Recorder struct {
	events []Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Inject records the event and injects it into the scheduler's synthetic
// queue.
func (r *Recorder) Inject(s *Scheduler, iface Iface, value any) {
	r.events = append(r.events, Event{Iface: iface, Value: value})
	s.InjectEvent(iface, value)
}

// Len reports how many events were recorded.
func (r *Recorder) Len() int {
	return len(r.events)
}

// Snapshot serializes the recorded stream.
func (r *Recorder) Snapshot() ([]byte, error) {
	return Encode(r.events)
}

// Replay injects a snapshotted stream into the scheduler, in recorded
// order.
func Replay(s *Scheduler, data []byte) error {
	events, err := Decode[[]Event](data)
	if err != nil {
		return err
	}
	for _, ev := range events {
		s.InjectEvent(ev.Iface, ev.Value)
	}
	return nil
}
