package loopz

import "time"

// Ticks is a point on the scheduler's monotonic microsecond clock. The
// counter wraps; all comparisons must go through TicksDiff rather than
// direct subtraction or ordering operators.
type Ticks uint32

// TicksDiff returns end-start as a signed microsecond count, correct across
// counter wrap. The result is meaningful for spans shorter than half the
// counter period.
func TicksDiff(end, start Ticks) int32 {
	return int32(end - start)
}

// TicksAdd offsets t by delta microseconds, wrapping as the counter does.
func TicksAdd(t Ticks, delta int32) Ticks {
	return t + Ticks(delta)
}

// durationTicks converts a duration to a tick delta, clamping at the widest
// span the wrap-safe arithmetic can represent.
func durationTicks(d time.Duration) int32 {
	us := d.Microseconds()
	if us > maxTickSpan {
		return maxTickSpan
	}
	if us < -maxTickSpan {
		return -maxTickSpan
	}
	return int32(us)
}

const maxTickSpan = 1<<31 - 1
