package attempt

// Timer math is wall-clock based: remaining time is recomputed from the
// persisted start timestamp on every call, never accumulated from ticks,
// so it survives reloads and re-entry.

// Elapsed returns whole seconds since startedAt, never negative.
func Elapsed(startedAt, now int64) int {
	if now <= startedAt {
		return 0
	}
	return int(now - startedAt)
}

// Remaining returns max(0, durationSec - (now - startedAt)) in seconds.
func Remaining(durationSec int, startedAt, now int64) int {
	rem := durationSec - Elapsed(startedAt, now)
	if rem < 0 {
		return 0
	}
	return rem
}

// Expired reports whether the attempt window is over; the caller must then
// submit exactly once with whatever draft exists.
func Expired(durationSec int, startedAt, now int64) bool {
	return Remaining(durationSec, startedAt, now) == 0
}
