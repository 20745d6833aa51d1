package engine

import "time"

// =============================================================================
// CLOCK - Explicit time source (real or admin override)
// =============================================================================

// Clock supplies "now" as a value. It wraps either the real wall clock or an
// administrator-supplied override instant (the "time machine"), and is passed
// explicitly into every computation that needs the current time. There is no
// ambient global clock anywhere in the engine.
type Clock struct {
	override *time.Time
}

// NewClock returns a clock reading real wall-clock time.
func NewClock() Clock {
	return Clock{}
}

// ClockAt returns a clock frozen at the given instant.
func ClockAt(t time.Time) Clock {
	u := t.UTC()
	return Clock{override: &u}
}

// Now returns the clock's current instant in UTC.
func (c Clock) Now() time.Time {
	if c.override != nil {
		return *c.override
	}
	return time.Now().UTC()
}

// Overridden reports whether this clock is frozen at an override instant.
func (c Clock) Overridden() bool {
	return c.override != nil
}
