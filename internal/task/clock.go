package task

import "time"

// Clock abstracts time lookup so scheduler decisions are deterministic
// in tests.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

// Now implements Clock.Now
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
