package data

import "time"

// TimeProvider abstracts the clock so repositories can be tested with
// deterministic time.
type TimeProvider interface {
	Now() time.Time
}

// RealTimeProvider is the system-clock TimeProvider.
type RealTimeProvider struct{}

// Now returns the current time.
func (r *RealTimeProvider) Now() time.Time {
	return time.Now()
}
