package simulation

import "time"

// Clock is the source of tick waits. The real clock uses time.After; tests
// substitute clocks that fire immediately or on demand.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// RealClock returns the wall clock.
func RealClock() Clock {
	return realClock{}
}
