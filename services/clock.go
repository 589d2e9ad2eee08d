package services

import "time"

// Clock supplies the current time. Deadline checks and the sweeper take a
// Clock so tests can pin time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall-clock implementation used in production wiring.
var SystemClock Clock = systemClock{}
