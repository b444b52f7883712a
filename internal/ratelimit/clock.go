package ratelimit

import "time"

// Clock supplies the current time. Window math asks the clock instead of
// calling time.Now so tests can advance time deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns the wall-clock used by production deployments.
func SystemClock() Clock { return systemClock{} }
