package services

import "time"

// Clock returns the current time. Tests substitute a fixed or stepping clock.
type Clock func() time.Time

func SystemClock() time.Time {
	return time.Now().UTC()
}
