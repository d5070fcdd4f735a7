package core

import "time"

// Throttle gates periodic work, such as progress logging, to a steady rate.
type Throttle struct {
	every time.Duration
	last  time.Time
	now   func() time.Time
}

// NewThrottle constructs a Throttle that opens at most perSecond times per
// second. Non-positive rates fall back to once per second.
func NewThrottle(perSecond int) *Throttle {
	t := &Throttle{now: time.Now}
	t.SetRate(perSecond)
	return t
}

// SetRate changes the rate.
func (t *Throttle) SetRate(perSecond int) {
	if perSecond <= 0 {
		perSecond = 1
	}
	t.every = time.Second / time.Duration(perSecond)
}

// Ready reports whether enough time has elapsed since the last time it
// returned true. The first call always returns true.
func (t *Throttle) Ready() bool {
	now := t.now()
	if !t.last.IsZero() && now.Sub(t.last) < t.every {
		return false
	}
	t.last = now
	return true
}
