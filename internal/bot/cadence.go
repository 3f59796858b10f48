package bot

import "time"

// Cadence picks the delay between event polls. A handled command switches to
// the fast interval; after Window without one it falls back to the slow
// interval.
type Cadence struct {
	Window time.Duration
	Fast   time.Duration
	Slow   time.Duration

	now          func() time.Time
	lastActivity time.Time
	high         bool
}

// NewCadence creates a cadence in slow mode.
func NewCadence(window, fast, slow time.Duration) *Cadence {
	c := &Cadence{Window: window, Fast: fast, Slow: slow, now: time.Now}
	c.lastActivity = c.now()
	return c
}

// Observe records the outcome of one poll cycle.
func (c *Cadence) Observe(active bool) {
	now := c.now()
	if active {
		c.high = true
		c.lastActivity = now
	}
	if now.Sub(c.lastActivity) > c.Window {
		c.high = false
	}
}

// Interval returns the delay before the next poll.
func (c *Cadence) Interval() time.Duration {
	if c.high {
		return c.Fast
	}
	return c.Slow
}
