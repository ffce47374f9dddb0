package notifier

import "time"

// Cooldown is the per-alert-type anti-spam gate. It records when each alert
// type was last admitted and suppresses repeats inside the cooldown window.
// The window is anchored to the last admission: a suppressed attempt never
// touches the recorded timestamp.
//
// The gate is touched only by the single agent loop, so it carries no lock.
type Cooldown struct {
	window   time.Duration
	lastSent map[string]time.Time
}

// NewCooldown creates a gate with the given suppression window.
func NewCooldown(window time.Duration) *Cooldown {
	return &Cooldown{
		window:   window,
		lastSent: make(map[string]time.Time),
	}
}

// Admit decides whether an alert of the given type may be dispatched at the
// given time. The first occurrence of a type is always admitted. On
// admission the timestamp for the type is updated to now; on suppression no
// state changes.
func (c *Cooldown) Admit(alertType string, now time.Time) bool {
	last, seen := c.lastSent[alertType]
	if seen && now.Sub(last) < c.window {
		return false
	}
	c.lastSent[alertType] = now
	return true
}

// Remaining returns how long the given alert type stays suppressed from now,
// and whether it is currently in cooldown at all.
func (c *Cooldown) Remaining(alertType string, now time.Time) (time.Duration, bool) {
	last, seen := c.lastSent[alertType]
	if !seen {
		return 0, false
	}
	elapsed := now.Sub(last)
	if elapsed >= c.window {
		return 0, false
	}
	return c.window - elapsed, true
}
