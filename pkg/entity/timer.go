package entity

import "time"

// Timer is an optional stopwatch advanced by simulation time.
type Timer struct {
	Elapsed time.Duration
	Running bool
}

// Start (re)starts the timer from zero.
func (t *Timer) Start() {
	t.Elapsed = 0
	t.Running = true
}

// Stop clears the timer.
func (t *Timer) Stop() {
	t.Elapsed = 0
	t.Running = false
}

// Advance adds dt to a running timer and reports whether it has reached limit.
// A stopped timer never reaches its limit.
func (t *Timer) Advance(dt, limit time.Duration) bool {
	if !t.Running {
		return false
	}
	t.Elapsed += dt
	return t.Elapsed >= limit
}
