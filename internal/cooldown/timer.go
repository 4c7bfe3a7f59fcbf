// Package cooldown tracks when the next placement is allowed.
package cooldown

import (
	"fmt"
	"time"
)

// TickInterval is how often the owner should call Tick while armed.
const TickInterval = 100 * time.Millisecond

// ReadyLabel is shown on the place button when no cooldown is running.
const ReadyLabel = "Place"

type State int

const (
	Idle State = iota
	Armed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Timer is a two state countdown. The zero value is Idle.
type Timer struct {
	state State
	until time.Time
}

// Arm starts counting down to until, replacing any running deadline. A
// deadline that is already past leaves the timer Idle.
func (t *Timer) Arm(until, now time.Time) {
	t.until = until
	t.state = Armed
	t.Tick(now)
}

// Disarm drops any running deadline.
func (t *Timer) Disarm() {
	t.state = Idle
	t.until = time.Time{}
}

// Tick re-evaluates the deadline and reports whether the timer is still
// running.
func (t *Timer) Tick(now time.Time) bool {
	if t.state == Armed && !now.Before(t.until) {
		t.Disarm()
	}
	return t.state == Armed
}

func (t *Timer) State() State { return t.state }

// Deadline returns the running deadline, if any.
func (t *Timer) Deadline() (time.Time, bool) {
	return t.until, t.state == Armed
}

// Ready reports whether a placement is allowed as far as the cooldown is
// concerned.
func (t *Timer) Ready(now time.Time) bool {
	return !t.Tick(now)
}

// Remaining is the time left on the cooldown; never negative.
func (t *Timer) Remaining(now time.Time) time.Duration {
	if !t.Tick(now) {
		return 0
	}
	return t.until.Sub(now)
}

// Label renders the remaining time as m:ss, or ReadyLabel when idle.
func (t *Timer) Label(now time.Time) string {
	left := t.Remaining(now)
	if left <= 0 {
		return ReadyLabel
	}
	return FormatRemaining(left)
}

// FormatRemaining renders d as minutes and zero padded seconds, truncating
// fractions of a second.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
