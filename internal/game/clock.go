package game

import "time"

// DefaultBlindDuration is the blind level length when none is configured.
const DefaultBlindDuration = 420 * time.Second

// Clock is the wall-clock-anchored blind level countdown. It keeps no
// running counter: remaining time is always derived from the stored start
// timestamp, so a persisted clock survives process restarts without drift.
//
// EscalatePending is an edge-triggered latch. CheckExpiry sets it exactly
// once per expiry; the next deal consumes and clears it.
type Clock struct {
	StartTime       *time.Time    `json:"startTime,omitempty"`
	Duration        time.Duration `json:"duration"`
	EscalatePending bool          `json:"escalatePending"`

	now func() time.Time
}

// NewClock returns an idle clock with the given blind level duration.
func NewClock(duration time.Duration) *Clock {
	if duration <= 0 {
		duration = DefaultBlindDuration
	}
	return &Clock{Duration: duration, now: time.Now}
}

// SetNowFunc overrides the clock's time source, for tests.
func (c *Clock) SetNowFunc(now func() time.Time) {
	c.now = now
}

func (c *Clock) timeNow() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}

// Running reports whether the countdown has been started.
func (c *Clock) Running() bool {
	return c.StartTime != nil
}

// Start anchors the countdown at the current time if the clock is idle.
// Starting a running clock is a no-op.
func (c *Clock) Start() {
	if c.StartTime != nil {
		return
	}
	t := c.timeNow()
	c.StartTime = &t
}

// Restart re-anchors the countdown at the current time unconditionally and
// drops any pending escalation. Used when a consumed escalation begins the
// next blind level.
func (c *Clock) Restart() {
	t := c.timeNow()
	c.StartTime = &t
	c.EscalatePending = false
}

// Remaining derives the time left from the start timestamp. Never negative.
func (c *Clock) Remaining() time.Duration {
	if c.StartTime == nil {
		return c.Duration
	}
	elapsed := c.timeNow().Sub(*c.StartTime)
	if elapsed >= c.Duration {
		return 0
	}
	return c.Duration - elapsed
}

// CheckExpiry reports "just expired": true exactly once per expiry, no
// matter how often it is polled afterwards.
func (c *Clock) CheckExpiry() bool {
	if !c.Running() || c.EscalatePending {
		return false
	}
	if c.Remaining() > 0 {
		return false
	}
	c.EscalatePending = true
	return true
}

// ConsumeEscalation clears the latch and reports whether one was pending.
// Called by the deal that applies the blind level change.
func (c *Clock) ConsumeEscalation() bool {
	if !c.EscalatePending {
		return false
	}
	c.EscalatePending = false
	return true
}

// Reset returns the clock to idle.
func (c *Clock) Reset() {
	c.StartTime = nil
	c.EscalatePending = false
}

// TimerState is the client-facing snapshot of the clock.
type TimerState struct {
	IsRunning          bool       `json:"isRunning"`
	StartTime          *time.Time `json:"startTime,omitempty"`
	DurationSeconds    int        `json:"durationSeconds"`
	BlindsWillIncrease bool       `json:"blindsWillIncrease"`
}

// State builds the snapshot form included in player projections.
func (c *Clock) State() TimerState {
	return TimerState{
		IsRunning:          c.Running(),
		StartTime:          c.StartTime,
		DurationSeconds:    int(c.Duration / time.Second),
		BlindsWillIncrease: c.EscalatePending,
	}
}
