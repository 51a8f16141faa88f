package timer

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPeriod is returned for a non-positive period or frequency.
var ErrInvalidPeriod = errors.New("invalid timer period")

// Timer fires at most once per period. It is polled from the main loop and
// never schedules anything itself.
type Timer struct {
	clk     Clock
	period  time.Duration
	last    time.Duration
	slip    time.Duration
	enabled bool
	primed  bool
}

// NewPeriod returns an enabled timer with the given period. The first
// period is measured from the moment of creation.
func NewPeriod(period time.Duration, clk Clock) (*Timer, error) {
	if period <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPeriod, period)
	}
	return &Timer{
		clk:     clk,
		period:  period,
		last:    clk.Now(),
		enabled: true,
	}, nil
}

// NewFrequency returns an enabled timer firing at hz.
func NewFrequency(hz float64, clk Clock) (*Timer, error) {
	period, err := periodOf(hz)
	if err != nil {
		return nil, err
	}
	return NewPeriod(period, clk)
}

func periodOf(hz float64) (time.Duration, error) {
	if !(hz > 0) {
		return 0, fmt.Errorf("%w: %v Hz", ErrInvalidPeriod, hz)
	}
	period := time.Duration(float64(time.Second) / hz)
	if period <= 0 {
		return 0, fmt.Errorf("%w: %v Hz", ErrInvalidPeriod, hz)
	}
	return period, nil
}

// Tick reports whether more than one period elapsed since the last fire.
// On fire the reference moves to now, so late ticks do not accumulate.
func (t *Timer) Tick() bool {
	if !t.enabled {
		return false
	}
	now := t.clk.Now()
	if t.primed {
		t.primed = false
		t.slip = 0
		t.last = now
		return true
	}
	elapsed := now - t.last
	if elapsed <= t.period {
		return false
	}
	t.slip = elapsed - t.period
	t.last = now
	return true
}

// Prime makes the next Tick fire regardless of the elapsed time. The
// period after that fire is measured from it.
func (t *Timer) Prime() {
	t.primed = true
}

// Slip returns how late the last fire was relative to its period.
func (t *Timer) Slip() time.Duration {
	return t.slip
}

// SetPeriod changes the period. The last-fire reference is kept.
func (t *Timer) SetPeriod(period time.Duration) error {
	if period <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidPeriod, period)
	}
	t.period = period
	return nil
}

// SetFrequency changes the period to 1/hz.
func (t *Timer) SetFrequency(hz float64) error {
	period, err := periodOf(hz)
	if err != nil {
		return err
	}
	t.period = period
	return nil
}

// Enable resumes the timer and restarts its period from now.
func (t *Timer) Enable() {
	if t.enabled {
		return
	}
	t.enabled = true
	t.last = t.clk.Now()
}

// Disable stops the timer from firing.
func (t *Timer) Disable() {
	t.enabled = false
}

// Enabled reports whether the timer can fire.
func (t *Timer) Enabled() bool {
	return t.enabled
}

// Period returns the current period.
func (t *Timer) Period() time.Duration {
	return t.period
}

// Frequency returns the current rate in Hz.
func (t *Timer) Frequency() float64 {
	return float64(time.Second) / float64(t.period)
}
