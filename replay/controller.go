package replay

import "time"

// Controller is the playback state machine. It converts wall-clock
// deltas into domain-time advancement, honoring speed, pause, and seek.
// It starts Paused at the beginning of the range. The scheduler owns the
// wall clock and hands Tick the measured delta; a resume after a pause
// does not jump because paused ticks simply advance nothing. All methods
// are called from a single scheduling context.
type Controller struct {
	timeRange TimeRange
	current   float64
	speed     float64
	playing   bool
}

// NewController creates a paused controller positioned at the start of
// the range with the given initial speed. An out-of-range speed falls
// back to 1.0.
func NewController(timeRange TimeRange, speed float64) *Controller {
	if speed < MinSpeed || speed > MaxSpeed {
		speed = 1.0
	}
	return &Controller{
		timeRange: timeRange,
		current:   timeRange.Start,
		speed:     speed,
	}
}

// Play transitions to Playing.
func (c *Controller) Play() {
	c.playing = true
}

// Pause freezes the current domain time.
func (c *Controller) Pause() {
	c.playing = false
}

// Playing reports whether playback is advancing.
func (c *Controller) Playing() bool {
	return c.playing
}

// Tick advances domain time by wallDelta scaled by the speed multiplier.
// It is a no-op while Paused. Reaching the end of the range clamps the
// time, pauses, and returns false; true means playback should continue.
func (c *Controller) Tick(wallDelta time.Duration) bool {
	if !c.playing {
		return true
	}

	c.current += wallDelta.Seconds() * c.speed

	if c.current >= c.timeRange.End {
		c.current = c.timeRange.End
		c.playing = false
		return false
	}
	return true
}

// SeekTo jumps to a domain time, clamped into range. Valid while either
// Playing or Paused; the play state is unchanged. Idempotent.
func (c *Controller) SeekTo(t float64) {
	c.current = c.timeRange.Clamp(t)
}

// Rewind returns to the start of the range and pauses.
func (c *Controller) Rewind() {
	c.SeekTo(c.timeRange.Start)
	c.playing = false
}

// SetSpeed updates the speed multiplier. Values outside
// [MinSpeed, MaxSpeed] are rejected with ErrInvalidSpeed and leave the
// current speed unchanged; reverse playback is not supported.
func (c *Controller) SetSpeed(speed float64) error {
	if speed < MinSpeed || speed > MaxSpeed {
		return ErrInvalidSpeed
	}
	c.speed = speed
	return nil
}

// Speed returns the current speed multiplier.
func (c *Controller) Speed() float64 {
	return c.speed
}

// Current returns the current domain time.
func (c *Controller) Current() float64 {
	return c.current
}

// Progress returns playback position as a percentage of the total
// duration.
func (c *Controller) Progress() float64 {
	duration := c.timeRange.Duration()
	if duration <= 0 {
		return 100
	}
	return (c.current - c.timeRange.Start) / duration * 100
}

// Range returns the playback bounds.
func (c *Controller) Range() TimeRange {
	return c.timeRange
}
