package replay

import "time"

// Speed multiplier bounds accepted by SetSpeed.
const (
	MinSpeed = 0.25
	MaxSpeed = 8.0
)

// Config holds all configuration options for the playback engine
type Config struct {
	FrameRate      time.Duration // interval between frames
	Speed          float64       // initial speed multiplier (1.0 = real-time)
	Loop           bool          // rewind and continue when the end is reached
	TrailLength    int           // trail ring buffer capacity per entity
	ViewportWidth  float64       // drawing surface width in pixels
	ViewportHeight float64       // drawing surface height in pixels
	Margin         float64       // viewport margin kept clear around the layout
	OffsetX        float64       // operator framing offset in pixels
	OffsetY        float64
	ResultsURL     string        // base URL for the final-results fetch ("" = disabled)
	Quiet          bool          // suppress warning messages
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		FrameRate:      33 * time.Millisecond, // ~30 fps
		Speed:          1.0,
		Loop:           false,
		TrailLength:    120,
		ViewportWidth:  1000,
		ViewportHeight: 700,
		Margin:         40,
	}
}

// Validate checks if the configuration is valid and returns an error if not
func (c *Config) Validate() error {
	if c.FrameRate <= 0 {
		return ErrInvalidFrameRate
	}
	if c.Speed < MinSpeed || c.Speed > MaxSpeed {
		return ErrInvalidSpeed
	}
	if c.TrailLength <= 0 {
		return ErrInvalidTrailLength
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return ErrInvalidViewport
	}
	if c.Margin < 0 {
		return ErrInvalidViewport
	}
	return nil
}
