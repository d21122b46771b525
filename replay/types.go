package replay

import "time"

// Point is a 2D coordinate, either in domain (telemetry) space or in
// viewport (pixel) space depending on context.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Entity describes one competitor. Immutable after a dataset loads;
// owned by the Store and referenced everywhere else.
type Entity struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	Number       int    `json:"number"`
	Team         string `json:"team"`
	Color        string `json:"color"`
	GridPosition int    `json:"grid_position"`
}

// TelemetrySample is one recorded instant for one entity. Within an
// entity's sequence samples are strictly sorted by time and time-unique;
// normalization guarantees both.
type TelemetrySample struct {
	Time     float64 `json:"time"` // domain seconds
	Pos      Point   `json:"pos"`
	Speed    float64 `json:"speed"`
	Gear     int     `json:"gear"`
	Throttle float64 `json:"throttle"` // clamped to [0,1]
	Brake    float64 `json:"brake"`    // clamped to [0,1]
	DRS      bool    `json:"drs"`
	InPit    bool    `json:"in_pit"`
	Lap      int     `json:"lap"`
}

// TimeRange is the global playback bounds, computed once per load.
type TimeRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the total playable domain time in seconds.
func (r TimeRange) Duration() float64 {
	return r.End - r.Start
}

// Clamp constrains t to the range.
func (r TimeRange) Clamp(t float64) float64 {
	if t < r.Start {
		return r.Start
	}
	if t > r.End {
		return r.End
	}
	return t
}

// Standing is one row of the live or final ranking.
type Standing struct {
	Rank     int    `json:"rank"`
	EntityID string `json:"entity_id"`
	Code     string `json:"code"`
	Color    string `json:"color"`
	Lap      int    `json:"lap"`
	Final    bool   `json:"final"`
}

// FinalResult is one row of an authoritative finishing order supplied by
// an external results source.
type FinalResult struct {
	EntityID     string  `json:"entity_id"`
	Position     int     `json:"position"`
	FinishingLap int     `json:"finishing_lap"`
	FinishMetric float64 `json:"finish_metric"`
}

// EntityReadout is the per-entity telemetry line shown next to a marker.
type EntityReadout struct {
	EntityID  string  `json:"entity_id"`
	Code      string  `json:"code"`
	Color     string  `json:"color"`
	Speed     float64 `json:"speed"`
	Gear      int     `json:"gear"`
	Throttle  int     `json:"throttle"` // percent
	Brake     int     `json:"brake"`    // percent
	Lap       int     `json:"lap"`
	TotalLaps int     `json:"total_laps"`
	DRS       bool    `json:"drs"`
	InPit     bool    `json:"in_pit"`
	Pos       Point   `json:"pos"` // viewport coordinates
}

// FrameStats is the per-frame summary pushed to the presentation layer.
// Plain values only; nothing here is tied to a UI toolkit.
type FrameStats struct {
	Time      float64         `json:"time"`     // current domain time
	Clock     string          `json:"clock"`    // "elapsed/total", mm:ss
	Progress  float64         `json:"progress"` // percent of total duration
	Speed     float64         `json:"speed"`
	Playing   bool            `json:"playing"`
	FPS       float64         `json:"fps"`
	Readouts  []EntityReadout `json:"readouts"`
	Standings []Standing      `json:"standings"`
	Timestamp time.Time       `json:"timestamp"`
}
