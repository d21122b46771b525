package replay

import (
	"fmt"
	"math"
	"math/rand"
)

// SyntheticOptions controls generated demo telemetry.
type SyntheticOptions struct {
	Entities     int     // number of competitors
	Laps         int     // laps per competitor
	LapSeconds   float64 // nominal lap duration
	PointsPerLap int     // sample density
	Radius       float64 // track radius in domain units
}

// DefaultSyntheticOptions returns a small but realistic demo session.
func DefaultSyntheticOptions() SyntheticOptions {
	return SyntheticOptions{
		Entities:     6,
		Laps:         5,
		LapSeconds:   90,
		PointsPerLap: 300,
		Radius:       2000,
	}
}

// GenerateSyntheticStore builds a dataset of entities lapping a
// roughly circular track, with corner/straight speed modulation and a
// per-entity pace offset. Generation is seeded by entity number, so the
// same options always produce the same dataset.
func GenerateSyntheticStore(opts SyntheticOptions) (*Store, error) {
	if opts.Entities < 1 {
		opts.Entities = 1
	}
	if opts.Laps < 1 {
		opts.Laps = 1
	}
	if opts.PointsPerLap < 8 {
		opts.PointsPerLap = 8
	}
	if opts.LapSeconds <= 0 {
		opts.LapSeconds = 90
	}
	if opts.Radius <= 0 {
		opts.Radius = 2000
	}

	drivers := make(map[string]interface{}, opts.Entities)
	for n := 1; n <= opts.Entities; n++ {
		id := fmt.Sprintf("%d", n)
		drivers[id] = map[string]interface{}{
			"name":          fmt.Sprintf("Driver %d", n),
			"code":          fmt.Sprintf("D%02d", n),
			"number":        float64(n),
			"team":          fmt.Sprintf("Team %d", (n+1)/2),
			"grid_position": float64(n),
			"telemetry":     syntheticTelemetry(n, opts),
		}
	}

	payload := map[string]interface{}{
		"session_key":  "synthetic",
		"session_name": "Synthetic Session",
		"total_laps":   float64(opts.Laps),
		"drivers":      drivers,
		"track":        syntheticTrack(opts),
	}
	return NewStore(payload)
}

// syntheticTelemetry emits one entity's lap samples in raw payload form,
// so generated data flows through the same normalization as a real load.
func syntheticTelemetry(number int, opts SyntheticOptions) []interface{} {
	rng := rand.New(rand.NewSource(int64(number)))
	startAngle := rng.Float64() * 2 * math.Pi
	// Slight per-entity pace difference spreads the field over a run.
	pace := 1.0 + (rng.Float64()-0.5)*0.04

	total := opts.Laps * opts.PointsPerLap
	samples := make([]interface{}, 0, total)
	for lap := 0; lap < opts.Laps; lap++ {
		for point := 0; point < opts.PointsPerLap; point++ {
			frac := float64(point) / float64(opts.PointsPerLap)
			angle := startAngle + (float64(lap)+frac)*2*math.Pi

			// Vary the radius so the line is not a perfect circle.
			radius := opts.Radius * (0.8 + 0.2*math.Sin(angle*3))

			speed := 150 + 100*math.Sin(angle*4)
			if speed < 50 {
				speed = 50
			}

			throttle := clamp01((speed - 50) / 250)
			brake := clamp01((300 - speed) / 200)
			if throttle > 0.3 {
				brake = 0
			}

			samples = append(samples, map[string]interface{}{
				"time":      (float64(lap) + frac) * opts.LapSeconds * pace,
				"x":         radius * math.Cos(angle),
				"y":         radius * math.Sin(angle),
				"speed":     speed,
				"gear":      float64(maxInt(1, int(speed/300*8))),
				"throttle":  throttle,
				"brake":     brake,
				"drs":       speed > 280,
				"lapNumber": float64(lap + 1),
				"in_pit":    false,
			})
		}
	}
	return samples
}

func syntheticTrack(opts SyntheticOptions) []interface{} {
	const segments = 128
	points := make([]interface{}, 0, segments+1)
	for i := 0; i <= segments; i++ {
		angle := float64(i) / segments * 2 * math.Pi
		radius := opts.Radius * (0.8 + 0.2*math.Sin(angle*3))
		points = append(points, map[string]interface{}{
			"x": radius * math.Cos(angle),
			"y": radius * math.Sin(angle),
		})
	}
	return points
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
