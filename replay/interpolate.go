package replay

import "sort"

// SampleAt returns the telemetry state for one entity at query time t.
// The sequence must be sorted by time with unique timestamps, which is
// what the Store produces.
//
// Continuous fields (position, speed, throttle, brake) are linearly
// interpolated between the bracketing pair. Discrete fields (gear, DRS,
// in-pit, lap) hold the value of the closest sample not later than t:
// they are state transitions, not continuous quantities. Queries before
// the first or after the last sample clamp to the nearest endpoint; there
// is no extrapolation. Pure function, so seeking is deterministic.
func SampleAt(samples []TelemetrySample, t float64) TelemetrySample {
	if len(samples) == 0 {
		return TelemetrySample{}
	}
	if t <= samples[0].Time {
		return samples[0]
	}
	last := samples[len(samples)-1]
	if t >= last.Time {
		return last
	}

	// Index of the first sample with time > t; the bracket is [hi-1, hi].
	hi := sort.Search(len(samples), func(i int) bool {
		return samples[i].Time > t
	})
	lo := hi - 1

	prev := samples[lo]
	next := samples[hi]

	interval := next.Time - prev.Time
	f := 0.0
	if interval > 0 {
		f = (t - prev.Time) / interval
	}

	return TelemetrySample{
		Time: t,
		Pos: Point{
			X: lerp(prev.Pos.X, next.Pos.X, f),
			Y: lerp(prev.Pos.Y, next.Pos.Y, f),
		},
		Speed:    lerp(prev.Speed, next.Speed, f),
		Throttle: lerp(prev.Throttle, next.Throttle, f),
		Brake:    lerp(prev.Brake, next.Brake, f),
		// Step/hold semantics: prev is the closest sample not later than t.
		Gear:  prev.Gear,
		DRS:   prev.DRS,
		InPit: prev.InPit,
		Lap:   prev.Lap,
	}
}

func lerp(a, b, f float64) float64 {
	return a + (b-a)*f
}
