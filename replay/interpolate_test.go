package replay

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func testSamples() []TelemetrySample {
	return []TelemetrySample{
		{Time: 0, Pos: Point{X: 0, Y: 0}, Speed: 100, Gear: 3, Throttle: 0.2, Brake: 0.8, Lap: 1},
		{Time: 10, Pos: Point{X: 10, Y: 0}, Speed: 200, Gear: 5, Throttle: 1.0, Brake: 0.0, DRS: true, Lap: 1},
		{Time: 20, Pos: Point{X: 10, Y: 10}, Speed: 150, Gear: 4, Throttle: 0.5, Brake: 0.3, InPit: true, Lap: 2},
	}
}

func TestSampleAtExactTimes(t *testing.T) {
	samples := testSamples()

	for i, want := range samples {
		got := SampleAt(samples, want.Time)
		if !almostEqual(got.Pos.X, want.Pos.X) || !almostEqual(got.Pos.Y, want.Pos.Y) {
			t.Errorf("sample %d: expected position (%f, %f), got (%f, %f)",
				i, want.Pos.X, want.Pos.Y, got.Pos.X, got.Pos.Y)
		}
		if !almostEqual(got.Speed, want.Speed) {
			t.Errorf("sample %d: expected speed %f, got %f", i, want.Speed, got.Speed)
		}
		if got.Gear != want.Gear {
			t.Errorf("sample %d: expected gear %d, got %d", i, want.Gear, got.Gear)
		}
		if got.Lap != want.Lap {
			t.Errorf("sample %d: expected lap %d, got %d", i, want.Lap, got.Lap)
		}
	}
}

func TestSampleAtMidpoint(t *testing.T) {
	samples := testSamples()

	got := SampleAt(samples, 5)
	if !almostEqual(got.Pos.X, 5) || !almostEqual(got.Pos.Y, 0) {
		t.Errorf("expected position (5, 0), got (%f, %f)", got.Pos.X, got.Pos.Y)
	}
	if !almostEqual(got.Speed, 150) {
		t.Errorf("expected speed 150, got %f", got.Speed)
	}
	if !almostEqual(got.Throttle, 0.6) {
		t.Errorf("expected throttle 0.6, got %f", got.Throttle)
	}
	if !almostEqual(got.Brake, 0.4) {
		t.Errorf("expected brake 0.4, got %f", got.Brake)
	}
}

func TestSampleAtInterpolatedValuesBounded(t *testing.T) {
	samples := testSamples()

	for _, queryTime := range []float64{0.5, 2.5, 7.1, 13.3, 19.9} {
		got := SampleAt(samples, queryTime)
		if got.Throttle < 0 || got.Throttle > 1 {
			t.Errorf("t=%f: throttle %f outside [0,1]", queryTime, got.Throttle)
		}
		if got.Brake < 0 || got.Brake > 1 {
			t.Errorf("t=%f: brake %f outside [0,1]", queryTime, got.Brake)
		}
	}
}

func TestSampleAtPositionOnSegment(t *testing.T) {
	samples := testSamples()

	// Between samples 1 and 2 the segment is vertical at x=10.
	got := SampleAt(samples, 12.5)
	if !almostEqual(got.Pos.X, 10) {
		t.Errorf("expected x 10 on segment, got %f", got.Pos.X)
	}
	if !almostEqual(got.Pos.Y, 2.5) {
		t.Errorf("expected y 2.5 on segment, got %f", got.Pos.Y)
	}
}

func TestSampleAtStepHoldDiscrete(t *testing.T) {
	samples := testSamples()

	// Strictly between samples 0 and 1: discrete fields hold sample 0.
	got := SampleAt(samples, 9.99)
	if got.Gear != 3 {
		t.Errorf("expected held gear 3, got %d", got.Gear)
	}
	if got.DRS {
		t.Error("DRS should hold false before the transition sample")
	}

	// At the transition sample the new value applies.
	got = SampleAt(samples, 10)
	if got.Gear != 5 {
		t.Errorf("expected gear 5 at transition, got %d", got.Gear)
	}
	if !got.DRS {
		t.Error("DRS should be true at the transition sample")
	}

	// Between samples 1 and 2: lap and pit flag hold sample 1.
	got = SampleAt(samples, 15)
	if got.Lap != 1 {
		t.Errorf("expected held lap 1, got %d", got.Lap)
	}
	if got.InPit {
		t.Error("in-pit flag should hold false before the pit sample")
	}
}

func TestSampleAtClampsToEndpoints(t *testing.T) {
	samples := testSamples()

	before := SampleAt(samples, -100)
	if !almostEqual(before.Pos.X, 0) || !almostEqual(before.Speed, 100) {
		t.Errorf("query before range should return the first sample, got %+v", before)
	}
	if before.Gear != 3 {
		t.Errorf("expected first sample gear 3, got %d", before.Gear)
	}

	after := SampleAt(samples, 1e9)
	if !almostEqual(after.Pos.Y, 10) || !almostEqual(after.Speed, 150) {
		t.Errorf("query after range should return the last sample, got %+v", after)
	}
	if !after.InPit {
		t.Error("expected last sample in-pit flag to be held")
	}
}

func TestSampleAtDeterministic(t *testing.T) {
	samples := testSamples()

	first := SampleAt(samples, 7.3)
	// Interleave other queries to show call order does not matter.
	SampleAt(samples, 19)
	SampleAt(samples, 0)
	second := SampleAt(samples, 7.3)

	if first != second {
		t.Errorf("identical queries diverged: %+v vs %+v", first, second)
	}
}

func TestSampleAtEmptyAndSingle(t *testing.T) {
	empty := SampleAt(nil, 5)
	if empty != (TelemetrySample{}) {
		t.Errorf("empty sequence should yield zero sample, got %+v", empty)
	}

	single := []TelemetrySample{{Time: 4, Pos: Point{X: 1, Y: 2}, Speed: 99, Gear: 2}}
	for _, queryTime := range []float64{0, 4, 100} {
		got := SampleAt(single, queryTime)
		if !almostEqual(got.Pos.X, 1) || !almostEqual(got.Speed, 99) {
			t.Errorf("t=%f: single-sample sequence should always return the sample, got %+v", queryTime, got)
		}
	}
}

func TestSampleAtTwoEntitiesScenario(t *testing.T) {
	entityA := []TelemetrySample{
		{Time: 0, Pos: Point{X: 0, Y: 0}},
		{Time: 10, Pos: Point{X: 10, Y: 0}},
	}
	entityB := []TelemetrySample{
		{Time: 0, Pos: Point{X: 0, Y: 5}},
		{Time: 10, Pos: Point{X: 10, Y: 5}},
	}

	gotA := SampleAt(entityA, 5)
	if !almostEqual(gotA.Pos.X, 5) || !almostEqual(gotA.Pos.Y, 0) {
		t.Errorf("entity A at t=5: expected (5, 0), got (%f, %f)", gotA.Pos.X, gotA.Pos.Y)
	}

	gotB := SampleAt(entityB, 5)
	if !almostEqual(gotB.Pos.X, 5) || !almostEqual(gotB.Pos.Y, 5) {
		t.Errorf("entity B at t=5: expected (5, 5), got (%f, %f)", gotB.Pos.X, gotB.Pos.Y)
	}
}
