package replay

import "testing"

func TestProjectorCentersBounds(t *testing.T) {
	bounds := Bounds{MinX: 0, MinY: 0, MaxX: 100, MaxY: 50}
	projector := NewProjector(bounds, 1000, 700, 0, 0, 0)

	center := projector.Project(Point{X: 50, Y: 25})
	if !almostEqual(center.X, 500) || !almostEqual(center.Y, 350) {
		t.Errorf("Domain center should map to viewport center, got (%f, %f)", center.X, center.Y)
	}
}

func TestProjectorIsotropicScale(t *testing.T) {
	// A wide flat domain: the horizontal axis must set the scale so the
	// shape is not stretched vertically.
	bounds := Bounds{MinX: 0, MinY: 0, MaxX: 1000, MaxY: 10}
	projector := NewProjector(bounds, 500, 500, 0, 0, 0)

	if !almostEqual(projector.Scale(), 0.5) {
		t.Errorf("Expected scale 0.5, got %f", projector.Scale())
	}

	a := projector.Project(Point{X: 0, Y: 0})
	b := projector.Project(Point{X: 1000, Y: 0})
	c := projector.Project(Point{X: 0, Y: 10})

	if !almostEqual(b.X-a.X, 500) {
		t.Errorf("Expected horizontal span 500, got %f", b.X-a.X)
	}
	if !almostEqual(a.Y-c.Y, 5) {
		t.Errorf("Expected vertical span 5 under uniform scale, got %f", a.Y-c.Y)
	}
}

func TestProjectorFlipsVerticalAxis(t *testing.T) {
	bounds := Bounds{MinX: -10, MinY: -10, MaxX: 10, MaxY: 10}
	projector := NewProjector(bounds, 200, 200, 0, 0, 0)

	low := projector.Project(Point{X: 0, Y: -10})
	high := projector.Project(Point{X: 0, Y: 10})
	if high.Y >= low.Y {
		t.Errorf("Higher domain Y should render higher on screen (smaller pixel Y): low=%f high=%f", low.Y, high.Y)
	}
}

func TestProjectorMarginAndOffset(t *testing.T) {
	bounds := Bounds{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100}
	projector := NewProjector(bounds, 200, 200, 50, 0, 0)

	// 200px viewport minus 2*50 margin leaves 100px for a 100-unit box.
	if !almostEqual(projector.Scale(), 1.0) {
		t.Errorf("Expected scale 1.0 with margin applied, got %f", projector.Scale())
	}

	shifted := NewProjector(bounds, 200, 200, 50, 30, -20)
	base := projector.Project(Point{X: 10, Y: 10})
	moved := shifted.Project(Point{X: 10, Y: 10})
	if !almostEqual(moved.X-base.X, 30) || !almostEqual(moved.Y-base.Y, -20) {
		t.Errorf("Framing offset not applied: delta (%f, %f)", moved.X-base.X, moved.Y-base.Y)
	}
}

func TestProjectorStableAcrossCalls(t *testing.T) {
	bounds := Bounds{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100}
	projector := NewProjector(bounds, 300, 300, 10, 0, 0)

	point := Point{X: 33.3, Y: 66.6}
	first := projector.Project(point)
	for i := 0; i < 100; i++ {
		projector.Project(Point{X: float64(i), Y: float64(i)})
	}
	second := projector.Project(point)
	if first != second {
		t.Errorf("Projection must be stable across frames: %+v vs %+v", first, second)
	}
}

func TestProjectorDegenerateBounds(t *testing.T) {
	// All entities at one point: scale falls back without dividing by zero.
	bounds := Bounds{MinX: 5, MinY: 5, MaxX: 5, MaxY: 5}
	projector := NewProjector(bounds, 400, 400, 20, 0, 0)

	got := projector.Project(Point{X: 5, Y: 5})
	if !almostEqual(got.X, 200) || !almostEqual(got.Y, 200) {
		t.Errorf("Degenerate bounds should center the single point, got (%f, %f)", got.X, got.Y)
	}
}

func TestProjectAll(t *testing.T) {
	bounds := Bounds{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}
	projector := NewProjector(bounds, 100, 100, 0, 0, 0)

	points := []Point{{X: 0, Y: 0}, {X: 10, Y: 10}}
	projected := projector.ProjectAll(points)
	if len(projected) != 2 {
		t.Fatalf("Expected 2 projected points, got %d", len(projected))
	}
	for i, p := range points {
		if projector.Project(p) != projected[i] {
			t.Errorf("ProjectAll disagrees with Project at index %d", i)
		}
	}
}
