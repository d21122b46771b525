package replay

import "sort"

// Trail is a fixed-capacity ring buffer of recent viewport positions.
// When full, appending evicts the oldest point.
type Trail struct {
	points []Point
	head   int
	count  int
}

// NewTrail creates a trail holding at most capacity points.
func NewTrail(capacity int) *Trail {
	if capacity < 1 {
		capacity = 1
	}
	return &Trail{points: make([]Point, capacity)}
}

// Append records one point, evicting the oldest when full.
func (t *Trail) Append(p Point) {
	t.points[(t.head+t.count)%len(t.points)] = p
	if t.count < len(t.points) {
		t.count++
	} else {
		t.head = (t.head + 1) % len(t.points)
	}
}

// Len returns the number of stored points.
func (t *Trail) Len() int {
	return t.count
}

// Points returns the stored points oldest-first.
func (t *Trail) Points() []Point {
	out := make([]Point, t.count)
	for i := 0; i < t.count; i++ {
		out[i] = t.points[(t.head+i)%len(t.points)]
	}
	return out
}

// Reset empties the trail without reallocating.
func (t *Trail) Reset() {
	t.head = 0
	t.count = 0
}

// entityState is the mutable per-entity animation record.
type entityState struct {
	entity  Entity
	pos     Point // viewport coordinates
	trail   *Trail
	last    TelemetrySample
	lap     int
	inPit   bool
	updated bool
}

// Animator owns all per-entity animation state and derives the live
// standings. It references entities from the Store but never mutates
// them. Not safe for concurrent use; the orchestrator serializes access.
type Animator struct {
	states      map[string]*entityState
	order       []string // entity IDs in registration order
	trailLength int
	final       []FinalResult
}

// NewAnimator creates an animator with the given trail capacity.
func NewAnimator(trailLength int) *Animator {
	if trailLength < 1 {
		trailLength = 1
	}
	return &Animator{
		states:      make(map[string]*entityState),
		trailLength: trailLength,
	}
}

// Initialize registers the entity set, discarding every previous state
// including any final-results override.
func (a *Animator) Initialize(entities []Entity) {
	a.states = make(map[string]*entityState, len(entities))
	a.order = a.order[:0]
	a.final = nil
	for _, entity := range entities {
		a.states[entity.ID] = &entityState{
			entity: entity,
			trail:  NewTrail(a.trailLength),
		}
		a.order = append(a.order, entity.ID)
	}
}

// Update applies an interpolated sample to one entity: projects its
// position, extends the trail, and records the latest telemetry.
func (a *Animator) Update(id string, sample TelemetrySample, projector *Projector) {
	state, ok := a.states[id]
	if !ok {
		return
	}
	state.pos = projector.Project(sample.Pos)
	state.trail.Append(state.pos)
	state.last = sample
	state.lap = sample.Lap
	state.inPit = sample.InPit
	state.updated = true
}

// Reset clears all trails and positions while keeping entity identity,
// metadata, and any final-results override. Called on rewind and seek.
func (a *Animator) Reset() {
	for _, state := range a.states {
		state.trail.Reset()
		state.pos = Point{}
		state.last = TelemetrySample{}
		state.lap = 0
		state.inPit = false
		state.updated = false
	}
}

// Position returns an entity's current viewport position.
func (a *Animator) Position(id string) (Point, bool) {
	state, ok := a.states[id]
	if !ok || !state.updated {
		return Point{}, false
	}
	return state.pos, true
}

// TrailPoints returns an entity's trail oldest-first.
func (a *Animator) TrailPoints(id string) []Point {
	state, ok := a.states[id]
	if !ok {
		return nil
	}
	return state.trail.Points()
}

// Last returns the most recently applied sample for an entity.
func (a *Animator) Last(id string) (TelemetrySample, bool) {
	state, ok := a.states[id]
	if !ok || !state.updated {
		return TelemetrySample{}, false
	}
	return state.last, true
}

// SetFinalResults installs an authoritative finishing order. Once set,
// Standings prefers it over the live computation until the next
// Initialize.
func (a *Animator) SetFinalResults(results []FinalResult) {
	if len(results) == 0 {
		return
	}
	sorted := make([]FinalResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Position < sorted[j].Position
	})
	a.final = sorted
}

// HasFinalResults reports whether an authoritative order is installed.
func (a *Animator) HasFinalResults() bool {
	return len(a.final) > 0
}

// Standings returns the current ranking with dense ranks 1..N. The live
// computation orders by lap number descending, then projected horizontal
// position descending as a lap-progress proxy. True arc-length progress
// along the track would be the correct tie-break; horizontal position is
// only reliable for simple layouts. When final results are installed
// they take precedence.
func (a *Animator) Standings() []Standing {
	if len(a.final) > 0 {
		return a.finalStandings()
	}

	type row struct {
		id  string
		lap int
		x   float64
	}
	rows := make([]row, 0, len(a.order))
	for _, id := range a.order {
		state := a.states[id]
		rows = append(rows, row{id: id, lap: state.lap, x: state.pos.X})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].lap != rows[j].lap {
			return rows[i].lap > rows[j].lap
		}
		return rows[i].x > rows[j].x
	})

	standings := make([]Standing, len(rows))
	for i, r := range rows {
		state := a.states[r.id]
		standings[i] = Standing{
			Rank:     i + 1,
			EntityID: r.id,
			Code:     state.entity.Code,
			Color:    state.entity.Color,
			Lap:      r.lap,
		}
	}
	return standings
}

func (a *Animator) finalStandings() []Standing {
	standings := make([]Standing, 0, len(a.final))
	for _, result := range a.final {
		standing := Standing{
			Rank:     len(standings) + 1,
			EntityID: result.EntityID,
			Lap:      result.FinishingLap,
			Final:    true,
		}
		if state, ok := a.states[result.EntityID]; ok {
			standing.Code = state.entity.Code
			standing.Color = state.entity.Color
		}
		standings = append(standings, standing)
	}
	return standings
}
