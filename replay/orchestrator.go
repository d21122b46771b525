package replay

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Surface is the drawing target for one frame. The engine owns the only
// reference and drives exactly one redraw sequence per frame:
// Begin, DrawLayout, then per entity trail/marker/label/readout, Present.
// Implementations decide what "drawing" means (a canvas protocol, a text
// feed, a test recorder).
type Surface interface {
	Begin(width, height float64)
	DrawLayout(points []Point)
	DrawTrail(entity Entity, points []Point)
	DrawMarker(entity Entity, pos Point, sample TelemetrySample)
	DrawLabel(entity Entity, pos Point)
	DrawReadout(readout EntityReadout)
	Present()
}

// Presenter receives derived statistics once per frame. The engine pushes
// explicit updates; it never shares mutable state with the presentation
// layer.
type Presenter interface {
	UpdateFrame(stats FrameStats)
	PlaybackFinished(stats FrameStats)
}

// Status describes the engine for control-surface queries.
type Status struct {
	Running     bool       `json:"running"`
	SessionKey  string     `json:"session_key"`
	SessionName string     `json:"session_name"`
	Generation  string     `json:"generation"`
	Entities    int        `json:"entities"`
	TimeRange   TimeRange  `json:"time_range"`
	Frame       FrameStats `json:"frame"`
}

// Engine is the playback orchestrator: it owns the frame loop and wires
// the store, controller, animator, and projector together. One frame
// callback is in flight at a time; every control method serializes
// through the engine mutex.
type Engine struct {
	mu         sync.Mutex
	config     Config
	store      *Store
	controller *Controller
	animator   *Animator
	projector  *Projector
	surface    Surface
	presenter  Presenter

	running   bool
	finished  bool // the loop stopped itself at the end of the range
	ctx       context.Context
	cancel    context.CancelFunc
	ticker    *time.Ticker
	lastFrame time.Time

	// Frame rate measurement over a sliding one-second window.
	fpsWindow time.Time
	fpsFrames int
	fps       float64
}

// NewEngine creates an engine with no dataset loaded.
func NewEngine(config Config) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		config:   config,
		animator: NewAnimator(config.TrailLength),
	}, nil
}

// SetSurface installs the drawing surface. A nil surface disables the
// redraw stage without affecting playback or statistics.
func (e *Engine) SetSurface(surface Surface) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.surface = surface
}

// SetPresenter installs the presentation adapter.
func (e *Engine) SetPresenter(presenter Presenter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.presenter = presenter
}

// LoadDataset atomically swaps in a new dataset: the store, controller,
// animator state, and projector are replaced together, so no component
// ever observes a mixed generation. On failure the previous dataset
// stays live.
func (e *Engine) LoadDataset(store *Store) error {
	if store == nil {
		return fmt.Errorf("%w: nil store", ErrLoadFailure)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.store = store
	e.controller = NewController(store.TimeRange(), e.config.Speed)
	e.animator.Initialize(store.Entities())
	e.projector = NewProjector(store.DomainBounds(),
		e.config.ViewportWidth, e.config.ViewportHeight,
		e.config.Margin, e.config.OffsetX, e.config.OffsetY)
	e.fpsWindow = time.Time{}
	e.fpsFrames = 0
	e.fps = 0

	e.applyCurrentTimeLocked()
	e.renderLocked()
	return nil
}

// Start launches the frame loop.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return ErrPlaybackAlreadyRunning
	}
	if e.store == nil {
		return ErrNoDataset
	}
	e.startLocked()
	return nil
}

func (e *Engine) startLocked() {
	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.ticker = time.NewTicker(e.config.FrameRate)
	e.running = true
	e.finished = false
	e.lastFrame = time.Now()
	go e.run(e.ctx, e.ticker)
}

// Stop halts the frame loop. Playback state is preserved, so a later
// Start resumes from the same position.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return ErrPlaybackNotRunning
	}
	e.cancel()
	e.ticker.Stop()
	e.running = false
	return nil
}

// Running reports whether the frame loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Play begins or resumes playback. When the frame loop stopped itself
// at the end of a pass, Play relaunches it, so rewind-then-play replays
// a finished session without a reload. An explicit Stop still requires
// Start.
func (e *Engine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.controller == nil {
		return ErrNoDataset
	}
	e.controller.Play()
	if !e.running && e.finished {
		e.startLocked()
	}
	return nil
}

// Pause freezes playback at the current domain time. Idempotent.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.controller == nil {
		return ErrNoDataset
	}
	e.controller.Pause()
	return nil
}

// Rewind returns to the start of the range, pauses, and clears all
// trails.
func (e *Engine) Rewind() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.controller == nil {
		return ErrNoDataset
	}
	e.controller.Rewind()
	e.animator.Reset()
	e.applyCurrentTimeLocked()
	e.renderLocked()
	return nil
}

// SetSpeed updates the playback speed multiplier.
func (e *Engine) SetSpeed(speed float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.controller == nil {
		return ErrNoDataset
	}
	return e.controller.SetSpeed(speed)
}

// SeekTo jumps to a position given as a percentage of the total
// duration. Trails are cleared; play state is unchanged. Accepted
// immediately in either state and idempotent.
func (e *Engine) SeekTo(percent float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.controller == nil {
		return ErrNoDataset
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	r := e.controller.Range()
	e.controller.SeekTo(r.Start + r.Duration()*percent/100)
	e.animator.Reset()
	e.applyCurrentTimeLocked()
	e.renderLocked()
	return nil
}

// Resize rebuilds the projector for a new viewport size and forces one
// redraw without advancing playback. Trails are cleared because their
// stored viewport points no longer correspond to domain positions under
// the new transform.
func (e *Engine) Resize(width, height float64) error {
	if width <= 0 || height <= 0 {
		return ErrInvalidViewport
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.config.ViewportWidth = width
	e.config.ViewportHeight = height
	if e.store == nil {
		return nil
	}
	e.projector = NewProjector(e.store.DomainBounds(), width, height,
		e.config.Margin, e.config.OffsetX, e.config.OffsetY)
	e.animator.Reset()
	e.applyCurrentTimeLocked()
	e.renderLocked()
	return nil
}

// SetFinalResults installs an authoritative finishing order, normally
// called from a results-fetch completion. The generation must match the
// currently loaded dataset; a stale result is ignored.
func (e *Engine) SetFinalResults(generation string, results []FinalResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.store == nil || e.store.Generation != generation {
		return
	}
	e.animator.SetFinalResults(results)
}

// Status returns a control-surface snapshot.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	status := Status{Running: e.running}
	if e.store != nil {
		status.SessionKey = e.store.SessionKey
		status.SessionName = e.store.SessionName
		status.Generation = e.store.Generation
		status.Entities = len(e.store.Entities())
		status.TimeRange = e.store.TimeRange()
		status.Frame = e.statsLocked()
	}
	return status
}

// Entities returns the loaded entity set, or nil before a load.
func (e *Engine) Entities() []Entity {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.store == nil {
		return nil
	}
	return e.store.Entities()
}

// Layout returns the track polyline in viewport coordinates.
func (e *Engine) Layout() []Point {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.store == nil || e.projector == nil {
		return nil
	}
	return e.projector.ProjectAll(e.store.Track())
}

// run is the frame loop. Exactly one frame is in flight at a time. The
// context and ticker are passed in so a relaunch never races a previous
// loop goroutine that is still winding down.
func (e *Engine) run(ctx context.Context, ticker *time.Ticker) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !e.frame() {
				return
			}
		}
	}
}

// frame executes one loop iteration and reports whether the loop should
// keep running.
func (e *Engine) frame() bool {
	e.mu.Lock()

	now := time.Now()
	wallDelta := now.Sub(e.lastFrame)
	e.lastFrame = now

	keepGoing := e.controller.Tick(wallDelta)
	if !keepGoing && e.config.Loop {
		// Wrap before rendering so the frame shows the fresh pass, not a
		// blank reset.
		e.controller.Rewind()
		e.animator.Reset()
		e.controller.Play()
		keepGoing = true
	}
	e.applyCurrentTimeLocked()
	e.renderLocked()
	e.countFrameLocked(now)

	stats := e.statsLocked()
	presenter := e.presenter
	if !keepGoing {
		if e.ticker != nil {
			e.ticker.Stop()
		}
		e.running = false
		e.finished = true
		if e.cancel != nil {
			e.cancel()
		}
	}
	e.mu.Unlock()

	if presenter != nil {
		presenter.UpdateFrame(stats)
		if !keepGoing {
			presenter.PlaybackFinished(stats)
		}
	}
	return keepGoing
}

// applyCurrentTimeLocked updates every entity from state interpolated at
// the same domain time, so no entity renders ahead of another.
func (e *Engine) applyCurrentTimeLocked() {
	if e.store == nil {
		return
	}
	t := e.controller.Current()
	for _, entity := range e.store.Entities() {
		sample := SampleAt(e.store.Samples(entity.ID), t)
		e.animator.Update(entity.ID, sample, e.projector)
	}
}

// renderLocked drives one full redraw through the surface.
func (e *Engine) renderLocked() {
	if e.surface == nil || e.store == nil {
		return
	}

	e.surface.Begin(e.config.ViewportWidth, e.config.ViewportHeight)
	e.surface.DrawLayout(e.projector.ProjectAll(e.store.Track()))
	for _, entity := range e.store.Entities() {
		pos, ok := e.animator.Position(entity.ID)
		if !ok {
			continue
		}
		sample, _ := e.animator.Last(entity.ID)
		e.surface.DrawTrail(entity, e.animator.TrailPoints(entity.ID))
		e.surface.DrawMarker(entity, pos, sample)
		e.surface.DrawLabel(entity, pos)
		e.surface.DrawReadout(e.readoutLocked(entity))
	}
	e.surface.Present()
}

func (e *Engine) countFrameLocked(now time.Time) {
	if e.fpsWindow.IsZero() {
		e.fpsWindow = now
	}
	e.fpsFrames++
	if elapsed := now.Sub(e.fpsWindow); elapsed >= time.Second {
		e.fps = float64(e.fpsFrames) / elapsed.Seconds()
		e.fpsWindow = now
		e.fpsFrames = 0
	}
}

func (e *Engine) statsLocked() FrameStats {
	if e.controller == nil {
		return FrameStats{}
	}

	r := e.controller.Range()
	elapsed := e.controller.Current() - r.Start
	stats := FrameStats{
		Time:      e.controller.Current(),
		Clock:     fmt.Sprintf("%s/%s", formatClock(elapsed), formatClock(r.Duration())),
		Progress:  e.controller.Progress(),
		Speed:     e.controller.Speed(),
		Playing:   e.controller.Playing(),
		FPS:       e.fps,
		Standings: e.animator.Standings(),
		Timestamp: time.Now(),
	}
	for _, entity := range e.store.Entities() {
		stats.Readouts = append(stats.Readouts, e.readoutLocked(entity))
	}
	return stats
}

func (e *Engine) readoutLocked(entity Entity) EntityReadout {
	readout := EntityReadout{
		EntityID:  entity.ID,
		Code:      entity.Code,
		Color:     entity.Color,
		TotalLaps: e.store.TotalLaps,
	}
	sample, ok := e.animator.Last(entity.ID)
	if !ok {
		return readout
	}
	pos, _ := e.animator.Position(entity.ID)
	readout.Speed = sample.Speed
	readout.Gear = sample.Gear
	readout.Throttle = int(sample.Throttle*100 + 0.5)
	readout.Brake = int(sample.Brake*100 + 0.5)
	readout.Lap = sample.Lap
	readout.DRS = sample.DRS
	readout.InPit = sample.InPit
	readout.Pos = pos
	return readout
}

// formatClock renders seconds as mm:ss (or h:mm:ss past an hour).
func formatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds + 0.5)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// warnf logs unless the engine was configured quiet.
func (e *Engine) warnf(format string, args ...interface{}) {
	if e.config.Quiet {
		return
	}
	log.Printf("warning: "+format, args...)
}
