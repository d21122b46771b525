package replay

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log"
	"math"
	"os"
	"sort"

	"github.com/google/uuid"
)

// Store holds one normalized session dataset: the entity set, each
// entity's sample sequence, the static track layout, and the global time
// range. Immutable once built; a new load produces a new Store.
type Store struct {
	SessionKey  string
	SessionName string
	Generation  string // fresh per load, used to keep swaps atomic
	TotalLaps   int

	entities []Entity
	samples  map[string][]TelemetrySample
	track    []Point

	timeRange TimeRange
	bounds    Bounds
}

// Bounds is an axis-aligned domain-space bounding box.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// Width returns the horizontal extent of the box.
func (b Bounds) Width() float64 { return b.MaxX - b.MinX }

// Height returns the vertical extent of the box.
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// ReadDatasetFile reads and parses a session dataset from a JSON file.
func ReadDatasetFile(filename string) (*Store, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file %s: %v", filename, err)
	}
	store, err := ParseDataset(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset file %s: %w", filename, err)
	}
	return store, nil
}

// ParseDataset parses a raw JSON session payload into a Store.
func ParseDataset(data []byte) (*Store, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %v", err)
	}
	return NewStore(payload)
}

// NewStore normalizes a decoded session payload. Field coercion is
// permissive: missing or non-numeric values default to zero, booleans
// follow truthiness. Samples with non-finite time or position are dropped
// with a warning, as are entities left with no valid samples. Returns
// ErrLoadFailure when nothing usable survives; the caller keeps its
// previous store in that case.
func NewStore(payload map[string]interface{}) (*Store, error) {
	if payload == nil {
		return nil, fmt.Errorf("%w: empty payload", ErrLoadFailure)
	}

	store := &Store{
		SessionKey:  asString(payload["session_key"]),
		SessionName: asString(payload["session_name"]),
		Generation:  uuid.NewString(),
		TotalLaps:   asInt(payload["total_laps"]),
		samples:     make(map[string][]TelemetrySample),
	}

	rawDrivers, ok := payload["drivers"].(map[string]interface{})
	if !ok || len(rawDrivers) == 0 {
		return nil, fmt.Errorf("%w: no drivers in payload", ErrLoadFailure)
	}

	for id, raw := range rawDrivers {
		record, ok := raw.(map[string]interface{})
		if !ok {
			log.Printf("warning: dropping entity %s: malformed record", id)
			continue
		}

		entity := Entity{
			ID:           id,
			Code:         asString(record["code"]),
			Name:         asString(record["name"]),
			Number:       asInt(record["number"]),
			Team:         asString(record["team"]),
			Color:        asString(record["color"]),
			GridPosition: asInt(record["grid_position"]),
		}
		if entity.Code == "" {
			entity.Code = id
		}
		if entity.Name == "" {
			entity.Name = "DRV" + id
		}
		if entity.Color == "" {
			entity.Color = fallbackColor(id)
		}

		samples := normalizeSamples(id, record["telemetry"])
		if len(samples) == 0 {
			log.Printf("warning: dropping entity %s (%s): no valid samples", id, entity.Code)
			continue
		}

		store.entities = append(store.entities, entity)
		store.samples[id] = samples
	}

	if len(store.entities) == 0 {
		return nil, fmt.Errorf("%w: all entities dropped during normalization", ErrLoadFailure)
	}

	sort.Slice(store.entities, func(i, j int) bool {
		return store.entities[i].ID < store.entities[j].ID
	})

	store.track = parseTrack(payload["track"])
	store.computeTimeRange()
	store.computeBounds()

	if store.TotalLaps == 0 {
		store.TotalLaps = store.maxLap()
	}

	return store, nil
}

// Entities returns the surviving entity set, sorted by identifier.
func (s *Store) Entities() []Entity {
	return s.entities
}

// Samples returns one entity's normalized sample sequence, sorted by time.
func (s *Store) Samples(id string) []TelemetrySample {
	return s.samples[id]
}

// Track returns the static layout polyline, possibly empty.
func (s *Store) Track() []Point {
	return s.track
}

// TimeRange returns the global playback bounds.
func (s *Store) TimeRange() TimeRange {
	return s.timeRange
}

// DomainBounds returns the bounding box of all sample positions and the
// track layout, used to derive the viewport projection.
func (s *Store) DomainBounds() Bounds {
	return s.bounds
}

// normalizeSamples coerces, filters, sorts, and de-duplicates one
// entity's raw telemetry list.
func normalizeSamples(id string, raw interface{}) []TelemetrySample {
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}

	samples := make([]TelemetrySample, 0, len(list))
	dropped := 0
	for _, item := range list {
		point, ok := item.(map[string]interface{})
		if !ok {
			dropped++
			continue
		}

		sample := TelemetrySample{
			Time:     asFloat(point["time"]),
			Pos:      Point{X: asFloat(point["x"]), Y: asFloat(point["y"])},
			Speed:    asFloat(point["speed"]),
			Gear:     asInt(point["gear"]),
			Throttle: clamp01(asFloat(point["throttle"])),
			Brake:    clamp01(asFloat(point["brake"])),
			DRS:      asBool(point["drs"]),
			InPit:    asBool(point["in_pit"]),
			Lap:      asInt(point["lapNumber"]),
		}

		if !isFinite(sample.Time) || !isFinite(sample.Pos.X) || !isFinite(sample.Pos.Y) {
			dropped++
			continue
		}

		samples = append(samples, sample)
	}

	if dropped > 0 {
		log.Printf("warning: entity %s: dropped %d malformed samples", id, dropped)
	}

	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Time < samples[j].Time
	})

	// De-duplicate exact time ties, keeping the first occurrence.
	deduped := samples[:0]
	for i, sample := range samples {
		if i > 0 && sample.Time == deduped[len(deduped)-1].Time {
			continue
		}
		deduped = append(deduped, sample)
	}

	return deduped
}

func parseTrack(raw interface{}) []Point {
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	points := make([]Point, 0, len(list))
	for _, item := range list {
		coords, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		p := Point{X: asFloat(coords["x"]), Y: asFloat(coords["y"])}
		if !isFinite(p.X) || !isFinite(p.Y) {
			continue
		}
		points = append(points, p)
	}
	return points
}

func (s *Store) computeTimeRange() {
	first := true
	for _, samples := range s.samples {
		start := samples[0].Time
		end := samples[len(samples)-1].Time
		if first {
			s.timeRange = TimeRange{Start: start, End: end}
			first = false
			continue
		}
		if start < s.timeRange.Start {
			s.timeRange.Start = start
		}
		if end > s.timeRange.End {
			s.timeRange.End = end
		}
	}
}

func (s *Store) computeBounds() {
	bounds := Bounds{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
	extend := func(p Point) {
		bounds.MinX = math.Min(bounds.MinX, p.X)
		bounds.MinY = math.Min(bounds.MinY, p.Y)
		bounds.MaxX = math.Max(bounds.MaxX, p.X)
		bounds.MaxY = math.Max(bounds.MaxY, p.Y)
	}
	for _, samples := range s.samples {
		for _, sample := range samples {
			extend(sample.Pos)
		}
	}
	for _, p := range s.track {
		extend(p)
	}
	s.bounds = bounds
}

func (s *Store) maxLap() int {
	max := 0
	for _, samples := range s.samples {
		last := samples[len(samples)-1]
		if last.Lap > max {
			max = last.Lap
		}
	}
	return max
}

// fallbackColor derives a stable display color from the entity
// identifier so repeated loads of the same dataset look the same.
func fallbackColor(id string) string {
	h := fnv.New32a()
	h.Write([]byte(id))
	hue := float64(h.Sum32() % 360)
	r, g, b := hslToRGB(hue/360.0, 0.70, 0.55)
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

func hslToRGB(h, s, l float64) (uint8, uint8, uint8) {
	if s == 0 {
		v := uint8(math.Round(l * 255))
		return v, v, v
	}
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	r := hueToChannel(p, q, h+1.0/3.0)
	g := hueToChannel(p, q, h)
	b := hueToChannel(p, q, h-1.0/3.0)
	return uint8(math.Round(r * 255)), uint8(math.Round(g * 255)), uint8(math.Round(b * 255))
}

func hueToChannel(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	default:
		return p
	}
}

// Coercion helpers. The upstream payload is duck-typed; every field is
// coerced exactly once here so downstream code sees fixed types.

func asFloat(v interface{}) float64 {
	switch value := v.(type) {
	case float64:
		return value
	case int:
		return float64(value)
	case json.Number:
		f, err := value.Float64()
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func asInt(v interface{}) int {
	return int(asFloat(v))
}

func asBool(v interface{}) bool {
	switch value := v.(type) {
	case bool:
		return value
	case float64:
		return value != 0
	case string:
		return value != "" && value != "false" && value != "0"
	default:
		return false
	}
}

func asString(v interface{}) string {
	switch value := v.(type) {
	case string:
		return value
	case float64:
		if value == math.Trunc(value) {
			return fmt.Sprintf("%d", int64(value))
		}
		return fmt.Sprintf("%g", value)
	default:
		return ""
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
