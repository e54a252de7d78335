package booth

import (
	"context"
	"math"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kozaktomas/photo-booth/internal/constants"
	"github.com/kozaktomas/photo-booth/internal/database"
)

// Transform is the pan and zoom applied to a photo inside its cell.
// X and Y are offsets in cell pixels.
type Transform struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// DefaultTransform is the state of an unedited photo.
func DefaultTransform() Transform {
	return Transform{Zoom: constants.DefaultZoom}
}

// EditState is the transient edit of one photo.
type EditState struct {
	Transform
	Dirty bool `json:"dirty"`
}

type editEntry struct {
	state   EditState
	version uint64
}

// ClampZoom bounds z to the allowed zoom range. NaN becomes the default.
func ClampZoom(z float64) float64 {
	if math.IsNaN(z) {
		return constants.DefaultZoom
	}
	return math.Min(constants.MaxZoom, math.Max(constants.MinZoom, z))
}

func stepZoom(z, delta float64) float64 {
	return ClampZoom(math.Round((z+delta)*10) / 10)
}

// EditTracker keeps per-photo pan and zoom state and persists the zoom on
// explicit save.
type EditTracker struct {
	store database.PhotoWriter
	log   zerolog.Logger

	mu      sync.Mutex
	entries map[string]*editEntry
}

// NewEditTracker creates an empty tracker.
func NewEditTracker(store database.PhotoWriter, log zerolog.Logger) *EditTracker {
	return &EditTracker{
		store:   store,
		log:     log.With().Str("component", "edits").Logger(),
		entries: make(map[string]*editEntry),
	}
}

func (t *EditTracker) entryLocked(id string) *editEntry {
	e, ok := t.entries[id]
	if !ok {
		e = &editEntry{state: EditState{Transform: DefaultTransform()}}
		t.entries[id] = e
	}
	return e
}

// Seed starts tracking photo with its persisted scale. Photos already
// tracked keep their state.
func (t *EditTracker) Seed(photo database.Photo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[photo.ID]; ok {
		return
	}
	zoom := photo.Scale
	if zoom == 0 {
		zoom = constants.DefaultZoom
	}
	t.entries[photo.ID] = &editEntry{state: EditState{Transform: Transform{Zoom: ClampZoom(zoom)}}}
}

// State returns the edit state of id. Untracked photos report the default.
func (t *EditTracker) State(id string) EditState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[id]; ok {
		return e.state
	}
	return EditState{Transform: DefaultTransform()}
}

// States returns a copy of every tracked state.
func (t *EditTracker) States() map[string]EditState {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]EditState, len(t.entries))
	for id, e := range t.entries {
		out[id] = e.state
	}
	return out
}

func (t *EditTracker) update(id string, fn func(*Transform)) EditState {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.entryLocked(id)
	fn(&e.state.Transform)
	e.state.Zoom = ClampZoom(e.state.Zoom)
	e.state.Dirty = true
	e.version++
	return e.state
}

// OnTransformChange replaces the transform of id and marks it dirty.
func (t *EditTracker) OnTransformChange(id string, tr Transform) EditState {
	return t.update(id, func(cur *Transform) { *cur = tr })
}

// ZoomIn raises the zoom of id by one step.
func (t *EditTracker) ZoomIn(id string) EditState {
	return t.update(id, func(cur *Transform) { cur.Zoom = stepZoom(cur.Zoom, constants.ZoomStep) })
}

// ZoomOut lowers the zoom of id by one step.
func (t *EditTracker) ZoomOut(id string) EditState {
	return t.update(id, func(cur *Transform) { cur.Zoom = stepZoom(cur.Zoom, -constants.ZoomStep) })
}

// Reset puts id back to the default transform and marks it dirty.
func (t *EditTracker) Reset(id string) EditState {
	return t.update(id, func(cur *Transform) { *cur = DefaultTransform() })
}

// Save persists the zoom of id as the photo scale. On success the dirty flag
// is cleared unless the state changed while the write was in flight. On
// failure the photo stays dirty.
func (t *EditTracker) Save(ctx context.Context, id string) error {
	t.mu.Lock()
	e := t.entryLocked(id)
	zoom := e.state.Zoom
	version := e.version
	t.mu.Unlock()

	n, err := t.store.UpdateByIDs(ctx, []string{id}, database.PhotoPatch{Scale: &zoom})
	if err == nil && n == 0 {
		err = database.ErrPhotoNotFound
	}
	if err != nil {
		t.log.Warn().Err(err).Str("photo_id", id).Msg("Failed to save photo edit")
		return &PersistenceError{Op: "save", PhotoIDs: []string{id}, Err: err}
	}

	t.mu.Lock()
	if cur, ok := t.entries[id]; ok && cur.version == version {
		cur.state.Dirty = false
	}
	t.mu.Unlock()
	return nil
}

// DirtyIDs returns the ids with unsaved changes, sorted.
func (t *EditTracker) DirtyIDs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var ids []string
	for id, e := range t.entries {
		if e.state.Dirty {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Forget drops the state of ids.
func (t *EditTracker) Forget(ids ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range ids {
		delete(t.entries, id)
	}
}

// Clear drops every tracked state.
func (t *EditTracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.entries)
}
