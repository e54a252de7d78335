// Package booth is the photo template engine: it places incoming photos into a
// 9-slot grid, tracks per-photo edits and drives the print handoff.
package booth

import (
	"context"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kozaktomas/photo-booth/internal/constants"
	"github.com/kozaktomas/photo-booth/internal/database"
)

// Slot is one position of the template grid. Duplicate marks a display-only
// copy of a photo that also occupies another slot.
type Slot struct {
	Photo     *database.Photo `json:"photo"`
	Duplicate bool            `json:"duplicate,omitempty"`
}

// Empty reports whether nothing occupies the slot.
func (s Slot) Empty() bool {
	return s.Photo == nil
}

// FilledSlot is an occupied slot together with its grid index.
type FilledSlot struct {
	Index     int            `json:"index"`
	Photo     database.Photo `json:"photo"`
	Duplicate bool           `json:"duplicate,omitempty"`
}

// Manager owns the 9-slot grid of one template owner.
type Manager struct {
	store database.PhotoWriter
	log   zerolog.Logger

	mu         sync.Mutex
	ownerID    string
	generation uint64
	processed  *ProcessedSet
	slots      [constants.SlotCount]Slot
	held       bool
	onChange   func()
}

// NewManager creates a manager with no owner.
func NewManager(store database.PhotoWriter, log zerolog.Logger) *Manager {
	return &Manager{
		store: store,
		log:   log.With().Str("component", "slots").Logger(),
	}
}

// SetListener registers fn to be called after every slot change.
// fn runs without the manager lock held.
func (m *Manager) SetListener(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

func (m *Manager) notify() {
	m.mu.Lock()
	fn := m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Initialize resets the grid to 9 empty slots for ownerID. processed is the
// already-loaded set for the same owner; nil means an empty in-memory set.
func (m *Manager) Initialize(ownerID string, processed *ProcessedSet) {
	m.mu.Lock()
	m.ownerID = ownerID
	m.generation++
	m.processed = processed
	m.slots = [constants.SlotCount]Slot{}
	m.held = false
	m.mu.Unlock()
	m.notify()
}

// Generation changes on every Initialize.
func (m *Manager) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// OwnerID returns the owner the grid currently belongs to.
func (m *Manager) OwnerID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ownerID
}

// Slots returns a copy of the grid.
func (m *Manager) Slots() []Slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Slot, len(m.slots))
	for i, s := range m.slots {
		out[i] = Slot{Duplicate: s.Duplicate}
		if s.Photo != nil {
			p := *s.Photo
			out[i].Photo = &p
		}
	}
	return out
}

// FilledSlots returns the occupied slots in index order.
func (m *Manager) FilledSlots() []FilledSlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []FilledSlot
	for i, s := range m.slots {
		if s.Photo != nil {
			out = append(out, FilledSlot{Index: i, Photo: *s.Photo, Duplicate: s.Duplicate})
		}
	}
	return out
}

// EmptyCount returns the number of empty slots.
func (m *Manager) EmptyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.slots {
		if s.Photo == nil {
			n++
		}
	}
	return n
}

// IsProcessed reports whether id was already placed for the current owner.
func (m *Manager) IsProcessed(id string) bool {
	m.mu.Lock()
	set := m.processed
	m.mu.Unlock()
	return set != nil && set.Has(id)
}

// Occupies reports whether id is in any slot.
func (m *Manager) Occupies(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexOfLocked(id, 0) >= 0
}

// Hold freezes the grid while a print is in flight. Placement becomes a
// no-op and manual edits fail with ErrPrintInProgress until Release.
func (m *Manager) Hold() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held = true
}

// Release undoes Hold.
func (m *Manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held = false
}

func (m *Manager) indexOfLocked(id string, from int) int {
	for i := from; i < len(m.slots); i++ {
		if p := m.slots[i].Photo; p != nil && p.ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) firstEmptyLocked(from int) int {
	for i := from; i < len(m.slots); i++ {
		if m.slots[i].Photo == nil {
			return i
		}
	}
	return -1
}

func (m *Manager) ensureSetLocked() *ProcessedSet {
	if m.processed == nil {
		m.processed = NewProcessedSet(nil, m.ownerID)
	}
	return m.processed
}

func (m *Manager) markProcessed(ctx context.Context, set *ProcessedSet, ids ...string) {
	if len(ids) == 0 || set == nil {
		return
	}
	if err := set.Add(ctx, ids...); err != nil {
		m.log.Warn().Err(err).Str("owner_id", set.OwnerID()).Msg("Failed to persist processed set")
	}
}

func checkIndex(i int) error {
	if i < 0 || i >= constants.SlotCount {
		return ErrSlotOutOfRange
	}
	return nil
}

func consumed(p *database.Photo) bool {
	return p.IsPrinted() || p.Status == database.StatusDeleted
}

// PlaceIncoming fills empty slots with photos fetched for ownerID, oldest
// first. Photos that already occupy a slot, were placed before, or are
// consumed are skipped. Photos beyond the free capacity stay unplaced.
// It returns the indexes that were filled. A result for an owner other
// than the current one is rejected with ErrOwnerChanged.
func (m *Manager) PlaceIncoming(ctx context.Context, ownerID string, photos []database.Photo) ([]int, error) {
	m.mu.Lock()
	if ownerID == "" || ownerID != m.ownerID {
		m.mu.Unlock()
		return nil, ErrOwnerChanged
	}
	if m.held {
		m.mu.Unlock()
		return nil, nil
	}

	ordered := slices.Clone(photos)
	slices.SortStableFunc(ordered, func(a, b database.Photo) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	set := m.ensureSetLocked()
	var placed []int
	var ids []string
	for i := range ordered {
		p := ordered[i]
		if p.OwnerID != "" && p.OwnerID != ownerID {
			continue
		}
		if consumed(&p) || set.Has(p.ID) || m.indexOfLocked(p.ID, 0) >= 0 {
			continue
		}
		idx := m.firstEmptyLocked(0)
		if idx < 0 {
			break
		}
		m.slots[idx] = Slot{Photo: &p}
		placed = append(placed, idx)
		ids = append(ids, p.ID)
	}
	m.mu.Unlock()

	if len(placed) == 0 {
		return nil, nil
	}
	m.markProcessed(ctx, set, ids...)
	m.log.Debug().Str("owner_id", ownerID).Ints("slots", placed).Msg("Placed incoming photos")
	m.notify()
	return placed, nil
}

// AddManual places photo into the first empty slot at or after index.
// A photo already on the grid is not placed twice; its index is returned.
func (m *Manager) AddManual(ctx context.Context, index int, photo database.Photo) (int, error) {
	if err := checkIndex(index); err != nil {
		return -1, err
	}
	if consumed(&photo) {
		return -1, ErrPhotoConsumed
	}

	m.mu.Lock()
	if m.ownerID == "" {
		m.mu.Unlock()
		return -1, ErrNoOwner
	}
	if photo.OwnerID != "" && photo.OwnerID != m.ownerID {
		m.mu.Unlock()
		return -1, ErrOwnerChanged
	}
	if m.held {
		m.mu.Unlock()
		return -1, ErrPrintInProgress
	}
	if existing := m.indexOfLocked(photo.ID, 0); existing >= 0 {
		m.mu.Unlock()
		return existing, nil
	}
	idx := m.firstEmptyLocked(index)
	if idx < 0 {
		m.mu.Unlock()
		return -1, ErrNoEmptySlot
	}
	m.slots[idx] = Slot{Photo: &photo}
	set := m.ensureSetLocked()
	m.mu.Unlock()

	m.markProcessed(ctx, set, photo.ID)
	m.notify()
	return idx, nil
}

// HasEmptyFrom reports whether a slot at or after index is free.
func (m *Manager) HasEmptyFrom(index int) bool {
	if checkIndex(index) != nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.firstEmptyLocked(index) >= 0
}

// Duplicate copies the photo in slot src into the first empty slot.
func (m *Manager) Duplicate(ctx context.Context, src int) (int, error) {
	if err := checkIndex(src); err != nil {
		return -1, err
	}

	m.mu.Lock()
	if m.held {
		m.mu.Unlock()
		return -1, ErrPrintInProgress
	}
	orig := m.slots[src].Photo
	if orig == nil {
		m.mu.Unlock()
		return -1, ErrSlotEmpty
	}
	idx := m.firstEmptyLocked(0)
	if idx < 0 {
		m.mu.Unlock()
		return -1, ErrNoEmptySlot
	}
	cp := *orig
	m.slots[idx] = Slot{Photo: &cp, Duplicate: true}
	set := m.ensureSetLocked()
	m.mu.Unlock()

	// The copy shares the original's processed entry; Add is a no-op for it.
	m.markProcessed(ctx, set, cp.ID)
	m.notify()
	return idx, nil
}

// Remove clears the slot at index and marks the photo deleted in the store.
// When the store write fails the slot is restored and the photo is dropped
// from the processed set so it can be placed again. Removing one of several
// copies of a photo only clears the slot.
func (m *Manager) Remove(ctx context.Context, index int) error {
	if err := checkIndex(index); err != nil {
		return err
	}

	m.mu.Lock()
	if m.held {
		m.mu.Unlock()
		return ErrPrintInProgress
	}
	prev := m.slots[index]
	if prev.Photo == nil {
		m.mu.Unlock()
		return ErrSlotEmpty
	}
	m.slots[index] = Slot{}
	id := prev.Photo.ID
	stillShown := m.indexOfLocked(id, 0) >= 0
	if stillShown && !prev.Duplicate {
		// Promote the remaining copy to the primary occupant.
		m.slots[m.indexOfLocked(id, 0)].Duplicate = false
	}
	gen := m.generation
	set := m.processed
	m.mu.Unlock()
	m.notify()

	if stillShown {
		return nil
	}

	_, err := m.store.UpdateByIDs(ctx, []string{id}, database.StatusPatch(database.StatusDeleted))
	if err == nil {
		m.log.Info().Str("photo_id", id).Int("slot", index).Msg("Removed photo from template")
		return nil
	}

	m.mu.Lock()
	restored := false
	if m.generation == gen && m.indexOfLocked(id, 0) < 0 {
		at := index
		if m.slots[at].Photo != nil {
			at = m.firstEmptyLocked(0)
		}
		if at >= 0 {
			m.slots[at] = Slot{Photo: prev.Photo}
			restored = true
		}
	}
	m.mu.Unlock()

	if set != nil {
		if rerr := set.Remove(ctx, id); rerr != nil {
			m.log.Warn().Err(rerr).Str("photo_id", id).Msg("Failed to persist processed set rollback")
		}
	}
	m.log.Warn().Err(err).Str("photo_id", id).Bool("restored", restored).Msg("Failed to delete photo, rolled back")
	if restored {
		m.notify()
	}
	return &PersistenceError{Op: "delete", PhotoIDs: []string{id}, Err: err}
}

// ClearAll empties every slot. Store rows are not touched.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	m.slots = [constants.SlotCount]Slot{}
	m.mu.Unlock()
	m.notify()
}

// ClearAllIf empties every slot when the grid is still at generation gen.
// It reports whether the slots were cleared.
func (m *Manager) ClearAllIf(gen uint64) bool {
	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		return false
	}
	m.slots = [constants.SlotCount]Slot{}
	m.mu.Unlock()
	m.notify()
	return true
}

// Reorder moves the content of slot from to slot to, shifting the slots
// in between by one.
func (m *Manager) Reorder(from, to int) error {
	if err := checkIndex(from); err != nil {
		return err
	}
	if err := checkIndex(to); err != nil {
		return err
	}
	if from == to {
		return nil
	}

	m.mu.Lock()
	if m.held {
		m.mu.Unlock()
		return ErrPrintInProgress
	}
	moved := m.slots[from]
	if from < to {
		copy(m.slots[from:to], m.slots[from+1:to+1])
	} else {
		copy(m.slots[to+1:from+1], m.slots[to:from])
	}
	m.slots[to] = moved
	m.mu.Unlock()
	m.notify()
	return nil
}
