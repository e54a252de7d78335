package booth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kozaktomas/photo-booth/internal/cache"
	"github.com/kozaktomas/photo-booth/internal/database"
	"github.com/kozaktomas/photo-booth/internal/objectstore"
)

// ViewDeps are the shared collaborators every template view is built from.
type ViewDeps struct {
	Store        database.PhotoWriter
	Cache        cache.Store
	Objects      objectstore.Store
	Renderer     Renderer
	Printer      Printer
	Publisher    Publisher
	PollInterval time.Duration
	Log          zerolog.Logger
}

// View is one open template: the slot grid of a single owner together with
// its poller, edit state and print handoff.
type View struct {
	EventBroadcaster

	ID       string
	Manager  *Manager
	Edits    *EditTracker
	Handoff  *Handoff
	Poller   *Poller
	Ingestor *Ingestor

	deps ViewDeps
	log  zerolog.Logger

	// switchMu serializes owner switches and Close.
	switchMu sync.Mutex
	mu       sync.RWMutex
	owner    Owner
	openedAt time.Time
	closed   bool
}

// ViewSnapshot is the serializable state of a view.
type ViewSnapshot struct {
	ID         string               `json:"id"`
	Owner      Owner                `json:"owner"`
	Slots      []Slot               `json:"slots"`
	Edits      map[string]EditState `json:"edits"`
	PrintState HandoffState         `json:"print_state"`
	Pending    *PendingPrint        `json:"pending,omitempty"`
	Polling    bool                 `json:"polling"`
	OpenedAt   time.Time            `json:"opened_at"`
}

// OpenView builds a view for owner and starts polling.
func OpenView(ctx context.Context, deps ViewDeps, owner Owner) (*View, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	log := deps.Log.With().Str("view_id", id).Logger()
	manager := NewManager(deps.Store, log)
	edits := NewEditTracker(deps.Store, log)

	v := &View{
		ID:       id,
		Manager:  manager,
		Edits:    edits,
		Poller:   NewPoller(deps.Store, manager, deps.PollInterval, log),
		Ingestor: NewIngestor(deps.Store, deps.Objects, log),
		Handoff: NewHandoff(HandoffDeps{
			Store:     deps.Store,
			Manager:   manager,
			Edits:     edits,
			Renderer:  deps.Renderer,
			Printer:   deps.Printer,
			Publisher: deps.Publisher,
			Log:       log,
		}),
		deps:     deps,
		log:      log,
		openedAt: time.Now(),
	}

	manager.SetListener(v.slotsChanged)
	v.Handoff.SetListener(func(s HandoffState) {
		v.SendEvent(Event{Type: EventPrint, Data: s})
	})
	v.Poller.OnError(func(err error) {
		v.SendEvent(Event{Type: EventPollError, Message: err.Error()})
	})

	if err := v.SwitchOwner(ctx, owner); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *View) slotsChanged() {
	slots := v.Manager.Slots()
	for _, s := range slots {
		if s.Photo != nil {
			v.Edits.Seed(*s.Photo)
		}
	}
	v.SendEvent(Event{Type: EventSlots, Data: slots})
}

// Owner returns the owner the view currently shows.
func (v *View) Owner() Owner {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.owner
}

// SwitchOwner re-initializes the view for owner. The processed set of the new
// owner is loaded from the cache; an unreadable document is replaced by an
// empty set. Poll results still in flight for the previous owner are dropped.
// An owner without an id clears the view and stops polling.
func (v *View) SwitchOwner(ctx context.Context, owner Owner) error {
	if owner.ID != "" {
		if err := owner.Validate(); err != nil {
			return err
		}
	}

	v.switchMu.Lock()
	defer v.switchMu.Unlock()

	v.mu.RLock()
	closed := v.closed
	v.mu.RUnlock()
	if closed {
		return errors.New("view is closed")
	}
	if err := v.Handoff.reserve(); err != nil {
		return err
	}
	defer v.Handoff.release()

	v.Poller.Stop()

	var set *ProcessedSet
	if owner.ID != "" {
		loaded, err := LoadProcessedSet(ctx, v.deps.Cache, owner.ID)
		switch {
		case err == nil:
			set = loaded
		case isDecodeError(err):
			v.log.Warn().Err(err).Str("owner_id", owner.ID).Msg("Processed set unreadable, starting empty")
			set = NewProcessedSet(v.deps.Cache, owner.ID)
		default:
			return fmt.Errorf("open template for %s: %w", owner.ID, err)
		}
	}

	v.mu.Lock()
	v.owner = owner
	v.mu.Unlock()

	v.Edits.Clear()
	v.Manager.Initialize(owner.ID, set)
	v.SendEvent(Event{Type: EventOwner, Data: owner})
	v.Poller.Start(owner)

	v.log.Info().Str("owner_id", owner.ID).Str("owner_kind", string(owner.Kind)).Msg("Template owner set")
	return nil
}

// Upload stores a manually uploaded photo and places it at or after index.
func (v *View) Upload(ctx context.Context, index int, data []byte) (database.Photo, int, error) {
	owner := v.Owner()
	if owner.ID == "" {
		return database.Photo{}, -1, ErrNoOwner
	}
	if err := checkIndex(index); err != nil {
		return database.Photo{}, -1, err
	}
	if !v.Manager.HasEmptyFrom(index) {
		return database.Photo{}, -1, ErrNoEmptySlot
	}

	photo, err := v.Ingestor.Submit(ctx, owner, database.OriginUpload, data)
	if err != nil {
		return database.Photo{}, -1, err
	}
	at, err := v.Manager.AddManual(ctx, index, photo)
	if err != nil {
		// The row stays awaiting placement and the poller picks it up later.
		return photo, -1, err
	}
	return photo, at, nil
}

// RemoveSlot removes the slot content and drops its edit state once the
// photo left the grid.
func (v *View) RemoveSlot(ctx context.Context, index int) error {
	slots := v.Manager.Slots()
	if err := checkIndex(index); err != nil {
		return err
	}
	if err := v.Manager.Remove(ctx, index); err != nil {
		return err
	}
	if p := slots[index].Photo; p != nil && !v.Manager.Occupies(p.ID) {
		v.Edits.Forget(p.ID)
	}
	return nil
}

// Sheet returns the sheet waiting for confirmation, or renders a preview of
// the current slots.
func (v *View) Sheet(ctx context.Context) ([]byte, error) {
	if p := v.Handoff.Pending(); p != nil && len(p.Sheet) > 0 {
		return p.Sheet, nil
	}
	cells, _, _ := sheetCells(v.Manager, v.Edits)
	if len(cells) == 0 {
		return nil, ErrNothingToPrint
	}
	sheet, err := v.deps.Renderer.Render(ctx, cells)
	if err != nil {
		return nil, fmt.Errorf("render preview: %w", err)
	}
	return sheet, nil
}

// Snapshot returns the current state of the view.
func (v *View) Snapshot() ViewSnapshot {
	return ViewSnapshot{
		ID:         v.ID,
		Owner:      v.Owner(),
		Slots:      v.Manager.Slots(),
		Edits:      v.Edits.States(),
		PrintState: v.Handoff.State(),
		Pending:    v.Handoff.Pending(),
		Polling:    v.Poller.Running(),
		OpenedAt:   v.openedAt,
	}
}

// Close stops polling, drops an unconfirmed print and closes listeners.
func (v *View) Close() {
	v.switchMu.Lock()
	defer v.switchMu.Unlock()

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.mu.Unlock()

	v.Poller.Stop()
	v.Handoff.Abort()
	v.CloseListeners()
	v.log.Info().Msg("Template view closed")
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
