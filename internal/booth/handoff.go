package booth

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kozaktomas/photo-booth/internal/database"
)

// HandoffState is the state of the print handoff.
type HandoffState string

// HandoffState constants.
const (
	StateIdle                 HandoffState = "idle"
	StateSavingEdits          HandoffState = "saving_edits"
	StateRendering            HandoffState = "rendering"
	StateAwaitingConfirmation HandoffState = "awaiting_confirmation"
	StatePersisting           HandoffState = "persisting"
)

// SheetCell is one filled slot handed to the renderer.
type SheetCell struct {
	Index     int
	Photo     database.Photo
	Transform Transform
}

// Renderer lays out the filled slots as one printable sheet.
type Renderer interface {
	Render(ctx context.Context, cells []SheetCell) ([]byte, error)
}

// PrintJob is a rendered sheet handed to the print facility.
type PrintJob struct {
	Title       string
	Data        []byte
	ContentType string
	PhotoIDs    []string
}

// Printer hands a rendered sheet to the operating environment's printer.
type Printer interface {
	Print(ctx context.Context, job PrintJob) error
}

// PrintedEvent is published after photos were marked printed.
type PrintedEvent struct {
	Type      string    `json:"type"`
	OwnerID   string    `json:"owner_id"`
	PhotoIDs  []string  `json:"photo_ids"`
	PrintedAt time.Time `json:"printed_at"`
}

// PrintedEventType is the Type of every PrintedEvent.
const PrintedEventType = "template.printed"

// Publisher announces completed prints.
type Publisher interface {
	PublishPrinted(ctx context.Context, event PrintedEvent) error
}

// Prompter supplies the operator decisions of a print run.
type Prompter interface {
	// SaveEdits asks whether unsaved edits of dirty should be saved first.
	SaveEdits(ctx context.Context, dirty []string) bool
	// ConfirmPrinted asks whether the sheet came out of the printer.
	ConfirmPrinted(ctx context.Context, pending *PendingPrint) bool
}

// PendingPrint is a rendered sheet waiting for operator confirmation.
type PendingPrint struct {
	ID         string            `json:"id"`
	OwnerID    string            `json:"owner_id"`
	PhotoIDs   []string          `json:"photo_ids"`
	Slots      []int             `json:"slots"`
	StartedAt  time.Time         `json:"started_at"`
	SaveErrors map[string]string `json:"save_errors,omitempty"`
	Sheet      []byte            `json:"-"`

	// generation of the grid the sheet was rendered from
	generation uint64
}

// HandoffDeps are the collaborators of a Handoff. Printer and Publisher are
// optional: without a printer the rendered sheet is only kept for download.
type HandoffDeps struct {
	Store     database.PhotoWriter
	Manager   *Manager
	Edits     *EditTracker
	Renderer  Renderer
	Printer   Printer
	Publisher Publisher
	Log       zerolog.Logger
	Clock     func() time.Time

	// PublishTimeout bounds the audit publish after a confirmed print.
	PublishTimeout time.Duration
}

const defaultPublishTimeout = 5 * time.Second

// Handoff drives a template through render, print, confirm and persist.
type Handoff struct {
	deps HandoffDeps
	log  zerolog.Logger

	mu       sync.Mutex
	state    HandoffState
	pending  *PendingPrint
	reserved bool
	onChange func(HandoffState)
}

// NewHandoff creates an idle handoff.
func NewHandoff(deps HandoffDeps) *Handoff {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.PublishTimeout <= 0 {
		deps.PublishTimeout = defaultPublishTimeout
	}
	return &Handoff{
		deps:  deps,
		log:   deps.Log.With().Str("component", "handoff").Logger(),
		state: StateIdle,
	}
}

// SetListener registers fn to be called on every state change.
func (h *Handoff) SetListener(fn func(HandoffState)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = fn
}

// State returns the current state.
func (h *Handoff) State() HandoffState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Pending returns the print awaiting confirmation, or nil.
func (h *Handoff) Pending() *PendingPrint {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pending == nil {
		return nil
	}
	cp := *h.pending
	return &cp
}

// reserve keeps the handoff idle until release: Begin fails with
// ErrPrintInProgress in between. It fails the same way when a print is
// already running.
func (h *Handoff) reserve() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != StateIdle || h.reserved {
		return ErrPrintInProgress
	}
	h.reserved = true
	return nil
}

func (h *Handoff) release() {
	h.mu.Lock()
	h.reserved = false
	h.mu.Unlock()
}

func (h *Handoff) setState(s HandoffState) {
	h.mu.Lock()
	h.state = s
	if s == StateIdle {
		h.pending = nil
	}
	fn := h.onChange
	h.mu.Unlock()
	if s == StateIdle {
		h.deps.Manager.Release()
	}
	if fn != nil {
		fn(s)
	}
}

// Begin saves dirty edits when saveEdits is set, renders the filled slots
// and hands the sheet to the printer. On success the handoff waits for
// Confirm. Any failure returns the handoff to idle with the slots intact.
func (h *Handoff) Begin(ctx context.Context, saveEdits bool) (*PendingPrint, error) {
	dirty := h.deps.Edits.DirtyIDs()

	h.mu.Lock()
	if h.state != StateIdle || h.reserved {
		h.mu.Unlock()
		return nil, ErrPrintInProgress
	}
	next := StateRendering
	if saveEdits && len(dirty) > 0 {
		next = StateSavingEdits
	}
	h.state = next
	h.mu.Unlock()
	h.deps.Manager.Hold()
	gen := h.deps.Manager.Generation()
	h.setState(next)

	var saveErrors map[string]string
	if next == StateSavingEdits {
		for _, id := range dirty {
			if err := h.deps.Edits.Save(ctx, id); err != nil {
				if saveErrors == nil {
					saveErrors = make(map[string]string)
				}
				saveErrors[id] = err.Error()
			}
		}
		if len(saveErrors) > 0 {
			h.log.Warn().Int("failed", len(saveErrors)).Msg("Some edits were not saved, printing anyway")
		}
		h.setState(StateRendering)
	}

	cells, slotIdx, ids := sheetCells(h.deps.Manager, h.deps.Edits)
	if len(cells) == 0 {
		h.setState(StateIdle)
		return nil, ErrNothingToPrint
	}

	sheet, err := h.deps.Renderer.Render(ctx, cells)
	if err != nil {
		h.setState(StateIdle)
		return nil, fmt.Errorf("render sheet: %w", err)
	}

	pending := &PendingPrint{
		ID:         uuid.NewString(),
		OwnerID:    h.deps.Manager.OwnerID(),
		PhotoIDs:   ids,
		Slots:      slotIdx,
		StartedAt:  h.deps.Clock(),
		SaveErrors: saveErrors,
		Sheet:      sheet,
		generation: gen,
	}

	if h.deps.Printer != nil {
		job := PrintJob{
			Title:       "photo-booth " + pending.OwnerID + " " + pending.ID,
			Data:        sheet,
			ContentType: "image/png",
			PhotoIDs:    ids,
		}
		if err := h.deps.Printer.Print(ctx, job); err != nil {
			h.setState(StateIdle)
			return nil, fmt.Errorf("send sheet to printer: %w", err)
		}
	}

	h.mu.Lock()
	h.pending = pending
	h.mu.Unlock()
	h.setState(StateAwaitingConfirmation)

	h.log.Info().Str("print_id", pending.ID).Str("owner_id", pending.OwnerID).Int("photos", len(ids)).Msg("Sheet sent, awaiting confirmation")
	cp := *pending
	return &cp, nil
}

// sheetCells collects the filled slots with their current transforms. ids
// lists every photo once, duplicates included.
func sheetCells(m *Manager, edits *EditTracker) (cells []SheetCell, slotIdx []int, ids []string) {
	for _, f := range m.FilledSlots() {
		cells = append(cells, SheetCell{Index: f.Index, Photo: f.Photo, Transform: edits.State(f.Photo.ID).Transform})
		slotIdx = append(slotIdx, f.Index)
		if !slices.Contains(ids, f.Photo.ID) {
			ids = append(ids, f.Photo.ID)
		}
	}
	return cells, slotIdx, ids
}

// Confirm finishes the pending print. When printed is false nothing is
// persisted and the slots stay as they are. When printed is true every
// photo on the sheet is marked printed in one bulk update and the grid is
// cleared. A failed update leaves the slots populated.
func (h *Handoff) Confirm(ctx context.Context, printed bool) error {
	h.mu.Lock()
	if h.state != StateAwaitingConfirmation || h.pending == nil {
		h.mu.Unlock()
		return ErrNoPendingPrint
	}
	pending := h.pending
	if printed {
		h.state = StatePersisting
	}
	h.mu.Unlock()

	if !printed {
		h.log.Info().Str("print_id", pending.ID).Msg("Print declined, template unchanged")
		h.setState(StateIdle)
		return nil
	}
	h.setState(StatePersisting)

	now := h.deps.Clock().UTC()
	status := database.StatusPrinted
	patch := database.PhotoPatch{Status: &status, PrintedAt: &now}
	n, err := h.deps.Store.UpdateByIDs(ctx, pending.PhotoIDs, patch)
	if err != nil {
		h.log.Error().Err(err).Str("print_id", pending.ID).Msg("Failed to mark photos printed")
		h.setState(StateIdle)
		return &PersistenceError{Op: "mark printed", PhotoIDs: pending.PhotoIDs, Err: err}
	}
	if int(n) != len(pending.PhotoIDs) {
		h.log.Warn().Int64("updated", n).Int("expected", len(pending.PhotoIDs)).Msg("Not every photo row was marked printed")
	}

	if !h.deps.Manager.ClearAllIf(pending.generation) {
		h.log.Warn().Str("print_id", pending.ID).Msg("Grid changed owner during the print, keeping its slots")
	}
	h.deps.Edits.Forget(pending.PhotoIDs...)
	h.setState(StateIdle)
	h.log.Info().Str("print_id", pending.ID).Int("photos", len(pending.PhotoIDs)).Msg("Template printed")

	if h.deps.Publisher != nil {
		event := PrintedEvent{
			Type:      PrintedEventType,
			OwnerID:   pending.OwnerID,
			PhotoIDs:  pending.PhotoIDs,
			PrintedAt: now,
		}
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.deps.PublishTimeout)
		err := h.deps.Publisher.PublishPrinted(pubCtx, event)
		cancel()
		if err != nil {
			h.log.Warn().Err(err).Str("print_id", pending.ID).Msg("Failed to publish print event")
		}
	}
	return nil
}

// Abort drops a print awaiting confirmation without persisting anything.
func (h *Handoff) Abort() {
	h.mu.Lock()
	awaiting := h.state == StateAwaitingConfirmation
	h.mu.Unlock()
	if awaiting {
		h.setState(StateIdle)
	}
}

// Run performs a full print cycle with the operator decisions taken from
// prompter. It reports whether the photos were marked printed.
func (h *Handoff) Run(ctx context.Context, prompter Prompter) (bool, error) {
	save := false
	if dirty := h.deps.Edits.DirtyIDs(); len(dirty) > 0 {
		save = prompter.SaveEdits(ctx, dirty)
	}

	pending, err := h.Begin(ctx, save)
	if err != nil {
		return false, err
	}

	printed := prompter.ConfirmPrinted(ctx, pending)
	if err := h.Confirm(ctx, printed); err != nil {
		return false, err
	}
	return printed, nil
}
