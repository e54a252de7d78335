package booth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kozaktomas/photo-booth/internal/cache"
	"github.com/kozaktomas/photo-booth/internal/database"
	"github.com/kozaktomas/photo-booth/internal/database/mock"
)

var baseTime = time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)

func testPhoto(owner string, n int) database.Photo {
	return database.Photo{
		ID:        fmt.Sprintf("photo-%02d", n),
		OwnerID:   owner,
		OwnerKind: database.OwnerMarket,
		Origin:    database.OriginCamera,
		Status:    database.StatusInTemplate,
		Scale:     1,
		CreatedAt: baseTime.Add(time.Duration(n) * time.Second),
	}
}

func newTestManager(t *testing.T, owner string) (*Manager, *mock.MockPhotoStore, *cache.MemoryStore) {
	t.Helper()
	store := mock.NewMockPhotoStore()
	mem := cache.NewMemoryStore()
	m := NewManager(store, zerolog.Nop())
	m.Initialize(owner, NewProcessedSet(mem, owner))
	return m, store, mem
}

func fillManager(t *testing.T, m *Manager, store *mock.MockPhotoStore, owner string, n int) []database.Photo {
	t.Helper()
	photos := make([]database.Photo, n)
	for i := range n {
		photos[i] = testPhoto(owner, i+1)
		store.AddPhoto(photos[i])
	}
	if _, err := m.PlaceIncoming(context.Background(), owner, photos); err != nil {
		t.Fatalf("PlaceIncoming: %v", err)
	}
	return photos
}

func slotIDs(slots []Slot) []string {
	ids := make([]string, len(slots))
	for i, s := range slots {
		if s.Photo != nil {
			ids[i] = s.Photo.ID
		}
	}
	return ids
}

func assertSlotIDs(t *testing.T, m *Manager, want []string) {
	t.Helper()
	got := slotIDs(m.Slots())
	if len(got) != len(want) {
		t.Fatalf("expected %d slots, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("slot %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

// fakeRenderer records the cells it was asked to render.
type fakeRenderer struct {
	mu    sync.Mutex
	cells []SheetCell
	err   error
}

func (r *fakeRenderer) Render(ctx context.Context, cells []SheetCell) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.cells = cells
	return []byte("sheet"), nil
}

type fakePrinter struct {
	jobs []PrintJob
	err  error
}

func (p *fakePrinter) Print(ctx context.Context, job PrintJob) error {
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, job)
	return nil
}

type fakePublisher struct {
	events []PrintedEvent
	err    error
}

func (p *fakePublisher) PublishPrinted(ctx context.Context, event PrintedEvent) error {
	p.events = append(p.events, event)
	return p.err
}

type fakePrompter struct {
	save      bool
	confirm   bool
	askedSave []string
	confirmed *PendingPrint
}

func (p *fakePrompter) SaveEdits(ctx context.Context, dirty []string) bool {
	p.askedSave = dirty
	return p.save
}

func (p *fakePrompter) ConfirmPrinted(ctx context.Context, pending *PendingPrint) bool {
	p.confirmed = pending
	return p.confirm
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
