// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/photo-booth/internal/database"
)

// MockPhotoStore is an in-memory implementation of database.PhotoWriter
type MockPhotoStore struct {
	mu     sync.RWMutex
	photos map[string]*database.Photo
	clock  func() time.Time

	// Error injection
	GetError            error
	QueryError          error
	InsertError         error
	UpdateByFilterError error
	UpdateByIDsError    error
	DeleteError         error

	// QueryHook runs before Query returns, outside the lock. Tests use it to
	// interleave other operations with an in-flight poll.
	QueryHook func()

	// Call counters
	QueryCalls       int
	UpdateByIDsCalls int
	LastUpdateIDs    []string
}

// NewMockPhotoStore creates a new mock photo store
func NewMockPhotoStore() *MockPhotoStore {
	return &MockPhotoStore{
		photos: make(map[string]*database.Photo),
		clock:  time.Now,
	}
}

// AddPhoto adds a photo to the mock store as-is
func (m *MockPhotoStore) AddPhoto(p database.Photo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.Scale == 0 {
		p.Scale = 1
	}
	m.photos[p.ID] = &p
}

// SetQueryError changes the injected Query error while a poller may be running
func (m *MockPhotoStore) SetQueryError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueryError = err
}

// QueryCount returns how many times Query was called
func (m *MockPhotoStore) QueryCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.QueryCalls
}

// Photo returns a copy of the stored photo, or nil if missing
func (m *MockPhotoStore) Photo(id string) *database.Photo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.photos[id]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

// Get retrieves a photo by ID
func (m *MockPhotoStore) Get(ctx context.Context, id string) (*database.Photo, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	if p := m.Photo(id); p != nil {
		return p, nil
	}
	return nil, database.ErrPhotoNotFound
}

func matches(p *database.Photo, f database.PhotoFilter) bool {
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, p.ID) {
		return false
	}
	if f.OwnerID != "" && p.OwnerID != f.OwnerID {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, p.Status) {
		return false
	}
	if len(f.ExcludeStatuses) > 0 && slices.Contains(f.ExcludeStatuses, p.Status) {
		return false
	}
	if f.UnprintedOnly && p.PrintedAt != nil {
		return false
	}
	return true
}

// Query returns matching photos
func (m *MockPhotoStore) Query(ctx context.Context, filter database.PhotoFilter, order database.Order) ([]database.Photo, error) {
	m.mu.Lock()
	m.QueryCalls++
	queryErr := m.QueryError
	var out []database.Photo
	for _, p := range m.photos {
		if matches(p, filter) {
			out = append(out, *p)
		}
	}
	hook := m.QueryHook
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	if queryErr != nil {
		return nil, queryErr
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		if order == database.OrderCreatedDesc {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Insert stores a new photo
func (m *MockPhotoStore) Insert(ctx context.Context, photo database.Photo) (database.Photo, error) {
	if m.InsertError != nil {
		return database.Photo{}, m.InsertError
	}
	if photo.ID == "" {
		photo.ID = uuid.NewString()
	}
	if photo.Scale == 0 {
		photo.Scale = 1
	}
	if photo.CreatedAt.IsZero() {
		photo.CreatedAt = m.clock()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.photos[photo.ID]; exists {
		return database.Photo{}, fmt.Errorf("photo %s already exists", photo.ID)
	}
	m.photos[photo.ID] = &photo
	return photo, nil
}

func applyPatch(p *database.Photo, patch database.PhotoPatch) {
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.PrintedAt != nil && p.PrintedAt == nil {
		t := *patch.PrintedAt
		p.PrintedAt = &t
	}
	if patch.Scale != nil {
		p.Scale = *patch.Scale
	}
}

// UpdateByFilter patches all matching photos
func (m *MockPhotoStore) UpdateByFilter(ctx context.Context, filter database.PhotoFilter, patch database.PhotoPatch) (int64, error) {
	if m.UpdateByFilterError != nil {
		return 0, m.UpdateByFilterError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.photos {
		if matches(p, filter) {
			applyPatch(p, patch)
			n++
		}
	}
	return n, nil
}

// UpdateByIDs patches the listed photos
func (m *MockPhotoStore) UpdateByIDs(ctx context.Context, ids []string, patch database.PhotoPatch) (int64, error) {
	m.mu.Lock()
	m.UpdateByIDsCalls++
	m.LastUpdateIDs = slices.Clone(ids)
	m.mu.Unlock()

	if m.UpdateByIDsError != nil {
		return 0, m.UpdateByIDsError
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return m.UpdateByFilter(ctx, database.PhotoFilter{IDs: ids}, patch)
}

// Delete removes a photo
func (m *MockPhotoStore) Delete(ctx context.Context, id string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.photos, id)
	return nil
}

var _ database.PhotoWriter = (*MockPhotoStore)(nil)
