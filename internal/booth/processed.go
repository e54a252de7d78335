package booth

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/kozaktomas/photo-booth/internal/cache"
)

const processedKeyPrefix = "processed_photos_"

// ProcessedSet remembers which photo ids were already placed on a template
// for one owner. The set only grows while photos are being placed; the only
// removal is the rollback of a failed slot removal.
type ProcessedSet struct {
	mu      sync.RWMutex
	store   cache.Store
	ownerID string
	order   []string
	ids     map[string]struct{}
}

// NewProcessedSet returns an empty set for ownerID backed by store. A nil
// store keeps the set in memory only.
func NewProcessedSet(store cache.Store, ownerID string) *ProcessedSet {
	return &ProcessedSet{
		store:   store,
		ownerID: ownerID,
		ids:     make(map[string]struct{}),
	}
}

// LoadProcessedSet reads the persisted set for ownerID. A missing document
// yields an empty set.
func LoadProcessedSet(ctx context.Context, store cache.Store, ownerID string) (*ProcessedSet, error) {
	set := NewProcessedSet(store, ownerID)
	data, err := store.Load(ctx, set.key())
	if err != nil {
		return nil, fmt.Errorf("load processed set: %w", err)
	}
	if len(data) == 0 {
		return set, nil
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode processed set for %s: %w", ownerID, err)
	}
	for _, id := range ids {
		if _, ok := set.ids[id]; !ok {
			set.ids[id] = struct{}{}
			set.order = append(set.order, id)
		}
	}
	return set, nil
}

func (s *ProcessedSet) key() string {
	return processedKeyPrefix + s.ownerID
}

// OwnerID returns the owner the set belongs to.
func (s *ProcessedSet) OwnerID() string {
	return s.ownerID
}

// Has reports whether id was already placed.
func (s *ProcessedSet) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of ids in the set.
func (s *ProcessedSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// IDs returns the ids in insertion order.
func (s *ProcessedSet) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

// Add records ids and rewrites the persisted document if anything changed.
// The in-memory set keeps the ids even when persisting fails.
func (s *ProcessedSet) Add(ctx context.Context, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, id := range ids {
		if _, ok := s.ids[id]; ok {
			continue
		}
		s.ids[id] = struct{}{}
		s.order = append(s.order, id)
		changed = true
	}
	if !changed {
		return nil
	}
	return s.persistLocked(ctx)
}

// Remove forgets id so a later poll may place the photo again.
func (s *ProcessedSet) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id]; !ok {
		return nil
	}
	delete(s.ids, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return s.persistLocked(ctx)
}

// persistLocked writes the whole set. Callers hold s.mu so writes land in
// the same order as the changes they describe.
func (s *ProcessedSet) persistLocked(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	data, err := json.Marshal(s.order)
	if err != nil {
		return fmt.Errorf("encode processed set: %w", err)
	}
	if err := s.store.Save(ctx, s.key(), data); err != nil {
		return fmt.Errorf("save processed set for %s: %w", s.ownerID, err)
	}
	return nil
}
