package booth

import (
	"context"
	"slices"
	"sync"
)

// Registry keeps the open template views by id.
type Registry struct {
	deps  ViewDeps
	views map[string]*View
	mu    sync.RWMutex
}

// NewRegistry creates an empty registry building views from deps.
func NewRegistry(deps ViewDeps) *Registry {
	return &Registry{
		deps:  deps,
		views: make(map[string]*View),
	}
}

// Open creates a view for owner and registers it.
func (r *Registry) Open(ctx context.Context, owner Owner) (*View, error) {
	v, err := OpenView(ctx, r.deps, owner)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.views[v.ID] = v
	r.mu.Unlock()

	return v, nil
}

// Get retrieves a view by ID.
func (r *Registry) Get(id string) *View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.views[id]
}

// Close stops and removes a view. It reports whether the view existed.
func (r *Registry) Close(id string) bool {
	r.mu.Lock()
	v, ok := r.views[id]
	delete(r.views, id)
	r.mu.Unlock()

	if ok {
		v.Close()
	}
	return ok
}

// CloseAll stops every view.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	views := r.views
	r.views = make(map[string]*View)
	r.mu.Unlock()

	for _, v := range views {
		v.Close()
	}
}

// List returns all views, oldest first.
func (r *Registry) List() []*View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	views := make([]*View, 0, len(r.views))
	for _, v := range r.views {
		views = append(views, v)
	}
	slices.SortFunc(views, func(a, b *View) int {
		return a.openedAt.Compare(b.openedAt)
	})
	return views
}
