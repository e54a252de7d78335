package booth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/kozaktomas/photo-booth/internal/constants"
	"github.com/kozaktomas/photo-booth/internal/database"
)

// Poller periodically fetches photos awaiting placement for the active
// owner and hands the unprocessed ones to the Manager.
type Poller struct {
	store    database.PhotoReader
	manager  *Manager
	interval time.Duration
	log      zerolog.Logger

	mu      sync.Mutex
	owner   Owner
	cancel  context.CancelFunc
	done    chan struct{}
	ticking atomic.Bool
	onError func(error)
}

// NewPoller creates a stopped poller. A non-positive interval falls back to
// the default of 3 seconds.
func NewPoller(store database.PhotoReader, manager *Manager, interval time.Duration, log zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = constants.DefaultPollInterval
	}
	return &Poller{
		store:    store,
		manager:  manager,
		interval: interval,
		log:      log.With().Str("component", "poller").Logger(),
	}
}

// OnError registers fn to receive tick failures.
func (p *Poller) OnError(fn func(error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onError = fn
}

// Start stops any running loop and begins polling for owner. The first tick
// runs immediately. An owner without an id leaves the poller stopped.
func (p *Poller) Start(owner Owner) {
	p.Stop()
	if owner.ID == "" {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.mu.Lock()
	p.owner = owner
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	go p.loop(ctx, owner, done)
}

// Stop cancels the loop and waits for an in-flight tick to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.owner = Owner{}
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller) loop(ctx context.Context, owner Owner, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.report(p.tick(ctx, owner))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.report(p.tick(ctx, owner))
		}
	}
}

func (p *Poller) report(err error) {
	if err == nil {
		return
	}
	p.mu.Lock()
	fn := p.onError
	p.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// Tick runs one poll for the current owner. It returns nil when no owner is
// set or another tick is still running.
func (p *Poller) Tick(ctx context.Context) error {
	p.mu.Lock()
	owner := p.owner
	p.mu.Unlock()
	if owner.ID == "" {
		return nil
	}
	return p.tick(ctx, owner)
}

func (p *Poller) tick(ctx context.Context, owner Owner) error {
	if !p.ticking.CompareAndSwap(false, true) {
		return nil
	}
	defer p.ticking.Store(false)

	filter := database.PhotoFilter{
		OwnerID:         owner.ID,
		Statuses:        []database.PhotoStatus{owner.Kind.AwaitingStatus()},
		ExcludeStatuses: []database.PhotoStatus{database.StatusDeleted, database.StatusPrinted},
		UnprintedOnly:   true,
	}
	photos, err := p.store.Query(ctx, filter, database.OrderCreatedAsc)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		fetchErr := &TransientFetchError{OwnerID: owner.ID, Err: err}
		p.log.Warn().Err(err).Str("owner_id", owner.ID).Msg("Poll tick failed, retrying next interval")
		return fetchErr
	}

	fresh := photos[:0:0]
	for _, photo := range photos {
		if !p.manager.IsProcessed(photo.ID) {
			fresh = append(fresh, photo)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	placed, err := p.manager.PlaceIncoming(ctx, owner.ID, fresh)
	if errors.Is(err, ErrOwnerChanged) {
		p.log.Debug().Str("owner_id", owner.ID).Msg("Dropped poll result for previous owner")
		return nil
	}
	if err != nil {
		return err
	}
	if len(placed) > 0 {
		p.log.Info().Str("owner_id", owner.ID).Int("placed", len(placed)).Int("fetched", len(photos)).Msg("Placed new photos")
	}
	return nil
}
