// Package broker fans live story snapshots out to subscribers.
//
// Two scopes exist over the same record stream: "active" filters out
// expired stories at snapshot-delivery time and is what ordinary viewers
// see; "all" is the unfiltered admin view. Every snapshot is a full
// replacement ordered by createdAt descending; there are no deltas and no
// sequence numbers, so a slow subscriber simply observes the latest state.
package broker

import (
	"context"
	"sync"
	"time"

	"github.com/syqdur/wedpxres-sub001/internal/logging"
	"github.com/syqdur/wedpxres-sub001/internal/models"
	"github.com/syqdur/wedpxres-sub001/internal/server/metrics"
	"github.com/syqdur/wedpxres-sub001/internal/server/repositories/stories"
)

// Scope selects which partition of the record stream a subscriber sees.
type Scope string

const (
	ScopeActive Scope = "active"
	ScopeAll    Scope = "all"
)

// Subscription is a live handle over the snapshot stream. Snapshots arrive
// on C; Dispose unregisters the subscriber and closes C. Dispose is
// idempotent and safe to call from any goroutine.
type Subscription struct {
	C       <-chan []*models.Story
	dispose func()
	once    sync.Once
}

func (s *Subscription) Dispose() {
	s.once.Do(s.dispose)
}

type subscriber struct {
	scope Scope
	ch    chan []*models.Story
}

// Broker queries the record store on every mutation notification and
// delivers the resulting snapshot to every subscriber. A store error
// degrades to an empty snapshot; it is logged and never propagated to
// consumers.
type Broker struct {
	repo   stories.Repository
	logger logging.Logger
	now    func() time.Time

	mu     sync.Mutex
	subs   map[int64]*subscriber
	nextID int64
}

func New(repo stories.Repository, logger logging.Logger) *Broker {
	return &Broker{
		repo:   repo,
		logger: logger.With("module", "broker"),
		now:    time.Now,
		subs:   make(map[int64]*subscriber),
	}
}

// Subscribe registers a new subscriber and immediately delivers the current
// snapshot so a fresh viewer does not wait for the next mutation.
func (b *Broker) Subscribe(ctx context.Context, scope Scope) *Subscription {
	b.mu.Lock()
	id := b.nextID
	b.nextID++

	sub := &subscriber{scope: scope, ch: make(chan []*models.Story, 1)}
	b.subs[id] = sub
	b.deliverLocked(ctx, sub)
	b.mu.Unlock()

	metrics.BrokerSubscribers.Inc()

	return &Subscription{
		C: sub.ch,
		dispose: func() {
			b.mu.Lock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub.ch)
			}
			b.mu.Unlock()
			metrics.BrokerSubscribers.Dec()
		},
	}
}

// Notify re-reads the record store and fans the fresh snapshot out to all
// subscribers. Mutation paths (create, delete, view, sweep) call this after
// every successful write.
func (b *Broker) Notify(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		b.deliverLocked(ctx, sub)
	}
}

func (b *Broker) deliverLocked(ctx context.Context, sub *subscriber) {
	snapshot := b.snapshot(ctx, sub.scope)

	// Latest-wins: replace an undrained snapshot instead of blocking the
	// mutation path on a slow subscriber.
	select {
	case sub.ch <- snapshot:
	default:
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- snapshot
	}
	metrics.SnapshotsSent.Inc()
}

// snapshot returns the current record list for the scope. Errors degrade to
// an empty, well-formed list so consumers never see a transport failure.
func (b *Broker) snapshot(ctx context.Context, scope Scope) []*models.Story {
	all, err := b.repo.ListAll(ctx)
	if err != nil {
		b.logger.Error(ctx, "snapshot query failed, delivering empty list", "error", err.Error())
		return []*models.Story{}
	}

	if scope == ScopeAll {
		if all == nil {
			all = []*models.Story{}
		}
		return all
	}

	now := b.now()
	active := make([]*models.Story, 0, len(all))
	for _, s := range all {
		if s.Active(now) {
			active = append(active, s)
		}
	}
	return active
}
