// Package sweeper eagerly reclaims expired stories. The broker's
// client-side filtering already hides expired records from viewers; the
// sweeper is the path that actually frees storage, so it runs for the
// whole process lifetime whether or not anyone is subscribed.
package sweeper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/syqdur/wedpxres-sub001/internal/common"
	"github.com/syqdur/wedpxres-sub001/internal/logging"
	"github.com/syqdur/wedpxres-sub001/internal/server/metrics"
	storiesrepo "github.com/syqdur/wedpxres-sub001/internal/server/repositories/stories"
)

// Deleter is the single-story delete protocol (blob best-effort, metadata
// authoritative). The lifecycle service satisfies this.
type Deleter interface {
	Delete(ctx context.Context, id string) error
}

type Sweeper struct {
	repo     storiesrepo.Repository
	deleter  Deleter
	logger   logging.Logger
	interval time.Duration
	now      func() time.Time
}

func New(repo storiesrepo.Repository, deleter Deleter, logger logging.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{
		repo:     repo,
		deleter:  deleter,
		logger:   logger.With("module", "sweeper"),
		interval: interval,
		now:      time.Now,
	}
}

// Run executes a sweep every interval until ctx is cancelled. Errors never
// stop the loop; the sweeper runs unattended.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info(ctx, "sweeper started", "interval", s.interval.String())

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-ctx.Done():
			s.logger.Info(ctx, "sweeper stopped")
			return
		}
	}
}

// Sweep lists all records and deletes every one past its expiry. Deletions
// fan out concurrently with no inter-record ordering. Running a second
// sweep immediately after the first deletes nothing: records already gone
// are treated as success.
func (s *Sweeper) Sweep(ctx context.Context) (deleted int) {
	metrics.SweepRuns.Inc()

	all, err := s.repo.ListAll(ctx)
	if err != nil {
		metrics.SweepErrors.Inc()
		s.logger.Error(ctx, "sweep list failed", "error", err.Error())
		return 0
	}

	now := s.now()
	var expired []string
	for _, story := range all {
		if !story.Active(now) {
			expired = append(expired, story.ID)
		}
	}
	if len(expired) == 0 {
		return 0
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		count int
	)
	for _, id := range expired {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			err := s.deleter.Delete(ctx, id)
			switch {
			case err == nil:
				mu.Lock()
				count++
				mu.Unlock()
				metrics.SweepDeleted.Inc()
				metrics.StoriesDeleted.WithLabelValues("expired").Inc()
			case errors.Is(err, common.ErrNotFound):
				// Already reclaimed by someone else.
			default:
				metrics.SweepErrors.Inc()
				s.logger.Error(ctx, "sweep delete failed", "id", id, "error", err.Error())
			}
		}(id)
	}
	wg.Wait()

	s.logger.Info(ctx, "sweep finished", "expired", len(expired), "deleted", count)
	return count
}
