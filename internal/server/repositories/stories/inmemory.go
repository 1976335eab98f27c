package stories

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/syqdur/wedpxres-sub001/internal/common"
	"github.com/syqdur/wedpxres-sub001/internal/models"
)

// InMemoryRepository keeps story records in a map guarded by a mutex.
// It mirrors the Postgres repository's semantics (snapshot ordering,
// idempotent view append, not-found sentinels) for tests and local runs.
type InMemoryRepository struct {
	mu      sync.Mutex
	records map[string]*models.Story
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{records: make(map[string]*models.Story)}
}

func (r *InMemoryRepository) Create(ctx context.Context, story *models.Story) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if story.ID == "" {
		story.ID = uuid.NewString()
	}
	clone := cloneStory(story)
	r.records[clone.ID] = clone
	return nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*models.Story, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	story, ok := r.records[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneStory(story), nil
}

func (r *InMemoryRepository) ListAll(ctx context.Context) ([]*models.Story, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*models.Story, 0, len(r.records))
	for _, story := range r.records {
		result = append(result, cloneStory(story))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (r *InMemoryRepository) AppendView(ctx context.Context, id string, viewerID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	story, ok := r.records[id]
	if !ok {
		return false, common.ErrNotFound
	}
	if story.ViewedBy(viewerID) {
		return false, nil
	}
	story.Views = append(story.Views, viewerID)
	return true, nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.records, id)
	return nil
}

func cloneStory(s *models.Story) *models.Story {
	clone := *s
	clone.Views = append([]string(nil), s.Views...)
	return &clone
}
