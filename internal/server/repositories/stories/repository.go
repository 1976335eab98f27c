package stories

import (
	"context"

	"github.com/syqdur/wedpxres-sub001/internal/models"
)

// Repository is the durable story record store.
//
// Delete of a missing id returns common.ErrNotFound so callers that need
// idempotence (the sweeper) can treat it as success. AppendView reports
// whether the viewer was actually added; re-adding is a no-op.
type Repository interface {
	Create(ctx context.Context, story *models.Story) error
	GetByID(ctx context.Context, id string) (*models.Story, error)
	ListAll(ctx context.Context) ([]*models.Story, error)
	AppendView(ctx context.Context, id string, viewerID string) (bool, error)
	Delete(ctx context.Context, id string) error
}
