package db

import (
	"context"
	"database/sql"

	"github.com/syqdur/wedpxres-sub001/internal/server/repositories/stories"
)

// InMemoryRepositoryManager backs the repositories with process-local maps.
// Used by tests and by local runs without a database.
type InMemoryRepositoryManager struct {
	stories stories.Repository
}

func (m InMemoryRepositoryManager) Conn() *sql.DB {
	return nil
}

func (m InMemoryRepositoryManager) RunMigrations(ctx context.Context) error {
	return nil
}

func (m InMemoryRepositoryManager) Stories() stories.Repository {
	return m.stories
}

func NewInMemoryRepositoryManager() RepositoryManager {
	return InMemoryRepositoryManager{stories: stories.NewInMemoryRepository()}
}
