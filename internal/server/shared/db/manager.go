// Package db wires repositories to a concrete storage backend and owns
// schema migrations.
package db

import (
	"context"
	"database/sql"

	"github.com/syqdur/wedpxres-sub001/internal/server/repositories/stories"
)

type RepositoryManager interface {
	Conn() *sql.DB
	Stories() stories.Repository
	RunMigrations(ctx context.Context) error
}
