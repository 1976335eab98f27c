// Package stories provides the PostgreSQL-backed repository for story
// record persistence, plus an in-memory variant for tests.
package stories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/syqdur/wedpxres-sub001/internal/common"
	"github.com/syqdur/wedpxres-sub001/internal/dbx"
	"github.com/syqdur/wedpxres-sub001/internal/models"
)

// PostgresRepository implements story storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new story record. The id is store-assigned when empty.
func (r *PostgresRepository) Create(ctx context.Context, story *models.Story) error {
	if story.ID == "" {
		story.ID = uuid.NewString()
	}
	views, err := json.Marshal(story.Views)
	if err != nil {
		return fmt.Errorf("marshal views: %w", err)
	}
	if story.Views == nil {
		views = []byte("[]")
	}

	query := `
		INSERT INTO stories (id, media_url, media_type, user_name, device_id, created_at, expires_at, views, file_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	_, err = r.db.ExecContext(ctx, query,
		story.ID, story.MediaURL, string(story.MediaType), story.UserName, story.DeviceID,
		story.CreatedAt, story.ExpiresAt, views, story.FileName)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByID returns the story with the given id or common.ErrNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Story, error) {
	query := `
		SELECT id, media_url, media_type, user_name, device_id, created_at, expires_at, views, file_name
		FROM stories WHERE id = $1;
	`
	row := r.db.QueryRowContext(ctx, query, id)

	story, err := scanStory(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return story, nil
}

// ListAll returns every story record ordered by created_at descending.
// The ordering is the single globally agreed snapshot order.
func (r *PostgresRepository) ListAll(ctx context.Context) ([]*models.Story, error) {
	query := `
		SELECT id, media_url, media_type, user_name, device_id, created_at, expires_at, views, file_name
		FROM stories ORDER BY created_at DESC, id DESC;
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select stories: %w", err)
	}
	defer rows.Close()

	var result []*models.Story
	for rows.Next() {
		story, err := scanStory(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, story)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// AppendView adds viewerID to the story's view set as a single atomic
// set-union statement. Returns false when the viewer was already present.
// A missing id yields common.ErrNotFound. The update and the existence
// check that disambiguates a zero-row result run in one transaction so a
// concurrent delete cannot slip between them.
func (r *PostgresRepository) AppendView(ctx context.Context, id string, viewerID string) (bool, error) {
	db, ok := r.db.(*sql.DB)
	if !ok {
		// Already inside a caller-owned transaction.
		return appendView(ctx, r.db, id, viewerID)
	}

	var added bool
	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		added, err = appendView(ctx, tx, id, viewerID)
		return err
	})
	return added, err
}

func appendView(ctx context.Context, db dbx.DBTX, id string, viewerID string) (bool, error) {
	query := `
		UPDATE stories SET views = views || to_jsonb($2::text)
		WHERE id = $1 AND NOT views ? $2;
	`
	res, err := db.ExecContext(ctx, query, id, viewerID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	// Zero rows: either already viewed or the record is gone.
	var exists bool
	if err := db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM stories WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	if !exists {
		return false, common.ErrNotFound
	}
	return false, nil
}

// Delete removes the story record. A missing id yields common.ErrNotFound.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM stories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func scanStory(scan func(dest ...any) error) (*models.Story, error) {
	var (
		item      models.Story
		mediaType string
		views     []byte
	)
	if err := scan(
		&item.ID, &item.MediaURL, &mediaType, &item.UserName, &item.DeviceID,
		&item.CreatedAt, &item.ExpiresAt, &views, &item.FileName,
	); err != nil {
		return nil, err
	}

	mt, err := models.ParseMediaType(mediaType)
	if err != nil {
		return nil, err
	}
	item.MediaType = mt

	if err := json.Unmarshal(views, &item.Views); err != nil {
		return nil, fmt.Errorf("unmarshal views: %w", err)
	}
	return &item, nil
}
