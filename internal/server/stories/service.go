// Package stories implements the story lifecycle: validated creation with
// compensating cleanup, deletion with authoritative metadata removal, and
// idempotent view accounting.
package stories

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/syqdur/wedpxres-sub001/internal/common"
	"github.com/syqdur/wedpxres-sub001/internal/logging"
	"github.com/syqdur/wedpxres-sub001/internal/models"
	"github.com/syqdur/wedpxres-sub001/internal/server/blob"
	"github.com/syqdur/wedpxres-sub001/internal/server/metrics"
	storiesrepo "github.com/syqdur/wedpxres-sub001/internal/server/repositories/stories"
)

// Notifier receives a ping after every successful mutation so live
// subscribers get a fresh snapshot. The broker satisfies this.
type Notifier interface {
	Notify(ctx context.Context)
}

type Service struct {
	repo     storiesrepo.Repository
	blob     blob.Store
	notifier Notifier
	logger   logging.Logger
	now      func() time.Time
}

func NewService(repo storiesrepo.Repository, blobStore blob.Store, notifier Notifier, logger logging.Logger) *Service {
	return &Service{
		repo:     repo,
		blob:     blobStore,
		notifier: notifier,
		logger:   logger.With("module", "stories"),
		now:      time.Now,
	}
}

// CreateInput carries a story upload. ContentType is the declared MIME type
// of File; OrigName is the client-side file name, used only for its
// extension.
type CreateInput struct {
	File        []byte
	ContentType string
	OrigName    string
	UserName    string
	DeviceID    string
}

// Create validates the upload, writes the blob, then writes the metadata
// record. The record store is the single source of truth: if the record
// write fails after a successful upload, the uploaded blob is deleted again
// before the error is returned.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Story, error) {
	mediaType, err := validateUpload(in)
	if err != nil {
		return nil, err
	}

	createdAt := s.now().UTC()
	key := storageKey(createdAt, in.UserName, fileExt(in))

	locator, err := s.blob.Put(ctx, key, in.File, in.ContentType)
	if err != nil {
		return nil, fmt.Errorf("%w: uploading media: %s", common.ErrConnectivity, err)
	}

	story := &models.Story{
		MediaURL:  locator,
		MediaType: mediaType,
		UserName:  in.UserName,
		DeviceID:  in.DeviceID,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(common.StoryTTL),
		Views:     []string{},
		FileName:  key,
	}

	if err := s.repo.Create(ctx, story); err != nil {
		// Compensate: a record that does not exist must not leave an
		// orphaned blob behind. The original failure is still the one
		// surfaced to the caller.
		if delErr := s.blob.Delete(ctx, key); delErr != nil {
			s.logger.Error(ctx, "compensating blob delete failed", "key", key, "error", delErr.Error())
		}
		return nil, fmt.Errorf("%w: story record write: %s", common.ErrPartialFailure, err)
	}

	metrics.StoriesCreated.Inc()
	s.notifier.Notify(ctx)

	s.logger.Info(ctx, "story created", "id", story.ID, "user", story.UserName, "expiresAt", story.ExpiresAt)
	return story, nil
}

// Delete removes a story's blob best-effort and its metadata record
// authoritatively. Visibility is judged on the metadata record alone, so a
// blob delete failure is only a warning while a record delete failure is
// fatal. A record that is already gone counts as success.
func (s *Service) Delete(ctx context.Context, id string) error {
	story, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNotFound
		}
		return fmt.Errorf("fetching story %s: %w", id, err)
	}

	if story.FileName != "" {
		if err := s.blob.Delete(ctx, story.FileName); err != nil {
			s.logger.Warn(ctx, "blob delete failed, continuing", "id", id, "key", story.FileName, "error", err.Error())
		}
	} else {
		// Legacy records have no recorded blob key.
		s.logger.Warn(ctx, "story has no blob key, skipping media delete", "id", id)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// Raced with another deleter; the record is gone, which is
			// the outcome we wanted.
			return nil
		}
		return fmt.Errorf("deleting story record %s: %w", id, err)
	}

	s.notifier.Notify(ctx)
	s.logger.Info(ctx, "story deleted", "id", id)
	return nil
}

// Owner returns the story's author device id, for access checks.
func (s *Service) Owner(ctx context.Context, id string) (string, error) {
	story, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return story.DeviceID, nil
}

// MarkViewed records that viewerID has seen the story. Safe to call any
// number of times; only the first call changes the view set.
func (s *Service) MarkViewed(ctx context.Context, id string, viewerID string) error {
	if viewerID == "" {
		return fmt.Errorf("%w: empty viewer id", common.ErrValidation)
	}

	added, err := s.repo.AppendView(ctx, id, viewerID)
	if err != nil {
		return fmt.Errorf("marking story %s viewed: %w", id, err)
	}
	if !added {
		return nil
	}

	metrics.ViewsMarked.Inc()
	s.notifier.Notify(ctx)
	return nil
}

func validateUpload(in CreateInput) (models.MediaType, error) {
	if len(in.File) == 0 {
		return "", fmt.Errorf("%w: empty file", common.ErrValidation)
	}
	if len(in.File) > common.MaxUploadSize {
		return "", fmt.Errorf("%w: file exceeds %d bytes", common.ErrValidation, common.MaxUploadSize)
	}
	if in.UserName == "" {
		return "", fmt.Errorf("%w: empty user name", common.ErrValidation)
	}
	if in.DeviceID == "" {
		return "", fmt.Errorf("%w: empty device id", common.ErrValidation)
	}

	switch {
	case strings.HasPrefix(in.ContentType, "image/"):
		return models.MediaTypeImage, nil
	case strings.HasPrefix(in.ContentType, "video/"):
		return models.MediaTypeVideo, nil
	}
	return "", fmt.Errorf("%w: unsupported content type %q", common.ErrValidation, in.ContentType)
}

// storageKey derives a deterministic, collision-resistant blob key from the
// creation instant and the sanitized author name.
func storageKey(createdAt time.Time, userName, ext string) string {
	return fmt.Sprintf("stories/%d-%s%s", createdAt.UnixMilli(), sanitizeName(userName), ext)
}

// sanitizeName keeps blob keys URL- and filesystem-safe: lowercase
// alphanumerics, everything else collapsed to a dash.
func sanitizeName(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func fileExt(in CreateInput) string {
	if ext := path.Ext(in.OrigName); ext != "" {
		return ext
	}
	if exts, err := mime.ExtensionsByType(in.ContentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
