package stories

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syqdur/wedpxres-sub001/internal/common"
	"github.com/syqdur/wedpxres-sub001/internal/logging"
	"github.com/syqdur/wedpxres-sub001/internal/models"
	storiesrepo "github.com/syqdur/wedpxres-sub001/internal/server/repositories/stories"
)

// --- fakes ---

type fakeBlob struct {
	putKeys    []string
	putErr     error
	deleteKeys []string
	deleteErr  error
}

func (f *fakeBlob) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	f.putKeys = append(f.putKeys, key)
	return "https://blob/" + key, nil
}

func (f *fakeBlob) Delete(ctx context.Context, key string) error {
	f.deleteKeys = append(f.deleteKeys, key)
	return f.deleteErr
}

type failingCreateRepo struct {
	storiesrepo.Repository
	createErr error
}

func (f *failingCreateRepo) Create(ctx context.Context, story *models.Story) error {
	return f.createErr
}

type countingNotifier struct{ n int }

func (c *countingNotifier) Notify(ctx context.Context) { c.n++ }

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

func newTestService(t *testing.T) (*Service, storiesrepo.Repository, *fakeBlob, *countingNotifier) {
	t.Helper()
	repo := storiesrepo.NewInMemoryRepository()
	fb := &fakeBlob{}
	notifier := &countingNotifier{}
	return NewService(repo, fb, notifier, testLogger()), repo, fb, notifier
}

func validInput() CreateInput {
	return CreateInput{
		File:        []byte("jpeg bytes"),
		ContentType: "image/jpeg",
		OrigName:    "photo.jpg",
		UserName:    "Maria K.",
		DeviceID:    "dev-1",
	}
}

// --- Create ---

func TestCreate_SetsExpiryExactly24hAfterCreation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	story, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, fixed, story.CreatedAt)
	assert.Equal(t, fixed.Add(24*time.Hour), story.ExpiresAt)
	assert.Equal(t, models.MediaTypeImage, story.MediaType)
	assert.NotEmpty(t, story.ID)
	assert.Empty(t, story.Views)
}

func TestCreate_DerivesDeterministicBlobKey(t *testing.T) {
	svc, _, fb, _ := newTestService(t)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	story, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	wantKey := "stories/1772366400000-maria-k.jpg"
	assert.Equal(t, wantKey, story.FileName)
	assert.Equal(t, []string{wantKey}, fb.putKeys)
	assert.Equal(t, "https://blob/"+wantKey, story.MediaURL)
}

func TestCreate_ValidationRejectsBeforeAnyIO(t *testing.T) {
	svc, _, fb, notifier := newTestService(t)

	tests := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"empty file", func(in *CreateInput) { in.File = nil }},
		{"oversized file", func(in *CreateInput) { in.File = make([]byte, common.MaxUploadSize+1) }},
		{"wrong content type", func(in *CreateInput) { in.ContentType = "application/pdf" }},
		{"empty user name", func(in *CreateInput) { in.UserName = "" }},
		{"empty device id", func(in *CreateInput) { in.DeviceID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)

			_, err := svc.Create(context.Background(), in)
			require.ErrorIs(t, err, common.ErrValidation)
			assert.Empty(t, fb.putKeys, "no network effect on validation failure")
			assert.Zero(t, notifier.n)
		})
	}
}

func TestCreate_AcceptsVideo(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	in := validInput()
	in.ContentType = "video/mp4"
	in.OrigName = "clip.mp4"

	story, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, models.MediaTypeVideo, story.MediaType)
}

func TestCreate_BlobFailureIsConnectivity(t *testing.T) {
	repo := storiesrepo.NewInMemoryRepository()
	fb := &fakeBlob{putErr: errors.New("bucket unreachable")}
	svc := NewService(repo, fb, &countingNotifier{}, testLogger())

	_, err := svc.Create(context.Background(), validInput())
	require.ErrorIs(t, err, common.ErrConnectivity)

	list, _ := repo.ListAll(context.Background())
	assert.Empty(t, list, "no record without a blob")
}

func TestCreate_CompensatesBlobOnRecordFailure(t *testing.T) {
	fb := &fakeBlob{}
	repo := &failingCreateRepo{createErr: errors.New("db down")}
	notifier := &countingNotifier{}
	svc := NewService(repo, fb, notifier, testLogger())

	_, err := svc.Create(context.Background(), validInput())
	require.ErrorIs(t, err, common.ErrPartialFailure)

	require.Len(t, fb.putKeys, 1)
	assert.Equal(t, fb.putKeys, fb.deleteKeys, "uploaded blob must be deleted again")
	assert.Zero(t, notifier.n, "no notification for a failed create")
}

func TestCreate_CompensatingDeleteFailureStillRaisesOriginal(t *testing.T) {
	fb := &fakeBlob{deleteErr: errors.New("also down")}
	repo := &failingCreateRepo{createErr: errors.New("db down")}
	svc := NewService(repo, fb, &countingNotifier{}, testLogger())

	_, err := svc.Create(context.Background(), validInput())
	require.ErrorIs(t, err, common.ErrPartialFailure)
	assert.Contains(t, err.Error(), "db down")
}

// --- Delete ---

func TestDelete_RemovesBlobAndRecord(t *testing.T) {
	svc, repo, fb, notifier := newTestService(t)

	story, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	notifier.n = 0

	require.NoError(t, svc.Delete(context.Background(), story.ID))

	assert.Contains(t, fb.deleteKeys, story.FileName)
	_, err = repo.GetByID(context.Background(), story.ID)
	require.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, 1, notifier.n)
}

func TestDelete_BlobFailureIsNotFatal(t *testing.T) {
	svc, repo, fb, _ := newTestService(t)

	story, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	fb.deleteErr = errors.New("bucket unreachable")
	require.NoError(t, svc.Delete(context.Background(), story.ID), "metadata is authoritative")

	_, err = repo.GetByID(context.Background(), story.ID)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestDelete_MissingStory(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	require.ErrorIs(t, svc.Delete(context.Background(), "missing"), common.ErrNotFound)
}

func TestDelete_LegacyRecordWithoutBlobKey(t *testing.T) {
	svc, repo, fb, _ := newTestService(t)

	story := &models.Story{
		MediaType: models.MediaTypeImage,
		UserName:  "Old",
		DeviceID:  "dev-old",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(common.StoryTTL),
	}
	require.NoError(t, repo.Create(context.Background(), story))

	require.NoError(t, svc.Delete(context.Background(), story.ID))
	assert.Empty(t, fb.deleteKeys, "no blob delete attempted without a key")
}

// --- MarkViewed ---

func TestMarkViewed_Idempotent(t *testing.T) {
	svc, repo, _, notifier := newTestService(t)

	story, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	notifier.n = 0

	ctx := context.Background()
	require.NoError(t, svc.MarkViewed(ctx, story.ID, "viewer-1"))
	require.NoError(t, svc.MarkViewed(ctx, story.ID, "viewer-1"))

	got, err := repo.GetByID(ctx, story.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"viewer-1"}, got.Views, "second call changes nothing")
	assert.Equal(t, 1, notifier.n, "only the first mark notifies")
}

func TestMarkViewed_EmptyViewer(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	require.ErrorIs(t, svc.MarkViewed(context.Background(), "any", ""), common.ErrValidation)
}

func TestMarkViewed_MissingStory(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	require.ErrorIs(t, svc.MarkViewed(context.Background(), "missing", "viewer-1"), common.ErrNotFound)
}

// --- helpers ---

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Maria K.", "maria-k"},
		{"  spaced  out  ", "spaced-out"},
		{"ALLCAPS123", "allcaps123"},
		{"---", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeName(tt.in), tt.in)
	}
}
