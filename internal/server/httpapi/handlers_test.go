package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syqdur/wedpxres-sub001/internal/common"
	"github.com/syqdur/wedpxres-sub001/internal/logging"
	"github.com/syqdur/wedpxres-sub001/internal/models"
	"github.com/syqdur/wedpxres-sub001/internal/server/auth"
	"github.com/syqdur/wedpxres-sub001/internal/server/broker"
	"github.com/syqdur/wedpxres-sub001/internal/server/config"
	storiesrepo "github.com/syqdur/wedpxres-sub001/internal/server/repositories/stories"
	"github.com/syqdur/wedpxres-sub001/internal/server/stories"
)

const testSecret = "test-secret"

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

type fakeBlob struct {
	mu   sync.Mutex
	keys map[string][]byte
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{keys: make(map[string][]byte)}
}

func (f *fakeBlob) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[key] = body
	return "https://blob.test/" + key, nil
}

func (f *fakeBlob) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, key)
	return nil
}

type env struct {
	repo    storiesrepo.Repository
	service *stories.Service
	router  *gin.Engine
}

func newTestEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := testLogger()
	repo := storiesrepo.NewInMemoryRepository()
	b := broker.New(repo, logger)
	svc := stories.NewService(repo, newFakeBlob(), b, logger)

	cfg := &config.Config{SecretKey: testSecret}
	h := NewHandler(svc, b, cfg, logger)

	return &env{repo: repo, service: svc, router: SetupRouter(h)}
}

func uploadRequest(t *testing.T, userName, fileName, contentType string, body []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(body)
	require.NoError(t, err)

	require.NoError(t, w.WriteField("userName", userName))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/stories", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestCreateStory_OK(t *testing.T) {
	e := newTestEnv(t)

	req := uploadRequest(t, "Maria K", "beach.jpg", "image/jpeg", []byte("jpegdata"))
	req.Header.Set(common.DeviceIDHeaderName, "dev-1")

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var story models.Story
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &story))
	assert.NotEmpty(t, story.ID)
	assert.Equal(t, "Maria K", story.UserName)
	assert.Equal(t, "dev-1", story.DeviceID)
	assert.Equal(t, models.MediaTypeImage, story.MediaType)
	assert.Contains(t, story.MediaURL, "https://blob.test/stories/")
	assert.Equal(t, story.CreatedAt.Add(common.StoryTTL), story.ExpiresAt)
	assert.Empty(t, story.Views)
}

func TestCreateStory_MissingFile(t *testing.T) {
	e := newTestEnv(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("userName", "Maria"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/stories", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set(common.DeviceIDHeaderName, "dev-1")

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateStory_RejectsNonMedia(t *testing.T) {
	e := newTestEnv(t)

	req := uploadRequest(t, "Maria", "notes.txt", "text/plain", []byte("hello"))
	req.Header.Set(common.DeviceIDHeaderName, "dev-1")

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateStory_MissingDeviceID(t *testing.T) {
	e := newTestEnv(t)

	req := uploadRequest(t, "Maria", "beach.jpg", "image/jpeg", []byte("jpegdata"))

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func seedStory(t *testing.T, e *env, userName, deviceID string) *models.Story {
	t.Helper()
	story, err := e.service.Create(context.Background(), stories.CreateInput{
		File:        []byte("jpegdata"),
		ContentType: "image/jpeg",
		OrigName:    "pic.jpg",
		UserName:    userName,
		DeviceID:    deviceID,
	})
	require.NoError(t, err)
	return story
}

func TestDeleteStory_Owner(t *testing.T) {
	e := newTestEnv(t)
	story := seedStory(t, e, "Maria", "dev-1")

	req := httptest.NewRequest(http.MethodDelete, "/api/stories/"+story.ID, nil)
	req.Header.Set(common.DeviceIDHeaderName, "dev-1")

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, err := e.repo.GetByID(context.Background(), story.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteStory_ForbiddenForOtherDevice(t *testing.T) {
	e := newTestEnv(t)
	story := seedStory(t, e, "Maria", "dev-1")

	req := httptest.NewRequest(http.MethodDelete, "/api/stories/"+story.ID, nil)
	req.Header.Set(common.DeviceIDHeaderName, "dev-2")

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	_, err := e.repo.GetByID(context.Background(), story.ID)
	assert.NoError(t, err, "story must survive a forbidden delete")
}

func TestDeleteStory_AdminToken(t *testing.T) {
	e := newTestEnv(t)
	story := seedStory(t, e, "Maria", "dev-1")

	token, err := auth.GenerateAdminToken([]byte(testSecret), time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/api/stories/"+story.ID, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(common.DeviceIDHeaderName, "dev-2")

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDeleteStory_NotFound(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/stories/nope", nil)
	req.Header.Set(common.DeviceIDHeaderName, "dev-1")

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMarkViewed_Idempotent(t *testing.T) {
	e := newTestEnv(t)
	story := seedStory(t, e, "Maria", "dev-1")

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/stories/"+story.ID+"/views", nil)
		req.Header.Set(common.DeviceIDHeaderName, "viewer-1")

		rec := httptest.NewRecorder()
		e.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	got, err := e.repo.GetByID(context.Background(), story.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"viewer-1"}, got.Views)
}

func TestMarkViewed_BodyViewerOverridesHeader(t *testing.T) {
	e := newTestEnv(t)
	story := seedStory(t, e, "Maria", "dev-1")

	body := bytes.NewBufferString(`{"viewerId":"viewer-9"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/stories/"+story.ID+"/views", body)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	got, err := e.repo.GetByID(context.Background(), story.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"viewer-9"}, got.Views)
}

func TestMarkViewed_MissingViewer(t *testing.T) {
	e := newTestEnv(t)
	story := seedStory(t, e, "Maria", "dev-1")

	req := httptest.NewRequest(http.MethodPost, "/api/stories/"+story.ID+"/views", nil)

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarkViewed_UnknownStoryStillNoContent(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/stories/nope/views", nil)
	req.Header.Set(common.DeviceIDHeaderName, "viewer-1")

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code, "view failures never surface to playback")
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
