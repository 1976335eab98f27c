// Package api is the HTTP/WebSocket client for the story server. It mirrors
// the server's endpoint surface: multipart upload, delete, mark-viewed, and
// a snapshot subscription that hands every push to a callback and returns a
// disposer.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/syqdur/wedpxres-sub001/internal/client/config"
	"github.com/syqdur/wedpxres-sub001/internal/common"
	"github.com/syqdur/wedpxres-sub001/internal/models"
)

// Scope mirrors the server's subscription partitions.
type Scope string

const (
	ScopeActive Scope = "active"
	ScopeAll    Scope = "all"
)

type Client struct {
	baseURL    string
	deviceID   string
	adminToken string
	httpClient *http.Client
	dialer     *websocket.Dialer
}

func New(cfg *config.Config) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.ServerEndpointAddr, "/"),
		deviceID:   cfg.DeviceID,
		adminToken: cfg.AdminToken,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		dialer:     websocket.DefaultDialer,
	}
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set(common.DeviceIDHeaderName, c.deviceID)
	if c.adminToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.adminToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrConnectivity, err)
	}
	return resp, nil
}

// statusToErr maps the server's error statuses back onto the shared
// sentinels so callers keep using errors.Is on both sides of the wire.
func statusToErr(code int) error {
	switch code {
	case http.StatusBadRequest:
		return common.ErrValidation
	case http.StatusForbidden:
		return common.ErrPermission
	case http.StatusNotFound:
		return common.ErrNotFound
	case http.StatusBadGateway:
		return common.ErrConnectivity
	}
	return fmt.Errorf("unexpected status %d", code)
}

// CreateStory uploads a media payload and returns the created record.
func (c *Client) CreateStory(ctx context.Context, userName, fileName string, media []byte) (*models.Story, error) {
	contentType := mime.TypeByExtension(path.Ext(fileName))
	if contentType == "" {
		contentType = http.DetectContentType(media)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(media); err != nil {
		return nil, err
	}
	if err := w.WriteField("userName", userName); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/stories", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("creating story: %w", statusToErr(resp.StatusCode))
	}

	var story models.Story
	if err := decodeJSON(resp.Body, &story); err != nil {
		return nil, fmt.Errorf("decoding created story: %w", err)
	}
	return &story, nil
}

// DeleteStory removes a story. The server enforces ownership unless the
// client carries an admin token.
func (c *Client) DeleteStory(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/stories/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("deleting story %s: %w", id, statusToErr(resp.StatusCode))
	}
	return nil
}

// MarkViewed records that this device has seen the story. Idempotent
// server-side.
func (c *Client) MarkViewed(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/stories/"+url.PathEscape(id)+"/views", nil)
	if err != nil {
		return err
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("marking story %s viewed: %w", id, statusToErr(resp.StatusCode))
	}
	return nil
}

// Preload warms the media cache by fetching and discarding the payload.
// Callers treat a failure as non-fatal.
func (c *Client) Preload(ctx context.Context, mediaURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", common.ErrConnectivity, err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("preload: %w", statusToErr(resp.StatusCode))
	}
	return nil
}

// Subscribe opens the snapshot stream and invokes onUpdate for every push,
// starting with the server's initial snapshot. It returns a disposer that
// stops the stream; after Dispose returns no further callbacks fire from a
// new read. The callback runs on the subscription's own goroutine.
func (c *Client) Subscribe(ctx context.Context, scope Scope, onUpdate func([]*models.Story)) (func(), error) {
	wsBase := "ws" + strings.TrimPrefix(c.baseURL, "http")

	u := wsBase + "/ws/stories?scope=" + string(scope)
	if scope == ScopeAll && c.adminToken != "" {
		u += "&token=" + url.QueryEscape(c.adminToken)
	}

	conn, _, err := c.dialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: subscribing: %s", common.ErrConnectivity, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var snapshot []*models.Story
			if err := conn.ReadJSON(&snapshot); err != nil {
				return
			}
			if snapshot == nil {
				snapshot = []*models.Story{}
			}
			onUpdate(snapshot)
		}
	}()

	return func() {
		conn.Close()
		<-done
	}, nil
}

func decodeJSON(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}
