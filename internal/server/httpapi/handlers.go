package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/syqdur/wedpxres-sub001/internal/common"
	"github.com/syqdur/wedpxres-sub001/internal/server/auth"
	"github.com/syqdur/wedpxres-sub001/internal/server/metrics"
	"github.com/syqdur/wedpxres-sub001/internal/server/stories"
)

// writeError maps the error taxonomy to HTTP statuses with a
// user-presentable message.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "story not found"})
	case errors.Is(err, common.ErrPermission), errors.Is(err, common.ErrInvalidToken):
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
	case errors.Is(err, common.ErrConnectivity):
		c.JSON(http.StatusBadGateway, gin.H{"error": "storage backend unreachable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// isAdmin reports whether the request carries a valid admin bearer token.
func (h *Handler) isAdmin(c *gin.Context) bool {
	header := c.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" || token == header {
		// WebSocket clients cannot always set headers.
		token = c.Query("token")
	}
	if token == "" {
		return false
	}
	return auth.VerifyAdminToken(token, h.secret) == nil
}

// CreateStory accepts a multipart upload (fields: file, userName) and
// returns the created record. The caller's device identity comes from the
// X-Device-ID header.
func (h *Handler) CreateStory(c *gin.Context) {
	deviceID := c.GetHeader(common.DeviceIDHeaderName)
	userName := c.PostForm("userName")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		writeError(c, common.ErrValidation)
		return
	}
	if fileHeader.Size > common.MaxUploadSize {
		writeError(c, common.ErrValidation)
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		writeError(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, common.MaxUploadSize+1))
	if err != nil {
		writeError(c, err)
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	story, err := h.service.Create(c.Request.Context(), stories.CreateInput{
		File:        data,
		ContentType: contentType,
		OrigName:    fileHeader.Filename,
		UserName:    userName,
		DeviceID:    deviceID,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, story)
}

// DeleteStory removes a story. Owners may delete their own; admins may
// delete any.
func (h *Handler) DeleteStory(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	reason := "admin"
	if !h.isAdmin(c) {
		owner, err := h.service.Owner(ctx, id)
		if err != nil {
			writeError(c, err)
			return
		}
		if owner != c.GetHeader(common.DeviceIDHeaderName) {
			writeError(c, common.ErrPermission)
			return
		}
		reason = "owner"
	}

	if err := h.service.Delete(ctx, id); err != nil {
		writeError(c, err)
		return
	}

	metrics.StoriesDeleted.WithLabelValues(reason).Inc()
	c.Status(http.StatusNoContent)
}

// MarkViewed records a view for the calling device. Failures never block
// playback: everything except a missing viewer identity is swallowed after
// logging, and the response is 204 either way.
func (h *Handler) MarkViewed(c *gin.Context) {
	id := c.Param("id")

	viewerID := c.GetHeader(common.DeviceIDHeaderName)
	var body struct {
		ViewerID string `json:"viewerId"`
	}
	if err := c.ShouldBindJSON(&body); err == nil && body.ViewerID != "" {
		viewerID = body.ViewerID
	}
	if viewerID == "" {
		writeError(c, common.ErrValidation)
		return
	}

	if err := h.service.MarkViewed(c.Request.Context(), id, viewerID); err != nil {
		h.logger.Warn(c.Request.Context(), "mark viewed failed", "id", id, "viewer", viewerID, "error", err.Error())
	}

	c.Status(http.StatusNoContent)
}
