package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/syqdur/wedpxres-sub001/internal/common"
	"github.com/syqdur/wedpxres-sub001/internal/server/broker"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WatchStories upgrades the connection and streams full story snapshots.
// The scope query parameter selects the partition: "active" (default) or
// "all". The unfiltered "all" scope requires an admin token.
func (h *Handler) WatchStories(c *gin.Context) {
	scope := broker.ScopeActive
	switch c.Query("scope") {
	case "", string(broker.ScopeActive):
	case string(broker.ScopeAll):
		if !h.isAdmin(c) {
			writeError(c, common.ErrPermission)
			return
		}
		scope = broker.ScopeAll
	default:
		writeError(c, common.ErrValidation)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn(c.Request.Context(), "websocket upgrade failed", "error", err.Error())
		return
	}

	ctx := c.Request.Context()
	sub := h.broker.Subscribe(ctx, scope)
	defer sub.Dispose()
	defer conn.Close()

	// Reader goroutine: the client never sends application data, but we
	// must drain control frames and notice the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case snapshot, ok := <-sub.C:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(snapshot); err != nil {
				h.logger.Debug(ctx, "snapshot write failed, dropping subscriber", "error", err.Error())
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-ctx.Done():
			return
		}
	}
}
