package realtime

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/communehq/commune/internal/logger"
	"github.com/communehq/commune/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Send pings to peer with this period
	pingPeriod = 30 * time.Second
)

// Handler upgrades authenticated requests to a WebSocket that streams
// change events.
type Handler struct {
	feed           Feed
	originPatterns []string
}

// NewHandler creates a new realtime WebSocket handler
func NewHandler(feed Feed, originPatterns []string) *Handler {
	return &Handler{feed: feed, originPatterns: originPatterns}
}

// ParseTables validates a comma separated table list. Empty selects all.
func ParseTables(raw string) ([]string, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, true
	}
	var tables []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if !known(t) {
			return nil, false
		}
		tables = append(tables, t)
	}
	return tables, true
}

func known(table string) bool {
	for _, k := range KnownTables {
		if k == table {
			return true
		}
	}
	return false
}

// Serve handles GET /api/v1/realtime?tables=comments,notifications
func (h *Handler) Serve(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	tables, valid := ParseTables(c.Query("tables"))
	if !valid {
		util.RespondBadRequest(c, "unknown table in tables parameter")
		return
	}

	// gin's writer refuses to hijack once the handshake headers go out
	// through it, so the upgrade writes to the underlying writer.
	var w http.ResponseWriter = c.Writer
	if u, ok := c.Writer.(interface{ Unwrap() http.ResponseWriter }); ok {
		w = u.Unwrap()
	}
	conn, err := websocket.Accept(w, c.Request, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		logger.WarnWithFields("WebSocket upgrade failed", err)
		return
	}
	defer conn.CloseNow()

	// Clients only listen; CloseRead handles control frames and cancels ctx
	// when the peer goes away.
	ctx := conn.CloseRead(c.Request.Context())

	events, cancel := h.feed.Subscribe(ctx, Filter{Tables: tables, UserID: userID})
	defer cancel()

	logger.Log.Info("Realtime client connected",
		logger.WithUserID(userID),
		zap.Strings("tables", tables),
	)

	if err := stream(ctx, conn, events); err != nil && ctx.Err() == nil {
		logger.Log.Warn("Realtime stream ended", logger.WithUserID(userID), zap.Error(err))
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

func stream(ctx context.Context, conn *websocket.Conn, events <-chan Event) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case e, ok := <-events:
			if !ok {
				return nil
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := wsjson.Write(writeCtx, conn, e)
			cancel()
			if err != nil {
				return err
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}
