package http

import (
	"context"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/trvo-dev/quizhub-server/internal/auth"
	"github.com/trvo-dev/quizhub-server/internal/chat"
	"github.com/trvo-dev/quizhub-server/internal/store"
)

// Reserved close codes surfaced to clients. These are the only error
// signals a socket client ever sees; mid-session failures are either
// recovered silently or end in a plain close.
const (
	// StatusInvalidToken closes connections whose token is missing, invalid,
	// or resolves to an unknown user.
	StatusInvalidToken websocket.StatusCode = 4001
	// StatusRoomNotFound closes discussion connections for quiz ids that are
	// not open discussion topics.
	StatusRoomNotFound websocket.StatusCode = 4004
)

// WSHandler upgrades HTTP connections and bridges them to chat sessions.
type WSHandler struct {
	hub          *chat.Hub
	authService  *auth.Service
	store        store.Store
	writeTimeout time.Duration
	log          *zerolog.Logger
}

// NewWSHandler builds a WebSocket handler for both socket endpoints.
func NewWSHandler(hub *chat.Hub, authService *auth.Service, st store.Store, writeTimeout time.Duration, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub:          hub,
		authService:  authService,
		store:        st,
		writeTimeout: writeTimeout,
		log:          logger,
	}
}

// Community serves the global chat channel.
// GET /ws/chat?token=...
func (h *WSHandler) Community(c *gin.Context) {
	conn, identity, ok := h.acceptAuthenticated(c)
	if !ok {
		return
	}

	session := chat.NewSession(h.hub, h.store, identity, chat.GlobalScope(), newWSConn(conn, h.writeTimeout), h.log)
	session.Run(c.Request.Context())
}

// Discussion serves one quiz discussion room.
// GET /ws/discussion/:quiz_id?token=...
func (h *WSHandler) Discussion(c *gin.Context) {
	conn, identity, ok := h.acceptAuthenticated(c)
	if !ok {
		return
	}

	quizID := c.Param("quiz_id")
	exists, err := h.store.DiscussionExists(c.Request.Context(), quizID)
	if err != nil {
		h.log.Error().Err(err).Str("quiz_id", quizID).Msg("room directory lookup failed")
		conn.Close(websocket.StatusInternalError, "internal error")
		return
	}
	if !exists {
		conn.Close(StatusRoomNotFound, "room not found")
		return
	}

	session := chat.NewSession(h.hub, h.store, identity, chat.RoomScope(quizID), newWSConn(conn, h.writeTimeout), h.log)
	session.Run(c.Request.Context())
}

// acceptAuthenticated upgrades the connection and resolves the token query
// parameter. On auth failure the socket is closed with StatusInvalidToken and
// the session is never created.
func (h *WSHandler) acceptAuthenticated(c *gin.Context) (*websocket.Conn, chat.Identity, bool) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("ws accept error")
		return nil, chat.Identity{}, false
	}

	token := c.Query("token")
	if token == "" {
		conn.Close(StatusInvalidToken, "missing token")
		return nil, chat.Identity{}, false
	}

	user, err := h.authService.ResolveToken(c.Request.Context(), token)
	if err != nil {
		h.log.Debug().Err(err).Msg("ws token rejected")
		conn.Close(StatusInvalidToken, "invalid token")
		return nil, chat.Identity{}, false
	}

	return conn, chat.Identity{ID: user.ID, Name: user.Name}, true
}

// wsConn adapts a websocket connection to chat.Conn. Each write is guarded by
// a timeout so one blocked peer cannot stall a broadcast pass.
type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func newWSConn(conn *websocket.Conn, writeTimeout time.Duration) *wsConn {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &wsConn{conn: conn, writeTimeout: writeTimeout}
}

func (c *wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.conn.Read(ctx)
	return data, err
}

func (c *wsConn) Send(ctx context.Context, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (c *wsConn) Close(reason string) error {
	return c.conn.Close(websocket.StatusNormalClosure, reason)
}
