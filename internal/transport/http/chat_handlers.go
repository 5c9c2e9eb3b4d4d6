package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/trvo-dev/quizhub-server/internal/chat"
	"github.com/trvo-dev/quizhub-server/internal/store"
)

// ChatHandlers provides HTTP handlers for community chat reads and deletes.
type ChatHandlers struct {
	store store.Store
	hub   *chat.Hub
	log   *zerolog.Logger
}

// NewChatHandlers creates a new chat handlers instance.
func NewChatHandlers(st store.Store, hub *chat.Hub, logger *zerolog.Logger) *ChatHandlers {
	return &ChatHandlers{
		store: st,
		hub:   hub,
		log:   logger,
	}
}

// ChatMessageResponse represents a community message in API responses.
type ChatMessageResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// PrivateMessageResponse represents a direct message in API responses.
type PrivateMessageResponse struct {
	ID           string    `json:"id"`
	FromUserID   string    `json:"fromUserId"`
	FromUserName string    `json:"fromUserName"`
	ToUserID     string    `json:"toUserId"`
	Content      string    `json:"content"`
	Timestamp    time.Time `json:"timestamp"`
}

// OnlineUsersResponse lists currently connected users for a scope.
type OnlineUsersResponse struct {
	Users []chat.UserRef `json:"users"`
}

// pagination reads limit/offset query parameters with sane bounds.
func pagination(c *gin.Context, defaultLimit, maxLimit int) (limit, offset int) {
	limit = defaultLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if raw := c.Query("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// ListMessages returns community chat history, oldest first.
// GET /api/chat/messages?limit=&offset=
func (h *ChatHandlers) ListMessages(c *gin.Context) {
	limit, offset := pagination(c, 50, 100)

	messages, err := h.store.ListChatMessages(c.Request.Context(), limit, offset)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list chat messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]ChatMessageResponse, 0, len(messages))
	for _, msg := range messages {
		response = append(response, ChatMessageResponse{
			ID:        msg.ID,
			UserID:    msg.UserID,
			UserName:  msg.UserName,
			Content:   msg.Content,
			Timestamp: msg.Timestamp,
		})
	}
	c.JSON(http.StatusOK, gin.H{"messages": response})
}

// ListPrivateMessages returns the conversation between the caller and another user.
// GET /api/chat/private/:user_id?limit=&offset=
func (h *ChatHandlers) ListPrivateMessages(c *gin.Context) {
	currentUserID := c.GetString(ContextKeyUserID)
	otherUserID := c.Param("user_id")
	limit, offset := pagination(c, 50, 100)

	messages, err := h.store.ListPrivateMessages(c.Request.Context(), currentUserID, otherUserID, limit, offset)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list private messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]PrivateMessageResponse, 0, len(messages))
	for _, msg := range messages {
		response = append(response, PrivateMessageResponse{
			ID:           msg.ID,
			FromUserID:   msg.FromUserID,
			FromUserName: msg.FromUserName,
			ToUserID:     msg.ToUserID,
			Content:      msg.Content,
			Timestamp:    msg.Timestamp,
		})
	}
	c.JSON(http.StatusOK, gin.H{"messages": response})
}

// DeletePrivateMessages removes the caller's conversation with another user.
// DELETE /api/chat/private/:user_id
func (h *ChatHandlers) DeletePrivateMessages(c *gin.Context) {
	currentUserID := c.GetString(ContextKeyUserID)
	otherUserID := c.Param("user_id")

	deleted, err := h.store.DeletePrivateMessages(c.Request.Context(), currentUserID, otherUserID)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to delete private messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// OnlineUsers returns the community presence snapshot.
// GET /api/chat/online
func (h *ChatHandlers) OnlineUsers(c *gin.Context) {
	users := h.hub.OnlineUsers(chat.GlobalScope())
	refs := make([]chat.UserRef, 0, len(users))
	for _, u := range users {
		refs = append(refs, chat.UserRef{ID: u.ID, Name: u.Name})
	}
	c.JSON(http.StatusOK, OnlineUsersResponse{Users: refs})
}

// DeleteMessage removes one community message. Admin only.
// DELETE /api/chat/messages/:message_id
func (h *ChatHandlers) DeleteMessage(c *gin.Context) {
	messageID := c.Param("message_id")

	if err := h.store.DeleteChatMessage(c.Request.Context(), messageID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "message not found"})
			return
		}
		h.log.Error().Err(err).Str("message_id", messageID).Msg("failed to delete chat message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": 1})
}

// DeleteAllMessages wipes community chat history. Admin only.
// DELETE /api/chat/messages
func (h *ChatHandlers) DeleteAllMessages(c *gin.Context) {
	deleted, err := h.store.DeleteAllChatMessages(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to delete chat messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	h.log.Info().Int64("deleted", deleted).Str("admin_id", c.GetString(ContextKeyUserID)).Msg("community history wiped")
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
