package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/trvo-dev/quizhub-server/internal/chat"
	"github.com/trvo-dev/quizhub-server/internal/store"
)

// DiscussionHandlers provides HTTP handlers for the quiz discussion directory.
type DiscussionHandlers struct {
	store store.Store
	hub   *chat.Hub
	log   *zerolog.Logger
}

// NewDiscussionHandlers creates a new discussion handlers instance.
func NewDiscussionHandlers(st store.Store, hub *chat.Hub, logger *zerolog.Logger) *DiscussionHandlers {
	return &DiscussionHandlers{
		store: st,
		hub:   hub,
		log:   logger,
	}
}

// AddDiscussionRequest represents the request body for opening a discussion.
type AddDiscussionRequest struct {
	QuizID    string `json:"quizId" binding:"required"`
	QuizTitle string `json:"quizTitle" binding:"required"`
}

// DiscussionResponse represents a discussion entry in API responses.
type DiscussionResponse struct {
	ID        string    `json:"id"`
	QuizID    string    `json:"quizId"`
	QuizTitle string    `json:"quizTitle"`
	AddedBy   string    `json:"addedBy"`
	AddedAt   time.Time `json:"addedAt"`
}

// DiscussionMessageResponse represents a discussion message in API responses.
type DiscussionMessageResponse struct {
	ID        string    `json:"id"`
	QuizID    string    `json:"quizId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func discussionResponse(d *store.Discussion) DiscussionResponse {
	return DiscussionResponse{
		ID:        d.ID,
		QuizID:    d.QuizID,
		QuizTitle: d.QuizTitle,
		AddedBy:   d.AddedBy,
		AddedAt:   d.AddedAt,
	}
}

// Add opens a quiz for discussion. Adding the same quiz twice is a conflict.
// POST /api/discussions
func (h *DiscussionHandlers) Add(c *gin.Context) {
	var req AddDiscussionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid add discussion request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	exists, err := h.store.DiscussionExists(c.Request.Context(), req.QuizID)
	if err != nil {
		h.log.Error().Err(err).Str("quiz_id", req.QuizID).Msg("room directory lookup failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if exists {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "discussion already exists"})
		return
	}

	discussion := &store.Discussion{
		ID:        uuid.NewString(),
		QuizID:    req.QuizID,
		QuizTitle: req.QuizTitle,
		AddedBy:   c.GetString(ContextKeyUserID),
		AddedAt:   time.Now().UTC(),
	}
	if err := h.store.AddDiscussion(c.Request.Context(), discussion); err != nil {
		h.log.Error().Err(err).Str("quiz_id", req.QuizID).Msg("failed to add discussion")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("quiz_id", req.QuizID).Str("added_by", discussion.AddedBy).Msg("discussion opened")
	c.JSON(http.StatusCreated, discussionResponse(discussion))
}

// List returns open discussions, newest first.
// GET /api/discussions?limit=&offset=
func (h *DiscussionHandlers) List(c *gin.Context) {
	limit, offset := pagination(c, 50, 100)

	discussions, err := h.store.ListDiscussions(c.Request.Context(), limit, offset)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list discussions")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]DiscussionResponse, 0, len(discussions))
	for _, d := range discussions {
		response = append(response, discussionResponse(d))
	}
	c.JSON(http.StatusOK, gin.H{"discussions": response})
}

// Remove closes a discussion and deletes its history. Only the user who opened
// the discussion or an admin may close it. Connected room members are told the
// room is closing before the directory entry disappears.
// DELETE /api/discussions/:quiz_id
func (h *DiscussionHandlers) Remove(c *gin.Context) {
	quizID := c.Param("quiz_id")

	discussion, err := h.store.GetDiscussionByQuizID(c.Request.Context(), quizID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "discussion not found"})
			return
		}
		h.log.Error().Err(err).Str("quiz_id", quizID).Msg("failed to get discussion")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	callerID := c.GetString(ContextKeyUserID)
	if discussion.AddedBy != callerID && c.GetString(ContextKeyUserRole) != store.RoleAdmin {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not allowed to remove this discussion"})
		return
	}

	h.hub.BroadcastSystem(chat.RoomScope(quizID), "This discussion has been closed.")

	if err := h.store.RemoveDiscussion(c.Request.Context(), quizID); err != nil {
		h.log.Error().Err(err).Str("quiz_id", quizID).Msg("failed to remove discussion")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("quiz_id", quizID).Str("removed_by", callerID).Msg("discussion closed")
	c.JSON(http.StatusOK, gin.H{"removed": quizID})
}

// ListMessages returns discussion history for a quiz, oldest first.
// GET /api/discussions/:quiz_id/messages?limit=&offset=
func (h *DiscussionHandlers) ListMessages(c *gin.Context) {
	quizID := c.Param("quiz_id")
	limit, offset := pagination(c, 50, 100)

	exists, err := h.store.DiscussionExists(c.Request.Context(), quizID)
	if err != nil {
		h.log.Error().Err(err).Str("quiz_id", quizID).Msg("room directory lookup failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "discussion not found"})
		return
	}

	messages, err := h.store.ListDiscussionMessages(c.Request.Context(), quizID, limit, offset)
	if err != nil {
		h.log.Error().Err(err).Str("quiz_id", quizID).Msg("failed to list discussion messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]DiscussionMessageResponse, 0, len(messages))
	for _, msg := range messages {
		response = append(response, DiscussionMessageResponse{
			ID:        msg.ID,
			QuizID:    msg.QuizID,
			UserID:    msg.UserID,
			UserName:  msg.UserName,
			Content:   msg.Content,
			Timestamp: msg.Timestamp,
		})
	}
	c.JSON(http.StatusOK, gin.H{"messages": response})
}

// OnlineUsers returns the presence snapshot for a discussion room.
// GET /api/discussions/:quiz_id/online
func (h *DiscussionHandlers) OnlineUsers(c *gin.Context) {
	quizID := c.Param("quiz_id")

	exists, err := h.store.DiscussionExists(c.Request.Context(), quizID)
	if err != nil {
		h.log.Error().Err(err).Str("quiz_id", quizID).Msg("room directory lookup failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "discussion not found"})
		return
	}

	users := h.hub.OnlineUsers(chat.RoomScope(quizID))
	refs := make([]chat.UserRef, 0, len(users))
	for _, u := range users {
		refs = append(refs, chat.UserRef{ID: u.ID, Name: u.Name})
	}
	c.JSON(http.StatusOK, OnlineUsersResponse{Users: refs})
}
