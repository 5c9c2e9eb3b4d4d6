package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// User represents a registered account.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// Roles assignable to users.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// ChatMessage is a persisted community chat message.
type ChatMessage struct {
	ID        string
	UserID    string
	UserName  string
	Content   string
	Timestamp time.Time
}

// PrivateMessage is a persisted direct message between two users.
type PrivateMessage struct {
	ID           string
	FromUserID   string
	FromUserName string
	ToUserID     string
	Content      string
	Timestamp    time.Time
}

// DiscussionMessage is a persisted message in a quiz discussion room.
type DiscussionMessage struct {
	ID        string
	QuizID    string
	UserID    string
	UserName  string
	Content   string
	Timestamp time.Time
}

// Discussion marks a quiz as an open discussion topic.
type Discussion struct {
	ID        string
	QuizID    string
	QuizTitle string
	AddedBy   string
	AddedAt   time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser inserts a new user record.
	CreateUser(ctx context.Context, user *User) error

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

// MessageStore handles message persistence. Listing is always ordered by
// timestamp ascending with limit/offset pagination.
type MessageStore interface {
	// SaveChatMessage persists a community chat message.
	SaveChatMessage(ctx context.Context, msg *ChatMessage) error

	// ListChatMessages retrieves community chat history.
	ListChatMessages(ctx context.Context, limit, offset int) ([]*ChatMessage, error)

	// DeleteChatMessage removes a single community message by id.
	DeleteChatMessage(ctx context.Context, id string) error

	// DeleteAllChatMessages wipes community chat history, returning the count removed.
	DeleteAllChatMessages(ctx context.Context) (int64, error)

	// SavePrivateMessage persists a direct message.
	SavePrivateMessage(ctx context.Context, msg *PrivateMessage) error

	// ListPrivateMessages retrieves the conversation between two users, both directions.
	ListPrivateMessages(ctx context.Context, userA, userB string, limit, offset int) ([]*PrivateMessage, error)

	// DeletePrivateMessages removes the conversation between two users, returning the count removed.
	DeletePrivateMessages(ctx context.Context, userA, userB string) (int64, error)

	// SaveDiscussionMessage persists a quiz discussion message.
	SaveDiscussionMessage(ctx context.Context, msg *DiscussionMessage) error

	// ListDiscussionMessages retrieves discussion history for a quiz.
	ListDiscussionMessages(ctx context.Context, quizID string, limit, offset int) ([]*DiscussionMessage, error)
}

// DiscussionStore is the room directory: it decides which quiz ids are open
// discussion topics.
type DiscussionStore interface {
	// AddDiscussion opens a quiz for discussion.
	AddDiscussion(ctx context.Context, d *Discussion) error

	// GetDiscussionByQuizID retrieves the discussion entry for a quiz.
	GetDiscussionByQuizID(ctx context.Context, quizID string) (*Discussion, error)

	// ListDiscussions retrieves open discussions ordered by added time descending.
	ListDiscussions(ctx context.Context, limit, offset int) ([]*Discussion, error)

	// RemoveDiscussion closes a quiz discussion and deletes its message history.
	RemoveDiscussion(ctx context.Context, quizID string) error

	// DiscussionExists reports whether the quiz is an open discussion topic.
	DiscussionExists(ctx context.Context, quizID string) (bool, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore
	DiscussionStore

	// Close closes the underlying database connection.
	Close() error
}
