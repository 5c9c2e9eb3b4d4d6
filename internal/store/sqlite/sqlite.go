package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/trvo-dev/quizhub-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'student',
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id        TEXT PRIMARY KEY,
	user_id   TEXT NOT NULL,
	user_name TEXT NOT NULL,
	content   TEXT NOT NULL,
	timestamp DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_messages_ts ON chat_messages(timestamp);

CREATE TABLE IF NOT EXISTS private_messages (
	id             TEXT PRIMARY KEY,
	from_user_id   TEXT NOT NULL,
	from_user_name TEXT NOT NULL,
	to_user_id     TEXT NOT NULL,
	content        TEXT NOT NULL,
	timestamp      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_private_messages_pair ON private_messages(from_user_id, to_user_id, timestamp);

CREATE TABLE IF NOT EXISTS discussion_messages (
	id        TEXT PRIMARY KEY,
	quiz_id   TEXT NOT NULL,
	user_id   TEXT NOT NULL,
	user_name TEXT NOT NULL,
	content   TEXT NOT NULL,
	timestamp DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_discussion_messages_quiz ON discussion_messages(quiz_id, timestamp);

CREATE TABLE IF NOT EXISTS quiz_discussions (
	id         TEXT PRIMARY KEY,
	quiz_id    TEXT NOT NULL UNIQUE,
	quiz_title TEXT NOT NULL,
	added_by   TEXT NOT NULL,
	added_at   DATETIME NOT NULL
);
`

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply a custom schema or seed data.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser inserts a new user record.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *store.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	return s.getUser(ctx, "id = ?", id)
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	return s.getUser(ctx, "email = ?", email)
}

func (s *SQLiteStore) getUser(ctx context.Context, where string, arg any) (*store.User, error) {
	query := `
		SELECT id, name, email, password_hash, role, created_at
		FROM users
		WHERE ` + where
	var user store.User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// ==== MessageStore implementation ====

// SaveChatMessage persists a community chat message.
func (s *SQLiteStore) SaveChatMessage(ctx context.Context, msg *store.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (id, user_id, user_name, content, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.UserID, msg.UserName, msg.Content, msg.Timestamp,
	); err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

// ListChatMessages retrieves community chat history, oldest first.
func (s *SQLiteStore) ListChatMessages(ctx context.Context, limit, offset int) ([]*store.ChatMessage, error) {
	query := `
		SELECT id, user_id, user_name, content, timestamp
		FROM chat_messages
		ORDER BY timestamp ASC
		LIMIT ? OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query chat messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.ChatMessage, 0)
	for rows.Next() {
		var msg store.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.UserID, &msg.UserName, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}

// DeleteChatMessage removes a single community message by id.
func (s *SQLiteStore) DeleteChatMessage(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chat message: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteAllChatMessages wipes community chat history.
func (s *SQLiteStore) DeleteAllChatMessages(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages`)
	if err != nil {
		return 0, fmt.Errorf("delete chat messages: %w", err)
	}
	return result.RowsAffected()
}

// SavePrivateMessage persists a direct message.
func (s *SQLiteStore) SavePrivateMessage(ctx context.Context, msg *store.PrivateMessage) error {
	query := `
		INSERT INTO private_messages (id, from_user_id, from_user_name, to_user_id, content, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.FromUserID, msg.FromUserName, msg.ToUserID, msg.Content, msg.Timestamp,
	); err != nil {
		return fmt.Errorf("insert private message: %w", err)
	}
	return nil
}

// ListPrivateMessages retrieves the conversation between two users, oldest first.
func (s *SQLiteStore) ListPrivateMessages(ctx context.Context, userA, userB string, limit, offset int) ([]*store.PrivateMessage, error) {
	query := `
		SELECT id, from_user_id, from_user_name, to_user_id, content, timestamp
		FROM private_messages
		WHERE (from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)
		ORDER BY timestamp ASC
		LIMIT ? OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, query, userA, userB, userB, userA, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query private messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.PrivateMessage, 0)
	for rows.Next() {
		var msg store.PrivateMessage
		if err := rows.Scan(&msg.ID, &msg.FromUserID, &msg.FromUserName, &msg.ToUserID, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("scan private message: %w", err)
		}
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}

// DeletePrivateMessages removes the conversation between two users.
func (s *SQLiteStore) DeletePrivateMessages(ctx context.Context, userA, userB string) (int64, error) {
	query := `
		DELETE FROM private_messages
		WHERE (from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)
	`
	result, err := s.db.ExecContext(ctx, query, userA, userB, userB, userA)
	if err != nil {
		return 0, fmt.Errorf("delete private messages: %w", err)
	}
	return result.RowsAffected()
}

// SaveDiscussionMessage persists a quiz discussion message.
func (s *SQLiteStore) SaveDiscussionMessage(ctx context.Context, msg *store.DiscussionMessage) error {
	query := `
		INSERT INTO discussion_messages (id, quiz_id, user_id, user_name, content, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.QuizID, msg.UserID, msg.UserName, msg.Content, msg.Timestamp,
	); err != nil {
		return fmt.Errorf("insert discussion message: %w", err)
	}
	return nil
}

// ListDiscussionMessages retrieves discussion history for a quiz, oldest first.
func (s *SQLiteStore) ListDiscussionMessages(ctx context.Context, quizID string, limit, offset int) ([]*store.DiscussionMessage, error) {
	query := `
		SELECT id, quiz_id, user_id, user_name, content, timestamp
		FROM discussion_messages
		WHERE quiz_id = ?
		ORDER BY timestamp ASC
		LIMIT ? OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, query, quizID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query discussion messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.DiscussionMessage, 0)
	for rows.Next() {
		var msg store.DiscussionMessage
		if err := rows.Scan(&msg.ID, &msg.QuizID, &msg.UserID, &msg.UserName, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("scan discussion message: %w", err)
		}
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}

// ==== DiscussionStore implementation ====

// AddDiscussion opens a quiz for discussion.
func (s *SQLiteStore) AddDiscussion(ctx context.Context, d *store.Discussion) error {
	query := `
		INSERT INTO quiz_discussions (id, quiz_id, quiz_title, added_by, added_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, d.ID, d.QuizID, d.QuizTitle, d.AddedBy, d.AddedAt); err != nil {
		return fmt.Errorf("insert discussion: %w", err)
	}
	return nil
}

// GetDiscussionByQuizID retrieves the discussion entry for a quiz.
func (s *SQLiteStore) GetDiscussionByQuizID(ctx context.Context, quizID string) (*store.Discussion, error) {
	query := `
		SELECT id, quiz_id, quiz_title, added_by, added_at
		FROM quiz_discussions
		WHERE quiz_id = ?
	`
	var d store.Discussion
	err := s.db.QueryRowContext(ctx, query, quizID).Scan(&d.ID, &d.QuizID, &d.QuizTitle, &d.AddedBy, &d.AddedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query discussion: %w", err)
	}
	return &d, nil
}

// ListDiscussions retrieves open discussions, newest first.
func (s *SQLiteStore) ListDiscussions(ctx context.Context, limit, offset int) ([]*store.Discussion, error) {
	query := `
		SELECT id, quiz_id, quiz_title, added_by, added_at
		FROM quiz_discussions
		ORDER BY added_at DESC
		LIMIT ? OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query discussions: %w", err)
	}
	defer rows.Close()

	discussions := make([]*store.Discussion, 0)
	for rows.Next() {
		var d store.Discussion
		if err := rows.Scan(&d.ID, &d.QuizID, &d.QuizTitle, &d.AddedBy, &d.AddedAt); err != nil {
			return nil, fmt.Errorf("scan discussion: %w", err)
		}
		discussions = append(discussions, &d)
	}
	return discussions, rows.Err()
}

// RemoveDiscussion closes a quiz discussion and deletes its message history.
func (s *SQLiteStore) RemoveDiscussion(ctx context.Context, quizID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM discussion_messages WHERE quiz_id = ?`, quizID); err != nil {
		return fmt.Errorf("delete discussion messages: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM quiz_discussions WHERE quiz_id = ?`, quizID)
	if err != nil {
		return fmt.Errorf("delete discussion: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}

	return tx.Commit()
}

// DiscussionExists reports whether the quiz is an open discussion topic.
func (s *SQLiteStore) DiscussionExists(ctx context.Context, quizID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM quiz_discussions WHERE quiz_id = ?`, quizID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query discussion exists: %w", err)
	}
	return true, nil
}
