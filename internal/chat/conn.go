package chat

import (
	"context"
	"time"
)

// Identity is a resolved user as seen by the chat core. It is immutable for
// the lifetime of a connection; the identity gate owns it.
type Identity struct {
	ID   string
	Name string
}

// Conn abstracts one live socket. Implementations must unblock a pending Read
// when the connection is closed, and Close on an already-closed connection
// must be a benign no-op error.
type Conn interface {
	// Read blocks until the next inbound frame arrives.
	Read(ctx context.Context) ([]byte, error)

	// Send writes one outbound frame.
	Send(ctx context.Context, data []byte) error

	// Close terminates the connection.
	Close(reason string) error
}

// Handle wraps one live socket with its resolved identity and join time.
// A handle is owned exclusively by the registry holding it.
type Handle struct {
	Identity Identity
	Conn     Conn
	JoinedAt time.Time
}

func newHandle(identity Identity, conn Conn) *Handle {
	return &Handle{
		Identity: identity,
		Conn:     conn,
		JoinedAt: time.Now(),
	}
}
