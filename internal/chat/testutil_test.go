package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/trvo-dev/quizhub-server/internal/store"
)

var errConnClosed = errors.New("connection closed")

// mockConn is an in-memory Conn for core tests. Frames pushed via push are
// returned from Read; Send appends to sent unless sendErr is set.
type mockConn struct {
	mu          sync.Mutex
	sent        [][]byte
	sendErr     error
	closed      bool
	closeReason string

	inbound chan []byte
	done    chan struct{}
	once    sync.Once
}

func newMockConn() *mockConn {
	return &mockConn{
		inbound: make(chan []byte, 16),
		done:    make(chan struct{}),
	}
}

func (c *mockConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-c.inbound:
		return data, nil
	case <-c.done:
		return nil, errConnClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *mockConn) Send(_ context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}
	if c.sendErr != nil {
		return c.sendErr
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	c.sent = append(c.sent, buf)
	return nil
}

func (c *mockConn) Close(reason string) error {
	alreadyClosed := true
	c.once.Do(func() {
		alreadyClosed = false
		c.mu.Lock()
		c.closed = true
		c.closeReason = reason
		c.mu.Unlock()
		close(c.done)
	})
	if alreadyClosed {
		return errConnClosed
	}
	return nil
}

func (c *mockConn) push(frame string) {
	c.inbound <- []byte(frame)
}

func (c *mockConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *mockConn) failSends(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = err
}

// frames decodes every sent frame into a generic map.
func (c *mockConn) frames() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]map[string]any, 0, len(c.sent))
	for _, data := range c.sent {
		var frame map[string]any
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		out = append(out, frame)
	}
	return out
}

// framesOfType returns the sent frames carrying the given type tag.
func (c *mockConn) framesOfType(eventType string) []map[string]any {
	var out []map[string]any
	for _, frame := range c.frames() {
		if frame["type"] == eventType {
			out = append(out, frame)
		}
	}
	return out
}

func (c *mockConn) lastFrameOfType(eventType string) (map[string]any, bool) {
	frames := c.framesOfType(eventType)
	if len(frames) == 0 {
		return nil, false
	}
	return frames[len(frames)-1], true
}

// presenceIDs extracts the user ids from an online_users frame.
func presenceIDs(frame map[string]any) []string {
	users, _ := frame["users"].([]any)
	ids := make([]string, 0, len(users))
	for _, u := range users {
		if m, ok := u.(map[string]any); ok {
			if id, ok := m["id"].(string); ok {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func testLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

func newTestHub() *Hub {
	return NewHub(testLogger(), 0)
}

// mockMessageStore records saved messages in memory. Setting fail makes
// every save return an error.
type mockMessageStore struct {
	mu          sync.Mutex
	chat        []*store.ChatMessage
	private     []*store.PrivateMessage
	discussions []*store.DiscussionMessage
	fail        bool
}

func (m *mockMessageStore) SaveChatMessage(_ context.Context, msg *store.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("store unavailable")
	}
	m.chat = append(m.chat, msg)
	return nil
}

func (m *mockMessageStore) ListChatMessages(context.Context, int, int) ([]*store.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*store.ChatMessage(nil), m.chat...), nil
}

func (m *mockMessageStore) DeleteChatMessage(context.Context, string) error { return nil }

func (m *mockMessageStore) DeleteAllChatMessages(context.Context) (int64, error) { return 0, nil }

func (m *mockMessageStore) SavePrivateMessage(_ context.Context, msg *store.PrivateMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("store unavailable")
	}
	m.private = append(m.private, msg)
	return nil
}

func (m *mockMessageStore) ListPrivateMessages(context.Context, string, string, int, int) ([]*store.PrivateMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*store.PrivateMessage(nil), m.private...), nil
}

func (m *mockMessageStore) DeletePrivateMessages(context.Context, string, string) (int64, error) {
	return 0, nil
}

func (m *mockMessageStore) SaveDiscussionMessage(_ context.Context, msg *store.DiscussionMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("store unavailable")
	}
	m.discussions = append(m.discussions, msg)
	return nil
}

func (m *mockMessageStore) ListDiscussionMessages(context.Context, string, int, int) ([]*store.DiscussionMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*store.DiscussionMessage(nil), m.discussions...), nil
}

func (m *mockMessageStore) savedPrivate() []*store.PrivateMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*store.PrivateMessage(nil), m.private...)
}

func (m *mockMessageStore) savedChat() []*store.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*store.ChatMessage(nil), m.chat...)
}

func (m *mockMessageStore) savedDiscussions() []*store.DiscussionMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*store.DiscussionMessage(nil), m.discussions...)
}
