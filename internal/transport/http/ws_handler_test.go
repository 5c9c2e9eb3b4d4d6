package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/trvo-dev/quizhub-server/internal/chat"
)

func wsURL(s *testServer, path string) string {
	return strings.Replace(s.ts.URL, "http", "ws", 1) + path
}

// readFrameOfType reads frames until one with the given type tag arrives.
// Presence snapshots interleave with message frames, so tests skip past
// whatever they are not asserting on.
func readFrameOfType(ctx context.Context, t *testing.T, conn *websocket.Conn, frameType string) map[string]json.RawMessage {
	t.Helper()

	for {
		var frame map[string]json.RawMessage
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			t.Fatalf("read frame while waiting for %q: %v", frameType, err)
		}
		var got string
		if raw, ok := frame["type"]; ok {
			_ = json.Unmarshal(raw, &got)
		}
		if got == frameType {
			return frame
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := startTestServer(t)

	resp, err := s.ts.Client().Get(s.ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestCommunityRejectsBadToken(t *testing.T) {
	s := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(s, "/ws/chat?token=not-a-token"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	_, _, err = conn.Read(ctx)
	if err == nil {
		t.Fatal("expected connection to be closed")
	}
	if got := websocket.CloseStatus(err); got != StatusInvalidToken {
		t.Fatalf("close status = %d, want %d", got, StatusInvalidToken)
	}
}

func TestCommunityRejectsMissingToken(t *testing.T) {
	s := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(s, "/ws/chat"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	_, _, err = conn.Read(ctx)
	if got := websocket.CloseStatus(err); got != StatusInvalidToken {
		t.Fatalf("close status = %d, want %d", got, StatusInvalidToken)
	}
}

func TestDiscussionRejectsUnknownRoom(t *testing.T) {
	s := startTestServer(t)
	token := s.registerUser(t, "alice", "alice@example.com", "password1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(s, "/ws/discussion/no-such-quiz?token="+token), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	_, _, err = conn.Read(ctx)
	if got := websocket.CloseStatus(err); got != StatusRoomNotFound {
		t.Fatalf("close status = %d, want %d", got, StatusRoomNotFound)
	}
}

func TestCommunityChatBetweenTwoUsers(t *testing.T) {
	s := startTestServer(t)
	tokenA := s.registerUser(t, "alice", "alice@example.com", "password1")
	tokenB := s.registerUser(t, "bob", "bob@example.com", "password2")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA, _, err := websocket.Dial(ctx, wsURL(s, "/ws/chat?token="+tokenA), nil)
	if err != nil {
		t.Fatalf("dial A: %v", err)
	}
	defer connA.Close(websocket.StatusNormalClosure, "done")

	// A joining alone publishes a one-user snapshot.
	snapshot := readFrameOfType(ctx, t, connA, chat.EventTypeOnlineUsers)
	var users []chat.UserRef
	if err := json.Unmarshal(snapshot["users"], &users); err != nil {
		t.Fatalf("unmarshal users: %v", err)
	}
	if len(users) != 1 || users[0].Name != "alice" {
		t.Fatalf("unexpected first snapshot: %+v", users)
	}

	connB, _, err := websocket.Dial(ctx, wsURL(s, "/ws/chat?token="+tokenB), nil)
	if err != nil {
		t.Fatalf("dial B: %v", err)
	}
	defer connB.Close(websocket.StatusNormalClosure, "done")

	// B joining pushes a two-user snapshot to A.
	snapshot = readFrameOfType(ctx, t, connA, chat.EventTypeOnlineUsers)
	if err := json.Unmarshal(snapshot["users"], &users); err != nil {
		t.Fatalf("unmarshal users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("snapshot after second join has %d users, want 2", len(users))
	}

	if err := wsjson.Write(ctx, connA, map[string]string{"type": "message", "content": "hi there"}); err != nil {
		t.Fatalf("write message: %v", err)
	}

	frame := readFrameOfType(ctx, t, connB, chat.EventTypeMessage)
	var event chat.MessageEvent
	data, _ := json.Marshal(frame)
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if event.UserName != "alice" || event.Content != "hi there" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.ID == "" {
		t.Fatal("message event missing id")
	}

	// The message was also persisted to community history.
	resp := s.doJSON(t, stdhttp.MethodGet, "/api/chat/messages", tokenB, nil)
	defer resp.Body.Close()
	var history struct {
		Messages []ChatMessageResponse `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history.Messages) != 1 || history.Messages[0].Content != "hi there" {
		t.Fatalf("unexpected history: %+v", history.Messages)
	}
}

func TestDiscussionRoomScenario(t *testing.T) {
	s := startTestServer(t)
	tokenA := s.registerUser(t, "alice", "alice@example.com", "password1")
	tokenB := s.registerUser(t, "bob", "bob@example.com", "password2")
	s.addDiscussion(t, tokenA, "quiz-7", "Go Basics")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA, _, err := websocket.Dial(ctx, wsURL(s, "/ws/discussion/quiz-7?token="+tokenA), nil)
	if err != nil {
		t.Fatalf("dial A: %v", err)
	}
	defer connA.Close(websocket.StatusNormalClosure, "done")

	readFrameOfType(ctx, t, connA, chat.EventTypeOnlineUsers)

	connB, _, err := websocket.Dial(ctx, wsURL(s, "/ws/discussion/quiz-7?token="+tokenB), nil)
	if err != nil {
		t.Fatalf("dial B: %v", err)
	}
	defer connB.Close(websocket.StatusNormalClosure, "done")

	snapshot := readFrameOfType(ctx, t, connA, chat.EventTypeOnlineUsers)
	var users []chat.UserRef
	if err := json.Unmarshal(snapshot["users"], &users); err != nil {
		t.Fatalf("unmarshal users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("room snapshot has %d users, want 2", len(users))
	}

	if err := wsjson.Write(ctx, connB, map[string]string{"type": "message", "content": "question 3 was tricky"}); err != nil {
		t.Fatalf("write message: %v", err)
	}

	frame := readFrameOfType(ctx, t, connA, chat.EventTypeMessage)
	var event chat.MessageEvent
	data, _ := json.Marshal(frame)
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if event.UserName != "bob" || event.Content != "question 3 was tricky" {
		t.Fatalf("unexpected event: %+v", event)
	}

	// Room messages land in discussion history, not community history.
	resp := s.doJSON(t, stdhttp.MethodGet, "/api/discussions/quiz-7/messages", tokenA, nil)
	defer resp.Body.Close()
	var history struct {
		Messages []DiscussionMessageResponse `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history.Messages) != 1 || history.Messages[0].QuizID != "quiz-7" {
		t.Fatalf("unexpected discussion history: %+v", history.Messages)
	}

	resp = s.doJSON(t, stdhttp.MethodGet, "/api/chat/messages", tokenA, nil)
	defer resp.Body.Close()
	var community struct {
		Messages []ChatMessageResponse `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&community); err != nil {
		t.Fatalf("decode community history: %v", err)
	}
	if len(community.Messages) != 0 {
		t.Fatalf("room message leaked into community history: %+v", community.Messages)
	}
}

func TestPrivateMessageToOfflineUserPersists(t *testing.T) {
	s := startTestServer(t)
	tokenA := s.registerUser(t, "alice", "alice@example.com", "password1")
	tokenB := s.registerUser(t, "bob", "bob@example.com", "password2")

	bobID := userIDFromToken(t, s, tokenB)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA, _, err := websocket.Dial(ctx, wsURL(s, "/ws/chat?token="+tokenA), nil)
	if err != nil {
		t.Fatalf("dial A: %v", err)
	}
	defer connA.Close(websocket.StatusNormalClosure, "done")

	readFrameOfType(ctx, t, connA, chat.EventTypeOnlineUsers)

	if err := wsjson.Write(ctx, connA, map[string]string{"type": "private", "to": bobID, "content": "psst"}); err != nil {
		t.Fatalf("write private: %v", err)
	}

	// Sender gets the echo even though the recipient is offline.
	frame := readFrameOfType(ctx, t, connA, chat.EventTypePrivateSent)
	var echo chat.PrivateSentEvent
	data, _ := json.Marshal(frame)
	if err := json.Unmarshal(data, &echo); err != nil {
		t.Fatalf("unmarshal echo: %v", err)
	}
	if echo.To != bobID || echo.Content != "psst" {
		t.Fatalf("unexpected echo: %+v", echo)
	}

	// Bob finds the message in conversation history later.
	resp := s.doJSON(t, stdhttp.MethodGet, "/api/chat/private/"+userIDFromToken(t, s, tokenA), tokenB, nil)
	defer resp.Body.Close()
	var history struct {
		Messages []PrivateMessageResponse `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		t.Fatalf("decode private history: %v", err)
	}
	if len(history.Messages) != 1 || history.Messages[0].Content != "psst" {
		t.Fatalf("unexpected private history: %+v", history.Messages)
	}
}

// userIDFromToken resolves the user id behind a token.
func userIDFromToken(t *testing.T, s *testServer, token string) string {
	t.Helper()
	user, err := s.authService.ResolveToken(context.Background(), token)
	if err != nil {
		t.Fatalf("resolve token: %v", err)
	}
	return user.ID
}

func TestReconnectEvictsOldConnection(t *testing.T) {
	s := startTestServer(t)
	tokenA := s.registerUser(t, "alice", "alice@example.com", "password1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first, _, err := websocket.Dial(ctx, wsURL(s, "/ws/chat?token="+tokenA), nil)
	if err != nil {
		t.Fatalf("dial first: %v", err)
	}
	defer first.Close(websocket.StatusNormalClosure, "done")

	readFrameOfType(ctx, t, first, chat.EventTypeOnlineUsers)

	second, _, err := websocket.Dial(ctx, wsURL(s, "/ws/chat?token="+tokenA), nil)
	if err != nil {
		t.Fatalf("dial second: %v", err)
	}
	defer second.Close(websocket.StatusNormalClosure, "done")

	readFrameOfType(ctx, t, second, chat.EventTypeOnlineUsers)

	// The first socket is closed by the server; reads eventually fail.
	deadline := time.Now().Add(3 * time.Second)
	for {
		readCtx, readCancel := context.WithTimeout(ctx, 500*time.Millisecond)
		_, _, err = first.Read(readCtx)
		readCancel()
		if err != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first connection was not evicted")
		}
	}

	// Presence still lists alice exactly once.
	users := s.hub.OnlineUsers(chat.GlobalScope())
	if len(users) != 1 || users[0].Name != "alice" {
		t.Fatalf("presence after reconnect: %+v", users)
	}
}
