package chat

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/trvo-dev/quizhub-server/internal/store"
)

// Session runs the per-connection dispatch loop: receive, classify, persist,
// broadcast. It is constructed with an already-resolved identity and scope;
// authentication and room-directory checks happen before a session exists.
type Session struct {
	hub      *Hub
	messages store.MessageStore
	identity Identity
	scope    Scope
	conn     Conn
	log      zerolog.Logger

	closeOnce sync.Once
}

// NewSession builds a session for a community (global scope) or discussion
// room (room scope) connection.
func NewSession(hub *Hub, messages store.MessageStore, identity Identity, scope Scope, conn Conn, logger *zerolog.Logger) *Session {
	sessionLog := logger.With().
		Str("user_id", identity.ID).
		Str("scope", scope.String()).
		Logger()
	return &Session{
		hub:      hub,
		messages: messages,
		identity: identity,
		scope:    scope,
		conn:     conn,
		log:      sessionLog,
	}
}

// Run registers the connection and blocks on the receive loop until the
// socket closes or the context is cancelled. Network errors are never
// surfaced to the caller; they normalize into teardown.
func (s *Session) Run(ctx context.Context) {
	if s.scope.IsRoom() {
		s.hub.Join(s.scope.RoomID(), s.identity, s.conn)
	} else {
		s.hub.Connect(s.identity, s.conn)
	}
	defer s.teardown()

	for {
		data, err := s.conn.Read(ctx)
		if err != nil {
			s.log.Debug().Err(err).Msg("receive ended, closing session")
			return
		}
		s.dispatch(ctx, data)
	}
}

// teardown deregisters the connection exactly once. Both a failed send (prune
// inside the hub) and the read loop ending can race here; the registry
// disconnect is idempotent and the once-guard keeps the leave single-shot.
func (s *Session) teardown() {
	s.closeOnce.Do(func() {
		if s.scope.IsRoom() {
			s.hub.Leave(s.scope.RoomID(), s.identity.ID, s.conn)
		} else {
			s.hub.Disconnect(s.identity.ID, s.conn)
		}
	})
}

func (s *Session) dispatch(ctx context.Context, data []byte) {
	frame, kind := decodeInbound(data)
	switch kind {
	case frameChat:
		s.handleChat(ctx, frame.Content)
	case framePrivate:
		// Private messages exist only on the community channel.
		if !s.scope.IsGlobal() {
			s.log.Debug().Msg("dropping private frame on room channel")
			return
		}
		s.handlePrivate(ctx, frame.To, frame.Content)
	default:
		s.log.Debug().Msg("dropping unrecognized frame")
	}
}

// handleChat persists and broadcasts a chat message to the session's own
// scope. A persistence failure is logged and the live broadcast proceeds:
// the message may be missing from later history reads, but connected users
// still receive it.
func (s *Session) handleChat(ctx context.Context, content string) {
	now := time.Now()

	if s.scope.IsRoom() {
		msg := &store.DiscussionMessage{
			ID:        nextMessageID("dmsg"),
			QuizID:    s.scope.RoomID(),
			UserID:    s.identity.ID,
			UserName:  s.identity.Name,
			Content:   content,
			Timestamp: now,
		}
		if err := s.messages.SaveDiscussionMessage(ctx, msg); err != nil {
			s.log.Error().Err(err).Str("message_id", msg.ID).Msg("persist discussion message failed")
		}
		s.hub.Broadcast(s.scope, MessageEvent{
			Type:      EventTypeMessage,
			ID:        msg.ID,
			UserID:    msg.UserID,
			UserName:  msg.UserName,
			Content:   msg.Content,
			Timestamp: msg.Timestamp,
		})
		return
	}

	msg := &store.ChatMessage{
		ID:        nextMessageID("msg"),
		UserID:    s.identity.ID,
		UserName:  s.identity.Name,
		Content:   content,
		Timestamp: now,
	}
	if err := s.messages.SaveChatMessage(ctx, msg); err != nil {
		s.log.Error().Err(err).Str("message_id", msg.ID).Msg("persist chat message failed")
	}
	s.hub.Broadcast(GlobalScope(), MessageEvent{
		Type:      EventTypeMessage,
		ID:        msg.ID,
		UserID:    msg.UserID,
		UserName:  msg.UserName,
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
	})
}

// handlePrivate persists a direct message, attempts delivery, and echoes a
// private_sent frame back to the sender. Persistence and the echo do not
// depend on the recipient being online.
func (s *Session) handlePrivate(ctx context.Context, to, content string) {
	now := time.Now()

	msg := &store.PrivateMessage{
		ID:           nextMessageID("pmsg"),
		FromUserID:   s.identity.ID,
		FromUserName: s.identity.Name,
		ToUserID:     to,
		Content:      content,
		Timestamp:    now,
	}
	if err := s.messages.SavePrivateMessage(ctx, msg); err != nil {
		s.log.Error().Err(err).Str("message_id", msg.ID).Msg("persist private message failed")
	}

	delivered := s.hub.SendDirect(to, PrivateMessageEvent{
		Type:      EventTypePrivateMessage,
		From:      UserRef{ID: s.identity.ID, Name: s.identity.Name},
		Content:   content,
		Timestamp: now,
	})
	if !delivered {
		s.log.Debug().Str("to_user_id", to).Msg("private message recipient offline")
	}

	echo := PrivateSentEvent{
		Type:      EventTypePrivateSent,
		To:        to,
		Content:   content,
		Timestamp: now,
	}
	if !s.hub.SendDirect(s.identity.ID, echo) {
		s.log.Debug().Msg("private_sent echo failed")
	}
}
