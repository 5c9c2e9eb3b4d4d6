package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

const defaultSendTimeout = 5 * time.Second

// Hub owns the global and room registries and implements broadcast and
// presence on top of them. One hub is constructed per process and injected
// into the dispatch loops and HTTP handlers; there is no ambient global state.
type Hub struct {
	global      *Registry
	rooms       *Rooms
	sendTimeout time.Duration
	log         *zerolog.Logger
}

// NewHub constructs a hub with empty registries. sendTimeout bounds each
// individual socket write during broadcast; zero means the default.
func NewHub(logger *zerolog.Logger, sendTimeout time.Duration) *Hub {
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	return &Hub{
		global:      NewRegistry(),
		rooms:       NewRooms(),
		sendTimeout: sendTimeout,
		log:         logger,
	}
}

// Connect registers a community connection, evicting any prior connection of
// the same user, and publishes global presence.
func (h *Hub) Connect(identity Identity, conn Conn) {
	if evicted := h.global.Connect(identity, conn); evicted != nil {
		h.closeHandle(evicted, "superseded by new connection")
		h.log.Debug().Str("user_id", identity.ID).Msg("evicted previous community connection")
	}
	h.log.Info().Str("user_id", identity.ID).Str("user_name", identity.Name).Msg("user connected")
	h.publishPresence(GlobalScope())
}

// Disconnect removes a community connection if the user's registered handle
// still wraps conn, and publishes global presence. Disconnecting an absent or
// already-replaced connection is a no-op. The removed user's display name is
// returned when something was removed.
func (h *Hub) Disconnect(userID string, conn Conn) (string, bool) {
	handle, ok := h.global.Disconnect(userID, conn)
	if !ok {
		return "", false
	}
	h.closeHandle(handle, "disconnected")
	h.log.Info().Str("user_id", userID).Msg("user disconnected")
	h.publishPresence(GlobalScope())
	return handle.Identity.Name, true
}

// Join registers a discussion-room connection, evicting any prior connection
// of the same user in that room, and publishes room presence.
func (h *Hub) Join(roomID string, identity Identity, conn Conn) {
	if evicted := h.rooms.Join(roomID, identity, conn); evicted != nil {
		h.closeHandle(evicted, "superseded by new connection")
		h.log.Debug().Str("user_id", identity.ID).Str("quiz_id", roomID).Msg("evicted previous room connection")
	}
	h.log.Info().Str("user_id", identity.ID).Str("quiz_id", roomID).Msg("user joined room")
	h.publishPresence(RoomScope(roomID))
}

// Leave removes a room connection if the user's registered handle still wraps
// conn. Room presence is published only when the room survives; the last
// leave deletes the room and there is no one left to notify.
func (h *Hub) Leave(roomID, userID string, conn Conn) bool {
	removed, roomAlive := h.rooms.Leave(roomID, userID, conn)
	if removed == nil {
		return false
	}
	h.closeHandle(removed, "left room")
	h.log.Info().Str("user_id", userID).Str("quiz_id", roomID).Msg("user left room")
	if roomAlive {
		h.publishPresence(RoomScope(roomID))
	}
	return true
}

// OnlineUsers returns the presence snapshot for a scope.
func (h *Hub) OnlineUsers(scope Scope) []Identity {
	switch {
	case scope.IsGlobal():
		return h.global.Snapshot()
	case scope.IsRoom():
		return h.rooms.Snapshot(scope.RoomID())
	default:
		return nil
	}
}

// Broadcast delivers the event to every live handle in the scope. Handles
// whose write fails are treated as dead and pruned through the registry's
// disconnect/leave path, which re-publishes presence.
func (h *Hub) Broadcast(scope Scope, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Str("scope", scope.String()).Msg("marshal broadcast event")
		return
	}
	h.deliver(scope, payload)
}

// SendDirect delivers the event to a single community user. It returns false
// when the target has no live handle or the write fails; the caller can react
// (for example, keep the message history-only) without the connection loop
// crashing. A failed write prunes the target.
func (h *Hub) SendDirect(toUserID string, event any) bool {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Str("to_user_id", toUserID).Msg("marshal direct event")
		return false
	}

	handle, ok := h.global.Get(toUserID)
	if !ok {
		return false
	}
	if err := h.send(handle, payload); err != nil {
		h.log.Debug().Err(err).Str("to_user_id", toUserID).Msg("direct send failed, pruning")
		h.Disconnect(toUserID, handle.Conn)
		return false
	}
	return true
}

// BroadcastSystem delivers a server-originated notice to a scope.
func (h *Hub) BroadcastSystem(scope Scope, content string) {
	h.Broadcast(scope, SystemEvent{
		Type:      EventTypeSystem,
		Content:   content,
		Timestamp: time.Now(),
	})
}

func (h *Hub) deliver(scope Scope, payload []byte) {
	var targets []*Handle
	switch {
	case scope.IsGlobal():
		targets = h.global.copyHandles()
	case scope.IsRoom():
		targets = h.rooms.copyHandles(scope.RoomID())
	default:
		if handle, ok := h.global.Get(scope.UserID()); ok {
			targets = []*Handle{handle}
		}
	}

	// Sends run outside the registry locks; a dead peer fails its own write
	// within the send timeout without blocking registry mutations.
	var failed []*Handle
	for _, handle := range targets {
		if err := h.send(handle, payload); err != nil {
			h.log.Debug().Err(err).Str("user_id", handle.Identity.ID).Str("scope", scope.String()).Msg("send failed, pruning")
			failed = append(failed, handle)
		}
	}

	for _, handle := range failed {
		if scope.IsRoom() {
			h.Leave(scope.RoomID(), handle.Identity.ID, handle.Conn)
		} else {
			h.Disconnect(handle.Identity.ID, handle.Conn)
		}
	}
}

func (h *Hub) send(handle *Handle, payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.sendTimeout)
	defer cancel()
	return handle.Conn.Send(ctx, payload)
}

func (h *Hub) publishPresence(scope Scope) {
	users := h.OnlineUsers(scope)
	refs := make([]UserRef, 0, len(users))
	for _, u := range users {
		refs = append(refs, UserRef{ID: u.ID, Name: u.Name})
	}
	h.Broadcast(scope, OnlineUsersEvent{Type: EventTypeOnlineUsers, Users: refs})
}

// closeHandle closes a socket that is no longer registered. Close errors are
// ignored: the socket may already be closing on its own, and both paths must
// tolerate the race.
func (h *Hub) closeHandle(handle *Handle, reason string) {
	_ = handle.Conn.Close(reason)
}
