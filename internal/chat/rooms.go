package chat

import "sync"

// Rooms holds per-room connection handles keyed by room id then user id.
// Rooms exist only implicitly: a room is created on first join and deleted on
// last leave, so empty rooms never accumulate. Whether a room id is a valid
// discussion topic is decided elsewhere (the room directory); the registry
// only tracks membership.
type Rooms struct {
	mu    sync.Mutex
	rooms map[string]map[string]*Handle
}

// NewRooms constructs an empty room registry.
func NewRooms() *Rooms {
	return &Rooms{rooms: make(map[string]map[string]*Handle)}
}

// Join inserts a handle for the identity into the room, creating the room if
// needed. If the user already holds a handle in that room it is evicted and
// returned for the caller to close.
func (r *Rooms) Join(roomID string, identity Identity, conn Conn) (evicted *Handle) {
	handle := newHandle(identity, conn)

	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[string]*Handle)
		r.rooms[roomID] = members
	}

	evicted = members[identity.ID]
	members[identity.ID] = handle
	return evicted
}

// Leave removes the user's handle from the room, but only when the registered
// handle still wraps the given conn; a teardown racing a rejoin must not
// remove the replacement connection. When the room becomes empty it is deleted
// entirely; roomAlive reports whether the room still exists afterwards.
// Leaving an absent room or an absent membership is a no-op.
func (r *Rooms) Leave(roomID, userID string, conn Conn) (removed *Handle, roomAlive bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomID]
	if !ok {
		return nil, false
	}

	removed = members[userID]
	if removed != nil && removed.Conn != conn {
		return nil, true
	}
	delete(members, userID)

	if len(members) == 0 {
		delete(r.rooms, roomID)
		return removed, false
	}
	return removed, true
}

// Snapshot returns the room's current membership as a fresh list. An absent
// room yields an empty list, never an error: "no one online" and "room
// absent" look the same to callers.
func (r *Rooms) Snapshot(roomID string) []Identity {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[roomID]
	users := make([]Identity, 0, len(members))
	for _, handle := range members {
		users = append(users, handle.Identity)
	}
	return users
}

// copyHandles returns the room's handle set for iteration outside the lock.
func (r *Rooms) copyHandles(roomID string) []*Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[roomID]
	out := make([]*Handle, 0, len(members))
	for _, handle := range members {
		out = append(out, handle)
	}
	return out
}
