package chat

import "sync"

// Registry holds the live connection handles of the global community room,
// keyed by user id. At most one handle per user exists at any instant: a
// second connect for the same user evicts the first.
//
// The registry owns only the map; closing evicted sockets and publishing
// presence is the hub's job, so no network I/O ever happens under the lock.
type Registry struct {
	mu      sync.Mutex
	handles map[string]*Handle
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]*Handle)}
}

// Connect inserts a handle for the identity, replacing any prior handle for
// the same user id. The evicted handle, if any, is returned so the caller can
// close it; it is out of the map before the new handle becomes visible, so no
// snapshot ever contains both.
func (r *Registry) Connect(identity Identity, conn Conn) (evicted *Handle) {
	handle := newHandle(identity, conn)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted = r.handles[identity.ID]
	r.handles[identity.ID] = handle
	return evicted
}

// Disconnect removes the user's handle, but only when the registered handle
// still wraps the given conn. A teardown racing a reconnect must not remove
// the replacement connection, so stale disconnects are no-ops. It is
// idempotent: disconnecting an absent user returns (nil, false).
func (r *Registry) Disconnect(userID string, conn Conn) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	handle, ok := r.handles[userID]
	if !ok || handle.Conn != conn {
		return nil, false
	}
	delete(r.handles, userID)
	return handle, true
}

// Get returns the live handle for a user, if any.
func (r *Registry) Get(userID string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	handle, ok := r.handles[userID]
	return handle, ok
}

// Snapshot returns the current membership as a fresh list. The list is not
// kept in sync with later mutations.
func (r *Registry) Snapshot() []Identity {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := make([]Identity, 0, len(r.handles))
	for _, handle := range r.handles {
		users = append(users, handle.Identity)
	}
	return users
}

// copyHandles returns the current handle set for iteration outside the lock.
func (r *Registry) copyHandles() []*Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Handle, 0, len(r.handles))
	for _, handle := range r.handles {
		out = append(out, handle)
	}
	return out
}
