package chat

// Scope is the addressing target of a broadcast: the global community room,
// one discussion room, or a single direct recipient.
type Scope struct {
	kind scopeKind
	id   string
}

type scopeKind int

const (
	scopeGlobal scopeKind = iota
	scopeRoom
	scopeDirect
)

// GlobalScope addresses every connected community user.
func GlobalScope() Scope {
	return Scope{kind: scopeGlobal}
}

// RoomScope addresses the members of one discussion room.
func RoomScope(roomID string) Scope {
	return Scope{kind: scopeRoom, id: roomID}
}

// DirectScope addresses a single user on the community channel.
func DirectScope(userID string) Scope {
	return Scope{kind: scopeDirect, id: userID}
}

// IsGlobal reports whether the scope is the community room.
func (s Scope) IsGlobal() bool {
	return s.kind == scopeGlobal
}

// IsRoom reports whether the scope is a discussion room.
func (s Scope) IsRoom() bool {
	return s.kind == scopeRoom
}

// RoomID returns the room identifier for a room scope, "" otherwise.
func (s Scope) RoomID() string {
	if s.kind == scopeRoom {
		return s.id
	}
	return ""
}

// UserID returns the target user for a direct scope, "" otherwise.
func (s Scope) UserID() string {
	if s.kind == scopeDirect {
		return s.id
	}
	return ""
}

func (s Scope) String() string {
	switch s.kind {
	case scopeRoom:
		return "room:" + s.id
	case scopeDirect:
		return "direct:" + s.id
	default:
		return "global"
	}
}
