package event

import "github.com/google/uuid"

// ScopeKind selects the recipient-resolution rule the registry applies.
type ScopeKind int16

const (
	// ScopeAll targets every authenticated connection (the global room).
	ScopeAll ScopeKind = iota + 1
	// ScopeRoom targets the connections currently joined to Room.
	ScopeRoom
	// ScopePrincipals targets every connection of the listed principals.
	ScopePrincipals
	// ScopeAllExcept targets every authenticated connection but one.
	ScopeAllExcept
)

// Scope is the recipient-selection rule attached to a published event.
// It travels with the event through the bus, so it is JSON round-trippable.
type Scope struct {
	Kind       ScopeKind `json:"kind"`
	Room       string    `json:"room,omitempty"`
	Principals []int64   `json:"principals,omitempty"`
	ExceptConn uuid.UUID `json:"except_conn,omitempty"`
}

func All() Scope { return Scope{Kind: ScopeAll} }

func InRoom(room string) Scope { return Scope{Kind: ScopeRoom, Room: room} }

func ToPrincipals(ids ...int64) Scope {
	return Scope{Kind: ScopePrincipals, Principals: ids}
}

func AllExcept(connID uuid.UUID) Scope {
	return Scope{Kind: ScopeAllExcept, ExceptConn: connID}
}
