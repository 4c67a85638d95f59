package model

type Role int16

const (
	// [ZERO_VALUE_GUARD] roles start from 1 to distinguish from uninitialized data.
	RoleUser Role = iota + 1
	RoleAdmin
)

// ParseRole maps the stored role column to its enum value.
// Unknown values degrade to RoleUser: a corrupt row must never grant admin.
func ParseRole(s string) Role {
	if s == "admin" {
		return RoleAdmin
	}
	return RoleUser
}

func (r Role) String() string {
	if r == RoleAdmin {
		return "admin"
	}
	return "user"
}

// Principal is an authenticated actor. Resolved once per connection at the
// handshake; Banned/Muted/Role are re-read from the store before every
// privileged command so that admin actions bite already-connected sessions.
type Principal struct {
	ID       int64
	Username string
	Role     Role
	Banned   bool
	Muted    bool
	Avatar   string
}

func (p *Principal) IsAdmin() bool { return p.Role == RoleAdmin }
