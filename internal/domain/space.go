package domain

import "time"

// Role is a member's permission level inside a space.
type Role string

const (
	// RoleOwner created the space and cannot be removed.
	RoleOwner Role = "owner"
	// RoleAdmin can invite and remove members.
	RoleAdmin Role = "admin"
	// RoleMember can work with boards and pages.
	RoleMember Role = "member"
)

// ParseRole validates a role string. Empty means RoleMember.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case "":
		return RoleMember, true
	case RoleOwner, RoleAdmin, RoleMember:
		return Role(s), true
	default:
		return "", false
	}
}

// CanManageMembers reports whether the role may invite or remove members.
func (r Role) CanManageMembers() bool {
	return r == RoleOwner || r == RoleAdmin
}

// Space is a tenant. Every board, card, page and token belongs to exactly one.
type Space struct {
	Entity
	Name    string   `json:"name"`
	TeamID  string   `json:"teamId"`
	Members []Member `json:"members,omitempty"`
}

// Member links a user to a space. Email is unique within the space.
type Member struct {
	SpaceID   string    `json:"spaceId"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
