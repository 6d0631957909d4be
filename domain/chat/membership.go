package chat

import "time"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// Membership is the authorization relation between a user and a group.
// A group keeps at least one admin membership once created.
type Membership struct {
	GroupID   GroupID
	UserID    UserID
	Role      Role
	CreatedAt time.Time
}

func (m Membership) IsAdmin() bool { return m.Role == RoleAdmin }
