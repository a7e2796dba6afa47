package domain

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleGuest  Role = "guest"
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

func (r Role) Level() int {
	switch r {
	case RoleAdmin:
		return 2
	case RoleMember:
		return 1
	default:
		return 0
	}
}

func (r Role) AtLeast(required Role) bool {
	return r.Level() >= required.Level()
}

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleGuest, RoleMember, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
}

type WebUser struct {
	SchemaVersion int       `json:"schemaVersion"`
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	GlobalName    string    `json:"globalName,omitempty"`
	Avatar        string    `json:"avatar,omitempty"`
	Role          Role      `json:"role"`
	Guilds        int       `json:"guilds"`
	CreatedAt     time.Time `json:"createdAt"`
	LastLogin     time.Time `json:"lastLogin"`
}

func (u *WebUser) DisplayName() string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// Permissions is the persisted role table plus the page access matrix.
type Permissions struct {
	SchemaVersion int             `json:"schemaVersion"`
	UserRoles     map[string]Role `json:"userRoles"`
	Pages         map[string]Role `json:"pages"`
}

func DefaultPages() map[string]Role {
	return map[string]Role{
		"/":                  RoleGuest,
		"/dashboard":         RoleAdmin,
		"/admin/permissions": RoleAdmin,
		"/admin/party":       RoleAdmin,
		"/party":             RoleMember,
		"/party/create":      RoleMember,
		"/settings":          RoleMember,
	}
}
