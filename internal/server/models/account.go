package models

import (
	"fmt"
	"time"
)

// Role is the access level of an account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps the wire value of a role to a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Account is a registered identity. Timestamps are maintained by the store.
type Account struct {
	ID               int64
	Handle           string
	CredentialDigest []byte
	DisplayName      string
	AvatarRef        string
	ProfileText      string
	Role             Role
	SoftDeleted      bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
	EditedAt         time.Time
}

// View returns the sanitized projection of a, without the credential digest.
func (a *Account) View() *AccountView {
	return &AccountView{
		ID:          a.ID,
		Handle:      a.Handle,
		DisplayName: a.DisplayName,
		AvatarRef:   a.AvatarRef,
		ProfileText: a.ProfileText,
		Role:        a.Role,
		CreatedAt:   a.CreatedAt,
	}
}

// Snapshot copies a without the credential digest. Session stores keep
// snapshots, never digests.
func (a *Account) Snapshot() *Account {
	c := *a
	c.CredentialDigest = nil
	return &c
}

// AccountView is what leaves the service boundary.
type AccountView struct {
	ID          int64     `json:"id"`
	Handle      string    `json:"handle"`
	DisplayName string    `json:"display_name"`
	AvatarRef   string    `json:"avatar_ref"`
	ProfileText string    `json:"profile_text"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}
