package domain

import "time"

// Permission is what a share token allows.
type Permission string

const (
	// PermissionView allows reading the page.
	PermissionView Permission = "view"
	// PermissionEdit allows reading and editing the page.
	PermissionEdit Permission = "edit"
)

// ParsePermission accepts exactly "view" or "edit".
func ParsePermission(s string) (Permission, bool) {
	switch Permission(s) {
	case PermissionView, PermissionEdit:
		return Permission(s), true
	default:
		return "", false
	}
}

// ShareToken grants access to one page to anyone holding Token.
type ShareToken struct {
	ID              string     `json:"id"`
	SpaceID         string     `json:"spaceId"`
	PageID          string     `json:"pageId"`
	Token           string     `json:"token"`
	Permission      Permission `json:"permission"`
	ExpiresAt       time.Time  `json:"expiresAt"`
	CreatedByUserID string     `json:"createdByUserId"`
	CreatedAt       time.Time  `json:"createdAt"`
	RevokedAt       *time.Time `json:"revokedAt"`
	LastUsedAt      *time.Time `json:"lastUsedAt"`
}

// IsRevoked returns true if the token was revoked.
func (s *ShareToken) IsRevoked() bool {
	return s.RevokedAt != nil
}

// IsExpiredAt returns true if the token is past its expiry at now.
func (s *ShareToken) IsExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// IsActiveAt returns true if the token can be used at now.
func (s *ShareToken) IsActiveAt(now time.Time) bool {
	return !s.IsRevoked() && !s.IsExpiredAt(now)
}

// CanEdit returns true if the token allows editing.
func (s *ShareToken) CanEdit() bool {
	return s.Permission == PermissionEdit
}
