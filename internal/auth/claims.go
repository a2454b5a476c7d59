package auth

import "time"

// AccessClaims is what a verified access token says about its bearer.
type AccessClaims struct {
	UserID    string
	Email     string
	Name      string
	SessionID string // refresh session the token was issued under
	TokenID   string
	ExpiresAt time.Time
}

// Pair is a freshly issued access token and refresh token.
type Pair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
