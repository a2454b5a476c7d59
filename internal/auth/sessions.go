package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/forgeapp/forge-server/internal/store"
)

const sessionKeyPrefix = "session:"

// ErrSessionNotFound is returned for unknown, expired or revoked refresh
// tokens.
var ErrSessionNotFound = errors.New("refresh session not found")

// Session is a refresh session. It is stored under the hash of its refresh
// token and expires with it.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionStore keeps refresh sessions in the key-value store.
type SessionStore struct {
	kv *store.KV
}

// NewSessionStore creates a SessionStore.
func NewSessionStore(kv *store.KV) *SessionStore {
	return &SessionStore{kv: kv}
}

func sessionKey(refreshToken string) string {
	return sessionKeyPrefix + HashRefreshToken(refreshToken)
}

// Create stores session under refreshToken until session.ExpiresAt.
func (s *SessionStore) Create(refreshToken string, session Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", session.ID)
	}
	return s.kv.Set(sessionKey(refreshToken), session, ttl)
}

// Get returns the session of refreshToken.
func (s *SessionStore) Get(refreshToken string) (*Session, error) {
	var session Session
	err := s.kv.Get(sessionKey(refreshToken), &session)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if !time.Now().Before(session.ExpiresAt) {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

// Rotate atomically replaces the session of oldToken with next under
// newToken. It fails with ErrSessionNotFound when oldToken was already used.
func (s *SessionStore) Rotate(oldToken, newToken string, next Session) error {
	ttl := time.Until(next.ExpiresAt)
	return s.kv.Update(func(tx *store.KVTxn) error {
		var current Session
		if err := tx.Get(sessionKey(oldToken), &current); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrSessionNotFound
			}
			return err
		}
		if err := tx.Delete(sessionKey(oldToken)); err != nil {
			return err
		}
		return tx.Set(sessionKey(newToken), next, ttl)
	})
}

// Delete revokes the session of refreshToken. Unknown tokens are ignored.
func (s *SessionStore) Delete(refreshToken string) error {
	return s.kv.Delete(sessionKey(refreshToken))
}
