package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"golang.org/x/crypto/blake2b"

	"github.com/forgeapp/forge-server/internal/domain"
	"github.com/forgeapp/forge-server/internal/id"
)

const (
	tokenIssuer   = "forge-server"
	tokenAudience = "forge-client"

	claimEmail   = "email"
	claimName    = "name"
	claimSession = "sid"

	keyBytesSize     = 32
	keyHexSize       = keyBytesSize * 2
	refreshTokenSize = 32
)

// TokenService issues and verifies PASETO v4.local access tokens and opaque
// refresh tokens.
type TokenService struct {
	key        paseto.V4SymmetricKey
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService creates a token service from a hex-encoded 32 byte key.
func NewTokenService(keyHex string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if len(keyHex) != keyHexSize {
		return nil, fmt.Errorf("token key must be %d hex characters, got %d", keyHexSize, len(keyHex))
	}
	raw, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("decode token key: %w", err)
	}
	key, err := paseto.V4SymmetricKeyFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("load token key: %w", err)
	}
	return &TokenService{
		key:        key,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// IssuePair creates an access token for user bound to sessionID, plus a new
// refresh token for that session.
func (s *TokenService) IssuePair(user *domain.User, sessionID string) (Pair, error) {
	at := s.now()

	access, err := s.accessToken(user, sessionID, at)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := newRefreshToken()
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		AccessToken:      access,
		AccessExpiresAt:  at.Add(s.accessTTL),
		RefreshToken:     refresh,
		RefreshExpiresAt: at.Add(s.refreshTTL),
	}, nil
}

// GenerateAccessToken creates an access token for user outside any session.
func (s *TokenService) GenerateAccessToken(user *domain.User) (string, error) {
	return s.accessToken(user, "", s.now())
}

func (s *TokenService) accessToken(user *domain.User, sessionID string, at time.Time) (string, error) {
	jti, err := id.Generate("tok")
	if err != nil {
		return "", fmt.Errorf("generate token id: %w", err)
	}

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetAudience(tokenAudience)
	token.SetSubject(user.ID)
	token.SetJti(jti)
	token.SetIssuedAt(at)
	token.SetNotBefore(at)
	token.SetExpiration(at.Add(s.accessTTL))
	token.SetString(claimEmail, user.Email)
	token.SetString(claimName, user.Name)
	if sessionID != "" {
		token.SetString(claimSession, sessionID)
	}
	return token.V4Encrypt(s.key, nil), nil
}

// VerifyAccessToken decrypts raw and checks its issuer, audience and
// validity window.
func (s *TokenService) VerifyAccessToken(raw string) (*AccessClaims, error) {
	parser := paseto.NewParser()
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.ValidAt(s.now()))

	token, err := parser.ParseV4Local(s.key, raw, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	subject, err := token.GetSubject()
	if err != nil || subject == "" {
		return nil, fmt.Errorf("invalid token: missing subject")
	}
	claims := &AccessClaims{UserID: subject}
	claims.Email, _ = token.GetString(claimEmail)
	claims.Name, _ = token.GetString(claimName)
	claims.SessionID, _ = token.GetString(claimSession)
	claims.TokenID, _ = token.GetJti()
	claims.ExpiresAt, _ = token.GetExpiration()
	return claims, nil
}

func newRefreshToken() (string, error) {
	b := make([]byte, refreshTokenSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashRefreshToken returns the storage key of a refresh token. Raw refresh
// tokens are never stored.
func HashRefreshToken(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// AccessTokenDuration returns the access token lifetime.
func (s *TokenService) AccessTokenDuration() time.Duration {
	return s.accessTTL
}

// RefreshTokenDuration returns the refresh token lifetime.
func (s *TokenService) RefreshTokenDuration() time.Duration {
	return s.refreshTTL
}
