package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/forgeapp/forge-server/internal/auth"
	"github.com/forgeapp/forge-server/internal/domain"
	domainerrors "github.com/forgeapp/forge-server/internal/errors"
	"github.com/forgeapp/forge-server/internal/id"
	"github.com/forgeapp/forge-server/internal/identity"
	"github.com/forgeapp/forge-server/internal/store"
)

// AuthService handles registration, login and token refresh. Refresh
// sessions live in the key-value store.
type AuthService struct {
	store        store.Store
	tokenService *auth.TokenService
	sessions     *auth.SessionStore
	logger       *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	st store.Store,
	tokenService *auth.TokenService,
	sessions *auth.SessionStore,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		store:        st,
		tokenService: tokenService,
		sessions:     sessions,
		logger:       logger,
	}
}

// RegisterRequest contains the data of a new account.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=320"`
	Password string `json:"password" validate:"required,min=8,max=1024"`
	Name     string `json:"name" validate:"max=120"`
}

// LoginRequest contains user credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse contains the user and a fresh token pair.
type AuthResponse struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	TokenType    string       `json:"tokenType"`
	ExpiresIn    int          `json:"expiresIn"` // access token lifetime in seconds
}

// Register creates an account and logs it in. The user id is derived from
// the email, so members invited before registering keep their id.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	req.Email = identity.NormalizeEmail(req.Email)
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := s.newUserID(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	at := now()
	user := &domain.User{
		Entity:       domain.Entity{ID: userID, CreatedAt: at, UpdatedAt: at},
		Email:        req.Email,
		Name:         memberName(req.Name, req.Email),
		PasswordHash: passwordHash,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("an account with this email already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return s.issue(user)
}

func (s *AuthService) newUserID(ctx context.Context, email string) (string, error) {
	derived := identity.UserIDFromEmail(email)
	_, err := s.store.GetUser(ctx, derived)
	if errors.Is(err, store.ErrNotFound) {
		return derived, nil
	}
	if err != nil {
		return "", fmt.Errorf("get user: %w", err)
	}
	return id.Short(id.PrefixUser)
}

// Login verifies credentials and returns a fresh token pair.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	req.Email = identity.NormalizeEmail(req.Email)
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.InvalidCredentials("invalid email or password")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return s.issue(user)
}

// Refresh exchanges a refresh token for a new pair. The old refresh token
// stops working.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, domainerrors.Unauthorized("refresh token is required")
	}

	session, err := s.sessions.Get(refreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrSessionNotFound) {
			return nil, domainerrors.Unauthorized("invalid or expired refresh token")
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	user, err := s.store.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = s.sessions.Delete(refreshToken)
			return nil, domainerrors.Unauthorized("invalid or expired refresh token")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	pair, err := s.tokenService.IssuePair(user, session.ID)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	next := *session
	next.ExpiresAt = pair.RefreshExpiresAt
	if err := s.sessions.Rotate(refreshToken, pair.RefreshToken, next); err != nil {
		if errors.Is(err, auth.ErrSessionNotFound) {
			return nil, domainerrors.Unauthorized("invalid or expired refresh token")
		}
		return nil, fmt.Errorf("rotate session: %w", err)
	}

	return s.response(user, pair), nil
}

// Logout revokes a refresh token. Unknown tokens are ignored.
func (s *AuthService) Logout(_ context.Context, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil
	}
	if err := s.sessions.Delete(refreshToken); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Me returns the authenticated user.
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user", userID)
	}
	return user, nil
}

// VerifyAccessToken validates an access token and returns its claims.
func (s *AuthService) VerifyAccessToken(_ context.Context, token string) (*auth.AccessClaims, error) {
	claims, err := s.tokenService.VerifyAccessToken(token)
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid or expired access token").WithCause(err)
	}
	return claims, nil
}

// issue opens a refresh session for user and returns its token pair.
func (s *AuthService) issue(user *domain.User) (*AuthResponse, error) {
	sessionID, err := id.Generate("sess")
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	pair, err := s.tokenService.IssuePair(user, sessionID)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	session := auth.Session{
		ID:        sessionID,
		UserID:    user.ID,
		CreatedAt: now(),
		ExpiresAt: pair.RefreshExpiresAt,
	}
	if err := s.sessions.Create(pair.RefreshToken, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return s.response(user, pair), nil
}

func (s *AuthService) response(user *domain.User, pair auth.Pair) *AuthResponse {
	return &AuthResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.tokenService.AccessTokenDuration() / time.Second),
	}
}
