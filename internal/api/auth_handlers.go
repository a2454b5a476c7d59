package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/forgeapp/forge-server/internal/domain"
	"github.com/forgeapp/forge-server/internal/service"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/api/v1/auth/register",
		Summary:       "Register new user",
		Description:   "Creates an account and returns a token pair",
		Tags:          []string{"Authentication"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   huma.Middlewares{s.rateLimit(s.authLimiter)},
	}, s.handleRegister)

	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/login",
		Summary:     "User login",
		Description: "Authenticates a user and returns access and refresh tokens",
		Tags:        []string{"Authentication"},
		Middlewares: huma.Middlewares{s.rateLimit(s.authLimiter)},
	}, s.handleLogin)

	huma.Register(s.api, huma.Operation{
		OperationID: "refreshToken",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/refresh",
		Summary:     "Refresh tokens",
		Description: "Exchanges a refresh token for a new token pair. The old refresh token stops working.",
		Tags:        []string{"Authentication"},
		Middlewares: huma.Middlewares{s.rateLimit(s.authLimiter)},
	}, s.handleRefresh)

	huma.Register(s.api, huma.Operation{
		OperationID: "logout",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/logout",
		Summary:     "Logout",
		Description: "Invalidates a refresh token",
		Tags:        []string{"Authentication"},
	}, s.handleLogout)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCurrentUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/auth/me",
		Summary:     "Current user",
		Description: "Returns the authenticated user",
		Tags:        []string{"Authentication"},
		Security:    bearerAuth,
	}, s.handleMe)
}

// === DTOs ===

// RegisterInput wraps the registration request for Huma.
type RegisterInput struct {
	Body struct {
		Email    string `json:"email" format:"email" maxLength:"320" doc:"Email address"`
		Password string `json:"password" minLength:"8" maxLength:"1024" doc:"Password"`
		Name     string `json:"name,omitempty" maxLength:"120" doc:"Display name"`
	}
}

// LoginInput wraps the login request for Huma.
type LoginInput struct {
	Body struct {
		Email    string `json:"email" doc:"Email address"`
		Password string `json:"password" doc:"Password"`
	}
}

// RefreshInput carries a refresh token.
type RefreshInput struct {
	Body struct {
		RefreshToken string `json:"refreshToken" minLength:"1" doc:"Refresh token"`
	}
}

// AuthOutput wraps a token pair for Huma.
type AuthOutput struct {
	Body *service.AuthResponse
}

// LogoutResponse acknowledges a logout.
type LogoutResponse struct {
	LoggedOut bool `json:"loggedOut" doc:"Always true"`
}

// LogoutOutput wraps the logout response for Huma.
type LogoutOutput struct {
	Body LogoutResponse
}

// UserOutput wraps a user for Huma.
type UserOutput struct {
	Body *domain.User
}

// === Handlers ===

func (s *Server) handleRegister(ctx context.Context, input *RegisterInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.Register(ctx, service.RegisterRequest{
		Email:    input.Body.Email,
		Password: input.Body.Password,
		Name:     input.Body.Name,
	})
	if err != nil {
		return nil, err
	}
	return &AuthOutput{Body: resp}, nil
}

func (s *Server) handleLogin(ctx context.Context, input *LoginInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.Login(ctx, service.LoginRequest{
		Email:    input.Body.Email,
		Password: input.Body.Password,
	})
	if err != nil {
		return nil, err
	}
	return &AuthOutput{Body: resp}, nil
}

func (s *Server) handleRefresh(ctx context.Context, input *RefreshInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.Refresh(ctx, input.Body.RefreshToken)
	if err != nil {
		return nil, err
	}
	return &AuthOutput{Body: resp}, nil
}

func (s *Server) handleLogout(ctx context.Context, input *RefreshInput) (*LogoutOutput, error) {
	if err := s.services.Auth.Logout(ctx, input.Body.RefreshToken); err != nil {
		return nil, err
	}
	return &LogoutOutput{Body: LogoutResponse{LoggedOut: true}}, nil
}

func (s *Server) handleMe(ctx context.Context, _ *struct{}) (*UserOutput, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: user}, nil
}
