package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/forgeapp/forge-server/internal/domain"
	domainerrors "github.com/forgeapp/forge-server/internal/errors"
	"github.com/forgeapp/forge-server/internal/service"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// userIDKey is the context key for the authenticated user ID.
const userIDKey ctxKey = "userID"

// GetUserID returns the authenticated user ID from context.
// Returns an UNAUTHORIZED error if the request carried no valid token.
func GetUserID(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDKey).(string)
	if !ok || userID == "" {
		return "", domainerrors.Unauthorized("authentication required")
	}
	return userID, nil
}

// setUserID stores the user ID in context.
func setUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// authMiddleware validates Bearer tokens and stores the user ID in context.
// Requests without a valid token continue anonymously; handlers use
// GetUserID to require authentication. Event streams may pass the token as
// the access_token query parameter, since EventSource cannot set headers.
func authMiddleware(auth *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.VerifyAccessToken(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := setUserID(r.Context(), claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}
	if strings.HasSuffix(r.URL.Path, "/events") {
		return r.URL.Query().Get("access_token")
	}
	return ""
}

// RequireUser returns the authenticated user.
func (s *Server) RequireUser(ctx context.Context) (*domain.User, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.services.Auth.Me(ctx, userID)
	if err != nil {
		return nil, domainerrors.Unauthorized("user not found")
	}
	return user, nil
}

// RequireMember returns the authenticated user's membership of spaceID:
// 401 without a user, 404 for an unknown space and 403 for a space the user
// is not in.
func (s *Server) RequireMember(ctx context.Context, spaceID string) (*domain.Member, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	return s.services.Spaces.RequireMember(ctx, spaceID, userID)
}
