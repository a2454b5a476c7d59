package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/forgeapp/forge-server/internal/domain"
	"github.com/forgeapp/forge-server/internal/service"
)

func (s *Server) registerShareRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listShareTokens",
		Method:      http.MethodGet,
		Path:        "/api/v1/spaces/{spaceId}/pages/{pageId}/tokens",
		Summary:     "List share tokens",
		Description: "Returns a page's share tokens, newest first",
		Tags:        []string{"Sharing"},
		Security:    bearerAuth,
	}, s.handleListShareTokens)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createShareToken",
		Method:        http.MethodPost,
		Path:          "/api/v1/spaces/{spaceId}/pages/{pageId}/tokens",
		Summary:       "Create share token",
		Description:   "Issues a token that opens the page without an account",
		Tags:          []string{"Sharing"},
		Security:      bearerAuth,
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateShareToken)

	huma.Register(s.api, huma.Operation{
		OperationID: "revokeShareToken",
		Method:      http.MethodPost,
		Path:        "/api/v1/spaces/{spaceId}/tokens/{tokenId}/revoke",
		Summary:     "Revoke share token",
		Description: "Revokes a token. Revoking twice keeps the first revocation time.",
		Tags:        []string{"Sharing"},
		Security:    bearerAuth,
	}, s.handleRevokeShareToken)

	huma.Register(s.api, huma.Operation{
		OperationID: "openSharedPage",
		Method:      http.MethodGet,
		Path:        "/api/v1/share/pages/{token}",
		Summary:     "Open shared page",
		Description: "Returns the page behind an active share token",
		Tags:        []string{"Sharing"},
		Middlewares: huma.Middlewares{s.rateLimit(s.publicLimiter)},
	}, s.handleOpenSharedPage)

	huma.Register(s.api, huma.Operation{
		OperationID: "editSharedPage",
		Method:      http.MethodPatch,
		Path:        "/api/v1/share/pages/{token}",
		Summary:     "Edit shared page",
		Description: "Updates the page behind an active edit token",
		Tags:        []string{"Sharing"},
		Middlewares: huma.Middlewares{s.rateLimit(s.publicLimiter)},
	}, s.handleEditSharedPage)
}

// === DTOs ===

// ShareTokensResponse lists share tokens.
type ShareTokensResponse struct {
	Tokens []domain.ShareToken `json:"tokens" doc:"Share tokens, newest first"`
}

// ShareTokensOutput wraps a token list for Huma.
type ShareTokensOutput struct {
	Body ShareTokensResponse
}

// CreateShareTokenBody is the request body for creating a share token.
// expiresAt wins over ttlSeconds; with neither the server default applies.
type CreateShareTokenBody struct {
	Permission string    `json:"permission" doc:"view or edit"`
	ExpiresAt  *FlexTime `json:"expiresAt,omitempty" doc:"Expiry, RFC3339 or epoch milliseconds"`
	TTLSeconds int64     `json:"ttlSeconds,omitempty" minimum:"0" doc:"Lifetime in seconds"`
	Token      string    `json:"token,omitempty" maxLength:"128" doc:"Token secret, generated when empty"`
}

// CreateShareTokenInput wraps the create token request for Huma.
type CreateShareTokenInput struct {
	SpaceID string `path:"spaceId" doc:"Space ID"`
	PageID  string `path:"pageId" doc:"Page ID"`
	Body    CreateShareTokenBody
}

// ShareTokenOutput wraps a token for Huma.
type ShareTokenOutput struct {
	Body *domain.ShareToken
}

// RevokeShareTokenInput addresses a token.
type RevokeShareTokenInput struct {
	SpaceID string `path:"spaceId" doc:"Space ID"`
	TokenID string `path:"tokenId" doc:"Token ID"`
}

// SharedPageInput carries a token secret.
type SharedPageInput struct {
	Token string `path:"token" doc:"Token secret"`
}

// EditSharedPageInput wraps an edit through a share token for Huma.
type EditSharedPageInput struct {
	Token string `path:"token" doc:"Token secret"`
	Body  struct {
		Title           *string          `json:"title,omitempty" maxLength:"300" doc:"Page title"`
		Content         *string          `json:"content,omitempty" doc:"Markdown content"`
		EditorStateJSON Nullable[string] `json:"editorStateJson,omitempty" doc:"Opaque editor state, null to clear"`
	}
}

// SharedPageOutput wraps a shared page for Huma.
type SharedPageOutput struct {
	CacheControl string `header:"Cache-Control"`
	Body         *service.SharedPage
}

// === Handlers ===

func (s *Server) handleListShareTokens(ctx context.Context, input *PageInput) (*ShareTokensOutput, error) {
	if _, err := s.RequireMember(ctx, input.SpaceID); err != nil {
		return nil, err
	}

	tokens, err := s.services.Shares.ListTokens(ctx, input.SpaceID, input.PageID)
	if err != nil {
		return nil, err
	}
	return &ShareTokensOutput{Body: ShareTokensResponse{Tokens: values(tokens)}}, nil
}

func (s *Server) handleCreateShareToken(ctx context.Context, input *CreateShareTokenInput) (*ShareTokenOutput, error) {
	member, err := s.RequireMember(ctx, input.SpaceID)
	if err != nil {
		return nil, err
	}

	req := service.CreateTokenRequest{
		Permission: input.Body.Permission,
		TTL:        time.Duration(input.Body.TTLSeconds) * time.Second,
		Token:      input.Body.Token,
	}
	if input.Body.ExpiresAt != nil {
		expiresAt := input.Body.ExpiresAt.Time
		req.ExpiresAt = &expiresAt
	}

	token, err := s.services.Shares.CreateToken(ctx, member, input.PageID, req)
	if err != nil {
		return nil, err
	}
	return &ShareTokenOutput{Body: token}, nil
}

func (s *Server) handleRevokeShareToken(ctx context.Context, input *RevokeShareTokenInput) (*ShareTokenOutput, error) {
	if _, err := s.RequireMember(ctx, input.SpaceID); err != nil {
		return nil, err
	}

	token, err := s.services.Shares.RevokeToken(ctx, input.SpaceID, input.TokenID)
	if err != nil {
		return nil, err
	}
	return &ShareTokenOutput{Body: token}, nil
}

func (s *Server) handleOpenSharedPage(ctx context.Context, input *SharedPageInput) (*SharedPageOutput, error) {
	shared, err := s.services.Shares.Open(ctx, input.Token)
	if err != nil {
		return nil, err
	}
	return &SharedPageOutput{CacheControl: CacheNoStore, Body: shared}, nil
}

func (s *Server) handleEditSharedPage(ctx context.Context, input *EditSharedPageInput) (*SharedPageOutput, error) {
	shared, err := s.services.Shares.Edit(ctx, input.Token, service.ShareEditRequest{
		Title:           input.Body.Title,
		Content:         input.Body.Content,
		EditorStateJSON: input.Body.EditorStateJSON.Field(),
	})
	if err != nil {
		return nil, err
	}
	return &SharedPageOutput{CacheControl: CacheNoStore, Body: shared}, nil
}
