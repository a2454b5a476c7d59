package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forgeapp/forge-server/internal/domain"
	domainerrors "github.com/forgeapp/forge-server/internal/errors"
	"github.com/forgeapp/forge-server/internal/id"
	"github.com/forgeapp/forge-server/internal/markdown"
	"github.com/forgeapp/forge-server/internal/metrics"
	"github.com/forgeapp/forge-server/internal/store"
)

// DefaultShareTTL is how long a share token lives when neither an expiry nor
// a TTL is given.
const DefaultShareTTL = 7 * 24 * time.Hour

// errInviteNotFound is returned for missing, expired and revoked tokens
// alike, so a token's state is not disclosed.
var errInviteNotFound = domainerrors.NotFound("invite token not found or expired")

// ShareService issues page share tokens and serves the public share routes.
type ShareService struct {
	store      store.Store
	pages      *PageService
	defaultTTL time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// NewShareService creates a new share service. A zero defaultTTL uses
// DefaultShareTTL.
func NewShareService(st store.Store, pages *PageService, defaultTTL time.Duration, logger *slog.Logger) *ShareService {
	if defaultTTL <= 0 {
		defaultTTL = DefaultShareTTL
	}
	return &ShareService{
		store:      st,
		pages:      pages,
		defaultTTL: defaultTTL,
		now:        now,
		logger:     logger,
	}
}

// CreateTokenRequest creates a share token. ExpiresAt wins over TTL; with
// neither the service default applies. Token is generated when empty.
type CreateTokenRequest struct {
	Permission string
	ExpiresAt  *time.Time
	TTL        time.Duration
	Token      string
}

// ShareEditRequest edits a shared page. Nil and unset fields are left alone.
type ShareEditRequest struct {
	Title           *string
	Content         *string
	EditorStateJSON Field[string]
}

// SharedPage is what a share token opens.
type SharedPage struct {
	Invite *domain.ShareToken `json:"invite"`
	Page   *domain.Page       `json:"page"`
	HTML   string             `json:"html"`
}

// CreateToken issues a token for a page of the creator's space.
func (s *ShareService) CreateToken(ctx context.Context, creator *domain.Member, pageID string, req CreateTokenRequest) (*domain.ShareToken, error) {
	permission, ok := domain.ParsePermission(req.Permission)
	if !ok {
		return nil, domainerrors.ValidationWithDetails("permission must be view or edit",
			map[string]string{"permission": "must be one of: view edit"})
	}

	page, err := s.store.GetPage(ctx, creator.SpaceID, pageID)
	if err != nil {
		return nil, notFound(err, "page", pageID)
	}

	at := s.now()
	expiresAt := at.Add(s.defaultTTL)
	switch {
	case req.ExpiresAt != nil:
		expiresAt = req.ExpiresAt.UTC()
	case req.TTL != 0:
		expiresAt = at.Add(req.TTL)
	}
	if !expiresAt.After(at) {
		return nil, domainerrors.ValidationWithDetails("expiry must be in the future",
			map[string]string{"expiresAt": "must be in the future"})
	}

	secret := strings.TrimSpace(req.Token)
	if secret == "" {
		secret = strings.ReplaceAll(uuid.NewString(), "-", "")
	}

	tokenID, err := id.Generate(id.PrefixShareToken)
	if err != nil {
		return nil, fmt.Errorf("generate token id: %w", err)
	}
	token := &domain.ShareToken{
		ID:              tokenID,
		SpaceID:         page.SpaceID,
		PageID:          page.ID,
		Token:           secret,
		Permission:      permission,
		ExpiresAt:       expiresAt,
		CreatedByUserID: creator.UserID,
		CreatedAt:       at,
	}

	if err := s.store.CreateShareToken(ctx, token); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("token already in use")
		}
		return nil, fmt.Errorf("create share token: %w", err)
	}

	s.logger.Info("share token created",
		"token_id", token.ID,
		"page_id", page.ID,
		"permission", permission,
		"expires_at", expiresAt,
	)
	return token, nil
}

// ListTokens returns a page's tokens, newest first.
func (s *ShareService) ListTokens(ctx context.Context, spaceID, pageID string) ([]*domain.ShareToken, error) {
	if _, err := s.store.GetPage(ctx, spaceID, pageID); err != nil {
		return nil, notFound(err, "page", pageID)
	}
	tokens, err := s.store.ListShareTokens(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("list share tokens: %w", err)
	}
	if tokens == nil {
		tokens = []*domain.ShareToken{}
	}
	return tokens, nil
}

// RevokeToken revokes a token. Revoking twice keeps the first revocation
// time.
func (s *ShareService) RevokeToken(ctx context.Context, spaceID, tokenID string) (*domain.ShareToken, error) {
	if _, err := s.store.GetShareToken(ctx, spaceID, tokenID); err != nil {
		return nil, notFound(err, "share token", tokenID)
	}
	if err := s.store.RevokeShareToken(ctx, tokenID, s.now()); err != nil {
		return nil, notFound(err, "share token", tokenID)
	}

	token, err := s.store.GetShareToken(ctx, spaceID, tokenID)
	if err != nil {
		return nil, notFound(err, "share token", tokenID)
	}
	s.logger.Info("share token revoked", "token_id", tokenID, "page_id", token.PageID)
	return token, nil
}

// Open returns the page behind an active token.
func (s *ShareService) Open(ctx context.Context, secret string) (*SharedPage, error) {
	token, err := s.active(ctx, "open", secret)
	if err != nil {
		return nil, err
	}

	page, err := s.store.GetPage(ctx, token.SpaceID, token.PageID)
	if err != nil {
		metrics.ShareAccess.WithLabelValues("open", "not_found").Inc()
		return nil, notFound(err, "page", token.PageID)
	}

	s.touch(ctx, token)
	metrics.ShareAccess.WithLabelValues("open", "ok").Inc()
	return &SharedPage{Invite: token, Page: page, HTML: markdown.Preview(page.Content)}, nil
}

// Edit updates the page behind an active edit token. The update is a
// regular page update, versions included.
func (s *ShareService) Edit(ctx context.Context, secret string, req ShareEditRequest) (*SharedPage, error) {
	token, err := s.active(ctx, "edit", secret)
	if err != nil {
		return nil, err
	}
	if !token.CanEdit() {
		metrics.ShareAccess.WithLabelValues("edit", "forbidden").Inc()
		return nil, domainerrors.Forbidden("this invite only allows viewing")
	}

	page, err := s.pages.UpdatePage(ctx, token.SpaceID, token.PageID, UpdatePageRequest{
		Title:           req.Title,
		Content:         req.Content,
		EditorStateJSON: req.EditorStateJSON,
	})
	if err != nil {
		metrics.ShareAccess.WithLabelValues("edit", "error").Inc()
		return nil, err
	}

	s.touch(ctx, token)
	metrics.ShareAccess.WithLabelValues("edit", "ok").Inc()
	return &SharedPage{Invite: token, Page: page, HTML: markdown.Preview(page.Content)}, nil
}

// active looks the token up in a single read, rejecting expired and revoked
// ones the same way as unknown ones.
func (s *ShareService) active(ctx context.Context, op, secret string) (*domain.ShareToken, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		metrics.ShareAccess.WithLabelValues(op, "not_found").Inc()
		return nil, errInviteNotFound
	}

	token, err := s.store.GetActiveShareToken(ctx, secret, s.now())
	if errors.Is(err, store.ErrNotFound) {
		metrics.ShareAccess.WithLabelValues(op, "not_found").Inc()
		return nil, errInviteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup share token: %w", err)
	}
	return token, nil
}

// touch records the token's use. Failures are logged, not returned.
func (s *ShareService) touch(ctx context.Context, token *domain.ShareToken) {
	at := s.now()
	if err := s.store.TouchShareToken(ctx, token.ID, at); err != nil {
		s.logger.Warn("failed to record share token use", "token_id", token.ID, "error", err)
		return
	}
	token.LastUsedAt = &at
}
