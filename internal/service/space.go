package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/forgeapp/forge-server/internal/domain"
	domainerrors "github.com/forgeapp/forge-server/internal/errors"
	"github.com/forgeapp/forge-server/internal/id"
	"github.com/forgeapp/forge-server/internal/identity"
	"github.com/forgeapp/forge-server/internal/mail"
	"github.com/forgeapp/forge-server/internal/sse"
	"github.com/forgeapp/forge-server/internal/store"
)

// Seed content of a bootstrapped space.
const (
	defaultBoardTitle   = "My Kanban"
	welcomeCardTitle    = "Welcome to Kanban"
	welcomeCardBody     = "Drag this card to the other columns to try it out."
	welcomePageTitle    = "Welcome!"
	welcomePageContent  = "# Hello World\n\nThis is your new Pages system. Feel free to edit this content."
	personalSpaceName   = "Personal Workspace"
	workspaceNameSuffix = " Workspace"
)

// SpaceService manages spaces and their members.
type SpaceService struct {
	store      store.Store
	sseManager *sse.Manager
	boards     *BoardService
	pages      *PageService
	mailer     *mail.Mailer
	logger     *slog.Logger
}

// NewSpaceService creates a new space service.
func NewSpaceService(
	st store.Store,
	sseManager *sse.Manager,
	boards *BoardService,
	pages *PageService,
	mailer *mail.Mailer,
	logger *slog.Logger,
) *SpaceService {
	return &SpaceService{
		store:      st,
		sseManager: sseManager,
		boards:     boards,
		pages:      pages,
		mailer:     mailer,
		logger:     logger,
	}
}

// CreateSpaceRequest creates a space. TeamID is generated when empty.
type CreateSpaceRequest struct {
	Name   string `json:"name" validate:"max=120"`
	TeamID string `json:"teamId,omitempty" validate:"max=64"`
}

// InviteRequest adds a member by email, or changes the role of an existing
// one.
type InviteRequest struct {
	Email string `json:"email" validate:"required,max=320"`
	Role  string `json:"role,omitempty" validate:"omitempty,oneof=owner admin member"`
	Name  string `json:"name,omitempty" validate:"max=120"`
}

// InviteResult is the stored member and the outcome of the invite email.
type InviteResult struct {
	Member     *domain.Member  `json:"member"`
	Members    []domain.Member `json:"members"`
	EmailSent  bool            `json:"emailSent"`
	EmailError string          `json:"emailError,omitempty"`
}

// ListSpaces returns the spaces user belongs to, with their members.
func (s *SpaceService) ListSpaces(ctx context.Context, userID string) ([]*domain.Space, error) {
	spaces, err := s.store.ListSpacesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list spaces: %w", err)
	}
	if spaces == nil {
		spaces = []*domain.Space{}
	}
	return spaces, nil
}

// CreateSpace creates a space owned by user.
func (s *SpaceService) CreateSpace(ctx context.Context, user *domain.User, req CreateSpaceRequest) (*domain.Space, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	name, err := requiredText("name", req.Name)
	if err != nil {
		return nil, err
	}

	at := now()
	entity, err := newEntity(id.PrefixSpace, at)
	if err != nil {
		return nil, err
	}
	teamID := strings.TrimSpace(req.TeamID)
	if teamID == "" {
		if teamID, err = id.Generate(id.PrefixTeam); err != nil {
			return nil, fmt.Errorf("generate team id: %w", err)
		}
	}

	space := &domain.Space{Entity: entity, Name: name, TeamID: teamID}
	owner := &domain.Member{
		SpaceID:   space.ID,
		UserID:    user.ID,
		Email:     identity.NormalizeEmail(user.Email),
		Name:      memberName(user.Name, user.Email),
		Role:      domain.RoleOwner,
		CreatedAt: at,
		UpdatedAt: at,
	}

	if err := s.store.CreateSpace(ctx, space, owner); err != nil {
		return nil, fmt.Errorf("create space: %w", err)
	}
	space.Members = []domain.Member{*owner}

	s.logger.Info("space created", "space_id", space.ID, "owner", user.ID)
	return space, nil
}

// Bootstrap gives a user without spaces a personal one, seeded with a
// board, a welcome card and a welcome page. It returns the user's spaces.
func (s *SpaceService) Bootstrap(ctx context.Context, user *domain.User) ([]*domain.Space, error) {
	spaces, err := s.ListSpaces(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if len(spaces) > 0 {
		return spaces, nil
	}

	name := personalSpaceName
	if n := strings.TrimSpace(user.Name); n != "" {
		name = n + workspaceNameSuffix
	}
	space, err := s.CreateSpace(ctx, user, CreateSpaceRequest{Name: name})
	if err != nil {
		return nil, err
	}
	if err := s.seed(ctx, space.ID); err != nil {
		return nil, fmt.Errorf("seed space: %w", err)
	}

	s.logger.Info("space bootstrapped", "space_id", space.ID, "user_id", user.ID)
	return s.ListSpaces(ctx, user.ID)
}

func (s *SpaceService) seed(ctx context.Context, spaceID string) error {
	board, err := s.boards.CreateBoard(ctx, spaceID, CreateBoardRequest{
		Title:          defaultBoardTitle,
		DefaultColumns: true,
	})
	if err != nil {
		return err
	}

	zero := 0
	if _, err := s.boards.CreateCard(ctx, spaceID, CreateCardRequest{
		ColumnID:    board.Columns[0].ID,
		Title:       welcomeCardTitle,
		Description: welcomeCardBody,
		Position:    &zero,
	}); err != nil {
		return err
	}

	_, err = s.pages.CreatePage(ctx, spaceID, CreatePageRequest{
		Title:   welcomePageTitle,
		Content: welcomePageContent,
	})
	return err
}

// RequireMember returns userID's membership of spaceID. A missing space is
// NOT_FOUND and an existing space the user is not in is FORBIDDEN.
func (s *SpaceService) RequireMember(ctx context.Context, spaceID, userID string) (*domain.Member, error) {
	member, err := s.store.GetMember(ctx, spaceID, userID)
	if err == nil {
		return member, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("get member: %w", err)
	}

	if _, err := s.store.GetSpace(ctx, spaceID); err != nil {
		return nil, notFound(err, "space", spaceID)
	}
	return nil, domainerrors.Forbidden("you are not a member of this space")
}

// ListMembers returns a space's members in join order.
func (s *SpaceService) ListMembers(ctx context.Context, spaceID string) ([]domain.Member, error) {
	members, err := s.store.ListMembers(ctx, spaceID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	if members == nil {
		members = []domain.Member{}
	}
	return members, nil
}

// InviteMember adds req.Email to the actor's space or updates its role, then
// sends the invitation email. Email failures are reported in the result, not
// returned.
func (s *SpaceService) InviteMember(ctx context.Context, actor *domain.Member, req InviteRequest) (*InviteResult, error) {
	if !actor.Role.CanManageMembers() {
		return nil, domainerrors.Forbidden("only owners and admins can invite members")
	}
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	email := identity.NormalizeEmail(req.Email)
	if err := identity.ValidateEmail(email); err != nil {
		return nil, domainerrors.ValidationWithDetails("invalid email address",
			map[string]string{"email": "must be a valid email address"})
	}
	role, _ := domain.ParseRole(req.Role)
	if role == domain.RoleOwner && actor.Role != domain.RoleOwner {
		return nil, domainerrors.Forbidden("only owners can invite owners")
	}

	existing, err := s.store.GetMemberByEmail(ctx, actor.SpaceID, email)
	switch {
	case err == nil:
		if existing.Role == domain.RoleOwner && role != domain.RoleOwner {
			return nil, domainerrors.Forbidden("the owner's role cannot be changed")
		}
	case errors.Is(err, store.ErrNotFound):
		existing = nil
	default:
		return nil, fmt.Errorf("get member: %w", err)
	}

	at := now()
	member := &domain.Member{
		SpaceID:   actor.SpaceID,
		Email:     email,
		Name:      memberName(req.Name, email),
		Role:      role,
		CreatedAt: at,
		UpdatedAt: at,
	}
	if existing != nil {
		member.UserID = existing.UserID
		if strings.TrimSpace(req.Name) == "" {
			member.Name = existing.Name
		}
	} else if member.UserID, err = s.inviteeUserID(ctx, actor.SpaceID, email); err != nil {
		return nil, err
	}

	stored, err := s.store.UpsertMember(ctx, member)
	if err != nil {
		return nil, fmt.Errorf("upsert member: %w", err)
	}
	s.sseManager.Emit(sse.NewMemberEvent(stored))

	result := &InviteResult{Member: stored}
	if result.Members, err = s.ListMembers(ctx, actor.SpaceID); err != nil {
		return nil, err
	}

	space, err := s.store.GetSpace(ctx, actor.SpaceID)
	if err != nil {
		return nil, notFound(err, "space", actor.SpaceID)
	}
	err = s.mailer.SendInvite(ctx, mail.Invite{
		To:           email,
		SpaceName:    space.Name,
		InviterName:  actor.Name,
		InviterEmail: actor.Email,
	})
	if err != nil {
		result.EmailError = err.Error()
	} else {
		result.EmailSent = true
	}

	s.logger.Info("member invited",
		"space_id", actor.SpaceID,
		"user_id", stored.UserID,
		"role", stored.Role,
		"email_sent", result.EmailSent,
	)
	return result, nil
}

// inviteeUserID is the registered user's id when email has an account, and
// otherwise an id derived from the email. A derived id already used by
// another member of the space falls back to a random one.
func (s *SpaceService) inviteeUserID(ctx context.Context, spaceID, email string) (string, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err == nil {
		return user.ID, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("get user: %w", err)
	}

	derived := identity.UserIDFromEmail(email)
	_, err = s.store.GetMember(ctx, spaceID, derived)
	if errors.Is(err, store.ErrNotFound) {
		return derived, nil
	}
	if err != nil {
		return "", fmt.Errorf("get member: %w", err)
	}
	return id.Short(id.PrefixUser)
}

// RemoveMember removes a member. Owners cannot be removed, and only owners
// and admins may remove others. Anyone may leave.
func (s *SpaceService) RemoveMember(ctx context.Context, actor *domain.Member, userID string) error {
	if userID != actor.UserID && !actor.Role.CanManageMembers() {
		return domainerrors.Forbidden("only owners and admins can remove members")
	}

	member, err := s.store.GetMember(ctx, actor.SpaceID, userID)
	if err != nil {
		return notFound(err, "member", userID)
	}
	if member.Role == domain.RoleOwner {
		return domainerrors.Forbidden("the space owner cannot be removed")
	}

	if err := s.store.DeleteMember(ctx, actor.SpaceID, userID); err != nil {
		return notFound(err, "member", userID)
	}

	s.sseManager.Emit(sse.NewDeletedEvent(actor.SpaceID, sse.EventMemberUpdated, userID))
	s.logger.Info("member removed", "space_id", actor.SpaceID, "user_id", userID, "by", actor.UserID)
	return nil
}

func memberName(name, email string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return identity.DisplayNameFromEmail(email)
}
