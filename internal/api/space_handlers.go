package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/forgeapp/forge-server/internal/domain"
	"github.com/forgeapp/forge-server/internal/service"
)

func (s *Server) registerSpaceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listSpaces",
		Method:      http.MethodGet,
		Path:        "/api/v1/spaces",
		Summary:     "List spaces",
		Description: "Returns the spaces the current user belongs to, with their members",
		Tags:        []string{"Spaces"},
		Security:    bearerAuth,
	}, s.handleListSpaces)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createSpace",
		Method:        http.MethodPost,
		Path:          "/api/v1/spaces",
		Summary:       "Create space",
		Description:   "Creates a space owned by the current user",
		Tags:          []string{"Spaces"},
		Security:      bearerAuth,
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateSpace)

	huma.Register(s.api, huma.Operation{
		OperationID: "bootstrapSpaces",
		Method:      http.MethodPost,
		Path:        "/api/v1/spaces/bootstrap",
		Summary:     "Bootstrap workspace",
		Description: "Creates and seeds a personal workspace when the user has none, then returns the user's spaces",
		Tags:        []string{"Spaces"},
		Security:    bearerAuth,
	}, s.handleBootstrap)

	huma.Register(s.api, huma.Operation{
		OperationID: "listMembers",
		Method:      http.MethodGet,
		Path:        "/api/v1/spaces/{spaceId}/members",
		Summary:     "List members",
		Description: "Returns the members of a space",
		Tags:        []string{"Spaces"},
		Security:    bearerAuth,
	}, s.handleListMembers)

	huma.Register(s.api, huma.Operation{
		OperationID: "inviteMember",
		Method:      http.MethodPost,
		Path:        "/api/v1/spaces/{spaceId}/members",
		Summary:     "Invite member",
		Description: "Adds a member by email, or updates the role of an existing one, and sends an invite email",
		Tags:        []string{"Spaces"},
		Security:    bearerAuth,
	}, s.handleInviteMember)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeMember",
		Method:      http.MethodDelete,
		Path:        "/api/v1/spaces/{spaceId}/members/{userId}",
		Summary:     "Remove member",
		Description: "Removes a member from the space. The owner cannot be removed.",
		Tags:        []string{"Spaces"},
		Security:    bearerAuth,
	}, s.handleRemoveMember)
}

// === DTOs ===

// SpacesResponse lists spaces.
type SpacesResponse struct {
	Spaces []domain.Space `json:"spaces" doc:"Spaces with their members"`
}

// SpacesOutput wraps a space list for Huma.
type SpacesOutput struct {
	Body SpacesResponse
}

// CreateSpaceInput wraps the create space request for Huma.
type CreateSpaceInput struct {
	Body struct {
		Name   string `json:"name" maxLength:"120" doc:"Space name"`
		TeamID string `json:"teamId,omitempty" maxLength:"64" doc:"Team ID, generated when empty"`
	}
}

// SpaceOutput wraps a space for Huma.
type SpaceOutput struct {
	Body *domain.Space
}

// SpaceInput addresses a space.
type SpaceInput struct {
	SpaceID string `path:"spaceId" doc:"Space ID"`
}

// MembersResponse lists members.
type MembersResponse struct {
	Members []domain.Member `json:"members" doc:"Members of the space"`
}

// MembersOutput wraps a member list for Huma.
type MembersOutput struct {
	Body MembersResponse
}

// InviteMemberInput wraps the invite request for Huma.
type InviteMemberInput struct {
	SpaceID string `path:"spaceId" doc:"Space ID"`
	Body    struct {
		Email string `json:"email" maxLength:"320" doc:"Invitee email"`
		Role  string `json:"role,omitempty" enum:"owner,admin,member" doc:"Role, member by default"`
		Name  string `json:"name,omitempty" maxLength:"120" doc:"Display name"`
	}
}

// InviteMemberOutput wraps the invite result for Huma.
type InviteMemberOutput struct {
	Body *service.InviteResult
}

// RemoveMemberInput addresses a member.
type RemoveMemberInput struct {
	SpaceID string `path:"spaceId" doc:"Space ID"`
	UserID  string `path:"userId" doc:"User ID of the member"`
}

// === Handlers ===

func (s *Server) handleListSpaces(ctx context.Context, _ *struct{}) (*SpacesOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	spaces, err := s.services.Spaces.ListSpaces(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &SpacesOutput{Body: SpacesResponse{Spaces: values(spaces)}}, nil
}

func (s *Server) handleCreateSpace(ctx context.Context, input *CreateSpaceInput) (*SpaceOutput, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	space, err := s.services.Spaces.CreateSpace(ctx, user, service.CreateSpaceRequest{
		Name:   input.Body.Name,
		TeamID: input.Body.TeamID,
	})
	if err != nil {
		return nil, err
	}
	return &SpaceOutput{Body: space}, nil
}

func (s *Server) handleBootstrap(ctx context.Context, _ *struct{}) (*SpacesOutput, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	spaces, err := s.services.Spaces.Bootstrap(ctx, user)
	if err != nil {
		return nil, err
	}
	return &SpacesOutput{Body: SpacesResponse{Spaces: values(spaces)}}, nil
}

func (s *Server) handleListMembers(ctx context.Context, input *SpaceInput) (*MembersOutput, error) {
	if _, err := s.RequireMember(ctx, input.SpaceID); err != nil {
		return nil, err
	}

	members, err := s.services.Spaces.ListMembers(ctx, input.SpaceID)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []domain.Member{}
	}
	return &MembersOutput{Body: MembersResponse{Members: members}}, nil
}

func (s *Server) handleInviteMember(ctx context.Context, input *InviteMemberInput) (*InviteMemberOutput, error) {
	actor, err := s.RequireMember(ctx, input.SpaceID)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Spaces.InviteMember(ctx, actor, service.InviteRequest{
		Email: input.Body.Email,
		Role:  input.Body.Role,
		Name:  input.Body.Name,
	})
	if err != nil {
		return nil, err
	}
	return &InviteMemberOutput{Body: result}, nil
}

func (s *Server) handleRemoveMember(ctx context.Context, input *RemoveMemberInput) (*DeletedOutput, error) {
	actor, err := s.RequireMember(ctx, input.SpaceID)
	if err != nil {
		return nil, err
	}

	if err := s.services.Spaces.RemoveMember(ctx, actor, input.UserID); err != nil {
		return nil, err
	}
	return deleted(input.UserID), nil
}
