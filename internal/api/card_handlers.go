package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/forgeapp/forge-server/internal/domain"
	"github.com/forgeapp/forge-server/internal/service"
)

func (s *Server) registerCardRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listCards",
		Method:      http.MethodGet,
		Path:        "/api/v1/spaces/{spaceId}/cards",
		Summary:     "List cards",
		Description: "Returns the space's cards, or one column's cards in position order",
		Tags:        []string{"Cards"},
		Security:    bearerAuth,
	}, s.handleListCards)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createCard",
		Method:        http.MethodPost,
		Path:          "/api/v1/spaces/{spaceId}/cards",
		Summary:       "Create card",
		Description:   "Creates a card in a column, at the top unless a position is given",
		Tags:          []string{"Cards"},
		Security:      bearerAuth,
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateCard)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCard",
		Method:      http.MethodGet,
		Path:        "/api/v1/spaces/{spaceId}/cards/{cardId}",
		Summary:     "Get card",
		Tags:        []string{"Cards"},
		Security:    bearerAuth,
	}, s.handleGetCard)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateCard",
		Method:      http.MethodPatch,
		Path:        "/api/v1/spaces/{spaceId}/cards/{cardId}",
		Summary:     "Update card",
		Description: "Updates card fields. columnId and position move the card; assignedUserId and dueDate accept null.",
		Tags:        []string{"Cards"},
		Security:    bearerAuth,
	}, s.handleUpdateCard)

	huma.Register(s.api, huma.Operation{
		OperationID: "moveCard",
		Method:      http.MethodPost,
		Path:        "/api/v1/spaces/{spaceId}/cards/{cardId}/move",
		Summary:     "Move card",
		Description: "Moves a card within its column or to another column",
		Tags:        []string{"Cards"},
		Security:    bearerAuth,
	}, s.handleMoveCard)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteCard",
		Method:      http.MethodDelete,
		Path:        "/api/v1/spaces/{spaceId}/cards/{cardId}",
		Summary:     "Delete card",
		Description: "Deletes a card and compacts its column",
		Tags:        []string{"Cards"},
		Security:    bearerAuth,
	}, s.handleDeleteCard)
}

// === DTOs ===

// ListCardsInput contains parameters for listing cards.
type ListCardsInput struct {
	SpaceID  string `path:"spaceId" doc:"Space ID"`
	ColumnID string `query:"columnId" doc:"Only cards of this column"`
}

// CardsResponse lists cards.
type CardsResponse struct {
	Cards []domain.Card `json:"cards" doc:"Cards"`
}

// CardsOutput wraps a card list for Huma.
type CardsOutput struct {
	Body CardsResponse
}

// CreateCardBody is the request body for creating a card.
type CreateCardBody struct {
	ColumnID       string  `json:"columnId" minLength:"1" doc:"Column to create the card in"`
	Title          string  `json:"title" maxLength:"500" doc:"Card title"`
	Description    string  `json:"description,omitempty" doc:"Markdown description"`
	AssignedUserID *string `json:"assignedUserId,omitempty" doc:"Assignee user ID"`
	DueDate        *string `json:"dueDate,omitempty" doc:"Due date as YYYY-MM-DD; other values are stored as null"`
	Position       *int    `json:"position,omitempty" minimum:"0" doc:"Index within the column, 0 when omitted"`
}

// CreateCardInput wraps the create card request for Huma.
type CreateCardInput struct {
	SpaceID string `path:"spaceId" doc:"Space ID"`
	Body    CreateCardBody
}

// CardOutput wraps a card for Huma.
type CardOutput struct {
	Body *domain.Card
}

// CardInput addresses a card.
type CardInput struct {
	SpaceID string `path:"spaceId" doc:"Space ID"`
	CardID  string `path:"cardId" doc:"Card ID"`
}

// UpdateCardBody is the request body for updating a card. Absent fields are
// left alone.
type UpdateCardBody struct {
	Title          *string          `json:"title,omitempty" maxLength:"500" doc:"Card title"`
	Description    *string          `json:"description,omitempty" doc:"Markdown description"`
	AssignedUserID Nullable[string] `json:"assignedUserId,omitempty" doc:"Assignee user ID, null to clear"`
	DueDate        Nullable[string] `json:"dueDate,omitempty" doc:"Due date as YYYY-MM-DD, null to clear"`
	ColumnID       *string          `json:"columnId,omitempty" doc:"Column to move the card to"`
	Position       *int             `json:"position,omitempty" minimum:"0" doc:"Index within the destination column"`
}

// UpdateCardInput wraps the update card request for Huma.
type UpdateCardInput struct {
	SpaceID string `path:"spaceId" doc:"Space ID"`
	CardID  string `path:"cardId" doc:"Card ID"`
	Body    UpdateCardBody
}

// MoveCardInput wraps the card move request for Huma.
type MoveCardInput struct {
	SpaceID string `path:"spaceId" doc:"Space ID"`
	CardID  string `path:"cardId" doc:"Card ID"`
	Body    struct {
		ColumnID *string `json:"columnId,omitempty" doc:"Destination column, the current one when omitted"`
		Position *int    `json:"position,omitempty" minimum:"0" doc:"Destination index, appended to a new column when omitted"`
	}
}

// === Handlers ===

func (s *Server) handleListCards(ctx context.Context, input *ListCardsInput) (*CardsOutput, error) {
	if _, err := s.RequireMember(ctx, input.SpaceID); err != nil {
		return nil, err
	}

	cards, err := s.services.Boards.ListCards(ctx, input.SpaceID, input.ColumnID)
	if err != nil {
		return nil, err
	}
	return &CardsOutput{Body: CardsResponse{Cards: values(cards)}}, nil
}

func (s *Server) handleCreateCard(ctx context.Context, input *CreateCardInput) (*CardOutput, error) {
	if _, err := s.RequireMember(ctx, input.SpaceID); err != nil {
		return nil, err
	}

	card, err := s.services.Boards.CreateCard(ctx, input.SpaceID, service.CreateCardRequest{
		ColumnID:       input.Body.ColumnID,
		Title:          input.Body.Title,
		Description:    input.Body.Description,
		AssignedUserID: input.Body.AssignedUserID,
		DueDate:        input.Body.DueDate,
		Position:       input.Body.Position,
	})
	if err != nil {
		return nil, err
	}
	return &CardOutput{Body: card}, nil
}

func (s *Server) handleGetCard(ctx context.Context, input *CardInput) (*CardOutput, error) {
	if _, err := s.RequireMember(ctx, input.SpaceID); err != nil {
		return nil, err
	}

	card, err := s.services.Boards.GetCard(ctx, input.SpaceID, input.CardID)
	if err != nil {
		return nil, err
	}
	return &CardOutput{Body: card}, nil
}

func (s *Server) handleUpdateCard(ctx context.Context, input *UpdateCardInput) (*CardOutput, error) {
	if _, err := s.RequireMember(ctx, input.SpaceID); err != nil {
		return nil, err
	}

	card, err := s.services.Boards.UpdateCard(ctx, input.SpaceID, input.CardID, service.UpdateCardRequest{
		Title:          input.Body.Title,
		Description:    input.Body.Description,
		AssignedUserID: input.Body.AssignedUserID.Field(),
		DueDate:        input.Body.DueDate.Field(),
		ColumnID:       input.Body.ColumnID,
		Position:       input.Body.Position,
	})
	if err != nil {
		return nil, err
	}
	return &CardOutput{Body: card}, nil
}

func (s *Server) handleMoveCard(ctx context.Context, input *MoveCardInput) (*CardOutput, error) {
	if _, err := s.RequireMember(ctx, input.SpaceID); err != nil {
		return nil, err
	}

	card, err := s.services.Boards.MoveCard(ctx, input.SpaceID, input.CardID, input.Body.ColumnID, input.Body.Position)
	if err != nil {
		return nil, err
	}
	return &CardOutput{Body: card}, nil
}

func (s *Server) handleDeleteCard(ctx context.Context, input *CardInput) (*DeletedOutput, error) {
	if _, err := s.RequireMember(ctx, input.SpaceID); err != nil {
		return nil, err
	}

	if err := s.services.Boards.DeleteCard(ctx, input.SpaceID, input.CardID); err != nil {
		return nil, err
	}
	return deleted(input.CardID), nil
}
