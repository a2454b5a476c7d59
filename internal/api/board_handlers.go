package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/forgeapp/forge-server/internal/domain"
	"github.com/forgeapp/forge-server/internal/ordering"
	"github.com/forgeapp/forge-server/internal/service"
)

func (s *Server) registerBoardRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBoards",
		Method:      http.MethodGet,
		Path:        "/api/v1/spaces/{spaceId}/boards",
		Summary:     "List boards",
		Description: "Returns the space's boards, most recently opened first",
		Tags:        []string{"Boards"},
		Security:    bearerAuth,
	}, s.handleListBoards)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createBoard",
		Method:        http.MethodPost,
		Path:          "/api/v1/spaces/{spaceId}/boards",
		Summary:       "Create board",
		Description:   "Creates a board, optionally with the default columns",
		Tags:          []string{"Boards"},
		Security:      bearerAuth,
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateBoard)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBoard",
		Method:      http.MethodGet,
		Path:        "/api/v1/spaces/{spaceId}/boards/{boardId}",
		Summary:     "Get board",
		Description: "Returns a board with its columns and cards in position order",
		Tags:        []string{"Boards"},
		Security:    bearerAuth,
	}, s.handleGetBoard)

	huma.Register(s.api, huma.Operation{
		OperationID: "renameBoard",
		Method:      http.MethodPatch,
		Path:        "/api/v1/spaces/{spaceId}/boards/{boardId}",
		Summary:     "Rename board",
		Tags:        []string{"Boards"},
		Security:    bearerAuth,
	}, s.handleRenameBoard)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteBoard",
		Method:      http.MethodDelete,
		Path:        "/api/v1/spaces/{spaceId}/boards/{boardId}",
		Summary:     "Delete board",
		Description: "Deletes a board with its columns, cards and comments",
		Tags:        []string{"Boards"},
		Security:    bearerAuth,
	}, s.handleDeleteBoard)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createColumn",
		Method:        http.MethodPost,
		Path:          "/api/v1/spaces/{spaceId}/boards/{boardId}/columns",
		Summary:       "Create column",
		Description:   "Adds a column to a board, appended unless a position is given",
		Tags:          []string{"Boards"},
		Security:      bearerAuth,
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateColumn)

	huma.Register(s.api, huma.Operation{
		OperationID: "renameColumn",
		Method:      http.MethodPatch,
		Path:        "/api/v1/spaces/{spaceId}/columns/{columnId}",
		Summary:     "Rename column",
		Tags:        []string{"Boards"},
		Security:    bearerAuth,
	}, s.handleRenameColumn)

	huma.Register(s.api, huma.Operation{
		OperationID: "moveColumn",
		Method:      http.MethodPost,
		Path:        "/api/v1/spaces/{spaceId}/columns/{columnId}/move",
		Summary:     "Move column",
		Description: "Moves a column to an index within its board; the other columns shift to stay dense",
		Tags:        []string{"Boards"},
		Security:    bearerAuth,
	}, s.handleMoveColumn)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteColumn",
		Method:      http.MethodDelete,
		Path:        "/api/v1/spaces/{spaceId}/columns/{columnId}",
		Summary:     "Delete column",
		Description: "Deletes a column and its cards, then compacts the board",
		Tags:        []string{"Boards"},
		Security:    bearerAuth,
	}, s.handleDeleteColumn)
}

// === DTOs ===

// BoardsResponse lists boards.
type BoardsResponse struct {
	Boards []domain.Board `json:"boards" doc:"Boards of the space"`
}

// BoardsOutput wraps a board list for Huma.
type BoardsOutput struct {
	Body BoardsResponse
}

// CreateBoardInput wraps the create board request for Huma.
type CreateBoardInput struct {
	SpaceID string `path:"spaceId" doc:"Space ID"`
	Body    struct {
		Title          string `json:"title" maxLength:"200" doc:"Board title"`
		DefaultColumns bool   `json:"defaultColumns,omitempty" doc:"Create To Do, In Progress and Done"`
	}
}

// BoardDetailOutput wraps a board with its columns and cards for Huma.
type BoardDetailOutput struct {
	Body *domain.BoardDetail
}

// BoardInput addresses a board.
type BoardInput struct {
	SpaceID string `path:"spaceId" doc:"Space ID"`
	BoardID string `path:"boardId" doc:"Board ID"`
}

// RenameBoardInput wraps the rename request for Huma.
type RenameBoardInput struct {
	SpaceID string `path:"spaceId" doc:"Space ID"`
	BoardID string `path:"boardId" doc:"Board ID"`
	Body    struct {
		Title string `json:"title" maxLength:"200" doc:"New title"`
	}
}

// BoardOutput wraps a board for Huma.
type BoardOutput struct {
	Body *domain.Board
}

// CreateColumnInput wraps the create column request for Huma.
type CreateColumnInput struct {
	SpaceID string `path:"spaceId" doc:"Space ID"`
	BoardID string `path:"boardId" doc:"Board ID"`
	Body    struct {
		Title    string `json:"title" maxLength:"200" doc:"Column title"`
		Position *int   `json:"position,omitempty" minimum:"0" doc:"Index to insert at, appended when omitted"`
	}
}

// ColumnOutput wraps a column for Huma.
type ColumnOutput struct {
	Body *domain.Column
}

// ColumnInput addresses a column.
type ColumnInput struct {
	SpaceID  string `path:"spaceId" doc:"Space ID"`
	ColumnID string `path:"columnId" doc:"Column ID"`
}

// RenameColumnInput wraps the rename request for Huma.
type RenameColumnInput struct {
	SpaceID  string `path:"spaceId" doc:"Space ID"`
	ColumnID string `path:"columnId" doc:"Column ID"`
	Body     struct {
		Title string `json:"title" maxLength:"200" doc:"New title"`
	}
}

// MoveColumnInput wraps the column move request for Huma.
type MoveColumnInput struct {
	SpaceID  string `path:"spaceId" doc:"Space ID"`
	ColumnID string `path:"columnId" doc:"Column ID"`
	Body     struct {
		Position int `json:"position" minimum:"0" doc:"Target index within the board"`
	}
}

// ReorderOutput wraps the rewritten containers of a move for Huma.
type ReorderOutput struct {
	Body ordering.Result
}

// === Handlers ===

func (s *Server) handleListBoards(ctx context.Context, input *SpaceInput) (*BoardsOutput, error) {
	if _, err := s.RequireMember(ctx, input.SpaceID); err != nil {
		return nil, err
	}

	boards, err := s.services.Boards.ListBoards(ctx, input.SpaceID)
	if err != nil {
		return nil, err
	}
	return &BoardsOutput{Body: BoardsResponse{Boards: values(boards)}}, nil
}

func (s *Server) handleCreateBoard(ctx context.Context, input *CreateBoardInput) (*BoardDetailOutput, error) {
	if _, err := s.RequireMember(ctx, input.SpaceID); err != nil {
		return nil, err
	}

	board, err := s.services.Boards.CreateBoard(ctx, input.SpaceID, service.CreateBoardRequest{
		Title:          input.Body.Title,
		DefaultColumns: input.Body.DefaultColumns,
	})
	if err != nil {
		return nil, err
	}
	return &BoardDetailOutput{Body: board}, nil
}

func (s *Server) handleGetBoard(ctx context.Context, input *BoardInput) (*BoardDetailOutput, error) {
	if _, err := s.RequireMember(ctx, input.SpaceID); err != nil {
		return nil, err
	}

	board, err := s.services.Boards.GetBoard(ctx, input.SpaceID, input.BoardID)
	if err != nil {
		return nil, err
	}
	return &BoardDetailOutput{Body: board}, nil
}

func (s *Server) handleRenameBoard(ctx context.Context, input *RenameBoardInput) (*BoardOutput, error) {
	if _, err := s.RequireMember(ctx, input.SpaceID); err != nil {
		return nil, err
	}

	board, err := s.services.Boards.RenameBoard(ctx, input.SpaceID, input.BoardID, input.Body.Title)
	if err != nil {
		return nil, err
	}
	return &BoardOutput{Body: board}, nil
}

func (s *Server) handleDeleteBoard(ctx context.Context, input *BoardInput) (*DeletedOutput, error) {
	if _, err := s.RequireMember(ctx, input.SpaceID); err != nil {
		return nil, err
	}

	if err := s.services.Boards.DeleteBoard(ctx, input.SpaceID, input.BoardID); err != nil {
		return nil, err
	}
	return deleted(input.BoardID), nil
}

func (s *Server) handleCreateColumn(ctx context.Context, input *CreateColumnInput) (*ColumnOutput, error) {
	if _, err := s.RequireMember(ctx, input.SpaceID); err != nil {
		return nil, err
	}

	column, err := s.services.Boards.CreateColumn(ctx, input.SpaceID, input.BoardID, service.CreateColumnRequest{
		Title:    input.Body.Title,
		Position: input.Body.Position,
	})
	if err != nil {
		return nil, err
	}
	return &ColumnOutput{Body: column}, nil
}

func (s *Server) handleRenameColumn(ctx context.Context, input *RenameColumnInput) (*ColumnOutput, error) {
	if _, err := s.RequireMember(ctx, input.SpaceID); err != nil {
		return nil, err
	}

	column, err := s.services.Boards.RenameColumn(ctx, input.SpaceID, input.ColumnID, input.Body.Title)
	if err != nil {
		return nil, err
	}
	return &ColumnOutput{Body: column}, nil
}

func (s *Server) handleMoveColumn(ctx context.Context, input *MoveColumnInput) (*ReorderOutput, error) {
	if _, err := s.RequireMember(ctx, input.SpaceID); err != nil {
		return nil, err
	}

	result, err := s.services.Boards.MoveColumn(ctx, input.SpaceID, input.ColumnID, input.Body.Position)
	if err != nil {
		return nil, err
	}
	return &ReorderOutput{Body: result}, nil
}

func (s *Server) handleDeleteColumn(ctx context.Context, input *ColumnInput) (*DeletedOutput, error) {
	if _, err := s.RequireMember(ctx, input.SpaceID); err != nil {
		return nil, err
	}

	if err := s.services.Boards.DeleteColumn(ctx, input.SpaceID, input.ColumnID); err != nil {
		return nil, err
	}
	return deleted(input.ColumnID), nil
}
