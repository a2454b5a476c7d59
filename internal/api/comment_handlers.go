package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/forgeapp/forge-server/internal/domain"
)

func (s *Server) registerCommentRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listComments",
		Method:      http.MethodGet,
		Path:        "/api/v1/spaces/{spaceId}/cards/{cardId}/comments",
		Summary:     "List comments",
		Description: "Returns a card's comments, oldest first",
		Tags:        []string{"Comments"},
		Security:    bearerAuth,
	}, s.handleListComments)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addComment",
		Method:        http.MethodPost,
		Path:          "/api/v1/spaces/{spaceId}/cards/{cardId}/comments",
		Summary:       "Add comment",
		Tags:          []string{"Comments"},
		Security:      bearerAuth,
		DefaultStatus: http.StatusCreated,
	}, s.handleAddComment)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteComment",
		Method:      http.MethodDelete,
		Path:        "/api/v1/spaces/{spaceId}/comments/{commentId}",
		Summary:     "Delete comment",
		Description: "Deletes a comment. Only its author may.",
		Tags:        []string{"Comments"},
		Security:    bearerAuth,
	}, s.handleDeleteComment)
}

// CommentsResponse lists comments.
type CommentsResponse struct {
	Comments []domain.Comment `json:"comments" doc:"Comments, oldest first"`
}

// CommentsOutput wraps a comment list for Huma.
type CommentsOutput struct {
	Body CommentsResponse
}

// AddCommentInput wraps the add comment request for Huma.
type AddCommentInput struct {
	SpaceID string `path:"spaceId" doc:"Space ID"`
	CardID  string `path:"cardId" doc:"Card ID"`
	Body    struct {
		Content string `json:"content" maxLength:"10000" doc:"Comment text"`
	}
}

// CommentOutput wraps a comment for Huma.
type CommentOutput struct {
	Body *domain.Comment
}

// CommentInput addresses a comment.
type CommentInput struct {
	SpaceID   string `path:"spaceId" doc:"Space ID"`
	CommentID string `path:"commentId" doc:"Comment ID"`
}

func (s *Server) handleListComments(ctx context.Context, input *CardInput) (*CommentsOutput, error) {
	if _, err := s.RequireMember(ctx, input.SpaceID); err != nil {
		return nil, err
	}

	comments, err := s.services.Boards.ListComments(ctx, input.SpaceID, input.CardID)
	if err != nil {
		return nil, err
	}
	return &CommentsOutput{Body: CommentsResponse{Comments: values(comments)}}, nil
}

func (s *Server) handleAddComment(ctx context.Context, input *AddCommentInput) (*CommentOutput, error) {
	member, err := s.RequireMember(ctx, input.SpaceID)
	if err != nil {
		return nil, err
	}

	comment, err := s.services.Boards.AddComment(ctx, member, input.CardID, input.Body.Content)
	if err != nil {
		return nil, err
	}
	return &CommentOutput{Body: comment}, nil
}

func (s *Server) handleDeleteComment(ctx context.Context, input *CommentInput) (*DeletedOutput, error) {
	member, err := s.RequireMember(ctx, input.SpaceID)
	if err != nil {
		return nil, err
	}

	if err := s.services.Boards.DeleteComment(ctx, member, input.CommentID); err != nil {
		return nil, err
	}
	return deleted(input.CommentID), nil
}
