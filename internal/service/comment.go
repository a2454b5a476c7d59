package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/forgeapp/forge-server/internal/domain"
	domainerrors "github.com/forgeapp/forge-server/internal/errors"
	"github.com/forgeapp/forge-server/internal/id"
	"github.com/forgeapp/forge-server/internal/identity"
	"github.com/forgeapp/forge-server/internal/sse"
)

// ListComments returns a card's comments, oldest first.
func (s *BoardService) ListComments(ctx context.Context, spaceID, cardID string) ([]*domain.Comment, error) {
	if _, err := s.store.GetCard(ctx, spaceID, cardID); err != nil {
		return nil, notFound(err, "card", cardID)
	}
	comments, err := s.store.ListComments(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	if comments == nil {
		comments = []*domain.Comment{}
	}
	return comments, nil
}

// AddComment adds a comment by author to a card. The author name is the
// member's name, or one derived from the member's email.
func (s *BoardService) AddComment(ctx context.Context, author *domain.Member, cardID, content string) (*domain.Comment, error) {
	content, err := requiredText("content", content)
	if err != nil {
		return nil, err
	}
	card, err := s.store.GetCard(ctx, author.SpaceID, cardID)
	if err != nil {
		return nil, notFound(err, "card", cardID)
	}

	entity, err := newEntity(id.PrefixComment, now())
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(author.Name)
	if name == "" {
		name = identity.DisplayNameFromEmail(author.Email)
	}
	comment := &domain.Comment{
		Entity:       entity,
		SpaceID:      card.SpaceID,
		CardID:       card.ID,
		AuthorUserID: author.UserID,
		AuthorName:   name,
		Content:      content,
	}

	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	s.sseManager.Emit(sse.NewCommentEvent(comment))
	return comment, nil
}

// DeleteComment deletes a comment. Only its author may.
func (s *BoardService) DeleteComment(ctx context.Context, actor *domain.Member, commentID string) error {
	comment, err := s.store.GetComment(ctx, actor.SpaceID, commentID)
	if err != nil {
		return notFound(err, "comment", commentID)
	}
	if comment.AuthorUserID != actor.UserID {
		return domainerrors.Forbidden("only the author can delete a comment")
	}

	if err := s.store.DeleteComment(ctx, commentID); err != nil {
		return notFound(err, "comment", commentID)
	}

	s.sseManager.Emit(sse.NewDeletedEvent(comment.SpaceID, sse.EventCommentDeleted, commentID))
	return nil
}
