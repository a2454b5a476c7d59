package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/forgeapp/forge-server/internal/domain"
	domainerrors "github.com/forgeapp/forge-server/internal/errors"
	"github.com/forgeapp/forge-server/internal/id"
	"github.com/forgeapp/forge-server/internal/ordering"
	"github.com/forgeapp/forge-server/internal/sse"
	"github.com/forgeapp/forge-server/internal/store"
)

// CreateCardRequest creates a card. A nil Position puts it first.
type CreateCardRequest struct {
	ColumnID       string  `json:"columnId" validate:"required"`
	Title          string  `json:"title" validate:"max=500"`
	Description    string  `json:"description"`
	AssignedUserID *string `json:"assignedUserId"`
	DueDate        *string `json:"dueDate"`
	Position       *int    `json:"position"`
}

// UpdateCardRequest changes a card. Nil fields are left alone. ColumnID and
// Position move the card.
type UpdateCardRequest struct {
	Title          *string
	Description    *string
	AssignedUserID Field[string]
	DueDate        Field[string]
	ColumnID       *string
	Position       *int
}

// ListCards returns the space's cards, or one column's when columnID is set.
func (s *BoardService) ListCards(ctx context.Context, spaceID, columnID string) ([]*domain.Card, error) {
	if columnID != "" {
		if _, err := s.store.GetColumn(ctx, spaceID, columnID); err != nil {
			return nil, notFound(err, "column", columnID)
		}
	}

	cards, err := s.store.ListCards(ctx, spaceID, columnID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	if err := s.attachLinkedPages(ctx, cards); err != nil {
		return nil, err
	}
	if cards == nil {
		cards = []*domain.Card{}
	}
	return cards, nil
}

// CreateCard adds a card to a column at req.Position, first by default.
func (s *BoardService) CreateCard(ctx context.Context, spaceID string, req CreateCardRequest) (*domain.Card, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	title, err := requiredText("title", req.Title)
	if err != nil {
		return nil, err
	}

	column, err := s.store.GetColumn(ctx, spaceID, req.ColumnID)
	if err != nil {
		return nil, notFound(err, "column", req.ColumnID)
	}

	entity, err := newEntity(id.PrefixCard, now())
	if err != nil {
		return nil, err
	}
	index := 0
	if req.Position != nil {
		index = max(*req.Position, 0)
	}
	card := &domain.Card{
		Entity:         entity,
		SpaceID:        spaceID,
		BoardID:        column.BoardID,
		ColumnID:       column.ID,
		Title:          title,
		Description:    req.Description,
		AssignedUserID: optionalText(req.AssignedUserID),
		DueDate:        domain.NormalizeDueDate(req.DueDate),
		Position:       index,
	}

	var res ordering.Result
	err = s.cards.Run(ctx, []string{column.ID}, func(ctx context.Context, tx store.CardTx) error {
		if err := tx.InsertCard(ctx, card); err != nil {
			return err
		}
		var err error
		res, err = ordering.Place(ctx, tx, column.ID, &card.ID, &index, s.cards.Now())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create card: %w", err)
	}
	card.Position = positionIn(res, card.ID)

	s.search.syncCards(card)
	s.sseManager.Emit(sse.NewCardEvent(sse.EventCardCreated, card))
	s.sseManager.Emit(sse.NewReorderedEvent(spaceID, "cards", res))

	s.logger.Debug("card created", "card_id", card.ID, "column_id", column.ID, "position", card.Position)
	return card, nil
}

// GetCard returns a card with its linked pages.
func (s *BoardService) GetCard(ctx context.Context, spaceID, cardID string) (*domain.Card, error) {
	card, err := s.store.GetCard(ctx, spaceID, cardID)
	if err != nil {
		return nil, notFound(err, "card", cardID)
	}
	if err := s.attachLinkedPages(ctx, []*domain.Card{card}); err != nil {
		return nil, err
	}
	return card, nil
}

// UpdateCard applies req to a card. When the column changes or a position
// is given the card is moved, following MoveCard.
func (s *BoardService) UpdateCard(ctx context.Context, spaceID, cardID string, req UpdateCardRequest) (*domain.Card, error) {
	card, err := s.store.GetCard(ctx, spaceID, cardID)
	if err != nil {
		return nil, notFound(err, "card", cardID)
	}

	changed := false
	if req.Title != nil {
		title, err := requiredText("title", *req.Title)
		if err != nil {
			return nil, err
		}
		card.Title = title
		changed = true
	}
	if req.Description != nil {
		card.Description = *req.Description
		changed = true
	}
	if req.AssignedUserID.Set {
		card.AssignedUserID = optionalText(req.AssignedUserID.Value)
		changed = true
	}
	if req.DueDate.Set {
		card.DueDate = domain.NormalizeDueDate(req.DueDate.Value)
		changed = true
	}

	if changed {
		card.Touch()
		if err := s.store.UpdateCard(ctx, card); err != nil {
			return nil, notFound(err, "card", cardID)
		}
	}

	if req.ColumnID != nil || req.Position != nil {
		return s.MoveCard(ctx, spaceID, cardID, req.ColumnID, req.Position)
	}

	if err := s.attachLinkedPages(ctx, []*domain.Card{card}); err != nil {
		return nil, err
	}
	s.search.syncCards(card)
	s.sseManager.Emit(sse.NewCardEvent(sse.EventCardUpdated, card))
	return card, nil
}

// MoveCard moves a card. The destination column is columnID, or the current
// one when nil or empty. The index is position when given, else the current
// position when the column is unchanged, else the end of the destination.
// A move to another column compacts the source in the same transaction.
func (s *BoardService) MoveCard(ctx context.Context, spaceID, cardID string, columnID *string, position *int) (*domain.Card, error) {
	for range maxMoveAttempts {
		card, err := s.store.GetCard(ctx, spaceID, cardID)
		if err != nil {
			return nil, notFound(err, "card", cardID)
		}

		nextColumn := card.ColumnID
		if columnID != nil && strings.TrimSpace(*columnID) != "" {
			nextColumn = strings.TrimSpace(*columnID)
		}
		columnChanged := nextColumn != card.ColumnID

		var nextIndex *int
		switch {
		case position != nil:
			nextIndex = position
		case !columnChanged:
			current := card.Position
			nextIndex = &current
		}

		if columnChanged {
			if _, err := s.store.GetColumn(ctx, spaceID, nextColumn); err != nil {
				return nil, notFound(err, "column", nextColumn)
			}
		}

		if !columnChanged && position == nil {
			return s.GetCard(ctx, spaceID, cardID)
		}

		res, err := s.cards.Move(ctx, card.ID, card.ColumnID, nextColumn, nextIndex)
		if errors.Is(err, ordering.ErrNotInContainer) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("move card: %w", err)
		}

		moved, err := s.GetCard(ctx, spaceID, cardID)
		if err != nil {
			return nil, err
		}

		s.search.syncCards(moved)
		s.sseManager.Emit(sse.NewCardEvent(sse.EventCardUpdated, moved))
		s.sseManager.Emit(sse.NewReorderedEvent(spaceID, "cards", res))
		return moved, nil
	}
	return nil, domainerrors.Conflictf("card %s changed while moving, try again", cardID)
}

// DeleteCard deletes a card and compacts its column.
func (s *BoardService) DeleteCard(ctx context.Context, spaceID, cardID string) error {
	for range maxMoveAttempts {
		card, err := s.store.GetCard(ctx, spaceID, cardID)
		if err != nil {
			return notFound(err, "card", cardID)
		}

		res, err := s.cards.Remove(ctx, card.ColumnID, card.ID)
		if errors.Is(err, ordering.ErrNotInContainer) {
			continue
		}
		if err != nil {
			return fmt.Errorf("delete card: %w", err)
		}

		s.search.drop(card.ID)
		s.sseManager.Emit(sse.NewDeletedEvent(spaceID, sse.EventCardDeleted, card.ID))
		s.sseManager.Emit(sse.NewReorderedEvent(spaceID, "cards", res))
		return nil
	}
	return domainerrors.Conflictf("card %s changed while deleting, try again", cardID)
}

func (s *BoardService) attachLinkedPages(ctx context.Context, cards []*domain.Card) error {
	if len(cards) == 0 {
		return nil
	}
	links, err := s.store.LinkedPages(ctx, cardIDs(cards))
	if err != nil {
		return fmt.Errorf("linked pages: %w", err)
	}
	for _, c := range cards {
		c.LinkedPages = links[c.ID]
	}
	return nil
}

// optionalText trims v and returns nil when nothing is left.
func optionalText(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
