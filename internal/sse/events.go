// Package sse implements Server-Sent Events for real-time board and page
// updates. Every event belongs to one space and is only delivered to clients
// subscribed to that space.
package sse

import (
	"time"

	"github.com/forgeapp/forge-server/internal/domain"
	"github.com/forgeapp/forge-server/internal/ordering"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	EventBoardCreated EventType = "board.created"
	EventBoardUpdated EventType = "board.updated"
	EventBoardDeleted EventType = "board.deleted"

	EventColumnCreated EventType = "column.created"
	EventColumnUpdated EventType = "column.updated"
	EventColumnDeleted EventType = "column.deleted"

	// EventCardsReordered carries the new order of every container an
	// ordering operation touched.
	EventCardsReordered EventType = "cards.reordered"

	EventCardCreated EventType = "card.created"
	EventCardUpdated EventType = "card.updated"
	EventCardDeleted EventType = "card.deleted"

	EventCommentCreated EventType = "comment.created"
	EventCommentDeleted EventType = "comment.deleted"

	EventPageCreated EventType = "page.created"
	EventPageUpdated EventType = "page.updated"
	EventPageDeleted EventType = "page.deleted"

	EventMemberUpdated EventType = "member.updated"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// SpaceID scopes delivery. Empty only for heartbeats.
	SpaceID string `json:"spaceId,omitempty"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"serverTime"`
}

// DeletedEventData is the payload of every *.deleted event.
type DeletedEventData struct {
	ID        string    `json:"id"`
	DeletedAt time.Time `json:"deletedAt"`
}

// ReorderedEventData lists the containers rewritten by an ordering
// operation, destination first.
type ReorderedEventData struct {
	Kind       string               `json:"kind"` // "cards" or "columns"
	Containers []ordering.Container `json:"containers"`
}

func newEvent(spaceID string, t EventType, data any) Event {
	return Event{
		Type:      t,
		SpaceID:   spaceID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	now := time.Now().UTC()
	return Event{
		Type:      EventHeartbeat,
		Data:      HeartbeatEventData{ServerTime: now},
		Timestamp: now,
	}
}

// NewBoardEvent creates a board.created or board.updated event.
func NewBoardEvent(t EventType, board *domain.Board) Event {
	return newEvent(board.SpaceID, t, board)
}

// NewColumnEvent creates a column.created or column.updated event.
func NewColumnEvent(t EventType, column *domain.Column) Event {
	return newEvent(column.SpaceID, t, column)
}

// NewCardEvent creates a card.created or card.updated event.
func NewCardEvent(t EventType, card *domain.Card) Event {
	return newEvent(card.SpaceID, t, card)
}

// NewCommentEvent creates a comment.created event.
func NewCommentEvent(comment *domain.Comment) Event {
	return newEvent(comment.SpaceID, EventCommentCreated, comment)
}

// NewPageEvent creates a page.created or page.updated event.
func NewPageEvent(t EventType, page *domain.Page) Event {
	return newEvent(page.SpaceID, t, page)
}

// NewMemberEvent creates a member.updated event.
func NewMemberEvent(member *domain.Member) Event {
	return newEvent(member.SpaceID, EventMemberUpdated, member)
}

// NewDeletedEvent creates a *.deleted event for id.
func NewDeletedEvent(spaceID string, t EventType, id string) Event {
	return newEvent(spaceID, t, DeletedEventData{ID: id, DeletedAt: time.Now().UTC()})
}

// NewReorderedEvent creates a cards.reordered event. Results with no writes
// still announce the final order.
func NewReorderedEvent(spaceID, kind string, res ordering.Result) Event {
	return newEvent(spaceID, EventCardsReordered, ReorderedEventData{Kind: kind, Containers: res.Containers})
}
