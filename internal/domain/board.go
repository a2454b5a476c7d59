package domain

import (
	"regexp"
	"strings"
	"time"
)

// Board is a Kanban board: an ordered set of columns.
type Board struct {
	Entity
	SpaceID        string     `json:"spaceId"`
	Title          string     `json:"title"`
	LastAccessedAt *time.Time `json:"lastAccessedAt,omitempty"`
}

// Column holds cards. Position is dense within its board.
type Column struct {
	Entity
	SpaceID  string `json:"spaceId"`
	BoardID  string `json:"boardId"`
	Title    string `json:"title"`
	Position int    `json:"position"`
}

// Card is a unit of work. Position is dense within its column.
type Card struct {
	Entity
	SpaceID        string     `json:"spaceId"`
	BoardID        string     `json:"boardId"`
	ColumnID       string     `json:"columnId"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	AssignedUserID *string    `json:"assignedUserId"`
	DueDate        *string    `json:"dueDate"`
	Position       int        `json:"position"`
	LinkedPages    []PageLink `json:"linkedPages,omitempty"`
}

// PageLink is the summary of a page linked to a card.
type PageLink struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ColumnWithCards is a column and its cards in position order.
type ColumnWithCards struct {
	Column
	Cards []Card `json:"cards"`
}

// BoardDetail is a board with its columns and cards, all in position order.
type BoardDetail struct {
	Board
	Columns []ColumnWithCards `json:"columns"`
}

// DefaultColumnTitles are the columns a new board gets when asked for them.
var DefaultColumnTitles = []string{"To Do", "In Progress", "Done"}

var dueDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// NormalizeDueDate returns the trimmed date when it has the YYYY-MM-DD shape,
// and nil for anything else. Malformed dates are dropped, not rejected.
func NormalizeDueDate(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if !dueDatePattern.MatchString(v) {
		return nil
	}
	return &v
}
