// Package search provides full-text search over pages and cards using Bleve.
// Every document carries its space id and every query is scoped to one space.
package search

import (
	"github.com/forgeapp/forge-server/internal/domain"
	"github.com/forgeapp/forge-server/internal/markdown"
)

// DocType represents the type of document in the unified index.
type DocType string

// Document types for the search index.
const (
	DocTypePage DocType = "page"
	DocTypeCard DocType = "card"
)

// ParseDocType validates a document type filter.
func ParseDocType(s string) (DocType, bool) {
	switch DocType(s) {
	case DocTypePage, DocTypeCard:
		return DocType(s), true
	default:
		return "", false
	}
}

// SearchDocument is the unified document structure for the Bleve index.
// Pages and cards are indexed as SearchDocuments with type discrimination.
type SearchDocument struct {
	ID      string  `json:"id"`
	Type    DocType `json:"type"`
	SpaceID string  `json:"space_id"`

	// Title is the page or card title; Body is the markdown reduced to plain
	// text.
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`

	// Card location, empty for pages.
	BoardID  string `json:"board_id,omitempty"`
	ColumnID string `json:"column_id,omitempty"`

	UpdatedAt int64 `json:"updated_at"` // Unix millis
}

// ToMap converts the document to a map with the field names of the mapping.
func (d *SearchDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":         d.ID,
		"type":       string(d.Type),
		"space_id":   d.SpaceID,
		"title":      d.Title,
		"updated_at": d.UpdatedAt,
	}
	if d.Body != "" {
		m["body"] = d.Body
	}
	if d.BoardID != "" {
		m["board_id"] = d.BoardID
	}
	if d.ColumnID != "" {
		m["column_id"] = d.ColumnID
	}
	return m
}

// PageToSearchDocument converts a page to a SearchDocument.
func PageToSearchDocument(p *domain.Page) *SearchDocument {
	return &SearchDocument{
		ID:        p.ID,
		Type:      DocTypePage,
		SpaceID:   p.SpaceID,
		Title:     p.Title,
		Body:      markdown.PlainText(p.Content),
		UpdatedAt: p.UpdatedAt.UnixMilli(),
	}
}

// CardToSearchDocument converts a card to a SearchDocument.
func CardToSearchDocument(c *domain.Card) *SearchDocument {
	return &SearchDocument{
		ID:        c.ID,
		Type:      DocTypeCard,
		SpaceID:   c.SpaceID,
		Title:     c.Title,
		Body:      markdown.PlainText(c.Description),
		BoardID:   c.BoardID,
		ColumnID:  c.ColumnID,
		UpdatedAt: c.UpdatedAt.UnixMilli(),
	}
}
