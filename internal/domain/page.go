package domain

import "time"

// MaxPageVersions is how many snapshots are kept per page.
const MaxPageVersions = 20

// Page is a markdown document. Content is the canonical markdown; the
// editor state is opaque to the server.
type Page struct {
	Entity
	SpaceID         string  `json:"spaceId"`
	Title           string  `json:"title"`
	Content         string  `json:"content"`
	EditorStateJSON *string `json:"editorStateJson"`
	BoardID         *string `json:"boardId"`
	CardID          *string `json:"cardId"`
}

// PageVersion is a snapshot of a page's previous content, taken when an
// update changes the content or the editor state.
type PageVersion struct {
	ID              string    `json:"id"`
	PageID          string    `json:"pageId"`
	SpaceID         string    `json:"spaceId"`
	Content         string    `json:"content"`
	EditorStateJSON *string   `json:"editorStateJson"`
	CreatedAt       time.Time `json:"createdAt"`
}

// PageWithVersions is a page and its most recent versions, newest first.
type PageWithVersions struct {
	Page
	Versions []PageVersion `json:"versions"`
}
