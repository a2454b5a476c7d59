package domain

// Comment is a note on a card. Comments list oldest first.
type Comment struct {
	Entity
	SpaceID      string `json:"spaceId"`
	CardID       string `json:"cardId"`
	AuthorUserID string `json:"authorUserId"`
	AuthorName   string `json:"authorName"`
	Content      string `json:"content"`
}
