// Package store defines the persistence interfaces of the Forge server.
//
// The relational data lives behind Store (implemented by store/sqlite). Small
// per-session state that expires on its own lives in the badger-backed KV.
package store

import (
	"context"
	"time"

	"github.com/forgeapp/forge-server/internal/domain"
	"github.com/forgeapp/forge-server/internal/ordering"
)

// Store defines every relational persistence operation. Lookups that take a
// spaceID return ErrNotFound for rows of another space.
type Store interface {
	Close() error
	// Ping checks that the database is reachable.
	Ping(ctx context.Context) error

	UserStore
	SpaceStore
	BoardStore
	CardStore
	CommentStore
	PageStore
	ShareTokenStore

	// InCardTx runs fn in a transaction positioned over cards in columns.
	InCardTx(ctx context.Context, fn func(ctx context.Context, tx CardTx) error) error
	// InColumnTx runs fn in a transaction positioned over columns in boards.
	InColumnTx(ctx context.Context, fn func(ctx context.Context, tx ColumnTx) error) error
}

// UserStore persists registered accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// SpaceStore persists spaces and their members.
type SpaceStore interface {
	// CreateSpace inserts the space and its owner membership in one transaction.
	CreateSpace(ctx context.Context, space *domain.Space, owner *domain.Member) error
	GetSpace(ctx context.Context, id string) (*domain.Space, error)
	ListSpacesForUser(ctx context.Context, userID string) ([]*domain.Space, error)
	GetMember(ctx context.Context, spaceID, userID string) (*domain.Member, error)
	GetMemberByEmail(ctx context.Context, spaceID, email string) (*domain.Member, error)
	ListMembers(ctx context.Context, spaceID string) ([]domain.Member, error)
	// UpsertMember inserts the member or, when the email is already in the
	// space, updates its role and name. It returns the stored row.
	UpsertMember(ctx context.Context, member *domain.Member) (*domain.Member, error)
	DeleteMember(ctx context.Context, spaceID, userID string) error
}

// BoardStore persists boards and columns.
type BoardStore interface {
	// CreateBoard inserts the board and its initial columns in one transaction.
	CreateBoard(ctx context.Context, board *domain.Board, columns []*domain.Column) error
	GetBoard(ctx context.Context, spaceID, boardID string) (*domain.Board, error)
	// ListBoards returns the space's boards, most recently accessed first.
	ListBoards(ctx context.Context, spaceID string) ([]*domain.Board, error)
	UpdateBoard(ctx context.Context, board *domain.Board) error
	TouchBoardAccess(ctx context.Context, boardID string, at time.Time) error
	// DeleteBoard removes the board with its columns, cards and comments.
	DeleteBoard(ctx context.Context, spaceID, boardID string) error

	GetColumn(ctx context.Context, spaceID, columnID string) (*domain.Column, error)
	ListColumns(ctx context.Context, boardID string) ([]*domain.Column, error)
	UpdateColumn(ctx context.Context, column *domain.Column) error
}

// CardStore persists cards. Inserts, moves and deletes go through CardTx.
type CardStore interface {
	GetCard(ctx context.Context, spaceID, cardID string) (*domain.Card, error)
	// ListCards returns the space's cards, or one column's when columnID is
	// set, in column then position order.
	ListCards(ctx context.Context, spaceID, columnID string) ([]*domain.Card, error)
	ListBoardCards(ctx context.Context, boardID string) ([]*domain.Card, error)
	ListAllCards(ctx context.Context) ([]*domain.Card, error)
	// UpdateCard writes the card's content fields. Column and position are
	// owned by the ordering engine and left untouched.
	UpdateCard(ctx context.Context, card *domain.Card) error
	// LinkedPages returns the pages linked to each card id.
	LinkedPages(ctx context.Context, cardIDs []string) (map[string][]domain.PageLink, error)
}

// CommentStore persists card comments.
type CommentStore interface {
	CreateComment(ctx context.Context, comment *domain.Comment) error
	GetComment(ctx context.Context, spaceID, commentID string) (*domain.Comment, error)
	// ListComments returns a card's comments, oldest first.
	ListComments(ctx context.Context, cardID string) ([]*domain.Comment, error)
	DeleteComment(ctx context.Context, commentID string) error
}

// PageStore persists pages and their version history.
type PageStore interface {
	CreatePage(ctx context.Context, page *domain.Page) error
	GetPage(ctx context.Context, spaceID, pageID string) (*domain.Page, error)
	// ListPages returns the space's pages, most recently updated first.
	ListPages(ctx context.Context, spaceID string) ([]*domain.Page, error)
	ListAllPages(ctx context.Context) ([]*domain.Page, error)
	// UpdatePage writes the page and, when snapshot is set, records it and
	// prunes the page's history to domain.MaxPageVersions, in one transaction.
	UpdatePage(ctx context.Context, page *domain.Page, snapshot *domain.PageVersion) error
	// ListPageVersions returns up to limit versions, newest first.
	ListPageVersions(ctx context.Context, pageID string, limit int) ([]domain.PageVersion, error)
	GetPageVersion(ctx context.Context, pageID, versionID string) (*domain.PageVersion, error)
	// DeletePage removes the page with its versions and share tokens.
	DeletePage(ctx context.Context, spaceID, pageID string) error
}

// ShareTokenStore persists page share tokens.
type ShareTokenStore interface {
	CreateShareToken(ctx context.Context, token *domain.ShareToken) error
	GetShareToken(ctx context.Context, spaceID, tokenID string) (*domain.ShareToken, error)
	// GetActiveShareToken returns the token row matching secret when it is
	// neither revoked nor expired at now, in a single read.
	GetActiveShareToken(ctx context.Context, secret string, now time.Time) (*domain.ShareToken, error)
	// ListShareTokens returns a page's tokens, newest first.
	ListShareTokens(ctx context.Context, pageID string) ([]*domain.ShareToken, error)
	RevokeShareToken(ctx context.Context, tokenID string, at time.Time) error
	TouchShareToken(ctx context.Context, tokenID string, at time.Time) error
}

// CardTx is a transaction over card positions.
type CardTx interface {
	ordering.UnitOfWork
	InsertCard(ctx context.Context, card *domain.Card) error
}

// ColumnTx is a transaction over column positions. Delete removes the
// column together with its cards.
type ColumnTx interface {
	ordering.UnitOfWork
	InsertColumn(ctx context.Context, column *domain.Column) error
}
