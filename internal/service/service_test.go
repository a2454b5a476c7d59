package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/forgeapp/forge-server/internal/auth"
	"github.com/forgeapp/forge-server/internal/autosave"
	"github.com/forgeapp/forge-server/internal/domain"
	"github.com/forgeapp/forge-server/internal/mail"
	"github.com/forgeapp/forge-server/internal/search"
	"github.com/forgeapp/forge-server/internal/sse"
	"github.com/forgeapp/forge-server/internal/store"
	"github.com/forgeapp/forge-server/internal/store/sqlite"
)

// testEnv wires every service over a temporary database, an in-memory KV
// and an in-memory search index.
type testEnv struct {
	store    *sqlite.Store
	kv       *store.KV
	sse      *sse.Manager
	search   *SearchService
	boards   *BoardService
	pages    *PageService
	shares   *ShareService
	spaces   *SpaceService
	auth     *AuthService
	outbox   *captureSender
	logger   *slog.Logger
	tokenKey string
}

type captureSender struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (c *captureSender) Send(_ context.Context, msg mail.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *captureSender) messages() []mail.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]mail.Message(nil), c.sent...)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	st, err := sqlite.Open(filepath.Join(t.TempDir(), "forge.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	kv, err := store.OpenKV("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	index, err := search.NewSearchIndex(search.Options{Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	tokenKey := strings.Repeat("ab", 32)
	tokens, err := auth.NewTokenService(tokenKey, 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)

	env := &testEnv{
		store:    st,
		kv:       kv,
		sse:      sse.NewManager(logger),
		outbox:   &captureSender{},
		logger:   logger,
		tokenKey: tokenKey,
	}
	env.search = NewSearchService(index, st, logger)
	env.boards = NewBoardService(st, env.sse, env.search, logger)
	env.pages = NewPageService(st, env.sse, env.search, autosave.NewTracker(kv, 0, logger), logger)
	env.shares = NewShareService(st, env.pages, 0, logger)
	env.spaces = NewSpaceService(st, env.sse, env.boards, env.pages,
		mail.NewMailer(env.outbox, "http://forge.test", logger), logger)
	env.auth = NewAuthService(st, tokens, auth.NewSessionStore(kv), logger)
	return env
}

// startEvents runs the SSE manager for the rest of the test.
func (e *testEnv) startEvents(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.sse.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func testUser(name, email string) *domain.User {
	return &domain.User{
		Entity: domain.Entity{ID: "user-" + strings.ToLower(name)},
		Email:  email,
		Name:   name,
	}
}

// newSpace creates a space owned by a new user and returns the owner's
// membership.
func newSpace(t *testing.T, env *testEnv, name string) (*domain.Space, *domain.Member) {
	t.Helper()
	owner := testUser(name, strings.ToLower(name)+"@example.com")
	space, err := env.spaces.CreateSpace(context.Background(), owner, CreateSpaceRequest{Name: name + "'s space"})
	require.NoError(t, err)
	require.Len(t, space.Members, 1)
	return space, &space.Members[0]
}

// newBoard creates a board with columns of the given titles.
func newBoard(t *testing.T, env *testEnv, spaceID string, columns ...string) (*domain.BoardDetail, []*domain.Column) {
	t.Helper()
	ctx := context.Background()
	board, err := env.boards.CreateBoard(ctx, spaceID, CreateBoardRequest{Title: "Board"})
	require.NoError(t, err)

	out := make([]*domain.Column, 0, len(columns))
	for _, title := range columns {
		col, err := env.boards.CreateColumn(ctx, spaceID, board.ID, CreateColumnRequest{Title: title})
		require.NoError(t, err)
		out = append(out, col)
	}
	return board, out
}

// newCards appends cards with the given titles to a column, in order, and
// returns their ids.
func newCards(t *testing.T, env *testEnv, spaceID, columnID string, titles ...string) []string {
	t.Helper()
	ids := make([]string, 0, len(titles))
	for i, title := range titles {
		pos := i
		card, err := env.boards.CreateCard(context.Background(), spaceID, CreateCardRequest{
			ColumnID: columnID,
			Title:    title,
			Position: &pos,
		})
		require.NoError(t, err)
		ids = append(ids, card.ID)
	}
	return ids
}

// cardOrder returns a column's card titles by position and fails unless
// positions are exactly 0..n-1.
func cardOrder(t *testing.T, env *testEnv, spaceID, columnID string) []string {
	t.Helper()
	cards, err := env.boards.ListCards(context.Background(), spaceID, columnID)
	require.NoError(t, err)

	titles := make([]string, 0, len(cards))
	for i, c := range cards {
		require.Equal(t, i, c.Position, "column %s is not dense", columnID)
		titles = append(titles, c.Title)
	}
	return titles
}

func ptr[T any](v T) *T { return &v }
