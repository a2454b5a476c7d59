// Package main seeds a Forge data directory with a demo account.
//
// It registers the demo user (or logs in when it already exists), bootstraps
// the user's personal space and, for a fresh account, adds a roadmap board
// with a few cards and a linked planning page.
//
// Usage:
//
//	go run ./cmd/seed --data-path ~/Forge/data
//	SEED_EMAIL=me@example.com SEED_PASSWORD=secret123 go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/samber/do/v2"

	"github.com/forgeapp/forge-server/internal/di"
	domainerrors "github.com/forgeapp/forge-server/internal/errors"
	"github.com/forgeapp/forge-server/internal/service"
)

var roadmapCards = []struct {
	column int
	title  string
	body   string
}{
	{0, "Write release notes", "Summarize the changes since the last release."},
	{0, "Triage new issues", ""},
	{1, "Migrate CI runners", "Move the build to the new runner pool."},
	{2, "Set up the team space", "Invite everyone and create the first board."},
}

const planningPage = `# Q3 planning

- [x] Collect proposals
- [ ] Agree on priorities
- [ ] Share the roadmap

| Area | Owner |
| --- | --- |
| Backend | Alice |
| Web | Bob |
`

func main() {
	email := envOr("SEED_EMAIL", "demo@forge.local")
	password := envOr("SEED_PASSWORD", "forge-demo-password")
	name := envOr("SEED_NAME", "Demo")

	injector := di.NewContainer()
	defer func() {
		if err := injector.Shutdown(); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	authService := do.MustInvoke[*service.AuthService](injector)
	spaceService := do.MustInvoke[*service.SpaceService](injector)
	boardService := do.MustInvoke[*service.BoardService](injector)
	pageService := do.MustInvoke[*service.PageService](injector)

	ctx := context.Background()

	fresh := true
	resp, err := authService.Register(ctx, service.RegisterRequest{Email: email, Password: password, Name: name})
	if errors.Is(err, domainerrors.ErrAlreadyExists) {
		fresh = false
		resp, err = authService.Login(ctx, service.LoginRequest{Email: email, Password: password})
	}
	if err != nil {
		log.Fatalf("Failed to sign in %s: %v", email, err)
	}

	spaces, err := spaceService.Bootstrap(ctx, resp.User)
	if err != nil {
		log.Fatalf("Failed to bootstrap spaces: %v", err)
	}
	if len(spaces) == 0 {
		log.Fatal("Bootstrap returned no spaces")
	}
	space := spaces[0]
	fmt.Printf("User %s (%s) has %d space(s); using %q\n", resp.User.Email, resp.User.ID, len(spaces), space.Name)

	if !fresh {
		fmt.Println("Account already existed, skipping demo content")
		return
	}

	board, err := boardService.CreateBoard(ctx, space.ID, service.CreateBoardRequest{
		Title:          "Roadmap",
		DefaultColumns: true,
	})
	if err != nil {
		log.Fatalf("Failed to create board: %v", err)
	}

	for _, c := range roadmapCards {
		if _, err := boardService.CreateCard(ctx, space.ID, service.CreateCardRequest{
			ColumnID:    board.Columns[c.column].ID,
			Title:       c.title,
			Description: c.body,
		}); err != nil {
			log.Fatalf("Failed to create card %q: %v", c.title, err)
		}
	}

	if _, err := pageService.CreatePage(ctx, space.ID, service.CreatePageRequest{
		Title:   "Q3 planning",
		Content: planningPage,
		BoardID: &board.ID,
	}); err != nil {
		log.Fatalf("Failed to create page: %v", err)
	}

	fmt.Printf("Seeded board %q with %d cards and a planning page\n", board.Title, len(roadmapCards))
	fmt.Printf("Access token: %s\n", resp.AccessToken)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
