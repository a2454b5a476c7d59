package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/forgeapp/forge-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodGet,
		Path:        "/api/v1/spaces/{spaceId}/search",
		Summary:     "Search space",
		Description: "Full-text search across the pages and cards of a space",
		Tags:        []string{"Search"},
		Security:    bearerAuth,
	}, s.handleSearch)
}

// SearchInput contains parameters for searching a space.
type SearchInput struct {
	SpaceID string `path:"spaceId" doc:"Space ID"`
	Query   string `query:"q" maxLength:"200" doc:"Search query"`
	Types   string `query:"types" maxLength:"100" doc:"Comma-separated types to search (page,card). Omit for all."`
	BoardID string `query:"boardId" doc:"Only cards of this board"`
	Limit   int    `query:"limit" minimum:"0" maximum:"100" doc:"Max results (default 20)"`
	Offset  int    `query:"offset" minimum:"0" doc:"Pagination offset (default 0)"`
}

// SearchOutput wraps the search result for Huma.
type SearchOutput struct {
	Body *search.SearchResult
}

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	if _, err := s.RequireMember(ctx, input.SpaceID); err != nil {
		return nil, err
	}

	var types []search.DocType
	if input.Types != "" {
		for _, raw := range strings.Split(input.Types, ",") {
			t, ok := search.ParseDocType(strings.TrimSpace(raw))
			if !ok {
				return nil, huma.Error400BadRequest("unknown search type: " + raw)
			}
			types = append(types, t)
		}
	}

	result, err := s.services.Search.Search(ctx, search.SearchParams{
		SpaceID: input.SpaceID,
		Query:   strings.TrimSpace(input.Query),
		Types:   types,
		BoardID: input.BoardID,
		Limit:   input.Limit,
		Offset:  input.Offset,
	})
	if err != nil {
		return nil, err
	}
	return &SearchOutput{Body: result}, nil
}
