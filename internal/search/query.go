package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// DefaultLimit and MaxLimit bound the number of hits per query.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// SearchParams configures a search query.
type SearchParams struct {
	SpaceID string    // Required; results never cross spaces
	Query   string    // User's search query
	Types   []DocType // Document types to include (empty = all)
	BoardID string    // Restrict cards to one board

	Limit  int
	Offset int
}

// SearchResult represents the search results.
type SearchResult struct {
	Query  string      `json:"query"`
	Total  uint64      `json:"total"`
	TookMs int64       `json:"tookMs"`
	Hits   []SearchHit `json:"hits"`
}

// SearchHit represents a single search result.
type SearchHit struct {
	ID         string            `json:"id"`
	Type       DocType           `json:"type"`
	Score      float64           `json:"score"`
	Title      string            `json:"title"`
	BoardID    string            `json:"boardId,omitempty"`
	ColumnID   string            `json:"columnId,omitempty"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// Search executes a search query within one space.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	if params.SpaceID == "" {
		return nil, fmt.Errorf("search: space id is required")
	}
	if params.Limit <= 0 {
		params.Limit = DefaultLimit
	}
	params.Limit = min(params.Limit, MaxLimit)
	params.Offset = max(params.Offset, 0)

	s.mu.RLock()
	defer s.mu.RUnlock()

	searchRequest := bleve.NewSearchRequestOptions(buildSearchQuery(params), params.Limit, params.Offset, false)
	if params.Query == "" {
		searchRequest.SortBy([]string{"-updated_at"})
	} else {
		searchRequest.SortBy([]string{"-_score", "-updated_at"})
		searchRequest.Highlight = bleve.NewHighlight()
		searchRequest.Highlight.AddField("title")
		searchRequest.Highlight.AddField("body")
	}
	searchRequest.Fields = []string{"id", "type", "title", "board_id", "column_id"}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		searchHit := SearchHit{
			ID:    hit.ID,
			Score: hit.Score,
		}
		if t, ok := hit.Fields["type"].(string); ok {
			searchHit.Type = DocType(t)
		}
		if v, ok := hit.Fields["title"].(string); ok {
			searchHit.Title = v
		}
		if v, ok := hit.Fields["board_id"].(string); ok {
			searchHit.BoardID = v
		}
		if v, ok := hit.Fields["column_id"].(string); ok {
			searchHit.ColumnID = v
		}

		if len(hit.Fragments) > 0 {
			searchHit.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					searchHit.Highlights[field] = fragments[0]
				}
			}
		}

		result.Hits = append(result.Hits, searchHit)
	}

	return result, nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params SearchParams) query.Query {
	space := bleve.NewTermQuery(params.SpaceID)
	space.SetField("space_id")
	queries := []query.Query{space}

	if q := strings.TrimSpace(params.Query); q != "" {
		titleMatch := bleve.NewMatchQuery(q)
		titleMatch.SetField("title")
		titleMatch.SetBoost(3.0)

		bodyMatch := bleve.NewMatchQuery(q)
		bodyMatch.SetField("body")

		// Typo tolerance on titles.
		fuzzy := bleve.NewFuzzyQuery(strings.ToLower(q))
		fuzzy.SetFuzziness(1)
		fuzzy.SetField("title")
		fuzzy.SetBoost(0.8)

		textQueries := []query.Query{titleMatch, bodyMatch, fuzzy}

		// Prefix for search-as-you-type.
		if len(q) >= 2 && !strings.ContainsAny(q, " \t") {
			prefix := bleve.NewPrefixQuery(strings.ToLower(q))
			prefix.SetField("title")
			prefix.SetBoost(0.5)
			textQueries = append(textQueries, prefix)
		}

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	if len(params.Types) > 0 {
		typeQueries := make([]query.Query, len(params.Types))
		for i, t := range params.Types {
			tq := bleve.NewTermQuery(string(t))
			tq.SetField("type")
			typeQueries[i] = tq
		}
		queries = append(queries, bleve.NewDisjunctionQuery(typeQueries...))
	}

	if params.BoardID != "" {
		bq := bleve.NewTermQuery(params.BoardID)
		bq.SetField("board_id")
		queries = append(queries, bq)
	}

	return bleve.NewConjunctionQuery(queries...)
}
