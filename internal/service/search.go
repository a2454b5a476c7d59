package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/forgeapp/forge-server/internal/domain"
	domainerrors "github.com/forgeapp/forge-server/internal/errors"
	"github.com/forgeapp/forge-server/internal/search"
	"github.com/forgeapp/forge-server/internal/store"
)

// SearchService bridges the search index with the data store. Other
// services keep it current through the best-effort sync helpers.
type SearchService struct {
	index  *search.SearchIndex
	store  store.Store
	logger *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(index *search.SearchIndex, store store.Store, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:  index,
		store:  store,
		logger: logger,
	}
}

// Search runs a query inside one space.
func (s *SearchService) Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	if params.SpaceID == "" {
		return nil, domainerrors.Validation("space is required")
	}
	return s.index.Search(ctx, params)
}

// IndexPage indexes a single page.
func (s *SearchService) IndexPage(page *domain.Page) error {
	if err := s.index.IndexDocument(search.PageToSearchDocument(page)); err != nil {
		return fmt.Errorf("index page %s: %w", page.ID, err)
	}
	return nil
}

// IndexCards indexes cards in one batch.
func (s *SearchService) IndexCards(cards []*domain.Card) error {
	if len(cards) == 0 {
		return nil
	}
	docs := make([]*search.SearchDocument, 0, len(cards))
	for _, c := range cards {
		docs = append(docs, search.CardToSearchDocument(c))
	}
	if err := s.index.IndexDocuments(docs); err != nil {
		return fmt.Errorf("index %d cards: %w", len(cards), err)
	}
	return nil
}

// Remove drops documents from the index.
func (s *SearchService) Remove(ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.index.DeleteDocuments(ids)
}

// DocumentCount returns the number of indexed documents.
func (s *SearchService) DocumentCount() (uint64, error) {
	return s.index.DocumentCount()
}

// EnsureIndexed rebuilds the index when it is empty, e.g. on first start or
// after a mapping change dropped it.
func (s *SearchService) EnsureIndexed(ctx context.Context) error {
	count, err := s.index.DocumentCount()
	if err != nil {
		return fmt.Errorf("count documents: %w", err)
	}
	if count > 0 {
		s.logger.Info("search index ready", "documents", count)
		return nil
	}
	return s.ReindexAll(ctx)
}

// ReindexAll rebuilds the index from every page and card.
func (s *SearchService) ReindexAll(ctx context.Context) error {
	s.logger.Info("starting full reindex")

	if err := s.index.Rebuild(); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}

	pages, err := s.store.ListAllPages(ctx)
	if err != nil {
		return fmt.Errorf("list pages: %w", err)
	}
	docs := make([]*search.SearchDocument, 0, len(pages))
	for _, p := range pages {
		docs = append(docs, search.PageToSearchDocument(p))
	}
	if len(docs) > 0 {
		if err := s.index.IndexDocuments(docs); err != nil {
			return fmt.Errorf("index pages: %w", err)
		}
	}
	s.logger.Info("indexed pages", "count", len(docs))

	cards, err := s.store.ListAllCards(ctx)
	if err != nil {
		return fmt.Errorf("list cards: %w", err)
	}
	if err := s.IndexCards(cards); err != nil {
		return err
	}
	s.logger.Info("indexed cards", "count", len(cards))

	return nil
}

// syncPage indexes page, logging failures.
func (s *SearchService) syncPage(page *domain.Page) {
	if err := s.IndexPage(page); err != nil {
		s.logger.Warn("failed to index page", "page_id", page.ID, "error", err)
	}
}

// syncCards indexes cards, logging failures.
func (s *SearchService) syncCards(cards ...*domain.Card) {
	if err := s.IndexCards(cards); err != nil {
		s.logger.Warn("failed to index cards", "count", len(cards), "error", err)
	}
}

// drop removes ids from the index, logging failures.
func (s *SearchService) drop(ids ...string) {
	if err := s.Remove(ids...); err != nil {
		s.logger.Warn("failed to remove documents from index", "count", len(ids), "error", err)
	}
}
