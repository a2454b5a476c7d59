package search

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/blevesearch/bleve/v2"
)

const (
	indexDirName    = "search.bleve"
	versionFileName = "search.version"

	// mappingVersion changes whenever buildIndexMapping does. An index
	// written under another version is dropped and rebuilt on open.
	mappingVersion = "forge-1"

	batchSize = 500
)

// SearchIndex is the full-text index of a Forge instance's pages and cards.
// All methods are safe for concurrent use; Rebuild excludes everything else.
type SearchIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string // empty for in-memory indexes
	logger *slog.Logger
}

// Options configures the search index.
type Options struct {
	DataPath string // directory holding the index; empty keeps it in memory
	Logger   *slog.Logger
}

// NewSearchIndex opens the index under opts.DataPath, creating it when it is
// missing, unreadable or built with an older mapping.
func NewSearchIndex(opts Options) (*SearchIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if opts.DataPath == "" {
		index, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create memory index: %w", err)
		}
		return &SearchIndex{index: index, logger: logger}, nil
	}

	path := filepath.Join(opts.DataPath, indexDirName)
	index, err := openOnDisk(path, filepath.Join(opts.DataPath, versionFileName), logger)
	if err != nil {
		return nil, err
	}
	return &SearchIndex{index: index, path: path, logger: logger}, nil
}

func openOnDisk(path, versionPath string, logger *slog.Logger) (bleve.Index, error) {
	if _, err := os.Stat(path); err == nil {
		version, _ := os.ReadFile(versionPath)
		if string(version) == mappingVersion {
			index, err := bleve.Open(path)
			if err == nil {
				logger.Info("opened search index", "path", path)
				return index, nil
			}
			logger.Warn("search index unreadable, recreating", "path", path, "error", err)
		} else {
			logger.Info("search mapping changed, recreating index",
				"old_version", string(version),
				"new_version", mappingVersion,
			)
		}
		if err := os.RemoveAll(path); err != nil {
			return nil, fmt.Errorf("remove old index: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat index: %w", err)
	}

	index, err := bleve.New(path, buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
		logger.Warn("failed to write search version file", "error", err)
	}
	logger.Info("created search index", "path", path, "mapping_version", mappingVersion)
	return index, nil
}

// Close releases the index.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexDocument adds or replaces doc.
func (s *SearchIndex) IndexDocument(doc *SearchDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Index(doc.ID, doc.ToMap())
}

// IndexDocuments adds or replaces docs, committing them in batches.
func (s *SearchIndex) IndexDocuments(docs []*SearchDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for chunk := range slices.Chunk(docs, batchSize) {
		batch := s.index.NewBatch()
		for _, doc := range chunk {
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch of %d: %w", len(chunk), err)
		}
	}
	return nil
}

// DeleteDocument removes one document. Missing ids are ignored.
func (s *SearchIndex) DeleteDocument(id string) error {
	return s.DeleteDocuments([]string{id})
}

// DeleteDocuments removes documents. Missing ids are ignored.
func (s *SearchIndex) DeleteDocuments(ids []string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batch := s.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return s.index.Batch(batch)
}

// DocumentCount returns the number of indexed documents.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild replaces the index with an empty one using the current mapping.
// It blocks every other index operation while it runs.
func (s *SearchIndex) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}

	var (
		index bleve.Index
		err   error
	)
	if s.path == "" {
		index, err = bleve.NewMemOnly(buildIndexMapping())
	} else {
		if err = os.RemoveAll(s.path); err != nil {
			return fmt.Errorf("remove index: %w", err)
		}
		index, err = bleve.New(s.path, buildIndexMapping())
	}
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	s.index = index
	s.logger.Info("search index rebuilt", "path", s.path)
	return nil
}
