package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/forgeapp/forge-server/internal/autosave"
	"github.com/forgeapp/forge-server/internal/domain"
	domainerrors "github.com/forgeapp/forge-server/internal/errors"
	"github.com/forgeapp/forge-server/internal/id"
	"github.com/forgeapp/forge-server/internal/markdown"
	"github.com/forgeapp/forge-server/internal/sse"
	"github.com/forgeapp/forge-server/internal/store"
)

// PageService manages markdown pages, their version history and autosave.
type PageService struct {
	store      store.Store
	sseManager *sse.Manager
	search     *SearchService
	autosave   *autosave.Tracker
	logger     *slog.Logger
}

// NewPageService creates a new page service.
func NewPageService(st store.Store, sseManager *sse.Manager, search *SearchService, tracker *autosave.Tracker, logger *slog.Logger) *PageService {
	return &PageService{
		store:      st,
		sseManager: sseManager,
		search:     search,
		autosave:   tracker,
		logger:     logger,
	}
}

// CreatePageRequest creates a page, optionally linked to a board or card.
type CreatePageRequest struct {
	Title           string  `json:"title" validate:"max=300"`
	Content         string  `json:"content"`
	EditorStateJSON *string `json:"editorStateJson"`
	BoardID         *string `json:"boardId"`
	CardID          *string `json:"cardId"`
}

// UpdatePageRequest changes a page. Nil and unset fields are left alone.
type UpdatePageRequest struct {
	Title           *string
	Content         *string
	EditorStateJSON Field[string]
	BoardID         Field[string]
	CardID          Field[string]
}

// AutosaveRequest is one debounced save from an editing session. Sequence
// increases with every save the session sends.
type AutosaveRequest struct {
	SessionID       string  `json:"sessionId" validate:"required,max=128"`
	Sequence        int64   `json:"sequence" validate:"gte=0"`
	Content         string  `json:"content"`
	EditorStateJSON *string `json:"editorStateJson"`
}

// AutosaveResult reports what an autosave did.
type AutosaveResult struct {
	Outcome autosave.Outcome `json:"outcome"`
	Page    *domain.Page     `json:"page"`
}

// RenderedPage is a page's content rendered for display.
type RenderedPage struct {
	PageID    string `json:"pageId"`
	Title     string `json:"title"`
	HTML      string `json:"html"`
	PlainText string `json:"plainText"`
}

// ImportResult is pasted HTML converted to markdown. Page is set when the
// import was appended to a page.
type ImportResult struct {
	Markdown string       `json:"markdown"`
	HTML     string       `json:"html"`
	Page     *domain.Page `json:"page,omitempty"`
}

// ListPages returns the space's pages, most recently updated first.
func (s *PageService) ListPages(ctx context.Context, spaceID string) ([]*domain.Page, error) {
	pages, err := s.store.ListPages(ctx, spaceID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	if pages == nil {
		pages = []*domain.Page{}
	}
	return pages, nil
}

// CreatePage creates a page. Title and content are required.
func (s *PageService) CreatePage(ctx context.Context, spaceID string, req CreatePageRequest) (*domain.Page, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	title, err := requiredText("title", req.Title)
	if err != nil {
		return nil, err
	}
	if _, err := requiredText("content", req.Content); err != nil {
		return nil, err
	}

	boardID, cardID := optionalText(req.BoardID), optionalText(req.CardID)
	if err := s.checkLinks(ctx, spaceID, boardID, cardID); err != nil {
		return nil, err
	}

	entity, err := newEntity(id.PrefixPage, now())
	if err != nil {
		return nil, err
	}
	page := &domain.Page{
		Entity:          entity,
		SpaceID:         spaceID,
		Title:           title,
		Content:         req.Content,
		EditorStateJSON: req.EditorStateJSON,
		BoardID:         boardID,
		CardID:          cardID,
	}

	if err := s.store.CreatePage(ctx, page); err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	s.search.syncPage(page)
	s.sseManager.Emit(sse.NewPageEvent(sse.EventPageCreated, page))

	s.logger.Info("page created", "page_id", page.ID, "space_id", spaceID)
	return page, nil
}

// GetPage returns a page with its most recent versions, newest first.
func (s *PageService) GetPage(ctx context.Context, spaceID, pageID string) (*domain.PageWithVersions, error) {
	page, err := s.store.GetPage(ctx, spaceID, pageID)
	if err != nil {
		return nil, notFound(err, "page", pageID)
	}
	versions, err := s.store.ListPageVersions(ctx, page.ID, domain.MaxPageVersions)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return &domain.PageWithVersions{Page: *page, Versions: versions}, nil
}

// UpdatePage applies req. When the content or the editor state changes, the
// previous ones are kept as a version.
func (s *PageService) UpdatePage(ctx context.Context, spaceID, pageID string, req UpdatePageRequest) (*domain.Page, error) {
	page, err := s.store.GetPage(ctx, spaceID, pageID)
	if err != nil {
		return nil, notFound(err, "page", pageID)
	}

	next := *page
	if req.Title != nil {
		title, err := requiredText("title", *req.Title)
		if err != nil {
			return nil, err
		}
		next.Title = title
	}
	if req.Content != nil {
		next.Content = *req.Content
	}
	next.EditorStateJSON = req.EditorStateJSON.apply(page.EditorStateJSON)

	if req.BoardID.Set || req.CardID.Set {
		next.BoardID = optionalText(req.BoardID.apply(page.BoardID))
		next.CardID = optionalText(req.CardID.apply(page.CardID))
		if err := s.checkLinks(ctx, spaceID, next.BoardID, next.CardID); err != nil {
			return nil, err
		}
	}

	at := now()
	var snapshot *domain.PageVersion
	if next.Content != page.Content || !equalStringPtr(next.EditorStateJSON, page.EditorStateJSON) {
		versionID, err := id.Generate(id.PrefixPageVersion)
		if err != nil {
			return nil, fmt.Errorf("generate version id: %w", err)
		}
		snapshot = &domain.PageVersion{
			ID:              versionID,
			PageID:          page.ID,
			SpaceID:         page.SpaceID,
			Content:         page.Content,
			EditorStateJSON: page.EditorStateJSON,
			CreatedAt:       at,
		}
	}
	next.UpdatedAt = at

	if err := s.store.UpdatePage(ctx, &next, snapshot); err != nil {
		return nil, notFound(err, "page", pageID)
	}

	s.search.syncPage(&next)
	s.sseManager.Emit(sse.NewPageEvent(sse.EventPageUpdated, &next))
	return &next, nil
}

// DeletePage deletes a page with its versions and share tokens.
func (s *PageService) DeletePage(ctx context.Context, spaceID, pageID string) error {
	if err := s.store.DeletePage(ctx, spaceID, pageID); err != nil {
		return notFound(err, "page", pageID)
	}

	s.search.drop(pageID)
	s.sseManager.Emit(sse.NewDeletedEvent(spaceID, sse.EventPageDeleted, pageID))

	s.logger.Info("page deleted", "page_id", pageID, "space_id", spaceID)
	return nil
}

// RestoreVersion applies a version's content as a regular update, so the
// current content becomes a version itself.
func (s *PageService) RestoreVersion(ctx context.Context, spaceID, pageID, versionID string) (*domain.Page, error) {
	if _, err := s.store.GetPage(ctx, spaceID, pageID); err != nil {
		return nil, notFound(err, "page", pageID)
	}
	version, err := s.store.GetPageVersion(ctx, pageID, versionID)
	if err != nil {
		return nil, notFound(err, "version", versionID)
	}

	return s.UpdatePage(ctx, spaceID, pageID, UpdatePageRequest{
		Content:         &version.Content,
		EditorStateJSON: SetField(version.EditorStateJSON),
	})
}

// Autosave saves a session's debounced edit. Saves to one page run one at a
// time. A save equal to the page's stored state is skipped. A save whose
// sequence is not newer than one the session already sent is rejected as
// CONFLICT.
func (s *PageService) Autosave(ctx context.Context, spaceID, pageID string, req AutosaveRequest) (*AutosaveResult, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	unlock, err := s.autosave.Guard(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("lock page: %w", err)
	}
	defer unlock()

	page, err := s.store.GetPage(ctx, spaceID, pageID)
	if err != nil {
		return nil, notFound(err, "page", pageID)
	}

	save := autosave.Save{
		PageID:          page.ID,
		SessionID:       req.SessionID,
		Sequence:        req.Sequence,
		Content:         req.Content,
		EditorStateJSON: req.EditorStateJSON,
	}
	outcome, err := s.autosave.Begin(save, autosave.Signature(page.Content, page.EditorStateJSON))
	if err != nil {
		return nil, err
	}
	if outcome == autosave.OutcomeSkip {
		return &AutosaveResult{Outcome: outcome, Page: page}, nil
	}

	updated, err := s.UpdatePage(ctx, spaceID, pageID, UpdatePageRequest{
		Content:         &req.Content,
		EditorStateJSON: SetField(req.EditorStateJSON),
	})
	if err != nil {
		return nil, err
	}

	if err := s.autosave.Commit(save, updated.UpdatedAt); err != nil {
		s.logger.Warn("failed to record autosave", "page_id", pageID, "session_id", req.SessionID, "error", err)
	}
	return &AutosaveResult{Outcome: outcome, Page: updated}, nil
}

// Render returns the page's content as display HTML and plain text.
func (s *PageService) Render(ctx context.Context, spaceID, pageID string) (*RenderedPage, error) {
	page, err := s.store.GetPage(ctx, spaceID, pageID)
	if err != nil {
		return nil, notFound(err, "page", pageID)
	}
	return &RenderedPage{
		PageID:    page.ID,
		Title:     page.Title,
		HTML:      markdown.Preview(page.Content),
		PlainText: markdown.PlainText(page.Content),
	}, nil
}

// ImportHTML converts pasted HTML to markdown. With a pageID the markdown is
// appended to that page's content.
func (s *PageService) ImportHTML(ctx context.Context, spaceID, pageID, html string) (*ImportResult, error) {
	md := markdown.ImportHTML(html)
	result := &ImportResult{Markdown: md, HTML: markdown.ToHTML(md, markdown.InteractiveCheckboxes())}
	if pageID == "" || md == "" {
		return result, nil
	}

	page, err := s.store.GetPage(ctx, spaceID, pageID)
	if err != nil {
		return nil, notFound(err, "page", pageID)
	}
	content := md
	if existing := strings.TrimRight(page.Content, "\n"); existing != "" {
		content = existing + "\n\n" + md
	}

	updated, err := s.UpdatePage(ctx, spaceID, pageID, UpdatePageRequest{Content: &content})
	if err != nil {
		return nil, err
	}
	result.Page = updated
	return result, nil
}

// ApplyCommand runs an editor command against a document. Nothing is
// stored.
func (s *PageService) ApplyCommand(doc markdown.Document, cmd markdown.Command) (markdown.Edit, error) {
	edit, err := markdown.Apply(doc, cmd)
	if errors.Is(err, markdown.ErrInvalidCommand) {
		return markdown.Edit{}, domainerrors.Wrap(err, domainerrors.CodeValidation, err.Error())
	}
	return edit, err
}

// checkLinks verifies that the linked board and card belong to the space.
func (s *PageService) checkLinks(ctx context.Context, spaceID string, boardID, cardID *string) error {
	if boardID != nil {
		if _, err := s.store.GetBoard(ctx, spaceID, *boardID); err != nil {
			return notFound(err, "board", *boardID)
		}
	}
	if cardID != nil {
		if _, err := s.store.GetCard(ctx, spaceID, *cardID); err != nil {
			return notFound(err, "card", *cardID)
		}
	}
	return nil
}

