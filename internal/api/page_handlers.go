package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/forgeapp/forge-server/internal/domain"
	"github.com/forgeapp/forge-server/internal/service"
)

func (s *Server) registerPageRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listPages",
		Method:      http.MethodGet,
		Path:        "/api/v1/spaces/{spaceId}/pages",
		Summary:     "List pages",
		Description: "Returns the space's pages, most recently updated first",
		Tags:        []string{"Pages"},
		Security:    bearerAuth,
	}, s.handleListPages)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createPage",
		Method:        http.MethodPost,
		Path:          "/api/v1/spaces/{spaceId}/pages",
		Summary:       "Create page",
		Description:   "Creates a page, optionally linked to a board or card of the space",
		Tags:          []string{"Pages"},
		Security:      bearerAuth,
		DefaultStatus: http.StatusCreated,
	}, s.handleCreatePage)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPage",
		Method:      http.MethodGet,
		Path:        "/api/v1/spaces/{spaceId}/pages/{pageId}",
		Summary:     "Get page",
		Description: "Returns a page with its most recent versions, newest first",
		Tags:        []string{"Pages"},
		Security:    bearerAuth,
	}, s.handleGetPage)

	huma.Register(s.api, huma.Operation{
		OperationID: "updatePage",
		Method:      http.MethodPatch,
		Path:        "/api/v1/spaces/{spaceId}/pages/{pageId}",
		Summary:     "Update page",
		Description: "Updates page fields. Changing the content or editor state snapshots the previous one as a version.",
		Tags:        []string{"Pages"},
		Security:    bearerAuth,
	}, s.handleUpdatePage)

	huma.Register(s.api, huma.Operation{
		OperationID: "deletePage",
		Method:      http.MethodDelete,
		Path:        "/api/v1/spaces/{spaceId}/pages/{pageId}",
		Summary:     "Delete page",
		Description: "Deletes a page with its versions and share tokens",
		Tags:        []string{"Pages"},
		Security:    bearerAuth,
	}, s.handleDeletePage)

	huma.Register(s.api, huma.Operation{
		OperationID: "autosavePage",
		Method:      http.MethodPost,
		Path:        "/api/v1/spaces/{spaceId}/pages/{pageId}/autosave",
		Summary:     "Autosave page",
		Description: "Saves a debounced edit from an editing session. Unchanged saves are skipped; out-of-order saves conflict.",
		Tags:        []string{"Pages"},
		Security:    bearerAuth,
	}, s.handleAutosave)

	huma.Register(s.api, huma.Operation{
		OperationID: "renderPage",
		Method:      http.MethodGet,
		Path:        "/api/v1/spaces/{spaceId}/pages/{pageId}/render",
		Summary:     "Render page",
		Description: "Returns the page content as HTML and plain text",
		Tags:        []string{"Pages"},
		Security:    bearerAuth,
	}, s.handleRenderPage)

	huma.Register(s.api, huma.Operation{
		OperationID: "restorePageVersion",
		Method:      http.MethodPost,
		Path:        "/api/v1/spaces/{spaceId}/pages/{pageId}/versions/{versionId}/restore",
		Summary:     "Restore version",
		Description: "Restores a version's content. The current content becomes a version itself.",
		Tags:        []string{"Pages"},
		Security:    bearerAuth,
	}, s.handleRestoreVersion)
}

// === DTOs ===

// PagesResponse lists pages.
type PagesResponse struct {
	Pages []domain.Page `json:"pages" doc:"Pages of the space"`
}

// PagesOutput wraps a page list for Huma.
type PagesOutput struct {
	Body PagesResponse
}

// CreatePageBody is the request body for creating a page.
type CreatePageBody struct {
	Title           string  `json:"title" maxLength:"300" doc:"Page title"`
	Content         string  `json:"content" doc:"Markdown content"`
	EditorStateJSON *string `json:"editorStateJson,omitempty" doc:"Opaque editor state"`
	BoardID         *string `json:"boardId,omitempty" doc:"Linked board"`
	CardID          *string `json:"cardId,omitempty" doc:"Linked card"`
}

// CreatePageInput wraps the create page request for Huma.
type CreatePageInput struct {
	SpaceID string `path:"spaceId" doc:"Space ID"`
	Body    CreatePageBody
}

// PageOutput wraps a page for Huma.
type PageOutput struct {
	Body *domain.Page
}

// PageInput addresses a page.
type PageInput struct {
	SpaceID string `path:"spaceId" doc:"Space ID"`
	PageID  string `path:"pageId" doc:"Page ID"`
}

// PageDetailOutput wraps a page and its versions for Huma.
type PageDetailOutput struct {
	Body *domain.PageWithVersions
}

// UpdatePageBody is the request body for updating a page. Absent fields are
// left alone.
type UpdatePageBody struct {
	Title           *string          `json:"title,omitempty" maxLength:"300" doc:"Page title"`
	Content         *string          `json:"content,omitempty" doc:"Markdown content"`
	EditorStateJSON Nullable[string] `json:"editorStateJson,omitempty" doc:"Opaque editor state, null to clear"`
	BoardID         Nullable[string] `json:"boardId,omitempty" doc:"Linked board, null to unlink"`
	CardID          Nullable[string] `json:"cardId,omitempty" doc:"Linked card, null to unlink"`
}

// UpdatePageInput wraps the update page request for Huma.
type UpdatePageInput struct {
	SpaceID string `path:"spaceId" doc:"Space ID"`
	PageID  string `path:"pageId" doc:"Page ID"`
	Body    UpdatePageBody
}

// AutosaveInput wraps an autosave for Huma.
type AutosaveInput struct {
	SpaceID string `path:"spaceId" doc:"Space ID"`
	PageID  string `path:"pageId" doc:"Page ID"`
	Body    struct {
		SessionID       string  `json:"sessionId" minLength:"1" maxLength:"128" doc:"Editing session ID"`
		Sequence        int64   `json:"sequence" minimum:"0" doc:"Increases with every save of the session"`
		Content         string  `json:"content" doc:"Markdown content"`
		EditorStateJSON *string `json:"editorStateJson,omitempty" doc:"Opaque editor state"`
	}
}

// AutosaveOutput wraps the autosave outcome for Huma.
type AutosaveOutput struct {
	Body *service.AutosaveResult
}

// RenderedPageOutput wraps a rendered page for Huma.
type RenderedPageOutput struct {
	Body *service.RenderedPage
}

// RestoreVersionInput addresses a page version.
type RestoreVersionInput struct {
	SpaceID   string `path:"spaceId" doc:"Space ID"`
	PageID    string `path:"pageId" doc:"Page ID"`
	VersionID string `path:"versionId" doc:"Version ID"`
}

// === Handlers ===

func (s *Server) handleListPages(ctx context.Context, input *SpaceInput) (*PagesOutput, error) {
	if _, err := s.RequireMember(ctx, input.SpaceID); err != nil {
		return nil, err
	}

	pages, err := s.services.Pages.ListPages(ctx, input.SpaceID)
	if err != nil {
		return nil, err
	}
	return &PagesOutput{Body: PagesResponse{Pages: values(pages)}}, nil
}

func (s *Server) handleCreatePage(ctx context.Context, input *CreatePageInput) (*PageOutput, error) {
	if _, err := s.RequireMember(ctx, input.SpaceID); err != nil {
		return nil, err
	}

	page, err := s.services.Pages.CreatePage(ctx, input.SpaceID, service.CreatePageRequest{
		Title:           input.Body.Title,
		Content:         input.Body.Content,
		EditorStateJSON: input.Body.EditorStateJSON,
		BoardID:         input.Body.BoardID,
		CardID:          input.Body.CardID,
	})
	if err != nil {
		return nil, err
	}
	return &PageOutput{Body: page}, nil
}

func (s *Server) handleGetPage(ctx context.Context, input *PageInput) (*PageDetailOutput, error) {
	if _, err := s.RequireMember(ctx, input.SpaceID); err != nil {
		return nil, err
	}

	page, err := s.services.Pages.GetPage(ctx, input.SpaceID, input.PageID)
	if err != nil {
		return nil, err
	}
	return &PageDetailOutput{Body: page}, nil
}

func (s *Server) handleUpdatePage(ctx context.Context, input *UpdatePageInput) (*PageOutput, error) {
	if _, err := s.RequireMember(ctx, input.SpaceID); err != nil {
		return nil, err
	}

	page, err := s.services.Pages.UpdatePage(ctx, input.SpaceID, input.PageID, service.UpdatePageRequest{
		Title:           input.Body.Title,
		Content:         input.Body.Content,
		EditorStateJSON: input.Body.EditorStateJSON.Field(),
		BoardID:         input.Body.BoardID.Field(),
		CardID:          input.Body.CardID.Field(),
	})
	if err != nil {
		return nil, err
	}
	return &PageOutput{Body: page}, nil
}

func (s *Server) handleDeletePage(ctx context.Context, input *PageInput) (*DeletedOutput, error) {
	if _, err := s.RequireMember(ctx, input.SpaceID); err != nil {
		return nil, err
	}

	if err := s.services.Pages.DeletePage(ctx, input.SpaceID, input.PageID); err != nil {
		return nil, err
	}
	return deleted(input.PageID), nil
}

func (s *Server) handleAutosave(ctx context.Context, input *AutosaveInput) (*AutosaveOutput, error) {
	if _, err := s.RequireMember(ctx, input.SpaceID); err != nil {
		return nil, err
	}

	result, err := s.services.Pages.Autosave(ctx, input.SpaceID, input.PageID, service.AutosaveRequest{
		SessionID:       input.Body.SessionID,
		Sequence:        input.Body.Sequence,
		Content:         input.Body.Content,
		EditorStateJSON: input.Body.EditorStateJSON,
	})
	if err != nil {
		return nil, err
	}
	return &AutosaveOutput{Body: result}, nil
}

func (s *Server) handleRenderPage(ctx context.Context, input *PageInput) (*RenderedPageOutput, error) {
	if _, err := s.RequireMember(ctx, input.SpaceID); err != nil {
		return nil, err
	}

	rendered, err := s.services.Pages.Render(ctx, input.SpaceID, input.PageID)
	if err != nil {
		return nil, err
	}
	return &RenderedPageOutput{Body: rendered}, nil
}

func (s *Server) handleRestoreVersion(ctx context.Context, input *RestoreVersionInput) (*PageOutput, error) {
	if _, err := s.RequireMember(ctx, input.SpaceID); err != nil {
		return nil, err
	}

	page, err := s.services.Pages.RestoreVersion(ctx, input.SpaceID, input.PageID, input.VersionID)
	if err != nil {
		return nil, err
	}
	return &PageOutput{Body: page}, nil
}
