package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/forgeapp/forge-server/internal/markdown"
	"github.com/forgeapp/forge-server/internal/service"
)

func (s *Server) registerMarkdownRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "renderMarkdown",
		Method:      http.MethodPost,
		Path:        "/api/v1/markdown/render",
		Summary:     "Render markdown",
		Description: "Converts markdown to HTML, for display or for the editor",
		Tags:        []string{"Markdown"},
		Security:    bearerAuth,
	}, s.handleRenderMarkdown)

	huma.Register(s.api, huma.Operation{
		OperationID: "htmlToMarkdown",
		Method:      http.MethodPost,
		Path:        "/api/v1/markdown/to-markdown",
		Summary:     "HTML to markdown",
		Description: "Converts editor HTML back to markdown",
		Tags:        []string{"Markdown"},
		Security:    bearerAuth,
	}, s.handleToMarkdown)

	huma.Register(s.api, huma.Operation{
		OperationID: "markdownPlainText",
		Method:      http.MethodPost,
		Path:        "/api/v1/markdown/plain-text",
		Summary:     "Markdown to plain text",
		Description: "Strips markdown syntax, for previews",
		Tags:        []string{"Markdown"},
		Security:    bearerAuth,
	}, s.handlePlainText)

	huma.Register(s.api, huma.Operation{
		OperationID: "importHTML",
		Method:      http.MethodPost,
		Path:        "/api/v1/markdown/import",
		Summary:     "Import pasted HTML",
		Description: "Sanitizes pasted HTML and converts it to markdown. With a page, the result is appended to it.",
		Tags:        []string{"Markdown"},
		Security:    bearerAuth,
	}, s.handleImportHTML)

	huma.Register(s.api, huma.Operation{
		OperationID: "applyEditorCommand",
		Method:      http.MethodPost,
		Path:        "/api/v1/markdown/command",
		Summary:     "Apply editor command",
		Description: "Applies a formatting command to a document and selection. Nothing is stored.",
		Tags:        []string{"Markdown"},
		Security:    bearerAuth,
	}, s.handleApplyCommand)
}

// === DTOs ===

// RenderMarkdownInput wraps markdown to render for Huma.
type RenderMarkdownInput struct {
	Body struct {
		Markdown          string `json:"markdown" maxLength:"1048576" doc:"Markdown source"`
		Interactive       bool   `json:"interactive,omitempty" doc:"Emit editable task checkboxes"`
		DisableCheckboxes bool   `json:"disableCheckboxes,omitempty" doc:"Render task checkboxes disabled"`
	}
}

// HTMLResponse carries rendered HTML.
type HTMLResponse struct {
	HTML string `json:"html" doc:"Rendered HTML"`
}

// HTMLOutput wraps rendered HTML for Huma.
type HTMLOutput struct {
	Body HTMLResponse
}

// ToMarkdownInput wraps HTML to convert for Huma.
type ToMarkdownInput struct {
	Body struct {
		HTML string `json:"html" maxLength:"1048576" doc:"HTML source"`
	}
}

// MarkdownResponse carries markdown.
type MarkdownResponse struct {
	Markdown string `json:"markdown" doc:"Markdown"`
}

// MarkdownOutput wraps markdown for Huma.
type MarkdownOutput struct {
	Body MarkdownResponse
}

// PlainTextInput wraps markdown to strip for Huma.
type PlainTextInput struct {
	Body struct {
		Markdown string `json:"markdown" maxLength:"1048576" doc:"Markdown source"`
	}
}

// PlainTextResponse carries plain text.
type PlainTextResponse struct {
	Text string `json:"text" doc:"Plain text"`
}

// PlainTextOutput wraps plain text for Huma.
type PlainTextOutput struct {
	Body PlainTextResponse
}

// ImportHTMLInput wraps pasted HTML for Huma.
type ImportHTMLInput struct {
	Body struct {
		HTML    string `json:"html" maxLength:"1048576" doc:"Pasted HTML"`
		SpaceID string `json:"spaceId,omitempty" doc:"Space of the page to append to"`
		PageID  string `json:"pageId,omitempty" doc:"Page to append the markdown to"`
	}
}

// ImportHTMLOutput wraps the import result for Huma.
type ImportHTMLOutput struct {
	Body *service.ImportResult
}

// ApplyCommandInput wraps an editor command for Huma.
type ApplyCommandInput struct {
	Body struct {
		Document markdown.Document `json:"document" doc:"Markdown and selection"`
		Command  markdown.Command  `json:"command" doc:"Command and its arguments"`
	}
}

// ApplyCommandOutput wraps the edited document for Huma.
type ApplyCommandOutput struct {
	Body markdown.Edit
}

// === Handlers ===

func (s *Server) handleRenderMarkdown(ctx context.Context, input *RenderMarkdownInput) (*HTMLOutput, error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}

	var opts []markdown.Option
	if input.Body.Interactive {
		opts = append(opts, markdown.InteractiveCheckboxes())
	}
	if input.Body.DisableCheckboxes {
		opts = append(opts, markdown.DisableCheckboxes(true))
	}
	return &HTMLOutput{Body: HTMLResponse{HTML: markdown.ToHTML(input.Body.Markdown, opts...)}}, nil
}

func (s *Server) handleToMarkdown(ctx context.Context, input *ToMarkdownInput) (*MarkdownOutput, error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}
	return &MarkdownOutput{Body: MarkdownResponse{Markdown: markdown.FromHTML(input.Body.HTML)}}, nil
}

func (s *Server) handlePlainText(ctx context.Context, input *PlainTextInput) (*PlainTextOutput, error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}
	return &PlainTextOutput{Body: PlainTextResponse{Text: markdown.PlainText(input.Body.Markdown)}}, nil
}

func (s *Server) handleImportHTML(ctx context.Context, input *ImportHTMLInput) (*ImportHTMLOutput, error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}
	if input.Body.PageID != "" {
		if input.Body.SpaceID == "" {
			return nil, huma.Error400BadRequest("spaceId is required with pageId")
		}
		if _, err := s.RequireMember(ctx, input.Body.SpaceID); err != nil {
			return nil, err
		}
	}

	result, err := s.services.Pages.ImportHTML(ctx, input.Body.SpaceID, input.Body.PageID, input.Body.HTML)
	if err != nil {
		return nil, err
	}
	return &ImportHTMLOutput{Body: result}, nil
}

func (s *Server) handleApplyCommand(ctx context.Context, input *ApplyCommandInput) (*ApplyCommandOutput, error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}

	edit, err := s.services.Pages.ApplyCommand(input.Body.Document, input.Body.Command)
	if err != nil {
		return nil, err
	}
	return &ApplyCommandOutput{Body: edit}, nil
}
