// Package markdown converts between Forge's markdown dialect and the HTML
// edited by the rich editor.
//
// The dialect covers ATX headings, bold, italic, strikethrough, inline code,
// links, images, fenced code blocks, blockquotes, thematic breaks, ordered,
// unordered and checklist lists, and pipe tables. Markdown stays the canonical
// stored form; HTML is derived from it and converted back with FromHTML.
package markdown

import (
	"regexp"
	"strconv"
	"strings"
)

// EmptyPlaceholder is rendered by Preview for documents with no content.
const EmptyPlaceholder = `<p class="empty-state">No content yet.</p>`

var (
	fencePattern       = regexp.MustCompile("^```")
	headingPattern     = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	hrPattern          = regexp.MustCompile(`^(-{3,}|\*{3,}|_{3,})$`)
	quotePattern       = regexp.MustCompile(`^>\s?`)
	bulletPattern      = regexp.MustCompile(`^[-*+]\s+`)
	orderedPattern     = regexp.MustCompile(`^\d+\.\s+`)
	taskPattern        = regexp.MustCompile(`^\[( |x|X)\]\s+(.*)$`)
	tableSeparatorLine = regexp.MustCompile(`^\s*\|?\s*:?-{3,}:?\s*(\|\s*:?-{3,}:?\s*)+\|?\s*$|^\s*\|\s*:?-{3,}:?\s*\|\s*$`)
)

type options struct {
	disableCheckboxes bool
}

// Option configures ToHTML.
type Option func(*options)

// InteractiveCheckboxes renders task-list checkboxes without the disabled
// attribute, for the editing surface.
func InteractiveCheckboxes() Option {
	return func(o *options) { o.disableCheckboxes = false }
}

// DisableCheckboxes sets whether rendered checkboxes carry disabled.
func DisableCheckboxes(disabled bool) Option {
	return func(o *options) { o.disableCheckboxes = disabled }
}

// ToHTML renders markdown to HTML. Checkboxes are disabled unless
// InteractiveCheckboxes is passed. Whitespace-only input yields "".
func ToHTML(src string, opts ...Option) string {
	o := options{disableCheckboxes: true}
	for _, opt := range opts {
		opt(&o)
	}

	r := renderer{
		lines: strings.Split(normalizeNewlines(src), "\n"),
		opts:  o,
	}
	return r.render()
}

// Preview renders markdown for read-only display, substituting
// EmptyPlaceholder for an empty document.
func Preview(src string) string {
	if strings.TrimSpace(src) == "" {
		return EmptyPlaceholder
	}
	return ToHTML(src)
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

type renderer struct {
	lines  []string
	i      int
	opts   options
	blocks []string
}

func (r *renderer) render() string {
	for r.i < len(r.lines) {
		line := strings.TrimSpace(r.lines[r.i])
		switch {
		case line == "":
			r.i++
		case fencePattern.MatchString(line):
			r.codeBlock(line)
		case headingPattern.MatchString(line):
			r.heading(line)
		case hrPattern.MatchString(line):
			r.blocks = append(r.blocks, "<hr />")
			r.i++
		case quotePattern.MatchString(line):
			r.blockquote()
		case looksLikeTableRow(line) && tableSeparatorLine.MatchString(r.peek()):
			r.table(line)
		case bulletPattern.MatchString(line):
			r.bulletList()
		case orderedPattern.MatchString(line):
			r.orderedList()
		default:
			r.paragraph()
		}
	}
	return strings.Join(r.blocks, "\n")
}

func (r *renderer) peek() string {
	if r.i+1 >= len(r.lines) {
		return ""
	}
	return strings.TrimSpace(r.lines[r.i+1])
}

func (r *renderer) codeBlock(open string) {
	lang := strings.ToLower(strings.TrimSpace(open[3:]))
	r.i++

	var code []string
	for r.i < len(r.lines) && !fencePattern.MatchString(strings.TrimSpace(r.lines[r.i])) {
		code = append(code, r.lines[r.i])
		r.i++
	}
	if r.i < len(r.lines) {
		r.i++ // closing fence
	}

	class := ""
	if lang != "" {
		class = ` class="language-` + escapeAttribute(lang) + `"`
	}
	r.blocks = append(r.blocks, "<pre><code"+class+">"+escapeHTML(strings.Join(code, "\n"))+"</code></pre>")
}

func (r *renderer) heading(line string) {
	m := headingPattern.FindStringSubmatch(line)
	level := strconv.Itoa(len(m[1]))
	r.blocks = append(r.blocks, "<h"+level+">"+formatInline(strings.TrimSpace(m[2]))+"</h"+level+">")
	r.i++
}

func (r *renderer) blockquote() {
	var parts []string
	for r.i < len(r.lines) {
		line := strings.TrimSpace(r.lines[r.i])
		if !quotePattern.MatchString(line) {
			break
		}
		parts = append(parts, formatInline(quotePattern.ReplaceAllString(line, "")))
		r.i++
	}
	r.blocks = append(r.blocks, "<blockquote><p>"+strings.Join(parts, "<br />")+"</p></blockquote>")
}

// table renders a pipe table. The header fixes the column count; body rows
// are padded with empty cells or truncated to it.
func (r *renderer) table(headerLine string) {
	header := splitTableRow(headerLine)
	width := len(header)
	r.i += 2

	var b strings.Builder
	b.WriteString("<table><thead><tr>")
	for _, cell := range header {
		b.WriteString("<th>" + formatInline(cell) + "</th>")
	}
	b.WriteString("</tr></thead>")

	var body []string
	for r.i < len(r.lines) && looksLikeTableRow(r.lines[r.i]) {
		body = append(body, r.lines[r.i])
		r.i++
	}

	if len(body) > 0 {
		b.WriteString("<tbody>")
		for _, line := range body {
			cells := fitRow(splitTableRow(line), width)
			b.WriteString("<tr>")
			for _, cell := range cells {
				b.WriteString("<td>" + formatInline(cell) + "</td>")
			}
			b.WriteString("</tr>")
		}
		b.WriteString("</tbody>")
	}
	b.WriteString("</table>")

	r.blocks = append(r.blocks, b.String())
}

func (r *renderer) bulletList() {
	var items []string
	hasTasks := false

	for r.i < len(r.lines) {
		line := strings.TrimSpace(r.lines[r.i])
		if !bulletPattern.MatchString(line) {
			break
		}
		content := bulletPattern.ReplaceAllString(line, "")

		if m := taskPattern.FindStringSubmatch(content); m != nil {
			hasTasks = true
			attrs := ""
			if strings.EqualFold(m[1], "x") {
				attrs += " checked"
			}
			if r.opts.disableCheckboxes {
				attrs += " disabled"
			}
			items = append(items, `<li class="task-list-item"><input type="checkbox"`+attrs+` /><span>`+
				formatInline(m[2])+`</span></li>`)
		} else {
			items = append(items, "<li>"+formatInline(content)+"</li>")
		}
		r.i++
	}

	open := "<ul>"
	if hasTasks {
		open = `<ul class="task-list">`
	}
	r.blocks = append(r.blocks, open+strings.Join(items, "")+"</ul>")
}

func (r *renderer) orderedList() {
	var b strings.Builder
	b.WriteString("<ol>")
	for r.i < len(r.lines) {
		line := strings.TrimSpace(r.lines[r.i])
		if !orderedPattern.MatchString(line) {
			break
		}
		b.WriteString("<li>" + formatInline(orderedPattern.ReplaceAllString(line, "")) + "</li>")
		r.i++
	}
	b.WriteString("</ol>")
	r.blocks = append(r.blocks, b.String())
}

// paragraph collects lines until a blank line or the start of another block.
func (r *renderer) paragraph() {
	var parts []string
	for r.i < len(r.lines) {
		line := r.lines[r.i]
		if strings.TrimSpace(line) == "" {
			break
		}
		if len(parts) > 0 && isBlockStart(line) {
			break
		}
		parts = append(parts, formatInline(strings.TrimSpace(line)))
		r.i++
	}
	r.blocks = append(r.blocks, "<p>"+strings.Join(parts, "<br />")+"</p>")
}

func isBlockStart(line string) bool {
	t := strings.TrimSpace(line)
	if t == "" {
		return false
	}
	return headingPattern.MatchString(t) ||
		fencePattern.MatchString(t) ||
		quotePattern.MatchString(t) ||
		bulletPattern.MatchString(t) ||
		orderedPattern.MatchString(t) ||
		hrPattern.MatchString(t) ||
		looksLikeTableRow(t)
}

func looksLikeTableRow(line string) bool {
	t := strings.TrimSpace(line)
	return t != "" && strings.Contains(t, "|")
}

func splitTableRow(row string) []string {
	t := strings.TrimSpace(row)
	t = strings.TrimPrefix(t, "|")
	t = strings.TrimSuffix(t, "|")
	cells := strings.Split(t, "|")
	for i, c := range cells {
		cells[i] = strings.TrimSpace(c)
	}
	return cells
}

// fitRow pads or truncates cells to width.
func fitRow(cells []string, width int) []string {
	if len(cells) >= width {
		return cells[:width]
	}
	out := make([]string, width)
	copy(out, cells)
	return out
}
