package markdown

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidCommand is returned by Apply for unknown commands or out-of-range
// arguments.
var ErrInvalidCommand = errors.New("invalid editor command")

// CommandName identifies an editor command.
type CommandName string

// Editor commands.
const (
	CommandToggleBold           CommandName = "toggleBold"
	CommandToggleItalic         CommandName = "toggleItalic"
	CommandToggleStrike         CommandName = "toggleStrike"
	CommandToggleCode           CommandName = "toggleCode"
	CommandSetHeading           CommandName = "setHeading"
	CommandToggleBulletList     CommandName = "toggleBulletList"
	CommandToggleOrderedList    CommandName = "toggleOrderedList"
	CommandInsertChecklist      CommandName = "insertChecklist"
	CommandToggleTask           CommandName = "toggleTask"
	CommandInsertTable          CommandName = "insertTable"
	CommandInsertLink           CommandName = "insertLink"
	CommandInsertImage          CommandName = "insertImage"
	CommandInsertCodeBlock      CommandName = "insertCodeBlock"
	CommandInsertHorizontalRule CommandName = "insertHorizontalRule"
	CommandToggleBlockquote     CommandName = "toggleBlockquote"
)

const (
	maxTableRows    = 50
	maxTableColumns = 20
)

// Selection is a byte range into Document.Markdown. Start == End is a caret.
type Selection struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Document is the editor state a command applies to.
type Document struct {
	Markdown  string    `json:"markdown"`
	Selection Selection `json:"selection"`
}

// Command is an editor command and its arguments. Only the arguments of the
// named command are read.
type Command struct {
	Name     CommandName `json:"name"`
	Level    int         `json:"level,omitempty"`
	Rows     int         `json:"rows,omitempty"`
	Cols     int         `json:"cols,omitempty"`
	Href     string      `json:"href,omitempty"`
	Src      string      `json:"src,omitempty"`
	Alt      string      `json:"alt,omitempty"`
	Language string      `json:"language,omitempty"`
}

// Edit is the outcome of Apply: the new document and its editing HTML.
type Edit struct {
	Document Document `json:"document"`
	HTML     string   `json:"html"`
}

var (
	headingPrefix = regexp.MustCompile(`^#{1,6}\s+`)
	listPrefix    = regexp.MustCompile(`^([-*+]|\d+\.)\s+`)
	taskPrefix    = regexp.MustCompile(`^[-*+]\s+\[( |x|X)\]\s*`)
	quotePrefix   = regexp.MustCompile(`^>\s?`)
	languageName  = regexp.MustCompile(`^[\w+#.-]*$`)
)

// Apply runs cmd against doc. It never mutates doc.
func Apply(doc Document, cmd Command) (Edit, error) {
	doc.Selection = clampSelection(doc.Selection, len(doc.Markdown))

	var (
		next Document
		err  error
	)
	switch cmd.Name {
	case CommandToggleBold:
		next = toggleInline(doc, "**")
	case CommandToggleItalic:
		next = toggleInline(doc, "*")
	case CommandToggleStrike:
		next = toggleInline(doc, "~~")
	case CommandToggleCode:
		next = toggleInline(doc, "`")
	case CommandSetHeading:
		if cmd.Level < 0 || cmd.Level > 6 {
			return Edit{}, fmt.Errorf("%w: heading level %d out of range 0..6", ErrInvalidCommand, cmd.Level)
		}
		next = mapLines(doc, func(lines []string) []string { return setHeading(lines, cmd.Level) })
	case CommandToggleBulletList:
		next = mapLines(doc, toggleBulletList)
	case CommandToggleOrderedList:
		next = mapLines(doc, toggleOrderedList)
	case CommandInsertChecklist:
		next = mapLines(doc, insertChecklist)
	case CommandToggleTask:
		next = mapLines(doc, toggleTask)
	case CommandToggleBlockquote:
		next = mapLines(doc, toggleBlockquote)
	case CommandInsertTable:
		next, err = insertTable(doc, cmd.Rows, cmd.Cols)
	case CommandInsertLink:
		next, err = insertLink(doc, cmd.Href)
	case CommandInsertImage:
		next, err = insertImage(doc, cmd.Src, cmd.Alt)
	case CommandInsertCodeBlock:
		next, err = insertCodeBlock(doc, cmd.Language)
	case CommandInsertHorizontalRule:
		next = insertBlock(doc, "---")
	default:
		return Edit{}, fmt.Errorf("%w: unknown command %q", ErrInvalidCommand, cmd.Name)
	}
	if err != nil {
		return Edit{}, err
	}

	return Edit{Document: next, HTML: ToHTML(next.Markdown, InteractiveCheckboxes())}, nil
}

func clampSelection(sel Selection, n int) Selection {
	clamp := func(v int) int { return min(max(v, 0), n) }
	sel.Start, sel.End = clamp(sel.Start), clamp(sel.End)
	if sel.Start > sel.End {
		sel.Start, sel.End = sel.End, sel.Start
	}
	return sel
}

func selected(doc Document) string {
	return doc.Markdown[doc.Selection.Start:doc.Selection.End]
}

// replaceSelection swaps the selection for text and selects [selStart, selEnd)
// relative to the inserted text.
func replaceSelection(doc Document, text string, selStart, selEnd int) Document {
	md := doc.Markdown[:doc.Selection.Start] + text + doc.Markdown[doc.Selection.End:]
	return Document{
		Markdown:  md,
		Selection: Selection{Start: doc.Selection.Start + selStart, End: doc.Selection.Start + selEnd},
	}
}

// toggleInline wraps the selection in marker, or unwraps it when the marker
// already surrounds it (inside or just outside the selection).
func toggleInline(doc Document, marker string) Document {
	md, start, end := doc.Markdown, doc.Selection.Start, doc.Selection.End
	m := len(marker)

	if start >= m && end+m <= len(md) && md[start-m:start] == marker && md[end:end+m] == marker {
		return Document{
			Markdown:  md[:start-m] + md[start:end] + md[end+m:],
			Selection: Selection{Start: start - m, End: end - m},
		}
	}

	text := selected(doc)
	if len(text) >= 2*m && strings.HasPrefix(text, marker) && strings.HasSuffix(text, marker) {
		inner := text[m : len(text)-m]
		return replaceSelection(doc, inner, 0, len(inner))
	}

	return replaceSelection(doc, marker+text+marker, m, m+len(text))
}

// mapLines applies fn to every line touched by the selection and selects the
// rewritten lines.
func mapLines(doc Document, fn func([]string) []string) Document {
	md := doc.Markdown
	lineStart := strings.LastIndex(md[:doc.Selection.Start], "\n") + 1
	lineEnd := len(md)
	if i := strings.Index(md[doc.Selection.End:], "\n"); i >= 0 {
		lineEnd = doc.Selection.End + i
	}

	block := strings.Join(fn(strings.Split(md[lineStart:lineEnd], "\n")), "\n")
	return Document{
		Markdown:  md[:lineStart] + block + md[lineEnd:],
		Selection: Selection{Start: lineStart, End: lineStart + len(block)},
	}
}

func setHeading(lines []string, level int) []string {
	for i, line := range lines {
		text := headingPrefix.ReplaceAllString(strings.TrimSpace(line), "")
		if level == 0 || text == "" {
			lines[i] = text
			continue
		}
		lines[i] = strings.Repeat("#", level) + " " + text
	}
	return lines
}

// allLines reports whether every non-blank line matches pattern. It is false
// when there are no non-blank lines.
func allLines(lines []string, pattern *regexp.Regexp) bool {
	seen := false
	for _, line := range lines {
		t := strings.TrimSpace(line)
		if t == "" {
			continue
		}
		if !pattern.MatchString(t) {
			return false
		}
		seen = true
	}
	return seen
}

var bulletOnly = regexp.MustCompile(`^[-*+]\s+`)

func toggleBulletList(lines []string) []string {
	unwrap := allLines(lines, bulletOnly)
	for i, line := range lines {
		t := strings.TrimSpace(line)
		switch {
		case t == "":
		case unwrap:
			lines[i] = taskPrefix.ReplaceAllString(t, "")
			lines[i] = bulletOnly.ReplaceAllString(lines[i], "")
		default:
			lines[i] = "- " + listPrefix.ReplaceAllString(t, "")
		}
	}
	return lines
}

func toggleOrderedList(lines []string) []string {
	unwrap := allLines(lines, orderedPattern)
	n := 0
	for i, line := range lines {
		t := strings.TrimSpace(line)
		switch {
		case t == "":
		case unwrap:
			lines[i] = orderedPattern.ReplaceAllString(t, "")
		default:
			n++
			lines[i] = strconv.Itoa(n) + ". " + listPrefix.ReplaceAllString(taskPrefix.ReplaceAllString(t, "- "), "")
		}
	}
	return lines
}

func insertChecklist(lines []string) []string {
	if len(lines) == 1 && strings.TrimSpace(lines[0]) == "" {
		return []string{"- [ ] "}
	}
	for i, line := range lines {
		t := strings.TrimSpace(line)
		if t == "" || taskPrefix.MatchString(t) {
			continue
		}
		lines[i] = "- [ ] " + listPrefix.ReplaceAllString(t, "")
	}
	return lines
}

// toggleTask ticks or unticks every task item in lines. Other lines are left
// alone.
func toggleTask(lines []string) []string {
	for i, line := range lines {
		m := taskPrefix.FindStringSubmatchIndex(line)
		if m == nil {
			continue
		}
		mark := "x"
		if strings.EqualFold(line[m[2]:m[3]], "x") {
			mark = " "
		}
		lines[i] = line[:m[2]] + mark + line[m[3]:]
	}
	return lines
}

func toggleBlockquote(lines []string) []string {
	unwrap := allLines(lines, quotePrefix)
	for i, line := range lines {
		t := strings.TrimSpace(line)
		switch {
		case unwrap:
			lines[i] = quotePrefix.ReplaceAllString(t, "")
		case t == "":
			lines[i] = ">"
		default:
			lines[i] = "> " + t
		}
	}
	return lines
}

// insertBlock replaces the selection with a block, separated from the
// surrounding text by blank lines, and selects the block.
func insertBlock(doc Document, block string) Document {
	before := doc.Markdown[:doc.Selection.Start]
	after := doc.Markdown[doc.Selection.End:]

	prefix := ""
	if trimmed := strings.TrimRight(before, " \t"); trimmed != "" && !strings.HasSuffix(trimmed, "\n\n") {
		if strings.HasSuffix(trimmed, "\n") {
			prefix = "\n"
		} else {
			prefix = "\n\n"
		}
	}
	suffix := ""
	if strings.TrimSpace(after) != "" && !strings.HasPrefix(after, "\n\n") {
		if strings.HasPrefix(after, "\n") {
			suffix = "\n"
		} else {
			suffix = "\n\n"
		}
	}

	return replaceSelection(doc, prefix+block+suffix, len(prefix), len(prefix)+len(block))
}

func insertTable(doc Document, rows, cols int) (Document, error) {
	if rows < 1 || rows > maxTableRows {
		return Document{}, fmt.Errorf("%w: table rows must be between 1 and %d", ErrInvalidCommand, maxTableRows)
	}
	if cols < 1 || cols > maxTableColumns {
		return Document{}, fmt.Errorf("%w: table columns must be between 1 and %d", ErrInvalidCommand, maxTableColumns)
	}

	header := make([]string, cols)
	sep := make([]string, cols)
	empty := make([]string, cols)
	for i := range cols {
		header[i] = "Column " + strconv.Itoa(i+1)
		sep[i] = "---"
	}

	lines := []string{tableLine(header), tableLine(sep)}
	for range rows {
		lines = append(lines, tableLine(empty))
	}
	return insertBlock(doc, strings.Join(lines, "\n")), nil
}

func insertLink(doc Document, href string) (Document, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return Document{}, fmt.Errorf("%w: link href is required", ErrInvalidCommand)
	}
	label := strings.TrimSpace(selected(doc))
	if label == "" {
		label = href
	}
	return replaceSelection(doc, "["+label+"]("+href+")", 1, 1+len(label)), nil
}

func insertImage(doc Document, src, alt string) (Document, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return Document{}, fmt.Errorf("%w: image src is required", ErrInvalidCommand)
	}
	text := "![" + strings.TrimSpace(alt) + "](" + src + ")"
	return replaceSelection(doc, text, len(text), len(text)), nil
}

func insertCodeBlock(doc Document, language string) (Document, error) {
	language = strings.ToLower(strings.TrimSpace(language))
	if !languageName.MatchString(language) {
		return Document{}, fmt.Errorf("%w: invalid code block language %q", ErrInvalidCommand, language)
	}
	code := strings.Trim(selected(doc), "\n")
	next := insertBlock(doc, "```"+language+"\n"+code+"\n```")

	// Select the code itself rather than the fences.
	start := next.Selection.Start + len("```"+language+"\n")
	next.Selection = Selection{Start: start, End: start + len(code)}
	return next, nil
}
