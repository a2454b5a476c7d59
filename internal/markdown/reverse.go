package markdown

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	inlineSpaceRun   = regexp.MustCompile(`[ \t]+`)
	anyWhitespaceRun = regexp.MustCompile(`\s+`)
	trailingSpace    = regexp.MustCompile(`[ \t]+\n`)
	blankLineRun     = regexp.MustCompile(`\n{3,}`)
	trailingNewlines = regexp.MustCompile(`\n+$`)
	languageClass    = regexp.MustCompile(`(?:^|\s)language-([\w+#.-]+)`)
)

// FromHTML converts editor HTML back to markdown. Unknown elements contribute
// their children; script and style content is dropped. The result has no
// trailing spaces, at most one blank line in a row, and no surrounding
// whitespace.
func FromHTML(src string) string {
	container := &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"}
	nodes, err := html.ParseFragment(strings.NewReader(src), container)
	if err != nil {
		// The tokenizer only fails on reader errors; strings.Reader has none.
		return strings.TrimSpace(src)
	}

	var b strings.Builder
	for _, n := range nodes {
		b.WriteString(serialize(n, ""))
	}

	out := trailingSpace.ReplaceAllString(b.String(), "\n")
	out = blankLineRun.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

func serialize(n *html.Node, parentTag string) string {
	switch n.Type {
	case html.TextNode:
		return inlineSpaceRun.ReplaceAllString(strings.ReplaceAll(n.Data, "\u00a0", " "), " ")
	case html.ElementNode:
	default:
		return ""
	}

	tag := strings.ToLower(n.Data)
	switch tag {
	case "script", "style", "template", "input":
		return ""
	case "br":
		return "\n"
	case "hr":
		return "---\n\n"
	case "pre":
		return serializePre(n)
	case "ul":
		return serializeList(n, false)
	case "ol":
		return serializeList(n, true)
	case "table":
		return serializeTable(n)
	case "img":
		src := attr(n, "src")
		if src == "" {
			return ""
		}
		return "![" + attr(n, "alt") + "](" + src + ")"
	}

	children := serializeChildren(n, tag)

	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level, _ := strconv.Atoi(tag[1:])
		return strings.Repeat("#", level) + " " + strings.TrimSpace(children) + "\n\n"
	case "p":
		content := strings.TrimSpace(children)
		if content == "" {
			return "\n"
		}
		return content + "\n\n"
	case "div":
		content := strings.TrimSpace(children)
		switch {
		case content == "":
			return "\n"
		case parentTag == "li":
			return content
		default:
			return content + "\n\n"
		}
	case "strong", "b":
		return "**" + strings.TrimSpace(children) + "**"
	case "em", "i":
		return "*" + strings.TrimSpace(children) + "*"
	case "del", "s", "strike":
		return "~~" + strings.TrimSpace(children) + "~~"
	case "code":
		if parentTag == "pre" {
			return children
		}
		return "`" + strings.TrimSpace(children) + "`"
	case "blockquote":
		content := strings.TrimSpace(children)
		if content == "" {
			return "\n"
		}
		lines := strings.Split(content, "\n")
		for i, line := range lines {
			if line = strings.TrimSpace(line); line == "" {
				lines[i] = ">"
			} else {
				lines[i] = "> " + line
			}
		}
		return strings.Join(lines, "\n") + "\n\n"
	case "a":
		href := attr(n, "href")
		content := strings.TrimSpace(children)
		if content == "" {
			content = href
		}
		if href == "" {
			return content
		}
		return "[" + content + "](" + href + ")"
	default:
		return children
	}
}

func serializeChildren(n *html.Node, tag string) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(serialize(c, tag))
	}
	return b.String()
}

// serializePre emits a fenced block from the raw text content, keeping the
// language recorded on a nested code element.
func serializePre(n *html.Node) string {
	lang := ""
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Code {
			if m := languageClass.FindStringSubmatch(attr(c, "class")); m != nil {
				lang = m[1]
			}
			break
		}
	}
	code := trailingNewlines.ReplaceAllString(textContent(n), "")
	return "```" + lang + "\n" + code + "\n```\n\n"
}

func serializeList(n *html.Node, ordered bool) string {
	var items []string
	for li := n.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.DataAtom != atom.Li {
			continue
		}
		if ordered {
			items = append(items, strconv.Itoa(len(items)+1)+". "+listItemContent(li))
			continue
		}
		if box := checkboxChild(li); box != nil {
			mark := " "
			if hasAttr(box, "checked") {
				mark = "x"
			}
			items = append(items, strings.TrimRight("- ["+mark+"] "+listItemContent(li), " "))
			continue
		}
		items = append(items, "- "+listItemContent(li))
	}
	if len(items) == 0 {
		return ""
	}
	return strings.Join(items, "\n") + "\n\n"
}

// listItemContent serializes an item's children onto a single line.
// Checkbox inputs serialize to nothing.
func listItemContent(li *html.Node) string {
	return collapseInline(serializeChildren(li, "li"))
}

func checkboxChild(li *html.Node) *html.Node {
	for c := li.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Input && strings.EqualFold(attr(c, "type"), "checkbox") {
			return c
		}
	}
	return nil
}

// serializeTable takes the header from the first row under thead, else the
// first row overall. Every other row is a body row, padded or truncated to
// the header width. Missing thead or tbody wrappers are tolerated.
func serializeTable(table *html.Node) string {
	rows := tableRows(table)
	if len(rows) == 0 {
		return ""
	}

	header := rows[0]
	for _, row := range rows {
		if row.Parent != nil && row.Parent.DataAtom == atom.Thead {
			header = row
			break
		}
	}

	headerCells := rowCells(header)
	if len(headerCells) == 0 {
		return ""
	}

	sep := make([]string, len(headerCells))
	for i := range sep {
		sep[i] = "---"
	}

	lines := []string{tableLine(headerCells), tableLine(sep)}
	for _, row := range rows {
		if row == header {
			continue
		}
		lines = append(lines, tableLine(fitRow(rowCells(row), len(headerCells))))
	}
	return strings.Join(lines, "\n") + "\n\n"
}

func tableLine(cells []string) string {
	return "| " + strings.Join(cells, " | ") + " |"
}

// tableRows returns the rows of table in document order, skipping nested tables.
func tableRows(table *html.Node) []*html.Node {
	var rows []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Tr:
				rows = append(rows, c)
			case atom.Table:
			default:
				walk(c)
			}
		}
	}
	walk(table)
	return rows
}

func rowCells(row *html.Node) []string {
	var cells []string
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			cells = append(cells, collapseInline(serializeChildren(c, "")))
		}
	}
	return cells
}

func collapseInline(s string) string {
	return strings.TrimSpace(anyWhitespaceRun.ReplaceAllString(s, " "))
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}
