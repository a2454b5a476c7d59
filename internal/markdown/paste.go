package markdown

import (
	"regexp"
	"strings"
	"sync"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/strikethrough"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	pastePolicy = sync.OnceValue(func() *bluemonday.Policy {
		p := bluemonday.UGCPolicy()
		p.AllowAttrs("type", "checked").OnElements("input")
		p.AllowAttrs("class").Matching(regexp.MustCompile(`^(task-list|task-list-item|language-[\w+#.-]+)$`)).OnElements("ul", "li", "code")
		p.AllowRelativeURLs(true)
		p.RequireNoFollowOnLinks(false)
		return p
	})

	pasteConverter = sync.OnceValue(func() *converter.Converter {
		return converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(
					commonmark.WithBulletListMarker("-"),
					commonmark.WithStrongDelimiter("**"),
					commonmark.WithEmDelimiter("*"),
				),
				strikethrough.NewStrikethroughPlugin(),
				table.NewTablePlugin(),
			),
		)
	})

	// markdownEscape matches the backslash escapes the converter adds. The
	// dialect has no escapes, so they are removed.
	markdownEscape = regexp.MustCompile("\\\\([\\\\`*_{}\\[\\]()#+\\-.!~|>])")
)

// ImportHTML converts untrusted HTML, such as clipboard content from another
// application, into markdown in Forge's dialect. The HTML is sanitized before
// conversion and the result is normalized with one render round.
func ImportHTML(src string) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}

	clean := markTaskItems(pastePolicy().Sanitize(src))

	md, err := pasteConverter().ConvertString(clean)
	if err != nil {
		// Conversion only fails on malformed trees; fall back to the tree walk.
		return Normalize(FromHTML(clean))
	}
	return Normalize(markdownEscape.ReplaceAllString(md, "$1"))
}

// Normalize brings markdown to the fixed point of a ToHTML/FromHTML round.
func Normalize(src string) string {
	return FromHTML(ToHTML(src, InteractiveCheckboxes()))
}

// markTaskItems replaces checkbox inputs that lead a list item with a literal
// task marker, which the converter would otherwise drop.
func markTaskItems(src string) string {
	if !strings.Contains(src, "checkbox") {
		return src
	}

	container := &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"}
	nodes, err := html.ParseFragment(strings.NewReader(src), container)
	if err != nil {
		return src
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Li {
			if box := checkboxChild(n); box != nil {
				mark := "[ ] "
				if hasAttr(box, "checked") {
					mark = "[x] "
				}
				n.InsertBefore(&html.Node{Type: html.TextNode, Data: mark}, n.FirstChild)
				n.RemoveChild(box)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	var b strings.Builder
	for _, n := range nodes {
		walk(n)
		if err := html.Render(&b, n); err != nil {
			return src
		}
	}
	return b.String()
}
