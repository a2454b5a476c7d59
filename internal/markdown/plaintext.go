package markdown

import (
	"regexp"
	"strings"
)

var plainTextPasses = []struct {
	pattern *regexp.Regexp
	repl    string
}{
	{regexp.MustCompile("(?m)^```[^\\n]*\\n?"), ""},
	{regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`), "$1"},
	{regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`), "$1"},
	{regexp.MustCompile("`([^`]+)`"), "$1"},
	{regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]+`), ""},
	{regexp.MustCompile(`(?m)^([ \t]*[-*+][ \t]+)\[[ xX]\][ \t]+`), "$1"},
	{regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+`), ""},
	{regexp.MustCompile(`(?m)^[ \t]*\d+\.[ \t]+`), ""},
	{regexp.MustCompile(`(?m)^[ \t]*>[ \t]?`), ""},
	{regexp.MustCompile(`(?m)^[ \t]*\|?[ \t]*:?-{3,}:?[ \t]*(\|[ \t]*:?-{3,}:?[ \t]*)+\|?[ \t]*$\n?`), ""},
	{regexp.MustCompile(`(?m)^[ \t]*\|[ \t]*:?-{3,}:?[ \t]*\|[ \t]*$\n?`), ""},
	{regexp.MustCompile(`(?m)^[ \t]*\|[ \t]*|[ \t]*\|[ \t]*$`), ""},
	{regexp.MustCompile(`[ \t]*\|[ \t]*`), " "},
	{regexp.MustCompile(`[*_~]`), ""},
	{regexp.MustCompile(`(?m)[ \t]+$`), ""},
	{regexp.MustCompile(`\n{3,}`), "\n\n"},
}

// PlainText strips markdown syntax, keeping code, link labels and image alt
// text. It backs search indexing and previews.
func PlainText(src string) string {
	out := normalizeNewlines(src)
	for _, pass := range plainTextPasses {
		out = pass.pattern.ReplaceAllString(out, pass.repl)
	}
	return strings.TrimSpace(out)
}
