package markdown

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	codeSpanPattern = regexp.MustCompile("`([^`]+)`")
	imagePattern    = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)
	linkPattern     = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)

	emphasisPasses = []struct {
		pattern *regexp.Regexp
		repl    string
	}{
		{regexp.MustCompile(`\*\*([^*]+)\*\*`), "<strong>$1</strong>"},
		{regexp.MustCompile(`__([^_]+)__`), "<strong>$1</strong>"},
		{regexp.MustCompile(`\*([^*\n]+)\*`), "<em>$1</em>"},
		{regexp.MustCompile(`_([^_\n]+)_`), "<em>$1</em>"},
		{regexp.MustCompile(`~~([^~]+)~~`), "<del>$1</del>"},
	}

	placeholderPattern = regexp.MustCompile(tokenOpen + "([0-9]+)" + tokenClose)
)

// Placeholder delimiters (Unicode private-use runes).
const (
	tokenOpen  = "\uE000"
	tokenClose = "\uE001"
)

// protector swaps finished HTML fragments for opaque placeholders so later
// passes cannot re-process them. Placeholders use private-use runes that
// neither the escaper nor the emphasis patterns touch.
type protector struct {
	fragments []string
}

func (p *protector) protect(fragment string) string {
	p.fragments = append(p.fragments, fragment)
	return tokenOpen + strconv.Itoa(len(p.fragments)-1) + tokenClose
}

// restore substitutes fragments back in. A fragment may itself hold an earlier
// placeholder (a code span inside a link label), so it repeats until stable.
func (p *protector) restore(s string) string {
	for range len(p.fragments) + 1 {
		if !strings.Contains(s, tokenOpen) {
			return s
		}
		s = placeholderPattern.ReplaceAllStringFunc(s, func(m string) string {
			i, err := strconv.Atoi(m[len(tokenOpen) : len(m)-len(tokenClose)])
			if err != nil || i >= len(p.fragments) {
				return ""
			}
			return p.fragments[i]
		})
	}
	return s
}

// formatInline renders one line of inline markdown to HTML. Raw text is
// escaped exactly once; code spans, images and links are rendered first and
// protected from the emphasis passes.
func formatInline(text string) string {
	// Drop stray placeholder runes from user input.
	text = strings.NewReplacer(tokenOpen, "", tokenClose, "").Replace(text)

	var p protector

	text = codeSpanPattern.ReplaceAllStringFunc(text, func(m string) string {
		code := codeSpanPattern.FindStringSubmatch(m)[1]
		return p.protect("<code>" + escapeHTML(code) + "</code>")
	})

	text = imagePattern.ReplaceAllStringFunc(text, func(m string) string {
		parts := imagePattern.FindStringSubmatch(m)
		return p.protect(`<img src="` + SanitizeURL(parts[2]) + `" alt="` + escapeAttribute(parts[1]) + `" />`)
	})

	text = linkPattern.ReplaceAllStringFunc(text, func(m string) string {
		parts := linkPattern.FindStringSubmatch(m)
		return p.protect(`<a href="` + SanitizeURL(parts[2]) + `" target="_blank" rel="noopener noreferrer">` +
			escapeHTML(parts[1]) + `</a>`)
	})

	text = escapeHTML(text)
	for _, pass := range emphasisPasses {
		text = pass.pattern.ReplaceAllString(text, pass.repl)
	}

	return p.restore(text)
}
