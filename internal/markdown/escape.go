package markdown

import (
	"regexp"
	"strings"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
	"`", "&#96;",
)

// allowedScheme matches the URL schemes links and images may use.
var allowedScheme = regexp.MustCompile(`(?i)^(https?:|mailto:|tel:)`)

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

func escapeAttribute(s string) string {
	return attrEscaper.Replace(s)
}

// SanitizeURL returns an attribute-safe URL, or "#" when the URL uses a
// scheme other than http(s), mailto or tel and is not root-relative or a fragment.
func SanitizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	if allowedScheme.MatchString(u) || strings.HasPrefix(u, "/") || strings.HasPrefix(u, "#") {
		return escapeAttribute(u)
	}
	return "#"
}
