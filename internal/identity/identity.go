// Package identity derives user identifiers and display names from email
// addresses.
package identity

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/badoux/checkmail"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	userIDPrefix   = "user-"
	maxSlugLength  = 40
	fallbackSlug   = "user"
	fallbackName   = "Member"
	defaultNameSep = "._-"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks the address syntax.
func ValidateEmail(email string) error {
	return checkmail.ValidateFormat(email)
}

// LocalPart returns the part of email before the last "@".
func LocalPart(email string) string {
	email = NormalizeEmail(email)
	if i := strings.LastIndex(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}

// UserIDFromEmail derives a stable user id from the local part of email:
// diacritics removed, non-alphanumeric runs collapsed to "-", at most 40
// characters. "João.Silva@x.pt" becomes "user-joao-silva".
func UserIDFromEmail(email string) string {
	return userIDPrefix + Slug(LocalPart(email))
}

// Slug lower-cases s, strips diacritics and joins alphanumeric runs with "-".
// It returns "user" when nothing is left.
func Slug(s string) string {
	stripped, _, err := transform.String(
		transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		strings.ToLower(s),
	)
	if err != nil {
		stripped = strings.ToLower(s)
	}

	slug := strings.Trim(nonAlphanumeric.ReplaceAllString(stripped, "-"), "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	if slug == "" {
		return fallbackSlug
	}
	return slug
}

// DisplayNameFromEmail capitalizes the first segment of the local part, split
// on ".", "_" and "-". "maria_luisa@x" becomes "Maria".
func DisplayNameFromEmail(email string) string {
	parts := strings.FieldsFunc(LocalPart(email), func(r rune) bool {
		return strings.ContainsRune(defaultNameSep, r)
	})
	if len(parts) == 0 {
		return fallbackName
	}
	// Casers are stateful and must not be shared between goroutines.
	return cases.Title(language.Und).String(parts[0])
}
