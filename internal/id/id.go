// Package id generates the prefixed identifiers used for every Forge entity.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Entity prefixes.
const (
	PrefixSpace       = "space"
	PrefixTeam        = "team"
	PrefixUser        = "user"
	PrefixBoard       = "board"
	PrefixColumn      = "col"
	PrefixCard        = "card"
	PrefixComment     = "cmt"
	PrefixPage        = "page"
	PrefixPageVersion = "pver"
	PrefixShareToken  = "share"
	PrefixSSEClient   = "sse"
)

// Generate returns prefix + "-" + a 21 character URL-safe nanoid,
// e.g. "card-V1StGXR8_Z5jdHi6B-myT".
func Generate(prefix string) (string, error) {
	n, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + n, nil
}

// MustGenerate is Generate that panics when the system runs out of entropy.
func MustGenerate(prefix string) string {
	v, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return v
}

// Short returns prefix + "-" + a short lowercase suffix, used for
// human-facing identifiers such as space and team ids.
func Short(prefix string) (string, error) {
	n, err := gonanoid.Generate("0123456789abcdefghijklmnopqrstuvwxyz", 8)
	if err != nil {
		return "", fmt.Errorf("generate short id: %w", err)
	}
	return prefix + "-" + n, nil
}
