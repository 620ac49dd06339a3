// package slug derives unique, URL-safe public identifiers from display names.
package slug

import (
	"fmt"
	"regexp"
	"strings"
)

// Fallback is the slug used when normalization strips a display name down to nothing.
const Fallback = "user"

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Normalize lowercases the input, collapses every run of non-alphanumeric
// characters to a single hyphen, and strips leading/trailing hyphens.
// An input that normalizes to the empty string yields [Fallback].
func Normalize(base string) string {
	s := strings.ToLower(base)
	s = nonSlugChars.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return Fallback
	}
	return s
}

// HolderIndex resolves the account currently holding a slug.
//
// Implementations return the holder's account ID, or the empty string when
// the slug is unclaimed.
type HolderIndex interface {
	HolderID(slug string) (string, error)
}

// Allocator derives unique slugs against a [HolderIndex].
//
// Allocation is purely advisory: the result is only reserved once the caller
// persists it, so concurrent allocations can race. The store's uniqueness
// constraint catches the loser.
type Allocator struct {
	holders HolderIndex
}

// NewAllocator creates an Allocator backed by the given index.
func NewAllocator(holders HolderIndex) *Allocator {
	return &Allocator{holders: holders}
}

// Allocate returns a unique slug derived from baseText.
//
// The normalized base is probed first; on collision a numeric suffix (-1, -2,
// ...) is appended until an unclaimed candidate is found. A slug held by
// excludeID (the re-authorizing account itself) counts as unclaimed.
func (a *Allocator) Allocate(baseText, excludeID string) (string, error) {
	base := Normalize(baseText)

	candidate := base
	for suffix := 1; ; suffix++ {
		holder, err := a.holders.HolderID(candidate)
		if err != nil {
			return "", fmt.Errorf("failed to probe slug %q: %w", candidate, err)
		}

		if holder == "" || (excludeID != "" && holder == excludeID) {
			return candidate, nil
		}

		candidate = fmt.Sprintf("%s-%d", base, suffix)
	}
}
