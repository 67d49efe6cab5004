package common

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrEmptySlug = errors.New("slug cannot be empty")
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slug lowercases s and collapses every run of other characters to a hyphen.
// Template types, file names and cache keys all use this form.
func Slug(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	return strings.Trim(nonSlugChars.ReplaceAllString(lower, "-"), "-")
}

// Slugify is Slug with a fallback, failing when both come out empty.
func Slugify(input, fallback string) (string, error) {
	slug := Slug(input)
	if slug == "" {
		slug = Slug(fallback)
	}
	if slug == "" {
		return "", ErrEmptySlug
	}
	return slug, nil
}
