package util

import (
	"math/rand"
	"strings"
	"unicode"
)

const slugSuffixChars = "abcdefghijklmnopqrstuvwxyz0123456789"

// Slugify converts a display name into a URL-safe slug
func Slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}

// RandomSuffix generates a short random alphanumeric suffix, used to
// disambiguate duplicate slugs
func RandomSuffix(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = slugSuffixChars[rand.Intn(len(slugSuffixChars))]
	}
	return string(b)
}
