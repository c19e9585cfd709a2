package providers

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

func lower(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// capitalize upper-cases the first rune and lower-cases the rest, which
// is how category tags are rendered on records ("restaurant" ->
// "Restaurant").
func capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// formatRating renders a provider-native rating without normalizing it
// across providers; nil means the provider returned none.
func formatRating(r *float64) string {
	if r == nil {
		return ""
	}
	return strconv.FormatFloat(*r, 'f', -1, 64)
}

func formatCount(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
