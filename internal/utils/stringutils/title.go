package stringutils

import (
	"regexp"
	"strings"
)

const ellipsis = "..."

var (
	wrappingQuotesPattern = regexp.MustCompile(`^["']|["']$`)
	multiSpacePattern     = regexp.MustCompile(`\s+`)
)

// TruncateTitle caps title at maxLen runes. Longer input keeps its first maxLen-3 runes followed by "...".
func TruncateTitle(title string, maxLen int) string {
	runes := []rune(title)
	if len(runes) <= maxLen {
		return title
	}

	contentLimit := maxLen - len(ellipsis)
	if contentLimit < 0 {
		contentLimit = 0
	}
	return string(runes[:contentLimit]) + ellipsis
}

// StripWrappingQuotes removes one leading and one trailing quote character.
func StripWrappingQuotes(s string) string {
	return wrappingQuotesPattern.ReplaceAllString(s, "")
}

// PreviewText returns the first maxLen runes of s with "..." appended when it was cut.
func PreviewText(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + ellipsis
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims the ends.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(multiSpacePattern.ReplaceAllString(s, " "))
}
