package scrapeutil

import (
	"regexp"
	"strings"
)

var (
	tagRe      = regexp.MustCompile(`<[^>]*>`)
	scriptRe   = regexp.MustCompile(`(?is)<script[\s\S]*?</script>`)
	nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)
	dashRunRe  = regexp.MustCompile(`-+`)
)

// StripText collapses all whitespace runs to single spaces and trims.
func StripText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// StripTags removes HTML tags, leaving de-tagged text (not entity-decoded).
func StripTags(s string) string {
	return StripText(tagRe.ReplaceAllString(s, " "))
}

// StripScripts removes whole <script> blocks before de-tagging.
func StripScripts(s string) string {
	return scriptRe.ReplaceAllString(s, " ")
}

// Slugify derives a URL-safe slug from a company name: lowercased,
// non-alphanumerics collapsed to single dashes, edges trimmed.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = nonAlnumRe.ReplaceAllString(s, "-")
	s = dashRunRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// TitleCase renders a display name from a lowercased company string.
func TitleCase(name string) string {
	fields := strings.Fields(name)
	for i, f := range fields {
		fields[i] = strings.ToUpper(f[:1]) + f[1:]
	}
	return strings.Join(fields, " ")
}

// DisplayName renders a human-facing product name from free-form user
// input: punctuation becomes spaces, words are capitalized.
func DisplayName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = nonAlnumRe.ReplaceAllString(s, " ")
	return TitleCase(s)
}

// Truncate caps s at n bytes without splitting a word when avoidable.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	if i := strings.LastIndexByte(cut, ' '); i > n/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}
