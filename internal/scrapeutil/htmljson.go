package scrapeutil

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Embedded-JSON extraction: some sites inline their review payload as
// JSON inside script tags. We look for review-identifying key patterns
// in the raw HTML, walk outward to the enclosing object literal, and
// keep whatever parses as a plausible review object.

var reviewKeyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`reviewId`),
	regexp.MustCompile(`review_id`),
	regexp.MustCompile(`(?i)"id"[^{}]{0,80}review`),
	regexp.MustCompile(`(?i)review[^{}]{0,40}content`),
}

var contentKeys = []string{
	"title", "headline", "review_title", "content", "body",
	"review_content", "description", "generalComments", "prosText", "consText",
}

const (
	maxObjectScan   = 8192 // how far forward to brace-match
	maxBackScan     = 2048 // how far back to look for the opening brace
	maxCandidates   = 400  // pattern hits examined per page
	maxEmbeddedHits = 200  // accepted objects per page
)

// ExtractEmbeddedReviews scans raw HTML for inlined JSON review objects.
// Patterns are tried in order; the first one that yields any accepted
// object wins, matching the layered-fallback contract. Returns nil when
// nothing plausible is found.
func ExtractEmbeddedReviews(html string) []map[string]any {
	for _, pat := range reviewKeyPatterns {
		locs := pat.FindAllStringIndex(html, maxCandidates)
		if locs == nil {
			continue
		}
		var out []map[string]any
		seen := make(map[string]struct{})
		for _, loc := range locs {
			obj, raw, ok := objectAround(html, loc[0])
			if !ok {
				continue
			}
			if _, dup := seen[raw]; dup {
				continue
			}
			seen[raw] = struct{}{}
			if looksLikeReview(obj) {
				out = append(out, obj)
				if len(out) >= maxEmbeddedHits {
					break
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// objectAround locates and parses the JSON object enclosing pos.
func objectAround(html string, pos int) (map[string]any, string, bool) {
	start := pos
	floor := pos - maxBackScan
	if floor < 0 {
		floor = 0
	}
	for start > floor && html[start] != '{' {
		start--
	}
	if html[start] != '{' {
		return nil, "", false
	}

	// Brace-count forward, tracking string and escape state so braces
	// inside quoted values don't end the object early.
	depth := 0
	end := -1
	inString := false
	escaped := false
	limit := start + maxObjectScan
	if limit > len(html) {
		limit = len(html)
	}
	for i := start; i < limit; i++ {
		c := html[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					end = i + 1
				}
			}
		}
		if end != -1 {
			break
		}
	}
	if end == -1 {
		return nil, "", false
	}

	raw := html[start:end]
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		// Payloads embedded inside string literals arrive escaped.
		unescaped := strings.ReplaceAll(strings.ReplaceAll(raw, `\"`, `"`), `\\`, `\`)
		if err := json.Unmarshal([]byte(unescaped), &obj); err != nil {
			return nil, "", false
		}
		raw = unescaped
	}
	return obj, raw, true
}

// looksLikeReview requires both an identifier-like field and a
// content-like field, so bare config objects don't slip through.
func looksLikeReview(m map[string]any) bool {
	hasID := m["reviewId"] != nil || m["review_id"] != nil || m["id"] != nil
	if !hasID {
		return false
	}
	for _, k := range contentKeys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}
