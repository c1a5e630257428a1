// internal/adapters/sources/mappers.go
package sources

import (
	"fmt"
	"strconv"
	"strings"

	"reviewscout/internal/domain"
	"reviewscout/internal/scrapeutil"
)

// Embedded review payloads differ per site, so each logical field maps
// from a list of aliases tried in order. Dot paths descend into nested
// objects ("reviewer.name").
var reviewAliases = map[string][]string{
	"id":       {"reviewId", "review_id", "id"},
	"title":    {"title", "headline", "review_title", "summary"},
	"body":     {"content", "body", "review_content", "description", "generalComments", "text", "comment"},
	"pros":     {"prosText", "pros"},
	"cons":     {"consText", "cons"},
	"date":     {"writtenOn", "date", "datePublished", "published_at", "created_at", "reviewDate"},
	"rating":   {"overallRating", "rating", "rating.value", "score", "stars", "overall_score"},
	"reviewer": {"reviewer.name", "reviewer", "author.name", "author", "userName", "user.name", "name"},
	"verified": {"verified", "isVerified", "verifiedReviewer"},
}

// reviewFromObject maps one decoded embedded-JSON object into a Review.
// Returns ok=false for shells with neither a body nor a title.
func reviewFromObject(obj map[string]any, pageURL, source string) (domain.Review, bool) {
	r := domain.Review{
		URL:    pageURL,
		Source: source,
		Extra:  map[string]any{},
	}

	r.Title = aliasStr(obj, "title")
	r.Description = aliasStr(obj, "body")
	if r.Description == "" {
		// Some payloads split the body into pros/cons only.
		pros, cons := aliasStr(obj, "pros"), aliasStr(obj, "cons")
		switch {
		case pros != "" && cons != "":
			r.Description = "Pros: " + pros + "\nCons: " + cons
		case pros != "":
			r.Description = pros
		case cons != "":
			r.Description = cons
		}
	}
	if r.Title == "" && r.Description == "" {
		return domain.Review{}, false
	}

	if raw := aliasStr(obj, "date"); raw != "" {
		if d, ok := scrapeutil.ParseDateFlexible(raw); ok {
			r.Date = scrapeutil.FormatDate(d)
		}
	}

	if v, ok := aliasFloat(obj, "rating"); ok {
		// Ten-point scales normalize down; five-point pass through.
		if v > 5 && v <= 10 {
			v /= 2
		}
		if v >= 0 && v <= 5 {
			val := v
			r.Rating = &val
		}
	}

	if name := aliasStr(obj, "reviewer"); name != "" {
		r.Reviewer = &name
	}

	if id := aliasStr(obj, "id"); id != "" {
		r.Extra["reviewId"] = id
	}
	if v, ok := aliasLookup(obj, "verified"); ok {
		if b, isBool := v.(bool); isBool {
			r.Extra["verified"] = b
		}
	}
	return r, true
}

// aliasLookup tries each alias for a logical field, first hit wins.
func aliasLookup(m map[string]any, field string) (any, bool) {
	for _, alias := range reviewAliases[field] {
		if v, ok := lookupPath(m, alias); ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func aliasStr(m map[string]any, field string) string {
	v, ok := aliasLookup(m, field)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return scrapeutil.StripText(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func aliasFloat(m map[string]any, field string) (float64, bool) {
	v, ok := aliasLookup(m, field)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f, true
		}
	case fmt.Stringer:
		if f, err := strconv.ParseFloat(t.String(), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// lookupPath descends a dot path through nested map[string]any values.
func lookupPath(m map[string]any, path string) (any, bool) {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		mm, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = mm[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
