// internal/adapters/sources/blocks.go
package sources

import (
	"regexp"
	"strconv"
	"strings"

	"reviewscout/internal/domain"
	"reviewscout/internal/scrapeutil"
)

// Last-resort extraction: when neither embedded JSON nor structural
// selectors produce anything, split the raw HTML on review-boundary
// markers and pull fields out of each block with regexes. Go's regexp
// has no lookahead, so boundaries are found by index and sliced.

var (
	headingRe  = regexp.MustCompile(`(?is)<h[1-6][^>]*>(.*?)</h[1-6]>`)
	timeAttrRe = regexp.MustCompile(`(?i)<time[^>]+datetime="([^"]+)"`)
	timeTextRe = regexp.MustCompile(`(?is)<time[^>]*>(.*?)</time>`)
	ariaStarRe = regexp.MustCompile(`(?i)aria-label="([\d.]+)\s*(?:out of|/)\s*(\d+)`)
	slashNumRe = regexp.MustCompile(`([\d.]+)\s*/\s*(\d+)\b`)
	dataRateRe = regexp.MustCompile(`(?i)data-rating="([\d.]+)"`)
	paraRe     = regexp.MustCompile(`(?is)<p[^>]*>(.*?)</p>`)
	bylineRe   = regexp.MustCompile(`(?i)(?:class="[^"]*(?:author|byline|reviewer|user-name)[^"]*"[^>]*>)([^<]{2,60})<`)
)

// blockConfig shapes how one source's fallback splits and filters.
type blockConfig struct {
	boundaries []*regexp.Regexp // first pattern with matches wins
	marker     string           // lowercase substring a block must contain
	bodyCap    int
	keep       func(block string, r *domain.Review) bool // optional relevance gate
}

func splitBlocks(html string, boundary *regexp.Regexp) []string {
	locs := boundary.FindAllStringIndex(html, -1)
	if len(locs) < 1 {
		return nil
	}
	blocks := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(html)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		blocks = append(blocks, html[loc[0]:end])
	}
	return blocks
}

func extractBlocks(html, pageURL, source string, cfg blockConfig) []domain.Review {
	html = scrapeutil.StripScripts(html)
	var blocks []string
	for _, b := range cfg.boundaries {
		if blocks = splitBlocks(html, b); len(blocks) > 0 {
			break
		}
	}
	if len(blocks) == 0 {
		return nil
	}

	limit := cfg.bodyCap
	if limit <= 0 {
		limit = 1000
	}

	var out []domain.Review
	for _, block := range blocks {
		if cfg.marker != "" && !containsFold(block, cfg.marker) {
			continue
		}
		r := domain.Review{URL: pageURL, Source: source, Extra: map[string]any{}}
		r.Title = blockTitle(block)
		r.Description = blockBody(block, limit)
		r.Date = blockDate(block)
		r.Rating = blockRating(block)
		if name := blockReviewer(block); name != "" {
			r.Reviewer = &name
		}
		if r.Description == "" && r.Title == "" {
			continue
		}
		if cfg.keep != nil && !cfg.keep(block, &r) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func blockTitle(block string) string {
	if m := headingRe.FindStringSubmatch(block); m != nil {
		t := scrapeutil.StripTags(m[1])
		if len(t) >= 3 && len(t) <= 200 {
			return t
		}
	}
	return ""
}

func blockDate(block string) string {
	if m := timeAttrRe.FindStringSubmatch(block); m != nil {
		if d, ok := scrapeutil.ParseDateFlexible(m[1]); ok {
			return scrapeutil.FormatDate(d)
		}
	}
	if m := timeTextRe.FindStringSubmatch(block); m != nil {
		if d, ok := scrapeutil.ParseDateFlexible(scrapeutil.StripTags(m[1])); ok {
			return scrapeutil.FormatDate(d)
		}
	}
	// Any recognizable date anywhere in the de-tagged block text.
	if d, ok := scrapeutil.ParseDateFlexible(scrapeutil.StripTags(block)); ok {
		return scrapeutil.FormatDate(d)
	}
	return ""
}

// blockRating reads a star rating from aria labels, data attributes, or
// an "x/5"-style fraction. Ten-point scales halve; nothing found is nil.
func blockRating(block string) *float64 {
	try := func(valStr, scaleStr string) *float64 {
		v, err := strconv.ParseFloat(valStr, 64)
		if err != nil {
			return nil
		}
		if scaleStr == "10" {
			v /= 2
		}
		if v < 0 || v > 5 {
			return nil
		}
		return &v
	}
	if m := ariaStarRe.FindStringSubmatch(block); m != nil {
		if p := try(m[1], m[2]); p != nil {
			return p
		}
	}
	if m := dataRateRe.FindStringSubmatch(block); m != nil {
		if p := try(m[1], "5"); p != nil {
			return p
		}
	}
	if m := slashNumRe.FindStringSubmatch(block); m != nil {
		if m[2] == "5" || m[2] == "10" {
			if p := try(m[1], m[2]); p != nil {
				return p
			}
		}
	}
	return nil
}

// blockBody joins substantial paragraph texts, capped at limit bytes.
func blockBody(block string, limit int) string {
	var parts []string
	total := 0
	for _, m := range paraRe.FindAllStringSubmatch(block, -1) {
		t := scrapeutil.StripTags(m[1])
		if len(t) < 30 {
			continue
		}
		parts = append(parts, t)
		total += len(t)
		if total >= limit {
			break
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return scrapeutil.Truncate(strings.Join(parts, " "), limit)
}

func blockReviewer(block string) string {
	if m := bylineRe.FindStringSubmatch(block); m != nil {
		name := scrapeutil.StripText(m[1])
		if len(name) >= 2 && len(name) <= 60 {
			return name
		}
	}
	return ""
}

// containsFold matches sub case-insensitively; sub must be lowercase.
func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), sub)
}
