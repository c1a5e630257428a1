// internal/adapters/sources/dom.go
package sources

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"reviewscout/internal/scrapeutil"
)

var starTextRe = regexp.MustCompile(`(?i)([\d.]+)\s*(?:out of|/)\s*(\d+)`)

// firstText returns the first selector's first non-empty text, tried in
// order within the selection.
func firstText(s *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		if t := scrapeutil.StripText(s.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

// ratingFromSelection reads a star rating off a DOM fragment: aria
// labels ("4.5 out of 5"), data-rating attributes, then bare "x/5" text.
// Ten-point scales halve to five. Nothing recognizable is nil, never 0.
func ratingFromSelection(s *goquery.Selection) *float64 {
	norm := func(v, scale float64) *float64 {
		if scale == 10 {
			v /= 2
		}
		if v < 0 || v > 5 {
			return nil
		}
		return &v
	}

	var found *float64
	s.Find("[aria-label]").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		label, _ := el.Attr("aria-label")
		if m := starTextRe.FindStringSubmatch(label); m != nil {
			v, err1 := strconv.ParseFloat(m[1], 64)
			scale, err2 := strconv.ParseFloat(m[2], 64)
			if err1 == nil && err2 == nil {
				found = norm(v, scale)
			}
		}
		return found == nil
	})
	if found != nil {
		return found
	}

	if attr, ok := s.Find("[data-rating]").First().Attr("data-rating"); ok {
		if v, err := strconv.ParseFloat(strings.TrimSpace(attr), 64); err == nil {
			return norm(v, 5)
		}
	}
	if attr, ok := s.Attr("data-rating"); ok {
		if v, err := strconv.ParseFloat(strings.TrimSpace(attr), 64); err == nil {
			return norm(v, 5)
		}
	}

	if m := slashNumRe.FindStringSubmatch(s.Text()); m != nil {
		v, err1 := strconv.ParseFloat(m[1], 64)
		scale, err2 := strconv.ParseFloat(m[2], 64)
		if err1 == nil && err2 == nil && (scale == 5 || scale == 10) {
			return norm(v, scale)
		}
	}
	return nil
}
