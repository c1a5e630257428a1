// internal/adapters/sources/trustradius.go
package sources

import (
	"context"
	"errors"
	"iter"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"reviewscout/internal/domain"
	"reviewscout/internal/scrapeutil"
)

const trustRadiusBase = "https://www.trustradius.com"

// TrustRadius product slugs for known companies.
var trustRadiusProducts = map[string]string{
	"slack":           "slack",
	"notion":          "notion",
	"asana":           "asana",
	"trello":          "trello",
	"microsoft teams": "microsoft-teams",
	"monday":          "monday-com",
	"monday.com":      "monday-com",
	"clickup":         "clickup",
	"confluence":      "confluence",
	"zoom":            "zoom",
}

// Slug variants tried in order when the primary guess doesn't resolve.
var trustRadiusAlternatives = map[string][]string{
	"monday": {"monday-com", "monday"},
	"teams":  {"microsoft-teams"},
	"jira":   {"jira-software", "atlassian-jira"},
}

var trustRadiusBoundaries = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<article[^>]+class="[^"]*ReviewNew`),
	regexp.MustCompile(`(?i)<article\b`),
}

// Section headings that carry structured metadata, not review prose.
var trustRadiusSkipSections = []string{"use cases", "deployment", "scope"}

type TrustRadius struct {
	f    domain.Fetcher
	opts Options
}

func NewTrustRadius(f domain.Fetcher, opts Options) *TrustRadius {
	return &TrustRadius{f: f, opts: opts}
}

func (t *TrustRadius) Name() string { return domain.SourceTrustRadius }

func (t *TrustRadius) fetchOptions() *domain.FetchOptions {
	return &domain.FetchOptions{
		UseRelay: true,
		Headers:  map[string]string{"Referer": trustRadiusBase + "/"},
	}
}

// FindProduct tries the known slug, then alternative slugs, then a
// plain slugified guess, verifying each candidate until one serves a
// reviews listing.
func (t *TrustRadius) FindProduct(ctx context.Context, company string) (domain.ProductResolution, error) {
	key := strings.ToLower(strings.TrimSpace(company))

	var candidates []string
	if slug, known := trustRadiusProducts[key]; known {
		candidates = append(candidates, slug)
	}
	candidates = append(candidates, trustRadiusAlternatives[key]...)
	if guess := scrapeutil.Slugify(key); guess != "" {
		candidates = append(candidates, guess)
	}

	name := scrapeutil.DisplayName(company)
	var lastErr error
	tried := make(map[string]struct{})
	for _, slug := range candidates {
		if _, dup := tried[slug]; dup {
			continue
		}
		tried[slug] = struct{}{}
		url := trustRadiusBase + "/products/" + slug + "/reviews"
		if err := verifyReviewsPage(ctx, t.f, t.Name(), company, url, t.fetchOptions()); err != nil {
			lastErr = err
			continue
		}
		return domain.ProductResolution{ProductName: name, ReviewsURL: url}, nil
	}
	if lastErr == nil {
		// Name with no usable slug at all, e.g. pure punctuation.
		lastErr = &domain.SourceError{
			Source: t.Name(), Company: company,
			Err: errors.New("no candidate product slug"),
		}
	}
	return domain.ProductResolution{}, lastErr
}

// Reviews fetches the listing once; TrustRadius renders its full review
// set server-side on the first page, so there is no pagination walk.
func (t *TrustRadius) Reviews(ctx context.Context, reviewsURL string, maxPages int) iter.Seq2[domain.Review, error] {
	_ = maxPages
	strategies := []strategy{
		embeddedJSONStrategy(t.Name()),
		{name: "structural", run: t.extractStructural},
		{name: "block-regex", run: func(html, pageURL string) []domain.Review {
			return extractBlocks(html, pageURL, t.Name(), blockConfig{
				boundaries: trustRadiusBoundaries,
				bodyCap:    1000,
			})
		}},
	}
	return func(yield func(domain.Review, error) bool) {
		html, err := t.f.FetchText(ctx, reviewsURL, t.fetchOptions())
		if err != nil {
			yield(domain.Review{}, err)
			return
		}
		for _, r := range extractFirst(t.Name(), strategies, html, reviewsURL) {
			if !yield(r, nil) {
				return
			}
		}
	}
}

// extractStructural walks ReviewNew article cards: linked h4 title, a
// ten-point data-rating halved to five, a two-line byline, and section
// prose joined with " | " (skipping the Likelihood to Recommend block
// and metadata sections).
func (t *TrustRadius) extractStructural(html, pageURL string) []domain.Review {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var out []domain.Review
	doc.Find(`article[class*="ReviewNew"]`).Each(func(_ int, s *goquery.Selection) {
		r := domain.Review{URL: pageURL, Source: t.Name(), Extra: map[string]any{"verified": true}}

		if title := scrapeutil.StripText(s.Find("header h4 a").First().Text()); title != "" {
			r.Title = title
		} else if title := firstText(s, "h4", "h3"); title != "" {
			r.Title = title
		}

		if attr, ok := s.Find("[data-rating]").First().Attr("data-rating"); ok {
			if v := parseTenPoint(attr); v != nil {
				r.Rating = v
			}
		}

		if d, ok := scrapeutil.ParseDateFlexible(firstText(s, `[class*="Header_date"]`, "time", `[class*="date"]`)); ok {
			r.Date = scrapeutil.FormatDate(d)
		}

		if byline := t.bylineText(s); byline != "" {
			r.Reviewer = &byline
		}

		r.Description = t.sectionText(s)
		if len(r.Description) < 30 {
			return
		}
		out = append(out, r)
	})
	return out
}

// bylineText joins the reviewer's name line and role/company line.
func (t *TrustRadius) bylineText(s *goquery.Selection) string {
	sel := s.Find(`[class*="Byline"]`).First()
	if sel.Length() == 0 {
		return ""
	}
	var lines []string
	for _, line := range strings.Split(sel.Text(), "\n") {
		if l := scrapeutil.StripText(line); l != "" {
			lines = append(lines, l)
		}
		if len(lines) == 2 {
			break
		}
	}
	joined := strings.Join(lines, ", ")
	if len(joined) > 120 {
		joined = scrapeutil.Truncate(joined, 120)
	}
	return joined
}

// sectionText collects review prose from the card's sections.
func (t *TrustRadius) sectionText(s *goquery.Selection) string {
	var sections []string
	s.Find("section").Each(func(_ int, sec *goquery.Selection) {
		heading := strings.ToLower(firstText(sec, "h5", "h6", `[class*="heading"]`))
		if strings.Contains(heading, "likelihood to recommend") {
			return
		}
		for _, skip := range trustRadiusSkipSections {
			if strings.Contains(heading, skip) {
				return
			}
		}
		var lines []string
		for _, line := range strings.Split(sec.Text(), "\n") {
			l := scrapeutil.StripText(line)
			if len(l) <= 20 {
				continue
			}
			low := strings.ToLower(l)
			keep := true
			for _, skip := range trustRadiusSkipSections {
				if strings.HasPrefix(low, skip) {
					keep = false
					break
				}
			}
			if keep {
				lines = append(lines, l)
			}
		}
		if len(lines) > 0 {
			sections = append(sections, strings.Join(lines, " "))
		}
	})
	if len(sections) == 0 {
		// Flat cards without <section> wrappers.
		s.Find("p").Each(func(_ int, p *goquery.Selection) {
			if txt := scrapeutil.StripText(p.Text()); len(txt) > 20 {
				sections = append(sections, txt)
			}
		})
	}
	return scrapeutil.Truncate(strings.Join(sections, " | "), 1000)
}

// parseTenPoint halves a ten-point rating string to the five-point
// scale. Absent or malformed input is nil, never zero.
func parseTenPoint(attr string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(attr), 64)
	if err != nil {
		return nil
	}
	v /= 2
	if v < 0 || v > 5 {
		return nil
	}
	return &v
}
