// internal/adapters/sources/g2.go
package sources

import (
	"context"
	"fmt"
	"iter"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"reviewscout/internal/domain"
	"reviewscout/internal/scrapeutil"
)

const g2Base = "https://www.g2.com"

// Known company-to-slug mappings; anything else falls back to a
// slugified guess verified by fetching the page.
var g2Slugs = map[string]string{
	"notion":     "notion",
	"slack":      "slack",
	"zoom":       "zoom",
	"monday.com": "monday-com",
	"monday":     "monday-com",
	"asana":      "asana",
	"trello":     "trello",
	"jira":       "jira-software",
	"salesforce": "salesforce-sales-cloud",
}

// G2 listing pages interleave real reviews with promotional copy; a
// paragraph containing any of these is never a review.
var g2PromoPhrases = []string{
	"thousands of people",
	"come to g2 to find out",
	"share your real experiences",
	"product details",
	"canceldone",
	"linkedin®",
	"visit website",
	"product website",
}

// Conversely, a genuine review paragraph mentions at least one of these.
var g2ReviewHints = []string{
	"using", "software", "experience", "recommend", "great", "love",
	"issue", "pros", "cons", "helpful", "team", "work", "like best", "dislike",
}

const g2CollectedSuffix = " Review collected by and hosted on G2.com."

var g2Boundaries = []*regexp.Regexp{
	regexp.MustCompile(`data-review-id=`),
	regexp.MustCompile(`(?i)<article\b`),
}

type G2 struct {
	f    domain.Fetcher
	opts Options
}

func NewG2(f domain.Fetcher, opts Options) *G2 { return &G2{f: f, opts: opts} }

func (g *G2) Name() string { return domain.SourceG2 }

func (g *G2) fetchOptions() *domain.FetchOptions {
	return &domain.FetchOptions{
		UseRelay: true,
		Headers:  map[string]string{"Referer": g2Base + "/"},
	}
}

func (g *G2) FindProduct(ctx context.Context, company string) (domain.ProductResolution, error) {
	key := strings.ToLower(strings.TrimSpace(company))
	slug, known := g2Slugs[key]
	if !known {
		slug = scrapeutil.Slugify(key)
	}
	res := domain.ProductResolution{
		ProductName: scrapeutil.DisplayName(company),
		ReviewsURL:  g2Base + "/products/" + slug + "/reviews",
	}
	if err := verifyReviewsPage(ctx, g.f, g.Name(), company, res.ReviewsURL, g.fetchOptions()); err != nil {
		return domain.ProductResolution{}, err
	}
	return res, nil
}

// Reviews walks ?page=N until a page yields nothing or maxPages is hit.
// Records deduplicate across pages on the leading 100 bytes of the body,
// since G2 repeats featured reviews on later pages.
func (g *G2) Reviews(ctx context.Context, reviewsURL string, maxPages int) iter.Seq2[domain.Review, error] {
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	strategies := []strategy{
		embeddedJSONStrategy(g.Name()),
		{name: "structural", run: g.extractStructural},
		{name: "block-regex", run: g.extractBlockwise},
	}
	return func(yield func(domain.Review, error) bool) {
		seen := make(map[string]struct{})
		for page := 1; page <= maxPages; page++ {
			pageURL := fmt.Sprintf("%s?page=%d", reviewsURL, page)
			html, err := g.f.FetchText(ctx, pageURL, g.fetchOptions())
			if err != nil {
				yield(domain.Review{}, err)
				return
			}
			recs := extractFirst(g.Name(), strategies, html, pageURL)
			fresh := 0
			for _, r := range recs {
				key := dedupKey(r.Description)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				fresh++
				if !yield(r, nil) {
					return
				}
			}
			if fresh == 0 {
				return
			}
			if page < maxPages && !g.opts.pause(ctx) {
				return
			}
		}
	}
}

func dedupKey(body string) string {
	if len(body) > 100 {
		body = body[:100]
	}
	return body
}

// g2Genuine rejects promotional page chrome and accepts text that reads
// like a review. Applied to every candidate body regardless of strategy.
func g2Genuine(text string) bool {
	low := strings.ToLower(text)
	for _, p := range g2PromoPhrases {
		if strings.Contains(low, p) {
			return false
		}
	}
	for _, h := range g2ReviewHints {
		if strings.Contains(low, h) {
			return true
		}
	}
	return false
}

func stripG2Suffix(text string) string {
	return strings.TrimSpace(strings.TrimSuffix(text, g2CollectedSuffix))
}

// extractStructural parses the DOM. Review containers are tried first;
// when the page exposes none, substantial paragraphs that pass the
// genuineness filter are treated as standalone review bodies.
func (g *G2) extractStructural(html, pageURL string) []domain.Review {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var out []domain.Review
	for _, containerSel := range []string{"[data-review-id]", `div[itemprop="review"]`, "article"} {
		doc.Find(containerSel).Each(func(_ int, s *goquery.Selection) {
			r := g.reviewFromContainer(s, pageURL)
			if r.Empty() {
				return
			}
			out = append(out, r)
		})
		if len(out) > 0 {
			return out
		}
	}

	// Paragraph mode: no containers, harvest loose review text.
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		text := stripG2Suffix(scrapeutil.StripText(s.Text()))
		if len(text) < 50 || len(text) > 800 || !g2Genuine(text) {
			return
		}
		out = append(out, domain.Review{
			Description: scrapeutil.Truncate(text, 1000),
			URL:         pageURL,
			Source:      g.Name(),
			Extra:       map[string]any{},
		})
	})
	return out
}

func (g *G2) reviewFromContainer(s *goquery.Selection, pageURL string) domain.Review {
	r := domain.Review{URL: pageURL, Source: g.Name(), Extra: map[string]any{}}

	if t := firstText(s, `[itemprop="name"]`, "h3", "h2", `[class*="title"]`); t != "" && len(t) <= 200 {
		r.Title = t
	}

	body := firstText(s, `[itemprop="reviewBody"]`, `[class*="review-body"]`, `[class*="content"]`)
	if body == "" {
		var parts []string
		s.Find("p").Each(func(_ int, p *goquery.Selection) {
			if t := scrapeutil.StripText(p.Text()); len(t) >= 30 {
				parts = append(parts, t)
			}
		})
		body = strings.Join(parts, " ")
	}
	body = stripG2Suffix(body)
	if body != "" && g2Genuine(body) {
		r.Description = scrapeutil.Truncate(body, 1000)
	} else if body != "" {
		return domain.Review{} // promo block dressed as a review
	}

	if dt, ok := s.Find("time").First().Attr("datetime"); ok {
		if d, parsed := scrapeutil.ParseDateFlexible(dt); parsed {
			r.Date = scrapeutil.FormatDate(d)
		}
	}
	if r.Date == "" {
		if d, ok := scrapeutil.ParseDateFlexible(firstText(s, "time", `[class*="date"]`)); ok {
			r.Date = scrapeutil.FormatDate(d)
		}
	}

	r.Rating = ratingFromSelection(s)

	if name := firstText(s, `[itemprop="author"]`, `[class*="author"]`, `[class*="user-name"]`); name != "" && len(name) <= 60 {
		r.Reviewer = &name
	}
	return r
}

func (g *G2) extractBlockwise(html, pageURL string) []domain.Review {
	recs := extractBlocks(html, pageURL, g.Name(), blockConfig{
		boundaries: g2Boundaries,
		bodyCap:    1000,
		keep: func(_ string, r *domain.Review) bool {
			r.Description = stripG2Suffix(r.Description)
			return r.Description == "" || g2Genuine(r.Description)
		},
	})
	return recs
}
