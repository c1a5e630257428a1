// internal/adapters/sources/capterra.go
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

const capterraBase = "https://www.capterra.com"

// Capterra addresses known products by numeric ID plus a display slug;
// unknown companies fall back to the /software/ path with a guessed slug.
var capterraProducts = map[string]struct {
	ID   int
	Slug string
}{
	"notion":     {186596, "Notion"},
	"slack":      {158654, "Slack"},
	"zoom":       {162994, "Zoom"},
	"monday.com": {157846, "monday-com"},
	"monday":     {157846, "monday-com"},
	"asana":      {136067, "Asana"},
	"trello":     {123024, "Trello"},
	"jira":       {132322, "Jira"},
	"salesforce": {132495, "Salesforce"},
}

var capterraBoundaries = []*regexp.Regexp{
	regexp.MustCompile(`(?i)data-test(?:id)?="review`),
	regexp.MustCompile(`(?i)<div[^>]+class="[^"]*review-card`),
	regexp.MustCompile(`(?i)<article\b`),
}

type Capterra struct {
	f    domain.Fetcher
	opts Options
}

func NewCapterra(f domain.Fetcher, opts Options) *Capterra { return &Capterra{f: f, opts: opts} }

func (c *Capterra) Name() string { return domain.SourceCapterra }

func (c *Capterra) fetchOptions() *domain.FetchOptions {
	return &domain.FetchOptions{
		UseRelay: true,
		Headers:  map[string]string{"Referer": capterraBase + "/"},
	}
}

func (c *Capterra) FindProduct(ctx context.Context, company string) (domain.ProductResolution, error) {
	key := strings.ToLower(strings.TrimSpace(company))
	var reviewsURL string
	if p, known := capterraProducts[key]; known {
		reviewsURL = fmt.Sprintf("%s/p/%d/%s/reviews/", capterraBase, p.ID, p.Slug)
	} else {
		reviewsURL = capterraBase + "/software/" + scrapeutil.Slugify(key) + "/reviews/"
	}
	res := domain.ProductResolution{
		ProductName: scrapeutil.DisplayName(company),
		ReviewsURL:  reviewsURL,
	}
	if err := verifyReviewsPage(ctx, c.f, c.Name(), company, reviewsURL, c.fetchOptions()); err != nil {
		return domain.ProductResolution{}, err
	}
	return res, nil
}

func (c *Capterra) Reviews(ctx context.Context, reviewsURL string, maxPages int) iter.Seq2[domain.Review, error] {
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	strategies := []strategy{
		embeddedJSONStrategy(c.Name()),
		{name: "structural", run: c.extractStructural},
		{name: "block-regex", run: func(html, pageURL string) []domain.Review {
			return extractBlocks(html, pageURL, c.Name(), blockConfig{
				boundaries: capterraBoundaries,
				marker:     "review",
				bodyCap:    1000,
			})
		}},
	}
	return func(yield func(domain.Review, error) bool) {
		for page := 1; page <= maxPages; page++ {
			pageURL := fmt.Sprintf("%s?page=%d", reviewsURL, page)
			html, err := c.f.FetchText(ctx, pageURL, c.fetchOptions())
			if err != nil {
				yield(domain.Review{}, err)
				return
			}
			recs := extractFirst(c.Name(), strategies, html, pageURL)
			if len(recs) == 0 {
				return
			}
			for _, r := range recs {
				if !yield(r, nil) {
					return
				}
			}
			if page < maxPages && !c.opts.pause(ctx) {
				return
			}
		}
	}
}

// extractStructural walks Capterra's review cards. Card markup shifts
// between experiments, so container and field selectors are candidate
// lists, most specific first.
func (c *Capterra) extractStructural(html, pageURL string) []domain.Review {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var out []domain.Review
	for _, containerSel := range []string{
		`[data-testid="review-card"]`,
		`div[class*="review-card"]`,
		`div[itemprop="review"]`,
		"article",
	} {
		doc.Find(containerSel).Each(func(_ int, s *goquery.Selection) {
			r := c.reviewFromCard(s, pageURL)
			if !r.Empty() {
				out = append(out, r)
			}
		})
		if len(out) > 0 {
			break
		}
	}
	return out
}

func (c *Capterra) reviewFromCard(s *goquery.Selection, pageURL string) domain.Review {
	r := domain.Review{URL: pageURL, Source: c.Name(), Extra: map[string]any{}}

	if t := firstText(s, "h3", "h4", `[class*="title"]`); t != "" && len(t) <= 200 {
		r.Title = t
	}

	// Prefer the overall-comments section; otherwise stitch pros/cons.
	body := firstText(s, `[data-testid="general-comments"]`, `[itemprop="reviewBody"]`, `[class*="comments"]`)
	if body == "" {
		pros := firstText(s, `[data-testid="pros"]`, `[class*="pros"]`)
		cons := firstText(s, `[data-testid="cons"]`, `[class*="cons"]`)
		switch {
		case pros != "" && cons != "":
			body = "Pros: " + pros + "\nCons: " + cons
		case pros != "":
			body = pros
		case cons != "":
			body = cons
		}
	}
	if body == "" {
		var parts []string
		s.Find("p").Each(func(_ int, p *goquery.Selection) {
			if t := scrapeutil.StripText(p.Text()); len(t) >= 30 {
				parts = append(parts, t)
			}
		})
		body = strings.Join(parts, " ")
	}
	if body != "" {
		r.Description = scrapeutil.Truncate(body, 1000)
	}

	if dt, ok := s.Find("time").First().Attr("datetime"); ok {
		if d, parsed := scrapeutil.ParseDateFlexible(dt); parsed {
			r.Date = scrapeutil.FormatDate(d)
		}
	}
	if r.Date == "" {
		if d, ok := scrapeutil.ParseDateFlexible(firstText(s, "time", `[class*="date"]`, `[class*="posted"]`)); ok {
			r.Date = scrapeutil.FormatDate(d)
		}
	}

	r.Rating = ratingFromSelection(s)

	if name := firstText(s, `[data-testid="reviewer-name"]`, `[itemprop="author"]`, `[class*="reviewer"]`); name != "" && len(name) <= 60 {
		r.Reviewer = &name
	}
	return r
}
