// internal/adapters/sources/mock.go
package sources

import (
	"context"
	"fmt"
	"hash/fnv"
	"iter"
	"math/rand/v2"
	"sort"
	"time"

	"reviewscout/internal/domain"
	"reviewscout/internal/scrapeutil"
)

// Mock generates plausible review data without touching the network,
// for demos and for exercising the pipeline when real sites block.
// Output is deterministic for a given company and date range.
type Mock struct {
	opts       Options
	start, end time.Time
	product    string
}

func NewMock(opts Options) *Mock {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	return &Mock{opts: opts, start: end.AddDate(0, 0, -90), end: end}
}

func (m *Mock) Name() string { return domain.SourceMock }

// SetDateRange constrains generated dates; callers that know the
// requested window set it before iterating.
func (m *Mock) SetDateRange(start, end time.Time) {
	if !start.After(end) {
		m.start, m.end = start, end
	}
}

func (m *Mock) FindProduct(_ context.Context, company string) (domain.ProductResolution, error) {
	m.product = scrapeutil.DisplayName(company)
	return domain.ProductResolution{
		ProductName: m.product,
		ReviewsURL:  "https://demo.reviewscout.dev/" + scrapeutil.Slugify(company) + "/reviews",
	}, nil
}

type mockTemplate struct {
	title, body string
	rating      float64
}

var mockTemplates = []mockTemplate{
	{"Absolutely transformed how our team works", "%s has become the backbone of our daily operations. Setup took an afternoon and adoption across the team was painless. The keyboard shortcuts alone save me an hour a week.", 5.0},
	{"Best tool in its category, hands down", "We evaluated four competitors before settling on %s and haven't looked back. The integrations with our existing stack just work, and support answered our onboarding questions within hours.", 4.5},
	{"Solid choice with a few rough edges", "%s does what it promises for the core workflows. Reporting could be more flexible and the mobile app lags behind the desktop experience, but for the price it's a fair deal.", 4.0},
	{"Good product, steep learning curve", "There's a lot to like about %s once you get past the initial complexity. New team members need a week or two before they're productive. Documentation has improved recently.", 3.5},
	{"Does the job, nothing more", "%s covers the basics fine. We hit some friction with permissions management and the search can be slow on large workspaces. Works, but doesn't delight.", 3.0},
	{"Frustrating performance issues lately", "We've been using %s for two years and the last few releases introduced noticeable slowdowns. Core features still work but the polish has slipped. Considering alternatives at renewal.", 2.0},
}

var mockReviewers = []string{
	"Sarah M.", "James T.", "Priya K.", "Miguel R.", "Anna L.",
	"David W.", "Chen X.", "Olivia B.", "Tomás F.", "Nadia S.",
}

var mockCompanySizes = []string{"1-10", "11-50", "51-200", "201-1000", "1000+"}

var mockIndustries = []string{
	"Software", "Marketing", "Finance", "Healthcare",
	"Education", "Retail", "Consulting", "Manufacturing",
}

// Reviews yields generated records newest first, in pages of ten.
// Volume scales with the window length: one review per three days,
// clamped to [20, 150], further capped by maxPages.
func (m *Mock) Reviews(ctx context.Context, reviewsURL string, maxPages int) iter.Seq2[domain.Review, error] {
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	return func(yield func(domain.Review, error) bool) {
		days := int(m.end.Sub(m.start).Hours()/24) + 1
		if days < 1 {
			days = 1
		}
		count := days / 3
		if count < 20 {
			count = 20
		}
		if count > 150 {
			count = 150
		}
		if pageCap := maxPages * 10; count > pageCap {
			count = pageCap
		}

		product := m.product
		if product == "" {
			product = "this product"
		}

		seed := fnv.New64a()
		fmt.Fprintf(seed, "%s|%s|%s", reviewsURL, m.start.Format("2006-01-02"), m.end.Format("2006-01-02"))
		rng := rand.New(rand.NewPCG(seed.Sum64(), 0))

		span := int64(days)
		recs := make([]domain.Review, 0, count)
		for i := 0; i < count; i++ {
			tpl := mockTemplates[rng.IntN(len(mockTemplates))]
			date := m.start.AddDate(0, 0, int(rng.Int64N(span)))
			rating := tpl.rating
			reviewer := mockReviewers[rng.IntN(len(mockReviewers))]
			recs = append(recs, domain.Review{
				Title:       tpl.title,
				Description: fmt.Sprintf(tpl.body, product),
				Date:        scrapeutil.FormatDate(date),
				Rating:      &rating,
				Reviewer:    &reviewer,
				URL:         reviewsURL,
				Source:      m.Name(),
				Extra: map[string]any{
					"reviewId":         fmt.Sprintf("mock-%d", i+1),
					"helpfulVotes":     rng.IntN(50),
					"verifiedPurchase": rng.IntN(10) > 2,
					"companySize":      mockCompanySizes[rng.IntN(len(mockCompanySizes))],
					"industry":         mockIndustries[rng.IntN(len(mockIndustries))],
				},
			})
		}
		sort.Slice(recs, func(i, j int) bool { return recs[i].Date > recs[j].Date })

		for i, r := range recs {
			if !yield(r, nil) {
				return
			}
			// Page boundary every ten records.
			if (i+1)%10 == 0 && i+1 < len(recs) {
				if !m.opts.pause(ctx) {
					return
				}
			}
		}
	}
}
