// internal/adapters/sources/source.go
package sources

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"reviewscout/internal/adapters/fetch"
	"reviewscout/internal/domain"
	"reviewscout/internal/scrapeutil"
)

// defaultMaxPages bounds pagination when the caller passes no limit.
const defaultMaxPages = 5

// Options tunes per-source pagination behavior. PageDelay 0 uses the
// default 800ms base; a negative value disables inter-page delays
// entirely (tests).
type Options struct {
	PageDelay       time.Duration
	PageDelayJitter time.Duration
}

func (o Options) delays() (time.Duration, time.Duration) {
	base := o.PageDelay
	if base == 0 {
		base = 800 * time.Millisecond
	}
	if base < 0 {
		return 0, 0
	}
	jitter := o.PageDelayJitter
	if jitter == 0 {
		jitter = 300 * time.Millisecond
	}
	return base, jitter
}

func (o Options) pause(ctx context.Context) bool {
	base, jitter := o.delays()
	if base == 0 {
		return ctx.Err() == nil
	}
	return fetch.JitteredDelay(ctx, base, jitter)
}

// New builds the extractor for a source key. Unknown keys fail fast,
// before any network call can happen.
func New(key string, f domain.Fetcher, opts Options) (domain.Source, error) {
	switch key {
	case domain.SourceG2:
		return NewG2(f, opts), nil
	case domain.SourceCapterra:
		return NewCapterra(f, opts), nil
	case domain.SourceTrustRadius:
		return NewTrustRadius(f, opts), nil
	case domain.SourceMock:
		return NewMock(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q (options: %s)",
			domain.ErrUnsupportedSource, key, strings.Join(domain.SupportedSources, ", "))
	}
}

// Factory binds a fetcher and options into the one-argument constructor
// shape the scrape service is wired with.
func Factory(f domain.Fetcher, opts Options) func(key string) (domain.Source, error) {
	return func(key string) (domain.Source, error) { return New(key, f, opts) }
}

// Scrape composes FindProduct and Reviews, stamping each record with
// the resolved product name and the source key.
func Scrape(ctx context.Context, src domain.Source, company string, maxPages int) ([]domain.Review, error) {
	res, err := src.FindProduct(ctx, company)
	if err != nil {
		return nil, err
	}
	var out []domain.Review
	for r, err := range src.Reviews(ctx, res.ReviewsURL, maxPages) {
		if err != nil {
			return nil, err
		}
		r.Stamp(res.ProductName, src.Name())
		out = append(out, r)
	}
	return out, nil
}

// verifyReviewsPage checks a derived reviews URL actually serves a
// reviews listing: one fetch whose body must mention reviews or ratings.
func verifyReviewsPage(ctx context.Context, f domain.Fetcher, source, company, reviewsURL string, opts *domain.FetchOptions) error {
	html, err := f.FetchText(ctx, reviewsURL, opts)
	if err != nil {
		return &domain.SourceError{Source: source, Company: company, URL: reviewsURL, Err: err}
	}
	low := strings.ToLower(html)
	if !strings.Contains(low, "review") && !strings.Contains(low, "rating") {
		return &domain.SourceError{
			Source: source, Company: company, URL: reviewsURL,
			Err: errors.New("page does not look like a reviews listing"),
		}
	}
	return nil
}

// strategy is one extraction approach against a fetched page. The
// orchestrating extractor runs them in priority order and stops at the
// first one producing a usable (non-empty) record set.
type strategy struct {
	name string
	run  func(html, pageURL string) []domain.Review
}

// embeddedJSONStrategy is the highest-priority strategy everywhere:
// inlined JSON payloads carry cleaner fields than rendered markup.
func embeddedJSONStrategy(source string) strategy {
	return strategy{name: "embedded-json", run: func(html, pageURL string) []domain.Review {
		var out []domain.Review
		for _, obj := range scrapeutil.ExtractEmbeddedReviews(html) {
			if r, ok := reviewFromObject(obj, pageURL, source); ok {
				out = append(out, r)
			}
		}
		return out
	}}
}

func extractFirst(source string, strategies []strategy, html, pageURL string) []domain.Review {
	for _, s := range strategies {
		recs := s.run(html, pageURL)
		if len(recs) == 0 {
			continue
		}
		kept := recs[:0]
		for _, r := range recs {
			if !r.Empty() {
				kept = append(kept, r)
			}
		}
		if len(kept) > 0 {
			log.Debug().
				Str("source", source).
				Str("strategy", s.name).
				Int("records", len(kept)).
				Str("url", pageURL).
				Msg("extraction strategy succeeded")
			return kept
		}
	}
	return nil
}
