package domain

import (
	"context"
	"iter"
	"time"
)

// FetchOptions tunes a single fetch. The zero value is a plain GET with
// the client's defaults; UseRelay routes the request through the
// configured anti-bot relay with RelayParams merged over its defaults.
type FetchOptions struct {
	Headers     map[string]string
	Timeout     time.Duration
	UseRelay    bool
	RelayParams map[string]string
}

// Fetcher retrieves a URL's raw HTML text, retrying per its policy.
type Fetcher interface {
	FetchText(ctx context.Context, url string, opts *FetchOptions) (string, error)
}

// Source is one review site. Reviews yields raw records page by page in
// site order without applying the date filter; that is the
// orchestrator's job. The sequence is finite and re-fetches on every
// call.
type Source interface {
	Name() string
	FindProduct(ctx context.Context, company string) (ProductResolution, error)
	Reviews(ctx context.Context, reviewsURL string, maxPages int) iter.Seq2[Review, error]
}

// ReviewRepository persists scrape output.
type ReviewRepository interface {
	InsertRun(ctx context.Context, run ScrapeRun) (int64, error)
	UpsertReviews(ctx context.Context, rs []Review) error
	ListReviews(ctx context.Context, company, source string, pg PageQuery) (ReviewsPage, error)
	LogMiss(ctx context.Context, company, source string, status int, reason string) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

type PageQuery struct {
	Limit int
	Sort  string
}

type ReviewsPage struct {
	Items []StoredReview
}
