// internal/app/scrape.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"reviewscout/internal/domain"
	"reviewscout/internal/scrapeutil"
)

const productCacheTTL = 6 * 60 * 60 // seconds

// ScrapeRequest is one scrape order: a company, a source key, and an
// inclusive date window. MaxPages 0 uses the source default.
type ScrapeRequest struct {
	Company  string
	Source   string
	Start    time.Time
	End      time.Time
	MaxPages int
}

// ScrapeResult is the filtered outcome. Method names the source key
// that produced the records ("mock" vs a real site), surfaced in API
// metadata.
type ScrapeResult struct {
	Company    string          `json:"company"`
	Product    string          `json:"product"`
	Source     string          `json:"source"`
	Reviews    []domain.Review `json:"reviews"`
	TotalFound int             `json:"totalFound"`
	Method     string          `json:"method"`
	ScrapedAt  time.Time       `json:"scrapedAt"`
}

// SourceFactory builds the extractor for a source key. The adapters
// are bound in by the binaries; the service itself depends on ports only.
type SourceFactory func(key string) (domain.Source, error)

// ScrapeService orchestrates a scrape: validate, resolve the product
// (cache-assisted), pull pages, filter to the window, persist.
// Repository and cache are optional; a nil repo skips persistence.
type ScrapeService struct {
	newSource SourceFactory
	repo      domain.ReviewRepository
	cache     domain.Cache
}

func NewScrapeService(newSource SourceFactory, repo domain.ReviewRepository, cache domain.Cache) *ScrapeService {
	return &ScrapeService{
		newSource: newSource,
		repo:      repo,
		cache:     cache,
	}
}

// Scrape runs one request end to end. Validation failures return before
// any network traffic. Records with missing or unparseable dates are
// dropped by the window filter; an empty filtered set is still success.
func (s *ScrapeService) Scrape(ctx context.Context, req ScrapeRequest) (ScrapeResult, error) {
	if req.Company == "" {
		return ScrapeResult{}, fmt.Errorf("company is required")
	}
	if !domain.IsSupportedSource(req.Source) {
		return ScrapeResult{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedSource, req.Source)
	}
	if req.Start.IsZero() || req.End.IsZero() || req.End.Before(req.Start) {
		return ScrapeResult{}, domain.ErrBadDateRange
	}

	src, err := s.newSource(req.Source)
	if err != nil {
		return ScrapeResult{}, err
	}
	if ra, ok := src.(interface{ SetDateRange(start, end time.Time) }); ok {
		ra.SetDateRange(req.Start, req.End)
	}

	started := time.Now()
	res, err := s.resolveProduct(ctx, src, req.Company)
	if err != nil {
		s.logMiss(ctx, req, err)
		return ScrapeResult{}, err
	}

	var kept []domain.Review
	scanned := 0
	for r, rerr := range src.Reviews(ctx, res.ReviewsURL, req.MaxPages) {
		if rerr != nil {
			s.logMiss(ctx, req, rerr)
			return ScrapeResult{}, rerr
		}
		scanned++
		r.Stamp(res.ProductName, src.Name())
		d, ok := scrapeutil.ParseDateFlexible(r.Date)
		if !ok || !scrapeutil.InRange(d, req.Start, req.End) {
			continue
		}
		kept = append(kept, r)
	}

	log.Info().
		Str("company", req.Company).
		Str("source", req.Source).
		Int("scanned", scanned).
		Int("kept", len(kept)).
		Dur("took", time.Since(started)).
		Msg("scrape complete")

	out := ScrapeResult{
		Company:    req.Company,
		Product:    res.ProductName,
		Source:     req.Source,
		Reviews:    kept,
		TotalFound: len(kept),
		Method:     req.Source,
		ScrapedAt:  time.Now().UTC(),
	}
	s.persist(ctx, req, out)
	return out, nil
}

// resolveProduct caches company-to-URL resolutions so repeat scrapes of
// the same product skip the verification fetch.
func (s *ScrapeService) resolveProduct(ctx context.Context, src domain.Source, company string) (domain.ProductResolution, error) {
	key := "product:" + src.Name() + ":" + scrapeutil.Slugify(company)
	if s.cache != nil {
		var cached domain.ProductResolution
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}
	res, err := src.FindProduct(ctx, company)
	if err != nil {
		return domain.ProductResolution{}, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, res, productCacheTTL); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("product cache write failed")
		}
	}
	return res, nil
}

// persist stores the run and its reviews best-effort; storage trouble
// never fails a scrape that already has results in hand.
func (s *ScrapeService) persist(ctx context.Context, req ScrapeRequest, res ScrapeResult) {
	if s.repo == nil {
		return
	}
	run := domain.ScrapeRun{
		Company:    req.Company,
		Source:     req.Source,
		StartDate:  scrapeutil.FormatDate(req.Start),
		EndDate:    scrapeutil.FormatDate(req.End),
		TotalFound: res.TotalFound,
	}
	if _, err := s.repo.InsertRun(ctx, run); err != nil {
		log.Warn().Err(err).Msg("run insert failed")
		return
	}
	if len(res.Reviews) > 0 {
		if err := s.repo.UpsertReviews(ctx, res.Reviews); err != nil {
			log.Warn().Err(err).Int("reviews", len(res.Reviews)).Msg("review upsert failed")
			return
		}
	}
	if s.cache != nil {
		key := reviewsCacheKey(req.Company, req.Source)
		if err := s.cache.Del(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache invalidation failed")
		}
	}
}

func (s *ScrapeService) logMiss(ctx context.Context, req ScrapeRequest, cause error) {
	if s.repo == nil {
		return
	}
	status := 0
	var fe *domain.FetchError
	if errors.As(cause, &fe) {
		status = fe.Status
	}
	if err := s.repo.LogMiss(ctx, req.Company, req.Source, status, cause.Error()); err != nil {
		log.Warn().Err(err).Msg("miss log failed")
	}
}
