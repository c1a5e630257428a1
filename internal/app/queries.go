// internal/app/queries.go
package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"reviewscout/internal/domain"
	"reviewscout/internal/scrapeutil"
)

const reviewsCacheTTL = 300 // seconds

// QueryService serves stored reviews, fronted by the cache. Reads are
// cache-aside: miss hits mysql and repopulates; writes invalidate via
// ScrapeService.persist.
type QueryService struct {
	repo  domain.ReviewRepository
	cache domain.Cache
}

func NewQueryService(repo domain.ReviewRepository, cache domain.Cache) *QueryService {
	return &QueryService{repo: repo, cache: cache}
}

func reviewsCacheKey(company, source string) string {
	return "reviews:" + source + ":" + scrapeutil.Slugify(company)
}

func (q *QueryService) ListReviews(ctx context.Context, company, source string, pg domain.PageQuery) (domain.ReviewsPage, error) {
	key := reviewsCacheKey(company, source)
	if q.cache != nil && pg.Limit == 0 && pg.Sort == "" {
		var cached domain.ReviewsPage
		if hit, err := q.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		} else if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("reviews cache read failed")
		}
	}

	page, err := q.repo.ListReviews(ctx, company, source, pg)
	if err != nil {
		return domain.ReviewsPage{}, err
	}

	if q.cache != nil && pg.Limit == 0 && pg.Sort == "" {
		if err := q.cache.Set(ctx, key, page, reviewsCacheTTL); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("reviews cache write failed")
		}
	}
	return page, nil
}
