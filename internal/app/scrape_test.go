package app

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"testing"
	"time"

	"reviewscout/internal/adapters/sources"
	"reviewscout/internal/domain"
)

type fakeFetcher struct{ calls int }

func (f *fakeFetcher) FetchText(context.Context, string, *domain.FetchOptions) (string, error) {
	f.calls++
	return "", errors.New("no network in tests")
}

type fakeSource struct {
	name         string
	reviews      []domain.Review
	findCalls    int
	findErr      error
	iterationErr error
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) FindProduct(_ context.Context, company string) (domain.ProductResolution, error) {
	s.findCalls++
	if s.findErr != nil {
		return domain.ProductResolution{}, s.findErr
	}
	return domain.ProductResolution{ProductName: company, ReviewsURL: "https://example.com/r"}, nil
}

func (s *fakeSource) Reviews(context.Context, string, int) iter.Seq2[domain.Review, error] {
	return func(yield func(domain.Review, error) bool) {
		for _, r := range s.reviews {
			if !yield(r, nil) {
				return
			}
		}
		if s.iterationErr != nil {
			yield(domain.Review{}, s.iterationErr)
		}
	}
}

type fakeRepo struct {
	runs      []domain.ScrapeRun
	upserts   [][]domain.Review
	misses    []string
	page      domain.ReviewsPage
	listCalls int
}

func (r *fakeRepo) InsertRun(_ context.Context, run domain.ScrapeRun) (int64, error) {
	r.runs = append(r.runs, run)
	return int64(len(r.runs)), nil
}

func (r *fakeRepo) UpsertReviews(_ context.Context, rs []domain.Review) error {
	r.upserts = append(r.upserts, rs)
	return nil
}

func (r *fakeRepo) ListReviews(context.Context, string, string, domain.PageQuery) (domain.ReviewsPage, error) {
	r.listCalls++
	return r.page, nil
}

func (r *fakeRepo) LogMiss(_ context.Context, _, _ string, _ int, reason string) error {
	r.misses = append(r.misses, reason)
	return nil
}

type fakeCache struct {
	data map[string][]byte
	dels []string
}

func newFakeCache() *fakeCache { return &fakeCache{data: map[string][]byte{}} }

func (c *fakeCache) Get(_ context.Context, key string, dst any) (bool, error) {
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(_ context.Context, key string, v any, _ int) error {
	b, _ := json.Marshal(v)
	c.data[key] = b
	return nil
}

func (c *fakeCache) Del(_ context.Context, key string) error {
	c.dels = append(c.dels, key)
	delete(c.data, key)
	return nil
}

func dated(date string) domain.Review {
	return domain.Review{Title: "t", Description: "body text", Date: date, Source: "g2"}
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func newTestService(src *fakeSource, repo *fakeRepo, cache domain.Cache) *ScrapeService {
	var r domain.ReviewRepository
	if repo != nil {
		r = repo
	}
	return NewScrapeService(func(string) (domain.Source, error) { return src, nil }, r, cache)
}

// registryService wires the real source registry over a fake fetcher.
func registryService(f *fakeFetcher) *ScrapeService {
	return NewScrapeService(sources.Factory(f, sources.Options{PageDelay: -1}), nil, nil)
}

func TestScrapeRejectsUnsupportedSourceBeforeFetching(t *testing.T) {
	f := &fakeFetcher{}
	svc := registryService(f)
	_, err := svc.Scrape(context.Background(), ScrapeRequest{
		Company: "Notion",
		Source:  "glassdoor",
		Start:   day(t, "2024-01-01"),
		End:     day(t, "2024-01-31"),
	})
	if !errors.Is(err, domain.ErrUnsupportedSource) {
		t.Fatalf("err = %v", err)
	}
	if f.calls != 0 {
		t.Fatalf("fetcher called %d times before validation", f.calls)
	}
}

func TestScrapeRejectsBadRange(t *testing.T) {
	f := &fakeFetcher{}
	svc := registryService(f)
	_, err := svc.Scrape(context.Background(), ScrapeRequest{
		Company: "Notion",
		Source:  domain.SourceMock,
		Start:   day(t, "2024-02-01"),
		End:     day(t, "2024-01-01"),
	})
	if !errors.Is(err, domain.ErrBadDateRange) {
		t.Fatalf("err = %v", err)
	}
	if f.calls != 0 {
		t.Fatalf("fetcher called %d times", f.calls)
	}
}

func TestScrapeFiltersInclusiveWindow(t *testing.T) {
	src := &fakeSource{name: "g2", reviews: []domain.Review{
		dated("2024-01-01"), // start boundary, kept
		dated("2024-01-31"), // end boundary, kept
		dated("2023-12-31"), // before window
		dated("2024-02-01"), // after window
		dated(""),           // missing date, dropped
		dated("sometime last spring"),
	}}
	repo := &fakeRepo{}
	cache := newFakeCache()
	svc := newTestService(src, repo, cache)

	res, err := svc.Scrape(context.Background(), ScrapeRequest{
		Company: "Notion",
		Source:  "g2",
		Start:   day(t, "2024-01-01"),
		End:     day(t, "2024-01-31"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalFound != 2 || len(res.Reviews) != 2 {
		t.Fatalf("kept %d, want 2", res.TotalFound)
	}
	if res.Reviews[0].Date != "2024-01-01" || res.Reviews[1].Date != "2024-01-31" {
		t.Fatalf("boundary dates missing: %+v", res.Reviews)
	}

	if len(repo.runs) != 1 || repo.runs[0].TotalFound != 2 {
		t.Fatalf("runs = %+v", repo.runs)
	}
	if len(repo.upserts) != 1 || len(repo.upserts[0]) != 2 {
		t.Fatalf("upserts = %+v", repo.upserts)
	}
	if len(cache.dels) != 1 {
		t.Fatalf("cache invalidations = %v", cache.dels)
	}
}

func TestScrapeEmptyResultIsSuccess(t *testing.T) {
	src := &fakeSource{name: "g2"}
	svc := newTestService(src, nil, nil)
	res, err := svc.Scrape(context.Background(), ScrapeRequest{
		Company: "Notion",
		Source:  "g2",
		Start:   day(t, "2024-01-01"),
		End:     day(t, "2024-01-31"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalFound != 0 {
		t.Fatalf("TotalFound = %d", res.TotalFound)
	}
}

func TestScrapeSourceErrorLogsMiss(t *testing.T) {
	src := &fakeSource{name: "g2", findErr: &domain.SourceError{
		Source: "g2", Company: "Notion", URL: "u",
		Err: &domain.FetchError{URL: "u", Status: 403, Err: errors.New("remote 403")},
	}}
	repo := &fakeRepo{}
	svc := newTestService(src, repo, nil)
	_, err := svc.Scrape(context.Background(), ScrapeRequest{
		Company: "Notion",
		Source:  "g2",
		Start:   day(t, "2024-01-01"),
		End:     day(t, "2024-01-31"),
	})
	var se *domain.SourceError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v", err)
	}
	if len(repo.misses) != 1 {
		t.Fatalf("misses = %v", repo.misses)
	}
}

func TestScrapeCachesProductResolution(t *testing.T) {
	src := &fakeSource{name: "g2", reviews: []domain.Review{dated("2024-01-15")}}
	cache := newFakeCache()
	svc := newTestService(src, nil, cache)
	req := ScrapeRequest{
		Company: "Notion",
		Source:  "g2",
		Start:   day(t, "2024-01-01"),
		End:     day(t, "2024-01-31"),
	}
	if _, err := svc.Scrape(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Scrape(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if src.findCalls != 1 {
		t.Fatalf("FindProduct called %d times, want 1 (cached)", src.findCalls)
	}
}

func TestScrapeMockEndToEnd(t *testing.T) {
	// Real registry path: mock needs no network, honors the window.
	svc := registryService(&fakeFetcher{})
	res, err := svc.Scrape(context.Background(), ScrapeRequest{
		Company: "Notion",
		Source:  domain.SourceMock,
		Start:   day(t, "2024-01-01"),
		End:     day(t, "2024-03-31"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalFound == 0 {
		t.Fatal("mock scrape produced nothing")
	}
	for _, r := range res.Reviews {
		if r.Date < "2024-01-01" || r.Date > "2024-03-31" {
			t.Fatalf("date %s outside window", r.Date)
		}
	}
	if res.Method != domain.SourceMock {
		t.Fatalf("method = %q", res.Method)
	}
}
