package app

import (
	"context"
	"testing"

	"reviewscout/internal/domain"
)

func TestListReviewsCacheAside(t *testing.T) {
	repo := &fakeRepo{page: domain.ReviewsPage{Items: []domain.StoredReview{
		{ID: 1, SourceID: "r1", Review: domain.Review{Title: "t", Product: "Notion", Source: "g2"}},
	}}}
	cache := newFakeCache()
	q := NewQueryService(repo, cache)
	ctx := context.Background()

	first, err := q.ListReviews(ctx, "Notion", "g2", domain.PageQuery{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := q.ListReviews(ctx, "Notion", "g2", domain.PageQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if repo.listCalls != 1 {
		t.Fatalf("repo hit %d times, want 1 (second read cached)", repo.listCalls)
	}
	if len(first.Items) != 1 || len(second.Items) != 1 {
		t.Fatalf("items: %d then %d", len(first.Items), len(second.Items))
	}
	if second.Items[0].SourceID != "r1" {
		t.Fatalf("cached item = %+v", second.Items[0])
	}
}

func TestListReviewsCustomPagingSkipsCache(t *testing.T) {
	repo := &fakeRepo{}
	cache := newFakeCache()
	q := NewQueryService(repo, cache)
	ctx := context.Background()

	pg := domain.PageQuery{Limit: 10, Sort: "date_asc"}
	if _, err := q.ListReviews(ctx, "Notion", "g2", pg); err != nil {
		t.Fatal(err)
	}
	if _, err := q.ListReviews(ctx, "Notion", "g2", pg); err != nil {
		t.Fatal(err)
	}
	if repo.listCalls != 2 {
		t.Fatalf("repo hit %d times, want 2 (custom paging bypasses cache)", repo.listCalls)
	}
}
