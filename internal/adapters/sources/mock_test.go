package sources_test

import (
	"context"
	"reflect"
	"testing"
	"time"

	"reviewscout/internal/adapters/sources"
	"reviewscout/internal/domain"
)

func scrapeMock(t *testing.T, start, end time.Time, maxPages int) []domain.Review {
	t.Helper()
	src := sources.NewMock(noDelay())
	src.SetDateRange(start, end)
	got, err := sources.Scrape(context.Background(), src, "Notion", maxPages)
	if err != nil {
		t.Fatal(err)
	}
	return got
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestMockVolumeScalesWithRange(t *testing.T) {
	// 91 days -> 30 reviews.
	got := scrapeMock(t, day(t, "2024-01-01"), day(t, "2024-03-31"), 10)
	if len(got) != 30 {
		t.Fatalf("got %d reviews, want 30", len(got))
	}

	// A short range still yields the floor of 20.
	got = scrapeMock(t, day(t, "2024-06-01"), day(t, "2024-06-03"), 10)
	if len(got) != 20 {
		t.Fatalf("got %d reviews, want floor 20", len(got))
	}
}

func TestMockRespectsPageCap(t *testing.T) {
	got := scrapeMock(t, day(t, "2024-01-01"), day(t, "2024-03-31"), 1)
	if len(got) != 10 {
		t.Fatalf("got %d reviews, want 10 (one page)", len(got))
	}
}

func TestMockDatesWithinRangeNewestFirst(t *testing.T) {
	start, end := day(t, "2024-01-01"), day(t, "2024-03-31")
	got := scrapeMock(t, start, end, 10)
	prev := ""
	for i, r := range got {
		if r.Date < "2024-01-01" || r.Date > "2024-03-31" {
			t.Errorf("review %d date %s outside range", i, r.Date)
		}
		if prev != "" && r.Date > prev {
			t.Errorf("not newest-first at %d: %s after %s", i, r.Date, prev)
		}
		prev = r.Date
		if r.Rating == nil || *r.Rating < 1 || *r.Rating > 5 {
			t.Errorf("review %d rating %v", i, r.Rating)
		}
		if r.Product != "Notion" || r.Source != domain.SourceMock {
			t.Errorf("review %d product/source %q/%q", i, r.Product, r.Source)
		}
		for _, key := range []string{"reviewId", "helpfulVotes", "verifiedPurchase", "companySize", "industry"} {
			if _, ok := r.Extra[key]; !ok {
				t.Errorf("review %d missing extra %q", i, key)
			}
		}
	}
}

func TestMockDeterministic(t *testing.T) {
	a := scrapeMock(t, day(t, "2024-01-01"), day(t, "2024-03-31"), 10)
	b := scrapeMock(t, day(t, "2024-01-01"), day(t, "2024-03-31"), 10)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("same inputs produced different output")
	}
}
