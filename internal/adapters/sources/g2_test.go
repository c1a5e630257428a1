package sources_test

import (
	"context"
	"strings"
	"testing"

	"reviewscout/internal/adapters/sources"
)

const g2Listing = "https://www.g2.com/products/notion/reviews"

// Paragraph-mode page: no review containers, review text interleaved
// with promotional chrome.
var g2Page1 = `<html><body>
<p>Thousands of people come to G2 to find out whether this software is the right choice for their team and business needs.</p>
<p>I have been using Notion daily for two years and it keeps our whole team organized across projects. Review collected by and hosted on G2.com.</p>
<p>The software is great for documentation but the mobile experience still has some rough edges our team noticed.</p>
<p>Short.</p>
</body></html>`

// Page 2 repeats a review from page 1, so nothing fresh appears.
var g2Page2 = `<html><body>
<p>I have been using Notion daily for two years and it keeps our whole team organized across projects. Review collected by and hosted on G2.com.</p>
</body></html>`

func TestG2ScrapeFiltersPromoAndDedupes(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		g2Listing:             "<html>Notion reviews and ratings</html>",
		g2Listing + "?page=1": g2Page1,
		g2Listing + "?page=2": g2Page2,
	}}
	src := sources.NewG2(f, noDelay())

	got, err := sources.Scrape(context.Background(), src, "Notion", 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		for _, r := range got {
			t.Logf("review: %q", r.Description)
		}
		t.Fatalf("got %d reviews, want 2", len(got))
	}
	for _, r := range got {
		if strings.Contains(strings.ToLower(r.Description), "come to g2") {
			t.Errorf("promo text kept: %q", r.Description)
		}
		if strings.Contains(r.Description, "Review collected by") {
			t.Errorf("collection suffix kept: %q", r.Description)
		}
		if r.Product != "Notion" || r.Source != "g2" {
			t.Errorf("product/source = %q/%q", r.Product, r.Source)
		}
	}

	// Page 3 never fetched: page 2 produced nothing fresh.
	if len(f.calls) != 3 {
		t.Fatalf("calls = %v", f.calls)
	}
}

func TestG2KnownSlug(t *testing.T) {
	wantURL := "https://www.g2.com/products/jira-software/reviews"
	f := &fakeFetcher{pages: map[string]string{wantURL: "<html>review</html>"}}
	src := sources.NewG2(f, noDelay())
	res, err := src.FindProduct(context.Background(), "Jira")
	if err != nil {
		t.Fatal(err)
	}
	if res.ReviewsURL != wantURL {
		t.Fatalf("url = %q", res.ReviewsURL)
	}
}

func TestG2StructuralContainers(t *testing.T) {
	page := `<html><body>
<div data-review-id="r1">
  <h3>Like best: flexible workspace</h3>
  <time datetime="2024-03-05">March 5, 2024</time>
  <span aria-label="4.5 out of 5 stars"></span>
  <p>We love using this software for all of our internal documentation and the team adoption was quick.</p>
  <span class="reviewer-author">Jordan K.</span>
</div>
</body></html>`
	f := &fakeFetcher{pages: map[string]string{
		g2Listing:             "<html>review</html>",
		g2Listing + "?page=1": page,
		g2Listing + "?page=2": "<html><body>nothing</body></html>",
	}}
	src := sources.NewG2(f, noDelay())
	got, err := sources.Scrape(context.Background(), src, "Notion", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d reviews, want 1", len(got))
	}
	r := got[0]
	if r.Title != "Like best: flexible workspace" {
		t.Errorf("title = %q", r.Title)
	}
	if r.Date != "2024-03-05" {
		t.Errorf("date = %q", r.Date)
	}
	if r.Rating == nil || *r.Rating != 4.5 {
		t.Errorf("rating = %v", r.Rating)
	}
	if r.Reviewer == nil || *r.Reviewer != "Jordan K." {
		t.Errorf("reviewer = %v", r.Reviewer)
	}
}
