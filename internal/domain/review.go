package domain

// Supported source keys. "mock" is a demo generator, not a real site.
const (
	SourceG2          = "g2"
	SourceCapterra    = "capterra"
	SourceTrustRadius = "trustradius"
	SourceMock        = "mock"
)

// SupportedSources lists the keys scrape requests may name, in display order.
var SupportedSources = []string{SourceG2, SourceCapterra, SourceTrustRadius, SourceMock}

func IsSupportedSource(key string) bool {
	for _, s := range SupportedSources {
		if s == key {
			return true
		}
	}
	return false
}

// Review is the normalized output unit of a scrape. Ratings are on a
// 0–5 scale regardless of the source site's native scale; Date is
// YYYY-MM-DD or empty when the site gave nothing parseable.
type Review struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Date        string         `json:"date"`
	Rating      *float64       `json:"rating"`
	Reviewer    *string        `json:"reviewer"`
	URL         string         `json:"url"`
	Source      string         `json:"source"`
	Product     string         `json:"product"`
	Extra       map[string]any `json:"extra"`
}

// Empty reports whether the review carries no substantive field at all.
// Such shells are discarded during extraction.
func (r Review) Empty() bool {
	return r.Title == "" && r.Description == "" && r.Date == "" &&
		r.Rating == nil && (r.Reviewer == nil || *r.Reviewer == "")
}

// Stamp fills the provenance fields extraction leaves blank: the
// resolved product name, the source key when unset, and a non-nil
// Extra map.
func (r *Review) Stamp(product, source string) {
	r.Product = product
	if r.Source == "" {
		r.Source = source
	}
	if r.Extra == nil {
		r.Extra = map[string]any{}
	}
}

// ProductResolution maps a free-text company name to a definite
// reviews-listing URL. Produced once per scrape, never persisted.
type ProductResolution struct {
	ProductName string `json:"productName"`
	ReviewsURL  string `json:"reviewsUrl"`
}

// ScrapeRun records one completed scrape for the mysql store.
type ScrapeRun struct {
	ID         int64
	Company    string
	Source     string
	StartDate  string
	EndDate    string
	TotalFound int
}

// StoredReview is a Review persisted for later reads. SourceID is the
// site-provided review identifier when one exists, otherwise a stable
// content hash synthesized at store time.
type StoredReview struct {
	ID       int64
	SourceID string
	Review
}
