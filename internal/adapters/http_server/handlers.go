package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"reviewscout/internal/adapters/observability"
	"reviewscout/internal/app"
	"reviewscout/internal/domain"
)

type Handlers struct {
	scrapes *app.ScrapeService
	queries *app.QueryService
}

func NewHandlers(scrapes *app.ScrapeService, queries *app.QueryService) *Handlers {
	return &Handlers{scrapes: scrapes, queries: queries}
}

func (h *Handlers) Routes(m *chi.Mux) {
	m.Get("/healthz", h.health)
	m.Route("/v1", func(r chi.Router) {
		r.Post("/scrape", h.scrape)
		r.Get("/reviews", h.listReviews)
	})
}

func (h *Handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type scrapeRequest struct {
	Company   string `json:"company"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Source    string `json:"source"`
	MaxPages  int    `json:"maxPages,omitempty"`
}

type scrapeMetadata struct {
	Company    string `json:"company"`
	Source     string `json:"source"`
	DateRange  string `json:"dateRange"`
	TotalFound int    `json:"totalFound"`
	Method     string `json:"method"`
	ScrapedAt  string `json:"scrapedAt"`
}

type scrapeResponse struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message"`
	Reviews  []domain.Review `json:"reviews"`
	Metadata scrapeMetadata  `json:"metadata"`
}

func (h *Handlers) scrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Company == "" || req.StartDate == "" || req.EndDate == "" || req.Source == "" {
		writeProblem(w, http.StatusBadRequest,
			"missing required fields: company, startDate, endDate, and source are required")
		return
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "startDate must be YYYY-MM-DD")
		return
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "endDate must be YYYY-MM-DD")
		return
	}

	res, err := h.scrapes.Scrape(r.Context(), app.ScrapeRequest{
		Company:  req.Company,
		Source:   req.Source,
		Start:    start,
		End:      end,
		MaxPages: req.MaxPages,
	})
	// Supported keys only; arbitrary request input must not mint labels.
	if domain.IsSupportedSource(req.Source) {
		observability.ObserveScrape(req.Source, err, res.TotalFound)
	}
	if err != nil {
		h.scrapeError(w, req, err)
		return
	}

	reviews := res.Reviews
	if reviews == nil {
		reviews = []domain.Review{}
	}
	writeJSON(w, http.StatusOK, scrapeResponse{
		Success: true,
		Message: fmt.Sprintf("Successfully scraped %d reviews for %s from %s",
			res.TotalFound, res.Product, res.Source),
		Reviews: reviews,
		Metadata: scrapeMetadata{
			Company:    res.Company,
			Source:     res.Source,
			DateRange:  req.StartDate + " to " + req.EndDate,
			TotalFound: res.TotalFound,
			Method:     res.Method,
			ScrapedAt:  res.ScrapedAt.Format(time.RFC3339),
		},
	})
}

// scrapeError maps service failures onto the wire contract: validation
// problems are 400, upstream scraping failures are 422 with a steer
// toward the mock source, anything else is 500.
func (h *Handlers) scrapeError(w http.ResponseWriter, req scrapeRequest, err error) {
	switch {
	case errors.Is(err, domain.ErrUnsupportedSource):
		writeProblem(w, http.StatusBadRequest, fmt.Sprintf(
			"unsupported source %q; valid sources: %s", req.Source, strings.Join(domain.SupportedSources, ", ")))
	case errors.Is(err, domain.ErrBadDateRange):
		writeProblem(w, http.StatusBadRequest, domain.ErrBadDateRange.Error())
	default:
		var se *domain.SourceError
		var fe *domain.FetchError
		if errors.As(err, &se) || errors.As(err, &fe) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"success": false,
				"error": fmt.Sprintf("Real scraping failed for %s: %v. Try using 'mock' source for testing.",
					req.Source, err),
				"suggestion": "Real web scraping often encounters anti-bot measures. For reliable testing, use the 'Mock (Demo)' source option.",
			})
			return
		}
		log.Error().Err(err).Str("company", req.Company).Str("source", req.Source).Msg("scrape failed")
		writeProblem(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	company := r.URL.Query().Get("company")
	source := r.URL.Query().Get("source")
	if company == "" {
		writeProblem(w, http.StatusBadRequest, "company query parameter is required")
		return
	}
	if source != "" && !domain.IsSupportedSource(source) {
		writeProblem(w, http.StatusBadRequest, fmt.Sprintf("unsupported source %q", source))
		return
	}
	var pg domain.PageQuery
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeProblem(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		pg.Limit = n
	}
	pg.Sort = r.URL.Query().Get("sort")

	page, err := h.queries.ListReviews(r.Context(), company, source, pg)
	if err != nil {
		log.Error().Err(err).Str("company", company).Msg("list reviews failed")
		writeProblem(w, http.StatusInternalServerError, "internal error")
		return
	}
	items := page.Items
	if items == nil {
		items = []domain.StoredReview{}
	}
	writeJSONETag(w, r, http.StatusOK, map[string]any{
		"company": company,
		"source":  source,
		"count":   len(items),
		"reviews": items,
	})
}

// ---- response helpers ----

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONETag adds a strong ETag over the body and honors
// If-None-Match with 304.
func writeJSONETag(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "internal error")
		return
	}
	sum := sha1.Sum(body)
	etag := `"` + hex.EncodeToString(sum[:]) + `"`
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeProblem(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	})
}
