package mysqlrepo

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"reviewscout/internal/domain"
	"reviewscout/internal/scrapeutil"
)

type Repo struct{ db *sql.DB }

func Open(dsn string) (*Repo, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("mysql ping: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	return &Repo{db: db}, nil
}

func NewWithDB(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) InsertRun(ctx context.Context, run domain.ScrapeRun) (int64, error) {
	res, err := r.db.ExecContext(ctx, qInsertRun,
		run.Company, run.Source, run.StartDate, run.EndDate, run.TotalFound)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return res.LastInsertId()
}

// UpsertReviews writes the batch in one statement. Rows key on
// (source, source_id); sites that expose no review ID get a stable
// content hash instead.
func (r *Repo) UpsertReviews(ctx context.Context, rs []domain.Review) error {
	if len(rs) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(qUpsertReviewsPrefix)
	args := make([]any, 0, len(rs)*10)
	for i, rv := range rs {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?,?,?,?,?,?,?,?,?,?)")
		extra, _ := json.Marshal(rv.Extra)
		args = append(args,
			SourceID(rv), rv.Source, rv.Product, rv.Title, rv.Description,
			nullStr(rv.Date), rv.Rating, rv.Reviewer, rv.URL, string(extra))
	}
	sb.WriteString(qUpsertReviewsSuffix)
	if _, err := r.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("upsert reviews: %w", err)
	}
	return nil
}

func (r *Repo) ListReviews(ctx context.Context, company, source string, pg domain.PageQuery) (domain.ReviewsPage, error) {
	q := qListReviews
	args := []any{scrapeutil.DisplayName(company)}
	if source != "" {
		q += " AND source = ?"
		args = append(args, source)
	}
	switch pg.Sort {
	case "date_asc":
		q += " ORDER BY review_date ASC, id ASC"
	case "rating_desc":
		q += " ORDER BY rating DESC, id DESC"
	default:
		q += " ORDER BY review_date DESC, id DESC"
	}
	limit := pg.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return domain.ReviewsPage{}, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var page domain.ReviewsPage
	for rows.Next() {
		var (
			sr       domain.StoredReview
			date     sql.NullString
			rating   sql.NullFloat64
			reviewer sql.NullString
			extra    sql.NullString
		)
		if err := rows.Scan(&sr.ID, &sr.SourceID, &sr.Source, &sr.Product,
			&sr.Title, &sr.Description, &date, &rating, &reviewer,
			&sr.URL, &extra); err != nil {
			return domain.ReviewsPage{}, fmt.Errorf("scan review: %w", err)
		}
		sr.Date = date.String
		if rating.Valid {
			v := rating.Float64
			sr.Rating = &v
		}
		if reviewer.Valid && reviewer.String != "" {
			v := reviewer.String
			sr.Reviewer = &v
		}
		if extra.Valid && extra.String != "" {
			_ = json.Unmarshal([]byte(extra.String), &sr.Extra)
		}
		page.Items = append(page.Items, sr)
	}
	return page, rows.Err()
}

func (r *Repo) LogMiss(ctx context.Context, company, source string, status int, reason string) error {
	if len(reason) > 500 {
		reason = reason[:500]
	}
	_, err := r.db.ExecContext(ctx, qLogMiss, company, source, status, reason)
	return err
}

// SourceID returns the site review ID when present, otherwise a sha1
// over the identity-bearing fields so the same review upserts cleanly.
func SourceID(r domain.Review) string {
	if id, ok := r.Extra["reviewId"].(string); ok && id != "" {
		return id
	}
	body := r.Description
	if len(body) > 100 {
		body = body[:100]
	}
	sum := sha1.Sum([]byte(r.Source + "|" + r.Product + "|" + r.Title + "|" + r.Date + "|" + body))
	return hex.EncodeToString(sum[:])
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
