package mysqlrepo

const (
	qInsertRun = `INSERT INTO scrape_runs
  (company, source, start_date, end_date, total_found)
VALUES (?,?,?,?,?)`

	// Batch upsert; VALUES placeholders appended per row. COALESCE keeps
	// previously stored optionals when a re-scrape comes back emptier.
	qUpsertReviewsPrefix = `INSERT INTO reviews
  (source_id, source, product, title, description, review_date, rating, reviewer, url, extra)
VALUES `

	qUpsertReviewsSuffix = `
ON DUPLICATE KEY UPDATE
  title       = VALUES(title),
  description = VALUES(description),
  review_date = COALESCE(VALUES(review_date), review_date),
  rating      = COALESCE(VALUES(rating), rating),
  reviewer    = COALESCE(VALUES(reviewer), reviewer),
  url         = VALUES(url),
  extra       = VALUES(extra),
  updated_at  = CURRENT_TIMESTAMP`

	qListReviews = `SELECT id, source_id, source, product, title, description,
  DATE_FORMAT(review_date, '%Y-%m-%d'), rating, reviewer, url, extra
FROM reviews
WHERE product = ?`

	qLogMiss = `INSERT INTO scrape_misses (company, source, status, reason) VALUES (?,?,?,?)`
)
