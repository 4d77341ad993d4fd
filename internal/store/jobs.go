package store

import (
	"context"
	"database/sql"
	"time"

	"jobsieve/internal/domain"
)

// InsertJobIfNew writes a record keyed by job_id; an existing row wins
// and the incoming record is dropped. Returns true when the row is new.
func InsertJobIfNew(ctx context.Context, db *sql.DB, rec domain.JobRecord) (bool, error) {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	var emailDate string
	if !rec.EmailDate.IsZero() {
		emailDate = rec.EmailDate.UTC().Format(time.RFC3339)
	}

	res, err := db.ExecContext(ctx, `
INSERT INTO jobs (job_id, title, company, location, url, source, raw_text, email_date, created_at)
VALUES (?,?,?,?,?,?,?,?,?)
ON CONFLICT(job_id) DO NOTHING;`,
		rec.JobID, rec.Title, rec.Company, rec.Location, rec.URL,
		rec.Source, rec.RawText, emailDate, createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListJobs returns stored records newest first, up to limit (0 = all).
func ListJobs(ctx context.Context, db *sql.DB, limit int) ([]domain.JobRecord, error) {
	q := `
SELECT job_id, title, company, location, url, source, raw_text, email_date, created_at
FROM jobs
ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		q += `
LIMIT ?`
		args = append(args, limit)
	}
	q += ";"

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.JobRecord
	for rows.Next() {
		var r domain.JobRecord
		var emailDate, createdAt string
		if err := rows.Scan(
			&r.JobID, &r.Title, &r.Company, &r.Location, &r.URL,
			&r.Source, &r.RawText, &emailDate, &createdAt,
		); err != nil {
			return nil, err
		}
		if emailDate != "" {
			r.EmailDate, _ = time.Parse(time.RFC3339, emailDate)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

func CountJobs(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs;`).Scan(&n)
	return n, err
}
