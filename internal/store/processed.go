package store

import (
	"context"
	"database/sql"
	"time"
)

// ApplicationEvent is a classified follow-up email: a confirmation,
// interview, rejection, offer or assessment tied to one message id.
type ApplicationEvent struct {
	MessageID string
	Kind      string
	Sender    string
	Subject   string
	EventDate time.Time
}

func IsProcessed(ctx context.Context, db *sql.DB, messageID string) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx,
		`SELECT 1 FROM processed_emails WHERE message_id = ? LIMIT 1;`, messageID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func MarkProcessed(ctx context.Context, db *sql.DB, messageID, source string) error {
	_, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO processed_emails (message_id, source, processed_at)
VALUES (?,?,?);`,
		messageID, source, time.Now().UTC().Format(time.RFC3339))
	return err
}

// InsertApplicationEvent records a follow-up once per message id.
// Returns true when the event is new.
func InsertApplicationEvent(ctx context.Context, db *sql.DB, ev ApplicationEvent) (bool, error) {
	var eventDate string
	if !ev.EventDate.IsZero() {
		eventDate = ev.EventDate.UTC().Format(time.RFC3339)
	}
	res, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO application_events (message_id, kind, sender, subject, event_date, created_at)
VALUES (?,?,?,?,?,?);`,
		ev.MessageID, ev.Kind, ev.Sender, ev.Subject, eventDate,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// LastScanCompletedAt returns the completion time of the most recent
// finished scan, or nil when no scan has completed yet.
func LastScanCompletedAt(ctx context.Context, db *sql.DB) (*time.Time, error) {
	var s string
	err := db.QueryRowContext(ctx,
		`SELECT completed_at FROM scan_runs ORDER BY completed_at DESC LIMIT 1;`,
	).Scan(&s)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// RecordScanCompleted persists a finished run. Callers must only invoke
// it after every phase ran, so the watermark never skips unscanned mail.
func RecordScanCompleted(ctx context.Context, db *sql.DB, started, completed time.Time, scanned, found, newJobs int) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO scan_runs (started_at, completed_at, emails_scanned, jobs_found, jobs_new)
VALUES (?,?,?,?,?);`,
		started.UTC().Format(time.RFC3339), completed.UTC().Format(time.RFC3339),
		scanned, found, newJobs)
	return err
}
