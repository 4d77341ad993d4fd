package store

import (
	"context"
	"database/sql"
	"fmt"

	"jobsieve/internal/domain"
)

// builtinSources are inserted on first run so a fresh database scans the
// major boards without any manual setup. INSERT OR IGNORE keeps user
// edits to these rows intact across restarts.
var builtinSources = []domain.EmailSource{
	{
		Name:            "linkedin",
		SenderEmail:     "jobalerts-noreply@linkedin.com",
		SenderPattern:   "linkedin.com",
		SubjectKeywords: "job alert,new jobs",
		IsBuiltin:       true,
		Category:        "email",
		ParserClass:     "linkedin",
		PostScanAction:  "mark_read",
		Enabled:         true,
	},
	{
		Name:            "indeed",
		SenderEmail:     "invitetoapply@indeed.com",
		SenderPattern:   "indeed.com",
		SubjectKeywords: "job alert,jobs for you",
		IsBuiltin:       true,
		Category:        "email",
		ParserClass:     "indeed",
		PostScanAction:  "mark_read",
		Enabled:         true,
	},
	{
		Name:           "greenhouse",
		SenderEmail:    "no-reply@greenhouse.io",
		SenderPattern:  "greenhouse.io",
		IsBuiltin:      true,
		Category:       "email",
		ParserClass:    "greenhouse",
		PostScanAction: "mark_read",
		Enabled:        true,
	},
	{
		Name:           "wellfound",
		SenderEmail:    "team@hi.wellfound.com",
		SenderPattern:  "wellfound.com,angel.co",
		IsBuiltin:      true,
		Category:       "email",
		ParserClass:    "wellfound",
		PostScanAction: "mark_read",
		Enabled:        true,
	},
	{
		Name:        "weworkremotely",
		IsBuiltin:   true,
		Category:    "feed",
		ParserClass: "weworkremotely",
		Enabled:     true,
	},
}

func SeedBuiltinSources(ctx context.Context, db *sql.DB) error {
	for _, s := range builtinSources {
		if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO sources
  (name, sender_email, sender_pattern, subject_keywords, is_builtin, category, parser_class, post_scan_action, enabled)
VALUES (?,?,?,?,?,?,?,?,?);`,
			s.Name, s.SenderEmail, s.SenderPattern, s.SubjectKeywords,
			boolInt(s.IsBuiltin), s.Category, s.ParserClass, s.PostScanAction, boolInt(s.Enabled),
		); err != nil {
			return fmt.Errorf("seed source %s: %w", s.Name, err)
		}
	}
	return nil
}

// ListEnabledSources returns enabled sources, built-ins first then by
// name, which fixes the scan order across runs.
func ListEnabledSources(ctx context.Context, db *sql.DB) ([]domain.EmailSource, error) {
	rows, err := db.QueryContext(ctx, `
SELECT id, name, sender_email, sender_pattern, subject_keywords,
       is_builtin, category, parser_class, post_scan_action, enabled
FROM sources
WHERE enabled = 1
ORDER BY is_builtin DESC, name ASC;
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.EmailSource
	for rows.Next() {
		var s domain.EmailSource
		var isBuiltin, enabled int
		if err := rows.Scan(
			&s.ID, &s.Name, &s.SenderEmail, &s.SenderPattern, &s.SubjectKeywords,
			&isBuiltin, &s.Category, &s.ParserClass, &s.PostScanAction, &enabled,
		); err != nil {
			return nil, err
		}
		s.IsBuiltin = isBuiltin != 0
		s.Enabled = enabled != 0
		out = append(out, s)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
