package domain

import "time"

// JobRecord is the canonical unit of output of the extraction pipeline.
// Records are created once at parse time and never mutated; a later scan
// that derives the same JobID supersedes rather than updates the row.
type JobRecord struct {
	JobID     string // 16-hex deterministic identity, primary dedup key
	Title     string
	Company   string // "Unknown" when unresolved
	Location  string // may be empty
	URL       string // tracking-stripped, absolute
	Source    string // source identifier (linkedin/indeed/...)
	RawText   string // retained context for downstream review, <=1000 chars
	CreatedAt time.Time
	EmailDate time.Time
}
