package domain

import "strings"

// EmailSource is a configured sender/pattern/keyword rule identifying which
// mailbox traffic belongs to which job board. Consumed read-only by the scan.
type EmailSource struct {
	ID              int64
	Name            string
	SenderEmail     string // exact sender match (substring of the From header)
	SenderPattern   string // comma-separated substrings, any one matches
	SubjectKeywords string // comma-separated, OR-combined in queries
	IsBuiltin       bool
	Category        string // "email" or "feed"
	ParserClass     string // registry key; empty means sniff or AI fallback
	PostScanAction  string
	Enabled         bool
}

// MatchesSender reports whether sender belongs to this source: either
// SenderEmail is a substring of sender, or any comma-separated
// SenderPattern token is.
func (s EmailSource) MatchesSender(sender string) bool {
	ls := strings.ToLower(sender)
	if se := strings.ToLower(strings.TrimSpace(s.SenderEmail)); se != "" && strings.Contains(ls, se) {
		return true
	}
	for _, tok := range SplitList(s.SenderPattern) {
		if strings.Contains(ls, strings.ToLower(tok)) {
			return true
		}
	}
	return false
}

// SplitList splits a comma-separated config value into trimmed, non-empty tokens.
func SplitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
