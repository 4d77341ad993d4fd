package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"
)

// CleanText collapses all whitespace (newlines, tabs, nbsp) to single
// spaces and trims. Empty input yields "".
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}

// GenerateJobID derives the deterministic 16-hex identity of a job from its
// cleaned URL, title and company. Case-insensitive and stable across calls;
// identical (url, title, company) triples always collide to the same id.
func GenerateJobID(rawURL, title, company string) string {
	key := strings.ToLower(CleanURL(rawURL) + ":" + title + ":" + company)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}

var titlePrefixes = []string{"new:", "hot:", "urgent:", "immediate:", "re:", "fwd:", "fw:"}

// NormalizeTitle strips alert-style prefixes and collapses consecutive
// duplicate " - "-delimited segments, e.g. "Engineer - Remote - Remote"
// becomes "Engineer - Remote".
func NormalizeTitle(title string) string {
	t := strings.TrimSpace(title)
	for changed := true; changed; {
		changed = false
		for _, p := range titlePrefixes {
			if len(t) >= len(p) && strings.EqualFold(t[:len(p)], p) {
				t = strings.TrimSpace(t[len(p):])
				changed = true
			}
		}
	}

	segs := strings.Split(t, " - ")
	kept := make([]string, 0, len(segs))
	for _, s := range segs {
		if len(kept) > 0 && strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(kept[len(kept)-1])) {
			continue
		}
		kept = append(kept, s)
	}
	return strings.Join(kept, " - ")
}

// Clip trims s and truncates it to at most max characters, never splitting
// a rune.
func Clip(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
