package scan

import (
	"strings"
	"time"

	"jobsieve/internal/domain"
	"jobsieve/internal/mail"
)

// BuildQuery maps one source onto a provider search query: exact sender
// when configured, else OR-combined pattern tokens, ANDed with the
// OR-combined subject keywords and the watermark. Returns false when the
// source yields no resolvable term; such sources are skipped, not fatal.
func BuildQuery(src domain.EmailSource, after time.Time) (mail.Query, bool) {
	q := mail.Query{After: after}

	if se := strings.TrimSpace(src.SenderEmail); se != "" {
		q.FromExact = se
	} else {
		q.FromAny = domain.SplitList(src.SenderPattern)
	}
	q.SubjectAny = domain.SplitList(src.SubjectKeywords)

	if q.IsEmpty() {
		return mail.Query{}, false
	}
	return q, true
}
