package canon

import (
	"strings"

	"jobsieve/internal/domain"
)

// IsLikelyDuplicate fuzzy-matches two job records. This is a secondary
// safety net behind the deterministic job id: it catches the same logical
// job posted under slightly different titles (trailing location suffixes,
// alert prefixes) by the same company.
func IsLikelyDuplicate(a, b domain.JobRecord) bool {
	titleA := strings.TrimSpace(a.Title)
	titleB := strings.TrimSpace(b.Title)
	companyA := strings.TrimSpace(a.Company)
	companyB := strings.TrimSpace(b.Company)

	if strings.EqualFold(titleA, titleB) && strings.EqualFold(companyA, companyB) {
		return true
	}

	if companyA == "" || !strings.EqualFold(companyA, companyB) {
		return false
	}

	na := strings.ToLower(NormalizeTitle(titleA))
	nb := strings.ToLower(NormalizeTitle(titleB))
	if na == "" || nb == "" {
		return false
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return true
	}
	return titleWordOverlap(na, nb) > 0.8
}

// titleWordOverlap is the size of the word-set intersection divided by the
// size of the smaller set.
func titleWordOverlap(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	small := setA
	large := setB
	if len(setB) < len(setA) {
		small, large = setB, setA
	}
	shared := 0
	for w := range small {
		if _, ok := large[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(small))
}

func wordSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		out[w] = struct{}{}
	}
	return out
}
