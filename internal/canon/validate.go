package canon

import (
	"strings"

	"jobsieve/internal/domain"
)

// Data-quality issues reported by Validate. Advisory only: the validator
// never filters records, it just names what is wrong with them.
const (
	IssueMissingTitle              = "missing_title"
	IssueMissingCompany            = "missing_company"
	IssueDuplicatePatternInTitle   = "duplicate_pattern_in_title"
	IssueGenericTitle              = "generic_title"
	IssueInvalidCompany            = "invalid_company"
	IssueDuplicatePatternInCompany = "duplicate_pattern_in_company"
	IssueTitleTooShort             = "title_too_short"
	IssueTitleIsCompanyName        = "title_is_company_name"
	IssueMissingURL                = "missing_url"
	IssueInvalidURL                = "invalid_url"
)

var genericTitles = map[string]struct{}{
	"job": {}, "jobs": {}, "new job": {}, "job alert": {},
	"job opportunity": {}, "opportunity": {}, "opportunities": {},
	"position": {}, "opening": {}, "openings": {}, "hiring": {},
	"careers": {}, "job posting": {}, "apply now": {}, "view job": {},
}

var placeholderCompanies = map[string]struct{}{
	"unknown": {}, "company": {}, "n/a": {}, "na": {}, "none": {},
	"null": {}, "confidential": {}, "not specified": {}, "various": {},
	"tbd": {}, "-": {}, ".": {},
}

// Validate flags data-quality issues in a candidate job record. Every check
// runs independently; isValid iff no issues. Filtering policy belongs to the
// caller, not here.
func Validate(r domain.JobRecord) (bool, []string) {
	var issues []string

	title := strings.TrimSpace(r.Title)
	company := strings.TrimSpace(r.Company)

	if title == "" {
		issues = append(issues, IssueMissingTitle)
	}
	if company == "" {
		issues = append(issues, IssueMissingCompany)
	}
	if hasRepeatedBigram(title) {
		issues = append(issues, IssueDuplicatePatternInTitle)
	}
	if _, ok := genericTitles[strings.ToLower(title)]; ok {
		issues = append(issues, IssueGenericTitle)
	}
	if _, ok := placeholderCompanies[strings.ToLower(company)]; ok {
		issues = append(issues, IssueInvalidCompany)
	}
	if mostWordsRepeat(company) {
		issues = append(issues, IssueDuplicatePatternInCompany)
	}
	if title != "" && len([]rune(title)) < 3 {
		issues = append(issues, IssueTitleTooShort)
	}
	if title != "" && strings.EqualFold(title, company) {
		issues = append(issues, IssueTitleIsCompanyName)
	}
	url := strings.TrimSpace(r.URL)
	switch {
	case url == "":
		issues = append(issues, IssueMissingURL)
	case !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://"):
		issues = append(issues, IssueInvalidURL)
	}

	return len(issues) == 0, issues
}

// hasRepeatedBigram reports whether any 2-word phrase is immediately
// repeated, e.g. "Senior Engineer Senior Engineer at Acme".
func hasRepeatedBigram(s string) bool {
	words := strings.Fields(strings.ToLower(s))
	for i := 0; i+3 < len(words); i++ {
		if words[i] == words[i+2] && words[i+1] == words[i+3] {
			return true
		}
	}
	return false
}

// mostWordsRepeat reports whether more than half of the words are repeats.
func mostWordsRepeat(s string) bool {
	words := strings.Fields(strings.ToLower(s))
	if len(words) < 2 {
		return false
	}
	distinct := make(map[string]struct{}, len(words))
	for _, w := range words {
		distinct[w] = struct{}{}
	}
	repeats := len(words) - len(distinct)
	return repeats*2 > len(words)
}
