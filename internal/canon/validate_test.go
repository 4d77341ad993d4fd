package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jobsieve/internal/domain"
)

func TestValidateEmptyRecord(t *testing.T) {
	ok, issues := Validate(domain.JobRecord{URL: "https://example.com/j/1"})
	assert.False(t, ok)
	assert.Contains(t, issues, IssueMissingTitle)
	assert.Contains(t, issues, IssueMissingCompany)
}

func TestValidateCleanRecord(t *testing.T) {
	ok, issues := Validate(domain.JobRecord{
		Title:   "Software Engineer",
		Company: "Acme",
		URL:     "https://example.com/j/1",
	})
	assert.True(t, ok)
	assert.Empty(t, issues)
}

func TestValidateTitleIsCompanyName(t *testing.T) {
	_, issues := Validate(domain.JobRecord{
		Title:   "Acme Corp",
		Company: "acme corp",
		URL:     "https://example.com/j/1",
	})
	assert.Contains(t, issues, IssueTitleIsCompanyName)
}

func TestValidateDuplicatePatternInTitle(t *testing.T) {
	_, issues := Validate(domain.JobRecord{
		Title:   "Senior Engineer Senior Engineer at Acme",
		Company: "Acme",
		URL:     "https://example.com/j/1",
	})
	assert.Contains(t, issues, IssueDuplicatePatternInTitle)
}

func TestValidateGenericTitle(t *testing.T) {
	_, issues := Validate(domain.JobRecord{
		Title:   "Job Opportunity",
		Company: "Acme",
		URL:     "https://example.com/j/1",
	})
	assert.Contains(t, issues, IssueGenericTitle)
}

func TestValidatePlaceholderCompany(t *testing.T) {
	_, issues := Validate(domain.JobRecord{
		Title:   "Software Engineer",
		Company: "N/A",
		URL:     "https://example.com/j/1",
	})
	assert.Contains(t, issues, IssueInvalidCompany)
}

func TestValidateCompanyWordRepeats(t *testing.T) {
	_, issues := Validate(domain.JobRecord{
		Title:   "Software Engineer",
		Company: "Acme Acme Acme",
		URL:     "https://example.com/j/1",
	})
	assert.Contains(t, issues, IssueDuplicatePatternInCompany)
}

func TestValidateShortTitle(t *testing.T) {
	_, issues := Validate(domain.JobRecord{
		Title:   "QA",
		Company: "Acme",
		URL:     "https://example.com/j/1",
	})
	assert.Contains(t, issues, IssueTitleTooShort)
}

func TestValidateURLIssues(t *testing.T) {
	_, issues := Validate(domain.JobRecord{Title: "Engineer", Company: "Acme"})
	assert.Contains(t, issues, IssueMissingURL)

	_, issues = Validate(domain.JobRecord{Title: "Engineer", Company: "Acme", URL: "ftp://example.com"})
	assert.Contains(t, issues, IssueInvalidURL)
}

func TestValidateChecksAreIndependent(t *testing.T) {
	_, issues := Validate(domain.JobRecord{
		Title:   "Job Job Job Job",
		Company: "",
	})
	// Several independent issues on one record; none short-circuits another.
	assert.Contains(t, issues, IssueMissingCompany)
	assert.Contains(t, issues, IssueMissingURL)
	assert.Contains(t, issues, IssueDuplicatePatternInTitle)
}
