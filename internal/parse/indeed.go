package parse

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobsieve/internal/canon"
	"jobsieve/internal/domain"
)

// Indeed extracts jobs from Indeed alert emails. Card text arrives run
// together, so field assignment reconstructs line boundaries around the
// "company name followed by a numeric rating" anchor point, then peels off
// location and salary in order.
type Indeed struct{}

var (
	reIndeedJobKey = regexp.MustCompile(`(?i)[?&]v?jk=([0-9a-f]+)`)
	reRatingLine   = regexp.MustCompile(`^\d(?:\.\d)?$`)
	reDaysAgoLine  = regexp.MustCompile(`(?i)^(?:just posted|today|active \d+ days? ago|\d+\+?\s+days?\s+ago)$`)
	reSalaryLine   = regexp.MustCompile(`^\$\s?\d[\d,]*(?:\.\d+)?K?(?:\s*-\s*\$\s?\d[\d,]*(?:\.\d+)?K?)?(?:\s*(?:a|an|per)\s+(?:year|month|week|day|hour))?$`)
)

func (Indeed) SourceName() string { return "indeed" }

func (Indeed) Parse(_ context.Context, htmlBody string, emailDate time.Time) ([]domain.JobRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return nil, fmt.Errorf("indeed parse html: %w", err)
	}

	seen := map[string]bool{}
	var out []domain.JobRecord

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		lh := strings.ToLower(href)
		if href == "" || !strings.Contains(lh, "indeed.com") || !reIndeedJobKey.MatchString(href) {
			return
		}
		title := canon.CleanText(a.Text())
		if title == "" || isBoilerplateLink(href, title) {
			return
		}

		cleaned := canon.CleanURL(href)
		if seen[cleaned] {
			return
		}

		lines := textLines(jobCard(a))
		company, location, salary := indeedFields(lines, title)

		raw := firstLines(lines, 8)
		if salary != "" && !strings.Contains(raw, salary) {
			raw = raw + "\n" + salary
		}

		seen[cleaned] = true
		out = append(out, makeRecord("indeed", cleaned, title, company, location, raw, emailDate))
	})

	return out, nil
}

// indeedFields assigns company/location/salary from the card's
// reconstructed lines. The company is the line immediately before a bare
// numeric rating; without a rating anchor the second non-noise line (the
// first after the title) is the company. Location and salary are then
// peeled off in sequence.
func indeedFields(lines []string, title string) (company, location, salary string) {
	// Drop the title line and noise before assigning fields.
	rest := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.EqualFold(l, title) {
			continue
		}
		rest = append(rest, l)
	}

	next := 0
	for i := 0; i+1 < len(rest); i++ {
		if reRatingLine.MatchString(rest[i+1]) && !isIndeedNoiseLine(rest[i]) {
			company = rest[i]
			next = i + 2
			break
		}
	}
	if company == "" {
		for i, l := range rest {
			if !isIndeedNoiseLine(l) {
				company = l
				next = i + 1
				break
			}
		}
	}

	for ; next < len(rest); next++ {
		l := rest[next]
		if isIndeedNoiseLine(l) {
			continue
		}
		if location == "" && looksLikeLocation(l) {
			location = l
			continue
		}
		if salary == "" && reSalaryLine.MatchString(l) {
			salary = l
			continue
		}
		break
	}
	return company, location, salary
}

var indeedNoisePhrases = []string{"easily apply", "urgently hiring", "responsive employer", "sponsored", "new"}

func isIndeedNoiseLine(s string) bool {
	if reRatingLine.MatchString(s) || reDaysAgoLine.MatchString(s) {
		return true
	}
	l := strings.ToLower(s)
	for _, p := range indeedNoisePhrases {
		if l == p {
			return true
		}
	}
	return false
}
