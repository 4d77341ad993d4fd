package parse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobsieve/internal/canon"
	"jobsieve/internal/domain"
)

// Wellfound extracts jobs from Wellfound (formerly AngelList Talent) alert
// emails; angel.co links still appear in older templates.
type Wellfound struct{}

func (Wellfound) SourceName() string { return "wellfound" }

func (Wellfound) Parse(_ context.Context, htmlBody string, emailDate time.Time) ([]domain.JobRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return nil, fmt.Errorf("wellfound parse html: %w", err)
	}

	seen := map[string]bool{}
	var out []domain.JobRecord

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		lh := strings.ToLower(href)
		if href == "" || (!strings.Contains(lh, "wellfound.com") && !strings.Contains(lh, "angel.co")) {
			return
		}
		if !strings.Contains(lh, "/jobs") && !strings.Contains(lh, "/l/") {
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
		company, location := wellfoundFields(lines, title)

		seen[cleaned] = true
		out = append(out, makeRecord("wellfound", cleaned, title, company, location, firstLines(lines, 6), emailDate))
	})

	return out, nil
}

// wellfoundFields finds the company on the "at <Company>" line that follows
// the title in Wellfound's card layout, and the first location-shaped line.
func wellfoundFields(lines []string, title string) (company, location string) {
	sawTitle := false
	for _, l := range lines {
		if strings.EqualFold(l, title) {
			sawTitle = true
			continue
		}
		if location == "" && looksLikeLocation(l) {
			location = l
			continue
		}
		if company != "" {
			continue
		}
		ll := strings.ToLower(l)
		if strings.HasPrefix(ll, "at ") && len(l) > 3 {
			company = strings.TrimSpace(l[3:])
			continue
		}
		if sawTitle && len(l) <= 60 && !strings.ContainsAny(l, "$€£") {
			company = l
		}
	}
	return company, location
}
