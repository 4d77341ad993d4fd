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

// LinkedIn extracts jobs from LinkedIn job-alert emails. Multiple anchors
// (logo, card body, title) point at the same job, so candidates are merged
// by cleaned URL before emitting.
type LinkedIn struct{}

var reLinkedInView = regexp.MustCompile(`linkedin\.com/(?:comm/)?jobs/view/\d+`)

var linkedInBadges = []string{"Actively recruiting", "Easy Apply", "Promoted", "Be an early applicant"}

func (LinkedIn) SourceName() string { return "linkedin" }

func (LinkedIn) Parse(_ context.Context, htmlBody string, emailDate time.Time) ([]domain.JobRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return nil, fmt.Errorf("linkedin parse html: %w", err)
	}

	type liJob struct {
		title    string
		company  string
		location string
		raw      string
	}
	byURL := map[string]*liJob{}
	var order []string

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" || !reLinkedInView.MatchString(strings.ToLower(href)) {
			return
		}
		text := canon.CleanText(a.Text())
		if isBoilerplateLink(href, text) {
			return
		}

		cleaned := canon.CleanURL(href)
		j, ok := byURL[cleaned]
		if !ok {
			j = &liJob{}
			byURL[cleaned] = j
			order = append(order, cleaned)
		}

		if cand := stripLinkedInBadges(text); j.title == "" && plausibleLinkedInTitle(cand) {
			j.title = cand
		}

		card := jobCard(a)

		// "Company · Location" usually sits in its own <p> inside the card.
		card.Find("p").Each(func(_ int, p *goquery.Selection) {
			t := canon.CleanText(p.Text())
			if t == "" {
				return
			}
			if j.company == "" && strings.Contains(t, " · ") {
				parts := strings.SplitN(t, " · ", 2)
				j.company = strings.TrimSpace(parts[0])
				j.location = strings.TrimSpace(parts[1])
				return
			}
			if cand := stripLinkedInBadges(t); j.title == "" && plausibleLinkedInTitle(cand) {
				j.title = cand
			}
		})

		if j.raw == "" {
			j.raw = firstLines(textLines(card), 6)
		}
	})

	out := make([]domain.JobRecord, 0, len(order))
	for _, u := range order {
		j := byURL[u]
		if j.title == "" {
			continue
		}
		out = append(out, makeRecord("linkedin", u, j.title, j.company, j.location, j.raw, emailDate))
	}
	return out, nil
}

func stripLinkedInBadges(s string) string {
	for _, b := range linkedInBadges {
		s = strings.ReplaceAll(s, b, "")
	}
	return canon.CleanText(s)
}

// plausibleLinkedInTitle rejects the card fragments that share markup with
// titles: "Company · Location" rows, salary lines, bare CTA labels.
func plausibleLinkedInTitle(s string) bool {
	if len(s) < 4 || len(s) > 200 {
		return false
	}
	if strings.Contains(s, " · ") {
		return false
	}
	l := strings.ToLower(s)
	for _, bad := range []string{"view job", "see job", "apply", "http://", "https://", "applicants", "connections", "alumni"} {
		if strings.Contains(l, bad) {
			return false
		}
	}
	return !strings.ContainsAny(s, "$€£")
}
