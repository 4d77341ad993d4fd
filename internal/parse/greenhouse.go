package parse

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobsieve/internal/canon"
	"jobsieve/internal/domain"
)

// Greenhouse extracts jobs from Greenhouse ATS notification emails. The
// company is carried by the board URL itself (boards.greenhouse.io/<slug>
// or <company>.greenhouse.io), not by the email markup.
type Greenhouse struct{}

func (Greenhouse) SourceName() string { return "greenhouse" }

func (Greenhouse) Parse(_ context.Context, htmlBody string, emailDate time.Time) ([]domain.JobRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return nil, fmt.Errorf("greenhouse parse html: %w", err)
	}

	seen := map[string]bool{}
	var out []domain.JobRecord

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" || !strings.Contains(strings.ToLower(href), "greenhouse.io") {
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
		location := ""
		for _, l := range lines {
			if looksLikeLocation(l) {
				location = l
				break
			}
		}

		seen[cleaned] = true
		out = append(out, makeRecord("greenhouse", cleaned, title, greenhouseCompany(cleaned), location, firstLines(lines, 6), emailDate))
	})

	return out, nil
}

// greenhouseCompany derives the company name from a board URL slug.
func greenhouseCompany(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Host)

	slug := ""
	switch {
	case host == "boards.greenhouse.io" || host == "job-boards.greenhouse.io":
		segs := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(segs) > 0 {
			slug = segs[0]
		}
	case strings.HasSuffix(host, ".greenhouse.io"):
		sub := strings.TrimSuffix(host, ".greenhouse.io")
		if sub != "www" && sub != "boards" && sub != "job-boards" && sub != "mail" {
			slug = sub
		}
	}
	return humanizeSlug(slug)
}

func humanizeSlug(slug string) string {
	if slug == "" || slug == "jobs" || slug == "embed" {
		return ""
	}
	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
