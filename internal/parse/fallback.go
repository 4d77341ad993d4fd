package parse

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobsieve/internal/ai"
	"jobsieve/internal/canon"
	"jobsieve/internal/domain"
)

const (
	maxAITextChars  = 10000
	maxBasicResults = 10
)

// AIParser handles sources no specialized parser matches: it flattens the
// email to plain text, asks the provider for structured jobs, and on any
// provider failure falls back to a crude job-link scan. A failure there
// yields an empty result, never an error.
type AIParser struct {
	Provider  ai.Provider
	MaxTokens int
}

func (p *AIParser) SourceName() string { return "ai" }

func (p *AIParser) Parse(ctx context.Context, htmlBody string, emailDate time.Time) ([]domain.JobRecord, error) {
	recs, err := p.extract(ctx, htmlBody, emailDate)
	if err != nil {
		log.Printf("[ai] provider extraction failed, using basic link scan: %v", err)
		return basicLinkExtract(htmlBody, emailDate), nil
	}
	return recs, nil
}

type aiJob struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

type aiResponse struct {
	Jobs         []aiJob `json:"jobs"`
	TotalFound   int     `json:"total_found"`
	ParsingNotes string  `json:"parsing_notes"`
}

func (p *AIParser) extract(ctx context.Context, htmlBody string, emailDate time.Time) ([]domain.JobRecord, error) {
	if p.Provider == nil {
		return nil, fmt.Errorf("no ai provider configured")
	}

	text := StripToText(htmlBody)
	if text == "" {
		return nil, fmt.Errorf("no text content to extract from")
	}

	hint := DetectSource(htmlBody)
	if hint == "" {
		hint = "unknown"
	}

	maxTokens := p.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	raw, err := p.Provider.Generate(ctx, buildExtractionPrompt(text, hint), maxTokens)
	if err != nil {
		return nil, fmt.Errorf("ai generate: %w", err)
	}

	var resp aiResponse
	if err := json.Unmarshal([]byte(ai.CleanJSONBlock(raw)), &resp); err != nil {
		return nil, fmt.Errorf("ai response not valid JSON: %w", err)
	}

	out := make([]domain.JobRecord, 0, len(resp.Jobs))
	for _, j := range resp.Jobs {
		if strings.TrimSpace(j.Title) == "" {
			continue
		}
		out = append(out, makeRecord("ai", j.URL, j.Title, j.Company, j.Location, j.Description, emailDate))
	}
	return out, nil
}

func buildExtractionPrompt(text, sourceHint string) string {
	var b strings.Builder
	b.WriteString("Extract every job listing from the following email text")
	b.WriteString(" (source hint: " + sourceHint + ").\n")
	b.WriteString(`Respond with JSON only, shaped as {"jobs": [{"title": "", "company": "", "location": "", "url": "", "description": ""}], "total_found": 0, "parsing_notes": ""}.`)
	b.WriteString(" Omit navigation, unsubscribe and account links. Use empty strings for unknown fields.\n\nEMAIL TEXT:\n")
	b.WriteString(text)
	return b.String()
}

// StripToText removes non-content elements (scripts, styles, head metadata,
// hidden blocks) and flattens the document to cleaned text capped at 10k
// characters for the provider prompt.
func StripToText(htmlBody string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return canon.Clip(canon.CleanText(htmlBody), maxAITextChars)
	}
	doc.Find("script,style,head,meta,link").Remove()
	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		style := strings.ReplaceAll(strings.ToLower(s.AttrOr("style", "")), " ", "")
		if strings.Contains(style, "display:none") {
			s.Remove()
		}
	})
	return canon.Clip(canon.CleanText(doc.Text()), maxAITextChars)
}

var jobLinkKeywords = []string{"job", "career", "position", "opening", "opportunity", "apply", "hiring"}

// basicLinkExtract is the last-resort heuristic: anchors whose target or
// visible text mentions job-related keywords, capped at 10, with anchor
// text between 5 and 200 characters.
func basicLinkExtract(htmlBody string, emailDate time.Time) []domain.JobRecord {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return nil
	}

	seen := map[string]bool{}
	var out []domain.JobRecord

	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		text := canon.CleanText(a.Text())
		if href == "" || len(text) < 5 || len(text) > 200 {
			return true
		}
		if isBoilerplateLink(href, text) {
			return true
		}

		blob := strings.ToLower(href + " " + text)
		matched := false
		for _, kw := range jobLinkKeywords {
			if strings.Contains(blob, kw) {
				matched = true
				break
			}
		}
		if !matched {
			return true
		}

		cleaned := canon.CleanURL(href)
		if seen[cleaned] {
			return true
		}
		seen[cleaned] = true

		out = append(out, makeRecord("ai", cleaned, text, "", "", text, emailDate))
		return len(out) < maxBasicResults
	})

	return out
}
