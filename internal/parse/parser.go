package parse

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"jobsieve/internal/canon"
	"jobsieve/internal/domain"
)

// Parser turns one source's email HTML (or feed document) into job records.
// Parse is pure with respect to the input document: no hidden state beyond
// the parser's own identity.
type Parser interface {
	SourceName() string
	Parse(ctx context.Context, htmlBody string, emailDate time.Time) ([]domain.JobRecord, error)
}

// Registry resolves a parser by stable identifier, never by runtime class
// names. Unknown sources fall back to the AI parser.
type Registry struct {
	parsers  map[string]Parser
	fallback Parser
}

func NewRegistry(fallback Parser) *Registry {
	return &Registry{
		parsers:  make(map[string]Parser),
		fallback: fallback,
	}
}

func (r *Registry) Register(p Parser) {
	r.parsers[p.SourceName()] = p
}

func (r *Registry) Lookup(name string) (Parser, bool) {
	p, ok := r.parsers[name]
	return p, ok
}

// Resolve picks the parser for a message: the source's configured parser
// class if registered, else whatever DetectSource sniffs from the HTML,
// else the fallback.
func (r *Registry) Resolve(parserClass, htmlBody string) Parser {
	if parserClass != "" {
		if p, ok := r.parsers[parserClass]; ok {
			return p
		}
	}
	if src := DetectSource(htmlBody); src != "" {
		if p, ok := r.parsers[src]; ok {
			return p
		}
	}
	return r.fallback
}

// Fallback returns the registry's AI fallback parser.
func (r *Registry) Fallback() Parser { return r.fallback }

var detectRules = []struct {
	needle string
	source string
}{
	{"linkedin.com/comm/jobs/view", "linkedin"},
	{"linkedin.com/jobs/view", "linkedin"},
	{"indeed.com/viewjob", "indeed"},
	{"indeed.com/rc/clk", "indeed"},
	{"indeed.com/pagead", "indeed"},
	{"greenhouse.io", "greenhouse"},
	{"wellfound.com", "wellfound"},
	{"angel.co", "wellfound"},
}

// DetectSource scans raw HTML for per-source marker substrings and returns
// the first matching source id, or "" when nothing matches.
func DetectSource(htmlBody string) string {
	l := strings.ToLower(htmlBody)
	for _, rule := range detectRules {
		if strings.Contains(l, rule.needle) {
			return rule.source
		}
	}
	return ""
}

// makeRecord builds a JobRecord conforming to the canonical shape: cleaned
// URL, clipped fields, "Unknown" company sentinel, deterministic job id.
func makeRecord(source, rawURL, title, company, location, rawText string, emailDate time.Time) domain.JobRecord {
	cleanedURL := canon.CleanURL(rawURL)
	title = canon.Clip(canon.CleanText(title), 200)
	company = canon.Clip(canon.CleanText(company), 100)
	if company == "" {
		company = "Unknown"
	}
	return domain.JobRecord{
		JobID:     canon.GenerateJobID(cleanedURL, title, company),
		Title:     title,
		Company:   company,
		Location:  canon.Clip(canon.CleanText(location), 100),
		URL:       cleanedURL,
		Source:    source,
		RawText:   canon.Clip(rawText, 1000),
		CreatedAt: time.Now().UTC(),
		EmailDate: emailDate,
	}
}

var boilerplateLinkWords = []string{
	"unsubscribe", "email settings", "preferences", "view all", "see all",
	"manage alert", "manage your", "help center", "privacy", "terms",
	"sign in", "notification", "feedback", "view in browser",
}

// isBoilerplateLink filters the navigation/footer anchors every job-board
// email carries around its actual job cards.
func isBoilerplateLink(href, text string) bool {
	l := strings.ToLower(href + " " + text)
	for _, w := range boilerplateLinkWords {
		if strings.Contains(l, w) {
			return true
		}
	}
	return false
}

// textLines walks the selection depth-first and returns each non-empty text
// node as its own line, reconstructing line boundaries that collapse when a
// card is flattened with .Text().
func textLines(sel *goquery.Selection) []string {
	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := canon.CleanText(n.Data); t != "" {
				out = append(out, t)
			}
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return out
}

// firstLines joins up to n lines for the retained raw-text context.
func firstLines(lines []string, n int) string {
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}

// jobCard returns the enclosing card container for an anchor: the closest
// table, else row, else the direct parent.
func jobCard(a *goquery.Selection) *goquery.Selection {
	card := a.Closest("table")
	if card.Length() == 0 {
		card = a.Closest("tr")
	}
	if card.Length() == 0 {
		card = a.Parent()
	}
	return card
}
