package parse

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	resp      string
	err       error
	gotPrompt string
}

func (f *fakeProvider) Generate(_ context.Context, prompt string, _ int) (string, error) {
	f.gotPrompt = prompt
	return f.resp, f.err
}

func TestAIParserProviderPath(t *testing.T) {
	fp := &fakeProvider{resp: `{
		"jobs": [
			{"title": "Backend Engineer", "company": "Acme", "location": "Remote", "url": "https://acme.example/jobs/1?utm_source=email", "description": "Go services"},
			{"title": "", "company": "NoTitle Inc", "url": "https://x.example/2"},
			{"title": "Data Engineer", "company": "", "url": "https://y.example/3"}
		],
		"total_found": 3,
		"parsing_notes": ""
	}`}
	p := &AIParser{Provider: fp}

	recs, err := p.Parse(context.Background(), "<html><body><p>Some job digest</p></body></html>", time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "Backend Engineer", recs[0].Title)
	assert.Equal(t, "Acme", recs[0].Company)
	assert.Equal(t, "https://acme.example/jobs/1", recs[0].URL)
	assert.Equal(t, "ai", recs[0].Source)

	// Titleless entries dropped; missing company becomes the sentinel.
	assert.Equal(t, "Data Engineer", recs[1].Title)
	assert.Equal(t, "Unknown", recs[1].Company)

	assert.Contains(t, fp.gotPrompt, "source hint: unknown")
	assert.Contains(t, fp.gotPrompt, "Some job digest")
}

func TestAIParserStripsFencedJSON(t *testing.T) {
	fp := &fakeProvider{resp: "```json\n{\"jobs\": [{\"title\": \"SRE\", \"company\": \"Acme\", \"url\": \"https://a.example/1\"}], \"total_found\": 1, \"parsing_notes\": \"\"}\n```"}
	p := &AIParser{Provider: fp}

	recs, err := p.Parse(context.Background(), "<p>digest</p>", time.Now())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "SRE", recs[0].Title)
}

const basicFallbackHTML = `
<html><body>
<a href="https://jobs.example.com/openings/123">Senior Platform Engineer position</a>
<a href="https://jobs.example.com/openings/123?utm_source=email">Senior Platform Engineer position</a>
<a href="https://example.com/careers/456">We are hiring a Data Scientist</a>
<a href="https://example.com/unsubscribe">Unsubscribe from job emails</a>
<a href="https://jobs.example.com/openings/789">Go</a>
<a href="https://example.com/newsletter">Read this month's newsletter</a>
</body></html>`

func TestAIParserFallsBackOnProviderError(t *testing.T) {
	p := &AIParser{Provider: &fakeProvider{err: errors.New("quota exceeded")}}

	recs, err := p.Parse(context.Background(), basicFallbackHTML, time.Now())
	require.NoError(t, err)
	require.Len(t, recs, 2)

	// Duplicate cleaned URL collapsed, boilerplate and short/keyword-less
	// anchors excluded.
	assert.Equal(t, "Senior Platform Engineer position", recs[0].Title)
	assert.Equal(t, "https://jobs.example.com/openings/123", recs[0].URL)
	assert.Equal(t, "We are hiring a Data Scientist", recs[1].Title)
	assert.Equal(t, "Unknown", recs[1].Company)
}

func TestAIParserMalformedResponseFallsBack(t *testing.T) {
	p := &AIParser{Provider: &fakeProvider{resp: "sorry, I cannot help with that"}}

	recs, err := p.Parse(context.Background(), basicFallbackHTML, time.Now())
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestAIParserNoProviderNeverErrors(t *testing.T) {
	p := &AIParser{}
	recs, err := p.Parse(context.Background(), "<p>nothing here</p>", time.Now())
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestStripToText(t *testing.T) {
	html := `
<html><head><title>ignored</title><style>.x{color:red}</style></head>
<body>
<script>var tracking = 1;</script>
<div style="display: none">hidden promo</div>
<p>Visible   content
here</p>
</body></html>`

	out := StripToText(html)
	assert.Equal(t, "Visible content here", out)
}

func TestBasicLinkExtractCap(t *testing.T) {
	var html string
	for i := 0; i < 15; i++ {
		html += `<a href="https://example.com/jobs/` + string(rune('a'+i)) + `">Open position number ` + string(rune('a'+i)) + `</a>`
	}
	recs := basicLinkExtract(html, time.Now())
	assert.Len(t, recs, maxBasicResults)
}
