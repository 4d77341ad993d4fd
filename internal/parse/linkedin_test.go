package parse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const linkedInAlertHTML = `
<html><body>
<table><tr><td>
  <a href="https://www.linkedin.com/comm/jobs/view/4012345678?trackingId=abc&refId=xyz&trk=email">Senior Backend Engineer</a>
  <p>Acme Corp &#183; Austin, TX</p>
  <a href="https://www.linkedin.com/comm/jobs/view/4012345678?trackingId=dup">Easy Apply Senior Backend Engineer</a>
</td></tr></table>
<table><tr><td>
  <a href="https://www.linkedin.com/jobs/view/4098765432?trk=email">Platform Engineer</a>
  <p>Globex &#183; Remote</p>
  <p>$150,000/yr - $180,000/yr</p>
</td></tr></table>
<a href="https://www.linkedin.com/jobs/view/999?trk=email">Unsubscribe</a>
<a href="https://www.linkedin.com/comm/jobs/alerts/settings">Manage alert</a>
</body></html>`

func TestLinkedInParse(t *testing.T) {
	emailDate := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	recs, err := LinkedIn{}.Parse(context.Background(), linkedInAlertHTML, emailDate)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	first := recs[0]
	assert.Equal(t, "Senior Backend Engineer", first.Title)
	assert.Equal(t, "Acme Corp", first.Company)
	assert.Equal(t, "Austin, TX", first.Location)
	assert.Equal(t, "https://www.linkedin.com/jobs/view/4012345678", first.URL)
	assert.Equal(t, "linkedin", first.Source)
	assert.Len(t, first.JobID, 16)
	assert.Equal(t, emailDate, first.EmailDate)

	second := recs[1]
	assert.Equal(t, "Platform Engineer", second.Title)
	assert.Equal(t, "Globex", second.Company)
	assert.Equal(t, "Remote", second.Location)
	assert.Equal(t, "https://www.linkedin.com/jobs/view/4098765432", second.URL)
}

func TestLinkedInParseMergesAnchorsByCleanedURL(t *testing.T) {
	// Logo and title anchors point at the same job under different
	// tracking params; only one record may come out.
	html := `
<table><tr><td>
  <a href="https://www.linkedin.com/jobs/view/555000111?refId=logo"><img src="logo.png"/></a>
  <a href="https://www.linkedin.com/jobs/view/555000111?refId=title">Data Engineer</a>
  <p>Initech &#183; Chicago, IL</p>
</td></tr></table>`

	recs, err := LinkedIn{}.Parse(context.Background(), html, time.Now())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Data Engineer", recs[0].Title)
	assert.Equal(t, "Initech", recs[0].Company)
}

func TestLinkedInParseSkipsTitlelessCards(t *testing.T) {
	html := `<a href="https://www.linkedin.com/jobs/view/123456?trk=x"><img src="x.png"/></a>`
	recs, err := LinkedIn{}.Parse(context.Background(), html, time.Now())
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestStripLinkedInBadges(t *testing.T) {
	assert.Equal(t, "Backend Engineer", stripLinkedInBadges("Backend Engineer Easy Apply"))
	assert.Equal(t, "Backend Engineer", stripLinkedInBadges("Actively recruiting Backend Engineer"))
}

func TestPlausibleLinkedInTitle(t *testing.T) {
	assert.True(t, plausibleLinkedInTitle("Site Reliability Engineer"))
	assert.False(t, plausibleLinkedInTitle("Acme Corp · Austin, TX"))
	assert.False(t, plausibleLinkedInTitle("$150,000/yr"))
	assert.False(t, plausibleLinkedInTitle("View job"))
	assert.False(t, plausibleLinkedInTitle("abc"))
}

func TestDetectSource(t *testing.T) {
	assert.Equal(t, "linkedin", DetectSource(linkedInAlertHTML))
	assert.Equal(t, "indeed", DetectSource(`<a href="https://www.indeed.com/viewjob?jk=1">x</a>`))
	assert.Equal(t, "greenhouse", DetectSource(`<a href="https://boards.greenhouse.io/acme/jobs/1">x</a>`))
	assert.Equal(t, "wellfound", DetectSource(`<a href="https://angel.co/l/abc">x</a>`))
	assert.Equal(t, "", DetectSource("<p>plain newsletter</p>"))
}
