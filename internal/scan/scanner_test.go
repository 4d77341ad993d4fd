package scan

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobsieve/internal/canon"
	"jobsieve/internal/domain"
	"jobsieve/internal/mail"
	"jobsieve/internal/parse"
	"jobsieve/internal/store"
)

type fakeMsg struct {
	id      string
	from    string
	subject string
	snippet string
	html    string
	date    time.Time
}

// fakeMail serves a fixed mailbox, applying the same AND/OR query
// semantics the provider would.
type fakeMail struct {
	msgs []fakeMsg
}

func (f *fakeMail) Search(_ context.Context, q mail.Query, _ int) ([]mail.MessageMeta, error) {
	var out []mail.MessageMeta
	for _, m := range f.msgs {
		if !matchQuery(q, m) {
			continue
		}
		out = append(out, mail.MessageMeta{
			ID:      m.id,
			Snippet: m.snippet,
			Headers: []mail.Header{
				{Name: "From", Value: m.from},
				{Name: "Subject", Value: m.subject},
				{Name: "Date", Value: m.date.Format(time.RFC1123Z)},
			},
		})
	}
	return out, nil
}

func (f *fakeMail) GetMessage(_ context.Context, id string) (*mail.Message, error) {
	for _, m := range f.msgs {
		if m.id == id {
			return &mail.Message{
				ID:      id,
				Snippet: m.snippet,
				Payload: &mail.Part{
					MimeType: "text/html",
					Headers: []mail.Header{
						{Name: "From", Value: m.from},
						{Name: "Subject", Value: m.subject},
						{Name: "Date", Value: m.date.Format(time.RFC1123Z)},
					},
					Body: mail.EncodeBody([]byte(m.html)),
				},
			}, nil
		}
	}
	return nil, fmt.Errorf("no message %s", id)
}

func matchQuery(q mail.Query, m fakeMsg) bool {
	from := strings.ToLower(m.from)
	subject := strings.ToLower(m.subject)

	if q.FromExact != "" && !strings.Contains(from, strings.ToLower(q.FromExact)) {
		return false
	}
	if len(q.FromAny) > 0 {
		hit := false
		for _, f := range q.FromAny {
			if strings.Contains(from, strings.ToLower(f)) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if len(q.SubjectAny) > 0 {
		hit := false
		for _, s := range q.SubjectAny {
			if strings.Contains(subject, strings.ToLower(s)) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if !q.After.IsZero() && m.date.Before(q.After) {
		return false
	}
	return true
}

func newTestScanner(t *testing.T, fm *fakeMail) (*Scanner, *sql.DB) {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, store.Migrate(db.Pool))
	require.NoError(t, store.SeedBuiltinSources(context.Background(), db.Pool))

	registry := parse.NewRegistry(&parse.AIParser{})
	registry.Register(&parse.LinkedIn{})
	registry.Register(&parse.Indeed{})
	registry.Register(&parse.Greenhouse{})
	registry.Register(&parse.Wellfound{})

	return &Scanner{
		Mail:         fm,
		DB:           db.Pool,
		Registry:     registry,
		LookbackDays: 7,
		MaxResults:   50,
	}, db.Pool
}

func linkedInCard(trackingID string) string {
	return `<table><tr><td>
<a href="https://www.linkedin.com/jobs/view/4012345678?trackingId=` + trackingID + `">Senior Go Engineer</a>
<p>Acme Corp · Austin, TX</p>
</td></tr></table>`
}

func testMailbox(now time.Time) *fakeMail {
	return &fakeMail{msgs: []fakeMsg{
		{
			id:      "1001",
			from:    "LinkedIn Job Alerts <jobalerts-noreply@linkedin.com>",
			subject: "New jobs for software engineer",
			html:    linkedInCard("abc"),
			date:    now,
		},
		{
			// Same job re-advertised under a different tracking id: the
			// deterministic job id collapses it.
			id:      "1002",
			from:    "LinkedIn Job Alerts <jobalerts-noreply@linkedin.com>",
			subject: "New jobs for software engineer",
			html:    linkedInCard("def"),
			date:    now,
		},
		{
			id:      "2002",
			from:    "recruiting@initech.com",
			subject: "Update on your application",
			snippet: "Unfortunately, we have decided to move forward with other candidates",
			html:    "<p>Unfortunately, we have decided to move forward with other candidates.</p>",
			date:    now,
		},
		{
			id:      "3003",
			from:    "alerts@dice.com",
			subject: "New jobs matching your profile",
			snippet: "5 new jobs match your saved search",
			html:    "<p>5 new jobs match your saved search</p>",
			date:    now,
		},
	}}
}

func TestRunOnce(t *testing.T) {
	now := time.Now().UTC()
	s, db := newTestScanner(t, testMailbox(now))
	ctx := context.Background()

	rep, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Empty(t, rep.Errors)

	// Two alert emails carried the same job.
	assert.Equal(t, 2, rep.JobsFound)
	assert.Equal(t, 1, rep.JobsNew)
	assert.Equal(t, 1, rep.FollowUps)
	assert.Equal(t, 3, rep.EmailsScanned)

	jobs, err := store.ListJobs(ctx, db, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "Senior Go Engineer", jobs[0].Title)
	assert.Equal(t, "Acme Corp", jobs[0].Company)
	assert.Equal(t, "https://www.linkedin.com/jobs/view/4012345678", jobs[0].URL)

	// Discovery surfaced the unconfigured sender without marking it.
	require.Len(t, rep.Candidates, 1)
	assert.Equal(t, "alerts@dice.com", rep.Candidates[0].Sender)
	done, err := store.IsProcessed(ctx, db, "3003")
	require.NoError(t, err)
	assert.False(t, done)

	var kind string
	require.NoError(t, db.QueryRow(
		`SELECT kind FROM application_events WHERE message_id = '2002';`).Scan(&kind))
	assert.Equal(t, KindRejection, kind)

	last, err := store.LastScanCompletedAt(ctx, db)
	require.NoError(t, err)
	require.NotNil(t, last)
}

func TestRunOnceIsIdempotent(t *testing.T) {
	now := time.Now().UTC()
	s, db := newTestScanner(t, testMailbox(now))
	ctx := context.Background()

	_, err := s.RunOnce(ctx)
	require.NoError(t, err)

	var processedBefore int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM processed_emails;`).Scan(&processedBefore))

	rep, err := s.RunOnce(ctx)
	require.NoError(t, err)

	// Unchanged mailbox: nothing re-parsed, nothing re-marked, no
	// duplicate jobs or events.
	assert.Equal(t, 0, rep.EmailsScanned)
	assert.Equal(t, 0, rep.JobsNew)
	assert.Equal(t, 0, rep.FollowUps)

	n, err := store.CountJobs(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var processedAfter int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM processed_emails;`).Scan(&processedAfter))
	assert.Equal(t, processedBefore, processedAfter)

	var events int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM application_events;`).Scan(&events))
	assert.Equal(t, 1, events)

	// Unprocessed discovery candidates resurface until configured.
	assert.Len(t, rep.Candidates, 1)
}

func TestRunOnceSearchErrorHoldsWatermark(t *testing.T) {
	now := time.Now().UTC()
	s, db := newTestScanner(t, testMailbox(now))
	s.Mail = &failingMail{}
	ctx := context.Background()

	rep, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, rep.Errors)

	last, err := store.LastScanCompletedAt(ctx, db)
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestRunOnceFeedSource(t *testing.T) {
	now := time.Now().UTC()
	s, db := newTestScanner(t, &fakeMail{})

	feedURL := "https://weworkremotely.com/remote-jobs/remote-co-staff-engineer"
	s.Feeds = fakeFeeds{{
		JobID:     canon.GenerateJobID(feedURL, "Staff Engineer", "Remote Co"),
		Title:     "Staff Engineer",
		Company:   "Remote Co",
		Location:  "Remote",
		URL:       feedURL,
		Source:    "weworkremotely",
		CreatedAt: now,
		EmailDate: now,
	}}

	rep, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.JobsNew)

	jobs, err := store.ListJobs(context.Background(), db, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "weworkremotely", jobs[0].Source)
}

func TestPersistRecordsSkipsFuzzyDuplicates(t *testing.T) {
	now := time.Now().UTC()
	s, db := newTestScanner(t, &fakeMail{})

	// Distinct ids (the second carries a location suffix) but the same
	// logical posting from the same company.
	s.Feeds = fakeFeeds{
		{
			JobID:   canon.GenerateJobID("https://example.com/j/1", "Backend Engineer", "Acme"),
			Title:   "Backend Engineer",
			Company: "Acme",
			URL:     "https://example.com/j/1",
			Source:  "weworkremotely",
		},
		{
			JobID:   canon.GenerateJobID("https://example.com/j/2", "Backend Engineer - New York, NY", "Acme"),
			Title:   "Backend Engineer - New York, NY",
			Company: "Acme",
			URL:     "https://example.com/j/2",
			Source:  "weworkremotely",
		},
	}
	s.Now = func() time.Time { return now }

	rep, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, rep.JobsFound)
	assert.Equal(t, 1, rep.JobsNew)

	n, err := store.CountJobs(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

type failingMail struct{}

func (failingMail) Search(context.Context, mail.Query, int) ([]mail.MessageMeta, error) {
	return nil, fmt.Errorf("imap: connection reset")
}

func (failingMail) GetMessage(context.Context, string) (*mail.Message, error) {
	return nil, fmt.Errorf("imap: connection reset")
}

type fakeFeeds []domain.JobRecord

func (f fakeFeeds) FetchAll(context.Context) ([]domain.JobRecord, error) { return f, nil }
