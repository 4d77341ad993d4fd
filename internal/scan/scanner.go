package scan

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	netmail "net/mail"
	"sort"
	"strings"
	"time"

	"jobsieve/internal/canon"
	"jobsieve/internal/domain"
	"jobsieve/internal/mail"
	"jobsieve/internal/parse"
	"jobsieve/internal/store"
)

// FeedFetcher pulls records from feed-category sources (RSS boards).
type FeedFetcher interface {
	FetchAll(ctx context.Context) ([]domain.JobRecord, error)
}

// Scanner drives one scan pass: known-source alerts, a follow-up sweep,
// then new-source discovery. Phases run in sequence and a failure in one
// never blocks the next.
type Scanner struct {
	Mail         mail.Client
	DB           *sql.DB
	Registry     *parse.Registry
	Feeds        FeedFetcher // optional, serves feed-category sources
	LookbackDays int
	MaxResults   int
	Now          func() time.Time
}

// SenderCandidate is a discovery result: an unconfigured sender whose
// traffic resembles job alerts, surfaced for user review.
type SenderCandidate struct {
	Sender   string
	Count    int
	Subjects []string
}

// Report summarizes one scan pass.
type Report struct {
	Started       time.Time
	Completed     time.Time
	After         time.Time
	EmailsScanned int
	JobsFound     int
	JobsNew       int
	FollowUps     int
	Candidates    []SenderCandidate
	Errors        []string
}

func (s *Scanner) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// RunOnce executes all three phases and returns the report. Partial
// progress (job rows, processed markers) is never rolled back; the
// watermark advances only when every phase completed without a
// fetch-level error, so a failed search cannot hide mail from the next
// run.
func (s *Scanner) RunOnce(ctx context.Context) (*Report, error) {
	rep := &Report{Started: s.now().UTC()}

	last, err := store.LastScanCompletedAt(ctx, s.DB)
	if err != nil {
		return nil, fmt.Errorf("read last scan time: %w", err)
	}
	rep.After = AfterDate(last, s.LookbackDays, rep.Started)
	log.Printf("[scan] starting after=%s", rep.After.Format("2006/01/02"))

	s.phaseAlerts(ctx, rep)
	s.phaseFollowUps(ctx, rep)
	s.phaseDiscovery(ctx, rep)

	rep.Completed = s.now().UTC()
	if len(rep.Errors) == 0 {
		if err := store.RecordScanCompleted(ctx, s.DB, rep.Started, rep.Completed,
			rep.EmailsScanned, rep.JobsFound, rep.JobsNew); err != nil {
			return rep, fmt.Errorf("record scan completion: %w", err)
		}
	} else {
		log.Printf("[scan] %d phase errors, watermark not advanced", len(rep.Errors))
	}

	log.Printf("[scan] done scanned=%d found=%d new=%d followups=%d candidates=%d",
		rep.EmailsScanned, rep.JobsFound, rep.JobsNew, rep.FollowUps, len(rep.Candidates))
	return rep, nil
}

func (s *Scanner) phaseAlerts(ctx context.Context, rep *Report) {
	sources, err := store.ListEnabledSources(ctx, s.DB)
	if err != nil {
		rep.Errors = append(rep.Errors, fmt.Sprintf("alerts: list sources: %v", err))
		return
	}

	for _, src := range sources {
		if src.Category == "feed" {
			s.scanFeedSource(ctx, src, rep)
			continue
		}
		s.scanEmailSource(ctx, src, rep)
	}
}

func (s *Scanner) scanFeedSource(ctx context.Context, src domain.EmailSource, rep *Report) {
	if s.Feeds == nil {
		log.Printf("[scan] source=%s is feed-based but no feed fetcher configured, skipping", src.Name)
		return
	}
	recs, err := s.Feeds.FetchAll(ctx)
	if err != nil {
		rep.Errors = append(rep.Errors, fmt.Sprintf("feed %s: %v", src.Name, err))
		return
	}
	rep.JobsFound += len(recs)
	rep.JobsNew += s.persistRecords(ctx, recs)
}

func (s *Scanner) scanEmailSource(ctx context.Context, src domain.EmailSource, rep *Report) {
	if s.Mail == nil {
		log.Printf("[scan] source=%s needs a mail client but none is configured, skipping", src.Name)
		return
	}
	q, ok := BuildQuery(src, rep.After)
	if !ok {
		log.Printf("[scan] source=%s has no resolvable query terms, skipping", src.Name)
		return
	}

	metas, err := s.Mail.Search(ctx, q, s.MaxResults)
	if err != nil {
		rep.Errors = append(rep.Errors, fmt.Sprintf("search %s: %v", src.Name, err))
		return
	}
	log.Printf("[scan] source=%s query=%q matched=%d", src.Name, q.String(), len(metas))

	for _, meta := range metas {
		done, err := store.IsProcessed(ctx, s.DB, meta.ID)
		if err != nil {
			rep.Errors = append(rep.Errors, fmt.Sprintf("processed check %s: %v", meta.ID, err))
			return
		}
		if done {
			continue
		}
		rep.EmailsScanned++

		msg, err := s.Mail.GetMessage(ctx, meta.ID)
		if err != nil {
			// Not marked processed: a later scan may still fetch it.
			log.Printf("[scan] fetch message id=%s: %v", meta.ID, err)
			continue
		}

		recs := s.extractJobs(ctx, src, msg)
		rep.JobsFound += len(recs)
		rep.JobsNew += s.persistRecords(ctx, recs)

		// Marked even when extraction found nothing, so malformed mail
		// is not re-parsed forever.
		if err := store.MarkProcessed(ctx, s.DB, meta.ID, src.Name); err != nil {
			log.Printf("[scan] mark processed id=%s: %v", meta.ID, err)
		}
	}
}

// extractJobs resolves a parser for the message and runs it. Any parse
// failure drops this message's candidates only.
func (s *Scanner) extractJobs(ctx context.Context, src domain.EmailSource, msg *mail.Message) []domain.JobRecord {
	htmlBody, err := mail.HTMLBody(msg)
	if err != nil {
		log.Printf("[scan] no html body id=%s: %v", msg.ID, err)
		return nil
	}

	p := s.Registry.Resolve(src.ParserClass, htmlBody)
	recs, err := p.Parse(ctx, htmlBody, messageDate(msg, s.now()))
	if err != nil {
		log.Printf("[scan] parse source=%s parser=%s id=%s: %v", src.Name, p.SourceName(), msg.ID, err)
		return nil
	}
	return recs
}

// persistRecords validates (advisory) and upserts records, returning the
// number of new rows. Per-record store errors drop that record only.
func (s *Scanner) persistRecords(ctx context.Context, recs []domain.JobRecord) int {
	inserted := 0
	var kept []domain.JobRecord
	for _, r := range recs {
		if ok, issues := canon.Validate(r); !ok {
			log.Printf("[scan] quality issues job=%s title=%q: %s", r.JobID, r.Title, strings.Join(issues, ","))
		}
		// Secondary net behind the deterministic job id: the same posting
		// sometimes reappears in one batch under a slightly different title.
		if i := fuzzyDuplicateOf(kept, r); i >= 0 {
			log.Printf("[scan] fuzzy duplicate job=%s of job=%s title=%q", r.JobID, kept[i].JobID, r.Title)
			continue
		}
		kept = append(kept, r)
		isNew, err := store.InsertJobIfNew(ctx, s.DB, r)
		if err != nil {
			log.Printf("[scan] insert job=%s: %v", r.JobID, err)
			continue
		}
		if isNew {
			inserted++
		}
	}
	return inserted
}

func fuzzyDuplicateOf(kept []domain.JobRecord, r domain.JobRecord) int {
	for i, k := range kept {
		if canon.IsLikelyDuplicate(k, r) {
			return i
		}
	}
	return -1
}

// followUpQueryTerms cast the broad net for PHASE_FOLLOWUPS; precise
// classification happens on the fetched subject and snippet.
var followUpQueryTerms = []string{
	"application", "interview", "offer", "assessment",
	"thank you for applying", "unfortunately",
}

func (s *Scanner) phaseFollowUps(ctx context.Context, rep *Report) {
	if s.Mail == nil {
		return
	}
	q := mail.Query{SubjectAny: followUpQueryTerms, After: rep.After}

	metas, err := s.Mail.Search(ctx, q, s.MaxResults)
	if err != nil {
		rep.Errors = append(rep.Errors, fmt.Sprintf("followups search: %v", err))
		return
	}

	for _, meta := range metas {
		done, err := store.IsProcessed(ctx, s.DB, meta.ID)
		if err != nil {
			rep.Errors = append(rep.Errors, fmt.Sprintf("processed check %s: %v", meta.ID, err))
			return
		}
		if done {
			continue
		}
		rep.EmailsScanned++

		subject := meta.Header("Subject")
		snippet := meta.Snippet
		sender := meta.Header("From")
		date := headerDate(meta.Header("Date"))

		if snippet == "" {
			msg, err := s.Mail.GetMessage(ctx, meta.ID)
			if err != nil {
				log.Printf("[scan] fetch message id=%s: %v", meta.ID, err)
				continue
			}
			snippet = msg.Snippet
			if subject == "" {
				subject = msg.Header("Subject")
			}
			if sender == "" {
				sender = msg.Header("From")
			}
			if date.IsZero() {
				date = headerDate(msg.Header("Date"))
			}
		}

		kind := ClassifyFollowUp(subject, snippet)
		if kind == "" {
			// Not a follow-up; left unmarked for alert or discovery paths.
			continue
		}

		isNew, err := store.InsertApplicationEvent(ctx, s.DB, store.ApplicationEvent{
			MessageID: meta.ID,
			Kind:      kind,
			Sender:    sender,
			Subject:   subject,
			EventDate: date,
		})
		if err != nil {
			log.Printf("[scan] insert event id=%s: %v", meta.ID, err)
			continue
		}
		if isNew {
			rep.FollowUps++
			log.Printf("[scan] followup kind=%s subject=%q", kind, subject)
		}
		if err := store.MarkProcessed(ctx, s.DB, meta.ID, "followup"); err != nil {
			log.Printf("[scan] mark processed id=%s: %v", meta.ID, err)
		}
	}
}

// discoveryQueryTerms pull generic job-ish traffic to mine for senders
// worth configuring as sources.
var discoveryQueryTerms = []string{"job", "jobs", "hiring", "opportunities", "careers"}

func (s *Scanner) phaseDiscovery(ctx context.Context, rep *Report) {
	if s.Mail == nil {
		return
	}
	sources, err := store.ListEnabledSources(ctx, s.DB)
	if err != nil {
		rep.Errors = append(rep.Errors, fmt.Sprintf("discovery: list sources: %v", err))
		return
	}

	q := mail.Query{SubjectAny: discoveryQueryTerms, After: rep.After}
	metas, err := s.Mail.Search(ctx, q, s.MaxResults)
	if err != nil {
		rep.Errors = append(rep.Errors, fmt.Sprintf("discovery search: %v", err))
		return
	}

	bysender := map[string]*SenderCandidate{}
	for _, meta := range metas {
		done, err := store.IsProcessed(ctx, s.DB, meta.ID)
		if err != nil {
			rep.Errors = append(rep.Errors, fmt.Sprintf("processed check %s: %v", meta.ID, err))
			return
		}
		if done {
			continue
		}

		sender := meta.Header("From")
		if sender == "" {
			continue
		}
		if matchesKnownSource(sources, sender) {
			continue
		}

		subject := meta.Header("Subject")
		if !LooksLikeJobAlert(subject, meta.Snippet) {
			continue
		}

		// Never marked processed: once the user configures this sender
		// as a source, the next scan can still pick these messages up.
		c, ok := bysender[sender]
		if !ok {
			c = &SenderCandidate{Sender: sender}
			bysender[sender] = c
		}
		c.Count++
		if len(c.Subjects) < 3 {
			c.Subjects = append(c.Subjects, subject)
		}
	}

	for _, c := range bysender {
		rep.Candidates = append(rep.Candidates, *c)
	}
	sort.Slice(rep.Candidates, func(i, j int) bool {
		if rep.Candidates[i].Count != rep.Candidates[j].Count {
			return rep.Candidates[i].Count > rep.Candidates[j].Count
		}
		return rep.Candidates[i].Sender < rep.Candidates[j].Sender
	})
	for _, c := range rep.Candidates {
		log.Printf("[scan] discovery candidate sender=%s count=%d", c.Sender, c.Count)
	}
}

func matchesKnownSource(sources []domain.EmailSource, sender string) bool {
	for _, src := range sources {
		if src.MatchesSender(sender) {
			return true
		}
	}
	return false
}

func messageDate(msg *mail.Message, fallback time.Time) time.Time {
	if t := headerDate(msg.Header("Date")); !t.IsZero() {
		return t
	}
	return fallback
}

func headerDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := netmail.ParseDate(s)
	if err != nil {
		return time.Time{}
	}
	return t
}
