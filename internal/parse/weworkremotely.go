package parse

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"jobsieve/internal/canon"
	"jobsieve/internal/domain"
	"jobsieve/internal/fetch"
)

// DefaultWWRFeeds are the We Work Remotely category feeds scanned when the
// config does not override them.
var DefaultWWRFeeds = []string{
	"https://weworkremotely.com/categories/remote-programming-jobs.rss",
	"https://weworkremotely.com/categories/remote-full-stack-programming-jobs.rss",
	"https://weworkremotely.com/categories/remote-back-end-programming-jobs.rss",
	"https://weworkremotely.com/categories/remote-devops-sysadmin-jobs.rss",
}

// WeWorkRemotely is feed-based rather than email-based: it pulls a fixed
// set of RSS feeds and parses their items. Subjects carry "Company: Title";
// every listing is Remote by definition.
type WeWorkRemotely struct {
	Feeds      []string
	HTTPClient *http.Client
	Limiter    *fetch.HostLimiter
	Lookback   time.Duration // items older than this (by pubDate) are dropped
	Now        func() time.Time
}

func NewWeWorkRemotely(feeds []string, lookback time.Duration) *WeWorkRemotely {
	if len(feeds) == 0 {
		feeds = DefaultWWRFeeds
	}
	if lookback <= 0 {
		lookback = 7 * 24 * time.Hour
	}
	return &WeWorkRemotely{
		Feeds:      feeds,
		HTTPClient: &http.Client{Timeout: 20 * time.Second},
		Limiter:    fetch.NewHostLimiter(1.0, 2),
		Lookback:   lookback,
		Now:        time.Now,
	}
}

func (w *WeWorkRemotely) SourceName() string { return "weworkremotely" }

type rssDoc struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	PubDate     string `xml:"pubDate"`
	GUID        string `xml:"guid"`
	Description string `xml:"description"`
}

// Parse extracts job records from one RSS feed document. Items whose
// publish date is older than the lookback window are discarded; items with
// an unparsable date are kept.
func (w *WeWorkRemotely) Parse(_ context.Context, feedXML string, emailDate time.Time) ([]domain.JobRecord, error) {
	var doc rssDoc
	if err := xml.Unmarshal([]byte(feedXML), &doc); err != nil {
		return nil, fmt.Errorf("weworkremotely parse feed: %w", err)
	}

	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	cutoff := now().Add(-w.Lookback)

	var out []domain.JobRecord
	for _, it := range doc.Channel.Items {
		link := strings.TrimSpace(it.Link)
		if link == "" {
			continue
		}

		date := emailDate
		if pub, err := parsePubDate(it.PubDate); err == nil {
			if pub.Before(cutoff) {
				continue
			}
			date = pub
		}

		company, title := splitFeedTitle(canon.CleanText(it.Title))
		if title == "" {
			continue
		}

		out = append(out, makeRecord("weworkremotely", link, title, company, "Remote", htmlFragmentText(it.Description), date))
	}
	return out, nil
}

// FetchAll pulls every configured feed and merges their records, deduped by
// job id. Per-feed fetch or parse failures are logged and skipped so one
// broken feed cannot sink the rest.
func (w *WeWorkRemotely) FetchAll(ctx context.Context) ([]domain.JobRecord, error) {
	var (
		mu  sync.Mutex
		all []domain.JobRecord
	)
	g, gctx := errgroup.WithContext(ctx)

	for _, feedURL := range w.Feeds {
		feedURL := feedURL
		g.Go(func() error {
			body, err := w.fetchFeed(gctx, feedURL)
			if err != nil {
				log.Printf("[weworkremotely] feed fetch failed url=%s err=%v", feedURL, err)
				return nil
			}
			recs, err := w.Parse(gctx, body, time.Now().UTC())
			if err != nil {
				log.Printf("[weworkremotely] feed parse failed url=%s err=%v", feedURL, err)
				return nil
			}
			mu.Lock()
			all = append(all, recs...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(all))
	out := all[:0]
	for _, r := range all {
		if seen[r.JobID] {
			continue
		}
		seen[r.JobID] = true
		out = append(out, r)
	}
	return out, nil
}

func (w *WeWorkRemotely) fetchFeed(ctx context.Context, feedURL string) (string, error) {
	if w.Limiter != nil {
		if err := w.Limiter.WaitURL(ctx, feedURL); err != nil {
			return "", err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "jobsieve/1.0 (+local)")

	res, err := w.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("feed get: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return "", fmt.Errorf("feed status %d", res.StatusCode)
	}

	b, err := io.ReadAll(io.LimitReader(res.Body, 5<<20))
	if err != nil {
		return "", fmt.Errorf("feed read: %w", err)
	}
	return string(b), nil
}

// splitFeedTitle splits the "Company: Title" subject convention on the
// first colon. A subject with no colon is all title.
func splitFeedTitle(s string) (company, title string) {
	if i := strings.Index(s, ":"); i >= 0 {
		return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
	}
	return "", s
}

var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"Mon, 2 Jan 2006 15:04:05 -0700",
}

func parsePubDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized pubDate %q", s)
}

// htmlFragmentText flattens an HTML fragment (feed item description) to text.
func htmlFragmentText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return canon.CleanText(fragment)
	}
	return canon.CleanText(doc.Text())
}
