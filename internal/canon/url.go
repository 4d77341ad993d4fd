package canon

import (
	"net/url"
	"regexp"
	"strings"
)

// Tracking parameters stripped from all non-special hosts. Remaining query
// parameters are kept in their original order.
var trackingParams = map[string]struct{}{
	"trackingId": {}, "refId": {}, "lipi": {}, "midToken": {}, "midSig": {},
	"trk": {}, "trkEmail": {}, "eid": {}, "otpToken": {},
	"utm_source": {}, "utm_medium": {}, "utm_campaign": {},
	"ref": {}, "source": {},
}

var reLinkedInJobID = regexp.MustCompile(`/jobs/view/(\d+)`)

// CleanURL strips tracking noise from a job URL without losing identity.
// LinkedIn and Indeed URLs are rewritten to their canonical view forms; all
// other hosts keep their non-tracking query parameters. Idempotent:
// CleanURL(CleanURL(u)) == CleanURL(u).
func CleanURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	host := strings.ToLower(u.Host)
	switch {
	case strings.Contains(host, "linkedin.com"):
		return cleanLinkedInURL(u)
	case strings.Contains(host, "indeed.com"):
		return cleanIndeedURL(u)
	}

	u.Fragment = ""
	if u.RawQuery != "" {
		pairs := strings.Split(u.RawQuery, "&")
		kept := make([]string, 0, len(pairs))
		for _, p := range pairs {
			key := p
			if i := strings.Index(p, "="); i >= 0 {
				key = p[:i]
			}
			if _, drop := trackingParams[key]; drop {
				continue
			}
			kept = append(kept, p)
		}
		u.RawQuery = strings.Join(kept, "&")
	}
	return u.String()
}

func cleanLinkedInURL(u *url.URL) string {
	if m := reLinkedInJobID.FindStringSubmatch(u.Path); len(m) == 2 {
		return "https://www.linkedin.com/jobs/view/" + m[1]
	}
	if id := u.Query().Get("currentJobId"); id != "" {
		return "https://www.linkedin.com/jobs/view/" + id
	}
	// No job id found; drop the query entirely for this source.
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func cleanIndeedURL(u *url.URL) string {
	q := u.Query()
	jk := q.Get("jk")
	if jk == "" {
		jk = q.Get("vjk")
	}
	if jk != "" {
		return "https://www.indeed.com/viewjob?jk=" + jk
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
