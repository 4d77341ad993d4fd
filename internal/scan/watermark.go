package scan

import "time"

// DefaultLookbackDays bounds the first scan when no prior run exists.
const DefaultLookbackDays = 7

// AfterDate computes the search watermark. With a prior completion it is
// that time plus one second, truncated to the day; otherwise now minus
// the lookback window, also day-truncated. Provider search is date-only,
// so same-day mail can be re-fetched; processed-id and job-id dedup make
// that harmless. Clock skew around the day boundary can in principle
// hide a message; callers accept that tolerance.
func AfterDate(last *time.Time, lookbackDays int, now time.Time) time.Time {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	if last != nil {
		return last.UTC().Add(time.Second).Truncate(24 * time.Hour)
	}
	return now.UTC().AddDate(0, 0, -lookbackDays).Truncate(24 * time.Hour)
}
