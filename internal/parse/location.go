package parse

import (
	"regexp"
	"strings"

	"jobsieve/internal/canon"
)

var (
	reCityState = regexp.MustCompile(`^[A-Z][A-Za-z .'\-]+,\s*[A-Z]{2}$`)
	reStateCode = regexp.MustCompile(`^[A-Z]{2}$`)
)

var countryNames = map[string]struct{}{
	"united states": {}, "canada": {}, "united kingdom": {}, "germany": {},
	"france": {}, "india": {}, "australia": {}, "netherlands": {},
	"ireland": {}, "singapore": {}, "japan": {}, "brazil": {},
	"mexico": {}, "spain": {}, "poland": {},
}

// looksLikeLocation recognizes the handful of location shapes job-board
// emails actually use: exact "Remote", "City, ST", a bare state code, an
// explicit country name, or Indeed's "Remote in City, ST" variants.
func looksLikeLocation(s string) bool {
	s = canon.CleanText(s)
	if s == "" || len(s) > 80 {
		return false
	}
	if strings.EqualFold(s, "remote") {
		return true
	}
	if reCityState.MatchString(s) || reStateCode.MatchString(s) {
		return true
	}
	if _, ok := countryNames[strings.ToLower(s)]; ok {
		return true
	}
	ls := strings.ToLower(s)
	return strings.HasPrefix(ls, "remote in ") || strings.HasPrefix(ls, "hybrid remote in ")
}
