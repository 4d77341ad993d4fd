package scan

import "strings"

// Follow-up kinds recorded as application events.
const (
	KindConfirmation = "confirmation"
	KindInterview    = "interview"
	KindRejection    = "rejection"
	KindOffer        = "offer"
	KindAssessment   = "assessment"
)

// strongAlertPhrases mark a message as a job-alert digest. They take
// precedence over any follow-up phrase in the same text: boards love
// subjects like "Congratulations, new jobs for you".
var strongAlertPhrases = []string{
	"new jobs for you",
	"job alert",
	"jobs matching",
	"we found",
	"recommended jobs",
	"jobs you might like",
	"new opportunities",
}

// followUpPhrases are checked in order; the first hit decides the kind.
var followUpPhrases = []struct {
	phrase string
	kind   string
}{
	{"thank you for applying", KindConfirmation},
	{"received your application", KindConfirmation},
	{"application confirmed", KindConfirmation},
	{"interview", KindInterview},
	{"phone screen", KindInterview},
	{"next steps", KindInterview},
	{"unfortunately", KindRejection},
	{"not selected", KindRejection},
	{"other candidates", KindRejection},
	{"offer", KindOffer},
	{"congratulations", KindOffer},
	{"assessment", KindAssessment},
	{"coding challenge", KindAssessment},
}

// ClassifyFollowUp classifies an email by its subject and snippet.
// Returns the follow-up kind, or "" when the text is a job alert or
// matches nothing.
func ClassifyFollowUp(subject, snippet string) string {
	blob := strings.ToLower(subject + " " + snippet)
	for _, p := range strongAlertPhrases {
		if strings.Contains(blob, p) {
			return ""
		}
	}
	for _, fp := range followUpPhrases {
		if strings.Contains(blob, fp.phrase) {
			return fp.kind
		}
	}
	return ""
}

var jobishWords = []string{
	"job", "jobs", "career", "hiring", "opportunit", "position", "opening",
}

// LooksLikeJobAlert reports whether an unmatched email resembles
// job-alert traffic: a strong alert phrase, or generic job wording with
// no follow-up signal. Used by discovery to surface sender candidates.
func LooksLikeJobAlert(subject, snippet string) bool {
	blob := strings.ToLower(subject + " " + snippet)
	for _, p := range strongAlertPhrases {
		if strings.Contains(blob, p) {
			return true
		}
	}
	if ClassifyFollowUp(subject, snippet) != "" {
		return false
	}
	for _, w := range jobishWords {
		if strings.Contains(blob, w) {
			return true
		}
	}
	return false
}
