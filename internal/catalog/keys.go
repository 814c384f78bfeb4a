package catalog

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var lower = cases.Lower(language.Und)

// SubjectKey normalises a subject display name ("Mathematics", " Further  Maths")
// into the form used in storage keys ("mathematics", "further-maths").
func SubjectKey(subject string) string {
	s := lower.String(norm.NFKC.String(subject))
	return strings.Join(strings.Fields(s), "-")
}

// TopicKey returns "<subject>-<topicID>" with the subject normalised.
func TopicKey(subject, topicID string) string {
	return SubjectKey(subject) + "-" + strings.TrimSpace(topicID)
}
