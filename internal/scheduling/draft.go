package scheduling

import "strings"

// NoSubject is persisted when a draft yields an empty subject line.
const NoSubject = "(No subject)"

type Draft struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SubjectOrPlaceholder returns the subject, or NoSubject when it is empty.
func (d Draft) SubjectOrPlaceholder() string {
	if d.Subject == "" {
		return NoSubject
	}
	return d.Subject
}

// ParseDraft splits generated draft text into subject and body. A blank line
// separates the two; failing that the first line is the subject; a single
// line is all subject.
func ParseDraft(text string) Draft {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return Draft{}
	}
	if subject, body, ok := strings.Cut(text, "\n\n"); ok {
		return Draft{Subject: strings.TrimSpace(subject), Body: strings.TrimSpace(body)}
	}
	if subject, body, ok := strings.Cut(text, "\n"); ok {
		return Draft{Subject: strings.TrimSpace(subject), Body: strings.TrimSpace(body)}
	}
	return Draft{Subject: text}
}
