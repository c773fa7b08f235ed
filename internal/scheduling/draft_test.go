package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDraft(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Draft
	}{
		{"blank line separator", "Subject\n\nBody text", Draft{"Subject", "Body text"}},
		{"single line", "OnlyOneLine", Draft{"OnlyOneLine", ""}},
		{"empty", "", Draft{}},
		{"whitespace only", "  \n\n  ", Draft{}},
		{"first line convention", "Hello there\nLine one\nLine two", Draft{"Hello there", "Line one\nLine two"}},
		{"blank line wins over first newline", "Quick question\n\nHi Bob,\n\nThanks", Draft{"Quick question", "Hi Bob,\n\nThanks"}},
		{"trims halves", "  Subj  \n\n  Body  ", Draft{"Subj", "Body"}},
		{"crlf", "Subj\r\n\r\nBody", Draft{"Subj", "Body"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDraft(tt.in))
		})
	}
}

func TestSubjectOrPlaceholder(t *testing.T) {
	assert.Equal(t, NoSubject, ParseDraft("").SubjectOrPlaceholder())
	assert.Equal(t, "Hi", ParseDraft("Hi").SubjectOrPlaceholder())
}
