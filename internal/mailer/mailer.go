// Package mailer delivers queue items through SMTP or the Gmail API.
package mailer

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-gomail/gomail"

	appErrors "github.com/unclebandit/pipeshark-backend/internal/errors"
	"github.com/unclebandit/pipeshark-backend/internal/model"
	"github.com/unclebandit/pipeshark-backend/internal/pkg/httpretry"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Result carries provider identifiers; SMTP leaves them empty.
type Result struct {
	MessageID string
	ThreadID  string
}

type Sender interface {
	Send(ctx context.Context, account *model.SenderAccount, msg Message) (*Result, error)
}

// Router picks the transport matching the account's provider.
type Router struct {
	SMTP  Sender
	Gmail Sender
}

// NewRouter wires both transports. Gmail tokens are refreshed with the
// Google OAuth client and written back to store.
func NewRouter(googleClientID, googleClientSecret string, store TokenStore, client httpretry.HTTPDoer) *Router {
	return &Router{
		SMTP:  NewSMTPSender(),
		Gmail: NewGmailSender(NewTokenManager(googleClientID, googleClientSecret, store), client),
	}
}

func (r *Router) Send(ctx context.Context, account *model.SenderAccount, msg Message) (*Result, error) {
	switch account.Provider {
	case model.ProviderSMTP:
		if r.SMTP != nil {
			return r.SMTP.Send(ctx, account, msg)
		}
	case model.ProviderGmail:
		if r.Gmail != nil {
			return r.Gmail.Send(ctx, account, msg)
		}
	}
	return nil, appErrors.NewValidation("unsupported sender provider %q", account.Provider)
}

func buildMessage(from string, msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)
	return m
}

// rfc822 renders the message for APIs that take raw MIME.
func rfc822(from string, msg Message) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buildMessage(from, msg).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to render message: %w", err)
	}
	return buf.Bytes(), nil
}
