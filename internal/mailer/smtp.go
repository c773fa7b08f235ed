package mailer

import (
	"context"

	"github.com/go-gomail/gomail"

	appErrors "github.com/unclebandit/pipeshark-backend/internal/errors"
	"github.com/unclebandit/pipeshark-backend/internal/model"
)

// DialFunc opens an SMTP session for an account.
type DialFunc func(account *model.SenderAccount) (gomail.SendCloser, error)

type SMTPSender struct {
	Dial DialFunc
}

func NewSMTPSender() *SMTPSender {
	return &SMTPSender{Dial: dialAccount}
}

func dialAccount(account *model.SenderAccount) (gomail.SendCloser, error) {
	username := account.SMTPUsername
	if username == "" {
		username = account.Email
	}
	return gomail.NewDialer(account.SMTPHost, account.SMTPPort, username, account.SMTPPassword).Dial()
}

func (s *SMTPSender) Send(ctx context.Context, account *model.SenderAccount, msg Message) (*Result, error) {
	if account.SMTPHost == "" || account.SMTPPort == 0 {
		return nil, appErrors.NewValidation("sender account %s has no SMTP host configured", account.Email)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn, err := s.Dial(account)
	if err != nil {
		return nil, &appErrors.ErrExternalService{Service: "smtp", Err: err}
	}
	defer conn.Close()

	if err := gomail.Send(conn, buildMessage(account.Email, msg)); err != nil {
		return nil, &appErrors.ErrExternalService{Service: "smtp", Err: err}
	}
	return &Result{}, nil
}
