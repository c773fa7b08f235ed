package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	appErrors "github.com/unclebandit/pipeshark-backend/internal/errors"
	"github.com/unclebandit/pipeshark-backend/internal/model"
	"github.com/unclebandit/pipeshark-backend/internal/pkg/httpretry"
)

const gmailSendURL = "https://gmail.googleapis.com/gmail/v1/users/me/messages/send"

type GmailSender struct {
	Tokens  *TokenManager
	Client  httpretry.HTTPDoer
	SendURL string
}

func NewGmailSender(tokens *TokenManager, client httpretry.HTTPDoer) *GmailSender {
	return &GmailSender{Tokens: tokens, Client: client, SendURL: gmailSendURL}
}

func (g *GmailSender) Send(ctx context.Context, account *model.SenderAccount, msg Message) (*Result, error) {
	token, err := g.Tokens.AccessToken(ctx, account)
	if err != nil && token == "" {
		return nil, err
	}

	raw, err := rfc822(account.Email, msg)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(map[string]string{"raw": base64.URLEncoding.EncodeToString(raw)})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.SendURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build gmail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, &appErrors.ErrExternalService{Service: "gmail", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &appErrors.ErrExternalService{Service: "gmail", StatusCode: resp.StatusCode}
	}

	var out struct {
		ID       string `json:"id"`
		ThreadID string `json:"threadId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode gmail response: %w", err)
	}
	return &Result{MessageID: out.ID, ThreadID: out.ThreadID}, nil
}
