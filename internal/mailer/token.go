package mailer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	appErrors "github.com/unclebandit/pipeshark-backend/internal/errors"
	"github.com/unclebandit/pipeshark-backend/internal/model"
)

// RefreshWindow is how close to expiry a stored access token gets refreshed.
const RefreshWindow = 5 * time.Minute

const gmailSendScope = "https://www.googleapis.com/auth/gmail.send"

type TokenStore interface {
	UpdateToken(ctx context.Context, id uuid.UUID, accessToken string, expiry time.Time) error
}

// TokenManager hands out Gmail access tokens, exchanging the account's
// refresh token when the stored one is missing or within RefreshWindow of expiry.
type TokenManager struct {
	oauth *oauth2.Config
	store TokenStore
}

func NewTokenManager(clientID, clientSecret string, store TokenStore) *TokenManager {
	m := &TokenManager{store: store}
	if clientID != "" && clientSecret != "" {
		m.oauth = &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gmailSendScope},
		}
	}
	return m
}

// WithEndpoint points token exchange elsewhere; used in tests.
func (m *TokenManager) WithEndpoint(ep oauth2.Endpoint) *TokenManager {
	if m.oauth != nil {
		m.oauth.Endpoint = ep
	}
	return m
}

// AccessToken returns a token valid for at least RefreshWindow. A refreshed
// token is written back to the store; a failed write is returned but the
// token is still usable.
func (m *TokenManager) AccessToken(ctx context.Context, account *model.SenderAccount) (string, error) {
	if m.oauth == nil {
		return "", &appErrors.ErrConfigurationMissing{Key: "GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET"}
	}
	if account.RefreshToken == "" {
		return "", appErrors.NewValidation("gmail account %s is not connected, reconnect it", account.Email)
	}

	current := &oauth2.Token{
		AccessToken:  account.AccessToken,
		RefreshToken: account.RefreshToken,
		TokenType:    "Bearer",
	}
	if account.TokenExpiry != nil {
		current.Expiry = *account.TokenExpiry
	} else {
		// unknown expiry, force a refresh
		current.AccessToken = ""
	}

	src := oauth2.ReuseTokenSourceWithExpiry(current, m.oauth.TokenSource(ctx, current), RefreshWindow)
	tok, err := src.Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return "", &appErrors.ErrExternalService{Service: "google oauth", StatusCode: re.Response.StatusCode, Err: err}
		}
		return "", &appErrors.ErrExternalService{Service: "google oauth", Err: err}
	}

	if tok.AccessToken != account.AccessToken {
		account.AccessToken = tok.AccessToken
		expiry := tok.Expiry
		account.TokenExpiry = &expiry
		if m.store != nil {
			if err := m.store.UpdateToken(ctx, account.ID, tok.AccessToken, tok.Expiry); err != nil {
				return tok.AccessToken, err
			}
		}
	}
	return tok.AccessToken, nil
}
