package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/pipeshark-backend/internal/errors"
	"github.com/unclebandit/pipeshark-backend/internal/model"
)

type SenderAccountRepositoryInterface interface {
	Create(ctx context.Context, a *model.SenderAccount) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.SenderAccount, error)
	// GetByEmail returns nil, nil when the user has no account for email.
	GetByEmail(ctx context.Context, userID uuid.UUID, email string) (*model.SenderAccount, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.SenderAccount, error)
	UpdateToken(ctx context.Context, id uuid.UUID, accessToken string, expiry time.Time) error
}

type SenderAccountRepository struct {
	DB *sql.DB
}

const senderColumns = `id, user_id, email, provider, smtp_host, smtp_port, smtp_username, smtp_password, refresh_token, access_token, token_expiry, active, created_at, updated_at`

func (r *SenderAccountRepository) Create(ctx context.Context, a *model.SenderAccount) error {
	query := `
        INSERT INTO sender_accounts (user_id, email, provider, smtp_host, smtp_port, smtp_username, smtp_password, refresh_token, access_token, token_expiry, active)
        VALUES ($1, lower($2), $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id, email, created_at
    `
	return r.DB.QueryRowContext(ctx, query,
		a.UserID, a.Email, a.Provider, a.SMTPHost, a.SMTPPort, a.SMTPUsername, a.SMTPPassword,
		a.RefreshToken, a.AccessToken, a.TokenExpiry, a.Active,
	).Scan(&a.ID, &a.Email, &a.CreatedAt)
}

func (r *SenderAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.SenderAccount, error) {
	a, err := scanSender(r.DB.QueryRowContext(ctx, `SELECT `+senderColumns+` FROM sender_accounts WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewNotFound("sender account", id.String())
		}
		return nil, err
	}
	return a, nil
}

func (r *SenderAccountRepository) GetByEmail(ctx context.Context, userID uuid.UUID, email string) (*model.SenderAccount, error) {
	query := `SELECT ` + senderColumns + ` FROM sender_accounts WHERE user_id=$1 AND email=$2 AND active LIMIT 1`
	a, err := scanSender(r.DB.QueryRowContext(ctx, query, userID, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func (r *SenderAccountRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.SenderAccount, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+senderColumns+` FROM sender_accounts WHERE user_id=$1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []*model.SenderAccount{}
	for rows.Next() {
		a, err := scanSender(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *SenderAccountRepository) UpdateToken(ctx context.Context, id uuid.UUID, accessToken string, expiry time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE sender_accounts SET access_token=$1, token_expiry=$2, updated_at=NOW() WHERE id=$3`,
		accessToken, expiry, id)
	return err
}

func scanSender(row rowScanner) (*model.SenderAccount, error) {
	var a model.SenderAccount
	err := row.Scan(&a.ID, &a.UserID, &a.Email, &a.Provider, &a.SMTPHost, &a.SMTPPort, &a.SMTPUsername,
		&a.SMTPPassword, &a.RefreshToken, &a.AccessToken, &a.TokenExpiry, &a.Active, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

var _ SenderAccountRepositoryInterface = (*SenderAccountRepository)(nil)
