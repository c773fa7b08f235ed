// internal/model/sender_account.go
package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ProviderSMTP  = "smtp"
	ProviderGmail = "gmail"
)

type SenderAccount struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	UserID       uuid.UUID  `db:"user_id" json:"user_id"`
	Email        string     `db:"email" json:"email"`
	Provider     string     `db:"provider" json:"provider"` // smtp, gmail
	SMTPHost     string     `db:"smtp_host" json:"smtp_host,omitempty"`
	SMTPPort     int        `db:"smtp_port" json:"smtp_port,omitempty"`
	SMTPUsername string     `db:"smtp_username" json:"smtp_username,omitempty"`
	SMTPPassword string     `db:"smtp_password" json:"-"`
	RefreshToken string     `db:"refresh_token" json:"-"`
	AccessToken  string     `db:"access_token" json:"-"`
	TokenExpiry  *time.Time `db:"token_expiry" json:"-"`
	Active       bool       `db:"active" json:"active"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
