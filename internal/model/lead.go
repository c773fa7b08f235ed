// internal/model/lead.go
package model

import (
	"time"

	"github.com/google/uuid"
)

type Lead struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	UserID       uuid.UUID  `db:"user_id" json:"user_id"`
	CampaignID   uuid.UUID  `db:"campaign_id" json:"campaign_id"`
	Email        string     `db:"email" json:"email"`
	Name         string     `db:"name" json:"name"`
	Country      string     `db:"country" json:"country"`
	City         string     `db:"city" json:"city"`
	BusinessType string     `db:"business_type" json:"business_type"`
	Draft        *string    `db:"draft" json:"draft,omitempty"`
	Replied      bool       `db:"replied" json:"replied"`
	Sent         bool       `db:"sent" json:"sent"`
	ThreadID     *string    `db:"thread_id" json:"thread_id,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// DraftText returns the draft or "" when none was generated yet.
func (l *Lead) DraftText() string {
	if l.Draft == nil {
		return ""
	}
	return *l.Draft
}
