// internal/model/campaign.go
package model

import (
	"time"

	"github.com/google/uuid"
)

type Campaign struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	UserID       uuid.UUID  `db:"user_id" json:"user_id"`
	Name         string     `db:"name" json:"name"`
	BusinessType string     `db:"business_type" json:"business_type"`
	City         string     `db:"city" json:"city"`
	Country      string     `db:"country" json:"country"`
	Credits      int        `db:"credits" json:"credits"`
	SendingEmail string     `db:"sending_email" json:"sending_email"`
	Tone         string     `db:"tone" json:"tone"`
	Goal         string     `db:"goal" json:"goal"`
	Status       string     `db:"status" json:"status"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
