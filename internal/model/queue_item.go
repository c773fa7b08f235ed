// internal/model/queue_item.go
package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	QueueStatusPending   = "pending"
	QueueStatusSent      = "sent"
	QueueStatusFailed    = "failed"
	QueueStatusCancelled = "cancelled"
)

// QueueItem is one email scheduled for delivery at ScheduledAt.
type QueueItem struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	UserID          uuid.UUID  `db:"user_id" json:"user_id"`
	LeadID          *uuid.UUID `db:"lead_id" json:"lead_id,omitempty"`
	SenderAccountID uuid.UUID  `db:"sender_account_id" json:"sender_account_id"`
	Recipient       string     `db:"recipient" json:"recipient"`
	Subject         string     `db:"subject" json:"subject"`
	Body            string     `db:"body" json:"body"`
	ScheduledAt     time.Time  `db:"scheduled_at" json:"scheduled_at"`
	Status          string     `db:"status" json:"status"` // pending, sent, failed, cancelled
	LastError       string     `db:"last_error" json:"last_error,omitempty"`
	Attempts        int        `db:"attempts" json:"attempts"`
	SentAt          *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}
