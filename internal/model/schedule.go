// internal/model/schedule.go
package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	DeliveryModeSend  = "send"
	DeliveryModeDraft = "draft"
)

// Schedule is a user's daily launch configuration.
type Schedule struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	UserID      uuid.UUID   `db:"user_id" json:"user_id"`
	LaunchTime  string      `db:"launch_time" json:"launch_time"` // HH:MM local
	Timezone    string      `db:"timezone" json:"timezone"`
	CampaignIDs []uuid.UUID `db:"campaign_ids" json:"campaign_ids"`
	Mode        string      `db:"mode" json:"mode"` // send, draft
	Enabled     bool        `db:"enabled" json:"enabled"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   *time.Time  `db:"updated_at" json:"updated_at,omitempty"`
}
