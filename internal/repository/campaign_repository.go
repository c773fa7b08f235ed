package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/pipeshark-backend/internal/errors"
	"github.com/unclebandit/pipeshark-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(ctx context.Context, c *model.Campaign) error
	Update(ctx context.Context, c *model.Campaign) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*model.Campaign, error)
	ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int, status string) ([]*model.Campaign, int, error)
	GetQueueStats(ctx context.Context, userID, campaignID uuid.UUID) (map[string]int, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, user_id, name, business_type, city, country, credits, sending_email, tone, goal, status, created_at, updated_at`

// ====================== Campaign CRUD ======================

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	if c.Status == "" {
		c.Status = "draft"
	}
	query := `
        INSERT INTO campaigns (user_id, name, business_type, city, country, credits, sending_email, tone, goal, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id, created_at
    `
	return r.DB.QueryRowContext(ctx, query,
		c.UserID, c.Name, c.BusinessType, c.City, c.Country, c.Credits, c.SendingEmail, c.Tone, c.Goal, c.Status,
	).Scan(&c.ID, &c.CreatedAt)
}

func (r *CampaignRepository) Update(ctx context.Context, c *model.Campaign) error {
	query := `
        UPDATE campaigns
        SET name=$1, business_type=$2, city=$3, country=$4, credits=$5, sending_email=$6, tone=$7, goal=$8, status=$9, updated_at=NOW()
        WHERE id=$10 AND user_id=$11
    `
	res, err := r.DB.ExecContext(ctx, query,
		c.Name, c.BusinessType, c.City, c.Country, c.Credits, c.SendingEmail, c.Tone, c.Goal, c.Status, c.ID, c.UserID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return appErrors.NewCampaignNotFound(c.ID)
	}
	return nil
}

// GetByID returns the campaign only when it belongs to userID.
func (r *CampaignRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1 AND user_id=$2`
	c, err := scanCampaign(r.DB.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int, status string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	where := ` WHERE user_id=$1`
	args := []interface{}{userID}
	if status != "" {
		where += ` AND status=$2`
		args = append(args, status)
	}

	query := `SELECT ` + campaignColumns + ` FROM campaigns` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := r.DB.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return campaigns, total, nil
}

// GetQueueStats counts the campaign's queue rows by status.
func (r *CampaignRepository) GetQueueStats(ctx context.Context, userID, campaignID uuid.UUID) (map[string]int, error) {
	query := `
        SELECT q.status, COUNT(*)
        FROM email_queue q
        JOIN leads l ON l.id = q.lead_id
        WHERE l.campaign_id=$1 AND q.user_id=$2
        GROUP BY q.status
    `
	rows, err := r.DB.QueryContext(ctx, query, campaignID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{
		"total":                    0,
		model.QueueStatusPending:   0,
		model.QueueStatusSent:      0,
		model.QueueStatusFailed:    0,
		model.QueueStatusCancelled: 0,
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
		stats["total"] += count
	}
	return stats, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.BusinessType, &c.City, &c.Country, &c.Credits,
		&c.SendingEmail, &c.Tone, &c.Goal, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
