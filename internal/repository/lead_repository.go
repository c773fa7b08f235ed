package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/pipeshark-backend/internal/errors"
	"github.com/unclebandit/pipeshark-backend/internal/model"
)

type LeadRepositoryInterface interface {
	ListByCampaign(ctx context.Context, userID, campaignID uuid.UUID) ([]*model.Lead, error)
	ListQueueable(ctx context.Context, userID, campaignID uuid.UUID) ([]*model.Lead, error)
	CountByCampaign(ctx context.Context, campaignID uuid.UUID) (int, error)
	UpdateDraft(ctx context.Context, userID, leadID uuid.UUID, draft string) error
	MarkSent(ctx context.Context, leadID uuid.UUID, threadID string) error
}

type LeadRepository struct {
	DB *sql.DB
}

const leadColumns = `id, user_id, campaign_id, email, name, country, city, business_type, draft, replied, sent, thread_id, created_at, updated_at`

func (r *LeadRepository) ListByCampaign(ctx context.Context, userID, campaignID uuid.UUID) ([]*model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE user_id=$1 AND campaign_id=$2 ORDER BY created_at`
	return r.query(ctx, query, userID, campaignID)
}

// ListQueueable returns campaign leads that have a draft and were not sent yet,
// oldest first.
func (r *LeadRepository) ListQueueable(ctx context.Context, userID, campaignID uuid.UUID) ([]*model.Lead, error) {
	query := `
        SELECT ` + leadColumns + `
        FROM leads
        WHERE user_id=$1 AND campaign_id=$2
          AND draft IS NOT NULL AND btrim(draft) <> ''
          AND sent = FALSE
        ORDER BY created_at, id
    `
	return r.query(ctx, query, userID, campaignID)
}

func (r *LeadRepository) CountByCampaign(ctx context.Context, campaignID uuid.UUID) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads WHERE campaign_id=$1`, campaignID).Scan(&n)
	return n, err
}

func (r *LeadRepository) UpdateDraft(ctx context.Context, userID, leadID uuid.UUID, draft string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE leads SET draft=$1, updated_at=NOW() WHERE id=$2 AND user_id=$3`, draft, leadID, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return appErrors.NewNotFound("lead", leadID.String())
	}
	return nil
}

// MarkSent flags the lead as contacted and keeps the provider thread id for
// reply tracking when one is known.
func (r *LeadRepository) MarkSent(ctx context.Context, leadID uuid.UUID, threadID string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE leads SET sent=TRUE, thread_id=COALESCE(NULLIF($2, ''), thread_id), updated_at=NOW() WHERE id=$1`,
		leadID, threadID)
	return err
}

func (r *LeadRepository) query(ctx context.Context, query string, args ...any) ([]*model.Lead, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := []*model.Lead{}
	for rows.Next() {
		var l model.Lead
		if err := rows.Scan(&l.ID, &l.UserID, &l.CampaignID, &l.Email, &l.Name, &l.Country, &l.City,
			&l.BusinessType, &l.Draft, &l.Replied, &l.Sent, &l.ThreadID, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		leads = append(leads, &l)
	}
	return leads, rows.Err()
}

var _ LeadRepositoryInterface = (*LeadRepository)(nil)
