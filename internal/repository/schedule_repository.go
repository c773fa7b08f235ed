package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	appErrors "github.com/unclebandit/pipeshark-backend/internal/errors"
	"github.com/unclebandit/pipeshark-backend/internal/model"
)

type ScheduleRepositoryInterface interface {
	ListEnabled(ctx context.Context) ([]*model.Schedule, error)
	GetByUser(ctx context.Context, userID uuid.UUID) (*model.Schedule, error)
	Upsert(ctx context.Context, s *model.Schedule) error
}

type ScheduleRepository struct {
	DB *sql.DB
}

const scheduleColumns = `id, user_id, launch_time, timezone, campaign_ids, mode, enabled, created_at, updated_at`

func (r *ScheduleRepository) ListEnabled(ctx context.Context) ([]*model.Schedule, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE enabled ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schedules := []*model.Schedule{}
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

func (r *ScheduleRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*model.Schedule, error) {
	s, err := scanSchedule(r.DB.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE user_id=$1`, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewNotFound("schedule", userID.String())
		}
		return nil, err
	}
	return s, nil
}

// Upsert writes the user's single schedule row.
func (r *ScheduleRepository) Upsert(ctx context.Context, s *model.Schedule) error {
	query := `
        INSERT INTO schedules (user_id, launch_time, timezone, campaign_ids, mode, enabled)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (user_id) DO UPDATE
        SET launch_time=EXCLUDED.launch_time, timezone=EXCLUDED.timezone, campaign_ids=EXCLUDED.campaign_ids,
            mode=EXCLUDED.mode, enabled=EXCLUDED.enabled, updated_at=NOW()
        RETURNING id, created_at
    `
	return r.DB.QueryRowContext(ctx, query,
		s.UserID, s.LaunchTime, s.Timezone, pq.Array(s.CampaignIDs), s.Mode, s.Enabled,
	).Scan(&s.ID, &s.CreatedAt)
}

func scanSchedule(row rowScanner) (*model.Schedule, error) {
	var s model.Schedule
	var ids []uuid.UUID
	err := row.Scan(&s.ID, &s.UserID, &s.LaunchTime, &s.Timezone, pq.Array(&ids), &s.Mode, &s.Enabled, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.CampaignIDs = ids
	return &s, nil
}

var _ ScheduleRepositoryInterface = (*ScheduleRepository)(nil)
