package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	appErrors "github.com/unclebandit/pipeshark-backend/internal/errors"
	"github.com/unclebandit/pipeshark-backend/internal/model"
)

// ErrDuplicateQueueItem is returned by Insert when the lead already has an
// active (pending or sent) queue row.
var ErrDuplicateQueueItem = errors.New("lead already has an active queue item")

const uniqueViolation = "23505"

type QueueRepositoryInterface interface {
	ActiveLeadIDs(ctx context.Context, userID uuid.UUID, leadIDs []uuid.UUID) ([]uuid.UUID, error)
	Insert(ctx context.Context, item *model.QueueItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.QueueItem, error)
	ListByUser(ctx context.Context, userID uuid.UUID, status string, offset, limit int) ([]*model.QueueItem, int, error)
	ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]uuid.UUID, error)
	MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	Cancel(ctx context.Context, userID, id uuid.UUID) error
}

type QueueRepository struct {
	DB *sql.DB
}

const queueColumns = `id, user_id, lead_id, sender_account_id, recipient, subject, body, scheduled_at, status, last_error, attempts, sent_at, created_at, updated_at`

// ActiveLeadIDs returns the subset of leadIDs that already have a pending or
// sent queue row for the user.
func (r *QueueRepository) ActiveLeadIDs(ctx context.Context, userID uuid.UUID, leadIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(leadIDs) == 0 {
		return []uuid.UUID{}, nil
	}
	query := `
        SELECT DISTINCT lead_id
        FROM email_queue
        WHERE user_id=$1 AND lead_id = ANY($2) AND status IN ('pending', 'sent')
    `
	rows, err := r.DB.QueryContext(ctx, query, userID, pq.Array(leadIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Insert stores a new pending row. The storage-level partial unique index on
// (user_id, lead_id) turns a lost dedup race into ErrDuplicateQueueItem.
func (r *QueueRepository) Insert(ctx context.Context, item *model.QueueItem) error {
	if item.Status == "" {
		item.Status = model.QueueStatusPending
	}
	query := `
        INSERT INTO email_queue (user_id, lead_id, sender_account_id, recipient, subject, body, scheduled_at, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at, updated_at
    `
	err := r.DB.QueryRowContext(ctx, query,
		item.UserID, item.LeadID, item.SenderAccountID, item.Recipient, item.Subject, item.Body,
		item.ScheduledAt, item.Status,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateQueueItem
		}
		return err
	}
	return nil
}

func (r *QueueRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.QueueItem, error) {
	item, err := scanQueueItem(r.DB.QueryRowContext(ctx, `SELECT `+queueColumns+` FROM email_queue WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewNotFound("queue item", id.String())
		}
		return nil, err
	}
	return item, nil
}

func (r *QueueRepository) ListByUser(ctx context.Context, userID uuid.UUID, status string, offset, limit int) ([]*model.QueueItem, int, error) {
	where := ` WHERE user_id=$1`
	args := []interface{}{userID}
	if status != "" {
		where += ` AND status=$2`
		args = append(args, status)
	}

	query := `SELECT ` + queueColumns + ` FROM email_queue` + where +
		fmt.Sprintf(" ORDER BY scheduled_at LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := r.DB.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []*model.QueueItem{}
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM email_queue`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ClaimDue stamps up to limit due pending rows as dispatched and returns
// their ids. A row is claimable again once its lease has run out, so a
// publish that never reached the worker is retried on a later tick. Rows
// whose lead is already flagged sent are never claimed.
func (r *QueueRepository) ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]uuid.UUID, error) {
	rows, err := r.DB.QueryContext(ctx, `
        UPDATE email_queue SET dispatched_at=$1
        WHERE id IN (
            SELECT q.id FROM email_queue q
            WHERE q.status='pending' AND q.scheduled_at <= $1
              AND (q.dispatched_at IS NULL OR q.dispatched_at < $2)
              AND NOT EXISTS (SELECT 1 FROM leads l WHERE l.id = q.lead_id AND l.sent)
            ORDER BY q.scheduled_at
            LIMIT $3
            FOR UPDATE OF q SKIP LOCKED
        )
        RETURNING id
    `, now, now.Add(-lease), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *QueueRepository) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
        UPDATE email_queue
        SET status='sent', sent_at=$1, last_error='', attempts=attempts+1, updated_at=NOW()
        WHERE id=$2 AND status='pending'
    `, sentAt, id)
	return err
}

func (r *QueueRepository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	_, err := r.DB.ExecContext(ctx, `
        UPDATE email_queue
        SET status='failed', last_error=$1, attempts=attempts+1, updated_at=NOW()
        WHERE id=$2 AND status='pending'
    `, lastError, id)
	return err
}

// Cancel moves a pending row of the user to cancelled.
func (r *QueueRepository) Cancel(ctx context.Context, userID, id uuid.UUID) error {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE email_queue SET status='cancelled', updated_at=NOW()
        WHERE id=$1 AND user_id=$2 AND status='pending'
    `, id, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return appErrors.NewNotFound("pending queue item", id.String())
	}
	return nil
}

func scanQueueItem(row rowScanner) (*model.QueueItem, error) {
	var q model.QueueItem
	err := row.Scan(&q.ID, &q.UserID, &q.LeadID, &q.SenderAccountID, &q.Recipient, &q.Subject, &q.Body,
		&q.ScheduledAt, &q.Status, &q.LastError, &q.Attempts, &q.SentAt, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

var _ QueueRepositoryInterface = (*QueueRepository)(nil)
