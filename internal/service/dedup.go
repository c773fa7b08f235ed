package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/unclebandit/pipeshark-backend/internal/repository"
)

// Deduplicator finds leads that already hold a live queue row, so a lead is
// never emailed twice while one attempt is pending or done.
type Deduplicator struct {
	QueueRepo repository.QueueRepositoryInterface
}

// ActiveLeadIDs returns the subset of leadIDs with a pending or sent queue row
// for userID. A lookup error is returned as-is; callers must not enqueue.
func (d *Deduplicator) ActiveLeadIDs(ctx context.Context, userID uuid.UUID, leadIDs []uuid.UUID) (map[uuid.UUID]struct{}, error) {
	active := make(map[uuid.UUID]struct{})
	if len(leadIDs) == 0 {
		return active, nil
	}

	ids, err := d.QueueRepo.ActiveLeadIDs(ctx, userID, leadIDs)
	if err != nil {
		return nil, fmt.Errorf("active lead lookup: %w", err)
	}
	for _, id := range ids {
		active[id] = struct{}{}
	}
	return active, nil
}
