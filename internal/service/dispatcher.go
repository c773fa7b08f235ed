package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/pipeshark-backend/internal/metrics"
	"github.com/unclebandit/pipeshark-backend/internal/pkg/distlock"
	"github.com/unclebandit/pipeshark-backend/internal/queue"
	"github.com/unclebandit/pipeshark-backend/internal/repository"
)

const (
	DefaultDispatchBatch = 100
	// a claimed row that was not delivered within the lease is published again
	DefaultDispatchLease = 10 * time.Minute
)

// Dispatcher publishes due queue rows to the email_sends topic.
type Dispatcher struct {
	QueueRepo repository.QueueRepositoryInterface
	Bus       queue.Queue
	Locks     distlock.Factory
	BatchSize int
	Lease     time.Duration
	Now       func() time.Time
	Log       *zap.Logger
}

func NewDispatcher(repo repository.QueueRepositoryInterface, bus queue.Queue, locks distlock.Factory, batch int, log *zap.Logger) *Dispatcher {
	if batch <= 0 {
		batch = DefaultDispatchBatch
	}
	return &Dispatcher{
		QueueRepo: repo,
		Bus:       bus,
		Locks:     locks,
		BatchSize: batch,
		Lease:     DefaultDispatchLease,
		Now:       time.Now,
		Log:       log,
	}
}

// Dispatch claims one batch of due rows and publishes them. It returns the
// number published; a publish failure is logged and the row is picked up
// again when its lease runs out.
func (d *Dispatcher) Dispatch(ctx context.Context) (int, error) {
	if d.Locks != nil {
		lock := d.Locks("dispatch", time.Minute)
		ok, err := lock.Acquire(ctx)
		if err != nil {
			return 0, fmt.Errorf("acquire dispatch lock: %w", err)
		}
		if !ok {
			return 0, nil
		}
		defer lock.Release(context.WithoutCancel(ctx))
	}

	ids, err := d.QueueRepo.ClaimDue(ctx, d.Now(), d.BatchSize, d.Lease)
	if err != nil {
		return 0, fmt.Errorf("claim due items: %w", err)
	}

	published := 0
	for _, id := range ids {
		if err := d.Bus.Publish(ctx, queue.TopicEmailSends, queue.Job{QueueItemID: id}); err != nil {
			d.Log.Error("failed to publish queue item", zap.String("queue_item_id", id.String()), zap.Error(err))
			continue
		}
		published++
	}
	metrics.DispatchedItems.Add(float64(published))
	if published > 0 {
		d.Log.Info("dispatched due emails", zap.Int("count", published))
	}
	return published, nil
}
