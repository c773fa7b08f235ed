package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/pipeshark-backend/internal/queue"
)

// DispatchFunc publishes due queue items and reports how many went out.
type DispatchFunc func(ctx context.Context) (int, error)

// Worker owns delivery: it consumes email_sends jobs and ticks the
// dispatcher that produces them.
type Worker struct {
	Queue     queue.Queue
	Deliverer queue.Deliverer
	Dispatch  DispatchFunc
	Interval  time.Duration
	Log       *zap.Logger
}

func NewWorker(q queue.Queue, d queue.Deliverer, dispatch DispatchFunc, interval time.Duration, log *zap.Logger) *Worker {
	return &Worker{Queue: q, Deliverer: d, Dispatch: dispatch, Interval: interval, Log: log}
}

// Start subscribes the deliverer and runs dispatch ticks until ctx is done.
func (w *Worker) Start(ctx context.Context) error {
	if err := queue.StartDeliverySubscriber(w.Queue, w.Deliverer, w.Log); err != nil {
		return err
	}
	if w.Dispatch == nil || w.Interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	if _, err := w.Dispatch(ctx); err != nil {
		w.Log.Error("dispatch tick failed", zap.Error(err))
	}
}
