package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TopicEmailSends carries ids of due queue items to the delivery worker.
const TopicEmailSends = "email_sends"

type Job struct {
	QueueItemID uuid.UUID `json:"queue_item_id"`
}

type Handler func(ctx context.Context, job Job) error

type Queue interface {
	Publish(ctx context.Context, topic string, job Job) error
	Subscribe(topic string, handler Handler) error
	Close() error
}

// InMemoryQueue runs handlers in goroutines with retry; used when no broker
// is configured.
type InMemoryQueue struct {
	mu         sync.Mutex
	handlers   map[string][]Handler
	maxRetries int
	backoff    time.Duration
	log        *zap.Logger
	wg         sync.WaitGroup
}

func NewInMemoryQueue(log *zap.Logger) *InMemoryQueue {
	if log == nil {
		log = zap.NewNop()
	}
	return &InMemoryQueue{
		handlers:   make(map[string][]Handler),
		maxRetries: 3,
		backoff:    500 * time.Millisecond,
		log:        log,
	}
}

// Publish hands the job to every subscriber of topic.
func (q *InMemoryQueue) Publish(ctx context.Context, topic string, job Job) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	for _, handler := range handlers {
		q.wg.Add(1)
		go q.processJob(context.WithoutCancel(ctx), topic, handler, job)
	}
	return nil
}

// processJob retries with linear backoff and drops the job after maxRetries.
func (q *InMemoryQueue) processJob(ctx context.Context, topic string, handler Handler, job Job) {
	defer q.wg.Done()
	for attempt := 0; ; attempt++ {
		err := handler(ctx, job)
		if err == nil {
			return
		}
		if attempt >= q.maxRetries {
			q.log.Error("job permanently failed",
				zap.String("topic", topic),
				zap.String("queue_item_id", job.QueueItemID.String()),
				zap.Int("attempts", attempt+1),
				zap.Error(err),
			)
			return
		}
		q.log.Warn("job failed, retrying",
			zap.String("topic", topic),
			zap.String("queue_item_id", job.QueueItemID.String()),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		time.Sleep(time.Duration(attempt+1) * q.backoff)
	}
}

func (q *InMemoryQueue) Subscribe(topic string, handler Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Close waits for in-flight jobs.
func (q *InMemoryQueue) Close() error {
	q.wg.Wait()
	return nil
}

// Deliverer is what the email_sends subscriber calls per job.
type Deliverer interface {
	Deliver(ctx context.Context, queueItemID uuid.UUID) error
}

// StartDeliverySubscriber wires the email_sends topic to d.
func StartDeliverySubscriber(q Queue, d Deliverer, log *zap.Logger) error {
	return q.Subscribe(TopicEmailSends, func(ctx context.Context, job Job) error {
		log.Debug("processing queued email", zap.String("queue_item_id", job.QueueItemID.String()))
		return d.Deliver(ctx, job.QueueItemID)
	})
}
