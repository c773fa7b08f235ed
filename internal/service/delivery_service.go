package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/pipeshark-backend/internal/errors"
	"github.com/unclebandit/pipeshark-backend/internal/logger"
	"github.com/unclebandit/pipeshark-backend/internal/mailer"
	"github.com/unclebandit/pipeshark-backend/internal/metrics"
	"github.com/unclebandit/pipeshark-backend/internal/model"
	"github.com/unclebandit/pipeshark-backend/internal/repository"
)

const markSentAttempts = 3

// DeliveryService sends one queue item. Provider failures mark the row
// failed and are not retried. Storage errors before the send are returned so
// the queue redelivers the job; after a successful send nothing is returned,
// since a redelivery would send the email again.
type DeliveryService struct {
	QueueRepo  repository.QueueRepositoryInterface
	SenderRepo repository.SenderAccountRepositoryInterface
	LeadRepo   repository.LeadRepositoryInterface
	Mailer     mailer.Sender
	Now        func() time.Time
	Log        *zap.Logger

	// RetryDelay separates attempts to record a sent item.
	RetryDelay time.Duration
}

func NewDeliveryService(
	queueRepo repository.QueueRepositoryInterface,
	senders repository.SenderAccountRepositoryInterface,
	leads repository.LeadRepositoryInterface,
	m mailer.Sender,
	log *zap.Logger,
) *DeliveryService {
	return &DeliveryService{QueueRepo: queueRepo, SenderRepo: senders, LeadRepo: leads, Mailer: m, Now: time.Now, Log: log, RetryDelay: 200 * time.Millisecond}
}

func (s *DeliveryService) Deliver(ctx context.Context, id uuid.UUID) error {
	log := s.Log.With(zap.String("queue_item_id", id.String()))

	item, err := s.QueueRepo.GetByID(ctx, id)
	if err != nil {
		var nf *appErrors.ErrNotFound
		if errors.As(err, &nf) {
			log.Warn("queue item vanished before delivery")
			return nil
		}
		return err
	}
	if item.Status != model.QueueStatusPending {
		log.Debug("queue item no longer pending", zap.String("status", item.Status))
		return nil
	}

	account, err := s.SenderRepo.GetByID(ctx, item.SenderAccountID)
	if err != nil {
		var nf *appErrors.ErrNotFound
		if errors.As(err, &nf) {
			return s.fail(ctx, log, item, "unknown", err)
		}
		return err
	}
	if !account.Active {
		return s.fail(ctx, log, item, account.Provider, errors.New("sender account is disabled"))
	}

	res, err := s.Mailer.Send(ctx, account, mailer.Message{To: item.Recipient, Subject: item.Subject, Body: item.Body})
	if err != nil {
		return s.fail(ctx, log, item, account.Provider, err)
	}

	if err := s.markSent(ctx, item.ID); err != nil {
		log.Error("email sent but queue item still pending", zap.Int("attempts", markSentAttempts), zap.Error(err))
	}
	if item.LeadID != nil {
		if err := s.LeadRepo.MarkSent(ctx, *item.LeadID, res.ThreadID); err != nil {
			log.Error("failed to flag lead as sent", zap.Error(err))
		}
	}

	metrics.Deliveries.WithLabelValues(account.Provider, model.QueueStatusSent).Inc()
	log.Info("email sent", logger.Email("recipient", item.Recipient), zap.String("provider", account.Provider))
	return nil
}

func (s *DeliveryService) markSent(ctx context.Context, id uuid.UUID) error {
	var err error
	for attempt := 1; attempt <= markSentAttempts; attempt++ {
		if err = s.QueueRepo.MarkSent(ctx, id, s.Now()); err == nil {
			return nil
		}
		if attempt == markSentAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(s.RetryDelay):
		}
	}
	return err
}

func (s *DeliveryService) fail(ctx context.Context, log *zap.Logger, item *model.QueueItem, provider string, cause error) error {
	metrics.Deliveries.WithLabelValues(provider, model.QueueStatusFailed).Inc()
	log.Warn("email delivery failed", logger.Email("recipient", item.Recipient), zap.Error(cause))
	return s.QueueRepo.MarkFailed(ctx, item.ID, cause.Error())
}
