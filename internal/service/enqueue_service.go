package service

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/pipeshark-backend/internal/errors"
	"github.com/unclebandit/pipeshark-backend/internal/logger"
	"github.com/unclebandit/pipeshark-backend/internal/metrics"
	"github.com/unclebandit/pipeshark-backend/internal/model"
	"github.com/unclebandit/pipeshark-backend/internal/repository"
	"github.com/unclebandit/pipeshark-backend/internal/scheduling"
)

const (
	ItemQueued           = "queued"
	ItemSkippedDuplicate = "skipped_duplicate"
	ItemFailed           = "failed"
)

// Enqueuer is what the launch poller needs from the enqueue path.
type Enqueuer interface {
	Enqueue(ctx context.Context, userID, campaignID uuid.UUID) (*EnqueueResult, error)
}

type EnqueueItem struct {
	LeadID      uuid.UUID  `json:"lead_id"`
	Email       string     `json:"email"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
}

type EnqueueResult struct {
	CampaignID uuid.UUID     `json:"campaign_id"`
	Enqueued   int           `json:"enqueued"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	Items      []EnqueueItem `json:"items"`
}

type EnqueueService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	LeadRepo     repository.LeadRepositoryInterface
	SenderRepo   repository.SenderAccountRepositoryInterface
	QueueRepo    repository.QueueRepositoryInterface
	Dedup        *Deduplicator

	// NewGenerator builds the time generator for one run. Runs never share a
	// generator since it carries random state.
	NewGenerator func() *scheduling.Generator
	Now          func() time.Time
	Log          *zap.Logger
}

func NewEnqueueService(
	campaigns repository.CampaignRepositoryInterface,
	leads repository.LeadRepositoryInterface,
	senders repository.SenderAccountRepositoryInterface,
	queue repository.QueueRepositoryInterface,
	newGenerator func() *scheduling.Generator,
	log *zap.Logger,
) *EnqueueService {
	if newGenerator == nil {
		newGenerator = func() *scheduling.Generator {
			return scheduling.NewGenerator(rand.New(rand.NewSource(time.Now().UnixNano())))
		}
	}
	return &EnqueueService{
		CampaignRepo: campaigns,
		LeadRepo:     leads,
		SenderRepo:   senders,
		QueueRepo:    queue,
		Dedup:        &Deduplicator{QueueRepo: queue},
		NewGenerator: newGenerator,
		Now:          time.Now,
		Log:          log,
	}
}

// Enqueue schedules one email per eligible lead of the campaign: leads with
// a draft that were not sent yet and have no live queue row.
func (s *EnqueueService) Enqueue(ctx context.Context, userID, campaignID uuid.UUID) (*EnqueueResult, error) {
	log := s.Log.With(zap.String("user_id", userID.String()), zap.String("campaign_id", campaignID.String()))

	campaign, err := s.CampaignRepo.GetByID(ctx, userID, campaignID)
	if err != nil {
		return nil, err
	}

	result := &EnqueueResult{CampaignID: campaignID, Items: []EnqueueItem{}}

	leads, err := s.LeadRepo.ListQueueable(ctx, userID, campaignID)
	if err != nil {
		return nil, err
	}
	if len(leads) == 0 {
		log.Info("no eligible leads to enqueue")
		return result, nil
	}

	account, err := s.resolveSender(ctx, userID, campaign.SendingEmail)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(leads))
	for i, l := range leads {
		ids[i] = l.ID
	}
	active, err := s.Dedup.ActiveLeadIDs(ctx, userID, ids)
	if err != nil {
		return nil, err
	}

	fresh := make([]*model.Lead, 0, len(leads))
	for _, l := range leads {
		if _, dup := active[l.ID]; dup {
			result.Items = append(result.Items, EnqueueItem{LeadID: l.ID, Email: l.Email, Status: ItemSkippedDuplicate})
			result.Skipped++
			continue
		}
		fresh = append(fresh, l)
	}

	timezones := make([]string, len(fresh))
	for i, l := range fresh {
		timezones[i] = scheduling.ResolveTimezone(l.Country, l.City)
	}
	times := s.NewGenerator().BuildScheduledTimes(s.Now(), timezones)

	for i, l := range fresh {
		item := s.insert(ctx, userID, account, l, times[i])
		switch item.Status {
		case ItemQueued:
			result.Enqueued++
		case ItemSkippedDuplicate:
			result.Skipped++
		default:
			result.Failed++
			log.Warn("failed to queue lead", zap.String("lead_id", l.ID.String()), zap.String("error", item.Error))
		}
		result.Items = append(result.Items, item)
	}

	metrics.EnqueuedItems.WithLabelValues(ItemQueued).Add(float64(result.Enqueued))
	metrics.EnqueuedItems.WithLabelValues(ItemSkippedDuplicate).Add(float64(result.Skipped))
	metrics.EnqueuedItems.WithLabelValues(ItemFailed).Add(float64(result.Failed))

	log.Info("campaign enqueued",
		zap.Int("enqueued", result.Enqueued),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *EnqueueService) resolveSender(ctx context.Context, userID uuid.UUID, email string) (*model.SenderAccount, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, &appErrors.ErrNoSenderAccount{}
	}
	account, err := s.SenderRepo.GetByEmail(ctx, userID, email)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, &appErrors.ErrNoSenderAccount{Email: email}
	}
	return account, nil
}

func (s *EnqueueService) insert(ctx context.Context, userID uuid.UUID, account *model.SenderAccount, lead *model.Lead, at time.Time) EnqueueItem {
	draft := scheduling.ParseDraft(lead.DraftText())
	fields := leadFields(lead)
	leadID := lead.ID

	row := &model.QueueItem{
		UserID:          userID,
		LeadID:          &leadID,
		SenderAccountID: account.ID,
		Recipient:       lead.Email,
		Subject:         RenderTemplate(draft.SubjectOrPlaceholder(), fields),
		Body:            RenderTemplate(draft.Body, fields),
		ScheduledAt:     at,
		Status:          model.QueueStatusPending,
	}

	item := EnqueueItem{LeadID: lead.ID, Email: lead.Email}
	err := s.QueueRepo.Insert(ctx, row)
	switch {
	case err == nil:
		item.Status = ItemQueued
		item.ScheduledAt = &at
	case errors.Is(err, repository.ErrDuplicateQueueItem):
		item.Status = ItemSkippedDuplicate
	default:
		item.Status = ItemFailed
		item.Error = err.Error()
	}
	if item.Status != ItemFailed {
		s.Log.Debug("lead processed", logger.Email("recipient", lead.Email), zap.String("status", item.Status))
	}
	return item
}
