package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/pipeshark-backend/internal/errors"
	"github.com/unclebandit/pipeshark-backend/internal/logger"
	"github.com/unclebandit/pipeshark-backend/internal/model"
	"github.com/unclebandit/pipeshark-backend/internal/repository"
)

// AccountService manages the per-user settings around delivery: connected
// sender accounts, the daily schedule and the queue view.
type AccountService struct {
	SenderRepo   repository.SenderAccountRepositoryInterface
	ScheduleRepo repository.ScheduleRepositoryInterface
	CampaignRepo repository.CampaignRepositoryInterface
	QueueRepo    repository.QueueRepositoryInterface
	Log          *zap.Logger
}

type SenderAccountInput struct {
	Email        string
	Provider     string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	RefreshToken string
}

func (s *AccountService) ConnectSenderAccount(ctx context.Context, userID uuid.UUID, in SenderAccountInput) (*model.SenderAccount, error) {
	a := &model.SenderAccount{
		UserID:   userID,
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		Provider: in.Provider,
		Active:   true,
	}
	switch in.Provider {
	case model.ProviderSMTP:
		if in.SMTPHost == "" || in.SMTPPort == 0 {
			return nil, appErrors.NewValidation("smtp accounts need smtp_host and smtp_port")
		}
		a.SMTPHost, a.SMTPPort = in.SMTPHost, in.SMTPPort
		a.SMTPUsername, a.SMTPPassword = in.SMTPUsername, in.SMTPPassword
		if a.SMTPUsername == "" {
			a.SMTPUsername = a.Email
		}
	case model.ProviderGmail:
		if in.RefreshToken == "" {
			return nil, appErrors.NewValidation("gmail accounts need a refresh_token")
		}
		a.RefreshToken = in.RefreshToken
	default:
		return nil, appErrors.NewValidation("unsupported provider %q", in.Provider)
	}

	if err := s.SenderRepo.Create(ctx, a); err != nil {
		return nil, err
	}
	s.Log.Info("sender account connected", logger.Email("email", a.Email), zap.String("provider", a.Provider))
	return a, nil
}

func (s *AccountService) ListSenderAccounts(ctx context.Context, userID uuid.UUID) ([]*model.SenderAccount, error) {
	return s.SenderRepo.ListByUser(ctx, userID)
}

type ScheduleInput struct {
	LaunchTime  string
	Timezone    string
	CampaignIDs []uuid.UUID
	Mode        string
	Enabled     bool
}

func (s *AccountService) GetSchedule(ctx context.Context, userID uuid.UUID) (*model.Schedule, error) {
	return s.ScheduleRepo.GetByUser(ctx, userID)
}

// SaveSchedule validates and stores the user's schedule. Every campaign it
// names must belong to the user.
func (s *AccountService) SaveSchedule(ctx context.Context, userID uuid.UUID, in ScheduleInput) (*model.Schedule, error) {
	if _, _, err := parseLaunchTime(in.LaunchTime); err != nil {
		return nil, appErrors.NewValidation("launch_time must be HH:MM")
	}
	tz := strings.TrimSpace(in.Timezone)
	if tz == "" {
		tz = "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, appErrors.NewValidation("unknown timezone %q", tz)
	}
	mode := in.Mode
	if mode == "" {
		mode = model.DeliveryModeDraft
	}
	if mode != model.DeliveryModeSend && mode != model.DeliveryModeDraft {
		return nil, appErrors.NewValidation("mode must be %q or %q", model.DeliveryModeSend, model.DeliveryModeDraft)
	}

	ids := make([]uuid.UUID, 0, len(in.CampaignIDs))
	seen := map[uuid.UUID]bool{}
	for _, id := range in.CampaignIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := s.CampaignRepo.GetByID(ctx, userID, id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	sch := &model.Schedule{
		UserID:      userID,
		LaunchTime:  strings.TrimSpace(in.LaunchTime),
		Timezone:    tz,
		CampaignIDs: ids,
		Mode:        mode,
		Enabled:     in.Enabled,
	}
	if err := s.ScheduleRepo.Upsert(ctx, sch); err != nil {
		return nil, err
	}
	return sch, nil
}

func (s *AccountService) ListQueue(ctx context.Context, userID uuid.UUID, status string, page, pageSize int) ([]*model.QueueItem, map[string]int, error) {
	page, pageSize, offset := normalizePage(page, pageSize)
	items, total, err := s.QueueRepo.ListByUser(ctx, userID, status, offset, pageSize)
	if err != nil {
		return nil, nil, err
	}
	return items, pagination(page, pageSize, total), nil
}

// CancelQueueItem cancels a pending item; sent or failed items are not found.
func (s *AccountService) CancelQueueItem(ctx context.Context, userID, id uuid.UUID) error {
	return s.QueueRepo.Cancel(ctx, userID, id)
}
