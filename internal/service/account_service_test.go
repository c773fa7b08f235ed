package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/pipeshark-backend/internal/errors"
	"github.com/unclebandit/pipeshark-backend/internal/model"
	"github.com/unclebandit/pipeshark-backend/internal/service"
)

func newAccountService(campaigns ...*model.Campaign) (*service.AccountService, *fakeScheduleRepo, *fakeQueueRepo) {
	schedules := &fakeScheduleRepo{}
	queueRepo := &fakeQueueRepo{}
	return &service.AccountService{
		SenderRepo:   &fakeSenderRepo{},
		ScheduleRepo: schedules,
		CampaignRepo: &fakeCampaignRepo{campaigns: campaigns},
		QueueRepo:    queueRepo,
		Log:          zap.NewNop(),
	}, schedules, queueRepo
}

func TestConnectSenderAccount(t *testing.T) {
	svc, _, _ := newAccountService()
	userID := uuid.New()

	smtp, err := svc.ConnectSenderAccount(context.Background(), userID, service.SenderAccountInput{
		Email: "Me@Example.com", Provider: model.ProviderSMTP, SMTPHost: "smtp.example.com", SMTPPort: 587, SMTPPassword: "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", smtp.Email)
	assert.Equal(t, "me@example.com", smtp.SMTPUsername)
	assert.True(t, smtp.Active)

	_, err = svc.ConnectSenderAccount(context.Background(), userID, service.SenderAccountInput{
		Email: "me@gmail.com", Provider: model.ProviderGmail, RefreshToken: "1//refresh",
	})
	require.NoError(t, err)

	accounts, err := svc.ListSenderAccounts(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)

	for _, bad := range []service.SenderAccountInput{
		{Email: "a@b.c", Provider: model.ProviderSMTP},
		{Email: "a@b.c", Provider: model.ProviderGmail},
		{Email: "a@b.c", Provider: "outlook"},
	} {
		_, err := svc.ConnectSenderAccount(context.Background(), userID, bad)
		var ve *appErrors.ErrValidation
		assert.True(t, errors.As(err, &ve), bad.Provider)
	}
}

func TestSaveSchedule(t *testing.T) {
	userID := uuid.New()
	mine := &model.Campaign{ID: uuid.New(), UserID: userID}
	theirs := &model.Campaign{ID: uuid.New(), UserID: uuid.New()}
	svc, schedules, _ := newAccountService(mine, theirs)

	s, err := svc.SaveSchedule(context.Background(), userID, service.ScheduleInput{
		LaunchTime: "08:30", Timezone: "Europe/Berlin", CampaignIDs: []uuid.UUID{mine.ID, mine.ID}, Enabled: true,
	})
	require.NoError(t, err)
	assert.Equal(t, model.DeliveryModeDraft, s.Mode)
	assert.Equal(t, []uuid.UUID{mine.ID}, s.CampaignIDs)
	assert.Same(t, s, schedules.upserted)

	_, err = svc.SaveSchedule(context.Background(), userID, service.ScheduleInput{LaunchTime: "08:30", CampaignIDs: []uuid.UUID{theirs.ID}})
	var nf *appErrors.ErrNotFound
	assert.True(t, errors.As(err, &nf))

	for _, in := range []service.ScheduleInput{
		{LaunchTime: "25:00"},
		{LaunchTime: "0830"},
		{LaunchTime: "08:30", Timezone: "Mars/Olympus"},
		{LaunchTime: "08:30", Mode: "blast"},
	} {
		_, err := svc.SaveSchedule(context.Background(), userID, in)
		var ve *appErrors.ErrValidation
		assert.True(t, errors.As(err, &ve), "%+v", in)
	}
}

func TestQueueListAndCancel(t *testing.T) {
	svc, _, queueRepo := newAccountService()
	userID := uuid.New()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	pending := &model.QueueItem{ID: uuid.New(), UserID: userID, Status: model.QueueStatusPending, ScheduledAt: base.Add(time.Hour)}
	sent := &model.QueueItem{ID: uuid.New(), UserID: userID, Status: model.QueueStatusSent, ScheduledAt: base}
	queueRepo.items = []*model.QueueItem{pending, sent}

	items, pagination, err := svc.ListQueue(context.Background(), userID, "", 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, sent.ID, items[0].ID)
	assert.Equal(t, 2, pagination["total_count"])

	require.NoError(t, svc.CancelQueueItem(context.Background(), userID, pending.ID))
	assert.Equal(t, model.QueueStatusCancelled, pending.Status)

	err = svc.CancelQueueItem(context.Background(), userID, sent.ID)
	var nf *appErrors.ErrNotFound
	assert.True(t, errors.As(err, &nf))
}
