package controller_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/pipeshark-backend/internal/controller"
	appErrors "github.com/unclebandit/pipeshark-backend/internal/errors"
	"github.com/unclebandit/pipeshark-backend/internal/middleware"
	"github.com/unclebandit/pipeshark-backend/internal/model"
	"github.com/unclebandit/pipeshark-backend/internal/service"
)

// --- Mocks ---

type mockEnqueuer struct {
	userID, campaignID uuid.UUID
	result             *service.EnqueueResult
	err                error
}

func (m *mockEnqueuer) Enqueue(ctx context.Context, userID, campaignID uuid.UUID) (*service.EnqueueResult, error) {
	m.userID, m.campaignID = userID, campaignID
	return m.result, m.err
}

type mockLauncher struct {
	at     *time.Time
	called bool
	report *service.LaunchReport
}

func (m *mockLauncher) Run(ctx context.Context, at *time.Time) (*service.LaunchReport, error) {
	m.called = true
	m.at = at
	return m.report, nil
}

type mockAccounts struct {
	senderInput   service.SenderAccountInput
	scheduleInput service.ScheduleInput
	cancelled     uuid.UUID
	cancelErr     error
	listStatus    string
	listPage      int
}

func (m *mockAccounts) ConnectSenderAccount(ctx context.Context, userID uuid.UUID, in service.SenderAccountInput) (*model.SenderAccount, error) {
	m.senderInput = in
	return &model.SenderAccount{ID: uuid.New(), UserID: userID, Email: in.Email, Provider: in.Provider, SMTPPassword: in.SMTPPassword, RefreshToken: in.RefreshToken}, nil
}

func (m *mockAccounts) ListSenderAccounts(ctx context.Context, userID uuid.UUID) ([]*model.SenderAccount, error) {
	return []*model.SenderAccount{}, nil
}

func (m *mockAccounts) GetSchedule(ctx context.Context, userID uuid.UUID) (*model.Schedule, error) {
	return nil, appErrors.NewNotFound("schedule", userID.String())
}

func (m *mockAccounts) SaveSchedule(ctx context.Context, userID uuid.UUID, in service.ScheduleInput) (*model.Schedule, error) {
	m.scheduleInput = in
	return &model.Schedule{UserID: userID, LaunchTime: in.LaunchTime, CampaignIDs: in.CampaignIDs, Mode: in.Mode}, nil
}

func (m *mockAccounts) ListQueue(ctx context.Context, userID uuid.UUID, status string, page, pageSize int) ([]*model.QueueItem, map[string]int, error) {
	m.listStatus, m.listPage = status, page
	return []*model.QueueItem{}, map[string]int{"page": page}, nil
}

func (m *mockAccounts) CancelQueueItem(ctx context.Context, userID, id uuid.UUID) error {
	m.cancelled = id
	return m.cancelErr
}

// --- Helpers ---

func serve(t *testing.T, userID uuid.UUID, pattern, method, path, body string, h http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Method(method, pattern, h)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID != uuid.Nil {
		req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// --- Tests ---

func TestEnqueueHandler(t *testing.T) {
	userID, campaignID := uuid.New(), uuid.New()
	enq := &mockEnqueuer{result: &service.EnqueueResult{CampaignID: campaignID, Enqueued: 3, Items: []service.EnqueueItem{}}}
	ctrl := &controller.CampaignController{Enqueuer: enq}

	rec := serve(t, userID, "/api/campaigns/{id}/enqueue", http.MethodPost, "/api/campaigns/"+campaignID.String()+"/enqueue", "", ctrl.Enqueue)
	require.Equal(t, http.StatusOK, rec.Code)

	var res map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, float64(3), res["enqueued"])
	assert.Equal(t, userID, enq.userID)
	assert.Equal(t, campaignID, enq.campaignID)
}

func TestEnqueueHandler_Errors(t *testing.T) {
	campaignID := uuid.New()
	path := "/api/campaigns/" + campaignID.String() + "/enqueue"

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"no sender", &appErrors.ErrNoSenderAccount{Email: "me@example.com"}, http.StatusBadRequest},
		{"not found", appErrors.NewCampaignNotFound(campaignID), http.StatusNotFound},
		{"storage", context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := &controller.CampaignController{Enqueuer: &mockEnqueuer{err: tc.err}}
			rec := serve(t, uuid.New(), "/api/campaigns/{id}/enqueue", http.MethodPost, path, "", ctrl.Enqueue)
			assert.Equal(t, tc.status, rec.Code)
		})
	}

	ctrl := &controller.CampaignController{Enqueuer: &mockEnqueuer{}}
	rec := serve(t, uuid.Nil, "/api/campaigns/{id}/enqueue", http.MethodPost, path, "", ctrl.Enqueue)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLaunchHandler(t *testing.T) {
	launcher := &mockLauncher{report: &service.LaunchReport{UsersProcessed: 1, Results: []service.LaunchResult{}, Errors: []service.LaunchError{}}}
	ctrl := &controller.LaunchController{Launcher: launcher}

	rec := serve(t, uuid.Nil, "/cron/launch", http.MethodPost, "/cron/launch?at=2026-03-02T06:00:00Z", "", ctrl.Launch)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, launcher.at)
	assert.True(t, launcher.at.Equal(time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)))
	assert.Contains(t, rec.Body.String(), `"users_processed":1`)

	launcher = &mockLauncher{report: &service.LaunchReport{}}
	ctrl.Launcher = launcher
	rec = serve(t, uuid.Nil, "/cron/launch", http.MethodPost, "/cron/launch", "", ctrl.Launch)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, launcher.at)

	launcher = &mockLauncher{}
	ctrl.Launcher = launcher
	rec = serve(t, uuid.Nil, "/cron/launch", http.MethodPost, "/cron/launch?at=yesterday", "", ctrl.Launch)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, launcher.called)
}

func TestConnectSenderAccountHandler(t *testing.T) {
	accounts := &mockAccounts{}
	ctrl := &controller.AccountController{Accounts: accounts}
	userID := uuid.New()

	rec := serve(t, userID, "/api/sender-accounts", http.MethodPost, "/api/sender-accounts",
		`{"email":"me@example.com","provider":"smtp","smtp_host":"smtp.example.com","smtp_port":587,"smtp_password":"hunter2"}`,
		ctrl.ConnectSenderAccount)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 587, accounts.senderInput.SMTPPort)
	assert.NotContains(t, rec.Body.String(), "hunter2")

	for name, body := range map[string]string{
		"smtp without host":   `{"email":"me@example.com","provider":"smtp","smtp_port":587}`,
		"gmail without token": `{"email":"me@example.com","provider":"gmail"}`,
		"unknown provider":    `{"email":"me@example.com","provider":"outlook"}`,
		"bad email":           `{"email":"me","provider":"gmail","refresh_token":"x"}`,
	} {
		rec := serve(t, userID, "/api/sender-accounts", http.MethodPost, "/api/sender-accounts", body, ctrl.ConnectSenderAccount)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestScheduleHandlers(t *testing.T) {
	accounts := &mockAccounts{}
	ctrl := &controller.AccountController{Accounts: accounts}
	userID, campaignID := uuid.New(), uuid.New()

	rec := serve(t, userID, "/api/schedule", http.MethodGet, "/api/schedule", "", ctrl.GetSchedule)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, userID, "/api/schedule", http.MethodPut, "/api/schedule",
		`{"launch_time":"09:00","timezone":"Africa/Nairobi","campaign_ids":["`+campaignID.String()+`"],"mode":"send","enabled":true}`,
		ctrl.SaveSchedule)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []uuid.UUID{campaignID}, accounts.scheduleInput.CampaignIDs)
	assert.True(t, accounts.scheduleInput.Enabled)

	rec = serve(t, userID, "/api/schedule", http.MethodPut, "/api/schedule", `{"launch_time":"09:00","mode":"blast"}`, ctrl.SaveSchedule)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, userID, "/api/schedule", http.MethodPut, "/api/schedule", `{"launch_time":"09:00","campaign_ids":["nope"]}`, ctrl.SaveSchedule)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueueHandlers(t *testing.T) {
	accounts := &mockAccounts{}
	ctrl := &controller.AccountController{Accounts: accounts}
	userID, itemID := uuid.New(), uuid.New()

	rec := serve(t, userID, "/api/queue", http.MethodGet, "/api/queue?status=pending&page=2", "", ctrl.ListQueue)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pending", accounts.listStatus)
	assert.Equal(t, 2, accounts.listPage)

	rec = serve(t, userID, "/api/queue/{id}/cancel", http.MethodPost, "/api/queue/"+itemID.String()+"/cancel", "", ctrl.CancelQueueItem)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, itemID, accounts.cancelled)

	accounts.cancelErr = appErrors.NewNotFound("pending queue item", itemID.String())
	rec = serve(t, userID, "/api/queue/{id}/cancel", http.MethodPost, "/api/queue/"+itemID.String()+"/cancel", "", ctrl.CancelQueueItem)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
