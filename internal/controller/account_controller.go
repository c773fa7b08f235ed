package controller

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/unclebandit/pipeshark-backend/internal/handler"
	"github.com/unclebandit/pipeshark-backend/internal/middleware"
	"github.com/unclebandit/pipeshark-backend/internal/model"
	"github.com/unclebandit/pipeshark-backend/internal/service"
)

// AccountManager is the slice of AccountService the settings endpoints use.
type AccountManager interface {
	ConnectSenderAccount(ctx context.Context, userID uuid.UUID, in service.SenderAccountInput) (*model.SenderAccount, error)
	ListSenderAccounts(ctx context.Context, userID uuid.UUID) ([]*model.SenderAccount, error)
	GetSchedule(ctx context.Context, userID uuid.UUID) (*model.Schedule, error)
	SaveSchedule(ctx context.Context, userID uuid.UUID, in service.ScheduleInput) (*model.Schedule, error)
	ListQueue(ctx context.Context, userID uuid.UUID, status string, page, pageSize int) ([]*model.QueueItem, map[string]int, error)
	CancelQueueItem(ctx context.Context, userID, id uuid.UUID) error
}

type AccountController struct {
	Accounts AccountManager
}

type senderAccountRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Provider     string `json:"provider" validate:"required,oneof=smtp gmail"`
	SMTPHost     string `json:"smtp_host" validate:"required_if=Provider smtp,omitempty,hostname_rfc1123|ip"`
	SMTPPort     int    `json:"smtp_port" validate:"required_if=Provider smtp,omitempty,min=1,max=65535"`
	SMTPUsername string `json:"smtp_username"`
	SMTPPassword string `json:"smtp_password"`
	RefreshToken string `json:"refresh_token" validate:"required_if=Provider gmail"`
}

func (c *AccountController) ConnectSenderAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	var body senderAccountRequest
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, r, err)
		return
	}

	account, err := c.Accounts.ConnectSenderAccount(r.Context(), userID, service.SenderAccountInput{
		Email:        body.Email,
		Provider:     body.Provider,
		SMTPHost:     body.SMTPHost,
		SMTPPort:     body.SMTPPort,
		SMTPUsername: body.SMTPUsername,
		SMTPPassword: body.SMTPPassword,
		RefreshToken: body.RefreshToken,
	})
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusCreated, account)
}

func (c *AccountController) ListSenderAccounts(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	accounts, err := c.Accounts.ListSenderAccounts(r.Context(), userID)
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": accounts})
}

type scheduleRequest struct {
	LaunchTime  string      `json:"launch_time" validate:"required"`
	Timezone    string      `json:"timezone"`
	CampaignIDs []uuid.UUID `json:"campaign_ids" validate:"max=50"`
	Mode        string      `json:"mode" validate:"omitempty,oneof=send draft"`
	Enabled     bool        `json:"enabled"`
}

func (c *AccountController) GetSchedule(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	schedule, err := c.Accounts.GetSchedule(r.Context(), userID)
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, schedule)
}

func (c *AccountController) SaveSchedule(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	var body scheduleRequest
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, r, err)
		return
	}

	schedule, err := c.Accounts.SaveSchedule(r.Context(), userID, service.ScheduleInput{
		LaunchTime:  body.LaunchTime,
		Timezone:    body.Timezone,
		CampaignIDs: body.CampaignIDs,
		Mode:        body.Mode,
		Enabled:     body.Enabled,
	})
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, schedule)
}

func (c *AccountController) ListQueue(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	page, pageSize := handler.PageParams(r)

	items, pagination, err := c.Accounts.ListQueue(r.Context(), userID, r.URL.Query().Get("status"), page, pageSize)
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"data":       items,
		"pagination": pagination,
	})
}

func (c *AccountController) CancelQueueItem(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	id, err := handler.UUIDParam(r, "id", "queue item")
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	if err := c.Accounts.CancelQueueItem(r.Context(), userID, id); err != nil {
		handler.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
