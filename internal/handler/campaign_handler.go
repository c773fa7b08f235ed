// internal/handler/campaign_handler.go
package handler

import (
	"net/http"

	"github.com/unclebandit/pipeshark-backend/internal/middleware"
	"github.com/unclebandit/pipeshark-backend/internal/service"
)

// CampaignHandler serves campaign and lead resources of the signed-in user.
type CampaignHandler struct {
	Service *service.CampaignService
}

func NewCampaignHandler(svc *service.CampaignService) *CampaignHandler {
	return &CampaignHandler{Service: svc}
}

type campaignRequest struct {
	Name         string `json:"name" validate:"required,max=200"`
	BusinessType string `json:"business_type" validate:"required,max=200"`
	City         string `json:"city" validate:"max=200"`
	Country      string `json:"country" validate:"required,max=100"`
	Credits      int    `json:"credits" validate:"gte=0,lte=1000"`
	SendingEmail string `json:"sending_email" validate:"omitempty,email"`
	Tone         string `json:"tone" validate:"max=100"`
	Goal         string `json:"goal" validate:"max=500"`
	Status       string `json:"status" validate:"omitempty,oneof=draft active paused"`
}

func (p campaignRequest) input() service.CampaignInput {
	return service.CampaignInput{
		Name:         p.Name,
		BusinessType: p.BusinessType,
		City:         p.City,
		Country:      p.Country,
		Credits:      p.Credits,
		SendingEmail: p.SendingEmail,
		Tone:         p.Tone,
		Goal:         p.Goal,
		Status:       p.Status,
	}
}

// CreateCampaignHandler handles creating a new campaign
func (h *CampaignHandler) CreateCampaignHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	var payload campaignRequest
	if err := DecodeJSON(r, &payload); err != nil {
		WriteError(w, r, err)
		return
	}

	campaign, err := h.Service.CreateCampaign(r.Context(), userID, payload.input())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, campaign)
}

func (h *CampaignHandler) UpdateCampaignHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	id, err := UUIDParam(r, "id", "campaign")
	if err != nil {
		WriteError(w, r, err)
		return
	}
	var payload campaignRequest
	if err := DecodeJSON(r, &payload); err != nil {
		WriteError(w, r, err)
		return
	}

	campaign, err := h.Service.UpdateCampaign(r.Context(), userID, id, payload.input())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, campaign)
}

// ListCampaignsHandler returns a paginated list of campaigns
func (h *CampaignHandler) ListCampaignsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	page, pageSize := PageParams(r)

	campaigns, pagination, err := h.Service.ListCampaigns(r.Context(), userID, page, pageSize, r.URL.Query().Get("status"))
	if err != nil {
		WriteError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"data":       campaigns,
		"pagination": pagination,
	})
}

// GetCampaignHandlerWithStats returns one campaign with its lead count and
// queue status counts.
func (h *CampaignHandler) GetCampaignHandlerWithStats(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	id, err := UUIDParam(r, "id", "campaign")
	if err != nil {
		WriteError(w, r, err)
		return
	}

	details, err := h.Service.GetCampaignDetailsWithStats(r.Context(), userID, id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, details)
}

func (h *CampaignHandler) ListLeadsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	id, err := UUIDParam(r, "id", "campaign")
	if err != nil {
		WriteError(w, r, err)
		return
	}

	leads, err := h.Service.ListLeads(r.Context(), userID, id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"data": leads})
}

type draftRequest struct {
	Draft string `json:"draft" validate:"required"`
}

// UpdateLeadDraftHandler stores a reviewed draft: subject on the first line,
// a blank line, then the body.
func (h *CampaignHandler) UpdateLeadDraftHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	id, err := UUIDParam(r, "id", "lead")
	if err != nil {
		WriteError(w, r, err)
		return
	}
	var payload draftRequest
	if err := DecodeJSON(r, &payload); err != nil {
		WriteError(w, r, err)
		return
	}

	if err := h.Service.UpdateLeadDraft(r.Context(), userID, id, payload.Draft); err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
