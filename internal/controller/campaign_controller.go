// internal/controller/campaign_controller.go
package controller

import (
	"net/http"

	"github.com/unclebandit/pipeshark-backend/internal/handler"
	"github.com/unclebandit/pipeshark-backend/internal/middleware"
	"github.com/unclebandit/pipeshark-backend/internal/service"
)

// CampaignController runs campaign actions.
type CampaignController struct {
	Enqueuer service.Enqueuer
}

// Enqueue schedules an email for every eligible lead of the campaign and
// returns the per-lead outcome.
func (c *CampaignController) Enqueue(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	id, err := handler.UUIDParam(r, "id", "campaign")
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}

	result, err := c.Enqueuer.Enqueue(r.Context(), userID, id)
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, result)
}
