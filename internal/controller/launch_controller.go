package controller

import (
	"context"
	"net/http"
	"time"

	appErrors "github.com/unclebandit/pipeshark-backend/internal/errors"
	"github.com/unclebandit/pipeshark-backend/internal/handler"
	"github.com/unclebandit/pipeshark-backend/internal/service"
)

type Launcher interface {
	Run(ctx context.Context, at *time.Time) (*service.LaunchReport, error)
}

// LaunchController exposes the launch poller to an external scheduler.
type LaunchController struct {
	Launcher Launcher
}

// Launch runs the poller for ?at=RFC3339, or now. The run is synchronous and
// may take as long as the lead wait timeout.
func (c *LaunchController) Launch(w http.ResponseWriter, r *http.Request) {
	var at *time.Time
	if v := r.URL.Query().Get("at"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			handler.WriteError(w, r, appErrors.NewValidation("at must be an RFC3339 timestamp"))
			return
		}
		at = &t
	}

	report, err := c.Launcher.Run(r.Context(), at)
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, report)
}
