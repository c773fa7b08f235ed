// Package workflow starts the external lead-generation workflow.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/pipeshark-backend/internal/errors"
	"github.com/unclebandit/pipeshark-backend/internal/metrics"
	"github.com/unclebandit/pipeshark-backend/internal/pkg/httpretry"
)

// LeadGenerationRequest is the webhook body. The workflow writes leads for
// CampaignID with drafts, then exits; nothing is reported back.
type LeadGenerationRequest struct {
	UserID       uuid.UUID `json:"user_id"`
	CampaignID   uuid.UUID `json:"campaign_id"`
	BusinessType string    `json:"business_type"`
	Credits      int       `json:"credits"`
	City         string    `json:"city"`
	Country      string    `json:"country"`
	Tone         string    `json:"tone,omitempty"`
	Goal         string    `json:"goal,omitempty"`
	SenderEmail  string    `json:"sender_email,omitempty"`
}

type Trigger interface {
	TriggerLeadGeneration(ctx context.Context, req LeadGenerationRequest) error
}

// WebhookTrigger posts the request to the workflow engine's webhook.
type WebhookTrigger struct {
	URL    string
	Secret string
	Client httpretry.HTTPDoer
	Log    *zap.Logger
}

func NewWebhookTrigger(url, secret string, client httpretry.HTTPDoer, log *zap.Logger) *WebhookTrigger {
	return &WebhookTrigger{URL: url, Secret: secret, Client: client, Log: log}
}

// TriggerLeadGeneration returns once the webhook accepted the request; it
// does not wait for the workflow to finish.
func (t *WebhookTrigger) TriggerLeadGeneration(ctx context.Context, req LeadGenerationRequest) error {
	if t.URL == "" {
		return &appErrors.ErrConfigurationMissing{Key: "WORKFLOW_WEBHOOK_URL"}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build workflow request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if t.Secret != "" {
		httpReq.Header.Set("X-Webhook-Secret", t.Secret)
	}

	resp, err := t.Client.Do(httpReq)
	if err != nil {
		metrics.WorkflowTriggers.WithLabelValues("error").Inc()
		return &appErrors.ErrExternalService{Service: "workflow", Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.WorkflowTriggers.WithLabelValues("error").Inc()
		return &appErrors.ErrExternalService{Service: "workflow", StatusCode: resp.StatusCode}
	}

	metrics.WorkflowTriggers.WithLabelValues("ok").Inc()
	if t.Log != nil {
		t.Log.Info("lead generation triggered",
			zap.String("campaign_id", req.CampaignID.String()),
			zap.Int("credits", req.Credits),
		)
	}
	return nil
}
