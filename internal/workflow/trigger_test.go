package workflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/pipeshark-backend/internal/errors"
)

func TestWebhookTrigger_PostsPayload(t *testing.T) {
	campaign := uuid.New()
	var got LeadGenerationRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "s3cret", r.Header.Get("X-Webhook-Secret"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	trig := NewWebhookTrigger(srv.URL, "s3cret", srv.Client(), nil)
	err := trig.TriggerLeadGeneration(context.Background(), LeadGenerationRequest{
		CampaignID: campaign, BusinessType: "dentist", Credits: 25, City: "Austin", Country: "United States",
	})
	require.NoError(t, err)
	assert.Equal(t, campaign, got.CampaignID)
	assert.Equal(t, 25, got.Credits)
}

func TestWebhookTrigger_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewWebhookTrigger(srv.URL, "", srv.Client(), nil).
		TriggerLeadGeneration(context.Background(), LeadGenerationRequest{})

	var ext *appErrors.ErrExternalService
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, http.StatusForbidden, ext.StatusCode)
}

func TestWebhookTrigger_MissingURL(t *testing.T) {
	err := NewWebhookTrigger("", "", http.DefaultClient, nil).
		TriggerLeadGeneration(context.Background(), LeadGenerationRequest{})

	var missing *appErrors.ErrConfigurationMissing
	assert.ErrorAs(t, err, &missing)
}
