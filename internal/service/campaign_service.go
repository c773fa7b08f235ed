// internal/service/campaign_service.go
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/pipeshark-backend/internal/errors"
	"github.com/unclebandit/pipeshark-backend/internal/model"
	"github.com/unclebandit/pipeshark-backend/internal/repository"
)

const (
	CampaignStatusDraft  = "draft"
	CampaignStatusActive = "active"
	CampaignStatusPaused = "paused"
)

type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	LeadRepo     repository.LeadRepositoryInterface
	Log          *zap.Logger
}

// CampaignInput is the writable part of a campaign.
type CampaignInput struct {
	Name         string
	BusinessType string
	City         string
	Country      string
	Credits      int
	SendingEmail string
	Tone         string
	Goal         string
	Status       string
}

type CampaignDetails struct {
	*model.Campaign
	LeadCount int            `json:"lead_count"`
	Stats     map[string]int `json:"stats"`
}

func (s *CampaignService) CreateCampaign(ctx context.Context, userID uuid.UUID, in CampaignInput) (*model.Campaign, error) {
	c := &model.Campaign{UserID: userID, Status: CampaignStatusDraft}
	applyCampaignInput(c, in)
	if c.Credits < 0 {
		return nil, appErrors.NewValidation("credits must not be negative")
	}

	if err := s.CampaignRepo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.Log.Info("campaign created", zap.String("campaign_id", c.ID.String()), zap.String("user_id", userID.String()))
	return c, nil
}

func (s *CampaignService) UpdateCampaign(ctx context.Context, userID, id uuid.UUID, in CampaignInput) (*model.Campaign, error) {
	c, err := s.CampaignRepo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	applyCampaignInput(c, in)
	if c.Credits < 0 {
		return nil, appErrors.NewValidation("credits must not be negative")
	}
	now := time.Now().UTC()
	c.UpdatedAt = &now

	if err := s.CampaignRepo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func applyCampaignInput(c *model.Campaign, in CampaignInput) {
	c.Name = strings.TrimSpace(in.Name)
	c.BusinessType = strings.TrimSpace(in.BusinessType)
	c.City = strings.TrimSpace(in.City)
	c.Country = strings.TrimSpace(in.Country)
	c.Credits = in.Credits
	c.SendingEmail = strings.ToLower(strings.TrimSpace(in.SendingEmail))
	c.Tone = in.Tone
	c.Goal = in.Goal
	if in.Status != "" {
		c.Status = in.Status
	}
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(ctx context.Context, userID uuid.UUID, page, pageSize int, status string) ([]*model.Campaign, map[string]int, error) {
	page, pageSize, offset := normalizePage(page, pageSize)

	campaigns, total, err := s.CampaignRepo.ListByUser(ctx, userID, offset, pageSize, status)
	if err != nil {
		return nil, nil, err
	}
	return campaigns, pagination(page, pageSize, total), nil
}

func normalizePage(page, pageSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize, (page - 1) * pageSize
}

func pagination(page, pageSize, total int) map[string]int {
	return map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": (total + pageSize - 1) / pageSize,
	}
}

func (s *CampaignService) GetCampaignDetailsWithStats(ctx context.Context, userID, campaignID uuid.UUID) (*CampaignDetails, error) {
	campaign, err := s.CampaignRepo.GetByID(ctx, userID, campaignID)
	if err != nil {
		return nil, err
	}

	counts, err := s.CampaignRepo.GetQueueStats(ctx, userID, campaignID)
	if err != nil {
		return nil, err
	}
	stats := map[string]int{
		"total":                    0,
		model.QueueStatusPending:   0,
		model.QueueStatusSent:      0,
		model.QueueStatusFailed:    0,
		model.QueueStatusCancelled: 0,
	}
	for status, n := range counts {
		if _, ok := stats[status]; ok {
			stats[status] = n
		}
		stats["total"] += n
	}

	leads, err := s.LeadRepo.CountByCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	return &CampaignDetails{Campaign: campaign, LeadCount: leads, Stats: stats}, nil
}

func (s *CampaignService) ListLeads(ctx context.Context, userID, campaignID uuid.UUID) ([]*model.Lead, error) {
	if _, err := s.CampaignRepo.GetByID(ctx, userID, campaignID); err != nil {
		return nil, err
	}
	return s.LeadRepo.ListByCampaign(ctx, userID, campaignID)
}

// UpdateLeadDraft replaces a generated draft after manual review.
func (s *CampaignService) UpdateLeadDraft(ctx context.Context, userID, leadID uuid.UUID, draft string) error {
	if strings.TrimSpace(draft) == "" {
		return appErrors.NewValidation("draft must not be empty")
	}
	return s.LeadRepo.UpdateDraft(ctx, userID, leadID, draft)
}
