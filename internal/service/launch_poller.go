package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/pipeshark-backend/internal/errors"
	"github.com/unclebandit/pipeshark-backend/internal/metrics"
	"github.com/unclebandit/pipeshark-backend/internal/model"
	"github.com/unclebandit/pipeshark-backend/internal/pkg/distlock"
	"github.com/unclebandit/pipeshark-backend/internal/repository"
	"github.com/unclebandit/pipeshark-backend/internal/scheduling"
	"github.com/unclebandit/pipeshark-backend/internal/workflow"
)

const (
	DefaultPollInterval = 15 * time.Second
	DefaultWaitTimeout  = 15 * time.Minute
	DefaultMatchWindow  = time.Minute

	// a run can wait WaitTimeout per campaign; the lock outlives any sane run
	launchLockTTL = 2 * time.Hour
)

// Clock lets tests drive the waiting phase without sleeping.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// LaunchResult is the outcome for one (user, campaign) pair.
type LaunchResult struct {
	UserID        uuid.UUID `json:"user_id"`
	CampaignID    uuid.UUID `json:"campaign_id"`
	Mode          string    `json:"mode"`
	Triggered     bool      `json:"triggered"`
	LeadCount     int       `json:"lead_count"`
	Target        int       `json:"target"`
	ReachedTarget bool      `json:"reached_target"`
	TimedOut      bool      `json:"timed_out"`
	Enqueued      int       `json:"enqueued"`
	Error         string    `json:"error,omitempty"`
}

type LaunchError struct {
	UserID     uuid.UUID  `json:"user_id"`
	CampaignID *uuid.UUID `json:"campaign_id,omitempty"`
	Stage      string     `json:"stage"`
	Message    string     `json:"message"`
}

type LaunchReport struct {
	At             time.Time      `json:"at"`
	Skipped        bool           `json:"skipped,omitempty"`
	UsersProcessed int            `json:"users_processed"`
	Results        []LaunchResult `json:"results"`
	Errors         []LaunchError  `json:"errors"`
}

// LaunchPoller runs each user's daily launch: trigger lead generation, wait
// for the leads, then enqueue them when the schedule is in send mode.
type LaunchPoller struct {
	Schedules repository.ScheduleRepositoryInterface
	Campaigns repository.CampaignRepositoryInterface
	Leads     repository.LeadRepositoryInterface
	Trigger   workflow.Trigger
	Enqueuer  Enqueuer
	Locks     distlock.Factory
	Clock     Clock
	Log       *zap.Logger

	PollInterval time.Duration
	WaitTimeout  time.Duration
	MatchWindow  time.Duration
}

func NewLaunchPoller(
	schedules repository.ScheduleRepositoryInterface,
	campaigns repository.CampaignRepositoryInterface,
	leads repository.LeadRepositoryInterface,
	trigger workflow.Trigger,
	enqueuer Enqueuer,
	locks distlock.Factory,
	log *zap.Logger,
) *LaunchPoller {
	return &LaunchPoller{
		Schedules:    schedules,
		Campaigns:    campaigns,
		Leads:        leads,
		Trigger:      trigger,
		Enqueuer:     enqueuer,
		Locks:        locks,
		Clock:        realClock{},
		Log:          log,
		PollInterval: DefaultPollInterval,
		WaitTimeout:  DefaultWaitTimeout,
		MatchWindow:  DefaultMatchWindow,
	}
}

// Run processes every enabled schedule whose launch time matches at (now when
// nil). Failures are collected in the report; only a failure to read the
// schedules themselves is returned as an error.
func (p *LaunchPoller) Run(ctx context.Context, at *time.Time) (*LaunchReport, error) {
	now := p.Clock.Now()
	if at != nil {
		now = *at
	}
	report := &LaunchReport{At: now.UTC(), Results: []LaunchResult{}, Errors: []LaunchError{}}

	if p.Locks != nil {
		lock := p.Locks("launch:"+now.UTC().Truncate(time.Minute).Format(time.RFC3339), launchLockTTL)
		ok, err := lock.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire launch lock: %w", err)
		}
		if !ok {
			p.Log.Info("launch already running elsewhere", zap.Time("at", now))
			report.Skipped = true
			return report, nil
		}
		// a TTL-bound lock stays held so the minute runs once across replicas
		defer func() {
			if err := distlock.Finish(context.WithoutCancel(ctx), lock); err != nil {
				p.Log.Warn("release launch lock", zap.Error(err))
			}
		}()
	}

	schedules, err := p.Schedules.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}

	for _, s := range schedules {
		match, err := p.matches(s, now)
		if err != nil {
			report.Errors = append(report.Errors, LaunchError{UserID: s.UserID, Stage: "schedule", Message: err.Error()})
			continue
		}
		if !match {
			continue
		}
		report.UsersProcessed++

		for _, campaignID := range s.CampaignIDs {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			res, stage := p.launchCampaign(ctx, s, campaignID)
			report.Results = append(report.Results, res)
			if res.Error != "" {
				id := campaignID
				report.Errors = append(report.Errors, LaunchError{
					UserID: s.UserID, CampaignID: &id, Stage: stage, Message: res.Error,
				})
				metrics.LaunchCampaigns.WithLabelValues("error").Inc()
			} else {
				metrics.LaunchCampaigns.WithLabelValues("ok").Inc()
			}
		}
	}

	p.Log.Info("launch run finished",
		zap.Time("at", now),
		zap.Int("users", report.UsersProcessed),
		zap.Int("campaigns", len(report.Results)),
		zap.Int("errors", len(report.Errors)),
	)
	return report, nil
}

// matches reports whether now falls in [launch, launch+MatchWindow) on the
// schedule's local clock. An unknown timezone is read as UTC.
func (p *LaunchPoller) matches(s *model.Schedule, now time.Time) (bool, error) {
	hour, minute, err := parseLaunchTime(s.LaunchTime)
	if err != nil {
		return false, err
	}
	window := p.MatchWindow
	if window <= 0 {
		window = DefaultMatchWindow
	}

	local := now.In(scheduling.LoadLocation(s.Timezone))
	launch := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, local.Location())
	diff := local.Sub(launch)
	return diff >= 0 && diff < window, nil
}

func parseLaunchTime(v string) (int, int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(v), ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid launch time %q", v)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid launch time %q", v)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid launch time %q", v)
	}
	return hour, minute, nil
}

// launchCampaign returns the result and, on failure, the stage that failed.
func (p *LaunchPoller) launchCampaign(ctx context.Context, s *model.Schedule, campaignID uuid.UUID) (LaunchResult, string) {
	res := LaunchResult{UserID: s.UserID, CampaignID: campaignID, Mode: s.Mode}
	log := p.Log.With(zap.String("user_id", s.UserID.String()), zap.String("campaign_id", campaignID.String()))

	campaign, err := p.Campaigns.GetByID(ctx, s.UserID, campaignID)
	if err != nil {
		res.Error = err.Error()
		return res, "load"
	}
	res.Target = campaign.Credits

	count, err := p.Leads.CountByCampaign(ctx, campaignID)
	if err != nil {
		res.Error = err.Error()
		return res, "count"
	}
	res.LeadCount = count

	if count < res.Target {
		err := p.Trigger.TriggerLeadGeneration(ctx, workflow.LeadGenerationRequest{
			UserID:       s.UserID,
			CampaignID:   campaign.ID,
			BusinessType: campaign.BusinessType,
			Credits:      campaign.Credits,
			City:         campaign.City,
			Country:      campaign.Country,
			Tone:         campaign.Tone,
			Goal:         campaign.Goal,
			SenderEmail:  campaign.SendingEmail,
		})
		if err != nil {
			res.Error = err.Error()
			return res, "trigger"
		}
		res.Triggered = true

		start := p.Clock.Now()
		count, err = p.waitForLeads(ctx, campaignID, res.Target)
		metrics.LeadWaitSeconds.Observe(p.Clock.Now().Sub(start).Seconds())
		res.LeadCount = count
		switch {
		case errors.Is(err, appErrors.ErrTimeout):
			res.TimedOut = true
			log.Warn("lead generation did not reach target in time",
				zap.Int("lead_count", count), zap.Int("target", res.Target), zap.Duration("timeout", p.WaitTimeout))
		case err != nil:
			res.Error = err.Error()
			return res, "wait"
		}
	}
	res.ReachedTarget = res.LeadCount >= res.Target

	if s.Mode != model.DeliveryModeSend {
		log.Info("drafts left for review", zap.Int("lead_count", res.LeadCount))
		return res, ""
	}

	enq, err := p.Enqueuer.Enqueue(ctx, s.UserID, campaignID)
	if err != nil {
		res.Error = err.Error()
		return res, "enqueue"
	}
	res.Enqueued = enq.Enqueued
	return res, ""
}

// waitForLeads polls the lead count until it reaches target. When it never
// does, it returns the last count with ErrTimeout once WaitTimeout has
// elapsed, never earlier.
func (p *LaunchPoller) waitForLeads(ctx context.Context, campaignID uuid.UUID, target int) (int, error) {
	interval := p.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	deadline := p.Clock.Now().Add(p.WaitTimeout)

	count := 0
	for {
		n, err := p.Leads.CountByCampaign(ctx, campaignID)
		if err != nil {
			p.Log.Warn("lead count failed, retrying", zap.String("campaign_id", campaignID.String()), zap.Error(err))
		} else {
			count = n
			if count >= target {
				return count, nil
			}
		}

		remaining := deadline.Sub(p.Clock.Now())
		if remaining <= 0 {
			return count, appErrors.ErrTimeout
		}
		select {
		case <-ctx.Done():
			return count, ctx.Err()
		case <-p.Clock.After(min(interval, remaining)):
		}
	}
}
