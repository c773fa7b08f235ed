package service_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/pipeshark-backend/internal/errors"
	"github.com/unclebandit/pipeshark-backend/internal/mailer"
	"github.com/unclebandit/pipeshark-backend/internal/model"
	"github.com/unclebandit/pipeshark-backend/internal/pkg/distlock"
	"github.com/unclebandit/pipeshark-backend/internal/queue"
	"github.com/unclebandit/pipeshark-backend/internal/repository"
	"github.com/unclebandit/pipeshark-backend/internal/service"
	"github.com/unclebandit/pipeshark-backend/internal/workflow"
)

var errStorage = errors.New("connection reset by peer")

// In-memory campaign repository
type fakeCampaignRepo struct {
	mu        sync.Mutex
	campaigns []*model.Campaign
	stats     map[string]int
}

func (r *fakeCampaignRepo) Create(ctx context.Context, c *model.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	r.campaigns = append(r.campaigns, c)
	return nil
}

func (r *fakeCampaignRepo) Update(ctx context.Context, c *model.Campaign) error { return nil }

func (r *fakeCampaignRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (*model.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.campaigns {
		if c.ID == id && c.UserID == userID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, appErrors.NewCampaignNotFound(id)
}

func (r *fakeCampaignRepo) ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int, status string) ([]*model.Campaign, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := []*model.Campaign{}
	for _, c := range r.campaigns {
		if c.UserID == userID && (status == "" || c.Status == status) {
			all = append(all, c)
		}
	}
	if offset >= len(all) {
		return []*model.Campaign{}, len(all), nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], len(all), nil
}

func (r *fakeCampaignRepo) GetQueueStats(ctx context.Context, userID, campaignID uuid.UUID) (map[string]int, error) {
	return r.stats, nil
}

// In-memory lead repository. counts, when set for a campaign, is the
// sequence CountByCampaign walks through; the last value repeats.
type fakeLeadRepo struct {
	mu       sync.Mutex
	leads    []*model.Lead
	counts   map[uuid.UUID][]int
	countErr error
	sent     map[uuid.UUID]string
}

func (r *fakeLeadRepo) ListByCampaign(ctx context.Context, userID, campaignID uuid.UUID) ([]*model.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Lead{}
	for _, l := range r.leads {
		if l.UserID == userID && l.CampaignID == campaignID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeLeadRepo) ListQueueable(ctx context.Context, userID, campaignID uuid.UUID) ([]*model.Lead, error) {
	all, _ := r.ListByCampaign(ctx, userID, campaignID)
	out := []*model.Lead{}
	for _, l := range all {
		if strings.TrimSpace(l.DraftText()) != "" && !l.Sent {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeLeadRepo) CountByCampaign(ctx context.Context, campaignID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.countErr != nil {
		return 0, r.countErr
	}
	if seq, ok := r.counts[campaignID]; ok && len(seq) > 0 {
		n := seq[0]
		if len(seq) > 1 {
			r.counts[campaignID] = seq[1:]
		}
		return n, nil
	}
	n := 0
	for _, l := range r.leads {
		if l.CampaignID == campaignID {
			n++
		}
	}
	return n, nil
}

func (r *fakeLeadRepo) UpdateDraft(ctx context.Context, userID, leadID uuid.UUID, draft string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.leads {
		if l.ID == leadID && l.UserID == userID {
			l.Draft = &draft
			return nil
		}
	}
	return appErrors.NewNotFound("lead", leadID.String())
}

func (r *fakeLeadRepo) MarkSent(ctx context.Context, leadID uuid.UUID, threadID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sent == nil {
		r.sent = map[uuid.UUID]string{}
	}
	r.sent[leadID] = threadID
	return nil
}

type fakeSenderRepo struct {
	mu       sync.Mutex
	accounts []*model.SenderAccount
	getErr   error
	lookedUp []string
}

func (r *fakeSenderRepo) Create(ctx context.Context, a *model.SenderAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = uuid.New()
	r.accounts = append(r.accounts, a)
	return nil
}

func (r *fakeSenderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.SenderAccount, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, a := range r.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, appErrors.NewNotFound("sender account", id.String())
}

func (r *fakeSenderRepo) GetByEmail(ctx context.Context, userID uuid.UUID, email string) (*model.SenderAccount, error) {
	r.lookedUp = append(r.lookedUp, email)
	for _, a := range r.accounts {
		if a.UserID == userID && strings.EqualFold(a.Email, strings.TrimSpace(email)) {
			return a, nil
		}
	}
	return nil, nil
}

func (r *fakeSenderRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.SenderAccount, error) {
	out := []*model.SenderAccount{}
	for _, a := range r.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeSenderRepo) UpdateToken(ctx context.Context, id uuid.UUID, accessToken string, expiry time.Time) error {
	return nil
}

// In-memory queue table with the same active-lead uniqueness as storage.
type fakeQueueRepo struct {
	mu        sync.Mutex
	items     []*model.QueueItem
	activeErr error
	insertErr map[uuid.UUID]error
	getErr    error
	claim     []uuid.UUID
	claimErr  error
	claims    int
	failed    map[uuid.UUID]string
	// markSentFailures makes the next n MarkSent calls fail.
	markSentFailures int
	markSentCalls    int
}

func (r *fakeQueueRepo) ActiveLeadIDs(ctx context.Context, userID uuid.UUID, leadIDs []uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activeErr != nil {
		return nil, r.activeErr
	}
	want := map[uuid.UUID]bool{}
	for _, id := range leadIDs {
		want[id] = true
	}
	out := []uuid.UUID{}
	for _, it := range r.items {
		if it.UserID == userID && it.LeadID != nil && want[*it.LeadID] && isActive(it.Status) {
			out = append(out, *it.LeadID)
		}
	}
	return out, nil
}

func isActive(status string) bool {
	return status == model.QueueStatusPending || status == model.QueueStatusSent
}

func (r *fakeQueueRepo) Insert(ctx context.Context, item *model.QueueItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item.LeadID != nil {
		if err := r.insertErr[*item.LeadID]; err != nil {
			return err
		}
		for _, it := range r.items {
			if it.UserID == item.UserID && it.LeadID != nil && *it.LeadID == *item.LeadID && isActive(it.Status) {
				return repository.ErrDuplicateQueueItem
			}
		}
	}
	item.ID = uuid.New()
	cp := *item
	r.items = append(r.items, &cp)
	return nil
}

func (r *fakeQueueRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.QueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, it := range r.items {
		if it.ID == id {
			cp := *it
			return &cp, nil
		}
	}
	return nil, appErrors.NewNotFound("queue item", id.String())
}

func (r *fakeQueueRepo) ListByUser(ctx context.Context, userID uuid.UUID, status string, offset, limit int) ([]*model.QueueItem, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := []*model.QueueItem{}
	for _, it := range r.items {
		if it.UserID == userID && (status == "" || it.Status == status) {
			all = append(all, it)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ScheduledAt.Before(all[j].ScheduledAt) })
	if offset >= len(all) {
		return []*model.QueueItem{}, len(all), nil
	}
	return all[offset:min(offset+limit, len(all))], len(all), nil
}

func (r *fakeQueueRepo) ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.claims++
	return r.claim, r.claimErr
}

func (r *fakeQueueRepo) setStatus(id uuid.UUID, status string) *model.QueueItem {
	for _, it := range r.items {
		if it.ID == id {
			it.Status = status
			return it
		}
	}
	return nil
}

func (r *fakeQueueRepo) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markSentCalls++
	if r.markSentFailures > 0 {
		r.markSentFailures--
		return errStorage
	}
	if it := r.setStatus(id, model.QueueStatusSent); it != nil {
		it.SentAt = &sentAt
	}
	return nil
}

func (r *fakeQueueRepo) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if it := r.setStatus(id, model.QueueStatusFailed); it != nil {
		it.LastError = lastError
	}
	if r.failed == nil {
		r.failed = map[uuid.UUID]string{}
	}
	r.failed[id] = lastError
	return nil
}

func (r *fakeQueueRepo) Cancel(ctx context.Context, userID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items {
		if it.ID == id && it.UserID == userID && it.Status == model.QueueStatusPending {
			it.Status = model.QueueStatusCancelled
			return nil
		}
	}
	return appErrors.NewNotFound("pending queue item", id.String())
}

func (r *fakeQueueRepo) byLead(leadID uuid.UUID) []*model.QueueItem {
	out := []*model.QueueItem{}
	for _, it := range r.items {
		if it.LeadID != nil && *it.LeadID == leadID {
			out = append(out, it)
		}
	}
	return out
}

type fakeScheduleRepo struct {
	schedules []*model.Schedule
	err       error
	calls     int
	upserted  *model.Schedule
}

func (r *fakeScheduleRepo) ListEnabled(ctx context.Context) ([]*model.Schedule, error) {
	r.calls++
	return r.schedules, r.err
}

func (r *fakeScheduleRepo) GetByUser(ctx context.Context, userID uuid.UUID) (*model.Schedule, error) {
	for _, s := range r.schedules {
		if s.UserID == userID {
			return s, nil
		}
	}
	return nil, appErrors.NewNotFound("schedule", userID.String())
}

func (r *fakeScheduleRepo) Upsert(ctx context.Context, s *model.Schedule) error {
	s.ID = uuid.New()
	r.upserted = s
	return nil
}

type fakeTrigger struct {
	mu    sync.Mutex
	calls []workflow.LeadGenerationRequest
	errs  map[uuid.UUID]error
}

func (t *fakeTrigger) TriggerLeadGeneration(ctx context.Context, req workflow.LeadGenerationRequest) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, req)
	return t.errs[req.CampaignID]
}

type fakeEnqueuer struct {
	calls    []uuid.UUID
	enqueued int
	errs     map[uuid.UUID]error
}

func (e *fakeEnqueuer) Enqueue(ctx context.Context, userID, campaignID uuid.UUID) (*service.EnqueueResult, error) {
	e.calls = append(e.calls, campaignID)
	if err := e.errs[campaignID]; err != nil {
		return nil, err
	}
	return &service.EnqueueResult{CampaignID: campaignID, Enqueued: e.enqueued}, nil
}

// fakeClock advances instantly on After and records every wait.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.waits = append(c.waits, d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c *fakeClock) waited() time.Duration {
	var total time.Duration
	for _, d := range c.waits {
		total += d
	}
	return total
}

type fakeLock struct {
	granted  bool
	released bool
	ttlBound bool
}

func (l *fakeLock) Acquire(ctx context.Context) (bool, error) { return l.granted, nil }
func (l *fakeLock) Release(ctx context.Context) error         { l.released = true; return nil }
func (l *fakeLock) ExpiresWithTTL() bool                      { return l.ttlBound }

func lockFactory(l *fakeLock, keys *[]string) distlock.Factory {
	return func(key string, ttl time.Duration) distlock.DistLock {
		if keys != nil {
			*keys = append(*keys, key)
		}
		return l
	}
}

type fakeBus struct {
	mu        sync.Mutex
	published []queue.Job
	failFor   map[uuid.UUID]bool
}

func (b *fakeBus) Publish(ctx context.Context, topic string, job queue.Job) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failFor[job.QueueItemID] {
		return errors.New("channel closed")
	}
	b.published = append(b.published, job)
	return nil
}

func (b *fakeBus) Subscribe(topic string, handler queue.Handler) error { return nil }
func (b *fakeBus) Close() error                                        { return nil }

type fakeMailer struct {
	mu     sync.Mutex
	sent   []mailer.Message
	err    error
	result *mailer.Result
}

func (m *fakeMailer) Send(ctx context.Context, account *model.SenderAccount, msg mailer.Message) (*mailer.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.sent = append(m.sent, msg)
	if m.result != nil {
		return m.result, nil
	}
	return &mailer.Result{}, nil
}

func strPtr(s string) *string { return &s }
