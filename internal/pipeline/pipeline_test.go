package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"cam_backend/internal/campaigns"
	"cam_backend/internal/leads/domain"
	"cam_backend/internal/leads/ports"
	"cam_backend/internal/review"
	"cam_backend/internal/safety"
)

// Shared fakes for the stage processor tests.

type fakeSource struct {
	name       string
	configured bool
	leads      []domain.Lead
	err        error
	calls      int
}

func (s *fakeSource) Name() string       { return s.name }
func (s *fakeSource) IsConfigured() bool { return s.configured }

func (s *fakeSource) FetchNewLeads(_ context.Context, _ campaigns.Campaign, maxLeads int) ([]domain.Lead, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.leads) > maxLeads {
		return s.leads[:maxLeads], nil
	}
	return s.leads, nil
}

type fakeEnricher struct {
	fill func(domain.Lead) domain.Lead
	err  error
}

func (e *fakeEnricher) Enrich(_ context.Context, lead domain.Lead) (domain.Lead, error) {
	if e.err != nil {
		return lead, e.err
	}
	if e.fill != nil {
		return e.fill(lead), nil
	}
	return lead, nil
}

type fakeVerifier struct {
	deliverable bool
}

func (v *fakeVerifier) Verify(_ context.Context, _ string) (bool, error) {
	return v.deliverable, nil
}

type fakeSender struct {
	mu      sync.Mutex
	channel string
	sent    []sentMessage
	err     error
}

type sentMessage struct {
	leadID  uuid.UUID
	subject string
	body    string
}

func (s *fakeSender) Channel() string { return s.channel }

func (s *fakeSender) Send(_ context.Context, lead domain.Lead, subject, body string) (ports.SendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return ports.SendResult{}, s.err
	}
	s.sent = append(s.sent, sentMessage{leadID: lead.ID, subject: subject, body: body})
	return ports.SendResult{Sent: true, ProviderMessageID: "msg-" + uuid.NewString()}, nil
}

// fakeLimiter grants until the configured budget runs out.
type fakeLimiter struct {
	mu      sync.Mutex
	budget  int
	granted int
	denied  int
}

func (l *fakeLimiter) Reserve(_ context.Context, _ uuid.UUID, _ string, _ campaigns.ChannelCap) (safety.Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.granted >= l.budget {
		l.denied++
		return safety.Decision{Granted: false, Window: safety.WindowDaily}, nil
	}
	l.granted++
	return safety.Decision{Granted: true}, nil
}

func (l *fakeLimiter) CurrentUsage(_ context.Context, _ uuid.UUID, _ string) (safety.Usage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return safety.Usage{DailyUsed: int64(l.granted), HourlyUsed: int64(l.granted)}, nil
}

// fakeFlagger records flag calls without a full review service.
type fakeFlagger struct {
	flagged map[uuid.UUID]string
}

func newFakeFlagger() *fakeFlagger {
	return &fakeFlagger{flagged: make(map[uuid.UUID]string)}
}

func (f *fakeFlagger) Flag(_ context.Context, leadID uuid.UUID, reviewType, reason string) (review.Task, error) {
	f.flagged[leadID] = reason
	return review.Task{LeadID: leadID, Type: reviewType, Reason: reason}, nil
}

type staticSuppression struct {
	addresses map[string]bool
}

func (s *staticSuppression) IsSuppressed(_ context.Context, email string) (bool, error) {
	return s.addresses[email], nil
}

var errProviderDown = errors.New("provider unavailable")

func testCampaign() campaigns.Campaign {
	return campaigns.Campaign{
		ID:     uuid.New(),
		Name:   "fintech-na",
		Active: true,
		Target: campaigns.TargetProfile{
			Industries:     []string{"fintech"},
			CompanySizeMin: 10,
			CompanySizeMax: 500,
			Seniorities:    []string{"VP", "Director", "C-Level"},
			IntentSignals:  []string{"hiring", "funding"},
		},
		Qualification: campaigns.QualificationRules{
			MinICPFit:      0.5,
			ManualBandLow:  0.4,
			ManualBandHigh: 0.5,
		},
		ChannelCaps: map[string]campaigns.ChannelCap{
			campaigns.ChannelEmail: {DailyCap: 10, HourlyCap: 5},
		},
		MaxLeadsPerHarvest: 50,
	}
}
