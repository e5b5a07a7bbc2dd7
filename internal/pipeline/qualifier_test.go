package pipeline

import (
	"context"
	"testing"

	"cam_backend/internal/leads/domain"
	"cam_backend/internal/leads/repository"
	"cam_backend/internal/review"
	"cam_backend/platform/logger"
)

func newTestQualifier(store *repository.MemoryStore, flagger *fakeFlagger, suppressed ...string) *Qualifier {
	list := &staticSuppression{addresses: make(map[string]bool)}
	for _, address := range suppressed {
		list.addresses[address] = true
	}
	return NewQualifier(store, list, flagger, nil, logger.New("test"))
}

func TestQualifierAcceptsCleanLead(t *testing.T) {
	store := repository.NewMemoryStore()
	campaign := testCampaign()
	lead := seedLead(t, store, campaign.ID, domain.StatusScored, domain.Lead{
		Email:         "vp@fintech-co.com",
		ICPFit:        0.8,
		Score:         0.75,
		IntentSignals: []string{"hiring"},
	})

	q := newTestQualifier(store, newFakeFlagger())
	result := q.Process(context.Background(), []domain.Lead{lead}, campaign)
	if result.Updated != 1 || len(result.Errors) != 0 {
		t.Fatalf("result = %+v", result)
	}

	got, _ := store.GetByID(context.Background(), lead.ID)
	if got.Status != domain.StatusQualified {
		t.Fatalf("status = %s, want QUALIFIED", got.Status)
	}
}

func TestQualifierRejectsLowICPFit(t *testing.T) {
	store := repository.NewMemoryStore()
	campaign := testCampaign()
	lead := seedLead(t, store, campaign.ID, domain.StatusScored, domain.Lead{
		Email:  "vp@fintech-co.com",
		ICPFit: 0.3,
		Score:  0.2,
	})

	q := newTestQualifier(store, newFakeFlagger())
	result := q.Process(context.Background(), []domain.Lead{lead}, campaign)
	if result.Updated != 1 {
		t.Fatalf("result = %+v", result)
	}

	got, _ := store.GetByID(context.Background(), lead.ID)
	if got.Status != domain.StatusRejected {
		t.Fatalf("status = %s, want REJECTED", got.Status)
	}
	records := store.Transitions(lead.ID)
	if len(records) != 1 || records[0].Reason == "" {
		t.Fatalf("rejection must record a reason: %+v", records)
	}
}

func TestQualifierManualBandFlagsInsteadOfRejecting(t *testing.T) {
	store := repository.NewMemoryStore()
	campaign := testCampaign()
	// ICP fit fails the minimum but the combined score sits in [0.4, 0.5).
	lead := seedLead(t, store, campaign.ID, domain.StatusScored, domain.Lead{
		Email:  "vp@fintech-co.com",
		ICPFit: 0.45,
		Score:  0.45,
	})

	flagger := newFakeFlagger()
	q := newTestQualifier(store, flagger)
	result := q.Process(context.Background(), []domain.Lead{lead}, campaign)
	if result.Deferred != 1 || result.Updated != 0 {
		t.Fatalf("result = %+v, want one deferred", result)
	}

	if _, flagged := flagger.flagged[lead.ID]; !flagged {
		t.Fatal("manual band lead was not flagged for review")
	}
	got, _ := store.GetByID(context.Background(), lead.ID)
	if got.Status != domain.StatusScored {
		t.Fatalf("status = %s, manual band must not move the lead", got.Status)
	}
}

func TestApprovedManualBandLeadAdvances(t *testing.T) {
	store := repository.NewMemoryStore()
	tasks := review.NewMemoryTaskStore()
	reviews := review.NewService(store, tasks, nil, logger.New("test"))
	campaign := testCampaign()
	lead := seedLead(t, store, campaign.ID, domain.StatusScored, domain.Lead{
		Email:  "vp@fintech-co.com",
		ICPFit: 0.45,
		Score:  0.45,
	})

	list := &staticSuppression{addresses: make(map[string]bool)}
	q := NewQualifier(store, list, reviews, nil, logger.New("test"))
	ctx := context.Background()

	result := q.Process(ctx, []domain.Lead{lead}, campaign)
	if result.Deferred != 1 {
		t.Fatalf("first cycle result = %+v, want one deferred", result)
	}

	if err := reviews.Approve(ctx, lead.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	got, err := store.GetByID(ctx, lead.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.StatusQualified {
		t.Fatalf("status after approve = %s, want QUALIFIED", got.Status)
	}
	if got.RequiresHumanReview {
		t.Fatal("review flag still set after approve")
	}

	// The next qualify cycle has nothing left to re-evaluate, so the lead
	// cannot be flagged again.
	batch, err := store.QueryByStatus(ctx, campaign.ID, domain.StatusScored, 10)
	if err != nil {
		t.Fatalf("QueryByStatus: %v", err)
	}
	if len(batch) != 0 {
		t.Fatalf("%d leads still queued for qualification after approve", len(batch))
	}
	if pending, _ := tasks.ListPending(ctx, nil, 10); len(pending) != 0 {
		t.Fatalf("pending tasks after approve = %d, want 0", len(pending))
	}
}

func TestQualifierEmailRules(t *testing.T) {
	tests := []struct {
		name  string
		lead  domain.Lead
		allow bool
	}{
		{name: "missing email", lead: domain.Lead{ICPFit: 0.9, Score: 0.9}},
		{name: "role account", lead: domain.Lead{Email: "info@fintech-co.com", ICPFit: 0.9, Score: 0.9}},
		{name: "free domain", lead: domain.Lead{Email: "jane@gmail.com", ICPFit: 0.9, Score: 0.9}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := repository.NewMemoryStore()
			campaign := testCampaign()
			lead := seedLead(t, store, campaign.ID, domain.StatusScored, tc.lead)

			q := newTestQualifier(store, newFakeFlagger())
			result := q.Process(context.Background(), []domain.Lead{lead}, campaign)
			if result.Updated != 1 {
				t.Fatalf("result = %+v", result)
			}

			got, _ := store.GetByID(context.Background(), lead.ID)
			if got.Status != domain.StatusRejected {
				t.Fatalf("status = %s, want REJECTED", got.Status)
			}
		})
	}
}

func TestQualifierAllowsFreeDomainsWhenConfigured(t *testing.T) {
	store := repository.NewMemoryStore()
	campaign := testCampaign()
	campaign.Qualification.AllowFreeDomains = true
	lead := seedLead(t, store, campaign.ID, domain.StatusScored, domain.Lead{
		Email:         "jane@gmail.com",
		ICPFit:        0.9,
		Score:         0.9,
		IntentSignals: []string{"hiring"},
	})

	q := newTestQualifier(store, newFakeFlagger())
	q.Process(context.Background(), []domain.Lead{lead}, campaign)

	got, _ := store.GetByID(context.Background(), lead.ID)
	if got.Status != domain.StatusQualified {
		t.Fatalf("status = %s, want QUALIFIED with free domains allowed", got.Status)
	}
}

func TestQualifierRejectsSuppressedAddress(t *testing.T) {
	store := repository.NewMemoryStore()
	campaign := testCampaign()
	lead := seedLead(t, store, campaign.ID, domain.StatusScored, domain.Lead{
		Email:  "optedout@fintech-co.com",
		ICPFit: 0.9,
		Score:  0.9,
	})

	q := newTestQualifier(store, newFakeFlagger(), "optedout@fintech-co.com")
	q.Process(context.Background(), []domain.Lead{lead}, campaign)

	got, _ := store.GetByID(context.Background(), lead.ID)
	if got.Status != domain.StatusRejected {
		t.Fatalf("status = %s, want REJECTED for suppressed address", got.Status)
	}
}

func TestQualifierRequiresIntentWhenConfigured(t *testing.T) {
	store := repository.NewMemoryStore()
	campaign := testCampaign()
	campaign.Qualification.RequireIntent = true
	lead := seedLead(t, store, campaign.ID, domain.StatusScored, domain.Lead{
		Email:  "vp@fintech-co.com",
		ICPFit: 0.9,
		Score:  0.9,
	})

	q := newTestQualifier(store, newFakeFlagger())
	q.Process(context.Background(), []domain.Lead{lead}, campaign)

	got, _ := store.GetByID(context.Background(), lead.ID)
	if got.Status != domain.StatusRejected {
		t.Fatalf("status = %s, want REJECTED without intent", got.Status)
	}
}

func TestQualifierDefersReviewFlaggedLeads(t *testing.T) {
	store := repository.NewMemoryStore()
	campaign := testCampaign()
	lead := seedLead(t, store, campaign.ID, domain.StatusScored, domain.Lead{
		Email:               "vp@fintech-co.com",
		ICPFit:              0.9,
		Score:               0.9,
		RequiresHumanReview: true,
	})

	q := newTestQualifier(store, newFakeFlagger())
	result := q.Process(context.Background(), []domain.Lead{lead}, campaign)
	if result.Deferred != 1 || result.Updated != 0 {
		t.Fatalf("result = %+v, flagged lead must be deferred", result)
	}
}
