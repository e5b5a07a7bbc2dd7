package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"cam_backend/internal/leads/domain"
	"cam_backend/internal/leads/repository"
	"cam_backend/platform/logger"
)

func newTestScorer(store *repository.MemoryStore, enricher *fakeEnricher) *Scorer {
	s := NewScorer(store, enricher, &fakeVerifier{deliverable: true}, nil, logger.New("test"))
	s.now = func() time.Time { return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC) }
	return s
}

func seedLead(t *testing.T, store *repository.MemoryStore, campaignID uuid.UUID, status domain.Status, lead domain.Lead) domain.Lead {
	t.Helper()
	lead.CampaignID = campaignID
	lead.Status = status
	if lead.DedupKey == "" {
		lead.DedupKey = "key-" + uuid.NewString()
	}
	inserted, err := store.Insert(context.Background(), lead)
	if err != nil {
		t.Fatalf("seed lead: %v", err)
	}
	return inserted
}

func TestScorerAdvancesThroughEnrichedToScored(t *testing.T) {
	store := repository.NewMemoryStore()
	campaign := testCampaign()
	lead := seedLead(t, store, campaign.ID, domain.StatusHarvested, domain.Lead{
		Email:     "vp@fintech-co.com",
		FirstName: "Vera",
		Industry:  "fintech",
	})

	enricher := &fakeEnricher{fill: func(l domain.Lead) domain.Lead {
		l.CompanySize = 120
		l.Seniority = "VP"
		l.IntentSignals = []string{"hiring", "funding"}
		return l
	}}
	s := newTestScorer(store, enricher)

	result := s.Process(context.Background(), []domain.Lead{lead}, campaign)
	if result.Updated != 1 || len(result.Errors) != 0 {
		t.Fatalf("result = %+v, want one clean update", result)
	}

	got, err := store.GetByID(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.StatusScored {
		t.Fatalf("status = %s, want SCORED", got.Status)
	}
	if got.ICPFit == 0 || got.Opportunity == 0 || got.Score == 0 {
		t.Fatalf("scores not written: %+v", got)
	}

	records := store.Transitions(lead.ID)
	if len(records) != 2 {
		t.Fatalf("transition records = %d, want HARVESTED>ENRICHED and ENRICHED>SCORED", len(records))
	}
	if records[0].ToStatus != domain.StatusEnriched || records[1].ToStatus != domain.StatusScored {
		t.Fatalf("transitions = %+v", records)
	}
}

func TestScorerFullMatchLandsHotTier(t *testing.T) {
	store := repository.NewMemoryStore()
	campaign := testCampaign()
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	lead := seedLead(t, store, campaign.ID, domain.StatusHarvested, domain.Lead{
		Email:         "ceo@fintech-co.com",
		FirstName:     "Hot",
		Industry:      "fintech",
		CompanySize:   100,
		Seniority:     "C-Level",
		IntentSignals: []string{"hiring", "funding"},
	})

	s := newTestScorer(store, &fakeEnricher{})
	s.now = func() time.Time { return now }

	result := s.Process(context.Background(), []domain.Lead{lead}, campaign)
	if result.Updated != 1 {
		t.Fatalf("result = %+v", result)
	}

	got, _ := store.GetByID(context.Background(), lead.ID)
	if got.ICPFit < 0.99 {
		t.Fatalf("icp fit = %.2f, want full match near 1.0", got.ICPFit)
	}
	if got.Tier != domain.TierHot {
		t.Fatalf("tier = %s (score %.2f), want HOT", got.Tier, got.Score)
	}
}

func TestScorerNoMatchLandsColdTier(t *testing.T) {
	store := repository.NewMemoryStore()
	campaign := testCampaign()
	lead := seedLead(t, store, campaign.ID, domain.StatusHarvested, domain.Lead{
		Email:     "clerk@retail-co.com",
		FirstName: "Cold",
		Industry:  "retail",
		Seniority: "Associate",
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	s := newTestScorer(store, &fakeEnricher{})
	result := s.Process(context.Background(), []domain.Lead{lead}, campaign)
	if result.Updated != 1 {
		t.Fatalf("result = %+v", result)
	}

	got, _ := store.GetByID(context.Background(), lead.ID)
	if got.Tier != domain.TierCold {
		t.Fatalf("tier = %s (score %.2f), want COLD", got.Tier, got.Score)
	}
}

func TestScorerPicksUpStrandedEnrichedLeads(t *testing.T) {
	store := repository.NewMemoryStore()
	campaign := testCampaign()
	lead := seedLead(t, store, campaign.ID, domain.StatusEnriched, domain.Lead{
		Email:    "vp@fintech-co.com",
		Industry: "fintech",
	})

	s := newTestScorer(store, &fakeEnricher{})
	result := s.Process(context.Background(), []domain.Lead{lead}, campaign)
	if result.Updated != 1 {
		t.Fatalf("result = %+v", result)
	}

	got, _ := store.GetByID(context.Background(), lead.ID)
	if got.Status != domain.StatusScored {
		t.Fatalf("status = %s, want SCORED", got.Status)
	}
}

func TestScorerIsolatesPerRecordFailures(t *testing.T) {
	store := repository.NewMemoryStore()
	campaign := testCampaign()

	good := seedLead(t, store, campaign.ID, domain.StatusHarvested, domain.Lead{
		Email: "good@fintech-co.com", Industry: "fintech",
	})
	bad := seedLead(t, store, campaign.ID, domain.StatusHarvested, domain.Lead{
		Email: "bad@fintech-co.com", Industry: "fintech",
	})

	failFor := bad.ID
	enricher := &fakeEnricher{fill: func(l domain.Lead) domain.Lead { return l }}
	s := newTestScorer(store, enricher)
	// Swap in an enricher that fails only for the bad lead.
	s.enricher = enrichFunc(func(ctx context.Context, l domain.Lead) (domain.Lead, error) {
		if l.ID == failFor {
			return l, errProviderDown
		}
		return l, nil
	})

	result := s.Process(context.Background(), []domain.Lead{good, bad}, campaign)
	if result.Updated != 1 {
		t.Fatalf("updated = %d, want the good lead to advance", result.Updated)
	}
	if len(result.Errors) != 1 || result.Errors[0].LeadID != bad.ID {
		t.Fatalf("errors = %+v, want one error for the bad lead", result.Errors)
	}

	gotGood, _ := store.GetByID(context.Background(), good.ID)
	if gotGood.Status != domain.StatusScored {
		t.Fatalf("good lead status = %s, want SCORED", gotGood.Status)
	}
	gotBad, _ := store.GetByID(context.Background(), bad.ID)
	if gotBad.Status != domain.StatusHarvested {
		t.Fatalf("bad lead status = %s, want unchanged HARVESTED", gotBad.Status)
	}
}

func TestScorerClearsUndeliverableEmail(t *testing.T) {
	store := repository.NewMemoryStore()
	campaign := testCampaign()
	lead := seedLead(t, store, campaign.ID, domain.StatusHarvested, domain.Lead{
		Email: "bounce@fintech-co.com", Industry: "fintech",
	})

	s := NewScorer(store, &fakeEnricher{}, &fakeVerifier{deliverable: false}, nil, logger.New("test"))
	result := s.Process(context.Background(), []domain.Lead{lead}, campaign)
	if result.Updated != 1 {
		t.Fatalf("result = %+v", result)
	}

	got, _ := store.GetByID(context.Background(), lead.ID)
	if got.Email != "" {
		t.Fatalf("email = %q, want cleared for the qualifier to reject", got.Email)
	}
}

type enrichFunc func(ctx context.Context, lead domain.Lead) (domain.Lead, error)

func (f enrichFunc) Enrich(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	return f(ctx, lead)
}
