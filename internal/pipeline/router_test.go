package pipeline

import (
	"context"
	"testing"
	"time"

	"cam_backend/internal/leads/domain"
	"cam_backend/internal/leads/repository"
	"cam_backend/platform/logger"
)

func TestRouterAssignsSequenceByTier(t *testing.T) {
	tests := []struct {
		tier domain.Tier
		want string
	}{
		{domain.TierHot, "hot-3step-7d"},
		{domain.TierWarm, "warm-4step-14d"},
		{domain.TierCool, "cool-6step-30d"},
		{domain.TierCold, "cold-8step-60d"},
	}

	for _, tc := range tests {
		t.Run(string(tc.tier), func(t *testing.T) {
			store := repository.NewMemoryStore()
			campaign := testCampaign()
			lead := seedLead(t, store, campaign.ID, domain.StatusQualified, domain.Lead{
				Email: "vp@fintech-co.com",
				Tier:  tc.tier,
			})

			now := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
			r := NewRouter(store, DefaultSequences(), nil, logger.New("test"))
			r.now = func() time.Time { return now }

			result := r.Process(context.Background(), []domain.Lead{lead}, campaign)
			if result.Updated != 1 || len(result.Errors) != 0 {
				t.Fatalf("result = %+v", result)
			}

			got, _ := store.GetByID(context.Background(), lead.ID)
			if got.Status != domain.StatusRouted {
				t.Fatalf("status = %s, want ROUTED", got.Status)
			}
			if got.RoutingSequence == nil || *got.RoutingSequence != tc.want {
				t.Fatalf("sequence = %v, want %s", got.RoutingSequence, tc.want)
			}
			if got.SequenceStartAt == nil || !got.SequenceStartAt.Equal(now) {
				t.Fatalf("sequence start = %v, want %v", got.SequenceStartAt, now)
			}
			if got.SequenceStep != 0 {
				t.Fatalf("sequence step = %d, want 0", got.SequenceStep)
			}
		})
	}
}

func TestRouterHotLeadGetsThreeStepSequence(t *testing.T) {
	// Scenario: ICP fit 0.9 and opportunity 0.85 combine above the HOT band.
	score := combinedICPWeight*0.9 + combinedOppWeight*0.85
	if tier := domain.TierForScore(score); tier != domain.TierHot {
		t.Fatalf("tier for %.3f = %s, want HOT", score, tier)
	}

	set := DefaultSequences()
	sequence, ok := set.ForTier(domain.TierHot)
	if !ok {
		t.Fatal("no HOT sequence configured")
	}
	if len(sequence.Steps) != 3 {
		t.Fatalf("HOT sequence has %d steps, want 3", len(sequence.Steps))
	}

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	lastDue := sequence.DueAt(start, len(sequence.Steps)-1)
	if span := lastDue.Sub(start); span != 7*24*time.Hour {
		t.Fatalf("HOT sequence spans %v, want 7 days", span)
	}
}

func TestRouterDefersReviewFlaggedLeads(t *testing.T) {
	store := repository.NewMemoryStore()
	campaign := testCampaign()
	lead := seedLead(t, store, campaign.ID, domain.StatusQualified, domain.Lead{
		Email:               "vp@fintech-co.com",
		Tier:                domain.TierHot,
		RequiresHumanReview: true,
	})

	r := NewRouter(store, DefaultSequences(), nil, logger.New("test"))
	result := r.Process(context.Background(), []domain.Lead{lead}, campaign)
	if result.Deferred != 1 || result.Updated != 0 {
		t.Fatalf("result = %+v, flagged lead must be deferred", result)
	}

	got, _ := store.GetByID(context.Background(), lead.ID)
	if got.Status != domain.StatusQualified {
		t.Fatalf("status = %s, want unchanged QUALIFIED", got.Status)
	}
}

func TestRouterMissingTierIsRecordError(t *testing.T) {
	store := repository.NewMemoryStore()
	campaign := testCampaign()
	lead := seedLead(t, store, campaign.ID, domain.StatusQualified, domain.Lead{
		Email: "vp@fintech-co.com",
	})

	r := NewRouter(store, DefaultSequences(), nil, logger.New("test"))
	result := r.Process(context.Background(), []domain.Lead{lead}, campaign)
	if len(result.Errors) != 1 {
		t.Fatalf("result = %+v, want one record error for missing tier", result)
	}
}
