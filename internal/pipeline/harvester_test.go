package pipeline

import (
	"context"
	"fmt"
	"testing"

	"cam_backend/internal/leads/domain"
	"cam_backend/internal/leads/ports"
	"cam_backend/internal/leads/repository"
	"cam_backend/platform/logger"
)

func TestHarvesterDedupsWithinBatch(t *testing.T) {
	store := repository.NewMemoryStore()
	campaign := testCampaign()
	source := &fakeSource{
		name:       "csv",
		configured: true,
		leads: []domain.Lead{
			{Email: "Jane.Doe@Example.com", FirstName: "Jane", LastName: "Doe", Company: "Acme"},
			{Email: "jane.doe@example.com", FirstName: "Jane", LastName: "Doe", Company: "Acme"},
		},
	}

	h := NewHarvester([]ports.LeadSource{source}, store, logger.New("test"))
	result := h.Process(context.Background(), nil, campaign)

	if result.Updated != 1 {
		t.Fatalf("updated = %d, want 1 (second candidate is a duplicate)", result.Updated)
	}
	counts, _ := store.CountByStatus(context.Background(), campaign.ID)
	if counts[domain.StatusHarvested] != 1 {
		t.Fatalf("persisted = %d, want exactly 1", counts[domain.StatusHarvested])
	}
}

func TestHarvesterSkipsExistingLeads(t *testing.T) {
	store := repository.NewMemoryStore()
	campaign := testCampaign()
	ctx := context.Background()

	if _, err := store.Insert(ctx, domain.Lead{
		CampaignID: campaign.ID,
		DedupKey:   domain.DedupKey("jane.doe@example.com", "", ""),
		Email:      "jane.doe@example.com",
		Status:     domain.StatusScored,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	source := &fakeSource{
		name:       "csv",
		configured: true,
		leads:      []domain.Lead{{Email: "jane.doe@example.com", FirstName: "Jane"}},
	}
	h := NewHarvester([]ports.LeadSource{source}, store, logger.New("test"))
	result := h.Process(ctx, nil, campaign)

	if result.Updated != 0 {
		t.Fatalf("updated = %d, want 0 for an already known lead", result.Updated)
	}
}

// racingInsertStore simulates a concurrent writer winning the dedup race:
// the exists check passes but the insert itself reports a duplicate key.
type racingInsertStore struct {
	repository.Store
}

func (s racingInsertStore) Insert(context.Context, domain.Lead) (domain.Lead, error) {
	return domain.Lead{}, fmt.Errorf("insert lead: %w", repository.ErrDuplicateKey)
}

func TestHarvesterSkipsLeadLostToInsertRace(t *testing.T) {
	store := racingInsertStore{Store: repository.NewMemoryStore()}
	campaign := testCampaign()

	source := &fakeSource{
		name:       "csv",
		configured: true,
		leads:      []domain.Lead{{Email: "jane.doe@example.com", FirstName: "Jane"}},
	}
	h := NewHarvester([]ports.LeadSource{source}, store, logger.New("test"))
	result := h.Process(context.Background(), nil, campaign)

	if result.Updated != 0 {
		t.Fatalf("updated = %d, want 0 when the insert loses the dedup race", result.Updated)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("errors = %v, want a wrapped duplicate key treated as a skip", result.Errors)
	}
}

func TestHarvesterFallsThroughSourceChain(t *testing.T) {
	store := repository.NewMemoryStore()
	campaign := testCampaign()
	campaign.MaxLeadsPerHarvest = 3

	primary := &fakeSource{
		name:       "primary",
		configured: true,
		leads:      []domain.Lead{{Email: "one@corp-a.com", FirstName: "One"}},
	}
	secondary := &fakeSource{
		name:       "secondary",
		configured: true,
		leads: []domain.Lead{
			{Email: "two@corp-b.com", FirstName: "Two"},
			{Email: "three@corp-c.com", FirstName: "Three"},
			{Email: "four@corp-d.com", FirstName: "Four"},
		},
	}

	h := NewHarvester([]ports.LeadSource{primary, secondary}, store, logger.New("test"))
	result := h.Process(context.Background(), nil, campaign)

	if result.Updated != 3 {
		t.Fatalf("updated = %d, want 3 (chain capped at max leads)", result.Updated)
	}
	if secondary.calls != 1 {
		t.Fatalf("secondary source calls = %d, want 1", secondary.calls)
	}
}

func TestHarvesterIgnoresUnconfiguredAndBrokenSources(t *testing.T) {
	store := repository.NewMemoryStore()
	campaign := testCampaign()

	unconfigured := &fakeSource{name: "paid-api", configured: false}
	broken := &fakeSource{name: "flaky", configured: true, err: errProviderDown}
	working := &fakeSource{
		name:       "manual",
		configured: true,
		leads:      []domain.Lead{{Email: "ada@corp.com", FirstName: "Ada"}},
	}

	h := NewHarvester([]ports.LeadSource{unconfigured, broken, working}, store, logger.New("test"))
	result := h.Process(context.Background(), nil, campaign)

	if unconfigured.calls != 0 {
		t.Fatal("unconfigured source was queried")
	}
	if result.Updated != 1 {
		t.Fatalf("updated = %d, want 1 from the working source", result.Updated)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("errors = %v, a broken source is logged, not recorded", result.Errors)
	}
}

func TestHarvesterRejectsCandidatesWithoutIdentity(t *testing.T) {
	store := repository.NewMemoryStore()
	campaign := testCampaign()
	source := &fakeSource{
		name:       "csv",
		configured: true,
		leads: []domain.Lead{
			{FirstName: "No", LastName: "Email"},
			{Email: "valid@corp.com", FirstName: "Valid"},
		},
	}

	h := NewHarvester([]ports.LeadSource{source}, store, logger.New("test"))
	result := h.Process(context.Background(), nil, campaign)

	if result.Updated != 1 {
		t.Fatalf("updated = %d, want 1", result.Updated)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("errors = %d, want 1 for the identity-less candidate", len(result.Errors))
	}
}

func TestHarvesterUsesCompanyFallbackKey(t *testing.T) {
	store := repository.NewMemoryStore()
	campaign := testCampaign()
	source := &fakeSource{
		name:       "csv",
		configured: true,
		leads: []domain.Lead{
			{FirstName: "Grace", LastName: "Hopper", CompanyDomain: "navy.mil"},
			{FirstName: "Grace", LastName: "Hopper", CompanyDomain: "navy.mil"},
		},
	}

	h := NewHarvester([]ports.LeadSource{source}, store, logger.New("test"))
	result := h.Process(context.Background(), nil, campaign)

	if result.Updated != 1 {
		t.Fatalf("updated = %d, want 1 via the domain+name fallback key", result.Updated)
	}
}
