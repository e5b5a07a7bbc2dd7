package pipeline

import (
	"context"
	"errors"

	"cam_backend/internal/campaigns"
	"cam_backend/internal/leads/domain"
	"cam_backend/internal/leads/ports"
	"cam_backend/internal/leads/repository"
	"cam_backend/platform/logger"
)

// errEmptyIdentity rejects candidates with no usable dedup identity.
var errEmptyIdentity = errors.New("candidate has neither email nor company identity")

// Harvester pulls candidate leads from the configured source chain in
// priority order, falling through to the next source when the primary yields
// too few, and persists the deduplicated remainder as HARVESTED.
type Harvester struct {
	sources []ports.LeadSource
	leads   repository.Store
	log     *logger.Logger
}

// NewHarvester creates the harvest stage. Source order is priority order.
func NewHarvester(sources []ports.LeadSource, leads repository.Store, log *logger.Logger) *Harvester {
	return &Harvester{sources: sources, leads: leads, log: log}
}

func (h *Harvester) JobType() string { return JobHarvest }

// BatchStatuses is empty: the harvester sources its own input.
func (h *Harvester) BatchStatuses() []domain.Status { return nil }

func (h *Harvester) Process(ctx context.Context, _ []domain.Lead, campaign campaigns.Campaign) Result {
	var result Result

	maxLeads := campaign.MaxLeadsPerHarvest
	if maxLeads < 1 {
		maxLeads = 100
	}

	remaining := maxLeads
	for _, source := range h.sources {
		if remaining <= 0 {
			break
		}
		if !source.IsConfigured() {
			continue
		}

		candidates, err := source.FetchNewLeads(ctx, campaign, remaining)
		if err != nil {
			// A broken source never aborts the chain; the next source
			// still gets its chance to fill the batch.
			h.log.Warn("lead source fetch failed", "source", source.Name(), "campaign_id", campaign.ID, "error", err)
			continue
		}

		for _, candidate := range candidates {
			if remaining <= 0 {
				break
			}
			if !h.persist(ctx, candidate, campaign, source.Name(), &result) {
				continue
			}
			remaining--
			result.Updated++
		}
	}

	return result
}

// persist normalizes, dedups, and inserts one candidate. Duplicates are
// silent skips, not errors.
func (h *Harvester) persist(ctx context.Context, candidate domain.Lead, campaign campaigns.Campaign, sourceName string, result *Result) bool {
	candidate.CampaignID = campaign.ID
	candidate.Status = domain.StatusHarvested
	candidate.Source = sourceName
	candidate.Email = domain.NormalizeEmail(candidate.Email)
	candidate.Phone = domain.NormalizePhone(candidate.Phone, campaign.PhoneRegion)
	candidate.DedupKey = domain.DedupKey(candidate.Email, candidate.CompanyDomain, candidate.FullName())

	if candidate.DedupKey == "" {
		result.recordError(candidate.ID, errEmptyIdentity)
		return false
	}

	exists, err := h.leads.ExistsByDedupKey(ctx, campaign.ID, candidate.DedupKey)
	if err != nil {
		result.recordError(candidate.ID, err)
		return false
	}
	if exists {
		return false
	}

	if _, err := h.leads.Insert(ctx, candidate); err != nil {
		// A concurrent insert of the same key loses the race cleanly.
		if errors.Is(err, repository.ErrDuplicateKey) {
			return false
		}
		result.recordError(candidate.ID, err)
		return false
	}
	return true
}

var _ Processor = (*Harvester)(nil)
