package pipeline

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"cam_backend/internal/campaigns"
	"cam_backend/internal/leads/domain"
	"cam_backend/internal/leads/ports"
	"cam_backend/internal/leads/repository"
	"cam_backend/platform/events"
	"cam_backend/platform/logger"
)

// Scoring weights. ICP fit weighs company attributes; opportunity weighs the
// person and their timing.
const (
	icpIndustryWeight = 0.40
	icpSizeWeight     = 0.35
	icpSignalsWeight  = 0.25

	oppSeniorityWeight = 0.40
	oppIntentWeight    = 0.40
	oppRecencyWeight   = 0.20

	combinedICPWeight = 0.60
	combinedOppWeight = 0.40
)

// recencyHalfLife is the lead age at which the recency component halves.
const recencyHalfLife = 14 * 24 * time.Hour

// Scorer enriches harvested leads and computes their sub-scores and tier.
// Enrichment and scoring run in parallel across the batch; the resulting
// transitions are applied serially.
type Scorer struct {
	leads    repository.Store
	enricher ports.Enricher
	verifier ports.EmailVerifier
	bus      events.Bus
	log      *logger.Logger
	now      func() time.Time

	// parallelism bounds the enrichment fan-out.
	parallelism int
}

// NewScorer creates the score stage.
func NewScorer(leads repository.Store, enricher ports.Enricher, verifier ports.EmailVerifier, bus events.Bus, log *logger.Logger) *Scorer {
	return &Scorer{
		leads:       leads,
		enricher:    enricher,
		verifier:    verifier,
		bus:         bus,
		log:         log,
		now:         time.Now,
		parallelism: 8,
	}
}

func (s *Scorer) JobType() string { return JobScore }

// BatchStatuses includes ENRICHED so leads stranded by a crash between the
// enrich and score transitions are picked up again.
func (s *Scorer) BatchStatuses() []domain.Status {
	return []domain.Status{domain.StatusHarvested, domain.StatusEnriched}
}

type scoredLead struct {
	lead domain.Lead
	err  error
}

func (s *Scorer) Process(ctx context.Context, batch []domain.Lead, campaign campaigns.Campaign) Result {
	var result Result
	if len(batch) == 0 {
		return result
	}

	scored := make([]scoredLead, len(batch))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.parallelism)
	for i, lead := range batch {
		group.Go(func() error {
			scored[i] = s.prepare(groupCtx, lead, campaign)
			return nil
		})
	}
	// Workers never return errors; per-record failures ride in the slots.
	_ = group.Wait()

	for _, item := range scored {
		if item.err != nil {
			result.recordError(item.lead.ID, item.err)
			continue
		}
		if err := s.apply(ctx, item.lead); err != nil {
			result.recordError(item.lead.ID, err)
			continue
		}
		result.Updated++
	}
	return result
}

// prepare enriches and scores one lead without touching storage.
func (s *Scorer) prepare(ctx context.Context, lead domain.Lead, campaign campaigns.Campaign) scoredLead {
	if lead.Status == domain.StatusHarvested {
		enriched, err := s.enricher.Enrich(ctx, lead)
		if err != nil {
			// Enricher contract says failures return the input unchanged;
			// an error here is a programming fault worth isolating.
			return scoredLead{lead: lead, err: err}
		}
		lead = enriched

		if lead.Email != "" && s.verifier != nil {
			ok, err := s.verifier.Verify(ctx, lead.Email)
			if err != nil {
				s.log.Warn("email verification failed", "lead_id", lead.ID, "error", err)
			} else if !ok {
				// Keep the lead; the qualifier rejects undeliverable
				// addresses with a recorded reason.
				lead.Email = ""
			}
		}
	}

	lead.ICPFit = s.icpFit(lead, campaign.Target)
	lead.Opportunity = s.opportunity(lead, campaign.Target)
	lead.Score = combinedICPWeight*lead.ICPFit + combinedOppWeight*lead.Opportunity
	lead.Tier = domain.TierForScore(lead.Score)
	return scoredLead{lead: lead}
}

// apply advances the lead through ENRICHED to SCORED with audit rows.
func (s *Scorer) apply(ctx context.Context, lead domain.Lead) error {
	if lead.Status == domain.StatusHarvested {
		updated, err := applyTransition(ctx, s.leads, s.bus, s.log, lead, domain.StatusEnriched, "enrichment complete")
		if err != nil {
			return err
		}
		lead = updated
	}

	_, err := applyTransition(ctx, s.leads, s.bus, s.log, lead, domain.StatusScored, "scoring complete")
	return err
}

func (s *Scorer) icpFit(lead domain.Lead, target campaigns.TargetProfile) float64 {
	score := 0.0

	if matchesAny(lead.Industry, target.Industries) {
		score += icpIndustryWeight
	}
	if sizeInBand(lead.CompanySize, target.CompanySizeMin, target.CompanySizeMax) {
		score += icpSizeWeight
	}
	score += icpSignalsWeight * overlapRatio(lead.IntentSignals, target.IntentSignals)

	return clamp01(score)
}

func (s *Scorer) opportunity(lead domain.Lead, target campaigns.TargetProfile) float64 {
	score := 0.0

	if matchesAny(lead.Seniority, target.Seniorities) {
		score += oppSeniorityWeight
	}
	if lead.HasIntent() {
		score += oppIntentWeight
	}

	age := s.now().Sub(lead.CreatedAt)
	if age < 0 {
		age = 0
	}
	recency := 1.0 / (1.0 + age.Hours()/recencyHalfLife.Hours())
	score += oppRecencyWeight * recency

	return clamp01(score)
}

func matchesAny(value string, accepted []string) bool {
	if value == "" {
		return false
	}
	for _, candidate := range accepted {
		if strings.EqualFold(value, candidate) {
			return true
		}
	}
	return false
}

func sizeInBand(size, min, max int) bool {
	if size <= 0 {
		return false
	}
	if min > 0 && size < min {
		return false
	}
	if max > 0 && size > max {
		return false
	}
	return true
}

func overlapRatio(have, want []string) float64 {
	if len(want) == 0 {
		// No target signals configured; treat the component as neutral-full
		// so campaigns without signal targeting are not penalized.
		return 1.0
	}
	matched := 0
	for _, signal := range want {
		for _, held := range have {
			if strings.EqualFold(signal, held) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(want))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var _ Processor = (*Scorer)(nil)
