package pipeline

import (
	"context"
	"fmt"
	"time"

	"cam_backend/internal/campaigns"
	"cam_backend/internal/leads/domain"
	"cam_backend/internal/leads/repository"
	"cam_backend/platform/events"
	"cam_backend/platform/logger"
)

// Router assigns each qualified lead the nurture sequence for its tier and
// stamps the sequence start time.
type Router struct {
	leads     repository.Store
	sequences *SequenceSet
	bus       events.Bus
	log       *logger.Logger
	now       func() time.Time
}

// NewRouter creates the route stage.
func NewRouter(leads repository.Store, sequences *SequenceSet, bus events.Bus, log *logger.Logger) *Router {
	return &Router{leads: leads, sequences: sequences, bus: bus, log: log, now: time.Now}
}

func (r *Router) JobType() string { return JobRoute }

func (r *Router) BatchStatuses() []domain.Status {
	return []domain.Status{domain.StatusQualified}
}

func (r *Router) Process(ctx context.Context, batch []domain.Lead, _ campaigns.Campaign) Result {
	var result Result

	for _, lead := range batch {
		if lead.RequiresHumanReview {
			result.Deferred++
			continue
		}

		sequence, ok := r.sequences.ForTier(lead.Tier)
		if !ok {
			result.recordError(lead.ID, fmt.Errorf("no sequence for tier %s", lead.Tier))
			continue
		}

		start := r.now().UTC()
		lead.RoutingSequence = &sequence.ID
		lead.SequenceStartAt = &start
		lead.SequenceStep = 0

		if _, err := applyTransition(ctx, r.leads, r.bus, r.log, lead, domain.StatusRouted, "assigned sequence "+sequence.ID); err != nil {
			result.recordError(lead.ID, err)
			continue
		}
		result.Updated++
	}
	return result
}

var _ Processor = (*Router)(nil)
