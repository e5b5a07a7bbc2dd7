// Package pipeline implements the stage processors: harvest, score, qualify,
// route, nurture. A processor works one bounded batch for one campaign and
// isolates per-record failures so a single bad lead never aborts the batch.
package pipeline

import (
	"context"

	"github.com/google/uuid"

	"cam_backend/internal/campaigns"
	camevents "cam_backend/internal/events"
	"cam_backend/internal/leads/domain"
	"cam_backend/internal/leads/repository"
	"cam_backend/platform/events"
	"cam_backend/platform/logger"
)

// Job type names, one per stage.
const (
	JobHarvest = "harvest"
	JobScore   = "score"
	JobQualify = "qualify"
	JobRoute   = "route"
	JobNurture = "nurture"
)

// JobTypes lists every stage in pipeline order.
func JobTypes() []string {
	return []string{JobHarvest, JobScore, JobQualify, JobRoute, JobNurture}
}

// RecordError is one isolated per-lead failure inside a batch.
type RecordError struct {
	LeadID uuid.UUID `json:"leadId"`
	Err    error     `json:"-"`
	Reason string    `json:"reason"`
}

// Result aggregates one processor run.
type Result struct {
	// Updated counts leads that advanced or were newly persisted.
	Updated int
	// Deferred counts leads skipped this cycle without a state change,
	// typically on a safety cap veto. They are retried next cycle.
	Deferred int
	// Errors holds per-record failures. The rest of the batch still ran.
	Errors []RecordError
}

// Processed returns the total records the run accounted for.
func (r Result) Processed() int {
	return r.Updated + r.Deferred + len(r.Errors)
}

func (r *Result) recordError(leadID uuid.UUID, err error) {
	r.Errors = append(r.Errors, RecordError{LeadID: leadID, Err: err, Reason: err.Error()})
}

// applyTransition persists one status change together with its audit row,
// log line, and LeadTransitioned event, and returns the updated lead.
func applyTransition(ctx context.Context, store repository.Store, bus events.Bus, log *logger.Logger, lead domain.Lead, to domain.Status, reason string) (domain.Lead, error) {
	record, err := domain.Transition(&lead, to, reason)
	if err != nil {
		return domain.Lead{}, err
	}
	updated, err := store.ApplyTransition(ctx, lead, record)
	if err != nil {
		return domain.Lead{}, err
	}

	log.LeadTransition(updated.ID.String(), string(record.FromStatus), string(record.ToStatus), reason)
	if bus != nil {
		bus.Publish(ctx, camevents.LeadTransitioned{
			BaseEvent:  events.NewBaseEvent(),
			LeadID:     updated.ID,
			CampaignID: updated.CampaignID,
			FromStatus: record.FromStatus,
			ToStatus:   record.ToStatus,
			Reason:     reason,
		})
	}
	return updated, nil
}

// Processor is one pipeline stage.
type Processor interface {
	// JobType names the stage for scheduling and execution ids.
	JobType() string
	// BatchStatuses lists the lead statuses this stage consumes. The
	// orchestrator queries these to build the batch. Empty means the stage
	// sources its own input (harvest).
	BatchStatuses() []domain.Status
	// Process runs the stage over the batch. It never returns an error for
	// a single bad record; those land in Result.Errors.
	Process(ctx context.Context, batch []domain.Lead, campaign campaigns.Campaign) Result
}
