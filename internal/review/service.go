package review

import (
	"context"
	"errors"

	"github.com/google/uuid"

	camevents "cam_backend/internal/events"
	"cam_backend/internal/leads/domain"
	"cam_backend/internal/leads/repository"
	"cam_backend/platform/apperr"
	"cam_backend/platform/events"
	"cam_backend/platform/logger"
)

// Service resolves review tasks. Rejections and skips go through the status
// state machine, never through direct field writes, so the audit trail stays
// complete.
type Service struct {
	leads repository.Store
	tasks TaskStore
	bus   events.Bus
	log   *logger.Logger
}

// NewService creates the review gate service.
func NewService(leads repository.Store, tasks TaskStore, bus events.Bus, log *logger.Logger) *Service {
	return &Service{leads: leads, tasks: tasks, bus: bus, log: log}
}

// Flag marks a lead for human review and creates or replaces its task.
// Any stage may call this; the flag halts automated advancement past
// QUALIFIED or ROUTED until an operator resolves it.
func (s *Service) Flag(ctx context.Context, leadID uuid.UUID, reviewType, reason string) (Task, error) {
	if !validReviewType(reviewType) {
		return Task{}, apperr.Validation("unknown review type: " + reviewType)
	}

	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Task{}, apperr.NotFound("lead not found")
		}
		return Task{}, err
	}

	if err := s.leads.SetReviewFlag(ctx, lead.ID, true, reviewType, reason); err != nil {
		return Task{}, err
	}

	task, err := s.tasks.Upsert(ctx, Task{
		LeadID:     lead.ID,
		CampaignID: lead.CampaignID,
		Type:       reviewType,
		Reason:     reason,
	})
	if err != nil {
		return Task{}, err
	}

	s.appendEngagement(ctx, lead.ID, domain.EngagementReviewFlagged, map[string]string{
		"type":   reviewType,
		"reason": reason,
	})
	return task, nil
}

// ListPending returns open tasks, optionally scoped to one campaign.
func (s *Service) ListPending(ctx context.Context, campaignID *uuid.UUID, limit int) ([]Task, error) {
	return s.tasks.ListPending(ctx, campaignID, limit)
}

// Approve clears the review flag. A lead the qualify stage held at SCORED
// advances to QUALIFIED in the same step; its score is still inside the
// manual band, so the automated rules alone can never move it. Leads flagged
// at later stages keep their status and resume where they stopped.
func (s *Service) Approve(ctx context.Context, leadID uuid.UUID) error {
	lead, task, err := s.pendingLead(ctx, leadID)
	if err != nil {
		return err
	}

	if lead.Status == domain.StatusScored {
		record, err := domain.Transition(&lead, domain.StatusQualified, "approved by operator review")
		if err != nil {
			return err
		}
		lead.RequiresHumanReview = false
		lead.ReviewType = ""
		lead.ReviewReason = ""
		updated, err := s.leads.ApplyTransition(ctx, lead, record)
		if err != nil {
			return err
		}
		lead = updated
		s.log.LeadTransition(lead.ID.String(), string(record.FromStatus), string(record.ToStatus), record.Reason)
		s.publishTransitioned(ctx, lead, record)
	} else if err := s.leads.SetReviewFlag(ctx, lead.ID, false, "", ""); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, lead.ID); err != nil && !errors.Is(err, ErrTaskNotFound) {
		return err
	}

	s.appendEngagement(ctx, lead.ID, domain.EngagementReviewCleared, map[string]string{
		"resolution": ResolutionApproved,
		"type":       task.Type,
	})
	s.publishResolved(ctx, lead, ResolutionApproved)
	return nil
}

// Reject disqualifies the lead via the state machine and removes the task.
func (s *Service) Reject(ctx context.Context, leadID uuid.UUID, reason string) error {
	if reason == "" {
		reason = "rejected by operator review"
	}
	return s.resolve(ctx, leadID, domain.StatusRejected, reason, ResolutionRejected)
}

// Skip suppresses the lead via the state machine and removes the task.
func (s *Service) Skip(ctx context.Context, leadID uuid.UUID) error {
	return s.resolve(ctx, leadID, domain.StatusSuppressed, "skipped by operator review", ResolutionSkipped)
}

func (s *Service) resolve(ctx context.Context, leadID uuid.UUID, to domain.Status, reason, resolution string) error {
	lead, task, err := s.pendingLead(ctx, leadID)
	if err != nil {
		return err
	}

	record, err := domain.Transition(&lead, to, reason)
	if err != nil {
		return err
	}
	lead.RequiresHumanReview = false
	lead.ReviewType = ""
	lead.ReviewReason = ""

	updated, err := s.leads.ApplyTransition(ctx, lead, record)
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, updated.ID); err != nil && !errors.Is(err, ErrTaskNotFound) {
		return err
	}

	s.log.LeadTransition(updated.ID.String(), string(record.FromStatus), string(record.ToStatus), reason)
	s.publishTransitioned(ctx, updated, record)
	s.appendEngagement(ctx, updated.ID, domain.EngagementReviewCleared, map[string]string{
		"resolution": resolution,
		"type":       task.Type,
	})
	s.publishResolved(ctx, updated, resolution)
	return nil
}

// pendingLead loads the lead and its task; resolving a lead that was never
// flagged is an operator error, not a no-op.
func (s *Service) pendingLead(ctx context.Context, leadID uuid.UUID) (domain.Lead, Task, error) {
	task, err := s.tasks.GetByLeadID(ctx, leadID)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			return domain.Lead{}, Task{}, apperr.NotFound("no pending review task for lead")
		}
		return domain.Lead{}, Task{}, err
	}

	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Lead{}, Task{}, apperr.NotFound("lead not found")
		}
		return domain.Lead{}, Task{}, err
	}
	return lead, task, nil
}

func (s *Service) appendEngagement(ctx context.Context, leadID uuid.UUID, eventType string, metadata map[string]string) {
	err := s.leads.AppendEngagement(ctx, domain.EngagementEvent{
		LeadID:   leadID,
		Type:     eventType,
		Metadata: metadata,
	})
	if err != nil {
		s.log.Warn("failed to append engagement event", "lead_id", leadID, "type", eventType, "error", err)
	}
}

func (s *Service) publishTransitioned(ctx context.Context, lead domain.Lead, record domain.TransitionRecord) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, camevents.LeadTransitioned{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		CampaignID: lead.CampaignID,
		FromStatus: record.FromStatus,
		ToStatus:   record.ToStatus,
		Reason:     record.Reason,
	})
}

func (s *Service) publishResolved(ctx context.Context, lead domain.Lead, resolution string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, camevents.ReviewResolved{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		CampaignID: lead.CampaignID,
		Resolution: resolution,
	})
}

func validReviewType(reviewType string) bool {
	switch reviewType {
	case domain.ReviewTypeMessage, domain.ReviewTypeProposal, domain.ReviewTypeAction, domain.ReviewTypeRetry:
		return true
	}
	return false
}
