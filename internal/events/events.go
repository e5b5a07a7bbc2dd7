// Package events defines the domain events the pipeline publishes. Handlers
// subscribe through the platform bus; publishers never know who listens.
package events

import (
	"github.com/google/uuid"

	"cam_backend/internal/leads/domain"
	"cam_backend/platform/events"
)

// Event names.
const (
	LeadTransitionedName = "lead.transitioned"
	JobCompletedName     = "job.completed"
	CapExceededName      = "safety.cap_exceeded"
	ReviewResolvedName   = "review.resolved"
	ReplyReceivedName    = "reply.received"
)

// LeadTransitioned fires after a status change is persisted.
type LeadTransitioned struct {
	events.BaseEvent
	LeadID     uuid.UUID     `json:"leadId"`
	CampaignID uuid.UUID     `json:"campaignId"`
	FromStatus domain.Status `json:"fromStatus"`
	ToStatus   domain.Status `json:"toStatus"`
	Reason     string        `json:"reason"`
}

func (LeadTransitioned) EventName() string { return LeadTransitionedName }

// JobCompleted fires when the orchestrator finalizes an execution.
type JobCompleted struct {
	events.BaseEvent
	ExecutionID string    `json:"executionId"`
	JobType     string    `json:"jobType"`
	CampaignID  uuid.UUID `json:"campaignId"`
	Status      string    `json:"status"`
	Processed   int       `json:"processed"`
	Errored     int       `json:"errored"`
	Deferred    int       `json:"deferred"`
}

func (JobCompleted) EventName() string { return JobCompletedName }

// CapExceeded fires when the safety limiter denies a reservation.
type CapExceeded struct {
	events.BaseEvent
	CampaignID uuid.UUID `json:"campaignId"`
	Channel    string    `json:"channel"`
	Window     string    `json:"window"`
}

func (CapExceeded) EventName() string { return CapExceededName }

// ReviewResolved fires when an operator approves, rejects, or skips a
// flagged lead.
type ReviewResolved struct {
	events.BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	CampaignID uuid.UUID `json:"campaignId"`
	Resolution string    `json:"resolution"`
}

func (ReviewResolved) EventName() string { return ReviewResolvedName }

// ReplyReceived fires when an inbound reply is matched to a lead.
type ReplyReceived struct {
	events.BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	CampaignID     uuid.UUID `json:"campaignId"`
	Classification string    `json:"classification"`
}

func (ReplyReceived) EventName() string { return ReplyReceivedName }
