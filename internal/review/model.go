// Package review implements the human approval gate. Stages flag leads;
// operators resolve the resulting tasks through the API, which is the only
// path that clears the review flag.
package review

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Resolutions reported on the resolved event.
const (
	ResolutionApproved = "approved"
	ResolutionRejected = "rejected"
	ResolutionSkipped  = "skipped"
)

// Task is one pending human review item. At most one task exists per lead;
// re-flagging replaces the reason and type instead of stacking duplicates.
type Task struct {
	ID         uuid.UUID `json:"id"`
	LeadID     uuid.UUID `json:"leadId"`
	CampaignID uuid.UUID `json:"campaignId"`
	Type       string    `json:"type"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TaskStore persists review tasks.
type TaskStore interface {
	// Upsert inserts the task, replacing any existing task for the same lead.
	Upsert(ctx context.Context, task Task) (Task, error)
	GetByLeadID(ctx context.Context, leadID uuid.UUID) (Task, error)
	// ListPending returns open tasks oldest first. A nil campaignID lists
	// across all campaigns.
	ListPending(ctx context.Context, campaignID *uuid.UUID, limit int) ([]Task, error)
	Delete(ctx context.Context, leadID uuid.UUID) error
}
