package repository

import (
	"context"

	"cam_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	GetByDedupKey(ctx context.Context, campaignID uuid.UUID, key string) (domain.Lead, error)
	// QueryByStatus returns leads in ascending id order so retries and tests
	// observe a stable, deterministic batch.
	QueryByStatus(ctx context.Context, campaignID uuid.UUID, status domain.Status, limit int) ([]domain.Lead, error)
	ExistsByDedupKey(ctx context.Context, campaignID uuid.UUID, key string) (bool, error)
	// FindByEmail returns every lead holding the given normalized email,
	// across campaigns. Inbound reply correlation is the only caller.
	FindByEmail(ctx context.Context, email string) ([]domain.Lead, error)
}

// LeadWriter provides write operations for lead records.
type LeadWriter interface {
	Insert(ctx context.Context, lead domain.Lead) (domain.Lead, error)
	Save(ctx context.Context, lead domain.Lead) (domain.Lead, error)
	// ApplyTransition updates the status with compare-and-swap semantics on
	// the previous status and records the audit row in the same transaction.
	// Returns ErrStatusConflict when another writer advanced the lead first.
	ApplyTransition(ctx context.Context, lead domain.Lead, record domain.TransitionRecord) (domain.Lead, error)
	SetReviewFlag(ctx context.Context, id uuid.UUID, flagged bool, reviewType, reason string) error
}

// EngagementLogger appends to and reads a lead's engagement event log.
type EngagementLogger interface {
	AppendEngagement(ctx context.Context, event domain.EngagementEvent) error
	ListEngagement(ctx context.Context, leadID uuid.UUID) ([]domain.EngagementEvent, error)
}

// StatusAggregator provides read-only dashboard aggregation.
type StatusAggregator interface {
	CountByStatus(ctx context.Context, campaignID uuid.UUID) (map[domain.Status]int, error)
}

// Store is the full lead repository port used by the composition roots.
type Store interface {
	LeadReader
	LeadWriter
	EngagementLogger
	StatusAggregator
}
