// Package ports defines the external collaborator contracts the pipeline
// consumes. Adapters implement these; the compile-checked no-op versions are
// the safe defaults when a provider is not configured.
package ports

import (
	"context"
	"time"

	"cam_backend/internal/campaigns"
	"cam_backend/internal/leads/domain"
)

// LeadSource supplies new leads for a campaign. Multiple sources compose
// into a priority-ordered chain inside the harvester.
type LeadSource interface {
	// Name identifies the source in logs and lead records.
	Name() string
	// IsConfigured reports whether the source can be queried at all.
	IsConfigured() bool
	// FetchNewLeads returns up to maxLeads candidate leads. Returned leads
	// are candidates only; the harvester dedups and persists them.
	FetchNewLeads(ctx context.Context, campaign campaigns.Campaign, maxLeads int) ([]domain.Lead, error)
}

// Enricher fills in missing lead attributes from a data provider.
// Implementations must be safe to call with partial data and must return the
// input unchanged on provider failure rather than erroring into the pipeline.
type Enricher interface {
	Enrich(ctx context.Context, lead domain.Lead) (domain.Lead, error)
}

// EmailVerifier checks deliverability of an address.
type EmailVerifier interface {
	Verify(ctx context.Context, email string) (bool, error)
}

// SendResult is the provider acknowledgement for one outbound message.
type SendResult struct {
	Sent              bool
	ProviderMessageID string
}

// OutreachSender delivers one rendered message to a lead over a channel.
// It must be called only after a successful safety limiter reservation.
type OutreachSender interface {
	Channel() string
	Send(ctx context.Context, lead domain.Lead, subject, body string) (SendResult, error)
}

// Reply classifications produced by a ReplyClassifier.
const (
	ReplyPositive    = "POSITIVE"
	ReplyNegative    = "NEGATIVE"
	ReplyNeutral     = "NEUTRAL"
	ReplyUnsubscribe = "UNSUBSCRIBE"
	ReplyBounce      = "BOUNCE"
)

// ReplyEvent is one inbound reply correlated to a lead.
type ReplyEvent struct {
	LeadEmail      string
	Subject        string
	Body           string
	Classification string
	ReceivedAt     time.Time
}

// ReplySource fetches inbound replies newer than the given timestamp.
type ReplySource interface {
	FetchNewReplies(ctx context.Context, since time.Time) ([]ReplyEvent, error)
}

// ReplyClassifier assigns a classification to a raw reply.
type ReplyClassifier interface {
	Classify(ctx context.Context, subject, body string) (string, error)
}
