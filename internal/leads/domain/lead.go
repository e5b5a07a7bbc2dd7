// Package domain provides core business rules for the lead lifecycle:
// the status state machine, score tiers, and dedup key derivation.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tier classifies a scored lead into a nurture bucket.
type Tier string

const (
	TierHot  Tier = "HOT"
	TierWarm Tier = "WARM"
	TierCool Tier = "COOL"
	TierCold Tier = "COLD"
)

// Tier threshold bands over the combined score.
const (
	hotThreshold  = 0.8
	warmThreshold = 0.6
	coolThreshold = 0.4
)

// TierForScore derives the tier from a combined score in [0,1].
func TierForScore(score float64) Tier {
	switch {
	case score >= hotThreshold:
		return TierHot
	case score >= warmThreshold:
		return TierWarm
	case score >= coolThreshold:
		return TierCool
	default:
		return TierCold
	}
}

// EngagementEvent is one entry of a lead's append-only engagement log.
// The log lives in storage, not in a process-local map, so it survives
// orchestrator restarts and multiple orchestrator instances.
type EngagementEvent struct {
	ID        uuid.UUID         `json:"id"`
	LeadID    uuid.UUID         `json:"leadId"`
	Type      string            `json:"type"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Engagement event types recorded by the pipeline.
const (
	EngagementOutreachSent  = "outreach_sent"
	EngagementReplyReceived = "reply_received"
	EngagementReviewFlagged = "review_flagged"
	EngagementReviewCleared = "review_cleared"
)

// Review types a stage may request.
const (
	ReviewTypeMessage  = "MESSAGE"
	ReviewTypeProposal = "PROPOSAL"
	ReviewTypeAction   = "ACTION"
	ReviewTypeRetry    = "RETRY"
)

// Lead is a prospect record advancing through the acquisition pipeline.
type Lead struct {
	ID            uuid.UUID `json:"id"`
	CampaignID    uuid.UUID `json:"campaignId"`
	DedupKey      string    `json:"dedupKey"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	Company       string    `json:"company"`
	CompanyDomain string    `json:"companyDomain"`
	CompanySize   int       `json:"companySize"`
	Industry      string    `json:"industry"`
	Seniority     string    `json:"seniority"`
	IntentSignals []string  `json:"intentSignals,omitempty"`
	Source        string    `json:"source"`

	Status Status `json:"status"`

	ICPFit      float64 `json:"icpFit"`
	Opportunity float64 `json:"opportunity"`
	Score       float64 `json:"score"`
	Tier        Tier    `json:"tier,omitempty"`

	RoutingSequence *string    `json:"routingSequence,omitempty"`
	SequenceStartAt *time.Time `json:"sequenceStartAt,omitempty"`
	SequenceStep    int        `json:"sequenceStep"`

	RequiresHumanReview bool   `json:"requiresHumanReview"`
	ReviewReason        string `json:"reviewReason,omitempty"`
	ReviewType          string `json:"reviewType,omitempty"`

	AttemptCount int        `json:"attemptCount"`
	LastActionAt *time.Time `json:"lastActionAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FullName returns the lead's display name.
func (l Lead) FullName() string {
	if l.FirstName == "" {
		return l.LastName
	}
	if l.LastName == "" {
		return l.FirstName
	}
	return l.FirstName + " " + l.LastName
}

// HasIntent reports whether at least one intent signal is present.
func (l Lead) HasIntent() bool {
	for _, signal := range l.IntentSignals {
		if signal != "" {
			return true
		}
	}
	return false
}
