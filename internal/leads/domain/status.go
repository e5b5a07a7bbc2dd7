package domain

import (
	"cam_backend/platform/apperr"
)

// Status is a lead's lifecycle state. Statuses only advance along the
// directed graph below; suppression and disqualification are reachable
// from every non-terminal state.
type Status string

const (
	StatusHarvested  Status = "HARVESTED"
	StatusEnriched   Status = "ENRICHED"
	StatusScored     Status = "SCORED"
	StatusQualified  Status = "QUALIFIED"
	StatusRejected   Status = "REJECTED"
	StatusRouted     Status = "ROUTED"
	StatusNurtured   Status = "NURTURED"
	StatusReplied    Status = "REPLIED"
	StatusConverted  Status = "CONVERTED"
	StatusSuppressed Status = "SUPPRESSED"
	StatusLost       Status = "LOST"
)

// forwardEdges is the progression part of the lifecycle graph.
// Suppression and rejection edges are handled separately in CanTransition.
var forwardEdges = map[Status][]Status{
	StatusHarvested: {StatusEnriched},
	StatusEnriched:  {StatusScored},
	StatusScored:    {StatusQualified, StatusRejected},
	StatusQualified: {StatusRouted},
	StatusRouted:    {StatusNurtured},
	StatusNurtured:  {StatusReplied, StatusSuppressed},
	StatusReplied:   {StatusConverted},
}

var terminalStatuses = map[Status]bool{
	StatusConverted:  true,
	StatusSuppressed: true,
	StatusRejected:   true,
	StatusLost:       true,
}

var knownStatuses = map[Status]bool{
	StatusHarvested:  true,
	StatusEnriched:   true,
	StatusScored:     true,
	StatusQualified:  true,
	StatusRejected:   true,
	StatusRouted:     true,
	StatusNurtured:   true,
	StatusReplied:    true,
	StatusConverted:  true,
	StatusSuppressed: true,
	StatusLost:       true,
}

// IsTerminal returns true if no automated stage may act on the status.
func IsTerminal(status Status) bool {
	return terminalStatuses[status]
}

// IsKnownStatus reports whether the status is part of the lifecycle.
func IsKnownStatus(status Status) bool {
	return knownStatuses[status]
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to Status) bool {
	if !knownStatuses[from] || !knownStatuses[to] {
		return false
	}
	if terminalStatuses[from] {
		return false
	}
	// Unsubscribe/bounce and disqualification are reachable from any
	// non-terminal state.
	if to == StatusSuppressed || to == StatusRejected || to == StatusLost {
		return true
	}
	for _, next := range forwardEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionRecord is one audit row of a lead's status history.
type TransitionRecord struct {
	FromStatus Status `json:"fromStatus"`
	ToStatus   Status `json:"toStatus"`
	Reason     string `json:"reason"`
}

// Transition applies a status change to the lead after validating the edge
// against the lifecycle table. It returns the audit record for persistence.
// Callers must not coerce an invalid edge; the error names the rejected pair.
func Transition(lead *Lead, to Status, reason string) (TransitionRecord, error) {
	from := lead.Status
	if !CanTransition(from, to) {
		return TransitionRecord{}, apperr.InvalidTransition(string(from), string(to))
	}

	lead.Status = to
	return TransitionRecord{FromStatus: from, ToStatus: to, Reason: reason}, nil
}
