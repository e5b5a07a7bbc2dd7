package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"cam_backend/internal/campaigns"
	"cam_backend/internal/leads/domain"
	"cam_backend/internal/leads/repository"
	"cam_backend/internal/review"
	"cam_backend/platform/events"
	"cam_backend/platform/logger"
)

// Local parts treated as role accounts rather than people.
var roleAccountLocalParts = map[string]struct{}{
	"admin": {}, "billing": {}, "contact": {}, "hello": {}, "help": {},
	"info": {}, "mail": {}, "noreply": {}, "no-reply": {}, "office": {},
	"sales": {}, "support": {}, "team": {}, "webmaster": {},
}

// Free mailbox providers rejected unless the campaign allows them.
var freeEmailDomains = map[string]struct{}{
	"gmail.com": {}, "googlemail.com": {}, "yahoo.com": {}, "hotmail.com": {},
	"outlook.com": {}, "live.com": {}, "aol.com": {}, "icloud.com": {},
	"gmx.com": {}, "mail.com": {}, "proton.me": {}, "protonmail.com": {},
}

// SuppressionChecker reports whether an address must never be contacted.
type SuppressionChecker interface {
	IsSuppressed(ctx context.Context, email string) (bool, error)
}

// ReviewFlagger is the slice of the review gate the qualifier uses.
type ReviewFlagger interface {
	Flag(ctx context.Context, leadID uuid.UUID, reviewType, reason string) (review.Task, error)
}

// Qualifier applies the campaign's rule chain to scored leads. A failed rule
// rejects with a recorded reason; a score inside the manual band flags for
// human review instead and leaves the lead SCORED.
type Qualifier struct {
	leads       repository.Store
	suppression SuppressionChecker
	reviews     ReviewFlagger
	bus         events.Bus
	log         *logger.Logger
}

// NewQualifier creates the qualify stage. suppression may be nil.
func NewQualifier(leads repository.Store, suppression SuppressionChecker, reviews ReviewFlagger, bus events.Bus, log *logger.Logger) *Qualifier {
	return &Qualifier{leads: leads, suppression: suppression, reviews: reviews, bus: bus, log: log}
}

func (q *Qualifier) JobType() string { return JobQualify }

func (q *Qualifier) BatchStatuses() []domain.Status {
	return []domain.Status{domain.StatusScored}
}

func (q *Qualifier) Process(ctx context.Context, batch []domain.Lead, campaign campaigns.Campaign) Result {
	var result Result

	rules := campaign.Qualification
	if rules == (campaigns.QualificationRules{}) {
		rules = campaigns.DefaultQualificationRules()
	}

	for _, lead := range batch {
		if lead.RequiresHumanReview {
			// Already awaiting an operator; untouched until resolved.
			result.Deferred++
			continue
		}

		outcome, err := q.qualify(ctx, lead, rules)
		if err != nil {
			result.recordError(lead.ID, err)
			continue
		}
		switch outcome {
		case outcomeDeferred:
			result.Deferred++
		default:
			result.Updated++
		}
	}
	return result
}

type qualifyOutcome int

const (
	outcomeAdvanced qualifyOutcome = iota
	outcomeDeferred
)

func (q *Qualifier) qualify(ctx context.Context, lead domain.Lead, rules campaigns.QualificationRules) (qualifyOutcome, error) {
	if reason, err := q.failedRule(ctx, lead, rules); err != nil {
		return outcomeAdvanced, err
	} else if reason != "" {
		// Ambiguous scores go to a human instead of the reject bin.
		if lead.Score >= rules.ManualBandLow && lead.Score < rules.ManualBandHigh {
			if _, err := q.reviews.Flag(ctx, lead.ID, domain.ReviewTypeAction, "manual band: "+reason); err != nil {
				return outcomeAdvanced, err
			}
			return outcomeDeferred, nil
		}
		return outcomeAdvanced, q.transition(ctx, lead, domain.StatusRejected, reason)
	}

	return outcomeAdvanced, q.transition(ctx, lead, domain.StatusQualified, "passed qualification rules")
}

// failedRule returns the first failed rule's reason, empty when all pass.
func (q *Qualifier) failedRule(ctx context.Context, lead domain.Lead, rules campaigns.QualificationRules) (string, error) {
	if lead.ICPFit < rules.MinICPFit {
		return fmt.Sprintf("icp fit %.2f below campaign minimum %.2f", lead.ICPFit, rules.MinICPFit), nil
	}

	if lead.Email == "" {
		return "no deliverable email address", nil
	}
	local, emailDomain, ok := splitEmail(lead.Email)
	if !ok {
		return "malformed email address", nil
	}
	if _, role := roleAccountLocalParts[local]; role {
		return "role account address", nil
	}
	if !rules.AllowFreeDomains {
		if _, free := freeEmailDomains[emailDomain]; free {
			return "free email domain not allowed", nil
		}
	}
	if q.suppression != nil {
		suppressed, err := q.suppression.IsSuppressed(ctx, lead.Email)
		if err != nil {
			return "", err
		}
		if suppressed {
			return "address on suppression list", nil
		}
	}

	if rules.RequireIntent && !lead.HasIntent() {
		return "no intent signal present", nil
	}
	return "", nil
}

func (q *Qualifier) transition(ctx context.Context, lead domain.Lead, to domain.Status, reason string) error {
	_, err := applyTransition(ctx, q.leads, q.bus, q.log, lead, to, reason)
	return err
}

func splitEmail(email string) (local, domainPart string, ok bool) {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", "", false
	}
	return strings.ToLower(email[:at]), strings.ToLower(email[at+1:]), true
}

var _ Processor = (*Qualifier)(nil)
