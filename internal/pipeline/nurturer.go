package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cam_backend/internal/campaigns"
	camevents "cam_backend/internal/events"
	"cam_backend/internal/leads/domain"
	"cam_backend/internal/leads/ports"
	"cam_backend/internal/leads/repository"
	"cam_backend/internal/safety"
	"cam_backend/platform/apperr"
	"cam_backend/platform/events"
	"cam_backend/platform/logger"
)

// Nurturer walks ROUTED and NURTURED leads through their assigned sequence.
// A step goes out only when it is due and the safety limiter grants the
// reservation; a cap veto defers the lead to the next cycle unchanged.
// An exhausted sequence leaves the lead NURTURED for manual follow-up.
type Nurturer struct {
	leads     repository.Store
	sequences *SequenceSet
	limiter   safety.Limiter
	senders   map[string]ports.OutreachSender
	renderer  MessageRenderer
	bus       events.Bus
	log       *logger.Logger
	now       func() time.Time
}

// NewNurturer creates the nurture stage. senders maps channel names to their
// adapters; a step whose channel has no sender is a per-record error.
func NewNurturer(leads repository.Store, sequences *SequenceSet, limiter safety.Limiter, senders map[string]ports.OutreachSender, renderer MessageRenderer, bus events.Bus, log *logger.Logger) *Nurturer {
	return &Nurturer{
		leads:     leads,
		sequences: sequences,
		limiter:   limiter,
		senders:   senders,
		renderer:  renderer,
		bus:       bus,
		log:       log,
		now:       time.Now,
	}
}

func (n *Nurturer) JobType() string { return JobNurture }

func (n *Nurturer) BatchStatuses() []domain.Status {
	return []domain.Status{domain.StatusRouted, domain.StatusNurtured}
}

func (n *Nurturer) Process(ctx context.Context, batch []domain.Lead, campaign campaigns.Campaign) Result {
	var result Result

	for _, lead := range batch {
		if lead.RequiresHumanReview {
			result.Deferred++
			continue
		}

		sent, err := n.advance(ctx, lead, campaign)
		switch {
		case apperr.Is(err, apperr.KindCapExceeded):
			result.Deferred++
		case err != nil:
			result.recordError(lead.ID, err)
		case sent:
			result.Updated++
		}
	}
	return result
}

// advance sends the lead's next due step, if any. A safety cap veto comes
// back as an apperr.KindCapExceeded error so callers can tell a deferral
// from a real failure.
func (n *Nurturer) advance(ctx context.Context, lead domain.Lead, campaign campaigns.Campaign) (bool, error) {
	if lead.RoutingSequence == nil || lead.SequenceStartAt == nil {
		return false, fmt.Errorf("lead in %s without an assigned sequence", lead.Status)
	}
	sequence, ok := n.sequences.ByID(*lead.RoutingSequence)
	if !ok {
		return false, fmt.Errorf("unknown sequence %q", *lead.RoutingSequence)
	}

	if sequence.Exhausted(lead.SequenceStep) {
		// Terminal by exhaustion; surfaced on the dashboard, never auto-lost.
		return false, nil
	}

	now := n.now().UTC()
	if now.Before(sequence.DueAt(*lead.SequenceStartAt, lead.SequenceStep)) {
		return false, nil
	}

	step := sequence.Steps[lead.SequenceStep]
	sender, ok := n.senders[step.Channel]
	if !ok {
		return false, fmt.Errorf("no sender configured for channel %q", step.Channel)
	}

	decision, err := n.limiter.Reserve(ctx, campaign.ID, step.Channel, campaign.CapFor(step.Channel))
	if err != nil {
		return false, err
	}
	if !decision.Granted {
		n.log.CapExceeded(campaign.ID.String(), step.Channel, decision.Window)
		n.publishCapExceeded(ctx, campaign.ID, step.Channel, decision.Window)
		return false, apperr.CapExceeded(fmt.Sprintf("%s cap reached, %s window full", step.Channel, decision.Window))
	}

	// The reservation is consumed from here on, send failure included;
	// the limiter stays conservative.
	subject, err := RenderSubject(step.Subject, lead)
	if err != nil {
		return false, err
	}
	body, err := n.renderer.Render(step.Template, lead)
	if err != nil {
		return false, err
	}

	sendResult, err := sender.Send(ctx, lead, subject, body)
	if err != nil {
		return false, fmt.Errorf("send step %d via %s: %w", lead.SequenceStep, step.Channel, err)
	}

	return true, n.recordStep(ctx, lead, step, sendResult)
}

// recordStep persists the advanced step counter, the engagement event, and
// the ROUTED to NURTURED transition on the first send.
func (n *Nurturer) recordStep(ctx context.Context, lead domain.Lead, step Step, sendResult ports.SendResult) error {
	now := n.now().UTC()
	sentStep := lead.SequenceStep
	lead.SequenceStep++
	lead.AttemptCount++
	lead.LastActionAt = &now

	if lead.Status == domain.StatusRouted {
		if _, err := applyTransition(ctx, n.leads, n.bus, n.log, lead, domain.StatusNurtured, "first sequence step sent"); err != nil {
			return err
		}
	} else {
		if _, err := n.leads.Save(ctx, lead); err != nil {
			return err
		}
	}

	err := n.leads.AppendEngagement(ctx, domain.EngagementEvent{
		LeadID: lead.ID,
		Type:   domain.EngagementOutreachSent,
		Metadata: map[string]string{
			"channel":             step.Channel,
			"step":                fmt.Sprintf("%d", sentStep),
			"template":            step.Template,
			"provider_message_id": sendResult.ProviderMessageID,
		},
	})
	if err != nil {
		n.log.Warn("failed to append outreach engagement event", "lead_id", lead.ID, "error", err)
	}
	return nil
}

func (n *Nurturer) publishCapExceeded(ctx context.Context, campaignID uuid.UUID, channel, window string) {
	if n.bus == nil {
		return
	}
	n.bus.Publish(ctx, camevents.CapExceeded{
		BaseEvent:  events.NewBaseEvent(),
		CampaignID: campaignID,
		Channel:    channel,
		Window:     window,
	})
}

var _ Processor = (*Nurturer)(nil)
