package replies

import (
	"context"
	"sync"
	"time"

	camevents "cam_backend/internal/events"
	"cam_backend/internal/leads/domain"
	"cam_backend/internal/leads/ports"
	"cam_backend/internal/leads/repository"
	"cam_backend/platform/events"
	"cam_backend/platform/logger"
)

// Ingestor polls the reply source, classifies each message, and applies the
// resulting lifecycle transitions: POSITIVE advances a nurtured lead to
// REPLIED, UNSUBSCRIBE and BOUNCE suppress from any non-terminal state.
// Every matched reply lands in the engagement log regardless of transition.
type Ingestor struct {
	source     ports.ReplySource
	classifier ports.ReplyClassifier
	leads      repository.Store
	bus        events.Bus
	log        *logger.Logger

	mu       sync.Mutex
	lastSync time.Time
	now      func() time.Time
}

// IngestReport summarizes one ingest pass.
type IngestReport struct {
	Fetched   int `json:"fetched"`
	Matched   int `json:"matched"`
	Unmatched int `json:"unmatched"`
}

// NewIngestor creates the reply ingest service. The first pass looks back 24
// hours; later passes resume from the newest reply seen.
func NewIngestor(source ports.ReplySource, classifier ports.ReplyClassifier, leads repository.Store, bus events.Bus, log *logger.Logger) *Ingestor {
	return &Ingestor{
		source:     source,
		classifier: classifier,
		leads:      leads,
		bus:        bus,
		log:        log,
		now:        time.Now,
	}
}

// Run polls the source on the given interval until the context is cancelled.
func (s *Ingestor) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("reply ingest started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			s.log.Info("reply ingest stopped")
			return
		case <-ticker.C:
			if _, err := s.Ingest(ctx); err != nil {
				s.log.Error("reply ingest pass failed", "error", err)
			}
		}
	}
}

// Ingest runs one fetch-classify-apply pass.
func (s *Ingestor) Ingest(ctx context.Context) (IngestReport, error) {
	s.mu.Lock()
	since := s.lastSync
	if since.IsZero() {
		since = s.now().Add(-24 * time.Hour)
	}
	s.mu.Unlock()

	fetched, err := s.source.FetchNewReplies(ctx, since)
	if err != nil {
		return IngestReport{}, err
	}

	report := IngestReport{Fetched: len(fetched)}
	newest := since
	for _, reply := range fetched {
		if s.handleReply(ctx, reply) {
			report.Matched++
		} else {
			report.Unmatched++
		}
		if reply.ReceivedAt.After(newest) {
			newest = reply.ReceivedAt
		}
	}

	s.mu.Lock()
	if newest.After(s.lastSync) {
		s.lastSync = newest
	}
	s.mu.Unlock()
	return report, nil
}

// handleReply reports whether the reply matched at least one lead.
func (s *Ingestor) handleReply(ctx context.Context, reply ports.ReplyEvent) bool {
	email := domain.NormalizeEmail(reply.LeadEmail)
	if email == "" {
		return false
	}

	classification := reply.Classification
	if classification == "" {
		var err error
		classification, err = s.classifier.Classify(ctx, reply.Subject, reply.Body)
		if err != nil {
			s.log.Warn("reply classification failed", "email", email, "error", err)
			classification = ports.ReplyNeutral
		}
	}

	leads, err := s.leads.FindByEmail(ctx, email)
	if err != nil {
		s.log.Error("failed to look up reply sender", "email", email, "error", err)
		return false
	}
	if len(leads) == 0 {
		s.log.Info("reply from unknown sender", "email", email, "classification", classification)
		return false
	}

	for _, lead := range leads {
		s.applyReply(ctx, lead, reply, classification)
	}
	return true
}

func (s *Ingestor) applyReply(ctx context.Context, lead domain.Lead, reply ports.ReplyEvent, classification string) {
	if target, reason, ok := transitionFor(classification); ok && !domain.IsTerminal(lead.Status) {
		record, err := domain.Transition(&lead, target, reason)
		if err != nil {
			// A positive reply on a lead that is not yet nurtured stays
			// where it is; the reply itself is still recorded below.
			s.log.Info("reply leaves lead status unchanged", "lead_id", lead.ID, "status", lead.Status, "classification", classification)
		} else if _, err := s.leads.ApplyTransition(ctx, lead, record); err != nil {
			s.log.Error("failed to apply reply transition", "lead_id", lead.ID, "error", err)
			return
		} else {
			s.log.LeadTransition(lead.ID.String(), string(record.FromStatus), string(record.ToStatus), reason)
			if s.bus != nil {
				s.bus.Publish(ctx, camevents.LeadTransitioned{
					BaseEvent:  events.NewBaseEvent(),
					LeadID:     lead.ID,
					CampaignID: lead.CampaignID,
					FromStatus: record.FromStatus,
					ToStatus:   record.ToStatus,
					Reason:     reason,
				})
			}
		}
	}

	err := s.leads.AppendEngagement(ctx, domain.EngagementEvent{
		LeadID: lead.ID,
		Type:   domain.EngagementReplyReceived,
		Metadata: map[string]string{
			"classification": classification,
			"subject":        reply.Subject,
		},
	})
	if err != nil {
		s.log.Warn("failed to append engagement event", "lead_id", lead.ID, "error", err)
	}

	if s.bus != nil {
		s.bus.Publish(ctx, camevents.ReplyReceived{
			BaseEvent:      events.NewBaseEvent(),
			LeadID:         lead.ID,
			CampaignID:     lead.CampaignID,
			Classification: classification,
		})
	}
}

func transitionFor(classification string) (domain.Status, string, bool) {
	switch classification {
	case ports.ReplyPositive:
		return domain.StatusReplied, "positive reply received", true
	case ports.ReplyUnsubscribe:
		return domain.StatusSuppressed, "unsubscribe request", true
	case ports.ReplyBounce:
		return domain.StatusSuppressed, "delivery bounce", true
	}
	return "", "", false
}
