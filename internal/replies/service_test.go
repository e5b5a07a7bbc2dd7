package replies

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"cam_backend/internal/leads/domain"
	"cam_backend/internal/leads/ports"
	"cam_backend/internal/leads/repository"
	"cam_backend/platform/logger"
)

type fakeReplySource struct {
	replies   []ports.ReplyEvent
	lastSince time.Time
}

func (f *fakeReplySource) FetchNewReplies(_ context.Context, since time.Time) ([]ports.ReplyEvent, error) {
	f.lastSince = since
	var fresh []ports.ReplyEvent
	for _, reply := range f.replies {
		if reply.ReceivedAt.After(since) {
			fresh = append(fresh, reply)
		}
	}
	return fresh, nil
}

func seedLead(t *testing.T, store *repository.MemoryStore, status domain.Status, email string) domain.Lead {
	t.Helper()
	lead, err := store.Insert(context.Background(), domain.Lead{
		CampaignID: uuid.New(),
		DedupKey:   "email:" + email,
		Email:      email,
		Status:     status,
	})
	if err != nil {
		t.Fatalf("seed lead: %v", err)
	}
	return lead
}

func newIngestor(store *repository.MemoryStore, source ports.ReplySource) *Ingestor {
	return NewIngestor(source, KeywordClassifier{}, store, nil, logger.New("test"))
}

func TestIngestPositiveReplyAdvancesNurturedLead(t *testing.T) {
	store := repository.NewMemoryStore()
	lead := seedLead(t, store, domain.StatusNurtured, "jane@corp-a.com")
	source := &fakeReplySource{replies: []ports.ReplyEvent{{
		LeadEmail:  "Jane@Corp-A.com",
		Subject:    "Re: quick question",
		Body:       "Sounds good, let's talk next week",
		ReceivedAt: time.Now(),
	}}}

	report, err := newIngestor(store, source).Ingest(context.Background())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.Matched != 1 || report.Unmatched != 0 {
		t.Fatalf("report = %+v", report)
	}

	updated, _ := store.GetByID(context.Background(), lead.ID)
	if updated.Status != domain.StatusReplied {
		t.Fatalf("status = %s, want REPLIED", updated.Status)
	}

	transitions := store.Transitions(lead.ID)
	if len(transitions) != 1 || transitions[0].ToStatus != domain.StatusReplied {
		t.Fatalf("transitions = %+v", transitions)
	}

	engagement, _ := store.ListEngagement(context.Background(), lead.ID)
	if len(engagement) != 1 || engagement[0].Type != domain.EngagementReplyReceived {
		t.Fatalf("engagement = %+v", engagement)
	}
	if engagement[0].Metadata["classification"] != ports.ReplyPositive {
		t.Fatalf("classification metadata = %q", engagement[0].Metadata["classification"])
	}
}

func TestIngestUnsubscribeSuppressesFromAnyState(t *testing.T) {
	store := repository.NewMemoryStore()
	lead := seedLead(t, store, domain.StatusRouted, "bob@corp-b.com")
	source := &fakeReplySource{replies: []ports.ReplyEvent{{
		LeadEmail:  "bob@corp-b.com",
		Subject:    "stop",
		Body:       "Please remove me from your list",
		ReceivedAt: time.Now(),
	}}}

	if _, err := newIngestor(store, source).Ingest(context.Background()); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	updated, _ := store.GetByID(context.Background(), lead.ID)
	if updated.Status != domain.StatusSuppressed {
		t.Fatalf("status = %s, want SUPPRESSED", updated.Status)
	}
}

func TestIngestPositiveReplyOnEarlyLeadOnlyLogsEngagement(t *testing.T) {
	store := repository.NewMemoryStore()
	lead := seedLead(t, store, domain.StatusScored, "eve@corp-c.com")
	source := &fakeReplySource{replies: []ports.ReplyEvent{{
		LeadEmail:  "eve@corp-c.com",
		Subject:    "Re:",
		Body:       "I'm interested, tell me more",
		ReceivedAt: time.Now(),
	}}}

	if _, err := newIngestor(store, source).Ingest(context.Background()); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	updated, _ := store.GetByID(context.Background(), lead.ID)
	if updated.Status != domain.StatusScored {
		t.Fatalf("status = %s, want unchanged SCORED", updated.Status)
	}
	engagement, _ := store.ListEngagement(context.Background(), lead.ID)
	if len(engagement) != 1 {
		t.Fatalf("engagement = %+v, reply must still be recorded", engagement)
	}
}

func TestIngestUnknownSenderIsUnmatched(t *testing.T) {
	store := repository.NewMemoryStore()
	source := &fakeReplySource{replies: []ports.ReplyEvent{{
		LeadEmail:  "stranger@nowhere.com",
		Subject:    "hello",
		Body:       "interested",
		ReceivedAt: time.Now(),
	}}}

	report, err := newIngestor(store, source).Ingest(context.Background())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.Unmatched != 1 || report.Matched != 0 {
		t.Fatalf("report = %+v", report)
	}
}

func TestIngestAdvancesSinceWatermark(t *testing.T) {
	store := repository.NewMemoryStore()
	seedLead(t, store, domain.StatusNurtured, "jane@corp-a.com")
	receivedAt := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	source := &fakeReplySource{replies: []ports.ReplyEvent{{
		LeadEmail:  "jane@corp-a.com",
		Subject:    "Re:",
		Body:       "sounds good",
		ReceivedAt: receivedAt,
	}}}

	ingestor := newIngestor(store, source)
	ingestor.now = func() time.Time { return receivedAt.Add(time.Hour) }

	first, _ := ingestor.Ingest(context.Background())
	if first.Fetched != 1 {
		t.Fatalf("first fetch = %+v", first)
	}

	// The second pass resumes from the newest reply; nothing is re-fetched.
	second, _ := ingestor.Ingest(context.Background())
	if second.Fetched != 0 {
		t.Fatalf("second fetch = %+v, want 0", second)
	}
	if !source.lastSince.Equal(receivedAt) {
		t.Fatalf("since = %v, want %v", source.lastSince, receivedAt)
	}
}
