package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"cam_backend/internal/leads/domain"
)

// MemoryStore is an in-process Store for tests and local development. The
// mutex serializes all mutations, which preserves the compare-and-swap
// semantics of ApplyTransition without a database.
type MemoryStore struct {
	mu          sync.Mutex
	leads       map[uuid.UUID]domain.Lead
	transitions map[uuid.UUID][]domain.TransitionRecord
	engagement  map[uuid.UUID][]domain.EngagementEvent
}

// NewMemoryStore creates an empty in-memory lead store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		leads:       make(map[uuid.UUID]domain.Lead),
		transitions: make(map[uuid.UUID][]domain.TransitionRecord),
		engagement:  make(map[uuid.UUID][]domain.EngagementEvent),
	}
}

func (s *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.leads[id]
	if !ok {
		return domain.Lead{}, ErrNotFound
	}
	return lead, nil
}

func (s *MemoryStore) GetByDedupKey(_ context.Context, campaignID uuid.UUID, key string) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, lead := range s.leads {
		if lead.CampaignID == campaignID && lead.DedupKey == key {
			return lead, nil
		}
	}
	return domain.Lead{}, ErrNotFound
}

func (s *MemoryStore) ExistsByDedupKey(ctx context.Context, campaignID uuid.UUID, key string) (bool, error) {
	_, err := s.GetByDedupKey(ctx, campaignID, key)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) ([]domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var results []domain.Lead
	for _, lead := range s.leads {
		if lead.Email == email {
			results = append(results, lead)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].ID.String() < results[j].ID.String()
	})
	return results, nil
}

func (s *MemoryStore) QueryByStatus(_ context.Context, campaignID uuid.UUID, status domain.Status, limit int) ([]domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var results []domain.Lead
	for _, lead := range s.leads {
		if lead.CampaignID == campaignID && lead.Status == status {
			results = append(results, lead)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].ID.String() < results[j].ID.String()
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *MemoryStore) Insert(_ context.Context, lead domain.Lead) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.leads {
		if existing.CampaignID == lead.CampaignID && existing.DedupKey == lead.DedupKey {
			return domain.Lead{}, ErrDuplicateKey
		}
	}

	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	now := time.Now().UTC()
	lead.CreatedAt = now
	lead.UpdatedAt = now
	s.leads[lead.ID] = lead
	return lead, nil
}

func (s *MemoryStore) Save(_ context.Context, lead domain.Lead) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.leads[lead.ID]; !ok {
		return domain.Lead{}, ErrNotFound
	}
	lead.UpdatedAt = time.Now().UTC()
	s.leads[lead.ID] = lead
	return lead, nil
}

func (s *MemoryStore) ApplyTransition(_ context.Context, lead domain.Lead, record domain.TransitionRecord) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.leads[lead.ID]
	if !ok {
		return domain.Lead{}, ErrNotFound
	}
	if stored.Status != record.FromStatus {
		return domain.Lead{}, ErrStatusConflict
	}

	lead.UpdatedAt = time.Now().UTC()
	s.leads[lead.ID] = lead
	s.transitions[lead.ID] = append(s.transitions[lead.ID], record)
	return lead, nil
}

func (s *MemoryStore) SetReviewFlag(_ context.Context, id uuid.UUID, flagged bool, reviewType, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.leads[id]
	if !ok {
		return ErrNotFound
	}
	lead.RequiresHumanReview = flagged
	lead.ReviewType = reviewType
	lead.ReviewReason = reason
	lead.UpdatedAt = time.Now().UTC()
	s.leads[id] = lead
	return nil
}

func (s *MemoryStore) AppendEngagement(_ context.Context, event domain.EngagementEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	s.engagement[event.LeadID] = append(s.engagement[event.LeadID], event)
	return nil
}

func (s *MemoryStore) ListEngagement(_ context.Context, leadID uuid.UUID) ([]domain.EngagementEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.EngagementEvent(nil), s.engagement[leadID]...), nil
}

func (s *MemoryStore) CountByStatus(_ context.Context, campaignID uuid.UUID) (map[domain.Status]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[domain.Status]int)
	for _, lead := range s.leads {
		if lead.CampaignID == campaignID {
			counts[lead.Status]++
		}
	}
	return counts, nil
}

// Transitions returns the recorded audit rows for a lead, oldest first.
func (s *MemoryStore) Transitions(leadID uuid.UUID) []domain.TransitionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.TransitionRecord(nil), s.transitions[leadID]...)
}

var _ Store = (*MemoryStore)(nil)
