package sources

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"cam_backend/internal/campaigns"
	"cam_backend/internal/leads/domain"
	"cam_backend/internal/leads/ports"
)

// ManualSource is an in-process queue of operator-submitted leads, filled via
// the API and drained by the next harvest run for the matching campaign.
type ManualSource struct {
	mu     sync.Mutex
	queued map[uuid.UUID][]domain.Lead
}

func NewManualSource() *ManualSource {
	return &ManualSource{queued: make(map[uuid.UUID][]domain.Lead)}
}

// Enqueue adds a candidate lead for the campaign's next harvest.
func (s *ManualSource) Enqueue(campaignID uuid.UUID, lead domain.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued[campaignID] = append(s.queued[campaignID], lead)
}

// Pending reports how many leads are queued for a campaign.
func (s *ManualSource) Pending(campaignID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queued[campaignID])
}

func (s *ManualSource) Name() string { return "manual" }

func (s *ManualSource) IsConfigured() bool { return true }

func (s *ManualSource) FetchNewLeads(_ context.Context, campaign campaigns.Campaign, maxLeads int) ([]domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	queued := s.queued[campaign.ID]
	if len(queued) == 0 {
		return nil, nil
	}

	take := maxLeads
	if take > len(queued) {
		take = len(queued)
	}
	batch := make([]domain.Lead, take)
	copy(batch, queued[:take])

	rest := queued[take:]
	if len(rest) == 0 {
		delete(s.queued, campaign.ID)
	} else {
		s.queued[campaign.ID] = rest
	}
	return batch, nil
}

var _ ports.LeadSource = (*ManualSource)(nil)
