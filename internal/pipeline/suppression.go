package pipeline

import (
	"context"

	"cam_backend/internal/leads/domain"
	"cam_backend/internal/leads/repository"
)

// StoreSuppression treats any address that ever reached SUPPRESSED, in any
// campaign, as permanently uncontactable. Unsubscribes and bounces therefore
// propagate to every future harvest of the same address.
type StoreSuppression struct {
	leads repository.LeadReader
}

// NewStoreSuppression creates the repository-backed suppression check.
func NewStoreSuppression(leads repository.LeadReader) *StoreSuppression {
	return &StoreSuppression{leads: leads}
}

func (s *StoreSuppression) IsSuppressed(ctx context.Context, email string) (bool, error) {
	normalized := domain.NormalizeEmail(email)
	if normalized == "" {
		return false, nil
	}

	matches, err := s.leads.FindByEmail(ctx, normalized)
	if err != nil {
		return false, err
	}
	for _, lead := range matches {
		if lead.Status == domain.StatusSuppressed {
			return true, nil
		}
	}
	return false, nil
}

var _ SuppressionChecker = (*StoreSuppression)(nil)
