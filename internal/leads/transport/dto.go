// Package transport defines the request and response shapes of the leads API.
package transport

import (
	"github.com/google/uuid"

	"cam_backend/internal/leads/domain"
)

// CreateLeadRequest enqueues one manually entered lead for the next harvest
// run. Dedup and normalization happen at ingestion, not here.
type CreateLeadRequest struct {
	Email         string   `json:"email" validate:"required,email"`
	Phone         string   `json:"phone" validate:"max=40"`
	FirstName     string   `json:"firstName" validate:"max=100"`
	LastName      string   `json:"lastName" validate:"max=100"`
	Company       string   `json:"company" validate:"max=200"`
	CompanyDomain string   `json:"companyDomain" validate:"omitempty,fqdn"`
	CompanySize   int      `json:"companySize" validate:"min=0"`
	Industry      string   `json:"industry" validate:"max=100"`
	Seniority     string   `json:"seniority" validate:"max=100"`
	IntentSignals []string `json:"intentSignals" validate:"max=20"`
}

// ToLead converts the request into an unsaved lead record.
func (r CreateLeadRequest) ToLead(campaignID uuid.UUID) domain.Lead {
	return domain.Lead{
		CampaignID:    campaignID,
		Email:         r.Email,
		Phone:         r.Phone,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Company:       r.Company,
		CompanyDomain: r.CompanyDomain,
		CompanySize:   r.CompanySize,
		Industry:      r.Industry,
		Seniority:     r.Seniority,
		IntentSignals: r.IntentSignals,
	}
}

// EnqueueResponse reports the manual queue depth after an enqueue.
type EnqueueResponse struct {
	CampaignID uuid.UUID `json:"campaignId"`
	Queued     int       `json:"queued"`
	Source     string    `json:"source"`
}

// ListLeadsQuery filters the per-campaign lead listing.
type ListLeadsQuery struct {
	Status string `form:"status"`
	Limit  int    `form:"limit"`
}
