// Package campaigns provides the campaign bounded context: the configuration
// scope under which leads are harvested, scored, capped, and nurtured.
package campaigns

import (
	"time"

	"github.com/google/uuid"
)

// Outbound channels a campaign may use.
const (
	ChannelEmail  = "email"
	ChannelSocial = "social"
)

// ChannelCap configures the safety caps for one outbound channel.
// A zero cap disables the corresponding window check.
type ChannelCap struct {
	DailyCap  int `json:"dailyCap"`
	HourlyCap int `json:"hourlyCap"`
}

// TargetProfile describes the ideal customer profile a campaign is tuned for.
type TargetProfile struct {
	Industries     []string `json:"industries"`
	CompanySizeMin int      `json:"companySizeMin"`
	CompanySizeMax int      `json:"companySizeMax"`
	Seniorities    []string `json:"seniorities"`
	IntentSignals  []string `json:"intentSignals"`
}

// QualificationRules configures the qualifier rule chain.
type QualificationRules struct {
	MinICPFit        float64 `json:"minIcpFit"`
	RequireIntent    bool    `json:"requireIntent"`
	AllowFreeDomains bool    `json:"allowFreeDomains"`
	// Leads scoring inside [ManualBandLow, ManualBandHigh) are flagged for
	// human review instead of being auto-rejected.
	ManualBandLow  float64 `json:"manualBandLow"`
	ManualBandHigh float64 `json:"manualBandHigh"`
}

// TargetMetrics holds the campaign's business goals, surfaced on the dashboard.
type TargetMetrics struct {
	TargetClients int   `json:"targetClients"`
	TargetMRR     int64 `json:"targetMrr"`
}

// Campaign is the scope for leads, safety counters, and job executions.
type Campaign struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Niche  string    `json:"niche"`
	Active bool      `json:"active"`
	Paused bool      `json:"paused"`
	Killed bool      `json:"killed"`

	Channels      []string              `json:"channels"`
	ChannelCaps   map[string]ChannelCap `json:"channelCaps"`
	Target        TargetProfile         `json:"target"`
	Qualification QualificationRules    `json:"qualification"`
	Metrics       TargetMetrics         `json:"metrics"`

	// MaxLeadsPerHarvest bounds one harvester run for this campaign.
	MaxLeadsPerHarvest int `json:"maxLeadsPerHarvest"`
	// PhoneRegion is the default region for phone normalization.
	PhoneRegion string `json:"phoneRegion"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AcceptsAutomation reports whether automated stages may start new work for
// this campaign. Checked before every execution and before every reservation.
func (c Campaign) AcceptsAutomation() bool {
	return c.Active && !c.Paused && !c.Killed
}

// CapFor returns the configured cap for a channel, zero-valued when unset.
func (c Campaign) CapFor(channel string) ChannelCap {
	if c.ChannelCaps == nil {
		return ChannelCap{}
	}
	return c.ChannelCaps[channel]
}

// DefaultQualificationRules are applied when a campaign omits its own rules.
func DefaultQualificationRules() QualificationRules {
	return QualificationRules{
		MinICPFit:      0.5,
		ManualBandLow:  0.4,
		ManualBandHigh: 0.5,
	}
}
