// Package enrichment provides the HTTP enrichment provider adapter: firmographic
// lookup by email domain and deliverability verification.
package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cam_backend/internal/leads/domain"
	"cam_backend/internal/leads/ports"
	"cam_backend/platform/config"
	"cam_backend/platform/logger"
	"cam_backend/platform/retry"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	providerAttempts   = 3
	providerBaseDelay  = 200 * time.Millisecond
)

// Client talks to the enrichment provider.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	log        *logger.Logger
}

// New creates the enrichment client from the provider configuration.
func New(cfg config.EnrichmentConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		baseURL:    strings.TrimRight(cfg.GetEnrichmentAPIURL(), "/"),
		apiKey:     cfg.GetEnrichmentAPIKey(),
		log:        log,
	}
}

// enrichResponse is the provider's firmographic payload. Absent fields never
// overwrite values already present on the lead.
type enrichResponse struct {
	Company       string   `json:"company"`
	CompanyDomain string   `json:"companyDomain"`
	CompanySize   int      `json:"companySize"`
	Industry      string   `json:"industry"`
	Seniority     string   `json:"seniority"`
	IntentSignals []string `json:"intentSignals"`
}

type verifyResponse struct {
	Deliverable bool `json:"deliverable"`
}

// Enrich fills missing firmographic attributes from the provider. Provider
// failure returns the lead unchanged so a flaky provider degrades enrichment
// quality, not pipeline throughput.
func (c *Client) Enrich(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	if lead.Email == "" && lead.CompanyDomain == "" {
		return lead, nil
	}

	params := url.Values{}
	params.Set("email", lead.Email)
	params.Set("domain", lead.CompanyDomain)

	var payload enrichResponse
	err := retry.Do(ctx, providerAttempts, providerBaseDelay, func() error {
		return c.getJSON(ctx, "/v1/enrich", params, &payload)
	})
	if err != nil {
		c.log.Warn("enrichment provider unavailable", "lead_id", lead.ID, "error", err)
		return lead, nil
	}

	if lead.Company == "" {
		lead.Company = payload.Company
	}
	if lead.CompanyDomain == "" {
		lead.CompanyDomain = payload.CompanyDomain
	}
	if lead.CompanySize == 0 {
		lead.CompanySize = payload.CompanySize
	}
	if lead.Industry == "" {
		lead.Industry = payload.Industry
	}
	if lead.Seniority == "" {
		lead.Seniority = payload.Seniority
	}
	lead.IntentSignals = mergeSignals(lead.IntentSignals, payload.IntentSignals)
	return lead, nil
}

// Verify checks deliverability of an address with the provider.
func (c *Client) Verify(ctx context.Context, email string) (bool, error) {
	if email == "" {
		return false, nil
	}

	params := url.Values{}
	params.Set("email", email)

	var payload verifyResponse
	err := retry.Do(ctx, providerAttempts, providerBaseDelay, func() error {
		return c.getJSON(ctx, "/v1/verify", params, &payload)
	})
	if err != nil {
		return false, fmt.Errorf("verify %s: %w", email, err)
	}
	return payload.Deliverable, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func mergeSignals(existing, found []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, signal := range existing {
		seen[signal] = struct{}{}
	}
	for _, signal := range found {
		if _, ok := seen[signal]; ok || signal == "" {
			continue
		}
		existing = append(existing, signal)
		seen[signal] = struct{}{}
	}
	return existing
}

var (
	_ ports.Enricher      = (*Client)(nil)
	_ ports.EmailVerifier = (*Client)(nil)
)
