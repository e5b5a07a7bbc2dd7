package enrichment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"cam_backend/internal/leads/domain"
	"cam_backend/platform/logger"
)

type staticEnrichmentConfig struct {
	url string
}

func (c staticEnrichmentConfig) GetEnrichmentAPIURL() string { return c.url }
func (c staticEnrichmentConfig) GetEnrichmentAPIKey() string { return "test-key" }
func (c staticEnrichmentConfig) IsEnrichmentEnabled() bool   { return c.url != "" }

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(staticEnrichmentConfig{url: server.URL}, logger.New("test"))
}

func TestEnrichFillsMissingFieldsOnly(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"company": "Corp A",
			"companyDomain": "corp-a.com",
			"companySize": 250,
			"industry": "fintech",
			"seniority": "vp",
			"intentSignals": ["hiring", "funding_round"]
		}`))
	})

	lead := domain.Lead{
		Email:         "jane@corp-a.com",
		Company:       "Already Known BV",
		IntentSignals: []string{"hiring"},
	}
	enriched, err := client.Enrich(context.Background(), lead)
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}

	if enriched.Company != "Already Known BV" {
		t.Fatalf("company overwritten to %q", enriched.Company)
	}
	if enriched.CompanyDomain != "corp-a.com" || enriched.CompanySize != 250 || enriched.Industry != "fintech" {
		t.Fatalf("missing fields not filled: %+v", enriched)
	}
	if len(enriched.IntentSignals) != 2 {
		t.Fatalf("intent signals = %v, want deduplicated merge of 2", enriched.IntentSignals)
	}
}

func TestEnrichProviderFailureReturnsLeadUnchanged(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	lead := domain.Lead{Email: "jane@corp-a.com", Company: "Corp A"}
	enriched, err := client.Enrich(context.Background(), lead)
	if err != nil {
		t.Fatalf("provider failure must not error into the pipeline: %v", err)
	}
	if enriched.Company != lead.Company || enriched.Email != lead.Email {
		t.Fatalf("lead changed on provider failure: %+v", enriched)
	}
}

func TestVerify(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("email") == "good@corp-a.com" {
			w.Write([]byte(`{"deliverable": true}`))
			return
		}
		w.Write([]byte(`{"deliverable": false}`))
	})

	ok, err := client.Verify(context.Background(), "good@corp-a.com")
	if err != nil || !ok {
		t.Fatalf("Verify(good) = %v, %v", ok, err)
	}
	ok, err = client.Verify(context.Background(), "bad@corp-a.com")
	if err != nil || ok {
		t.Fatalf("Verify(bad) = %v, %v", ok, err)
	}
	if ok, _ := client.Verify(context.Background(), ""); ok {
		t.Fatal("empty address must verify false")
	}
}
