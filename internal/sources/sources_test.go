package sources

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"cam_backend/internal/campaigns"
	"cam_backend/internal/leads/domain"
)

func TestParseLeadCSV(t *testing.T) {
	input := strings.Join([]string{
		"email,first_name,last_name,company,company_domain,company_size,industry,seniority,intent_signals",
		"jane@corp-a.com,Jane,Doe,Corp A,corp-a.com,120,fintech,vp,hiring;funding_round",
		"bob@corp-b.com,Bob,,Corp B,corp-b.com,not-a-number,logistics,manager,",
	}, "\n")

	leads, err := ParseLeadCSV(strings.NewReader(input), 10)
	if err != nil {
		t.Fatalf("ParseLeadCSV: %v", err)
	}
	if len(leads) != 2 {
		t.Fatalf("parsed %d leads, want 2", len(leads))
	}

	jane := leads[0]
	if jane.Email != "jane@corp-a.com" || jane.CompanySize != 120 || jane.Seniority != "vp" {
		t.Fatalf("unexpected first lead: %+v", jane)
	}
	if len(jane.IntentSignals) != 2 || jane.IntentSignals[0] != "hiring" {
		t.Fatalf("intent signals = %v", jane.IntentSignals)
	}

	// An unparseable size column degrades to zero, never to an error.
	if leads[1].CompanySize != 0 {
		t.Fatalf("company size = %d, want 0", leads[1].CompanySize)
	}
}

func TestParseLeadCSVRespectsMaxLeads(t *testing.T) {
	input := "email\none@a.com\ntwo@b.com\nthree@c.com\n"
	leads, err := ParseLeadCSV(strings.NewReader(input), 2)
	if err != nil {
		t.Fatalf("ParseLeadCSV: %v", err)
	}
	if len(leads) != 2 {
		t.Fatalf("parsed %d leads, want 2", len(leads))
	}
}

func TestParseLeadCSVMissingHeader(t *testing.T) {
	if _, err := ParseLeadCSV(strings.NewReader(""), 10); err == nil {
		t.Fatal("empty input must fail on the header read")
	}
}

func TestManualSourceDrainsQueue(t *testing.T) {
	source := NewManualSource()
	campaign := campaigns.Campaign{ID: uuid.New()}
	other := campaigns.Campaign{ID: uuid.New()}

	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		source.Enqueue(campaign.ID, domain.Lead{Email: email})
	}
	source.Enqueue(other.ID, domain.Lead{Email: "other@y.com"})

	first, err := source.FetchNewLeads(context.Background(), campaign, 2)
	if err != nil {
		t.Fatalf("FetchNewLeads: %v", err)
	}
	if len(first) != 2 || first[0].Email != "a@x.com" {
		t.Fatalf("first batch = %v", first)
	}
	if source.Pending(campaign.ID) != 1 {
		t.Fatalf("pending = %d, want 1", source.Pending(campaign.ID))
	}

	second, _ := source.FetchNewLeads(context.Background(), campaign, 10)
	if len(second) != 1 || second[0].Email != "c@x.com" {
		t.Fatalf("second batch = %v", second)
	}
	if source.Pending(campaign.ID) != 0 {
		t.Fatal("queue not drained")
	}

	// The other campaign's queue is untouched.
	if source.Pending(other.ID) != 1 {
		t.Fatalf("other campaign pending = %d, want 1", source.Pending(other.ID))
	}
}
