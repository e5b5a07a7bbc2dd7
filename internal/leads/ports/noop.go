package ports

import (
	"context"
	"time"

	"cam_backend/internal/campaigns"
	"cam_backend/internal/leads/domain"
)

// NoopEnricher returns leads unchanged.
type NoopEnricher struct{}

func (NoopEnricher) Enrich(_ context.Context, lead domain.Lead) (domain.Lead, error) {
	return lead, nil
}

// NoopVerifier accepts every address.
type NoopVerifier struct{}

func (NoopVerifier) Verify(context.Context, string) (bool, error) {
	return true, nil
}

// NoopSender acknowledges sends without delivering anything. Used when
// outreach is disabled so the nurturer still advances in dry-run setups.
type NoopSender struct {
	SenderChannel string
}

func (s NoopSender) Channel() string {
	if s.SenderChannel == "" {
		return campaigns.ChannelEmail
	}
	return s.SenderChannel
}

func (s NoopSender) Send(_ context.Context, lead domain.Lead, _, _ string) (SendResult, error) {
	return SendResult{Sent: true, ProviderMessageID: "noop-" + lead.ID.String()}, nil
}

// NoopReplySource returns no replies.
type NoopReplySource struct{}

func (NoopReplySource) FetchNewReplies(context.Context, time.Time) ([]ReplyEvent, error) {
	return nil, nil
}

var (
	_ Enricher       = NoopEnricher{}
	_ EmailVerifier  = NoopVerifier{}
	_ OutreachSender = NoopSender{}
	_ ReplySource    = NoopReplySource{}
)
