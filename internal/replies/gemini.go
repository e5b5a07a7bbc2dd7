package replies

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"cam_backend/internal/leads/ports"
	"cam_backend/platform/config"
	"cam_backend/platform/logger"
)

const classifyPromptFmt = `You classify an inbound email reply to a cold outreach message.
Answer with exactly one word from this list and nothing else:
POSITIVE, NEGATIVE, NEUTRAL, UNSUBSCRIBE, BOUNCE.

POSITIVE: the sender shows interest, asks for more information, or proposes a call.
NEGATIVE: the sender declines or is the wrong person.
NEUTRAL: out-of-office, acknowledgement, or anything unclear.
UNSUBSCRIBE: the sender asks to stop receiving messages.
BOUNCE: a delivery failure notification.

Subject: %s

Body:
%s`

// GeminiClassifier classifies replies with a Gemini model, falling back to
// the keyword rules when the model is unreachable or answers off-list.
type GeminiClassifier struct {
	client   *genai.Client
	model    string
	fallback ports.ReplyClassifier
	log      *logger.Logger
}

// NewGeminiClassifier creates the AI classifier. Returns an error when the
// API key is absent; callers should fall back to the keyword classifier.
func NewGeminiClassifier(ctx context.Context, cfg config.ClassifierConfig, log *logger.Logger) (*GeminiClassifier, error) {
	if !cfg.IsAIClassifierEnabled() {
		return nil, fmt.Errorf("AI classifier is not configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GetGeminiAPIKey(),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiClassifier{
		client:   client,
		model:    cfg.GetGeminiModel(),
		fallback: KeywordClassifier{},
		log:      log,
	}, nil
}

func (c *GeminiClassifier) Classify(ctx context.Context, subject, body string) (string, error) {
	prompt := fmt.Sprintf(classifyPromptFmt, subject, body)
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		c.log.Warn("gemini classification failed, using keyword fallback", "error", err)
		return c.fallback.Classify(ctx, subject, body)
	}

	answer := strings.ToUpper(strings.TrimSpace(resp.Text()))
	switch answer {
	case ports.ReplyPositive, ports.ReplyNegative, ports.ReplyNeutral,
		ports.ReplyUnsubscribe, ports.ReplyBounce:
		return answer, nil
	}

	c.log.Warn("gemini returned an off-list classification, using keyword fallback", "answer", answer)
	return c.fallback.Classify(ctx, subject, body)
}

var _ ports.ReplyClassifier = (*GeminiClassifier)(nil)
