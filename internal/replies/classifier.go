// Package replies ingests inbound email replies, classifies them, and applies
// the resulting lifecycle transitions to the matched leads.
package replies

import (
	"context"
	"strings"

	"cam_backend/internal/leads/ports"
)

// KeywordClassifier assigns a classification from keyword rules. It is the
// fallback when the AI classifier is disabled or unreachable; rules are
// checked in suppression-first order so an unsubscribe wins over anything
// else the message says.
type KeywordClassifier struct{}

var keywordRules = []struct {
	classification string
	keywords       []string
}{
	{ports.ReplyBounce, []string{
		"mailer-daemon", "delivery has failed", "undeliverable",
		"address not found", "mailbox unavailable", "delivery status notification",
	}},
	{ports.ReplyUnsubscribe, []string{
		"unsubscribe", "remove me", "take me off", "stop emailing", "opt out", "opt-out",
	}},
	{ports.ReplyNegative, []string{
		"not interested", "no thanks", "no thank you", "not a fit",
		"already have a", "please don't", "wrong person",
	}},
	{ports.ReplyPositive, []string{
		"interested", "tell me more", "sounds good", "book a call",
		"schedule a call", "demo", "pricing", "let's talk", "happy to chat",
	}},
}

func (KeywordClassifier) Classify(_ context.Context, subject, body string) (string, error) {
	text := strings.ToLower(subject + "\n" + body)
	for _, rule := range keywordRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(text, keyword) {
				return rule.classification, nil
			}
		}
	}
	return ports.ReplyNeutral, nil
}

var _ ports.ReplyClassifier = KeywordClassifier{}
