package replies

import (
	"context"
	"testing"

	"cam_backend/internal/leads/ports"
)

func TestKeywordClassifier(t *testing.T) {
	cases := []struct {
		name    string
		subject string
		body    string
		want    string
	}{
		{"positive", "Re: quick question", "Sounds good, send me pricing please", ports.ReplyPositive},
		{"negative", "Re: quick question", "Thanks but we're not interested.", ports.ReplyNegative},
		{"unsubscribe", "stop", "Please remove me from your list", ports.ReplyUnsubscribe},
		{"bounce", "Delivery Status Notification (Failure)", "address not found", ports.ReplyBounce},
		{"out of office", "Automatic reply", "I am out of the office until Monday", ports.ReplyNeutral},
		{"case insensitive", "RE: DEMO", "BOOK A CALL", ports.ReplyPositive},
		// An unsubscribe request wins even when the message also sounds engaged.
		{"unsubscribe beats positive", "Re:", "Interesting, but please unsubscribe me", ports.ReplyUnsubscribe},
	}

	classifier := KeywordClassifier{}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := classifier.Classify(context.Background(), tc.subject, tc.body)
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Classify(%q, %q) = %s, want %s", tc.subject, tc.body, got, tc.want)
			}
		})
	}
}
