package replies

import (
	"context"
	"fmt"
	"sort"
	"time"

	imap "github.com/BrianLeishman/go-imap"

	"cam_backend/internal/leads/ports"
	"cam_backend/platform/config"
	"cam_backend/platform/logger"
)

// IMAPSource reads unseen messages from the outreach mailbox. Each fetch
// dials a fresh connection; messages are marked seen after a successful read
// so the next poll only sees new mail.
type IMAPSource struct {
	host     string
	port     int
	username string
	password string
	folder   string
	log      *logger.Logger
}

// NewIMAPSource creates the mailbox reply source. Returns an error when the
// mailbox is not configured; callers should fall back to the no-op source.
func NewIMAPSource(cfg config.ReplyConfig, log *logger.Logger) (*IMAPSource, error) {
	if !cfg.IsReplyIngestEnabled() {
		return nil, fmt.Errorf("reply ingest is not configured")
	}
	return &IMAPSource{
		host:     cfg.GetIMAPHost(),
		port:     cfg.GetIMAPPort(),
		username: cfg.GetIMAPUsername(),
		password: cfg.GetIMAPPassword(),
		folder:   cfg.GetIMAPFolder(),
		log:      log,
	}, nil
}

func (s *IMAPSource) FetchNewReplies(_ context.Context, since time.Time) ([]ports.ReplyEvent, error) {
	conn, err := imap.New(s.username, s.password, s.host, s.port)
	if err != nil {
		return nil, fmt.Errorf("imap dial: %w", err)
	}
	defer conn.Close()

	if err := conn.SelectFolder(s.folder); err != nil {
		return nil, fmt.Errorf("imap select %s: %w", s.folder, err)
	}

	uids, err := conn.GetUIDs("UNSEEN")
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	emails, err := conn.GetEmails(uids...)
	if err != nil {
		return nil, fmt.Errorf("imap fetch: %w", err)
	}

	var replies []ports.ReplyEvent
	for uid, email := range emails {
		if email == nil {
			continue
		}
		receivedAt := email.Received
		if receivedAt.IsZero() {
			receivedAt = email.Sent
		}
		if !since.IsZero() && receivedAt.Before(since) {
			continue
		}

		from := firstAddress(email.From)
		if from == "" {
			continue
		}
		replies = append(replies, ports.ReplyEvent{
			LeadEmail:  from,
			Subject:    email.Subject,
			Body:       messageBody(email),
			ReceivedAt: receivedAt,
		})

		if err := conn.MarkSeen(uid); err != nil {
			s.log.Warn("failed to mark reply seen", "uid", uid, "error", err)
		}
	}

	sort.Slice(replies, func(i, j int) bool {
		return replies[i].ReceivedAt.Before(replies[j].ReceivedAt)
	})
	return replies, nil
}

func firstAddress(addresses imap.EmailAddresses) string {
	keys := make([]string, 0, len(addresses))
	for address := range addresses {
		keys = append(keys, address)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}

func messageBody(email *imap.Email) string {
	if email.Text != "" {
		return email.Text
	}
	return email.HTML
}

var _ ports.ReplySource = (*IMAPSource)(nil)
