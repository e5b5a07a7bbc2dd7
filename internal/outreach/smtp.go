// Package outreach delivers rendered nurture messages over SMTP.
package outreach

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"

	"cam_backend/internal/campaigns"
	"cam_backend/internal/leads/domain"
	"cam_backend/internal/leads/ports"
	"cam_backend/platform/config"
)

// SMTPSender delivers email-channel outreach via a direct SMTP connection.
// Send must only run after a limiter reservation was granted for the message.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates the email sender from the outreach configuration.
func NewSMTPSender(cfg config.OutreachConfig) *SMTPSender {
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetOutreachFromName(),
		fromEmail: cfg.GetOutreachFromAddress(),
	}
}

func (s *SMTPSender) Channel() string { return campaigns.ChannelEmail }

func (s *SMTPSender) Send(ctx context.Context, lead domain.Lead, subject, body string) (ports.SendResult, error) {
	if lead.Email == "" {
		return ports.SendResult{}, fmt.Errorf("lead %s has no email address", lead.ID)
	}

	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return ports.SendResult{}, fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(lead.Email); err != nil {
		return ports.SendResult{}, fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)
	msg.SetMessageID()
	messageID := msg.GetMessageID()

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return ports.SendResult{}, fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return ports.SendResult{}, fmt.Errorf("smtp send: %w", err)
	}

	return ports.SendResult{Sent: true, ProviderMessageID: messageID}, nil
}

var _ ports.OutreachSender = (*SMTPSender)(nil)
