// Package mail delivers transactional email. Space invites are the only
// kind today.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	texttemplate "text/template"

	"gopkg.in/gomail.v2"

	"github.com/forgeapp/forge-server/internal/config"
	"github.com/forgeapp/forge-server/internal/metrics"
)

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers rendered messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender sends through an SMTP relay.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender creates a sender for cfg.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// Send dials the relay and sends msg as a multipart text and HTML email.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	m.AddAlternative("text/html", msg.HTML)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// LogSender only logs messages. Used when SMTP is not configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs msg.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("email delivery disabled, logging message",
		"to", msg.To,
		"subject", msg.Subject,
		"text", msg.Text,
	)
	return nil
}

// Invite describes a space invitation.
type Invite struct {
	To           string
	SpaceName    string
	InviterName  string
	InviterEmail string
}

// inviter is how the invitation names who sent it.
func (i Invite) inviter() string {
	switch {
	case strings.TrimSpace(i.InviterName) != "":
		return i.InviterName
	case strings.TrimSpace(i.InviterEmail) != "":
		return i.InviterEmail
	default:
		return "A teammate"
	}
}

var inviteHTML = template.Must(template.New("invite").Parse(`<div style="font-family: Inter, Arial, sans-serif; max-width: 560px; margin: 0 auto; color: #0f172a;">
  <h2 style="font-size: 20px; margin-bottom: 12px;">You're invited to Forge</h2>
  <p style="font-size: 14px; line-height: 1.6;">{{.Inviter}} invited you to the space <strong>{{.SpaceName}}</strong>.</p>
  <p style="font-size: 14px; line-height: 1.6;">Sign in with this email address to join.</p>
  <a href="{{.LoginURL}}" style="display: inline-block; background: #2563eb; color: #ffffff; text-decoration: none; padding: 10px 14px; border-radius: 8px; font-weight: 600;">Open Forge</a>
  <p style="font-size: 12px; color: #64748b; margin-top: 18px;">If you weren't expecting this invitation you can ignore this email.</p>
</div>
`))

var inviteText = texttemplate.Must(texttemplate.New("invite").Parse(`You're invited to Forge

{{.Inviter}} invited you to the space "{{.SpaceName}}".
Sign in with this email address to join.
Open: {{.LoginURL}}
`))

// Mailer renders and sends application emails.
type Mailer struct {
	sender    Sender
	publicURL string
	logger    *slog.Logger
}

// NewMailer creates a Mailer. publicURL is the base of links in emails.
func NewMailer(sender Sender, publicURL string, logger *slog.Logger) *Mailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{sender: sender, publicURL: strings.TrimRight(publicURL, "/"), logger: logger}
}

// RenderInvite renders the invitation email.
func (m *Mailer) RenderInvite(inv Invite) (Message, error) {
	data := struct {
		Inviter   string
		SpaceName string
		LoginURL  string
	}{
		Inviter:   inv.inviter(),
		SpaceName: inv.SpaceName,
		LoginURL:  m.publicURL + "/login",
	}

	var html, text bytes.Buffer
	if err := inviteHTML.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render invite html: %w", err)
	}
	if err := inviteText.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render invite text: %w", err)
	}

	return Message{
		To:      inv.To,
		Subject: fmt.Sprintf("You've been invited to the space %q", inv.SpaceName),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}

// SendInvite renders and sends the invitation.
func (m *Mailer) SendInvite(ctx context.Context, inv Invite) error {
	msg, err := m.RenderInvite(inv)
	if err == nil {
		err = m.sender.Send(ctx, msg)
	}

	if err != nil {
		metrics.MailDeliveries.WithLabelValues("invite", "error").Inc()
		m.logger.Warn("invite email failed", "to", inv.To, "space", inv.SpaceName, "error", err)
		return err
	}
	metrics.MailDeliveries.WithLabelValues("invite", "sent").Inc()
	m.logger.Info("invite email sent", "to", inv.To, "space", inv.SpaceName)
	return nil
}
