// Package mailer sends questionnaire submissions over authenticated SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"

	mail "github.com/wneessen/go-mail"

	"github.com/josh0272/lylov2/internal/config"
	"github.com/josh0272/lylov2/internal/models"
)

// ErrNotConfigured is returned by Send when any of the five required email
// settings (host, port, user, pass, recipient) is missing. No network I/O
// happens in that case.
var ErrNotConfigured = errors.New("email is not configured (missing EMAIL_* settings)")

// Subject is the fixed subject line for questionnaire mail.
const Subject = "New Questionnaire Submission"

// Mailer dispatches plain-text mail with fixed From/To headers. It is
// always constructed; an incomplete configuration makes Send fail closed.
type Mailer struct {
	cfg config.EmailConfig
}

func New(cfg config.EmailConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// Configured reports whether Send can attempt delivery.
func (m *Mailer) Configured() bool {
	return m.cfg.Configured()
}

// Send delivers a single message. The connection starts plaintext and is
// upgraded via STARTTLS before authentication. One attempt, no retries.
func (m *Mailer) Send(ctx context.Context, subject, body string) error {
	if !m.cfg.Configured() {
		return ErrNotConfigured
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.User); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(m.cfg.To); err != nil {
		return fmt.Errorf("set to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.User),
		mail.WithPassword(m.cfg.Pass),
		mail.WithTimeout(m.cfg.Timeout),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// FormatSubmission renders the fixed plain-text body for one submission.
func FormatSubmission(s models.Submission) string {
	return fmt.Sprintf(`New questionnaire submission

Name: %s
Email: %s

Answers:
%s

Transcript:
%s
`, s.Name, s.Email, s.Answers, s.Transcript)
}
