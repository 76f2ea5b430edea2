// Package email delivers alert notifications over SMTP.
package email

import (
	"context"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"

	"zapdesk_backend/internal/providers/repository"
	"zapdesk_backend/platform/config"
)

const smtpTimeout = 15 * time.Second

// SMTPSender delivers provider alert emails via a direct SMTP connection.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender builds a sender from the email configuration. It returns nil
// when email delivery is disabled, which callers treat as "no email channel".
func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	if !cfg.GetEmailEnabled() {
		return nil
	}
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
	}
}

// SendProviderAlert emails a health alert to the configured recipient.
func (s *SMTPSender) SendProviderAlert(ctx context.Context, recipient string, alert repository.Alert) error {
	subject := fmt.Sprintf("[alert] %s error rate at %.1f%%", alert.Provider, alert.ErrorRate)
	body := renderAlertBody(alert)

	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(recipient); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, body)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(smtpTimeout),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func renderAlertBody(alert repository.Alert) string {
	return fmt.Sprintf(
		`<h2>Provider health alert</h2>
<p>The <strong>%s</strong> gateway crossed its error threshold.</p>
<ul>
<li>Error rate: %.1f%% (threshold %.1f%%)</li>
<li>Failed calls: %d of %d</li>
<li>Window: %s to %s</li>
</ul>
<p>Check the connection status and the provider dashboard before agents notice.</p>`,
		alert.Provider,
		alert.ErrorRate,
		alert.ThresholdPercent,
		alert.ErrorCount,
		alert.TotalCount,
		alert.WindowStart.Format(time.RFC3339),
		alert.WindowEnd.Format(time.RFC3339),
	)
}
