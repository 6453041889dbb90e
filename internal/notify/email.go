package notify

import (
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/gomail.v2"

	"bioscan/internal/config"
)

// EmailNotifier tells patients when a doctor comments on one of their
// reports. With no SMTP config it degrades to a no-op so local setups work
// without a mail server.
type EmailNotifier struct {
	cfg    *config.Config
	logger *slog.Logger
}

func NewEmailNotifier(cfg *config.Config, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, logger: logger}
}

func (n *EmailNotifier) SendCommentNotice(toEmail, filename, comment string) error {
	if n.cfg.Email.SMTPHost == "" || n.cfg.Email.SMTPUser == "" || n.cfg.Email.FromEmail == "" {
		if n.logger != nil {
			n.logger.Warn("email config missing, skip notification")
		}
		return nil
	}
	if strings.TrimSpace(toEmail) == "" {
		if n.logger != nil {
			n.logger.Warn("email recipient empty, skip notification")
		}
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.Email.FromEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "[BioScan] A doctor reviewed your X-ray")

	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>Your report has a new comment</h2>
    <p>A doctor reviewed <strong>%s</strong> and wrote:</p>
    <blockquote style="border-left: 3px solid #e5e7eb; margin: 8px 0; padding-left: 12px;">%s</blockquote>
    <p>Log in to see the full report.</p>
  </div>
</body>
</html>`, filename, comment)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(n.cfg.Email.SMTPHost, n.cfg.Email.SMTPPort, n.cfg.Email.SMTPUser, n.cfg.Email.SMTPPass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	if n.logger != nil {
		n.logger.Info("comment notification sent", slog.String("to", toEmail))
	}
	return nil
}
