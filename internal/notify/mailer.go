// mailer.go implements the email notification channel. Delivery is best
// effort: the mailer is a silent no-op until notifications.email_enabled is
// true and an SMTP host is configured, so it is always safe to wire into the
// composite dispatcher regardless of deployment environment.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/konshedo/planivo/internal/config"
	"github.com/konshedo/planivo/internal/db/models"
	"github.com/konshedo/planivo/internal/telemetry"
)

// UserStore resolves a notification's recipient address.
type UserStore interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
}

// Mailer sends notification emails over SMTP.
type Mailer struct {
	users UserStore
	cfg   *config.NotificationsConfig
}

// NewMailer creates an SMTP-backed dispatcher.
func NewMailer(users UserStore, cfg *config.NotificationsConfig) *Mailer {
	return &Mailer{users: users, cfg: cfg}
}

// Enabled reports whether the mailer will actually send anything.
func (m *Mailer) Enabled() bool {
	return m.cfg.EmailEnabled && m.cfg.SMTP.Host != ""
}

// Dispatch emails the notification to its recipient. Users without an email
// address are skipped silently; the in-app channel still reaches them.
func (m *Mailer) Dispatch(ctx context.Context, n *models.Notification) error {
	if !m.Enabled() {
		return nil
	}

	user, err := m.users.GetByID(ctx, n.UserID)
	if err != nil {
		telemetry.NotificationsSentTotal.WithLabelValues("email", "error").Inc()
		return fmt.Errorf("resolving notification recipient: %w", err)
	}
	if user == nil || user.Email == "" {
		return nil
	}

	body := strings.Join([]string{
		fmt.Sprintf("Hello %s,", user.Name),
		"",
		n.Message,
		"",
		"Open Planivo to see the details.",
		"",
		"— Planivo",
	}, "\r\n")

	if err := m.send(user.Email, n.Title, body); err != nil {
		telemetry.NotificationsSentTotal.WithLabelValues("email", "error").Inc()
		return fmt.Errorf("sending notification email: %w", err)
	}
	telemetry.NotificationsSentTotal.WithLabelValues("email", "ok").Inc()
	return nil
}

// send composes and delivers a plain-text email via SMTP.
func (m *Mailer) send(toEmail, subject, body string) error {
	smtpCfg := &m.cfg.SMTP
	headers := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n",
		smtpCfg.From, toEmail, subject,
	)
	msg := []byte(headers + body + "\r\n")

	addr := fmt.Sprintf("%s:%d", smtpCfg.Host, smtpCfg.Port)
	auth := smtp.PlainAuth("", smtpCfg.Username, smtpCfg.Password, smtpCfg.Host)

	if smtpCfg.UseTLS {
		return sendMailTLS(addr, smtpCfg.Host, auth, smtpCfg.From, []string{toEmail}, msg)
	}
	return smtp.SendMail(addr, auth, smtpCfg.From, []string{toEmail}, msg)
}

// sendMailTLS connects via implicit TLS (port 465 / SMTPS) and sends a message.
// Use this when UseTLS=true and the port is 465; for port 587 STARTTLS,
// smtp.SendMail handles the upgrade automatically — but we call this path for
// both so the config is unambiguous: UseTLS=true always means an encrypted connection.
func sendMailTLS(addr, host string, auth smtp.Auth, from string, to []string, msg []byte) error {
	tlsConfig := &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		// Fall back to STARTTLS via the standard smtp.SendMail path (port 587 pattern)
		return smtp.SendMail(addr, auth, from, to, msg)
	}
	defer conn.Close()

	hostname, _, _ := net.SplitHostPort(addr)
	c, err := smtp.NewClient(conn, hostname)
	if err != nil {
		return fmt.Errorf("smtp new client: %w", err)
	}
	defer c.Quit() //nolint:errcheck

	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, addr := range to {
		if err := c.Rcpt(addr); err != nil {
			return fmt.Errorf("smtp RCPT TO %s: %w", addr, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	return w.Close()
}
