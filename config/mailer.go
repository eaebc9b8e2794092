package config

import (
	"crypto/tls"
	"errors"
	"fmt"

	mail "github.com/go-mail/mail/v2"
)

// ErrMailerNotConfigured is returned when SMTP_HOST or SMTP_FROM is missing.
var ErrMailerNotConfigured = errors.New("smtp not configured (SMTP_HOST/SMTP_FROM)")

// Mailer sends HTML mail through the configured SMTP relay.
type Mailer struct {
	smtp SMTPSettings
}

func NewMailer(s SMTPSettings) *Mailer {
	return &Mailer{smtp: s}
}

// Configured reports whether the relay has enough settings to send.
func (m *Mailer) Configured() bool {
	return m != nil && m.smtp.Host != "" && m.smtp.From != ""
}

func (m *Mailer) SendMail(to []string, subject, html, text string) error {
	if len(to) == 0 {
		return nil
	}
	if !m.Configured() {
		return ErrMailerNotConfigured
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.smtp.From)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	if text != "" {
		msg.SetBody("text/plain", text)
		msg.AddAlternative("text/html", html)
	} else {
		msg.SetBody("text/html", html)
	}

	d := mail.NewDialer(m.smtp.Host, m.smtp.Port, m.smtp.User, m.smtp.Pass)

	// STARTTLS is mandatory on 587 for the relays we deploy against.
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         m.smtp.Host,
		InsecureSkipVerify: m.smtp.SkipTLSVerify,
	}

	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail to %v: %w", to, err)
	}
	return nil
}
