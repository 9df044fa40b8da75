// Package mail is the email-delivery collaborator boundary. The core treats
// the absence of a delivery id as failure; it never retries on its own.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/google/uuid"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers a message and returns a provider delivery id.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// SMTPConfig configures the production mailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

// SMTPMailer delivers through a plain SMTP relay. The delivery id is
// generated locally since SMTP has no provider-side id to return.
type SMTPMailer struct {
	config SMTPConfig
}

// NewSMTPMailer builds an SMTPMailer.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{config: cfg}
}

func (m *SMTPMailer) Send(_ context.Context, msg Message) (string, error) {
	id := uuid.NewString()
	boundary := "squeezy-" + id

	// RFC 822 headers with CRLF line endings; multipart/alternative so
	// clients pick HTML when they can and fall back to text.
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.config.Sender)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Message-ID: <%s@squeezy>\r\n", id)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n", boundary)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(msg.Text)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(msg.HTML)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s--\r\n", boundary)

	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)
	auth := smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)

	if err := smtp.SendMail(addr, auth, m.config.Sender, []string{msg.To}, []byte(b.String())); err != nil {
		return "", err
	}

	return id, nil
}
