package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
)

// Message is one outbound email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Mailer delivers messages over SMTP. A disabled mailer drops messages
// silently so notification dispatch stays fire-and-forget in development.
type Mailer struct {
	enabled  bool
	host     string
	port     int
	username string
	password string
	from     string
}

// Config holds SMTP settings.
type Config struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// New builds a mailer from config.
func New(cfg Config) *Mailer {
	return &Mailer{
		enabled:  cfg.Enabled,
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
	}
}

// Send delivers a single message.
func (m *Mailer) Send(msg Message) error {
	if m == nil || !m.enabled {
		return nil
	}
	if msg.To == "" {
		return fmt.Errorf("message has no recipient")
	}

	body := msg.HTMLBody
	contentType := "text/html; charset=\"UTF-8\""
	if body == "" {
		body = msg.TextBody
		contentType = "text/plain; charset=\"UTF-8\""
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", m.from)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: %s\r\n\r\n", contentType)
	buf.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	if err := smtp.SendMail(addr, auth, m.from, []string{msg.To}, buf.Bytes()); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}

// RenderTemplate executes an HTML template with the given data.
func RenderTemplate(name, tmpl string, data interface{}) (string, error) {
	t, err := template.New(name).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse mail template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render mail template %s: %w", name, err)
	}
	return buf.String(), nil
}
