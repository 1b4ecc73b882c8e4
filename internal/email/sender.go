package email

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"weddingplanners/api/internal/config"
)

// HeaderKind names the kind of message in the raw headers, so mock senders can
// file it without parsing the body.
const HeaderKind = "X-Mail-Kind"

// Sender defines the interface for sending emails.
// The rawMessage parameter should contain the full email message, including headers and body, properly formatted.
type Sender interface {
	Send(ctx context.Context, to []string, subject string, rawMessage []byte) error
}

// Message is a plain-text email before it is serialized.
type Message struct {
	From    string
	To      []string
	Subject string
	Kind    string
	Body    string
	Date    time.Time
}

var headerLineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// SanitizeHeader replaces line breaks in v with spaces so it stays a single
// header value.
func SanitizeHeader(v string) string {
	return headerLineBreaks.Replace(v)
}

// Bytes renders m with CRLF line endings, ready for SMTP. Header values never
// span lines and a non-ASCII subject is Q-encoded.
func (m Message) Bytes() []byte {
	date := m.Date
	if date.IsZero() {
		date = time.Now()
	}

	to := make([]string, 0, len(m.To))
	for _, addr := range m.To {
		to = append(to, SanitizeHeader(addr))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(to, ", ")))
	sb.WriteString(fmt.Sprintf("From: %s\r\n", SanitizeHeader(m.From)))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", SanitizeHeader(m.Subject))))
	sb.WriteString("Date: " + date.Format(time.RFC1123Z) + "\r\n")
	if m.Kind != "" {
		sb.WriteString(fmt.Sprintf("%s: %s\r\n", HeaderKind, SanitizeHeader(m.Kind)))
	}
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(strings.ReplaceAll(strings.ReplaceAll(m.Body, "\r\n", "\n"), "\n", "\r\n"))
	if !strings.HasSuffix(m.Body, "\n") {
		sb.WriteString("\r\n")
	}
	return []byte(sb.String())
}

// SMTPSender implements the Sender interface using Go's net/smtp package.
type SMTPSender struct {
	from string
	auth smtp.Auth
	addr string
	log  zerolog.Logger
}

// NewSMTPSender creates a new SMTPSender, or a LoggingSender when no SMTP
// host is configured.
func NewSMTPSender(cfg *config.Config, log zerolog.Logger) Sender {
	log = log.With().Str("component", "email").Logger()
	if cfg.SmtpHost == "" {
		log.Info().Msg("SMTP host not configured, using logging email sender")
		return NewLoggingSender(log)
	}

	var auth smtp.Auth
	if cfg.SmtpUsername != "" {
		auth = smtp.PlainAuth("", cfg.SmtpUsername, cfg.SmtpPassword, cfg.SmtpHost)
	}

	return &SMTPSender{
		from: cfg.SmtpFromAddress,
		auth: auth,
		addr: fmt.Sprintf("%s:%d", cfg.SmtpHost, cfg.SmtpPort),
		log:  log,
	}
}

// Send sends an email using SMTP.
func (s *SMTPSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	if err := smtp.SendMail(s.addr, s.auth, s.from, to, rawMessage); err != nil {
		s.log.Error().Err(err).Strs("to", to).Msg("failed to send email via SMTP")
		return fmt.Errorf("smtp error: %w", err)
	}
	s.log.Info().Strs("to", to).Str("subject", subject).Msg("email sent via SMTP")
	return nil
}

// LoggingSender just logs email details.
type LoggingSender struct {
	log zerolog.Logger
}

// NewLoggingSender creates a new LoggingSender.
func NewLoggingSender(log zerolog.Logger) *LoggingSender {
	return &LoggingSender{log: log}
}

// Send logs the email instead of sending it.
func (s *LoggingSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	s.log.Info().
		Strs("to", to).
		Str("subject", subject).
		Str("raw", string(rawMessage)).
		Msg("email logged, not sent")
	return nil
}
