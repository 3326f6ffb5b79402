package email

import (
	"context"
	"crypto/tls"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"carlink/market/internal/config"
)

// Message is a rendered notification e-mail.
type Message struct {
	To         []string
	Subject    string
	TextBody   string
	HTMLBody   string
	TemplateID string // which template produced it; used by capture senders
}

// Sender delivers rendered e-mail.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Dialer is the subset of *gomail.Dialer used by SMTPSender.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender delivers through an SMTP relay.
type SMTPSender struct {
	from   string
	dialer Dialer
	log    *zap.Logger
}

func NewSMTPSender(cfg *config.Config, log *zap.Logger) *SMTPSender {
	d := gomail.NewDialer(cfg.SmtpHost, cfg.SmtpPort, cfg.SmtpUsername, cfg.SmtpPassword)
	d.TLSConfig = &tls.Config{ServerName: cfg.SmtpHost}
	return &SMTPSender{from: cfg.SmtpFromAddress, dialer: d, log: log}
}

// NewSMTPSenderWithDialer is used by tests.
func NewSMTPSenderWithDialer(from string, d Dialer, log *zap.Logger) *SMTPSender {
	return &SMTPSender{from: from, dialer: d, log: log}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("smtp: no recipients")
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.TextBody)
	if msg.HTMLBody != "" {
		m.AddAlternative("text/html", msg.HTMLBody)
	}
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp error: %w", err)
	}
	s.log.Info("email sent via SMTP", zap.Strings("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

// LoggingSender only logs. Used when no provider is configured.
type LoggingSender struct {
	log *zap.Logger
}

func NewLoggingSender(log *zap.Logger) *LoggingSender {
	return &LoggingSender{log: log}
}

func (s *LoggingSender) Send(_ context.Context, msg Message) error {
	s.log.Info("email (not sent)",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("template", msg.TemplateID),
		zap.String("body", msg.TextBody),
	)
	return nil
}
