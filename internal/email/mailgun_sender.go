package email

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v3"
	"go.uber.org/zap"

	"carlink/market/internal/config"
)

// MailgunSender delivers through the Mailgun HTTP API.
type MailgunSender struct {
	mg   mailgun.Mailgun
	from string
	log  *zap.Logger
}

func NewMailgunSender(cfg *config.Config, log *zap.Logger) *MailgunSender {
	return &MailgunSender{
		mg:   mailgun.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey),
		from: fmt.Sprintf("%s <%s>", cfg.AppName, cfg.SmtpFromAddress),
		log:  log,
	}
}

func (s *MailgunSender) Send(ctx context.Context, msg Message) error {
	m := s.mg.NewMessage(s.from, msg.Subject, msg.TextBody, msg.To...)
	if msg.HTMLBody != "" {
		m.SetHtml(msg.HTMLBody)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, id, err := s.mg.Send(ctx, m)
	if err != nil {
		return fmt.Errorf("mailgun error: %w", err)
	}
	s.log.Info("email sent via Mailgun", zap.Strings("to", msg.To), zap.String("id", id))
	return nil
}
