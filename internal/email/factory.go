package email

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"carlink/market/internal/config"
)

// NewFromConfig builds the sender chain for EMAIL_PROVIDER, plus a file copy
// when LOG_EMAILS is set.
func NewFromConfig(cfg *config.Config, rdb redis.Cmdable, log *zap.Logger) Sender {
	var primary Sender
	switch cfg.EmailProvider {
	case "smtp":
		primary = NewSMTPSender(cfg, log)
	case "mailgun":
		primary = NewMailgunSender(cfg, log)
	case "redis":
		primary = NewRedisSender(rdb, log)
	default:
		primary = NewLoggingSender(log)
	}

	composite := NewCompositeEmailSender(primary)
	if cfg.LogEmailsPath != "" {
		fs, err := NewFileEmailSender(cfg.LogEmailsPath)
		if err != nil {
			log.Warn("file email logger disabled", zap.Error(err))
		} else {
			composite.AddSender(fs)
		}
	}
	return composite
}
