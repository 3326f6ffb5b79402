package email

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CaptureTTL is how long captured e-mails stay readable.
const CaptureTTL = 5 * time.Minute

// CaptureKey is where RedisSender stores the last e-mail of a template sent to an address.
func CaptureKey(to, templateID string) string {
	return fmt.Sprintf("mockemail:%s:%s", strings.ToLower(to), templateID)
}

// RedisSender stores e-mails in Redis instead of sending them, so end-to-end
// tests can read them back through the service API.
type RedisSender struct {
	client redis.Cmdable
	log    *zap.Logger
}

func NewRedisSender(client redis.Cmdable, log *zap.Logger) *RedisSender {
	return &RedisSender{client: client, log: log}
}

func (s *RedisSender) Send(ctx context.Context, msg Message) error {
	data, err := json.Marshal(map[string]interface{}{
		"to":          strings.Join(msg.To, ", "),
		"subject":     msg.Subject,
		"body":        msg.TextBody,
		"html":        msg.HTMLBody,
		"template_id": msg.TemplateID,
		"sent_at":     time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}

	for _, to := range msg.To {
		key := CaptureKey(to, msg.TemplateID)
		if err := s.client.Set(ctx, key, data, CaptureTTL).Err(); err != nil {
			return fmt.Errorf("failed to store email in Redis key '%s': %w", key, err)
		}
		s.log.Debug("mock email stored", zap.String("key", key))
	}
	return nil
}
