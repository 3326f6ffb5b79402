package email

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileEmailSender appends every e-mail to a local file.
type FileEmailSender struct {
	mu       sync.Mutex
	filePath string
}

func NewFileEmailSender(filePath string) (*FileEmailSender, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, fmt.Errorf("email log file path cannot be empty")
	}
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for email log file '%s': %w", dir, err)
	}
	return &FileEmailSender{filePath: filePath}, nil
}

func (s *FileEmailSender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open email log file: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	fmt.Fprintf(&b, "--- %s to=%s template=%s ---\n", time.Now().UTC().Format(time.RFC3339Nano), strings.Join(msg.To, ","), msg.TemplateID)
	fmt.Fprintf(&b, "Subject: %s\n\n%s\n--- end ---\n\n", msg.Subject, msg.TextBody)
	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("failed to write email to log file: %w", err)
	}
	return nil
}
