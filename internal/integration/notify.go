package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// WebhookNotifier delivers digests to a Discord-style webhook. It implements
// core.Notifier.
type WebhookNotifier struct {
	webhookURL string
	client     *http.Client
	logger     *zap.Logger
}

// NewWebhookNotifier creates a Notifier that POSTs digests to the given
// webhook URL.
func NewWebhookNotifier(webhookURL string, logger *zap.Logger) *WebhookNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

type webhookMessage struct {
	Content string `json:"content"`
}

// Send posts the digest text as a single webhook message.
func (n *WebhookNotifier) Send(text string) error {
	body, err := json.Marshal(webhookMessage{Content: text})
	if err != nil {
		return fmt.Errorf("marshaling webhook message: %w", err)
	}

	resp, err := n.client.Post(n.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("posting to webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	n.logger.Debug("posted digest to webhook", zap.Int("bytes", len(text)))
	return nil
}

// FileNotifier writes digests as markdown files with YAML frontmatter into an
// outbox directory. It is the fallback channel when no webhook is configured,
// letting a reviewer read digests locally.
type FileNotifier struct {
	outboxDir string
	logger    *zap.Logger

	// now is swappable in tests for deterministic filenames.
	now func() time.Time
}

// NewFileNotifier creates a FileNotifier writing under <basePath>/outbox/.
func NewFileNotifier(basePath string, logger *zap.Logger) (*FileNotifier, error) {
	outboxDir := filepath.Join(basePath, "outbox")
	if err := os.MkdirAll(outboxDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating outbox directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileNotifier{outboxDir: outboxDir, logger: logger, now: time.Now}, nil
}

// digestFrontmatter is the YAML frontmatter on an outbox digest file.
type digestFrontmatter struct {
	ID     string `yaml:"id"`
	Date   string `yaml:"date"`
	Status string `yaml:"status"`
}

// Send writes the digest to a timestamped markdown file in the outbox.
func (n *FileNotifier) Send(text string) error {
	stamp := n.now().UTC()
	id := "digest-" + stamp.Format("20060102-150405")

	fm := digestFrontmatter{
		ID:     id,
		Date:   stamp.Format(time.RFC3339),
		Status: "pending-review",
	}
	fmBytes, err := yaml.Marshal(fm)
	if err != nil {
		return fmt.Errorf("marshaling frontmatter: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(fmBytes)
	sb.WriteString("---\n\n")
	sb.WriteString(text)
	sb.WriteString("\n")

	path := filepath.Join(n.outboxDir, id+".md")
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("writing outbox digest: %w", err)
	}

	n.logger.Info("wrote digest to outbox", zap.String("path", path))
	return nil
}
