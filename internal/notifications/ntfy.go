package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultRequestTimeout = 10 * time.Second

// ntfyService publishes notifications to an ntfy topic URL via plain HTTP
// POST, the shape both ntfy.sh and self-hosted ntfy servers accept.
type ntfyService struct {
	topic  string
	client *http.Client
}

func newNtfyService(topic string, timeout time.Duration) *ntfyService {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &ntfyService{
		topic:  topic,
		client: &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

func (n *ntfyService) NotifyRecordingDetected(ctx context.Context, baseName string) error {
	return n.send(ctx, payload{
		title:   "Uplink - Recording Detected",
		message: fmt.Sprintf("🎥 New recording: %s", baseName),
		tags:    []string{"uplink", "recording", "detected"},
	})
}

func (n *ntfyService) NotifyShareReady(ctx context.Context, baseName, url string) error {
	return n.send(ctx, payload{
		title:   "Uplink - Share Ready",
		message: fmt.Sprintf("✅ %s is ready to share: %s", baseName, url),
		tags:    []string{"uplink", "share", "ready"},
	})
}

func (n *ntfyService) NotifyUploadFailed(ctx context.Context, baseName string, cause error) error {
	return n.send(ctx, payload{
		title:    "Uplink - Upload Failed",
		message:  fmt.Sprintf("❌ Upload failed for %s: %v", baseName, cause),
		tags:     []string{"uplink", "upload", "failed"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	message := fmt.Sprintf("❌ Error: %v", err)
	if contextLabel != "" {
		message = fmt.Sprintf("❌ Error in %s: %v", contextLabel, err)
	}
	return n.send(ctx, payload{
		title:    "Uplink - Error",
		message:  message,
		tags:     []string{"uplink", "error"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyWatcherStarted(ctx context.Context) error {
	return n.send(ctx, payload{
		title:   "Uplink - Watching",
		message: "▶️ Watching for new recordings",
		tags:    []string{"uplink", "watcher", "started"},
	})
}

func (n *ntfyService) NotifyWatcherStopped(ctx context.Context) error {
	return n.send(ctx, payload{
		title:   "Uplink - Stopped",
		message: "⏹️ Stopped watching for recordings",
		tags:    []string{"uplink", "watcher", "stopped"},
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:   "Uplink - Test",
		message: "🧪 Test notification from uplink",
		tags:    []string{"uplink", "test"},
	})
}

func (n *ntfyService) send(ctx context.Context, p payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.topic, strings.NewReader(p.message))
	if err != nil {
		return fmt.Errorf("create notification request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if p.title != "" {
		req.Header.Set("Title", p.title)
	}
	if len(p.tags) > 0 {
		req.Header.Set("Tags", strings.Join(p.tags, ","))
	}
	if p.priority != "" {
		req.Header.Set("Priority", p.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notification rejected: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}
