// Package telemetry posts audit events to a remote collector. Delivery is
// fire-and-forget from the service's perspective: errors are reported to the
// forwarder, which logs and moves on.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aicell-lab/24agents.science/internal/audit"
)

const defaultTimeout = 5 * time.Second

// Client is an HTTP implementation of audit.Sink.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a client posting to endpoint.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

// LogEvent posts {topic, event} as JSON to the collector.
func (c *Client) LogEvent(ctx context.Context, topic string, ev audit.Event) error {
	payload, err := json.Marshal(map[string]any{
		"topic": topic,
		"event": ev,
	})
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("posting event: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("telemetry collector returned %s", resp.Status)
	}
	return nil
}
