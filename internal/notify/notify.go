// Package notify pushes run summaries to a webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Summary is the run digest pushed after each snapshot cycle.
type Summary struct {
	RunDate string `json:"run_date"`
	Seen    int    `json:"seen"`
	New     int    `json:"new"`
	Changed int    `json:"changed"`
	Sold    int    `json:"sold"`
	Skipped int    `json:"skipped"`
	Errors  int    `json:"errors"`
}

// Notifier posts run summaries as JSON to a configured webhook. A nil
// Notifier is valid and does nothing, so callers need no enabled-check.
type Notifier struct {
	url string
	h   *http.Client
	log *slog.Logger
}

// New creates a Notifier, or nil when no webhook is configured.
func New(webhookURL string, log *slog.Logger) *Notifier {
	if webhookURL == "" {
		return nil
	}
	return &Notifier{
		url: webhookURL,
		h:   &http.Client{Timeout: 10 * time.Second},
		log: log,
	}
}

// Push sends the summary. Failures are logged, never fatal: notification is
// best effort and must not fail the run.
func (n *Notifier) Push(ctx context.Context, s Summary) {
	if n == nil {
		return
	}

	body, err := json.Marshal(s)
	if err != nil {
		n.log.Error("marshal run summary", "err", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.log.Error("build webhook request", "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.h.Do(req)
	if err != nil {
		n.log.Error("webhook push failed", "err", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		n.log.Error("webhook rejected summary", "status", resp.StatusCode, "body", string(b))
		return
	}
	n.log.Info("run summary pushed", "runDate", s.RunDate)
}

// Format renders the summary as a one-line human digest.
func (s Summary) Format() string {
	return fmt.Sprintf("%s: %d seen, %d new, %d changed, %d sold, %d skipped, %d errors",
		s.RunDate, s.Seen, s.New, s.Changed, s.Sold, s.Skipped, s.Errors)
}
