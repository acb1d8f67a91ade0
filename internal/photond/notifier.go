package photond

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lumen-phi/photonic-core/pkg/logger"
	"github.com/lumen-phi/photonic-core/pkg/models"
	"github.com/lumen-phi/photonic-core/pkg/utils"
)

// NotificationPayload is the JSON body POSTed to the callback URL when a
// run reaches a terminal status.
type NotificationPayload struct {
	RunID           string           `json:"run_id"`
	Kind            models.RunKind   `json:"kind"`
	Status          models.RunStatus `json:"status"`
	CreatedAtUnixMs int64            `json:"created_at_unix_ms"`
	StartedAtUnixMs int64            `json:"started_at_unix_ms,omitempty"`
	EndedAtUnixMs   int64            `json:"ended_at_unix_ms,omitempty"`
	Error           string           `json:"error,omitempty"`
	Timestamp       int64            `json:"timestamp"` // when the notification was sent
}

// Notifier delivers terminal-status callbacks.
type Notifier struct {
	httpClient *http.Client
	maxRetries int
	backoff    utils.BackoffStrategy
}

func NewNotifier() *Notifier {
	return &Notifier{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxRetries: 3,
		backoff:    utils.NewExponentialBackoff(1*time.Second, 8*time.Second, 2.0, false),
	}
}

// Notify sends a notification to the callback URL asynchronously and
// returns immediately. A {run_id} template in the URL is replaced with the
// run's ID.
func (n *Notifier) Notify(callbackURL string, callbackSecret string, run *models.Run) {
	if callbackURL == "" {
		return
	}
	if run == nil {
		logger.Warn("cannot notify: nil run", "callback_url", callbackURL)
		return
	}

	finalURL := strings.ReplaceAll(callbackURL, "{run_id}", run.ID)

	payload := NotificationPayload{
		RunID:           run.ID,
		Kind:            run.Kind,
		Status:          run.Status,
		CreatedAtUnixMs: run.CreatedAtUnixMs,
		StartedAtUnixMs: run.StartedAtUnixMs,
		EndedAtUnixMs:   run.EndedAtUnixMs,
		Error:           run.Error,
		Timestamp:       time.Now().UTC().UnixMilli(),
	}

	go n.sendNotification(finalURL, callbackSecret, payload)
}

// sendNotification performs the HTTP POST with retries.
func (n *Notifier) sendNotification(callbackURL string, callbackSecret string, payload NotificationPayload) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to marshal notification payload",
			"callback_url", callbackURL,
			"run_id", payload.RunID,
			"error", err)
		return
	}

	var lastErr error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		if attempt > 0 {
			delay := n.backoff.NextDelay(attempt - 1)
			logger.Debug("retrying notification",
				"callback_url", callbackURL,
				"run_id", payload.RunID,
				"attempt", attempt,
				"delay", delay)
			time.Sleep(delay)
		}

		req, err := http.NewRequest("POST", callbackURL, bytes.NewReader(payloadJSON))
		if err != nil {
			lastErr = fmt.Errorf("failed to create request: %w", err)
			continue
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "photonic-core/1.0")
		if callbackSecret != "" {
			req.Header.Set("X-Photonic-Callback-Secret", callbackSecret)
		}

		resp, err := n.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed: %w", err)
			logger.Warn("notification attempt failed",
				"callback_url", callbackURL,
				"run_id", payload.RunID,
				"attempt", attempt+1,
				"error", err)
			continue
		}

		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		responseBody := string(bodyBytes)
		if len(responseBody) > 200 {
			responseBody = responseBody[:200] + "..."
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			logger.Info("notification sent",
				"run_id", payload.RunID,
				"status", string(payload.Status),
				"status_code", resp.StatusCode)
			return
		}

		lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		logger.Warn("notification returned non-2xx status",
			"callback_url", callbackURL,
			"run_id", payload.RunID,
			"status_code", resp.StatusCode,
			"response_body", responseBody,
			"attempt", attempt+1)
	}

	logger.Error("failed to send notification after retries",
		"callback_url", callbackURL,
		"run_id", payload.RunID,
		"status", string(payload.Status),
		"max_retries", n.maxRetries,
		"last_error", lastErr)
}
