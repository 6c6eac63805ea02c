// Package trigger schedules the delayed resolution callback of a skip vote
// through QStash and authenticates the deliveries that come back.
package trigger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bwise1/skipvote_bot/internal/model"
)

const DefaultBaseURL = "https://qstash.upstash.io"

// Scheduler delivers payload to our resolve endpoint no earlier than after.
// Delivery is at least once.
type Scheduler interface {
	Schedule(ctx context.Context, after time.Duration, payload model.ResolvePayload) (string, error)
}

// QStashClient handles communication with the QStash publish API
type QStashClient struct {
	BaseURL     string
	Token       string
	CallbackURL string // where QStash delivers the payload
	Retries     int
	Client      *http.Client
}

var _ Scheduler = (*QStashClient)(nil)

func NewQStashClient(baseURL, token, callbackURL string) *QStashClient {
	if token == "" {
		slog.Warn("qstash token is empty", "component", "trigger")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &QStashClient{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Token:       token,
		CallbackURL: callbackURL,
		Retries:     3,
		Client:      &http.Client{Timeout: 10 * time.Second},
	}
}

type publishResponse struct {
	MessageID    string `json:"messageId"`
	Deduplicated bool   `json:"deduplicated,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Schedule publishes payload with an Upstash-Delay. The deduplication id is
// derived from the vote so a repeated schedule call does not queue a second job.
func (c *QStashClient) Schedule(ctx context.Context, after time.Duration, payload model.ResolvePayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v2/publish/%s", c.BaseURL, c.CallbackURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Upstash-Delay", fmt.Sprintf("%ds", int(after.Round(time.Second).Seconds())))
	req.Header.Set("Upstash-Retries", fmt.Sprintf("%d", c.Retries))
	req.Header.Set("Upstash-Deduplication-Id", fmt.Sprintf("%s-%s-%s", payload.Tenant, payload.Channel, payload.VoteID))

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var out publishResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return "", fmt.Errorf("failed to decode response: %w", err)
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("qstash API error: status %d: %s", resp.StatusCode, out.Error)
	}
	if out.MessageID == "" {
		return "", fmt.Errorf("qstash API returned no message id")
	}
	return out.MessageID, nil
}
