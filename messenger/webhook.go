// Package messenger delivers analysis text to subjects.
package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"caloriebot"
	"caloriebot/retry"
)

type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// WebhookClient posts messages to a chat webhook.
type WebhookClient struct {
	webhookURL string
	httpClient doer
	retry      *retry.Executor
}

type Option func(*WebhookClient)

func WithRetry(e *retry.Executor) Option {
	return func(c *WebhookClient) { c.retry = e }
}

func NewWebhookClient(webhookURL string, httpClient doer, opts ...Option) *WebhookClient {
	c := &WebhookClient{
		webhookURL: webhookURL,
		httpClient: httpClient,
		retry:      retry.New("messenger"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendMessage posts text for subjectID, retrying transient failures.
func (c *WebhookClient) SendMessage(ctx context.Context, subjectID string, text string) error {
	payload, err := json.Marshal(map[string]any{
		"subject_id": subjectID,
		"text":       text,
	})
	if err != nil {
		return err
	}

	return c.retry.Run(ctx, func(ctx context.Context) error {
		return c.post(ctx, payload)
	})
}

func (c *WebhookClient) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return caloriebot.NewStatusError("post message", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	return nil
}

// WriterMessenger prints messages to w. The CLI uses it when no webhook is set.
type WriterMessenger struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterMessenger(w io.Writer) *WriterMessenger {
	return &WriterMessenger{w: w}
}

func (m *WriterMessenger) SendMessage(ctx context.Context, subjectID string, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := fmt.Fprintf(m.w, "[%s]\n%s\n\n", subjectID, text)
	return err
}
