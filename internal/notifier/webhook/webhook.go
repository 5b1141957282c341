// Package webhook implements an HTTP webhook notifier
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/newthinker/volscreen/internal/core"
	"github.com/newthinker/volscreen/internal/notifier"
)

// Webhook posts the rendered message and the structured results as JSON.
type Webhook struct {
	url     string
	headers map[string]string
	client  *http.Client
}

type payload struct {
	Text    string              `json:"text"`
	Results []core.ScreenResult `json:"results"`
}

// New creates a new Webhook notifier
func New(url string, headers map[string]string) *Webhook {
	return &Webhook{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Send(ctx context.Context, text string) (notifier.Delivery, error) {
	return w.SendMessage(ctx, notifier.Message{Text: text})
}

func (w *Webhook) SendMessage(ctx context.Context, msg notifier.Message) (notifier.Delivery, error) {
	if w.url == "" {
		return notifier.Delivery{}, core.WrapError(core.ErrConfigMissing, fmt.Errorf("webhook: url is required"))
	}

	results := msg.Results
	if results == nil {
		results = []core.ScreenResult{}
	}
	body, err := json.Marshal(payload{Text: msg.Text, Results: results})
	if err != nil {
		return notifier.Delivery{}, core.WrapError(core.ErrNotifierFailed, fmt.Errorf("webhook: failed to marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return notifier.Delivery{}, core.WrapError(core.ErrNotifierFailed, fmt.Errorf("webhook: failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return notifier.Delivery{}, core.WrapError(core.ErrNotifierFailed, fmt.Errorf("webhook: request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	d := notifier.Delivery{StatusCode: resp.StatusCode, Body: string(respBody)}
	if resp.StatusCode >= 400 {
		return d, core.WrapError(core.ErrNotifierFailed, fmt.Errorf("webhook: server returned %d", resp.StatusCode))
	}
	return d, nil
}
