// Package telegram delivers screener messages through the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/newthinker/volscreen/internal/core"
	"github.com/newthinker/volscreen/internal/notifier"
)

const (
	DefaultBaseURL   = "https://api.telegram.org"
	DefaultParseMode = "Markdown"
	DefaultTimeout   = 30 * time.Second
)

// Telegram implements notifier.Notifier for the Bot API sendMessage call
type Telegram struct {
	botToken  string
	chatID    string
	baseURL   string
	parseMode string
	client    *http.Client
}

// Option configures a Telegram notifier
type Option func(*Telegram)

// WithBaseURL points the notifier at another API host.
func WithBaseURL(u string) Option {
	return func(t *Telegram) {
		if u != "" {
			t.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithParseMode sets parse_mode; an empty mode sends plain text.
func WithParseMode(mode string) Option {
	return func(t *Telegram) { t.parseMode = mode }
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(t *Telegram) {
		if d > 0 {
			t.client.Timeout = d
		}
	}
}

// New creates a new Telegram notifier
func New(botToken, chatID string, opts ...Option) *Telegram {
	t := &Telegram{
		botToken:  botToken,
		chatID:    chatID,
		baseURL:   DefaultBaseURL,
		parseMode: DefaultParseMode,
		client:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Telegram) Name() string {
	return "telegram"
}

// Send posts text as a form-encoded sendMessage request.
func (t *Telegram) Send(ctx context.Context, text string) (notifier.Delivery, error) {
	if t.botToken == "" || t.chatID == "" {
		return notifier.Delivery{}, core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("telegram: bot token and chat id are required"))
	}

	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", text)
	if t.parseMode != "" {
		form.Set("parse_mode", t.parseMode)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return notifier.Delivery{}, core.WrapError(core.ErrNotifierFailed, fmt.Errorf("telegram: failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		// the token is part of the URL, keep it out of logs
		return notifier.Delivery{}, core.WrapError(core.ErrNotifierFailed,
			fmt.Errorf("telegram: failed to send message: %s", t.redact(err.Error())))
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	d := notifier.Delivery{StatusCode: resp.StatusCode, Body: string(body)}
	if !d.OK() {
		return d, core.WrapError(core.ErrNotifierFailed,
			fmt.Errorf("telegram: API error (status %d): %s", d.StatusCode, d.Body))
	}
	return d, nil
}

func (t *Telegram) redact(s string) string {
	if t.botToken == "" {
		return s
	}
	return strings.ReplaceAll(s, t.botToken, "<redacted>")
}
