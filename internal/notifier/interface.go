package notifier

import (
	"context"

	"github.com/newthinker/volscreen/internal/core"
)

// Delivery is what the remote endpoint answered.
type Delivery struct {
	StatusCode int
	Body       string
}

// OK reports whether the endpoint accepted the message.
func (d Delivery) OK() bool {
	return d.StatusCode >= 200 && d.StatusCode < 300
}

// Message is one rendered screener run.
type Message struct {
	Text    string
	Results []core.ScreenResult
}

// Notifier delivers a rendered text message to one destination.
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Send posts text and reports the endpoint's answer
	Send(ctx context.Context, text string) (Delivery, error)
}

// MessageSender is implemented by notifiers that can carry the structured
// results alongside the text.
type MessageSender interface {
	SendMessage(ctx context.Context, msg Message) (Delivery, error)
}
