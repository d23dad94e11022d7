// Package notify delivers plain-text email through a pluggable transport.
package notify

import (
	"context"
	"errors"

	"github.com/spec-kit/suggestion-box/internal/observability"
)

// ErrNoRecipients is returned when a message has no To addresses.
var ErrNoRecipients = errors.New("notify: message has no recipients")

// Message is a rendered plain-text email.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Notifier sends a single message.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

type instrumented struct {
	next      Notifier
	transport string
	metrics   *observability.Metrics
}

// Instrument counts every send made through n under the transport label.
func Instrument(n Notifier, transport string, metrics *observability.Metrics) Notifier {
	return &instrumented{next: n, transport: transport, metrics: metrics}
}

func (i *instrumented) Send(ctx context.Context, msg Message) error {
	err := i.next.Send(ctx, msg)
	i.metrics.RecordMailSend(i.transport, err)
	return err
}

func validate(msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	for _, to := range msg.To {
		if to == "" {
			return ErrNoRecipients
		}
	}
	return nil
}
