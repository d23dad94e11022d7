// Package notifytest provides an in-memory Notifier for tests.
package notifytest

import (
	"context"
	"sync"

	"github.com/spec-kit/suggestion-box/internal/notify"
)

// Recorder keeps every message it is asked to send. Err, when set, is
// returned from Send after the message is recorded.
type Recorder struct {
	mu   sync.Mutex
	msgs []notify.Message
	Err  error
}

func (r *Recorder) Send(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return r.Err
}

// Messages returns a copy of the recorded messages in send order.
func (r *Recorder) Messages() []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Message(nil), r.msgs...)
}

// To returns the messages addressed to addr.
func (r *Recorder) To(addr string) []notify.Message {
	var out []notify.Message
	for _, m := range r.Messages() {
		for _, to := range m.To {
			if to == addr {
				out = append(out, m)
				break
			}
		}
	}
	return out
}
