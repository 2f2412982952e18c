// Package notify delivers domain events to live subscribers: websocket clients,
// an optional AMQP exchange and a scheduled sync broadcast.
package notify

import (
	"context"
	"time"

	"github.com/and161185/formsync/internal/service"
)

// Message is the envelope written to every subscriber.
type Message struct {
	Event  string    `json:"event"`
	Data   any       `json:"data"`
	SentAt time.Time `json:"sentAt"`
}

func newMessage(event string, payload any) Message {
	return Message{Event: event, Data: payload, SentAt: time.Now().UTC()}
}

// Fanout forwards every event to each notifier in order.
type Fanout []service.Notifier

var _ service.Notifier = Fanout(nil)

// Emit implements service.Notifier.
func (f Fanout) Emit(ctx context.Context, event string, payload any) {
	for _, n := range f {
		if n != nil {
			n.Emit(ctx, event, payload)
		}
	}
}
