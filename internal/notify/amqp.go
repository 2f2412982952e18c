package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/and161185/formsync/internal/service"
)

const publishTimeout = 5 * time.Second

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPRelay publishes every event to a fanout exchange, routed by event name.
type AMQPRelay struct {
	conn     *amqp.Connection
	ch       publisher
	exchange string
	log      *zap.Logger
}

var _ service.Notifier = (*AMQPRelay)(nil)

// DialAMQP connects to the broker and declares a durable fanout exchange.
func DialAMQP(url, exchange string, log *zap.Logger) (*AMQPRelay, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("amqp url is required")
	}
	if exchange == "" {
		exchange = "formsync.events"
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	r := newAMQPRelay(ch, exchange, log)
	r.conn = conn
	return r, nil
}

func newAMQPRelay(ch publisher, exchange string, log *zap.Logger) *AMQPRelay {
	if log == nil {
		log = zap.NewNop()
	}
	return &AMQPRelay{ch: ch, exchange: exchange, log: log.Named("amqp")}
}

// Emit publishes the event as JSON. Failures are logged, never returned.
func (r *AMQPRelay) Emit(ctx context.Context, event string, payload any) {
	body, err := json.Marshal(newMessage(event, payload))
	if err != nil {
		r.log.Error("marshal event", zap.String("event", event), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err = r.ch.PublishWithContext(ctx, r.exchange, event, false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   uuid.Must(uuid.NewV4()).String(),
		Timestamp:   time.Now().UTC(),
		Type:        event,
		Body:        body,
	})
	if err != nil {
		r.log.Warn("publish event", zap.String("event", event), zap.Error(err))
	}
}

// Close closes the broker connection.
func (r *AMQPRelay) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}
