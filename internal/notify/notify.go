// Package notify queues best-effort email notifications on a message
// broker so delivery happens outside the request path. The API server
// publishes rendered messages; the notifier command consumes them and
// drives the SMTP sender.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cortexa-ai/apiserver/config"
	"github.com/cortexa-ai/apiserver/internal/mailer"
	"github.com/rs/zerolog"
)

// Delivery represents a broker-agnostic payload delivered to subscribers.
type Delivery struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a delivery. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, d Delivery) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// NewBackend constructs the broker selected by the config.
func NewBackend(ctx context.Context, cfg config.BrokerConfig) (Backend, error) {
	switch cfg.Driver {
	case "rabbitmq":
		return NewRabbitMQBackend(cfg.RabbitMQ)
	case "pubsub":
		return NewPubSubBackend(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unsupported notification broker: %q", cfg.Driver)
	}
}

// Publisher queues messages instead of sending them inline. It satisfies
// mailer.Sender, so services stay unaware of whether mail is queued.
type Publisher struct {
	backend Backend
	channel string
}

func NewPublisher(backend Backend, channel string) *Publisher {
	return &Publisher{backend: backend, channel: channel}
}

func (p *Publisher) Send(ctx context.Context, msg mailer.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	_, err = p.backend.Publish(ctx, p.channel, data, map[string]string{"content-type": "application/json"})
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Worker consumes queued notifications and delivers them with the sender.
type Worker struct {
	backend Backend
	channel string
	sender  mailer.Sender
	log     zerolog.Logger
}

func NewWorker(backend Backend, channel string, sender mailer.Sender, log zerolog.Logger) *Worker {
	return &Worker{backend: backend, channel: channel, sender: sender, log: log}
}

// Run blocks consuming the channel until the context is cancelled or the
// subscription fails.
func (w *Worker) Run(ctx context.Context) error {
	return w.backend.Subscribe(ctx, w.channel, w.handle)
}

func (w *Worker) handle(ctx context.Context, d Delivery) error {
	var msg mailer.Message
	if err := json.Unmarshal(d.Data, &msg); err != nil {
		// Undecodable payloads would redeliver forever; drop them.
		w.log.Error().Err(err).Str("delivery_id", d.ID).Msg("dropping malformed notification")
		return nil
	}

	if err := w.sender.Send(ctx, msg); err != nil {
		w.log.Error().Err(err).Str("to", msg.To).Str("subject", msg.Subject).Msg("failed to deliver notification")
		return err
	}

	w.log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("notification delivered")
	return nil
}
