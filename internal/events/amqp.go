package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/joseph-ayodele/clinical-docs/internal/common"
)

const contentTypeJSON = "application/json"

// channel is the subset of *amqp.Channel the publisher needs.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes events as persistent JSON messages to a topic exchange.
// Processed documents use the configured routing key; other events route by type.
type AMQPPublisher struct {
	conn       *amqp.Connection
	ch         channel
	exchange   string
	routingKey string
	log        *slog.Logger
}

var _ Publisher = (*AMQPPublisher)(nil)

// DialAMQP connects, opens a channel and declares the exchange.
func DialAMQP(cfg common.EventsConfig, logger *slog.Logger) (*AMQPPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		logger.Error("events.amqp.dial_error", "error", err)
		return nil, common.NewAppError("EVENTS_ERROR", "dial amqp", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		logger.Error("events.amqp.channel_error", "error", err)
		return nil, common.NewAppError("EVENTS_ERROR", "open channel", err)
	}
	p, err := newAMQPPublisher(ch, cfg.Exchange, cfg.RoutingKey, logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	logger.Info("events.amqp.connected", "exchange", cfg.Exchange)
	return p, nil
}

func newAMQPPublisher(ch channel, exchange, routingKey string, logger *slog.Logger) (*AMQPPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, common.NewAppError("EVENTS_ERROR", "declare exchange "+exchange, err)
	}
	return &AMQPPublisher{ch: ch, exchange: exchange, routingKey: routingKey, log: logger}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event DocumentEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	key := event.Type
	if event.Type == TypeDocumentProcessed && p.routingKey != "" {
		key = p.routingKey
	}
	msg := amqp.Publishing{
		ContentType:  contentTypeJSON,
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Type:         event.Type,
		Headers: amqp.Table{
			"message_type": "JSON",
			"subject_id":   event.SubjectID,
		},
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, key, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	p.log.Debug("events.amqp.published", "type", event.Type, "routing_key", key, "locator", event.Locator)
	return nil
}

func (p *AMQPPublisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
