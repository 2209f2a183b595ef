package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/whitewolf2000ani/hiperhealth/internal/logger"
)

const (
	ExchangeName = "hiperhealth.events"
	ExchangeType = "topic"
)

// Publisher handles publishing events to RabbitMQ
type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewPublisher creates a new RabbitMQ publisher
func NewPublisher(rabbitmqURL string) (*Publisher, error) {
	conn, err := amqp.Dial(rabbitmqURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	// Topic exchange for flexible routing
	err = channel.ExchangeDeclare(
		ExchangeName, // name
		ExchangeType, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	logger.Log.WithField("exchange", ExchangeName).Info("Connected to RabbitMQ")

	return &Publisher{
		conn:     conn,
		channel:  channel,
		exchange: ExchangeName,
	}, nil
}

// Publish publishes an event to RabbitMQ with the specified routing key
func (p *Publisher) Publish(ctx context.Context, routingKey string, eventData interface{}) error {
	if p == nil || p.channel == nil {
		logger.Log.WithField("routing_key", routingKey).Warn("publisher not initialized, skipping event")
		return nil
	}

	body, err := json.Marshal(eventData)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange, // exchange
		routingKey, // routing key (e.g., "patient.created")
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			MessageId:    fmt.Sprintf("%d", time.Now().UnixNano()),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event to %s: %w", routingKey, err)
	}

	logger.Log.WithField("routing_key", routingKey).Debug("Published event")
	return nil
}

// Close closes the RabbitMQ connection
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			logger.Log.WithError(err).Error("Error closing RabbitMQ channel")
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
