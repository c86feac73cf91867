package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Compile-time check: *RabbitPublisher must satisfy Publisher.
var _ Publisher = (*RabbitPublisher)(nil)

// RabbitPublisher publishes events as persistent JSON messages to a durable
// topic exchange, using the event type as routing key.
type RabbitPublisher struct {
	exchange string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

// NewRabbitPublisher dials the broker and declares the exchange.
func NewRabbitPublisher(amqpURL, exchange string) (*RabbitPublisher, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(exchange) == "" {
		return nil, errors.New("exchange name cannot be empty")
	}

	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	p := &RabbitPublisher{exchange: exchange, conn: conn}
	if err := p.openChannel(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	zap.L().Info("rabbitmq publisher ready", zap.String("exchange", exchange))
	return p, nil
}

// Open returns a RabbitPublisher when amqpURL is set and reachable, and Noop otherwise.
func Open(amqpURL, exchange string) Publisher {
	if strings.TrimSpace(amqpURL) == "" {
		zap.L().Info("RABBITMQ_URL not set; ledger events disabled")
		return Noop{}
	}
	publisher, err := NewRabbitPublisher(amqpURL, exchange)
	if err != nil {
		zap.L().Warn("rabbitmq unavailable; ledger events disabled", zap.Error(err))
		return Noop{}
	}
	return publisher
}

func (p *RabbitPublisher) openChannel() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}
	p.channel = ch
	return nil
}

// Publish sends event, reopening the channel once if the first attempt fails.
func (p *RabbitPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    event.RequestID.String(),
		Timestamp:    event.OccurredAt,
		Type:         event.EventType,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, event.EventType, false, false, msg)
	if err == nil {
		return nil
	}
	zap.L().Warn("publish failed; reopening channel",
		zap.String("event_type", event.EventType), zap.Error(err))
	if reopenErr := p.openChannel(); reopenErr != nil {
		return errors.Join(err, reopenErr)
	}
	return p.channel.PublishWithContext(ctx, p.exchange, event.EventType, false, false, msg)
}

// Close closes the channel and the connection.
func (p *RabbitPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}
