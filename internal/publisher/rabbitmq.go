// Package publisher announces newly stored news items on RabbitMQ.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"steamnews/internal/domain"
)

// ActionDiscovered is the only action emitted: an item seen for the first time.
const ActionDiscovered = "discovered"

type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
	QueueName  string
}

type RabbitMQ struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	logger     *slog.Logger
	now        func() time.Time
}

// NewRabbitMQ connects and declares a durable direct exchange with one bound
// queue. QueueName may be empty when only the exchange is wanted.
func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declare(ch, cfg); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"routing_key", cfg.RoutingKey,
	)

	return &RabbitMQ{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     logger,
		now:        time.Now,
	}, nil
}

func declare(ch *amqp.Channel, cfg Config) error {
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if cfg.QueueName == "" {
		return nil
	}

	q, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

type ItemMessage struct {
	Action    string      `json:"action"`
	SourceID  int64       `json:"source_id"`
	Item      ItemPayload `json:"item"`
	Timestamp time.Time   `json:"timestamp"`
}

type ItemPayload struct {
	ID            string    `json:"gid"`
	Title         string    `json:"title"`
	URL           string    `json:"url"`
	IsExternalURL bool      `json:"is_external_url"`
	Author        string    `json:"author,omitempty"`
	FeedLabel     string    `json:"feed_label,omitempty"`
	FeedName      string    `json:"feed_name,omitempty"`
	Format        string    `json:"content_format"`
	PublishedAt   time.Time `json:"published_at"`
	NominalSource int64     `json:"nominal_source_id"`
}

func newPayload(item *domain.NewsItem) ItemPayload {
	return ItemPayload{
		ID:            item.ID,
		Title:         item.Title,
		URL:           item.URL,
		IsExternalURL: item.IsExternalURL,
		Author:        item.Author,
		FeedLabel:     item.FeedLabel,
		FeedName:      item.FeedName,
		Format:        string(item.Format),
		PublishedAt:   item.PublishedAt.UTC(),
		NominalSource: item.SourceID,
	}
}

// PublishItem announces item as discovered while fetching sourceID.
// Content is left out of the message.
func (r *RabbitMQ) PublishItem(ctx context.Context, item *domain.NewsItem, sourceID int64) error {
	now := r.now().UTC()
	msg := ItemMessage{
		Action:    ActionDiscovered,
		SourceID:  sourceID,
		Item:      newPayload(item),
		Timestamp: now,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = r.channel.PublishWithContext(ctx, r.exchange, r.routingKey, false, false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    item.ID,
			Body:         body,
			Timestamp:    now,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	r.logger.Debug("published item",
		"gid", item.ID,
		"source_id", sourceID,
	)

	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
