package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"marketplace-service/models"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler consumes one event.
type Handler func(ctx context.Context, event models.Event) error

// Producer publishes domain events to a Kafka topic, keyed by recipient so a
// user's events stay ordered within a partition.
type Producer struct {
	writer *kafka.Writer
	topic  string
	log    *zap.Logger
}

func NewProducer(brokers []string, topic string, log *zap.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return &Producer{writer: writer, topic: topic, log: log}
}

func (p *Producer) Publish(ctx context.Context, event models.Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.RecipientID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("failed to send Kafka message", zap.String("topic", p.topic), zap.String("type", event.Type), zap.Error(err))
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// Direct delivers events to a handler in-process. It stands in for Kafka
// when no brokers are configured.
type Direct struct {
	handler Handler
}

func NewDirect(handler Handler) *Direct {
	return &Direct{handler: handler}
}

func (d *Direct) Publish(ctx context.Context, event models.Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	return d.handler(ctx, event)
}
