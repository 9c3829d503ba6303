package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"marketplace-service/models"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Consumer reads domain events from Kafka and hands them to a Handler.
type Consumer struct {
	reader  *kafka.Reader
	handler Handler
	log     *zap.Logger
}

func NewConsumer(brokers []string, topic, groupID string, handler Handler, log *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 1e6, // 1MB
		MaxWait:  time.Second,
	})
	return &Consumer{reader: r, handler: handler, log: log}
}

// Run consumes until ctx is cancelled. Offsets are committed after the
// handler returns, successful or not; a failing event is logged and skipped.
func (c *Consumer) Run(ctx context.Context) {
	c.log.Info("Kafka consumer started", zap.String("topic", c.reader.Config().Topic))
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.log.Info("Kafka consumer shutting down")
				return
			}
			c.log.Error("failed to read Kafka message", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		if err := Dispatch(ctx, m.Value, c.handler); err != nil {
			c.log.Error("failed to process event", zap.Int64("offset", m.Offset), zap.Error(err))
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil && !errors.Is(err, context.Canceled) {
			c.log.Error("failed to commit Kafka offset", zap.Error(err))
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// Dispatch decodes one payload and passes it to handler.
func Dispatch(ctx context.Context, payload []byte, handler Handler) error {
	var event models.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return err
	}
	if event.Type == "" || event.RecipientID == "" {
		return errors.New("event missing type or recipient")
	}
	return handler(ctx, event)
}
