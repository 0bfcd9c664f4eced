package events

import (
	"context"
	"encoding/json"
	"fmt"

	"newsmint/logger"
	"newsmint/types"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// Producer publishes article lifecycle events to a Kafka topic
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	log      *zap.Logger
}

// NewProducer connects a synchronous producer to brokers
func NewProducer(brokers []string, topic string, log *zap.Logger) (*Producer, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true

	sp, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewProducerWith(sp, topic, log), nil
}

// NewProducerWith wraps an existing sarama producer
func NewProducerWith(sp sarama.SyncProducer, topic string, log *zap.Logger) *Producer {
	return &Producer{producer: sp, topic: topic, log: logger.OrNop(log)}
}

// Publish sends event keyed by article id so events of one article stay ordered
func (p *Producer) Publish(ctx context.Context, event types.ArticleEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.ArticleID),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(event.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}

	p.log.Debug("published article event",
		zap.String("type", event.Type),
		zap.String("article_id", event.ArticleID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

// Close flushes and closes the producer
func (p *Producer) Close() error {
	return p.producer.Close()
}
