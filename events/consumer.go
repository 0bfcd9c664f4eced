package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"newsmint/logger"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// consumeRetryDelay is the pause before rejoining the group after a failed session
const consumeRetryDelay = 2 * time.Second

// MessageHandler processes one consumed message.
// When shouldMark is false the offset is left uncommitted so the message is redelivered.
type MessageHandler interface {
	HandleMessage(ctx context.Context, message []byte) (shouldMark bool, err error)
}

// ConsumerConfig holds Kafka consumer configuration
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	Handler MessageHandler
	Logger  *zap.Logger
}

// Consumer reads one topic as part of a consumer group
type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
	topic   string
	groupID string
	log     *zap.Logger
	retry   time.Duration

	ready    chan struct{}
	readyOne sync.Once
	started  atomic.Bool
	done     chan struct{}
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(cfg ConsumerConfig) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_6_0_0
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, err
	}
	return newConsumer(group, cfg), nil
}

func newConsumer(group sarama.ConsumerGroup, cfg ConsumerConfig) *Consumer {
	return &Consumer{
		group:   group,
		handler: cfg.Handler,
		topic:   cfg.Topic,
		groupID: cfg.GroupID,
		log:     logger.OrNop(cfg.Logger),
		retry:   consumeRetryDelay,
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start joins the group and consumes in the background until ctx is cancelled.
// It returns once the first session is set up or ctx ends.
func (c *Consumer) Start(ctx context.Context) error {
	gh := &groupHandler{consumer: c}
	c.started.Store(true)

	go func() {
		defer close(c.done)
		for {
			if err := c.group.Consume(ctx, []string{c.topic}, gh); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) || errors.Is(err, context.Canceled) {
					return
				}
				c.log.Error("kafka consume failed", zap.String("topic", c.topic), zap.Error(err))
				select {
				case <-time.After(c.retry):
				case <-ctx.Done():
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	go func() {
		for err := range c.group.Errors() {
			c.log.Error("kafka consumer error", zap.Error(err))
		}
	}()

	select {
	case <-c.ready:
		c.log.Info("kafka consumer started", zap.String("group", c.groupID), zap.String("topic", c.topic))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close leaves the group and waits for the consume loop to exit
func (c *Consumer) Close() error {
	c.log.Info("closing kafka consumer", zap.String("topic", c.topic))
	err := c.group.Close()
	if c.started.Load() {
		<-c.done
	}
	return err
}

// groupHandler implements sarama.ConsumerGroupHandler
type groupHandler struct {
	consumer *Consumer
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.consumer.readyOne.Do(func() { close(h.consumer.ready) })
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	c := h.consumer
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			c.log.Debug("received kafka message",
				zap.Int32("partition", message.Partition),
				zap.Int64("offset", message.Offset),
				zap.ByteString("key", message.Key))

			shouldMark, err := c.handler.HandleMessage(session.Context(), message.Value)
			if err != nil {
				c.log.Error("failed to handle message", zap.Int64("offset", message.Offset), zap.Error(err))
			}
			if shouldMark {
				session.MarkMessage(message, "")
			}

		case <-session.Context().Done():
			return nil
		}
	}
}

// TypedMessageHandler decodes JSON messages into T before processing them
type TypedMessageHandler[T any] struct {
	// Validate reports whether the decoded message should be processed
	Validate func(msg *T) bool
	Process  func(ctx context.Context, msg *T) error
	// AlwaysMark marks undecodable or invalid messages so they are skipped
	AlwaysMark bool
}

// HandleMessage implements MessageHandler
func (h *TypedMessageHandler[T]) HandleMessage(ctx context.Context, message []byte) (bool, error) {
	var msg T
	if err := json.Unmarshal(message, &msg); err != nil {
		return h.AlwaysMark, nil
	}

	if h.Validate != nil && !h.Validate(&msg) {
		return h.AlwaysMark, nil
	}

	if err := h.Process(ctx, &msg); err != nil {
		return false, err
	}
	return true, nil
}
