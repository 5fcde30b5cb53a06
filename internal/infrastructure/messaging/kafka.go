// Package messaging relays outbox events to Kafka.
package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"fuelops/internal/infrastructure/storage/postgres"
	"fuelops/pkg/logger"
)

// KafkaPublisher implements postgres.OutboxHandler on a sarama SyncProducer.
// Messages are keyed by aggregate id so one record's events stay ordered.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

var _ postgres.OutboxHandler = (*KafkaPublisher)(nil)

// NewKafkaPublisher connects an idempotent producer to brokers.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers required")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_7_0_0
	cfg.ClientID = "fuelops-worker"
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.Backoff = 250 * time.Millisecond

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, topic), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer.
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// Handle implements postgres.OutboxHandler.
func (p *KafkaPublisher) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	out := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(msg.AggregateID.String()),
		Value: sarama.ByteEncoder(msg.Payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("message_id"), Value: []byte(msg.ID.String())},
			{Key: []byte("aggregate_type"), Value: []byte(msg.AggregateType)},
			{Key: []byte("event_type"), Value: []byte(msg.EventType)},
		},
		Timestamp: msg.CreatedAt,
	}

	partition, offset, err := p.producer.SendMessage(out)
	if err != nil {
		return fmt.Errorf("kafka publish %s: %w", msg.EventType, err)
	}

	logger.Debug(ctx, "outbox message published",
		"message_id", msg.ID,
		"topic", p.topic,
		"partition", partition,
		"offset", offset,
	)
	return nil
}

// Close flushes and closes the producer.
func (p *KafkaPublisher) Close() error {
	if p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
