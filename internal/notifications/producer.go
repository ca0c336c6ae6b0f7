package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"busline/pkg/logger"

	"github.com/IBM/sarama"
)

// Producer publishes reservation events to the rider-reservation-list
// collaborator. Publishing is best effort: a failure is reported to the
// caller for logging but must never roll back the reservation itself.
type Producer interface {
	Publish(ctx context.Context, event *ReservationEvent) error
	Close() error
}

// KafkaProducerConfig contains configuration for the Kafka producer.
type KafkaProducerConfig struct {
	Brokers          []string
	Topic            string
	DeadLetterTopic  string
	RetryMax         int
	Timeout          time.Duration
	RequiredAcks     sarama.RequiredAcks
	IdempotentWrites bool
}

// DefaultKafkaProducerConfig returns a default producer configuration.
func DefaultKafkaProducerConfig() *KafkaProducerConfig {
	return &KafkaProducerConfig{
		Brokers:          []string{"localhost:9092"},
		Topic:            "reservation-events",
		DeadLetterTopic:  "reservation-events-dlq",
		RetryMax:         3,
		Timeout:          10 * time.Second,
		RequiredAcks:     sarama.WaitForAll,
		IdempotentWrites: true,
	}
}

// KafkaProducer publishes reservation events to Kafka.
type KafkaProducer struct {
	producer sarama.SyncProducer
	config   *KafkaProducerConfig
	log      *logger.Logger
}

// NewKafkaProducer creates a Kafka producer with idempotent writes and
// rider-keyed hash partitioning.
func NewKafkaProducer(config *KafkaProducerConfig, log *logger.Logger) (Producer, error) {
	if config == nil {
		config = DefaultKafkaProducerConfig()
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = config.RequiredAcks
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Timeout = config.Timeout
	saramaConfig.Producer.Idempotent = config.IdempotentWrites
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner
	if config.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
	}

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &KafkaProducer{
		producer: producer,
		config:   config,
		log:      log,
	}, nil
}

// Publish sends a single reservation event. On failure the event is
// re-published to the dead-letter topic so the collaborator can replay it.
func (p *KafkaProducer) Publish(ctx context.Context, event *ReservationEvent) error {
	payload, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal reservation event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic:     p.config.Topic,
		Key:       sarama.StringEncoder(event.PartitionKey()),
		Value:     sarama.ByteEncoder(payload),
		Timestamp: event.OccurredAt,
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
		},
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		p.sendToDeadLetter(message)
		return fmt.Errorf("failed to publish reservation event: %w", err)
	}

	p.log.Debug("reservation event published",
		slog.String("type", string(event.Type)),
		slog.String("rider_id", event.RiderID),
		slog.Int64("partition", int64(partition)),
		slog.Int64("offset", offset),
	)
	return nil
}

func (p *KafkaProducer) sendToDeadLetter(message *sarama.ProducerMessage) {
	if p.config.DeadLetterTopic == "" {
		return
	}
	dlq := *message
	dlq.Topic = p.config.DeadLetterTopic
	if _, _, err := p.producer.SendMessage(&dlq); err != nil {
		p.log.Error("failed to publish to dead-letter topic", slog.Any("error", err))
	}
}

func (p *KafkaProducer) Close() error {
	return p.producer.Close()
}

// LogProducer is a fallback used when no Kafka brokers are configured. It
// keeps the reservation path working in development and in tests.
type LogProducer struct {
	log *logger.Logger
}

func NewLogProducer(log *logger.Logger) Producer {
	return &LogProducer{log: log}
}

func (p *LogProducer) Publish(_ context.Context, event *ReservationEvent) error {
	p.log.Info("reservation event (kafka disabled)",
		slog.String("type", string(event.Type)),
		slog.String("reservation_id", event.ReservationID),
		slog.String("rider_id", event.RiderID),
		slog.Int("seat_number", event.SeatNumber),
		slog.String("reason", string(event.Reason)),
	)
	return nil
}

func (p *LogProducer) Close() error { return nil }
