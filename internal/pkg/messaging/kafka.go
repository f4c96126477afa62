package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// ErrKafkaBrokersRequired is returned when no Kafka brokers are configured.
var ErrKafkaBrokersRequired = errors.New("messaging: kafka brokers are required")

// KafkaConfig configures the Kafka implementation.
type KafkaConfig struct {
	Brokers []string
	// BatchTimeout bounds how long the writer waits to fill a batch.
	BatchTimeout time.Duration
}

// Kafka publishes with one kafka-go writer per topic.
type Kafka struct {
	brokers      []string
	batchTimeout time.Duration

	mu      sync.Mutex
	writers map[string]*kafka.Writer
	closed  bool
}

// NewKafka constructs a Kafka publisher. Connections are opened lazily.
func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrKafkaBrokersRequired
	}

	bt := cfg.BatchTimeout
	if bt <= 0 {
		bt = 10 * time.Millisecond
	}

	return &Kafka{
		brokers:      append([]string(nil), cfg.Brokers...),
		batchTimeout: bt,
		writers:      make(map[string]*kafka.Writer),
	}, nil
}

func (k *Kafka) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if destination == "" {
		return PublishResult{}, ErrDestinationRequired
	}

	w, err := k.writer(destination)
	if err != nil {
		return PublishResult{}, err
	}

	kmsg := kafka.Message{Key: msg.Key, Value: msg.Body, Time: time.Now()}
	for _, h := range msg.Headers {
		if h.Key != "" {
			kmsg.Headers = append(kmsg.Headers, kafka.Header{Key: h.Key, Value: h.Value})
		}
	}

	if err := w.WriteMessages(ctx, kmsg); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: kafka publish: %w", err)
	}

	return PublishResult{Destination: destination, Timestamp: kmsg.Time}, nil
}

func (k *Kafka) writer(topic string) (*kafka.Writer, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil, ErrClosed
	}
	if w, ok := k.writers[topic]; ok {
		return w, nil
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(k.brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           k.batchTimeout,
		AllowAutoTopicCreation: true,
	}
	k.writers[topic] = w
	return w, nil
}

// Close flushes and closes every writer.
func (k *Kafka) Close() error {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return nil
	}
	k.closed = true
	writers := k.writers
	k.writers = nil
	k.mu.Unlock()

	var errs error
	for _, w := range writers {
		errs = errors.Join(errs, w.Close())
	}
	return errs
}
