// Package backup ships export envelopes over Kafka and restores them on the
// consuming side.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"example.com/gymstore/internal/transfer"
)

// Header names carried on backup messages.
const (
	HeaderEnvelopeVersion = "envelope_version"
	HeaderEnvelopeType    = "envelope_type"
	HeaderFailureReason   = "failure_reason"
	HeaderSourceTopic     = "source_topic"
)

// Writer is the subset of kafka.Writer used by the publisher.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithPublisherLogger sets a custom logger.
func WithPublisherLogger(l *zap.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = l }
}

// WithWriterFactory replaces the kafka.Writer constructor.
func WithWriterFactory(factory func(topic string) Writer) PublisherOption {
	return func(p *Publisher) { p.newWriter = factory }
}

// Publisher lazily manages one writer per topic.
type Publisher struct {
	brokers   []string
	mu        sync.Mutex
	writers   map[string]Writer
	newWriter func(topic string) Writer
	logger    *zap.Logger
}

// NewPublisher creates a Publisher.
func NewPublisher(brokers []string, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		brokers: brokers,
		writers: make(map[string]Writer),
		logger:  zap.NewNop(),
	}
	p.newWriter = p.kafkaWriter
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish writes env to topic keyed by a fresh message id and returns it.
func (p *Publisher) Publish(ctx context.Context, topic string, env transfer.Envelope) (string, error) {
	payload, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("encode envelope: %w", err)
	}
	id := uuid.NewString()
	msg := kafka.Message{
		Key:   []byte(id),
		Value: payload,
		Headers: []kafka.Header{
			{Key: HeaderEnvelopeVersion, Value: []byte(env.Version)},
			{Key: HeaderEnvelopeType, Value: []byte(env.Type)},
		},
	}
	if err := p.writerForTopic(topic).WriteMessages(ctx, msg); err != nil {
		return "", fmt.Errorf("publish backup to %s: %w", topic, err)
	}
	RecordPublished(topic, string(env.Type))
	p.logger.Info("backup published",
		zap.String("topic", topic),
		zap.String("message_id", id),
		zap.String("type", string(env.Type)),
		zap.Int("bytes", len(payload)),
	)
	return id, nil
}

// TopicWriter returns the shared writer for topic, for callers that forward
// raw messages such as the restore dead-letter path.
func (p *Publisher) TopicWriter(topic string) Writer {
	return p.writerForTopic(topic)
}

func (p *Publisher) writerForTopic(topic string) Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if writer, ok := p.writers[topic]; ok {
		return writer
	}
	writer := p.newWriter(topic)
	p.writers[topic] = writer
	return writer
}

func (p *Publisher) kafkaWriter(topic string) Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(p.brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		Async:        false,
	}
}

// Close releases all writers.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.writers, topic)
	}
	return firstErr
}
