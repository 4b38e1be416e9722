package backup

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Reader describes the kafka.Reader functions the processor interacts with.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler processes decoded backup messages.
type Handler interface {
	Handle(context.Context, Message) error
}

// Message represents a decoded Kafka record.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Payload   json.RawMessage
	Timestamp time.Time
	Headers   map[string]string
}

// Importer restores an envelope.
type Importer interface {
	Import(raw []byte) error
}

// RestoreHandler imports every message payload as an envelope.
type RestoreHandler struct {
	Importer Importer
}

// Handle implements Handler.
func (h RestoreHandler) Handle(_ context.Context, msg Message) error {
	return h.Importer.Import(msg.Payload)
}

// Option configures processor behaviour.
type Option func(*Processor)

// WithLogger sets a custom logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// WithDeadLetter forwards messages whose handler failed to w, tagged with
// the failure reason, before they are committed.
func WithDeadLetter(w Writer) Option {
	return func(p *Processor) { p.deadLetter = w }
}

// Processor coordinates the consumer loop.
type Processor struct {
	reader     Reader
	handler    Handler
	deadLetter Writer
	logger     *zap.Logger
}

// NewProcessor constructs a processor from a reader/handler pair.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{reader: reader, handler: handler, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run consumes messages until ctx cancellation. A message whose handler
// fails is still committed so one bad envelope cannot stall the topic.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			p.logger.Warn("fetch error", zap.Error(err))
			continue
		}

		decoded := Message{
			Topic:     msg.Topic,
			Partition: msg.Partition,
			Offset:    msg.Offset,
			Key:       msg.Key,
			Payload:   append(json.RawMessage{}, msg.Value...),
			Timestamp: msg.Time,
			Headers:   make(map[string]string, len(msg.Headers)),
		}
		for _, header := range msg.Headers {
			decoded.Headers[header.Key] = string(header.Value)
		}

		fields := []zap.Field{
			zap.String("topic", msg.Topic),
			zap.Int64("offset", msg.Offset),
			zap.ByteString("key", msg.Key),
		}
		if err := p.handler.Handle(ctx, decoded); err != nil {
			RecordRestoreFailed(decoded)
			p.logger.Error("handler error", append(fields, zap.Error(err))...)
			p.forwardDeadLetter(ctx, msg, err, fields)
		} else {
			RecordRestored(decoded)
			p.logger.Info("processed", fields...)
		}

		if err := p.reader.CommitMessages(ctx, msg); err != nil {
			p.logger.Warn("commit error", zap.Error(err))
		}
	}
}

func (p *Processor) forwardDeadLetter(ctx context.Context, msg kafka.Message, cause error, fields []zap.Field) {
	if p.deadLetter == nil {
		return
	}
	headers := append([]kafka.Header{}, msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: HeaderFailureReason, Value: []byte(cause.Error())},
		kafka.Header{Key: HeaderSourceTopic, Value: []byte(msg.Topic)},
	)
	dead := kafka.Message{Key: msg.Key, Value: msg.Value, Headers: headers}
	if err := p.deadLetter.WriteMessages(ctx, dead); err != nil {
		p.logger.Error("dead letter write failed", append(fields, zap.Error(err))...)
		return
	}
	RecordDeadLettered(msg.Topic)
}
