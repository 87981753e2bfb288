package events

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"voice-order-service/internal/models"
	"voice-order-service/internal/observability/metrics"
	"voice-order-service/internal/schema"
)

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher publishes transcript and order events to separate Kafka topics.
type Publisher struct {
	writerTranscript messageWriter
	writerOrder      messageWriter
	principal        string
	topicTranscript  string
	topicOrder       string
	enabled          bool
	validator        *schema.Validator
	metrics          *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers         []string
	TopicTranscript string
	TopicOrder      string
	Principal       string
	Enabled         bool
}

// New creates a Kafka publisher. A nil config, Enabled=false or no brokers
// gives a publisher that only logs.
func New(cfg *Config) *Publisher {
	p := &Publisher{
		validator: schema.New(),
		metrics:   metrics.DefaultMetrics,
	}

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return p
	}

	p.principal = cfg.Principal
	p.topicTranscript = cfg.TopicTranscript
	p.topicOrder = cfg.TopicOrder

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return p
	}

	// Longer dial timeout for DNS resolution inside Kubernetes.
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	p.writerTranscript = newWriter(cfg.Brokers, cfg.TopicTranscript, transport)
	p.writerOrder = newWriter(cfg.Brokers, cfg.TopicOrder, transport)
	p.enabled = true

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicTranscript", cfg.TopicTranscript).
		Str("topicOrder", cfg.TopicOrder).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return p
}

func newWriter(brokers []string, topic string, transport *kafka.Transport) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}
}

// PublishTranscript publishes to the transcript topic, keyed by session.
func (p *Publisher) PublishTranscript(ctx context.Context, key string, event models.TranscriptEvent) error {
	if event.Principal == "" {
		event.Principal = p.principal
	}
	return p.publish(ctx, p.writerTranscript, p.topicTranscript, event.EventType, key, event)
}

// PublishOrder publishes to the order topic, keyed by session.
func (p *Publisher) PublishOrder(ctx context.Context, key string, event models.OrderEvent) error {
	if event.Principal == "" {
		event.Principal = p.principal
	}
	return p.publish(ctx, p.writerOrder, p.topicOrder, event.EventType, key, event)
}

func (p *Publisher) publish(ctx context.Context, writer messageWriter, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := encode(p.validator, event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to encode event")
		p.metrics.RecordPublish(BackendKafka, topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || writer == nil {
		p.metrics.RecordPublish(BackendNone, topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordPublish(BackendKafka, topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordPublish(BackendKafka, topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerTranscript != nil {
		if e := p.writerTranscript.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing transcript writer")
			err = e
		}
	}
	if p.writerOrder != nil {
		if e := p.writerOrder.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing order writer")
			err = e
		}
	}
	return err
}
