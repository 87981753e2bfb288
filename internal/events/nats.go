package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"voice-order-service/internal/models"
	"voice-order-service/internal/observability/metrics"
	"voice-order-service/internal/schema"
)

// NATSConfig holds NATS publisher configuration.
type NATSConfig struct {
	URL               string
	SubjectTranscript string
	SubjectOrder      string
	Principal         string
	ConnectTimeout    time.Duration
}

type natsConn interface {
	PublishMsg(m *nats.Msg) error
	Drain() error
}

// NATSPublisher publishes events as NATS messages with the same headers the
// Kafka publisher sets.
type NATSPublisher struct {
	conn              natsConn
	principal         string
	subjectTranscript string
	subjectOrder      string
	validator         *schema.Validator
	metrics           *metrics.Metrics
}

func NewNATS(cfg *NATSConfig) (*NATSPublisher, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, errors.New("nats url not configured")
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name("voice-order-service"),
		nats.Timeout(timeout),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	log.Info().
		Str("url", cfg.URL).
		Str("subjectTranscript", cfg.SubjectTranscript).
		Str("subjectOrder", cfg.SubjectOrder).
		Msg("NATS publisher initialized")

	return newNATSPublisher(conn, cfg), nil
}

func newNATSPublisher(conn natsConn, cfg *NATSConfig) *NATSPublisher {
	return &NATSPublisher{
		conn:              conn,
		principal:         cfg.Principal,
		subjectTranscript: cfg.SubjectTranscript,
		subjectOrder:      cfg.SubjectOrder,
		validator:         schema.New(),
		metrics:           metrics.DefaultMetrics,
	}
}

func (p *NATSPublisher) PublishTranscript(ctx context.Context, key string, event models.TranscriptEvent) error {
	if event.Principal == "" {
		event.Principal = p.principal
	}
	return p.publish(ctx, p.subjectTranscript, event.EventType, key, event)
}

func (p *NATSPublisher) PublishOrder(ctx context.Context, key string, event models.OrderEvent) error {
	if event.Principal == "" {
		event.Principal = p.principal
	}
	return p.publish(ctx, p.subjectOrder, event.EventType, key, event)
}

func (p *NATSPublisher) publish(ctx context.Context, subject, eventType, key string, event any) error {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := encode(p.validator, event)
	if err != nil {
		p.metrics.RecordPublish(BackendNATS, subject, eventType, err, time.Since(start).Seconds())
		return err
	}

	msg := nats.NewMsg(subject)
	msg.Data = payload
	msg.Header.Set("eventType", eventType)
	msg.Header.Set("principal", p.principal)
	msg.Header.Set("key", key)

	if err := p.conn.PublishMsg(msg); err != nil {
		log.Error().Err(err).Str("subject", subject).Str("key", key).Msg("Failed to publish to NATS")
		p.metrics.RecordPublish(BackendNATS, subject, eventType, err, time.Since(start).Seconds())
		return err
	}

	log.Debug().Str("subject", subject).Str("key", key).Msg("Published event")
	p.metrics.RecordPublish(BackendNATS, subject, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
