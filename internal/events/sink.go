// Package events publishes transcript and order events to a message bus.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"voice-order-service/internal/models"
	"voice-order-service/internal/schema"
)

const (
	BackendKafka = "kafka"
	BackendNATS  = "nats"
	BackendNone  = "none"
)

// Sink receives the events produced when a recording stops.
type Sink interface {
	PublishTranscript(ctx context.Context, key string, event models.TranscriptEvent) error
	PublishOrder(ctx context.Context, key string, event models.OrderEvent) error
	Close() error
}

// Open builds the Sink for backend. An unknown backend is an error; "none"
// and "" return a log-only Kafka publisher.
func Open(backend string, kafkaCfg *Config, natsCfg *NATSConfig) (Sink, error) {
	switch strings.ToLower(backend) {
	case BackendKafka:
		return New(kafkaCfg), nil
	case BackendNATS:
		p, err := NewNATS(natsCfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	case BackendNone, "":
		return New(nil), nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", backend)
	}
}

// encode validates event and marshals it.
func encode(v *schema.Validator, event any) ([]byte, error) {
	if err := v.Validate(event); err != nil {
		log.Warn().Err(err).Msg("Event rejected by schema")
		return nil, err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return payload, nil
}
