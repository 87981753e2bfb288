package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"github.com/tidwall/gjson"

	"voice-order-service/internal/models"
)

// Event is one published message as shown in the browser.
type Event struct {
	Topic      string          `json:"topic"`
	EventType  string          `json:"eventType"`
	SessionID  string          `json:"sessionId"`
	Summary    string          `json:"summary"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"receivedAt"`
}

// Decode builds an Event from a raw message value.
func Decode(topic string, value []byte) (Event, error) {
	if !gjson.ValidBytes(value) {
		return Event{}, errors.New("message is not valid JSON")
	}
	doc := gjson.ParseBytes(value)
	ev := Event{
		Topic:      topic,
		EventType:  doc.Get("eventType").String(),
		SessionID:  doc.Get("sessionId").String(),
		Payload:    json.RawMessage(value),
		ReceivedAt: time.Now().UTC(),
	}

	switch ev.EventType {
	case models.EventTypeTranscript:
		ev.Summary = truncate(doc.Get("cleanedText").String(), 120)
	case models.EventTypeOrder:
		items := doc.Get("categories.#.items.#").Array()
		n := 0
		for _, c := range items {
			n += int(c.Int())
		}
		ev.Summary = fmt.Sprintf("%d categories, %d items", len(items), n)
	default:
		return Event{}, fmt.Errorf("unknown event type %q", ev.EventType)
	}
	return ev, nil
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// NewReader reads partition 0 of topic without a consumer group,
// starting at messages newer than since.
func NewReader(ctx context.Context, brokers []string, topic string, since time.Duration) *kafka.Reader {
	// Use partition reader without consumer group (works better through port-forward)
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	if since > 0 {
		if err := reader.SetOffsetAt(ctx, time.Now().Add(-since)); err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("Could not seek by time, reading from start")
		}
	}
	return reader
}

// Consume forwards every decodable message from r to hub until ctx is
// done. Read errors are retried after retryDelay.
func Consume(ctx context.Context, topic string, r MessageReader, hub *Hub, retryDelay time.Duration) error {
	defer r.Close()
	logger := log.With().Str("topic", topic).Logger()
	logger.Info().Msg("Consuming events")

	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn().Err(err).Msg("Kafka read error")
			select {
			case <-time.After(retryDelay):
				continue
			case <-ctx.Done():
				return nil
			}
		}

		ev, err := Decode(topic, msg.Value)
		if err != nil {
			logger.Debug().Err(err).Msg("Skipping message")
			continue
		}
		logger.Debug().
			Str("eventType", ev.EventType).
			Str("sessionId", ev.SessionID).
			Str("summary", ev.Summary).
			Msg("Received event")

		if err := hub.Publish(ctx, ev); err != nil {
			return nil
		}
	}
}
