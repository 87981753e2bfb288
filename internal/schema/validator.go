// Package schema checks outgoing events against the invariants consumers
// rely on before they are published.
package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"voice-order-service/internal/models"
	"voice-order-service/internal/service/language"
	"voice-order-service/internal/service/segment"
)

// ErrInvalidEvent matches any *ValidationError.
var ErrInvalidEvent = errors.New("invalid event")

var (
	dimensionPattern = regexp.MustCompile(`^\d+x\d+$`)
	quantityPattern  = regexp.MustCompile(`^\d+(?:\.\d+)? \S+$`)
)

// ValidationError lists every problem found in one event.
type ValidationError struct {
	EventType string
	Problems  []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s event: %s", e.EventType, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidEvent
}

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate accepts models.TranscriptEvent and models.OrderEvent, by value
// or pointer.
func (v *Validator) Validate(event any) error {
	var problems []string
	var eventType string

	switch ev := event.(type) {
	case models.TranscriptEvent:
		eventType, problems = ev.EventType, validateTranscript(&ev)
	case *models.TranscriptEvent:
		eventType, problems = ev.EventType, validateTranscript(ev)
	case models.OrderEvent:
		eventType, problems = ev.EventType, validateOrder(&ev)
	case *models.OrderEvent:
		eventType, problems = ev.EventType, validateOrder(ev)
	default:
		return &ValidationError{EventType: fmt.Sprintf("%T", event), Problems: []string{"unsupported event type"}}
	}

	if len(problems) > 0 {
		return &ValidationError{EventType: eventType, Problems: problems}
	}
	log.Debug().Str("eventType", eventType).Msg("Schema validated")
	return nil
}

func validateEnvelope(eventType, want, sessionID, recordingID, lang string, ts int64) []string {
	var p []string
	if eventType != want {
		p = append(p, fmt.Sprintf("eventType %q, want %q", eventType, want))
	}
	if sessionID == "" {
		p = append(p, "sessionId is empty")
	}
	if recordingID == "" {
		p = append(p, "recordingId is empty")
	} else if owner, _, err := segment.Parse(recordingID); err != nil {
		p = append(p, err.Error())
	} else if sessionID != "" && owner != sessionID {
		p = append(p, fmt.Sprintf("recordingId %q belongs to session %q", recordingID, owner))
	}
	if ts <= 0 {
		p = append(p, "timestamp not set")
	}
	if _, err := language.ParseTag(lang); err != nil {
		p = append(p, err.Error())
	}
	return p
}

func validateTranscript(ev *models.TranscriptEvent) []string {
	return validateEnvelope(ev.EventType, models.EventTypeTranscript, ev.SessionID, ev.RecordingID, ev.Language, ev.Timestamp)
}

func validateOrder(ev *models.OrderEvent) []string {
	p := validateEnvelope(ev.EventType, models.EventTypeOrder, ev.SessionID, ev.RecordingID, ev.Language, ev.Timestamp)
	if len(ev.Categories) == 0 {
		p = append(p, "order has no categories")
	}
	for _, c := range ev.Categories {
		if strings.TrimSpace(c.Name) == "" {
			p = append(p, "category name is empty")
		}
		if len(c.Items) == 0 {
			p = append(p, fmt.Sprintf("category %q has no items", c.Name))
		}
		for _, it := range c.Items {
			if !dimensionPattern.MatchString(it.Dimension) {
				p = append(p, fmt.Sprintf("category %q: bad dimension %q", c.Name, it.Dimension))
			}
			if !quantityPattern.MatchString(it.Quantity) {
				p = append(p, fmt.Sprintf("category %q: quantity %q has no unit", c.Name, it.Quantity))
			}
		}
	}
	return p
}
