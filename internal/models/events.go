// Package models defines the data structures for published events.
package models

import (
	"voice-order-service/internal/service/order"
)

const (
	EventTypeTranscript = "voice.transcript.cleaned"
	EventTypeOrder      = "voice.order.extracted"
)

// TranscriptEvent is published when a recording stops.
type TranscriptEvent struct {
	EventType   string `json:"eventType"`
	SessionID   string `json:"sessionId"`
	RecordingID string `json:"recordingId"`
	Principal   string `json:"principal,omitempty"`
	Timestamp   int64  `json:"timestamp"`
	Language    string `json:"language"`
	RawText     string `json:"rawText"`
	CleanedText string `json:"cleanedText"`
	Fragments   int    `json:"fragments"`
	Stale       int    `json:"staleFragments"`
}

// OrderEvent is published when a stopped recording yields a non-empty order.
type OrderEvent struct {
	EventType   string           `json:"eventType"`
	SessionID   string           `json:"sessionId"`
	RecordingID string           `json:"recordingId"`
	Principal   string           `json:"principal,omitempty"`
	Timestamp   int64            `json:"timestamp"`
	Language    string           `json:"language"`
	Strategy    string           `json:"strategy"`
	Categories  []order.Category `json:"categories"`
	Rendered    string           `json:"rendered"`
}
