// Package stt defines the interface for streaming speech recognition
// sources.
package stt

import (
	"context"

	"voice-order-service/internal/service/transcript"
)

// Callback receives recognition results from a Source.
type Callback interface {
	// OnFragment is called for every interim or final result. Sequence
	// indices increase across restarts of the same Source; a result
	// redelivered after a restart repeats its original index.
	OnFragment(f transcript.Fragment)

	// OnEnd is called when the source stops without Stop being called
	// (provider stream limit, silence timeout).
	OnEnd()

	// OnError is called when recognition fails. The source has stopped.
	OnError(err error)
}

// Source is a continuous recognition stream that may end on its own and
// must then be started again by the owner.
type Source interface {
	Start(ctx context.Context, cb Callback) error
	Stop() error
}

// AudioSink is implemented by sources that are fed raw audio by the caller.
type AudioSink interface {
	SendAudio(ctx context.Context, audio []byte) error
}
