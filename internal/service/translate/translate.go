// Package translate hands cleaned transcript text to an external
// translation service.
package translate

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"voice-order-service/internal/service/language"
)

var (
	// ErrRateLimited is returned when the service rejects the request with
	// HTTP 429. Callers should retry later.
	ErrRateLimited = errors.New("translation rate limited")

	// ErrEmptyTranslation is returned when the service answers without any
	// translated segment.
	ErrEmptyTranslation = errors.New("no translation returned")
)

// Translator translates text from src to dst.
type Translator interface {
	Translate(ctx context.Context, text string, src, dst language.Tag) (string, error)
}

// StatusError is a non-2xx response other than 429.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("translation request failed with status %d: %s", e.Code, e.Body)
}

// Func adapts a function to Translator.
type Func func(ctx context.Context, text string, src, dst language.Tag) (string, error)

func (f Func) Translate(ctx context.Context, text string, src, dst language.Tag) (string, error) {
	return f(ctx, text, src, dst)
}

// KeyRing hands out API keys round-robin. The zero value and a ring
// without keys return "".
type KeyRing struct {
	keys []string
	next atomic.Uint64
}

func NewKeyRing(keys ...string) *KeyRing {
	kr := &KeyRing{}
	for _, k := range keys {
		if k != "" {
			kr.keys = append(kr.keys, k)
		}
	}
	return kr
}

// Next returns the next key.
func (kr *KeyRing) Next() string {
	if kr == nil || len(kr.keys) == 0 {
		return ""
	}
	n := kr.next.Add(1) - 1
	return kr.keys[n%uint64(len(kr.keys))]
}

// Len returns the number of keys.
func (kr *KeyRing) Len() int {
	if kr == nil {
		return 0
	}
	return len(kr.keys)
}

func checkLanguages(src, dst language.Tag) error {
	for _, t := range []language.Tag{src, dst} {
		if !t.Valid() {
			return &language.UnsupportedLanguageError{Value: t.String()}
		}
	}
	return nil
}
