// Package pipeline coordinates one recording session: fragments flow into
// the transcript accumulator, every final result triggers a clean and
// extract pass, and stopping a recording publishes events and starts the
// translation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"voice-order-service/internal/events"
	"voice-order-service/internal/models"
	"voice-order-service/internal/observability/logging"
	"voice-order-service/internal/observability/metrics"
	"voice-order-service/internal/service/language"
	"voice-order-service/internal/service/order"
	"voice-order-service/internal/service/repetition"
	"voice-order-service/internal/service/segment"
	"voice-order-service/internal/service/stt"
	"voice-order-service/internal/service/transcript"
	"voice-order-service/internal/service/translate"
)

var (
	// ErrRestartLimit is stored as the last error when the source ended more
	// often than MaxRestarts during one recording.
	ErrRestartLimit = errors.New("recognition source restart limit reached")

	// ErrAudioUnsupported is returned by SendAudio when the source does not
	// take raw audio.
	ErrAudioUnsupported = errors.New("recognition source does not accept audio")
)

const (
	DefaultMaxRestarts      = 3
	DefaultPublishTimeout   = 5 * time.Second
	DefaultTranslateTimeout = 10 * time.Second
)

// Config holds per-session tuning.
type Config struct {
	// ProcessDelay debounces the clean and extract pass after a final
	// fragment. Zero processes synchronously inside Feed.
	ProcessDelay time.Duration
	// MaxRestarts bounds automatic source restarts per recording. Negative
	// disables restarts.
	MaxRestarts      int
	TranslateTarget  language.Tag
	Principal        string
	PublishTimeout   time.Duration
	TranslateTimeout time.Duration
}

// DefaultConfig returns synchronous processing, three restarts and English
// as the translation target.
func DefaultConfig() Config {
	return Config{
		MaxRestarts:      DefaultMaxRestarts,
		TranslateTarget:  language.English,
		PublishTimeout:   DefaultPublishTimeout,
		TranslateTimeout: DefaultTranslateTimeout,
	}
}

// Deps are the collaborators of a session. Source, Translator and Sink may
// be nil.
type Deps struct {
	Source     stt.Source
	Suppressor *repetition.Suppressor
	Extractor  *order.Extractor
	Translator translate.Translator
	Sink       events.Sink
	IDs        *segment.Generator
	Metrics    *metrics.Metrics
}

// Snapshot is a consistent copy of the session's observable state.
type Snapshot struct {
	SessionID    string                `json:"sessionId"`
	RecordingID  string                `json:"recordingId,omitempty"`
	State        string                `json:"state"`
	Raw          string                `json:"raw"`
	Interim      string                `json:"interim"`
	RawLanguage  language.Tag          `json:"rawLanguage"`
	CleanedText  string                `json:"cleanedText"`
	Language     language.Tag          `json:"language"`
	Order        order.StructuredOrder `json:"order"`
	Rendered     string                `json:"rendered,omitempty"`
	Translation  string                `json:"translation,omitempty"`
	LastError    string                `json:"lastError,omitempty"`
	Fragments    int                   `json:"fragments"`
	Stale        int                   `json:"staleFragments"`
	Restarts     int                   `json:"restarts"`
	Translations int                   `json:"translations"`
}

// Session owns the transcript state of one caller. It implements
// stt.Callback so a recognition source can push fragments into it.
// Safe for concurrent use.
type Session struct {
	id        string
	cfg       Config
	deps      Deps
	lifecycle *segment.Lifecycle
	log       zerolog.Logger

	mu              sync.RWMutex
	acc             *transcript.Accumulator
	rawLang         language.Tag
	cleaned         string
	lang            language.Tag
	order           order.StructuredOrder
	rendered        string
	translation     string
	translations    int
	lastErr         error
	fragments       int
	stale           int
	restarts        int
	startedAt       time.Time
	timer           *time.Timer
	sourceCancel    context.CancelFunc
	sourceCtx       context.Context
	translateCancel context.CancelFunc
	wg              sync.WaitGroup
}

// NewSession creates an idle session. Missing suppressor, extractor, id
// generator and metrics fall back to their defaults.
func NewSession(id string, cfg Config, deps Deps) *Session {
	if deps.Suppressor == nil {
		deps.Suppressor = repetition.New()
	}
	if deps.Extractor == nil {
		deps.Extractor = order.New()
	}
	if deps.IDs == nil {
		deps.IDs = segment.New()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.DefaultMetrics
	}
	if !cfg.TranslateTarget.Valid() {
		cfg.TranslateTarget = language.English
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultPublishTimeout
	}
	if cfg.TranslateTimeout <= 0 {
		cfg.TranslateTimeout = DefaultTranslateTimeout
	}

	deps.Metrics.RecordSessionCreated()

	return &Session{
		id:        id,
		cfg:       cfg,
		deps:      deps,
		lifecycle: segment.NewLifecycle(id),
		log:       logging.WithSession(id),
		acc:       transcript.NewAccumulator(),
		order:     order.StructuredOrder{Categories: []order.Category{}},
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() segment.State {
	return s.lifecycle.State()
}

func (s *Session) RecordingID() string {
	return s.lifecycle.RecordingId()
}

// StartSession begins a new recording. The buffer and derived state are
// reset, any in-flight translation is cancelled, and the source, if any, is
// started.
func (s *Session) StartSession(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	recordingID := s.deps.IDs.Next(s.id)
	if _, err := s.lifecycle.Start(recordingID); err != nil {
		s.mu.Unlock()
		return err
	}

	if s.translateCancel != nil {
		s.translateCancel()
		s.translateCancel = nil
	}
	s.stopTimerLocked()
	s.acc.Reset()
	s.rawLang, s.lang = language.English, language.English
	s.cleaned, s.rendered, s.translation = "", "", ""
	s.order = order.StructuredOrder{Categories: []order.Category{}}
	s.lastErr = nil
	s.fragments, s.stale, s.restarts = 0, 0, 0
	s.startedAt = time.Now()

	// The source outlives the request that started it.
	s.sourceCtx, s.sourceCancel = context.WithCancel(context.Background())
	sourceCtx := s.sourceCtx
	s.mu.Unlock()

	s.deps.Metrics.RecordRecordingStart()
	recLog := logging.WithRecording(s.log, recordingID)
	recLog.Info().Msg("Recording started")

	if s.deps.Source == nil {
		return nil
	}
	if err := s.deps.Source.Start(sourceCtx, s); err != nil {
		s.mu.Lock()
		s.lifecycle.Stop()
		if s.sourceCancel != nil {
			s.sourceCancel()
			s.sourceCancel = nil
		}
		s.lastErr = err
		s.mu.Unlock()
		s.deps.Metrics.RecordSourceError("start")
		return fmt.Errorf("start recognition source: %w", err)
	}
	return nil
}

// Feed applies one fragment. A stale fragment is dropped, logged and
// counted, and reported as applied=false with a nil error.
func (s *Session) Feed(f transcript.Fragment) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.lifecycle.State() {
	case segment.StateRecording:
	case segment.StateClosed:
		return false, segment.ErrSessionClosed
	default:
		return false, segment.ErrNotRecording
	}

	if err := s.acc.OnFragment(f); err != nil {
		if errors.Is(err, transcript.ErrStaleFragment) {
			s.stale++
			s.deps.Metrics.RecordStaleFragment()
			s.log.Debug().Err(err).Int("seq", f.SequenceIndex).Msg("Stale fragment dropped")
			return false, nil
		}
		return false, err
	}

	s.fragments++
	s.deps.Metrics.RecordFragment(f.IsFinal)

	if f.IsFinal {
		if s.cfg.ProcessDelay > 0 {
			s.scheduleLocked()
		} else {
			s.processLocked()
		}
	}
	return true, nil
}

// SendAudio forwards audio to the source when it accepts raw audio.
func (s *Session) SendAudio(ctx context.Context, audio []byte) error {
	if !s.lifecycle.IsRecording() {
		return segment.ErrNotRecording
	}
	sink, ok := s.deps.Source.(stt.AudioSink)
	if !ok {
		return ErrAudioUnsupported
	}
	return sink.SendAudio(ctx, audio)
}

// StopSession ends the recording, runs a final processing pass, publishes
// the transcript event and, when anything was extracted, the order event.
// Translation of the cleaned text runs in the background.
func (s *Session) StopSession(ctx context.Context) error {
	s.mu.Lock()
	if err := s.lifecycle.Stop(); err != nil {
		s.mu.Unlock()
		return err
	}
	sourceCancel := s.sourceCancel
	s.sourceCancel = nil
	s.mu.Unlock()

	// Stop the source without holding the lock: it may be blocked
	// delivering a fragment to Feed.
	if s.deps.Source != nil {
		if err := s.deps.Source.Stop(); err != nil {
			s.log.Warn().Err(err).Msg("Error stopping recognition source")
		}
	}
	if sourceCancel != nil {
		sourceCancel()
	}

	s.mu.Lock()
	s.stopTimerLocked()
	s.processLocked()
	now := time.Now()
	recordingID := s.lifecycle.RecordingId()
	gen := s.lifecycle.Generation()
	duration := now.Sub(s.startedAt)
	tev := models.TranscriptEvent{
		EventType:   models.EventTypeTranscript,
		SessionID:   s.id,
		RecordingID: recordingID,
		Principal:   s.cfg.Principal,
		Timestamp:   now.UnixMilli(),
		Language:    s.lang.Code(),
		RawText:     s.acc.Raw(),
		CleanedText: s.cleaned,
		Fragments:   s.fragments,
		Stale:       s.stale,
	}
	o := s.order
	rendered := s.rendered
	cleaned, lang := s.cleaned, s.lang
	s.mu.Unlock()

	s.deps.Metrics.RecordRecordingEnd(duration.Seconds())
	recLog := logging.WithRecording(s.log, recordingID)
	recLog.Info().
		Int("fragments", tev.Fragments).
		Int("stale", tev.Stale).
		Int("items", o.ItemCount()).
		Dur("duration", duration).
		Msg("Recording stopped")

	s.publish(ctx, tev, o, rendered)

	if s.deps.Translator != nil && cleaned != "" {
		s.startTranslation(gen, cleaned, lang)
	}
	return nil
}

func (s *Session) publish(ctx context.Context, tev models.TranscriptEvent, o order.StructuredOrder, rendered string) {
	if s.deps.Sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.PublishTimeout)
	defer cancel()

	if err := s.deps.Sink.PublishTranscript(ctx, s.id, tev); err != nil {
		s.setError(fmt.Errorf("publish transcript: %w", err))
	}
	if o.Empty() {
		return
	}

	oev := models.OrderEvent{
		EventType:   models.EventTypeOrder,
		SessionID:   tev.SessionID,
		RecordingID: tev.RecordingID,
		Principal:   tev.Principal,
		Timestamp:   tev.Timestamp,
		Language:    tev.Language,
		Strategy:    o.Strategy,
		Categories:  o.Categories,
		Rendered:    rendered,
	}
	if err := s.deps.Sink.PublishOrder(ctx, s.id, oev); err != nil {
		s.setError(fmt.Errorf("publish order: %w", err))
		return
	}
	s.deps.Metrics.RecordOrderPublished(o.ItemCount())
}

func (s *Session) startTranslation(gen uint64, text string, src language.Tag) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.TranslateTimeout)

	s.mu.Lock()
	if !s.lifecycle.IsCurrent(gen) {
		s.mu.Unlock()
		cancel()
		return
	}
	s.translateCancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer cancel()
		s.translate(ctx, gen, text, src)
	}()
}

func (s *Session) translate(ctx context.Context, gen uint64, text string, src language.Tag) {
	start := time.Now()
	dst := s.cfg.TranslateTarget
	translated, err := s.deps.Translator.Translate(ctx, text, src, dst)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.IsCurrent(gen) {
		s.deps.Metrics.RecordTranslation("discarded", time.Since(start).Seconds())
		s.log.Debug().Uint64("generation", gen).Msg("Discarding translation for an earlier recording")
		return
	}
	s.translateCancel = nil

	if err != nil {
		result := "error"
		if errors.Is(err, translate.ErrRateLimited) {
			result = "rate_limited"
		}
		s.deps.Metrics.RecordTranslation(result, time.Since(start).Seconds())
		s.lastErr = fmt.Errorf("translate: %w", err)
		s.log.Warn().Err(err).Msg("Translation failed")
		return
	}

	s.deps.Metrics.RecordTranslation("ok", time.Since(start).Seconds())
	s.translation = order.FormatLines(order.TranslationHeading, translated, dst, time.Now())
	s.translations++
	s.log.Debug().Int("chars", len(translated)).Msg("Translation stored")
}

// OnFragment implements stt.Callback.
func (s *Session) OnFragment(f transcript.Fragment) {
	if _, err := s.Feed(f); err != nil {
		s.log.Debug().Err(err).Int("seq", f.SequenceIndex).Msg("Fragment ignored")
	}
}

// OnEnd implements stt.Callback. A source that ends on its own while the
// session is still recording is restarted, up to MaxRestarts times.
func (s *Session) OnEnd() {
	s.mu.Lock()
	if !s.lifecycle.IsRecording() || s.deps.Source == nil {
		s.mu.Unlock()
		return
	}
	if s.cfg.MaxRestarts < 0 || s.restarts >= s.cfg.MaxRestarts {
		s.lastErr = ErrRestartLimit
		s.mu.Unlock()
		s.log.Warn().Int("restarts", s.restarts).Msg("Recognition source ended, not restarting")
		return
	}
	s.restarts++
	restarts := s.restarts
	ctx := s.sourceCtx
	s.mu.Unlock()

	s.deps.Metrics.RecordSourceRestart()
	s.log.Info().Int("restart", restarts).Msg("Recognition source ended while recording, restarting")

	if err := s.deps.Source.Start(ctx, s); err != nil {
		s.OnError(fmt.Errorf("restart recognition source: %w", err))
	}
}

// OnError implements stt.Callback. The error is kept as LastError; the
// buffer and derived state are left untouched.
func (s *Session) OnError(err error) {
	s.deps.Metrics.RecordSourceError("stream")
	s.log.Warn().Err(err).Msg("Recognition source error")
	s.setError(err)
}

// Close ends the session for good, stopping the source and any pending
// translation. Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	prev := s.lifecycle.Close()
	if prev == segment.StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.stopTimerLocked()
	if s.translateCancel != nil {
		s.translateCancel()
		s.translateCancel = nil
	}
	sourceCancel := s.sourceCancel
	s.sourceCancel = nil
	s.mu.Unlock()

	var err error
	if prev == segment.StateRecording && s.deps.Source != nil {
		err = s.deps.Source.Stop()
	}
	if sourceCancel != nil {
		sourceCancel()
	}
	s.wg.Wait()

	s.deps.Metrics.RecordSessionClosed()
	s.log.Info().Str("previousState", prev.String()).Msg("Session closed")
	return err
}

// Wait blocks until background translations have finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) CleanedText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cleaned
}

func (s *Session) Language() language.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lang
}

func (s *Session) StructuredOrder() order.StructuredOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.order
}

// Translation returns the last successful translation, formatted as
// numbered lines under the translation heading.
func (s *Session) Translation() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.translation
}

func (s *Session) Buffer() transcript.Buffer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.acc.Buffer()
}

func (s *Session) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		SessionID:    s.id,
		RecordingID:  s.lifecycle.RecordingId(),
		State:        s.lifecycle.State().String(),
		Raw:          s.acc.Raw(),
		Interim:      s.acc.Interim(),
		RawLanguage:  s.rawLang,
		CleanedText:  s.cleaned,
		Language:     s.lang,
		Order:        s.order,
		Rendered:     s.rendered,
		Translation:  s.translation,
		Fragments:    s.fragments,
		Stale:        s.stale,
		Restarts:     s.restarts,
		Translations: s.translations,
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	return snap
}

func (s *Session) setError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// processLocked runs detect, suppress and extract over the raw buffer.
// The caller holds mu.
func (s *Session) processLocked() {
	start := time.Now()
	raw := s.acc.Raw()
	s.rawLang = language.Detect(raw)

	res := s.deps.Suppressor.SuppressDetailed(raw)
	s.cleaned = res.Text
	s.lang = language.Detect(res.Text)
	s.order = s.deps.Extractor.Extract(res.Text)
	s.rendered = ""
	if res.Text != "" {
		s.rendered = order.RenderOrder(s.order, res.Text)
	}

	s.deps.Metrics.RecordSuppression(res.WordsDropped, res.SegmentsDropped)
	s.deps.Metrics.RecordProcess(time.Since(start).Seconds(), s.order.Strategy)
}

// scheduleLocked (re)arms the debounce timer. The caller holds mu.
func (s *Session) scheduleLocked() {
	s.stopTimerLocked()
	gen := s.lifecycle.Generation()
	s.timer = time.AfterFunc(s.cfg.ProcessDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.lifecycle.IsCurrent(gen) || !s.lifecycle.IsRecording() {
			return
		}
		s.timer = nil
		s.processLocked()
	})
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
