package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"voice-order-service/internal/config"
	"voice-order-service/internal/events"
	"voice-order-service/internal/observability/logging"
	"voice-order-service/internal/observability/metrics"
	"voice-order-service/internal/service/language"
	"voice-order-service/internal/service/order"
	"voice-order-service/internal/service/pipeline"
	"voice-order-service/internal/service/repetition"
	"voice-order-service/internal/service/segment"
	"voice-order-service/internal/service/stt"
	"voice-order-service/internal/service/stt/google"
	"voice-order-service/internal/service/stt/mock"
	"voice-order-service/internal/service/translate"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config

	Metrics    *metrics.Metrics
	Sink       events.Sink
	Translator translate.Translator
	Suppressor *repetition.Suppressor
	Extractor  *order.Extractor
	Sessions   *pipeline.Manager

	ids      *segment.Generator
	pipeline pipeline.Config
	ready    atomic.Bool
}

// New wires every component from cfg. The events backend is connected
// here, so a NATS outage fails startup.
func New(cfg *config.Config) (*Application, error) {
	a := &Application{
		Cfg:     cfg,
		Metrics: metrics.DefaultMetrics,
		ids:     segment.New(),
	}
	a.setupLogger()

	target, err := language.ParseTag(cfg.Translate.Target)
	if err != nil {
		return nil, fmt.Errorf("translate target: %w", err)
	}

	a.Suppressor = repetition.New(
		repetition.WithThreshold(cfg.Pipeline.SimilarityThreshold),
		repetition.WithStutterThreshold(cfg.Pipeline.StutterThreshold),
	)
	a.Extractor = order.New(
		order.WithDefaultUnit(cfg.Pipeline.DefaultUnit),
		order.WithDefaultCategory(cfg.Pipeline.DefaultCategory),
	)

	if cfg.Translate.Enabled {
		cached, err := translate.NewCached(translate.NewGoogleClient(translate.Config{
			Endpoint: cfg.Translate.Endpoint,
			Timeout:  cfg.Translate.Timeout,
			APIKeys:  cfg.Translate.APIKeys,
		}), cfg.Translate.CacheSize)
		if err != nil {
			return nil, err
		}
		a.Translator = cached
	}

	a.Sink, err = events.Open(cfg.Events.Backend,
		&events.Config{
			Enabled:         cfg.Kafka.Enabled,
			Brokers:         cfg.Kafka.Brokers,
			TopicTranscript: cfg.Kafka.TopicTranscript,
			TopicOrder:      cfg.Kafka.TopicOrder,
			Principal:       cfg.Kafka.Principal,
		},
		&events.NATSConfig{
			URL:               cfg.NATS.URL,
			SubjectTranscript: cfg.NATS.SubjectTranscript,
			SubjectOrder:      cfg.NATS.SubjectOrder,
			Principal:         cfg.Service.Principal,
			ConnectTimeout:    cfg.NATS.ConnectTimeout,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("open events sink: %w", err)
	}

	a.pipeline = pipeline.Config{
		ProcessDelay:     cfg.Pipeline.ProcessDelay,
		MaxRestarts:      cfg.Pipeline.MaxRestarts,
		TranslateTarget:  target,
		Principal:        cfg.Service.Principal,
		PublishTimeout:   pipeline.DefaultPublishTimeout,
		TranslateTimeout: cfg.Translate.Timeout,
	}
	a.Sessions = pipeline.NewManager(a.newSession)

	a.Logger.Info().
		Str("sttProvider", cfg.STT.Provider).
		Str("eventsBackend", cfg.Events.Backend).
		Bool("translate", cfg.Translate.Enabled).
		Msg("Voice order service application created")
	return a, nil
}

// setupLogger configures zerolog for the service.
func (a *Application) setupLogger() {
	lc := logging.DefaultConfig()
	if a.Cfg.Observability.LogLevel != "" {
		lc.Level = a.Cfg.Observability.LogLevel
	}
	if a.Cfg.Observability.LogFormat != "" {
		lc.Format = a.Cfg.Observability.LogFormat
	}
	logging.Init(lc)

	a.Logger = logging.WithComponent("application")
	a.Logger.Info().
		Str("logLevel", lc.Level).
		Str("logFormat", lc.Format).
		Msg("Logger setup completed")
}

func (a *Application) newSession(ctx context.Context, id string) (*pipeline.Session, error) {
	src, err := a.newSource(ctx)
	if err != nil {
		return nil, err
	}
	return pipeline.NewSession(id, a.pipeline, pipeline.Deps{
		Source:     src,
		Suppressor: a.Suppressor,
		Extractor:  a.Extractor,
		Translator: a.Translator,
		Sink:       a.Sink,
		IDs:        a.ids,
		Metrics:    a.Metrics,
	}), nil
}

// newSource returns nil for provider "none": fragments then arrive only
// through Session.Feed.
func (a *Application) newSource(ctx context.Context) (stt.Source, error) {
	switch a.Cfg.STT.Provider {
	case "none", "":
		return nil, nil
	case "google":
		src, err := google.New(ctx, google.Config{
			LanguageCode:   a.Cfg.STT.LanguageCode,
			SampleRateHz:   a.Cfg.STT.SampleRateHz,
			InterimResults: a.Cfg.STT.InterimResults,
			AudioEncoding:  a.Cfg.STT.AudioEncoding,
		})
		if err != nil {
			return nil, err
		}
		return src, nil
	case "mock":
		return mock.New(mock.WithDelay(200 * time.Millisecond)), nil
	default:
		return nil, fmt.Errorf("unknown stt provider %q", a.Cfg.STT.Provider)
	}
}

// Start marks the application ready to serve traffic.
func (a *Application) Start() error {
	a.StartupTime = time.Now().UTC()
	a.ready.Store(true)
	a.Logger.Info().
		Time("startupTime", a.StartupTime).
		Msg("Voice order service starting")
	return nil
}

// Ready reports whether Start has run and Shutdown has not.
func (a *Application) Ready() bool {
	return a.ready.Load()
}

// Shutdown closes all sessions and the events sink.
func (a *Application) Shutdown() error {
	a.ready.Store(false)
	a.Logger.Info().Int("sessions", a.Sessions.Len()).Msg("Voice order service shutting down")

	var errs []error
	if err := a.Sessions.Close(); err != nil {
		errs = append(errs, err)
	}
	if a.Sink != nil {
		if err := a.Sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close events sink: %w", err))
		}
	}
	return errors.Join(errs...)
}
