// Package config loads service configuration from an optional YAML file
// and environment variables. Environment variables win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Service       ServiceConfig       `yaml:"service"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Translate     TranslateConfig     `yaml:"translate"`
	Events        EventsConfig        `yaml:"events"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	NATS          NATSConfig          `yaml:"nats"`
	STT           STTConfig           `yaml:"stt"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type ServiceConfig struct {
	Principal   string `yaml:"principal"`
	HTTPPort    string `yaml:"http_port"`
	GRPCPort    string `yaml:"grpc_port"`
	MetricsPort string `yaml:"metrics_port"`
}

type PipelineConfig struct {
	SimilarityThreshold float64       `yaml:"similarity_threshold"`
	StutterThreshold    float64       `yaml:"stutter_threshold"`
	DefaultUnit         string        `yaml:"default_unit"`
	DefaultCategory     string        `yaml:"default_category"`
	ProcessDelay        time.Duration `yaml:"process_delay"`
	MaxRestarts         int           `yaml:"max_restarts"`
}

type TranslateConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Endpoint  string        `yaml:"endpoint"`
	Target    string        `yaml:"target"`
	CacheSize int           `yaml:"cache_size"`
	Timeout   time.Duration `yaml:"timeout"`
	APIKeys   []string      `yaml:"api_keys"`
}

type EventsConfig struct {
	// Backend is kafka, nats or none.
	Backend string `yaml:"backend"`
}

type KafkaConfig struct {
	Enabled         bool     `yaml:"enabled"`
	Brokers         []string `yaml:"brokers"`
	TopicTranscript string   `yaml:"topic_transcript"`
	TopicOrder      string   `yaml:"topic_order"`
	Principal       string   `yaml:"principal"`
}

type NATSConfig struct {
	URL               string        `yaml:"url"`
	SubjectTranscript string        `yaml:"subject_transcript"`
	SubjectOrder      string        `yaml:"subject_order"`
	ConnectTimeout    time.Duration `yaml:"connect_timeout"`
}

type STTConfig struct {
	Provider       string `yaml:"provider"` // none, mock, google
	LanguageCode   string `yaml:"language_code"`
	SampleRateHz   int32  `yaml:"sample_rate_hz"`
	InterimResults bool   `yaml:"interim_results"`
	AudioEncoding  string `yaml:"audio_encoding"`
}

type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Service: ServiceConfig{
			Principal:   "svc-voice-order",
			HTTPPort:    "8080",
			GRPCPort:    "50051",
			MetricsPort: "9090",
		},
		Pipeline: PipelineConfig{
			SimilarityThreshold: 0.7,
			StutterThreshold:    0.85,
			DefaultUnit:         "kg",
			DefaultCategory:     "Items",
			MaxRestarts:         3,
		},
		Translate: TranslateConfig{
			Enabled:   false,
			Endpoint:  "https://translate.googleapis.com/translate_a/single",
			Target:    "en",
			CacheSize: 100,
			Timeout:   10 * time.Second,
		},
		Events: EventsConfig{
			Backend: "none",
		},
		Kafka: KafkaConfig{
			Brokers:         []string{"localhost:9092"},
			TopicTranscript: "voice.transcript.cleaned",
			TopicOrder:      "voice.order.extracted",
		},
		NATS: NATSConfig{
			URL:               "nats://127.0.0.1:4222",
			SubjectTranscript: "voice.transcript.cleaned",
			SubjectOrder:      "voice.order.extracted",
			ConnectTimeout:    5 * time.Second,
		},
		STT: STTConfig{
			Provider:       "none",
			LanguageCode:   "bn-IN",
			SampleRateHz:   16000,
			InterimResults: true,
			AudioEncoding:  "LINEAR16",
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

// Load reads the YAML file named by CONFIG_FILE, if set, and applies
// environment overrides on top.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("CONFIG_FILE"))
}

// LoadFile is Load with an explicit file path. An empty path skips the
// file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Service.Principal = envOrDefault("SERVICE_PRINCIPAL", cfg.Service.Principal)
	cfg.Service.HTTPPort = envOrDefault("HTTP_PORT", cfg.Service.HTTPPort)
	cfg.Service.GRPCPort = envOrDefault("GRPC_PORT", cfg.Service.GRPCPort)
	cfg.Service.MetricsPort = envOrDefault("METRICS_PORT", cfg.Service.MetricsPort)

	cfg.Pipeline.SimilarityThreshold = envOrDefaultFloat("PIPELINE_SIMILARITY_THRESHOLD", cfg.Pipeline.SimilarityThreshold)
	cfg.Pipeline.StutterThreshold = envOrDefaultFloat("PIPELINE_STUTTER_THRESHOLD", cfg.Pipeline.StutterThreshold)
	cfg.Pipeline.DefaultUnit = envOrDefault("PIPELINE_DEFAULT_UNIT", cfg.Pipeline.DefaultUnit)
	cfg.Pipeline.DefaultCategory = envOrDefault("PIPELINE_DEFAULT_CATEGORY", cfg.Pipeline.DefaultCategory)
	cfg.Pipeline.ProcessDelay = envOrDefaultDuration("PIPELINE_PROCESS_DELAY", cfg.Pipeline.ProcessDelay)
	cfg.Pipeline.MaxRestarts = envOrDefaultInt("PIPELINE_MAX_RESTARTS", cfg.Pipeline.MaxRestarts)

	cfg.Translate.Enabled = envOrDefaultBool("TRANSLATE_ENABLED", cfg.Translate.Enabled)
	cfg.Translate.Endpoint = envOrDefault("TRANSLATE_ENDPOINT", cfg.Translate.Endpoint)
	cfg.Translate.Target = envOrDefault("TRANSLATE_TARGET", cfg.Translate.Target)
	cfg.Translate.CacheSize = envOrDefaultInt("TRANSLATE_CACHE_SIZE", cfg.Translate.CacheSize)
	cfg.Translate.Timeout = envOrDefaultDuration("TRANSLATE_TIMEOUT", cfg.Translate.Timeout)
	cfg.Translate.APIKeys = envOrDefaultList("TRANSLATE_API_KEYS", cfg.Translate.APIKeys)

	cfg.Events.Backend = strings.ToLower(envOrDefault("EVENTS_BACKEND", cfg.Events.Backend))

	// Kafka is on whenever it is the selected backend, unless switched off
	// explicitly.
	cfg.Kafka.Enabled = envOrDefaultBool("KAFKA_ENABLED", cfg.Kafka.Enabled || cfg.Events.Backend == "kafka")
	cfg.Kafka.Brokers = envOrDefaultList("KAFKA_BROKERS", cfg.Kafka.Brokers)
	cfg.Kafka.TopicTranscript = envOrDefault("KAFKA_TOPIC_TRANSCRIPT", cfg.Kafka.TopicTranscript)
	cfg.Kafka.TopicOrder = envOrDefault("KAFKA_TOPIC_ORDER", cfg.Kafka.TopicOrder)
	if cfg.Kafka.Principal == "" {
		cfg.Kafka.Principal = cfg.Service.Principal
	}
	cfg.Kafka.Principal = envOrDefault("KAFKA_PRINCIPAL", cfg.Kafka.Principal)

	cfg.NATS.URL = envOrDefault("NATS_URL", cfg.NATS.URL)
	cfg.NATS.SubjectTranscript = envOrDefault("NATS_SUBJECT_TRANSCRIPT", cfg.NATS.SubjectTranscript)
	cfg.NATS.SubjectOrder = envOrDefault("NATS_SUBJECT_ORDER", cfg.NATS.SubjectOrder)
	cfg.NATS.ConnectTimeout = envOrDefaultDuration("NATS_CONNECT_TIMEOUT", cfg.NATS.ConnectTimeout)

	cfg.STT.Provider = strings.ToLower(envOrDefault("STT_PROVIDER", cfg.STT.Provider))
	cfg.STT.LanguageCode = envOrDefault("STT_LANGUAGE_CODE", cfg.STT.LanguageCode)
	cfg.STT.SampleRateHz = int32(envOrDefaultInt("STT_SAMPLE_RATE_HZ", int(cfg.STT.SampleRateHz)))
	cfg.STT.InterimResults = envOrDefaultBool("STT_INTERIM_RESULTS", cfg.STT.InterimResults)
	cfg.STT.AudioEncoding = envOrDefault("STT_AUDIO_ENCODING", cfg.STT.AudioEncoding)

	cfg.Observability.LogLevel = envOrDefault("LOG_LEVEL", cfg.Observability.LogLevel)
	cfg.Observability.LogFormat = envOrDefault("LOG_FORMAT", cfg.Observability.LogFormat)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Service.Principal == "" {
		return errors.New("service.principal must not be empty")
	}
	for name, th := range map[string]float64{
		"pipeline.similarity_threshold": c.Pipeline.SimilarityThreshold,
		"pipeline.stutter_threshold":    c.Pipeline.StutterThreshold,
	} {
		if th <= 0 || th > 1 {
			return fmt.Errorf("%s must be in (0, 1], got %v", name, th)
		}
	}
	if c.Pipeline.DefaultUnit == "" {
		return errors.New("pipeline.default_unit must not be empty")
	}
	if c.Pipeline.ProcessDelay < 0 {
		return errors.New("pipeline.process_delay must not be negative")
	}
	switch c.Events.Backend {
	case "kafka", "nats", "none":
	default:
		return fmt.Errorf("events.backend must be one of kafka|nats|none, got %q", c.Events.Backend)
	}
	if c.Events.Backend == "nats" && c.NATS.URL == "" {
		return errors.New("nats.url must be set when events.backend=nats")
	}
	switch c.STT.Provider {
	case "none", "mock", "google":
	default:
		return fmt.Errorf("stt.provider must be one of none|mock|google, got %q", c.STT.Provider)
	}
	if c.STT.SampleRateHz <= 0 {
		return errors.New("stt.sample_rate_hz must be positive")
	}
	if c.Translate.Enabled && c.Translate.Endpoint == "" {
		return errors.New("translate.endpoint must be set when translation is enabled")
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// envOrDefaultList splits a comma-separated value, dropping blanks.
func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
