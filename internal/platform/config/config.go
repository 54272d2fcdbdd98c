package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration of sarflow.
type Config struct {
	Server   Server         `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Audit    AuditConfig    `yaml:"audit"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	LLM      LLMConfig      `yaml:"llm"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// AuditConfig selects the durable audit sinks. The in-memory trail is always on.
type AuditConfig struct {
	LogPath         string        `yaml:"log_path"`
	Fsync           bool          `yaml:"fsync"`
	BreakerFailures int           `yaml:"breaker_failures"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
	SinkTimeout     time.Duration `yaml:"sink_timeout"`
}

// RedisConfig configures the optional Redis stream sink. An empty URL disables it.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	Stream       string        `yaml:"stream"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// KafkaConfig configures the optional Kafka sink. No brokers disables it.
type KafkaConfig struct {
	Brokers           []string `yaml:"brokers"`
	Topic             string   `yaml:"topic"`
	CreateTopic       bool     `yaml:"create_topic"`
	Partitions        int32    `yaml:"partitions"`
	ReplicationFactor int16    `yaml:"replication_factor"`
}

// LLMConfig selects the text-generation backend.
type LLMConfig struct {
	Provider   string        `yaml:"provider"` // "gemini" or "scripted"
	APIKey     string        `yaml:"-"`
	Model      string        `yaml:"model"`
	Timeout    time.Duration `yaml:"timeout"`
	ScriptPath string        `yaml:"script_path"` // replies for the scripted provider
}

// PipelineConfig holds agent generation parameters and batch settings.
type PipelineConfig struct {
	RiskTemperature      float32 `yaml:"risk_temperature"`
	RiskMaxTokens        int     `yaml:"risk_max_tokens"`
	NarrativeTemperature float32 `yaml:"narrative_temperature"`
	NarrativeMaxTokens   int     `yaml:"narrative_max_tokens"`
	NarrativeWordLimit   int     `yaml:"narrative_word_limit"`
	Workers              int     `yaml:"workers"`
	SourceLabelPrefix    string  `yaml:"source_label_prefix"`
}

const (
	ProviderGemini   = "gemini"
	ProviderScripted = "scripted"
)

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server:  Server{Addr: ":8080", ShutdownTimeout: 10 * time.Second, RequestTimeout: 3 * time.Minute},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Audit: AuditConfig{
			LogPath:         "logs/audit.jsonl",
			BreakerFailures: 5,
			BreakerCooldown: 30 * time.Second,
			SinkTimeout:     5 * time.Second,
		},
		Redis: RedisConfig{
			Stream:       "sarflow:audit",
			PoolSize:     10,
			MinIdleConns: 1,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{Topic: "sarflow.audit", Partitions: 3, ReplicationFactor: 1},
		LLM:   LLMConfig{Provider: ProviderGemini, Model: "gemini-2.0-flash", Timeout: 60 * time.Second},
		Pipeline: PipelineConfig{
			RiskTemperature:      0.3,
			RiskMaxTokens:        1000,
			NarrativeTemperature: 0.2,
			NarrativeMaxTokens:   800,
			NarrativeWordLimit:   120,
			Workers:              4,
			SourceLabelPrefix:    "csv_extract",
		},
	}
}

// FromEnv builds the configuration from defaults, an optional YAML file named by
// SARFLOW_CONFIG, and environment variables (a local .env file is loaded first
// when present). Environment variables win over the file.
func FromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("SARFLOW_CONFIG"); path != "" {
		var err error
		if cfg, err = LoadYAML(path, cfg); err != nil {
			return Config{}, err
		}
	}

	var errs []error
	cfg.Server.Addr = envString("SARFLOW_ADDR", cfg.Server.Addr)
	cfg.Logging.Level = envString("SARFLOW_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = envString("SARFLOW_LOG_FORMAT", cfg.Logging.Format)
	cfg.Audit.LogPath = envString("SARFLOW_AUDIT_LOG", cfg.Audit.LogPath)
	cfg.Audit.Fsync = envBool("SARFLOW_AUDIT_FSYNC", cfg.Audit.Fsync, &errs)
	cfg.Audit.SinkTimeout = envDuration("SARFLOW_AUDIT_SINK_TIMEOUT", cfg.Audit.SinkTimeout, &errs)
	cfg.Redis.URL = envString("REDIS_URL", cfg.Redis.URL)
	cfg.Redis.Stream = envString("SARFLOW_AUDIT_STREAM", cfg.Redis.Stream)
	cfg.Kafka.Brokers = envList("KAFKA_BROKERS", cfg.Kafka.Brokers)
	cfg.Kafka.Topic = envString("SARFLOW_AUDIT_TOPIC", cfg.Kafka.Topic)
	cfg.LLM.Provider = envString("SARFLOW_LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.Model = envString("SARFLOW_MODEL", cfg.LLM.Model)
	cfg.LLM.APIKey = envString("GEMINI_API_KEY", envString("GOOGLE_API_KEY", cfg.LLM.APIKey))
	cfg.LLM.Timeout = envDuration("SARFLOW_LLM_TIMEOUT", cfg.LLM.Timeout, &errs)
	cfg.LLM.ScriptPath = envString("SARFLOW_LLM_SCRIPT", cfg.LLM.ScriptPath)
	cfg.Pipeline.Workers = envInt("SARFLOW_WORKERS", cfg.Pipeline.Workers, &errs)
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// LoadYAML overlays the YAML document at path onto base.
func LoadYAML(path string, base Config) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &base); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return base, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	var errs []error
	switch c.LLM.Provider {
	case ProviderGemini, ProviderScripted:
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q: want %q or %q", c.LLM.Provider, ProviderGemini, ProviderScripted))
	}
	if c.Pipeline.RiskMaxTokens <= 0 || c.Pipeline.NarrativeMaxTokens <= 0 {
		errs = append(errs, errors.New("pipeline max tokens must be positive"))
	}
	if c.Pipeline.NarrativeWordLimit <= 0 {
		errs = append(errs, errors.New("pipeline.narrative_word_limit must be positive"))
	}
	if c.Pipeline.Workers <= 0 {
		errs = append(errs, errors.New("pipeline.workers must be positive"))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is required when brokers are set"))
	}
	return errors.Join(errs...)
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := envString(key, "")
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envBool(key string, fallback bool, errs *[]error) bool {
	v := envString(key, "")
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func envInt(key string, fallback int, errs *[]error) int {
	v := envString(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := envString(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}
