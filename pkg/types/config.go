package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout bounds a single classification request.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "screening-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// AIConfig holds settings for the Generative AI API that scores records.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retries on HTTP 429 before a record fails (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// ClassifierConfig holds settings for the classification client.
type ClassifierConfig struct {
	HTTPConfig `yaml:",inline"`
	AIConfig   `yaml:",inline"`

	// RequestsPerSecond caps outbound classification calls. Zero disables limiting.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`

	// InputPricePerMTok and OutputPricePerMTok convert token usage to USD.
	InputPricePerMTok  float64 `json:"input_price_per_mtok" yaml:"input_price_per_mtok"`
	OutputPricePerMTok float64 `json:"output_price_per_mtok" yaml:"output_price_per_mtok"`
}

// SchedulerConfig holds settings for batch classification.
type SchedulerConfig struct {
	// Concurrency is the maximum number of records in flight (default 4).
	Concurrency int `json:"concurrency" yaml:"concurrency"`
}

// IngestConfig bounds what the upload boundary accepts.
type IngestConfig struct {
	// MaxRecords is the maximum number of records per import (default 10000).
	MaxRecords int `json:"max_records" yaml:"max_records"`

	// MaxUploadBytes is the size ceiling of an import file (default 20 MiB).
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes"`
}

// SessionConfig locates the persisted screening session.
type SessionConfig struct {
	// Dir contains session.db (default "session").
	Dir string `json:"dir" yaml:"dir"`
}

// ScreeningConfig groups all component configurations.
type ScreeningConfig struct {
	Classifier ClassifierConfig `json:"classifier" yaml:"classifier"`
	Scheduler  SchedulerConfig  `json:"scheduler" yaml:"scheduler"`
	Ingest     IngestConfig     `json:"ingest" yaml:"ingest"`
	Session    SessionConfig    `json:"session" yaml:"session"`
}

const (
	DefaultConcurrency    = 4
	DefaultMaxRecords     = 10000
	DefaultMaxUploadBytes = 20 << 20
	DefaultTimeout        = 60 * time.Second
	DefaultMaxRetries     = 3
	DefaultSessionDir     = "session"
)

// WithDefaults fills zero values with the package defaults.
func (c ScreeningConfig) WithDefaults() ScreeningConfig {
	if c.Scheduler.Concurrency <= 0 {
		c.Scheduler.Concurrency = DefaultConcurrency
	}
	if c.Ingest.MaxRecords <= 0 {
		c.Ingest.MaxRecords = DefaultMaxRecords
	}
	if c.Ingest.MaxUploadBytes <= 0 {
		c.Ingest.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.Classifier.Timeout <= 0 {
		c.Classifier.Timeout = DefaultTimeout
	}
	if c.Classifier.MaxRetries <= 0 {
		c.Classifier.MaxRetries = DefaultMaxRetries
	}
	if c.Session.Dir == "" {
		c.Session.Dir = DefaultSessionDir
	}
	return c
}
