// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/screening-engine/internal/classify"
	"github.com/pdiddy/screening-engine/internal/logging"
	"github.com/pdiddy/screening-engine/internal/secrets"
	"github.com/pdiddy/screening-engine/internal/sessiondb"
	"github.com/pdiddy/screening-engine/pkg/types"
)

const (
	defaultModel     = "claude-sonnet-4-5-20250929"
	defaultUserAgent = "screening-engine/0.1"
)

func setConfigDefaults() {
	viper.SetDefault("classifier.model", defaultModel)
	viper.SetDefault("classifier.user_agent", defaultUserAgent)
	viper.SetDefault("classifier.timeout", types.DefaultTimeout)
	viper.SetDefault("classifier.max_retries", types.DefaultMaxRetries)
	viper.SetDefault("classifier.requests_per_second", 0)
	viper.SetDefault("classifier.input_price_per_mtok", 3.0)
	viper.SetDefault("classifier.output_price_per_mtok", 15.0)
	viper.SetDefault("scheduler.concurrency", types.DefaultConcurrency)
	viper.SetDefault("ingest.max_records", types.DefaultMaxRecords)
	viper.SetDefault("ingest.max_upload_bytes", types.DefaultMaxUploadBytes)
	viper.SetDefault("session.dir", types.DefaultSessionDir)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}

// screeningConfig assembles the component configuration from the config
// file, SCREENING_ENGINE_* variables and command flags.
func screeningConfig(cmd *cobra.Command) types.ScreeningConfig {
	cfg := types.ScreeningConfig{
		Classifier: types.ClassifierConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("classifier.timeout"),
				UserAgent: viper.GetString("classifier.user_agent"),
			},
			AIConfig: types.AIConfig{
				Model:      viper.GetString("classifier.model"),
				APIKey:     viper.GetString("classifier.api_key"),
				MaxRetries: viper.GetInt("classifier.max_retries"),
			},
			RequestsPerSecond:  viper.GetFloat64("classifier.requests_per_second"),
			InputPricePerMTok:  viper.GetFloat64("classifier.input_price_per_mtok"),
			OutputPricePerMTok: viper.GetFloat64("classifier.output_price_per_mtok"),
		},
		Scheduler: types.SchedulerConfig{Concurrency: viper.GetInt("scheduler.concurrency")},
		Ingest: types.IngestConfig{
			MaxRecords:     viper.GetInt("ingest.max_records"),
			MaxUploadBytes: viper.GetInt64("ingest.max_upload_bytes"),
		},
		Session: types.SessionConfig{Dir: viper.GetString("session.dir")},
	}

	if f := cmd.Flags().Lookup("concurrency"); f != nil && f.Changed {
		cfg.Scheduler.Concurrency, _ = cmd.Flags().GetInt("concurrency")
	}
	if f := cmd.Flags().Lookup("model"); f != nil && f.Changed {
		cfg.Classifier.Model, _ = cmd.Flags().GetString("model")
	}
	if f := cmd.Flags().Lookup("rate"); f != nil && f.Changed {
		cfg.Classifier.RequestsPerSecond, _ = cmd.Flags().GetFloat64("rate")
	}
	return cfg.WithDefaults()
}

func newLogger() *slog.Logger {
	return logging.New(viper.GetString("log.level"), viper.GetString("log.format"), os.Stderr)
}

// newClassifier builds the rate-limited Claude classifier. The API key
// comes from config, then ANTHROPIC_API_KEY, .secrets/ and .env.
func newClassifier(cfg types.ClassifierConfig) (classify.Classifier, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = secrets.Lookup(secrets.AnthropicAPIKey, loadedSecrets...)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no Anthropic API key: set %s, add it to .env, or write .secrets/%s",
			secrets.EnvName(secrets.AnthropicAPIKey), secrets.AnthropicAPIKey)
	}
	return classify.NewRateLimited(classify.NewClaudeClassifier(cfg), cfg.RequestsPerSecond), nil
}

func openSessionDB(cfg types.ScreeningConfig) (*sessiondb.DB, error) {
	return sessiondb.Open(cfg.Session.Dir)
}
