package config

import (
	"errors"
	"strings"
	"time"

	cenv "github.com/caarlos0/env/v11"
)

type Config struct {
	ListenAddr            string
	UpstreamBaseURL       string
	UpstreamAPIKey        string
	RewriteModel          string
	RequestTimeout        time.Duration
	RewriteTimeout        time.Duration
	MaxBodyBytes          int64
	SmoothingDefaultsPath string
	SentryDSN             string
	LogLevel              string
}

type envConfig struct {
	ListenAddr            string `env:"LISTEN_ADDR" envDefault:":8080"`
	UpstreamBaseURL       string `env:"UPSTREAM_BASE_URL" envDefault:"https://api.groq.com/openai/v1"`
	UpstreamAPIKey        string `env:"UPSTREAM_API_KEY"`
	RewriteModel          string `env:"REWRITE_MODEL" envDefault:"meta-llama/llama-4-scout-17b-16e-instruct"`
	RequestTimeoutSeconds int    `env:"REQUEST_TIMEOUT_SECONDS" envDefault:"25"`
	RewriteTimeoutSeconds int    `env:"REWRITE_TIMEOUT_SECONDS" envDefault:"20"`
	MaxBodyBytes          int64  `env:"MAX_BODY_BYTES" envDefault:"8388608"`
	SmoothingDefaultsPath string `env:"SMOOTHING_DEFAULTS_PATH"`
	SentryDSN             string `env:"SENTRY_DSN"`
	LogLevel              string `env:"LOG_LEVEL" envDefault:"info"`
}

func Load() (Config, error) {
	var raw envConfig
	if err := cenv.Parse(&raw); err != nil {
		return Config{}, err
	}

	cfg := Config{
		ListenAddr:            strings.TrimSpace(raw.ListenAddr),
		UpstreamBaseURL:       strings.TrimRight(strings.TrimSpace(raw.UpstreamBaseURL), "/"),
		UpstreamAPIKey:        strings.TrimSpace(raw.UpstreamAPIKey),
		RewriteModel:          strings.TrimSpace(raw.RewriteModel),
		RequestTimeout:        time.Duration(raw.RequestTimeoutSeconds) * time.Second,
		RewriteTimeout:        time.Duration(raw.RewriteTimeoutSeconds) * time.Second,
		MaxBodyBytes:          raw.MaxBodyBytes,
		SmoothingDefaultsPath: strings.TrimSpace(raw.SmoothingDefaultsPath),
		SentryDSN:             strings.TrimSpace(raw.SentryDSN),
		LogLevel:              strings.ToLower(strings.TrimSpace(raw.LogLevel)),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("LISTEN_ADDR must not be empty")
	}
	if c.UpstreamBaseURL == "" {
		return errors.New("UPSTREAM_BASE_URL must not be empty")
	}
	if c.RewriteModel == "" {
		return errors.New("REWRITE_MODEL must not be empty")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT_SECONDS must be > 0")
	}
	if c.RewriteTimeout <= 0 {
		return errors.New("REWRITE_TIMEOUT_SECONDS must be > 0")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("MAX_BODY_BYTES must be > 0")
	}
	return nil
}
