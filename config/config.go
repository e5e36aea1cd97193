// Package config loads the tradeflow YAML configuration and the per-exchange
// credential file. Settings resolve in order: file values, then environment
// overrides. Validation is fail-fast; a malformed configuration never reaches
// the command layer.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Tradeflow  TradeflowConfig  `yaml:"tradeflow"`
	Logging    LoggingConfig    `yaml:"logging"`
	HTTP       HTTPConfig       `yaml:"http"`
	Validation ValidationConfig `yaml:"validation"`
	Exchanges  ExchangesConfig  `yaml:"exchanges"`
	Storage    StorageConfig    `yaml:"storage"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type TradeflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

type HTTPConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond int           `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
}

type ValidationConfig struct {
	OrderbookMinLength int `yaml:"orderbook_min_length"`
}

// ExchangeCredentials is one apikey/apisecret pair. Empty values are fine;
// public endpoints don't need them.
type ExchangeCredentials struct {
	APIKey    string `yaml:"apikey"`
	APISecret string `yaml:"apisecret"`
}

type ExchangesConfig map[string]ExchangeCredentials

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type MetricsConfig struct {
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Region    string `yaml:"region"`
}

// Default returns the configuration used when no file is present: public
// endpoints only, stdout logging, archiving and metrics off.
func Default() *Config {
	return &Config{
		Tradeflow: TradeflowConfig{Name: "tradeflow", Version: "dev"},
		Logging:   LoggingConfig{Level: "info", Format: "json", Output: "stderr", MaxAge: 7},
		HTTP: HTTPConfig{
			Timeout:           10 * time.Second,
			RequestsPerSecond: 5,
			Burst:             5,
		},
		Validation: ValidationConfig{OrderbookMinLength: 10},
		Exchanges:  ExchangesConfig{},
		Metrics:    MetricsConfig{CloudWatch: CloudWatchConfig{Namespace: "tradeflow"}},
	}
}

// LoadConfig reads the configuration file at path, falling back to Default
// when the file does not exist. Environment variables override credentials
// and AWS settings after the file is read.
func LoadConfig(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// run on defaults
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// Credentials returns the key pair configured for the named exchange. The
// zero value means unauthenticated access.
func (c *Config) Credentials(exchange string) ExchangeCredentials {
	return c.Exchanges[strings.ToLower(exchange)]
}

// applyEnvOverrides lets the environment win over file values. Credentials
// use <NAME>_APIKEY / <NAME>_APISECRET; AWS settings use the standard
// variable names.
func applyEnvOverrides(cfg *Config) {
	for name := range cfg.Exchanges {
		creds := cfg.Exchanges[name]
		upper := strings.ToUpper(name)
		if v := os.Getenv(upper + "_APIKEY"); v != "" {
			creds.APIKey = strings.TrimSpace(v)
		}
		if v := os.Getenv(upper + "_APISECRET"); v != "" {
			creds.APISecret = strings.TrimSpace(v)
		}
		cfg.Exchanges[name] = creds
	}

	if cfg.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			cfg.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			cfg.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			cfg.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			cfg.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}
	if cfg.Metrics.CloudWatch.Enabled {
		if v := os.Getenv("AWS_REGION"); v != "" {
			cfg.Metrics.CloudWatch.Region = strings.TrimSpace(v)
		}
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Tradeflow.Name == "" {
		return fmt.Errorf("tradeflow.name is required")
	}
	if cfg.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be greater than 0")
	}
	if cfg.HTTP.RequestsPerSecond <= 0 {
		return fmt.Errorf("http.requests_per_second must be greater than 0")
	}
	if cfg.Validation.OrderbookMinLength <= 0 {
		return fmt.Errorf("validation.orderbook_min_length must be greater than 0")
	}
	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
	}
	if cfg.Metrics.CloudWatch.Enabled && cfg.Metrics.CloudWatch.Namespace == "" {
		return fmt.Errorf("metrics.cloudwatch.namespace is required when CloudWatch is enabled")
	}
	return nil
}
