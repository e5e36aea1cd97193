package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeTempConfig creates a configuration file and returns its path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tradeflow.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t, `tradeflow:
  name: "TestApp"
  version: "1.0"
http:
  timeout: 5s
  requests_per_second: 3
  burst: 3
validation:
  orderbook_min_length: 5
exchanges:
  bittrex:
    apikey: "key"
    apisecret: "secret"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Tradeflow.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.Tradeflow.Name)
	}
	if cfg.HTTP.Timeout != 5*time.Second {
		t.Errorf("unexpected timeout: %s", cfg.HTTP.Timeout)
	}
	if cfg.Validation.OrderbookMinLength != 5 {
		t.Errorf("unexpected orderbook_min_length: %d", cfg.Validation.OrderbookMinLength)
	}
	creds := cfg.Credentials("Bittrex")
	if creds.APIKey != "key" || creds.APISecret != "secret" {
		t.Errorf("unexpected credentials: %+v", creds)
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Tradeflow.Name != "tradeflow" {
		t.Errorf("unexpected default name: %s", cfg.Tradeflow.Name)
	}
	if cfg.Validation.OrderbookMinLength != 10 {
		t.Errorf("unexpected default orderbook_min_length: %d", cfg.Validation.OrderbookMinLength)
	}
	if cfg.Storage.S3.Enabled {
		t.Error("S3 should be disabled by default")
	}
}

func TestLoadConfigEnvOverridesCredentials(t *testing.T) {
	path := writeTempConfig(t, `tradeflow:
  name: "TestApp"
exchanges:
  binance:
    apikey: "file-key"
    apisecret: "file-secret"
`)
	t.Setenv("BINANCE_APIKEY", " env-key ")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	creds := cfg.Credentials("binance")
	if creds.APIKey != "env-key" {
		t.Errorf("expected env override, got %q", creds.APIKey)
	}
	if creds.APISecret != "file-secret" {
		t.Errorf("expected file value to survive, got %q", creds.APISecret)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{
			"missing name",
			"tradeflow:\n  name: \"\"\n",
		},
		{
			"zero timeout",
			"tradeflow:\n  name: app\nhttp:\n  timeout: 0s\n",
		},
		{
			"s3 without bucket",
			"tradeflow:\n  name: app\nstorage:\n  s3:\n    enabled: true\n    region: eu-west-1\n",
		},
		{
			"cloudwatch without namespace",
			"tradeflow:\n  name: app\nmetrics:\n  cloudwatch:\n    enabled: true\n    namespace: \"\"\n",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			path := writeTempConfig(t, c.content)
			if _, err := LoadConfig(path); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCredentialsUnknownExchangeIsZero(t *testing.T) {
	cfg := Default()
	creds := cfg.Credentials("nope")
	if creds.APIKey != "" || creds.APISecret != "" {
		t.Errorf("expected zero credentials, got %+v", creds)
	}
}
