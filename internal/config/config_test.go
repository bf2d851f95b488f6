package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/copperline/arbiter/internal/config"
)

const baseConfig = `
shutdown_timeout = "30s"
version = "0.1.0"

[server]
host = "0.0.0.0"
port = 8080

[database]
host = "localhost"
port = 5432
name = "arbiter"
user = "arbiter"
password = "arbiter"

[storage]
container_name = "evidence"
connection_string = "DefaultEndpointsProtocol=http;AccountName=arbiterstore;AccountKey=key;BlobEndpoint=http://127.0.0.1:10000/arbiterstore;"

[panel]
judge_timeout = "10s"
hard_timeout = "30s"

[oversight]
confidence_threshold = 0.8
amount_threshold = 100000

[api]
base_path = "/api"
max_upload_size = "10MB"

[api.pagination]
default_page_size = 25
max_page_size = 50
`

const overlayConfig = `
[server]
port = 9090

[database]
host = "prodhost"
`

func writeConfig(t *testing.T, dir, filename, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", filename, err)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(orig) })
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	chdir(t, dir)
	t.Setenv(config.EnvArbiterEnv, "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Name != "arbiter" {
		t.Errorf("database name = %s, want arbiter", cfg.Database.Name)
	}
	if cfg.Oversight.ConfidenceThreshold != 0.8 {
		t.Errorf("confidence threshold = %v, want 0.8", cfg.Oversight.ConfidenceThreshold)
	}
	if cfg.API.Pagination.DefaultPageSize != 25 {
		t.Errorf("default page size = %d, want 25", cfg.API.Pagination.DefaultPageSize)
	}
	if got := cfg.API.MaxUploadSizeBytes(); got != 10*1024*1024 {
		t.Errorf("max upload = %d, want 10MB", got)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	chdir(t, dir)
	t.Setenv(config.EnvArbiterEnv, "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	// Sections omitted from the file come back fully defaulted.
	if cfg.Submission.MaxAttempts != 3 {
		t.Errorf("submission max attempts = %d, want default 3", cfg.Submission.MaxAttempts)
	}
	if cfg.Judges.NarrativeEnabled {
		t.Error("narrative judge enabled without configuration")
	}
	if cfg.Oversight.ReviewTTL != "72h" {
		t.Errorf("review ttl = %s, want default 72h", cfg.Oversight.ReviewTTL)
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	writeConfig(t, dir, "config.production.toml", overlayConfig)
	chdir(t, dir)
	t.Setenv(config.EnvArbiterEnv, "production")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("server port = %d, want overlay 9090", cfg.Server.Port)
	}
	if cfg.Database.Host != "prodhost" {
		t.Errorf("database host = %s, want overlay prodhost", cfg.Database.Host)
	}
	// Base values the overlay does not touch survive.
	if cfg.Database.Name != "arbiter" {
		t.Errorf("database name = %s, want base arbiter", cfg.Database.Name)
	}
	if cfg.Env() != "production" {
		t.Errorf("env = %s, want production", cfg.Env())
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	chdir(t, dir)
	t.Setenv(config.EnvArbiterEnv, "")
	t.Setenv("ARBITER_DB_HOST", "envhost")
	t.Setenv("ARBITER_OVERSIGHT_REVIEW_TTL", "24h")
	t.Setenv("ARBITER_SUBMISSION_MAX_ATTEMPTS", "5")
	t.Setenv("ARBITER_SUBMISSION_ENDPOINT", "https://network.example.com")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Database.Host != "envhost" {
		t.Errorf("database host = %s, want env override", cfg.Database.Host)
	}
	if cfg.Oversight.ReviewTTL != "24h" {
		t.Errorf("review ttl = %s, want env override 24h", cfg.Oversight.ReviewTTL)
	}
	if cfg.Submission.MaxAttempts != 5 {
		t.Errorf("submission max attempts = %d, want env override 5", cfg.Submission.MaxAttempts)
	}
	if cfg.Submission.Endpoint != "https://network.example.com" {
		t.Errorf("submission endpoint = %s, want env override", cfg.Submission.Endpoint)
	}
}

func TestEnvDefaultsToLocal(t *testing.T) {
	t.Setenv(config.EnvArbiterEnv, "")

	cfg := &config.Config{}
	if cfg.Env() != "local" {
		t.Errorf("env = %s, want local", cfg.Env())
	}
}

func TestLoadRejectsBrokenConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", "not valid toml [[[")
	chdir(t, dir)
	t.Setenv(config.EnvArbiterEnv, "")

	if _, err := config.Load(); err == nil {
		t.Error("malformed config accepted")
	}
}
