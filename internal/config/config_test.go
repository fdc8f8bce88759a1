package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadFromPathDefaults(t *testing.T) {
	path := writeConfig(t, "generator:\n  api_key: test-key\n")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Generator.Backend != "anthropic" {
		t.Errorf("default backend = %q, want anthropic", cfg.Generator.Backend)
	}
	if cfg.Workflow.MaxConcurrency != 5 {
		t.Errorf("default max_concurrency = %d, want 5", cfg.Workflow.MaxConcurrency)
	}
	if cfg.Workflow.MaxAttempts != 3 {
		t.Errorf("default max_attempts = %d, want 3", cfg.Workflow.MaxAttempts)
	}
	if cfg.Workflow.UserInputTimeout != 5*time.Minute {
		t.Errorf("default user_input_timeout = %v, want 5m", cfg.Workflow.UserInputTimeout)
	}
	if cfg.Limits.Tracker.PerSecond != 5.0 {
		t.Errorf("default tracker per_second = %v, want 5.0", cfg.Limits.Tracker.PerSecond)
	}
}

func TestLoadFromPathOverrides(t *testing.T) {
	path := writeConfig(t, `
generator:
  backend: bedrock
  aws_region: us-west-2
  model: claude-sonnet-4
workflow:
  max_concurrency: 2
  backoff_ceiling: 30s
limits:
  generator:
    per_second: 0.5
    burst: 1
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Generator.Backend != "bedrock" {
		t.Errorf("backend = %q, want bedrock", cfg.Generator.Backend)
	}
	if cfg.Workflow.MaxConcurrency != 2 {
		t.Errorf("max_concurrency = %d, want 2", cfg.Workflow.MaxConcurrency)
	}
	if cfg.Workflow.BackoffCeiling != 30*time.Second {
		t.Errorf("backoff_ceiling = %v, want 30s", cfg.Workflow.BackoffCeiling)
	}
	if cfg.Limits.Generator.Burst != 1 {
		t.Errorf("generator burst = %d, want 1", cfg.Limits.Generator.Burst)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("SPRINTBOT_TEST_SECRET", "sk-123")

	path := writeConfig(t, "generator:\n  api_key: ${SPRINTBOT_TEST_SECRET}\n")
	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Generator.APIKey != "sk-123" {
		t.Errorf("api_key = %q, want expanded value", cfg.Generator.APIKey)
	}
}

func TestValidateMissingFields(t *testing.T) {
	cfg := &Config{}
	cfg.Generator.Backend = "anthropic"

	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		t.Setenv("ANTHROPIC_API_KEY", "")
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate should fail with empty config")
	}
}

func TestValidateUnknownBackend(t *testing.T) {
	cfg := &Config{}
	cfg.Generator.Backend = "gpt4all"

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate should reject unknown backend")
	}
}

func TestValidateComplete(t *testing.T) {
	cfg := &Config{}
	cfg.Generator.Backend = "bedrock"
	cfg.Generator.AWSRegion = "us-west-2"
	cfg.Tracker.Endpoint = "http://localhost:9000/mcp"
	cfg.Tracker.ProjectKey = "PROJ"
	cfg.Chat.BotToken = "xoxb-test"

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
