package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfig writes a YAML config file into a temp dir and returns its
// path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quaestor.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
budget:
  monthly: 120
  daily_soft: 8
  daily_hard: 15
routing:
  short_message_words: 10
  keywords: ["refactor", "migrate"]
storage:
  path: /tmp/quaestor-test.db
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Budget.Monthly != 120 {
		t.Errorf("Budget.Monthly = %v, want 120", cfg.Budget.Monthly)
	}
	if cfg.Routing.ShortMessageWords != 10 {
		t.Errorf("Routing.ShortMessageWords = %d, want 10", cfg.Routing.ShortMessageWords)
	}
	if len(cfg.Routing.Keywords) != 2 || cfg.Routing.Keywords[0] != "refactor" {
		t.Errorf("Routing.Keywords = %v, want [refactor migrate]", cfg.Routing.Keywords)
	}
	if cfg.Storage.Path != "/tmp/quaestor-test.db" {
		t.Errorf("Storage.Path = %q, want /tmp/quaestor-test.db", cfg.Storage.Path)
	}

	// Unset fields picked up defaults.
	if cfg.Server.Host != DefaultHost {
		t.Errorf("Server.Host = %q, want default %q", cfg.Server.Host, DefaultHost)
	}
	if cfg.Upstream.BaseURL != DefaultUpstreamBaseURL {
		t.Errorf("Upstream.BaseURL = %q, want default", cfg.Upstream.BaseURL)
	}
	if cfg.Models.Cheap != DefaultModelCheap {
		t.Errorf("Models.Cheap = %q, want default", cfg.Models.Cheap)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Expected an error for a missing file")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a mapping")

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("Expected an error for malformed YAML")
	}
	if !strings.Contains(err.Error(), "failed to parse config file") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 99999
`)

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("Expected a validation error")
	}
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected a ValidationError, got %T: %v", err, err)
	}
	if verr.Errors[0].Field != "server.port" {
		t.Errorf("Field = %q, want server.port", verr.Errors[0].Field)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
budget:
  daily_hard: 20
`)

	t.Setenv("QUAESTOR_SERVER_PORT", "7070")
	t.Setenv("QUAESTOR_BUDGET_DAILY_HARD", "12.5")
	t.Setenv("QUAESTOR_UPSTREAM_TIMEOUT", "2m")
	t.Setenv("QUAESTOR_LOGGING_LEVEL", "debug")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want env override 7070", cfg.Server.Port)
	}
	if cfg.Budget.DailyHard != 12.5 {
		t.Errorf("Budget.DailyHard = %v, want env override 12.5", cfg.Budget.DailyHard)
	}
	if cfg.Upstream.Timeout != 2*time.Minute {
		t.Errorf("Upstream.Timeout = %v, want 2m", cfg.Upstream.Timeout)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadConfigWithEnvOverridesNoFile(t *testing.T) {
	t.Setenv("QUAESTOR_BUDGET_MONTHLY", "45")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides(\"\") error = %v", err)
	}

	if cfg.Budget.Monthly != 45 {
		t.Errorf("Budget.Monthly = %v, want 45", cfg.Budget.Monthly)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want default %d", cfg.Server.Port, DefaultPort)
	}
}

func TestLoadConfigInvalidEnvValueIgnored(t *testing.T) {
	t.Setenv("QUAESTOR_SERVER_PORT", "not-a-number")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides(\"\") error = %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want default %d after unparseable override", cfg.Server.Port, DefaultPort)
	}
}

func TestAPIKeyEnvFallback(t *testing.T) {
	t.Setenv("QUAESTOR_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.Key != "sk-ant-env" {
		t.Errorf("API.Key = %q, want the ANTHROPIC_API_KEY fallback", cfg.API.Key)
	}

	// QUAESTOR_API_KEY wins when both are set.
	t.Setenv("QUAESTOR_API_KEY", "sk-ant-quaestor")
	cfg, err = LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.Key != "sk-ant-quaestor" {
		t.Errorf("API.Key = %q, want QUAESTOR_API_KEY to win", cfg.API.Key)
	}
}

func TestAPIKeyFileBeatsFallback(t *testing.T) {
	path := writeConfig(t, `
api:
  key: sk-ant-file
`)
	t.Setenv("QUAESTOR_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.Key != "sk-ant-file" {
		t.Errorf("API.Key = %q, want the file value over the fallback", cfg.API.Key)
	}
}

func TestAutoClassifyExplicitFalse(t *testing.T) {
	path := writeConfig(t, `
routing:
  auto_classify: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Routing.ClassifyEnabled() {
		t.Error("Expected auto-classification off when set to false")
	}

	// Unset means enabled.
	if !DefaultConfig().Routing.ClassifyEnabled() {
		t.Error("Expected auto-classification on by default")
	}
}
