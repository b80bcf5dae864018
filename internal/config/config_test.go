package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yaml := `
server:
  base_url: "http://10.0.0.5:9090"
  token: "abc123"
watch:
  max_retries: 5
  retry_delay_ms: 500
  poll_interval_ms: 2000
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.BaseURL != "http://10.0.0.5:9090" {
		t.Errorf("Server.BaseURL = %q", cfg.Server.BaseURL)
	}
	if cfg.Server.Token != "abc123" {
		t.Errorf("Server.Token = %q", cfg.Server.Token)
	}
	if cfg.Watch.MaxRetries != 5 {
		t.Errorf("Watch.MaxRetries = %d, want 5", cfg.Watch.MaxRetries)
	}
	if cfg.Watch.RetryDelay() != 500*time.Millisecond {
		t.Errorf("Watch.RetryDelay() = %s, want 500ms", cfg.Watch.RetryDelay())
	}
	if cfg.Watch.PollInterval() != 2*time.Second {
		t.Errorf("Watch.PollInterval() = %s, want 2s", cfg.Watch.PollInterval())
	}
}

func TestLoadAppliesDefaultsForUnsetFields(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("server:\n  token: t\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Watch.MaxRetries != DefaultMaxRetries {
		t.Errorf("MaxRetries = %d, want default %d", cfg.Watch.MaxRetries, DefaultMaxRetries)
	}
	if cfg.Watch.RetryDelayMs != DefaultRetryDelayMs {
		t.Errorf("RetryDelayMs = %d, want default %d", cfg.Watch.RetryDelayMs, DefaultRetryDelayMs)
	}
	if cfg.Watch.PollIntervalMs != DefaultPollIntervalMs {
		t.Errorf("PollIntervalMs = %d, want default %d", cfg.Watch.PollIntervalMs, DefaultPollIntervalMs)
	}
}

func TestLoadNormalizesOutOfRangeValues(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	yaml := `
watch:
  max_retries: -2
  retry_delay_ms: -100
  poll_interval_ms: 0
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Watch.MaxRetries != DefaultMaxRetries {
		t.Errorf("MaxRetries = %d, want default", cfg.Watch.MaxRetries)
	}
	if cfg.Watch.RetryDelayMs != DefaultRetryDelayMs {
		t.Errorf("RetryDelayMs = %d, want default", cfg.Watch.RetryDelayMs)
	}
	if cfg.Watch.PollIntervalMs != DefaultPollIntervalMs {
		t.Errorf("PollIntervalMs = %d, want default", cfg.Watch.PollIntervalMs)
	}
}

func TestLoadZeroMaxRetriesIsHonored(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("watch:\n  max_retries: 0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// 0 is a valid configuration: never retry, go straight to polling.
	if cfg.Watch.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, want 0", cfg.Watch.MaxRetries)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("Load() on missing file should return error")
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("LoadOrDefault() error: %v", err)
	}

	if cfg.Server.BaseURL != "http://127.0.0.1:4173" {
		t.Errorf("Server.BaseURL = %q, want default", cfg.Server.BaseURL)
	}
	if cfg.Watch.MaxRetries != DefaultMaxRetries {
		t.Errorf("MaxRetries = %d, want default", cfg.Watch.MaxRetries)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(cfgPath, []byte(":::not valid yaml"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(cfgPath); err == nil {
		t.Fatal("Load() with invalid YAML should return error")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(EnvBaseURL, "http://example.test:8080")
	t.Setenv(EnvToken, "tok")
	t.Setenv(EnvMaxRetries, "7")
	t.Setenv(EnvRetryDelayMs, "250")
	t.Setenv(EnvPollIntervalMs, "1500")

	cfg := Default()
	cfg.ApplyEnv()

	if cfg.Server.BaseURL != "http://example.test:8080" {
		t.Errorf("BaseURL = %q", cfg.Server.BaseURL)
	}
	if cfg.Server.Token != "tok" {
		t.Errorf("Token = %q", cfg.Server.Token)
	}
	if cfg.Watch.MaxRetries != 7 {
		t.Errorf("MaxRetries = %d, want 7", cfg.Watch.MaxRetries)
	}
	if cfg.Watch.RetryDelayMs != 250 {
		t.Errorf("RetryDelayMs = %d, want 250", cfg.Watch.RetryDelayMs)
	}
	if cfg.Watch.PollIntervalMs != 1500 {
		t.Errorf("PollIntervalMs = %d, want 1500", cfg.Watch.PollIntervalMs)
	}
}

func TestApplyEnvMalformedValuesFallBackToDefaults(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		value string
	}{
		{"non-numeric retries", EnvMaxRetries, "three"},
		{"negative retries", EnvMaxRetries, "-1"},
		{"non-numeric delay", EnvRetryDelayMs, "2s"},
		{"zero delay", EnvRetryDelayMs, "0"},
		{"negative interval", EnvPollIntervalMs, "-100"},
		{"NaN interval", EnvPollIntervalMs, "NaN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)

			cfg := Default()
			cfg.ApplyEnv()

			if cfg.Watch.MaxRetries != DefaultMaxRetries {
				t.Errorf("MaxRetries = %d, want default", cfg.Watch.MaxRetries)
			}
			if cfg.Watch.RetryDelayMs != DefaultRetryDelayMs {
				t.Errorf("RetryDelayMs = %d, want default", cfg.Watch.RetryDelayMs)
			}
			if cfg.Watch.PollIntervalMs != DefaultPollIntervalMs {
				t.Errorf("PollIntervalMs = %d, want default", cfg.Watch.PollIntervalMs)
			}
		})
	}
}

func TestApplyEnvZeroMaxRetries(t *testing.T) {
	t.Setenv(EnvMaxRetries, "0")

	cfg := Default()
	cfg.ApplyEnv()

	if cfg.Watch.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, want 0", cfg.Watch.MaxRetries)
	}
}

func TestDiff(t *testing.T) {
	old := Default()
	cur := Default()

	if changes := Diff(old, cur); len(changes) != 0 {
		t.Errorf("Diff of identical configs = %v, want empty", changes)
	}

	cur.Server.BaseURL = "http://other:1234"
	cur.Watch.MaxRetries = 9
	cur.Watch.PollIntervalMs = 1000

	changes := Diff(old, cur)
	found := map[string]bool{}
	for _, c := range changes {
		found[c] = true
	}

	want := []string{
		"server.base_url: http://127.0.0.1:4173 → http://other:1234",
		"watch.max_retries: 3 → 9",
		"watch.poll_interval_ms: 5000 → 1000",
	}
	for _, w := range want {
		if !found[w] {
			t.Errorf("missing expected change %q in %v", w, changes)
		}
	}
}
