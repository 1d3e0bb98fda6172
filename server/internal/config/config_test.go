package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	p := writeConfig(t, `analysis:
  timezone: UTC
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", cfg.Server.HTTPPort, DefaultHTTPPort)
	}
	if cfg.Server.LogLevel != DefaultLogLevel {
		t.Errorf("log_level: got %q, want %q", cfg.Server.LogLevel, DefaultLogLevel)
	}
	if cfg.Server.MaxUploadBytes != DefaultMaxUploadBytes {
		t.Errorf("max_upload_bytes: got %d, want %d", cfg.Server.MaxUploadBytes, DefaultMaxUploadBytes)
	}
	if cfg.Server.Staging.Enabled {
		t.Error("staging should be disabled by default")
	}
	if cfg.Server.Staging.TTL != DefaultStagingTTL {
		t.Errorf("staging.ttl: got %v, want %v", cfg.Server.Staging.TTL, DefaultStagingTTL)
	}
	if cfg.Analysis.TopN != DefaultTopN {
		t.Errorf("top_n: got %d, want %d", cfg.Analysis.TopN, DefaultTopN)
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", cfg.Server.HTTPPort, DefaultHTTPPort)
	}
}

func TestLoad_Full(t *testing.T) {
	p := writeConfig(t, `server:
  http_port: 9091
  log_level: debug
  max_upload_bytes: 1048576
  read_timeout: 5s
  staging:
    enabled: true
    path: /tmp/storelens
    ttl: 2m
analysis:
  top_n: 5
  timezone: Europe/Berlin
  date_layouts: ["02.01.2006"]
rules:
  rules:
    - name: heavy-expiry
      condition: "expired_pct > 20"
      severity: critical
  webhooks:
    - type: slack
      url_env: SLACK_URL
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != 9091 {
		t.Errorf("http_port: got %d, want 9091", cfg.Server.HTTPPort)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("read_timeout: got %v, want 5s", cfg.Server.ReadTimeout)
	}
	if !cfg.Server.Staging.Enabled || cfg.Server.Staging.Path != "/tmp/storelens" {
		t.Errorf("staging: got %+v", cfg.Server.Staging)
	}
	if cfg.Server.Staging.TTL != 2*time.Minute {
		t.Errorf("staging.ttl: got %v, want 2m", cfg.Server.Staging.TTL)
	}
	if cfg.Analysis.TopN != 5 {
		t.Errorf("top_n: got %d, want 5", cfg.Analysis.TopN)
	}
	loc, err := cfg.Analysis.Location()
	if err != nil || loc.String() != "Europe/Berlin" {
		t.Errorf("Location: got %v, %v", loc, err)
	}
	if len(cfg.Analysis.DateLayouts) != 1 || cfg.Analysis.DateLayouts[0] != "02.01.2006" {
		t.Errorf("date_layouts: got %v", cfg.Analysis.DateLayouts)
	}
	if len(cfg.Rules.Rules) != 1 || cfg.Rules.Rules[0].Severity != "critical" {
		t.Errorf("rules: got %+v", cfg.Rules.Rules)
	}
	if len(cfg.Rules.Webhooks) != 1 || cfg.Rules.Webhooks[0].URLEnv != "SLACK_URL" {
		t.Errorf("webhooks: got %+v", cfg.Rules.Webhooks)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("STORELENS_SERVER_HTTP_PORT", "7070")
	t.Setenv("STORELENS_SERVER_STAGING_ENABLED", "true")
	t.Setenv("STORELENS_ANALYSIS_TOP_N", "7")

	p := writeConfig(t, `server:
  http_port: 9091
  log_level: warn
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != 7070 {
		t.Errorf("http_port: got %d, want env override 7070", cfg.Server.HTTPPort)
	}
	if cfg.Server.LogLevel != "warn" {
		t.Errorf("log_level: got %q, want file value warn", cfg.Server.LogLevel)
	}
	if !cfg.Server.Staging.Enabled {
		t.Error("staging.enabled: env override not applied")
	}
	if cfg.Analysis.TopN != 7 {
		t.Errorf("top_n: got %d, want 7", cfg.Analysis.TopN)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"port", "server:\n  http_port: 70000\n", "http_port"},
		{"log level", "server:\n  log_level: loud\n", "log_level"},
		{"top n", "analysis:\n  top_n: 0\n", "top_n"},
		{"timezone", "analysis:\n  timezone: Mars/Olympus\n", "timezone"},
		{"staging path", "server:\n  staging:\n    enabled: true\n    path: \"\"\n", "staging.path"},
		{"rule name", "rules:\n  rules:\n    - condition: \"orders > 1\"\n", "name is required"},
		{"rule condition", "rules:\n  rules:\n    - name: r\n", "condition is required"},
		{"rule severity", "rules:\n  rules:\n    - name: r\n      condition: \"orders > 1\"\n      severity: fatal\n", "unknown severity"},
		{"webhook type", "rules:\n  webhooks:\n    - type: email\n", "unknown type"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q should mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_BadYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "server: [\n")); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestWebhookURL(t *testing.T) {
	t.Setenv("HOOK_URL", "http://example.invalid/hook")
	w := WebhookConfig{Type: "http", URLEnv: "HOOK_URL"}
	if got := w.URL(); got != "http://example.invalid/hook" {
		t.Errorf("URL: got %q", got)
	}
	if got := (WebhookConfig{Type: "http"}).URL(); got != "" {
		t.Errorf("URL without env: got %q, want empty", got)
	}
}

func TestWatch_Reload(t *testing.T) {
	p := writeConfig(t, "analysis:\n  top_n: 3\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, p, func(c *Config) { got <- c }) }()

	// Give the watcher time to register before editing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(p, []byte("analysis:\n  top_n: 9\n"), 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	// A truncating write can surface an intermediate empty file first.
	deadline := time.After(3 * time.Second)
	for reloaded := false; !reloaded; {
		select {
		case cfg := <-got:
			reloaded = cfg.Analysis.TopN == 9
		case <-deadline:
			t.Fatal("no reload with top_n 9 observed")
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch returned %v", err)
	}
}

func TestChanged(t *testing.T) {
	base := func() *Config {
		c, err := Load("")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		return c
	}

	tests := []struct {
		name string
		edit func(*Config)
		want []string
	}{
		{"identical", func(*Config) {}, nil},
		{"log level only", func(c *Config) { c.Server.LogLevel = "debug" }, []string{SectionLogLevel}},
		{"port", func(c *Config) { c.Server.HTTPPort = 9090 }, []string{SectionServer}},
		{"staging ttl", func(c *Config) { c.Server.Staging.TTL = time.Minute }, []string{SectionServer}},
		{"top n", func(c *Config) { c.Analysis.TopN = 5 }, []string{SectionAnalysis}},
		{"rule added", func(c *Config) {
			c.Rules.Rules = append(c.Rules.Rules, Rule{Name: "r", Condition: "expired_pct > 1"})
		}, []string{SectionRules}},
		{"level and rules", func(c *Config) {
			c.Server.LogLevel = "warn"
			c.Rules.Webhooks = []WebhookConfig{{Type: "slack", URLEnv: "HOOK"}}
		}, []string{SectionLogLevel, SectionRules}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := base()
			tt.edit(next)
			got := Changed(base(), next)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Changed = %v, want %v", got, tt.want)
			}
		})
	}

	if got := Changed(nil, base()); len(got) != 4 {
		t.Errorf("Changed(nil, cfg) = %v, want every section", got)
	}
}

func TestWatch_IgnoresUnchangedSave(t *testing.T) {
	content := "server:\n  log_level: info\nanalysis:\n  top_n: 3\n"
	p := writeConfig(t, content)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 8)
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, p, func(c *Config) { got <- c }) }()

	time.Sleep(100 * time.Millisecond)
	// Rewrite with the same YAML plus a comment; nothing observable changes.
	if err := os.WriteFile(p, []byte("# touched\n"+content), 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(p, []byte("server:\n  log_level: debug\nanalysis:\n  top_n: 3\n"), 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for {
		select {
		case cfg := <-got:
			if cfg.Server.LogLevel == "debug" {
				cancel()
				if err := <-done; err != nil {
					t.Errorf("Watch returned %v", err)
				}
				return
			}
			// The file starts out equal to the defaults, so neither the
			// comment-only save nor an empty intermediate write may reload.
			t.Errorf("unexpected reload: %+v", cfg.Server)
		case <-deadline:
			t.Fatal("no reload with log_level debug observed")
		}
	}
}
