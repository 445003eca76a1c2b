package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if cfg.Practice.Mode != nil {
		t.Fatalf("expected empty config")
	}
}

func TestLoadConfigDecodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[practice]
mode = "countdown"
duration = 60

[articles]
page-size = 5
ttl = "12h"

[server]
rate-limit = 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Practice.Mode == nil || *cfg.Practice.Mode != "countdown" {
		t.Fatalf("unexpected mode: %v", cfg.Practice.Mode)
	}
	if cfg.Practice.Duration == nil || *cfg.Practice.Duration != 60 {
		t.Fatalf("unexpected duration: %v", cfg.Practice.Duration)
	}
	if cfg.Articles.PageSize == nil || *cfg.Articles.PageSize != 5 {
		t.Fatalf("unexpected page size: %v", cfg.Articles.PageSize)
	}
	ttl, err := Duration(cfg.Articles.TTL, time.Hour)
	if err != nil || ttl != 12*time.Hour {
		t.Fatalf("unexpected ttl: %v %v", ttl, err)
	}
	if cfg.Server.RateLimit == nil || *cfg.Server.RateLimit != 3 {
		t.Fatalf("unexpected rate limit: %v", cfg.Server.RateLimit)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[practice\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestDurationDefaults(t *testing.T) {
	d, err := Duration(nil, time.Minute)
	if err != nil || d != time.Minute {
		t.Fatalf("expected default, got %v %v", d, err)
	}
	bad := "soon"
	if _, err := Duration(&bad, time.Minute); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envPath, []byte("NEWSTYPE_SERVER_URL=http://from-dotenv\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(EnvGuardianKey, "env-key")
	t.Setenv(EnvRateLimit, "7")
	t.Setenv(EnvServerURL, "")
	os.Unsetenv(EnvServerURL)
	if err := LoadEnv(envPath, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("load env: %v", err)
	}

	fileKey := "file-key"
	cfg := FileConfig{Articles: ArticlesConfig{GuardianKey: &fileKey}}
	ApplyEnv(&cfg)
	if *cfg.Articles.GuardianKey != "env-key" {
		t.Fatalf("expected env to override file, got %q", *cfg.Articles.GuardianKey)
	}
	if cfg.Account.ServerURL == nil || *cfg.Account.ServerURL != "http://from-dotenv" {
		t.Fatalf("expected .env value, got %v", cfg.Account.ServerURL)
	}
	if cfg.Server.RateLimit == nil || *cfg.Server.RateLimit != 7 {
		t.Fatalf("expected rate limit from env, got %v", cfg.Server.RateLimit)
	}
}
