package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "empty allowed domain",
			mutate: func(cfg *Config) {
				cfg.AllowedDomain = ""
			},
			wantErr: "allowed domain",
		},
		{
			name: "domain with path",
			mutate: func(cfg *Config) {
				cfg.AllowedDomain = "books.toscrape.com/catalogue"
			},
			wantErr: "bare host",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "negative retention",
			mutate: func(cfg *Config) {
				cfg.BackupRetention = -1
			},
			wantErr: "retention",
		},
		{
			name: "zero queue size",
			mutate: func(cfg *Config) {
				cfg.QueueSize = 0
			},
			wantErr: "queue size",
		},
		{
			name: "rate limit without burst",
			mutate: func(cfg *Config) {
				cfg.RateLimit = 2
				cfg.RateBurst = 0
			},
			wantErr: "rate burst",
		},
		{
			name: "dsn without table",
			mutate: func(cfg *Config) {
				cfg.PostgresDSN = "postgres://localhost/books"
				cfg.PostgresTable = ""
			},
			wantErr: "postgres table",
		},
		{
			name: "unknown log format",
			mutate: func(cfg *Config) {
				cfg.LogFormat = "xml"
			},
			wantErr: "log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AllowedDomain != "books.toscrape.com" {
		t.Fatalf("allowed domain = %q", cfg.AllowedDomain)
	}
	if cfg.Timeout != 15*time.Second {
		t.Fatalf("timeout = %v, want 15s", cfg.Timeout)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scraper.yaml")
	body := "output_file: " + filepath.Join(dir, "books.csv") + "\nbackup_retention: 5\ntimeout: 3s\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SCRAPER_TIMEOUT", "7s")
	t.Setenv("SCRAPER_LOG_FORMAT", "JSON")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BackupRetention != 5 {
		t.Fatalf("retention = %d, want 5", cfg.BackupRetention)
	}
	if cfg.Timeout != 7*time.Second {
		t.Fatalf("timeout = %v, want env override 7s", cfg.Timeout)
	}
	if cfg.LogFormat != "json" {
		t.Fatalf("log format = %q, want json", cfg.LogFormat)
	}
	if cfg.OutputFile != filepath.Join(dir, "books.csv") {
		t.Fatalf("output file = %q", cfg.OutputFile)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
