package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/lyrics?sslmode=disable")
	t.Setenv(PathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.ViewWindow != time.Hour {
		t.Errorf("ViewWindow = %v, want 1h", cfg.ViewWindow)
	}
	if cfg.ClientIPHeader != "CF-Connecting-IP" {
		t.Errorf("ClientIPHeader = %q", cfg.ClientIPHeader)
	}
	if cfg.TypesenseEnabled() {
		t.Error("typesense should be disabled by default")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/lyrics")
	t.Setenv("PORT", "9090")
	t.Setenv("VIEW_WINDOW", "30m")
	t.Setenv("DATABASE_AUTO_SCHEMA", "true")
	t.Setenv("SUBMIT_RATE_MAX", "3")
	t.Setenv(PathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "9090" || cfg.ViewWindow != 30*time.Minute || !cfg.DatabaseAutoSchema || cfg.SubmitRateMax != 3 {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "database_url: postgres://file/lyrics\nlog_format: console\nstatic_dir: /srv/www\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(PathEnvVar, path)
	t.Setenv("DATABASE_URL", "")
	os.Unsetenv("DATABASE_URL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DatabaseURL != "postgres://file/lyrics" || cfg.LogFormat != "console" || cfg.StaticDir != "/srv/www" {
		t.Errorf("file values not applied: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing database", func(c *Config) { c.DatabaseURL = "" }, "DATABASE_URL"},
		{"bad port", func(c *Config) { c.Port = "http" }, "PORT"},
		{"zero window", func(c *Config) { c.ViewWindow = 0 }, "VIEW_WINDOW"},
		{"typesense without key", func(c *Config) { c.TypesenseHost = "http://ts:8108" }, "TYPESENSE_API_KEY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.DatabaseURL = "postgres://localhost/lyrics"
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %s, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAllowedOrigins(t *testing.T) {
	cfg := Default()
	cfg.CORSAllowOrigins = " https://a.example , ,https://b.example"
	got := cfg.AllowedOrigins()
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Errorf("AllowedOrigins() = %v", got)
	}

	cfg.CORSAllowOrigins = ""
	if got := cfg.AllowedOrigins(); len(got) != 1 || got[0] != "*" {
		t.Errorf("empty origins should fall back to *, got %v", got)
	}
}
