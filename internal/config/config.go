package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar overrides the config file location.
const PathEnvVar = "CONFIG_PATH"

// DefaultPaths are searched in order when CONFIG_PATH is not set.
var DefaultPaths = []string{"config.yaml", "config.yml"}

// Config is the full server configuration. Keys are the lowercase form of
// their environment variable, so DATABASE_URL sets database_url.
type Config struct {
	Port string `koanf:"port"`

	DatabaseURL          string `koanf:"database_url"`
	DatabaseAutoSchema   bool   `koanf:"database_auto_schema"`
	DatabaseMaxOpenConns int    `koanf:"database_max_open_conns"`

	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	StaticDir        string `koanf:"static_dir"`
	ClientIPHeader   string `koanf:"client_ip_header"`
	CORSAllowOrigins string `koanf:"cors_allow_origins"`
	AdminToken       string `koanf:"admin_token"`

	TurnstileSecret    string        `koanf:"turnstile_secret"`
	TurnstileVerifyURL string        `koanf:"turnstile_verify_url"`
	TurnstileTimeout   time.Duration `koanf:"turnstile_timeout"`

	ViewWindow       time.Duration `koanf:"view_window"`
	SubmitRateMax    int           `koanf:"submit_rate_max"`
	SubmitRateWindow time.Duration `koanf:"submit_rate_window"`

	TypesenseHost   string `koanf:"typesense_host"`
	TypesenseAPIKey string `koanf:"typesense_api_key"`

	BackupEnabled       bool   `koanf:"backup_enabled"`
	BackupDir           string `koanf:"backup_dir"`
	BackupEditThreshold int    `koanf:"backup_edit_threshold"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:                 "8080",
		DatabaseMaxOpenConns: 25,
		LogLevel:             "info",
		LogFormat:            "json",
		StaticDir:            "./public",
		ClientIPHeader:       "CF-Connecting-IP",
		CORSAllowOrigins:     "*",
		TurnstileVerifyURL:   "https://challenges.cloudflare.com/turnstile/v0/siteverify",
		TurnstileTimeout:     10 * time.Second,
		ViewWindow:           time.Hour,
		SubmitRateMax:        5,
		SubmitRateWindow:     10 * time.Minute,
		BackupDir:            "./backups",
		BackupEditThreshold:  100,
	}
}

// Load layers defaults, an optional YAML file and the environment, in that
// order of increasing priority.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DatabaseURL) == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if n, err := strconv.Atoi(c.Port); err != nil || n <= 0 || n > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be a valid port number, got %q", c.Port))
	}
	if c.ViewWindow <= 0 {
		errs = append(errs, errors.New("VIEW_WINDOW must be positive"))
	}
	if c.TurnstileTimeout <= 0 {
		errs = append(errs, errors.New("TURNSTILE_TIMEOUT must be positive"))
	}
	if c.TypesenseHost != "" && c.TypesenseAPIKey == "" {
		errs = append(errs, errors.New("TYPESENSE_API_KEY is required when TYPESENSE_HOST is set"))
	}
	if c.BackupEnabled && c.BackupEditThreshold <= 0 {
		errs = append(errs, errors.New("BACKUP_EDIT_THRESHOLD must be positive"))
	}
	if c.SubmitRateMax <= 0 || c.SubmitRateWindow <= 0 {
		errs = append(errs, errors.New("SUBMIT_RATE_MAX and SUBMIT_RATE_WINDOW must be positive"))
	}
	return errors.Join(errs...)
}

// TypesenseEnabled reports whether the lyrics search index is configured.
func (c *Config) TypesenseEnabled() bool {
	return c.TypesenseHost != ""
}

// AllowedOrigins splits CORS_ALLOW_ORIGINS into its entries.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
