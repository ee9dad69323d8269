package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Server    ServerConfig    `yaml:"server" envPrefix:"SERVER_"`
	Storage   StorageConfig   `yaml:"storage" envPrefix:"STORAGE_"`
	Analysis  AnalysisConfig  `yaml:"analysis" envPrefix:"ANALYSIS_"`
	Tailscale TailscaleConfig `yaml:"tailscale" envPrefix:"TAILSCALE_"`
	Log       LogConfig       `yaml:"log" envPrefix:"LOG_"`
	Locale    LocaleConfig    `yaml:"locale" envPrefix:"LOCALE_"`
}

type ServerConfig struct {
	Host string `yaml:"host" env:"HOST"`
	Port int    `yaml:"port" env:"PORT"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" env:"DRIVER"`
	// Path is the SQLite database file.
	Path string `yaml:"path" env:"PATH"`
	// Slot names the row holding the serialized collection.
	Slot     string `yaml:"slot" env:"SLOT"`
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	Name     string `yaml:"name" env:"NAME"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	SSLMode  string `yaml:"sslmode" env:"SSLMODE"`
}

type AnalysisConfig struct {
	APIKey      string        `yaml:"api_key" env:"API_KEY"`
	Model       string        `yaml:"model" env:"MODEL"`
	URL         string        `yaml:"url" env:"URL"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT"`
	HistorySize int           `yaml:"history_size" env:"HISTORY_SIZE"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	Hostname string `yaml:"hostname" env:"HOSTNAME"`
	StateDir string `yaml:"state_dir" env:"STATE_DIR"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
	// File, when set, receives a rotated copy of the log output.
	File string `yaml:"file" env:"FILE"`
}

type LocaleConfig struct {
	Language string `yaml:"language" env:"LANGUAGE"`
	Timezone string `yaml:"timezone" env:"TIMEZONE"`
}

// DSN returns a PostgreSQL connection string.
func (s StorageConfig) DSN() string {
	sslmode := s.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		s.User, s.Password, s.Host, s.Port, s.Name, sslmode)
}

// Source returns what storage.Open expects for the configured driver.
func (s StorageConfig) Source() string {
	switch s.Driver {
	case DriverPostgres:
		return s.DSN()
	case DriverMemory:
		return ""
	default:
		return s.Path
	}
}

// Location resolves the configured timezone.
func (l LocaleConfig) Location() (*time.Location, error) {
	return time.LoadLocation(l.Timezone)
}

// Tag resolves the configured language.
func (l LocaleConfig) Tag() (language.Tag, error) {
	return language.Parse(l.Language)
}

// Default returns a config that runs a local server on a SQLite file.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Host: "127.0.0.1", Port: 8080},
		Storage: StorageConfig{Driver: DriverSQLite, Path: "liftlog.db", Slot: "sessions", Port: 5432},
		Analysis: AnalysisConfig{
			Timeout:     60 * time.Second,
			HistorySize: 10,
		},
		Tailscale: TailscaleConfig{Hostname: "liftlog", StateDir: "tsnet-state"},
		Log:       LogConfig{Level: "info", Format: "text"},
		Locale:    LocaleConfig{Language: "es", Timezone: "UTC"},
	}
}

// Load starts from Default, merges the YAML file at path (skipped when path
// is empty), then applies environment variable overrides. Env vars use the
// prefix LIFTLOG_ and underscore-separated paths:
//
//	LIFTLOG_SERVER_HOST, LIFTLOG_SERVER_PORT,
//	LIFTLOG_STORAGE_DRIVER, LIFTLOG_STORAGE_PATH, LIFTLOG_STORAGE_SLOT,
//	LIFTLOG_STORAGE_HOST, LIFTLOG_STORAGE_PASSWORD, ...
//	LIFTLOG_ANALYSIS_API_KEY, LIFTLOG_ANALYSIS_MODEL, LIFTLOG_ANALYSIS_TIMEOUT,
//	LIFTLOG_LOG_LEVEL, LIFTLOG_LOCALE_TIMEZONE
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "LIFTLOG_"}); err != nil {
		return fmt.Errorf("parsing env overrides: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Storage.Host == "" {
			return fmt.Errorf("storage.host is required for the postgres driver")
		}
		if c.Storage.Name == "" {
			return fmt.Errorf("storage.name is required for the postgres driver")
		}
		if c.Storage.User == "" {
			return fmt.Errorf("storage.user is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("storage.driver %q is not one of sqlite, postgres, memory", c.Storage.Driver)
	}
	if strings.TrimSpace(c.Storage.Slot) == "" {
		return fmt.Errorf("storage.slot is required")
	}

	if c.Analysis.Timeout < 0 {
		return fmt.Errorf("analysis.timeout must not be negative")
	}
	if c.Analysis.HistorySize < 0 {
		return fmt.Errorf("analysis.history_size must not be negative")
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q is not one of text, json", c.Log.Format)
	}

	if _, err := c.Locale.Location(); err != nil {
		return fmt.Errorf("locale.timezone: %w", err)
	}
	if _, err := c.Locale.Tag(); err != nil {
		return fmt.Errorf("locale.language: %w", err)
	}
	return nil
}
