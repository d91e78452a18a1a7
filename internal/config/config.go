package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/meltforce/repcoach/internal/exercise"
	"github.com/meltforce/repcoach/internal/levels"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig                         `yaml:"server"`
	Database   DatabaseConfig                       `yaml:"database"`
	Auth       AuthConfig                           `yaml:"auth"`
	Tailscale  TailscaleConfig                      `yaml:"tailscale"`
	Log        LogConfig                            `yaml:"log"`
	Trainer    TrainerConfig                        `yaml:"trainer"`
	Classifier map[exercise.Kind]ClassifierOverride `yaml:"classifier"`
	Levels     levels.Catalogue                     `yaml:"levels"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	// Path is the database file when Driver is sqlite.
	Path string `yaml:"path"`
	// Migrations is the directory of PostgreSQL migrations.
	Migrations string `yaml:"migrations"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type TrainerConfig struct {
	ProcessEveryNthFrame int `yaml:"process_every_nth_frame"`
	RetentionMinutes     int `yaml:"retention_minutes"`
}

// ClassifierOverride replaces individual defaults of one exercise. Zero
// fields keep the default.
type ClassifierOverride struct {
	VisibilityThreshold float64 `yaml:"visibility_threshold"`
	History             int     `yaml:"history"`
	DebounceMS          int     `yaml:"debounce_ms"`
}

// Params converts the override for use with exercise.Params.Override.
func (o ClassifierOverride) Params() exercise.Params {
	return exercise.Params{
		VisibilityThreshold: o.VisibilityThreshold,
		History:             o.History,
		Debounce:            time.Duration(o.DebounceMS) * time.Millisecond,
	}
}

// ClassifierParams returns the overrides keyed by exercise.
func (c *Config) ClassifierParams() map[exercise.Kind]exercise.Params {
	out := make(map[exercise.Kind]exercise.Params, len(c.Classifier))
	for k, o := range c.Classifier {
		out[k] = o.Params()
	}
	return out
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// SlogLevel maps the configured level name to a slog.Level.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix REPCOACH_ and underscore-separated paths:
//
//	REPCOACH_SERVER_HOST, REPCOACH_SERVER_PORT,
//	REPCOACH_DB_DRIVER, REPCOACH_DB_PATH,
//	REPCOACH_DB_HOST, REPCOACH_DB_PORT, REPCOACH_DB_NAME,
//	REPCOACH_DB_USER, REPCOACH_DB_PASSWORD, REPCOACH_DB_SSLMODE,
//	REPCOACH_AUTH_API_KEY, REPCOACH_TAILSCALE_ENABLED,
//	REPCOACH_TAILSCALE_HOSTNAME, REPCOACH_LOG_LEVEL
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REPCOACH_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("REPCOACH_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("REPCOACH_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("REPCOACH_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("REPCOACH_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("REPCOACH_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("REPCOACH_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("REPCOACH_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("REPCOACH_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("REPCOACH_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("REPCOACH_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("REPCOACH_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	if v := os.Getenv("REPCOACH_TAILSCALE_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
	if v := os.Getenv("REPCOACH_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	if c.Database.Migrations == "" {
		c.Database.Migrations = "migrations"
	}
	if c.Tailscale.Hostname == "" {
		c.Tailscale.Hostname = "repcoach"
	}
	if c.Trainer.ProcessEveryNthFrame == 0 {
		c.Trainer.ProcessEveryNthFrame = 2
	}
	if c.Trainer.RetentionMinutes == 0 {
		c.Trainer.RetentionMinutes = 10
	}
	if len(c.Levels) == 0 {
		c.Levels = levels.Default
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Trainer.ProcessEveryNthFrame < 0 {
		return fmt.Errorf("trainer.process_every_nth_frame must be positive")
	}
	for kind, o := range c.Classifier {
		if !kind.Valid() {
			return fmt.Errorf("classifier: unknown exercise %q", kind)
		}
		if o.VisibilityThreshold < 0 || o.VisibilityThreshold >= 1 {
			return fmt.Errorf("classifier.%s.visibility_threshold must be within [0,1)", kind)
		}
		if o.History < 0 || o.DebounceMS < 0 {
			return fmt.Errorf("classifier.%s: history and debounce_ms must not be negative", kind)
		}
	}
	if err := c.Levels.Validate(); err != nil {
		return fmt.Errorf("levels: %w", err)
	}
	return nil
}
