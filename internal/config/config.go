package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the whole mangafeed configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logger   LoggerConfig   `yaml:"logger"`
	Upstream UpstreamConfig `yaml:"upstream"`
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
}

type ServerConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// Address is host:port suitable for net.Listen.
func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// LoggerConfig controls level and rotation. Empty File logs to stdout and
// stderr instead of files.
type LoggerConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	ErrorFile  string `yaml:"error_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type UpstreamConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type AppConfig struct {
	Series            []string        `yaml:"series"`
	Mode              string          `yaml:"mode"`
	Concurrency       int             `yaml:"concurrency"`
	Window            int             `yaml:"window"`
	DefaultFetchLimit int             `yaml:"default_fetch_limit"`
	ProbeInterval     string          `yaml:"probe_interval"`
	CORSOrigins       []string        `yaml:"cors_origins"`
	RateLimit         RateLimitConfig `yaml:"rate_limit"`
}

type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns a postgres:// connection URI for pgxpool.
func (c *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Username, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// New returns the defaults.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ShutdownTimeout: "10s",
		},
		Logger: LoggerConfig{
			Level:      "info",
			MaxSizeMB:  64,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Upstream: UpstreamConfig{
			BaseURL: "https://api.mangarockhd.com/query/web401",
			Timeout: "30s",
		},
		App: AppConfig{
			Series:            []string{"mrs-serie-288364", "mrs-serie-35593"},
			Mode:              "lenient",
			Concurrency:       1,
			Window:            10,
			DefaultFetchLimit: 20,
			CORSOrigins:       []string{"*"},
			RateLimit:         RateLimitConfig{RPS: 5, Burst: 10},
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path and the process environment, in that order. An optional .env file is
// loaded into the environment first, so ${VAR} references inside the YAML
// file may point at .env entries.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	cfg := New()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML from file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("HOST"); ok && v != "" {
		c.Server.Host = v
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("MANGAFEED_STRICT"); ok && v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid MANGAFEED_STRICT %q: %w", v, err)
		}
		if strict {
			c.App.Mode = "strict"
		} else {
			c.App.Mode = "lenient"
		}
	}
	if v, ok := lookup("MANGAFEED_SERIES"); ok && v != "" {
		c.App.Series = splitList(v)
	}
	if v, ok := lookup("DATABASE_ENABLED"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DATABASE_ENABLED %q: %w", v, err)
		}
		c.Database.Enabled = enabled
	}
	if v, ok := lookup("DATABASE_HOST"); ok && v != "" {
		c.Database.Host = v
	}
	if v, ok := lookup("DATABASE_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DATABASE_PORT %q: %w", v, err)
		}
		c.Database.Port = port
	}
	if v, ok := lookup("DATABASE_USER"); ok && v != "" {
		c.Database.Username = v
	}
	if v, ok := lookup("DATABASE_PASSWORD"); ok && v != "" {
		c.Database.Password = v
	}
	if v, ok := lookup("DATABASE_NAME"); ok && v != "" {
		c.Database.DBName = v
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate returns the first problem found.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if _, err := time.ParseDuration(c.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid server.shutdown_timeout: %w", err)
	}
	switch c.Logger.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logger.level %q", c.Logger.Level)
	}
	if u, err := url.ParseRequestURI(c.Upstream.BaseURL); err != nil || u.Host == "" {
		return fmt.Errorf("invalid upstream.base_url: %s", c.Upstream.BaseURL)
	}
	if d, err := time.ParseDuration(c.Upstream.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("invalid upstream.timeout: %q", c.Upstream.Timeout)
	}
	if len(c.App.Series) == 0 {
		return fmt.Errorf("app.series must not be empty")
	}
	for i, id := range c.App.Series {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("app.series[%d] is blank", i)
		}
	}
	switch strings.ToLower(c.App.Mode) {
	case "lenient", "strict":
	default:
		return fmt.Errorf("unknown app.mode %q", c.App.Mode)
	}
	if c.App.Concurrency < 1 {
		return fmt.Errorf("app.concurrency must be at least 1")
	}
	if c.App.Window < 1 {
		return fmt.Errorf("app.window must be a positive number")
	}
	if c.App.DefaultFetchLimit <= 0 {
		return fmt.Errorf("app.default_fetch_limit must be a positive number")
	}
	if _, err := c.ProbeInterval(); err != nil {
		return fmt.Errorf("invalid app.probe_interval: %w", err)
	}
	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is not set")
		}
		if c.Database.Username == "" {
			return fmt.Errorf("database username is not set")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("database name is not set")
		}
	}
	return nil
}

// ProbeInterval is zero when probing is disabled.
func (c *Config) ProbeInterval() (time.Duration, error) {
	if c.App.ProbeInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.App.ProbeInterval)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative interval %s", d)
	}
	return d, nil
}

// UpstreamTimeout assumes Validate has passed.
func (c *Config) UpstreamTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Upstream.Timeout)
	return d
}

// ShutdownTimeout assumes Validate has passed.
func (c *Config) ShutdownTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Server.ShutdownTimeout)
	return d
}
