// Package config provides configuration management for the DailyClean console.
// It uses koanf v2 to load configuration from a YAML file, then applies
// DAILYCLEAN_* environment overrides (DAILYCLEAN_SERVER_URL overrides
// server_url, and so on).
//
// Configuration is loaded from ~/.config/dailyclean/console.yaml by default.
// The file may hold an API token and a NATS seed, so Save writes it with
// 0600 permissions.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	goyaml "gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables that override file values.
const EnvPrefix = "DAILYCLEAN_"

// DefaultConfigurationPath is the API path serving the active window.
const DefaultConfigurationPath = "/timeranges"

// Config holds the console configuration.
// Fields are tagged for both koanf (loading) and yaml (saving).
type Config struct {
	// ServerURL is the base URL of the DailyClean API (e.g., "http://localhost:8080").
	// Required.
	ServerURL string `koanf:"server_url" yaml:"server_url"`

	// ConfigurationPath is appended to ServerURL to address the active window.
	// Default: "/timeranges".
	ConfigurationPath string `koanf:"configuration_path" yaml:"configuration_path"`

	// APIToken is sent as a bearer token when set.
	APIToken string `koanf:"api_token" yaml:"api_token,omitempty"`

	// RequestTimeout is the per-attempt HTTP timeout in seconds.
	// Default: 10 seconds.
	RequestTimeout int `koanf:"request_timeout" yaml:"request_timeout"`

	// RetryMax is how many times a failed request is retried.
	// Default: 3. A negative value disables retries.
	RetryMax int `koanf:"retry_max" yaml:"retry_max"`

	// AlertTimeout is how long (in seconds) the form keeps a success or
	// error alert before dismissing it. Default: 5 seconds.
	AlertTimeout int `koanf:"alert_timeout" yaml:"alert_timeout"`

	// LogLevel controls the verbosity of console logging.
	// Valid values: "debug", "info", "warn", "error".
	// Default: "info".
	LogLevel string `koanf:"log_level" yaml:"log_level"`

	// LogFile receives the JSON log. The terminal belongs to the form, so
	// logs never go to stdout. Default: <data_dir>/console.log.
	LogFile string `koanf:"log_file" yaml:"log_file"`

	// DataDir holds the history journal and the log file.
	// Default: ~/.local/share/dailyclean.
	DataDir string `koanf:"data_dir" yaml:"data_dir"`

	// NATSServers is a comma-separated list of NATS server URLs.
	// If set, saved windows are announced on NATSSubject.
	NATSServers string `koanf:"nats_servers" yaml:"nats_servers,omitempty"`

	// NATSNKeySeed is the optional NKey seed for NATS authentication.
	NATSNKeySeed string `koanf:"nats_nkey_seed" yaml:"nats_nkey_seed,omitempty"`

	// NATSSubject is where window updates are published.
	// Default: "dailyclean.timeranges.updated".
	NATSSubject string `koanf:"nats_subject" yaml:"nats_subject,omitempty"`
}

// Validation errors returned by Load when fields are missing or malformed.
var (
	ErrServerURLRequired     = errors.New("server_url is required")
	ErrInvalidServerURL      = errors.New("server_url must be an absolute http or https URL")
	ErrInvalidRequestTimeout = errors.New("request_timeout must be positive")
	ErrInvalidLogLevel       = errors.New("log_level must be one of debug, info, warn, error")
)

// DefaultConfigPath returns the default location of the configuration file.
func DefaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "dailyclean", "console.yaml")
	}
	return "console.yaml"
}

// Load reads configuration from the specified YAML file path, then applies
// environment overrides. A missing file is not an error as long as the
// environment supplies the required fields.
// It applies defaults for optional fields and validates required fields.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	// DAILYCLEAN_SERVER_URL -> server_url
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a configuration with every default applied and the
// given server URL. It is the template written by -init-config.
func Default(serverURL string) *Config {
	cfg := &Config{ServerURL: serverURL}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults sets default values for optional configuration fields.
func (c *Config) applyDefaults() {
	if c.ConfigurationPath == "" {
		c.ConfigurationPath = DefaultConfigurationPath
	}
	if !strings.HasPrefix(c.ConfigurationPath, "/") {
		c.ConfigurationPath = "/" + c.ConfigurationPath
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10
	}
	if c.RetryMax == 0 {
		c.RetryMax = 3
	}
	if c.AlertTimeout == 0 {
		c.AlertTimeout = 5
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.DataDir == "" {
		c.DataDir = defaultDataDir()
	}
	if c.LogFile == "" {
		c.LogFile = filepath.Join(c.DataDir, "console.log")
	}
	if c.NATSSubject == "" {
		c.NATSSubject = "dailyclean.timeranges.updated"
	}
}

// validate checks that required configuration fields are present and valid.
func (c *Config) validate() error {
	if c.ServerURL == "" {
		return ErrServerURLRequired
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidServerURL
	}
	if c.RequestTimeout < 0 {
		return ErrInvalidRequestTimeout
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return ErrInvalidLogLevel
	}
	return nil
}

func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "dailyclean")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "dailyclean")
	}
	return "."
}

// Save writes the configuration to the specified YAML file path.
// The file is created with 0600 permissions (owner read/write only)
// as it may contain the API token and NKey seed.
func Save(path string, cfg *Config) error {
	data, err := goyaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config to %s: %w", path, err)
	}

	return nil
}

// ConfigurationURL returns the absolute URL of the active window resource.
func (c *Config) ConfigurationURL() string {
	return strings.TrimRight(c.ServerURL, "/") + c.ConfigurationPath
}

// Timeout returns RequestTimeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// AlertDuration returns AlertTimeout as a duration.
func (c *Config) AlertDuration() time.Duration {
	return time.Duration(c.AlertTimeout) * time.Second
}

// HistoryPath returns the location of the history journal.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// NATSEnabled returns true if NATS configuration is present.
func (c *Config) NATSEnabled() bool {
	return c.NATSServers != ""
}
