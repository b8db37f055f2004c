// Package config provides configuration management for the shopping list service.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "APP"

// Default configuration values.
const (
	DefaultServerPort      = 8080
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMetricsEnabled  = true
	DefaultAuthMode        = "none"
	DefaultStoreDriver     = StoreSQLite
	DefaultCacheTTL        = 300 * time.Second
	DefaultHistoryCacheTTL = 60 * time.Second
	DefaultEditWindow      = 60 * time.Minute
	DefaultHistoryLimit    = 10
	DefaultNotifier        = NotifierTwilio
	DefaultEnvFile         = ".env"
)

// Store drivers.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Notifier kinds.
const (
	NotifierTwilio = "twilio"
	NotifierLog    = "log"
)

// Environment variable names.
const (
	EnvServerPort       = "APP_SERVER_PORT"
	EnvLogLevel         = "APP_LOG_LEVEL"
	EnvShutdownTimeout  = "APP_SHUTDOWN_TIMEOUT"
	EnvMetricsEnabled   = "APP_METRICS_ENABLED"
	EnvAuthMode         = "APP_AUTH_MODE"
	EnvBasicAuthUsers   = "APP_BASIC_AUTH_USERS"
	EnvAPIKeys          = "APP_API_KEYS" //nolint:gosec // env var name, not a credential
	EnvStoreDriver      = "APP_STORE_DRIVER"
	EnvSQLitePath       = "APP_SQLITE_PATH"
	EnvCacheTTL         = "APP_CACHE_TTL"
	EnvHistoryCacheTTL  = "APP_HISTORY_CACHE_TTL"
	EnvEditWindow       = "APP_EDIT_WINDOW"
	EnvHistoryLimit     = "APP_HISTORY_LIMIT"
	EnvNotifier         = "APP_NOTIFIER"
	EnvTwilioAccountSID = "APP_TWILIO_ACCOUNT_SID"
	EnvTwilioAuthToken  = "APP_TWILIO_AUTH_TOKEN" //nolint:gosec // env var name, not a credential
	EnvTwilioFrom       = "APP_TWILIO_WHATSAPP_FROM"
	EnvWhatsAppTo       = "APP_WHATSAPP_TO"
)

// Config holds the application configuration.
type Config struct {
	// Server settings.
	ServerPort      int           `envconfig:"SERVER_PORT" default:"8080"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	MetricsEnabled  bool          `envconfig:"METRICS_ENABLED" default:"true"`

	// Authentication mode: none, basic, apikey, multi.
	AuthMode string `envconfig:"AUTH_MODE" default:"none"`

	// Basic auth settings (format: "user1:bcrypt_hash,user2:bcrypt_hash").
	BasicAuthUsers string `envconfig:"BASIC_AUTH_USERS"`

	// API key settings (format: "key1:name1,key2:name2").
	APIKeys string `envconfig:"API_KEYS"`

	// Backing store settings.
	StoreDriver string `envconfig:"STORE_DRIVER" default:"sqlite"`
	SQLitePath  string `envconfig:"SQLITE_PATH"`

	// Cache and history policy.
	CacheTTL        time.Duration `envconfig:"CACHE_TTL" default:"300s"`
	HistoryCacheTTL time.Duration `envconfig:"HISTORY_CACHE_TTL" default:"60s"`
	EditWindow      time.Duration `envconfig:"EDIT_WINDOW" default:"60m"`
	HistoryLimit    int           `envconfig:"HISTORY_LIMIT" default:"10"`

	// Delivery settings.
	Notifier         string `envconfig:"NOTIFIER" default:"twilio"`
	TwilioAccountSID string `envconfig:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `envconfig:"TWILIO_AUTH_TOKEN"`
	TwilioFrom       string `envconfig:"TWILIO_WHATSAPP_FROM"`
	WhatsAppTo       string `envconfig:"WHATSAPP_TO"`
}

// Validation errors.
var (
	ErrInvalidServerPort      = errors.New("server port must be between 1 and 65535")
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrInvalidAuthMode        = errors.New("auth mode must be one of: none, basic, apikey, multi")
	ErrInvalidBasicAuthConfig = errors.New(
		"basic auth users must be set when auth mode is basic",
	)
	ErrInvalidAPIKeyConfig = errors.New(
		"API keys must be set when auth mode is apikey",
	)
	ErrInvalidMultiAuthConfig = errors.New(
		"at least one auth config must be provided when auth mode is multi",
	)
	ErrInvalidStoreDriver  = errors.New("store driver must be one of: sqlite, memory")
	ErrInvalidCacheTTL     = errors.New("cache TTLs must be positive")
	ErrInvalidEditWindow   = errors.New("edit window must be positive")
	ErrInvalidHistoryLimit = errors.New("history limit must be positive")
	ErrInvalidNotifier     = errors.New("notifier must be one of: twilio, log")
)

// Load reads configuration from environment variables with defaults. Each
// env file that exists is loaded first; variables already set in the
// environment take priority over file values.
func Load(envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if cfg.SQLitePath == "" {
		cfg.SQLitePath = DefaultSQLitePath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadEnvFiles(paths []string) error {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}

// DefaultSQLitePath returns the database location under the XDG data home.
func DefaultSQLitePath() string {
	return filepath.Join(xdg.DataHome, "shoplist", "shoplist.db")
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateAuth(); err != nil {
		return err
	}

	return c.validateDomain()
}

// validateServer validates server-related configuration.
func (c *Config) validateServer() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidServerPort
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return ErrInvalidLogLevel
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	return nil
}

// validateAuth validates authentication configuration.
func (c *Config) validateAuth() error {
	authMode := c.authModeOrDefault()

	validAuthModes := map[string]bool{
		"none":   true,
		"basic":  true,
		"apikey": true,
		"multi":  true,
	}
	if !validAuthModes[authMode] {
		return ErrInvalidAuthMode
	}

	switch authMode {
	case "basic":
		if c.BasicAuthUsers == "" {
			return ErrInvalidBasicAuthConfig
		}
	case "apikey":
		if c.APIKeys == "" {
			return ErrInvalidAPIKeyConfig
		}
	case "multi":
		if c.BasicAuthUsers == "" && c.APIKeys == "" {
			return ErrInvalidMultiAuthConfig
		}
	}

	return nil
}

// validateDomain validates store, cache and delivery configuration.
func (c *Config) validateDomain() error {
	switch c.StoreDriver {
	case StoreSQLite, StoreMemory:
	default:
		return ErrInvalidStoreDriver
	}

	if c.CacheTTL <= 0 || c.HistoryCacheTTL <= 0 {
		return ErrInvalidCacheTTL
	}

	if c.EditWindow <= 0 {
		return ErrInvalidEditWindow
	}

	if c.HistoryLimit <= 0 {
		return ErrInvalidHistoryLimit
	}

	switch c.Notifier {
	case NotifierTwilio, NotifierLog:
	default:
		return ErrInvalidNotifier
	}

	return nil
}

// authModeOrDefault returns the auth mode, defaulting to "none" if empty.
func (c *Config) authModeOrDefault() string {
	if c.AuthMode == "" {
		return DefaultAuthMode
	}
	return c.AuthMode
}

// Address returns the server address in host:port format.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

// TwilioConfigured reports whether every Twilio credential is set.
func (c *Config) TwilioConfigured() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFrom != ""
}
