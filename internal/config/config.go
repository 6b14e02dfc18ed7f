// Package config loads the application configuration from an optional YAML
// file layered with ZAP_-prefixed environment variables. File values
// override envconfig defaults; explicitly set environment variables override
// the file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// envPrefix is the environment variable prefix, e.g. ZAP_SERVER_PORT.
const envPrefix = "ZAP"

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Catalog  CatalogConfig  `yaml:"catalog" envconfig:"CATALOG"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// SecurityConfig contains the licensing secrets and HTTP protections.
type SecurityConfig struct {
	// SecretSalt signs license keys. Changing it invalidates every issued
	// key, so it is set once per deployment and never rotated casually.
	SecretSalt string `yaml:"secret_salt" envconfig:"SECRET_SALT" default:"ZAP_CATALOG_2024_MASTER_KEY_#9921"`
	// MasterPassword guards the administrative issuing endpoints.
	MasterPassword string `yaml:"master_password" envconfig:"MASTER_PASSWORD"`
	// StorePassphrase seals the activation session at rest.
	StorePassphrase string          `yaml:"store_passphrase" envconfig:"STORE_PASSPHRASE" default:"zapcatalog-local-profile"`
	AllowedOrigins  []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS      bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig throttles the activation and public decode endpoints.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"10"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"20"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"stdout"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/zapcatalog.log"`
}

// PathsConfig contains file system paths.
type PathsConfig struct {
	DataDir   string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	ExportDir string `yaml:"export_dir" envconfig:"EXPORT_DIR" default:"exports"`
}

// CatalogConfig contains catalog and share-link settings.
type CatalogConfig struct {
	// BaseURL is the canonical origin share links are composed against,
	// regardless of which host the merchant is editing from.
	BaseURL string `yaml:"base_url" envconfig:"BASE_URL" default:"http://localhost:8080"`
	// MaxProducts is a soft cap keeping the encoded token within practical
	// QR and URL length limits.
	MaxProducts int `yaml:"max_products" envconfig:"MAX_PRODUCTS" default:"60"`
	QRSize      int `yaml:"qr_size" envconfig:"QR_SIZE" default:"256"`
}

// Load reads the configuration, layering the optional config file under
// environment variables.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv("ZAP_CONFIG_PATH"))
}

// LoadFrom loads configuration with an explicit config file path. An empty
// path means environment and defaults only.
func LoadFrom(configFile string) (*Config, error) {
	var cfg Config

	// Environment and defaults first. envconfig applies a field's default
	// whenever its variable is unset, so running it after the file would
	// clobber file values with defaults.
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("config: process environment: %w", err)
	}

	if configFile != "" {
		fileCfg, err := loadFromFile(configFile)
		if err != nil {
			return nil, err
		}
		mergeFileConfig(&cfg, fileCfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return &cfg, nil
}

// loadFromFile reads and parses a YAML configuration file.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}

// mergeFileConfig copies file values over cfg for every field whose
// environment variable is unset. A zero-value check on cfg cannot tell a
// defaulted field from an explicit one, so precedence of explicit env vars
// is decided by looking the variable up directly. Boolean fields stay
// environment-controlled: a false in the file is indistinguishable from an
// omitted key.
func mergeFileConfig(cfg, file *Config) {
	envSet := func(name string) bool {
		_, ok := os.LookupEnv(envPrefix + "_" + name)
		return ok
	}

	if file.Server.Port != 0 && !envSet("SERVER_PORT") {
		cfg.Server.Port = file.Server.Port
	}
	if file.Server.ReadTimeout != 0 && !envSet("SERVER_READ_TIMEOUT") {
		cfg.Server.ReadTimeout = file.Server.ReadTimeout
	}
	if file.Server.WriteTimeout != 0 && !envSet("SERVER_WRITE_TIMEOUT") {
		cfg.Server.WriteTimeout = file.Server.WriteTimeout
	}
	if file.Server.IdleTimeout != 0 && !envSet("SERVER_IDLE_TIMEOUT") {
		cfg.Server.IdleTimeout = file.Server.IdleTimeout
	}
	if file.Server.ShutdownTimeout != 0 && !envSet("SERVER_SHUTDOWN_TIMEOUT") {
		cfg.Server.ShutdownTimeout = file.Server.ShutdownTimeout
	}

	if file.Security.SecretSalt != "" && !envSet("SECURITY_SECRET_SALT") {
		cfg.Security.SecretSalt = file.Security.SecretSalt
	}
	if file.Security.MasterPassword != "" && !envSet("SECURITY_MASTER_PASSWORD") {
		cfg.Security.MasterPassword = file.Security.MasterPassword
	}
	if file.Security.StorePassphrase != "" && !envSet("SECURITY_STORE_PASSPHRASE") {
		cfg.Security.StorePassphrase = file.Security.StorePassphrase
	}
	if len(file.Security.AllowedOrigins) != 0 && !envSet("SECURITY_ALLOWED_ORIGINS") {
		cfg.Security.AllowedOrigins = file.Security.AllowedOrigins
	}
	if file.Security.RateLimit.RPS != 0 && !envSet("SECURITY_RATE_LIMIT_RPS") {
		cfg.Security.RateLimit.RPS = file.Security.RateLimit.RPS
	}
	if file.Security.RateLimit.Burst != 0 && !envSet("SECURITY_RATE_LIMIT_BURST") {
		cfg.Security.RateLimit.Burst = file.Security.RateLimit.Burst
	}

	if file.Logging.Level != "" && !envSet("LOGGING_LEVEL") {
		cfg.Logging.Level = file.Logging.Level
	}
	if file.Logging.Output != "" && !envSet("LOGGING_OUTPUT") {
		cfg.Logging.Output = file.Logging.Output
	}
	if file.Logging.FilePath != "" && !envSet("LOGGING_FILE_PATH") {
		cfg.Logging.FilePath = file.Logging.FilePath
	}

	if file.Paths.DataDir != "" && !envSet("PATHS_DATA_DIR") {
		cfg.Paths.DataDir = file.Paths.DataDir
	}
	if file.Paths.ExportDir != "" && !envSet("PATHS_EXPORT_DIR") {
		cfg.Paths.ExportDir = file.Paths.ExportDir
	}

	if file.Catalog.BaseURL != "" && !envSet("CATALOG_BASE_URL") {
		cfg.Catalog.BaseURL = file.Catalog.BaseURL
	}
	if file.Catalog.MaxProducts != 0 && !envSet("CATALOG_MAX_PRODUCTS") {
		cfg.Catalog.MaxProducts = file.Catalog.MaxProducts
	}
	if file.Catalog.QRSize != 0 && !envSet("CATALOG_QR_SIZE") {
		cfg.Catalog.QRSize = file.Catalog.QRSize
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Security.SecretSalt == "" {
		return fmt.Errorf("security.secret_salt is required")
	}
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog.base_url is required")
	}
	if c.Catalog.MaxProducts < 1 {
		return fmt.Errorf("catalog.max_products must be positive")
	}
	return nil
}

// ListenAddr returns the server bind address.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
