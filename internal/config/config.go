// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Convert  ConvertConfig
	Server   ServerConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Security SecurityConfig
	Rate     RateLimitConfig
	Logging  LoggingConfig
}

// ConvertConfig holds the registry file conversion settings.
type ConvertConfig struct {
	// InputEncoding is the source file encoding (default: utf-16, BOM-detected)
	InputEncoding string `env:"INPUT_ENCODING" default:"utf-16"`

	// OutputEncoding is the target file encoding (default: latin-1)
	OutputEncoding string `env:"OUTPUT_ENCODING" default:"latin-1"`

	// InputDelimiter separates fields in the source file (default: tab)
	InputDelimiter string `env:"INPUT_DELIMITER" default:"tab"`

	// OutputDelimiter separates fields in the target file (default: tab)
	OutputDelimiter string `env:"OUTPUT_DELIMITER" default:"tab"`

	// Quoting is the output quoting mode: all, minimal, nonnumeric, none (default: all)
	Quoting string `env:"OUTPUT_QUOTING" default:"all"`

	// LineTerminator is crlf or lf (default: crlf)
	LineTerminator string `env:"OUTPUT_LINE_TERMINATOR" default:"crlf"`

	// SkipRows is the number of leading header records to discard (default: 3)
	SkipRows int `env:"SKIP_ROWS" default:"3"`

	// RequiredFields is a comma-separated list of fields that must be non-empty
	RequiredFields []string `env:"REQUIRED_FIELDS"`

	// ReplaceUnsupported substitutes characters the output encoding cannot
	// represent instead of failing the row (default: false)
	ReplaceUnsupported bool `env:"REPLACE_UNSUPPORTED" default:"false"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds optional persistence settings.
// Converted records are only stored when URL is set.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// BatchSize is the number of records copied per round trip (default: 500)
	BatchSize int `env:"DB_BATCH_SIZE" default:"500"`

	// RetentionDays deletes stored runs older than this many days; 0 keeps
	// them forever (default: 0)
	RetentionDays int `env:"DB_RETENTION_DAYS" default:"0"`

	// RetentionInterval is how often the retention job runs (default: 24h)
	RetentionInterval time.Duration `env:"DB_RETENTION_INTERVAL" default:"24h"`
}

// Enabled reports whether a database is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// UploadConfig holds limits for conversions submitted over HTTP.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 100MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`

	// MaxConcurrent is the maximum number of parallel conversions (default: 5)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for a conversion slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration for a single conversion (default: 10m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"10m"`
}

// SecurityConfig holds HTTP access settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Real-IP / X-Forwarded-For headers are believed
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey rejects /api requests without a valid X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// RateLimitConfig holds per-client request limits for the /api routes.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the limit per client IP across /api (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ConvertLimit is the per-minute limit for POST /api/convert (default: 10)
	ConvertLimit int `env:"RATE_LIMIT_CONVERT" envAlt:"RATE_LIMIT_UPLOAD" default:"10"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
