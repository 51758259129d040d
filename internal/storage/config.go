// Manages store options and the server configuration stored in config.json.

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultLockTimeout bounds write lock acquisition when Config.LockTimeout is zero.
const DefaultLockTimeout = 10 * time.Second

// Config configures a Store.
type Config struct {
	// DataPath is the JSON document holding the collection. Required.
	DataPath string
	// LockPath is the advisory lock file. Defaults to DataPath + ".lock".
	LockPath string
	// LockTimeout bounds write lock acquisition. Defaults to DefaultLockTimeout.
	LockTimeout time.Duration
	// Watch reloads the snapshot when another process rewrites DataPath.
	Watch bool
	// Lenient logs unrecognized statements and answers them with an empty
	// result instead of returning query.ErrUnrecognized.
	Lenient bool
	// Now is the clock used for created_date and updated_date. Defaults to time.Now.
	Now func() time.Time
}

func (c *Config) withDefaults() (Config, error) {
	out := *c
	if out.DataPath == "" {
		return out, errors.New("data path is required")
	}
	if out.LockPath == "" {
		out.LockPath = out.DataPath + ".lock"
	}
	if out.LockPath == out.DataPath {
		return out, errors.New("lock path must differ from data path")
	}
	if out.LockTimeout == 0 {
		out.LockTimeout = DefaultLockTimeout
	}
	if out.LockTimeout < 0 {
		return out, errors.New("lock timeout must be non-negative")
	}
	if out.Now == nil {
		out.Now = time.Now
	}
	return out, nil
}

// ServerConfig stores the server-wide configuration.
// Loaded from config.json, created with defaults if missing.
type ServerConfig struct {
	// DataFile is the collection document, relative to the data directory.
	DataFile string `json:"data_file"`

	// LockFile is the advisory lock file, relative to the data directory.
	LockFile string `json:"lock_file"`

	// LockTimeout bounds write lock acquisition, as a Go duration string.
	LockTimeout Duration `json:"lock_timeout"`

	// MaxRequestBodyBytes limits the size of any single HTTP request body.
	MaxRequestBodyBytes int64 `json:"max_request_body_bytes"`

	// RateLimits defines rate limiting configuration.
	RateLimits RateLimits `json:"rate_limits"`
}

// RateLimits defines rate limiting configuration (requests per minute).
type RateLimits struct {
	// WriteRatePerMin limits write operations (POST/PUT/DELETE) per client IP.
	// 0 means unlimited.
	WriteRatePerMin int `json:"write_rate_per_min"`

	// ReadRatePerMin limits read operations per client IP.
	// 0 means unlimited.
	ReadRatePerMin int `json:"read_rate_per_min"`
}

// Validate checks that rate limit values are non-negative.
func (r *RateLimits) Validate() error {
	if r.WriteRatePerMin < 0 {
		return errors.New("write_rate_per_min must be non-negative")
	}
	if r.ReadRatePerMin < 0 {
		return errors.New("read_rate_per_min must be non-negative")
	}
	return nil
}

// DefaultRateLimits returns the default rate limits.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		WriteRatePerMin: 120,  // 2 req/s sustained for writes
		ReadRatePerMin:  6000, // 100 req/s for reads
	}
}

// DefaultServerConfig returns the configuration written on first start.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		DataFile:            "albums.json",
		LockFile:            "albums.json.lock",
		LockTimeout:         Duration(DefaultLockTimeout),
		MaxRequestBodyBytes: 1024 * 1024, // 1 MiB
		RateLimits:          DefaultRateLimits(),
	}
}

// Validate checks that the configuration is valid.
func (c *ServerConfig) Validate() error {
	if c.DataFile == "" {
		return errors.New("data_file is required")
	}
	if c.LockFile == "" {
		return errors.New("lock_file is required")
	}
	if filepath.Clean(c.DataFile) == filepath.Clean(c.LockFile) {
		return errors.New("lock_file must differ from data_file")
	}
	if c.LockTimeout < 0 {
		return errors.New("lock_timeout must be non-negative")
	}
	if c.MaxRequestBodyBytes <= 0 {
		return errors.New("max_request_body_bytes must be positive")
	}
	if err := c.RateLimits.Validate(); err != nil {
		return fmt.Errorf("rate_limits: %w", err)
	}
	return nil
}

// StoreConfig returns the Config for the store living in dataDir.
func (c *ServerConfig) StoreConfig(dataDir string) Config {
	return Config{
		DataPath:    filepath.Join(dataDir, c.DataFile),
		LockPath:    filepath.Join(dataDir, c.LockFile),
		LockTimeout: time.Duration(c.LockTimeout),
	}
}

// LoadServerConfig loads configuration from dataDir/config.json.
// Creates the file with defaults if it doesn't exist.
func LoadServerConfig(dataDir string) (*ServerConfig, error) {
	path := filepath.Join(dataDir, "config.json")

	cfg := DefaultServerConfig()

	data, err := os.ReadFile(path) //nolint:gosec // G304: path is constructed from dataDir, not user input
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config.json: %w", err)
		}
		if err := cfg.Save(dataDir); err != nil {
			return nil, err
		}
	} else if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config.json: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config.json: %w", err)
	}
	return &cfg, nil
}

// Save saves configuration to dataDir/config.json.
func (c *ServerConfig) Save(dataDir string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(filepath.Join(dataDir, "config.json"), data, 0o600); err != nil {
		return fmt.Errorf("failed to write config.json: %w", err)
	}
	return nil
}

// Duration is a time.Duration persisted as a string like "10s".
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n int64
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("invalid duration %s", b)
		}
		*d = Duration(n)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
