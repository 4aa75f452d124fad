// Package config loads tradescout configuration from YAML with
// environment variable overrides. Configuration is read once at process
// start and passed into each component's constructor; there is no
// global config singleton and no hot reload.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all tradescout configuration.
type Config struct {
	// Target site URLs
	Target TargetConfig `yaml:"target"`

	// Login credentials and session lifetime
	Auth AuthConfig `yaml:"auth"`

	// Browser engine settings
	Browser BrowserConfig `yaml:"browser"`

	// Request pacing and retry budget
	Scraping ScrapingConfig `yaml:"scraping"`

	// Session artifact storage
	Session SessionConfig `yaml:"session"`

	// Tabular export output
	Export ExportConfig `yaml:"export"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// TargetConfig describes the site under automation.
type TargetConfig struct {
	BaseURL  string `yaml:"base_url"`
	LoginURL string `yaml:"login_url"`
	DataURL  string `yaml:"data_url"`

	// Substring that identifies the login page in a URL. Used by the
	// login-state detector's URL heuristic.
	LoginURLPattern string `yaml:"login_url_pattern"`
}

// AuthConfig configures credentials and session expiry.
type AuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Fixed session window in seconds; never extended by activity.
	SessionTimeoutSec int `yaml:"session_timeout"`
}

// BrowserConfig configures the Chromium instance.
type BrowserConfig struct {
	Headless       bool   `yaml:"headless"`
	UserAgent      string `yaml:"user_agent"`
	ViewportWidth  int    `yaml:"viewport_width"`
	ViewportHeight int    `yaml:"viewport_height"`

	// Optional DevTools URL of an already-running browser. When set,
	// tradescout connects instead of launching.
	DebuggerURL string `yaml:"debugger_url"`

	NavigationTimeoutMs int `yaml:"navigation_timeout_ms"`

	// Per-candidate element resolution timeout.
	ElementTimeoutMs int `yaml:"element_timeout_ms"`
}

// ScrapingConfig configures request pacing. MaxRetries is a budget
// surfaced to callers; the core never retries internally.
type ScrapingConfig struct {
	RequestDelaySec   float64 `yaml:"request_delay"`
	RequestTimeoutSec int     `yaml:"request_timeout"`
	MaxRetries        int     `yaml:"max_retries"`
}

// SessionConfig configures where the cookie/metadata pair is stored.
type SessionConfig struct {
	Dir string `yaml:"dir"`
}

// ExportConfig configures tabular export for downstream consumers.
type ExportConfig struct {
	OutputDir        string `yaml:"output_dir"`
	FilenameTemplate string `yaml:"filename_template"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	File   string `yaml:"file"`   // optional file sink, empty = stderr only
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Target: TargetConfig{
			LoginURLPattern: "/login",
		},
		Auth: AuthConfig{
			SessionTimeoutSec: 3600,
		},
		Browser: BrowserConfig{
			Headless:            true,
			UserAgent:           "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
			ViewportWidth:       1920,
			ViewportHeight:      1080,
			NavigationTimeoutMs: 30000,
			ElementTimeoutMs:    2000,
		},
		Scraping: ScrapingConfig{
			RequestDelaySec:   1.0,
			RequestTimeoutSec: 30,
			MaxRetries:        3,
		},
		Session: SessionConfig{
			Dir: "session",
		},
		Export: ExportConfig{
			OutputDir:        "output",
			FilenameTemplate: "scraped_{date}.csv",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides are applied either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TRADESCOUT_USERNAME"); v != "" {
		c.Auth.Username = v
	}
	if v := os.Getenv("TRADESCOUT_PASSWORD"); v != "" {
		c.Auth.Password = v
	}
	if v := os.Getenv("TARGET_BASE_URL"); v != "" {
		c.Target.BaseURL = v
	}
	if v := os.Getenv("TARGET_LOGIN_URL"); v != "" {
		c.Target.LoginURL = v
	}
	if v := os.Getenv("TARGET_DATA_URL"); v != "" {
		c.Target.DataURL = v
	}
	if v := os.Getenv("BROWSER_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Browser.Headless = b
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		c.Export.OutputDir = v
	}
	if v := os.Getenv("TRADESCOUT_SESSION_DIR"); v != "" {
		c.Session.Dir = v
	}
}

// SessionTimeout returns the fixed session window as a duration.
func (c *Config) SessionTimeout() time.Duration {
	if c.Auth.SessionTimeoutSec <= 0 {
		return time.Hour
	}
	return time.Duration(c.Auth.SessionTimeoutSec) * time.Second
}

// NavigationTimeout returns the page navigation timeout.
func (c *Config) NavigationTimeout() time.Duration {
	if c.Browser.NavigationTimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Browser.NavigationTimeoutMs) * time.Millisecond
}

// ElementTimeout returns the per-candidate element resolution timeout.
func (c *Config) ElementTimeout() time.Duration {
	if c.Browser.ElementTimeoutMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.Browser.ElementTimeoutMs) * time.Millisecond
}

// RequestTimeout returns the overall request timeout.
func (c *Config) RequestTimeout() time.Duration {
	if c.Scraping.RequestTimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Scraping.RequestTimeoutSec) * time.Second
}

// RequestDelay returns the pause between authenticated actions.
func (c *Config) RequestDelay() time.Duration {
	if c.Scraping.RequestDelaySec <= 0 {
		return 0
	}
	return time.Duration(c.Scraping.RequestDelaySec * float64(time.Second))
}

// Validate checks that the settings needed for login are present.
func (c *Config) Validate() error {
	if c.Target.LoginURL == "" {
		return fmt.Errorf("target.login_url not configured (set TARGET_LOGIN_URL)")
	}
	if c.Target.BaseURL == "" {
		return fmt.Errorf("target.base_url not configured (set TARGET_BASE_URL)")
	}
	return nil
}
