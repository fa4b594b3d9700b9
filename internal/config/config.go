package config

import (
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/matheuskafuri/stocktracker/internal/api"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

// EnvAPIURL overrides api.base_url.
const EnvAPIURL = "STOCKTRACKER_API_URL"

const maxRetryAttempts = 5

type APIConfig struct {
	BaseURL       string `yaml:"base_url"`
	Timeout       string `yaml:"timeout"`
	RetryAttempts int    `yaml:"retry_attempts"`
	RetryDelay    string `yaml:"retry_delay"`
}

type DisplayConfig struct {
	Locale   string `yaml:"locale"`
	Currency string `yaml:"currency"`
	QuoteURL string `yaml:"quote_url"`
}

type Config struct {
	API             APIConfig     `yaml:"api"`
	Display         DisplayConfig `yaml:"display"`
	RefreshInterval string        `yaml:"refresh_interval"`
	Retention       string        `yaml:"retention"`
	LogLevel        string        `yaml:"log_level"`
}

// Client converts the api section into the HTTP client's configuration.
func (c *Config) Client() api.Config {
	return api.Config{
		BaseURL:       c.API.BaseURL,
		Timeout:       millisOr(c.API.Timeout, api.DefaultTimeout),
		RetryAttempts: c.API.RetryAttempts,
		RetryDelay:    millisOr(c.API.RetryDelay, api.DefaultRetryDelay),
	}
}

func (c *Config) RefreshDuration() time.Duration {
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

func (c *Config) RetentionDuration() time.Duration {
	if c.Retention == "" {
		return 7 * 24 * time.Hour
	}
	d, err := ParseDays(c.Retention)
	if err != nil || d <= 0 {
		return 7 * 24 * time.Hour
	}
	return d
}

// ParseDays is time.ParseDuration plus an "Nd" day suffix.
func ParseDays(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		if days, err := strconv.Atoi(s[:len(s)-1]); err == nil {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}

// parseMillis reads a duration, treating a bare number as milliseconds.
func parseMillis(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.Atoi(s); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}

func millisOr(s string, fallback time.Duration) time.Duration {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	d, err := parseMillis(s)
	if err != nil {
		return fallback
	}
	return d
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "stocktracker", "config.yaml")
}

func CachePath() string {
	return filepath.Join(xdg.CacheHome, "stocktracker", "stocktracker.db")
}

func LogPath() string {
	return filepath.Join(xdg.StateHome, "stocktracker", "stocktracker.log")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

// Load reads the config at path (or the default location), layered over the
// embedded defaults, then applies environment overrides and validates.
func Load(path string) (*Config, error) {
	cfg, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// First run: write defaults for the user to edit. Failing to do so is
		// not fatal.
		_ = writeDefaults(path)
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		cfg.API.BaseURL = v
	}
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

func validate(cfg *Config) error {
	u, err := url.Parse(cfg.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url: invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.base_url: scheme must be http or https, got %q", u.Scheme)
	}
	if cfg.API.Timeout != "" {
		d, err := parseMillis(cfg.API.Timeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("api.timeout: must be a positive duration, got %q", cfg.API.Timeout)
		}
	}
	if cfg.API.RetryAttempts < 0 || cfg.API.RetryAttempts > maxRetryAttempts {
		return fmt.Errorf("api.retry_attempts: must be between 0 and %d, got %d", maxRetryAttempts, cfg.API.RetryAttempts)
	}
	if cfg.API.RetryDelay != "" {
		d, err := parseMillis(cfg.API.RetryDelay)
		if err != nil || d < 0 {
			return fmt.Errorf("api.retry_delay: must be a non-negative duration, got %q", cfg.API.RetryDelay)
		}
	}
	if strings.Count(cfg.Display.QuoteURL, "%s") != 1 {
		return fmt.Errorf("display.quote_url: must contain exactly one %%s, got %q", cfg.Display.QuoteURL)
	}
	return nil
}
