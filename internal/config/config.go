package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	appName    = "cinelist"
	envPrefix  = "CINELIST"
	configName = "config"
	configType = "yaml"
)

// Config holds all application configuration
type Config struct {
	TMDB    TMDBConfig    `mapstructure:"tmdb"`
	Auth    AuthConfig    `mapstructure:"auth"`
	UI      UIConfig      `mapstructure:"ui"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// TMDBConfig holds API access and the saved session
type TMDBConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	AuthURL   string        `mapstructure:"auth_url"` // Site hosting the approve page
	SessionID string        `mapstructure:"session_id"`
	AccountID int           `mapstructure:"account_id"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RetryMax  int           `mapstructure:"retry_max"`
}

// AuthConfig selects how a session is created
type AuthConfig struct {
	Method string `mapstructure:"method"` // "approve" or "login"
}

// UIConfig holds UI configuration
type UIConfig struct {
	ScrollIdle time.Duration `mapstructure:"scroll_idle"` // Quiet time after which scrolling has stopped
	Region     string        `mapstructure:"region"`      // Overrides the account region for popular movies
}

// CacheConfig holds reference data cache configuration
type CacheConfig struct {
	Dir string        `mapstructure:"dir"` // Empty keeps the cache in memory only
	TTL time.Duration `mapstructure:"ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		TMDB: TMDBConfig{
			BaseURL:  "https://api.themoviedb.org/3",
			AuthURL:  "https://www.themoviedb.org",
			Timeout:  30 * time.Second,
			RetryMax: 3,
		},
		Auth: AuthConfig{
			Method: "approve",
		},
		UI: UIConfig{
			ScrollIdle: 400 * time.Millisecond,
		},
		Cache: CacheConfig{
			Dir: defaultCachePath(),
			TTL: 7 * 24 * time.Hour,
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// IsConfigured returns true if an API key is set
func (c *Config) IsConfigured() bool {
	return c.TMDB.APIKey != ""
}

// HasSession returns true if a user session has been saved
func (c *Config) HasSession() bool {
	return c.TMDB.SessionID != ""
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), appName, appName+".log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", appName, appName+".log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), appName)
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", appName)
	}
}

// defaultCachePath returns the default cache directory path for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), appName, "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", appName, "cache")
	}
}

// ExpandPath expands a leading ~ to the home directory
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// Manager reads and writes the config file in one directory
type Manager struct {
	v   *viper.Viper
	dir string
}

// NewManager creates a manager for the config file in dir. An empty dir
// uses the OS default.
func NewManager(dir string) *Manager {
	if dir == "" {
		dir = defaultConfigPath()
	}
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(dir)
	v.AddConfigPath(".")

	// Environment variable overrides, e.g. CINELIST_TMDB_API_KEY
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, DefaultConfig())
	return &Manager{v: v, dir: dir}
}

// setDefaults registers every key so environment overrides apply to it
func setDefaults(v *viper.Viper, cfg *Config) {
	for key, value := range flatten(cfg) {
		v.SetDefault(key, value)
	}
}

// flatten lists every config key with its value, in the form written to disk
func flatten(cfg *Config) map[string]any {
	return map[string]any{
		"tmdb.api_key":    cfg.TMDB.APIKey,
		"tmdb.base_url":   cfg.TMDB.BaseURL,
		"tmdb.auth_url":   cfg.TMDB.AuthURL,
		"tmdb.session_id": cfg.TMDB.SessionID,
		"tmdb.account_id": cfg.TMDB.AccountID,
		"tmdb.timeout":    cfg.TMDB.Timeout.String(),
		"tmdb.retry_max":  cfg.TMDB.RetryMax,
		"auth.method":     cfg.Auth.Method,
		"ui.scroll_idle":  cfg.UI.ScrollIdle.String(),
		"ui.region":       cfg.UI.Region,
		"cache.dir":       cfg.Cache.Dir,
		"cache.ttl":       cfg.Cache.TTL.String(),
		"logging.file":    cfg.Logging.File,
		"logging.level":   cfg.Logging.Level,
	}
}

// Dir returns the directory the config file is written to
func (m *Manager) Dir() string {
	return m.dir
}

// Load reads the config file if present and applies environment overrides
func (m *Manager) Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := m.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := m.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes the whole configuration to file
func (m *Manager) Save(cfg *Config) error {
	for key, value := range flatten(cfg) {
		m.v.Set(key, value)
	}
	return m.write()
}

// SaveSession updates just the session in the configuration
func (m *Manager) SaveSession(sessionID string, accountID int) error {
	m.v.Set("tmdb.session_id", sessionID)
	m.v.Set("tmdb.account_id", accountID)
	return m.write()
}

// ClearSession removes the saved session while preserving other settings
func (m *Manager) ClearSession() error {
	return m.SaveSession("", 0)
}

func (m *Manager) write() error {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := filepath.Join(m.dir, configName+"."+configType)
	if err := m.v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

var defaultManager = NewManager("")

// LoadConfig loads configuration from the default location and environment
func LoadConfig() (*Config, error) {
	return defaultManager.Load()
}

// SaveConfig saves the configuration to the default location
func SaveConfig(cfg *Config) error {
	return defaultManager.Save(cfg)
}

// SaveSession updates the session in the default config file
func SaveSession(sessionID string, accountID int) error {
	return defaultManager.SaveSession(sessionID, accountID)
}

// ClearSession removes the session from the default config file
func ClearSession() error {
	return defaultManager.ClearSession()
}

// ClearCache removes all cached data under dir
func ClearCache(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.RemoveAll(ExpandPath(dir)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}
