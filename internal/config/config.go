// Package config loads player configuration from command-line flags,
// environment variables, a .env file and an optional YAML tuning file.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/listenupapp/listenup-player/internal/reconcile"
)

// Storage backends.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// Config holds the player configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Storage  StorageConfig
	Library  LibraryConfig
	Playback PlaybackConfig
	Sync     SyncConfig
	Control  ControlConfig
	Tuning   Tuning
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
	// DeviceID identifies this player to the sync server. Persisted under
	// the data path on first run when not configured.
	DeviceID string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StorageConfig selects and locates local persistence.
type StorageConfig struct {
	Backend  string
	DataPath string
}

// LibraryConfig locates downloaded books.
type LibraryConfig struct {
	// Path holds one directory per book, named by book ID.
	Path string
}

// PlaybackConfig holds player loop settings.
type PlaybackConfig struct {
	// SaveInterval throttles progress writes while playing.
	SaveInterval time.Duration
	// TuningPath points at an optional YAML file overriding Tuning.
	TuningPath string
}

// SyncConfig holds remote progress sync settings. Sync is disabled when
// ServerURL is empty.
type SyncConfig struct {
	ServerURL         string
	Token             string
	Strategy          string
	PushInterval      time.Duration
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Enabled reports whether a sync server is configured.
func (s SyncConfig) Enabled() bool {
	return s.ServerURL != ""
}

// ControlConfig holds the local control API settings.
type ControlConfig struct {
	Enabled        bool
	Addr           string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	IdleTimeout    time.Duration
}

// Load reads configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("player", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	deviceID := fs.String("device-id", "", "Device ID reported to the sync server")
	backend := fs.String("storage", "", "Storage backend (badger, sqlite)")
	dataPath := fs.String("data-path", "", "Directory for local player data")
	libraryPath := fs.String("library-path", "", "Directory of downloaded books")
	saveInterval := fs.String("save-interval", "", "Progress save throttle while playing (default: 10s)")
	tuningPath := fs.String("tuning", "", "Path to YAML tuning file")
	serverURL := fs.String("server-url", "", "Sync server base URL")
	strategy := fs.String("sync-strategy", "", "Reconcile strategy (recency, furthest, server)")
	pushInterval := fs.String("push-interval", "", "Periodic progress push interval (default: 30s)")
	controlAddr := fs.String("control-addr", "", "Local control API address (default: 127.0.0.1:8765)")
	controlEnabled := fs.String("control", "", "Serve the local control API (default: true)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Missing .env is fine.
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
			DeviceID:    getConfigValue(*deviceID, "DEVICE_ID", ""),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			Backend:  strings.ToLower(getConfigValue(*backend, "STORAGE_BACKEND", BackendBadger)),
			DataPath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Library: LibraryConfig{
			Path: getConfigValue(*libraryPath, "LIBRARY_PATH", ""),
		},
		Playback: PlaybackConfig{
			TuningPath: getConfigValue(*tuningPath, "TUNING_PATH", ""),
		},
		Sync: SyncConfig{
			ServerURL:         strings.TrimRight(getConfigValue(*serverURL, "SYNC_SERVER_URL", ""), "/"),
			Token:             getConfigValue("", "SYNC_TOKEN", ""),
			Strategy:          getConfigValue(*strategy, "SYNC_STRATEGY", reconcile.StrategyRecency),
			RequestsPerSecond: getFloatConfigValue("", "SYNC_REQUESTS_PER_SECOND", 2),
		},
		Control: ControlConfig{
			Enabled:        getBoolConfigValue(*controlEnabled, "CONTROL_ENABLED", true),
			Addr:           getConfigValue(*controlAddr, "CONTROL_ADDR", "127.0.0.1:8765"),
			AllowedOrigins: splitList(getConfigValue("", "CONTROL_ALLOWED_ORIGINS", "http://localhost:*")),
		},
	}

	durations := []struct {
		dst  *time.Duration
		flag string
		env  string
		def  string
	}{
		{&cfg.Playback.SaveInterval, *saveInterval, "SAVE_INTERVAL", "10s"},
		{&cfg.Sync.PushInterval, *pushInterval, "SYNC_PUSH_INTERVAL", "30s"},
		{&cfg.Sync.Timeout, "", "SYNC_TIMEOUT", "10s"},
		{&cfg.Control.ReadTimeout, "", "CONTROL_READ_TIMEOUT", "15s"},
		{&cfg.Control.IdleTimeout, "", "CONTROL_IDLE_TIMEOUT", "60s"},
	}
	for _, d := range durations {
		v, err := getDurationConfigValue(d.flag, d.env, d.def)
		if err != nil {
			return nil, err
		}
		*d.dst = v
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	tuning, err := LoadTuning(cfg.Playback.TuningPath)
	if err != nil {
		return nil, fmt.Errorf("load tuning: %w", err)
	}
	cfg.Tuning = tuning

	if cfg.App.DeviceID == "" {
		id, err := LoadOrCreateDeviceID(cfg.Storage.DataPath)
		if err != nil {
			return nil, err
		}
		cfg.App.DeviceID = id
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Storage.Backend != BackendBadger && c.Storage.Backend != BackendSQLite {
		return fmt.Errorf("invalid storage backend: %s (must be badger or sqlite)", c.Storage.Backend)
	}
	if c.Storage.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	if _, err := reconcile.StrategyByName(c.Sync.Strategy, c.Tuning.ReconcileOptions()); err != nil {
		return err
	}
	if c.Sync.Enabled() && c.Sync.RequestsPerSecond <= 0 {
		return errors.New("sync requests per second must be positive")
	}
	if c.Playback.SaveInterval <= 0 || c.Sync.PushInterval <= 0 {
		return errors.New("save and push intervals must be positive")
	}

	if c.Control.Enabled && c.Control.Addr == "" {
		return errors.New("control address is required when the control API is enabled")
	}

	return nil
}

func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	c.Storage.DataPath, err = expandPath(c.Storage.DataPath, filepath.Join(homeDir, ".listenup", "player"))
	if err != nil {
		return fmt.Errorf("invalid data path: %w", err)
	}
	c.Library.Path, err = expandPath(c.Library.Path, filepath.Join(c.Storage.DataPath, "books"))
	if err != nil {
		return fmt.Errorf("invalid library path: %w", err)
	}
	if c.Playback.TuningPath != "" {
		c.Playback.TuningPath, err = expandPath(c.Playback.TuningPath, "")
		if err != nil {
			return fmt.Errorf("invalid tuning path: %w", err)
		}
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue accepts "true", "1" and "yes" (case-insensitive) as true.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getFloatConfigValue falls back to the default on unparsable input.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func getDurationConfigValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", strings.ToLower(envKey), strValue, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Real environment variables win over the file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
