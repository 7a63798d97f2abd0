package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENV", "LOG_LEVEL", "DEVICE_ID", "STORAGE_BACKEND", "DATA_PATH", "LIBRARY_PATH",
		"SAVE_INTERVAL", "TUNING_PATH", "SYNC_SERVER_URL", "SYNC_TOKEN", "SYNC_STRATEGY",
		"SYNC_REQUESTS_PER_SECOND", "SYNC_PUSH_INTERVAL", "SYNC_TIMEOUT",
		"CONTROL_ENABLED", "CONTROL_ADDR", "CONTROL_ALLOWED_ORIGINS",
		"CONTROL_READ_TIMEOUT", "CONTROL_IDLE_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}

func validConfig() *Config {
	return &Config{
		App:      AppConfig{Environment: "development", DeviceID: "dev"},
		Logger:   LoggerConfig{Level: "info"},
		Storage:  StorageConfig{Backend: BackendBadger, DataPath: "/data"},
		Playback: PlaybackConfig{SaveInterval: 10 * time.Second},
		Sync:     SyncConfig{Strategy: "recency", PushInterval: 30 * time.Second, RequestsPerSecond: 2},
		Control:  ControlConfig{Enabled: true, Addr: "127.0.0.1:8765"},
		Tuning:   DefaultTuning(),
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := Load([]string{"-data-path", dir, "-env-file", filepath.Join(dir, "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, BackendBadger, cfg.Storage.Backend)
	assert.Equal(t, dir, cfg.Storage.DataPath)
	assert.Equal(t, filepath.Join(dir, "books"), cfg.Library.Path)
	assert.Equal(t, 10*time.Second, cfg.Playback.SaveInterval)
	assert.Equal(t, 30*time.Second, cfg.Sync.PushInterval)
	assert.Equal(t, "recency", cfg.Sync.Strategy)
	assert.False(t, cfg.Sync.Enabled())
	assert.True(t, cfg.Control.Enabled)
	assert.Equal(t, "127.0.0.1:8765", cfg.Control.Addr)
	assert.Equal(t, []string{"http://localhost:*"}, cfg.Control.AllowedOrigins)
	assert.Equal(t, DefaultTuning(), cfg.Tuning)
	assert.Len(t, cfg.App.DeviceID, 36, "generated uuid")
}

func TestLoad_Precedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("LOG_LEVEL=warn\nSYNC_STRATEGY=server\n"), 0o644))

	t.Setenv("STORAGE_BACKEND", "SQLite")
	t.Setenv("SYNC_SERVER_URL", "https://listen.example.com/")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("SYNC_STRATEGY", "")

	cfg, err := Load([]string{
		"-data-path", dir,
		"-env-file", envFile,
		"-device-id", "my-phone",
		"-sync-strategy", "furthest",
		"-push-interval", "1m",
	})
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logger.Level, "env beats .env")
	assert.Equal(t, "furthest", cfg.Sync.Strategy, "flag beats env and .env")
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "https://listen.example.com", cfg.Sync.ServerURL)
	assert.True(t, cfg.Sync.Enabled())
	assert.Equal(t, "my-phone", cfg.App.DeviceID)
	assert.Equal(t, time.Minute, cfg.Sync.PushInterval)
}

func TestLoad_InvalidDuration(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	_, err := Load([]string{"-data-path", dir, "-save-interval", "soon", "-env-file", filepath.Join(dir, "x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save_interval")
}

func TestLoad_TuningFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	tuning := filepath.Join(dir, "tuning.yaml")
	require.NoError(t, os.WriteFile(tuning, []byte("chapters:\n  snap_threshold: 2.5\n"), 0o644))

	cfg, err := Load([]string{"-data-path", dir, "-tuning", tuning, "-env-file", filepath.Join(dir, "x")})
	require.NoError(t, err)
	assert.Equal(t, 2.5, cfg.Tuning.Chapters.SnapThreshold)
	assert.Equal(t, 3.0, cfg.Tuning.Chapters.RestartThreshold)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad environment", func(c *Config) { c.App.Environment = "test" }, "invalid environment"},
		{"case sensitive environment", func(c *Config) { c.App.Environment = "DEVELOPMENT" }, "invalid environment"},
		{"bad log level", func(c *Config) { c.Logger.Level = "verbose" }, "invalid log level"},
		{"bad backend", func(c *Config) { c.Storage.Backend = "postgres" }, "invalid storage backend"},
		{"empty data path", func(c *Config) { c.Storage.DataPath = "" }, "data path"},
		{"bad strategy", func(c *Config) { c.Sync.Strategy = "coinflip" }, "unknown reconcile strategy"},
		{"zero rps with server", func(c *Config) {
			c.Sync.ServerURL = "http://s"
			c.Sync.RequestsPerSecond = 0
		}, "requests per second"},
		{"zero save interval", func(c *Config) { c.Playback.SaveInterval = 0 }, "intervals"},
		{"control without addr", func(c *Config) { c.Control.Addr = "" }, "control address"},
		{"control disabled without addr", func(c *Config) {
			c.Control.Enabled = false
			c.Control.Addr = ""
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("", "/default")
	require.NoError(t, err)
	assert.Equal(t, "/default", got)

	got, err = expandPath("~/books", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "books"), got)

	got, err = expandPath("/abs/../abs/path", "")
	require.NoError(t, err)
	assert.Equal(t, "/abs/path", got)

	got, err = expandPath("rel", "")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}

func TestGetConfigValue_Precedence(t *testing.T) {
	t.Setenv("TEST_PLAYER_KEY", "env-value")

	assert.Equal(t, "flag-value", getConfigValue("flag-value", "TEST_PLAYER_KEY", "default"))
	assert.Equal(t, "env-value", getConfigValue("", "TEST_PLAYER_KEY", "default"))
	assert.Equal(t, "default", getConfigValue("", "NONEXISTENT_PLAYER_KEY", "default"))
}

func TestTypedConfigValues(t *testing.T) {
	t.Setenv("TEST_BOOL", "YES")
	t.Setenv("TEST_FLOAT", "nope")

	assert.True(t, getBoolConfigValue("", "TEST_BOOL", false))
	assert.False(t, getBoolConfigValue("off", "TEST_BOOL", true))
	assert.True(t, getBoolConfigValue("", "UNSET_BOOL", true))
	assert.Equal(t, 2.0, getFloatConfigValue("", "TEST_FLOAT", 2))
	assert.Equal(t, 0.5, getFloatConfigValue("0.5", "TEST_FLOAT", 2))
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := `# player settings
  PLAYER_TEST_A  =  value with spaces  

PLAYER_TEST_B="quoted"
PLAYER_TEST_C='single'
PLAYER_TEST_KEEP=from-file
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))

	for _, k := range []string{"PLAYER_TEST_A", "PLAYER_TEST_B", "PLAYER_TEST_C"} {
		t.Setenv(k, "")
	}
	t.Setenv("PLAYER_TEST_KEEP", "from-env")

	require.NoError(t, loadEnvFile(envFile))

	assert.Equal(t, "value with spaces", os.Getenv("PLAYER_TEST_A"))
	assert.Equal(t, "quoted", os.Getenv("PLAYER_TEST_B"))
	assert.Equal(t, "single", os.Getenv("PLAYER_TEST_C"))
	assert.Equal(t, "from-env", os.Getenv("PLAYER_TEST_KEEP"))
}

func TestLoadEnvFile_Errors(t *testing.T) {
	assert.Error(t, loadEnvFile("/nonexistent/file/.env"))

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("GOOD=1\nNO EQUALS HERE\n"), 0o644))

	err := loadEnvFile(envFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format at line 2")
}
