package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func envMap(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadServer_Defaults(t *testing.T) {
	cfg, err := LoadServer("", envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultServer(), cfg)
	assert.Equal(t, 30*time.Second, cfg.SnapshotInterval.Std())
}

func TestLoadServer_FileThenEnv(t *testing.T) {
	path := writeFile(t, `
addr: ":9000"
db_path: /var/lib/relay.db
jwt_secret: from-file
snapshot_interval: 1m
require_auth: true
`)

	cfg, err := LoadServer(path, envMap(map[string]string{
		"GOPHBOARD_JWT_SECRET":   "from-env",
		"GOPHBOARD_MESSAGE_RATE": "12.5",
		"GOPHBOARD_LOG_LEVEL":    " debug ",
		"GOPHBOARD_ADDR":         "",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr, "empty env value does not override")
	assert.Equal(t, "/var/lib/relay.db", cfg.DBPath)
	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.Equal(t, time.Minute, cfg.SnapshotInterval.Std())
	assert.Equal(t, 12.5, cfg.MessageRate)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.RequireAuth)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL.Std(), "defaults survive partial files")
}

func TestLoadServer_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{
			name: "bad duration in file",
			file: "token_ttl: soon\n",
		},
		{
			name: "numeric duration in file",
			file: "token_ttl: [1]\n",
		},
		{
			name: "bad env int",
			env:  map[string]string{"GOPHBOARD_RATE_LIMIT": "many"},
		},
		{
			name: "bad env bool",
			env:  map[string]string{"GOPHBOARD_REQUIRE_AUTH": "sure"},
		},
		{
			name: "auth without secret",
			env:  map[string]string{"GOPHBOARD_REQUIRE_AUTH": "true"},
		},
		{
			name: "bad log level",
			env:  map[string]string{"GOPHBOARD_LOG_LEVEL": "loud"},
		},
		{
			name: "zero snapshot interval",
			env:  map[string]string{"GOPHBOARD_SNAPSHOT_INTERVAL": "0s"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := ""
			if tt.file != "" {
				path = writeFile(t, tt.file)
			}
			_, err := LoadServer(path, envMap(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestLoadServer_MissingFile(t *testing.T) {
	_, err := LoadServer(filepath.Join(t.TempDir(), "absent.yaml"), envMap(nil))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoadClient(t *testing.T) {
	path := writeFile(t, `
transport: p2p
user: userB
autosave_interval: 30s
diff_algorithm: myers
`)

	cfg, err := LoadClient(path, envMap(map[string]string{
		"GOPHBOARD_REDIS_ADDR":        "localhost:6379",
		"GOPHBOARD_THROTTLE_WINDOW":   "1s",
		"GOPHBOARD_ACTIVITY_CAPACITY": "5",
		"GOPHBOARD_SYNC_TIMEOUT":      "250ms",
	}))
	require.NoError(t, err)

	assert.Equal(t, "p2p", cfg.Transport)
	assert.Equal(t, "userB", cfg.UserID)
	assert.Equal(t, "myers", cfg.DiffAlgorithm)
	assert.Equal(t, 30*time.Second, cfg.AutoSaveInterval.Std())
	assert.Equal(t, time.Second, cfg.ThrottleWindow.Std())
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 5, cfg.ActivityCapacity)
	assert.Equal(t, 10*time.Second, cfg.ActivityWindow.Std())
	assert.Equal(t, 250*time.Millisecond, cfg.SyncTimeout.Std())
}

func TestLoadClient_Invalid(t *testing.T) {
	_, err := LoadClient("", envMap(map[string]string{"GOPHBOARD_TRANSPORT": "carrier-pigeon"}))
	assert.ErrorContains(t, err, "transport must be relay or p2p")

	_, err = LoadClient("", envMap(map[string]string{"GOPHBOARD_AUTOSAVE_INTERVAL": "-1s"}))
	assert.ErrorContains(t, err, "intervals must be positive")
}

func TestDuration_YAMLRoundTrip(t *testing.T) {
	out, err := yaml.Marshal(struct {
		D Duration `yaml:"d"`
	}{D: Duration(90 * time.Second)})
	require.NoError(t, err)
	assert.Equal(t, "d: 1m30s\n", string(out))
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLogLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	logger, err := NewLogger(os.Stderr, "warn")
	require.NoError(t, err)
	assert.True(t, logger.Enabled(t.Context(), slog.LevelWarn))
	assert.False(t, logger.Enabled(t.Context(), slog.LevelInfo))
}
