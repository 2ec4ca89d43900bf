package config

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv_Defaults(t *testing.T) {
	t.Setenv("AGENTBOARD_API_KEY", "secret")

	env, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, ":3100", env.Addr())
	assert.Equal(t, "local", env.StorageEnv.Type)
	assert.Equal(t, "registry", env.RuntimeEnv.Type)
	assert.Equal(t, 5*time.Minute, env.StaleThreshold)
	assert.Equal(t, time.Minute, env.RecoveryInterval)
	assert.Equal(t, slog.LevelDebug, env.SlogLevel())
	assert.False(t, env.VAPIDEnv.Enabled())
}

func TestLoadEnv_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing api key", map[string]string{"AGENTBOARD_API_KEY": ""}, "API_KEY"},
		{"s3 without bucket", map[string]string{"AGENTBOARD_STORAGE_TYPE": "s3"}, "S3_BUCKET"},
		{"postgres without dsn", map[string]string{"AGENTBOARD_STORAGE_TYPE": "postgres"}, "POSTGRES_DSN"},
		{"unknown storage", map[string]string{"AGENTBOARD_STORAGE_TYPE": "tape"}, "unknown storage type"},
		{"gateway without url", map[string]string{"AGENTBOARD_RUNTIME_TYPE": "gateway"}, "RUNTIME_URL"},
		{"zero threshold", map[string]string{"AGENTBOARD_STALE_THRESHOLD": "0s"}, "STALE_THRESHOLD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("AGENTBOARD_API_KEY", "secret")
			for k, v := range tt.env {
				t.Setenv(k, v)
				if v == "" {
					require.NoError(t, os.Unsetenv(k))
				}
			}
			_, err := LoadEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, (&BaseEnv{LogLevel: "warn"}).SlogLevel())
	assert.Equal(t, slog.LevelDebug, (&BaseEnv{LogLevel: "nonsense"}).SlogLevel())
	assert.Equal(t, slog.LevelDebug, (*BaseEnv)(nil).SlogLevel())
}
