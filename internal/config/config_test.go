package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"CONFIG_FILE", "HTTP_ADDRESS", "CORS_ORIGIN", "STORE_DSN", "KEY_PREFIX", "JWT_SECRET", "JWT_ISSUER",
	"HTTP_TIMEOUT", "CACHE_INVALIDATION_URL", "CACHE_INVALIDATION_TOKEN", "KAFKA_BROKERS",
	"BACKUP_TOPIC", "DEAD_LETTER_TOPIC", "CONSUMER_GROUP_ID", "METRICS_ADDRESS", "LOG_LEVEL", "MIGRATE_ON_START", "WATCH_STORE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, Defaults(), cfg)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gymstore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store_dsn: badger:///var/lib/gymstore
key_prefix: gymapp_v3_
http_timeout: 9s
kafka_brokers: [a:9092, b:9092]
watch_store: true
`), 0o600))

	clearEnv(t)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("KEY_PREFIX", "gymapp_v4_")
	t.Setenv("MIGRATE_ON_START", "false")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "badger:///var/lib/gymstore", cfg.StoreDSN)
	require.Equal(t, "gymapp_v4_", cfg.KeyPrefix)
	require.Equal(t, 9*time.Second, cfg.HTTPTimeout)
	require.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	require.True(t, cfg.WatchStore)
	require.False(t, cfg.MigrateOnStart)
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store_dsn: [unterminated"), 0o600))
	clearEnv(t)
	t.Setenv("CONFIG_FILE", path)

	_, err := Load()
	require.Error(t, err)
}

func TestSplitAndTrim(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, splitAndTrim(" a, ,b "))
}
