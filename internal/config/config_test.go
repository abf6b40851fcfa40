package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lattice/internal/runtime"
)

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	t.Setenv(EnvStateKey, "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.True(t, cfg.Fold)
	assert.Equal(t, DriverMemory, cfg.State.Driver)
	assert.Equal(t, runtime.DefaultQuotas(), cfg.Quotas)
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lattice.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
scripts_dir: scripts
fold: false
quotas:
  data_edge_timeout: 250ms
  max_concurrent_triggers: 2
state:
  driver: redis
  redis:
    addr: redis:6379
    ttl: 1h
http:
  addr: ":9090"
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, filepath.Join(dir, "scripts"), cfg.ScriptsDir)
	assert.False(t, cfg.Fold)
	assert.Equal(t, 250*time.Millisecond, cfg.Quotas.DataEdgeTimeout)
	assert.Equal(t, 2, cfg.Quotas.MaxConcurrentTriggers)
	assert.Equal(t, runtime.DefaultMaxExecutionCount, cfg.Quotas.MaxExecutionCount, "unset quotas keep defaults")
	assert.Equal(t, DriverRedis, cfg.State.Driver)
	assert.Equal(t, "redis:6379", cfg.State.Redis.Addr)
	assert.Equal(t, "lattice:state:", cfg.State.Redis.Prefix)
	assert.Equal(t, time.Hour, cfg.State.Redis.TTL)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
}

func TestLoad_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lattice.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"log_level": "warn", "quotas": {"node_timeout": "2s"}}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 2*time.Second, cfg.Quotas.NodeTimeout)
	assert.True(t, cfg.Fold)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown key", "a.yaml", "colour: blue\n"},
		{"unknown driver", "a.yaml", "state:\n  driver: etcd\n"},
		{"redis without addr", "a.yaml", "state:\n  driver: redis\n  redis:\n    addr: \"\"\n"},
		{"bad duration", "a.yaml", "quotas:\n  data_edge_timeout: soon\n"},
		{"negative quota", "a.yaml", "quotas:\n  max_execution_count: -1\n"},
		{"unsupported extension", "a.toml", "log_level = 'info'\n"},
		{"malformed yaml", "a.yml", "quotas: [\n"},
		{"negative input size", "a.yaml", "max_input_size: -1\n"},
		{"short encryption key", "a.yaml", "state:\n  encryption_key: c2hvcnQ=\n"},
		{"fallback without key", "a.yaml", "state:\n  fallback_keys: [" + testKey + "]\n"},
		{"bad redact pattern", "a.yaml", "state:\n  redact: ['(']\n"},
	}
	t.Setenv(EnvStateKey, "")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := Load(path)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidConfig)
}

// 32 zero bytes.
const testKey = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="

func TestLoad_StateSecurity(t *testing.T) {
	t.Setenv(EnvStateKey, "")
	path := filepath.Join(t.TempDir(), "lattice.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
max_input_size: 128
state:
  encryption_key: `+testKey+`
  fallback_keys: [`+testKey+`]
  redact: [password, "^ssn"]
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 128, cfg.MaxInputSize)
	assert.Equal(t, testKey, cfg.State.EncryptionKey)
	assert.Equal(t, []string{testKey}, cfg.State.FallbackKeys)
	assert.Equal(t, []string{"password", "^ssn"}, cfg.State.Redact)
}

func TestLoad_EncryptionKeyFromEnv(t *testing.T) {
	t.Setenv(EnvStateKey, testKey)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, testKey, cfg.State.EncryptionKey)

	t.Setenv(EnvStateKey, "bogus")
	_, err = Load("")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
