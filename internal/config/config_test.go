package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateWritesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadOrCreate(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.FileExists(t, filepath.Join(dir, FileName))

	// Second load reads the file back
	again, err := LoadOrCreate(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadOrCreateKeepsDefaultsForMissingKeys(t *testing.T) {
	dir := t.TempDir()
	content := `
[server]
listen_socket = "0.0.0.0:9000"

[storage]
engine = "pebble"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o600))

	cfg, err := LoadOrCreate(dir)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.ListenSocket)
	assert.Equal(t, "pebble", cfg.Storage.Engine)
	assert.Equal(t, Default().Storage.DBPath, cfg.Storage.DBPath)
	assert.Equal(t, Default().Storage.MaxSize, cfg.Storage.MaxSize)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadOrCreateRejectsBadFiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not_toml", content: "this is = = not toml"},
		{name: "unknown_engine", content: "[storage]\nengine = \"lmdb\"\n"},
		{name: "bad_level", content: "[logging]\nlevel = \"loud\"\n"},
		{name: "bad_timeout", content: "[server]\nread_timeout = \"soon\"\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(tc.content), 0o600))

			_, err := LoadOrCreate(dir)
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		problem string
	}{
		{
			name:    "empty_listen_socket",
			mutate:  func(c *Config) { c.Server.ListenSocket = "" },
			problem: "server.listen_socket",
		},
		{
			name:    "negative_timeout",
			mutate:  func(c *Config) { c.Server.WriteTimeout = "-1s" },
			problem: "server.write_timeout must not be negative",
		},
		{
			name:    "half_cert_pair",
			mutate:  func(c *Config) { c.Server.HTTP3.CertFile = "cert.pem" },
			problem: "must be set together",
		},
		{
			name: "http3_without_socket",
			mutate: func(c *Config) {
				c.Server.HTTP3.Enabled = true
				c.Server.HTTP3.ListenSocket = ""
			},
			problem: "server.http3.listen_socket",
		},
		{
			name:    "zero_max_size",
			mutate:  func(c *Config) { c.Storage.MaxSize = 0 },
			problem: "storage.max_size",
		},
		{
			name:    "bad_format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			problem: "logging.format",
		},
		{
			name:    "relative_metrics_path",
			mutate:  func(c *Config) { c.Metrics.Path = "metrics" },
			problem: "metrics.path",
		},
		{
			name:    "metrics_on_health",
			mutate:  func(c *Config) { c.Metrics.Path = "/health" },
			problem: "collides with /health",
		},
		{
			name:    "metrics_on_data",
			mutate:  func(c *Config) { c.Metrics.Path = "/data" },
			problem: "collides with /data",
		},
		{
			name:    "metrics_under_data",
			mutate:  func(c *Config) { c.Metrics.Path = "/data/metrics" },
			problem: "collides with /data",
		},
		{
			name:    "metrics_with_parameter",
			mutate:  func(c *Config) { c.Metrics.Path = "/m/:name" },
			problem: "route parameters",
		},
	}

	require.NoError(t, Default().Validate())

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)

			err := cfg.Validate()
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.ErrorContains(t, err, tc.problem)
		})
	}
}

func TestStoragePath(t *testing.T) {
	cfg := Default()
	assert.Equal(t, filepath.Join("/srv/home", "data", "db"), cfg.StoragePath("/srv/home"))

	cfg.Storage.DBPath = "/var/lib/homestore"
	assert.Equal(t, "/var/lib/homestore", cfg.StoragePath("/srv/home"))
}

func TestTimeouts(t *testing.T) {
	read, write, shutdown := Default().Server.Timeouts()
	assert.Equal(t, 30*time.Second, read)
	assert.Equal(t, 30*time.Second, write)
	assert.Equal(t, 10*time.Second, shutdown)
}
