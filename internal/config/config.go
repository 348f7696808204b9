// Package config loads the TOML configuration kept in the data directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// FileName is the configuration file inside the data directory.
const FileName = "config.toml"

type Config struct {
	General GeneralConfig `toml:"general"`
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Logging LoggingConfig `toml:"logging"`
	Metrics MetricsConfig `toml:"metrics"`
}

type GeneralConfig struct {
	ServerName string `toml:"server_name"`
}

type ServerConfig struct {
	ListenSocket    string      `toml:"listen_socket"`
	ReadTimeout     string      `toml:"read_timeout"`
	WriteTimeout    string      `toml:"write_timeout"`
	ShutdownTimeout string      `toml:"shutdown_timeout"`
	CORS            bool        `toml:"cors"`
	HTTP3           HTTP3Config `toml:"http3"`
}

// HTTP3Config enables an additional QUIC listener serving the same routes.
// When CertFile and KeyFile are both empty a self-signed certificate is
// generated at startup.
type HTTP3Config struct {
	Enabled      bool   `toml:"enabled"`
	ListenSocket string `toml:"listen_socket"`
	CertFile     string `toml:"cert_file"`
	KeyFile      string `toml:"key_file"`
}

type StorageConfig struct {
	// DBPath is resolved against the data directory when relative.
	DBPath  string `toml:"db_path"`
	Engine  string `toml:"engine"`
	MaxSize int64  `toml:"max_size"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Default returns the configuration written on first start.
func Default() Config {
	return Config{
		General: GeneralConfig{
			ServerName: "homestore",
		},
		Server: ServerConfig{
			ListenSocket:    "127.0.0.1:8080",
			ReadTimeout:     "30s",
			WriteTimeout:    "30s",
			ShutdownTimeout: "10s",
			CORS:            true,
			HTTP3: HTTP3Config{
				Enabled:      false,
				ListenSocket: "127.0.0.1:8443",
			},
		},
		Storage: StorageConfig{
			DBPath:  "data/db",
			Engine:  "bolt",
			MaxSize: 10 * 1024 * 1024 * 1024, // 10 GiB
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// LoadOrCreate reads config.toml from dataDir. If the file does not exist a
// default one is written and returned. Keys missing from an existing file
// keep their default values.
func LoadOrCreate(dataDir string) (Config, error) {
	path := filepath.Join(dataDir, FileName)

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		if err := cfg.Save(path); err != nil {
			return Config{}, err
		}
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, err := Parse(content)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML on top of the defaults and validates the result.
func Parse(content []byte) (Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes the configuration as TOML.
func (c Config) Save(path string) error {
	content, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// StoragePath resolves the environment directory against dataDir.
func (c Config) StoragePath(dataDir string) string {
	if filepath.IsAbs(c.Storage.DBPath) {
		return c.Storage.DBPath
	}
	return filepath.Join(dataDir, c.Storage.DBPath)
}

func (s ServerConfig) Timeouts() (read, write, shutdown time.Duration) {
	// Validate has already checked these.
	read, _ = time.ParseDuration(s.ReadTimeout)
	write, _ = time.ParseDuration(s.WriteTimeout)
	shutdown, _ = time.ParseDuration(s.ShutdownTimeout)
	return read, write, shutdown
}
