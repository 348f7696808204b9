package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/multierr"

	"github.com/eigerco/homestore/internal/api"
	"github.com/eigerco/homestore/internal/config"
	"github.com/eigerco/homestore/internal/metrics"
	"github.com/eigerco/homestore/internal/store"
	"github.com/eigerco/homestore/internal/version"
	"github.com/eigerco/homestore/pkg/log"
)

// logLevelEnv overrides logging.level from the config file.
const logLevelEnv = "HOMESTORE_LOG"

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".homestore"
	}
	return filepath.Join(home, ".homestore")
}

func validateDataDir(path string) error {
	info, err := os.Stat(path)
	if err == nil && !info.IsDir() {
		return fmt.Errorf("given path is not a directory: %s", path)
	}
	return nil
}

// main starts the key-value server.
// go run ./cmd/homestore -data-dir /tmp/homestore
func main() {
	dataDir := flag.String("data-dir", defaultDataDir(), "Path to data directory")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Version)
		return
	}

	if err := run(*dataDir); err != nil {
		stdlog.Fatal(err)
	}
}

func run(dataDir string) (err error) {
	if err := validateDataDir(dataDir); err != nil {
		return err
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	cfg, err := config.LoadOrCreate(dataDir)
	if err != nil {
		return err
	}

	if err := initLogging(cfg.Logging); err != nil {
		return err
	}
	log.Root.Info().Str("data_dir", dataDir).Str("version", version.Version).Msg("starting")
	log.Root.Debug().Interface("config", cfg).Msg("config loaded")

	m := metrics.New()

	st, err := store.Open(cfg.StoragePath(dataDir), store.Options{
		Engine:  cfg.Storage.Engine,
		MaxSize: cfg.Storage.MaxSize,
		Metrics: m,
	})
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	defer func() {
		err = multierr.Append(err, st.Close())
	}()

	srv, err := api.NewServer(cfg, st, api.WithMetrics(m))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Root.Info().Str("addr", cfg.Server.ListenSocket).Msg("press Ctrl+C to stop the server")
	if err := srv.Run(ctx, cfg.Server.ListenSocket); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Root.Info().Msg("stopped")
	return nil
}

func initLogging(cfg config.LoggingConfig) error {
	levelName := cfg.Level
	if env := os.Getenv(logLevelEnv); env != "" {
		levelName = env
	}
	level, err := log.ParseLogLevel(levelName)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	typ, err := log.ParseLoggerType(cfg.Format)
	if err != nil {
		return err
	}
	log.Init(log.Options{LogLevel: level, Type: typ})
	return nil
}
