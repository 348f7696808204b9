package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eigerco/homestore/internal/store"
	"github.com/eigerco/homestore/pkg/log"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// routedPaths are served by the API itself; the metrics endpoint may not
// shadow them or anything beneath them.
var routedPaths = []string{"/health", "/data"}

// Validate checks every section and reports all problems at once.
func (c Config) Validate() error {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Server.ListenSocket == "" {
		add("server.listen_socket must not be empty")
	}
	for name, value := range map[string]string{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
	} {
		d, err := time.ParseDuration(value)
		if err != nil {
			add("%s: %v", name, err)
		} else if d < 0 {
			add("%s must not be negative", name)
		}
	}

	h3 := c.Server.HTTP3
	if h3.Enabled && h3.ListenSocket == "" {
		add("server.http3.listen_socket must not be empty when http3 is enabled")
	}
	if (h3.CertFile == "") != (h3.KeyFile == "") {
		add("server.http3.cert_file and server.http3.key_file must be set together")
	}

	if c.Storage.DBPath == "" {
		add("storage.db_path must not be empty")
	}
	switch c.Storage.Engine {
	case store.EngineBolt, store.EnginePebble:
	default:
		add("storage.engine %q is not one of %q, %q", c.Storage.Engine, store.EngineBolt, store.EnginePebble)
	}
	if c.Storage.MaxSize <= 0 {
		add("storage.max_size must be positive")
	}

	if _, err := log.ParseLogLevel(c.Logging.Level); err != nil {
		add("logging.level: %v", err)
	}
	if _, err := log.ParseLoggerType(c.Logging.Format); err != nil {
		add("logging.format: %v", err)
	}

	if c.Metrics.Enabled {
		p := c.Metrics.Path
		if !strings.HasPrefix(p, "/") {
			add("metrics.path must start with /")
		}
		if strings.ContainsAny(p, ":*") {
			add("metrics.path %q must not contain route parameters", p)
		}
		for _, routed := range routedPaths {
			if p == routed || strings.HasPrefix(p, routed+"/") {
				add("metrics.path %q collides with %s", p, routed)
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
