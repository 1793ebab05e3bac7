// Package config parses and validates the server's CLI surface. Malformed
// or out-of-range flag values silently fall back to their defaults; a flag
// missing its value, or an unrecognized flag, is fatal.
package config

import (
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
)

// Server defaults.
const (
	DefaultPort      = 8080
	DefaultThreads   = 8
	DefaultMaxConns  = 2000
	DefaultQueueCap  = 4096
	DefaultRateLimit = 0 // 0 = disabled
)

// Config is the validated server configuration.
type Config struct {
	Port      int `validate:"min=1,max=65535"`
	Threads   int `validate:"min=1,max=256"`
	MaxConns  int `validate:"min=1,max=2000000"`
	QueueCap  int `validate:"min=1,max=2000000"`
	RateLimit int `validate:"min=0"`
}

// Parse parses args (excluding the program name) into a Config. A flag
// given no value (e.g. a bare trailing "--port") is a fatal parse error;
// every other malformed or out-of-range value silently falls back to its
// default instead of erroring.
func Parse(args []string) (*Config, bool, error) {
	fs := pflag.NewFlagSet("tcpkv-server", pflag.ContinueOnError)
	fs.Usage = func() {}

	var (
		portStr      = fs.String("port", strconv.Itoa(DefaultPort), "TCP port to listen on (1-65535)")
		threadsStr   = fs.String("threads", strconv.Itoa(DefaultThreads), "worker pool size (1-256)")
		maxConnsStr  = fs.String("max-conns", strconv.Itoa(DefaultMaxConns), "admission cap (1-2000000)")
		queueCapStr  = fs.String("queue-cap", strconv.Itoa(DefaultQueueCap), "handoff queue capacity (1-2000000)")
		rateLimitStr = fs.String("rate-limit", strconv.Itoa(DefaultRateLimit), "per-connection requests/sec, 0 disables")
		help         = fs.Bool("help", false, "show usage")
	)

	if err := fs.Parse(args); err != nil {
		return nil, false, fmt.Errorf("parse flags: %w", err)
	}
	if *help {
		return nil, true, nil
	}

	cfg := &Config{
		Port:      clampedAtoi(*portStr, DefaultPort, 1, 65535),
		Threads:   clampedAtoi(*threadsStr, DefaultThreads, 1, 256),
		MaxConns:  clampedAtoi(*maxConnsStr, DefaultMaxConns, 1, 2_000_000),
		QueueCap:  clampedAtoi(*queueCapStr, DefaultQueueCap, 1, 2_000_000),
		RateLimit: clampedAtoi(*rateLimitStr, DefaultRateLimit, 0, 1_000_000),
	}

	if err := cfg.Validate(); err != nil {
		// clampedAtoi should make this unreachable, but a defense-in-depth
		// validation failure still falls back to an all-default config
		// rather than aborting startup.
		return &Config{
			Port:      DefaultPort,
			Threads:   DefaultThreads,
			MaxConns:  DefaultMaxConns,
			QueueCap:  DefaultQueueCap,
			RateLimit: DefaultRateLimit,
		}, false, nil
	}

	return cfg, false, nil
}

// Validate runs struct-tag validation over Config.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// Usage is printed for --help.
const Usage = `Usage: tcpkv-server [--port N] [--threads N] [--max-conns N] [--queue-cap N] [--rate-limit N]
Protocol: SET key value | GET key | DEL key | STATS | PING | QUIT
`

func clampedAtoi(s string, def, lo, hi int) int {
	v, err := strconv.Atoi(s)
	if err != nil || v < lo || v > hi {
		return def
	}
	return v
}
