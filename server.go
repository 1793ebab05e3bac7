// Package tcpkv is an embeddable line-oriented TCP key-value server: a
// small GET/SET/DEL/STATS/PING/QUIT verb set served over a bounded
// admission-and-servicing pipeline (Acceptor, BoundedQueue, WorkerPool,
// LineFramer) around a concurrently-readable KVStore.
//
// Embedded use:
//
//	srv := tcpkv.New(":6380", tcpkv.DefaultConfig(), nil)
//	go srv.ListenAndServe()
//	defer srv.Shutdown()
package tcpkv

import (
	"go.uber.org/zap"

	"tcpkv/internal/config"
	"tcpkv/internal/server"
)

// Config is the server's tunable admission/servicing parameters.
type Config = config.Config

// DefaultConfig returns the server's default tuning.
func DefaultConfig() *Config {
	return &Config{
		Port:      config.DefaultPort,
		Threads:   config.DefaultThreads,
		MaxConns:  config.DefaultMaxConns,
		QueueCap:  config.DefaultQueueCap,
		RateLimit: config.DefaultRateLimit,
	}
}

// Server is the embeddable handle to a running (or not-yet-started) tcpkv
// instance.
type Server struct {
	acceptor *server.Acceptor
}

// New constructs a Server bound to addr (host:port, or ":port" for all
// interfaces) with the given configuration. Logger may be nil, in which
// case logging is discarded.
func New(addr string, cfg *Config, logger *zap.Logger) *Server {
	return &Server{acceptor: server.New(addr, cfg, logger)}
}

// ListenAndServe opens the listening socket and runs the accept loop. It
// blocks until Shutdown is called (accept errors are logged and retried),
// returning nil on orderly shutdown and a non-nil error on startup
// failure (socket/bind/listen).
func (s *Server) ListenAndServe() error {
	return s.acceptor.ListenAndServe()
}

// Shutdown stops accepting new connections and unblocks the accept loop.
// Any job already dequeued by a worker completes; jobs still buffered in
// the handoff queue are dropped. It does not wait for ListenAndServe
// itself to return.
func (s *Server) Shutdown() {
	s.acceptor.Stop()
}
