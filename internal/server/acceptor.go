// Package server implements the accept loop, strict admission cap, and
// per-connection line protocol loop. Admission is a weighted semaphore
// sized to max-conns: an admitted connection never exceeds the cap.
package server

import (
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"tcpkv/internal/command"
	"tcpkv/internal/config"
	"tcpkv/internal/stats"
	"tcpkv/internal/storage"
	"tcpkv/internal/workerpool"
)

// Banner is written to every admitted connection as soon as a worker starts
// serving it, before the first line is read. Connections rejected at
// admission do not receive it.
const Banner = "OK tcp-kv ready\n"

const (
	errBusy         = "ERR server busy\n"
	errShuttingDown = "ERR server shutting down\n"
)

// Acceptor owns the listening socket, the strict admission cap, and the
// worker pool that drains accepted connections.
type Acceptor struct {
	addr string
	cfg  *config.Config
	log  *zap.Logger

	store *storage.Store
	stats *stats.Stats
	disp  *command.Dispatcher
	pool  *workerpool.Pool
	sem   *semaphore.Weighted

	mu       sync.Mutex
	listener net.Listener
	running  bool
	conns    map[net.Conn]struct{}
}

// New constructs an Acceptor. The store, stats and worker pool are created
// here so a single Acceptor fully owns the server's lifecycle; nothing in
// this package lives in package-level state.
func New(addr string, cfg *config.Config, log *zap.Logger) *Acceptor {
	if log == nil {
		log = zap.NewNop()
	}
	store := storage.New()
	st := stats.New()
	return &Acceptor{
		addr:  addr,
		cfg:   cfg,
		log:   log,
		store: store,
		stats: st,
		disp:  command.New(store, st, cfg.Threads),
		pool:  workerpool.New(cfg.Threads, cfg.QueueCap),
		sem:   semaphore.NewWeighted(int64(cfg.MaxConns)),
		conns: make(map[net.Conn]struct{}),
	}
}

// ListenAndServe opens the listening socket and runs the accept loop until
// Stop is called; accept errors while running are logged and retried. It
// returns nil on an orderly shutdown and a non-nil error on startup failure.
func (a *Acceptor) ListenAndServe() error {
	ln, err := listenTCP(a.addr)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.listener = ln
	a.running = true
	a.mu.Unlock()

	a.log.Info("listening",
		zap.String("addr", ln.Addr().String()),
		zap.Int("threads", a.cfg.Threads),
		zap.Int("max_conns", a.cfg.MaxConns),
		zap.Int("queue_cap", a.cfg.QueueCap),
	)

	a.pool.Start()
	a.acceptLoop(ln)

	// Draining: stop the pool (closes the job queue, joins workers), then
	// make sure the listener is closed exactly once.
	a.pool.Stop()
	a.closeListenerOnce()

	return nil
}

func (a *Acceptor) acceptLoop(ln net.Listener) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 5 * time.Millisecond
	bo.MaxInterval = 1 * time.Second
	bo.MaxElapsedTime = 0 // retry indefinitely; only Stop ends the loop

	for {
		conn, err := ln.Accept()
		if err != nil {
			if !a.isRunning() {
				// stop() closed the listener; this is the expected
				// shutdown signal, not a real error.
				return
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue // transient interruption: retry immediately
			}
			a.log.Warn("accept error", zap.Error(err))
			time.Sleep(bo.NextBackOff())
			continue
		}
		bo.Reset()

		if !a.admit(conn) {
			// Submit failed: the pool is shutting down, nothing more to
			// accept.
			return
		}
	}
}

// admit applies the strict admission policy and hands the connection to the
// worker pool. Exactly one of "rejected" or "submitted" happens for every
// accepted handle; both paths release the active counter and the admission
// semaphore exactly once. It returns false only when the pool refused the
// submit, which means the server is shutting down.
func (a *Acceptor) admit(conn net.Conn) bool {
	a.stats.IncActive()

	if !a.sem.TryAcquire(1) {
		writeLine(conn, errBusy)
		conn.Close()
		a.stats.DecActive()
		return true
	}

	connID := uuid.NewString()
	a.registerConn(conn)
	job := func() {
		defer a.sem.Release(1)
		defer a.stats.DecActive()
		defer a.unregisterConn(conn)
		defer conn.Close()
		serveConnection(conn, connID, a.disp, a.stats, a.isRunning, a.log, a.cfg.RateLimit)
	}

	if !a.pool.Submit(job) {
		writeLine(conn, errShuttingDown)
		conn.Close()
		a.unregisterConn(conn)
		a.sem.Release(1)
		a.stats.DecActive()
		return false
	}
	return true
}

func (a *Acceptor) registerConn(conn net.Conn) {
	a.mu.Lock()
	a.conns[conn] = struct{}{}
	a.mu.Unlock()
}

func (a *Acceptor) unregisterConn(conn net.Conn) {
	a.mu.Lock()
	delete(a.conns, conn)
	a.mu.Unlock()
}

// Stop flips the running flag false and closes the listening socket,
// unblocking the accept call in progress. Idempotent: closeListenerOnce
// guards against the accept loop's own shutdown-path close racing with an
// explicit Stop call.
//
// It also closes every currently admitted connection. An idle connection
// blocked in a read has no other way to observe that the server asked it
// to stop, since the handler only rechecks the running flag between reads.
// Closing here unblocks that read with an error, which drives the handler
// to its normal disconnect exit path (stats/semaphore release still
// happens exactly once, via the job's own defers).
func (a *Acceptor) Stop() {
	a.mu.Lock()
	a.running = false
	conns := make([]net.Conn, 0, len(a.conns))
	for c := range a.conns {
		conns = append(conns, c)
	}
	a.mu.Unlock()

	a.closeListenerOnce()
	for _, c := range conns {
		_ = c.Close()
	}
}

func (a *Acceptor) isRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

func (a *Acceptor) closeListenerOnce() {
	a.mu.Lock()
	ln := a.listener
	a.listener = nil
	a.mu.Unlock()
	if ln != nil {
		_ = ln.Close()
	}
}

func writeLine(conn net.Conn, s string) {
	_, _ = conn.Write([]byte(s))
}
