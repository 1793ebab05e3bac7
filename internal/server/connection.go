package server

import (
	"context"
	"net"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"tcpkv/internal/command"
	"tcpkv/internal/framer"
	"tcpkv/internal/stats"
)

const errLineTooLong = "ERR line too long\n"

// serveConnection writes the banner, then loops reading framed lines and
// dispatching them until disconnect, an oversize line, a write failure, the
// QUIT reply, or server shutdown. The caller (Acceptor.admit's job closure)
// owns closing conn and releasing the active counter and admission
// semaphore; this function only ever returns, it never closes conn itself,
// so that bookkeeping happens on every exit path exactly once.
func serveConnection(conn net.Conn, connID string, disp *command.Dispatcher, st *stats.Stats, running func() bool, log *zap.Logger, rateLimit int) {
	log = log.With(zap.String("conn_id", connID), zap.String("remote", conn.RemoteAddr().String()))

	if _, err := conn.Write([]byte(Banner)); err != nil {
		log.Debug("banner write failed, abandoning connection", zap.Error(err))
		return
	}

	var limiter *rate.Limiter
	if rateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(rateLimit), rateLimit)
	}

	fr := framer.New(framer.DefaultMaxLine)

	for running() {
		line, outcome := fr.ReadLine(conn)
		switch outcome {
		case framer.Disconnected:
			return
		case framer.Oversize:
			_, _ = conn.Write([]byte(errLineTooLong))
			return
		}

		if line == "" {
			continue
		}

		if limiter != nil {
			// Wait uses a background context: no cancellation exists
			// elsewhere in the serving path, and this only ever blocks
			// when an operator has explicitly turned the limiter on.
			_ = limiter.Wait(context.Background())
		}

		st.IncRequests()
		reply := disp.Dispatch(line)
		if _, err := conn.Write(reply); err != nil {
			return
		}
		if command.IsQuitReply(reply) {
			return
		}
	}
}
