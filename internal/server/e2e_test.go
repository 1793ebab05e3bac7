package server

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// End-to-end scenarios driven against a live Acceptor over real TCP
// connections rather than calling handlers directly.

func TestE2ESetGetRoundTrip(t *testing.T) {
	_, addr := newTestAcceptor(t, testConfig())

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	r := bufio.NewReader(conn)
	banner, err := r.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, Banner, banner)

	conn.Write([]byte("SET foo bar baz\n"))
	reply, err := r.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "OK\n", reply)

	conn.Write([]byte("GET foo\n"))
	reply, err = r.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "VALUE bar baz\n", reply)
}

func TestE2EDelLifecycle(t *testing.T) {
	_, addr := newTestAcceptor(t, testConfig())

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	r := bufio.NewReader(conn)
	_, err = r.ReadString('\n') // banner
	require.NoError(t, err)

	send := func(cmd string) string {
		conn.Write([]byte(cmd))
		reply, err := r.ReadString('\n')
		require.NoError(t, err)
		return reply
	}

	require.Equal(t, "OK\n", send("SET x 1\n"))
	require.Equal(t, "OK\n", send("DEL x\n"))
	require.Equal(t, "NOTFOUND\n", send("DEL x\n"))
	require.Equal(t, "NOTFOUND\n", send("GET x\n"))
}

func TestE2EStatsShape(t *testing.T) {
	_, addr := newTestAcceptor(t, testConfig())

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	r := bufio.NewReader(conn)
	_, err = r.ReadString('\n') // banner
	require.NoError(t, err)

	send := func(cmd string) string {
		conn.Write([]byte(cmd))
		reply, err := r.ReadString('\n')
		require.NoError(t, err)
		return reply
	}

	require.Equal(t, "PONG\n", send("PING\n"))
	require.Equal(t, "OK\n", send("SET a 1\n"))
	require.Equal(t, "VALUE 1\n", send("GET a\n"))

	conn.Write([]byte("STATS\n"))
	lines := make([]string, 5)
	for i := range lines {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		lines[i] = line
	}

	require.Contains(t, lines[0], "UPTIME ")
	require.Equal(t, "ACTIVE_CONNECTIONS 1\n", lines[1])
	require.Contains(t, lines[2], "TOTAL_REQUESTS ")
	require.Contains(t, lines[3], "KEYS ")
	require.Contains(t, lines[4], "THREADS ")
}

func TestE2EOversizeLineThenEOF(t *testing.T) {
	_, addr := newTestAcceptor(t, testConfig())

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	r := bufio.NewReader(conn)
	_, err = r.ReadString('\n') // banner
	require.NoError(t, err)

	// Must exceed maxLine+chunkSize (8192+4096) with no newline for the
	// framer to report Oversize without ever seeing EOF.
	big := make([]byte, 13000)
	for i := range big {
		big[i] = 'a'
	}
	go conn.Write(big)

	reply, err := r.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "ERR line too long\n", reply)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	_, err = conn.Read(buf)
	require.Error(t, err, "connection must be closed after oversize reply")
}

func TestE2EVerbCaseInsensitivity(t *testing.T) {
	_, addr := newTestAcceptor(t, testConfig())

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	r := bufio.NewReader(conn)
	_, err = r.ReadString('\n') // banner
	require.NoError(t, err)

	for _, verb := range []string{"ping", "PING", "PiNg"} {
		conn.Write([]byte(verb + "\n"))
		reply, err := r.ReadString('\n')
		require.NoError(t, err)
		require.Equal(t, "PONG\n", reply)
	}
}

func TestE2ECRLFAndLFEquivalent(t *testing.T) {
	_, addr := newTestAcceptor(t, testConfig())

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	r := bufio.NewReader(conn)
	_, err = r.ReadString('\n') // banner
	require.NoError(t, err)

	conn.Write([]byte("SET k v\r\n"))
	reply, err := r.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "OK\n", reply)

	conn.Write([]byte("GET k\n"))
	reply, err = r.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "VALUE v\n", reply)
}
