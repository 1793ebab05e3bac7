package server

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// listenTCP opens a TCP listener with an explicit backlog: socket,
// SO_REUSEADDR, bind, listen(fd, 256). net.Listen has no parameter for the
// backlog (it always passes the platform's max), so this goes one layer
// below it with golang.org/x/sys/unix and wraps the resulting fd back into
// a *net.TCPListener via net.FileListener.
const listenBacklog = 256

func listenTCP(addr string) (net.Listener, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("listen: invalid port %q: %w", portStr, err)
	}

	var ip [4]byte
	if host != "" {
		parsed := net.ParseIP(host)
		v4 := parsed.To4()
		if v4 == nil {
			return nil, fmt.Errorf("listen: unsupported host %q (IPv4 only)", host)
		}
		copy(ip[:], v4)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("listen: socket: %w", err)
	}
	// Closed on every error path below; on success ownership moves to the
	// os.File created further down (itself closed once net.FileListener has
	// duplicated the fd into its own runtime-pollable copy).
	closeFD := true
	defer func() {
		if closeFD {
			_ = unix.Close(fd)
		}
	}()

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return nil, fmt.Errorf("listen: setsockopt SO_REUSEADDR: %w", err)
	}

	sa := &unix.SockaddrInet4{Port: port, Addr: ip}
	if err := unix.Bind(fd, sa); err != nil {
		return nil, fmt.Errorf("listen: bind: %w", err)
	}

	if err := unix.Listen(fd, listenBacklog); err != nil {
		return nil, fmt.Errorf("listen: listen: %w", err)
	}

	// os.NewFile takes ownership of fd from here on: f.Close() below always
	// closes it, so the error-path defer above must no longer try to.
	closeFD = false
	f := os.NewFile(uintptr(fd), "tcpkv-listener")
	ln, err := net.FileListener(f)
	_ = f.Close() // FileListener dups the fd; our copy is no longer needed
	if err != nil {
		return nil, fmt.Errorf("listen: FileListener: %w", err)
	}

	return ln, nil
}
