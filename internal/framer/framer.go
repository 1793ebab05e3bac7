// Package framer assembles newline-delimited lines out of a byte stream.
package framer

import (
	"bytes"
	"io"
)

// Outcome classifies what ReadLine produced.
type Outcome int

const (
	// Line means the returned string is a complete line (delimiter and
	// trailing '\r' already stripped).
	Line Outcome = iota
	// Disconnected means the stream ended (EOF or a permanent read error)
	// before a full line was assembled.
	Disconnected
	// Oversize means a complete line was longer than the Framer's maximum
	// line length, or the accumulator grew past that maximum plus one read
	// chunk with no newline. Terminal for the connection: the Framer need
	// not be used again.
	Oversize
)

// DefaultMaxLine is the maximum accepted line length in bytes.
const DefaultMaxLine = 8192

// chunkSize is how much the Framer reads from the stream per Read call.
const chunkSize = 4096

// Framer converts a byte stream into newline-delimited lines. The zero
// value is not usable; construct with New.
type Framer struct {
	maxLine int
	buf     []byte
}

// New constructs a Framer with the given maximum line length. A
// non-positive maxLine falls back to DefaultMaxLine.
func New(maxLine int) *Framer {
	if maxLine <= 0 {
		maxLine = DefaultMaxLine
	}
	return &Framer{maxLine: maxLine}
}

// ReadLine returns the next line from r. It may read from r multiple times
// across calls and across invocations on the same Framer, since a partial
// line from one read is retained in the accumulator for the next.
func (f *Framer) ReadLine(r io.Reader) (string, Outcome) {
	chunk := make([]byte, chunkSize)

	for {
		if idx := bytes.IndexByte(f.buf, '\n'); idx >= 0 {
			line := f.buf[:idx]
			f.buf = f.buf[idx+1:]
			line = bytes.TrimSuffix(line, []byte{'\r'})

			if len(line) > f.maxLine {
				return "", Oversize
			}
			return string(line), Line
		}

		// net.Conn reads retry EINTR internally, so there is no
		// transient-error branch here: an error or a zero-byte read both
		// mean the peer is gone.
		n, err := r.Read(chunk)
		if n > 0 {
			f.buf = append(f.buf, chunk[:n]...)
			if len(f.buf) > f.maxLine+chunkSize {
				return "", Oversize
			}
			// A read can return data together with EOF; scan that data
			// for a complete line before treating the EOF as a disconnect.
			continue
		}
		if err != nil || n == 0 {
			return "", Disconnected
		}
	}
}
