package wire

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ErrClosed indicates EOF was observed on the socket before the expected
// framing terminator (CRLF for a single line, or the dot-line for a
// multi-line body) was seen.
var ErrClosed = fmt.Errorf("wire: connection closed before terminator")

const crlf = "\r\n"

// Framer provides the three read primitives and one write primitive every
// NNTP exchange is built from. It owns no socket lifecycle: the caller
// supplies the reader/writer and is responsible for closing them.
type Framer struct {
	r *bufio.Reader
	w io.Writer
}

// NewFramer wraps r/w with NNTP line framing. r should already be buffered
// (or will be wrapped in a bufio.Reader if not).
func NewFramer(r io.Reader, w io.Writer) *Framer {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Framer{r: br, w: w}
}

// ReadLine reads bytes up to the next CRLF and decodes them as UTF-8,
// returning the content without the terminator. Used for command and
// status lines.
func (f *Framer) ReadLine() (string, error) {
	raw, err := f.ReadRawLine()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// ReadRawLine is identical in framing to ReadLine but returns the raw bytes
// without UTF-8 decoding. This is required because yEnc-encoded bytes
// overlap with invalid UTF-8 sequences.
func (f *Framer) ReadRawLine() ([]byte, error) {
	line, err := f.r.ReadBytes('\n')
	if err != nil {
		if err == io.EOF {
			return nil, ErrClosed
		}
		return nil, err
	}

	// Trim the trailing CRLF (or bare LF, tolerated defensively).
	line = line[:len(line)-1]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return line, nil
}

// ReadMultiLineBody repeatedly reads lines until one that is exactly ".",
// applying dot-unstuffing (a leading ".." becomes a single leading ".") to
// every line along the way. It returns the ordered sequence of unstuffed
// lines, not including the terminator.
func (f *Framer) ReadMultiLineBody() ([]string, error) {
	var lines []string
	for {
		line, err := f.ReadLine()
		if err != nil {
			return nil, err
		}
		if line == "." {
			return lines, nil
		}
		lines = append(lines, Unstuff(line))
	}
}

// Unstuff reverses dot-stuffing on a single line: a line beginning with ".."
// becomes a line beginning with a single ".". Lines not beginning with "."
// are returned unchanged.
func Unstuff(line string) string {
	if strings.HasPrefix(line, "..") {
		return line[1:]
	}
	return line
}

// WriteLine appends CRLF to s and writes+flushes it to the socket.
func (f *Framer) WriteLine(s string) error {
	_, err := io.WriteString(f.w, s+crlf)
	return err
}

// Reader exposes the underlying buffered reader for callers (the yEnc body
// pipeline) that need raw byte access beyond single lines, via io.Reader.
func (f *Framer) Reader() *bufio.Reader {
	return f.r
}
