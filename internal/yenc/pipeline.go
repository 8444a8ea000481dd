package yenc

import (
	"io"
	"strings"

	"github.com/binarynews/nntpclient/internal/bufpool"
	"github.com/binarynews/nntpclient/internal/wire"
)

const chunkSize = bufpool.DefaultChunkSize // 128 KiB, per spec's fixed read buffer size

// lineBuf lets the pipeline fall back from raw chunk decoding to line-level
// text reads (to locate =yend and the dot terminator) without losing bytes
// that were already pulled off the socket but not yet consumed.
type lineBuf struct {
	pending []byte
	raw     io.Reader
}

func (l *lineBuf) ReadLine() (string, error) {
	for {
		if idx := indexByte(l.pending, '\n'); idx >= 0 {
			line := l.pending[:idx]
			l.pending = l.pending[idx+1:]
			if len(line) > 0 && line[len(line)-1] == '\r' {
				line = line[:len(line)-1]
			}
			return string(line), nil
		}

		buf := make([]byte, 4096)
		n, err := l.raw.Read(buf)
		if n > 0 {
			l.pending = append(l.pending, buf[:n]...)
		}
		if err != nil {
			if err == io.EOF {
				return "", wire.ErrClosed
			}
			return "", err
		}
	}
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// FetchHeadersOnly reads the yEnc preamble (skipping blank lines to the
// first "=ybegin " line, then =ypart if present) and returns the parsed
// Headers. It also reads the first line of encoded data, which it discards
// undecoded; the rest of the body is not read. The caller must treat the
// connection as dirty afterward: the body was left unread on the wire.
func FetchHeadersOnly(framer *wire.Framer) (Headers, error) {
	h, _, err := readPreamble(framer)
	return h, err
}

// FetchBody reads the yEnc preamble and then drives the incremental decode
// loop against the connection's raw byte stream in a background goroutine,
// writing decoded bytes to the returned io.ReadCloser as they arrive. The
// returned channel receives exactly one value when the goroutine finishes:
// nil on a clean completion (decode done, terminator observed, CRC checked
// if present), non-nil if the stream failed, was malformed, had a CRC
// mismatch, or the caller closed the reader before EOF.
func FetchBody(framer *wire.Framer) (Headers, io.ReadCloser, <-chan error, error) {
	h, first, err := readPreamble(framer)
	if err != nil {
		return Headers{}, nil, nil, err
	}

	pr, pw := io.Pipe()
	done := make(chan error, 1)

	go runDecodeLoop(framer, first, pw, done)

	return h, pr, done, nil
}

// readPreamble consumes lines up to and including =ybegin/=ypart, and
// returns the first chunk of (possibly binary) data that follows, with its
// terminating CRLF restored.
func readPreamble(framer *wire.Framer) (Headers, []byte, error) {
	var beginLine string
	for {
		line, err := framer.ReadLine()
		if err != nil {
			return Headers{}, nil, err
		}
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "=ybegin ") {
			return Headers{}, nil, &MalformedError{Reason: "expected \"=ybegin\", got \"" + line + "\""}
		}
		beginLine = line
		break
	}

	h, err := ParseBegin(strings.TrimPrefix(beginLine, "=ybegin "))
	if err != nil {
		return Headers{}, nil, err
	}

	raw, err := framer.ReadRawLine()
	if err != nil {
		return Headers{}, nil, err
	}

	if strings.HasPrefix(string(raw), "=ypart ") {
		h, err = ApplyPart(h, strings.TrimPrefix(string(raw), "=ypart "))
		if err != nil {
			return Headers{}, nil, err
		}
		raw, err = framer.ReadRawLine()
		if err != nil {
			return Headers{}, nil, err
		}
	}

	// raw is the first line of encoded data; its CRLF was stripped by
	// ReadRawLine but the decoder needs it back to recognise the line
	// boundary.
	first := append(append([]byte{}, raw...), '\r', '\n')
	return h, first, nil
}

func runDecodeLoop(framer *wire.Framer, first []byte, pw *io.PipeWriter, done chan<- error) {
	state := Initial()
	var crc uint32
	pending := first
	reader := framer.Reader()

	// curBuf holds the pool buffer pending currently aliases, if any (nil
	// when pending is the preamble's leftover first-line bytes, or once
	// control over pending has passed to a lineBuf below).
	var curBuf []byte

	finish := func(err error) {
		if curBuf != nil {
			bufpool.Put(curBuf)
			curBuf = nil
		}
		_ = pw.CloseWithError(err)
		done <- err
	}

	for {
		if len(pending) == 0 {
			if curBuf != nil {
				bufpool.Put(curBuf)
				curBuf = nil
			}
			buf := bufpool.Get(chunkSize)
			n, err := reader.Read(buf)
			if n == 0 && err != nil {
				bufpool.Put(buf)
				if err == io.EOF {
					finish(wire.ErrClosed)
				} else {
					finish(err)
				}
				return
			}
			curBuf = buf
			pending = buf[:n]
		}

		result := DecodeIncremental(pending, state)
		if len(result.Data) > 0 {
			if _, werr := pw.Write(result.Data); werr != nil {
				finish(werr)
				return
			}
			crc = CRC32(result.Data, crc)
		}
		state = result.State
		pending = pending[result.Consumed:]

		switch result.End {
		case EndNone:
			if len(pending) == 0 {
				continue
			}
			// A decision needed one more byte than the chunk had; copy the
			// remainder out before releasing curBuf, then merge with the
			// next read.
			leftover := append([]byte{}, pending...)
			if curBuf != nil {
				bufpool.Put(curBuf)
				curBuf = nil
			}
			buf := bufpool.Get(chunkSize)
			n, err := reader.Read(buf)
			if n > 0 {
				leftover = append(leftover, buf[:n]...)
			}
			bufpool.Put(buf)
			pending = leftover
			if n == 0 && err != nil {
				finish(wire.ErrClosed)
				return
			}
			continue

		case EndArticle:
			// Trailer-less completion, accepted per spec: no CRC check.
			finish(nil)
			return

		case EndControl:
			// Hand the remaining bytes (still possibly aliasing curBuf) to
			// lineBuf by copying them out; from here on decoding is done
			// and no more pool buffers are acquired.
			lb := &lineBuf{pending: append([]byte{}, pending...), raw: reader}
			if curBuf != nil {
				bufpool.Put(curBuf)
				curBuf = nil
			}

			var trailer Trailer
			foundTrailer := false
			for {
				line, err := lb.ReadLine()
				if err != nil {
					finish(err)
					return
				}
				if strings.HasPrefix(line, "=yend") {
					trailer, err = ParseEnd(strings.TrimPrefix(line, "=yend"))
					if err != nil {
						finish(err)
						return
					}
					foundTrailer = true
					break
				}
			}
			if !foundTrailer {
				finish(&MalformedError{Reason: "control line seen but no =yend found"})
				return
			}

			if expected, ok := trailer.CRC(); ok {
				if expected != crc {
					finish(&CrcMismatchError{Expected: expected, Actual: crc})
					return
				}
			}

			for {
				line, err := lb.ReadLine()
				if err != nil {
					finish(err)
					return
				}
				if line == "." {
					finish(nil)
					return
				}
			}
		}
	}
}
