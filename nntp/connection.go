package nntp

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"

	"github.com/binarynews/nntpclient/internal/bytesize"
	nntplog "github.com/binarynews/nntpclient/internal/logger"
	"github.com/binarynews/nntpclient/internal/wire"
	"github.com/binarynews/nntpclient/internal/yenc"
)

// credentials is the stored AUTHINFO pair a Connection replays after every
// reconnect. Set only on a successful AUTHINFO exchange, cleared only by
// Close.
type credentials struct {
	user string
	pass string
}

// reconnectTask is the awaitable handle for a background reconnect. Command
// entry points call ensureConnected, which waits on done rather than
// busy-polling, removing any window where a stale socket could be used.
type reconnectTask struct {
	done chan struct{}
	err  error
}

// Connection is one framed socket to an NNTP server: it serialises every
// command, status read, and multi-line/raw body read behind a single lock,
// and rebuilds itself in the background after a detected failure while
// preserving any stored AUTHINFO credentials. It is not safe for concurrent
// use by multiple callers; the nntppool package is what makes that safe.
type Connection struct {
	ID     string
	Host   string
	Port   int
	UseTLS bool

	mu      chan struct{} // binary semaphore acting as the command lock (see lock()/unlock())
	conn    net.Conn
	framer  *wire.Framer
	welcome wire.Response

	reconnect *reconnectTask
	creds     *credentials
}

// lock/unlock implement the command_lock as a 1-buffered channel rather than
// sync.Mutex because ensureConnected must release it across an await point
// (waiting on the reconnect task's done channel) from the same goroutine
// that acquired it, which sync.Mutex permits but which reads more awkwardly
// than a channel acquire/release pair when the unlock happens conditionally
// deep inside helper calls.
func (c *Connection) lock() {
	c.mu <- struct{}{}
}

func (c *Connection) unlock() {
	<-c.mu
}

// Open dials host:port (optionally under TLS), reads the welcome line, and
// accepts only codes 200/201; any other welcome is a ProtocolError and the
// socket is closed before returning.
func Open(ctx context.Context, host string, port int, useTLS bool) (*Connection, error) {
	conn, framer, welcome, err := dialAndHandshake(ctx, host, port, useTLS)
	if err != nil {
		return nil, err
	}

	c := &Connection{
		ID:      uuid.NewString(),
		Host:    host,
		Port:    port,
		UseTLS:  useTLS,
		mu:      make(chan struct{}, 1),
		conn:    conn,
		framer:  framer,
		welcome: welcome,
	}

	nntplog.DebugCtx(ctx, "connection opened", nntplog.ConnID(c.ID), nntplog.Host(fmt.Sprintf("%s:%d", host, port)), nntplog.Code(welcome.Code))
	return c, nil
}

func dialAndHandshake(ctx context.Context, host string, port int, useTLS bool) (net.Conn, *wire.Framer, wire.Response, error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	var d net.Dialer
	var conn net.Conn
	var err error
	if useTLS {
		tlsDialer := &tls.Dialer{NetDialer: &d, Config: &tls.Config{ServerName: host}}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = d.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, nil, wire.Response{}, &ConnectionError{Op: "dial", Err: err}
	}

	framer := wire.NewFramer(conn, conn)

	line, err := framer.ReadLine()
	if err != nil {
		_ = conn.Close()
		return nil, nil, wire.Response{}, &ConnectionError{Op: "welcome", Err: err}
	}
	resp, err := wire.ParseResponse(line)
	if err != nil {
		_ = conn.Close()
		return nil, nil, wire.Response{}, &MalformedResponseError{Line: line}
	}
	if resp.Code != 200 && resp.Code != 201 {
		_ = conn.Close()
		return nil, nil, wire.Response{}, &ProtocolError{Op: "welcome", Code: resp.Code, Message: resp.Message}
	}

	return conn, framer, resp, nil
}

// ensureConnected must be called with the command lock held. If a reconnect
// is pending it releases the lock while waiting (so the reconnect goroutine
// can itself take the lock to install the new socket), then reacquires it
// before returning. Every exit path returns with the lock held.
func (c *Connection) ensureConnected(ctx context.Context) error {
	if c.reconnect == nil {
		return nil
	}
	task := c.reconnect
	c.unlock()

	var waitErr error
	var fromCtx bool
	select {
	case <-task.done:
		waitErr = task.err
	case <-ctx.Done():
		waitErr = ctx.Err()
		fromCtx = true
	}

	c.lock()

	if waitErr == nil {
		return nil
	}
	if fromCtx {
		return waitErr
	}
	return &ConnectionError{Op: "reconnect", Err: waitErr}
}

// scheduleReconnectLocked must be called with the command lock held. It is a
// no-op if a reconnect is already in flight.
func (c *Connection) scheduleReconnectLocked() {
	if c.reconnect != nil {
		return
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}

	task := &reconnectTask{done: make(chan struct{})}
	c.reconnect = task

	nntplog.WarnCtx(context.Background(), "scheduling reconnect", nntplog.ConnID(c.ID), nntplog.Host(fmt.Sprintf("%s:%d", c.Host, c.Port)))

	go c.runReconnect(task)
}

func (c *Connection) runReconnect(task *reconnectTask) {
	var catcher panics.Catcher
	var conn net.Conn
	var framer *wire.Framer
	var welcome wire.Response
	var err error

	catcher.Try(func() {
		conn, framer, welcome, err = dialAndHandshake(context.Background(), c.Host, c.Port, c.UseTLS)
		if err != nil {
			return
		}
		if c.creds != nil {
			if authErr := authenticateOn(framer, c.creds.user, c.creds.pass); authErr != nil {
				_ = conn.Close()
				err = authErr
			}
		}
	})

	if recovered := catcher.Recovered(); recovered != nil {
		err = &ConnectionError{Op: "reconnect", Err: recovered.AsError()}
	}

	c.lock()
	if err != nil {
		task.err = err
		nntplog.ErrorCtx(context.Background(), "reconnect failed", nntplog.ConnID(c.ID), nntplog.Err(err))
	} else {
		c.conn = conn
		c.framer = framer
		c.welcome = welcome
		nntplog.InfoCtx(context.Background(), "reconnect succeeded", nntplog.ConnID(c.ID))
	}
	c.reconnect = nil
	c.unlock()

	close(task.done)
}

// ScheduleReconnect lets the pool trigger a reconnect on a connection it
// observed failing (retry-on-ConnectionError), without going through a
// failed command first.
func (c *Connection) ScheduleReconnect() {
	c.lock()
	c.scheduleReconnectLocked()
	c.unlock()
}

// Close releases the socket and clears stored credentials. It does not wait
// for any in-flight reconnect.
func (c *Connection) Close() error {
	c.lock()
	defer c.unlock()
	c.creds = nil
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Welcome returns the response observed when the connection (or its most
// recent reconnect) was established.
func (c *Connection) Welcome() Response {
	c.lock()
	defer c.unlock()
	return Response{Code: c.welcome.Code, Message: c.welcome.Message}
}

// exchangeLocked must be called with the command lock held and no pending
// reconnect (ensureConnected must have already succeeded). It writes cmdLine,
// reads the status line, and parses it. Socket-level failures schedule a
// reconnect before returning; a malformed status line does not, since the
// socket itself is still fine.
func (c *Connection) exchangeLocked(cmdLine string) (wire.Response, error) {
	if err := c.framer.WriteLine(cmdLine); err != nil {
		c.scheduleReconnectLocked()
		return wire.Response{}, &ConnectionError{Op: cmdLine, Err: err}
	}

	line, err := c.framer.ReadLine()
	if err != nil {
		c.scheduleReconnectLocked()
		return wire.Response{}, &ConnectionError{Op: cmdLine, Err: err}
	}

	resp, err := wire.ParseResponse(line)
	if err != nil {
		return wire.Response{}, &MalformedResponseError{Line: line}
	}
	return resp, nil
}

// command acquires the command lock, awaits any pending reconnect, writes
// cmdLine, reads the status line, and releases the lock.
func (c *Connection) command(ctx context.Context, cmdLine string) (wire.Response, error) {
	c.lock()
	defer c.unlock()

	if err := c.ensureConnected(ctx); err != nil {
		return wire.Response{}, err
	}
	return c.exchangeLocked(cmdLine)
}

// commandMultiLine is command plus, for a 1xx/2xx status, a dot-terminated
// multi-line body read.
func (c *Connection) commandMultiLine(ctx context.Context, cmdLine string) (wire.Response, []string, error) {
	c.lock()
	defer c.unlock()

	if err := c.ensureConnected(ctx); err != nil {
		return wire.Response{}, nil, err
	}

	resp, err := c.exchangeLocked(cmdLine)
	if err != nil {
		return wire.Response{}, nil, err
	}
	if resp.Code < 100 || resp.Code > 299 {
		return resp, nil, nil
	}

	lines, err := c.framer.ReadMultiLineBody()
	if err != nil {
		c.scheduleReconnectLocked()
		return wire.Response{}, nil, &ConnectionError{Op: cmdLine, Err: err}
	}
	return resp, lines, nil
}

// RawGuard represents ownership of the command lock handed to the caller of
// commandRaw. Exactly one of ReleaseClean or ReleaseAndReconnect must be
// called, exactly once, on every exit path (normal completion, error, or
// cancellation), so a streamed body read holds the lock for its whole
// duration instead of reacquiring it per chunk.
type RawGuard struct {
	conn     *Connection
	released bool
}

// Framer exposes the connection's wire framer for raw byte access (the yEnc
// body pipeline's sole consumer of this).
func (g *RawGuard) Framer() *wire.Framer {
	return g.conn.framer
}

// ReleaseClean releases the command lock without scheduling a reconnect: the
// socket was left in a clean state (decode completed and the consumer
// drained it).
func (g *RawGuard) ReleaseClean() {
	if g.released {
		return
	}
	g.released = true
	g.conn.unlock()
}

// ReleaseAndReconnect schedules a reconnect and releases the command lock:
// the socket was left dirty (decode failed, was cancelled, or the consumer
// abandoned the body stream before EOF).
func (g *RawGuard) ReleaseAndReconnect() {
	if g.released {
		return
	}
	g.released = true
	g.conn.scheduleReconnectLocked()
	g.conn.unlock()
}

// commandRaw acquires the command lock, awaits any pending reconnect, writes
// cmdLine, reads the status line, and returns WITHOUT releasing the lock:
// ownership transfers to the returned RawGuard. This exists solely so the
// yEnc pipeline can hold exclusive access to the raw byte channel for the
// entire body decode.
func (c *Connection) commandRaw(ctx context.Context, cmdLine string) (wire.Response, *RawGuard, error) {
	c.lock()

	if err := c.ensureConnected(ctx); err != nil {
		c.unlock()
		return wire.Response{}, nil, err
	}

	resp, err := c.exchangeLocked(cmdLine)
	if err != nil {
		c.unlock()
		return wire.Response{}, nil, err
	}

	return resp, &RawGuard{conn: c}, nil
}

// authenticateOn runs the AUTHINFO USER/PASS handshake over an already-open
// framer. It is the shared body of Connection.Authenticate and the
// reconnect-time credential replay.
func authenticateOn(framer *wire.Framer, user, pass string) error {
	if err := framer.WriteLine("AUTHINFO USER " + user); err != nil {
		return &ConnectionError{Op: "AUTHINFO USER", Err: err}
	}
	line, err := framer.ReadLine()
	if err != nil {
		return &ConnectionError{Op: "AUTHINFO USER", Err: err}
	}
	resp, err := wire.ParseResponse(line)
	if err != nil {
		return &MalformedResponseError{Line: line}
	}

	switch resp.Code {
	case 281:
		return nil
	case 381:
		// fall through to PASS
	default:
		return &AuthenticationFailed{Code: resp.Code, Message: resp.Message}
	}

	if err := framer.WriteLine("AUTHINFO PASS " + pass); err != nil {
		return &ConnectionError{Op: "AUTHINFO PASS", Err: err}
	}
	line, err = framer.ReadLine()
	if err != nil {
		return &ConnectionError{Op: "AUTHINFO PASS", Err: err}
	}
	resp, err = wire.ParseResponse(line)
	if err != nil {
		return &MalformedResponseError{Line: line}
	}
	if resp.Code != 281 {
		return &AuthenticationFailed{Code: resp.Code, Message: resp.Message}
	}
	return nil
}

// Authenticate performs AUTHINFO USER/PASS under the command lock (as a
// single multi-step exchange) and, on success, stores the credentials so
// they are replayed automatically after every future reconnect.
func (c *Connection) Authenticate(ctx context.Context, user, pass string) error {
	c.lock()
	defer c.unlock()

	if err := c.ensureConnected(ctx); err != nil {
		return err
	}

	if err := authenticateOn(c.framer, user, pass); err != nil {
		if _, ok := err.(*ConnectionError); ok {
			c.scheduleReconnectLocked()
		}
		return err
	}

	c.creds = &credentials{user: user, pass: pass}
	return nil
}

// Article issues an already-formatted ARTICLE command (e.g. "ARTICLE 1" or
// "ARTICLE <msgid>") and interprets the standard response codes: 220 is
// success, 430 is ArticleNotFoundError, anything else is a ProtocolError.
func (c *Connection) Article(ctx context.Context, cmdLine string) (ArticleRecord, error) {
	resp, lines, err := c.commandMultiLine(ctx, cmdLine)
	if err != nil {
		return ArticleRecord{}, err
	}
	switch resp.Code {
	case 220:
		ar := wire.ParseArticleResponseLine(resp.Message)
		return ArticleRecord{Code: resp.Code, Message: resp.Message, Number: ar.Number, MessageID: ar.MessageID, Lines: lines}, nil
	case 430:
		return ArticleRecord{}, &ArticleNotFoundError{Code: resp.Code, Message: resp.Message}
	default:
		return ArticleRecord{}, &ProtocolError{Op: cmdLine, Code: resp.Code, Message: resp.Message}
	}
}

// Head issues an already-formatted HEAD command. 221 is success, anything
// else is a ProtocolError.
func (c *Connection) Head(ctx context.Context, cmdLine string) (ArticleRecord, error) {
	resp, lines, err := c.commandMultiLine(ctx, cmdLine)
	if err != nil {
		return ArticleRecord{}, err
	}
	if resp.Code != 221 {
		return ArticleRecord{}, &ProtocolError{Op: cmdLine, Code: resp.Code, Message: resp.Message}
	}
	ar := wire.ParseArticleResponseLine(resp.Message)
	return ArticleRecord{Code: resp.Code, Message: resp.Message, Number: ar.Number, MessageID: ar.MessageID, Lines: lines}, nil
}

// Body issues an already-formatted BODY command as a plain (non-yEnc)
// multi-line fetch. 222 is success, anything else is a ProtocolError.
func (c *Connection) Body(ctx context.Context, cmdLine string) (ArticleRecord, error) {
	resp, lines, err := c.commandMultiLine(ctx, cmdLine)
	if err != nil {
		return ArticleRecord{}, err
	}
	if resp.Code != 222 {
		return ArticleRecord{}, &ProtocolError{Op: cmdLine, Code: resp.Code, Message: resp.Message}
	}
	ar := wire.ParseArticleResponseLine(resp.Message)
	return ArticleRecord{Code: resp.Code, Message: resp.Message, Number: ar.Number, MessageID: ar.MessageID, Lines: lines}, nil
}

// Stat issues an already-formatted STAT command. 223 maps to Found, 430/423
// to NotFound; any other code is a ProtocolError, since those are genuinely
// unexpected rather than "not found".
func (c *Connection) Stat(ctx context.Context, cmdLine string) (StatResult, error) {
	resp, err := c.command(ctx, cmdLine)
	if err != nil {
		return StatResult{}, err
	}
	switch resp.Code {
	case 223:
		ar := wire.ParseArticleResponseLine(resp.Message)
		return StatResult{Found: &StatFound{Number: ar.Number, MessageID: ar.MessageID}}, nil
	case 430, 423:
		return StatResult{NotFound: &StatNotFound{Code: resp.Code, Message: resp.Message}}, nil
	default:
		return StatResult{}, &ProtocolError{Op: cmdLine, Code: resp.Code, Message: resp.Message}
	}
}

// Group issues an already-formatted GROUP command. 211 is success, anything
// else is a ProtocolError.
func (c *Connection) Group(ctx context.Context, cmdLine string) (GroupRecord, error) {
	resp, err := c.command(ctx, cmdLine)
	if err != nil {
		return GroupRecord{}, err
	}
	if resp.Code != 211 {
		return GroupRecord{}, &ProtocolError{Op: cmdLine, Code: resp.Code, Message: resp.Message}
	}
	gr, err := wire.ParseGroupResponseLine(resp.Message)
	if err != nil {
		return GroupRecord{}, &MalformedResponseError{Line: resp.Message}
	}
	return GroupRecord{Code: resp.Code, Message: resp.Message, Count: gr.Count, Low: gr.Low, High: gr.High, Name: gr.Name}, nil
}

// ListGroup issues an already-formatted LISTGROUP command. 211 succeeds with
// a body of article numbers; anything else is a ProtocolError.
func (c *Connection) ListGroup(ctx context.Context, cmdLine string) (ListGroupRecord, error) {
	resp, lines, err := c.commandMultiLine(ctx, cmdLine)
	if err != nil {
		return ListGroupRecord{}, err
	}
	if resp.Code != 211 {
		return ListGroupRecord{}, &ProtocolError{Op: cmdLine, Code: resp.Code, Message: resp.Message}
	}
	gr, err := wire.ParseGroupResponseLine(resp.Message)
	if err != nil {
		return ListGroupRecord{}, &MalformedResponseError{Line: resp.Message}
	}

	articles := make([]int64, 0, len(lines))
	for _, l := range lines {
		var n int64
		if _, scanErr := fmt.Sscanf(l, "%d", &n); scanErr == nil {
			articles = append(articles, n)
		}
	}

	return ListGroupRecord{
		GroupRecord: GroupRecord{Code: resp.Code, Message: resp.Message, Count: gr.Count, Low: gr.Low, High: gr.High, Name: gr.Name},
		Articles:    articles,
	}, nil
}

// Post performs the two-phase POST exchange: send "POST", require 340, write
// the body lines followed by a terminating ".", then read the final status
// (expects 240).
func (c *Connection) Post(ctx context.Context, lines []string) (Response, error) {
	resp, err := c.twoPhaseSubmit(ctx, "POST", 340, 240, lines)
	return fromWireResponse(resp), err
}

// Ihave performs the two-phase IHAVE exchange: send "IHAVE <msgid>", require
// 335, write the body followed by a terminating ".", then read the final
// status (expects 235).
func (c *Connection) Ihave(ctx context.Context, msgID string, lines []string) (Response, error) {
	resp, err := c.twoPhaseSubmit(ctx, "IHAVE "+msgID, 335, 235, lines)
	return fromWireResponse(resp), err
}

func (c *Connection) twoPhaseSubmit(ctx context.Context, cmdLine string, wantCode, finalCode int, lines []string) (wire.Response, error) {
	c.lock()
	defer c.unlock()

	if err := c.ensureConnected(ctx); err != nil {
		return wire.Response{}, err
	}

	resp, err := c.exchangeLocked(cmdLine)
	if err != nil {
		return wire.Response{}, err
	}
	if resp.Code != wantCode {
		return wire.Response{}, &ProtocolError{Op: cmdLine, Code: resp.Code, Message: resp.Message}
	}

	for _, line := range lines {
		if err := c.framer.WriteLine(stuffIfNeeded(line)); err != nil {
			c.scheduleReconnectLocked()
			return wire.Response{}, &ConnectionError{Op: cmdLine, Err: err}
		}
	}
	if err := c.framer.WriteLine("."); err != nil {
		c.scheduleReconnectLocked()
		return wire.Response{}, &ConnectionError{Op: cmdLine, Err: err}
	}

	status, err := c.framer.ReadLine()
	if err != nil {
		c.scheduleReconnectLocked()
		return wire.Response{}, &ConnectionError{Op: cmdLine, Err: err}
	}
	final, err := wire.ParseResponse(status)
	if err != nil {
		return wire.Response{}, &MalformedResponseError{Line: status}
	}
	if final.Code != finalCode {
		return final, &ProtocolError{Op: cmdLine, Code: final.Code, Message: final.Message}
	}
	return final, nil
}

// stuffIfNeeded dot-stuffs a line that begins with "." before it goes out on
// the wire, the inverse of wire.Unstuff applied on read.
func stuffIfNeeded(line string) string {
	if len(line) > 0 && line[0] == '.' {
		return "." + line
	}
	return line
}

// Date issues the DATE command, used by the pool's keepalive probe.
func (c *Connection) Date(ctx context.Context) (Response, error) {
	resp, err := c.command(ctx, "DATE")
	return fromWireResponse(resp), err
}

// Quit issues the QUIT command.
func (c *Connection) Quit(ctx context.Context) (Response, error) {
	resp, err := c.command(ctx, "QUIT")
	return fromWireResponse(resp), err
}

// fromWireResponse converts an internal wire.Response to the public Response
// type so callers never need to import internal/wire to spell a return type.
func fromWireResponse(r wire.Response) Response {
	return Response{Code: r.Code, Message: r.Message}
}

// FetchYencBody issues an already-formatted BODY command expected to carry a
// yEnc-encoded article, requires 222, and drives the streaming yEnc body
// pipeline over the raw socket: it returns the parsed headers and a
// BinaryBody the caller reads cooperatively. The command lock transfers to
// the pipeline for the body's lifetime (see RawGuard) and is released by a
// background goroutine once the decode pipeline finishes: without a
// reconnect when the body was decoded through the article terminator, with
// one when the decode failed or was cut short by BinaryBody.Close.
func (c *Connection) FetchYencBody(ctx context.Context, cmdLine string) (YencHeaders, *BinaryBody, error) {
	resp, guard, err := c.commandRaw(ctx, cmdLine)
	if err != nil {
		return YencHeaders{}, nil, err
	}
	if resp.Code != 222 {
		guard.ReleaseAndReconnect()
		return YencHeaders{}, nil, &ProtocolError{Op: cmdLine, Code: resp.Code, Message: resp.Message}
	}

	h, body, done, err := yenc.FetchBody(guard.Framer())
	if err != nil {
		guard.ReleaseAndReconnect()
		return YencHeaders{}, nil, err
	}

	nntplog.DebugCtx(ctx, "yenc body fetch started",
		nntplog.ConnID(c.ID), nntplog.YencName(h.Name), nntplog.Size(h.Size),
		"size_human", bytesize.ByteSize(h.Size).String())

	bb := &BinaryBody{body: body, done: done, guard: guard}
	go bb.awaitDecode()

	return fromYencHeaders(h), bb, nil
}

// FetchYencHeaders issues an already-formatted BODY command, parses only the
// yEnc preamble (no decoded bytes), and immediately schedules a reconnect:
// the body was left unread on the wire, so the socket cannot be reused
// as-is. Useful for callers that only need size/name metadata.
func (c *Connection) FetchYencHeaders(ctx context.Context, cmdLine string) (YencHeaders, error) {
	resp, guard, err := c.commandRaw(ctx, cmdLine)
	if err != nil {
		return YencHeaders{}, err
	}
	if resp.Code != 222 {
		guard.ReleaseAndReconnect()
		return YencHeaders{}, &ProtocolError{Op: cmdLine, Code: resp.Code, Message: resp.Message}
	}

	h, err := yenc.FetchHeadersOnly(guard.Framer())
	guard.ReleaseAndReconnect()
	if err != nil {
		return YencHeaders{}, err
	}
	return fromYencHeaders(h), nil
}

func fromYencHeaders(h yenc.Headers) YencHeaders {
	return YencHeaders{
		Line:      h.Line,
		Size:      h.Size,
		Name:      h.Name,
		Part:      h.Part,
		Total:     h.Total,
		PartBegin: h.PartBegin,
		PartEnd:   h.PartEnd,
	}
}

// BinaryBody is the byte stream half of a yEnc Body event: the caller reads
// decoded bytes from it at its own pace via io.Reader, and must call Close
// when done (whether or not it read to EOF). Reading to EOF and then calling
// Close cleanly releases the connection's command lock with no reconnect;
// closing early, or a decode failure, schedules one instead.
type BinaryBody struct {
	body  io.ReadCloser
	done  <-chan error
	guard *RawGuard

	closeOnce sync.Once
}

// Read implements io.Reader, delegating to the underlying pipe.
func (b *BinaryBody) Read(p []byte) (int, error) {
	return b.body.Read(p)
}

// Close closes the decoded byte stream. It does not release the command
// lock itself; awaitDecode does that once the pipeline finishes. A pipeline
// that still has decoded bytes to write when Close is called fails on that
// write, so the lock is then released with a reconnect.
func (b *BinaryBody) Close() error {
	var err error
	b.closeOnce.Do(func() {
		err = b.body.Close()
	})
	return err
}

// awaitDecode waits for the pipeline goroutine to finish and releases the
// command lock accordingly. It runs for the lifetime of every FetchYencBody
// call, regardless of whether the caller reads the body to completion,
// because that is the only point at which the clean-vs-dirty outcome of the
// decode is actually known.
func (b *BinaryBody) awaitDecode() {
	err := <-b.done
	if err != nil {
		b.guard.ReleaseAndReconnect()
	} else {
		b.guard.ReleaseClean()
	}
}
