package nntppool

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"
	"golang.org/x/sync/errgroup"

	nntplog "github.com/binarynews/nntpclient/internal/logger"
	"github.com/binarynews/nntpclient/nntp"
)

// Pool multiplexes many concurrent callers over a bounded number of
// connections to a single NNTP server, with priority-ordered fair queuing,
// idle keepalive, automatic sleep after inactivity, and retry-once on a
// connection-level failure.
type Pool struct {
	config Config

	mu           sync.Mutex
	idle         []*nntp.Connection
	waiters      waiterQueue
	waiterSeq    uint64
	closed       bool
	sleeping     bool
	lastActivity time.Time

	keepaliveStop chan struct{}
}

// Connect builds MaxConnections connections concurrently and starts the
// pool in an awake state with a running keepalive loop.
func Connect(ctx context.Context, cfg Config) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pool{config: cfg, lastActivity: time.Now()}
	conns, err := p.buildConnections(ctx, cfg.MaxConnections)
	if err != nil {
		return nil, err
	}
	p.idle = conns
	p.startKeepalive()
	return p, nil
}

// buildConnections opens n connections concurrently via errgroup, applying
// stored credentials to each, and rolls back (closing whatever succeeded)
// if any one of them fails.
func (p *Pool) buildConnections(ctx context.Context, n int) ([]*nntp.Connection, error) {
	conns := make([]*nntp.Connection, n)
	g, gctx := errgroup.WithContext(ctx)

	for i := range n {
		g.Go(func() error {
			conn, err := nntp.Open(gctx, p.config.Host, p.config.Port, p.config.UseTLS)
			if err != nil {
				return &ConnectError{Index: i, Err: err}
			}
			if p.config.Username != "" {
				if err := conn.Authenticate(gctx, p.config.Username, p.config.Password); err != nil {
					_ = conn.Close()
					return &ConnectError{Index: i, Err: err}
				}
			}
			conns[i] = conn
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, c := range conns {
			if c != nil {
				_ = c.Close()
			}
		}
		return nil, err
	}
	return conns, nil
}

// WithClient leases a connection, runs fn against a Client wrapping it, and
// returns it to the pool. A ConnectionError from fn schedules a reconnect
// on the failed connection and retries the block once on a freshly
// acquired connection (possibly the same one, once it has healed); any
// other error propagates without retry.
func (p *Pool) WithClient(ctx context.Context, priority int, fn func(*nntp.Client) error) error {
	p.mu.Lock()
	p.lastActivity = time.Now()
	sleeping := p.sleeping
	p.mu.Unlock()

	if sleeping {
		if err := p.Wake(ctx); err != nil {
			return err
		}
	}

	conn, err := p.acquire(ctx, priority)
	if err != nil {
		return err
	}

	runErr := fn(nntp.NewClient(conn))

	var connErr *nntp.ConnectionError
	if errors.As(runErr, &connErr) {
		conn.ScheduleReconnect()
		p.release(conn)

		conn, err = p.acquire(ctx, priority)
		if err != nil {
			return err
		}
		runErr = fn(nntp.NewClient(conn))
		p.release(conn)
		return runErr
	}

	p.release(conn)
	return runErr
}

// Article leases a connection at priority and issues ARTICLE, wrapping
// WithClient so callers that don't need the connection for anything else
// never have to write the lease/run/release boilerplate themselves.
func (p *Pool) Article(ctx context.Context, priority int, ref string) (nntp.ArticleRecord, error) {
	var out nntp.ArticleRecord
	err := p.WithClient(ctx, priority, func(cl *nntp.Client) error {
		var err error
		out, err = cl.Article(ctx, ref)
		return err
	})
	return out, err
}

// Head leases a connection at priority and issues HEAD.
func (p *Pool) Head(ctx context.Context, priority int, ref string) (nntp.ArticleRecord, error) {
	var out nntp.ArticleRecord
	err := p.WithClient(ctx, priority, func(cl *nntp.Client) error {
		var err error
		out, err = cl.Head(ctx, ref)
		return err
	})
	return out, err
}

// Body leases a connection at priority and issues BODY for a plain
// (non-yEnc) article. For binary bodies, acquire a *nntp.Client directly via
// WithClient and call BinaryBody/BinaryHeaders instead: the decoded stream
// outlives a single WithClient call, so it does not fit this delegate shape.
func (p *Pool) Body(ctx context.Context, priority int, ref string) (nntp.ArticleRecord, error) {
	var out nntp.ArticleRecord
	err := p.WithClient(ctx, priority, func(cl *nntp.Client) error {
		var err error
		out, err = cl.Body(ctx, ref)
		return err
	})
	return out, err
}

// Stat leases a connection at priority and issues STAT.
func (p *Pool) Stat(ctx context.Context, priority int, ref string) (nntp.StatResult, error) {
	var out nntp.StatResult
	err := p.WithClient(ctx, priority, func(cl *nntp.Client) error {
		var err error
		out, err = cl.Stat(ctx, ref)
		return err
	})
	return out, err
}

// Group leases a connection at priority and issues GROUP.
func (p *Pool) Group(ctx context.Context, priority int, name string) (nntp.GroupRecord, error) {
	var out nntp.GroupRecord
	err := p.WithClient(ctx, priority, func(cl *nntp.Client) error {
		var err error
		out, err = cl.Group(ctx, name)
		return err
	})
	return out, err
}

// ListGroup leases a connection at priority and issues LISTGROUP.
func (p *Pool) ListGroup(ctx context.Context, priority int, name string) (nntp.ListGroupRecord, error) {
	var out nntp.ListGroupRecord
	err := p.WithClient(ctx, priority, func(cl *nntp.Client) error {
		var err error
		out, err = cl.ListGroup(ctx, name)
		return err
	})
	return out, err
}

// Post leases a connection at priority and submits an article via POST.
func (p *Pool) Post(ctx context.Context, priority int, lines []string) (nntp.Response, error) {
	var out nntp.Response
	err := p.WithClient(ctx, priority, func(cl *nntp.Client) error {
		var err error
		out, err = cl.Post(ctx, lines)
		return err
	})
	return out, err
}

// Ihave leases a connection at priority and offers an article via IHAVE.
func (p *Pool) Ihave(ctx context.Context, priority int, msgID string, lines []string) (nntp.Response, error) {
	var out nntp.Response
	err := p.WithClient(ctx, priority, func(cl *nntp.Client) error {
		var err error
		out, err = cl.Ihave(ctx, msgID, lines)
		return err
	})
	return out, err
}

// Date leases a connection at priority and issues DATE.
func (p *Pool) Date(ctx context.Context, priority int) (nntp.Response, error) {
	var out nntp.Response
	err := p.WithClient(ctx, priority, func(cl *nntp.Client) error {
		var err error
		out, err = cl.Date(ctx)
		return err
	})
	return out, err
}

// Authenticate leases a connection at priority and runs AUTHINFO USER/PASS
// against it. This is distinct from the credentials supplied in Config,
// which every pool connection authenticates with on open and reconnect;
// this delegate is for ad hoc re-authentication as a different user on one
// leased connection.
func (p *Pool) Authenticate(ctx context.Context, priority int, user, pass string) error {
	return p.WithClient(ctx, priority, func(cl *nntp.Client) error {
		return cl.Authenticate(ctx, user, pass)
	})
}

// Quit has no pool-level delegate: it tears down the underlying connection,
// and WithClient returns that connection to the idle set as soon as the
// leased call finishes. A leased QUIT would hand back a dead connection for
// the next acquirer to fail against. Close the whole Pool to shut every
// connection down instead.

// acquire hands back an idle connection immediately, or enqueues a waiter
// ordered by (priority desc, sequence asc) and blocks until dispatch,
// cancellation, or pool close.
func (p *Pool) acquire(ctx context.Context, priority int) (*nntp.Connection, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, &ErrPoolClosed{}
	}
	if n := len(p.idle); n > 0 {
		conn := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return conn, nil
	}

	p.waiterSeq++
	w := &waiter{priority: priority, sequence: p.waiterSeq, completion: make(chan *nntp.Connection, 1)}
	heap.Push(&p.waiters, w)
	p.mu.Unlock()

	select {
	case conn := <-w.completion:
		if conn == nil {
			return nil, &ErrPoolClosed{}
		}
		return conn, nil
	case <-ctx.Done():
		p.mu.Lock()
		p.waiters.remove(w)
		p.mu.Unlock()

		// The dispatcher may have completed the waiter in the race window
		// between ctx firing and the lock above; if so the connection is
		// ours and must go back through the normal release path rather
		// than being dropped.
		select {
		case conn := <-w.completion:
			if conn != nil {
				p.release(conn)
			}
		default:
		}
		return nil, ctx.Err()
	}
}

// release dispatches conn to the highest-priority waiting caller, or parks
// it in the idle set if none are waiting. A pool closed since conn was
// leased closes it instead of parking it.
func (p *Pool) release(conn *nntp.Connection) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		_ = conn.Close()
		return
	}

	for p.waiters.Len() > 0 {
		w := heap.Pop(&p.waiters).(*waiter)
		select {
		case w.completion <- conn:
			return
		default:
			// Already completed via the cancellation race in acquire;
			// move on to the next waiter.
			continue
		}
	}

	p.idle = append(p.idle, conn)
}

// Sleep idempotently stops the keepalive loop and closes every currently
// idle connection. Leased connections are unaffected: when returned while
// the pool sleeps, dispatch still parks them in idle (or hands them to a
// waiter), and the next Wake closes them along with any other stale idle
// connection.
func (p *Pool) Sleep() {
	p.mu.Lock()
	if p.closed || p.sleeping {
		p.mu.Unlock()
		return
	}
	p.sleeping = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	p.stopKeepalive()
	for _, c := range idle {
		_ = c.Close()
	}
}

// Wake idempotently rebuilds max_connections fresh connections, closing
// any stale idle connections first, and restarts the keepalive loop.
func (p *Pool) Wake(ctx context.Context) error {
	p.mu.Lock()
	if p.closed || !p.sleeping {
		p.mu.Unlock()
		return nil
	}
	stale := p.idle
	p.idle = nil
	p.mu.Unlock()

	for _, c := range stale {
		_ = c.Close()
	}

	conns, err := p.buildConnections(ctx, p.config.MaxConnections)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.idle = conns
	p.sleeping = false
	p.lastActivity = time.Now()
	p.mu.Unlock()

	p.startKeepalive()
	return nil
}

// Close cancels the keepalive loop, fails every queued waiter with
// ErrPoolClosed, and closes all idle connections. Connections currently
// leased out are closed as they are returned.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	waiters := []*waiter(p.waiters)
	p.waiters = nil
	p.mu.Unlock()

	p.stopKeepalive()

	for _, w := range waiters {
		select {
		case w.completion <- nil:
		default:
		}
	}
	for _, c := range idle {
		_ = c.Close()
	}
}

func (p *Pool) startKeepalive() {
	if p.config.KeepaliveIntervalMs <= 0 {
		return
	}
	p.mu.Lock()
	if p.keepaliveStop != nil {
		p.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	p.keepaliveStop = stop
	p.mu.Unlock()

	go p.runKeepalive(stop)
}

func (p *Pool) stopKeepalive() {
	p.mu.Lock()
	stop := p.keepaliveStop
	p.keepaliveStop = nil
	p.mu.Unlock()

	if stop != nil {
		close(stop)
	}
}

func (p *Pool) runKeepalive(stop chan struct{}) {
	ticker := time.NewTicker(time.Duration(p.config.KeepaliveIntervalMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			var catcher panics.Catcher
			catcher.Try(p.keepaliveTick)
			if r := catcher.Recovered(); r != nil {
				nntplog.Error("keepalive tick panicked", nntplog.Err(r.AsError()))
			}
		}
	}
}

// keepaliveTick either puts the pool to sleep (idle grace period elapsed)
// or probes every currently idle connection with DATE, scheduling a
// reconnect on any that fails, then returns each to the pool.
func (p *Pool) keepaliveTick() {
	p.mu.Lock()
	if p.closed || p.sleeping {
		p.mu.Unlock()
		return
	}
	if p.config.IdleGracePeriodMs > 0 && time.Since(p.lastActivity) > time.Duration(p.config.IdleGracePeriodMs)*time.Millisecond {
		p.mu.Unlock()
		p.Sleep()
		return
	}
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	for _, c := range idle {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_, err := c.Date(ctx)
		cancel()
		if err != nil {
			var connErr *nntp.ConnectionError
			if errors.As(err, &connErr) {
				c.ScheduleReconnect()
			} else {
				nntplog.Warn("keepalive probe failed", nntplog.ConnID(c.ID), nntplog.Err(err))
			}
		}
		p.release(c)
	}
}
