package nntp

import (
	"context"
)

// Client is a thin, typed wrapper over a Connection: it formats NNTP command
// strings from ordinary Go parameters (group names, article references,
// body lines) and delegates to the connection's already-parsed operations.
// It holds no state of its own beyond the Connection.
type Client struct {
	conn *Connection
}

// NewClient wraps an already-open Connection in a typed façade.
func NewClient(conn *Connection) *Client {
	return &Client{conn: conn}
}

// Conn returns the underlying Connection, for callers that need direct
// access (e.g. the pool's keepalive probe or reconnect scheduling).
func (cl *Client) Conn() *Connection {
	return cl.conn
}

// Article fetches a full article, identified by number (e.g. "102") or
// message-id (e.g. "<abc@example.com>").
func (cl *Client) Article(ctx context.Context, ref string) (ArticleRecord, error) {
	return cl.conn.Article(ctx, "ARTICLE "+ref)
}

// Head fetches only the headers of an article, identified by number or
// message-id.
func (cl *Client) Head(ctx context.Context, ref string) (ArticleRecord, error) {
	return cl.conn.Head(ctx, "HEAD "+ref)
}

// Body fetches only the body of a (non-binary) article, identified by
// number or message-id. For yEnc binary bodies, use BinaryBody instead: it
// streams rather than buffering the whole article.
func (cl *Client) Body(ctx context.Context, ref string) (ArticleRecord, error) {
	return cl.conn.Body(ctx, "BODY "+ref)
}

// Stat probes for an article's existence, identified by number or
// message-id, without transferring its body.
func (cl *Client) Stat(ctx context.Context, ref string) (StatResult, error) {
	return cl.conn.Stat(ctx, "STAT "+ref)
}

// Group selects a newsgroup, returning its article count and number range.
func (cl *Client) Group(ctx context.Context, name string) (GroupRecord, error) {
	return cl.conn.Group(ctx, "GROUP "+name)
}

// ListGroup selects a newsgroup (if name is non-empty) and returns the
// ordered list of article numbers it holds. An empty name re-lists the
// currently selected group.
func (cl *Client) ListGroup(ctx context.Context, name string) (ListGroupRecord, error) {
	cmd := "LISTGROUP"
	if name != "" {
		cmd = cmd + " " + name
	}
	return cl.conn.ListGroup(ctx, cmd)
}

// Post submits a new article. lines is the article's already-formatted
// headers and body, one NNTP line per entry; the terminating "." is added
// automatically.
func (cl *Client) Post(ctx context.Context, lines []string) (Response, error) {
	return cl.conn.Post(ctx, lines)
}

// Ihave offers an article by message-id, as used in peer-to-peer feeds.
func (cl *Client) Ihave(ctx context.Context, msgID string, lines []string) (Response, error) {
	return cl.conn.Ihave(ctx, msgID, lines)
}

// Date returns the server's current time, used by the pool as a cheap
// keepalive probe.
func (cl *Client) Date(ctx context.Context) (Response, error) {
	return cl.conn.Date(ctx)
}

// Quit closes the session gracefully at the protocol level; the caller is
// still responsible for closing the underlying Connection.
func (cl *Client) Quit(ctx context.Context) (Response, error) {
	return cl.conn.Quit(ctx)
}

// Authenticate performs AUTHINFO USER/PASS and, on success, stores the
// credentials on the Connection for replay across reconnects.
func (cl *Client) Authenticate(ctx context.Context, user, pass string) error {
	return cl.conn.Authenticate(ctx, user, pass)
}

// BinaryBody fetches a yEnc-encoded article body, identified by number or
// message-id, and returns its parsed headers plus a stream the caller reads
// at its own pace. The caller must read the stream to EOF or Close it;
// either way the connection recovers on its own (see Connection.FetchYencBody).
func (cl *Client) BinaryBody(ctx context.Context, ref string) (YencHeaders, *BinaryBody, error) {
	return cl.conn.FetchYencBody(ctx, "BODY "+ref)
}

// BinaryHeaders fetches only the yEnc preamble of an article's body; at most
// the first encoded line is read (and discarded), and nothing is decoded or
// streamed. The connection is left
// needing a reconnect, since the body was abandoned on the wire.
func (cl *Client) BinaryHeaders(ctx context.Context, ref string) (YencHeaders, error) {
	return cl.conn.FetchYencHeaders(ctx, "BODY "+ref)
}
