package logger

import "log/slog"

// Standard field keys for structured logging across the client and pool.
// Use these keys consistently across all log statements so lines are
// greppable and aggregatable regardless of which package emitted them.
const (
	// Connection identity
	KeyConnID = "conn_id" // connection identifier (uuid), stable across reconnects
	KeyHost   = "host"    // "host:port" of the upstream NNTP server

	// Protocol
	KeyCommand = "command" // NNTP command verb (GROUP, ARTICLE, AUTHINFO, ...)
	KeyCode    = "code"    // three-digit NNTP response code
	KeyMessage = "message" // response status text

	// yEnc
	KeyYencName = "yenc_name" // declared filename from =ybegin
	KeySize     = "size"      // declared or decoded byte size
	KeyPart     = "part"      // yEnc part number, when present

	// Pool
	KeyPriority   = "priority"   // waiter priority
	KeySequence   = "sequence"   // waiter FIFO sequence number
	KeyIdleCount  = "idle_count" // number of idle connections in the pool
	KeyWaitCount  = "wait_count" // number of queued waiters
	KeyAttempt    = "attempt"    // retry attempt number
	KeyMaxRetries = "max_retries"

	KeyDurationMs = "duration_ms"
	KeyError      = "error"
)

// ConnID returns a slog.Attr for the connection identifier.
func ConnID(id string) slog.Attr {
	return slog.String(KeyConnID, id)
}

// Host returns a slog.Attr for the "host:port" of the upstream server.
func Host(hostport string) slog.Attr {
	return slog.String(KeyHost, hostport)
}

// Command returns a slog.Attr for the NNTP command verb.
func Command(cmd string) slog.Attr {
	return slog.String(KeyCommand, cmd)
}

// Code returns a slog.Attr for a three-digit NNTP response code.
func Code(code int) slog.Attr {
	return slog.Int(KeyCode, code)
}

// Message returns a slog.Attr for a response status message.
func Message(msg string) slog.Attr {
	return slog.String(KeyMessage, msg)
}

// YencName returns a slog.Attr for the yEnc declared filename.
func YencName(name string) slog.Attr {
	return slog.String(KeyYencName, name)
}

// Size returns a slog.Attr for a byte size.
func Size(n int64) slog.Attr {
	return slog.Int64(KeySize, n)
}

// Part returns a slog.Attr for a yEnc part number.
func Part(n uint16) slog.Attr {
	return slog.Any(KeyPart, n)
}

// Priority returns a slog.Attr for a pool waiter's priority.
func Priority(p int32) slog.Attr {
	return slog.Int(KeyPriority, int(p))
}

// Sequence returns a slog.Attr for a pool waiter's FIFO sequence number.
func Sequence(seq uint64) slog.Attr {
	return slog.Uint64(KeySequence, seq)
}

// IdleCount returns a slog.Attr for the number of idle pooled connections.
func IdleCount(n int) slog.Attr {
	return slog.Int(KeyIdleCount, n)
}

// WaitCount returns a slog.Attr for the number of queued waiters.
func WaitCount(n int) slog.Attr {
	return slog.Int(KeyWaitCount, n)
}

// Attempt returns a slog.Attr for a retry attempt number.
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// DurationMs returns a slog.Attr for a duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error, or a zero Attr if err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
