package nntp

import (
	"fmt"

	"github.com/binarynews/nntpclient/internal/yenc"
)

// ConnectionError indicates the underlying socket failed: a dial failure,
// an unexpected close, a write failure, or a missing welcome line (a
// welcome with a code other than 200/201 is a ProtocolError). It is the
// one error class the pool retries (see nntppool.WithClient).
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("nntp: connection error during %s", e.Op)
	}
	return fmt.Sprintf("nntp: connection error during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ProtocolError indicates the server returned a status code the caller did
// not ask for. Non-retriable. Lines that cannot be parsed are reported as
// MalformedResponseError instead.
type ProtocolError struct {
	Op      string
	Code    int
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("nntp: protocol error during %s: %d %s", e.Op, e.Code, e.Message)
}

// MalformedResponseError indicates a status line could not be parsed at all
// (first three bytes were not a decimal code), or a GROUP/LISTGROUP
// response message lacked its numeric count/low/high and name fields.
type MalformedResponseError struct {
	Line string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("nntp: malformed response line %q", e.Line)
}

// AuthenticationFailed indicates AUTHINFO USER/PASS was rejected.
type AuthenticationFailed struct {
	Code    int
	Message string
}

func (e *AuthenticationFailed) Error() string {
	return fmt.Sprintf("nntp: authentication failed: %d %s", e.Code, e.Message)
}

// ArticleNotFoundError indicates a 430 response to an ARTICLE command. HEAD
// and BODY report 430/423 as a ProtocolError, and ARTICLE reports 423 as a
// ProtocolError. For STAT, 430/423 are instead represented as data
// (NotFound).
type ArticleNotFoundError struct {
	Code    int
	Message string
}

func (e *ArticleNotFoundError) Error() string {
	return fmt.Sprintf("nntp: article not found: %d %s", e.Code, e.Message)
}

// YencMalformedError and CrcMismatchError are detected inside the yEnc body
// pipeline and surfaced here as type aliases so callers of this package
// never need to import internal/yenc to use errors.As against them.
type YencMalformedError = yenc.MalformedError
type CrcMismatchError = yenc.CrcMismatchError
