// Package friendsync keeps a user's friend list in sync with the FriendMap
// backend. It owns the list state, guarantees at most one fetch in flight,
// and exposes the query-service operations the presentation layer needs.
package friendsync

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyIdentity indicates Refresh was called without a user identity.
	ErrEmptyIdentity = errors.New("user identity must not be empty")
	// ErrSuperseded indicates a refresh was replaced by a newer one before it
	// could commit; only the most recent caller observes a result.
	ErrSuperseded = errors.New("refresh superseded by a newer request")
	// ErrStaleRow indicates a name lookup completed for an entry that is no
	// longer on the friend list.
	ErrStaleRow = errors.New("friend no longer present")
	// ErrResolverUnavailable indicates no name resolver is configured.
	ErrResolverUnavailable = errors.New("name resolver unavailable")
)

// TransportError wraps connection-level failures (dial, timeout, reset).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServerError reports a non-success HTTP status from the backend.
type ServerError struct {
	Status int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server returned status %d", e.Status)
}

// DecodeError reports a malformed response body or a missing required field.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
