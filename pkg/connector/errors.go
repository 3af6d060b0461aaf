package connector

import (
	"errors"
	"fmt"

	"github.com/jmerrifield20/neosconnect/pkg/fragment"
)

// ErrAuthenticationRequired is returned by token-protected operations when no
// anti-forgery token is known. No request is sent in that case.
var ErrAuthenticationRequired = errors.New("authentication required: no anti-forgery token available")

// ErrRequestConsumed is returned when a Request is executed a second time.
var ErrRequestConsumed = errors.New("request already executed")

// FieldMissingError reports a fragment that lacks a required structural
// marker. Index is the zero-based record index, or fragment.DocumentIndex for
// markers looked up at document level.
type FieldMissingError = fragment.FieldMissingError

// TransportError means the request never completed: connection failures,
// timeouts, cancelled contexts and unreadable response bodies.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: request to %s failed: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError means a structured payload could not be parsed or did not carry
// a required value. Body holds the raw response body.
type DecodeError struct {
	Op   string
	Body []byte
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decode response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// UnexpectedStatusError means the request completed with a status outside the
// operation's documented success and alternate outcomes.
type UnexpectedStatusError struct {
	Op         string
	StatusCode int
	Body       []byte
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("%s: unexpected HTTP status %d", e.Op, e.StatusCode)
}
