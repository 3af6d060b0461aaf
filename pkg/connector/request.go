package connector

import (
	"bytes"
	"net/http"
	"sync/atomic"
)

// CredentialMode decides whether session cookies travel with a request.
type CredentialMode int

const (
	// CredentialInclude sends and stores cookies for every target.
	CredentialInclude CredentialMode = iota
	// CredentialSameOrigin sends and stores cookies only when the target has
	// the base URL's scheme and host.
	CredentialSameOrigin
	// CredentialOmit never sends or stores cookies.
	CredentialOmit
)

func (m CredentialMode) String() string {
	switch m {
	case CredentialInclude:
		return "include"
	case CredentialSameOrigin:
		return "same-origin"
	case CredentialOmit:
		return "omit"
	default:
		return "unknown"
	}
}

// Request describes one backend call. It is immutable once built and can be
// executed exactly once.
type Request struct {
	op          string
	method      string
	target      string
	credentials CredentialMode
	header      http.Header
	body        []byte

	consumed atomic.Bool
}

// NewRequest builds a request descriptor. target may be absolute or relative
// to the client's base URL. header and body are copied.
func NewRequest(op, method, target string, credentials CredentialMode, header http.Header, body []byte) *Request {
	r := &Request{
		op:          op,
		method:      method,
		target:      target,
		credentials: credentials,
		header:      header.Clone(),
	}
	if r.header == nil {
		r.header = http.Header{}
	}
	if len(body) > 0 {
		r.body = bytes.Clone(body)
	}
	return r
}

// Op returns the operation name the request belongs to.
func (r *Request) Op() string { return r.op }

// Method returns the HTTP method.
func (r *Request) Method() string { return r.method }

// Target returns the request target as given to NewRequest.
func (r *Request) Target() string { return r.target }

// Credentials returns the credential mode.
func (r *Request) Credentials() CredentialMode { return r.credentials }

// Header returns a copy of the request headers.
func (r *Request) Header() http.Header { return r.header.Clone() }

// Body returns a copy of the request body.
func (r *Request) Body() []byte { return bytes.Clone(r.body) }
