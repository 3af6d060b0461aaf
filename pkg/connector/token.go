package connector

import (
	"context"
	"sync"
)

// TokenProvider hands the current anti-forgery token to a request builder.
//
// The token passed to build is the one the request is sent with; it is fixed
// at build time and never rechecked. Implementations that can reacquire an
// expired token may block on ctx before calling build. When no token is
// available they must return ErrAuthenticationRequired without calling build.
type TokenProvider interface {
	WithToken(ctx context.Context, build func(token string) (*Request, error)) (*Request, error)
}

// TokenSetter is implemented by providers that accept the token produced by
// a successful Login.
type TokenSetter interface {
	SetToken(token string)
}

// SessionToken is the default TokenProvider: a single-writer, multi-reader
// holder for the session's token.
type SessionToken struct {
	mu    sync.RWMutex
	token string
}

// NewSessionToken returns a provider holding initial. An empty initial token
// means the session is not authenticated yet.
func NewSessionToken(initial string) *SessionToken {
	return &SessionToken{token: initial}
}

// WithToken calls build with the current token. The read lock is held while
// build runs, so a concurrent SetToken cannot change the token mid-build.
func (s *SessionToken) WithToken(_ context.Context, build func(token string) (*Request, error)) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == "" {
		return nil, ErrAuthenticationRequired
	}
	return build(s.token)
}

// SetToken replaces the current token. An empty token logs the session out.
func (s *SessionToken) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Current returns the current token, or "" if none is set.
func (s *SessionToken) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}
