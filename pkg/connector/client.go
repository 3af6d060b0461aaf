package connector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/jmerrifield20/neosconnect/internal/metrics"
)

// Client is the connector entry point. It is safe for concurrent use.
type Client struct {
	base    *url.URL
	routes  Routes
	tokens  TokenProvider
	encoder ParamEncoder
	logger  *zap.Logger
	exec    *executor

	httpClient *http.Client
	jar        http.CookieJar
	limiter    *rate.Limiter
	resources  *resourceCache
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client. Its Jar, if any, becomes the
// client's cookie jar; cookies are attached per request according to each
// operation's credential mode.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("nil http client")
		}
		c.httpClient = hc
		return nil
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", d)
		}
		c.httpClient = &http.Client{Timeout: d}
		return nil
	}
}

// WithCookieJar replaces the session cookie jar.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) error {
		c.jar = jar
		return nil
	}
}

// WithRoutes replaces the whole route table.
func WithRoutes(r Routes) Option {
	return func(c *Client) error {
		c.routes = r
		return nil
	}
}

// WithRoute overrides a single route by its dotted name.
func WithRoute(name, address string) Option {
	return func(c *Client) error {
		return c.routes.Set(name, address)
	}
}

// WithToken starts the session with a known anti-forgery token, for example
// one embedded in the page the editing interface was served from.
func WithToken(token string) Option {
	return func(c *Client) error {
		c.tokens = NewSessionToken(token)
		return nil
	}
}

// WithTokenProvider replaces the default session token holder.
func WithTokenProvider(p TokenProvider) Option {
	return func(c *Client) error {
		if p == nil {
			return errors.New("nil token provider")
		}
		c.tokens = p
		return nil
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) error {
		if l != nil {
			c.logger = l
		}
		return nil
	}
}

// WithRateLimit paces outgoing requests to rps with the given burst. Requests
// wait for their turn; nothing is dropped or retried.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) error {
		if rps <= 0 {
			c.limiter = nil
			return nil
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		return nil
	}
}

// WithResourceCache keeps GetJSONResource answers for ttl. Node type schemas
// and translations rarely change during a session.
func WithResourceCache(ttl time.Duration) Option {
	return func(c *Client) error {
		if ttl <= 0 {
			c.resources = nil
			return nil
		}
		c.resources = newResourceCache(ttl)
		return nil
	}
}

// WithParamEncoder replaces the nested parameter encoding.
func WithParamEncoder(enc ParamEncoder) Option {
	return func(c *Client) error {
		if enc == nil {
			return errors.New("nil param encoder")
		}
		c.encoder = enc
		return nil
	}
}

// New creates a Client for the backend at baseURL. The route table is
// validated once here and never changes afterwards.
//
//	c, err := connector.New("https://neos.example.com",
//	    connector.WithLogger(logger),
//	    connector.WithRoute("core.service.nodes", "/custom/nodes"),
//	)
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}

	c := &Client{
		base:       base,
		routes:     DefaultRoutes(),
		encoder:    BracketEncoder{},
		logger:     zap.NewNop(),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	if err := c.routes.Validate(); err != nil {
		return nil, fmt.Errorf("invalid route table: %w", err)
	}
	if c.tokens == nil {
		c.tokens = NewSessionToken("")
	}

	if c.jar == nil {
		c.jar = c.httpClient.Jar
	}
	if c.jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		c.jar = jar
	}
	// The executor applies cookies itself; a jar on the transport client
	// would ignore the credential mode.
	hc := *c.httpClient
	hc.Jar = nil

	c.exec = &executor{
		base:       base,
		httpClient: &hc,
		jar:        c.jar,
		limiter:    c.limiter,
		logger:     c.logger,
	}
	return c, nil
}

// MustNew is like New but panics on error. Useful in tests and program init.
func MustNew(baseURL string, opts ...Option) *Client {
	c, err := New(baseURL, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Routes returns a copy of the validated route table.
func (c *Client) Routes() Routes { return c.routes }

// Tokens returns the token provider in use.
func (c *Client) Tokens() TokenProvider { return c.tokens }

// Execute runs a caller-built request through the executor. The response is
// returned whatever its status code.
func (c *Client) Execute(ctx context.Context, req *Request) (*Response, error) {
	return c.exec.execute(ctx, req)
}

// withToken builds a request through the token provider.
func (c *Client) withToken(ctx context.Context, build func(token string) (*Request, error)) (*Request, error) {
	return c.tokens.WithToken(ctx, build)
}

// observe records the outcome of an operation. Call it deferred with a
// pointer to the operation's named error result.
func (c *Client) observe(op string, start time.Time, errp *error) {
	err := *errp
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
	}
	metrics.ObserveOperation(op, outcome, time.Since(start))
	if err == nil {
		return
	}

	var missing *FieldMissingError
	var decode *DecodeError
	switch {
	case errors.As(err, &missing):
		metrics.RecordDecodeFailure(op, "field_missing")
		c.logger.Warn("backend fragment contract violated",
			zap.String("operation", op),
			zap.String("marker", missing.Marker),
			zap.Int("record", missing.Index),
		)
	case errors.As(err, &decode):
		metrics.RecordDecodeFailure(op, "decode")
	}
}
