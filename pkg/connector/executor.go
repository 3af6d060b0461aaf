package connector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxResponseBody caps how much of a response body is read. Asset and node
// listings are rendered markup and can be large.
const maxResponseBody = 16 << 20

// Response is the transport-level result of an executed Request.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// executor performs exactly one round trip per Request. It never retries and
// never looks at the status code; that is left to the operations.
type executor struct {
	base       *url.URL
	httpClient *http.Client
	jar        http.CookieJar
	limiter    *rate.Limiter
	logger     *zap.Logger
}

func (e *executor) execute(ctx context.Context, req *Request) (*Response, error) {
	if !req.consumed.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%s: %w", req.op, ErrRequestConsumed)
	}

	target, err := e.resolve(req.target)
	if err != nil {
		return nil, &TransportError{Op: req.op, URL: req.target, Err: err}
	}
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Op: req.op, URL: target.String(), Err: err}
		}
	}

	var body io.Reader
	if len(req.body) > 0 {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target.String(), body)
	if err != nil {
		return nil, &TransportError{Op: req.op, URL: target.String(), Err: err}
	}
	for k, vs := range req.header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("X-Request-Id", requestID)

	sendCookies := e.cookiesAllowed(req.credentials, target)
	if sendCookies && e.jar != nil {
		for _, ck := range e.jar.Cookies(target) {
			httpReq.AddCookie(ck)
		}
	}

	start := time.Now()
	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		e.logger.Debug("backend request failed",
			zap.String("operation", req.op),
			zap.String("method", req.method),
			zap.String("url", target.String()),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return nil, &TransportError{Op: req.op, URL: target.String(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &TransportError{Op: req.op, URL: target.String(), Err: fmt.Errorf("read response: %w", err)}
	}
	if sendCookies && e.jar != nil {
		if cookies := resp.Cookies(); len(cookies) > 0 {
			e.jar.SetCookies(target, cookies)
		}
	}

	e.logger.Debug("backend request",
		zap.String("operation", req.op),
		zap.String("method", req.method),
		zap.String("url", target.String()),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("duration", time.Since(start)),
	)

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       respBody,
	}, nil
}

// resolve turns a route or resource address into an absolute URL.
func (e *executor) resolve(target string) (*url.URL, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse target: %w", err)
	}
	return e.base.ResolveReference(u), nil
}

func (e *executor) cookiesAllowed(mode CredentialMode, target *url.URL) bool {
	switch mode {
	case CredentialInclude:
		return true
	case CredentialSameOrigin:
		return target.Scheme == e.base.Scheme && target.Host == e.base.Host
	default:
		return false
	}
}
