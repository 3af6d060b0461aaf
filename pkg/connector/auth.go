package connector

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/jmerrifield20/neosconnect/internal/metrics"
)

// OpLogin is the operation name of Login.
const OpLogin = "login"

// Login form fields of the username/password authentication provider.
const (
	LoginUsernameField = "__authentication[Neos][Flow][Security][Authentication][Token][UsernamePassword][username]"
	LoginPasswordField = "__authentication[Neos][Flow][Security][Authentication][Token][UsernamePassword][password]"
)

// Login authenticates with username and password and returns the session's
// first anti-forgery token. A refused login is an expected outcome: every
// failure, transport errors included, yields ("", false). On success the
// token provider receives the new token if it implements TokenSetter.
func (c *Client) Login(ctx context.Context, username, password string) (string, bool) {
	start := time.Now()
	token, err := c.login(ctx, username, password)
	if err != nil {
		c.logger.Debug("login failed", zap.String("username", username), zap.Error(err))
		metrics.ObserveOperation(OpLogin, metrics.OutcomeRejected, time.Since(start))
		return "", false
	}
	metrics.ObserveOperation(OpLogin, metrics.OutcomeSuccess, time.Since(start))

	if setter, ok := c.tokens.(TokenSetter); ok {
		setter.SetToken(token)
	}
	return token, true
}

func (c *Client) login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set(LoginUsernameField, username)
	form.Set(LoginPasswordField, password)
	h := http.Header{}
	h.Set("Content-Type", "application/x-www-form-urlencoded")
	h.Set("Accept", "application/json")

	resp, err := c.exec.execute(ctx, NewRequest(OpLogin, http.MethodPost, c.routes.Core.Login, CredentialSameOrigin, h, []byte(form.Encode())))
	if err != nil {
		return "", err
	}
	payload, err := decodeJSON[loginResponse](OpLogin, resp)
	if err != nil {
		return "", err
	}
	return payload.CSRFToken, nil
}

type loginResponse struct {
	CSRFToken string `json:"csrfToken"`
}

func (l *loginResponse) validate() error {
	if l.CSRFToken == "" {
		return errMissingCSRFToken
	}
	return nil
}

var errMissingCSRFToken = errors.New("login response carries no csrfToken")
