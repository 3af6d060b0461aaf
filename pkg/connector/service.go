package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	OpDataSource        = "dataSource"
	OpGetJSONResource   = "getJsonResource"
	OpSetUserPreference = "setUserPreference"
)

// DataSource fetches a data source for a select box. dataSourceURI, when set,
// replaces the default data source route. The answer is returned as-is.
func (c *Client) DataSource(ctx context.Context, identifier, dataSourceURI string, params map[string]any) (raw json.RawMessage, err error) {
	defer c.observe(OpDataSource, time.Now(), &err)

	target := dataSourceURI
	if target == "" {
		target = joinPath(c.routes.Core.Service.DataSource, identifier)
	}
	resp, err := c.getJSON(ctx, OpDataSource, urlWithParams(target, c.encoder.Encode(params)))
	if err != nil {
		return nil, err
	}
	return decodeRaw(OpDataSource, resp)
}

// GetJSONResource fetches an arbitrary JSON document, for example a node
// type schema or translations. With WithResourceCache set, a fresh cached
// copy is returned without a request.
func (c *Client) GetJSONResource(ctx context.Context, resourceURI string) (raw json.RawMessage, err error) {
	if c.resources != nil {
		if raw, ok := c.resources.get(resourceURI); ok {
			return raw, nil
		}
	}
	defer c.observe(OpGetJSONResource, time.Now(), &err)

	resp, err := c.getJSON(ctx, OpGetJSONResource, resourceURI)
	if err != nil {
		return nil, err
	}
	raw, err = decodeRaw(OpGetJSONResource, resp)
	if err != nil {
		return nil, err
	}
	if c.resources != nil {
		c.resources.set(resourceURI, raw)
	}
	return raw, nil
}

// ForgetJSONResource drops resourceURI from the resource cache.
func (c *Client) ForgetJSONResource(resourceURI string) {
	if c.resources != nil {
		c.resources.invalidate(resourceURI)
	}
}

// SetUserPreference stores one user preference. Strings are sent as-is,
// anything else JSON encoded.
func (c *Client) SetUserPreference(ctx context.Context, key string, value any) (err error) {
	defer c.observe(OpSetUserPreference, time.Now(), &err)

	encoded, ok := value.(string)
	if !ok {
		b, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("%s: encode value: %w", OpSetUserPreference, err)
		}
		encoded = string(b)
	}

	req, err := c.withToken(ctx, func(token string) (*Request, error) {
		form := url.Values{}
		form.Set("__csrfToken", token)
		form.Set("key", key)
		form.Set("value", encoded)
		h := http.Header{}
		h.Set("Content-Type", "application/x-www-form-urlencoded")
		return NewRequest(OpSetUserPreference, http.MethodPut, c.routes.Core.Service.UserPreferences, CredentialInclude, h, []byte(form.Encode())), nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", OpSetUserPreference, err)
	}
	resp, err := c.exec.execute(ctx, req)
	if err != nil {
		return err
	}
	if !successful(resp.StatusCode) {
		return &UnexpectedStatusError{Op: OpSetUserPreference, StatusCode: resp.StatusCode, Body: resp.Body}
	}
	return nil
}
