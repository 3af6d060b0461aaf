package connector

import (
	"encoding/json"
	"fmt"

	"golang.org/x/net/html/atom"

	"github.com/jmerrifield20/neosconnect/pkg/fragment"
)

// validator is implemented by payload types with required fields.
type validator interface {
	validate() error
}

func successful(status int) bool {
	return status >= 200 && status < 300
}

// decodeJSON is the structured decoding strategy: a 2xx response whose body
// must parse as T and, if T has required fields, pass validation.
func decodeJSON[T any](op string, resp *Response) (T, error) {
	var out T
	if !successful(resp.StatusCode) {
		return out, &UnexpectedStatusError{Op: op, StatusCode: resp.StatusCode, Body: resp.Body}
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out, &DecodeError{Op: op, Body: resp.Body, Err: err}
	}
	if v, ok := any(&out).(validator); ok {
		if err := v.validate(); err != nil {
			return out, &DecodeError{Op: op, Body: resp.Body, Err: err}
		}
	}
	return out, nil
}

// decodeRaw checks that a 2xx body is well-formed JSON and hands it back
// untouched.
func decodeRaw(op string, resp *Response) (json.RawMessage, error) {
	if !successful(resp.StatusCode) {
		return nil, &UnexpectedStatusError{Op: op, StatusCode: resp.StatusCode, Body: resp.Body}
	}
	if !json.Valid(resp.Body) {
		return nil, &DecodeError{Op: op, Body: resp.Body, Err: fmt.Errorf("body is not valid JSON")}
	}
	return json.RawMessage(resp.Body), nil
}

// decodeFragment is the fragment decoding strategy: a 2xx response whose body
// is parsed as markup inside a context element.
func decodeFragment(op string, resp *Response, parent atom.Atom) (*fragment.Document, error) {
	if !successful(resp.StatusCode) {
		return nil, &UnexpectedStatusError{Op: op, StatusCode: resp.StatusCode, Body: resp.Body}
	}
	return parseFragment(op, resp, parent)
}

func parseFragment(op string, resp *Response, parent atom.Atom) (*fragment.Document, error) {
	doc, err := fragment.Parse(string(resp.Body), parent)
	if err != nil {
		return nil, &DecodeError{Op: op, Body: resp.Body, Err: err}
	}
	return doc, nil
}

// jsonBody marshals an operation payload.
func jsonBody(op string, payload any) ([]byte, error) {
	if payload == nil {
		return nil, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request body: %w", op, err)
	}
	return b, nil
}
