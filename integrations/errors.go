package integrations

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

var (
	// ErrUnexpectedResponse covers non-2xx answers and bodies missing the fields we need.
	ErrUnexpectedResponse = errors.New("unexpected response")
	// ErrPropertyNotFound is returned by the catalog when the CMS has no such post.
	ErrPropertyNotFound = errors.New("property not found")
)

// ConnectorError is returned by every outbound client.
type ConnectorError struct {
	Connector  string
	Op         string
	StatusCode int
	Err        error
}

func (e *ConnectorError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Connector, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Connector, e.Op, e.Err)
}

func (e *ConnectorError) Unwrap() error {
	return e.Err
}

const maxErrorBody = 512

// checkResponse turns a transport error or a non-2xx answer into a ConnectorError.
func checkResponse(connector, op string, resp *resty.Response, err error) error {
	if err != nil {
		return &ConnectorError{Connector: connector, Op: op, Err: err}
	}
	if !resp.IsSuccess() {
		body := resp.String()
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return &ConnectorError{
			Connector:  connector,
			Op:         op,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("%w: %s", ErrUnexpectedResponse, body),
		}
	}
	return nil
}

// Option tweaks the HTTP client behind a connector.
type Option func(*resty.Client)

// WithTimeout bounds each request. Zero keeps the client default.
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) {
		if d > 0 {
			c.SetTimeout(d)
		}
	}
}

// WithHeader sets a header on every request.
func WithHeader(key, value string) Option {
	return func(c *resty.Client) {
		c.SetHeader(key, value)
	}
}

func newRestClient(baseURL string, opts []Option) *resty.Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	for _, opt := range opts {
		opt(client)
	}
	return client
}
