package httpclient

import (
	"context"
	"errors"
)

// Client is the delivery entry point shared by every service adapter. It keeps
// no per-call state and is safe for concurrent use.
type Client struct {
	transport Transport
	proxy     ProxyFunc
	log       Logger
}

// Option configures a Client.
type Option func(*Client)

// WithProxyFunc overrides where proxy settings come from. The default reads
// the process environment on every call.
func WithProxyFunc(fn ProxyFunc) Option {
	return func(c *Client) {
		if fn != nil {
			c.proxy = fn
		}
	}
}

// WithLogger sets the logger used for per-hop debug records.
func WithLogger(log Logger) Option {
	return func(c *Client) { c.log = ensureLogger(log) }
}

// NewClient wraps transport with redirect handling, proxy resolution and
// response classification.
func NewClient(transport Transport, opts ...Option) *Client {
	c := &Client{
		transport: transport,
		proxy:     ProxySettingsFromEnv,
		log:       noopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Post sends body to endpoint and hands a 2xx response to onSuccess, returning
// its value unchanged. Any other final status yields a *DeliveryError. Errors
// from the transport and from onSuccess are returned as they are.
func Post[T any](ctx context.Context, c *Client, endpoint string, body []byte, headers map[string]string, onSuccess func(*Response) (T, error)) (T, error) {
	var zero T
	if c == nil || c.transport == nil {
		return zero, errors.New("http client is not initialized")
	}

	req, err := NewRequest(endpoint, body, headers)
	if err != nil {
		return zero, err
	}

	resp, err := SendFollowingRedirects(ctx, c.transport, req, c.proxy(), c.log)
	if err != nil {
		return zero, err
	}

	return Interpret(resp, onSuccess)
}

// IsSuccess reports whether status is in the 2xx class.
func IsSuccess(status int) bool {
	return status >= 200 && status <= 299
}

// Interpret classifies resp. onSuccess runs only for 2xx statuses.
func Interpret[T any](resp *Response, onSuccess func(*Response) (T, error)) (T, error) {
	var zero T
	if resp == nil {
		return zero, errors.New("nil response")
	}
	if !IsSuccess(resp.StatusCode) {
		return zero, &DeliveryError{
			StatusCode:   resp.StatusCode,
			ResponseBody: resp.Body,
		}
	}
	if onSuccess == nil {
		return zero, nil
	}
	return onSuccess(resp)
}
