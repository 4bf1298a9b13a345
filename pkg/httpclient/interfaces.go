package httpclient

import (
	"context"
	"net/http"
	"net/url"
)

// Request is a single outbound POST. It is not mutated once built; a redirect
// hop produces a new Request sharing the same body.
type Request struct {
	Method string
	URL    *url.URL
	Header map[string]string
	Body   []byte
}

// Response is the fully read reply to a Request.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport executes exactly one request, optionally through proxy. A nil
// proxy means a direct connection. Implementations must read the whole body
// before returning.
type Transport interface {
	Send(ctx context.Context, req *Request, proxy *url.URL) (*Response, error)
}

// TransportFunc adapts a plain function to Transport.
type TransportFunc func(ctx context.Context, req *Request, proxy *url.URL) (*Response, error)

// Send calls f.
func (f TransportFunc) Send(ctx context.Context, req *Request, proxy *url.URL) (*Response, error) {
	return f(ctx, req, proxy)
}

// Logger defines the logging surface the client relies on.
type Logger interface {
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return noopLogger{}
	}
	return log
}
