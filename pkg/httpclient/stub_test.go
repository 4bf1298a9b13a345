package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
)

type stubReply struct {
	status int
	header http.Header
	body   string
	err    error
}

type stubCall struct {
	url    string
	proxy  *url.URL
	header map[string]string
	body   []byte
}

// stubTransport answers from a table keyed by full URL and records every call.
type stubTransport struct {
	mu     sync.Mutex
	routes map[string]stubReply
	calls  []stubCall
}

func newStubTransport(routes map[string]stubReply) *stubTransport {
	return &stubTransport{routes: routes}
}

func (s *stubTransport) Send(_ context.Context, req *Request, proxy *url.URL) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, stubCall{
		url:    req.URL.String(),
		proxy:  proxy,
		header: req.Header,
		body:   append([]byte(nil), req.Body...),
	})

	reply, ok := s.routes[req.URL.String()]
	if !ok {
		return nil, fmt.Errorf("no stub for %s", req.URL)
	}
	if reply.err != nil {
		return nil, reply.err
	}
	header := reply.header
	if header == nil {
		header = http.Header{}
	}
	return &Response{StatusCode: reply.status, Header: header, Body: []byte(reply.body)}, nil
}

func (s *stubTransport) Calls() []stubCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]stubCall(nil), s.calls...)
}

func noProxy() ProxyFunc { return StaticProxy(ProxySettings{}) }
