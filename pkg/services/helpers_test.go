package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/noelia-lencina/codeclimate-services/pkg/httpclient"
)

type cannedReply struct {
	status int
	header http.Header
	body   string
	err    error
}

type sentRequest struct {
	url    string
	proxy  *url.URL
	header map[string]string
	body   string
}

// fakeTransport answers from a table keyed by URL and records what it saw.
type fakeTransport struct {
	mu      sync.Mutex
	replies map[string]cannedReply
	sent    []sentRequest
}

func (f *fakeTransport) Send(_ context.Context, req *httpclient.Request, proxy *url.URL) (*httpclient.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, sentRequest{
		url:    req.URL.String(),
		proxy:  proxy,
		header: req.Header,
		body:   string(req.Body),
	})
	reply, ok := f.replies[req.URL.String()]
	if !ok {
		return nil, fmt.Errorf("unexpected request to %s", req.URL)
	}
	if reply.err != nil {
		return nil, reply.err
	}
	header := reply.header
	if header == nil {
		header = http.Header{}
	}
	return &httpclient.Response{StatusCode: reply.status, Header: header, Body: []byte(reply.body)}, nil
}

func (f *fakeTransport) last() sentRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

func newFakeDeps(replies map[string]cannedReply) (Dependencies, *fakeTransport) {
	tr := &fakeTransport{replies: replies}
	client := httpclient.NewClient(tr, httpclient.WithProxyFunc(httpclient.StaticProxy(httpclient.ProxySettings{})))
	return Dependencies{HTTP: client}, tr
}
