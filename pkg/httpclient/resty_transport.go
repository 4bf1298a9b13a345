package httpclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 10 * time.Second

// RestyTransport sends each request on a fresh resty.Client so proxy choice is
// per call and no connection outlives it.
type RestyTransport struct {
	timeout   time.Duration
	tlsConfig *tls.Config
}

// NewRestyTransport creates a transport with the given connect+read timeout.
// caFile, when non-empty, replaces the system roots with the PEM bundle it
// points to; it is read once here. No CA bundle ships with this module, so an
// empty caFile means the host's system trust store is used.
func NewRestyTransport(timeout time.Duration, caFile string) (*RestyTransport, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	roots, err := loadRootCAs(caFile)
	if err != nil {
		return nil, err
	}

	return &RestyTransport{
		timeout: timeout,
		tlsConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
			RootCAs:    roots,
		},
	}, nil
}

// Send performs one request. Redirects are returned to the caller, never
// followed here.
func (t *RestyTransport) Send(ctx context.Context, req *Request, proxy *url.URL) (*Response, error) {
	if req == nil || req.URL == nil {
		return nil, errors.New("request url is nil")
	}

	r := t.newClient(proxy).R().SetContext(ctx)
	// resty rejects a nil []byte body outright; nil means no payload.
	if req.Body != nil {
		r.SetBody(req.Body)
	}
	if len(req.Header) > 0 {
		r.SetHeaders(req.Header)
	}

	resp, err := r.Execute(req.Method, req.URL.String())
	if err != nil {
		return nil, &TransportError{URL: req.URL.Redacted(), Err: err}
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header().Clone(),
		Body:       resp.Body(),
	}, nil
}

func (t *RestyTransport) newClient(proxy *url.URL) *resty.Client {
	tr := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: t.timeout}).DialContext,
		TLSClientConfig:       t.tlsConfig.Clone(),
		TLSHandshakeTimeout:   t.timeout,
		ResponseHeaderTimeout: t.timeout,
		DisableKeepAlives:     true,
	}
	if proxy != nil {
		tr.Proxy = http.ProxyURL(proxy)
	}

	c := resty.NewWithClient(&http.Client{Transport: tr})
	c.SetTimeout(t.timeout)
	c.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))
	return c
}

func loadRootCAs(path string) (*x509.CertPool, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}

	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ca file: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("ca file %s contains no PEM certificates", path)
	}
	return pool, nil
}
