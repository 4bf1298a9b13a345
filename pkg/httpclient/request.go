package httpclient

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// NewRequest builds a POST request for rawURL. The body slice is kept as-is and
// is sent byte-for-byte.
func NewRequest(rawURL string, body []byte, headers map[string]string) (*Request, error) {
	u, err := parseTargetURL(rawURL)
	if err != nil {
		return nil, err
	}

	hdr := make(map[string]string, len(headers))
	for k, v := range headers {
		if !httpguts.ValidHeaderFieldName(k) {
			return nil, fmt.Errorf("invalid header name %q", k)
		}
		if !httpguts.ValidHeaderFieldValue(v) {
			return nil, fmt.Errorf("invalid value for header %q", k)
		}
		hdr[k] = v
	}

	return &Request{
		Method: http.MethodPost,
		URL:    u,
		Header: hdr,
		Body:   body,
	}, nil
}

// withURL returns a copy of r aimed at u. Header map and body are shared.
func (r *Request) withURL(u *url.URL) *Request {
	return &Request{
		Method: r.Method,
		URL:    u,
		Header: r.Header,
		Body:   r.Body,
	}
}

func parseTargetURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse endpoint url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, fmt.Errorf("endpoint url %q: unsupported scheme %q", rawURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("endpoint url %q has no host", rawURL)
	}
	return u, nil
}
