package httpclient

import (
	"context"
	"encoding/pem"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRestyTransportSendsBodyAndHeadersVerbatim(t *testing.T) {
	var gotBody, gotHeader, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		gotHeader = r.Header.Get("X-TrackerToken")
		gotMethod = r.Method
		w.Header().Set("X-Reply", "yes")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tr, err := NewRestyTransport(2*time.Second, "")
	if err != nil {
		t.Fatalf("NewRestyTransport: %v", err)
	}
	req, err := NewRequest(srv.URL+"/stories", []byte(`{"token":"1234"}`), map[string]string{"X-TrackerToken": "abc"})
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}

	resp, err := tr.Send(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Fatalf("expected POST, got %s", gotMethod)
	}
	if gotBody != `{"token":"1234"}` {
		t.Fatalf("body mismatch: %s", gotBody)
	}
	if gotHeader != "abc" {
		t.Fatalf("header mismatch: %s", gotHeader)
	}
	if resp.StatusCode != http.StatusCreated || string(resp.Body) != `{"ok":true}` || resp.Header.Get("X-Reply") != "yes" {
		t.Fatalf("unexpected response %#v", resp)
	}
}

func TestRestyTransportDoesNotFollowRedirects(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Location", "/elsewhere")
		w.WriteHeader(http.StatusTemporaryRedirect)
	}))
	defer srv.Close()

	tr, _ := NewRestyTransport(time.Second, "")
	req, _ := NewRequest(srv.URL+"/hook", nil, nil)

	resp, err := tr.Send(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307, got %d", resp.StatusCode)
	}
	if hits != 1 {
		t.Fatalf("expected one hit, got %d", hits)
	}
}

func TestRestyTransportUsesGivenProxy(t *testing.T) {
	var proxiedTarget string
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxiedTarget = r.URL.String()
		_, _ = w.Write([]byte(`{"via":"proxy"}`))
	}))
	defer proxy.Close()

	proxyURL, _ := url.Parse(proxy.URL)
	tr, _ := NewRestyTransport(time.Second, "")
	req, _ := NewRequest("http://proxied.test/my/test/url", []byte(`{}`), nil)

	resp, err := tr.Send(context.Background(), req, proxyURL)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if proxiedTarget != "http://proxied.test/my/test/url" {
		t.Fatalf("proxy saw %q", proxiedTarget)
	}
	if string(resp.Body) != `{"via":"proxy"}` {
		t.Fatalf("unexpected body %s", resp.Body)
	}
}

func TestRestyTransportConnectionFailureIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	target := srv.URL
	srv.Close()

	tr, _ := NewRestyTransport(time.Second, "")
	req, _ := NewRequest(target+"/x", nil, nil)

	_, err := tr.Send(context.Background(), req, nil)
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	var derr *DeliveryError
	if errors.As(err, &derr) {
		t.Fatalf("connection failure must not be a DeliveryError")
	}
}

func TestRestyTransportTimeoutIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	tr, _ := NewRestyTransport(100*time.Millisecond, "")
	req, _ := NewRequest(srv.URL, nil, nil)

	_, err := tr.Send(context.Background(), req, nil)
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransportError on timeout, got %v", err)
	}
}

func TestRestyTransportTrustsConfiguredCAFile(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	caPath := filepath.Join(t.TempDir(), "cacert.pem")
	block := &pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw}
	if err := os.WriteFile(caPath, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatalf("write ca: %v", err)
	}

	req, _ := NewRequest(srv.URL, nil, nil)

	untrusted, _ := NewRestyTransport(time.Second, "")
	if _, err := untrusted.Send(context.Background(), req, nil); err == nil {
		t.Fatalf("expected certificate verification failure with system roots")
	}

	trusted, err := NewRestyTransport(time.Second, caPath)
	if err != nil {
		t.Fatalf("NewRestyTransport: %v", err)
	}
	resp, err := trusted.Send(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("Send with custom CA: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestNewRestyTransportRejectsBadCAFile(t *testing.T) {
	if _, err := NewRestyTransport(time.Second, filepath.Join(t.TempDir(), "missing.pem")); err == nil {
		t.Fatalf("expected error for missing ca file")
	}

	path := filepath.Join(t.TempDir(), "empty.pem")
	if err := os.WriteFile(path, []byte("not a cert"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewRestyTransport(time.Second, path); err == nil {
		t.Fatalf("expected error for ca file without certificates")
	}
}

func TestRestyTransportPostsNilBody(t *testing.T) {
	var hits int
	var gotLen int64 = -1
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		raw, _ := io.ReadAll(r.Body)
		gotLen = int64(len(raw))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	tr, err := NewRestyTransport(time.Second, "")
	if err != nil {
		t.Fatalf("NewRestyTransport: %v", err)
	}
	client := NewClient(tr, WithProxyFunc(noProxy()))

	status, err := Post(context.Background(), client, srv.URL+"/hook", nil, nil, func(resp *Response) (int, error) {
		return resp.StatusCode, nil
	})
	if err != nil {
		t.Fatalf("Post with nil body: %v", err)
	}
	if hits != 1 || gotLen != 0 || status != http.StatusNoContent {
		t.Fatalf("expected one empty POST answered 204, got hits=%d len=%d status=%d", hits, gotLen, status)
	}
}

func TestRestyTransportTruncatedBodyIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Errorf("response writer cannot be hijacked")
			return
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			t.Errorf("hijack: %v", err)
			return
		}
		defer conn.Close()
		_, _ = conn.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\nhello"))
	}))
	defer srv.Close()

	tr, _ := NewRestyTransport(time.Second, "")
	req, _ := NewRequest(srv.URL, []byte(`{}`), nil)

	_, err := tr.Send(context.Background(), req, nil)
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransportError for truncated body, got %v", err)
	}
	var derr *DeliveryError
	if errors.As(err, &derr) {
		t.Fatalf("truncated body must not be a DeliveryError")
	}
}
