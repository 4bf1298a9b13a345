package httpclient

import (
	"net/url"
	"testing"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %s: %v", raw, err)
	}
	return u
}

func TestResolveProxy(t *testing.T) {
	settings := ProxySettings{
		HTTPProxy: "http://127.0.0.2:42",
		NoProxy:   "github.com, .internal.example  localhost:8080",
	}

	cases := []struct {
		target string
		want   string
	}{
		{"http://proxied.test/my/test/url", "http://127.0.0.2:42"},
		{"http://github.com/my/test/url", ""},
		{"http://api.github.com/x", ""},
		{"http://GitHub.com./x", ""},
		{"http://notgithub.com/x", "http://127.0.0.2:42"},
		{"http://svc.internal.example/x", ""},
		{"http://internal.example/x", ""},
		{"http://localhost:9999/x", ""},
		{"https://proxied.test/x", "http://127.0.0.2:42"},
	}

	for _, tc := range cases {
		got := ResolveProxy(mustURL(t, tc.target), settings)
		switch {
		case tc.want == "" && got != nil:
			t.Errorf("%s: expected no proxy, got %s", tc.target, got)
		case tc.want != "" && (got == nil || got.String() != tc.want):
			t.Errorf("%s: expected %s, got %v", tc.target, tc.want, got)
		}
	}
}

func TestResolveProxyPrefersHTTPSProxyForHTTPSTargets(t *testing.T) {
	settings := ProxySettings{
		HTTPProxy:  "http://plain:3128",
		HTTPSProxy: "http://secure:3129",
	}
	if got := ResolveProxy(mustURL(t, "https://example.com/"), settings); got == nil || got.Host != "secure:3129" {
		t.Fatalf("expected https proxy, got %v", got)
	}
	if got := ResolveProxy(mustURL(t, "http://example.com/"), settings); got == nil || got.Host != "plain:3128" {
		t.Fatalf("expected http proxy, got %v", got)
	}
}

func TestResolveProxyWithoutConfiguration(t *testing.T) {
	if got := ResolveProxy(mustURL(t, "http://example.com/"), ProxySettings{NoProxy: "x"}); got != nil {
		t.Fatalf("expected nil proxy, got %v", got)
	}
}

func TestResolveProxyMalformedFailsOpen(t *testing.T) {
	for _, raw := range []string{"://bad", "socks5://127.0.0.1:1080", "http://", "127.0.0.2:42"} {
		if got := ResolveProxy(mustURL(t, "http://example.com/"), ProxySettings{HTTPProxy: raw}); got != nil {
			t.Errorf("%q: expected nil proxy, got %v", raw, got)
		}
	}
}

func TestResolveProxyWildcardNoProxy(t *testing.T) {
	if got := ResolveProxy(mustURL(t, "http://example.com/"), ProxySettings{HTTPProxy: "http://p:1", NoProxy: "*"}); got != nil {
		t.Fatalf("expected wildcard bypass, got %v", got)
	}
}

func TestProxySettingsFromEnv(t *testing.T) {
	t.Setenv("http_proxy", "")
	t.Setenv("HTTP_PROXY", "http://upper:1")
	t.Setenv("https_proxy", "http://lower:2")
	t.Setenv("HTTPS_PROXY", "http://upper:2")
	t.Setenv("no_proxy", "github.com")
	t.Setenv("NO_PROXY", "")

	got := ProxySettingsFromEnv()
	if got.HTTPProxy != "http://upper:1" {
		t.Errorf("HTTPProxy = %q", got.HTTPProxy)
	}
	if got.HTTPSProxy != "http://lower:2" {
		t.Errorf("HTTPSProxy = %q", got.HTTPSProxy)
	}
	if got.NoProxy != "github.com" {
		t.Errorf("NoProxy = %q", got.NoProxy)
	}
}
