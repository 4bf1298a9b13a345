package httpclient

import (
	"net"
	"net/url"
	"os"
	"strings"
)

// ProxySettings mirrors the conventional proxy environment variables.
type ProxySettings struct {
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// ProxyFunc supplies the proxy settings in effect for one call.
type ProxyFunc func() ProxySettings

// ProxySettingsFromEnv reads http_proxy, https_proxy and no_proxy, preferring
// the lower-case spelling. It is evaluated on every call so runtime changes to
// the environment take effect immediately.
func ProxySettingsFromEnv() ProxySettings {
	return ProxySettings{
		HTTPProxy:  firstEnv("http_proxy", "HTTP_PROXY"),
		HTTPSProxy: firstEnv("https_proxy", "HTTPS_PROXY"),
		NoProxy:    firstEnv("no_proxy", "NO_PROXY"),
	}
}

// StaticProxy returns a ProxyFunc that always yields s.
func StaticProxy(s ProxySettings) ProxyFunc {
	return func() ProxySettings { return s }
}

// ResolveProxy picks the proxy for target, or nil for a direct connection.
// https targets use HTTPSProxy when set and fall back to HTTPProxy. A proxy
// value that does not parse as an http(s) URL with a host is ignored.
func ResolveProxy(target *url.URL, s ProxySettings) *url.URL {
	if target == nil {
		return nil
	}

	raw := strings.TrimSpace(s.HTTPProxy)
	if strings.EqualFold(target.Scheme, "https") {
		if v := strings.TrimSpace(s.HTTPSProxy); v != "" {
			raw = v
		}
	}
	if raw == "" {
		return nil
	}

	host := normalizeHost(target.Hostname())
	if host == "" || bypassProxy(host, s.NoProxy) {
		return nil
	}

	proxy, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	switch strings.ToLower(proxy.Scheme) {
	case "http", "https":
	default:
		return nil
	}
	if proxy.Hostname() == "" {
		return nil
	}
	return proxy
}

// bypassProxy reports whether host matches one of the comma or space separated
// no_proxy patterns. A pattern matches the host itself and every subdomain of
// it; a leading dot is ignored and "*" matches everything.
func bypassProxy(host, noProxy string) bool {
	for _, pattern := range splitNoProxy(noProxy) {
		if pattern == "*" {
			return true
		}
		if host == pattern || strings.HasSuffix(host, "."+pattern) {
			return true
		}
	}
	return false
}

func splitNoProxy(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if h, _, err := net.SplitHostPort(f); err == nil {
			f = h
		}
		f = strings.TrimPrefix(normalizeHost(f), ".")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func normalizeHost(h string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(h)), ".")
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}
