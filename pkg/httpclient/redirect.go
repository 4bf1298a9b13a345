package httpclient

import (
	"context"
	"strings"
)

// IsRedirect reports whether status is in the 3xx class.
func IsRedirect(status int) bool {
	return status >= 300 && status <= 399
}

// SendFollowingRedirects sends req and, when the reply is a redirect carrying
// a Location header, sends the same method and body once more to that
// location. The second reply is returned whatever its status. The proxy is
// resolved separately for each hop against the same settings, so a redirect to
// a no_proxy host goes direct.
func SendFollowingRedirects(ctx context.Context, t Transport, req *Request, settings ProxySettings, log Logger) (*Response, error) {
	log = ensureLogger(log)

	resp, err := sendHop(ctx, t, req, settings, log)
	if err != nil {
		return nil, err
	}
	if !IsRedirect(resp.StatusCode) {
		return resp, nil
	}

	loc := strings.TrimSpace(resp.Header.Get("Location"))
	if loc == "" {
		return resp, nil
	}
	next, err := req.URL.Parse(loc)
	if err != nil {
		log.WarnObj("redirect location unparsable", "redirect", map[string]any{
			"url":      req.URL.Redacted(),
			"location": loc,
			"error":    err.Error(),
		})
		return resp, nil
	}

	return sendHop(ctx, t, req.withURL(next), settings, log)
}

func sendHop(ctx context.Context, t Transport, req *Request, settings ProxySettings, log Logger) (*Response, error) {
	proxy := ResolveProxy(req.URL, settings)

	meta := map[string]any{
		"method": req.Method,
		"url":    req.URL.Redacted(),
	}
	if proxy != nil {
		meta["proxy"] = proxy.Redacted()
	}

	resp, err := t.Send(ctx, req, proxy)
	if err != nil {
		meta["error"] = err.Error()
		log.DebugObj("http hop failed", "http_hop", meta)
		return nil, err
	}
	meta["status"] = resp.StatusCode
	log.DebugObj("http hop completed", "http_hop", meta)
	return resp, nil
}
