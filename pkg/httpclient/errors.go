package httpclient

import (
	"fmt"
	"strings"
)

// DeliveryError reports that the endpoint answered but rejected the request.
// UserMessage is empty until an adapter parses ResponseBody and fills it in.
type DeliveryError struct {
	StatusCode   int
	ResponseBody []byte
	UserMessage  string
}

func (e *DeliveryError) Error() string {
	if msg := strings.TrimSpace(e.UserMessage); msg != "" {
		return "delivery failed: " + msg
	}
	return fmt.Sprintf("delivery failed: http status %d: %s", e.StatusCode, bodySnippet(e.ResponseBody))
}

// TransportError reports that no complete HTTP response was obtained.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func bodySnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
