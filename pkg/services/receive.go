package services

import (
	"context"
	"strings"

	"github.com/noelia-lencina/codeclimate-services/internal/domain"
	"github.com/noelia-lencina/codeclimate-services/pkg/httpclient"
)

const noHandlerMessage = "No service handler found"

type handlerFunc func(ctx context.Context, evt domain.Event) (Result, error)

// handlers routes an event to the function registered for its name.
type handlers map[string]handlerFunc

func (h handlers) receive(ctx context.Context, evt domain.Event) (Result, error) {
	fn, ok := h[strings.ToLower(strings.TrimSpace(evt.Name))]
	if !ok || fn == nil {
		return Result{OK: false, Ignored: true, Message: noHandlerMessage}, nil
	}
	return fn(ctx, evt)
}

// servicePost posts through the shared client and records what was sent.
// EndpointURL stays the url the adapter asked for even when a redirect hop
// was followed; Status is the final status.
func servicePost(ctx context.Context, client *httpclient.Client, endpoint string, body []byte, headers map[string]string, extract func(*httpclient.Response) (map[string]string, error)) (Result, error) {
	var status int
	fields, err := httpclient.Post(ctx, client, endpoint, body, headers, func(resp *httpclient.Response) (map[string]string, error) {
		status = resp.StatusCode
		if extract == nil {
			return nil, nil
		}
		return extract(resp)
	})
	if err != nil {
		return Result{}, err
	}

	return Result{
		OK:          true,
		Params:      string(body),
		EndpointURL: endpoint,
		Status:      status,
		Fields:      fields,
	}, nil
}
