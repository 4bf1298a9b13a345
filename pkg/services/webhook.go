package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/noelia-lencina/codeclimate-services/internal/domain"
	"github.com/noelia-lencina/codeclimate-services/pkg/httpclient"
)

// WebhookConfig holds generic HTTP sink settings.
type WebhookConfig struct {
	URL     string            `json:"url" yaml:"url"`
	Headers map[string]string `json:"headers" yaml:"headers"`
}

func (c WebhookConfig) sanitize() WebhookConfig {
	c.URL = strings.TrimSpace(c.URL)
	c.Headers = sanitizeHeaders(c.Headers)
	return c
}

func (c WebhookConfig) Validate() ValidationErrors {
	errs := ValidationErrors{}
	requirePresent(errs, "url", c.URL)
	if c.URL != "" && !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
		errs.Add("url", "must be an http or https url")
	}
	return errs
}

type webhookService struct {
	id      string
	url     string
	headers map[string]string
	client  *httpclient.Client
}

func newWebhookService(_ context.Context, cfg ServiceConfig, deps Dependencies) (Service, error) {
	if cfg.Webhook == nil {
		return nil, fmt.Errorf("service %q missing webhook configuration", cfg.ID)
	}
	if deps.HTTP == nil {
		return nil, fmt.Errorf("service %q requires an http client", cfg.ID)
	}

	headers := make(map[string]string, len(cfg.Webhook.Headers)+1)
	for k, v := range cfg.Webhook.Headers {
		headers[k] = v
	}
	headers["Content-Type"] = "application/json"

	return &webhookService{
		id:      cfg.ID,
		url:     cfg.Webhook.URL,
		headers: headers,
		client:  deps.HTTP,
	}, nil
}

func (w *webhookService) ID() string   { return w.id }
func (w *webhookService) Type() string { return TypeWebhook }

// Receive posts every event, whatever its name, as JSON.
func (w *webhookService) Receive(ctx context.Context, evt domain.Event) (Result, error) {
	body, err := json.Marshal(newNotification(w.id, evt))
	if err != nil {
		return Result{}, fmt.Errorf("marshal event: %w", err)
	}
	return servicePost(ctx, w.client, w.url, body, w.headers, nil)
}
