package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/noelia-lencina/codeclimate-services/internal/domain"
	"golang.org/x/time/rate"
)

// Builder creates a Service from a config entry.
type Builder func(ctx context.Context, cfg ServiceConfig, deps Dependencies) (Service, error)

// Registry maps service types to builders.
type Registry interface {
	Register(typ string, builder Builder)
	ServiceFor(ctx context.Context, cfg ServiceConfig, deps Dependencies) (Service, error)
}

type registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry returns a registry with optional pre-registered builders.
func NewRegistry(builders map[string]Builder) Registry {
	r := &registry{
		builders: make(map[string]Builder),
	}
	for typ, b := range builders {
		r.Register(typ, b)
	}
	return r
}

// Register associates a builder with a service type.
func (r *registry) Register(typ string, builder Builder) {
	if typ = strings.TrimSpace(strings.ToLower(typ)); typ == "" || builder == nil {
		return
	}

	r.mu.Lock()
	r.builders[typ] = builder
	r.mu.Unlock()
}

// ServiceFor returns the service built for the provided config. A positive
// RatePerSecond wraps it in a limiter.
func (r *registry) ServiceFor(ctx context.Context, cfg ServiceConfig, deps Dependencies) (Service, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("service %q has no type configured", cfg.ID)
	}

	r.mu.RLock()
	builder := r.builders[strings.ToLower(cfg.Type)]
	r.mu.RUnlock()

	if builder == nil {
		return nil, fmt.Errorf("no service registered for type %q", cfg.Type)
	}
	svc, err := builder(ctx, cfg, deps)
	if err != nil {
		return nil, err
	}
	if cfg.RatePerSecond > 0 {
		svc = &rateLimited{Service: svc, limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)}
	}
	return svc, nil
}

// DefaultRegistry wires up known services.
func DefaultRegistry() Registry {
	builders := map[string]Builder{
		TypeAsana:          newAsanaService,
		TypeHipChat:        newHipChatService,
		TypePivotalTracker: newPivotalTrackerService,
		TypeWebhook:        newWebhookService,
		TypeSQS:            newSQSService,
		TypeSNS:            newSNSService,
		TypePubSub:         newPubSubService,
	}
	return NewRegistry(builders)
}

// BuildAll instantiates services for configs using the registry.
func BuildAll(ctx context.Context, reg Registry, cfgs []ServiceConfig, deps Dependencies) ([]Service, error) {
	if reg == nil || len(cfgs) == 0 {
		return nil, nil
	}

	var svcs []Service
	for _, cfg := range cfgs {
		svc, err := reg.ServiceFor(ctx, cfg, deps)
		if err != nil {
			_ = closeAll(svcs)
			return nil, err
		}
		svcs = append(svcs, svc)
	}
	return svcs, nil
}

// rateLimited delays Receive until the limiter admits it.
type rateLimited struct {
	Service
	limiter *rate.Limiter
}

func (r *rateLimited) Receive(ctx context.Context, evt domain.Event) (Result, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limit: %w", err)
	}
	return r.Service.Receive(ctx, evt)
}

func (r *rateLimited) Close() error {
	return closeService(r.Service)
}
