package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/noelia-lencina/codeclimate-services/internal/config"
	"github.com/noelia-lencina/codeclimate-services/internal/domain"
	"github.com/noelia-lencina/codeclimate-services/internal/logger"
	"github.com/noelia-lencina/codeclimate-services/internal/storage"
	"github.com/noelia-lencina/codeclimate-services/pkg/httpclient"
	"github.com/noelia-lencina/codeclimate-services/pkg/services"
)

// Notifier delivers events to every enabled service. It owns the receipt
// store and any service connections, so Close must be called when done.
type Notifier struct {
	cfg    *config.Config
	fanout *services.Fanout
	log    logger.Logger
	store  storage.Store
}

// NewNotifier builds a notifier runtime from config files.
func NewNotifier(ctx context.Context, cfg *config.Config, log logger.Logger) (*Notifier, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	reg, err := services.LoadRegistry(cfg.ServicesFile)
	if err != nil {
		return nil, fmt.Errorf("load services registry: %w", err)
	}
	enabled := reg.Enabled()
	if len(enabled) == 0 {
		return nil, fmt.Errorf("no services enabled")
	}

	transport, err := httpclient.NewRestyTransport(cfg.HTTPTimeout, cfg.CAFile)
	if err != nil {
		return nil, fmt.Errorf("init http transport: %w", err)
	}
	deps := services.Dependencies{
		HTTP: httpclient.NewClient(transport, httpclient.WithLogger(log)),
		Log:  log,
	}

	svcs, err := services.BuildAll(ctx, services.DefaultRegistry(), enabled, deps)
	if err != nil {
		return nil, fmt.Errorf("build services: %w", err)
	}
	summaries := make([]map[string]string, 0, len(enabled))
	for _, sc := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   sc.ID,
			"type": sc.Type,
		})
	}
	log.InfoObj("services registry loaded", "services_meta", map[string]any{
		"count":    len(summaries),
		"services": summaries,
	})

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		ReceiptTTL:      cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		fanout := services.NewFanout(svcs)
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"receipt_ttl_seconds":      int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	return &Notifier{
		cfg:    cfg,
		fanout: services.NewFanout(svcs, services.WithReceipts(store), services.WithFanoutLogger(log)),
		log:    log,
		store:  store,
	}, nil
}

// Notify delivers evt to all enabled services. An event without an id gets a
// fresh one, which also means it is never skipped as already delivered.
func (n *Notifier) Notify(ctx context.Context, evt domain.Event) ([]services.Delivery, error) {
	if n == nil || n.fanout == nil {
		return nil, fmt.Errorf("notifier is not initialized")
	}
	evt.Name = strings.ToLower(strings.TrimSpace(evt.Name))
	if evt.Name == "" {
		return nil, fmt.Errorf("event name is required")
	}
	if strings.TrimSpace(evt.ID) == "" {
		evt.ID = uuid.NewString()
	}

	n.log.InfoObj("dispatching event", "event_meta", map[string]any{
		"event_id":       evt.ID,
		"event_name":     evt.Name,
		"services_count": n.fanout.Size(),
	})
	return n.fanout.Dispatch(ctx, evt)
}

// Close releases service connections and the receipt store.
func (n *Notifier) Close() {
	if n == nil {
		return
	}
	if err := n.fanout.Close(); err != nil {
		n.log.ErrorObj("services close failed", "error", err)
	}
	if n.store != nil {
		if err := n.store.Close(); err != nil {
			n.log.ErrorObj("storage close failed", "error", err)
		}
	}
}
