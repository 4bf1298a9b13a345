package storage

import (
	"fmt"
	"strings"
	"time"
)

// Package storage records how each event was delivered to each service, so a
// replayed event is not sent twice.

// Receipt is the outcome of one successful delivery.
type Receipt struct {
	Status      int       `json:"status,omitempty"`
	EndpointURL string    `json:"endpoint_url,omitempty"`
	DeliveredAt time.Time `json:"delivered_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Store keeps delivery receipts keyed by service and event id.
type Store interface {
	Close() error
	Lookup(serviceID, eventID string) (Receipt, bool, error)
	Record(serviceID, eventID string, r Receipt) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	ReceiptTTL      time.Duration
	CleanupInterval time.Duration
}

const (
	defaultReceiptTTL      = 7 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.ReceiptTTL <= 0 {
		opts.ReceiptTTL = defaultReceiptTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                                { return nil }
func (noopStore) Lookup(string, string) (Receipt, bool, error) { return Receipt{}, false, nil }
func (noopStore) Record(string, string, Receipt) error         { return nil }
