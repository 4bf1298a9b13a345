package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/noelia-lencina/codeclimate-services/internal/domain"
	"github.com/noelia-lencina/codeclimate-services/internal/storage"
)

// Delivery is the outcome of one event at one service.
type Delivery struct {
	ServiceID string `json:"service_id"`
	Type      string `json:"type"`
	EventID   string `json:"event_id,omitempty"`
	Result    Result `json:"result"`
	Skipped   bool   `json:"skipped,omitempty"`
	Err       error  `json:"-"`
}

// Fanout dispatches events to all configured services.
type Fanout struct {
	services []Service
	receipts ReceiptStore
	log      Logger
}

// FanoutOption configures a Fanout.
type FanoutOption func(*Fanout)

// WithReceipts skips services that already delivered an event and records new
// deliveries in store.
func WithReceipts(store ReceiptStore) FanoutOption {
	return func(f *Fanout) { f.receipts = store }
}

// WithFanoutLogger sets the logger for per-service outcomes.
func WithFanoutLogger(log Logger) FanoutOption {
	return func(f *Fanout) { f.log = ensureLogger(log) }
}

// NewFanout builds a dispatcher that fans out events across services.
func NewFanout(svcs []Service, opts ...FanoutOption) *Fanout {
	cp := make([]Service, 0, len(svcs))
	for _, s := range svcs {
		if s == nil {
			continue
		}
		cp = append(cp, s)
	}
	f := &Fanout{services: cp, log: noopLogger{}}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Dispatch forwards evt to every service in order. Failures do not stop the
// remaining services; they are returned joined.
func (f *Fanout) Dispatch(ctx context.Context, evt domain.Event) ([]Delivery, error) {
	if f == nil || len(f.services) == 0 {
		return nil, nil
	}

	out := make([]Delivery, 0, len(f.services))
	var errs []error
	for _, s := range f.services {
		d := f.deliver(ctx, s, evt)
		if d.Err != nil {
			errs = append(errs, fmt.Errorf("%s service[%s]: %w", s.Type(), s.ID(), d.Err))
		}
		out = append(out, d)
	}
	return out, errors.Join(errs...)
}

func (f *Fanout) deliver(ctx context.Context, s Service, evt domain.Event) Delivery {
	d := Delivery{ServiceID: s.ID(), Type: s.Type(), EventID: evt.ID}
	useReceipts := f.receipts != nil && evt.ID != ""

	if useReceipts {
		rec, seen, err := f.receipts.Lookup(s.ID(), evt.ID)
		if err != nil {
			f.log.WarnObj("receipt lookup failed", "receipt_error", map[string]any{
				"service_id": s.ID(),
				"event_id":   evt.ID,
				"error":      err.Error(),
			})
		} else if seen {
			d.Skipped = true
			d.Result = Result{
				OK:          true,
				Message:     "Already delivered at " + rec.DeliveredAt.UTC().Format(time.RFC3339),
				EndpointURL: rec.EndpointURL,
				Status:      rec.Status,
			}
			f.log.InfoObj("event already delivered", "delivery_skipped", map[string]any{
				"service_id":   s.ID(),
				"event_id":     evt.ID,
				"status":       rec.Status,
				"delivered_at": rec.DeliveredAt,
			})
			return d
		}
	}

	res, err := s.Receive(ctx, evt)
	d.Result = res
	if err != nil {
		d.Err = err
		f.log.ErrorObj("service delivery failed", "delivery_error", map[string]any{
			"service_id": s.ID(),
			"type":       s.Type(),
			"event_id":   evt.ID,
			"error":      err.Error(),
		})
		return d
	}

	f.log.InfoObj("service delivery completed", "delivery_result", map[string]any{
		"service_id":   s.ID(),
		"type":         s.Type(),
		"event_id":     evt.ID,
		"ok":           res.OK,
		"ignored":      res.Ignored,
		"status":       res.Status,
		"endpoint_url": res.EndpointURL,
	})

	if useReceipts && res.OK && !res.Ignored {
		err := f.receipts.Record(s.ID(), evt.ID, storage.Receipt{
			Status:      res.Status,
			EndpointURL: res.EndpointURL,
		})
		if err != nil {
			f.log.WarnObj("receipt write failed", "receipt_error", map[string]any{
				"service_id": s.ID(),
				"event_id":   evt.ID,
				"error":      err.Error(),
			})
		}
	}
	return d
}

// Size returns the number of active services.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.services)
}

// Close releases services that hold connections.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	return closeAll(f.services)
}

func closeAll(svcs []Service) error {
	var errs []error
	for _, s := range svcs {
		if err := closeService(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func closeService(s Service) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
