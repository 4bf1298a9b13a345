package services

import (
	"context"

	"github.com/noelia-lencina/codeclimate-services/internal/domain"
	"github.com/noelia-lencina/codeclimate-services/internal/storage"
	"github.com/noelia-lencina/codeclimate-services/pkg/httpclient"
)

// Service forwards domain events to one external destination (issue tracker,
// chat room, queue).
type Service interface {
	ID() string
	Type() string
	Receive(ctx context.Context, evt domain.Event) (Result, error)
}

// Result is what a service reports for one event. Params, EndpointURL and
// Status describe the HTTP exchange for services that post over HTTP.
type Result struct {
	OK          bool              `json:"ok"`
	Ignored     bool              `json:"ignored,omitempty"`
	Message     string            `json:"message,omitempty"`
	Params      string            `json:"params,omitempty"`
	EndpointURL string            `json:"endpoint_url,omitempty"`
	Status      int               `json:"status,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
}

// Dependencies are the shared collaborators handed to every builder.
type Dependencies struct {
	HTTP *httpclient.Client
	Log  Logger
}

// ReceiptStore remembers how a service delivered an event.
type ReceiptStore interface {
	Lookup(serviceID, eventID string) (storage.Receipt, bool, error)
	Record(serviceID, eventID string, r storage.Receipt) error
}
