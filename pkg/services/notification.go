package services

import "github.com/noelia-lencina/codeclimate-services/internal/domain"

// notification is the JSON document sent to generic sinks (webhook, queues).
type notification struct {
	ServiceID string       `json:"service_id"`
	Message   string       `json:"message"`
	Event     domain.Event `json:"event"`
}

func newNotification(serviceID string, evt domain.Event) notification {
	return notification{
		ServiceID: serviceID,
		Message:   plainText(summarize(evt)),
		Event:     evt,
	}
}
