package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"
	"github.com/noelia-lencina/codeclimate-services/internal/domain"
	"google.golang.org/api/option"
)

// PubSubConfig holds Google Cloud Pub/Sub settings. Endpoint and
// CredentialsFile are optional; PUBSUB_EMULATOR_HOST is honoured by the client.
type PubSubConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	TopicID         string `json:"topic_id" yaml:"topic_id"`
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

func (c PubSubConfig) sanitize() PubSubConfig {
	c.ProjectID = strings.TrimSpace(c.ProjectID)
	c.TopicID = strings.TrimSpace(c.TopicID)
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	c.CredentialsFile = strings.TrimSpace(c.CredentialsFile)
	return c
}

func (c PubSubConfig) Validate() ValidationErrors {
	errs := ValidationErrors{}
	requirePresent(errs, "project_id", c.ProjectID)
	requirePresent(errs, "topic_id", c.TopicID)
	return errs
}

type pubSubService struct {
	id     string
	client *pubsub.Client
	topic  *pubsub.Topic
	log    Logger
}

func newPubSubService(ctx context.Context, cfg ServiceConfig, deps Dependencies) (Service, error) {
	if cfg.PubSub == nil {
		return nil, fmt.Errorf("service %q missing pubsub configuration", cfg.ID)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var opts []option.ClientOption
	if cfg.PubSub.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.PubSub.Endpoint))
	}
	if cfg.PubSub.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.PubSub.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	return &pubSubService{
		id:     cfg.ID,
		client: client,
		topic:  client.Topic(cfg.PubSub.TopicID),
		log:    ensureLogger(deps.Log),
	}, nil
}

func (p *pubSubService) ID() string   { return p.id }
func (p *pubSubService) Type() string { return TypePubSub }

// Receive publishes the event and waits for the server-assigned id.
func (p *pubSubService) Receive(ctx context.Context, evt domain.Event) (Result, error) {
	payload, err := json.Marshal(newNotification(p.id, evt))
	if err != nil {
		return Result{}, fmt.Errorf("marshal event: %w", err)
	}

	res := p.topic.Publish(ctx, &pubsub.Message{
		Data:       payload,
		Attributes: map[string]string{"event_name": evt.Name},
	})
	msgID, err := res.Get(ctx)
	if err != nil {
		p.log.ErrorObj("pubsub service publish failed", "service_pubsub_error", map[string]any{
			"service_id": p.id,
			"error":      err.Error(),
		})
		return Result{}, fmt.Errorf("publish to pubsub: %w", err)
	}

	return Result{
		OK:          true,
		Params:      string(payload),
		EndpointURL: p.topic.String(),
		Fields:      map[string]string{"message_id": msgID},
	}, nil
}

// Close flushes pending publishes and releases the client.
func (p *pubSubService) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
