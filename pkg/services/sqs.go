package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/noelia-lencina/codeclimate-services/internal/domain"
)

// SQSConfig holds AWS SQS specific settings.
type SQSConfig struct {
	QueueURL string `json:"uri" yaml:"uri"`
	AWSCredentials `yaml:",inline"`
}

func (c SQSConfig) sanitize() SQSConfig {
	c.QueueURL = strings.TrimSpace(c.QueueURL)
	c.AWSCredentials = c.AWSCredentials.sanitize()
	return c
}

func (c SQSConfig) Validate() ValidationErrors {
	errs := ValidationErrors{}
	requirePresent(errs, "uri", c.QueueURL)
	c.AWSCredentials.validate(errs)
	return errs
}

// sqsClient defines the minimal subset of the SQS client used by sqsService.
type sqsClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type sqsService struct {
	id       string
	queueURL string
	client   sqsClient
	log      Logger
}

func newSQSService(ctx context.Context, cfg ServiceConfig, deps Dependencies) (Service, error) {
	if cfg.SQS == nil {
		return nil, fmt.Errorf("service %q missing sqs configuration", cfg.ID)
	}

	awsCfg, err := loadAWSConfig(ctx, cfg.SQS.AWSCredentials)
	if err != nil {
		return nil, err
	}

	return &sqsService{
		id:       cfg.ID,
		queueURL: cfg.SQS.QueueURL,
		client:   sqs.NewFromConfig(awsCfg),
		log:      ensureLogger(deps.Log),
	}, nil
}

func (s *sqsService) ID() string   { return s.id }
func (s *sqsService) Type() string { return TypeSQS }

// Receive enqueues the event as a JSON notification.
func (s *sqsService) Receive(ctx context.Context, evt domain.Event) (Result, error) {
	payload, err := json.Marshal(newNotification(s.id, evt))
	if err != nil {
		return Result{}, fmt.Errorf("marshal event: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(payload)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_name": {
				DataType:    aws.String("String"),
				StringValue: aws.String(evt.Name),
			},
		},
	}

	out, err := s.client.SendMessage(ctx, input)
	if err != nil {
		s.log.ErrorObj("sqs service send failed", "service_sqs_error", map[string]any{
			"service_id": s.id,
			"error":      err.Error(),
		})
		return Result{}, fmt.Errorf("send message to sqs: %w", err)
	}
	s.log.DebugObj("sqs service delivered event", "service_sqs_delivery", map[string]any{
		"service_id": s.id,
		"event_id":   evt.ID,
	})

	return Result{
		OK:          true,
		Params:      string(payload),
		EndpointURL: s.queueURL,
		Fields:      map[string]string{"message_id": aws.ToString(out.MessageId)},
	}, nil
}
