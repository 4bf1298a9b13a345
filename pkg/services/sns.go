package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/noelia-lencina/codeclimate-services/internal/domain"
)

// SNSConfig holds AWS SNS specific settings.
type SNSConfig struct {
	TopicARN       string `json:"topic_arn" yaml:"topic_arn"`
	AWSCredentials `yaml:",inline"`
}

func (c SNSConfig) sanitize() SNSConfig {
	c.TopicARN = strings.TrimSpace(c.TopicARN)
	c.AWSCredentials = c.AWSCredentials.sanitize()
	return c
}

func (c SNSConfig) Validate() ValidationErrors {
	errs := ValidationErrors{}
	requirePresent(errs, "topic_arn", c.TopicARN)
	c.AWSCredentials.validate(errs)
	return errs
}

type snsClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type snsService struct {
	id       string
	topicARN string
	client   snsClient
	log      Logger
}

func newSNSService(ctx context.Context, cfg ServiceConfig, deps Dependencies) (Service, error) {
	if cfg.SNS == nil {
		return nil, fmt.Errorf("service %q missing sns configuration", cfg.ID)
	}

	awsCfg, err := loadAWSConfig(ctx, cfg.SNS.AWSCredentials)
	if err != nil {
		return nil, err
	}

	return &snsService{
		id:       cfg.ID,
		topicARN: cfg.SNS.TopicARN,
		client:   sns.NewFromConfig(awsCfg),
		log:      ensureLogger(deps.Log),
	}, nil
}

func (s *snsService) ID() string   { return s.id }
func (s *snsService) Type() string { return TypeSNS }

// Receive publishes the event to the topic; the plain-text summary doubles as
// the SNS subject line.
func (s *snsService) Receive(ctx context.Context, evt domain.Event) (Result, error) {
	note := newNotification(s.id, evt)
	payload, err := json.Marshal(note)
	if err != nil {
		return Result{}, fmt.Errorf("marshal event: %w", err)
	}

	input := &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Message:  aws.String(string(payload)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_name": {
				DataType:    aws.String("String"),
				StringValue: aws.String(evt.Name),
			},
		},
	}

	if subject := snsSubject(note.Message); subject != "" {
		input.Subject = aws.String(subject)
	}

	out, err := s.client.Publish(ctx, input)
	if err != nil {
		s.log.ErrorObj("sns service publish failed", "service_sns_error", map[string]any{
			"service_id": s.id,
			"error":      err.Error(),
		})
		return Result{}, fmt.Errorf("publish to sns: %w", err)
	}

	return Result{
		OK:          true,
		Params:      string(payload),
		EndpointURL: s.topicARN,
		Fields:      map[string]string{"message_id": aws.ToString(out.MessageId)},
	}, nil
}

// snsSubject makes s acceptable as an SNS subject: printable ASCII only,
// fewer than 100 characters.
func snsSubject(s string) string {
	const maxLen = 99
	var b strings.Builder
	for _, r := range s {
		if b.Len() == maxLen {
			break
		}
		if r < 0x20 || r > 0x7e {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
