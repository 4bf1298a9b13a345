package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/noelia-lencina/codeclimate-services/internal/domain"
	"github.com/noelia-lencina/codeclimate-services/pkg/httpclient"
)

const hipChatBaseURL = "https://api.hipchat.com/v1"

// HipChatConfig identifies the room messages are posted to.
type HipChatConfig struct {
	AuthToken string `json:"auth_token" yaml:"auth_token"`
	RoomID    string `json:"room_id" yaml:"room_id"`
}

func (c HipChatConfig) sanitize() HipChatConfig {
	c.AuthToken = strings.TrimSpace(c.AuthToken)
	c.RoomID = strings.TrimSpace(c.RoomID)
	return c
}

func (c HipChatConfig) Validate() ValidationErrors {
	errs := ValidationErrors{}
	requirePresent(errs, "auth_token", c.AuthToken)
	requirePresent(errs, "room_id", c.RoomID)
	return errs
}

type hipChatService struct {
	id       string
	cfg      HipChatConfig
	client   *httpclient.Client
	baseURL  string
	handlers handlers
}

func newHipChatService(_ context.Context, cfg ServiceConfig, deps Dependencies) (Service, error) {
	if cfg.HipChat == nil {
		return nil, fmt.Errorf("service %q missing hipchat configuration", cfg.ID)
	}
	if deps.HTTP == nil {
		return nil, fmt.Errorf("service %q requires an http client", cfg.ID)
	}

	s := &hipChatService{
		id:      cfg.ID,
		cfg:     *cfg.HipChat,
		client:  deps.HTTP,
		baseURL: hipChatBaseURL,
	}
	s.handlers = handlers{
		domain.EventTest:     s.receiveTest,
		domain.EventCoverage: s.receiveCoverage,
	}
	return s, nil
}

func (s *hipChatService) ID() string   { return s.id }
func (s *hipChatService) Type() string { return TypeHipChat }

func (s *hipChatService) Receive(ctx context.Context, evt domain.Event) (Result, error) {
	return s.handlers.receive(ctx, evt)
}

func (s *hipChatService) receiveTest(ctx context.Context, _ domain.Event) (Result, error) {
	return s.speak(ctx, "Test message from "+productName)
}

func (s *hipChatService) receiveCoverage(ctx context.Context, evt domain.Event) (Result, error) {
	msg, err := renderCoverage(evt)
	if err != nil {
		return Result{}, err
	}
	return s.speak(ctx, msg)
}

func (s *hipChatService) speak(ctx context.Context, message string) (Result, error) {
	form := url.Values{}
	form.Set("from", productName)
	form.Set("message", message)
	form.Set("auth_token", s.cfg.AuthToken)
	form.Set("room_id", s.cfg.RoomID)
	form.Set("notify", "false")
	form.Set("color", "yellow")

	headers := map[string]string{"Content-Type": "application/x-www-form-urlencoded"}
	return servicePost(ctx, s.client, s.baseURL+"/rooms/message", []byte(form.Encode()), headers, parseHipChatStatus)
}

// parseHipChatStatus keeps the "status" field when the reply is JSON.
func parseHipChatStatus(resp *httpclient.Response) (map[string]string, error) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil || body.Status == "" {
		return nil, nil
	}
	return map[string]string{"status": body.Status}, nil
}
