package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/noelia-lencina/codeclimate-services/internal/domain"
	"github.com/noelia-lencina/codeclimate-services/pkg/httpclient"
)

const (
	asanaEndpoint = "https://app.asana.com/api/1.0/tasks"
	asanaTaskURL  = "https://app.asana.com/0/%s/%s"
)

// AsanaConfig holds the Asana workspace and credentials. Either
// PersonalAccessToken or the deprecated APIKey must be set.
type AsanaConfig struct {
	PersonalAccessToken string `json:"personal_access_token" yaml:"personal_access_token"`
	APIKey              string `json:"api_key" yaml:"api_key"`
	WorkspaceID         string `json:"workspace_id" yaml:"workspace_id"`
	ProjectID           string `json:"project_id" yaml:"project_id"`
	Assignee            string `json:"assignee" yaml:"assignee"`
}

func (c AsanaConfig) sanitize() AsanaConfig {
	c.PersonalAccessToken = strings.TrimSpace(c.PersonalAccessToken)
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.WorkspaceID = strings.TrimSpace(c.WorkspaceID)
	c.ProjectID = strings.TrimSpace(c.ProjectID)
	c.Assignee = strings.TrimSpace(c.Assignee)
	return c
}

// Validate reports missing credentials or workspace.
func (c AsanaConfig) Validate() ValidationErrors {
	errs := ValidationErrors{}
	if c.APIKey == "" && c.PersonalAccessToken == "" {
		errs.Add("personal_access_token", "can't be blank")
	}
	requirePresent(errs, "workspace_id", c.WorkspaceID)
	return errs
}

type asanaService struct {
	id       string
	cfg      AsanaConfig
	client   *httpclient.Client
	endpoint string
	handlers handlers
}

func newAsanaService(_ context.Context, cfg ServiceConfig, deps Dependencies) (Service, error) {
	if cfg.Asana == nil {
		return nil, fmt.Errorf("service %q missing asana configuration", cfg.ID)
	}
	if deps.HTTP == nil {
		return nil, fmt.Errorf("service %q requires an http client", cfg.ID)
	}

	s := &asanaService{
		id:       cfg.ID,
		cfg:      *cfg.Asana,
		client:   deps.HTTP,
		endpoint: asanaEndpoint,
	}
	s.handlers = handlers{
		domain.EventTest:          s.receiveTest,
		domain.EventIssue:         s.receiveIssue,
		domain.EventQuality:       s.receiveQuality,
		domain.EventVulnerability: s.receiveVulnerability,
	}
	return s, nil
}

func (s *asanaService) ID() string   { return s.id }
func (s *asanaService) Type() string { return TypeAsana }

func (s *asanaService) Receive(ctx context.Context, evt domain.Event) (Result, error) {
	return s.handlers.receive(ctx, evt)
}

func (s *asanaService) receiveTest(ctx context.Context, _ domain.Event) (Result, error) {
	res, err := s.createTask(ctx, "Test task from "+productName, "")
	if err != nil {
		var derr *httpclient.DeliveryError
		if errors.As(err, &derr) {
			derr.UserMessage = asanaErrorMessage(derr.ResponseBody)
		}
		return Result{}, err
	}
	res.Message = fmt.Sprintf("Ticket <a href='%s'>%s</a> created.", res.Fields["url"], res.Fields["id"])
	return res, nil
}

func (s *asanaService) receiveIssue(ctx context.Context, evt domain.Event) (Result, error) {
	return s.createTask(ctx, issueTitle(evt), issueBody(evt))
}

func (s *asanaService) receiveQuality(ctx context.Context, evt domain.Event) (Result, error) {
	return s.createTask(ctx, qualityTitle(evt)+" - "+evt.DetailsURL, "")
}

func (s *asanaService) receiveVulnerability(ctx context.Context, evt domain.Event) (Result, error) {
	return s.createTask(ctx, vulnerabilityTitle(evt)+" - "+evt.DetailsURL, "")
}

type asanaTask struct {
	Workspace string   `json:"workspace"`
	Name      string   `json:"name"`
	Notes     string   `json:"notes"`
	Projects  []string `json:"projects,omitempty"`
	Assignee  string   `json:"assignee,omitempty"`
}

func (s *asanaService) createTask(ctx context.Context, name, notes string) (Result, error) {
	task := asanaTask{
		Workspace: s.cfg.WorkspaceID,
		Name:      name,
		Notes:     notes,
		Assignee:  s.cfg.Assignee,
	}
	if s.cfg.ProjectID != "" {
		task.Projects = []string{s.cfg.ProjectID}
	}

	body, err := json.Marshal(map[string]asanaTask{"data": task})
	if err != nil {
		return Result{}, fmt.Errorf("marshal asana task: %w", err)
	}

	headers := map[string]string{
		"Content-Type":  "application/json",
		"Authorization": s.authorization(),
	}
	return servicePost(ctx, s.client, s.endpoint, body, headers, s.parseTask)
}

func (s *asanaService) authorization() string {
	if s.cfg.PersonalAccessToken != "" {
		return "Bearer " + s.cfg.PersonalAccessToken
	}
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(s.cfg.APIKey+":"))
}

func (s *asanaService) parseTask(resp *httpclient.Response) (map[string]string, error) {
	var body struct {
		Data struct {
			ID  json.Number `json:"id"`
			GID string      `json:"gid"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("decode asana task: %w", err)
	}

	id := body.Data.ID.String()
	if id == "" {
		id = body.Data.GID
	}
	return map[string]string{
		"id":  id,
		"url": fmt.Sprintf(asanaTaskURL, s.cfg.WorkspaceID, id),
	}, nil
}

// asanaErrorMessage joins the messages of an {"errors":[{"message":...}]} body.
func asanaErrorMessage(raw []byte) string {
	var body struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	msgs := make([]string, 0, len(body.Errors))
	for _, e := range body.Errors {
		if m := strings.TrimSpace(e.Message); m != "" {
			msgs = append(msgs, m)
		}
	}
	return strings.Join(msgs, " ")
}
