package services

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/noelia-lencina/codeclimate-services/internal/domain"
	"github.com/noelia-lencina/codeclimate-services/pkg/httpclient"
)

const pivotalTrackerBaseURL = "https://www.pivotaltracker.com/services/v3"

// PivotalTrackerConfig selects the project stories are filed in.
type PivotalTrackerConfig struct {
	APIToken  string `json:"api_token" yaml:"api_token"`
	ProjectID string `json:"project_id" yaml:"project_id"`
	Labels    string `json:"labels" yaml:"labels"`
}

func (c PivotalTrackerConfig) sanitize() PivotalTrackerConfig {
	c.APIToken = strings.TrimSpace(c.APIToken)
	c.ProjectID = strings.TrimSpace(c.ProjectID)
	c.Labels = strings.TrimSpace(c.Labels)
	return c
}

func (c PivotalTrackerConfig) Validate() ValidationErrors {
	errs := ValidationErrors{}
	requirePresent(errs, "api_token", c.APIToken)
	requirePresent(errs, "project_id", c.ProjectID)
	return errs
}

type pivotalTrackerService struct {
	id       string
	cfg      PivotalTrackerConfig
	client   *httpclient.Client
	baseURL  string
	handlers handlers
}

func newPivotalTrackerService(_ context.Context, cfg ServiceConfig, deps Dependencies) (Service, error) {
	if cfg.PivotalTracker == nil {
		return nil, fmt.Errorf("service %q missing pivotal_tracker configuration", cfg.ID)
	}
	if deps.HTTP == nil {
		return nil, fmt.Errorf("service %q requires an http client", cfg.ID)
	}

	s := &pivotalTrackerService{
		id:      cfg.ID,
		cfg:     *cfg.PivotalTracker,
		client:  deps.HTTP,
		baseURL: pivotalTrackerBaseURL,
	}
	s.handlers = handlers{
		domain.EventTest:  s.receiveTest,
		domain.EventIssue: s.receiveIssue,
		domain.EventUnit:  s.receiveUnit,
	}
	return s, nil
}

func (s *pivotalTrackerService) ID() string   { return s.id }
func (s *pivotalTrackerService) Type() string { return TypePivotalTracker }

func (s *pivotalTrackerService) Receive(ctx context.Context, evt domain.Event) (Result, error) {
	return s.handlers.receive(ctx, evt)
}

func (s *pivotalTrackerService) receiveTest(ctx context.Context, _ domain.Event) (Result, error) {
	return s.createStory(ctx, "Test ticket from "+productName, "")
}

func (s *pivotalTrackerService) receiveIssue(ctx context.Context, evt domain.Event) (Result, error) {
	return s.createStory(ctx, issueTitle(evt), issueBody(evt))
}

func (s *pivotalTrackerService) receiveUnit(ctx context.Context, evt domain.Event) (Result, error) {
	return s.createStory(ctx, evt.TestName, evt.Description)
}

func (s *pivotalTrackerService) createStory(ctx context.Context, name, description string) (Result, error) {
	form := url.Values{}
	form.Set("story[name]", name)
	form.Set("story[story_type]", "chore")
	form.Set("story[description]", description)
	if s.cfg.Labels != "" {
		form.Set("story[labels]", s.cfg.Labels)
	}

	endpoint := fmt.Sprintf("%s/projects/%s/stories", s.baseURL, url.PathEscape(s.cfg.ProjectID))
	headers := map[string]string{
		"Content-Type":   "application/x-www-form-urlencoded",
		"X-TrackerToken": s.cfg.APIToken,
	}
	return servicePost(ctx, s.client, endpoint, []byte(form.Encode()), headers, parseStory)
}

type trackerStory struct {
	XMLName xml.Name `xml:"story"`
	ID      string   `xml:"id"`
	URL     string   `xml:"url"`
}

// parseStory reads story/id and story/url from the XML reply. Only a 200
// carries the story document; other 2xx replies leave Fields empty.
func parseStory(resp *httpclient.Response) (map[string]string, error) {
	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var story trackerStory
	if err := xml.Unmarshal(resp.Body, &story); err != nil {
		return nil, fmt.Errorf("parse pivotal tracker story: %w", err)
	}
	return map[string]string{
		"id":  strings.TrimSpace(story.ID),
		"url": strings.TrimSpace(story.URL),
	}, nil
}
