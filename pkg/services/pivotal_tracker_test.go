package services

import (
	"context"
	"net/url"
	"testing"

	"github.com/noelia-lencina/codeclimate-services/internal/domain"
)

const storyXML = `<?xml version="1.0" encoding="UTF-8"?>
<story>
  <id type="integer">42</id>
  <url>https://www.pivotaltracker.com/story/show/42</url>
  <name>name</name>
</story>`

func newTestPivotal(t *testing.T, cfg PivotalTrackerConfig, status int, body string) (Service, *fakeTransport) {
	t.Helper()
	endpoint := pivotalTrackerBaseURL + "/projects/" + cfg.ProjectID + "/stories"
	deps, tr := newFakeDeps(map[string]cannedReply{endpoint: {status: status, body: body}})
	svc, err := newPivotalTrackerService(context.Background(), ServiceConfig{
		ID: "pt", Type: TypePivotalTracker, PivotalTracker: &cfg,
	}, deps)
	if err != nil {
		t.Fatalf("newPivotalTrackerService: %v", err)
	}
	return svc, tr
}

func TestPivotalTrackerCreatesStory(t *testing.T) {
	svc, tr := newTestPivotal(t, PivotalTrackerConfig{APIToken: "token", ProjectID: "123", Labels: "code-climate"}, 200, storyXML)

	res, err := svc.Receive(context.Background(), domain.Event{Name: domain.EventUnit, TestName: "name", Description: "description"})
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if res.Fields["id"] != "42" || res.Fields["url"] != "https://www.pivotaltracker.com/story/show/42" {
		t.Fatalf("unexpected fields %#v", res.Fields)
	}

	sent := tr.last()
	if sent.header["X-TrackerToken"] != "token" {
		t.Fatalf("missing tracker token header")
	}
	form, _ := url.ParseQuery(sent.body)
	if form.Get("story[name]") != "name" || form.Get("story[story_type]") != "chore" ||
		form.Get("story[description]") != "description" || form.Get("story[labels]") != "code-climate" {
		t.Fatalf("unexpected form %v", form)
	}
}

func TestPivotalTrackerNon200SuccessHasNoFields(t *testing.T) {
	svc, _ := newTestPivotal(t, PivotalTrackerConfig{APIToken: "token", ProjectID: "123"}, 201, storyXML)

	res, err := svc.Receive(context.Background(), domain.Event{Name: domain.EventTest})
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if !res.OK || res.Status != 201 || len(res.Fields) != 0 {
		t.Fatalf("unexpected result %#v", res)
	}
}

func TestPivotalTrackerOmitsEmptyLabels(t *testing.T) {
	svc, tr := newTestPivotal(t, PivotalTrackerConfig{APIToken: "token", ProjectID: "123"}, 200, storyXML)

	if _, err := svc.Receive(context.Background(), domain.Event{Name: domain.EventTest}); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	form, _ := url.ParseQuery(tr.last().body)
	if _, ok := form["story[labels]"]; ok {
		t.Fatalf("labels must be omitted when not configured")
	}
}

func TestPivotalTrackerParsesStoryWithSelfClosingElements(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<story>
  <labels/>
  <accepted_at nil="true"/>
  <id type="integer">4321</id>
  <url>https://www.pivotaltracker.com/story/show/4321</url>
</story>`
	svc, _ := newTestPivotal(t, PivotalTrackerConfig{APIToken: "token", ProjectID: "123"}, 200, body)

	res, err := svc.Receive(context.Background(), domain.Event{Name: domain.EventTest})
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if res.Fields["id"] != "4321" || res.Fields["url"] != "https://www.pivotaltracker.com/story/show/4321" {
		t.Fatalf("unexpected fields %#v", res.Fields)
	}
}

func TestPivotalTrackerRejectsMalformedStory(t *testing.T) {
	svc, _ := newTestPivotal(t, PivotalTrackerConfig{APIToken: "token", ProjectID: "123"}, 200, `<story><id>1</story>`)

	if _, err := svc.Receive(context.Background(), domain.Event{Name: domain.EventTest}); err == nil {
		t.Fatalf("expected parse error for malformed XML")
	}
}
