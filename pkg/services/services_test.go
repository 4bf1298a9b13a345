package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeServicesFile(t *testing.T, name, raw string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestLoadRegistryEnabledFilter(t *testing.T) {
	path := writeServicesFile(t, "services.yaml", `
services:
  - id: hook1
    type: webhook
    enabled: false
    webhook:
      url: https://example.com
  - id: hook2
    type: WEBHOOK
    webhook:
      url: " https://example.com/2 "
      headers:
        X-Token: abc
        X-Empty: ""
  - id: queue
    type: sqs
    sqs:
      uri: https://sqs.us-east-1.amazonaws.com/1/q
      region: us-east-1
`)

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	enabled := reg.Enabled()
	if len(enabled) != 2 || enabled[0].ID != "hook2" || enabled[1].ID != "queue" {
		t.Fatalf("expected hook2 and queue enabled, got %#v", enabled)
	}

	hook, ok := reg.ByID("hook2")
	if !ok || hook.Type != TypeWebhook || hook.Webhook.URL != "https://example.com/2" {
		t.Fatalf("expected sanitized webhook, got %#v", hook)
	}
	if len(hook.Webhook.Headers) != 1 || hook.Webhook.Headers["X-Token"] != "abc" {
		t.Fatalf("expected empty header dropped, got %#v", hook.Webhook.Headers)
	}

	queue, _ := reg.ByID("queue")
	if queue.SQS.Region != "us-east-1" {
		t.Fatalf("inline aws credentials not decoded: %#v", queue.SQS)
	}
}

func TestLoadRegistryJSON(t *testing.T) {
	path := writeServicesFile(t, "services.json", `{"services":[{"id":"a","type":"asana","asana":{"personal_access_token":"p","workspace_id":"1"}}]}`)

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if len(reg.All()) != 1 {
		t.Fatalf("expected one service")
	}
}

func TestLoadRegistryRejectsInvalidAndDuplicates(t *testing.T) {
	invalid := writeServicesFile(t, "invalid.yaml", `
services:
  - id: pt
    type: pivotal_tracker
    pivotal_tracker:
      api_token: token
`)
	if _, err := LoadRegistry(invalid); err == nil || !strings.Contains(err.Error(), "pivotal_tracker.project_id can't be blank") {
		t.Fatalf("expected project_id validation error, got %v", err)
	}

	dup := writeServicesFile(t, "dup.yaml", `
services:
  - id: same
    type: webhook
    webhook: {url: "https://a.example.com"}
  - id: same
    type: webhook
    webhook: {url: "https://b.example.com"}
`)
	if _, err := LoadRegistry(dup); err == nil || !strings.Contains(err.Error(), "duplicate service id") {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
}

func TestLoadConfigsEmptyFile(t *testing.T) {
	path := writeServicesFile(t, "empty.yaml", "services: []\n")
	if _, err := LoadConfigs(path); err == nil {
		t.Fatalf("expected error for empty services list")
	}
}

func TestValidateRejectsMissingBlockAndUnknownType(t *testing.T) {
	errs := Validate(ServiceConfig{ID: "h1", Type: TypeHipChat})
	if got := errs["hipchat"]; len(got) != 1 || got[0] != "configuration block is required" {
		t.Fatalf("expected missing block error, got %v", errs)
	}

	errs = Validate(ServiceConfig{ID: "c1", Type: "campfire"})
	if _, ok := errs["type"]; !ok {
		t.Fatalf("expected unknown type error, got %v", errs)
	}

	errs = Validate(ServiceConfig{Type: TypePubSub, PubSub: &PubSubConfig{ProjectID: "p"}})
	if errs.Error() != "id can't be blank; pubsub.topic_id can't be blank" {
		t.Fatalf("unexpected errors %q", errs.Error())
	}
}

func TestValidationErrorsErrNil(t *testing.T) {
	if err := (ValidationErrors{}).Err(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
