package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	// Supported service types.
	TypeAsana          = "asana"
	TypeHipChat        = "hipchat"
	TypePivotalTracker = "pivotal_tracker"
	TypeWebhook        = "webhook"
	TypeSQS            = "sqs"
	TypeSNS            = "sns"
	TypePubSub         = "pubsub"
)

// configFile represents the structure of the services configuration file.
type configFile struct {
	Services []ServiceConfig `json:"services" yaml:"services"`
}

// ServiceConfig is a single service entry declared in the services file. Only
// the block matching Type is used.
type ServiceConfig struct {
	ID            string  `json:"id" yaml:"id"`
	Type          string  `json:"type" yaml:"type"`
	Enabled       *bool   `json:"enabled" yaml:"enabled"`
	RatePerSecond float64 `json:"rate_per_second" yaml:"rate_per_second"`

	Asana          *AsanaConfig          `json:"asana" yaml:"asana"`
	HipChat        *HipChatConfig        `json:"hipchat" yaml:"hipchat"`
	PivotalTracker *PivotalTrackerConfig `json:"pivotal_tracker" yaml:"pivotal_tracker"`
	Webhook        *WebhookConfig        `json:"webhook" yaml:"webhook"`
	SQS            *SQSConfig            `json:"sqs" yaml:"sqs"`
	SNS            *SNSConfig            `json:"sns" yaml:"sns"`
	PubSub         *PubSubConfig         `json:"pubsub" yaml:"pubsub"`
}

// ConfigRegistry holds validated service definitions loaded from a file.
type ConfigRegistry struct {
	mu       sync.RWMutex
	services []ServiceConfig
	idx      map[string]ServiceConfig
}

// LoadConfigs reads and sanitizes the services file without validating the
// per-service settings.
func LoadConfigs(path string) ([]ServiceConfig, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("services file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open services file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read services file: %w", err)
	}

	parsed, err := parseServicesFile(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(parsed.Services) == 0 {
		return nil, errors.New("services file contains no services entries")
	}

	out := make([]ServiceConfig, len(parsed.Services))
	for i := range parsed.Services {
		out[i] = sanitizeServiceConfig(parsed.Services[i])
	}
	return out, nil
}

// LoadRegistry loads and validates the services file.
func LoadRegistry(path string) (*ConfigRegistry, error) {
	cfgs, err := LoadConfigs(path)
	if err != nil {
		return nil, err
	}

	reg := &ConfigRegistry{
		services: make([]ServiceConfig, len(cfgs)),
		idx:      make(map[string]ServiceConfig, len(cfgs)),
	}

	for i, cfg := range cfgs {
		if err := Validate(cfg).Err(); err != nil {
			return nil, fmt.Errorf("services[%d] %q: %w", i, cfg.ID, err)
		}
		if _, exists := reg.idx[cfg.ID]; exists {
			return nil, fmt.Errorf("duplicate service id %q", cfg.ID)
		}
		reg.services[i] = cfg
		reg.idx[cfg.ID] = cfg
	}

	return reg, nil
}

func parseServicesFile(data []byte, ext string) (configFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		if parsed, err := unmarshalServicesFile(d.name, data, d.fn); err == nil {
			return parsed, nil
		}
	}

	return configFile{}, errors.New("services file format not recognized (expected YAML or JSON)")
}

func unmarshalServicesFile(name string, data []byte, fn func([]byte, any) error) (configFile, error) {
	var parsed configFile
	if err := fn(data, &parsed); err != nil {
		return configFile{}, fmt.Errorf("decode %s services: %w", name, err)
	}
	return parsed, nil
}

func sanitizeServiceConfig(cfg ServiceConfig) ServiceConfig {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))

	if cfg.Enabled == nil {
		def := true
		cfg.Enabled = &def
	}
	if cfg.RatePerSecond < 0 {
		cfg.RatePerSecond = 0
	}
	if cfg.Asana != nil {
		c := cfg.Asana.sanitize()
		cfg.Asana = &c
	}
	if cfg.HipChat != nil {
		c := cfg.HipChat.sanitize()
		cfg.HipChat = &c
	}
	if cfg.PivotalTracker != nil {
		c := cfg.PivotalTracker.sanitize()
		cfg.PivotalTracker = &c
	}
	if cfg.Webhook != nil {
		c := cfg.Webhook.sanitize()
		cfg.Webhook = &c
	}
	if cfg.SQS != nil {
		c := cfg.SQS.sanitize()
		cfg.SQS = &c
	}
	if cfg.SNS != nil {
		c := cfg.SNS.sanitize()
		cfg.SNS = &c
	}
	if cfg.PubSub != nil {
		c := cfg.PubSub.sanitize()
		cfg.PubSub = &c
	}
	return cfg
}

// sanitizeHeaders trims and removes empty headers.
func sanitizeHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		key := strings.TrimSpace(k)
		val := strings.TrimSpace(v)
		if key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Validate checks the common fields and the settings block for cfg.Type.
func Validate(cfg ServiceConfig) ValidationErrors {
	errs := ValidationErrors{}
	requirePresent(errs, "id", cfg.ID)
	requirePresent(errs, "type", cfg.Type)
	if cfg.Type == "" {
		return errs
	}

	var block validatable
	switch cfg.Type {
	case TypeAsana:
		if cfg.Asana != nil {
			block = cfg.Asana
		}
	case TypeHipChat:
		if cfg.HipChat != nil {
			block = cfg.HipChat
		}
	case TypePivotalTracker:
		if cfg.PivotalTracker != nil {
			block = cfg.PivotalTracker
		}
	case TypeWebhook:
		if cfg.Webhook != nil {
			block = cfg.Webhook
		}
	case TypeSQS:
		if cfg.SQS != nil {
			block = cfg.SQS
		}
	case TypeSNS:
		if cfg.SNS != nil {
			block = cfg.SNS
		}
	case TypePubSub:
		if cfg.PubSub != nil {
			block = cfg.PubSub
		}
	default:
		errs.Add("type", fmt.Sprintf("%q is not a known service type", cfg.Type))
		return errs
	}

	if block == nil {
		errs.Add(cfg.Type, "configuration block is required")
		return errs
	}
	for field, msgs := range block.Validate() {
		for _, msg := range msgs {
			errs.Add(cfg.Type+"."+field, msg)
		}
	}
	return errs
}

type validatable interface {
	Validate() ValidationErrors
}

// ByID returns the service config by id.
func (r *ConfigRegistry) ByID(id string) (ServiceConfig, bool) {
	if r == nil {
		return ServiceConfig{}, false
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return ServiceConfig{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.idx[id]
	return cfg, ok
}

// All returns all configured services.
func (r *ConfigRegistry) All() []ServiceConfig {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ServiceConfig, len(r.services))
	copy(out, r.services)
	return out
}

// Enabled returns services that are enabled.
func (r *ConfigRegistry) Enabled() []ServiceConfig {
	all := r.All()
	if len(all) == 0 {
		return nil
	}

	out := make([]ServiceConfig, 0, len(all))
	for _, cfg := range all {
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out
}

// EnabledValue returns enabled flag defaulting to true.
func (cfg ServiceConfig) EnabledValue() bool {
	if cfg.Enabled == nil {
		return true
	}
	return *cfg.Enabled
}
