// Package config persists rulesets and routes as plain structured data: a
// named map from ruleset identifier to an ordered list of rule-source
// strings, plus an ordered list of file-pattern routes and alert-channel
// settings.
//
// The on-disk document is YAML (gopkg.in/yaml.v3), which reads more
// naturally than JSON for hand-edited rule lines. Rule-source strings
// themselves stay opaque to the store — one ruleset is handed to the
// parser as a list of lines at a time, so the on-disk encoding is purely
// an implementation choice.
package config

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/anthropics/tinyvalid/internal/router"
)

// SystemConfig holds alert-channel configuration, opaque to the store
// itself and handed to internal/alert.Manager.Configure.
type SystemConfig struct {
	SMTP            SMTPConfig        `yaml:"smtp_config,omitempty"`
	EmailRecipients []string          `yaml:"email_recipients,omitempty"`
	Ticketing       TicketingConfig   `yaml:"ticketing,omitempty"`
	Extra           map[string]string `yaml:"extra,omitempty"`
}

// SMTPConfig configures the email alert channel.
type SMTPConfig struct {
	Server         string `yaml:"server,omitempty"`
	Port           int    `yaml:"port,omitempty"`
	SenderEmail    string `yaml:"sender_email,omitempty"`
	SenderPassword string `yaml:"sender_password,omitempty"`
}

// TicketingConfig configures the incident-ticket alert channel.
type TicketingConfig struct {
	InstanceURL string `yaml:"instance_url,omitempty"`
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
}

// document is the on-disk YAML shape.
type document struct {
	Version      string                `yaml:"version"`
	LastUpdated  time.Time             `yaml:"last_updated"`
	Routes       []router.Route        `yaml:"routes"`
	Rulesets     map[string][]string   `yaml:"rulesets"`
	SystemConfig SystemConfig          `yaml:"system_config"`
}

// Store is a file-backed configuration store for routes and rulesets.
// It is safe for concurrent use.
type Store struct {
	path string

	mu  sync.RWMutex
	doc document
}

// New creates a Store bound to path. Call Load to populate it from disk;
// a Store with no prior Load holds an empty document.
func New(path string) *Store {
	return &Store{
		path: path,
		doc: document{
			Version:  "1.0",
			Rulesets: make(map[string][]string),
		},
	}
}

// Load reads the configuration file from disk if it exists. A missing
// file is not an error — the store simply keeps its current contents.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: read %s: %w", s.path, err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("config: parse %s: %w", s.path, err)
	}
	if doc.Rulesets == nil {
		doc.Rulesets = make(map[string][]string)
	}
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	return nil
}

// Save writes the configuration file to disk, stamping LastUpdated.
func (s *Store) Save() error {
	s.mu.Lock()
	s.doc.LastUpdated = time.Now()
	data, err := yaml.Marshal(s.doc)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", s.path, err)
	}
	return nil
}

// AddRuleset adds or replaces a named ordered list of rule-source strings
// and persists the change.
func (s *Store) AddRuleset(name string, ruleLines []string) error {
	s.mu.Lock()
	s.doc.Rulesets[name] = append([]string(nil), ruleLines...)
	s.mu.Unlock()
	return s.Save()
}

// GetRuleset returns the rule-source lines for a named ruleset, or nil if
// it does not exist.
func (s *Store) GetRuleset(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Rulesets[name]
}

// AddRoute adds or replaces a route by pattern and re-persists the
// priority-sorted route list.
func (s *Store) AddRoute(pattern, ruleset string, priority int) error {
	s.mu.Lock()
	filtered := s.doc.Routes[:0:0]
	for _, r := range s.doc.Routes {
		if r.Pattern != pattern {
			filtered = append(filtered, r)
		}
	}
	filtered = append(filtered, router.Route{Pattern: pattern, Ruleset: ruleset, Priority: priority})
	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Priority > filtered[j].Priority })
	s.doc.Routes = filtered
	s.mu.Unlock()
	return s.Save()
}

// GetRoutes returns a copy of the current route list.
func (s *Store) GetRoutes() []router.Route {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]router.Route, len(s.doc.Routes))
	copy(out, s.doc.Routes)
	return out
}

// SetSystemConfig replaces the alert-channel configuration and persists
// it.
func (s *Store) SetSystemConfig(cfg SystemConfig) error {
	s.mu.Lock()
	s.doc.SystemConfig = cfg
	s.mu.Unlock()
	return s.Save()
}

// GetSystemConfig returns the current alert-channel configuration.
func (s *Store) GetSystemConfig() SystemConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.SystemConfig
}
