package config

import (
	"fmt"
	"sync"
)

const (
	// SectionIDRules is the identifier for the legacy banner rule section
	SectionIDRules = "rules"
)

// Rule is a legacy banner rule: pages whose URL matches Domain get a strip
// showing Text on a Colour background.
type Rule struct {
	Domain string `json:"domain" yaml:"domain"`
	Text   string `json:"text" yaml:"text"`
	Colour string `json:"colour" yaml:"colour"`
}

// RulesSection stores the legacy rule list.
type RulesSection struct {
	rules []Rule
	mu    sync.RWMutex
}

// NewRulesSection creates an empty rules section.
func NewRulesSection() *RulesSection {
	return &RulesSection{}
}

// ID returns the section identifier.
func (s *RulesSection) ID() string {
	return SectionIDRules
}

// Title returns the section title.
func (s *RulesSection) Title() string {
	return "Banner Rules"
}

// Description returns the section description.
func (s *RulesSection) Description() string {
	return "Free-form banners shown on pages whose URL matches a domain expression. Independent of environment detection."
}

// Data returns the current configuration data.
func (s *RulesSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return RulesData(s.rules)
}

// SetData updates the configuration from the provided data.
func (s *RulesSection) SetData(data map[string]interface{}) error {
	raw, ok := data["rules"]
	if !ok || raw == nil {
		s.mu.Lock()
		s.rules = nil
		s.mu.Unlock()
		return nil
	}

	var items []interface{}
	switch v := raw.(type) {
	case []interface{}:
		items = v
	case []map[string]interface{}:
		for _, m := range v {
			items = append(items, m)
		}
	default:
		return fmt.Errorf("invalid value type for rules: expected list, got %T", raw)
	}

	rules := make([]Rule, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			return fmt.Errorf("rule %d: expected object, got %T", i, item)
		}
		domain, _ := m["domain"].(string)
		text, _ := m["text"].(string)
		colour, _ := m["colour"].(string)
		rules = append(rules, Rule{Domain: domain, Text: text, Colour: colour})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = rules
	return nil
}

// Validate validates the current configuration.
func (s *RulesSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i, r := range s.rules {
		if r.Domain == "" {
			return fmt.Errorf("rule %d: domain is required", i)
		}
	}
	return nil
}

// Reset clears all rules.
func (s *RulesSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = nil
}

// Rules returns a copy of the rule list.
func (s *RulesSection) Rules() []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Rule(nil), s.rules...)
}

// RulesData converts a rule list into section data.
func RulesData(rules []Rule) map[string]interface{} {
	items := make([]interface{}, 0, len(rules))
	for _, r := range rules {
		items = append(items, map[string]interface{}{
			"domain": r.Domain,
			"text":   r.Text,
			"colour": r.Colour,
		})
	}
	return map[string]interface{}{"rules": items}
}
