package config

import (
	"fmt"
	"sync"

	"github.com/entrhq/envwarn/pkg/environment"
)

const (
	// SectionIDPatterns is the identifier for the environment pattern section
	SectionIDPatterns = "env_patterns"
)

// PatternsSection holds the user's environment → pattern-list mapping.
// An unconfigured section means "use the built-in defaults".
type PatternsSection struct {
	set        environment.PatternSet
	configured bool
	mu         sync.RWMutex
}

// NewPatternsSection creates an unconfigured patterns section.
func NewPatternsSection() *PatternsSection {
	return &PatternsSection{}
}

// ID returns the section identifier.
func (s *PatternsSection) ID() string {
	return SectionIDPatterns
}

// Title returns the section title.
func (s *PatternsSection) Title() string {
	return "Environment Patterns"
}

// Description returns the section description.
func (s *PatternsSection) Description() string {
	return "Regular expressions matched against the page hostname, per environment. Environments are checked in the order production, staging, development, test."
}

// Data returns the current configuration data. An unconfigured section
// has no data.
func (s *PatternsSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.configured {
		return make(map[string]interface{})
	}
	return PatternSetData(s.set)
}

// SetData replaces the pattern set. Data without any environment key marks
// the section unconfigured. Keys that are not environments are ignored; a value that is
// not a list of strings rejects the whole document.
func (s *PatternsSection) SetData(data map[string]interface{}) error {
	if len(data) == 0 {
		s.mu.Lock()
		s.set = nil
		s.configured = false
		s.mu.Unlock()
		return nil
	}

	set := make(environment.PatternSet, len(environment.Priority))
	known := 0
	for _, env := range environment.Priority {
		value, ok := data[string(env)]
		if !ok || value == nil {
			set[env] = []string{}
			continue
		}
		known++

		patterns, err := toStringSlice(value)
		if err != nil {
			return fmt.Errorf("invalid pattern list for %s: %w", env, err)
		}
		set[env] = patterns
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if known == 0 {
		s.set = nil
		s.configured = false
		return nil
	}
	s.set = set
	s.configured = true
	return nil
}

// Validate validates the current configuration. Individual patterns that
// do not compile are allowed; they never match.
func (s *PatternsSection) Validate() error {
	return nil
}

// Reset marks the section unconfigured.
func (s *PatternsSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set = nil
	s.configured = false
}

// PatternSet returns a copy of the configured set and whether one exists.
func (s *PatternsSection) PatternSet() (environment.PatternSet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.configured {
		return nil, false
	}
	return s.set.Clone(), true
}

// PatternSetData converts a pattern set into section data.
func PatternSetData(set environment.PatternSet) map[string]interface{} {
	data := make(map[string]interface{}, len(environment.Priority))
	for _, env := range environment.Priority {
		patterns := make([]interface{}, 0, len(set[env]))
		for _, p := range set[env] {
			patterns = append(patterns, p)
		}
		data[string(env)] = patterns
	}
	return data
}

func toStringSlice(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return append([]string(nil), v...), nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("item %d: expected string, got %T", i, item)
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected list of strings, got %T", value)
	}
}
