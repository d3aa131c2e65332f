// Package rules manages legacy banner rules: free-form strips shown on pages
// whose URL matches a domain expression. They are independent of
// environment detection and cannot be dismissed.
package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/entrhq/envwarn/pkg/config"
	"github.com/entrhq/envwarn/pkg/environment"
	"github.com/entrhq/envwarn/pkg/logging"
)

// DefaultColour is used for rules saved without a colour.
const DefaultColour = "#ff0000"

// ErrDomainRequired is returned when adding a rule without a domain.
var ErrDomainRequired = errors.New("rule domain is required")

// Store persists the rule list in the rules config section.
type Store struct {
	manager *config.Manager
	logger  *logging.Logger
}

// NewStore creates a rule store over manager.
func NewStore(manager *config.Manager, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Store{manager: manager, logger: logger}
}

func (s *Store) section() *config.RulesSection {
	if s.manager == nil {
		return nil
	}
	section, ok := s.manager.GetSection(config.SectionIDRules)
	if !ok {
		return nil
	}
	rules, _ := section.(*config.RulesSection)
	return rules
}

// List returns the stored rules in order.
func (s *Store) List() []config.Rule {
	section := s.section()
	if section == nil {
		return nil
	}
	return section.Rules()
}

// Add appends rule.
func (s *Store) Add(rule config.Rule) error {
	rule.Domain = strings.TrimSpace(rule.Domain)
	if rule.Domain == "" {
		return ErrDomainRequired
	}
	if rule.Colour == "" {
		rule.Colour = DefaultColour
	}
	return s.Replace(append(s.List(), rule))
}

// Clear removes every rule.
func (s *Store) Clear() error {
	return s.Replace(nil)
}

// Replace stores rules as the complete rule list.
func (s *Store) Replace(rules []config.Rule) error {
	if s.manager == nil {
		return fmt.Errorf("no configuration store")
	}
	if err := s.manager.ReplaceSection(config.SectionIDRules, config.RulesData(rules)); err != nil {
		return fmt.Errorf("failed to save rules: %w", err)
	}
	s.logger.Infof("saved %d banner rules", len(rules))
	return nil
}

// Match returns the rules whose domain expression matches anywhere in the
// full URL, case-sensitively. Rules with a domain that does not compile
// never match.
func (s *Store) Match(rawURL string) []config.Rule {
	return Match(s.List(), rawURL)
}

// Match filters rules by rawURL.
func Match(rules []config.Rule, rawURL string) []config.Rule {
	if strings.TrimSpace(rawURL) == "" {
		return nil
	}

	var matched []config.Rule
	for _, rule := range rules {
		re, err := environment.CompileCaseSensitive(rule.Domain)
		if err != nil {
			continue
		}
		if re.MatchString(rawURL) {
			matched = append(matched, rule)
		}
	}
	return matched
}
