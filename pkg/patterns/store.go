// Package patterns owns the user's environment pattern configuration.
package patterns

import (
	"context"
	"fmt"

	"github.com/entrhq/envwarn/pkg/config"
	"github.com/entrhq/envwarn/pkg/environment"
	"github.com/entrhq/envwarn/pkg/logging"
	"github.com/entrhq/envwarn/pkg/relay"
)

// PersistError reports a failed save. The previous pattern set is still in
// effect, both in memory and on disk.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to save patterns: %v", e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// Store loads, validates and persists the PatternSet.
type Store struct {
	manager  *config.Manager
	notifier relay.Notifier
	logger   *logging.Logger
}

// NewStore creates a store over manager's patterns section. After each
// successful save notifier is told that patterns changed.
func NewStore(manager *config.Manager, notifier relay.Notifier, logger *logging.Logger) *Store {
	if notifier == nil {
		notifier = relay.Nop{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Store{
		manager:  manager,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *Store) section() *config.PatternsSection {
	if s.manager == nil {
		return nil
	}
	section, ok := s.manager.GetSection(config.SectionIDPatterns)
	if !ok {
		return nil
	}
	patterns, _ := section.(*config.PatternsSection)
	return patterns
}

// Load returns the current pattern set, or the built-in defaults when none
// is configured or the configuration is unavailable. It never fails.
func (s *Store) Load() environment.PatternSet {
	section := s.section()
	if section == nil {
		s.logger.Warnf("patterns section unavailable, using defaults")
		return environment.DefaultPatterns()
	}

	set, ok := section.PatternSet()
	if !ok {
		return environment.DefaultPatterns()
	}
	return set
}

// Configured reports whether the user has saved a pattern set.
func (s *Store) Configured() bool {
	section := s.section()
	if section == nil {
		return false
	}
	_, ok := section.PatternSet()
	return ok
}

// Save replaces the whole pattern set. Invalid patterns are stored as given;
// they never match. On failure the previous set stays in effect and the
// error is a *PersistError.
func (s *Store) Save(ctx context.Context, set environment.PatternSet) error {
	if s.manager == nil {
		return &PersistError{Err: fmt.Errorf("no configuration store")}
	}

	set = set.Clone()
	for _, env := range environment.Priority {
		if set[env] == nil {
			set[env] = []string{}
		}
	}

	if err := s.manager.ReplaceSection(config.SectionIDPatterns, config.PatternSetData(set)); err != nil {
		s.logger.Errorf("saving patterns failed: %v", err)
		return &PersistError{Err: err}
	}

	for _, invalid := range Invalid(set) {
		s.logger.Warnf("saved invalid pattern %q for %s; it will never match", invalid.Pattern, invalid.Environment)
	}
	s.logger.Infof("saved %d patterns", set.Len())

	s.notifier.NotifyPatternsChanged(ctx)
	return nil
}

// Reset replaces the pattern set with the built-in defaults.
func (s *Store) Reset(ctx context.Context) error {
	return s.Save(ctx, environment.DefaultPatterns())
}

// Validate reports whether pattern compiles. It never panics.
func (s *Store) Validate(pattern string) bool {
	return environment.ValidPattern(pattern)
}

// Add appends pattern to env's list.
func (s *Store) Add(ctx context.Context, env environment.Environment, pattern string) error {
	if !env.Known() {
		return fmt.Errorf("unknown environment %q", env)
	}
	set := s.Load()
	set[env] = append(set[env], pattern)
	return s.Save(ctx, set)
}

// Update replaces the pattern at index in env's list.
func (s *Store) Update(ctx context.Context, env environment.Environment, index int, pattern string) error {
	set := s.Load()
	if index < 0 || index >= len(set[env]) {
		return fmt.Errorf("no pattern %d for %s", index, env)
	}
	set[env][index] = pattern
	return s.Save(ctx, set)
}

// Remove deletes the pattern at index in env's list.
func (s *Store) Remove(ctx context.Context, env environment.Environment, index int) error {
	set := s.Load()
	patterns := set[env]
	if index < 0 || index >= len(patterns) {
		return fmt.Errorf("no pattern %d for %s", index, env)
	}
	set[env] = append(patterns[:index:index], patterns[index+1:]...)
	return s.Save(ctx, set)
}

// MatchCounts reports how many patterns of each environment match the
// hostname of rawURL, for live feedback while editing.
func (s *Store) MatchCounts(rawURL string) (map[environment.Environment]int, error) {
	return environment.MatchCounts(rawURL, s.Load())
}

// InvalidPattern identifies a stored pattern that does not compile.
type InvalidPattern struct {
	Environment environment.Environment
	Index       int
	Pattern     string
}

// Invalid lists the patterns of set that will never match.
func Invalid(set environment.PatternSet) []InvalidPattern {
	var invalid []InvalidPattern
	for _, env := range environment.Priority {
		for i, p := range set[env] {
			if !environment.ValidPattern(p) {
				invalid = append(invalid, InvalidPattern{Environment: env, Index: i, Pattern: p})
			}
		}
	}
	return invalid
}
