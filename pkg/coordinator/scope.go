package coordinator

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Scope decides which pages are observed and get a banner.
type Scope struct {
	patterns []glob.Glob
}

// NewScope compiles URL glob patterns such as "https://*.example.com/*".
// An empty list observes nothing.
func NewScope(patterns []string) (*Scope, error) {
	s := &Scope{}
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid observed URL pattern '%s': %w", pattern, err)
		}
		s.patterns = append(s.patterns, g)
	}
	return s, nil
}

// Observed reports whether url matches any scope pattern.
func (s *Scope) Observed(url string) bool {
	if s == nil {
		return false
	}
	for _, pattern := range s.patterns {
		if pattern.Match(url) {
			return true
		}
	}
	return false
}
