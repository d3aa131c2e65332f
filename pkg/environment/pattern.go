package environment

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
)

// PatternSet maps environments to ordered lists of hostname patterns.
// Iteration always follows Priority, never map order.
type PatternSet map[Environment][]string

// Clone returns a deep copy containing only known environments.
func (s PatternSet) Clone() PatternSet {
	out := make(PatternSet, len(Priority))
	for _, env := range Priority {
		if patterns, ok := s[env]; ok {
			out[env] = append([]string(nil), patterns...)
		}
	}
	return out
}

// Patterns returns the pattern list for env in stored order.
func (s PatternSet) Patterns(env Environment) []string {
	return s[env]
}

// Len returns the total number of patterns across all environments.
func (s PatternSet) Len() int {
	n := 0
	for _, env := range Priority {
		n += len(s[env])
	}
	return n
}

// Equal reports whether two sets hold the same patterns in the same order.
func (s PatternSet) Equal(other PatternSet) bool {
	for _, env := range Priority {
		a, b := s[env], other[env]
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
	}
	return true
}

// matchTimeout bounds a single match. Backtracking patterns that run past
// it are treated as not matching.
const matchTimeout = 100 * time.Millisecond

// Matcher is a compiled pattern.
type Matcher struct {
	re *regexp2.Regexp
}

// MatchString reports whether s contains a match. A match that times out
// counts as no match.
func (m *Matcher) MatchString(s string) bool {
	ok, err := m.re.MatchString(s)
	return err == nil && ok
}

type cacheKey struct {
	pattern string
	opts    regexp2.RegexOptions
}

// regexCache holds compiled patterns keyed by the raw pattern string and
// options. Failed compilations are cached as nil.
var regexCache sync.Map

// CompilePattern compiles an environment pattern with JavaScript regular
// expression syntax, always case-insensitively. A pattern wrapped in
// slashes (JavaScript literal style) is unwrapped first.
func CompilePattern(pattern string) (*Matcher, error) {
	return compile(pattern, regexp2.ECMAScript|regexp2.IgnoreCase)
}

// CompileCaseSensitive compiles pattern with JavaScript regular expression
// syntax and no case folding.
func CompileCaseSensitive(pattern string) (*Matcher, error) {
	return compile(pattern, regexp2.ECMAScript)
}

func compile(pattern string, opts regexp2.RegexOptions) (*Matcher, error) {
	key := cacheKey{pattern: pattern, opts: opts}
	if cached, ok := regexCache.Load(key); ok {
		if m := cached.(*Matcher); m != nil {
			return m, nil
		}
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}

	expr := normalizePattern(pattern)
	if strings.TrimSpace(expr) == "" {
		regexCache.Store(key, (*Matcher)(nil))
		return nil, fmt.Errorf("empty pattern")
	}

	re, err := regexp2.Compile(expr, opts)
	if err != nil {
		regexCache.Store(key, (*Matcher)(nil))
		return nil, fmt.Errorf("failed to compile pattern %q: %w", pattern, err)
	}
	re.MatchTimeout = matchTimeout

	m := &Matcher{re: re}
	regexCache.Store(key, m)
	return m, nil
}

// ValidPattern reports whether pattern compiles. It never panics.
func ValidPattern(pattern string) bool {
	_, err := CompilePattern(pattern)
	return err == nil
}

// normalizePattern unwraps slash literals and drops inline case flags; case
// handling comes from the compile options alone.
func normalizePattern(pattern string) string {
	if len(pattern) > 2 && pattern[0] == '/' && pattern[len(pattern)-1] == '/' {
		pattern = pattern[1 : len(pattern)-1]
	}
	pattern = strings.ReplaceAll(pattern, "(?-i)", "")
	pattern = strings.ReplaceAll(pattern, "(?i)", "")
	return pattern
}
