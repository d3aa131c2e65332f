package environment

import (
	"errors"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// ErrNoActiveURL is returned when the page being classified has no usable URL.
// It is distinct from an Unrecognized result.
var ErrNoActiveURL = errors.New("could not determine the current page URL")

// Result is the outcome of classifying one URL.
type Result struct {
	Environment    Environment
	MatchedPattern string
	Hostname       string
	URL            string
}

// Matched reports whether a pattern matched.
func (r Result) Matched() bool {
	return r.Environment != Unrecognized && r.Environment != ""
}

// Classify returns the environment of rawURL according to set.
//
// Only the hostname is matched, so query strings and paths never influence
// the result. Environments are checked in Priority order and patterns in
// stored order; the first match wins. Patterns that are empty or fail to
// compile never match. When nothing matches the result is Unrecognized.
func Classify(rawURL string, set PatternSet) (Result, error) {
	hostname, err := Hostname(rawURL)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Environment: Unrecognized,
		Hostname:    hostname,
		URL:         rawURL,
	}
	if hostname == "" {
		return result, nil
	}

	for _, env := range Priority {
		for _, pattern := range set[env] {
			re, err := CompilePattern(pattern)
			if err != nil {
				continue
			}
			if re.MatchString(hostname) {
				result.Environment = env
				result.MatchedPattern = pattern
				return result, nil
			}
		}
	}

	return result, nil
}

// Hostname extracts the normalized hostname of rawURL: lower case, without
// port, in its ASCII (punycode) form. URLs without a scheme are rejected.
func Hostname(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", ErrNoActiveURL
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return "", ErrNoActiveURL
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", nil
	}
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		host = ascii
	}
	return host, nil
}

// MatchCounts returns, per environment, how many patterns of set match the
// hostname of rawURL. Invalid patterns are not counted.
func MatchCounts(rawURL string, set PatternSet) (map[Environment]int, error) {
	hostname, err := Hostname(rawURL)
	if err != nil {
		return nil, err
	}

	counts := make(map[Environment]int, len(Priority))
	for _, env := range Priority {
		counts[env] = 0
		if hostname == "" {
			continue
		}
		for _, pattern := range set[env] {
			if re, err := CompilePattern(pattern); err == nil && re.MatchString(hostname) {
				counts[env]++
			}
		}
	}
	return counts, nil
}
