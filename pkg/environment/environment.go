// Package environment classifies page URLs into deployment environments.
//
// A PatternSet maps each Environment to an ordered list of regular
// expressions matched against a page's hostname. Classification walks the
// environments in Priority order and returns the first environment with a
// matching pattern, or Unrecognized when nothing matches.
package environment

import (
	"fmt"
	"strings"
)

// Environment is a deployment-stage label.
type Environment string

const (
	Production   Environment = "production"
	Staging      Environment = "staging"
	Development  Environment = "development"
	Test         Environment = "test"
	Unrecognized Environment = "unrecognized"
)

// Priority is the fixed order in which environments are checked.
// The first environment with a matching pattern wins.
var Priority = []Environment{Production, Staging, Development, Test}

// Known reports whether e is one of the classifiable environments.
// Unrecognized is not a classifiable environment.
func (e Environment) Known() bool {
	for _, env := range Priority {
		if e == env {
			return true
		}
	}
	return false
}

// String returns the label.
func (e Environment) String() string {
	return string(e)
}

// Parse converts a user-supplied name into an Environment.
// Matching is case-insensitive and accepts the short forms used in
// hostnames (prod, stg, dev, qa).
func Parse(name string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "production", "prod":
		return Production, nil
	case "staging", "stg":
		return Staging, nil
	case "development", "dev":
		return Development, nil
	case "test", "qa":
		return Test, nil
	default:
		return "", fmt.Errorf("unknown environment %q (expected one of production, staging, development, test)", name)
	}
}
