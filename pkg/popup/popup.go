// Package popup builds the on-demand environment summary for the active
// browsing context.
package popup

import (
	"context"
	"errors"

	"github.com/entrhq/envwarn/pkg/environment"
	"github.com/entrhq/envwarn/pkg/logging"
)

// Status is the outcome kind of a summary.
type Status string

const (
	StatusEnvironment Status = "environment"
	StatusUnknown     Status = "unknown"
	StatusError       Status = "error"
)

// ErrNoActiveContext is returned by an ActiveTab with no foreground context.
var ErrNoActiveContext = errors.New("no active browsing context")

// ActiveTab reports the URL of the foreground browsing context.
type ActiveTab interface {
	ActiveURL(ctx context.Context) (string, error)
}

// ActiveTabFunc adapts a function to ActiveTab.
type ActiveTabFunc func(ctx context.Context) (string, error)

func (f ActiveTabFunc) ActiveURL(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticURL is an ActiveTab that always reports the same URL.
type StaticURL string

func (u StaticURL) ActiveURL(context.Context) (string, error) {
	return string(u), nil
}

// PatternSource yields the pattern set to classify against.
type PatternSource interface {
	Load() environment.PatternSet
}

// PatternSourceFunc adapts a function to PatternSource.
type PatternSourceFunc func() environment.PatternSet

func (f PatternSourceFunc) Load() environment.PatternSet {
	return f()
}

// Summary is what the popup shows.
type Summary struct {
	Status      Status
	Environment environment.Environment
	Style       environment.Style

	// Heading is the upper-case environment name.
	Heading        string
	Hostname       string
	URL            string
	MatchedPattern string

	// Reason explains an error status.
	Reason string
}

// Controller produces summaries. It holds no per-invocation state.
type Controller struct {
	tab      ActiveTab
	patterns PatternSource
	logger   *logging.Logger
}

// NewController creates a popup controller.
func NewController(tab ActiveTab, patterns PatternSource, logger *logging.Logger) *Controller {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Controller{tab: tab, patterns: patterns, logger: logger}
}

// Summarize classifies the active page against a freshly loaded pattern
// set. An unrecognized page yields StatusUnknown; a page whose URL cannot
// be read or classified yields StatusError with the reason.
func (c *Controller) Summarize(ctx context.Context) Summary {
	url, err := c.activeURL(ctx)
	if err != nil {
		return errorSummary(url, err)
	}

	var set environment.PatternSet
	if c.patterns != nil {
		set = c.patterns.Load()
	}

	result, err := environment.Classify(url, set)
	if err != nil {
		return errorSummary(url, err)
	}

	style := environment.StyleFor(result.Environment)
	summary := Summary{
		Status:         StatusEnvironment,
		Environment:    result.Environment,
		Style:          style,
		Heading:        style.Upper(),
		Hostname:       result.Hostname,
		URL:            result.URL,
		MatchedPattern: result.MatchedPattern,
	}
	if !result.Matched() {
		summary.Status = StatusUnknown
		summary.Heading = "UNKNOWN"
	}

	c.logger.Debugf("popup summary for %s: %s", result.Hostname, result.Environment)
	return summary
}

func (c *Controller) activeURL(ctx context.Context) (string, error) {
	if c.tab == nil {
		return "", ErrNoActiveContext
	}
	return c.tab.ActiveURL(ctx)
}

func errorSummary(url string, err error) Summary {
	style := environment.ErrorStyle
	reason := err.Error()
	if errors.Is(err, environment.ErrNoActiveURL) {
		reason = "Unable to access the current page URL."
	}
	style.Message = "Error: " + reason

	return Summary{
		Status:      StatusError,
		Environment: environment.Unrecognized,
		Style:       style,
		Heading:     "ERROR",
		URL:         url,
		Reason:      reason,
	}
}
