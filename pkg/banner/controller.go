package banner

import (
	"context"
	"fmt"
	"sync"

	"github.com/entrhq/envwarn/pkg/environment"
	"github.com/entrhq/envwarn/pkg/logging"
	"github.com/entrhq/envwarn/pkg/relay"
)

// State is the banner state of one browsing context.
type State int

const (
	Hidden State = iota
	Visible
	Dismissed
)

func (s State) String() string {
	switch s {
	case Hidden:
		return "hidden"
	case Visible:
		return "visible"
	case Dismissed:
		return "dismissed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// DismissalState records a user dismissal. It only applies while the
// context keeps classifying as DismissedFor.
type DismissalState struct {
	Dismissed    bool
	DismissedFor environment.Environment
}

// Renderer draws and removes the banner of one context. Both calls must be
// idempotent; Show replaces any banner already drawn.
type Renderer interface {
	Show(ctx context.Context, view View) error
	Hide(ctx context.Context) error
}

// PatternSource yields the pattern set to classify against.
// *patterns.Store implements it.
type PatternSource interface {
	Load() environment.PatternSet
}

// Config wires a Controller to its collaborators.
type Config struct {
	ContextID string
	Patterns  PatternSource
	Renderer  Renderer
	Notifier  relay.Notifier
	Layout    Layout
	Logger    *logging.Logger

	// Observed limits the banner to matching URLs. Nil observes every URL.
	Observed func(url string) bool
}

// Controller is the banner state machine for one browsing context.
type Controller struct {
	contextID string
	patterns  PatternSource
	renderer  Renderer
	notifier  relay.Notifier
	layout    Layout
	logger    *logging.Logger
	observed  func(url string) bool

	mu        sync.Mutex
	state     State
	env       environment.Environment
	lastSeen  string
	dismissal DismissalState
}

// NewController creates a controller in the Hidden state.
func NewController(cfg Config) *Controller {
	if cfg.Notifier == nil {
		cfg.Notifier = relay.Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	return &Controller{
		contextID: cfg.ContextID,
		patterns:  cfg.Patterns,
		renderer:  cfg.Renderer,
		notifier:  cfg.Notifier,
		layout:    cfg.Layout,
		logger:    cfg.Logger,
		observed:  cfg.Observed,
		state:     Hidden,
	}
}

// ContextID returns the id of the browsing context.
func (c *Controller) ContextID() string {
	return c.contextID
}

// State returns the current state and the environment it refers to.
func (c *Controller) State() (State, environment.Environment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.env
}

// Dismissal returns the current dismissal record.
func (c *Controller) Dismissal() DismissalState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dismissal
}

// LastSeen returns the most recent URL passed to Navigate.
func (c *Controller) LastSeen() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

// Navigate classifies url and updates the banner. If another navigation
// started while this one was classifying, this result is discarded.
// URLs outside the observed scope hide the banner without classification.
func (c *Controller) Navigate(ctx context.Context, url string) {
	if c.observed != nil && !c.observed(url) {
		c.Unobserve(ctx)
		return
	}

	c.mu.Lock()
	c.lastSeen = url
	c.mu.Unlock()

	var set environment.PatternSet
	if c.patterns != nil {
		set = c.patterns.Load()
	}
	result, err := environment.Classify(url, set)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastSeen != url {
		c.logger.Debugf("[%s] discarding stale classification of %s", c.contextID, url)
		return
	}
	c.apply(ctx, result, err)
}

// Refresh reclassifies the last-seen URL with a freshly loaded pattern set.
func (c *Controller) Refresh(ctx context.Context) {
	url := c.LastSeen()
	if url == "" {
		return
	}
	c.Navigate(ctx, url)
}

// Unobserve hides the banner for a page outside the observed scope.
// Refresh does nothing until the next Navigate.
func (c *Controller) Unobserve(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSeen = ""
	c.hide(ctx)
}

// Dismiss hides a visible banner for as long as the context keeps the same
// environment. It does nothing in any other state.
func (c *Controller) Dismiss(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Visible {
		return
	}

	c.state = Dismissed
	c.dismissal = DismissalState{Dismissed: true, DismissedFor: c.env}
	c.logger.Infof("[%s] banner dismissed for %s", c.contextID, c.env)

	if err := c.renderer.Hide(ctx); err != nil {
		c.logger.Warnf("[%s] failed to hide banner: %v", c.contextID, err)
	}
}

// apply must be called with c.mu held.
func (c *Controller) apply(ctx context.Context, result environment.Result, err error) {
	if err != nil || !result.Matched() {
		if err != nil {
			c.logger.Debugf("[%s] no classification: %v", c.contextID, err)
		}
		c.hide(ctx)
		return
	}

	env := result.Environment
	if c.state == Dismissed && c.dismissal.DismissedFor == env {
		return
	}

	if c.dismissal.Dismissed && c.dismissal.DismissedFor != env {
		c.dismissal = DismissalState{}
	}

	c.state = Visible
	c.env = env

	view := NewView(result, c.layout)
	if err := c.renderer.Show(ctx, view); err != nil {
		c.logger.Warnf("[%s] failed to render %s banner: %v", c.contextID, env, err)
	}
	c.logger.Debugf("[%s] %s matched %q on %s", c.contextID, env, result.MatchedPattern, result.Hostname)

	c.notifier.NotifyEnvironmentDetected(ctx, env, c.contextID)
}

func (c *Controller) hide(ctx context.Context) {
	wasVisible := c.state == Visible
	c.state = Hidden
	c.env = environment.Unrecognized
	c.dismissal = DismissalState{}

	if !wasVisible {
		return
	}
	if err := c.renderer.Hide(ctx); err != nil {
		c.logger.Warnf("[%s] failed to hide banner: %v", c.contextID, err)
	}
}

// Events are the inputs of Run. Any channel may be nil.
type Events struct {
	Navigations <-chan string
	Relay       <-chan relay.Message
	Dismissals  <-chan struct{}
}

// Run applies events one at a time until ctx is done or the navigation
// channel is closed.
func (c *Controller) Run(ctx context.Context, events Events) error {
	relayCh := events.Relay
	dismissCh := events.Dismissals

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case url, ok := <-events.Navigations:
			if !ok {
				return nil
			}
			c.Navigate(ctx, url)

		case msg, ok := <-relayCh:
			if !ok {
				relayCh = nil
				continue
			}
			if msg.Action == relay.ActionPatternsChanged {
				c.Refresh(ctx)
			}

		case _, ok := <-dismissCh:
			if !ok {
				dismissCh = nil
				continue
			}
			c.Dismiss(ctx)
		}
	}
}
