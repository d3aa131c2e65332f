// Package coordinator is the background role: it keeps per-context
// environment and icon bookkeeping, answers refresh requests and tracks
// which context is in the foreground.
package coordinator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/entrhq/envwarn/pkg/environment"
	"github.com/entrhq/envwarn/pkg/logging"
	"github.com/entrhq/envwarn/pkg/relay"
)

// ContextState is what the coordinator knows about one browsing context.
type ContextState struct {
	ContextID   string
	Environment environment.Environment
	URL         string
	Icon        map[int]string
	DetectedAt  time.Time
}

// Coordinator consumes relay messages from banner controllers.
type Coordinator struct {
	bus    *relay.Bus
	scope  *Scope
	logger *logging.Logger
	now    func() time.Time

	mu         sync.RWMutex
	contexts   map[string]ContextState
	foreground string
}

// New creates a coordinator on bus.
func New(bus *relay.Bus, scope *Scope, logger *logging.Logger) *Coordinator {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Coordinator{
		bus:      bus,
		scope:    scope,
		logger:   logger,
		now:      time.Now,
		contexts: make(map[string]ContextState),
	}
}

// Run registers the updateEnvironment handler and records detections until
// ctx is done.
func (c *Coordinator) Run(ctx context.Context) error {
	sub := c.bus.Subscribe(relay.ActionEnvironmentDetected)
	defer sub.Close()

	c.bus.Handle(relay.ActionUpdateEnvironment, c.handleUpdate)
	c.logger.Infof("coordinator started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-sub.C():
			if !ok {
				return nil
			}
			c.Record(msg)
		}
	}
}

// Record stores an environmentDetected message and updates the icon of its
// context.
func (c *Coordinator) Record(msg relay.Message) {
	if msg.Action != relay.ActionEnvironmentDetected || msg.ContextID == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	state := c.contexts[msg.ContextID]
	state.ContextID = msg.ContextID
	state.Environment = msg.Environment
	if msg.URL != "" {
		state.URL = msg.URL
	}
	state.Icon = environment.Icon(msg.Environment)
	state.DetectedAt = c.now()
	c.contexts[msg.ContextID] = state

	c.logger.Infof("environment detected in %s: %s", msg.ContextID, msg.Environment)
}

// handleUpdate rebroadcasts a refresh to every context.
func (c *Coordinator) handleUpdate(ctx context.Context, msg relay.Message) (relay.Response, error) {
	c.logger.Debugf("update requested by %s", msg.Origin)
	c.bus.NotifyPatternsChanged(ctx)
	return relay.Response{Status: relay.StatusSuccess}, nil
}

// Observed reports whether a page at url should get a banner. Without a
// scope every page is observed.
func (c *Coordinator) Observed(url string) bool {
	if c.scope == nil {
		return true
	}
	return c.scope.Observed(url)
}

// Context returns the state of one context.
func (c *Coordinator) Context(id string) (ContextState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	state, ok := c.contexts[id]
	return state, ok
}

// Contexts returns every known context ordered by id.
func (c *Coordinator) Contexts() []ContextState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	states := make([]ContextState, 0, len(c.contexts))
	for _, state := range c.contexts {
		states = append(states, state)
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].ContextID < states[j].ContextID
	})
	return states
}

// Forget drops a closed context.
func (c *Coordinator) Forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.contexts, id)
	if c.foreground == id {
		c.foreground = ""
	}
}

// Foreground returns the id of the foreground context, if any.
func (c *Coordinator) Foreground() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.foreground
}

// Icon returns the icon of the foreground context, or the default icon.
func (c *Coordinator) Icon() map[int]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if state, ok := c.contexts[c.foreground]; ok && state.Icon != nil {
		return state.Icon
	}
	return environment.Icon(environment.Unrecognized)
}

// Activate makes id the foreground context and publishes TAB_ACTIVATED
// when it changed.
func (c *Coordinator) Activate(ctx context.Context, id, url string) {
	c.mu.Lock()
	changed := c.foreground != id
	c.foreground = id
	c.mu.Unlock()

	if !changed {
		return
	}
	c.bus.Publish(relay.Message{Action: relay.ActionTabActivated, ContextID: id, URL: url})
}

// Navigated publishes TAB_UPDATED when the foreground context navigates.
func (c *Coordinator) Navigated(ctx context.Context, id, url string) {
	c.mu.Lock()
	state := c.contexts[id]
	state.ContextID = id
	state.URL = url
	c.contexts[id] = state
	foreground := c.foreground == id
	c.mu.Unlock()

	if foreground {
		c.bus.Publish(relay.Message{Action: relay.ActionTabUpdated, ContextID: id, URL: url})
	}
}
