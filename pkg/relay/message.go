// Package relay carries change notifications between envwarn contexts.
//
// Delivery is best-effort and asynchronous. A context that is not listening
// misses the message without any error reaching the sender, and a sender is
// never blocked by a slow or absent recipient.
package relay

import (
	"context"
	"errors"

	"github.com/entrhq/envwarn/pkg/environment"
)

// Action discriminates message kinds.
type Action string

const (
	ActionPatternsChanged     Action = "patternsChanged"     // ActionPatternsChanged indicates the pattern set was replaced.
	ActionEnvironmentDetected Action = "environmentDetected" // ActionEnvironmentDetected indicates a context classified its page.
	ActionUpdateEnvironment   Action = "updateEnvironment"   // ActionUpdateEnvironment asks the coordinator to refresh all contexts.
	ActionTabUpdated          Action = "TAB_UPDATED"         // ActionTabUpdated indicates the foreground context navigated.
	ActionTabActivated        Action = "TAB_ACTIVATED"       // ActionTabActivated indicates another context came to the foreground.
)

// Message is one notification.
type Message struct {
	Action      Action                  `json:"action"`
	Environment environment.Environment `json:"environment,omitempty"`
	ContextID   string                  `json:"context_id,omitempty"`
	URL         string                  `json:"url,omitempty"`

	// Origin identifies the bus that first published the message.
	Origin string `json:"origin,omitempty"`
}

// Response answers a Request.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ErrUnavailable is returned by Request when no context handles the action.
// Callers treat it as a missed notification.
var ErrUnavailable = errors.New("no receiver for message")

// Notifier is the sending side used by the pattern store and the banner.
type Notifier interface {
	NotifyPatternsChanged(ctx context.Context)
	NotifyEnvironmentDetected(ctx context.Context, env environment.Environment, contextID string)
}

// Nop is a Notifier that drops every notification.
type Nop struct{}

func (Nop) NotifyPatternsChanged(context.Context) {}

func (Nop) NotifyEnvironmentDetected(context.Context, environment.Environment, string) {}
