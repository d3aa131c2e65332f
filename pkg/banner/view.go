// Package banner drives the per-context warning banner.
//
// A Controller owns one browsing context. It classifies every URL the
// context navigates to, decides whether the banner is hidden, visible or
// dismissed, and asks a Renderer to draw or remove it. Rendering itself
// (DOM injection, terminal output) lives outside this package.
package banner

import (
	"github.com/entrhq/envwarn/pkg/config"
	"github.com/entrhq/envwarn/pkg/environment"
)

const (
	defaultPosition = config.BannerPositionTop
	defaultHeight   = 25
)

// View is everything a Renderer needs to draw the banner.
type View struct {
	Environment environment.Environment
	Text        string
	Background  string
	Foreground  string
	Position    string
	Height      int

	MatchedPattern string
	Hostname       string
	URL            string
}

// Layout supplies banner placement. *config.BannerSection implements it.
type Layout interface {
	Layout() (position string, height int)
}

// NewView derives the view for a matched classification result.
func NewView(result environment.Result, layout Layout) View {
	position, height := defaultPosition, defaultHeight
	if layout != nil {
		position, height = layout.Layout()
	}

	style := environment.StyleFor(result.Environment)
	return View{
		Environment:    result.Environment,
		Text:           style.Upper() + " ENVIRONMENT",
		Background:     style.BannerColor,
		Foreground:     style.BannerText,
		Position:       position,
		Height:         height,
		MatchedPattern: result.MatchedPattern,
		Hostname:       result.Hostname,
		URL:            result.URL,
	}
}
