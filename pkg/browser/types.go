package browser

import (
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

const (
	// DefaultMaxTabs limits the number of concurrently open browsing contexts
	DefaultMaxTabs = 10

	// DefaultViewportWidth is the default browser viewport width
	DefaultViewportWidth = 1280

	// DefaultViewportHeight is the default browser viewport height
	DefaultViewportHeight = 720

	// DefaultTimeout is the default timeout for page operations in milliseconds
	DefaultTimeout = 30000.0

	// dismissBinding is the page-global function the banner's close button calls
	dismissBinding = "__envwarnDismiss"
)

// driver is the part of a page the banner machinery needs.
// playwright.Page implements it.
type driver interface {
	URL() string
	Evaluate(expression string, arg ...interface{}) (interface{}, error)
	BringToFront() error
}

// Tab is one browsing context: a page with its own banner state.
type Tab struct {
	// ID is the unique identifier of this context
	ID string

	// CreatedAt is the timestamp when the tab was opened
	CreatedAt time.Time

	page     driver
	pwPage   playwright.Page
	renderer *Renderer

	// kick asks the URL observer for an immediate sample
	kick chan struct{}
	// loads signals a fresh document that needs its banner redrawn
	loads chan struct{}
	// dismissals carries clicks on the banner's close button
	dismissals chan struct{}

	closeOnce sync.Once
	closed    chan struct{}
}

func newTab(id string, page driver) *Tab {
	return &Tab{
		ID:         id,
		CreatedAt:  time.Now(),
		page:       page,
		renderer:   NewRenderer(page),
		kick:       make(chan struct{}, 1),
		loads:      make(chan struct{}, 1),
		dismissals: make(chan struct{}, 1),
		closed:     make(chan struct{}),
	}
}

// URL returns the URL the tab currently shows.
func (t *Tab) URL() string {
	return t.page.URL()
}

// Renderer returns the banner renderer of the tab.
func (t *Tab) Renderer() *Renderer {
	return t.renderer
}

// Closed is closed once the page is gone.
func (t *Tab) Closed() <-chan struct{} {
	return t.closed
}

func (t *Tab) markClosed() {
	t.closeOnce.Do(func() { close(t.closed) })
}

// signal performs a non-blocking send. Page event callbacks run on the
// playwright dispatcher and must never block it.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// LaunchOptions configures the browser.
type LaunchOptions struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// Viewport sets the initial viewport size
	Viewport *Viewport

	// Timeout sets the default timeout for operations (in milliseconds)
	Timeout float64
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// TabInfo contains metadata about an open tab.
type TabInfo struct {
	ID         string
	URL        string
	Foreground bool
	CreatedAt  time.Time
}
