package browser

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/entrhq/envwarn/pkg/logging"
	"github.com/entrhq/envwarn/pkg/popup"
	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
)

// Manager owns the browser and its open tabs, and tracks which tab is in
// the foreground.
type Manager struct {
	mu          sync.RWMutex
	tabs        map[string]*Tab
	foreground  string
	playwright  *playwright.Playwright
	browser     playwright.Browser
	context     playwright.BrowserContext
	opts        LaunchOptions
	maxTabs     int
	initialized bool
	logger      *logging.Logger
}

// NewManager creates a new tab manager.
func NewManager(logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Manager{
		tabs:    make(map[string]*Tab),
		maxTabs: DefaultMaxTabs,
		logger:  logger,
	}
}

// Initialize installs and starts Playwright and launches the browser.
// This must be called before opening any tabs.
func (m *Manager) Initialize(opts LaunchOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	if opts.Viewport == nil {
		opts.Viewport = &Viewport{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		}
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}

	// Discard driver output so it does not interfere with the TUI
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(runOpts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return fmt.Errorf("failed to create context: %w", err)
	}

	m.playwright = pw
	m.browser = browser
	m.context = bctx
	m.opts = opts
	m.initialized = true
	m.logger.Infof("browser launched (headless=%v)", opts.Headless)
	return nil
}

// Open creates a tab, wires its page events and navigates it to url.
// The new tab becomes the foreground tab. A failed navigation is logged;
// the tab stays open on whatever page the browser shows.
func (m *Manager) Open(url string) (*Tab, error) {
	m.mu.Lock()
	if !m.initialized {
		m.mu.Unlock()
		return nil, fmt.Errorf("browser not initialized")
	}
	if len(m.tabs) >= m.maxTabs {
		m.mu.Unlock()
		return nil, fmt.Errorf("maximum number of tabs (%d) reached", m.maxTabs)
	}
	bctx := m.context
	timeout := m.opts.Timeout
	m.mu.Unlock()

	page, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(timeout)

	tab := newTab(uuid.New().String(), page)
	tab.pwPage = page

	// Page callbacks run on the playwright dispatcher; they only signal.
	if err := page.ExposeFunction(dismissBinding, func(args ...interface{}) interface{} {
		signal(tab.dismissals)
		return nil
	}); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("failed to expose dismiss binding: %w", err)
	}
	page.OnFrameNavigated(func(frame playwright.Frame) {
		if frame.ParentFrame() == nil {
			signal(tab.kick)
		}
	})
	page.OnDOMContentLoaded(func(playwright.Page) {
		signal(tab.loads)
	})
	page.OnClose(func(playwright.Page) {
		tab.markClosed()
		go m.remove(tab.ID)
	})

	m.add(tab)

	if url != "" {
		if _, err := page.Goto(url); err != nil {
			m.logger.Warnf("[%s] navigation to %s failed: %v", tab.ID, url, err)
		}
	}
	return tab, nil
}

// add registers tab and brings it to the foreground.
func (m *Manager) add(tab *Tab) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tabs[tab.ID] = tab
	m.foreground = tab.ID
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tabs, id)
	if m.foreground == id {
		m.foreground = ""
	}
}

// Close closes and removes a tab.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	tab, exists := m.tabs[id]
	m.mu.Unlock()
	if !exists {
		return fmt.Errorf("tab %q not found", id)
	}

	if tab.pwPage != nil {
		_ = tab.pwPage.Close() // Ignore errors, continue cleanup
	}
	tab.markClosed()
	m.remove(id)
	return nil
}

// Tab retrieves an open tab by id.
func (m *Manager) Tab(id string) (*Tab, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tab, exists := m.tabs[id]
	if !exists {
		return nil, fmt.Errorf("tab %q not found", id)
	}
	return tab, nil
}

// Tabs returns information about all open tabs, oldest first.
func (m *Manager) Tabs() []TabInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]TabInfo, 0, len(m.tabs))
	for _, tab := range m.tabs {
		infos = append(infos, TabInfo{
			ID:         tab.ID,
			URL:        tab.URL(),
			Foreground: tab.ID == m.foreground,
			CreatedAt:  tab.CreatedAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// Activate brings tab id to the foreground.
func (m *Manager) Activate(id string) error {
	m.mu.Lock()
	tab, exists := m.tabs[id]
	if exists {
		m.foreground = id
	}
	m.mu.Unlock()

	if !exists {
		return fmt.Errorf("tab %q not found", id)
	}
	if err := tab.page.BringToFront(); err != nil {
		return fmt.Errorf("failed to activate tab: %w", err)
	}
	return nil
}

// Foreground returns the foreground tab.
func (m *Manager) Foreground() (*Tab, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tab, ok := m.tabs[m.foreground]
	return tab, ok
}

// ActiveURL reports the URL of the foreground tab.
func (m *Manager) ActiveURL(ctx context.Context) (string, error) {
	tab, ok := m.Foreground()
	if !ok {
		return "", popup.ErrNoActiveContext
	}
	return tab.URL(), nil
}

// Shutdown closes all tabs, the browser and Playwright.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, tab := range m.tabs {
		if tab.pwPage != nil {
			_ = tab.pwPage.Close()
		}
		tab.markClosed()
		delete(m.tabs, id)
	}
	m.foreground = ""

	if !m.initialized {
		return nil
	}
	if m.context != nil {
		_ = m.context.Close()
	}
	if m.browser != nil {
		_ = m.browser.Close()
	}
	if m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright: %w", err)
		}
	}
	m.initialized = false
	return nil
}
