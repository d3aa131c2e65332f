package browser

import (
	"context"
	"sync"
	"time"

	"github.com/entrhq/envwarn/pkg/banner"
	"github.com/entrhq/envwarn/pkg/config"
	"github.com/entrhq/envwarn/pkg/coordinator"
	"github.com/entrhq/envwarn/pkg/logging"
	"github.com/entrhq/envwarn/pkg/relay"
)

// RuleMatcher returns the legacy rules that apply to a URL.
// *rules.Store implements it.
type RuleMatcher interface {
	Match(url string) []config.Rule
}

// HostConfig wires tabs to the rest of the process.
type HostConfig struct {
	Patterns     banner.PatternSource
	Rules        RuleMatcher
	Bus          *relay.Bus
	Coordinator  *coordinator.Coordinator
	Layout       banner.Layout
	PollInterval time.Duration
	Logger       *logging.Logger
}

// Host runs one banner controller per tab.
type Host struct {
	manager *Manager
	cfg     HostConfig
	logger  *logging.Logger
	wg      sync.WaitGroup

	mu          sync.Mutex
	controllers map[string]*banner.Controller
}

// NewHost creates a host for the tabs of manager.
func NewHost(manager *Manager, cfg HostConfig) *Host {
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	if cfg.Bus == nil {
		cfg.Bus = relay.NewBus(cfg.Logger)
	}
	return &Host{
		manager:     manager,
		cfg:         cfg,
		logger:      cfg.Logger,
		controllers: make(map[string]*banner.Controller),
	}
}

// Open opens url in a new foreground tab and starts watching it.
func (h *Host) Open(ctx context.Context, url string) (*Tab, error) {
	tab, err := h.manager.Open(url)
	if err != nil {
		return nil, err
	}
	h.Watch(ctx, tab)
	if h.cfg.Coordinator != nil {
		h.cfg.Coordinator.Activate(ctx, tab.ID, tab.URL())
	}
	return tab, nil
}

// Activate brings tab id to the foreground.
func (h *Host) Activate(ctx context.Context, id string) error {
	if err := h.manager.Activate(id); err != nil {
		return err
	}
	if h.cfg.Coordinator != nil {
		tab, err := h.manager.Tab(id)
		if err == nil {
			h.cfg.Coordinator.Activate(ctx, id, tab.URL())
		}
	}
	return nil
}

// Controller returns the banner controller of tab id.
func (h *Host) Controller(id string) (*banner.Controller, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.controllers[id]
	return c, ok
}

// Watch starts the banner loop of tab. It ends when the tab closes or ctx
// is done.
func (h *Host) Watch(ctx context.Context, tab *Tab) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.run(ctx, tab)
	}()
}

// Wait blocks until every tab loop has ended.
func (h *Host) Wait() {
	h.wg.Wait()
}

func (h *Host) observed(url string) bool {
	if h.cfg.Coordinator == nil {
		return true
	}
	return h.cfg.Coordinator.Observed(url)
}

func (h *Host) run(ctx context.Context, tab *Tab) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-tab.Closed():
			cancel()
		case <-ctx.Done():
		}
	}()

	controller := banner.NewController(banner.Config{
		ContextID: tab.ID,
		Patterns:  h.cfg.Patterns,
		Renderer:  tab.renderer,
		Notifier:  h.cfg.Bus,
		Layout:    h.cfg.Layout,
		Logger:    h.logger,
		Observed:  h.observed,
	})

	h.mu.Lock()
	h.controllers[tab.ID] = controller
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.controllers, tab.ID)
		h.mu.Unlock()
		if h.cfg.Coordinator != nil {
			h.cfg.Coordinator.Forget(tab.ID)
		}
	}()

	sub := h.cfg.Bus.Subscribe(relay.ActionPatternsChanged)
	defer sub.Close()

	samples := make(chan string)
	source := banner.NewPollingSource(func(context.Context) (string, error) {
		return tab.URL(), nil
	}, h.cfg.PollInterval, nil, h.logger).WithTrigger(tab.kick)
	go source.Run(ctx, samples)

	navigations := make(chan string)
	go h.forward(ctx, tab, samples, navigations)
	go h.redraw(ctx, tab)

	h.logger.Infof("[%s] watching tab", tab.ID)
	_ = controller.Run(ctx, banner.Events{
		Navigations: navigations,
		Relay:       sub.C(),
		Dismissals:  tab.dismissals,
	})
	h.logger.Infof("[%s] tab closed", tab.ID)
}

// forward passes URL changes to the controller after updating the legacy
// rule strips and the coordinator.
func (h *Host) forward(ctx context.Context, tab *Tab, in <-chan string, out chan<- string) {
	for {
		select {
		case <-ctx.Done():
			return
		case url := <-in:
			var matched []config.Rule
			if h.cfg.Rules != nil && h.observed(url) {
				matched = h.cfg.Rules.Match(url)
			}
			if err := tab.renderer.ShowRules(ctx, matched); err != nil {
				h.logger.Debugf("[%s] %v", tab.ID, err)
			}
			if h.cfg.Coordinator != nil {
				h.cfg.Coordinator.Navigated(ctx, tab.ID, url)
			}

			select {
			case out <- url:
			case <-ctx.Done():
				return
			}
		}
	}
}

// redraw restores the banner whenever the tab loads a new document.
func (h *Host) redraw(ctx context.Context, tab *Tab) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-tab.loads:
			if err := tab.renderer.Redraw(ctx); err != nil {
				h.logger.Debugf("[%s] %v", tab.ID, err)
			}
		}
	}
}
