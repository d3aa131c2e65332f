package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/entrhq/envwarn/pkg/browser"
	"github.com/entrhq/envwarn/pkg/config"
	"github.com/entrhq/envwarn/pkg/coordinator"
	"github.com/entrhq/envwarn/pkg/popup"
	"github.com/entrhq/envwarn/pkg/relay"
	"github.com/entrhq/envwarn/pkg/tui"
	"github.com/spf13/pflag"
)

// parseURLFlag parses the --url flag shared by popup and options.
func parseURLFlag(name string, args []string) (string, error) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	url := fs.String("url", "", "URL of the page to examine")
	if err := fs.Parse(args); err != nil {
		return "", fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() > 0 {
		return "", fmt.Errorf("%w: %s takes no arguments", errUsage, name)
	}
	return *url, nil
}

func (a *app) popup(ctx context.Context, args []string) error {
	url, err := parseURLFlag("popup", args)
	if err != nil {
		return err
	}
	a.startRelay(ctx)
	return a.runSurfaces(ctx, popup.StaticURL(url))
}

func (a *app) options(ctx context.Context, args []string) error {
	url, err := parseURLFlag("options", args)
	if err != nil {
		return err
	}
	_, err = a.runOptions(ctx, url)
	return err
}

// runSurfaces shows the popup for tab. Leaving it with the options key
// opens the editor for the same page, and closing the editor returns to the
// popup.
func (a *app) runSurfaces(ctx context.Context, tab popup.ActiveTab) error {
	controller := popup.NewController(tab, a.patterns, a.logger.With("popup"))

	for {
		sub := a.bus.Subscribe(relay.ActionTabUpdated, relay.ActionTabActivated, relay.ActionPatternsChanged)
		model := tui.NewPopupModel(ctx, controller, sub.C())
		final, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
		sub.Close()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("popup: %w", err)
		}

		result, ok := final.(tui.PopupModel)
		if !ok || !result.OptionsRequested() {
			return nil
		}
		if _, err := a.runOptions(ctx, result.Summary().URL); err != nil {
			return err
		}
	}
}

func (a *app) runOptions(ctx context.Context, url string) (tui.OptionsModel, error) {
	model := tui.NewOptionsModel(ctx, a.patterns, url)
	final, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
	if err != nil && ctx.Err() == nil {
		return model, fmt.Errorf("options: %w", err)
	}
	if result, ok := final.(tui.OptionsModel); ok {
		if result.Dirty() {
			a.logger.Infof("options closed with unsaved changes")
		}
		return result, nil
	}
	return model, nil
}

// browse opens a browser tab per URL, each with its own banner, and shows
// the popup for the foreground tab until the popup is closed.
func (a *app) browse(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: browse needs at least one URL", errUsage)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.startRelay(ctx)

	banner := config.GetBanner()
	scope, err := coordinator.NewScope(banner.GetObservedURLs())
	if err != nil {
		return err
	}

	coord := coordinator.New(a.bus, scope, a.logger.With("coordinator"))
	go func() {
		if err := coord.Run(ctx); err != nil && ctx.Err() == nil {
			a.logger.Errorf("coordinator stopped: %v", err)
		}
	}()

	manager := browser.NewManager(a.logger.With("browser"))
	if err := manager.Initialize(browser.LaunchOptions{Headless: a.cfg.Headless}); err != nil {
		return err
	}
	defer func() {
		if err := manager.Shutdown(); err != nil {
			a.logger.Warnf("browser shutdown: %v", err)
		}
	}()

	host := browser.NewHost(manager, browser.HostConfig{
		Patterns:     a.patterns,
		Rules:        a.rules,
		Bus:          a.bus,
		Coordinator:  coord,
		Layout:       banner,
		PollInterval: banner.GetPollInterval(),
		Logger:       a.logger.With("host"),
	})
	for _, url := range args {
		if _, err := host.Open(ctx, url); err != nil {
			a.logger.Errorf("failed to open %s: %v", url, err)
		}
	}

	err = a.runSurfaces(ctx, manager)
	cancel()

	done := make(chan struct{})
	go func() {
		host.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		a.logger.Warnf("tab loops did not stop in time")
	}
	return err
}
