// Package browser drives real browser tabs through Playwright.
//
// Each tab is a browsing context with its own banner controller. The Host
// observes the tab's URL (frame navigation events plus polling for
// history-API navigation), classifies it, and injects the warning banner
// and legacy rule strips into the page. The banner's close button calls an
// exposed page function that feeds the controller's dismissals.
//
// Example usage:
//
//	manager := browser.NewManager(logger)
//	if err := manager.Initialize(browser.LaunchOptions{Headless: false}); err != nil {
//		return err
//	}
//	defer manager.Shutdown()
//
//	host := browser.NewHost(manager, browser.HostConfig{Patterns: store, Bus: bus})
//	host.Open(ctx, "https://staging.example.com")
package browser
