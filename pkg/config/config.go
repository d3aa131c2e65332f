package config

import (
	"errors"
	"sync"
)

var (
	// globalManager is the process-wide configuration object
	globalManager *Manager
	globalMu      sync.Mutex
)

// Initialize creates the process-wide configuration and loads it.
// This should be called once at application startup; there is no teardown.
//
// When the config file is unreadable or some sections hold invalid data,
// the configuration is still initialized (with defaults where needed) and
// the returned error describes what was ignored.
func Initialize(configPath string) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	store, storeErr := NewFileStore(configPath)
	if store == nil {
		return storeErr
	}

	manager := NewManager(store)

	sections := []Section{
		NewPatternsSection(),
		NewRulesSection(),
		NewBannerSection(),
		NewRelaySection(),
	}
	for _, section := range sections {
		if err := manager.RegisterSection(section); err != nil {
			return err
		}
	}

	var loadErr error
	if storeErr != nil {
		manager.ResetAll()
		loadErr = storeErr
	} else if err := manager.applyStore(nil); err != nil {
		var sectionErr *LoadError
		if !errors.As(err, &sectionErr) {
			return err
		}
		loadErr = err
	}

	globalManager = manager
	return loadErr
}

// Global returns the global configuration manager.
// Panics if Initialize has not been called.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		panic("config not initialized: call config.Initialize first")
	}

	return globalManager
}

// IsInitialized returns true if the global configuration has been initialized.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalManager != nil
}

// GetPatterns returns the patterns section from global config.
// Returns nil if config is not initialized.
func GetPatterns() *PatternsSection {
	return getSection[*PatternsSection](SectionIDPatterns)
}

// GetRules returns the legacy rules section from global config.
// Returns nil if config is not initialized.
func GetRules() *RulesSection {
	return getSection[*RulesSection](SectionIDRules)
}

// GetBanner returns the banner section from global config.
// Returns nil if config is not initialized.
func GetBanner() *BannerSection {
	return getSection[*BannerSection](SectionIDBanner)
}

// GetRelay returns the relay section from global config.
// Returns nil if config is not initialized.
func GetRelay() *RelaySection {
	return getSection[*RelaySection](SectionIDRelay)
}

func getSection[T Section](id string) T {
	var zero T
	if !IsInitialized() {
		return zero
	}

	section, ok := Global().GetSection(id)
	if !ok {
		return zero
	}

	typed, ok := section.(T)
	if !ok {
		return zero
	}
	return typed
}
