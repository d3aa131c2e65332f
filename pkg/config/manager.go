package config

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// Section is a named, self-validating part of the configuration.
type Section interface {
	ID() string
	Title() string
	Description() string
	Data() map[string]interface{}
	SetData(data map[string]interface{}) error
	Validate() error
	Reset()
}

// LoadError reports sections whose persisted data was rejected. Those
// sections were reset to their defaults; all others loaded normally.
type LoadError struct {
	Sections map[string]error
}

func (e *LoadError) Error() string {
	ids := make([]string, 0, len(e.Sections))
	for id := range e.Sections {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%s: %v", id, e.Sections[id]))
	}
	return "invalid configuration sections reset to defaults: " + strings.Join(parts, "; ")
}

// Manager coordinates the registered sections with a Store.
type Manager struct {
	store    Store
	sections map[string]Section
	order    []string
	mu       sync.RWMutex
}

// NewManager creates a manager backed by store.
func NewManager(store Store) *Manager {
	return &Manager{
		store:    store,
		sections: make(map[string]Section),
	}
}

// Store returns the backing store.
func (m *Manager) Store() Store {
	return m.store
}

// RegisterSection adds a section. IDs must be unique.
func (m *Manager) RegisterSection(section Section) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := section.ID()
	if _, exists := m.sections[id]; exists {
		return fmt.Errorf("section %q already registered", id)
	}

	m.sections[id] = section
	m.order = append(m.order, id)
	return nil
}

// GetSection returns the section registered under id.
func (m *Manager) GetSection(id string) (Section, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	section, ok := m.sections[id]
	return section, ok
}

// GetSections returns all sections in registration order.
func (m *Manager) GetSections() []Section {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sections := make([]Section, 0, len(m.order))
	for _, id := range m.order {
		sections = append(sections, m.sections[id])
	}
	return sections
}

// LoadAll loads the store and applies its data to every section.
// A section whose data is rejected or fails validation is reset and
// reported in a *LoadError; the remaining sections still load.
func (m *Manager) LoadAll() error {
	if err := m.store.Load(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	return m.applyStore(nil)
}

// applyStore copies store data into sections. When changed is non-nil, the
// IDs of sections whose data differs from before are appended to it.
func (m *Manager) applyStore(changed *[]string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var loadErr *LoadError
	for _, id := range m.order {
		section := m.sections[id]
		data, err := m.store.GetSection(id)
		if err != nil {
			return fmt.Errorf("failed to read section %s: %w", id, err)
		}

		before := section.Data()
		err = section.SetData(data)
		if err == nil {
			err = section.Validate()
		}
		if err != nil {
			section.Reset()
			if loadErr == nil {
				loadErr = &LoadError{Sections: make(map[string]error)}
			}
			loadErr.Sections[id] = err
		}

		if changed != nil && !reflect.DeepEqual(before, section.Data()) {
			*changed = append(*changed, id)
		}
	}

	if loadErr != nil {
		return loadErr
	}
	return nil
}

// SaveAll validates every section and persists them together.
func (m *Manager) SaveAll() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range m.order {
		if err := m.sections[id].Validate(); err != nil {
			return fmt.Errorf("invalid configuration in section %s: %w", id, err)
		}
	}

	for _, id := range m.order {
		if err := m.store.SetSection(id, m.sections[id].Data()); err != nil {
			return fmt.Errorf("failed to store section %s: %w", id, err)
		}
	}

	if err := m.store.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	return nil
}

// ReplaceSection validates data for section id and persists it. On any
// failure both the section and the store keep their previous contents.
func (m *Manager) ReplaceSection(id string, data map[string]interface{}) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	section, ok := m.sections[id]
	if !ok {
		return fmt.Errorf("section %q not registered", id)
	}

	previous := section.Data()
	storedPrevious, err := m.store.GetSection(id)
	if err != nil {
		return fmt.Errorf("failed to read section %s: %w", id, err)
	}

	rollback := func() {
		_ = section.SetData(previous)
		_ = m.store.SetSection(id, storedPrevious)
	}

	if err := section.SetData(data); err != nil {
		rollback()
		return fmt.Errorf("invalid data for section %s: %w", id, err)
	}
	if err := section.Validate(); err != nil {
		rollback()
		return fmt.Errorf("invalid configuration in section %s: %w", id, err)
	}
	if err := m.store.SetSection(id, section.Data()); err != nil {
		rollback()
		return fmt.Errorf("failed to store section %s: %w", id, err)
	}
	if err := m.store.Save(); err != nil {
		rollback()
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	return nil
}

// ResetAll resets every section to its defaults without saving.
func (m *Manager) ResetAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range m.order {
		m.sections[id].Reset()
	}
}

// Watch reloads sections whenever the store reports an external change and
// calls onChange with the IDs of sections whose data changed. It blocks
// until ctx is done. Stores that cannot watch return an error immediately.
func (m *Manager) Watch(ctx context.Context, onChange func(changed []string, err error)) error {
	watcher, ok := m.store.(Watcher)
	if !ok {
		return fmt.Errorf("store %T does not support watching", m.store)
	}

	return watcher.Watch(ctx, func() {
		var changed []string
		err := m.applyStore(&changed)
		if len(changed) > 0 || err != nil {
			onChange(changed, err)
		}
	})
}
