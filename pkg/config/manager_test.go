package config

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// mockStore is an in-memory Store with injectable failures.
type mockStore struct {
	sections map[string]map[string]interface{}
	loadErr  error
	saveErr  error
	saves    int
}

func newMockStore() *mockStore {
	return &mockStore{sections: make(map[string]map[string]interface{})}
}

func (m *mockStore) Load() error { return m.loadErr }

func (m *mockStore) Save() error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	return nil
}

func (m *mockStore) GetSection(sectionID string) (map[string]interface{}, error) {
	if data, exists := m.sections[sectionID]; exists {
		return data, nil
	}
	return make(map[string]interface{}), nil
}

func (m *mockStore) SetSection(sectionID string, data map[string]interface{}) error {
	m.sections[sectionID] = data
	return nil
}

func (m *mockStore) GetAll() (map[string]map[string]interface{}, error) {
	return m.sections, nil
}

func (m *mockStore) SetAll(data map[string]map[string]interface{}) error {
	m.sections = data
	return nil
}

func newTestManager(t *testing.T, store Store) *Manager {
	t.Helper()
	manager := NewManager(store)
	for _, s := range []Section{NewPatternsSection(), NewRulesSection(), NewBannerSection(), NewRelaySection()} {
		if err := manager.RegisterSection(s); err != nil {
			t.Fatalf("RegisterSection(%s) failed: %v", s.ID(), err)
		}
	}
	return manager
}

func TestManager_RegisterSection(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(t, store)

	if manager.Store() != store {
		t.Error("Manager does not reference its store")
	}
	if err := manager.RegisterSection(NewBannerSection()); err == nil {
		t.Error("Expected error for duplicate registration")
	}

	var ids []string
	for _, s := range manager.GetSections() {
		ids = append(ids, s.ID())
	}
	want := []string{SectionIDPatterns, SectionIDRules, SectionIDBanner, SectionIDRelay}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("Expected registration order %v, got %v", want, ids)
	}

	if _, ok := manager.GetSection("ui"); ok {
		t.Error("Unregistered section should not be found")
	}
}

func TestManager_LoadAll(t *testing.T) {
	t.Run("invalid section is reset and reported", func(t *testing.T) {
		store := newMockStore()
		store.sections[SectionIDPatterns] = map[string]interface{}{"production": "not a list"}
		store.sections[SectionIDBanner] = map[string]interface{}{"position": "bottom"}
		manager := newTestManager(t, store)

		err := manager.LoadAll()
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			t.Fatalf("Expected *LoadError, got %v", err)
		}
		if _, ok := loadErr.Sections[SectionIDPatterns]; !ok || len(loadErr.Sections) != 1 {
			t.Errorf("Only the patterns section should be reported: %v", loadErr)
		}
		if !strings.Contains(loadErr.Error(), SectionIDPatterns) {
			t.Errorf("Error should name the section: %v", loadErr)
		}

		section, _ := manager.GetSection(SectionIDPatterns)
		if _, configured := section.(*PatternsSection).PatternSet(); configured {
			t.Error("Rejected patterns must fall back to defaults")
		}
		banner, _ := manager.GetSection(SectionIDBanner)
		if pos, _ := banner.(*BannerSection).Layout(); pos != BannerPositionBottom {
			t.Errorf("Valid sections still load, got position %q", pos)
		}
	})

	t.Run("out of range section is reset and reported", func(t *testing.T) {
		store := newMockStore()
		store.sections[SectionIDBanner] = map[string]interface{}{
			"position":      "left",
			"height":        float64(0),
			"poll_interval": "1ns",
		}
		store.sections[SectionIDRelay] = map[string]interface{}{"channel": "team"}
		manager := newTestManager(t, store)

		err := manager.LoadAll()
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			t.Fatalf("Expected *LoadError, got %v", err)
		}
		if _, ok := loadErr.Sections[SectionIDBanner]; !ok || len(loadErr.Sections) != 1 {
			t.Errorf("Only the banner section should be reported: %v", loadErr)
		}

		section, _ := manager.GetSection(SectionIDBanner)
		banner := section.(*BannerSection)
		if pos, height := banner.Layout(); pos != BannerPositionTop || height != 25 {
			t.Errorf("Expected default layout, got %s/%d", pos, height)
		}
		if err := banner.Validate(); err != nil {
			t.Errorf("Reset banner should validate: %v", err)
		}
		relay, _ := manager.GetSection(SectionIDRelay)
		if relay.Data()["channel"] != "team" {
			t.Errorf("Relay section should still load, got %v", relay.Data())
		}
	})

	t.Run("store failure", func(t *testing.T) {
		store := newMockStore()
		store.loadErr = errors.New("disk gone")
		manager := newTestManager(t, store)
		if err := manager.LoadAll(); err == nil {
			t.Error("Expected load error")
		}
	})
}

func TestManager_SaveAll(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(t, store)

	if err := manager.SaveAll(); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}
	if store.saves != 1 || len(store.sections) != 4 {
		t.Errorf("Expected every section saved once, got %d saves and %d sections", store.saves, len(store.sections))
	}

	banner, _ := manager.GetSection(SectionIDBanner)
	banner.(*BannerSection).Height = 1
	if err := manager.SaveAll(); err == nil {
		t.Error("SaveAll must validate sections")
	}
	if store.saves != 1 {
		t.Error("Nothing is saved when validation fails")
	}
}

func TestManager_ReplaceSection(t *testing.T) {
	rulesData := func(domain string) map[string]interface{} {
		return RulesData([]Rule{{Domain: domain, Text: "LIVE", Colour: "red"}})
	}

	t.Run("success persists", func(t *testing.T) {
		store := newMockStore()
		manager := newTestManager(t, store)

		if err := manager.ReplaceSection(SectionIDRules, rulesData("example")); err != nil {
			t.Fatalf("ReplaceSection failed: %v", err)
		}
		if store.saves != 1 {
			t.Errorf("Expected one save, got %d", store.saves)
		}
		section, _ := manager.GetSection(SectionIDRules)
		if rules := section.(*RulesSection).Rules(); len(rules) != 1 || rules[0].Domain != "example" {
			t.Errorf("Unexpected rules %v", rules)
		}
	})

	t.Run("unknown section", func(t *testing.T) {
		manager := newTestManager(t, newMockStore())
		if err := manager.ReplaceSection("llm", nil); err == nil {
			t.Error("Expected error for unregistered section")
		}
	})

	failures := []struct {
		name  string
		data  map[string]interface{}
		store func(*mockStore)
	}{
		{name: "invalid data", data: map[string]interface{}{"rules": "nope"}},
		{name: "validation", data: rulesData("")},
		{name: "save", data: rulesData("other"), store: func(s *mockStore) { s.saveErr = errors.New("read-only") }},
	}
	for _, tt := range failures {
		t.Run("rollback on "+tt.name, func(t *testing.T) {
			store := newMockStore()
			manager := newTestManager(t, store)
			if err := manager.ReplaceSection(SectionIDRules, rulesData("before")); err != nil {
				t.Fatal(err)
			}
			if tt.store != nil {
				tt.store(store)
			}

			if err := manager.ReplaceSection(SectionIDRules, tt.data); err == nil {
				t.Fatal("Expected ReplaceSection to fail")
			}

			section, _ := manager.GetSection(SectionIDRules)
			if rules := section.(*RulesSection).Rules(); len(rules) != 1 || rules[0].Domain != "before" {
				t.Errorf("Section should keep previous rules, got %v", rules)
			}
			stored, _ := store.GetSection(SectionIDRules)
			if !reflect.DeepEqual(stored, rulesData("before")) {
				t.Errorf("Store should keep previous data, got %v", stored)
			}
		})
	}
}

func TestManager_ResetAll(t *testing.T) {
	manager := newTestManager(t, newMockStore())
	if err := manager.ReplaceSection(SectionIDBanner, map[string]interface{}{"position": "bottom"}); err != nil {
		t.Fatal(err)
	}
	manager.ResetAll()

	banner, _ := manager.GetSection(SectionIDBanner)
	if pos, height := banner.(*BannerSection).Layout(); pos != BannerPositionTop || height != 25 {
		t.Errorf("Expected defaults after reset, got %s/%d", pos, height)
	}
}

func TestManager_Watch(t *testing.T) {
	t.Run("store without watcher", func(t *testing.T) {
		manager := newTestManager(t, newMockStore())
		if err := manager.Watch(context.Background(), func([]string, error) {}); err == nil {
			t.Error("Expected error for a store that cannot watch")
		}
	})

	t.Run("reports changed sections", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		store, _ := NewFileStore(path)
		manager := newTestManager(t, store)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		changes := make(chan []string, 4)
		go manager.Watch(ctx, func(changed []string, err error) {
			if err == nil {
				changes <- changed
			}
		})

		other, _ := NewFileStore(path)
		other.SetSection(SectionIDPatterns, map[string]interface{}{"test": []interface{}{"qa"}})

		deadline := time.After(5 * time.Second)
		for {
			if err := other.Save(); err != nil {
				t.Fatal(err)
			}
			select {
			case changed := <-changes:
				if !reflect.DeepEqual(changed, []string{SectionIDPatterns}) {
					t.Errorf("Expected only %s to change, got %v", SectionIDPatterns, changed)
				}
				section, _ := manager.GetSection(SectionIDPatterns)
				set, ok := section.(*PatternsSection).PatternSet()
				if !ok || len(set["test"]) != 1 {
					t.Errorf("Patterns not reloaded: %v", set)
				}
				return
			case <-time.After(100 * time.Millisecond):
			case <-deadline:
				t.Fatal("no change reported")
			}
		}
	})
}
