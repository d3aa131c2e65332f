package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func resetGlobal() {
	globalMu.Lock()
	globalManager = nil
	globalMu.Unlock()
}

func TestInitialize(t *testing.T) {
	t.Run("registers every section", func(t *testing.T) {
		resetGlobal()
		if err := Initialize(filepath.Join(t.TempDir(), "config.json")); err != nil {
			t.Fatalf("Initialize failed: %v", err)
		}
		if !IsInitialized() {
			t.Fatal("Global manager should be initialized")
		}

		for _, id := range []string{SectionIDPatterns, SectionIDRules, SectionIDBanner, SectionIDRelay} {
			if _, ok := Global().GetSection(id); !ok {
				t.Errorf("%s section not registered", id)
			}
		}
		if GetPatterns() == nil || GetRules() == nil || GetBanner() == nil || GetRelay() == nil {
			t.Error("Typed accessors should return the registered sections")
		}
	})

	t.Run("corrupt file falls back to defaults", func(t *testing.T) {
		resetGlobal()
		path := filepath.Join(t.TempDir(), "config.json")
		if err := os.WriteFile(path, []byte("]["), 0644); err != nil {
			t.Fatal(err)
		}

		err := Initialize(path)
		if !errors.Is(err, ErrStoreUnavailable) {
			t.Fatalf("Expected ErrStoreUnavailable, got %v", err)
		}
		if !IsInitialized() {
			t.Fatal("Configuration should still be usable")
		}
		if _, configured := GetPatterns().PatternSet(); configured {
			t.Error("Patterns should fall back to the built-in defaults")
		}
	})

	t.Run("invalid section is reported, others load", func(t *testing.T) {
		resetGlobal()
		path := filepath.Join(t.TempDir(), "config.json")
		writeConfig(t, path, map[string]map[string]interface{}{
			SectionIDPatterns: {"staging": 42},
			SectionIDRelay:    {"redis_addr": "cache:6379"},
		})

		err := Initialize(path)
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			t.Fatalf("Expected *LoadError, got %v", err)
		}
		if addr := GetRelay().Data()["redis_addr"]; addr != "cache:6379" {
			t.Errorf("Relay section should load, got %v", addr)
		}
	})
}

func TestInitialize_OutOfRangeBanner(t *testing.T) {
	resetGlobal()
	path := filepath.Join(t.TempDir(), "config.json")
	writeConfig(t, path, map[string]map[string]interface{}{
		SectionIDBanner: {"position": "left", "height": 0, "poll_interval": "1ns"},
	})

	err := Initialize(path)
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Expected *LoadError, got %v", err)
	}
	if _, ok := loadErr.Sections[SectionIDBanner]; !ok {
		t.Errorf("Banner section should be reported: %v", loadErr)
	}

	banner := GetBanner()
	if pos, height := banner.Layout(); pos != BannerPositionTop || height != 25 {
		t.Errorf("Expected default layout, got %s/%d", pos, height)
	}
	if banner.GetPollInterval() < 50*time.Millisecond {
		t.Errorf("Poll interval should fall back to the default, got %v", banner.GetPollInterval())
	}
}

func TestGlobal(t *testing.T) {
	resetGlobal()

	defer func() {
		if recover() == nil {
			t.Error("Global should panic before Initialize")
		}
	}()
	Global()
}

func TestAccessorsBeforeInitialize(t *testing.T) {
	resetGlobal()

	if IsInitialized() {
		t.Fatal("Should not be initialized")
	}
	if GetPatterns() != nil || GetRules() != nil || GetBanner() != nil || GetRelay() != nil {
		t.Error("Accessors should return nil when not initialized")
	}
}

func TestGlobalConfig_ThreadSafety(t *testing.T) {
	resetGlobal()
	if err := Initialize(filepath.Join(t.TempDir(), "config.json")); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			IsInitialized()
			GetPatterns().PatternSet()
			GetBanner().Layout()
			GetRelay().Resolve("")
			GetRules().Rules()
		}()
	}
	wg.Wait()
}

func TestGlobalConfig_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	resetGlobal()
	if err := Initialize(path); err != nil {
		t.Fatalf("First initialize failed: %v", err)
	}
	if err := Global().ReplaceSection(SectionIDBanner, map[string]interface{}{
		"position":      "bottom",
		"height":        40,
		"poll_interval": "1s",
	}); err != nil {
		t.Fatalf("ReplaceSection failed: %v", err)
	}
	if err := Global().ReplaceSection(SectionIDPatterns, map[string]interface{}{
		"production": []string{`\.prod\.`},
	}); err != nil {
		t.Fatalf("ReplaceSection failed: %v", err)
	}

	resetGlobal()
	if err := Initialize(path); err != nil {
		t.Fatalf("Re-initialize failed: %v", err)
	}

	if pos, height := GetBanner().Layout(); pos != BannerPositionBottom || height != 40 {
		t.Errorf("Banner layout not persisted: %s/%d", pos, height)
	}
	if GetBanner().GetPollInterval() != time.Second {
		t.Errorf("Poll interval not persisted: %v", GetBanner().GetPollInterval())
	}
	set, ok := GetPatterns().PatternSet()
	if !ok || len(set["production"]) != 1 || set["production"][0] != `\.prod\.` {
		t.Errorf("Patterns not persisted: %v", set)
	}
	if len(set["staging"]) != 0 {
		t.Errorf("Environments absent from the saved set stay empty: %v", set["staging"])
	}
}
