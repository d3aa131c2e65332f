package config

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, path string, sections map[string]map[string]interface{}) {
	t.Helper()
	doc := map[string]interface{}{"version": "1.0", "sections": sections}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestNewFileStore(t *testing.T) {
	t.Run("default path", func(t *testing.T) {
		store, err := NewFileStore("")
		if store == nil {
			t.Fatalf("NewFileStore with empty path failed: %v", err)
		}

		homeDir, _ := os.UserHomeDir()
		expected := filepath.Join(homeDir, ".envwarn", "config.json")
		if store.Path() != expected {
			t.Errorf("Expected default path %s, got %s", expected, store.Path())
		}
	})

	t.Run("loads existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		writeConfig(t, path, map[string]map[string]interface{}{
			SectionIDPatterns: {"staging": []interface{}{`^stg\.`}},
		})

		store, err := NewFileStore(path)
		if err != nil {
			t.Fatalf("NewFileStore failed: %v", err)
		}
		if store.IsModified() {
			t.Error("Freshly loaded store should not be modified")
		}

		section, _ := store.GetSection(SectionIDPatterns)
		list, ok := section["staging"].([]interface{})
		if !ok || len(list) != 1 || list[0] != `^stg\.` {
			t.Errorf("Unexpected staging patterns: %#v", section["staging"])
		}
	})

	t.Run("missing file is empty", func(t *testing.T) {
		store, err := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))
		if err != nil {
			t.Fatalf("Missing file should not be an error: %v", err)
		}
		all, _ := store.GetAll()
		if len(all) != 0 {
			t.Errorf("Expected no sections, got %d", len(all))
		}
	})

	t.Run("corrupt file is unavailable but usable", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
			t.Fatal(err)
		}

		store, err := NewFileStore(path)
		if !errors.Is(err, ErrStoreUnavailable) {
			t.Fatalf("Expected ErrStoreUnavailable, got %v", err)
		}
		if store == nil {
			t.Fatal("Store should still be returned")
		}
		if err := store.SetSection("banner", map[string]interface{}{"height": 30}); err != nil {
			t.Errorf("Store should accept writes: %v", err)
		}
	})
}

func TestFileStore_LoadFailureKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeConfig(t, path, map[string]map[string]interface{}{
		"rules": {"rules": []interface{}{}},
	})

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("{truncated"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := store.Load(); err == nil {
		t.Fatal("Load should fail for invalid JSON")
	}

	if _, ok := mustAll(t, store)["rules"]; !ok {
		t.Error("Failed load must not discard the data already held")
	}
}

func mustAll(t *testing.T, store *FileStore) map[string]map[string]interface{} {
	t.Helper()
	all, err := store.GetAll()
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	return all
}

func TestFileStore_Save(t *testing.T) {
	t.Run("writes the document atomically", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "config.json")
		store, _ := NewFileStore(path)

		if err := store.SetSection("banner", map[string]interface{}{"position": "bottom"}); err != nil {
			t.Fatal(err)
		}
		if !store.IsModified() {
			t.Error("Store should be modified after SetSection")
		}
		if err := store.Save(); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if store.IsModified() {
			t.Error("Store should not be modified after Save")
		}

		if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
			t.Error("Temp file should be renamed away")
		}

		var doc fileDocument
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			t.Fatalf("Saved config is not valid JSON: %v", err)
		}
		if doc.Version != "1.0" || doc.Sections["banner"]["position"] != "bottom" {
			t.Errorf("Unexpected document: %+v", doc)
		}
	})

	t.Run("reopened store sees saved data", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		store, _ := NewFileStore(path)
		store.SetSection("relay", map[string]interface{}{"channel": "team"})
		if err := store.Save(); err != nil {
			t.Fatal(err)
		}

		reopened, err := NewFileStore(path)
		if err != nil {
			t.Fatal(err)
		}
		section, _ := reopened.GetSection("relay")
		if section["channel"] != "team" {
			t.Errorf("Expected channel team, got %v", section["channel"])
		}
	})
}

func TestFileStore_Copies(t *testing.T) {
	store := &FileStore{data: make(map[string]map[string]interface{})}

	input := map[string]interface{}{"position": "top"}
	store.SetSection("banner", input)
	input["position"] = "changed"

	got, _ := store.GetSection("banner")
	if got["position"] != "top" {
		t.Error("SetSection must copy its input")
	}

	got["position"] = "changed"
	again, _ := store.GetSection("banner")
	if again["position"] != "top" {
		t.Error("GetSection must return a copy")
	}

	all := map[string]map[string]interface{}{"relay": {"channel": "a"}}
	store.SetAll(all)
	all["relay"]["channel"] = "b"
	if mustAll(t, store)["relay"]["channel"] != "a" {
		t.Error("SetAll must deep copy its input")
	}
	if _, ok := mustAll(t, store)["banner"]; ok {
		t.Error("SetAll replaces every section")
	}
}

func TestFileStore_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeConfig(t, path, map[string]map[string]interface{}{
		"relay": {"channel": "one"},
	})
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- store.Watch(ctx, func() { changes <- struct{}{} })
	}()

	// Another process replaces the file.
	deadline := time.After(5 * time.Second)
	writer, _ := NewFileStore(path)
	writer.SetSection("relay", map[string]interface{}{"channel": "two"})
	for {
		if err := writer.Save(); err != nil {
			t.Fatal(err)
		}
		select {
		case <-changes:
			section, _ := store.GetSection("relay")
			if section["channel"] != "two" {
				t.Errorf("Expected reloaded channel two, got %v", section["channel"])
			}
			cancel()
			if err := <-done; err != nil {
				t.Errorf("Watch returned %v", err)
			}
			return
		case <-time.After(100 * time.Millisecond):
			// The watcher may not be registered yet; write again.
		case <-deadline:
			t.Fatal("no change reported")
		}
	}
}
