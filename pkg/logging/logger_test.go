package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// setupTestDir points the package at a temporary log directory and resets
// the session.
func setupTestDir(t *testing.T) string {
	t.Helper()

	tempDir := t.TempDir()

	origLogDir, origInitErr := logDir, initErr
	origSessionID := sessionID

	logDir = tempDir
	initErr = nil
	initOnce = sync.Once{}
	sessionID = ""
	sessionIDOnce = sync.Once{}

	t.Cleanup(func() {
		logDir, initErr = origLogDir, origInitErr
		initOnce = sync.Once{}
		sessionID = origSessionID
		sessionIDOnce = sync.Once{}
	})
	return tempDir
}

func readLog(t *testing.T, l *Logger) string {
	t.Helper()
	data, err := os.ReadFile(l.LogPath())
	if err != nil {
		t.Fatalf("Failed to read log: %v", err)
	}
	return string(data)
}

func TestNewLogger(t *testing.T) {
	dir := setupTestDir(t)

	logger, err := NewLogger("banner")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	if logger.SessionID() == "" {
		t.Error("Expected non-empty session ID")
	}
	want := filepath.Join(dir, logger.SessionID()+"-envwarn.log")
	if logger.LogPath() != want {
		t.Errorf("Expected log path %s, got %s", want, logger.LogPath())
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("Log file does not exist: %v", err)
	}

	gotDir, err := GetLogDirectory()
	if err != nil || gotDir != dir {
		t.Errorf("GetLogDirectory() = %q, %v", gotDir, err)
	}
}

func TestLoggerFormatting(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("patterns")
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()

	logger.Debugf("loaded %d patterns", 4)
	logger.Infof("saved")
	logger.Warnf("pattern %q will never match", "[invalid(")
	logger.Errorf("store unavailable")

	content := readLog(t, logger)
	for _, want := range []string{
		"[patterns] [DEBUG] loaded 4 patterns",
		"[patterns] [INFO] saved",
		`[patterns] [WARN] pattern "[invalid(" will never match`,
		"[patterns] [ERROR] store unavailable",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("Log missing %q:\n%s", want, content)
		}
	}
}

func TestLoggerWith(t *testing.T) {
	setupTestDir(t)

	root, err := NewLogger("envwarn")
	if err != nil {
		t.Fatal(err)
	}
	relay := root.With("relay")

	if relay.SessionID() != root.SessionID() || relay.LogPath() != root.LogPath() {
		t.Error("Derived loggers share the session and file")
	}

	root.Infof("starting")
	relay.Infof("bridge active")

	content := readLog(t, root)
	if !strings.Contains(content, "[envwarn] [INFO] starting") || !strings.Contains(content, "[relay] [INFO] bridge active") {
		t.Errorf("Unexpected log content:\n%s", content)
	}

	// Closing through either logger closes the file once.
	if err := relay.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := root.Close(); err != nil {
		t.Errorf("Second Close should be a no-op: %v", err)
	}
}

func TestLoggerConcurrentWrites(t *testing.T) {
	setupTestDir(t)

	root, err := NewLogger("host")
	if err != nil {
		t.Fatal(err)
	}
	defer root.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			l := root.With(fmt.Sprintf("tab-%d", n))
			for j := 0; j < 20; j++ {
				l.Infof("navigation %d", j)
			}
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(readLog(t, root)), "\n")
	if len(lines) != 200 {
		t.Errorf("Expected 200 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !strings.Contains(line, "[INFO] navigation") {
			t.Errorf("Interleaved line: %q", line)
		}
	}
}

func TestLoggerFallbacks(t *testing.T) {
	setupTestDir(t)
	logDir = filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(logDir, nil, 0600); err != nil {
		t.Fatal(err)
	}

	logger, err := NewLogger("envwarn")
	if err == nil {
		t.Fatal("Expected an error when the log directory cannot be created")
	}
	if logger == nil || logger.LogPath() != "" {
		t.Error("Expected a stderr logger")
	}

	d := Discard()
	d.Infof("dropped")
	if err := d.Close(); err != nil {
		t.Errorf("Discard logger Close failed: %v", err)
	}

	var nilLogger *Logger
	nilLogger.Infof("no panic")
}

func TestSessionIDStable(t *testing.T) {
	setupTestDir(t)

	first := GetSessionID()
	if first == "" || GetSessionID() != first {
		t.Error("Session ID should be generated once per process")
	}
}
