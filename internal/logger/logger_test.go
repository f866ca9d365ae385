package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T, level Level) (Logger, string) {
	t.Helper()
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	l, err := NewDefaultLogger(&Config{
		LogFilePath:   logPath,
		MaxFileSizeMB: 1,
		MaxBackups:    3,
		Level:         level,
		EnableConsole: false,
	})
	if err != nil {
		t.Fatalf("NewDefaultLogger: %v", err)
	}
	return l, logPath
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	return string(data)
}

func TestNewDefaultLogger(t *testing.T) {
	l, logPath := newTestLogger(t, LevelDebug)
	defer l.Close()

	l.Info("hello")
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		t.Error("log file was not created")
	}
}

func TestLogLevels(t *testing.T) {
	l, logPath := newTestLogger(t, LevelDebug)

	l.Debug("debug message", String("key", "value"))
	l.Info("info message", Int("count", 42))
	l.Warn("warn message", Bool("flag", true))
	l.Error("error message", errors.New("test error"), Float64("rate", 3.14))
	l.Close()

	content := readLog(t, logPath)

	for _, want := range []string{
		"level=debug", "level=info", "level=warning", "level=error",
		"debug message", "info message", "warn message", "error message",
		`key=value`, `count=42`, `flag=true`, `rate=3.14`, `test error`,
	} {
		if !strings.Contains(content, want) {
			t.Errorf("log output missing %q; got:\n%s", want, content)
		}
	}
}

func TestLogLevelFiltering(t *testing.T) {
	l, logPath := newTestLogger(t, LevelWarn)

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message")
	l.Error("error message", nil)
	l.Close()

	content := readLog(t, logPath)

	if strings.Contains(content, "debug message") {
		t.Error("debug message should be filtered out")
	}
	if strings.Contains(content, "info message") {
		t.Error("info message should be filtered out")
	}
	if !strings.Contains(content, "warn message") {
		t.Error("warn message should be present")
	}
	if !strings.Contains(content, "error message") {
		t.Error("error message should be present")
	}
}

func TestSetLevel(t *testing.T) {
	l, logPath := newTestLogger(t, LevelDebug)

	l.Debug("debug before")
	l.SetLevel(LevelError)
	l.Debug("debug after")
	l.Info("info after")
	l.Warn("warn after")
	l.Error("error after", nil)
	l.Close()

	content := readLog(t, logPath)

	if !strings.Contains(content, "debug before") {
		t.Error("debug message logged before the level change should be present")
	}
	if strings.Contains(content, "debug after") || strings.Contains(content, "info after") || strings.Contains(content, "warn after") {
		t.Error("messages below Error should be filtered out after SetLevel")
	}
	if !strings.Contains(content, "error after") {
		t.Error("error message should be present")
	}
}

func TestGlobalLoggerFunctions(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "global.log")

	if err := Init(&Config{LogFilePath: logPath, MaxFileSizeMB: 1, MaxBackups: 1, Level: LevelDebug}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Close()

	Info("global info", String("k", "v"))
	Warn("global warn")
	Error("global error", errors.New("boom"))

	content := readLog(t, logPath)
	for _, want := range []string{"global info", "global warn", "global error", "boom"} {
		if !strings.Contains(content, want) {
			t.Errorf("global log output missing %q", want)
		}
	}
}

func TestGetLoggerDefaultsWhenUninitialized(t *testing.T) {
	SetGlobalLogger(nil)
	l := GetLogger()
	if l == nil {
		t.Fatal("GetLogger returned nil")
	}
	// Should not panic even though no Init() was called.
	l.Info("noop-safe call")
}

func TestFieldConstructors(t *testing.T) {
	if f := String("k", "v"); f.Key != "k" || f.Value != "v" {
		t.Errorf("String field mismatch: %+v", f)
	}
	if f := Int("k", 1); f.Value != 1 {
		t.Errorf("Int field mismatch: %+v", f)
	}
	if f := Err(nil); f.Value != nil {
		t.Errorf("Err(nil) should carry a nil value, got %+v", f)
	}
	if f := Err(errors.New("x")); f.Value != "x" {
		t.Errorf("Err field mismatch: %+v", f)
	}
}
