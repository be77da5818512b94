package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestLoggerWritesLeveledLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", FileName)
	logger, err := New(path)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Printf("pinned %s", "actions/checkout")
	logger.Warnf("fallback to %s\n", "main")
	logger.Errorf("failed %d", 1)
	if err := logger.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), lines)
	}
	for i, want := range []string{"INFO  pinned actions/checkout", "WARN  fallback to main", "ERROR failed 1"} {
		if !strings.HasSuffix(lines[i], want) {
			t.Fatalf("line %d = %q, want suffix %q", i, lines[i], want)
		}
		if !strings.HasPrefix(lines[i], "[") {
			t.Fatalf("line %d missing timestamp: %q", i, lines[i])
		}
	}
}

func TestLoggerConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	logger, err := New(path)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			logger.Printf("entry %d", i)
		}(i)
	}
	wg.Wait()
	_ = logger.Close()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if got := strings.Count(string(data), "\n"); got != 20 {
		t.Fatalf("expected 20 lines, got %d", got)
	}
}

func TestNilLoggerIsNoop(t *testing.T) {
	var logger *Logger
	logger.Printf("ignored")
	logger.Errorf("ignored")
	if logger.Path() != "" {
		t.Fatalf("expected empty path")
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("close nil logger: %v", err)
	}
}
