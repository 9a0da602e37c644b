package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrate.log")

	logger, closer, err := New("debug", path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("topic created", "title", "Sunsets", "anchor", 7)
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	line := string(b)
	for _, want := range []string{"topic created", "title=Sunsets", "anchor=7"} {
		if !strings.Contains(line, want) {
			t.Fatalf("log line %q missing %q", line, want)
		}
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, _, err := New("loud", ""); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
