package applog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, false)
	logger.Info("progress saved", "completed", 3)
	logger.Debug("hidden")
	out := buf.String()
	if !strings.Contains(out, `"msg":"progress saved"`) {
		t.Fatalf("expected json message, got %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("expected debug record to be filtered")
	}
}

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "rapiddent.log")
	logger, closer, err := Open(path, true)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	logger.Debug("exam finished", "score", 24)
	if err := closer.Close(); err != nil {
		t.Fatalf("close log: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "exam finished") {
		t.Fatalf("expected record in log file, got %q", data)
	}
}

func TestOrDiscard(t *testing.T) {
	if OrDiscard(nil) == nil {
		t.Fatalf("expected discard logger")
	}
}
