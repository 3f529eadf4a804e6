package daemonrun

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWorkerNameFallsBackToHost(t *testing.T) {
	if got := WorkerName("  encoder-a "); got != "encoder-a" {
		t.Fatalf("WorkerName = %q", got)
	}
	host, _ := os.Hostname()
	if host == "" {
		host = "worker"
	}
	if got := WorkerName(""); got != host {
		t.Fatalf("WorkerName(\"\") = %q, want %q", got, host)
	}
}

func TestEnsureCurrentLogPointerReplacesLink(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.log")
	second := filepath.Join(dir, "b.log")
	for _, p := range []string{first, second} {
		if err := os.WriteFile(p, []byte(filepath.Base(p)), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := ensureCurrentLogPointer(dir, first); err != nil {
		t.Fatalf("first pointer: %v", err)
	}
	if err := ensureCurrentLogPointer(dir, second); err != nil {
		t.Fatalf("second pointer: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "videoflix-worker.log"))
	if err != nil {
		t.Fatalf("read pointer: %v", err)
	}
	if strings.TrimSpace(string(data)) != "b.log" {
		t.Fatalf("pointer resolves to %q", data)
	}
}

func TestWritePIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.pid")
	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) == "" {
		t.Fatal("expected pid contents")
	}
}
