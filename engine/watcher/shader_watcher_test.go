package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestShaderWatcherDeliversLatestSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tint.wgsl")
	if err := os.WriteFile(path, []byte("// v0"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	changes := make(chan string, 16)
	w, err := NewShaderWatcher(path, func(src string) { changes <- src }, WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewShaderWatcher: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- w.Start(ctx) }()

	// Give the loop a moment to start draining events.
	time.Sleep(50 * time.Millisecond)
	for _, v := range []string{"// v1", "// v2"} {
		if err := os.WriteFile(path, []byte(v), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	// Writes to a sibling file are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.wgsl"), []byte("// other"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case src := <-changes:
			if src == "// other" {
				t.Fatalf("received sibling file contents")
			}
			if src != "// v2" {
				continue
			}
		case <-deadline:
			t.Fatalf("no change delivered")
		}
		break
	}

	cancel()
	select {
	case err := <-stopped:
		if err != nil {
			t.Fatalf("Start returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Start did not return after cancel")
	}
}

func TestShaderWatcherClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frag.wgsl")
	w, err := NewShaderWatcher(path, func(string) {})
	if err != nil {
		t.Fatalf("NewShaderWatcher: %v", err)
	}

	stopped := make(chan error, 1)
	go func() { stopped <- w.Start(context.Background()) }()
	time.Sleep(20 * time.Millisecond)

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("Start did not return after Close")
	}
	if err := w.Start(context.Background()); !errors.Is(err, ErrWatcherClosed) {
		t.Fatalf("Start after Close = %v, want ErrWatcherClosed", err)
	}
}

func TestNewShaderWatcherRejects(t *testing.T) {
	if _, err := NewShaderWatcher(filepath.Join(t.TempDir(), "missing", "x.wgsl"), func(string) {}); err == nil {
		t.Fatalf("expected error for a missing directory")
	}
	if _, err := NewShaderWatcher("x.wgsl", nil); err == nil {
		t.Fatalf("expected error for a nil callback")
	}
}
