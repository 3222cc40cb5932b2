package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatcherTriggersReloadOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(minimalYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	w, err := NewWatcher(path, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error: %v", err)
	}

	var reloads atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Watch(ctx, func() error {
			reloads.Add(1)
			return nil
		})
	}()

	// Let the watcher register before writing.
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(path, []byte(minimalYAML+"\n# touched\n"), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for reloads.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("reload callback never fired")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error: %v", err)
	}
	<-done
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	other := filepath.Join(dir, "other.yaml")
	if err := os.WriteFile(path, []byte(minimalYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	w, err := NewWatcher(path, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error: %v", err)
	}

	var reloads atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Watch(ctx, func() error {
			reloads.Add(1)
			return nil
		})
	}()

	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(other, []byte("unrelated"), 0o600); err != nil {
		t.Fatalf("write other file: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	if got := reloads.Load(); got != 0 {
		t.Errorf("reloads = %d, want 0 for unrelated file", got)
	}

	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error: %v", err)
	}
	<-done
}

func TestDebouncerCoalesces(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1 after burst", got)
	}
}
