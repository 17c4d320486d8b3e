package config

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestWatcherReloadsOnChange(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
`)

	watcher, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	watcher.debounce = newDebouncer(20 * time.Millisecond)
	defer func() { _ = watcher.Stop() }()

	reloaded := make(chan *Config, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = watcher.Watch(ctx, func(cfg *Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		})
	}()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("server:\n  port: 6060\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Server.Port != 6060 {
			t.Errorf("Reloaded Server.Port = %d, want 6060", cfg.Server.Port)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Reload not delivered after file modification")
	}
}

func TestWatcherKeepsConfigOnInvalidReload(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
`)

	watcher, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	watcher.debounce = newDebouncer(20 * time.Millisecond)
	defer func() { _ = watcher.Stop() }()

	var reloads atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = watcher.Watch(ctx, func(*Config) { reloads.Add(1) })
	}()

	time.Sleep(100 * time.Millisecond)

	// Unsupported currency: the reload must be dropped.
	if err := os.WriteFile(path, []byte("budget:\n  currency: USD\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(300 * time.Millisecond)
	if n := reloads.Load(); n != 0 {
		t.Errorf("Expected no reload for an invalid config, got %d", n)
	}
}

func TestWatcherStop(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")

	watcher, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		done <- watcher.Watch(context.Background(), func(*Config) {})
	}()

	time.Sleep(50 * time.Millisecond)

	if err := watcher.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() returned %v after Stop", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after Stop")
	}

	// Stopping twice is a no-op.
	if err := watcher.Stop(); err != nil {
		t.Errorf("Second Stop() error = %v", err)
	}
}

func TestShouldProcessEvent(t *testing.T) {
	watcher, err := NewWatcher("/etc/quaestor/quaestor.yaml", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = watcher.watcher.Close() }()

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{
			name:  "write to the config file",
			event: fsnotify.Event{Name: "/etc/quaestor/quaestor.yaml", Op: fsnotify.Write},
			want:  true,
		},
		{
			name:  "atomic editor rename",
			event: fsnotify.Event{Name: "/etc/quaestor/quaestor.yaml", Op: fsnotify.Create},
			want:  true,
		},
		{
			name:  "chmod ignored",
			event: fsnotify.Event{Name: "/etc/quaestor/quaestor.yaml", Op: fsnotify.Chmod},
			want:  false,
		},
		{
			name:  "unrelated file in the same directory",
			event: fsnotify.Event{Name: "/etc/quaestor/other.yaml", Op: fsnotify.Write},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := watcher.shouldProcessEvent(tt.event); got != tt.want {
				t.Errorf("shouldProcessEvent(%v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestDebouncerCollapsesBursts(t *testing.T) {
	d := newDebouncer(30 * time.Millisecond)
	defer d.stop()

	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		d.trigger(func() { calls.Add(1) })
	}

	time.Sleep(100 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("Expected one callback for a burst, got %d", n)
	}
}

func TestDebouncerStopCancelsPending(t *testing.T) {
	d := newDebouncer(30 * time.Millisecond)

	var calls atomic.Int32
	d.trigger(func() { calls.Add(1) })
	d.stop()

	time.Sleep(100 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("Expected no callback after stop, got %d", n)
	}
}

func TestRestartSections(t *testing.T) {
	prev := DefaultConfig()

	next := DefaultConfig()
	next.Server.Port = 6060
	next.Storage.Path = "/tmp/other.db"
	// Live-reloadable changes never show up.
	next.Budget.DailyHard = 50
	next.Routing.Keywords = []string{"migrate"}
	next.Pricing.Overrides = map[string]ModelPrice{"m": {InputPerMTok: 1}}

	got := RestartSections(prev, next)

	want := map[string]bool{"server": true, "storage": true}
	if len(got) != len(want) {
		t.Fatalf("RestartSections() = %v, want sections %v", got, want)
	}
	for _, section := range got {
		if !want[section] {
			t.Errorf("Unexpected restart section %q", section)
		}
	}
}

func TestRestartSectionsNoChanges(t *testing.T) {
	prev := DefaultConfig()
	next := DefaultConfig()

	if got := RestartSections(prev, next); len(got) != 0 {
		t.Errorf("RestartSections() = %v, want none for identical configs", got)
	}
}
