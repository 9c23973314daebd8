// Package watch re-runs an analysis whenever a bulk task file changes.
package watch

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when Config.Debounce is zero.
const DefaultDebounce = 250 * time.Millisecond

// TriggerFunc is called with the file content after each settled change.
// It runs on its own goroutine, so a slow trigger never blocks event
// collection; overlapping calls are possible and are the callee's concern.
//
// A non-nil error means the content was not analyzed, for example because
// another analysis was still pending. The watcher then forgets it, so saving
// the same content again triggers again.
type TriggerFunc func(ctx context.Context, content []byte) error

// Config configures a Watcher.
type Config struct {
	// Path is the file to watch.
	Path string

	// Debounce is how long changes are collected before triggering.
	Debounce time.Duration

	// SkipInitial suppresses the trigger for the file's content at start.
	SkipInitial bool

	Logger *slog.Logger
}

// Watcher watches a single file through its parent directory, so editors
// that replace the file by rename are still seen.
type Watcher struct {
	path     string
	debounce time.Duration
	initial  bool
	trigger  TriggerFunc
	logger   *slog.Logger

	mu       sync.Mutex
	pending  bool
	lastHash [sha256.Size]byte
	seen     bool

	wg sync.WaitGroup
}

// New creates a watcher for cfg.Path.
func New(cfg Config, trigger TriggerFunc) (*Watcher, error) {
	if cfg.Path == "" {
		return nil, errors.New("watch path cannot be empty")
	}
	if trigger == nil {
		return nil, errors.New("trigger cannot be nil")
	}

	path, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve watch path: %w", err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		path:     path,
		debounce: debounce,
		initial:  !cfg.SkipInitial,
		trigger:  trigger,
		logger:   logger.With("component", "watcher", "path", path),
	}, nil
}

// Run watches until ctx is done, then waits for running triggers and
// returns nil.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	w.logger.Info("watching for changes", "debounce", w.debounce)

	if w.initial {
		if _, err := os.Stat(w.path); err == nil {
			w.markPending()
			w.flush(ctx)
		} else {
			w.logger.Warn("watched file does not exist yet", "error", err)
		}
	}

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			w.logger.Info("watcher stopped")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				w.wg.Wait()
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-fsw.Errors:
			if !ok {
				w.wg.Wait()
				return nil
			}
			w.logger.Error("watcher error", "error", err)

		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	w.logger.Debug("change detected", "op", event.Op.String())
	w.markPending()
}

func (w *Watcher) markPending() {
	w.mu.Lock()
	w.pending = true
	w.mu.Unlock()
}

// flush triggers once for all changes collected since the last tick,
// skipping content identical to what was last triggered.
func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	if !w.pending {
		w.mu.Unlock()
		return
	}
	w.pending = false
	w.mu.Unlock()

	content, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Warn("failed to read watched file", "error", err)
		return
	}

	sum := sha256.Sum256(content)
	w.mu.Lock()
	if w.seen && sum == w.lastHash {
		w.mu.Unlock()
		w.logger.Debug("content unchanged, skipping")
		return
	}
	w.seen = true
	w.lastHash = sum
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.trigger(ctx, content); err != nil {
			w.logger.Debug("trigger did not take the change", "error", err)
			w.forget(sum)
		}
	}()
}

// forget drops sum as the last triggered content unless a newer change has
// replaced it in the meantime.
func (w *Watcher) forget(sum [sha256.Size]byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.seen && w.lastHash == sum {
		w.seen = false
	}
}
