package app

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	defaultDebounce     = 200 * time.Millisecond
	defaultPollInterval = 5 * time.Second
)

// ExitWatcher calls onExit when the exit signal file gets a new revision.
// The revision present when the watcher is created is ignored, so a signal
// left by an earlier run does not end a fresh shell.
type ExitWatcher struct {
	signalPath   string
	onExit       func()
	logger       *log.Logger
	debounce     time.Duration
	pollInterval time.Duration

	mu            sync.Mutex
	lastRev       string
	debounceTimer *time.Timer
	checkMu       sync.Mutex
}

// ExitWatcherOption configures the watcher.
type ExitWatcherOption func(*ExitWatcher)

// WithPollInterval sets the fallback poll interval (default 5s).
func WithPollInterval(d time.Duration) ExitWatcherOption {
	return func(w *ExitWatcher) {
		w.pollInterval = d
	}
}

// NewExitWatcher records the current revision of signalPath as the baseline.
func NewExitWatcher(signalPath string, onExit func(), logger *log.Logger, opts ...ExitWatcherOption) *ExitWatcher {
	w := &ExitWatcher{
		signalPath:   signalPath,
		onExit:       onExit,
		logger:       logger,
		debounce:     defaultDebounce,
		pollInterval: defaultPollInterval,
		lastRev:      readSignalRevision(signalPath),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Start watches the signal file until ctx is cancelled. If fsnotify cannot
// watch the directory, the watcher polls only.
func (w *ExitWatcher) Start(ctx context.Context) {
	watchDir := filepath.Dir(w.signalPath)
	signalName := filepath.Base(w.signalPath)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Printf("ExitWatcher: fsnotify init failed (%v), using poll-only", err)
		watcher = nil
	} else if err := watcher.Add(watchDir); err != nil {
		w.logger.Printf("ExitWatcher: fsnotify add %s failed (%v), using poll-only", watchDir, err)
		_ = watcher.Close()
		watcher = nil
	}

	if watcher != nil {
		defer watcher.Close()
		go w.watchLoop(ctx, watcher, signalName)
	}
	w.pollLoop(ctx)

	w.mu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.mu.Unlock()
}

// CheckOnce runs one check (for testing or manual trigger).
func (w *ExitWatcher) CheckOnce() {
	w.check()
}

func (w *ExitWatcher) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, signalName string) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != signalName {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.triggerDebounced()
		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *ExitWatcher) triggerDebounced() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounce, w.check)
}

func (w *ExitWatcher) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *ExitWatcher) check() {
	// The debounce timer and the poll loop may both see the same revision.
	w.checkMu.Lock()
	defer w.checkMu.Unlock()

	rev := readSignalRevision(w.signalPath)
	if rev == "" {
		return
	}
	w.mu.Lock()
	if rev == w.lastRev {
		w.mu.Unlock()
		return
	}
	w.lastRev = rev
	w.mu.Unlock()

	w.logger.Printf("ExitWatcher: exit requested via %s", w.signalPath)
	w.onExit()
}
