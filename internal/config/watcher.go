package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/moolen/magma/internal/logging"
)

// TuningConfig is the hot-reloadable subset of Config: the retrieval
// knobs an operator may want to adjust without a restart. Connection
// settings and provider selection are not part of it — those are only
// read once at startup.
type TuningConfig struct {
	Executor  ExecutorTuning
	Merge     MergeTuning
	Linearize LinearizeTuning
}

// ReloadCallback is invoked with the newly loaded tuning config whenever
// the watched file changes and reparses/validates successfully.
type ReloadCallback func(TuningConfig) error

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	FilePath       string
	DebounceMillis int
}

// Watcher watches a config file for changes and reloads the tuning
// subset with debouncing, so a burst of editor save events collapses
// into a single reload. Invalid reloads are logged and the previous
// tuning stays in effect.
type Watcher struct {
	cfg      WatcherConfig
	callback ReloadCallback
	logger   *logging.Logger

	mu            sync.Mutex
	debounceTimer *time.Timer
	cancel        context.CancelFunc
	stopped       chan struct{}
}

// NewWatcher constructs a Watcher for cfg.FilePath.
func NewWatcher(cfg WatcherConfig, callback ReloadCallback) (*Watcher, error) {
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("config: watcher FilePath must not be empty")
	}
	if callback == nil {
		return nil, fmt.Errorf("config: watcher callback must not be nil")
	}
	if cfg.DebounceMillis == 0 {
		cfg.DebounceMillis = 500
	}
	return &Watcher{
		cfg:      cfg,
		callback: callback,
		logger:   logging.GetLogger("config.watcher"),
		stopped:  make(chan struct{}),
	}, nil
}

// Start loads the initial tuning config, invokes the callback, then
// watches the file for changes in the background. It returns once the
// initial load succeeds; Stop shuts the background watch down.
func (w *Watcher) Start(ctx context.Context) error {
	initial, err := loadTuning(w.cfg.FilePath)
	if err != nil {
		return fmt.Errorf("config: initial tuning load: %w", err)
	}
	if err := w.callback(initial); err != nil {
		return fmt.Errorf("config: initial tuning callback: %w", err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	go w.watchLoop(watchCtx)
	return nil
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer close(w.stopped)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Error("failed to create file watcher: %v", err)
		return
	}
	defer fsw.Close()

	if err := fsw.Add(w.cfg.FilePath); err != nil {
		w.logger.Error("failed to watch %s: %v", w.cfg.FilePath, err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				w.scheduleReload()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error: %v", err)
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(time.Duration(w.cfg.DebounceMillis)*time.Millisecond, func() {
		w.reload()
	})
}

func (w *Watcher) reload() {
	tuning, err := loadTuning(w.cfg.FilePath)
	if err != nil {
		w.logger.Error("reload failed, keeping previous tuning: %v", err)
		return
	}
	if err := w.callback(tuning); err != nil {
		w.logger.Error("reload callback failed: %v", err)
		return
	}
	w.logger.Info("tuning config reloaded from %s", w.cfg.FilePath)
}

// Stop cancels the background watch and waits up to 5s for it to exit.
func (w *Watcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	select {
	case <-w.stopped:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("config: timeout waiting for watcher to stop")
	}
}

func loadTuning(path string) (TuningConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return TuningConfig{}, err
	}
	return TuningConfig{Executor: cfg.Executor, Merge: cfg.Merge, Linearize: cfg.Linearize}, nil
}
