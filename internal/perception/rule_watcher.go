package perception

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"kairo/internal/logging"
)

// RuleWatcher watches a rule-table file and swaps a freshly parsed table
// into the weight store when the file settles after a change. A file that
// fails to parse leaves the current table in place.
type RuleWatcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	store       *WeightStore
	path        string
	dir         string
	debounceDur time.Duration
	pending     time.Time
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats RuleWatcherStats
}

// RuleWatcherStats tracks watcher activity.
type RuleWatcherStats struct {
	Events    int
	Reloads   int
	Errors    int
	LastError string
	LastLoad  time.Time
}

// NewRuleWatcher creates a watcher for path feeding store.
func NewRuleWatcher(path string, store *WeightStore, debounce time.Duration) (*RuleWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	return &RuleWatcher{
		watcher:     w,
		store:       store,
		path:        abs,
		dir:         filepath.Dir(abs),
		debounceDur: debounce,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking. The parent directory is watched so
// editors that replace the file by rename are still observed.
func (rw *RuleWatcher) Start(ctx context.Context) error {
	rw.mu.Lock()
	if rw.running {
		rw.mu.Unlock()
		return nil // Already running
	}
	rw.running = true
	rw.mu.Unlock()

	if err := rw.watcher.Add(rw.dir); err != nil {
		rw.mu.Lock()
		rw.running = false
		rw.mu.Unlock()
		return err
	}
	logging.Perception("RuleWatcher: watching %s", rw.path)

	go rw.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the loop to exit.
func (rw *RuleWatcher) Stop() {
	rw.mu.Lock()
	if !rw.running {
		rw.mu.Unlock()
		_ = rw.watcher.Close()
		return
	}
	rw.running = false
	rw.mu.Unlock()

	close(rw.stopCh)
	<-rw.doneCh

	if err := rw.watcher.Close(); err != nil {
		logging.PerceptionWarn("RuleWatcher: error closing watcher: %v", err)
	}
	logging.Perception("RuleWatcher: stopped")
}

// Stats returns a copy of the watcher counters.
func (rw *RuleWatcher) Stats() RuleWatcherStats {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.stats
}

func (rw *RuleWatcher) run(ctx context.Context) {
	defer close(rw.doneCh)

	tick := rw.debounceDur / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	debounceTicker := time.NewTicker(tick)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-rw.stopCh:
			return

		case event, ok := <-rw.watcher.Events:
			if !ok {
				return
			}
			rw.handleEvent(event)

		case err, ok := <-rw.watcher.Errors:
			if !ok {
				return
			}
			logging.PerceptionWarn("RuleWatcher error: %v", err)
			rw.mu.Lock()
			rw.stats.Errors++
			rw.stats.LastError = err.Error()
			rw.mu.Unlock()

		case <-debounceTicker.C:
			rw.processDebounced()
		}
	}
}

func (rw *RuleWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != rw.path {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return
	}
	logging.PerceptionDebug("RuleWatcher: %s on %s", event.Op, event.Name)

	rw.mu.Lock()
	rw.stats.Events++
	rw.pending = time.Now()
	rw.mu.Unlock()
}

func (rw *RuleWatcher) processDebounced() {
	rw.mu.Lock()
	if rw.pending.IsZero() || time.Since(rw.pending) < rw.debounceDur {
		rw.mu.Unlock()
		return
	}
	rw.pending = time.Time{}
	rw.mu.Unlock()

	rw.Reload()
}

// Reload parses the watched file and installs it. It reports whether the
// table was replaced.
func (rw *RuleWatcher) Reload() bool {
	table, err := LoadRuleTable(rw.path)
	if err != nil {
		logging.PerceptionWarn("RuleWatcher: keeping current rules, reload failed: %v", err)
		logging.Audit().RulesReloaded(rw.path, 0, err)
		rw.mu.Lock()
		rw.stats.Errors++
		rw.stats.LastError = err.Error()
		rw.mu.Unlock()
		return false
	}

	rw.store.Replace(table)
	logging.Audit().RulesReloaded(rw.path, len(table.Patterns), nil)

	rw.mu.Lock()
	rw.stats.Reloads++
	rw.stats.LastLoad = time.Now()
	rw.mu.Unlock()
	return true
}
