// Package watch monitors interface and statement files for changes and
// delivers debounced, batched events so the mapping cache can be kept
// consistent with the filesystem.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/Greenplumwine/mbnav/internal/config"
	"github.com/Greenplumwine/mbnav/internal/debug"
	"github.com/Greenplumwine/mbnav/internal/types"
)

// EventKind classifies a filesystem event after debouncing.
type EventKind int

const (
	EventCreate EventKind = iota
	EventWrite
	EventRemove
	EventRename
)

// Callbacks receive debounced events grouped per flush. Removals are
// delivered before changes, changes before creations, so invalidation
// happens before any rescan sees a stale pairing.
type Callbacks struct {
	OnRemoved func(path string)
	OnChanged func(path string)
	OnCreated func(path string)

	// OnBatchEnd fires after a flush completes, with the event count.
	OnBatchEnd func(count int, elapsed time.Duration)
}

// Watcher wraps fsnotify with recursive directory watches, relevance
// filtering, and trailing-edge debouncing.
type Watcher struct {
	watcher   *fsnotify.Watcher
	cfg       *config.Config
	debouncer *eventDebouncer
	callbacks Callbacks

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	statsMu         sync.RWMutex
	eventsProcessed int64
	errorCount      int64
	lastEventTime   time.Time
}

// New creates a watcher for the configured project. Start must be called
// before events flow.
func New(cfg *config.Config, callbacks Callbacks) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := &Watcher{
		watcher:   fsw,
		cfg:       cfg,
		debouncer: newEventDebouncer(time.Duration(cfg.Watch.DebounceMs) * time.Millisecond),
		callbacks: callbacks,
		ctx:       ctx,
		cancel:    cancel,
	}
	w.debouncer.sink = w

	return w, nil
}

// Start adds recursive watches rooted at the project root and begins
// processing events.
func (w *Watcher) Start() error {
	root := w.cfg.Project.Root
	debug.LogWatch("starting watcher at %s\n", root)

	if err := w.addWatches(root); err != nil {
		return fmt.Errorf("failed to add watches under %s: %w", root, err)
	}

	w.wg.Add(1)
	go w.processEvents()

	return nil
}

// Stop shuts the watcher down and waits for the event goroutine. Events
// still pending in the debouncer are dropped; the cache is being torn down
// with the watcher, so flushing into it would only race the shutdown.
func (w *Watcher) Stop() error {
	w.cancel()
	err := w.watcher.Close()
	w.debouncer.stop()
	w.wg.Wait()
	return err
}

// addWatches registers every relevant directory under root. Symlink cycles
// are detected by resolving real paths.
func (w *Watcher) addWatches(root string) error {
	visited := make(map[string]bool)

	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}

		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil
		}
		if visited[realPath] {
			return filepath.SkipDir
		}
		visited[realPath] = true

		if w.shouldIgnoreDirectory(path) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			debug.LogWatch("failed to watch %s: %v\n", path, err)
		}
		return nil
	})
}

func (w *Watcher) shouldIgnoreDirectory(path string) bool {
	rel, err := filepath.Rel(w.cfg.Project.Root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return false
	}

	for _, pattern := range w.cfg.Exclude {
		dirPattern := strings.TrimSuffix(pattern, "/**")
		if matched, _ := doublestar.Match(dirPattern, rel); matched {
			return true
		}
		if matched, _ := doublestar.Match(dirPattern, filepath.Base(path)); matched {
			return true
		}
	}
	return false
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			debug.LogWatch("watcher error: %v\n", err)
			w.incrementStats(0, 1)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	debug.LogWatch("event %v for %s\n", event.Op, path)

	info, err := os.Stat(path)
	if err != nil {
		// Gone already; only the removal matters.
		if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && w.relevantFile(path) {
			w.debouncer.add(path, EventRemove)
		}
		return
	}

	if info.IsDir() {
		// A freshly created directory needs its own watch for events
		// inside it.
		if event.Op&fsnotify.Create != 0 && !w.shouldIgnoreDirectory(path) {
			if err := w.watcher.Add(path); err != nil {
				debug.LogWatch("failed to watch new directory %s: %v\n", path, err)
			}
		}
		return
	}

	if info.Size() > w.cfg.Scan.MaxFileSize {
		return
	}
	if !w.relevantFile(path) {
		return
	}

	var kind EventKind
	switch {
	case event.Op&fsnotify.Create != 0:
		kind = EventCreate
	case event.Op&fsnotify.Write != 0:
		kind = EventWrite
	case event.Op&fsnotify.Remove != 0:
		kind = EventRemove
	case event.Op&fsnotify.Rename != 0:
		kind = EventRename
	default:
		return
	}

	w.debouncer.add(path, kind)
}

// relevantFile reports whether path is an interface or statement file that
// falls inside the watched scope.
func (w *Watcher) relevantFile(path string) bool {
	switch filepath.Ext(path) {
	case types.InterfaceExt, types.StatementExt:
	default:
		return false
	}

	rel, err := filepath.Rel(w.cfg.Project.Root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range w.cfg.Exclude {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return false
		}
	}
	return true
}

func (w *Watcher) incrementStats(events, errors int64) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.eventsProcessed += events
	w.errorCount += errors
	w.lastEventTime = time.Now()
}

// Stats reports watcher activity counters.
func (w *Watcher) Stats() Stats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()
	return Stats{
		EventsProcessed: w.eventsProcessed,
		ErrorCount:      w.errorCount,
		LastEventTime:   w.lastEventTime,
		IsActive:        w.ctx.Err() == nil,
	}
}

// Stats describes watcher activity since Start.
type Stats struct {
	EventsProcessed int64
	ErrorCount      int64
	LastEventTime   time.Time
	IsActive        bool
}

// eventDebouncer coalesces bursts of events per path; only the latest event
// for a path survives a burst, and the flush fires one debounce interval
// after the last event. Pending paths wait at most maxWait: past that, a
// sustained burst on one file stops postponing the flush for the others.
type eventDebouncer struct {
	mu       sync.Mutex
	events   map[string]EventKind
	debounce time.Duration
	maxWait  time.Duration
	oldest   time.Time
	timer    *time.Timer
	sink     *Watcher
}

func newEventDebouncer(debounce time.Duration) *eventDebouncer {
	return &eventDebouncer{
		events:   make(map[string]EventKind),
		debounce: debounce,
		maxWait:  4 * debounce,
	}
}

func (d *eventDebouncer) add(path string, kind EventKind) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.events) == 0 {
		d.oldest = time.Now()
	}
	d.events[path] = kind

	if d.timer != nil {
		// Once the oldest pending event has waited maxWait, leave the
		// armed timer to run out instead of trailing the burst.
		if time.Since(d.oldest) >= d.maxWait {
			return
		}
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.debounce, d.flush)
}

func (d *eventDebouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.events = make(map[string]EventKind)
}

func (d *eventDebouncer) flush() {
	d.mu.Lock()
	events := d.events
	d.events = make(map[string]EventKind)
	d.mu.Unlock()

	if len(events) == 0 {
		return
	}

	start := time.Now()

	var creates, removes, changes []string
	for path, kind := range events {
		switch kind {
		case EventCreate:
			creates = append(creates, path)
		case EventRemove:
			removes = append(removes, path)
		case EventWrite, EventRename:
			changes = append(changes, path)
		}
	}

	cb := d.sink.callbacks
	for _, path := range removes {
		if cb.OnRemoved != nil {
			cb.OnRemoved(path)
			d.sink.incrementStats(1, 0)
		}
	}
	for _, path := range changes {
		if cb.OnChanged != nil {
			cb.OnChanged(path)
			d.sink.incrementStats(1, 0)
		}
	}
	for _, path := range creates {
		if cb.OnCreated != nil {
			cb.OnCreated(path)
			d.sink.incrementStats(1, 0)
		}
	}

	if cb.OnBatchEnd != nil {
		cb.OnBatchEnd(len(events), time.Since(start))
	}
}
