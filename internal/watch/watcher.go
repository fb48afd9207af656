// ABOUTME: Watches a single file for changes using fsnotify.
// ABOUTME: The parent directory is watched so that editors replacing the file are seen too.

package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Op is the kind of change observed.
type Op int

const (
	OpWrite Op = iota
	OpRemove
)

func (op Op) String() string {
	switch op {
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Event is one change of the watched file.
type Event struct {
	Path string
	Op   Op
}

// FileWatcher reports changes of one file.
type FileWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	events  chan Event
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// New returns a watcher for path. Start must be called before events flow.
func New(path string) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return &FileWatcher{
		path:    abs,
		watcher: w,
		events:  make(chan Event, 16),
		errors:  make(chan error, 4),
		done:    make(chan struct{}),
	}, nil
}

// Path returns the absolute path being watched.
func (fw *FileWatcher) Path() string { return fw.path }

// Start begins watching.
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.running {
		return fmt.Errorf("watcher already running")
	}
	dir := filepath.Dir(fw.path)
	if err := fw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	fw.running = true
	fw.wg.Add(1)
	go fw.processEvents()
	return nil
}

// Stop ends watching and waits for the event loop to exit.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if !fw.running {
		fw.mu.Unlock()
		return fw.watcher.Close()
	}
	fw.running = false
	fw.mu.Unlock()

	close(fw.done)
	err := fw.watcher.Close()
	fw.wg.Wait()
	close(fw.events)
	close(fw.errors)
	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// Events emits changes of the watched file. It is closed by Stop.
func (fw *FileWatcher) Events() <-chan Event { return fw.events }

// Errors emits watcher errors. It is closed by Stop.
func (fw *FileWatcher) Errors() <-chan error { return fw.errors }

func (fw *FileWatcher) processEvents() {
	defer fw.wg.Done()
	for {
		select {
		case <-fw.done:
			return
		case ev, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			out, ok := fw.convert(ev)
			if !ok {
				continue
			}
			select {
			case fw.events <- out:
			case <-fw.done:
				return
			}
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			select {
			case fw.errors <- err:
			case <-fw.done:
				return
			default:
			}
		}
	}
}

func (fw *FileWatcher) convert(ev fsnotify.Event) (Event, bool) {
	if filepath.Clean(ev.Name) != fw.path {
		return Event{}, false
	}
	switch {
	case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create):
		return Event{Path: fw.path, Op: OpWrite}, true
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return Event{Path: fw.path, Op: OpRemove}, true
	default:
		return Event{}, false
	}
}

// Run starts the watcher and calls fn for every event until ctx is done.
func (fw *FileWatcher) Run(ctx context.Context, fn func(Event), onErr func(error)) error {
	if err := fw.Start(); err != nil {
		return err
	}
	defer fw.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.events:
			if !ok {
				return nil
			}
			fn(ev)
		case err, ok := <-fw.errors:
			if !ok {
				return nil
			}
			if onErr != nil {
				onErr(err)
			}
		}
	}
}
