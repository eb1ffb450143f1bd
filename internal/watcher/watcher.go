// Package watcher watches a challenge source tree for changes with
// debouncing, feeding the dev server's live-reload notifications.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeEvent is one debounced file change.
type ChangeEvent struct {
	Path    string
	ModTime time.Time
}

// ChangeHandler receives batches of debounced change events.
type ChangeHandler func(events []ChangeEvent)

// FileWatcher watches directories recursively and groups rapid changes into
// a single notification.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	delay    time.Duration
	handlers []ChangeHandler
	mutex    sync.RWMutex

	pending      []ChangeEvent
	pendingMutex sync.Mutex
	timer        *time.Timer
}

// New creates a file watcher with the given debounce delay.
func New(debounceDelay time.Duration) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &FileWatcher{watcher: w, delay: debounceDelay}, nil
}

// AddHandler registers a change handler.
func (fw *FileWatcher) AddHandler(handler ChangeHandler) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.handlers = append(fw.handlers, handler)
}

// AddRecursive watches root and every directory below it, skipping output
// and VCS directories.
func (fw *FileWatcher) AddRecursive(root string) error {
	return filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		name := info.Name()
		if p != root && (name == ".git" || name == "dist" || name == "node_modules") {
			return filepath.SkipDir
		}
		return fw.watcher.Add(p)
	})
}

// Start consumes filesystem events until ctx is cancelled.
func (fw *FileWatcher) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fw.watcher.Events:
				if !ok {
					return
				}
				if ignored(event.Name) {
					continue
				}
				fw.enqueue(ChangeEvent{Path: event.Name, ModTime: time.Now()})
			case _, ok := <-fw.watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
}

// Close stops the underlying watcher.
func (fw *FileWatcher) Close() error {
	return fw.watcher.Close()
}

func (fw *FileWatcher) enqueue(event ChangeEvent) {
	fw.pendingMutex.Lock()
	defer fw.pendingMutex.Unlock()

	fw.pending = append(fw.pending, event)
	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.timer = time.AfterFunc(fw.delay, fw.flush)
}

func (fw *FileWatcher) flush() {
	fw.pendingMutex.Lock()
	events := fw.pending
	fw.pending = nil
	fw.pendingMutex.Unlock()

	if len(events) == 0 {
		return
	}

	fw.mutex.RLock()
	handlers := make([]ChangeHandler, len(fw.handlers))
	copy(handlers, fw.handlers)
	fw.mutex.RUnlock()

	for _, handler := range handlers {
		handler(events)
	}
}

// ignored filters editor temp files and swap files out of the event stream.
func ignored(p string) bool {
	name := filepath.Base(p)
	return strings.HasSuffix(name, "~") ||
		strings.HasSuffix(name, ".swp") ||
		strings.HasSuffix(name, ".tmp") ||
		strings.HasPrefix(name, ".#")
}
