// Package rkwatch implements the supplemented "-watch" mode: a debounced
// fsnotify watcher over a project's source tree that triggers a rebuild
// callback once events settle, instead of firing once per individual file
// event.
//
// Grounded on the teacher's internal/indexing/watcher.go: the directory-walk
// watch registration and the debounce-then-flush coalescing timer are
// carried over directly. Unlike the teacher's watcher, which classifies
// events into create/remove/change for incremental index updates, this
// watcher feeds a content-addressed build graph that already recomputes
// from scratch which nodes are stale — so every coalesced batch just
// triggers one rebuild, regardless of how many paths changed or how.
package rkwatch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/lci/internal/buildlog"
)

// Watcher watches root (recursively) and invokes Rebuild, debounced by
// Debounce, whenever anything under it changes.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	rebuild  func()

	mu      sync.Mutex
	pending bool
	timer   *time.Timer

	rebuildMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Watcher. debounce is the quiet period after the last
// observed event before rebuild fires; rebuild is never called concurrently
// with itself.
func New(debounce time.Duration, rebuild func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		watcher:  fw,
		debounce: debounce,
		rebuild:  rebuild,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start adds a recursive watch under root and begins processing events.
func (w *Watcher) Start(root string) error {
	if err := w.addWatches(root); err != nil {
		return err
	}
	w.wg.Add(1)
	go w.processEvents()
	buildlog.Facade("watch mode started over %s (debounce %s)", root, w.debounce)
	return nil
}

// Stop tears down the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) addWatches(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if info.Name() != "." && len(info.Name()) > 0 && info.Name()[0] == '.' && path != root {
			return filepath.SkipDir
		}
		if addErr := w.watcher.Add(path); addErr != nil {
			buildlog.Facade("warning: failed to watch %s: %v", path, addErr)
		}
		return nil
	})
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
			w.scheduleRebuild(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			buildlog.Facade("watch error: %v", err)
		}
	}
}

func (w *Watcher) scheduleRebuild(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if !w.pending {
		w.mu.Unlock()
		return
	}
	w.pending = false
	w.mu.Unlock()

	w.rebuildMu.Lock()
	defer w.rebuildMu.Unlock()
	w.rebuild()
}
