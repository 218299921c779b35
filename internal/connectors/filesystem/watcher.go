package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
	"github.com/custodia-labs/ragsync/internal/logger"
)

// Ensure Watcher implements the interface.
var _ driven.FileWatcher = (*Watcher)(nil)

// Watcher reports file changes under a folder tree.
type Watcher struct {
	ignoreSuffixes []string

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	root    string
	closed  bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewWatcher creates a watcher that drops paths ending in any of the
// given suffixes, such as partial browser downloads.
func NewWatcher(ignoreSuffixes []string) *Watcher {
	suffixes := make([]string, 0, len(ignoreSuffixes))
	for _, s := range ignoreSuffixes {
		if s != "" {
			suffixes = append(suffixes, strings.ToLower(s))
		}
	}
	return &Watcher{ignoreSuffixes: suffixes, done: make(chan struct{})}
}

// Watch starts watching root and every non-hidden sub-directory.
// The returned channel is closed when ctx is cancelled or Close is called.
// Once the channel is closed by cancellation Watch may be called again.
func (w *Watcher) Watch(ctx context.Context, root string) (<-chan domain.FileChange, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, domain.ErrWatcherClosed
	}
	if w.watcher != nil {
		return nil, fmt.Errorf("watch %s: %w: already watching %s", root, domain.ErrInvalidInput, w.root)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w.watcher = fw
	w.root = root

	if _, err := w.addTree(root, false); err != nil {
		fw.Close()
		w.watcher = nil
		return nil, fmt.Errorf("watch %s: %w", root, err)
	}

	changes := make(chan domain.FileChange, 64)
	w.wg.Add(1)
	go w.loop(ctx, fw, changes)

	return changes, nil
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.done)
	fw := w.watcher
	w.mu.Unlock()

	var err error
	if fw != nil {
		err = fw.Close()
	}
	w.wg.Wait()
	return err
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, out chan<- domain.FileChange) {
	defer w.wg.Done()
	defer close(out)
	defer w.release(fw)

	for {
		select {
		case <-ctx.Done():
			fw.Close()
			return
		case <-w.done:
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			for _, change := range w.handleFsEvent(event) {
				select {
				case out <- change:
				case <-ctx.Done():
					fw.Close()
					return
				case <-w.done:
					return
				}
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

// release forgets fw once its loop has exited so Watch can be called again.
func (w *Watcher) release(fw *fsnotify.Watcher) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == fw {
		w.watcher = nil
	}
}

// handleFsEvent maps one fsnotify event to zero or more changes.
// A new directory is added to the watch set and its existing files are
// reported as created, since they may have landed before the watch did.
func (w *Watcher) handleFsEvent(event fsnotify.Event) []domain.FileChange {
	path := event.Name
	if w.skip(path) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Stat(path)
		if err != nil {
			return nil
		}
		if info.IsDir() {
			files, err := w.addTree(path, true)
			if err != nil {
				logger.Warn("Failed to watch %s: %v", path, err)
			}
			changes := make([]domain.FileChange, 0, len(files))
			for _, f := range files {
				changes = append(changes, domain.FileChange{Type: domain.ChangeCreated, Path: f})
			}
			return changes
		}
		return []domain.FileChange{{Type: domain.ChangeCreated, Path: path}}

	case event.Has(fsnotify.Write):
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			return nil
		}
		return []domain.FileChange{{Type: domain.ChangeModified, Path: path}}

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return []domain.FileChange{{Type: domain.ChangeDeleted, Path: path}}
	}

	return nil
}

// addTree watches dir and its non-hidden sub-directories. When collect is
// set it also returns the files found.
func (w *Watcher) addTree(dir string, collect bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if path != dir && isHidden(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				return fmt.Errorf("add %s: %w", path, err)
			}
			return nil
		}
		if collect && d.Type().IsRegular() && !w.ignored(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// skip reports whether a path is hidden relative to the root or ignored.
func (w *Watcher) skip(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return true
	}
	return hasHiddenElement(rel) || w.ignored(path)
}

func (w *Watcher) ignored(path string) bool {
	lower := strings.ToLower(path)
	for _, suffix := range w.ignoreSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}
