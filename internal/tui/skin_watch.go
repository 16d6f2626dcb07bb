package tui

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultSkinDebounce = 150 * time.Millisecond

// SkinChangedMsg asks the page to reload the named skin from Dir.
type SkinChangedMsg struct {
	Name string
	Dir  string
}

// SkinWatcher reports edits to one skin file. Editors often replace files
// by rename, so the containing directory is watched and events are
// filtered by name. Bursts of events collapse into one callback.
type SkinWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	onChange func()
	logger   *slog.Logger

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
	done   chan struct{}
}

// WatchSkin starts watching the named skin in configDir. onChange runs on
// the watcher goroutine; with Bubble Tea it should only call Program.Send.
func WatchSkin(name, configDir string, onChange func(), logger *slog.Logger) (*SkinWatcher, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	path := SkinPath(name, configDir)
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	w := &SkinWatcher{
		watcher:  fw,
		path:     filepath.Clean(path),
		debounce: defaultSkinDebounce,
		onChange: onChange,
		logger:   logger,
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *SkinWatcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("skin watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

func (w *SkinWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Reset(w.debounce)
		return
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *SkinWatcher) fire() {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}
	w.logger.Debug("skin file changed", "path", w.path)
	w.onChange()
}

// Close stops watching. It is safe to call more than once.
func (w *SkinWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.done)
	return w.watcher.Close()
}
