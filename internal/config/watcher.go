package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce coalesces the burst of events editors emit for one save.
const defaultDebounce = 150 * time.Millisecond

// Update carries one reload result. Err is set when the file no longer parses or
// validates; Config then holds the zero value.
type Update struct {
	Config Config
	Err    error
}

// Watcher reloads a config file whenever it changes on disk.
type Watcher struct {
	Path    string
	Updates <-chan Update

	updates  chan Update
	defaults Config
	debounce time.Duration
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  bool
	watcher  *fsnotify.Watcher
}

// NewWatcher creates a watcher for the config file at path. Reloads start from
// defaults, exactly like Load.
func NewWatcher(path string, defaults Config) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ch := make(chan Update, 4)
	return &Watcher{
		Path:     filepath.Clean(path),
		Updates:  ch,
		updates:  ch,
		defaults: defaults,
		debounce: defaultDebounce,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		watcher:  fw,
	}, nil
}

// Start begins watching. The parent directory is watched rather than the file so
// rename-on-save editors keep delivering events. On failure the watcher is
// stopped and Updates is closed.
func (w *Watcher) Start() error {
	if err := EnsureConfigDir(w.Path); err != nil {
		w.Stop()
		return err
	}
	if err := w.watcher.Add(filepath.Dir(w.Path)); err != nil {
		w.Stop()
		return err
	}
	w.started = true
	go w.loop()
	return nil
}

// Stop closes the watcher and the Updates channel.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.quit)
		_ = w.watcher.Close()
		if w.started {
			<-w.done
		}
		close(w.updates)
	})
}

func (w *Watcher) loop() {
	defer close(w.done)

	var (
		pending bool
		lastAt  time.Time
	)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-w.quit:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.Path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending = true
				lastAt = time.Now()
			}
		case <-ticker.C:
			if pending && time.Since(lastAt) >= w.debounce {
				pending = false
				w.emit()
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal; the next event retries the reload.
		}
	}
}

func (w *Watcher) emit() {
	cfg, err := Load(w.Path, w.defaults)
	update := Update{Config: cfg, Err: err}
	select {
	case w.updates <- update:
	case <-w.quit:
	}
}
