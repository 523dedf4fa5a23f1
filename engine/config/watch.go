package config

import (
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/go-homedir"

	"github.com/spaghettifunk/anima-resources/engine/core"
)

// OnChange receives every configuration that was reloaded and validated.
type OnChange func(cfg *Config)

// Watcher reloads a configuration file whenever it is written. Invalid
// files are logged and skipped, the previous configuration stays in effect.
type Watcher struct {
	path     string
	onChange OnChange

	mutex    sync.Mutex
	fsnotify *fsnotify.Watcher
	done     chan struct{}
	wg       sync.WaitGroup
	isClosed bool
}

func NewWatcher(path string, onChange OnChange) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.Wrap(core.ErrInvalidConfig, "config watcher needs a callback")
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, errors.Wrapf(err, "expanding %s", path)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s", path)
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating fsnotify watcher")
	}
	// editors replace the file on save, so watch the directory
	if err := fsWatch.Add(filepath.Dir(abs)); err != nil {
		fsWatch.Close()
		return nil, errors.Wrapf(err, "watching %s", filepath.Dir(abs))
	}

	w := &Watcher{
		path:     abs,
		onChange: onChange,
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.start()
	return w, nil
}

func (w *Watcher) Path() string {
	return w.path
}

func (w *Watcher) start() {
	defer w.wg.Done()
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != w.path {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.reload()
			}

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("config watcher: %s", err.Error())

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		core.LogError("config reload rejected: %s", err.Error())
		return
	}
	core.LogInfo("Config '%s' reloaded.", w.path)
	w.onChange(cfg)
}

// Close stops watching and waits for the event loop to exit. Safe to call twice.
func (w *Watcher) Close() error {
	w.mutex.Lock()
	if w.isClosed {
		w.mutex.Unlock()
		return nil
	}
	w.isClosed = true
	w.mutex.Unlock()

	close(w.done)
	err := w.fsnotify.Close()
	w.wg.Wait()
	return err
}
