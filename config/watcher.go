package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/internal/rtlog"
)

// Watcher hot-reloads io.toml's safe_state/wildcards tables without a
// restart (SPEC_FULL.md's CONFIGURATION note: "the registry revalidates
// driver params on change"). Grounded on fsnotify's canonical single-file
// watch loop: watch the containing directory (not the file itself, since
// editors commonly replace a file via rename rather than an in-place
// write) and filter events down to the one path of interest.
type Watcher struct {
	path string
	fsw  *fsnotify.Watcher
	log  rtlog.Logger

	onChange func(IOBundle)
	onError  func(error)

	done chan struct{}
}

// NewWatcher builds a Watcher over path. Call Start to begin watching;
// call Close to stop.
func NewWatcher(path string, log rtlog.Logger, onChange func(IOBundle), onError func(error)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidConfig, err, "create fsnotify watcher")
	}
	if onError == nil {
		onError = func(error) {}
	}
	return &Watcher{path: path, fsw: fsw, log: log, onChange: onChange, onError: onError, done: make(chan struct{})}, nil
}

// Start adds path's directory to the watch list and begins the background
// reload loop. Safe to call once per Watcher.
func (w *Watcher) Start() error {
	dir := filepath.Dir(w.path)
	if err := w.fsw.Add(dir); err != nil {
		return errs.Wrap(errs.KindInvalidConfig, err, "watch directory %q", dir)
	}
	go w.loop()
	return nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != filepath.Base(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			bundle, err := LoadIOBundle(w.path)
			if err != nil {
				w.log.Warnf("io bundle reload failed: %v", err)
				w.onError(err)
				continue
			}
			w.onChange(bundle)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

// Close stops the watch loop and releases the underlying fsnotify handle.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	<-w.done
	return err
}
