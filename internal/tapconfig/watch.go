package tapconfig

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher reloads a config File from disk and hands it to onReload
// whenever the file changes (spec §4.4's config surface, made live).
// Editors typically replace a file via rename-into-place rather than an
// in-place write, so the parent directory is watched rather than the
// file itself.
type Watcher struct {
	fsw      *fsnotify.Watcher
	path     string
	onReload func(File)
	log      *logrus.Logger
	done     chan struct{}
}

// NewWatcher starts watching path's directory for changes.
func NewWatcher(path string, onReload func(File), log *logrus.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	w := &Watcher{fsw: fsw, path: path, onReload: onReload, log: log, done: make(chan struct{})}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	base := filepath.Base(w.path)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				w.log.WithError(err).Warn("tapconfig: reload failed, keeping previous settings")
				continue
			}
			w.onReload(cfg)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("tapconfig: watcher error")
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
