package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/peerhelp/peerhelp/pkg/logger"
)

const watchDebounce = 300 * time.Millisecond

// Watcher calls the OnChange callback each time the config file is written.
type Watcher struct {
	path     string
	OnChange func()
	done     chan struct{}
	log      *logger.Logger
}

func NewWatcher(path string, onChange func(), log *logger.Logger) *Watcher {
	return &Watcher{path: path, OnChange: onChange, done: make(chan struct{}), log: log}
}

func (w *Watcher) Run() { go w.watch() }

func (w *Watcher) watch() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Error().Err(err).Msg("Config watcher has failed")
		return
	}
	defer func() { _ = watcher.Close() }()

	// editors tend to replace files, so the dir is watched
	if err = watcher.Add(filepath.Dir(w.path)); err != nil {
		w.log.Error().Err(err).Msg("Config watch error")
		return
	}
	w.log.Info().Str("path", w.path).Msg("Config watch")

	var debounce <-chan time.Time
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				debounce = time.After(watchDebounce)
			}
		case <-debounce:
			debounce = nil
			if w.OnChange != nil {
				w.OnChange()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("Config watch")
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) Shutdown(context.Context) error {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
	return nil
}

func (w *Watcher) String() string { return "config watcher" }
