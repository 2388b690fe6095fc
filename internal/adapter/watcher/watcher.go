package watcher

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Event is a corpus file change worth re-ingesting or removing.
type Event struct {
	Path    string
	Removed bool
}

// Filter decides whether a path (relative to the watched root) is part of
// the corpus.
type Filter interface {
	Matches(relPath string) bool
}

// Watcher monitors the docs directory and emits events for files passing
// the corpus filter.
type Watcher struct {
	watcher *fsnotify.Watcher
	filter  Filter
	log     *zap.SugaredLogger
}

func New(filter Filter, log *zap.SugaredLogger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{watcher: w, filter: filter, log: log}, nil
}

// Watch starts monitoring dir until ctx is cancelled. The returned channel
// closes when watching stops.
func (w *Watcher) Watch(ctx context.Context, dir string) (<-chan Event, error) {
	if err := w.watcher.Add(dir); err != nil {
		return nil, err
	}

	events := make(chan Event, 100)

	go func() {
		defer close(events)
		defer w.watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}

				rel, err := filepath.Rel(dir, event.Name)
				if err != nil || !w.filter.Matches(rel) {
					continue
				}

				var out Event
				switch {
				case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
					out = Event{Path: event.Name}
				case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
					out = Event{Path: event.Name, Removed: true}
				default:
					continue
				}

				select {
				case events <- out:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.log.Warnw("watch error", "err", err)
			}
		}
	}()

	return events, nil
}
