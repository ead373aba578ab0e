package index

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher reloads the index when its file on disk changes.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	reload   func(ctx context.Context) error
	debounce time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

func NewWatcher(path string, reload func(ctx context.Context) error) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:  w,
		path:     filepath.Clean(path),
		reload:   reload,
		debounce: defaultDebounce,
	}, nil
}

// Start watches the parent directory so atomic renames are seen too.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	go w.loop(ctx)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	logger := logutil.GetLogger(ctx).With(zap.String("path", w.path))
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.schedule(ctx)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("index watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		logger := logutil.GetLogger(ctx).With(zap.String("path", w.path))
		if err := w.reload(ctx); err != nil {
			logger.Error("index reload failed, keeping current index", zap.Error(err))
			return
		}
		logger.Info("index reloaded")
	})
}

func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}
