package assets

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"scribe/internal/event"
)

// Watcher observes the asset root recursively and emits an event whenever
// an image file is written or removed, so open documents can refresh image
// blocks changed by another process (e.g. the standalone MCP server).
type Watcher struct {
	root    string
	emitter event.Emitter
	logger  zerolog.Logger
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
}

func NewWatcher(root string, emitter event.Emitter, logger zerolog.Logger) *Watcher {
	return &Watcher{root: root, emitter: emitter, logger: logger}
}

// Start begins watching. The asset root is created if missing; per-document
// subdirectories are added to the watch set as they appear.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.root, 0755); err != nil {
		return err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = fsw
	if err := fsw.Add(w.root); err != nil {
		fsw.Close()
		return err
	}
	entries, _ := os.ReadDir(w.root)
	for _, e := range entries {
		if e.IsDir() {
			if err := fsw.Add(filepath.Join(w.root, e.Name())); err != nil {
				w.logger.Warn().Err(err).Str("dir", e.Name()).Msg("asset watch add failed")
			}
		}
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	go w.loop(watchCtx)
	return nil
}

// Stop terminates the watch loop.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.watcher != nil {
		w.watcher.Close()
	}
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.watcher.Add(ev.Name); err != nil {
						w.logger.Warn().Err(err).Str("dir", ev.Name).Msg("asset watch add failed")
					}
					continue
				}
			}
			if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Remove) {
				w.emitter.Emit(ctx, event.AssetChanged, map[string]string{"path": ev.Name})
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("asset watcher error")
		}
	}
}
