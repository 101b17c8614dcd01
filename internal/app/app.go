package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"scribe/internal/assets"
	"scribe/internal/backup"
	"scribe/internal/config"
	"scribe/internal/gateway"
	"scribe/internal/session"
	"scribe/internal/tree"
)

// wailsEmitter forwards engine events to the frontend.
type wailsEmitter struct {
	ctx context.Context
}

func (e wailsEmitter) Emit(_ context.Context, event string, data any) {
	wailsRuntime.EventsEmit(e.ctx, event, data)
}

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx    context.Context
	logger zerolog.Logger
	cfg    config.Config

	store  gateway.Store
	tree   *tree.Mutator
	images *assets.Store
	watch  *assets.Watcher
	export *backup.Exporter

	sessionsMu sync.Mutex
	sessions   map[string]*session.Session
}

// New creates a new App.
func New() *App {
	return &App{sessions: make(map[string]*session.Session)}
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx
	a.logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load("")
	if err != nil {
		a.logger.Warn().Err(err).Msg("config load failed, using defaults")
		cfg = config.Default()
	}
	a.cfg = cfg
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to create data dir: %v", err)
		return
	}

	store, err := gateway.Open(cfg.Store, a.logger)
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to open store: %v", err)
		return
	}
	a.store = store

	emitter := wailsEmitter{ctx: ctx}

	a.tree = tree.NewMutator(store, emitter, a.logger)
	if err := a.tree.Load(ctx); err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to load topic tree: %v", err)
		return
	}

	assetRoot := filepath.Join(cfg.DataDir, "assets")
	a.images = assets.NewStore(assetRoot)
	a.watch = assets.NewWatcher(assetRoot, emitter, a.logger)
	if err := a.watch.Start(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("asset watcher disabled")
	}

	a.export = backup.NewExporter(store, emitter, a.logger, cfg.Backup.Dir, cfg.Backup.Schedule)
	if err := a.export.Start(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("backup scheduler disabled")
	}
}

// Shutdown is called when the app is closing.
func (a *App) Shutdown(ctx context.Context) {
	if a.export != nil {
		a.export.Stop()
	}
	if a.watch != nil {
		a.watch.Stop()
	}
	if a.tree != nil {
		a.tree.Close(ctx)
	}
	if a.store != nil {
		a.store.Close()
	}
}

// session returns the open session for a sub-topic, loading it on first use.
func (a *App) session(subTopicID string) (*session.Session, error) {
	a.sessionsMu.Lock()
	defer a.sessionsMu.Unlock()
	if s, ok := a.sessions[subTopicID]; ok {
		return s, nil
	}
	s, err := session.Open(a.ctx, a.store, wailsEmitter{ctx: a.ctx}, a.logger, subTopicID)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	a.sessions[subTopicID] = s
	return s, nil
}

// CloseDocument drops the in-memory session for a sub-topic. Unsaved edits
// are discarded; callers check IsDirty first.
func (a *App) CloseDocument(subTopicID string) {
	a.sessionsMu.Lock()
	defer a.sessionsMu.Unlock()
	delete(a.sessions, subTopicID)
}

// RunBackupNow triggers an immediate export and returns the file path.
func (a *App) RunBackupNow() (string, error) {
	return a.export.RunNow(a.ctx)
}
