// Package backup exports the full record store to timestamped JSON files on
// a cron schedule, as a safety net against losing remote data.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"scribe/internal/domain"
	"scribe/internal/event"
	"scribe/internal/gateway"
)

// Snapshot is the exported file layout.
type Snapshot struct {
	ExportedAt time.Time        `json:"exportedAt"`
	Topics     []gateway.Record `json:"topics"`
	SubTopics  []gateway.Record `json:"subTopics"`
	Contents   []gateway.Record `json:"contents"`
}

// Exporter runs scheduled and on-demand exports.
type Exporter struct {
	store    gateway.Store
	emitter  event.Emitter
	logger   zerolog.Logger
	dir      string
	schedule string

	sched   *cron.Cron
	running chan struct{} // 1-slot token; an export in progress holds it
}

func NewExporter(store gateway.Store, emitter event.Emitter, logger zerolog.Logger, dir, schedule string) *Exporter {
	e := &Exporter{
		store:    store,
		emitter:  emitter,
		logger:   logger,
		dir:      dir,
		schedule: schedule,
		running:  make(chan struct{}, 1),
	}
	e.running <- struct{}{}
	return e
}

// Start installs the cron job. An empty schedule disables scheduled runs;
// RunNow stays available either way.
func (e *Exporter) Start(ctx context.Context) error {
	if e.schedule == "" {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(e.schedule, func() {
		if _, err := e.RunNow(ctx); err != nil {
			e.logger.Error().Err(err).Msg("scheduled backup failed")
		}
	}); err != nil {
		return fmt.Errorf("backup schedule %q: %w", e.schedule, err)
	}
	c.Start()
	e.sched = c
	e.logger.Info().Str("schedule", e.schedule).Msg("backup scheduler started")
	return nil
}

// Stop halts the scheduler; a run already started finishes.
func (e *Exporter) Stop() {
	if e.sched != nil {
		e.sched.Stop()
	}
}

// RunNow exports one snapshot, returning the written file path. Overlapping
// runs are skipped rather than queued.
func (e *Exporter) RunNow(ctx context.Context) (string, error) {
	select {
	case <-e.running:
	default:
		return "", fmt.Errorf("backup already running")
	}
	defer func() { e.running <- struct{}{} }()

	snap := Snapshot{ExportedAt: time.Now().UTC()}
	var err error
	if snap.Topics, err = e.store.FetchAll(ctx, domain.TableTopics); err != nil {
		return "", fmt.Errorf("backup topics: %w", err)
	}
	if snap.SubTopics, err = e.store.FetchAll(ctx, domain.TableSubTopics); err != nil {
		return "", fmt.Errorf("backup subtopics: %w", err)
	}
	if snap.Contents, err = e.store.FetchAll(ctx, domain.TableContents); err != nil {
		return "", fmt.Errorf("backup contents: %w", err)
	}

	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode backup: %w", err)
	}
	path := filepath.Join(e.dir, "backup-"+snap.ExportedAt.Format("20060102-150405")+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}

	e.logger.Info().Str("path", path).Int("topics", len(snap.Topics)).Msg("backup written")
	e.emitter.Emit(ctx, event.BackupFinished, map[string]string{"path": path})
	return path, nil
}
