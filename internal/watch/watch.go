package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/icontools/iconsyncd/internal/assets"
	"github.com/icontools/iconsyncd/internal/config"
	"github.com/icontools/iconsyncd/internal/imaging"
	"github.com/icontools/iconsyncd/internal/ledger"
	"github.com/icontools/iconsyncd/internal/pipeline"
)

// Watcher re-runs the sync engine whenever the original tree changes.
// Events are debounced so a burst of edits (e.g. a git checkout touching
// many icons) triggers a single run.
type Watcher struct {
	cfg     *config.Config
	store   *ledger.Store
	imaging imaging.Pipeline
	logger  *slog.Logger
}

// NewWatcher creates a new filesystem watcher
func NewWatcher(cfg *config.Config, store *ledger.Store, imagingPipeline imaging.Pipeline, logger *slog.Logger) *Watcher {
	return &Watcher{
		cfg:     cfg,
		store:   store,
		imaging: imagingPipeline,
		logger:  logger,
	}
}

// Run performs an initial sync, then watches the original tree until the
// context is cancelled. Per-run sync errors are logged, not fatal: the
// tree may be mid-edit and the next debounced run will retry.
func (w *Watcher) Run(ctx context.Context) error {
	w.runSync(ctx)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	defer func() {
		_ = fsw.Close()
	}()

	if err := w.addRecursive(fsw, w.cfg.Paths.OriginalDir); err != nil {
		return fmt.Errorf("failed to watch original tree: %w", err)
	}

	w.logger.Info("watching original tree", "dir", w.cfg.Paths.OriginalDir, "debounce", w.cfg.WatchDebounce())

	// The timer is armed on the first relevant event and re-armed on each
	// subsequent one; it fires once the tree has been quiet for the
	// debounce window.
	debounce := time.NewTimer(w.cfg.WatchDebounce())
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}

			// New subdirectories must be watched as well
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(fsw, event.Name); err != nil {
						w.logger.Warn("failed to watch new directory", "dir", event.Name, "error", err)
					}
				}
			}

			w.logger.Debug("filesystem event", "op", event.Op, "path", event.Name)
			debounce.Reset(w.cfg.WatchDebounce())

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("filesystem watcher error", "error", err)

		case <-debounce.C:
			w.runSync(ctx)
		}
	}
}

// relevant filters events down to asset files and directory changes
func (w *Watcher) relevant(event fsnotify.Event) bool {
	base := filepath.Base(event.Name)
	if len(base) > 0 && base[0] == '.' {
		return false
	}
	if assets.IsAsset(event.Name, w.cfg.Image.Extension) {
		return true
	}
	// Directory create/remove changes the asset set too
	if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Remove) {
		if info, err := os.Stat(event.Name); err == nil {
			return info.IsDir()
		}
		// Removed entries can't be stat'd; a removed asset file was
		// already matched above, so this is a directory or irrelevant.
		return event.Op.Has(fsnotify.Remove)
	}
	return false
}

// addRecursive watches dir and every non-hidden subdirectory below it
func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != dir && info.Name()[0] == '.' {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}

func (w *Watcher) runSync(ctx context.Context) {
	engine := pipeline.NewEngine(w.cfg, w.store, w.imaging, w.logger, false)
	report, err := engine.Run(ctx)
	if err != nil {
		w.logger.Error("sync failed", "error", err)
		return
	}
	w.logger.Info("sync completed",
		"orphans_removed", len(report.OrphansRemoved),
		"flagged", len(report.Flagged),
		"committed", len(report.Committed))
}
