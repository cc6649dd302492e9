package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/icontools/iconsyncd/internal/assets"
	"github.com/icontools/iconsyncd/internal/checksum"
	"github.com/icontools/iconsyncd/internal/config"
	"github.com/icontools/iconsyncd/internal/imaging"
	"github.com/icontools/iconsyncd/internal/ledger"
)

// Engine orchestrates one sync run: reconcile stale ledger entries, detect
// changed assets, drive the transform pipeline and commit new checksums.
type Engine struct {
	cfg     *config.Config
	store   *ledger.Store
	imaging imaging.Pipeline
	logger  *slog.Logger
	dryRun  bool
}

// NewEngine creates a new sync engine
func NewEngine(cfg *config.Config, store *ledger.Store, pipeline imaging.Pipeline, logger *slog.Logger, dryRun bool) *Engine {
	return &Engine{
		cfg:     cfg,
		store:   store,
		imaging: pipeline,
		logger:  logger,
		dryRun:  dryRun,
	}
}

// Run executes the complete sync process. The returned report is valid
// even when err is non-nil and reflects the work done up to the failure.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	e.logger.Info("starting sync",
		"original_dir", e.cfg.Paths.OriginalDir,
		"processed_dir", e.cfg.Paths.ProcessedDir,
		"dry_run", e.dryRun)

	// Ensure state directory exists
	if err := os.MkdirAll(e.cfg.Paths.StateDir, 0755); err != nil {
		return report, fmt.Errorf("failed to create state directory: %w", err)
	}

	// Load ledger (missing or malformed file yields an empty ledger)
	led, err := e.store.Load()
	if err != nil {
		return report, fmt.Errorf("failed to load ledger: %w", err)
	}

	// Enumerate the original tree. Failure here is run-fatal: without the
	// ground truth no decision is safe.
	originals, err := assets.Discover(e.cfg.Paths.OriginalDir, e.cfg.Image.Extension)
	if err != nil {
		return report, fmt.Errorf("failed to enumerate original tree: %w", err)
	}
	e.logger.Info("discovered original assets", "count", len(originals))

	// Reconcile before classification so stale entries never satisfy a
	// checksum match for a resurrected path.
	report.OrphansRemoved, err = e.reconcile(led, originals)
	if err != nil {
		return report, fmt.Errorf("failed to reconcile ledger: %w", err)
	}

	// Classify every original asset
	report.Flagged, report.UpToDate, err = e.classify(led, originals)
	if err != nil {
		return report, err
	}

	e.logger.Info("classification complete",
		"flagged", len(report.Flagged),
		"up_to_date", report.UpToDate,
		"orphans_removed", len(report.OrphansRemoved))

	if e.dryRun {
		e.logPlanDetails(report)
		e.logger.Info("dry-run complete, no changes applied")
		return report, nil
	}

	if len(report.Flagged) > 0 {
		available, err := e.imaging.IsAvailable(ctx)
		if err != nil || !available {
			return report, fmt.Errorf("image transform tools not available: %w", err)
		}

		if err := e.processFlagged(ctx, led, report); err != nil {
			return report, err
		}
	}

	// Persist the ledger exactly once, and only when something changed, so
	// a no-op run performs zero write operations.
	if len(report.OrphansRemoved) > 0 || len(report.Committed) > 0 {
		if err := e.store.Save(led); err != nil {
			return report, fmt.Errorf("failed to save ledger: %w", err)
		}
	}

	if len(report.Failed) > 0 {
		// Skip policy: the run completed and committed the successes, but
		// the failures must still surface to the caller.
		return report, fmt.Errorf("%d of %d flagged assets failed processing", len(report.Failed), len(report.Flagged))
	}

	e.logger.Info("sync completed successfully", "committed", len(report.Committed))
	return report, nil
}

// reconcile removes ledger entries whose original asset no longer exists,
// deleting the orphaned processed artifact as well. Idempotent.
func (e *Engine) reconcile(led ledger.Ledger, originals []string) ([]string, error) {
	existing := make(map[string]bool, len(originals))
	for _, rel := range originals {
		existing[rel] = true
	}

	var removed []string
	for _, rel := range led.SortedPaths() {
		if existing[rel] {
			continue
		}

		delete(led, rel)
		removed = append(removed, rel)

		if e.dryRun {
			e.logger.Info("[dry-run] would remove orphan", "path", rel)
			continue
		}

		processedPath := e.cfg.ProcessedPath(rel)
		if err := os.Remove(processedPath); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("failed to delete orphaned artifact %s: %w", processedPath, err)
		}

		e.logger.Info("removed orphan", "path", rel)
	}

	return removed, nil
}

// classify compares current checksums against the ledger for every
// original asset and flags the ones needing processing. Checksum errors on
// existing files are fatal: silently skipping would desynchronize the
// ledger from reality.
func (e *Engine) classify(led ledger.Ledger, originals []string) ([]Task, int, error) {
	var flagged []Task
	upToDate := 0

	for _, rel := range originals {
		entry := led[rel] // zero Entry (empty checksums) when absent

		processedPath := e.cfg.ProcessedPath(rel)
		if _, err := os.Stat(processedPath); os.IsNotExist(err) {
			flagged = append(flagged, Task{Path: rel, Reason: ReasonMissingProcessed})
			continue
		}

		origSum, err := checksum.Sum(e.cfg.OriginalPath(rel))
		if err != nil {
			return flagged, upToDate, fmt.Errorf("failed to checksum original %s: %w", rel, err)
		}
		if origSum != entry.Original {
			flagged = append(flagged, Task{Path: rel, Reason: ReasonOriginalChanged})
			continue
		}

		procSum, err := checksum.Sum(processedPath)
		if err != nil {
			return flagged, upToDate, fmt.Errorf("failed to checksum processed %s: %w", rel, err)
		}
		if procSum != entry.Processed {
			flagged = append(flagged, Task{Path: rel, Reason: ReasonProcessedChanged})
			continue
		}

		upToDate++
	}

	return flagged, upToDate, nil
}

// processFlagged runs the transform pipeline over every flagged asset in
// stable order and commits new checksums into the in-memory ledger.
func (e *Engine) processFlagged(ctx context.Context, led ledger.Ledger, report *Report) error {
	for _, task := range report.Flagged {
		e.logger.Info("processing asset", "path", task.Path, "reason", task.Reason)

		if err := e.processOne(ctx, task); err != nil {
			if e.cfg.Sync.OnError == config.ErrorSkip {
				e.logger.Error("asset processing failed, skipping", "path", task.Path, "error", err)
				report.Failed = append(report.Failed, Failure{Task: task, Err: err})
				continue
			}
			return fmt.Errorf("failed to process %s: %w", task.Path, err)
		}

		if err := e.commit(led, task.Path); err != nil {
			return err
		}
		report.Committed = append(report.Committed, task.Path)
	}

	return nil
}

// processOne mirrors the original into the processed tree and runs the
// two transform stages in place, in fixed order.
func (e *Engine) processOne(ctx context.Context, task Task) error {
	src := e.cfg.OriginalPath(task.Path)
	dst := e.cfg.ProcessedPath(task.Path)

	if err := e.copyFile(src, dst); err != nil {
		return fmt.Errorf("failed to mirror asset: %w", err)
	}

	geom := imaging.Geometry{
		MaxWidth:     e.cfg.Image.MaxWidth,
		MaxHeight:    e.cfg.Image.MaxHeight,
		CanvasWidth:  e.cfg.Image.CanvasWidth,
		CanvasHeight: e.cfg.Image.CanvasHeight,
	}
	if err := e.imaging.NormalizeGeometry(ctx, dst, geom); err != nil {
		return err
	}

	// Optimize operates on the normalized output, so stage order is fixed
	return e.imaging.Optimize(ctx, dst)
}

// commit recomputes both checksums after the transform mutated the
// processed file and records them in the in-memory ledger.
func (e *Engine) commit(led ledger.Ledger, rel string) error {
	origSum, err := checksum.Sum(e.cfg.OriginalPath(rel))
	if err != nil {
		return fmt.Errorf("failed to checksum original %s after processing: %w", rel, err)
	}
	procSum, err := checksum.Sum(e.cfg.ProcessedPath(rel))
	if err != nil {
		return fmt.Errorf("failed to checksum processed %s after processing: %w", rel, err)
	}

	led[rel] = ledger.Entry{Original: origSum, Processed: procSum}
	return nil
}

// copyFile copies a file from src to dst with atomic write
func (e *Engine) copyFile(src, dst string) error {
	// Ensure parent directory exists
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = srcFile.Close()
	}()

	// Create temp file in destination directory
	tmpFile, err := os.CreateTemp(filepath.Dir(dst), ".iconsyncd-tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}() // cleanup on error

	if _, err := io.Copy(tmpFile, srcFile); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Chmod(0644); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Close(); err != nil {
		return err
	}

	// Atomic rename
	return os.Rename(tmpPath, dst)
}

// logPlanDetails logs detailed plan information for dry-run
func (e *Engine) logPlanDetails(report *Report) {
	for _, task := range report.Flagged {
		e.logger.Info("[dry-run] would process", "path", task.Path, "reason", task.Reason)
	}
}
