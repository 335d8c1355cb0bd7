// internal/app/system/scan/scan.go
package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/url"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"

	"github.com/galleriahq/galleria/internal/app/store/errorlog"
	itemstore "github.com/galleriahq/galleria/internal/app/store/items"
	"github.com/galleriahq/galleria/internal/app/system/library"
	"github.com/galleriahq/galleria/internal/app/system/locks"
	"github.com/galleriahq/galleria/internal/app/system/stats"
	"github.com/galleriahq/galleria/internal/app/system/taxonomy"
	"github.com/galleriahq/galleria/internal/domain/models"
)

// ErrAlreadyRunning is returned when a scan is requested while one is active.
var ErrAlreadyRunning = errors.New("scan already running")

// Status is a point-in-time snapshot of the current or most recent pass.
type Status struct {
	Running    bool      `json:"running"`
	JobID      string    `json:"jobId,omitempty"`
	StartedAt  time.Time `json:"startedAt,omitempty"`
	FinishedAt time.Time `json:"finishedAt,omitempty"`
	Processed  int       `json:"processed"`
	New        int       `json:"new"`
	Updated    int       `json:"updated"`
	Removed    int       `json:"removed"`
	Errors     int       `json:"errors"`
	Message    string    `json:"message,omitempty"`
}

// Engine reconciles the item index against the library tree. A pass is
// idempotent: re-observing an already-filed, unchanged file is a no-op, and
// a crash mid-pass is recovered by simply running again.
type Engine struct {
	tree    library.Tree
	items   *itemstore.Store
	errlog  *errorlog.Store
	stats   *stats.Aggregator
	tax     *taxonomy.TreeCache
	locks   *locks.Service
	logger  *zap.Logger
	cdnBase string

	mu     sync.Mutex
	status Status
}

func New(tree library.Tree, items *itemstore.Store, errlog *errorlog.Store, agg *stats.Aggregator, tax *taxonomy.TreeCache, lockSvc *locks.Service, cdnBase string, logger *zap.Logger) *Engine {
	return &Engine{
		tree:    tree,
		items:   items,
		errlog:  errlog,
		stats:   agg,
		tax:     tax,
		locks:   lockSvc,
		logger:  logger,
		cdnBase: strings.TrimRight(cdnBase, "/"),
	}
}

// Status returns a snapshot of the current or most recent pass.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Start launches a pass in the background and returns its job id.
func (e *Engine) Start() (string, error) {
	jobID, err := e.begin()
	if err != nil {
		return "", err
	}
	go e.run(context.Background(), jobID)
	return jobID, nil
}

// Run executes a full pass synchronously and returns the final status.
func (e *Engine) Run(ctx context.Context) (Status, error) {
	jobID, err := e.begin()
	if err != nil {
		return e.Status(), err
	}
	return e.run(ctx, jobID)
}

func (e *Engine) begin() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status.Running {
		return "", ErrAlreadyRunning
	}
	jobID := uuid.NewString()
	e.status = Status{
		Running:   true,
		JobID:     jobID,
		StartedAt: time.Now().UTC(),
	}
	return jobID, nil
}

func (e *Engine) finish(message string) Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status.Running = false
	e.status.FinishedAt = time.Now().UTC()
	e.status.Message = message
	return e.status
}

func (e *Engine) bump(fn func(*Status)) {
	e.mu.Lock()
	fn(&e.status)
	e.mu.Unlock()
}

func (e *Engine) run(ctx context.Context, jobID string) (Status, error) {
	start := time.Now()
	log := e.logger.With(zap.String("job_id", jobID))

	release, err := e.locks.AcquireGlobal(ctx)
	if err != nil {
		log.Warn("scan could not take the global lock", zap.Error(err))
		return e.finish("lock: " + err.Error()), err
	}
	defer release()

	snapshot, err := e.items.Snapshot(ctx)
	if err != nil {
		log.Error("scan failed to snapshot items", zap.Error(err))
		return e.finish("snapshot: " + err.Error()), err
	}
	log.Info("scan started", zap.Int("indexed", len(snapshot)))

	seen := make(map[string]bool, len(snapshot))
	walkErr := e.tree.Walk(ctx, func(f library.File) error {
		if !library.Supported(f.Name) {
			return nil
		}
		e.bump(func(s *Status) { s.Processed++ })
		seen[f.ID] = true

		if err := e.processFile(ctx, f, snapshot); err != nil {
			e.bump(func(s *Status) { s.Errors++ })
			log.Warn("scan skipped file",
				zap.String("file_id", f.ID),
				zap.String("path", f.RelPath),
				zap.Error(err))
			if recErr := e.errlog.Record(ctx, models.ScanError{
				JobID:   jobID,
				ItemID:  f.ID,
				Message: fmt.Sprintf("%s: %v", f.RelPath, err),
				Stack:   string(debug.Stack()),
			}); recErr != nil {
				log.Error("scan could not record error", zap.Error(recErr))
			}
		}
		return nil
	})
	if walkErr != nil {
		log.Error("scan walk aborted", zap.Error(walkErr))
		return e.finish("walk: " + walkErr.Error()), walkErr
	}

	// Discovery is complete; rows whose backing file vanished go now.
	for fileID := range snapshot {
		if seen[fileID] {
			continue
		}
		if _, err := e.items.Delete(ctx, fileID); err != nil {
			log.Error("scan failed to delete orphan row",
				zap.String("file_id", fileID), zap.Error(err))
			e.bump(func(s *Status) { s.Errors++ })
			continue
		}
		e.bump(func(s *Status) { s.Removed++ })
	}

	if _, err := e.stats.ReconcileAll(ctx); err != nil {
		log.Warn("post-scan stats reconcile failed", zap.Error(err))
	}
	e.tax.Invalidate()

	st := e.finish("ok")
	log.Info("scan finished",
		zap.Int("processed", st.Processed),
		zap.Int("new", st.New),
		zap.Int("updated", st.Updated),
		zap.Int("removed", st.Removed),
		zap.Int("errors", st.Errors),
		zap.Duration("took", time.Since(start)))
	return st, nil
}

// processFile brings one discovered file into agreement with its index row.
func (e *Engine) processFile(ctx context.Context, f library.File, snapshot map[string]models.Item) error {
	sig := library.Signature(f)

	if existing, ok := snapshot[f.ID]; ok {
		if existing.Signature == sig {
			return nil
		}
		// The file moved or was touched. Category stays as filed: explicit
		// edits own category changes, passive drift does not.
		if err := e.items.UpdateSignature(ctx, f.ID, sig); err != nil {
			return err
		}
		e.bump(func(s *Status) { s.Updated++ })
		return nil
	}

	return e.intake(ctx, f)
}

// intake files a never-before-seen asset: classify, place, rename, insert.
func (e *Engine) intake(ctx context.Context, f library.File) error {
	var cat1, cat2 string

	if len(f.Ancestors) == 0 {
		// Dropped at the root: the filename convention is the only hint.
		parsed := taxonomy.ParseFilename(f.Name)
		cat1, cat2 = parsed.Cat1, parsed.Cat2

		if !parsed.Fallback && parsed.CleanName != f.Name {
			renamed, err := e.tree.Rename(ctx, f, parsed.CleanName)
			if err != nil {
				return fmt.Errorf("rename: %w", err)
			}
			f = renamed
		}

		dst, err := e.tree.EnsurePath(ctx, cat1, cat2)
		if err != nil {
			return fmt.Errorf("ensure folder: %w", err)
		}
		moved, err := e.tree.Move(ctx, f, dst)
		if err != nil {
			return fmt.Errorf("move: %w", err)
		}
		f = moved
	} else {
		// Already nested: folder placement is authoritative.
		cat1, cat2 = taxonomy.InferFromAncestors(f.Ancestors)
	}

	width, height := probeDimensions(f.Path)

	created, err := e.items.Create(ctx, models.Item{
		FileID:    f.ID,
		Name:      f.Name,
		Category1: cat1,
		Category2: cat2,
		CDNURL:    e.cdnURL(f.RelPath),
		Width:     width,
		Height:    height,
		Size:      f.Size,
		Signature: library.Signature(f),
	})
	if err != nil {
		return fmt.Errorf("insert row: %w", err)
	}
	e.bump(func(s *Status) { s.New++ })
	e.logger.Debug("scan indexed new file",
		zap.String("file_id", f.ID),
		zap.String("slug", created.Slug),
		zap.String("cat1", cat1),
		zap.String("cat2", cat2))
	return nil
}

// cdnURL builds the public reference URL for a library-relative path.
func (e *Engine) cdnURL(relPath string) string {
	segs := strings.Split(relPath, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return e.cdnBase + "/" + strings.Join(segs, "/")
}

// probeDimensions reads just enough of the asset to learn its pixel size.
// Unknown or broken formats yield zeros rather than an error: dimensions are
// enrichment, not identity.
func probeDimensions(path string) (int, int) {
	fh, err := os.Open(path)
	if err != nil {
		return 0, 0
	}
	defer fh.Close()

	cfg, _, err := image.DecodeConfig(fh)
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
