package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"bindery/internal/blobcache"
	"bindery/internal/book"
	"bindery/internal/config"
	"bindery/internal/fileutil"
	"bindery/internal/inbox"
	"bindery/internal/logging"
	"bindery/internal/preflight"
	"bindery/internal/workflow"
)

// Daemon coordinates the background engine, the inbox watcher, and the API
// server, and enforces single-instance execution via a file lock.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *book.Store
	blobs    *blobcache.Store
	workflow *workflow.Manager
	watcher  *inbox.Watcher
	api      *apiServer
	logPath  string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Workflow     workflow.StatusSummary
	BookDBPath   string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *book.Store, blobs *blobcache.Store, wf *workflow.Manager, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || blobs == nil || wf == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, blob cache, workflow manager, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "binderyd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		blobs:    blobs,
		workflow: wf,
		watcher:  inbox.NewWatcher(cfg, store, logger),
		logPath:  filepath.Join(cfg.Paths.LogDir, "bindery.log"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start runs preflight checks, acquires the daemon lock, and launches the
// engine loops, the inbox watcher, and the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	results := preflight.RunAll(d.cfg)
	for _, result := range results {
		if result.Passed {
			continue
		}
		return fmt.Errorf("preflight check %q failed: %s", result.Name, result.Detail)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another bindery daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.workflow.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start workflow: %w", err)
	}

	go func() {
		if err := d.watcher.Run(runCtx); err != nil {
			d.logger.Error("inbox watcher exited", logging.Error(err))
		}
	}()

	if d.api != nil {
		if err := d.api.start(runCtx); err != nil {
			d.workflow.Stop()
			_ = d.lock.Unlock()
			cancel()
			d.cancel = nil
			return err
		}
	}

	d.running.Store(true)
	d.logger.Info("bindery daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if d.api != nil {
		d.api.stop()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("bindery daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		Workflow:     d.workflow.Status(ctx),
		BookDBPath:   d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
	}
}

// UpdateSettings validates and applies new bundle settings.
func (d *Daemon) UpdateSettings(ctx context.Context, settings book.Settings) error {
	if settings.MaxChunkSizeBytes < 1024*1024 {
		return errors.New("max chunk size must be at least 1 MiB")
	}
	if settings.SafetyMarginPercent < 0 || settings.SafetyMarginPercent > 20 {
		return errors.New("safety margin must be between 0 and 20 percent")
	}
	if _, ok := book.ParseCompressionLevel(string(settings.CompressionLevel)); !ok {
		return fmt.Errorf("unknown compression level %q", settings.CompressionLevel)
	}
	return d.store.UpdateSettings(ctx, settings)
}

// AddItemFromPath copies a daemon-local file into the cache and appends it
// to the book. The source file is left in place.
func (d *Daemon) AddItemFromPath(ctx context.Context, sourcePath, title string) (*book.Item, error) {
	sourcePath = strings.TrimSpace(sourcePath)
	if sourcePath == "" {
		return nil, errors.New("source path is required")
	}
	info, err := os.Stat(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("inspect source: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", sourcePath)
	}
	kind, ok := book.KindForPath(sourcePath)
	if !ok {
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(sourcePath))
	}

	itemsDir := filepath.Join(d.cfg.Paths.CacheDir, "items")
	if err := os.MkdirAll(itemsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create items dir: %w", err)
	}
	dest := filepath.Join(itemsDir, uuid.NewString()+strings.ToLower(filepath.Ext(sourcePath)))
	if err := fileutil.CopyFileVerified(sourcePath, dest); err != nil {
		return nil, fmt.Errorf("copy into cache: %w", err)
	}

	if strings.TrimSpace(title) == "" {
		title = strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	}
	item, err := d.store.AddItemTitled(ctx, dest, title, kind, info.Size())
	if err != nil {
		_ = os.Remove(dest)
		return nil, err
	}
	return item, nil
}

// RemoveItem removes one item from the book, along with its cached blobs
// and the source copy owned by the cache directory.
func (d *Daemon) RemoveItem(ctx context.Context, id string) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, errors.New("item id is required")
	}
	item, err := d.store.ItemByID(ctx, id)
	if err != nil {
		return false, err
	}
	removed, err := d.store.RemoveItem(ctx, id)
	if err != nil || !removed {
		return removed, err
	}

	if err := d.blobs.Remove(id); err != nil {
		d.logger.Warn("failed to remove cached representation",
			logging.String(logging.FieldItemID, id), logging.Error(err))
	}
	if item != nil && d.ownsSource(item.SourcePath) {
		if err := os.Remove(item.SourcePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			d.logger.Warn("failed to remove cached source file",
				logging.String(logging.FieldItemID, id), logging.Error(err))
		}
	}
	return true, nil
}

// ownsSource reports whether a source path lives inside the cache directory,
// meaning the daemon copied it there and is responsible for cleaning it up.
func (d *Daemon) ownsSource(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	rel, err := filepath.Rel(d.cfg.Paths.CacheDir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// MoveItem moves an item to a new 1-based position.
func (d *Daemon) MoveItem(ctx context.Context, id string, position int) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("item id is required")
	}
	return d.store.MoveItem(ctx, id, position)
}

// Items lists the book's items in order.
func (d *Daemon) Items(ctx context.Context) ([]book.Item, error) {
	return d.store.Items(ctx)
}

// APIAddress returns the bound API listen address, or "" when the API is
// disabled.
func (d *Daemon) APIAddress() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}
