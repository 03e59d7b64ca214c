package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"bindery/internal/book"
	"bindery/internal/config"
	"bindery/internal/fileutil"
	"bindery/internal/logging"
	"bindery/internal/services"
)

// Watcher ingests media files dropped into the inbox directory. A file is
// picked up once it has settled (no writes for the settle interval), copied
// into the cache with integrity verification, appended to the book, and
// removed from the inbox. Files with unsupported extensions are left in
// place.
type Watcher struct {
	cfg    *config.Config
	store  *book.Store
	logger *slog.Logger
	settle time.Duration
}

func NewWatcher(cfg *config.Config, store *book.Store, logger *slog.Logger) *Watcher {
	settleSeconds := cfg.Workflow.InboxSettleSeconds
	if settleSeconds < 1 {
		settleSeconds = 1
	}
	return &Watcher{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "inbox"),
		settle: time.Duration(settleSeconds) * time.Second,
	}
}

// Run watches the inbox until the context is cancelled. Files already
// present at startup are ingested as well.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "inbox", "run", "create watcher", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.cfg.Paths.InboxDir); err != nil {
		return services.Wrap(services.ErrConfiguration, "inbox", "run", "watch inbox dir", err)
	}

	pending := make(map[string]time.Time)
	if err := w.scanExisting(pending); err != nil {
		w.logger.Warn("initial inbox scan failed", logging.Error(err))
	}

	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				pending[event.Name] = time.Now()
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				delete(pending, event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("inbox watch error", logging.Error(err))
		case <-ticker.C:
			now := time.Now()
			for path, lastWrite := range pending {
				if now.Sub(lastWrite) < w.settle {
					continue
				}
				delete(pending, path)
				if err := w.ingest(ctx, path); err != nil {
					w.logger.Warn("inbox ingest failed",
						logging.String("path", path),
						logging.Error(err),
					)
				}
			}
		}
	}
}

func (w *Watcher) scanExisting(pending map[string]time.Time) error {
	entries, err := os.ReadDir(w.cfg.Paths.InboxDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(w.cfg.Paths.InboxDir, entry.Name())
		// Backdate so startup leftovers ingest on the first sweep.
		pending[path] = time.Now().Add(-w.settle)
	}
	return nil
}

func (w *Watcher) ingest(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}

	kind, ok := book.KindForPath(path)
	if !ok {
		w.logger.Warn("unsupported file left in inbox",
			logging.String("path", path),
			logging.String(logging.FieldErrorHint, "only images, pdfs, and text documents are ingested"),
		)
		return nil
	}

	itemsDir := filepath.Join(w.cfg.Paths.CacheDir, "items")
	if err := os.MkdirAll(itemsDir, 0o755); err != nil {
		return fmt.Errorf("create items dir: %w", err)
	}
	dest := filepath.Join(itemsDir, uuid.NewString()+strings.ToLower(filepath.Ext(path)))
	if err := fileutil.CopyFileVerified(path, dest); err != nil {
		return fmt.Errorf("copy into cache: %w", err)
	}

	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	item, err := w.store.AddItemTitled(ctx, dest, title, kind, info.Size())
	if err != nil {
		_ = os.Remove(dest)
		return fmt.Errorf("append item: %w", err)
	}
	if err := os.Remove(path); err != nil {
		w.logger.Warn("could not remove ingested inbox file",
			logging.String("path", path),
			logging.Error(err),
		)
	}

	w.logger.Info("item ingested",
		logging.String(logging.FieldItemID, item.ID),
		logging.String("title", item.Title),
		logging.String("kind", string(kind)),
		logging.Int64("size", info.Size()),
	)
	return nil
}
