package optimizer

import (
	"context"
	"log/slog"
	"time"

	"bindery/internal/blobcache"
	"bindery/internal/book"
	"bindery/internal/logging"
	"bindery/internal/services"
	"bindery/internal/services/pdfengine"
)

// Optimizer keeps per-item compressed representations current with the
// book's compression level. Each tick refreshes at most one item, which
// throttles encoder load and keeps write ordering trivial.
type Optimizer struct {
	store   *book.Store
	blobs   *blobcache.Store
	gateway pdfengine.Gateway
	logger  *slog.Logger
}

func New(store *book.Store, blobs *blobcache.Store, gateway pdfengine.Gateway, logger *slog.Logger) *Optimizer {
	return &Optimizer{
		store:   store,
		blobs:   blobs,
		gateway: gateway,
		logger:  logging.NewComponentLogger(logger, "optimizer"),
	}
}

// Tick scans items in book order and refreshes the first one whose cached
// representation is missing or was built at a different compression level.
// It reports whether any work was performed; false with a nil error means
// the cache is fully current.
//
// The commit is conditional: if the item disappeared or the compression
// level moved on while the encoder ran, the result is discarded silently
// and the next tick re-evaluates from fresh state.
func (o *Optimizer) Tick(ctx context.Context) (bool, error) {
	snap, err := o.store.Snapshot(ctx)
	if err != nil {
		return false, services.Wrap(services.ErrTransient, "optimizer", "tick", "load snapshot", err)
	}

	var target *book.Item
	for i := range snap.Items {
		if snap.Items[i].NeedsProcessing(snap.Settings) {
			target = &snap.Items[i]
			break
		}
	}
	if target == nil {
		return false, nil
	}

	itemLogger := o.logger.With(logging.String(logging.FieldItemID, target.ID))
	itemLogger.Debug("refreshing representation",
		logging.String("level", string(snap.Settings.CompressionLevel)),
	)

	result, err := o.gateway.Compress(ctx, *target, snap.Settings.CompressionLevel)
	if err != nil {
		// Leave the item unprocessed; it stays eligible on the next tick.
		return false, err
	}

	pages := 0
	if target.MultiPage() && target.PageCount == 0 {
		pages, err = o.gateway.PageCount(ctx, result.Bytes)
		if err != nil {
			itemLogger.Warn("page count unavailable", logging.Error(err))
			pages = 0
		}
	}

	// The blob is keyed by level, so even if the commit below discards this
	// refresh, the write cannot shadow the bytes the committed row points at.
	blobPath, err := o.blobs.Put(target.ID, string(snap.Settings.CompressionLevel), result.Bytes)
	if err != nil {
		return false, services.Wrap(services.ErrTransient, "optimizer", "tick", "cache representation", err)
	}

	committed, err := o.store.CommitRepresentation(ctx, target.ID, book.Representation{
		Size:      result.Size,
		Level:     snap.Settings.CompressionLevel,
		Path:      blobPath,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return false, services.Wrap(services.ErrTransient, "optimizer", "tick", "commit representation", err)
	}
	if !committed {
		itemLogger.Debug("refresh superseded, result discarded")
		return true, nil
	}

	if pages > 0 {
		if err := o.store.SetPageCount(ctx, target.ID, pages); err != nil {
			itemLogger.Warn("failed to record page count", logging.Error(err))
		}
	}

	itemLogger.Info("representation refreshed",
		logging.Int64("size", result.Size),
		logging.String("level", string(snap.Settings.CompressionLevel)),
	)
	return true, nil
}

// Progress reports the fraction of items whose cached representation matches
// the current compression level.
func (o *Optimizer) Progress(ctx context.Context) (book.Progress, error) {
	return o.store.Progress(ctx)
}
