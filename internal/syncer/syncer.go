package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"

	"bindery/internal/book"
	"bindery/internal/config"
	"bindery/internal/fileutil"
	"bindery/internal/logging"
	"bindery/internal/services"
	"bindery/internal/services/pdfengine"
	"bindery/internal/services/remote"
)

// Syncer reconciles the current chunk plan against remote storage. Each
// tick advances at most one chunk slot through the waiting -> uploading ->
// {synced | dirty} state machine, lowest part number first, so early parts
// of a large book become available before later ones.
type Syncer struct {
	store    *book.Store
	gateway  pdfengine.Gateway
	remote   remote.Store
	logger   *slog.Logger
	folderID string
	attempts uint
	delay    time.Duration
}

func New(store *book.Store, gateway pdfengine.Gateway, target remote.Store, cfg *config.Config, logger *slog.Logger) *Syncer {
	attempts := cfg.Workflow.UploadAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Syncer{
		store:    store,
		gateway:  gateway,
		remote:   target,
		logger:   logging.NewComponentLogger(logger, "syncer"),
		folderID: cfg.Remote.FolderID,
		attempts: uint(attempts),
		delay:    time.Second,
	}
}

// Tick reconciles the given plan once. It uploads the first chunk whose
// fingerprint differs from the last synced one, records the outcome in the
// chunk's sync record, and reports whether an upload was attempted. A
// failed upload marks the slot dirty and leaves the last synced fingerprint
// untouched so the slot stays due on the next tick. Parts beyond the
// current plan have their remote bundles removed and their ledger rows
// pruned.
//
// Oversized chunks are skipped: they breach the remote service's size
// ceiling, so pushing them would only trade a local constraint violation
// for a remote rejection.
func (s *Syncer) Tick(ctx context.Context, snap *book.Snapshot, chunks []book.Chunk) (bool, error) {
	records, err := s.store.SyncRecords(ctx)
	if err != nil {
		return false, services.Wrap(services.ErrTransient, "syncer", "tick", "load sync records", err)
	}

	// Remote objects for parts beyond the current plan come down first, so a
	// shrinking book never strands an orphaned bundle on the remote. Pruning
	// the ledger rows happens only after the removals succeed; a failed
	// removal leaves the row in place and is retried next tick.
	for _, record := range records {
		if record.PartNumber <= len(chunks) || record.RemoteObjectID == "" {
			continue
		}
		if err := s.remote.Remove(ctx, record.RemoteObjectID); err != nil {
			return false, services.Wrap(services.ErrTransient, "syncer", "tick", "remove stale remote bundle", err)
		}
		s.logger.Info("removed stale remote bundle",
			logging.Int(logging.FieldPart, record.PartNumber),
			logging.String("object_id", record.RemoteObjectID),
		)
	}
	if _, err := s.store.PruneSyncRecords(ctx, len(chunks)); err != nil {
		return false, services.Wrap(services.ErrTransient, "syncer", "tick", "prune sync records", err)
	}
	if len(chunks) == 0 {
		return false, nil
	}

	byPart := make(map[int]book.SyncRecord, len(records))
	for _, record := range records {
		byPart[record.PartNumber] = record
	}

	itemsByID := make(map[string]book.Item, len(snap.Items))
	for _, item := range snap.Items {
		itemsByID[item.ID] = item
	}

	for _, chunk := range chunks {
		if chunk.Oversized {
			s.logger.Warn("skipping oversized chunk",
				logging.Int(logging.FieldPart, chunk.PartNumber),
				logging.Int64("verified_size", chunk.VerifiedSizeBytes),
				logging.String(logging.FieldErrorHint, "raise the compression level or remove the item"),
			)
			continue
		}
		record, known := byPart[chunk.PartNumber]
		if known && record.Status == book.SyncUploading {
			// Tick runs synchronously with at most one upload in flight, so
			// an uploading record observed at tick start can only be the
			// residue of a failed status write. Treat it as due rather than
			// waiting for a restart to clear it.
			s.logger.Warn("reclaiming stale uploading slot",
				logging.Int(logging.FieldPart, chunk.PartNumber),
			)
		} else if known && record.LastSyncedFingerprint == chunk.Fingerprint {
			continue
		}
		return true, s.upload(ctx, snap, chunk, record, itemsByID)
	}
	return false, nil
}

func (s *Syncer) upload(ctx context.Context, snap *book.Snapshot, chunk book.Chunk, prev book.SyncRecord, itemsByID map[string]book.Item) error {
	items := make([]book.Item, 0, len(chunk.ItemIDs))
	for _, id := range chunk.ItemIDs {
		item, ok := itemsByID[id]
		if !ok {
			// The plan no longer matches the snapshot; the next planning
			// pass will produce a fresh one.
			return nil
		}
		items = append(items, item)
	}

	record := book.SyncRecord{
		PartNumber:            chunk.PartNumber,
		Status:                book.SyncUploading,
		LastSyncedFingerprint: prev.LastSyncedFingerprint,
		RemoteObjectID:        prev.RemoteObjectID,
	}
	if err := s.store.PutSyncRecord(ctx, record); err != nil {
		return services.Wrap(services.ErrTransient, "syncer", "upload", "mark uploading", err)
	}

	partLogger := s.logger.With(logging.Int(logging.FieldPart, chunk.PartNumber))
	data, err := s.gateway.Encode(ctx, items, chunk.Title, snap.Settings.CompressionLevel)
	if err != nil {
		return s.fail(ctx, record, partLogger, "encode bundle", err)
	}

	filename := BundleFilename(snap.Title, chunk.PartNumber)
	var objectID string
	err = retry.Do(
		func() error {
			id, uploadErr := s.remote.Upload(ctx, s.folderID, filename, data)
			if uploadErr != nil {
				return uploadErr
			}
			objectID = id
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.Delay(s.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return s.fail(ctx, record, partLogger, "upload bundle", err)
	}

	record.Status = book.SyncSynced
	record.LastSyncedFingerprint = chunk.Fingerprint
	record.RemoteObjectID = objectID
	record.LastError = ""
	if err := s.store.PutSyncRecord(ctx, record); err != nil {
		return services.Wrap(services.ErrTransient, "syncer", "upload", "mark synced", err)
	}
	partLogger.Info("chunk synced",
		logging.String("filename", filename),
		logging.Int64("size", int64(len(data))),
		logging.String("object_id", objectID),
	)
	return nil
}

// fail marks the slot dirty without touching the last synced fingerprint,
// so the chunk remains due for upload on the next reconciliation tick.
func (s *Syncer) fail(ctx context.Context, record book.SyncRecord, logger *slog.Logger, op string, cause error) error {
	record.Status = book.SyncDirty
	record.LastError = cause.Error()
	if putErr := s.store.PutSyncRecord(ctx, record); putErr != nil {
		logger.Error("failed to record dirty slot", logging.Error(putErr))
	}
	logger.Warn("chunk sync failed, will retry",
		logging.Error(cause),
		logging.String(logging.FieldEventType, "chunk_sync_failed"),
	)
	return services.Wrap(services.ErrTransient, "syncer", op, "", cause)
}

// BundleFilename derives the deterministic remote filename of one part.
func BundleFilename(bookTitle string, partNumber int) string {
	return fmt.Sprintf("%s - part %03d.pdf", fileutil.SanitizeFilename(bookTitle), partNumber)
}
