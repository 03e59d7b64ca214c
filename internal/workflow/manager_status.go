package workflow

import (
	"context"

	"bindery/internal/book"
	"bindery/internal/logging"
)

// StatusSummary is the externally observable state of the engine: book
// settings, optimization progress, the current plan, and per-chunk sync
// state. It is the payload behind the daemon's status endpoint.
type StatusSummary struct {
	Running             bool          `json:"running"`
	Title               string        `json:"title"`
	MaxChunkSizeBytes   int64         `json:"max_chunk_size_bytes"`
	CompressionLevel    string        `json:"compression_level"`
	SafetyMarginPercent int           `json:"safety_margin_percent"`
	ItemCount           int           `json:"item_count"`
	ProcessedItems      int           `json:"processed_items"`
	Progress            float64       `json:"progress"`
	Planned             bool          `json:"planned"`
	PlanCurrent         bool          `json:"plan_current"`
	Chunks              []ChunkStatus `json:"chunks"`
	LastError           string        `json:"last_error,omitempty"`
}

// ChunkStatus joins one planned chunk with its sync record.
type ChunkStatus struct {
	PartNumber            int      `json:"part_number"`
	Title                 string   `json:"title"`
	ItemIDs               []string `json:"item_ids"`
	EstimatedSizeBytes    int64    `json:"estimated_size_bytes"`
	VerifiedSizeBytes     int64    `json:"verified_size_bytes"`
	Fingerprint           string   `json:"fingerprint"`
	Oversized             bool     `json:"oversized"`
	SyncStatus            string   `json:"sync_status"`
	LastSyncedFingerprint string   `json:"last_synced_fingerprint,omitempty"`
	RemoteObjectID        string   `json:"remote_object_id,omitempty"`
	LastError             string   `json:"last_error,omitempty"`
}

// Status returns the latest engine information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	m.mu.RUnlock()

	summary := StatusSummary{Running: running}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}

	snap, err := m.store.Snapshot(ctx)
	if err != nil {
		m.logger.Warn("failed to read book snapshot", logging.Error(err))
		return summary
	}
	summary.Title = snap.Title
	summary.MaxChunkSizeBytes = snap.Settings.MaxChunkSizeBytes
	summary.CompressionLevel = string(snap.Settings.CompressionLevel)
	summary.SafetyMarginPercent = snap.Settings.SafetyMarginPercent
	summary.ItemCount = len(snap.Items)

	progress, err := m.store.Progress(ctx)
	if err != nil {
		m.logger.Warn("failed to read optimization progress", logging.Error(err))
	} else {
		summary.ProcessedItems = progress.Processed
		summary.Progress = progress.Fraction()
	}

	chunks, planCurrent := m.CurrentPlan(ctx)
	summary.Planned = chunks != nil
	summary.PlanCurrent = planCurrent

	records, err := m.store.SyncRecords(ctx)
	if err != nil {
		m.logger.Warn("failed to read sync records", logging.Error(err))
	}
	recordsByPart := make(map[int]book.SyncRecord, len(records))
	for _, record := range records {
		recordsByPart[record.PartNumber] = record
	}

	summary.Chunks = make([]ChunkStatus, 0, len(chunks))
	for _, chunk := range chunks {
		status := ChunkStatus{
			PartNumber:         chunk.PartNumber,
			Title:              chunk.Title,
			ItemIDs:            chunk.ItemIDs,
			EstimatedSizeBytes: chunk.EstimatedSizeBytes,
			VerifiedSizeBytes:  chunk.VerifiedSizeBytes,
			Fingerprint:        chunk.Fingerprint,
			Oversized:          chunk.Oversized,
			SyncStatus:         string(book.SyncWaiting),
		}
		if record, ok := recordsByPart[chunk.PartNumber]; ok {
			status.SyncStatus = string(record.Status)
			status.LastSyncedFingerprint = record.LastSyncedFingerprint
			status.RemoteObjectID = record.RemoteObjectID
			status.LastError = record.LastError
		}
		summary.Chunks = append(summary.Chunks, status)
	}
	return summary
}
