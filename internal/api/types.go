package api

import (
	"time"

	"bindery/internal/book"
	"bindery/internal/workflow"
)

// DaemonStatus is the payload of GET /api/status.
type DaemonStatus struct {
	Running      bool                   `json:"running"`
	BookDBPath   string                 `json:"book_db_path"`
	LockFilePath string                 `json:"lock_file_path"`
	Workflow     workflow.StatusSummary `json:"workflow"`
}

// ItemView is the wire representation of one book item.
type ItemView struct {
	ID          string    `json:"id"`
	Position    int       `json:"position"`
	Title       string    `json:"title"`
	Kind        string    `json:"kind"`
	RawSize     int64     `json:"raw_size"`
	PageCount   int       `json:"page_count,omitempty"`
	CachedSize  int64     `json:"cached_size,omitempty"`
	CachedLevel string    `json:"cached_level,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FromItem converts a store item into its wire representation.
func FromItem(item book.Item) ItemView {
	view := ItemView{
		ID:        item.ID,
		Position:  item.Position,
		Title:     item.Title,
		Kind:      string(item.Kind),
		RawSize:   item.RawSize,
		PageCount: item.PageCount,
		UpdatedAt: item.UpdatedAt,
	}
	if item.Cached != nil {
		view.CachedSize = item.Cached.Size
		view.CachedLevel = string(item.Cached.Level)
	}
	return view
}

// ItemListResponse is the payload of GET /api/items.
type ItemListResponse struct {
	Items []ItemView `json:"items"`
}

// SettingsPayload carries bundle settings over the API in both directions.
type SettingsPayload struct {
	MaxChunkSizeBytes   int64  `json:"max_chunk_size_bytes"`
	CompressionLevel    string `json:"compression_level"`
	SafetyMarginPercent int    `json:"safety_margin_percent"`
}

// MoveRequest is the payload of POST /api/items/{id}/move.
type MoveRequest struct {
	Position int `json:"position"`
}

// AddItemRequest is the payload of POST /api/items. The source path must be
// readable by the daemon process.
type AddItemRequest struct {
	SourcePath string `json:"source_path"`
	Title      string `json:"title,omitempty"`
}

// PlanResponse is the payload of GET /api/plan.
type PlanResponse struct {
	Planned bool                   `json:"planned"`
	Current bool                   `json:"current"`
	Chunks  []workflow.ChunkStatus `json:"chunks"`
}

// SyncRecordView is the wire representation of one chunk slot's sync state.
type SyncRecordView struct {
	PartNumber            int    `json:"part_number"`
	Status                string `json:"status"`
	LastSyncedFingerprint string `json:"last_synced_fingerprint,omitempty"`
	RemoteObjectID        string `json:"remote_object_id,omitempty"`
	LastError             string `json:"last_error,omitempty"`
}

// SyncResponse is the payload of GET /api/sync.
type SyncResponse struct {
	Records []SyncRecordView `json:"records"`
}

// ErrorResponse is the body of any non-2xx API reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
