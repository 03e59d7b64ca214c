package book

import (
	"strings"
	"time"
)

// Kind classifies the source media of an item.
type Kind string

const (
	KindImage    Kind = "image"
	KindPDF      Kind = "pdf"
	KindDocument Kind = "document"
)

// KindForPath infers the item kind from a file extension.
func KindForPath(path string) (Kind, bool) {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return "", false
	}
	switch strings.ToLower(path[idx:]) {
	case ".jpg", ".jpeg", ".png", ".tif", ".tiff", ".webp":
		return KindImage, true
	case ".pdf":
		return KindPDF, true
	case ".txt", ".md":
		return KindDocument, true
	default:
		return "", false
	}
}

// CompressionLevel selects how aggressively item representations are
// compressed before bundling.
type CompressionLevel string

const (
	CompressionLow    CompressionLevel = "low"
	CompressionMedium CompressionLevel = "medium"
	CompressionHigh   CompressionLevel = "high"
)

// ParseCompressionLevel converts a string into a known CompressionLevel.
func ParseCompressionLevel(value string) (CompressionLevel, bool) {
	normalized := CompressionLevel(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case CompressionLow, CompressionMedium, CompressionHigh:
		return normalized, true
	}
	return "", false
}

// Settings is the immutable per-pass snapshot of bundle constraints.
// A change invalidates all cached plans.
type Settings struct {
	MaxChunkSizeBytes   int64
	CompressionLevel    CompressionLevel
	SafetyMarginPercent int
}

// EffectiveLimit returns the size ceiling after applying the safety margin.
func (s Settings) EffectiveLimit() int64 {
	return s.MaxChunkSizeBytes * int64(100-s.SafetyMarginPercent) / 100
}

// Representation is a cached per-item compressed rendering and the level it
// was produced under. Bytes live in the blob cache at Path.
type Representation struct {
	Size      int64
	Level     CompressionLevel
	Path      string
	UpdatedAt time.Time
}

// Item is one entry in the ordered book.
type Item struct {
	ID         string
	Position   int
	Title      string
	SourcePath string
	Kind       Kind
	RawSize    int64
	PageCount  int // 0 when unknown
	Cached     *Representation
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NeedsProcessing reports whether the item lacks a representation current
// for the given settings.
func (i Item) NeedsProcessing(settings Settings) bool {
	return i.Cached == nil || i.Cached.Level != settings.CompressionLevel
}

// BestKnownSize returns the cached compressed size when available, falling
// back to the raw size as a conservative estimate.
func (i Item) BestKnownSize() int64 {
	if i.Cached != nil {
		return i.Cached.Size
	}
	return i.RawSize
}

// MultiPage reports whether the item can contain more than one page.
func (i Item) MultiPage() bool {
	return i.Kind == KindPDF || i.Kind == KindDocument
}

// Chunk is one planned bundle: a contiguous, order-preserving slice of the
// book's item sequence. Chunks are derived state, replaced wholesale by each
// planning pass.
type Chunk struct {
	PartNumber         int
	ItemIDs            []string
	Title              string
	EstimatedSizeBytes int64
	VerifiedSizeBytes  int64
	Fingerprint        string
	Oversized          bool
}

// SyncStatus is the lifecycle of a chunk slot in the sync engine.
type SyncStatus string

const (
	SyncWaiting   SyncStatus = "waiting"
	SyncUploading SyncStatus = "uploading"
	SyncSynced    SyncStatus = "synced"
	SyncDirty     SyncStatus = "dirty"
)

// ParseSyncStatus converts a string into a known SyncStatus.
func ParseSyncStatus(value string) (SyncStatus, bool) {
	normalized := SyncStatus(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case SyncWaiting, SyncUploading, SyncSynced, SyncDirty:
		return normalized, true
	}
	return "", false
}

// SyncRecord tracks remote state per chunk slot, keyed by part number.
// Records persist across planning passes so unchanged chunks are not
// re-uploaded.
type SyncRecord struct {
	PartNumber            int
	Status                SyncStatus
	LastSyncedFingerprint string
	RemoteObjectID        string
	LastError             string
	UpdatedAt             time.Time
}

// Snapshot is a whole-value copy of book state taken in one transaction.
// Loops plan against a snapshot and use its revision as the generation
// marker: results computed from a superseded revision are discarded.
type Snapshot struct {
	Title    string
	Items    []Item
	Settings Settings
	Revision int64
}

// Progress summarizes how much of the book is cached at the current level.
type Progress struct {
	Total     int
	Processed int
}

// Fraction returns processed/total, or 1 for an empty book.
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 1
	}
	return float64(p.Processed) / float64(p.Total)
}
