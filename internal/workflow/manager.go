package workflow

import (
	"log/slog"
	"sync"
	"time"

	"bindery/internal/blobcache"
	"bindery/internal/book"
	"bindery/internal/config"
	"bindery/internal/optimizer"
	"bindery/internal/services/pdfengine"
	"bindery/internal/services/remote"
	"bindery/internal/syncer"
)

// Manager coordinates the three background loops: the optimizer refreshing
// per-item representations, the planner recomputing the chunk partition,
// and the syncer mirroring planned chunks to remote storage. Each loop
// keeps one unit of work in flight and sleeps for its tick interval in
// between, so the loops interleave without contending on the encoder.
type Manager struct {
	cfg     *config.Config
	store   *book.Store
	gateway pdfengine.Gateway
	logger  *slog.Logger

	optimizer *optimizer.Optimizer
	syncer    *syncer.Syncer

	// Published plan, replaced wholesale by each planning pass. The
	// revision it was computed from acts as its generation marker: a plan
	// whose revision trails the store is stale and never synced.
	planMu       sync.RWMutex
	planChunks   []book.Chunk
	planSnap     *book.Snapshot
	planRevision int64

	mu      sync.RWMutex
	running bool
	cancel  func()
	wg      sync.WaitGroup
	lastErr error
}

// NewManager constructs a workflow manager wired to the given collaborators.
func NewManager(cfg *config.Config, store *book.Store, blobs *blobcache.Store, gateway pdfengine.Gateway, target remote.Store, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:          cfg,
		store:        store,
		gateway:      gateway,
		logger:       logger,
		optimizer:    optimizer.New(store, blobs, gateway, logger),
		syncer:       syncer.New(store, gateway, target, cfg, logger),
		planRevision: -1,
	}
}

func (m *Manager) tickInterval(ms int, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func (m *Manager) errorRetryInterval() time.Duration {
	seconds := m.cfg.Workflow.ErrorRetrySeconds
	if seconds <= 0 {
		seconds = 5
	}
	return time.Duration(seconds) * time.Second
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
